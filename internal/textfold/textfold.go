// Package textfold strips diacritics and normalizes whitespace so that
// federation pages written with or without accents compare equal.
package textfold

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// RemoveDiacritics decomposes s and drops combining marks, so "Niccolò"
// becomes "Niccolo". Characters without a decomposition (ß, ø) are kept.
func RemoveDiacritics(s string) string {
	// transform.Chain is stateful; build one per call.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// CollapseSpaces trims s and replaces every whitespace run (including
// non-breaking spaces) with a single space.
func CollapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Keyword folds s for keyword comparison: no diacritics, lower case,
// single spaces.
func Keyword(s string) string {
	return strings.ToLower(CollapseSpaces(RemoveDiacritics(s)))
}

// Letters folds s to upper-case ASCII-comparable letters only, dropping
// digits, punctuation and spaces.
func Letters(s string) string {
	s = RemoveDiacritics(s)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	return b.String()
}
