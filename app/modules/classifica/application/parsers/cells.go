package parsers

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	integerCell   = regexp.MustCompile(`^\d+$`)
	rankCell      = regexp.MustCompile(`^(\d{1,4})\s*[.°ºª)]?$`)
	thousandsCell = regexp.MustCompile(`^\d{1,3}(?:[.\s'’]\d{3})+$`)
	decimalCell   = regexp.MustCompile(`^\d+[.,]\d+$`)
)

// parseInteger parses a plain unsigned integer cell.
func parseInteger(cell string) (int, bool) {
	cell = strings.TrimSpace(cell)
	if !integerCell.MatchString(cell) {
		return 0, false
	}
	n, err := strconv.Atoi(cell)
	if err != nil {
		return 0, false
	}
	return n, true
}

// parseRank accepts "3", "3.", "3°" and "3)".
func parseRank(cell string) (int, bool) {
	m := rankCell.FindStringSubmatch(strings.TrimSpace(cell))
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n == 0 {
		return 0, false
	}
	return n, true
}

// parseTotal parses an integer that may use a thousands separator, as
// declared totals and team totals often do ("1.234").
func parseTotal(cell string) (int, bool) {
	cell = strings.TrimSpace(cell)
	if n, ok := parseInteger(cell); ok {
		return n, true
	}
	if !thousandsCell.MatchString(cell) {
		return 0, false
	}
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, cell)
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return n, true
}

// parseDecimal parses "218.3" or "218,3".
func parseDecimal(cell string) (float64, bool) {
	cell = strings.TrimSpace(cell)
	if n, ok := parseInteger(cell); ok {
		return float64(n), true
	}
	if !decimalCell.MatchString(cell) {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.Replace(cell, ",", ".", 1), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// isNumeric reports whether the cell is a number of any shape.
func isNumeric(cell string) bool {
	if _, ok := parseRank(cell); ok {
		return true
	}
	if _, ok := parseTotal(cell); ok {
		return true
	}
	_, ok := parseDecimal(cell)
	return ok
}

// isNameLike reports whether a cell can stand in for an athlete name:
// alphabetic, longer than three runes, not a pure number.
func isNameLike(cell string) bool {
	cell = strings.TrimSpace(cell)
	if utf8.RuneCountInString(cell) <= 3 || isNumeric(cell) {
		return false
	}
	letters := 0
	for _, r := range cell {
		switch {
		case unicode.IsLetter(r):
			letters++
		case unicode.IsDigit(r):
			return false
		}
	}
	return letters > 3
}
