package parsers

import (
	"regexp"
	"unicode/utf8"

	classificadomain "github.com/Black-And-White-Club/pinfall-import/app/modules/classifica/domain"
	"github.com/Black-And-White-Club/pinfall-import/internal/textfold"
)

const (
	genderMale   = "Maschile"
	genderFemale = "Femminile"
)

var (
	categoryKeywords = regexp.MustCompile(`(?:^|[^a-z])(elite|eccellenza|cadett[ie]|junior(es|s)?|senior(es|s)?|veteran[ioe]?|veterans|master|amatori|amateur|assoluti|esordienti|allievi|over ?\d{2}|under ?\d{2}|u\d{2}|fascia|categoria|cat\.|classe|class|division[ei]?|girone|gruppo|group|serie|open|uomini|donne|maschil[ei]|femminil[ei]|men|women|male|female|ladies|herren|damen|hommes|femmes|masculino|femenino)(?:$|[^a-z])`)
	femaleKeywords   = regexp.MustCompile(`(?:^|[^a-z])(donne|femminil[ei]|women|female|ladies|damen|femmes|femenino|ragazze)(?:$|[^a-z])`)
	maleKeywords     = regexp.MustCompile(`(?:^|[^a-z])(uomini|maschil[ei]|men|male|herren|hommes|masculino|ragazzi)(?:$|[^a-z])`)
)

// TaggedRow is a row annotated with the division in force when it was read.
type TaggedRow struct {
	Index    int
	Row      classificadomain.RawRow
	Division *string
	// Heading is set on rows that switched the division.
	Heading bool
}

// divisionContext is the fold state. Values are never mutated; every step
// returns a new context.
type divisionContext struct {
	label  string
	gender string
}

// DivisionOptions bounds what counts as a heading.
type DivisionOptions struct {
	MinDataCells      int
	MaxDivisionLength int
	Rules             []ColumnRule
}

// TagDivisions folds over rows in document order and annotates each one
// with the current division. The context starts empty on every call.
func TagDivisions(rows []classificadomain.RawRow, opts DivisionOptions) []TaggedRow {
	tagged := make([]TaggedRow, 0, len(rows))
	ctx := divisionContext{}
	for i, row := range rows {
		next, switched := stepDivision(ctx, row, opts)
		ctx = next
		tagged = append(tagged, TaggedRow{
			Index:    i,
			Row:      row,
			Division: ctx.division(),
			Heading:  switched,
		})
	}
	return tagged
}

// stepDivision returns the context after reading row and whether the row
// started a new division.
func stepDivision(ctx divisionContext, row classificadomain.RawRow, opts DivisionOptions) (divisionContext, bool) {
	if looksLikeDataRow(row, opts.MinDataCells) || isHeaderRow(opts.Rules, row) {
		return ctx, false
	}

	label := row.Text()
	folded := textfold.Keyword(label)
	if !categoryKeywords.MatchString(folded) {
		return ctx, false
	}

	next := divisionContext{label: label, gender: ctx.gender}
	if g := detectGender(folded); g != "" {
		next.gender = g
	} else if ctx.gender != "" {
		next.label = label + " " + ctx.gender
	}
	if utf8.RuneCountInString(next.label) > opts.MaxDivisionLength {
		return ctx, false
	}
	return next, true
}

func (c divisionContext) division() *string {
	if c.label == "" {
		return nil
	}
	label := c.label
	return &label
}

// detectGender returns the canonical gender named in folded text, if any.
func detectGender(folded string) string {
	switch {
	case femaleKeywords.MatchString(folded):
		return genderFemale
	case maleKeywords.MatchString(folded):
		return genderMale
	}
	return ""
}

// looksLikeDataRow: a numeric first cell with enough cells, or at least two
// numeric cells anywhere (data rows whose rank cell is merged away).
func looksLikeDataRow(row classificadomain.RawRow, minCells int) bool {
	if isNumeric(row.Cell(0)) && row.NonEmpty() >= minCells {
		return true
	}
	numeric := 0
	for _, cell := range row {
		if isNumeric(cell) {
			numeric++
		}
	}
	return numeric >= 2
}
