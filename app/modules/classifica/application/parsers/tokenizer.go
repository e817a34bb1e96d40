package parsers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	classificadomain "github.com/Black-And-White-Club/pinfall-import/app/modules/classifica/domain"
	"github.com/Black-And-White-Club/pinfall-import/internal/textfold"
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/charmap"
)

// ErrNoTabularDataFound is returned when no row has at least two cells.
var ErrNoTabularDataFound = errors.New("no tabular data found")

// Tokenizer turns raw source bytes into ordered rows.
type Tokenizer interface {
	Tokenize(data []byte) ([]classificadomain.RawRow, error)
}

var (
	markupRow      = regexp.MustCompile(`(?i)<t[rd][\s>]`)
	wideSeparator  = regexp.MustCompile(`\t|\s{2,}`)
	headingElement = "tr, h1, h2, h3, h4, h5, h6, caption, p, div, li"
)

// looksLikeMarkup reports whether the data contains table row or cell tags.
func looksLikeMarkup(data []byte) bool {
	return markupRow.Match(data)
}

// HTMLTokenizer extracts rows from table markup.
type HTMLTokenizer struct {
	// ContentType is the declared Content-Type, used for charset detection.
	ContentType string
}

// Tokenize walks table rows and heading-like elements in document order.
// Headings outside tables become single-cell rows so divisions declared
// between tables are seen in sequence with the data.
func (t HTMLTokenizer) Tokenize(data []byte) ([]classificadomain.RawRow, error) {
	doc, err := goquery.NewDocumentFromReader(t.decode(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var (
		rows      []classificadomain.RawRow
		seenTable bool
	)
	doc.Find(headingElement).Each(func(_ int, s *goquery.Selection) {
		if goquery.NodeName(s) == "tr" {
			seenTable = true
			var row classificadomain.RawRow
			s.ChildrenFiltered("td, th").Each(func(_ int, cell *goquery.Selection) {
				row = append(row, textfold.CollapseSpaces(cell.Text()))
			})
			rows = appendRow(rows, row)
			return
		}

		if !isStandaloneHeading(s) || isNavigation(s, seenTable) {
			return
		}
		rows = appendRow(rows, classificadomain.RawRow{textfold.CollapseSpaces(s.Text())})
	})

	return requireTabular(rows)
}

// decode returns a UTF-8 reader over data. The charset sniffer only looks
// at the first 1024 bytes, so valid UTF-8 without a BOM or a Content-Type
// charset is read as is instead of falling back to windows-1252.
func (t HTMLTokenizer) decode(data []byte) io.Reader {
	if _, _, certain := charset.DetermineEncoding(data, t.ContentType); !certain && utf8.Valid(data) {
		return bytes.NewReader(data)
	}
	reader, err := charset.NewReader(bytes.NewReader(data), t.ContentType)
	if err != nil {
		return bytes.NewReader(data)
	}
	return reader
}

// isStandaloneHeading keeps text blocks that sit outside tables and hold
// no nested blocks, so the same text is never emitted twice.
func isStandaloneHeading(s *goquery.Selection) bool {
	if goquery.NodeName(s) == "caption" {
		return true
	}
	if s.ParentsFiltered("table, caption").Length() > 0 {
		return false
	}
	if s.Find("table, div, p, li, h1, h2, h3, h4, h5, h6").Length() > 0 {
		return false
	}
	return strings.TrimSpace(s.Text()) != ""
}

// isNavigation reports whether s is menu text rather than content: anything
// inside nav, header or footer, and list items above the first table.
func isNavigation(s *goquery.Selection, seenTable bool) bool {
	if s.ParentsFiltered("nav, header, footer, menu").Length() > 0 {
		return true
	}
	return !seenTable && goquery.NodeName(s) == "li"
}

// TextTokenizer splits pasted plain text on tabs or runs of spaces.
type TextTokenizer struct{}

// Tokenize splits each line into cells. Lines that do not split on tabs or
// double spaces fall back to single spaces: header lines keep one cell per
// keyword, other lines re-join adjacent words so that a name stays in one
// cell.
func (TextTokenizer) Tokenize(data []byte) ([]classificadomain.RawRow, error) {
	text := decodeText(data)

	var rows []classificadomain.RawRow
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		line = strings.TrimRight(line, " \t\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		fields := splitFields(wideSeparator.Split(strings.TrimSpace(line), -1))
		if len(fields) < 2 {
			fields = splitSingleSpaced(strings.Fields(line), DefaultColumnRules)
		}
		rows = appendRow(rows, fields)
	}

	return requireTabular(rows)
}

func splitFields(parts []string) classificadomain.RawRow {
	row := make(classificadomain.RawRow, 0, len(parts))
	for _, p := range parts {
		row = append(row, textfold.CollapseSpaces(p))
	}
	return row
}

func splitSingleSpaced(tokens []string, rules []ColumnRule) classificadomain.RawRow {
	if header := joinKeywords(tokens, rules); isHeaderRow(rules, header) {
		return header
	}
	return joinWords(tokens)
}

// joinWords merges every run of consecutive alphabetic tokens into one cell.
func joinWords(tokens []string) classificadomain.RawRow {
	var row classificadomain.RawRow
	prevWord := false
	for _, tok := range tokens {
		word := isWord(tok)
		if word && prevWord {
			row[len(row)-1] += " " + tok
			continue
		}
		row = append(row, tok)
		prevWord = word
	}
	return row
}

// joinKeywords splits a header line so that each role keyword gets its own
// cell. A word is merged into the previous word cell when the merged text
// is a keyword ("Cognome Nome") or when neither part is one ("Cognome e").
func joinKeywords(tokens []string, rules []ColumnRule) classificadomain.RawRow {
	var row classificadomain.RawRow
	prevWord := false
	for _, tok := range tokens {
		word := isWord(tok)
		if word && prevWord {
			prev := row[len(row)-1]
			merged := prev + " " + tok
			_, mergedKeyword := matchRule(rules, merged)
			_, prevKeyword := matchRule(rules, prev)
			_, tokKeyword := matchRule(rules, tok)
			if mergedKeyword || (!prevKeyword && !tokKeyword) {
				row[len(row)-1] = merged
				continue
			}
		}
		row = append(row, tok)
		prevWord = word
	}
	return row
}

func isWord(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) && r != '\'' && r != '-' && r != '.' {
			return false
		}
	}
	return s != ""
}

// decodeText returns data as UTF-8, reading invalid input as Windows-1252,
// which is what most legacy federation exports use.
func decodeText(data []byte) string {
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	if utf8.Valid(data) {
		return string(data)
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return string(data)
	}
	return string(decoded)
}

// appendRow trims every cell and drops the row when all cells are empty.
// Positions of empty cells are kept so column indices stay aligned.
func appendRow(rows []classificadomain.RawRow, row classificadomain.RawRow) []classificadomain.RawRow {
	for i := range row {
		row[i] = strings.TrimSpace(row[i])
	}
	if row.NonEmpty() == 0 {
		return rows
	}
	return append(rows, row)
}

func requireTabular(rows []classificadomain.RawRow) ([]classificadomain.RawRow, error) {
	for _, row := range rows {
		if row.NonEmpty() >= 2 {
			return rows, nil
		}
	}
	return nil, ErrNoTabularDataFound
}

// Tokenize picks the HTML or plain-text tokenizer by looking for table
// markup in the input.
func Tokenize(data []byte) ([]classificadomain.RawRow, error) {
	if looksLikeMarkup(data) {
		return HTMLTokenizer{}.Tokenize(data)
	}
	return TextTokenizer{}.Tokenize(data)
}
