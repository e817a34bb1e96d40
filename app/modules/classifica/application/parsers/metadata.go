package parsers

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	classificadomain "github.com/Black-And-White-Club/pinfall-import/app/modules/classifica/domain"
	"github.com/Black-And-White-Club/pinfall-import/internal/textfold"
	"github.com/PuerkitoBio/goquery"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

const maxTitleLength = 120

var (
	numericDate = regexp.MustCompile(`\b(\d{1,2})[/.-](\d{1,2})[/.-](\d{4})\b`)
	isoDate     = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	italianDate = regexp.MustCompile(`\b(\d{1,2})\s+(gennaio|febbraio|marzo|aprile|maggio|giugno|luglio|agosto|settembre|ottobre|novembre|dicembre)\s+(\d{4})\b`)

	italianMonths = map[string]time.Month{
		"gennaio": time.January, "febbraio": time.February, "marzo": time.March,
		"aprile": time.April, "maggio": time.May, "giugno": time.June,
		"luglio": time.July, "agosto": time.August, "settembre": time.September,
		"ottobre": time.October, "novembre": time.November, "dicembre": time.December,
	}
)

// Metadata is the best-effort tournament header information.
type Metadata struct {
	TournamentName string
	StartDate      *time.Time
}

// ExtractMetadata reads the tournament name and the first date it can find.
// For markup the name comes from the first h1, caption or title; for text
// it is the first single-cell line before the header or, without one,
// before the first multi-cell row.
func ExtractMetadata(data []byte, rows []classificadomain.RawRow, headerRow int, now time.Time) Metadata {
	var (
		name     string
		headings []string
		body     string
	)

	if looksLikeMarkup(data) {
		if doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data)); err == nil {
			for _, sel := range []string{"h1", "h2", "caption", "title"} {
				if text := textfold.CollapseSpaces(doc.Find(sel).First().Text()); text != "" && utf8.RuneCountInString(text) <= maxTitleLength {
					if name == "" {
						name = text
					}
					headings = append(headings, text)
				}
			}
			body = textfold.CollapseSpaces(doc.Find("body").Text())
		}
	}

	var lines []string
	for i, row := range rows {
		if headerRow != classificadomain.NoColumn && i >= headerRow {
			break
		}
		if headerRow == classificadomain.NoColumn && row.NonEmpty() >= 2 {
			break
		}
		if row.NonEmpty() == 1 {
			text := row.Text()
			lines = append(lines, text)
			if name == "" && utf8.RuneCountInString(text) <= maxTitleLength && !isNumeric(text) {
				name = text
			}
		}
	}
	headings = append(headings, lines...)
	if body == "" {
		body = strings.Join(append(lines, joinRows(rows, 20)...), " ")
	}

	meta := Metadata{TournamentName: name}
	if d, ok := findDate(body); ok {
		meta.StartDate = &d
	} else if d, ok := findRelativeDate(headings, now); ok {
		meta.StartDate = &d
	}
	return meta
}

func joinRows(rows []classificadomain.RawRow, limit int) []string {
	out := make([]string, 0, min(limit, len(rows)))
	for i := 0; i < len(rows) && i < limit; i++ {
		out = append(out, rows[i].Text())
	}
	return out
}

// findDate looks for day-first numeric dates, ISO dates and Italian
// written dates, returning the earliest match in the text.
func findDate(text string) (time.Time, bool) {
	folded := textfold.Keyword(text)

	type hit struct {
		pos int
		t   time.Time
	}
	var found []hit

	if m := numericDate.FindStringSubmatchIndex(folded); m != nil {
		d, _ := strconv.Atoi(folded[m[2]:m[3]])
		mo, _ := strconv.Atoi(folded[m[4]:m[5]])
		y, _ := strconv.Atoi(folded[m[6]:m[7]])
		if t, ok := makeDate(y, time.Month(mo), d); ok {
			found = append(found, hit{m[0], t})
		}
	}
	if m := isoDate.FindStringSubmatchIndex(folded); m != nil {
		y, _ := strconv.Atoi(folded[m[2]:m[3]])
		mo, _ := strconv.Atoi(folded[m[4]:m[5]])
		d, _ := strconv.Atoi(folded[m[6]:m[7]])
		if t, ok := makeDate(y, time.Month(mo), d); ok {
			found = append(found, hit{m[0], t})
		}
	}
	if m := italianDate.FindStringSubmatchIndex(folded); m != nil {
		d, _ := strconv.Atoi(folded[m[2]:m[3]])
		y, _ := strconv.Atoi(folded[m[6]:m[7]])
		if t, ok := makeDate(y, italianMonths[folded[m[4]:m[5]]], d); ok {
			found = append(found, hit{m[0], t})
		}
	}

	if len(found) == 0 {
		return time.Time{}, false
	}
	best := found[0]
	for _, h := range found[1:] {
		if h.pos < best.pos {
			best = h
		}
	}
	return best.t, true
}

func makeDate(y int, mo time.Month, d int) (time.Time, bool) {
	if y < 1980 || y > 2100 || mo < time.January || mo > time.December || d < 1 || d > 31 {
		return time.Time{}, false
	}
	t := time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
	if t.Day() != d {
		return time.Time{}, false
	}
	return t, true
}

// findRelativeDate runs the natural-language parser over heading lines
// only, for English pages that write "March 5th".
func findRelativeDate(lines []string, now time.Time) (time.Time, bool) {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)

	for _, line := range lines {
		r, err := w.Parse(line, now)
		if err != nil || r == nil {
			continue
		}
		t := r.Time
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
	}
	return time.Time{}, false
}
