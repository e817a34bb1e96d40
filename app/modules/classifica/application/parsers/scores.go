package parsers

import (
	"math"
	"slices"
	"strings"
	"unicode"

	classificadomain "github.com/Black-And-White-Club/pinfall-import/app/modules/classifica/domain"
)

// ExtractOptions holds the score thresholds.
type ExtractOptions struct {
	MinScore            int
	MaxScore            int
	LeadingNoiseCeiling int
	LeadingNoiseAnchor  int
	TeamTotalFloor      int
	TeamTotalMargin     float64
	MinDataCells        int
	Rules               []ColumnRule
}

// rankState carries rank inference across rows of one division.
type rankState struct {
	division string
	last     int
	seen     bool
	emitted  int
}

// ExtractResults turns tagged rows into results. Rows without a name or
// without any score candidate are skipped.
func ExtractResults(rows []TaggedRow, m classificadomain.ColumnMapping, opts ExtractOptions) []classificadomain.ExtractedResult {
	var (
		out   []classificadomain.ExtractedResult
		ranks rankState
	)

	for _, tr := range rows {
		if tr.Heading || tr.Index <= m.HeaderRow {
			continue
		}
		row := tr.Row
		if row.NonEmpty() < opts.MinDataCells || isHeaderRow(opts.Rules, row) {
			continue
		}

		nameIdx := resolveName(row, m)
		if nameIdx == classificadomain.NoColumn {
			continue
		}

		division := ""
		if tr.Division != nil {
			division = *tr.Division
		}
		if division != ranks.division {
			ranks = rankState{division: division}
		}

		rankIdx := m.Rank
		if rankIdx == classificadomain.NoColumn && nameIdx != 0 {
			rankIdx = 0
		}
		rank, rankFound := parseRank(row.Cell(rankIdx))
		if !rankFound {
			rankIdx = classificadomain.NoColumn
		}

		skip := []int{nameIdx, rankIdx, m.Total, m.Average, m.TeamTotal}
		scores := scoreCandidates(row, m.Games, skip, opts)
		scores = stripLeadingNoise(scores, opts.LeadingNoiseCeiling, opts.LeadingNoiseAnchor)
		if len(scores) == 0 {
			continue
		}

		switch {
		case rankFound:
			ranks.last, ranks.seen = rank, true
		case ranks.seen:
			rank = ranks.last
		default:
			rank = ranks.emitted + 1
		}
		ranks.emitted++

		res := classificadomain.ExtractedResult{
			Rank:          rank,
			AthleteName:   strings.TrimSpace(row[nameIdx]),
			PerGameScores: scores,
			GamesPlayed:   len(scores),
			Division:      tr.Division,
			SourceRow:     tr.Index,
		}
		res.ScratchTotal = sum(scores)
		res.TotalPins = res.ScratchTotal
		if declared, ok := parseTotal(row.Cell(m.Total)); ok && declared >= res.ScratchTotal {
			res.TotalPins = declared
		}
		res.Average = averageOf(res.ScratchTotal, res.GamesPlayed, row.Cell(m.Average))
		res.TeamTotal, res.TeamTotalInferred = teamTotal(row, m, res.ScratchTotal, []int{nameIdx, rankIdx, m.Total, m.Average}, opts)

		out = append(out, res)
	}

	return out
}

// resolveName returns the name column for row: the mapped one when it
// holds a usable name, otherwise the first name-like cell.
func resolveName(row classificadomain.RawRow, m classificadomain.ColumnMapping) int {
	if cell := row.Cell(m.Name); cell != "" && hasLetter(cell) && !isNumeric(cell) {
		return m.Name
	}
	for i, cell := range row {
		if isNameLike(cell) {
			return i
		}
	}
	return classificadomain.NoColumn
}

// scoreCandidates collects integer cells within the score range, from the
// mapped game columns when there are any, otherwise from the whole row.
// Decimal cells are averages and never qualify.
func scoreCandidates(row classificadomain.RawRow, games []int, skip []int, opts ExtractOptions) []int {
	var scores []int
	accept := func(cell string) {
		n, ok := parseInteger(cell)
		if ok && n >= opts.MinScore && n <= opts.MaxScore {
			scores = append(scores, n)
		}
	}

	if len(games) > 0 {
		for _, idx := range games {
			accept(row.Cell(idx))
		}
		return scores
	}

	for i, cell := range row {
		if slices.Contains(skip, i) {
			continue
		}
		accept(cell)
	}
	return scores
}

// stripLeadingNoise drops leading values below ceiling while a later value
// exceeds anchor. Handicaps and seeds sit in front of real game scores and
// look like very low games. Applying it twice changes nothing.
func stripLeadingNoise(scores []int, ceiling, anchor int) []int {
	for len(scores) >= 2 && scores[0] < ceiling && slices.ContainsFunc(scores[1:], func(s int) bool { return s > anchor }) {
		scores = scores[1:]
	}
	return scores
}

func averageOf(scratch, games int, declared string) float64 {
	if games > 0 {
		return math.Round(float64(scratch)/float64(games)*100) / 100
	}
	if avg, ok := parseDecimal(declared); ok {
		return avg
	}
	return 0
}

// teamTotal reads the mapped team total column. Without one it takes the
// largest number above both the individual total and the floor, accepted
// only when it exceeds the individual total by the margin. The guessed
// value is reported as inferred.
func teamTotal(row classificadomain.RawRow, m classificadomain.ColumnMapping, individual int, skip []int, opts ExtractOptions) (*int, bool) {
	if m.TeamTotal != classificadomain.NoColumn {
		if v, ok := parseTotal(row.Cell(m.TeamTotal)); ok {
			return &v, false
		}
		return nil, false
	}

	best := 0
	for i, cell := range row {
		if slices.Contains(skip, i) {
			continue
		}
		v, ok := parseTotal(cell)
		if !ok || v <= individual || v <= opts.TeamTotalFloor {
			continue
		}
		best = max(best, v)
	}

	if best == 0 || float64(best) <= float64(individual)*(1+opts.TeamTotalMargin) {
		return nil, false
	}
	return &best, true
}

func sum(values []int) int {
	total := 0
	for _, v := range values {
		total += v
	}
	return total
}

func hasLetter(s string) bool {
	return strings.IndexFunc(s, unicode.IsLetter) >= 0
}
