package parsers

import (
	"errors"
	"regexp"
	"slices"

	classificadomain "github.com/Black-And-White-Club/pinfall-import/app/modules/classifica/domain"
	"github.com/Black-And-White-Club/pinfall-import/internal/textfold"
)

// ErrNoColumnsInferred means no header keyword was recognized. It is not
// fatal: every row then goes through the per-row fallbacks.
var ErrNoColumnsInferred = errors.New("no columns inferred")

// ColumnRule tags a header cell with a role when its folded text matches.
type ColumnRule struct {
	Role    classificadomain.Role
	Pattern *regexp.Regexp
}

// NewColumnRule compiles a rule. The pattern is matched against the cell
// lowercased, without diacritics and with single spaces.
func NewColumnRule(role classificadomain.Role, pattern string) ColumnRule {
	return ColumnRule{Role: role, Pattern: regexp.MustCompile(pattern)}
}

// DefaultColumnRules are evaluated in order; the first rule that matches a
// cell decides its role. Team total comes before total so "Tot. Squadra"
// is not read as an individual total.
var DefaultColumnRules = []ColumnRule{
	NewColumnRule(classificadomain.RoleTeamTotal, `^(tot(ale|al)?\.?\s*(squadra|sq\.?|team|equipe|mannschaft)|team\s*total|squadra\s*tot(ale)?\.?|mannschaftsergebnis)$`),
	NewColumnRule(classificadomain.RoleRank, `^(pos(iz(ione)?|ition)?\.?|cl(ass)?\.?|rank(ing)?|#|n\.?|nr\.?|no\.?|pl(c|ace|atz)?\.?|rang|piazzamento|puesto)$`),
	NewColumnRule(classificadomain.RoleName, `^(atlet[ai]|giocator[ei]|nominativo|nome|cognome( e)? nome|nome( e)? cognome|name|player|athlete|bowler|spieler(name)?|joueur|jugador|concorrente|tesserato)$`),
	NewColumnRule(classificadomain.RoleAverage, `^(media|med\.?|avg\.?|average|ave\.?|schnitt|moyenne|promedio)$`),
	NewColumnRule(classificadomain.RoleTotal, `^(tot(ale|al)?\.?( (birilli|scratch|pins))?|birilli|pins|pinfall|scratch|gesamt|somme)$`),
	NewColumnRule(classificadomain.RoleGame, `^(g|p|gara|partita|game|gm|spiel|partie|juego) ?\.? ?\d{1,2}$`),
}

// matchRule returns the role of the first rule that matches cell.
func matchRule(rules []ColumnRule, cell string) (classificadomain.Role, bool) {
	if cell == "" {
		return "", false
	}
	folded := textfold.Keyword(cell)
	for _, rule := range rules {
		if rule.Pattern.MatchString(folded) {
			return rule.Role, true
		}
	}
	return "", false
}

// ruleHits counts the cells of row that match any rule.
func ruleHits(rules []ColumnRule, row classificadomain.RawRow) int {
	hits := 0
	for _, cell := range row {
		if _, ok := matchRule(rules, cell); ok {
			hits++
		}
	}
	return hits
}

// isHeaderRow reports whether a row reads like a column header: at least
// two of its cells are role keywords. Headers repeated above each
// division are recognized the same way.
func isHeaderRow(rules []ColumnRule, row classificadomain.RawRow) bool {
	return ruleHits(rules, row) >= 2
}

// InferColumns scans the first maxRows rows for header keywords and
// assigns the first matching column to each role. It stops after the
// first row that yields both a rank and a name column.
func InferColumns(rows []classificadomain.RawRow, rules []ColumnRule, maxRows int) (classificadomain.ColumnMapping, error) {
	m := classificadomain.NewColumnMapping()

	limit := min(maxRows, len(rows))
	for i := 0; i < limit; i++ {
		row := rows[i]
		if !isHeaderRow(rules, row) {
			continue
		}
		if m.HeaderRow == classificadomain.NoColumn {
			m.HeaderRow = i
		}

		for j, cell := range row {
			role, ok := matchRule(rules, cell)
			if !ok {
				continue
			}
			assignRole(&m, role, j)
		}

		if m.Rank != classificadomain.NoColumn && m.Name != classificadomain.NoColumn {
			m.HeaderRow = i
			break
		}
	}

	if m.Empty() {
		return m, ErrNoColumnsInferred
	}
	return m, nil
}

func assignRole(m *classificadomain.ColumnMapping, role classificadomain.Role, idx int) {
	first := func(slot *int) {
		if *slot == classificadomain.NoColumn {
			*slot = idx
		}
	}

	switch role {
	case classificadomain.RoleRank:
		first(&m.Rank)
	case classificadomain.RoleName:
		first(&m.Name)
	case classificadomain.RoleTotal:
		first(&m.Total)
	case classificadomain.RoleAverage:
		first(&m.Average)
	case classificadomain.RoleTeamTotal:
		first(&m.TeamTotal)
	case classificadomain.RoleGame:
		if !slices.Contains(m.Games, idx) {
			m.Games = append(m.Games, idx)
			slices.Sort(m.Games)
		}
	}
}
