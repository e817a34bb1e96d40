// Package classificadomain defines the values that flow through the results
// import pipeline, from tokenized rows to committed records.
package classificadomain

import (
	"strings"
	"time"
)

// RawRow is one tokenized row of trimmed cells.
type RawRow []string

// NonEmpty returns the number of cells with text.
func (r RawRow) NonEmpty() int {
	n := 0
	for _, c := range r {
		if c != "" {
			n++
		}
	}
	return n
}

// Text joins the non-empty cells with single spaces.
func (r RawRow) Text() string {
	parts := make([]string, 0, len(r))
	for _, c := range r {
		if c != "" {
			parts = append(parts, c)
		}
	}
	return strings.Join(parts, " ")
}

// Cell returns the cell at i, or "" when i is out of range or unset.
func (r RawRow) Cell(i int) string {
	if i < 0 || i >= len(r) {
		return ""
	}
	return r[i]
}

// Role is the semantic meaning of a column.
type Role string

const (
	RoleRank      Role = "rank"
	RoleName      Role = "name"
	RoleGame      Role = "game"
	RoleTotal     Role = "total"
	RoleAverage   Role = "average"
	RoleTeamTotal Role = "team_total"
)

// NoColumn marks a role that was not inferred.
const NoColumn = -1

// ColumnMapping assigns column indices to roles. It is built once per
// source and never modified afterwards.
type ColumnMapping struct {
	Rank      int   `json:"rank"`
	Name      int   `json:"name"`
	Games     []int `json:"games"`
	Total     int   `json:"total"`
	Average   int   `json:"average"`
	TeamTotal int   `json:"team_total"`
	// HeaderRow is the index of the row that completed the mapping, or
	// NoColumn when no header row was recognized.
	HeaderRow int `json:"header_row"`
}

// NewColumnMapping returns a mapping with every role unset.
func NewColumnMapping() ColumnMapping {
	return ColumnMapping{
		Rank:      NoColumn,
		Name:      NoColumn,
		Total:     NoColumn,
		Average:   NoColumn,
		TeamTotal: NoColumn,
		HeaderRow: NoColumn,
	}
}

// Empty reports whether no role was inferred at all.
func (m ColumnMapping) Empty() bool {
	return m.Rank == NoColumn && m.Name == NoColumn && len(m.Games) == 0 &&
		m.Total == NoColumn && m.Average == NoColumn && m.TeamTotal == NoColumn
}

// Has reports whether role resolved to at least one column.
func (m ColumnMapping) Has(role Role) bool {
	switch role {
	case RoleRank:
		return m.Rank != NoColumn
	case RoleName:
		return m.Name != NoColumn
	case RoleGame:
		return len(m.Games) > 0
	case RoleTotal:
		return m.Total != NoColumn
	case RoleAverage:
		return m.Average != NoColumn
	case RoleTeamTotal:
		return m.TeamTotal != NoColumn
	}
	return false
}

// ExtractedResult is one athlete line recovered from a classifica.
type ExtractedResult struct {
	Rank          int     `json:"rank"`
	AthleteName   string  `json:"athlete_name"`
	TotalPins     int     `json:"total_pins"`
	ScratchTotal  int     `json:"scratch_total"`
	GamesPlayed   int     `json:"games_played"`
	PerGameScores []int   `json:"per_game_scores"`
	Average       float64 `json:"average"`
	Division      *string `json:"division,omitempty"`
	TeamTotal     *int    `json:"team_total,omitempty"`
	// TeamTotalInferred is set when TeamTotal came from the proportional
	// margin guess instead of a labelled column. Such values need review.
	TeamTotalInferred bool `json:"team_total_inferred,omitempty"`
	SourceRow         int  `json:"source_row"`
}

// Tier is the confidence band of a name match.
type Tier string

const (
	TierAutoAccept Tier = "auto_accept"
	TierReview     Tier = "review"
	TierReject     Tier = "reject"
	TierManual     Tier = "manual"
)

// PlayerSuggestion is a below-threshold match offered to a reviewer.
type PlayerSuggestion struct {
	PlayerID    string  `json:"player_id"`
	DisplayName string  `json:"display_name"`
	Distance    float64 `json:"distance"`
}

// MatchCandidate pairs an extracted result with its registry resolution.
type MatchCandidate struct {
	Result             ExtractedResult   `json:"result"`
	PlayerID           *string           `json:"player_id"`
	MatchedDisplayName *string           `json:"matched_display_name"`
	IsMatched          bool              `json:"is_matched"`
	Distance           float64           `json:"distance"`
	Tier               Tier              `json:"tier"`
	Suggestion         *PlayerSuggestion `json:"suggestion,omitempty"`
	Overridden         bool              `json:"overridden,omitempty"`
}

// Player is a registry entry.
type Player struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// DisplayName renders the player as "Surname Forename".
func (p Player) DisplayName() string {
	return strings.TrimSpace(p.LastName + " " + p.FirstName)
}

// ResultRecord is the committed form of a matched result.
type ResultRecord struct {
	TournamentID  string  `json:"tournament_id"`
	PlayerID      string  `json:"player_id"`
	Rank          int     `json:"rank"`
	TotalPins     int     `json:"total_pins"`
	GamesPlayed   int     `json:"games_played"`
	PerGameScores []int   `json:"per_game_scores"`
	TeamTotal     *int    `json:"team_total,omitempty"`
	Division      *string `json:"division,omitempty"`
}

// Source identifies where a classifica comes from. Exactly one of URL,
// Text or Content is set; FileName selects a spreadsheet tokenizer for
// Content.
type Source struct {
	URL      string `json:"url,omitempty"`
	Text     string `json:"text,omitempty"`
	FileName string `json:"file_name,omitempty"`
	Content  []byte `json:"content,omitempty"`
}

// Describe returns a short label for logs and errors.
func (s Source) Describe() string {
	switch {
	case s.URL != "":
		return s.URL
	case s.FileName != "":
		return s.FileName
	case s.Text != "":
		return "pasted text"
	default:
		return "upload"
	}
}

// ParsedClassifica is the output of the consolidated parser.
type ParsedClassifica struct {
	TournamentName string            `json:"tournament_name"`
	StartDate      *time.Time        `json:"start_date,omitempty"`
	Mapping        ColumnMapping     `json:"mapping"`
	Results        []ExtractedResult `json:"results"`
	Warnings       []string          `json:"warnings,omitempty"`
}

// PreviewResult is returned by the preview operation.
type PreviewResult struct {
	TournamentName string           `json:"tournament_name"`
	StartDate      *time.Time       `json:"start_date,omitempty"`
	Mapping        ColumnMapping    `json:"mapping"`
	Candidates     []MatchCandidate `json:"candidates"`
	Unmatched      []string         `json:"unmatched"`
	NeedsReview    []string         `json:"needs_review"`
	Warnings       []string         `json:"warnings,omitempty"`
}

// CommitResult is returned by the commit operation.
type CommitResult struct {
	TournamentID     string   `json:"tournament_id"`
	Saved            int      `json:"saved"`
	Unmatched        []string `json:"unmatched"`
	Duplicates       []string `json:"duplicates,omitempty"`
	InvalidOverrides []string `json:"invalid_overrides,omitempty"`
}
