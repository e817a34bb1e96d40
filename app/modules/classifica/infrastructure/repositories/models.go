package classificadb

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Player is a registry entry with its lifetime aggregates.
type Player struct {
	bun.BaseModel `bun:"table:players,alias:p"`

	ID             uuid.UUID `bun:"id,pk,type:uuid"`
	FirstName      string    `bun:"first_name,notnull"`
	LastName       string    `bun:"last_name,notnull"`
	LifetimePins   int64     `bun:"lifetime_pins,notnull,default:0"`
	LifetimeGames  int       `bun:"lifetime_games,notnull,default:0"`
	CurrentAverage float64   `bun:"current_average,notnull,default:0"`
	CreatedAt      time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt      time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// Tournament is the target of an import.
type Tournament struct {
	bun.BaseModel `bun:"table:tournaments,alias:t"`

	ID         uuid.UUID  `bun:"id,pk,type:uuid"`
	Name       string     `bun:"name,notnull"`
	StartDate  *time.Time `bun:"start_date,type:date"`
	SourceURL  *string    `bun:"source_url"`
	ImportedAt *time.Time `bun:"imported_at"`
	CreatedAt  time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt  time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// TournamentResult is one committed athlete line. (tournament_id,
// player_id) is unique.
type TournamentResult struct {
	bun.BaseModel `bun:"table:tournament_results,alias:tr"`

	ID           uuid.UUID `bun:"id,pk,type:uuid"`
	TournamentID uuid.UUID `bun:"tournament_id,type:uuid,notnull"`
	PlayerID     uuid.UUID `bun:"player_id,type:uuid,notnull"`
	Rank         int       `bun:"rank,notnull"`
	TotalPins    int       `bun:"total_pins,notnull"`
	GamesPlayed  int       `bun:"games_played,notnull"`
	TeamTotal    *int      `bun:"team_total"`
	Division     *string   `bun:"division"`
	CreatedAt    time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`

	Games []TournamentResultGame `bun:"rel:has-many,join:id=result_id"`
}

// TournamentResultGame is a single game score of a result.
type TournamentResultGame struct {
	bun.BaseModel `bun:"table:tournament_result_games,alias:trg"`

	ResultID   uuid.UUID `bun:"result_id,pk,type:uuid"`
	GameNumber int       `bun:"game_number,pk"`
	Score      int       `bun:"score,notnull"`
}
