package classificadb

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Repository defines the contract for registry and tournament persistence.
// Every method takes an optional bun.IDB so callers can run it inside a
// transaction; nil uses the repository's own connection.
type Repository interface {
	// ListPlayers returns the whole registry ordered by id.
	ListPlayers(ctx context.Context, db bun.IDB) ([]Player, error)

	// CreateTournament inserts a tournament.
	CreateTournament(ctx context.Context, db bun.IDB, tournament *Tournament) error

	// GetTournament retrieves a tournament by id.
	GetTournament(ctx context.Context, db bun.IDB, tournamentID uuid.UUID) (*Tournament, error)

	// LockTournament selects the tournament FOR UPDATE, waiting at most
	// lockTimeout. It must run inside a transaction.
	LockTournament(ctx context.Context, db bun.IDB, tournamentID uuid.UUID, lockTimeout time.Duration) (*Tournament, error)

	// MarkImported records the source and import time, and fills the
	// tournament name and start date when they are still empty.
	MarkImported(ctx context.Context, db bun.IDB, tournament *Tournament) error

	// DeleteResults removes every result of a tournament (game rows
	// cascade) and returns the ids of the players that had one.
	DeleteResults(ctx context.Context, db bun.IDB, tournamentID uuid.UUID) ([]uuid.UUID, error)

	// InsertResults stores results and their game rows.
	InsertResults(ctx context.Context, db bun.IDB, results []TournamentResult) error

	// RecomputePlayerAggregates rebuilds lifetime pins, lifetime games and
	// current average from all of each player's results.
	RecomputePlayerAggregates(ctx context.Context, db bun.IDB, playerIDs []uuid.UUID) error

	// GetResults returns a tournament's results with games, by rank.
	GetResults(ctx context.Context, db bun.IDB, tournamentID uuid.UUID) ([]TournamentResult, error)
}
