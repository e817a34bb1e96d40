package classificadb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Impl implements the Repository interface using Bun ORM.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new classifica repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

// resolveDB returns the provided db handle, falling back to the repository's
// default connection if db is nil.
func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

// ListPlayers returns the whole registry ordered by id.
func (r *Impl) ListPlayers(ctx context.Context, db bun.IDB) ([]Player, error) {
	db = r.resolveDB(db)
	var players []Player
	if err := db.NewSelect().Model(&players).Order("id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	return players, nil
}

// CreateTournament inserts a tournament.
func (r *Impl) CreateTournament(ctx context.Context, db bun.IDB, tournament *Tournament) error {
	db = r.resolveDB(db)
	if tournament.ID == uuid.Nil {
		tournament.ID = uuid.New()
	}
	if _, err := db.NewInsert().Model(tournament).Exec(ctx); err != nil {
		return fmt.Errorf("failed to create tournament: %w", err)
	}
	return nil
}

// GetTournament retrieves a tournament by id.
func (r *Impl) GetTournament(ctx context.Context, db bun.IDB, tournamentID uuid.UUID) (*Tournament, error) {
	db = r.resolveDB(db)
	tournament := new(Tournament)
	err := db.NewSelect().
		Model(tournament).
		Where("id = ?", tournamentID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get tournament: %w", err)
	}
	return tournament, nil
}

// LockTournament selects the tournament FOR UPDATE. Concurrent commits to
// the same tournament queue on this lock; one that waits longer than
// lockTimeout fails with ErrCommitConflict.
func (r *Impl) LockTournament(ctx context.Context, db bun.IDB, tournamentID uuid.UUID, lockTimeout time.Duration) (*Tournament, error) {
	db = r.resolveDB(db)
	if lockTimeout > 0 {
		if _, err := db.ExecContext(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", lockTimeout.Milliseconds())); err != nil {
			return nil, fmt.Errorf("failed to set lock timeout: %w", err)
		}
	}

	tournament := new(Tournament)
	err := db.NewSelect().
		Model(tournament).
		Where("id = ?", tournamentID).
		For("UPDATE").
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to lock tournament: %w", mapConflict(err))
	}
	return tournament, nil
}

// MarkImported records the source and import time.
func (r *Impl) MarkImported(ctx context.Context, db bun.IDB, tournament *Tournament) error {
	db = r.resolveDB(db)
	now := time.Now()
	result, err := db.NewUpdate().
		Model((*Tournament)(nil)).
		Set("name = CASE WHEN name = '' THEN ? ELSE name END", tournament.Name).
		Set("start_date = COALESCE(start_date, ?)", tournament.StartDate).
		Set("source_url = ?", tournament.SourceURL).
		Set("imported_at = ?", now).
		Set("updated_at = ?", now).
		Where("id = ?", tournament.ID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to mark tournament imported: %w", mapConflict(err))
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	tournament.ImportedAt = &now
	return nil
}

// DeleteResults removes every result of a tournament.
func (r *Impl) DeleteResults(ctx context.Context, db bun.IDB, tournamentID uuid.UUID) ([]uuid.UUID, error) {
	db = r.resolveDB(db)
	var playerIDs []uuid.UUID
	err := db.NewDelete().
		Model((*TournamentResult)(nil)).
		Where("tournament_id = ?", tournamentID).
		Returning("player_id").
		Scan(ctx, &playerIDs)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to delete tournament results: %w", mapConflict(err))
	}
	return playerIDs, nil
}

// InsertResults stores results and their game rows.
func (r *Impl) InsertResults(ctx context.Context, db bun.IDB, results []TournamentResult) error {
	if len(results) == 0 {
		return nil
	}
	db = r.resolveDB(db)

	var games []TournamentResultGame
	for i := range results {
		if results[i].ID == uuid.Nil {
			results[i].ID = uuid.New()
		}
		for j := range results[i].Games {
			results[i].Games[j].ResultID = results[i].ID
			games = append(games, results[i].Games[j])
		}
	}

	if _, err := db.NewInsert().Model(&results).Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert tournament results: %w", mapConflict(err))
	}
	if len(games) == 0 {
		return nil
	}
	if _, err := db.NewInsert().Model(&games).Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert result games: %w", mapConflict(err))
	}
	return nil
}

// RecomputePlayerAggregates rebuilds the aggregates from scratch for the
// given players, so earlier imports never leave stale increments behind.
func (r *Impl) RecomputePlayerAggregates(ctx context.Context, db bun.IDB, playerIDs []uuid.UUID) error {
	if len(playerIDs) == 0 {
		return nil
	}
	db = r.resolveDB(db)
	_, err := db.NewRaw(`
		UPDATE players AS p SET
			lifetime_pins = s.pins,
			lifetime_games = s.games,
			current_average = CASE WHEN s.games > 0 THEN ROUND(s.pins::numeric / s.games, 2) ELSE 0 END,
			updated_at = NOW()
		FROM (
			SELECT pl.id,
				COALESCE(SUM(r.total_pins), 0) AS pins,
				COALESCE(SUM(r.games_played), 0) AS games
			FROM players AS pl
			LEFT JOIN tournament_results AS r ON r.player_id = pl.id
			WHERE pl.id IN (?)
			GROUP BY pl.id
		) AS s
		WHERE p.id = s.id`, bun.In(playerIDs)).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to recompute player aggregates: %w", mapConflict(err))
	}
	return nil
}

// GetResults returns a tournament's results with games, by rank.
func (r *Impl) GetResults(ctx context.Context, db bun.IDB, tournamentID uuid.UUID) ([]TournamentResult, error) {
	db = r.resolveDB(db)
	var results []TournamentResult
	err := db.NewSelect().
		Model(&results).
		Relation("Games", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("trg.game_number ASC")
		}).
		Where("tr.tournament_id = ?", tournamentID).
		Order("tr.division ASC", "tr.rank ASC", "tr.player_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get tournament results: %w", err)
	}
	return results, nil
}
