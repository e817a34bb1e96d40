package classificamigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating players, tournaments and tournament results tables...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS players (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					first_name VARCHAR(100) NOT NULL,
					last_name VARCHAR(100) NOT NULL,
					lifetime_pins BIGINT NOT NULL DEFAULT 0,
					lifetime_games INTEGER NOT NULL DEFAULT 0,
					current_average NUMERIC(6,2) NOT NULL DEFAULT 0,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
				CREATE INDEX IF NOT EXISTS idx_players_last_name ON players(last_name);
			`); err != nil {
				return fmt.Errorf("failed to create players table: %w", err)
			}

			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS tournaments (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					name VARCHAR(200) NOT NULL DEFAULT '',
					start_date DATE,
					source_url TEXT,
					imported_at TIMESTAMPTZ,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
			`); err != nil {
				return fmt.Errorf("failed to create tournaments table: %w", err)
			}

			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS tournament_results (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					tournament_id UUID NOT NULL REFERENCES tournaments(id) ON DELETE CASCADE,
					player_id UUID NOT NULL REFERENCES players(id),
					rank INTEGER NOT NULL,
					total_pins INTEGER NOT NULL,
					games_played INTEGER NOT NULL,
					team_total INTEGER,
					division VARCHAR(100),
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					CONSTRAINT uq_tournament_results_player UNIQUE (tournament_id, player_id)
				);
				CREATE INDEX IF NOT EXISTS idx_tournament_results_player ON tournament_results(player_id);
			`); err != nil {
				return fmt.Errorf("failed to create tournament_results table: %w", err)
			}

			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS tournament_result_games (
					result_id UUID NOT NULL REFERENCES tournament_results(id) ON DELETE CASCADE,
					game_number INTEGER NOT NULL,
					score INTEGER NOT NULL,
					PRIMARY KEY (result_id, game_number)
				);
			`); err != nil {
				return fmt.Errorf("failed to create tournament_result_games table: %w", err)
			}

			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping classifica tables...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				DROP TABLE IF EXISTS tournament_result_games;
				DROP TABLE IF EXISTS tournament_results;
				DROP TABLE IF EXISTS tournaments;
				DROP TABLE IF EXISTS players;
			`); err != nil {
				return fmt.Errorf("failed to drop classifica tables: %w", err)
			}
			return nil
		})
	})
}
