package classificaservice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	classificadomain "github.com/Black-And-White-Club/pinfall-import/app/modules/classifica/domain"
	classificadb "github.com/Black-And-White-Club/pinfall-import/app/modules/classifica/infrastructure/repositories"
	"github.com/Black-And-White-Club/pinfall-import/pkg/results"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// CreateTournament registers a tournament that imports can target.
func (s *ImportService) CreateTournament(ctx context.Context, req CreateTournamentRequest) (*TournamentInfo, error) {
	createTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[*TournamentInfo, error], error) {
		name := strings.TrimSpace(req.Name)
		if name == "" {
			return results.FailureResult[*TournamentInfo, error](fmt.Errorf("%w: tournament name is required", ErrInvalidRequest)), nil
		}
		tournament := &classificadb.Tournament{
			ID:        uuid.New(),
			Name:      name,
			StartDate: req.StartDate,
		}
		if err := s.repo.CreateTournament(ctx, db, tournament); err != nil {
			return results.OperationResult[*TournamentInfo, error]{}, fmt.Errorf("failed to create tournament: %w", err)
		}
		return results.SuccessResult[*TournamentInfo, error](toTournamentInfo(tournament)), nil
	}

	result, err := withTelemetry(s, ctx, "CreateTournament", req.Name, func(ctx context.Context) (results.OperationResult[*TournamentInfo, error], error) {
		return runInTx(s, ctx, createTx)
	})
	if err != nil {
		return nil, err
	}
	if result.IsFailure() {
		return nil, *result.Failure
	}
	return *result.Success, nil
}

// GetResults returns the committed results of a tournament ordered by
// division and rank.
func (s *ImportService) GetResults(ctx context.Context, tournamentID string) ([]classificadomain.ResultRecord, error) {
	getTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[[]classificadomain.ResultRecord, error], error) {
		return s.getResultsLogic(ctx, db, tournamentID)
	}

	result, err := withTelemetry(s, ctx, "GetResults", tournamentID, func(ctx context.Context) (results.OperationResult[[]classificadomain.ResultRecord, error], error) {
		return runInTx(s, ctx, getTx)
	})
	if err != nil {
		return nil, err
	}
	if result.IsFailure() {
		return nil, *result.Failure
	}
	return *result.Success, nil
}

func (s *ImportService) getResultsLogic(ctx context.Context, db bun.IDB, rawID string) (results.OperationResult[[]classificadomain.ResultRecord, error], error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return results.FailureResult[[]classificadomain.ResultRecord, error](
			fmt.Errorf("%w: invalid id %q", ErrTournamentNotFound, rawID)), nil
	}

	if _, err := s.repo.GetTournament(ctx, db, id); err != nil {
		if errors.Is(err, classificadb.ErrNotFound) {
			return results.FailureResult[[]classificadomain.ResultRecord, error](
				fmt.Errorf("%w: %s", ErrTournamentNotFound, id)), nil
		}
		return results.OperationResult[[]classificadomain.ResultRecord, error]{}, fmt.Errorf("failed to get tournament: %w", err)
	}

	rows, err := s.repo.GetResults(ctx, db, id)
	if err != nil {
		return results.OperationResult[[]classificadomain.ResultRecord, error]{}, fmt.Errorf("failed to get results: %w", err)
	}

	records := make([]classificadomain.ResultRecord, 0, len(rows))
	for _, row := range rows {
		scores := make([]int, 0, len(row.Games))
		for _, g := range row.Games {
			scores = append(scores, g.Score)
		}
		records = append(records, classificadomain.ResultRecord{
			TournamentID:  row.TournamentID.String(),
			PlayerID:      row.PlayerID.String(),
			Rank:          row.Rank,
			TotalPins:     row.TotalPins,
			GamesPlayed:   row.GamesPlayed,
			PerGameScores: scores,
			TeamTotal:     row.TeamTotal,
			Division:      row.Division,
		})
	}
	return results.SuccessResult[[]classificadomain.ResultRecord, error](records), nil
}

func toTournamentInfo(t *classificadb.Tournament) *TournamentInfo {
	return &TournamentInfo{
		ID:         t.ID.String(),
		Name:       t.Name,
		StartDate:  t.StartDate,
		SourceURL:  t.SourceURL,
		ImportedAt: t.ImportedAt,
	}
}
