package classificaservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	classificadomain "github.com/Black-And-White-Club/pinfall-import/app/modules/classifica/domain"
	classificaevents "github.com/Black-And-White-Club/pinfall-import/app/modules/classifica/infrastructure/events"
	classificadb "github.com/Black-And-White-Club/pinfall-import/app/modules/classifica/infrastructure/repositories"
	"github.com/Black-And-White-Club/pinfall-import/internal/observability"
	"github.com/Black-And-White-Club/pinfall-import/pkg/results"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// commitPlan is everything decided before the transaction opens.
type commitPlan struct {
	records    []classificadomain.ResultRecord
	playerIDs  []uuid.UUID
	unmatched  []string
	duplicates []string
	invalid    []string
}

// Commit replaces the tournament's results with the matched rows of the
// source. The replacement is atomic: concurrent commits to the same
// tournament serialize on the tournament row, and a commit that cannot
// get the lock fails with ErrCommitConflict.
func (s *ImportService) Commit(ctx context.Context, req CommitRequest) (*classificadomain.CommitResult, error) {
	result, err := withTelemetry(s, ctx, "Commit", req.TournamentID, func(ctx context.Context) (results.OperationResult[*classificadomain.CommitResult, error], error) {
		return s.commitLogic(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	if result.IsFailure() {
		return nil, *result.Failure
	}
	return *result.Success, nil
}

func (s *ImportService) commitLogic(ctx context.Context, req CommitRequest) (results.OperationResult[*classificadomain.CommitResult, error], error) {
	tournamentID, err := uuid.Parse(req.TournamentID)
	if err != nil {
		return results.FailureResult[*classificadomain.CommitResult, error](
			fmt.Errorf("%w: invalid id %q", ErrTournamentNotFound, req.TournamentID)), nil
	}

	parsed, failure, err := s.parseSource(ctx, req.Source)
	if err != nil {
		return results.OperationResult[*classificadomain.CommitResult, error]{}, err
	}
	if failure != nil {
		return results.FailureResult[*classificadomain.CommitResult, error](failure), nil
	}

	resolver, err := s.loadResolver(ctx, nil)
	if err != nil {
		return results.OperationResult[*classificadomain.CommitResult, error]{}, err
	}
	candidates, invalid := resolver.ApplyOverrides(resolver.ResolveAll(parsed.Results), req.Overrides)
	s.recordTiers(ctx, candidates)

	plan, err := planCommit(tournamentID, candidates)
	if err != nil {
		return results.OperationResult[*classificadomain.CommitResult, error]{}, err
	}
	plan.invalid = invalid

	if s.commitCfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.commitCfg.Timeout)
		defer cancel()
	}

	result, err := runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (results.OperationResult[*classificadomain.CommitResult, error], error) {
		return s.commitTx(ctx, db, tournamentID, parsed, req.Source, plan)
	})
	if err != nil {
		if classificadb.IsConflict(err) {
			return results.FailureResult[*classificadomain.CommitResult, error](
				&ImportError{Code: ErrCommitConflict, Source: req.TournamentID, Err: err}), nil
		}
		return results.OperationResult[*classificadomain.CommitResult, error]{}, err
	}

	if result.IsSuccess() {
		if s.metrics != nil {
			s.metrics.RecordResultsSaved(ctx, len(plan.records))
		}
		s.publishImported(ctx, *result.Success, plan)
	}
	return result, nil
}

func (s *ImportService) commitTx(
	ctx context.Context,
	db bun.IDB,
	tournamentID uuid.UUID,
	parsed *classificadomain.ParsedClassifica,
	src classificadomain.Source,
	plan commitPlan,
) (results.OperationResult[*classificadomain.CommitResult, error], error) {
	tournament, err := s.repo.LockTournament(ctx, db, tournamentID, s.commitCfg.LockTimeout)
	if err != nil {
		if errors.Is(err, classificadb.ErrNotFound) {
			return results.FailureResult[*classificadomain.CommitResult, error](
				fmt.Errorf("%w: %s", ErrTournamentNotFound, tournamentID)), nil
		}
		return results.OperationResult[*classificadomain.CommitResult, error]{}, fmt.Errorf("failed to lock tournament: %w", err)
	}

	previous, err := s.repo.DeleteResults(ctx, db, tournamentID)
	if err != nil {
		return results.OperationResult[*classificadomain.CommitResult, error]{}, fmt.Errorf("failed to delete previous results: %w", err)
	}

	if err := s.repo.InsertResults(ctx, db, toResultModels(tournamentID, plan)); err != nil {
		return results.OperationResult[*classificadomain.CommitResult, error]{}, fmt.Errorf("failed to insert results: %w", err)
	}

	tournament.Name = parsed.TournamentName
	tournament.StartDate = parsed.StartDate
	tournament.SourceURL = nil
	if src.URL != "" {
		sourceURL := src.URL
		tournament.SourceURL = &sourceURL
	}
	if err := s.repo.MarkImported(ctx, db, tournament); err != nil {
		return results.OperationResult[*classificadomain.CommitResult, error]{}, fmt.Errorf("failed to mark tournament imported: %w", err)
	}

	if err := s.repo.RecomputePlayerAggregates(ctx, db, unionIDs(previous, plan.playerIDs)); err != nil {
		return results.OperationResult[*classificadomain.CommitResult, error]{}, fmt.Errorf("failed to recompute player aggregates: %w", err)
	}

	return results.SuccessResult[*classificadomain.CommitResult, error](&classificadomain.CommitResult{
		TournamentID:     tournamentID.String(),
		Saved:            len(plan.records),
		Unmatched:        plan.unmatched,
		Duplicates:       plan.duplicates,
		InvalidOverrides: plan.invalid,
	}), nil
}

// planCommit keeps matched candidates only. A player matched twice keeps
// the first row; later rows are reported as duplicates.
func planCommit(tournamentID uuid.UUID, candidates []classificadomain.MatchCandidate) (commitPlan, error) {
	plan := commitPlan{unmatched: []string{}}
	seen := make(map[uuid.UUID]bool)

	for _, c := range candidates {
		if !c.IsMatched || c.PlayerID == nil {
			plan.unmatched = append(plan.unmatched, c.Result.AthleteName)
			continue
		}
		playerID, err := uuid.Parse(*c.PlayerID)
		if err != nil {
			return commitPlan{}, fmt.Errorf("registry player id %q is not a uuid: %w", *c.PlayerID, err)
		}
		if seen[playerID] {
			plan.duplicates = append(plan.duplicates, c.Result.AthleteName)
			continue
		}
		seen[playerID] = true

		r := c.Result
		plan.playerIDs = append(plan.playerIDs, playerID)
		plan.records = append(plan.records, classificadomain.ResultRecord{
			TournamentID:  tournamentID.String(),
			PlayerID:      playerID.String(),
			Rank:          r.Rank,
			TotalPins:     r.TotalPins,
			GamesPlayed:   r.GamesPlayed,
			PerGameScores: append([]int(nil), r.PerGameScores...),
			TeamTotal:     r.TeamTotal,
			Division:      r.Division,
		})
	}
	return plan, nil
}

func toResultModels(tournamentID uuid.UUID, plan commitPlan) []classificadb.TournamentResult {
	rows := make([]classificadb.TournamentResult, 0, len(plan.records))
	for i, rec := range plan.records {
		row := classificadb.TournamentResult{
			TournamentID: tournamentID,
			PlayerID:     plan.playerIDs[i],
			Rank:         rec.Rank,
			TotalPins:    rec.TotalPins,
			GamesPlayed:  rec.GamesPlayed,
			TeamTotal:    rec.TeamTotal,
			Division:     rec.Division,
		}
		for n, score := range rec.PerGameScores {
			row.Games = append(row.Games, classificadb.TournamentResultGame{
				GameNumber: n + 1,
				Score:      score,
			})
		}
		rows = append(rows, row)
	}
	return rows
}

func unionIDs(a, b []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(a)+len(b))
	out := make([]uuid.UUID, 0, len(a)+len(b))
	for _, list := range [][]uuid.UUID{a, b} {
		for _, id := range list {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out
}

// publishImported is best effort: the commit already succeeded.
func (s *ImportService) publishImported(ctx context.Context, res *classificadomain.CommitResult, plan commitPlan) {
	if s.publisher == nil {
		return
	}
	playerIDs := make([]string, 0, len(plan.playerIDs))
	for _, id := range plan.playerIDs {
		playerIDs = append(playerIDs, id.String())
	}
	err := s.publisher.PublishResultsImported(ctx, classificaevents.ResultsImportedPayloadV1{
		TournamentID: res.TournamentID,
		Saved:        res.Saved,
		PlayerIDs:    playerIDs,
		Unmatched:    res.Unmatched,
		ImportedAt:   time.Now().UTC(),
	})
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to publish results imported event",
			observability.CorrelationAttr(ctx),
			slog.String("tournament_id", res.TournamentID),
			observability.ErrorAttr(err),
		)
	}
}
