package classificaqueue

import (
	"context"
	"log/slog"

	classificaservice "github.com/Black-And-White-Club/pinfall-import/app/modules/classifica/application"
	classificadomain "github.com/Black-And-White-Club/pinfall-import/app/modules/classifica/domain"
	"github.com/Black-And-White-Club/pinfall-import/internal/observability"
	"github.com/riverqueue/river"
)

// Committer is the part of the import service the worker needs.
type Committer interface {
	Commit(ctx context.Context, req classificaservice.CommitRequest) (*classificadomain.CommitResult, error)
}

// CommitWorker runs CommitJob. Conflicts, fetch failures and storage errors
// are returned so River retries them with backoff; errors that a retry
// cannot fix cancel the job.
type CommitWorker struct {
	river.WorkerDefaults[CommitJob]

	committer Committer
	logger    *slog.Logger
}

// NewCommitWorker creates a CommitWorker.
func NewCommitWorker(committer Committer, logger *slog.Logger) *CommitWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &CommitWorker{committer: committer, logger: logger}
}

// Work executes one attempt.
func (w *CommitWorker) Work(ctx context.Context, job *river.Job[CommitJob]) error {
	logger := w.logger.With(
		slog.Int64("job_id", job.ID),
		slog.Int("attempt", job.Attempt),
		slog.String("tournament_id", job.Args.TournamentID),
	)

	result, err := w.committer.Commit(ctx, classificaservice.CommitRequest{
		Source:       job.Args.Source,
		TournamentID: job.Args.TournamentID,
		Overrides:    job.Args.Overrides,
	})
	if err != nil {
		if permanent(err) {
			logger.WarnContext(ctx, "Commit job cancelled", observability.ErrorAttr(err))
			return river.JobCancel(err)
		}
		logger.ErrorContext(ctx, "Commit job failed, will retry", observability.ErrorAttr(err))
		return err
	}

	logger.InfoContext(ctx, "Commit job completed",
		slog.Int("saved", result.Saved),
		slog.Int("unmatched", len(result.Unmatched)),
	)
	return nil
}

func permanent(err error) bool {
	return classificaservice.IsPermanent(err)
}
