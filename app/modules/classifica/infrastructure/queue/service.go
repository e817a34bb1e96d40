package classificaqueue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Black-And-White-Club/pinfall-import/config"
	"github.com/Black-And-White-Club/pinfall-import/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/uptrace/bun"
)

// ErrJobNotFound is returned when no commit job has the requested id.
var ErrJobNotFound = errors.New("job not found")

// Metrics is the subset of the import metrics the queue records.
type Metrics interface {
	RecordOperationAttempt(ctx context.Context, operation, service string)
	RecordOperationSuccess(ctx context.Context, operation, service string)
	RecordOperationFailure(ctx context.Context, operation, service string)
	RecordOperationDuration(ctx context.Context, operation, service string, duration time.Duration)
}

// QueueService defines the contract for asynchronous commits.
type QueueService interface {
	// EnqueueCommit schedules a commit and returns the job id.
	EnqueueCommit(ctx context.Context, job CommitJob) (int64, error)
	// GetJob returns the state of a commit job.
	GetJob(ctx context.Context, id int64) (*JobInfo, error)
	// HealthCheck verifies the queue service is healthy
	HealthCheck(ctx context.Context) error
	// Start starts the queue service
	Start(ctx context.Context) error
	// Stop stops the queue service
	Stop(ctx context.Context) error
}

// Ensure Service implements QueueService
var _ QueueService = (*Service)(nil)

// Service runs commit jobs on River.
type Service struct {
	client  *river.Client[pgx.Tx]
	pool    *pgxpool.Pool
	logger  *slog.Logger
	db      *bun.DB
	metrics Metrics
}

// NewService creates a River client with the commit worker registered.
// River's own tables are migrated on startup.
func NewService(ctx context.Context, bunDB *bun.DB, logger *slog.Logger, dsn string, cfg config.QueueConfig, metrics Metrics, committer Committer) (*Service, error) {
	if metrics == nil {
		metrics = observability.NewNoop()
	}
	ctxLogger := logger.With(
		slog.String("operation", "new_classifica_queue_service"),
		slog.String("component", "river_queue"),
	)

	start := time.Now()
	metrics.RecordOperationAttempt(ctx, "initialize_service", "river")

	ctxLogger.Info("Initializing classifica queue service")

	// River requires pgx, not database/sql
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		metrics.RecordOperationFailure(ctx, "initialize_service", "river")
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		metrics.RecordOperationFailure(ctx, "initialize_service", "river")
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		metrics.RecordOperationFailure(ctx, "initialize_service", "river")
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		metrics.RecordOperationFailure(ctx, "initialize_service", "river")
		return nil, err
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, NewCommitWorker(committer, ctxLogger))

	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			QueueName: {MaxWorkers: cfg.MaxWorkers},
		},
		Workers:     workers,
		MaxAttempts: cfg.MaxAttempts,
		Logger:      logger,
	})
	if err != nil {
		pool.Close()
		ctxLogger.Error("Failed to create River client", observability.ErrorAttr(err))
		metrics.RecordOperationFailure(ctx, "initialize_service", "river")
		return nil, fmt.Errorf("failed to create River client: %w", err)
	}

	metrics.RecordOperationSuccess(ctx, "initialize_service", "river")
	metrics.RecordOperationDuration(ctx, "initialize_service", "river", time.Since(start))

	ctxLogger.Info("Classifica queue service initialized successfully")
	return &Service{
		client:  riverClient,
		pool:    pool,
		logger:  ctxLogger,
		db:      bunDB,
		metrics: metrics,
	}, nil
}

// Migrate brings River's schema up to date.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		return fmt.Errorf("failed to create River migrator: %w", err)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, &rivermigrate.MigrateOpts{}); err != nil {
		return fmt.Errorf("failed to run River migrations: %w", err)
	}
	return nil
}

// Start starts the River queue service
func (s *Service) Start(ctx context.Context) error {
	s.metrics.RecordOperationAttempt(ctx, "start_service", "river")
	if err := s.client.Start(ctx); err != nil {
		s.logger.Error("Failed to start River client", observability.ErrorAttr(err))
		s.metrics.RecordOperationFailure(ctx, "start_service", "river")
		return fmt.Errorf("failed to start River client: %w", err)
	}
	s.metrics.RecordOperationSuccess(ctx, "start_service", "river")
	s.logger.Info("Classifica queue service started")
	return nil
}

// Stop waits for running jobs and closes the pool.
func (s *Service) Stop(ctx context.Context) error {
	s.metrics.RecordOperationAttempt(ctx, "stop_service", "river")
	defer s.pool.Close()

	if err := s.client.Stop(ctx); err != nil {
		s.logger.Error("Failed to stop River client", observability.ErrorAttr(err))
		s.metrics.RecordOperationFailure(ctx, "stop_service", "river")
		return fmt.Errorf("failed to stop River client: %w", err)
	}
	s.metrics.RecordOperationSuccess(ctx, "stop_service", "river")
	s.logger.Info("Classifica queue service stopped")
	return nil
}

// EnqueueCommit inserts a commit job.
func (s *Service) EnqueueCommit(ctx context.Context, job CommitJob) (int64, error) {
	start := time.Now()
	s.metrics.RecordOperationAttempt(ctx, "enqueue_commit", "river")

	res, err := s.client.Insert(ctx, job, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to enqueue commit job",
			observability.CorrelationAttr(ctx),
			slog.String("tournament_id", job.TournamentID),
			observability.ErrorAttr(err),
		)
		s.metrics.RecordOperationFailure(ctx, "enqueue_commit", "river")
		return 0, fmt.Errorf("failed to enqueue commit job: %w", err)
	}

	s.metrics.RecordOperationSuccess(ctx, "enqueue_commit", "river")
	s.metrics.RecordOperationDuration(ctx, "enqueue_commit", "river", time.Since(start))
	s.logger.InfoContext(ctx, "Commit job enqueued",
		observability.CorrelationAttr(ctx),
		slog.String("tournament_id", job.TournamentID),
		slog.Int64("job_id", res.Job.ID),
	)
	return res.Job.ID, nil
}

// GetJob reads a commit job straight from river_job.
func (s *Service) GetJob(ctx context.Context, id int64) (*JobInfo, error) {
	type riverJobRow struct {
		ID          int64             `bun:"id"`
		Kind        string            `bun:"kind"`
		State       string            `bun:"state"`
		Args        map[string]any    `bun:"args,type:jsonb"`
		Errors      []riverAttemptErr `bun:"errors,type:jsonb"`
		CreatedAt   time.Time         `bun:"created_at"`
		FinalizedAt *time.Time        `bun:"finalized_at"`
		Attempt     int16             `bun:"attempt"`
		MaxAttempts int16             `bun:"max_attempts"`
	}

	var row riverJobRow
	err := s.db.NewSelect().
		Table("river_job").
		Column("id", "kind", "state", "args", "errors", "created_at", "finalized_at", "attempt", "max_attempts").
		Where("id = ?", id).
		Where("kind = ?", CommitJob{}.Kind()).
		Scan(ctx, &row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to query commit job: %w", err)
	}

	info := &JobInfo{
		ID:          row.ID,
		Kind:        row.Kind,
		State:       row.State,
		CreatedAt:   row.CreatedAt.Format(time.RFC3339),
		Attempt:     int(row.Attempt),
		MaxAttempts: int(row.MaxAttempts),
	}
	if tid, ok := row.Args["tournament_id"].(string); ok {
		info.TournamentID = tid
	}
	if row.FinalizedAt != nil {
		info.FinalizedAt = row.FinalizedAt.Format(time.RFC3339)
	}
	for _, e := range row.Errors {
		info.Errors = append(info.Errors, e.Error)
	}
	return info, nil
}

type riverAttemptErr struct {
	Attempt int    `json:"attempt"`
	Error   string `json:"error"`
}

// HealthCheck verifies the queue service is healthy
func (s *Service) HealthCheck(ctx context.Context) error {
	if s.client == nil {
		return fmt.Errorf("river client is nil")
	}
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("queue service health check failed: %w", err)
	}
	return nil
}
