package classificaservice

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Black-And-White-Club/pinfall-import/app/modules/classifica/application/matching"
	"github.com/Black-And-White-Club/pinfall-import/app/modules/classifica/application/parsers"
	classificadomain "github.com/Black-And-White-Club/pinfall-import/app/modules/classifica/domain"
	classificadb "github.com/Black-And-White-Club/pinfall-import/app/modules/classifica/infrastructure/repositories"
	"github.com/Black-And-White-Club/pinfall-import/config"
	"github.com/Black-And-White-Club/pinfall-import/internal/observability"
	"github.com/Black-And-White-Club/pinfall-import/pkg/results"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const serviceName = "ImportService"

// ImportService implements the Service interface.
type ImportService struct {
	repo       classificadb.Repository
	parser     *parsers.Parser
	fetcher    Fetcher
	publisher  EventPublisher
	thresholds matching.Thresholds
	commitCfg  config.CommitConfig
	logger     *slog.Logger
	metrics    observability.ImportMetrics
	tracer     trace.Tracer
	db         *bun.DB
}

// NewImportService creates a new ImportService. A nil publisher disables
// the ResultsImported event.
func NewImportService(
	repo classificadb.Repository,
	parser *parsers.Parser,
	fetcher Fetcher,
	publisher EventPublisher,
	cfg *config.Config,
	logger *slog.Logger,
	metrics observability.ImportMetrics,
	tracer trace.Tracer,
	db *bun.DB,
) *ImportService {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg == nil {
		cfg = config.Default()
	}
	if parser == nil {
		parser = parsers.NewParser(parsers.OptionsFromConfig(cfg.Scoring))
	}
	return &ImportService{
		repo:       repo,
		parser:     parser,
		fetcher:    fetcher,
		publisher:  publisher,
		thresholds: matching.ThresholdsFromConfig(cfg.Matching),
		commitCfg:  cfg.Commit,
		logger:     logger,
		metrics:    metrics,
		tracer:     tracer,
		db:         db,
	}
}

// -----------------------------------------------------------------------------
// Generic Helpers (Defined as functions because methods cannot have type params)
// -----------------------------------------------------------------------------

// operationFunc is the generic signature for service operation functions.
type operationFunc[S any, F any] func(ctx context.Context) (results.OperationResult[S, F], error)

// withTelemetry wraps a service operation with tracing, metrics, and panic recovery.
func withTelemetry[S any, F any](
	s *ImportService,
	ctx context.Context,
	operationName string,
	identifier string,
	op operationFunc[S, F],
) (result results.OperationResult[S, F], err error) {

	// Start span
	var span trace.Span
	if s.tracer != nil {
		ctx, span = s.tracer.Start(ctx, operationName, trace.WithAttributes(
			attribute.String("operation", operationName),
			attribute.String("identifier", identifier),
		))
	} else {
		span = trace.SpanFromContext(ctx)
	}
	defer span.End()

	if s.metrics != nil {
		s.metrics.RecordOperationAttempt(ctx, operationName, serviceName)
	}

	startTime := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordOperationDuration(ctx, operationName, serviceName, time.Since(startTime))
		}
	}()

	s.logger.InfoContext(ctx, "Operation triggered",
		observability.CorrelationAttr(ctx),
		slog.String("operation", operationName),
		slog.String("identifier", identifier),
	)

	// Panic recovery
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", operationName, r)
			s.logger.ErrorContext(ctx, "Critical panic recovered",
				observability.CorrelationAttr(ctx),
				slog.String("identifier", identifier),
				observability.ErrorAttr(err),
			)
			if s.metrics != nil {
				s.metrics.RecordOperationFailure(ctx, operationName, serviceName)
			}
			span.RecordError(err)
			result = results.OperationResult[S, F]{}
		}
	}()

	result, err = op(ctx)

	// Infrastructure error
	if err != nil {
		wrappedErr := fmt.Errorf("%s: %w", operationName, err)
		s.logger.ErrorContext(ctx, "Operation failed with error",
			observability.CorrelationAttr(ctx),
			slog.String("operation", operationName),
			slog.String("identifier", identifier),
			observability.ErrorAttr(wrappedErr),
		)
		if s.metrics != nil {
			s.metrics.RecordOperationFailure(ctx, operationName, serviceName)
		}
		span.RecordError(wrappedErr)
		return result, wrappedErr
	}

	// Domain failure
	if result.IsFailure() {
		s.logger.WarnContext(ctx, "Operation returned failure result",
			observability.CorrelationAttr(ctx),
			slog.String("operation", operationName),
			slog.String("identifier", identifier),
			slog.Any("failure_payload", *result.Failure),
		)
	}

	if result.IsSuccess() {
		s.logger.InfoContext(ctx, "Operation completed successfully",
			observability.CorrelationAttr(ctx),
			slog.String("operation", operationName),
			slog.String("identifier", identifier),
		)
	}

	if s.metrics != nil {
		s.metrics.RecordOperationSuccess(ctx, operationName, serviceName)
	}

	return result, nil
}

// runInTx ensures the operation runs within a transaction.
func runInTx[S any, F any](
	s *ImportService,
	ctx context.Context,
	fn func(ctx context.Context, db bun.IDB) (results.OperationResult[S, F], error),
) (results.OperationResult[S, F], error) {
	if s.db == nil {
		return fn(ctx, nil)
	}

	var result results.OperationResult[S, F]
	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var err error
		result, err = fn(ctx, tx)
		return err
	})
	return result, err
}

// -----------------------------------------------------------------------------
// Shared steps
// -----------------------------------------------------------------------------

// parseSource loads and parses src. A non-nil failure is a domain error
// to report to the caller; err is an infrastructure error.
func (s *ImportService) parseSource(ctx context.Context, src classificadomain.Source) (parsed *classificadomain.ParsedClassifica, failure error, err error) {
	data, fileName, contentType, failure := s.loadSource(ctx, src)
	if failure != nil {
		return nil, failure, nil
	}

	parsed, perr := s.parser.Parse(data, fileName, contentType)
	if perr != nil {
		if errors.Is(perr, ErrNoTabularDataFound) {
			return nil, &ImportError{Code: ErrNoTabularDataFound, Source: src.Describe()}, nil
		}
		return nil, &ImportError{Code: ErrNoTabularDataFound, Source: src.Describe(), Err: perr}, nil
	}

	if s.metrics != nil {
		s.metrics.RecordRowsParsed(ctx, len(parsed.Results))
	}
	if len(parsed.Warnings) > 0 {
		s.logger.InfoContext(ctx, "Classifica parsed with warnings",
			observability.CorrelationAttr(ctx),
			slog.String("source", src.Describe()),
			slog.Any("warnings", parsed.Warnings),
		)
	}
	return parsed, nil, nil
}

func (s *ImportService) loadSource(ctx context.Context, src classificadomain.Source) (data []byte, fileName, contentType string, failure error) {
	set := 0
	for _, present := range []bool{src.URL != "", src.Text != "", len(src.Content) > 0} {
		if present {
			set++
		}
	}
	if set != 1 {
		return nil, "", "", fmt.Errorf("%w: exactly one of url, text or content is required", ErrInvalidSource)
	}

	switch {
	case src.URL != "":
		if err := validateURL(src.URL); err != nil {
			return nil, "", "", err
		}
		if s.fetcher == nil {
			return nil, "", "", &ImportError{Code: ErrFetchFailed, Source: src.URL, Err: errors.New("no fetcher configured")}
		}
		page, err := s.fetcher.Fetch(ctx, src.URL)
		if err != nil {
			var importErr *ImportError
			if errors.As(err, &importErr) {
				return nil, "", "", importErr
			}
			return nil, "", "", &ImportError{Code: ErrFetchFailed, Source: src.URL, Err: err}
		}
		return page.Body, urlFileName(page.FinalURL, src.URL), page.ContentType, nil
	case src.Text != "":
		return []byte(src.Text), src.FileName, "text/plain; charset=utf-8", nil
	default:
		return src.Content, src.FileName, "", nil
	}
}

// loadResolver reads the registry and indexes it.
func (s *ImportService) loadResolver(ctx context.Context, db bun.IDB) (*matching.Resolver, error) {
	rows, err := s.repo.ListPlayers(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("failed to load player registry: %w", err)
	}
	players := make([]classificadomain.Player, 0, len(rows))
	for _, p := range rows {
		players = append(players, classificadomain.Player{
			ID:        p.ID.String(),
			FirstName: p.FirstName,
			LastName:  p.LastName,
		})
	}
	return matching.NewResolver(players, s.thresholds), nil
}

func (s *ImportService) recordTiers(ctx context.Context, candidates []classificadomain.MatchCandidate) {
	if s.metrics == nil {
		return
	}
	counts := make(map[classificadomain.Tier]int)
	for _, c := range candidates {
		counts[c.Tier]++
	}
	for _, tier := range []classificadomain.Tier{
		classificadomain.TierAutoAccept,
		classificadomain.TierReview,
		classificadomain.TierReject,
		classificadomain.TierManual,
	} {
		if n := counts[tier]; n > 0 {
			s.metrics.RecordMatchTier(ctx, string(tier), n)
		}
	}
}
