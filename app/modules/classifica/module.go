package classifica

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	classificaservice "github.com/Black-And-White-Club/pinfall-import/app/modules/classifica/application"
	classificaevents "github.com/Black-And-White-Club/pinfall-import/app/modules/classifica/infrastructure/events"
	classificahandlers "github.com/Black-And-White-Club/pinfall-import/app/modules/classifica/infrastructure/handlers"
	classificaqueue "github.com/Black-And-White-Club/pinfall-import/app/modules/classifica/infrastructure/queue"
	classificadb "github.com/Black-And-White-Club/pinfall-import/app/modules/classifica/infrastructure/repositories"
	classificarouter "github.com/Black-And-White-Club/pinfall-import/app/modules/classifica/infrastructure/router"
	"github.com/Black-And-White-Club/pinfall-import/config"
	"github.com/Black-And-White-Club/pinfall-import/internal/observability"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/uptrace/bun"
)

// Deps are the shared resources the module is built on.
type Deps struct {
	Config     *config.Config
	Logger     *slog.Logger
	Metrics    observability.ImportMetrics
	Registry   prometheus.Registerer
	DB         *bun.DB
	Publisher  message.Publisher
	Subscriber message.Subscriber
	// Router receives the event handlers; nil skips event consumption.
	Router *message.Router
	// HTTPRouter receives the API routes; nil skips them.
	HTTPRouter chi.Router
}

// Module represents the classifica import module.
type Module struct {
	Service          classificaservice.Service
	Queue            *classificaqueue.Service
	ClassificaRouter *classificarouter.ClassificaRouter
	logger           *slog.Logger
	cancelFunc       context.CancelFunc
}

// NewModule creates the classifica module.
func NewModule(ctx context.Context, deps Deps) (*Module, error) {
	if deps.DB == nil {
		return nil, errors.New("classifica module requires a database")
	}
	cfg := deps.Config
	if cfg == nil {
		cfg = config.Default()
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = observability.NewNoop()
	}
	tracer := observability.Tracer("classifica")

	logger.InfoContext(ctx, "Initializing classifica module")

	fetcher, err := classificaservice.NewHTTPFetcher(cfg.Fetch, logger, metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to create fetcher: %w", err)
	}

	var publisher classificaservice.EventPublisher
	if deps.Publisher != nil {
		publisher = classificaevents.NewPublisher(deps.Publisher)
	}

	service := classificaservice.NewImportService(classificadb.NewRepository(deps.DB), nil, fetcher, publisher, cfg, logger, metrics, tracer, deps.DB)

	module := &Module{
		Service: service,
		logger:  logger,
	}

	var queue classificahandlers.JobQueue
	if cfg.Queue.Enabled {
		q, err := classificaqueue.NewService(ctx, deps.DB, logger, cfg.Postgres.DSN, cfg.Queue, metrics, service)
		if err != nil {
			return nil, fmt.Errorf("failed to create queue service: %w", err)
		}
		module.Queue = q
		queue = q
	}

	handlers := classificahandlers.NewClassificaHandlers(service, queue, logger, tracer, cfg.Fetch.MaxBytes)

	if deps.HTTPRouter != nil {
		classificarouter.RegisterHTTPRoutes(deps.HTTPRouter, handlers, cfg.HTTP)
	}

	if deps.Router != nil && deps.Subscriber != nil && deps.Publisher != nil {
		module.ClassificaRouter = classificarouter.NewClassificaRouter(logger, deps.Router, deps.Subscriber, deps.Publisher, deps.Registry)
		if err := module.ClassificaRouter.Configure(ctx, handlers); err != nil {
			module.closeQueue(ctx)
			return nil, fmt.Errorf("failed to configure classifica router: %w", err)
		}
	}

	return module, nil
}

// Run starts the job queue and blocks until ctx is done.
func (m *Module) Run(ctx context.Context, wg *sync.WaitGroup) {
	m.logger.InfoContext(ctx, "Starting classifica module")

	ctx, cancel := context.WithCancel(ctx)
	m.cancelFunc = cancel
	defer cancel()

	if wg != nil {
		defer wg.Done()
	}

	if m.Queue != nil {
		if err := m.Queue.Start(ctx); err != nil {
			m.logger.ErrorContext(ctx, "Failed to start classifica queue", observability.ErrorAttr(err))
			return
		}
	}

	<-ctx.Done()
	m.logger.Info("Classifica module goroutine stopped")
}

// Close stops the module.
func (m *Module) Close() error {
	m.logger.Info("Stopping classifica module")

	var errs []error
	if m.ClassificaRouter != nil {
		if err := m.ClassificaRouter.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error stopping router: %w", err))
		}
	}
	if err := m.closeQueue(context.Background()); err != nil {
		errs = append(errs, err)
	}

	// Cancel after River has drained so running jobs are not aborted.
	if m.cancelFunc != nil {
		m.cancelFunc()
	}

	m.logger.Info("Classifica module stopped")
	return errors.Join(errs...)
}

func (m *Module) closeQueue(ctx context.Context) error {
	if m.Queue == nil {
		return nil
	}
	if err := m.Queue.Stop(ctx); err != nil {
		return fmt.Errorf("error stopping queue: %w", err)
	}
	return nil
}
