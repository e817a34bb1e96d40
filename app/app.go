// Package app assembles the importer service: storage, event bus, routers
// and the classifica module.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/uptrace/bun"

	"github.com/Black-And-White-Club/pinfall-import/app/eventbus"
	"github.com/Black-And-White-Club/pinfall-import/app/modules/classifica"
	"github.com/Black-And-White-Club/pinfall-import/config"
	"github.com/Black-And-White-Club/pinfall-import/internal/db/bundb"
	"github.com/Black-And-White-Club/pinfall-import/internal/observability"
)

const shutdownTimeout = 30 * time.Second

// App holds the running service.
type App struct {
	Config           *config.Config
	Logger           *slog.Logger
	DB               *bun.DB
	Bus              *eventbus.Bus
	WatermillRouter  *message.Router
	Registry         *prometheus.Registry
	ClassificaModule *classifica.Module

	httpRouter chi.Router
}

// Options control start-up steps.
type Options struct {
	// Migrate applies pending migrations before the module starts.
	Migrate bool
}

// NewApp connects every dependency and builds the classifica module. On
// error, whatever was already opened is closed.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts Options) (_ *App, err error) {
	app := &App{
		Config:   cfg,
		Logger:   logger,
		Registry: observability.NewRegistry(),
	}
	defer func() {
		if err != nil {
			_ = app.Close()
		}
	}()

	metrics, err := observability.NewPrometheusMetrics(app.Registry)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	app.DB, err = bundb.Open(ctx, cfg.Postgres.DSN, logger)
	if err != nil {
		return nil, err
	}
	if opts.Migrate {
		if err := bundb.Migrate(ctx, app.DB, logger); err != nil {
			return nil, err
		}
	}

	app.Bus, err = eventbus.New(ctx, cfg.NATS, logger)
	if err != nil {
		return nil, err
	}

	app.WatermillRouter, err = message.NewRouter(message.RouterConfig{CloseTimeout: shutdownTimeout}, watermill.NewSlogLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create Watermill router: %w", err)
	}

	app.httpRouter = newHTTPRouter()

	app.ClassificaModule, err = classifica.NewModule(ctx, classifica.Deps{
		Config:     cfg,
		Logger:     logger,
		Metrics:    metrics,
		Registry:   app.Registry,
		DB:         app.DB,
		Publisher:  app.Bus.Publisher,
		Subscriber: app.Bus.Subscriber,
		Router:     app.WatermillRouter,
		HTTPRouter: app.httpRouter,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize classifica module: %w", err)
	}

	return app, nil
}

// Close releases the module, the event bus and the database.
func (app *App) Close() error {
	var errs []error
	if app.ClassificaModule != nil {
		errs = append(errs, app.ClassificaModule.Close())
	} else if app.WatermillRouter != nil {
		errs = append(errs, app.WatermillRouter.Close())
	}
	if app.Bus != nil {
		errs = append(errs, app.Bus.Close())
	}
	if app.DB != nil {
		errs = append(errs, app.DB.Close())
	}
	return errors.Join(errs...)
}
