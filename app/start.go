package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Black-And-White-Club/pinfall-import/internal/observability"
)

// Start serves the API, the metrics endpoint, the event consumer and the
// job queue until ctx is cancelled or one of them fails.
func (app *App) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              app.Config.HTTP.Addr,
		Handler:           app.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		app.Logger.InfoContext(gCtx, "HTTP server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	var metricsSrv *http.Server
	if addr := app.Config.Observability.MetricsAddress; addr != "" {
		metricsSrv = &http.Server{
			Addr:              addr,
			Handler:           observability.MetricsHandler(app.Registry),
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			app.Logger.InfoContext(gCtx, "Metrics server listening", slog.String("addr", addr))
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
	}

	if app.ClassificaModule.ClassificaRouter != nil {
		g.Go(func() error {
			return app.ClassificaModule.ClassificaRouter.Run(gCtx)
		})
	}

	g.Go(func() error {
		app.ClassificaModule.Run(gCtx, nil)
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		return app.shutdown(srv, metricsSrv)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	app.Logger.Info("Importer stopped")
	return nil
}
