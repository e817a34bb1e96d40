package classificahandlerintegrationtests

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Black-And-White-Club/pinfall-import/app/eventbus"
	"github.com/Black-And-White-Club/pinfall-import/app/modules/classifica"
	classificadomain "github.com/Black-And-White-Club/pinfall-import/app/modules/classifica/domain"
	"github.com/Black-And-White-Club/pinfall-import/integration_tests/testutils"
)

type HandlerTestDeps struct {
	Ctx        context.Context
	Env        *testutils.TestEnvironment
	Bus        *eventbus.Bus
	Module     *classifica.Module
	HTTPRouter chi.Router
}

// SetupTestHandlers builds the module on a NATS event bus with its router
// running, and an HTTP router carrying its routes.
func SetupTestHandlers(t *testing.T) HandlerTestDeps {
	t.Helper()

	env := testutils.GetOrCreateTestEnv(t)
	env.Reset(t)
	natsURL := env.NATSURL(t)

	cfg := *env.Config
	cfg.NATS.URL = natsURL
	cfg.Queue.Enabled = false
	cfg.HTTP.RateBurst = 100

	ctx, cancel := context.WithCancel(env.Ctx)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	bus, err := eventbus.New(ctx, cfg.NATS, logger)
	if err != nil {
		cancel()
		t.Fatalf("Failed to create event bus: %v", err)
	}

	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: 5 * time.Second}, watermill.NewSlogLogger(logger))
	if err != nil {
		cancel()
		bus.Close()
		t.Fatalf("Failed to create router: %v", err)
	}

	httpRouter := chi.NewRouter()
	module, err := classifica.NewModule(ctx, classifica.Deps{
		Config:     &cfg,
		Logger:     logger,
		Registry:   prometheus.NewRegistry(),
		DB:         env.DB,
		Publisher:  bus.Publisher,
		Subscriber: bus.Subscriber,
		Router:     router,
		HTTPRouter: httpRouter,
	})
	if err != nil {
		cancel()
		bus.Close()
		t.Fatalf("Failed to create classifica module: %v", err)
	}

	runErr := make(chan error, 1)
	go func() {
		runErr <- module.ClassificaRouter.Run(ctx)
	}()

	select {
	case <-router.Running():
	case <-time.After(10 * time.Second):
		t.Fatal("Router did not start")
	}

	t.Cleanup(func() {
		_ = module.Close()
		cancel()
		if err := <-runErr; err != nil {
			t.Logf("Router stopped with error: %v", err)
		}
		_ = bus.Close()
	})

	return HandlerTestDeps{
		Ctx:        ctx,
		Env:        env,
		Bus:        bus,
		Module:     module,
		HTTPRouter: httpRouter,
	}
}

func classificaText(rows ...string) classificadomain.Source {
	lines := append([]string{"Torneo Eventi", "Pos\tAtleta\tG1\tG2\tG3\tTotale"}, rows...)
	return classificadomain.Source{Text: strings.Join(lines, "\n") + "\n"}
}
