package classificaintegrationtests

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/trace/noop"

	classificaservice "github.com/Black-And-White-Club/pinfall-import/app/modules/classifica/application"
	classificadomain "github.com/Black-And-White-Club/pinfall-import/app/modules/classifica/domain"
	classificadb "github.com/Black-And-White-Club/pinfall-import/app/modules/classifica/infrastructure/repositories"
	"github.com/Black-And-White-Club/pinfall-import/config"
	"github.com/Black-And-White-Club/pinfall-import/integration_tests/testutils"
	"github.com/Black-And-White-Club/pinfall-import/internal/observability"
)

type TestDeps struct {
	Ctx     context.Context
	Env     *testutils.TestEnvironment
	Repo    classificadb.Repository
	BunDB   *bun.DB
	Config  *config.Config
	Logger  *slog.Logger
	Service *classificaservice.ImportService
}

func SetupTestImportService(t *testing.T) TestDeps {
	t.Helper()

	env := testutils.GetOrCreateTestEnv(t)
	env.Reset(t)

	cfg := *env.Config
	testLogger := slog.New(slog.NewTextHandler(io.Discard, nil))
	noOpTracer := noop.NewTracerProvider().Tracer("test_classifica_service")

	fetcher, err := classificaservice.NewHTTPFetcher(cfg.Fetch, testLogger, observability.NewNoop())
	if err != nil {
		t.Fatalf("Failed to create fetcher: %v", err)
	}

	repo := classificadb.NewRepository(env.DB)
	service := classificaservice.NewImportService(
		repo,
		nil,
		fetcher,
		nil,
		&cfg,
		testLogger,
		observability.NewNoop(),
		noOpTracer,
		env.DB,
	)

	return TestDeps{
		Ctx:     env.Ctx,
		Env:     env,
		Repo:    repo,
		BunDB:   env.DB,
		Config:  &cfg,
		Logger:  testLogger,
		Service: service,
	}
}

// classificaText renders a results sheet with a title and a header row.
func classificaText(title string, rows ...string) classificadomain.Source {
	lines := append([]string{title, "Pos\tAtleta\tG1\tG2\tG3\tTotale"}, rows...)
	return classificadomain.Source{Text: strings.Join(lines, "\n") + "\n"}
}

func sum(scores []int) int {
	total := 0
	for _, s := range scores {
		total += s
	}
	return total
}
