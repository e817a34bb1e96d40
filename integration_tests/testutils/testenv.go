package testutils

import (
	"context"
	"fmt"
	"log"
	"sync"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/nats"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/uptrace/bun"

	"github.com/Black-And-White-Club/pinfall-import/config"
	"github.com/Black-And-White-Club/pinfall-import/integration_tests/containers"
	"github.com/Black-And-White-Club/pinfall-import/internal/db/bundb"
)

// TestEnvironment holds the containers shared by a test package.
type TestEnvironment struct {
	Ctx         context.Context
	PgContainer *postgres.PostgresContainer
	DB          *bun.DB
	Config      *config.Config

	natsOnce      sync.Once
	natsContainer *nats.NATSContainer
	natsErr       error
}

var (
	globalEnv     *TestEnvironment
	globalEnvErr  error
	globalEnvOnce sync.Once
)

// GetOrCreateTestEnv returns the package-wide environment, starting
// Postgres on first use. Tests are skipped with -short.
func GetOrCreateTestEnv(t *testing.T) *TestEnvironment {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test skipped in short mode")
	}

	globalEnvOnce.Do(func() {
		globalEnv, globalEnvErr = newTestEnvironment(context.Background())
	})
	if globalEnvErr != nil {
		t.Fatalf("Failed to set up test environment: %v", globalEnvErr)
	}
	return globalEnv
}

func newTestEnvironment(ctx context.Context) (*TestEnvironment, error) {
	pgContainer, pgConnStr, err := containers.SetupPostgresContainer(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to setup postgres container: %w", err)
	}

	db, err := bundb.Open(ctx, pgConnStr, nil)
	if err != nil {
		_ = testcontainers.TerminateContainer(pgContainer)
		return nil, err
	}

	if err := runMigrations(ctx, db, pgConnStr); err != nil {
		db.Close()
		_ = testcontainers.TerminateContainer(pgContainer)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	cfg := config.Default()
	cfg.Postgres.DSN = pgConnStr

	return &TestEnvironment{
		Ctx:         ctx,
		PgContainer: pgContainer,
		DB:          db,
		Config:      cfg,
	}, nil
}

// NATSURL starts a NATS container on first use and returns its URL.
func (env *TestEnvironment) NATSURL(t *testing.T) string {
	t.Helper()
	env.natsOnce.Do(func() {
		var natsURL string
		env.natsContainer, natsURL, env.natsErr = containers.SetupNatsContainer(env.Ctx)
		env.Config.NATS.URL = natsURL
	})
	if env.natsErr != nil {
		t.Fatalf("Failed to start NATS: %v", env.natsErr)
	}
	return env.Config.NATS.URL
}

// Reset empties every classifica table and the job queue.
func (env *TestEnvironment) Reset(t *testing.T) {
	t.Helper()
	if err := CleanupDatabase(env.Ctx, env.DB); err != nil {
		t.Fatalf("Failed to reset database: %v", err)
	}
}

// Shutdown terminates the shared containers.
func Shutdown() {
	if globalEnv == nil {
		return
	}
	if globalEnv.DB != nil {
		globalEnv.DB.Close()
	}
	if globalEnv.natsContainer != nil {
		if err := testcontainers.TerminateContainer(globalEnv.natsContainer); err != nil {
			log.Printf("Failed to terminate NATS container: %v", err)
		}
	}
	if err := testcontainers.TerminateContainer(globalEnv.PgContainer); err != nil {
		log.Printf("Failed to terminate Postgres container: %v", err)
	}
}
