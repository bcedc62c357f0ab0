// Package testutils starts throwaway Postgres and NATS containers for the
// integration suites.
package testutils

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shigeru22/snipeid-calc-bot-sub001/integration_tests/containers"
	"github.com/shigeru22/snipeid-calc-bot-sub001/internal/database"
	"github.com/shigeru22/snipeid-calc-bot-sub001/internal/observability"
	"github.com/testcontainers/testcontainers-go"
	"github.com/uptrace/bun"
)

// TestEnvironment holds the resources shared by an integration suite.
type TestEnvironment struct {
	Ctx           context.Context
	CancelContext context.CancelFunc
	PgContainer   testcontainers.Container
	NatsContainer testcontainers.Container
	DSN           string
	NatsURL       string
	DB            *bun.DB
}

// Option configures NewTestEnvironment.
type Option func(*envOptions)

type envOptions struct {
	nats bool
}

// WithNATS also starts a NATS server.
func WithNATS() Option {
	return func(o *envOptions) { o.nats = true }
}

// NewTestEnvironment starts Postgres, applies every migration including the
// river schema, and registers cleanup on t. It skips in -short mode.
func NewTestEnvironment(t *testing.T, opts ...Option) *TestEnvironment {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	var o envOptions
	for _, opt := range opts {
		opt(&o)
	}

	ctx, cancel := context.WithCancel(context.Background())
	env := &TestEnvironment{Ctx: ctx, CancelContext: cancel}
	t.Cleanup(env.Cleanup)

	pgContainer, dsn, err := containers.SetupPostgresContainer(ctx)
	if err != nil {
		t.Fatalf("failed to setup postgres container: %v", err)
	}
	env.PgContainer = pgContainer
	env.DSN = dsn

	env.DB = database.Open(dsn)
	if err := database.Migrate(ctx, env.DB, observability.NoOpLogger); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	if err := migrateRiver(ctx, dsn); err != nil {
		t.Fatalf("failed to run river migrations: %v", err)
	}

	if o.nats {
		natsContainer, natsURL, err := containers.SetupNatsContainer(ctx)
		if err != nil {
			t.Fatalf("failed to setup nats container: %v", err)
		}
		env.NatsContainer = natsContainer
		env.NatsURL = natsURL
	}

	return env
}

func migrateRiver(ctx context.Context, dsn string) error {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return fmt.Errorf("failed to create pgx pool: %w", err)
	}
	defer pool.Close()
	return database.MigrateRiver(ctx, pool)
}

// Reset empties every domain table between tests.
func (env *TestEnvironment) Reset(t *testing.T) {
	t.Helper()
	_, err := env.DB.ExecContext(env.Ctx,
		"TRUNCATE assignments, users, roles, servers RESTART IDENTITY CASCADE")
	if err != nil {
		t.Fatalf("failed to truncate tables: %v", err)
	}
}

// Cleanup closes connections and terminates the containers.
func (env *TestEnvironment) Cleanup() {
	if env.DB != nil {
		_ = env.DB.Close()
	}
	ctx := context.Background()
	if env.NatsContainer != nil {
		_ = env.NatsContainer.Terminate(ctx)
	}
	if env.PgContainer != nil {
		_ = env.PgContainer.Terminate(ctx)
	}
	env.CancelContext()
}
