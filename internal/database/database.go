// Package database opens the Postgres handles and runs schema migrations in
// module order.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	guildmigrations "github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/guild/infrastructure/repositories/migrations"
	pointsmigrations "github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/points/infrastructure/repositories/migrations"
	usermigrations "github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/user/infrastructure/repositories/migrations"
)

// TxRunner runs fn inside a transaction that is committed when fn returns
// nil and rolled back otherwise, including on panic. *bun.DB satisfies it.
type TxRunner interface {
	RunInTx(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context, tx bun.Tx) error) error
}

// Open returns a bun handle over pgdriver.
func Open(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

// Module is one module's migration set.
type Module struct {
	Name       string
	Migrations *migrate.Migrations
}

// Modules lists the migration sets in dependency order: assignments
// reference servers, roles and users.
func Modules() []Module {
	return []Module{
		{Name: "guild", Migrations: guildmigrations.Migrations},
		{Name: "user", Migrations: usermigrations.Migrations},
		{Name: "points", Migrations: pointsmigrations.Migrations},
	}
}

// NewMigrator returns a migrator for m with its own bookkeeping tables so
// modules roll back independently.
func NewMigrator(db *bun.DB, m Module) *migrate.Migrator {
	return migrate.NewMigrator(db, m.Migrations,
		migrate.WithTableName("bun_migrations_"+m.Name),
		migrate.WithLocksTableName("bun_migration_locks_"+m.Name),
	)
}

// Migrate initializes and applies every module's migrations in order.
func Migrate(ctx context.Context, db *bun.DB, logger *slog.Logger) error {
	for _, m := range Modules() {
		migrator := NewMigrator(db, m)
		if err := migrator.Init(ctx); err != nil {
			return fmt.Errorf("init %s migrations: %w", m.Name, err)
		}
		group, err := migrator.Migrate(ctx)
		if err != nil {
			return fmt.Errorf("migrate %s: %w", m.Name, err)
		}
		if group.IsZero() {
			logger.InfoContext(ctx, "No new migrations", slog.String("module", m.Name))
			continue
		}
		logger.InfoContext(ctx, "Migrated module",
			slog.String("module", m.Name),
			slog.String("group", group.String()),
		)
	}
	return nil
}

// MigrateRiver applies the job queue's schema.
func MigrateRiver(ctx context.Context, pool *pgxpool.Pool) error {
	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		return fmt.Errorf("create river migrator: %w", err)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		return fmt.Errorf("run river migrations: %w", err)
	}
	return nil
}
