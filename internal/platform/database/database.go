// Package database opens the configured SQL backend and applies the
// embedded schema migrations.
package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"issuehub/internal/platform/config"
	"issuehub/pkg/platform/sqldb"
)

//go:embed migrations
var migrations embed.FS

// Migrations exposes the per-dialect migration files.
func Migrations() fs.FS {
	sub, err := fs.Sub(migrations, "migrations")
	if err != nil {
		panic(fmt.Sprintf("embedded migrations: %v", err))
	}
	return sub
}

// Open connects to the configured database and migrates it.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*sqldb.DB, error) {
	dialect, err := sqldb.ParseDialect(cfg.Driver)
	if err != nil {
		return nil, err
	}
	db, err := sqldb.Open(ctx, dialect, cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Migrate applies pending migrations.
func Migrate(ctx context.Context, db *sqldb.DB) error {
	if err := db.Migrate(ctx, Migrations()); err != nil {
		return fmt.Errorf("migrate %s: %w", db.Dialect, err)
	}
	return nil
}
