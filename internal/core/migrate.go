// AngelaMos | 2026
// migrate.go

package core

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrations returns the embedded goose migration set rooted at its own
// directory.
func Migrations() (fs.FS, error) {
	sub, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		return nil, fmt.Errorf("open migrations: %w", err)
	}
	return sub, nil
}

// Migrate applies every pending migration. goose keeps its version table
// (goose_db_version) and runs each file in its own transaction.
func Migrate(ctx context.Context, db *sqlx.DB, logger *slog.Logger) (int, error) {
	fsys, err := Migrations()
	if err != nil {
		return 0, err
	}

	provider, err := goose.NewProvider(goose.DialectPostgres, db.DB, fsys)
	if err != nil {
		return 0, fmt.Errorf("create migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	applied := 0
	for _, res := range results {
		if res.Error != nil {
			continue
		}
		applied++
		logger.Info("migration applied",
			"version", res.Source.Version,
			"file", res.Source.Path,
			"duration", res.Duration,
		)
	}
	if err != nil {
		return applied, fmt.Errorf("apply migrations: %w", err)
	}

	return applied, nil
}
