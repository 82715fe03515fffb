package internal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/pressly/goose/v3"

	"github.com/dukerupert/papertrail/migrations"
)

// RunMigrations applies pending migrations from the embedded SQL files and
// returns the versions it applied, oldest first.
func RunMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger) ([]int64, error) {
	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.MigrationsFS)
	if err != nil {
		return nil, fmt.Errorf("failed to create migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	applied := make([]int64, 0, len(results))
	for _, res := range results {
		applied = append(applied, res.Source.Version)
		logger.Info("migration applied",
			slog.Int64("version", res.Source.Version),
			slog.Duration("duration", res.Duration),
		)
	}
	return applied, nil
}
