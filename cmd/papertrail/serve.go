package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dukerupert/papertrail/internal"
	"github.com/dukerupert/papertrail/internal/app"
)

func newServeCmd(cfg *internal.Config) *cobra.Command {
	var skipMigrations bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the API server",
		Long:  "Run the JSON API, the payment webhook and the overdue sweeper until interrupted. Pending migrations are applied first unless --skip-migrations is set.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

			a, err := app.New(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			if !skipMigrations {
				if err := app.Migrate(ctx, a.Pool, logger); err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
			}
			return a.Serve(ctx)
		},
	}

	cmd.Flags().BoolVar(&skipMigrations, "skip-migrations", false, "do not apply pending migrations on start")
	return cmd
}

func newMigrateCmd(cfg *internal.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := app.Connect(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			logger := internal.NewLogger(cmd.ErrOrStderr(), cfg.Env, cfg.LogLevel)
			if err := app.Migrate(cmd.Context(), pool, logger); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Println("Migrations applied.")
			return nil
		},
	}
}
