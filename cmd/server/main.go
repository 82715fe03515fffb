package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dukerupert/papertrail/internal"
	"github.com/dukerupert/papertrail/internal/app"
)

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := app.Migrate(ctx, a.Pool, logger); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	return a.Serve(ctx)
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
