package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dukerupert/papertrail/internal"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	return newRootCmd(cfg).ExecuteContext(ctx)
}

func newRootCmd(cfg *internal.Config) *cobra.Command {
	root := &cobra.Command{
		Use:           "papertrail",
		Short:         "Invoicing server and admin tools",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newServeCmd(cfg),
		newMigrateCmd(cfg),
		newImportCmd(cfg),
	)
	return root
}
