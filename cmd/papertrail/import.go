package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/dukerupert/papertrail/internal"
	"github.com/dukerupert/papertrail/internal/app"
	"github.com/dukerupert/papertrail/internal/domain"
	"github.com/dukerupert/papertrail/internal/service"
)

func newImportCmd(cfg *internal.Config) *cobra.Command {
	var ownerEmail string
	var templateID int

	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Bulk-create invoices from a CSV file",
		Long:  "Group CSV rows by client email and create one invoice per client for the given account, exactly as the bulk upload endpoint does.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", args[0], err)
			}
			defer f.Close()

			logger := internal.NewLogger(io.Discard, cfg.Env, cfg.LogLevel)
			a, err := app.New(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			owner, err := a.Users.GetByEmail(ctx, service.NormalizeEmail(ownerEmail))
			if err != nil {
				return fmt.Errorf("owner %s: %w", ownerEmail, err)
			}

			result, err := service.ImportCSV(ctx, a.Bulk, owner.ID, templateID, f)
			if err != nil {
				return err
			}

			printResult(cmd.OutOrStdout(), result)
			return nil
		},
	}

	cmd.Flags().StringVar(&ownerEmail, "owner", "", "email of the account that owns the invoices")
	cmd.Flags().IntVar(&templateID, "template", domain.DefaultTemplateID, "PDF template (1-5)")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}

func printResult(w io.Writer, result *domain.BatchResult) {
	fmt.Fprintf(w, "Created %d invoice(s), %d failed, %d new client(s)\n",
		result.Successful, result.Failed, result.NewClients)

	for _, inv := range result.Invoices {
		var to string
		if inv.Client != nil {
			to = inv.Client.Email
		}
		fmt.Fprintf(w, "  %s  %-30s  %s\n", inv.InvoiceNumber, to, inv.Total.StringFixed(2))
	}

	for _, e := range result.Errors {
		switch {
		case e.Row > 0:
			fmt.Fprintf(w, "  row %d: %s\n", e.Row, e.Message)
		default:
			fmt.Fprintf(w, "  %s: %s\n", e.Email, e.Message)
		}
	}
}
