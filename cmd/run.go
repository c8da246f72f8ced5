// Package cmd defines and implements the CLI commands for the indexrunner executable.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/searchpress/indexrunner/internal/app"
)

// newRunCmd creates the 'run' subcommand, which executes one full pass:
// fetch the sitemap, merge new URLs into the ledger, submit pending ones
// under the daily quota, and persist the result.
func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Fetches the sitemap and submits pending URLs",
		Long: `Downloads the configured sitemap (recursing into sitemap indexes),
merges newly discovered URLs into the per-domain ledger, then submits
pending URLs to the Google Indexing API up to the daily quota. The updated
ledger is persisted even when the run aborts partway.`,
		RunE: runRunCommand,
	}
}

func runRunCommand(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	a, cleanup, err := app.Build(cmd.Context(), cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize services: %w", err)
	}
	defer cleanup()

	summary, runErr := a.Run(cmd.Context())

	fmt.Printf("Submitted: %d  Succeeded: %d  Failed: %d  Skipped: %d\n",
		summary.Submitted, summary.Succeeded, summary.Failed, summary.Skipped)

	if runErr != nil {
		logger.Error("Run finished with error", zap.Error(runErr))
		return runErr
	}
	return nil
}
