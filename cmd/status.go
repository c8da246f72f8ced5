package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/searchpress/indexrunner/internal/app"
)

// newStatusCmd creates the 'status' subcommand, a read-only view of the
// persisted ledger. It never contacts the indexing provider.
func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Prints ledger statistics for the configured domain",
		RunE:  runStatusCommand,
	}
}

func runStatusCommand(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	a, cleanup, err := app.BuildStatus(cmd.Context(), cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize ledger store: %w", err)
	}
	defer cleanup()

	stats, err := a.Status(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("Total: %d  Pending: %d  Success: %d  Failed: %d\n",
		stats.Total, stats.Pending, stats.Success, stats.Failed)
	return nil
}
