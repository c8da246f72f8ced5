package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/searchpress/indexrunner/internal/config"
	"github.com/searchpress/indexrunner/internal/logging"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "indexrunner",
		Short: "Submits blog URLs from a sitemap to the Google Indexing API.",
		Long: `indexrunner keeps a per-domain ledger of every URL discovered in a
site's sitemap tree and submits pending ones to the Google Indexing API,
respecting the API's daily quota and retrying transient failures. Runs are
resumable: the ledger persists between invocations, so interrupted or
quota-capped runs pick up where they left off.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default reads INDEXRUNNER_* env vars)")

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newStatusCmd())

	return cmd
}

// setup loads configuration and builds the logger shared by all commands.
func setup() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, nil, err
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

// Execute is the main entry point. It wires signal handling so an
// interrupted run still persists its ledger before exiting.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
