// Package app wires configuration, ledger store, indexing client and
// scheduler into the run and status entry points used by the CLI.
package app

import (
	"context"
	"fmt"

	gcppubsub "cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/searchpress/indexrunner/internal/clock"
	"github.com/searchpress/indexrunner/internal/config"
	"github.com/searchpress/indexrunner/internal/id"
	"github.com/searchpress/indexrunner/internal/indexing"
	googleclient "github.com/searchpress/indexrunner/internal/indexing/google"
	"github.com/searchpress/indexrunner/internal/ledger"
	"github.com/searchpress/indexrunner/internal/ledger/csvstore"
	"github.com/searchpress/indexrunner/internal/ledger/gcsstore"
	"github.com/searchpress/indexrunner/internal/ledger/pgstore"
	"github.com/searchpress/indexrunner/internal/metrics"
	"github.com/searchpress/indexrunner/internal/publisher"
	pubsubpub "github.com/searchpress/indexrunner/internal/publisher/pubsub"
	"github.com/searchpress/indexrunner/internal/scheduler"
	"github.com/searchpress/indexrunner/internal/sitemap"
)

// Fetcher abstracts sitemap acquisition so tests can inject fakes.
type Fetcher interface {
	Fetch(ctx context.Context, rootURL string) ([]sitemap.Entry, error)
}

// App holds the collaborators for one invocation.
type App struct {
	cfg     config.Config
	logger  *zap.Logger
	fetcher Fetcher
	store   ledger.Store
	client  indexing.Client
	pub     publisher.Publisher
	clk     clock.Clock
}

// New assembles an App from explicit collaborators.
func New(
	cfg config.Config,
	logger *zap.Logger,
	fetcher Fetcher,
	store ledger.Store,
	client indexing.Client,
	pub publisher.Publisher,
	clk clock.Clock,
) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &App{
		cfg:     cfg,
		logger:  logger,
		fetcher: fetcher,
		store:   store,
		client:  client,
		pub:     pub,
		clk:     clk,
	}
}

// Build wires the real collaborators for the configured backends. The
// returned cleanup releases any connections Build opened.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, func(), error) {
	domain, err := config.Domain(cfg.Sitemap.URL)
	if err != nil {
		return nil, nil, err
	}

	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	store, storeCleanup, err := buildStore(ctx, cfg, domain)
	if err != nil {
		return nil, nil, err
	}
	if storeCleanup != nil {
		cleanups = append(cleanups, storeCleanup)
	}

	if cfg.Indexing.CredentialsFile == "" {
		cleanup()
		return nil, nil, fmt.Errorf("indexing.credentials_file is required")
	}
	client, err := googleclient.New(ctx, cfg.Indexing.CredentialsFile)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	var pub publisher.Publisher
	if cfg.PubSub.ProjectID != "" && cfg.PubSub.TopicName != "" {
		psClient, err := gcppubsub.NewClient(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("create pubsub client: %w", err)
		}
		cleanups = append(cleanups, func() { psClient.Close() }) //nolint:errcheck // best-effort close
		pub, err = pubsubpub.New(psClient)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
	}

	reader := sitemap.NewReader(sitemap.Config{
		UserAgent: cfg.Sitemap.UserAgent,
		Timeout:   cfg.SitemapTimeout(),
	}, logger)

	return New(cfg, logger, reader, store, client, pub, nil), cleanup, nil
}

// BuildStatus wires only the ledger store, enough for read-only
// inspection. No indexing credentials are needed.
func BuildStatus(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, func(), error) {
	domain, err := config.Domain(cfg.Sitemap.URL)
	if err != nil {
		return nil, nil, err
	}
	store, storeCleanup, err := buildStore(ctx, cfg, domain)
	if err != nil {
		return nil, nil, err
	}
	if storeCleanup == nil {
		storeCleanup = func() {}
	}
	return New(cfg, logger, nil, store, nil, nil, nil), storeCleanup, nil
}

func buildStore(ctx context.Context, cfg config.Config, domain string) (ledger.Store, func(), error) {
	switch cfg.Ledger.Backend {
	case "csv":
		store, err := csvstore.New(cfg.Ledger.DataDir, domain)
		return store, nil, err
	case "postgres":
		store, err := pgstore.New(ctx, cfg.Ledger.DSN, domain)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	case "gcs":
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("create storage client: %w", err)
		}
		store, err := gcsstore.New(client, gcsstore.Config{Bucket: cfg.Ledger.Bucket, Domain: domain})
		if err != nil {
			client.Close() //nolint:errcheck,gosec
			return nil, nil, err
		}
		return store, func() { client.Close() }, nil //nolint:errcheck // best-effort close
	default:
		return nil, nil, fmt.Errorf("unsupported ledger backend %q", cfg.Ledger.Backend)
	}
}

// Run executes one full pipeline pass: fetch the sitemap tree, merge new
// URLs, submit pending ones under the daily cap, and persist the ledger.
// The summary is returned even when the run fails partway.
func (a *App) Run(ctx context.Context) (scheduler.Summary, error) {
	runID, err := id.NewRunID()
	if err != nil {
		return scheduler.Summary{}, err
	}
	logger := a.logger.With(zap.String("run_id", runID))

	records, err := a.store.Load(ctx)
	if err != nil {
		metrics.IncRun("error")
		return scheduler.Summary{}, fmt.Errorf("load ledger: %w", err)
	}
	led := ledger.New(records)

	entries, fetchErr := a.fetcher.Fetch(ctx, a.cfg.Sitemap.URL)
	switch {
	case entries == nil && fetchErr != nil:
		// The root resource itself was unreadable. With no prior ledger
		// there is nothing to do; with one, the backlog can still drain.
		if len(records) == 0 {
			metrics.IncRun("error")
			return scheduler.Summary{}, fmt.Errorf("sitemap unavailable and ledger empty: %w", fetchErr)
		}
		logger.Warn("sitemap unavailable, draining existing backlog", zap.Error(fetchErr))
	case fetchErr != nil:
		logger.Warn("some child sitemaps failed, proceeding with partial results", zap.Error(fetchErr))
	}

	metrics.AddDiscovered(len(entries))
	merge := led.Merge(entries, a.clk.Now())
	logger.Info("sitemap merged",
		zap.Int("discovered", len(entries)),
		zap.Int("added", merge.Added),
		zap.Int("refreshed", merge.Refreshed),
	)

	sched := scheduler.New(led, a.client, a.clk, a.pub, scheduler.Config{
		DailyCap:     a.cfg.Indexing.DailyCap,
		MaxRetries:   a.cfg.Indexing.MaxRetries,
		RequestDelay: a.cfg.RequestDelay(),
		Topic:        a.cfg.PubSub.TopicName,
	}, runID, logger)

	summary, runErr := sched.Run(ctx)

	if err := a.store.Persist(ctx, led.Snapshot()); err != nil {
		metrics.IncRun("error")
		return summary, fmt.Errorf("persist ledger: %w", err)
	}

	stats := led.Statistics()
	logger.Info("run complete",
		zap.Int("submitted", summary.Submitted),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", summary.Skipped),
		zap.Int("ledger_total", stats.Total),
		zap.Int("ledger_pending", stats.Pending),
		zap.Int("ledger_success", stats.Success),
		zap.Int("ledger_failed", stats.Failed),
	)

	if runErr != nil {
		metrics.IncRun("aborted")
		return summary, runErr
	}
	metrics.IncRun("ok")
	return summary, nil
}

// Status loads the persisted ledger and reports its statistics without
// contacting the indexing provider.
func (a *App) Status(ctx context.Context) (ledger.Statistics, error) {
	records, err := a.store.Load(ctx)
	if err != nil {
		return ledger.Statistics{}, fmt.Errorf("load ledger: %w", err)
	}
	stats := ledger.New(records).Statistics()
	a.logger.Info("ledger status",
		zap.Int("total", stats.Total),
		zap.Int("pending", stats.Pending),
		zap.Int("success", stats.Success),
		zap.Int("failed", stats.Failed),
	)
	return stats, nil
}
