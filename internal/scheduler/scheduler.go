// Package scheduler drives quota-capped submission of pending URLs.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/searchpress/indexrunner/internal/clock"
	"github.com/searchpress/indexrunner/internal/indexing"
	"github.com/searchpress/indexrunner/internal/ledger"
	"github.com/searchpress/indexrunner/internal/metrics"
	"github.com/searchpress/indexrunner/internal/publisher"
)

// Summary accumulates per-URL outcomes for one run. Skipped counts
// candidates never attempted because the run aborted early.
type Summary struct {
	Submitted int
	Succeeded int
	Failed    int
	Skipped   int
}

// FatalError aborts the remaining run: the provider reported a systemic
// problem (typically invalid credentials) that retrying other URLs would
// only burn the daily cap against.
type FatalError struct {
	URL string
	Err error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("fatal submission error on %s: %v", e.URL, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// Config controls Scheduler behavior.
type Config struct {
	// DailyCap bounds how many candidates are selected for the run,
	// independent of how many retries each one consumes.
	DailyCap int
	// MaxRetries bounds submission attempts per URL within the run and the
	// lifetime retry budget recorded in the ledger.
	MaxRetries int
	// RequestDelay paces outbound requests and seeds the linear retry backoff.
	RequestDelay time.Duration
	// Topic names the publisher destination for terminal transitions.
	// Empty disables publishing.
	Topic string
}

// Scheduler submits pending ledger rows through an indexing client.
type Scheduler struct {
	ledger  *ledger.Ledger
	client  indexing.Client
	clk     clock.Clock
	pub     publisher.Publisher
	limiter *rate.Limiter
	sleep   func(time.Duration)
	cfg     Config
	runID   string
	logger  *zap.Logger
}

// New constructs a Scheduler.
func New(
	led *ledger.Ledger,
	client indexing.Client,
	clk clock.Clock,
	pub publisher.Publisher,
	cfg Config,
	runID string,
	logger *zap.Logger,
) *Scheduler {
	if clk == nil {
		clk = clock.NewSystem()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := rate.Inf
	if cfg.RequestDelay > 0 {
		limit = rate.Every(cfg.RequestDelay)
	}
	return &Scheduler{
		ledger:  led,
		client:  client,
		clk:     clk,
		pub:     pub,
		limiter: rate.NewLimiter(limit, 1),
		sleep:   time.Sleep,
		cfg:     cfg,
		runID:   runID,
		logger:  logger.With(zap.String("run_id", runID)),
	}
}

type outcome int

const (
	outcomeSuccess outcome = iota
	outcomeFailed
	outcomePending
	outcomeFatal
)

// Run selects up to DailyCap pending URLs and submits them in order.
// Per-URL failures are absorbed into ledger state; only a fatal
// classification (or a ledger invariant violation) aborts the loop. A
// Summary is returned even when the run aborts.
func (s *Scheduler) Run(ctx context.Context) (Summary, error) {
	candidates := s.ledger.Pending(s.cfg.DailyCap)
	s.logger.Info("submission run starting",
		zap.Int("candidates", len(candidates)),
		zap.Int("daily_cap", s.cfg.DailyCap),
	)

	var summary Summary
	for i, cand := range candidates {
		out, err := s.submit(ctx, cand)
		if err != nil && out != outcomeFatal {
			// Context cancellation or a ledger invariant violation: rows not
			// yet attempted stay PENDING for the next run.
			summary.Skipped = len(candidates) - i
			return summary, err
		}

		summary.Submitted++
		switch out {
		case outcomeSuccess:
			summary.Succeeded++
		case outcomeFailed:
			summary.Failed++
		case outcomeFatal:
			summary.Failed++
			summary.Skipped = len(candidates) - i - 1
			s.logger.Error("aborting run on fatal submission error",
				zap.String("url", cand.URL),
				zap.Int("skipped", summary.Skipped),
				zap.Error(err),
			)
			return summary, err
		case outcomePending:
			// Retry budget not exhausted for this lifecycle; eligible again
			// next run.
		}
	}

	s.logger.Info("submission run finished",
		zap.Int("submitted", summary.Submitted),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
	)
	return summary, nil
}

// submit drives one candidate through up to MaxRetries attempts.
func (s *Scheduler) submit(ctx context.Context, cand ledger.Record) (outcome, error) {
	for attempt := 1; attempt <= s.cfg.MaxRetries; attempt++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return outcomePending, fmt.Errorf("request pacing: %w", err)
		}

		start := time.Now()
		err := s.client.Submit(ctx, cand.URL)
		duration := time.Since(start)

		if err == nil {
			if err := s.ledger.MarkSuccess(cand.URL, s.clk.Now()); err != nil {
				return outcomePending, err
			}
			metrics.ObserveSubmission("success", duration)
			s.publish(ctx, cand.URL, ledger.StatusSuccess, attempt)
			s.logger.Info("url accepted", zap.String("url", cand.URL), zap.Int("attempt", attempt))
			return outcomeSuccess, nil
		}

		class := classOf(err)
		s.logger.Warn("submission attempt failed",
			zap.String("url", cand.URL),
			zap.Int("attempt", attempt),
			zap.String("class", class.String()),
			zap.Error(err),
		)

		switch class {
		case indexing.ClassFatal:
			if lerr := s.ledger.ExhaustRetries(cand.URL, s.clk.Now(), s.cfg.MaxRetries); lerr != nil {
				return outcomePending, lerr
			}
			metrics.ObserveSubmission("failed", duration)
			s.publish(ctx, cand.URL, ledger.StatusFailed, attempt)
			return outcomeFatal, &FatalError{URL: cand.URL, Err: err}

		case indexing.ClassPermanent:
			if lerr := s.ledger.ExhaustRetries(cand.URL, s.clk.Now(), s.cfg.MaxRetries); lerr != nil {
				return outcomePending, lerr
			}
			metrics.ObserveSubmission("failed", duration)
			s.publish(ctx, cand.URL, ledger.StatusFailed, attempt)
			return outcomeFailed, nil

		default:
			if lerr := s.ledger.MarkFailure(cand.URL, s.clk.Now(), true, s.cfg.MaxRetries); lerr != nil {
				return outcomePending, lerr
			}
			rec, _ := s.ledger.Get(cand.URL)
			if rec.Status == ledger.StatusFailed {
				metrics.ObserveSubmission("failed", duration)
				s.publish(ctx, cand.URL, ledger.StatusFailed, attempt)
				return outcomeFailed, nil
			}
			if attempt < s.cfg.MaxRetries {
				metrics.IncRetry()
				// Linear backoff on top of the pacing limiter.
				s.sleep(s.cfg.RequestDelay * time.Duration(attempt))
			}
		}
	}
	return outcomePending, nil
}

func (s *Scheduler) publish(ctx context.Context, url string, status ledger.Status, attempts int) {
	if s.pub == nil || s.cfg.Topic == "" {
		return
	}
	event := publisher.Event{
		RunID:    s.runID,
		URL:      url,
		Status:   string(status),
		Attempts: attempts,
		At:       s.clk.Now(),
	}
	if _, err := s.pub.Publish(ctx, s.cfg.Topic, event); err != nil {
		s.logger.Warn("publish event failed", zap.String("url", url), zap.Error(err))
	}
}

func classOf(err error) indexing.Class {
	var subErr *indexing.SubmissionError
	if errors.As(err, &subErr) {
		return subErr.Class
	}
	// An unclassified error carries no HTTP status; treat it like a
	// transport failure and retry.
	return indexing.ClassTransient
}
