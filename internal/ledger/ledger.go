// Package ledger tracks the submission lifecycle of every discovered URL.
//
// The ledger is the source of truth across runs: rows are created when a URL
// first appears in a sitemap merge, mutated by the scheduler after submission
// attempts, and never deleted. PENDING is the only non-terminal state.
package ledger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/searchpress/indexrunner/internal/sitemap"
)

// Status is the lifecycle state of a tracked URL.
type Status string

// Lifecycle states. SUCCESS and FAILED are terminal.
const (
	StatusPending Status = "PENDING"
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
)

// Record is one row of the ledger, keyed by URL.
type Record struct {
	URL          string
	Status       Status
	LastModified *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
	RetryCount   int
}

// UnknownURLError reports a status write against a URL the ledger has never
// seen. This is an internal-consistency violation, not a user-facing
// condition; callers treat it as fatal.
type UnknownURLError struct {
	URL string
}

func (e *UnknownURLError) Error() string {
	return fmt.Sprintf("ledger: unknown url %q", e.URL)
}

// MergeResult reports what a sitemap merge changed.
type MergeResult struct {
	Added     int
	Refreshed int
}

// Statistics aggregates the ledger by status.
type Statistics struct {
	Total   int
	Pending int
	Success int
	Failed  int
}

// Store persists ledger snapshots. Load on an absent backing resource yields
// an empty record set, not an error. Persist must be atomic with respect to a
// concurrent reader of the same resource.
type Store interface {
	Load(ctx context.Context) ([]Record, error)
	Persist(ctx context.Context, records []Record) error
}

// Ledger is the in-memory record set for one domain during a run.
// It is not safe for concurrent use; a run is single-threaded by design.
type Ledger struct {
	order   []string
	records map[string]*Record
}

// New builds a Ledger from previously persisted records, preserving their
// order as the insertion order.
func New(records []Record) *Ledger {
	l := &Ledger{records: make(map[string]*Record, len(records))}
	for i := range records {
		rec := records[i]
		if _, ok := l.records[rec.URL]; ok {
			continue
		}
		l.order = append(l.order, rec.URL)
		l.records[rec.URL] = &rec
	}
	return l
}

// Merge folds sitemap entries into the ledger. Unseen URLs become PENDING
// rows; rows already present only have their LastModified refreshed, leaving
// Status and RetryCount alone, so terminal rows never regress. Merging the
// same entries twice is a no-op after the first merge.
func (l *Ledger) Merge(entries []sitemap.Entry, at time.Time) MergeResult {
	var res MergeResult
	for _, e := range entries {
		if e.URL == "" {
			continue
		}
		if rec, ok := l.records[e.URL]; ok {
			if !sameTime(rec.LastModified, e.LastModified) && e.LastModified != nil {
				rec.LastModified = e.LastModified
				rec.UpdatedAt = at
				res.Refreshed++
			}
			continue
		}
		l.order = append(l.order, e.URL)
		l.records[e.URL] = &Record{
			URL:          e.URL,
			Status:       StatusPending,
			LastModified: e.LastModified,
			CreatedAt:    at,
			UpdatedAt:    at,
			RetryCount:   0,
		}
		res.Added++
	}
	return res
}

// Pending returns up to limit PENDING records, oldest CreatedAt first so the
// backlog drains fairly. Terminal rows are excluded entirely.
func (l *Ledger) Pending(limit int) []Record {
	if limit <= 0 {
		return nil
	}
	var out []Record
	for _, url := range l.order {
		if rec := l.records[url]; rec.Status == StatusPending {
			out = append(out, *rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// MarkSuccess records a terminal successful submission.
func (l *Ledger) MarkSuccess(url string, at time.Time) error {
	rec, ok := l.records[url]
	if !ok {
		return &UnknownURLError{URL: url}
	}
	rec.Status = StatusSuccess
	rec.UpdatedAt = at
	return nil
}

// MarkFailure records one failed submission attempt. RetryCount is
// incremented when incrementRetry is set, and the row flips to FAILED only
// once the count reaches maxRetries; otherwise it stays PENDING and remains
// eligible for a later run.
func (l *Ledger) MarkFailure(url string, at time.Time, incrementRetry bool, maxRetries int) error {
	rec, ok := l.records[url]
	if !ok {
		return &UnknownURLError{URL: url}
	}
	if incrementRetry {
		rec.RetryCount++
	}
	if rec.RetryCount >= maxRetries {
		rec.Status = StatusFailed
	}
	rec.UpdatedAt = at
	return nil
}

// ExhaustRetries terminates a row after a non-retryable outcome. The retry
// count is raised to at least maxRetries so FAILED always implies an
// exhausted retry budget.
func (l *Ledger) ExhaustRetries(url string, at time.Time, maxRetries int) error {
	rec, ok := l.records[url]
	if !ok {
		return &UnknownURLError{URL: url}
	}
	if rec.RetryCount < maxRetries {
		rec.RetryCount = maxRetries
	}
	rec.Status = StatusFailed
	rec.UpdatedAt = at
	return nil
}

// Get returns a copy of the record for url.
func (l *Ledger) Get(url string) (Record, bool) {
	rec, ok := l.records[url]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// Statistics aggregates the current in-memory state.
func (l *Ledger) Statistics() Statistics {
	stats := Statistics{Total: len(l.order)}
	for _, url := range l.order {
		switch l.records[url].Status {
		case StatusPending:
			stats.Pending++
		case StatusSuccess:
			stats.Success++
		case StatusFailed:
			stats.Failed++
		}
	}
	return stats
}

// Snapshot returns all records in insertion order for persistence.
func (l *Ledger) Snapshot() []Record {
	out := make([]Record, 0, len(l.order))
	for _, url := range l.order {
		out = append(out, *l.records[url])
	}
	return out
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
