package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/searchpress/indexrunner/internal/sitemap"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func entries(urls ...string) []sitemap.Entry {
	out := make([]sitemap.Entry, 0, len(urls))
	for _, u := range urls {
		out = append(out, sitemap.Entry{URL: u})
	}
	return out
}

func TestMergeAddsPendingRows(t *testing.T) {
	t.Parallel()

	l := New(nil)
	res := l.Merge(entries("https://a", "https://b"), t0)
	require.Equal(t, MergeResult{Added: 2}, res)

	rec, ok := l.Get("https://a")
	require.True(t, ok)
	require.Equal(t, StatusPending, rec.Status)
	require.Equal(t, 0, rec.RetryCount)
	require.Equal(t, t0, rec.CreatedAt)
}

func TestMergeIsIdempotent(t *testing.T) {
	t.Parallel()

	lm := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	in := []sitemap.Entry{
		{URL: "https://a", LastModified: &lm},
		{URL: "https://b"},
	}

	l := New(nil)
	l.Merge(in, t0)
	before := l.Snapshot()

	res := l.Merge(in, t0.Add(time.Hour))
	require.Equal(t, MergeResult{}, res)
	require.Equal(t, before, l.Snapshot())
}

func TestMergeNeverRegressesTerminalRows(t *testing.T) {
	t.Parallel()

	l := New(nil)
	l.Merge(entries("https://done", "https://dead"), t0)
	require.NoError(t, l.MarkSuccess("https://done", t0.Add(time.Minute)))
	require.NoError(t, l.ExhaustRetries("https://dead", t0.Add(time.Minute), 3))

	lm := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	l.Merge([]sitemap.Entry{
		{URL: "https://done", LastModified: &lm},
		{URL: "https://dead", LastModified: &lm},
	}, t0.Add(time.Hour))

	done, _ := l.Get("https://done")
	require.Equal(t, StatusSuccess, done.Status)
	require.Equal(t, &lm, done.LastModified)

	dead, _ := l.Get("https://dead")
	require.Equal(t, StatusFailed, dead.Status)
	require.Equal(t, 3, dead.RetryCount)
}

func TestMergeRefreshCountsOnlyChangedLastMod(t *testing.T) {
	t.Parallel()

	lm1 := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	lm2 := lm1.AddDate(0, 1, 0)

	l := New(nil)
	l.Merge([]sitemap.Entry{{URL: "https://a", LastModified: &lm1}}, t0)

	res := l.Merge([]sitemap.Entry{{URL: "https://a", LastModified: &lm2}}, t0.Add(time.Hour))
	require.Equal(t, MergeResult{Refreshed: 1}, res)

	rec, _ := l.Get("https://a")
	require.Equal(t, StatusPending, rec.Status)
	require.Equal(t, &lm2, rec.LastModified)
	require.Equal(t, t0.Add(time.Hour), rec.UpdatedAt)
}

func TestPendingLimitAndOrder(t *testing.T) {
	t.Parallel()

	l := New(nil)
	l.Merge(entries("https://a"), t0)
	l.Merge(entries("https://b"), t0.Add(time.Minute))
	l.Merge(entries("https://c"), t0.Add(2*time.Minute))
	require.NoError(t, l.MarkSuccess("https://a", t0.Add(time.Hour)))

	got := l.Pending(10)
	require.Len(t, got, 2)
	require.Equal(t, "https://b", got[0].URL)
	require.Equal(t, "https://c", got[1].URL)

	got = l.Pending(1)
	require.Len(t, got, 1)
	require.Equal(t, "https://b", got[0].URL)

	require.Empty(t, l.Pending(0))
}

func TestMarkSuccessUnknownURL(t *testing.T) {
	t.Parallel()

	l := New(nil)
	err := l.MarkSuccess("https://ghost", t0)
	var unknown *UnknownURLError
	require.ErrorAs(t, err, &unknown)
	require.Equal(t, "https://ghost", unknown.URL)
}

func TestMarkFailureFlipsAtMaxRetries(t *testing.T) {
	t.Parallel()

	const maxRetries = 3

	l := New(nil)
	l.Merge(entries("https://x"), t0)

	for i := 1; i < maxRetries; i++ {
		require.NoError(t, l.MarkFailure("https://x", t0.Add(time.Duration(i)*time.Second), true, maxRetries))
		rec, _ := l.Get("https://x")
		require.Equal(t, StatusPending, rec.Status, "attempt %d should leave the row pending", i)
		require.Equal(t, i, rec.RetryCount)
	}

	require.NoError(t, l.MarkFailure("https://x", t0.Add(time.Minute), true, maxRetries))
	rec, _ := l.Get("https://x")
	require.Equal(t, StatusFailed, rec.Status)
	require.Equal(t, maxRetries, rec.RetryCount)
}

func TestExhaustRetriesKeepsInvariant(t *testing.T) {
	t.Parallel()

	l := New(nil)
	l.Merge(entries("https://x"), t0)
	require.NoError(t, l.ExhaustRetries("https://x", t0.Add(time.Second), 3))

	rec, _ := l.Get("https://x")
	require.Equal(t, StatusFailed, rec.Status)
	require.GreaterOrEqual(t, rec.RetryCount, 3)
}

func TestStatisticsAndSnapshot(t *testing.T) {
	t.Parallel()

	l := New(nil)
	l.Merge(entries("https://a", "https://b", "https://c", "https://d"), t0)
	require.NoError(t, l.MarkSuccess("https://a", t0))
	require.NoError(t, l.ExhaustRetries("https://b", t0, 3))

	stats := l.Statistics()
	require.Equal(t, Statistics{Total: 4, Pending: 2, Success: 1, Failed: 1}, stats)

	snap := l.Snapshot()
	require.Len(t, snap, 4)
	require.Equal(t, "https://a", snap[0].URL)
	require.Equal(t, "https://d", snap[3].URL)
}

func TestNewPreservesLoadedOrder(t *testing.T) {
	t.Parallel()

	records := []Record{
		{URL: "https://b", Status: StatusPending, CreatedAt: t0.Add(time.Minute), UpdatedAt: t0.Add(time.Minute)},
		{URL: "https://a", Status: StatusSuccess, CreatedAt: t0, UpdatedAt: t0},
	}
	l := New(records)

	snap := l.Snapshot()
	require.Equal(t, "https://b", snap[0].URL)
	require.Equal(t, "https://a", snap[1].URL)

	// Oldest CreatedAt still wins for pending selection regardless of order.
	l.Merge(entries("https://c"), t0.Add(2*time.Minute))
	got := l.Pending(10)
	require.Equal(t, "https://b", got[0].URL)
	require.Equal(t, "https://c", got[1].URL)
}
