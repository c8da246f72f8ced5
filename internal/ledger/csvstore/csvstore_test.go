package csvstore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/searchpress/indexrunner/internal/ledger"
)

func TestLoadAbsentFileIsEmpty(t *testing.T) {
	t.Parallel()

	store, err := New(t.TempDir(), "blog.example.com")
	require.NoError(t, err)

	records, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestPersistLoadRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := New(dir, "blog.example.com")
	require.NoError(t, err)

	lm := time.Date(2025, 5, 1, 9, 30, 0, 0, time.UTC)
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	in := []ledger.Record{
		{URL: "https://blog.example.com/1", Status: ledger.StatusSuccess, LastModified: &lm, CreatedAt: created, UpdatedAt: created.Add(time.Hour), RetryCount: 1},
		{URL: "https://blog.example.com/2", Status: ledger.StatusPending, CreatedAt: created, UpdatedAt: created},
		{URL: "https://blog.example.com/3", Status: ledger.StatusFailed, CreatedAt: created, UpdatedAt: created, RetryCount: 3},
	}

	ctx := context.Background()
	require.NoError(t, store.Persist(ctx, in))

	out, err := store.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestPersistLeavesNoTempFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := New(dir, "blog.example.com")
	require.NoError(t, err)

	require.NoError(t, store.Persist(context.Background(), nil))
	require.NoError(t, store.Persist(context.Background(), []ledger.Record{
		{URL: "https://a", Status: ledger.StatusPending, CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC()},
	}))

	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.Equal(t, "blog.example.com.csv", files[0].Name())
}

func TestLoadRejectsCorruptRows(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := New(dir, "blog.example.com")
	require.NoError(t, err)

	body := strings.Join([]string{
		"url,status,lastmod,created_at,updated_at,retry_count",
		"https://a,INDEXING,,2025-06-01T12:00:00Z,2025-06-01T12:00:00Z,0",
	}, "\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "blog.example.com.csv"), []byte(body), 0o600))

	_, err = store.Load(context.Background())
	require.ErrorContains(t, err, "unknown status")
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	_, err := New("", "blog.example.com")
	require.Error(t, err)
	_, err = New("data", "")
	require.Error(t, err)
}
