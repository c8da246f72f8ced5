// Package csvstore persists ledger snapshots as one CSV file per domain.
// The CSV codec is exported so other snapshot stores can reuse the format.
package csvstore

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/searchpress/indexrunner/internal/ledger"
)

var header = []string{"url", "status", "lastmod", "created_at", "updated_at", "retry_count"}

// Store reads and writes the ledger CSV for a single domain.
type Store struct {
	path string
}

// New creates a Store rooted at dataDir. The backing file is named after the
// tracked domain, e.g. data/myblog.tistory.com.csv.
func New(dataDir, domain string) (*Store, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("data directory is required")
	}
	if domain == "" {
		return nil, fmt.Errorf("domain is required")
	}
	return &Store{path: filepath.Join(dataDir, domain+".csv")}, nil
}

// Path returns the backing file location.
func (s *Store) Path() string { return s.path }

// Load reads the persisted ledger. An absent file yields an empty record set.
func (s *Store) Load(_ context.Context) ([]ledger.Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read ledger file: %w", err)
	}
	return Unmarshal(data)
}

// Persist writes the full snapshot using write-to-temp-then-rename so a crash
// mid-write never corrupts the previous consistent file.
func (s *Store) Persist(_ context.Context, records []ledger.Record) error {
	data, err := Marshal(records)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create ledger directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp ledger file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // no-op after successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck,gosec
		return fmt.Errorf("write temp ledger file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close() //nolint:errcheck,gosec
		return fmt.Errorf("sync temp ledger file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp ledger file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace ledger file: %w", err)
	}
	return nil
}

// Marshal encodes records as CSV with a header row.
func Marshal(records []ledger.Record) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("write ledger header: %w", err)
	}
	for _, rec := range records {
		if err := w.Write(encodeRow(rec)); err != nil {
			return nil, fmt.Errorf("write ledger row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush ledger csv: %w", err)
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes a CSV payload produced by Marshal. The header row is
// optional so hand-edited files still load.
func Unmarshal(data []byte) ([]ledger.Record, error) {
	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read ledger csv: %w", err)
	}

	var records []ledger.Record
	for i, row := range rows {
		if i == 0 && len(row) > 0 && row[0] == header[0] {
			continue
		}
		rec, err := decodeRow(row)
		if err != nil {
			return nil, fmt.Errorf("ledger row %d: %w", i+1, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func encodeRow(rec ledger.Record) []string {
	lastMod := ""
	if rec.LastModified != nil {
		lastMod = rec.LastModified.Format(time.RFC3339)
	}
	return []string{
		rec.URL,
		string(rec.Status),
		lastMod,
		rec.CreatedAt.Format(time.RFC3339),
		rec.UpdatedAt.Format(time.RFC3339),
		strconv.Itoa(rec.RetryCount),
	}
}

func decodeRow(row []string) (ledger.Record, error) {
	if len(row) != len(header) {
		return ledger.Record{}, fmt.Errorf("expected %d columns, got %d", len(header), len(row))
	}

	status := ledger.Status(row[1])
	switch status {
	case ledger.StatusPending, ledger.StatusSuccess, ledger.StatusFailed:
	default:
		return ledger.Record{}, fmt.Errorf("unknown status %q", row[1])
	}

	var lastMod *time.Time
	if row[2] != "" {
		t, err := time.Parse(time.RFC3339, row[2])
		if err != nil {
			return ledger.Record{}, fmt.Errorf("parse lastmod: %w", err)
		}
		lastMod = &t
	}
	createdAt, err := time.Parse(time.RFC3339, row[3])
	if err != nil {
		return ledger.Record{}, fmt.Errorf("parse created_at: %w", err)
	}
	updatedAt, err := time.Parse(time.RFC3339, row[4])
	if err != nil {
		return ledger.Record{}, fmt.Errorf("parse updated_at: %w", err)
	}
	retryCount, err := strconv.Atoi(row[5])
	if err != nil {
		return ledger.Record{}, fmt.Errorf("parse retry_count: %w", err)
	}
	if retryCount < 0 {
		return ledger.Record{}, fmt.Errorf("negative retry_count %d", retryCount)
	}

	return ledger.Record{
		URL:          row[0],
		Status:       status,
		LastModified: lastMod,
		CreatedAt:    createdAt,
		UpdatedAt:    updatedAt,
		RetryCount:   retryCount,
	}, nil
}
