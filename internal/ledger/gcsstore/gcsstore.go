// Package gcsstore persists ledger snapshots as one GCS object per domain.
// Object replacement is atomic on the provider side, so a crash mid-upload
// never corrupts the previous consistent snapshot.
package gcsstore

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"

	"github.com/searchpress/indexrunner/internal/ledger"
	"github.com/searchpress/indexrunner/internal/ledger/csvstore"
)

// Config captures the parameters required to locate the ledger object.
type Config struct {
	Bucket string
	Domain string
}

// Store reads and writes the ledger object for a single domain.
type Store struct {
	client *storage.Client
	bucket string
	object string
}

// New creates a GCS-backed ledger store.
func New(client *storage.Client, cfg Config) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	if cfg.Domain == "" {
		return nil, fmt.Errorf("domain is required")
	}
	return &Store{
		client: client,
		bucket: cfg.Bucket,
		object: fmt.Sprintf("ledgers/%s.csv", cfg.Domain),
	}, nil
}

// URI returns the gs:// location of the ledger object.
func (s *Store) URI() string {
	return fmt.Sprintf("gs://%s/%s", s.bucket, s.object)
}

// Load reads the persisted ledger. An absent object yields an empty record set.
func (s *Store) Load(ctx context.Context) ([]ledger.Record, error) {
	r, err := s.client.Bucket(s.bucket).Object(s.object).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open ledger object: %w", err)
	}
	defer r.Close() //nolint:errcheck // read-only handle

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read ledger object: %w", err)
	}
	return csvstore.Unmarshal(data)
}

// Persist replaces the ledger object with the full snapshot.
func (s *Store) Persist(ctx context.Context, records []ledger.Record) error {
	data, err := csvstore.Marshal(records)
	if err != nil {
		return err
	}

	w := s.client.Bucket(s.bucket).Object(s.object).NewWriter(ctx)
	w.ContentType = "text/csv"
	if _, err := w.Write(data); err != nil {
		closeErr := w.Close()
		if closeErr != nil {
			return fmt.Errorf("write ledger object: %w (close writer: %v)", err, closeErr)
		}
		return fmt.Errorf("write ledger object: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close ledger object writer: %w", err)
	}
	return nil
}
