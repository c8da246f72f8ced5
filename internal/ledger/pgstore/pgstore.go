// Package pgstore persists ledger snapshots in PostgreSQL.
//
// All tracked domains share one table, scoped by the domain column:
//
//	CREATE TABLE ledger_records (
//	    domain      TEXT NOT NULL,
//	    url         TEXT NOT NULL,
//	    status      TEXT NOT NULL,
//	    lastmod     TIMESTAMPTZ,
//	    created_at  TIMESTAMPTZ NOT NULL,
//	    updated_at  TIMESTAMPTZ NOT NULL,
//	    retry_count INT NOT NULL DEFAULT 0,
//	    PRIMARY KEY (domain, url)
//	);
package pgstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/searchpress/indexrunner/internal/ledger"
)

const (
	selectQuery = `SELECT url, status, lastmod, created_at, updated_at, retry_count
FROM ledger_records WHERE domain = $1 ORDER BY created_at, url`

	upsertQuery = `INSERT INTO ledger_records (domain, url, status, lastmod, created_at, updated_at, retry_count)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (domain, url) DO UPDATE
SET status = EXCLUDED.status,
    lastmod = EXCLUDED.lastmod,
    updated_at = EXCLUDED.updated_at,
    retry_count = EXCLUDED.retry_count`
)

// DB is the subset of pgxpool.Pool the store needs; pgxmock satisfies it.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// Store reads and writes ledger rows for a single domain.
type Store struct {
	db     DB
	domain string
}

// New connects to PostgreSQL and pings it to verify the connection.
func New(ctx context.Context, dsn, domain string) (*Store, error) {
	if domain == "" {
		return nil, fmt.Errorf("domain is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{db: pool, domain: domain}, nil
}

// NewWithDB builds a Store over an existing connection, mainly for tests.
func NewWithDB(db DB, domain string) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("db handle is required")
	}
	if domain == "" {
		return nil, fmt.Errorf("domain is required")
	}
	return &Store{db: db, domain: domain}, nil
}

// Load reads every record for the store's domain. A domain with no rows
// yields an empty record set.
func (s *Store) Load(ctx context.Context) ([]ledger.Record, error) {
	rows, err := s.db.Query(ctx, selectQuery, s.domain)
	if err != nil {
		return nil, fmt.Errorf("query ledger rows: %w", err)
	}
	defer rows.Close()

	var records []ledger.Record
	for rows.Next() {
		var rec ledger.Record
		var status string
		if err := rows.Scan(&rec.URL, &status, &rec.LastModified, &rec.CreatedAt, &rec.UpdatedAt, &rec.RetryCount); err != nil {
			return nil, fmt.Errorf("scan ledger row: %w", err)
		}
		rec.Status = ledger.Status(status)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger rows: %w", err)
	}
	return records, nil
}

// Persist upserts the full snapshot in one transaction so a concurrent
// reader only ever observes a consistent ledger.
func (s *Store) Persist(ctx context.Context, records []ledger.Record) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin ledger transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	for _, rec := range records {
		_, err := tx.Exec(ctx, upsertQuery,
			s.domain,
			rec.URL,
			string(rec.Status),
			rec.LastModified,
			rec.CreatedAt,
			rec.UpdatedAt,
			rec.RetryCount,
		)
		if err != nil {
			return fmt.Errorf("upsert ledger row %s: %w", rec.URL, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit ledger transaction: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.db.Close()
}
