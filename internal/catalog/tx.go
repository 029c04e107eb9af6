// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// dbtx is the subset of *sql.DB and *sql.Tx used by queries.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Tx is a catalog view bound to one transaction. It implements the
// lookups and get-or-create operations of the reconciler's Catalog.
type Tx struct {
	q   dbtx
	now func() time.Time
}

// WithinTx runs fn in a single write transaction: everything fn writes
// commits together or not at all. fn's error rolls the transaction back
// and is returned unchanged.
//
// When the database is locked by another writer the whole transaction is
// retried with backoff, so fn may run more than once and must not keep
// state across calls.
func (s *Store) WithinTx(ctx context.Context, fn func(tx *Tx) error) error {
	return withBusyRetry(ctx, s.busyRetries, func() error {
		return s.runTx(ctx, fn)
	})
}

func (s *Store) runTx(ctx context.Context, fn func(tx *Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&Tx{q: sqlTx, now: s.now}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// reader returns a Tx over the connection pool for read-only queries.
func (s *Store) reader() *Tx {
	return &Tx{q: s.db, now: s.now}
}

func (t *Tx) timestamp() string {
	return t.now().Format(timeLayout)
}

func parseTime(s string) time.Time {
	ts, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return ts
}
