// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package catalog persists books, aliases and reconciliation issues in
// SQLite.
//
// Writes happen inside WithinTx, which opens an immediate (write-locking)
// transaction so that concurrent files touching the same book id are
// serialized by the database. The Tx handed to the callback implements
// the lookups and get-or-create operations the reconciler needs; read-only
// listing and export run directly on the Store.
package catalog

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/bookfeed/pkg/types"
)

const (
	// DefaultPath is used when CatalogConfig.Path is empty.
	DefaultPath = "catalog/bookfeed.db"

	defaultBusyRetries = 5
	timeLayout         = time.RFC3339Nano
)

// Store manages the catalog SQLite database.
type Store struct {
	db          *sql.DB
	path        string
	busyRetries int
	now         func() time.Time
}

// NewStore opens or creates the catalog database at cfg.Path and creates
// the schema if it does not exist.
func NewStore(cfg types.CatalogConfig) (*Store, error) {
	dbPath := cfg.Path
	if dbPath == "" {
		dbPath = DefaultPath
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating catalog directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	retries := cfg.BusyRetries
	if retries <= 0 {
		retries = defaultBusyRetries
	}

	s := &Store{
		db:          db,
		path:        dbPath,
		busyRetries: retries,
		now:         func() time.Time { return time.Now().UTC() },
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Dir returns the directory holding the database; exports are written there.
func (s *Store) Dir() string { return filepath.Dir(s.path) }

// Close releases the database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS books (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			book_id TEXT NOT NULL,
			version TEXT NOT NULL,
			title TEXT NOT NULL,
			description TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			UNIQUE (book_id, version)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_books_title ON books(title, version)`,
		`CREATE INDEX IF NOT EXISTS idx_books_updated_at ON books(updated_at)`,
		`CREATE TABLE IF NOT EXISTS aliases (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			book_pk INTEGER NOT NULL REFERENCES books(id),
			scheme TEXT NOT NULL,
			value TEXT NOT NULL,
			created_at TEXT NOT NULL,
			UNIQUE (book_pk, value)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_aliases_scheme_value ON aliases(scheme, value)`,
		`CREATE INDEX IF NOT EXISTS idx_aliases_value ON aliases(value)`,
		`CREATE TABLE IF NOT EXISTS alias_used_as_book_id_issues (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			alias_id INTEGER NOT NULL REFERENCES aliases(id),
			book_pk INTEGER NOT NULL REFERENCES books(id),
			source_file TEXT NOT NULL,
			created_at TEXT NOT NULL,
			UNIQUE (alias_id, book_pk, source_file)
		)`,
		`CREATE TABLE IF NOT EXISTS alias_used_to_resolve_book_id_issues (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			alias_id INTEGER NOT NULL REFERENCES aliases(id),
			book_pk INTEGER NOT NULL REFERENCES books(id),
			source_file TEXT NOT NULL,
			created_at TEXT NOT NULL,
			UNIQUE (alias_id, book_pk, source_file)
		)`,
		`CREATE TABLE IF NOT EXISTS alias_points_to_conflicting_book_issues (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			book_pk INTEGER NOT NULL REFERENCES books(id),
			scheme TEXT NOT NULL,
			value TEXT NOT NULL,
			source_file TEXT NOT NULL,
			created_at TEXT NOT NULL,
			UNIQUE (book_pk, scheme, value, source_file)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_conflict_issues_value ON alias_points_to_conflicting_book_issues(value)`,
		`CREATE TABLE IF NOT EXISTS version_unspecified_issues (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			book_id TEXT NOT NULL,
			source_file TEXT NOT NULL,
			created_at TEXT NOT NULL,
			UNIQUE (book_id, source_file)
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}
