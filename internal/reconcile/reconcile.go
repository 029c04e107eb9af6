// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package reconcile merges publisher book records into the catalog.
//
// A record passes through four steps, in order: the declared identifier is
// resolved to a canonical book id, a version is inferred when the record
// has none, the (book id, version) row is upserted, and the record's
// aliases are merged onto it. Whenever a step has to guess or override the
// input it records an issue in the catalog rather than failing, so every
// irregular decision can be audited and revisited later.
//
// The package holds no state between records; all lookups go through the
// Catalog passed to Process.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pdiddy/bookfeed/pkg/types"
)

// DefaultTrustedSchemes are the alias schemes, in precedence order, whose
// values are treated as universal identifiers when a declared id matches
// no book.
var DefaultTrustedSchemes = []string{"ISBN-10", "ISBN-13"}

// ErrInvalidRecord is returned when a record lacks a declared id or a
// title. Nothing is written to the catalog in that case.
var ErrInvalidRecord = errors.New("invalid book record")

// CatalogError wraps a failure of the underlying catalog. The file being
// processed must be rolled back.
type CatalogError struct {
	Op  string
	Err error
}

func (e *CatalogError) Error() string {
	return fmt.Sprintf("catalog %s: %v", e.Op, e.Err)
}

func (e *CatalogError) Unwrap() error { return e.Err }

func catalogErr(op string, err error) error {
	return &CatalogError{Op: op, Err: err}
}

// Catalog is the store the reconciler reads and writes. Lookups return a
// nil pointer and nil error when nothing matches. Implementations are
// expected to run every call of one Process invocation inside a single
// transaction.
type Catalog interface {
	// FindBook returns a book with bookID. An empty version matches any
	// version; the first book in (title, version) order is returned.
	FindBook(ctx context.Context, bookID, version string) (*types.Book, error)

	// ListBooks returns every version of bookID in (title, version) order.
	ListBooks(ctx context.Context, bookID string) ([]types.Book, error)

	// FindAlias returns the first alias with (scheme, value), with its
	// owning book populated.
	FindAlias(ctx context.Context, scheme, value string) (*types.Alias, error)

	// ListAliases returns the aliases owned by book.
	ListAliases(ctx context.Context, book types.Book) ([]types.Alias, error)

	// UpsertBook creates or updates the (bookID, version) row.
	UpsertBook(ctx context.Context, bookID, version, title, description string) (*types.Book, error)

	// GetOrCreateAlias attaches (scheme, value) to book unless book already
	// owns value. created reports whether a row was inserted.
	GetOrCreateAlias(ctx context.Context, book types.Book, scheme, value string) (alias *types.Alias, created bool, err error)

	// RecordIssue stores issue unless one with the same natural key exists,
	// and returns the stored issue.
	RecordIssue(ctx context.Context, issue types.Issue) (stored *types.Issue, created bool, err error)
}

// Result describes what Process did with one record.
type Result struct {
	ResolvedID string
	Version    string
	Book       types.Book

	// Issues holds every issue the record produced, including ones that
	// already existed from an earlier run of the same file.
	Issues []types.Issue

	// NewIssues counts issues created by this call.
	NewIssues int

	Attached   []types.AliasPair
	Backfilled []types.AliasPair
	Conflicts  []types.AliasPair
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithTrustedSchemes replaces DefaultTrustedSchemes. Order is precedence.
func WithTrustedSchemes(schemes []string) Option {
	return func(r *Reconciler) {
		if len(schemes) > 0 {
			r.trusted = append([]string(nil), schemes...)
		}
	}
}

// WithLogger sets the logger used for decision tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reconciler) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Reconciler applies book records to a Catalog.
type Reconciler struct {
	trusted []string
	logger  *slog.Logger
}

// New returns a Reconciler using DefaultTrustedSchemes unless overridden.
func New(opts ...Option) *Reconciler {
	r := &Reconciler{
		trusted: append([]string(nil), DefaultTrustedSchemes...),
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// TrustedSchemes returns the schemes consulted by identifier resolution,
// in precedence order.
func (r *Reconciler) TrustedSchemes() []string {
	return append([]string(nil), r.trusted...)
}

// Process resolves, versions, upserts and merges one record. Issues are
// data, not errors: the only failures are ErrInvalidRecord and
// *CatalogError.
func (r *Reconciler) Process(ctx context.Context, cat Catalog, rec types.BookRecord) (Result, error) {
	rec = normalizeRecord(rec)
	if err := validateRecord(rec); err != nil {
		return Result{}, err
	}

	var res Result
	rc := &run{Reconciler: r, cat: cat, rec: rec, res: &res}

	resolved, err := rc.resolveBookID(ctx)
	if err != nil {
		return Result{}, err
	}
	res.ResolvedID = resolved

	version, err := rc.inferVersion(ctx, resolved)
	if err != nil {
		return Result{}, err
	}
	res.Version = version

	book, err := cat.UpsertBook(ctx, resolved, version, rec.Title, rec.Description)
	if err != nil {
		return Result{}, catalogErr("upserting book", err)
	}
	res.Book = *book

	if err := rc.reconcileAliases(ctx, *book); err != nil {
		return Result{}, err
	}

	r.logger.Debug("record reconciled",
		"source_file", rec.SourceFile,
		"declared_id", rec.DeclaredID,
		"book", book.String(),
		"book_id", resolved,
		"issues", len(res.Issues),
	)
	return res, nil
}

// run carries the per-record state shared by the resolution steps.
type run struct {
	*Reconciler
	cat Catalog
	rec types.BookRecord
	res *Result
}
