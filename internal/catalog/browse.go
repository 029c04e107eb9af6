// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"context"
	"fmt"

	"github.com/pdiddy/bookfeed/pkg/types"
)

// BookEntry is a book with the aliases it owns.
type BookEntry struct {
	types.Book `yaml:",inline"`
	Aliases    []types.AliasPair `json:"aliases" yaml:"aliases"`
}

// ListBooks returns the books with bookID, or every book when bookID is
// empty, in (title, version) order with their aliases.
func (s *Store) ListBooks(ctx context.Context, bookID string) ([]BookEntry, error) {
	r := s.reader()

	var (
		books []types.Book
		err   error
	)
	if bookID == "" {
		books, err = r.queryBooks(ctx, `SELECT `+bookColumns+` FROM books b `+bookOrder)
	} else {
		books, err = r.ListBooks(ctx, bookID)
	}
	if err != nil {
		return nil, err
	}

	entries := make([]BookEntry, len(books))
	for i, book := range books {
		aliases, err := r.ListAliases(ctx, book)
		if err != nil {
			return nil, err
		}
		pairs := make([]types.AliasPair, len(aliases))
		for j, a := range aliases {
			pairs[j] = a.Pair()
		}
		entries[i] = BookEntry{Book: book, Aliases: pairs}
	}
	return entries, nil
}

// Counts summarizes catalog contents.
type Counts struct {
	Books   int                     `json:"books" yaml:"books"`
	Aliases int                     `json:"aliases" yaml:"aliases"`
	Issues  map[types.IssueKind]int `json:"issues" yaml:"issues"`
}

// Count returns row counts for books, aliases and each issue kind.
func (s *Store) Count(ctx context.Context) (Counts, error) {
	c := Counts{Issues: make(map[types.IssueKind]int, len(types.IssueKinds))}

	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM books`).Scan(&c.Books); err != nil {
		return Counts{}, fmt.Errorf("counting books: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM aliases`).Scan(&c.Aliases); err != nil {
		return Counts{}, fmt.Errorf("counting aliases: %w", err)
	}
	for _, kind := range types.IssueKinds {
		var n int
		if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM `+issueTables[kind].table).Scan(&n); err != nil {
			return Counts{}, fmt.Errorf("counting %s issues: %w", kind, err)
		}
		c.Issues[kind] = n
	}
	return c, nil
}
