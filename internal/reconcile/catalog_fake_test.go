// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/pdiddy/bookfeed/pkg/types"
)

// memCatalog is an in-memory Catalog for exercising the algorithms
// without SQLite. failOn makes the named method return errBoom.
type memCatalog struct {
	books   []types.Book
	aliases []types.Alias
	issues  []types.Issue
	nextID  int64
	failOn  string
}

var errBoom = errors.New("boom")

func newMemCatalog() *memCatalog { return &memCatalog{} }

func (m *memCatalog) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memCatalog) fail(op string) error {
	if m.failOn == op {
		return errBoom
	}
	return nil
}

// addBook seeds a book directly.
func (m *memCatalog) addBook(bookID, version, title string) types.Book {
	b := types.Book{ID: m.id(), BookID: bookID, Version: version, Title: title}
	m.books = append(m.books, b)
	return b
}

// addAlias seeds an alias directly.
func (m *memCatalog) addAlias(book types.Book, scheme, value string) types.Alias {
	a := types.Alias{ID: m.id(), Book: book, Scheme: scheme, Value: value}
	m.aliases = append(m.aliases, a)
	return a
}

func (m *memCatalog) bookByPK(id int64) types.Book {
	for _, b := range m.books {
		if b.ID == id {
			return b
		}
	}
	return types.Book{}
}

func (m *memCatalog) sorted(bookID string) []types.Book {
	var out []types.Book
	for _, b := range m.books {
		if b.BookID == bookID {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Title != out[j].Title {
			return out[i].Title < out[j].Title
		}
		return out[i].Version < out[j].Version
	})
	return out
}

func (m *memCatalog) FindBook(_ context.Context, bookID, version string) (*types.Book, error) {
	if err := m.fail("FindBook"); err != nil {
		return nil, err
	}
	for _, b := range m.sorted(bookID) {
		if version == "" || b.Version == version {
			return &b, nil
		}
	}
	return nil, nil
}

func (m *memCatalog) ListBooks(_ context.Context, bookID string) ([]types.Book, error) {
	if err := m.fail("ListBooks"); err != nil {
		return nil, err
	}
	return m.sorted(bookID), nil
}

func (m *memCatalog) FindAlias(_ context.Context, scheme, value string) (*types.Alias, error) {
	if err := m.fail("FindAlias"); err != nil {
		return nil, err
	}
	for _, a := range m.aliases {
		if a.Scheme == scheme && a.Value == value {
			a.Book = m.bookByPK(a.Book.ID)
			return &a, nil
		}
	}
	return nil, nil
}

func (m *memCatalog) ListAliases(_ context.Context, book types.Book) ([]types.Alias, error) {
	if err := m.fail("ListAliases"); err != nil {
		return nil, err
	}
	var out []types.Alias
	for _, a := range m.aliases {
		if a.Book.ID == book.ID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memCatalog) UpsertBook(_ context.Context, bookID, version, title, description string) (*types.Book, error) {
	if err := m.fail("UpsertBook"); err != nil {
		return nil, err
	}
	for i := range m.books {
		if m.books[i].BookID == bookID && m.books[i].Version == version {
			m.books[i].Title = title
			m.books[i].Description = description
			b := m.books[i]
			return &b, nil
		}
	}
	b := types.Book{ID: m.id(), BookID: bookID, Version: version, Title: title, Description: description}
	m.books = append(m.books, b)
	return &b, nil
}

func (m *memCatalog) GetOrCreateAlias(_ context.Context, book types.Book, scheme, value string) (*types.Alias, bool, error) {
	if err := m.fail("GetOrCreateAlias"); err != nil {
		return nil, false, err
	}
	for _, a := range m.aliases {
		if a.Book.ID == book.ID && a.Value == value {
			return &a, false, nil
		}
	}
	a := m.addAlias(book, scheme, value)
	return &a, true, nil
}

func issueKey(i types.Issue) string {
	var aliasID, bookPK int64
	if i.Alias != nil {
		aliasID = i.Alias.ID
	}
	if i.Book != nil {
		bookPK = i.Book.ID
	}
	return fmt.Sprintf("%s|%d|%d|%s|%s|%s|%s", i.Kind, aliasID, bookPK, i.Scheme, i.Value, i.BookID, i.SourceFile)
}

func (m *memCatalog) RecordIssue(_ context.Context, issue types.Issue) (*types.Issue, bool, error) {
	if err := m.fail("RecordIssue"); err != nil {
		return nil, false, err
	}
	key := issueKey(issue)
	for _, existing := range m.issues {
		if issueKey(existing) == key {
			return &existing, false, nil
		}
	}
	issue.ID = m.id()
	m.issues = append(m.issues, issue)
	return &issue, true, nil
}

func (m *memCatalog) issuesOf(kind types.IssueKind) []types.Issue {
	var out []types.Issue
	for _, i := range m.issues {
		if i.Kind == kind {
			out = append(out, i)
		}
	}
	return out
}

func (m *memCatalog) aliasPairs(book types.Book) []types.AliasPair {
	var out []types.AliasPair
	for _, a := range m.aliases {
		if a.Book.ID == book.ID {
			out = append(out, a.Pair())
		}
	}
	return out
}
