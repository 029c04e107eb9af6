// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pdiddy/bookfeed/pkg/types"
)

const bookColumns = `b.id, b.book_id, b.version, b.title, b.description, b.created_at, b.updated_at`

// bookOrder is the catalog's display order for books.
const bookOrder = `ORDER BY b.title, b.version, b.id`

type scanner interface {
	Scan(dest ...any) error
}

// bookDest returns scan destinations for bookColumns and a function that
// copies the scanned values into book.
func bookDest(book *types.Book) ([]any, func()) {
	var desc sql.NullString
	var created, updated string
	dest := []any{&book.ID, &book.BookID, &book.Version, &book.Title, &desc, &created, &updated}
	return dest, func() {
		book.Description = desc.String
		book.CreatedAt = parseTime(created)
		book.UpdatedAt = parseTime(updated)
	}
}

func scanBook(row scanner) (*types.Book, error) {
	var book types.Book
	dest, finish := bookDest(&book)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	finish()
	return &book, nil
}

// FindBook returns the first book with bookID in (title, version) order,
// pinned to version unless it is empty. It returns nil when none exists.
func (t *Tx) FindBook(ctx context.Context, bookID, version string) (*types.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books b WHERE b.book_id = ?`
	args := []any{bookID}
	if version != "" {
		query += ` AND b.version = ?`
		args = append(args, version)
	}
	query += ` ` + bookOrder + ` LIMIT 1`

	book, err := scanBook(t.q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding book %s: %w", bookID, err)
	}
	return book, nil
}

// ListBooks returns every version of bookID in (title, version) order.
func (t *Tx) ListBooks(ctx context.Context, bookID string) ([]types.Book, error) {
	return t.queryBooks(ctx,
		`SELECT `+bookColumns+` FROM books b WHERE b.book_id = ? `+bookOrder, bookID)
}

func (t *Tx) queryBooks(ctx context.Context, query string, args ...any) ([]types.Book, error) {
	rows, err := t.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying books: %w", err)
	}
	defer rows.Close()

	var books []types.Book
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning book: %w", err)
		}
		books = append(books, *book)
	}
	return books, rows.Err()
}

// UpsertBook creates the (bookID, version) row or overwrites its title and
// description.
func (t *Tx) UpsertBook(ctx context.Context, bookID, version, title, description string) (*types.Book, error) {
	now := t.timestamp()
	_, err := t.q.ExecContext(ctx,
		`INSERT INTO books (book_id, version, title, description, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(book_id, version) DO UPDATE SET
			title=excluded.title, description=excluded.description, updated_at=excluded.updated_at`,
		bookID, version, title, nullableString(description), now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("upserting book %s %s: %w", bookID, version, err)
	}

	book, err := t.FindBook(ctx, bookID, version)
	if err != nil {
		return nil, err
	}
	if book == nil {
		return nil, fmt.Errorf("upserting book %s %s: row not found after write", bookID, version)
	}
	return book, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
