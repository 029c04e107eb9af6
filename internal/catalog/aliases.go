// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pdiddy/bookfeed/pkg/types"
)

const aliasSelect = `SELECT a.id, a.scheme, a.value, a.created_at, ` + bookColumns + `
	FROM aliases a JOIN books b ON b.id = a.book_pk`

func scanAlias(row scanner) (*types.Alias, error) {
	var (
		alias   types.Alias
		created string
	)
	bookDst, finish := bookDest(&alias.Book)
	dest := append([]any{&alias.ID, &alias.Scheme, &alias.Value, &created}, bookDst...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	finish()
	alias.CreatedAt = parseTime(created)
	return &alias, nil
}

func (t *Tx) findAlias(ctx context.Context, where string, args ...any) (*types.Alias, error) {
	alias, err := scanAlias(t.q.QueryRowContext(ctx, aliasSelect+` WHERE `+where+` ORDER BY a.id LIMIT 1`, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return alias, err
}

// FindAlias returns the oldest alias with (scheme, value) anywhere in the
// catalog, with its owning book, or nil when none exists.
func (t *Tx) FindAlias(ctx context.Context, scheme, value string) (*types.Alias, error) {
	alias, err := t.findAlias(ctx, `a.scheme = ? AND a.value = ?`, scheme, value)
	if err != nil {
		return nil, fmt.Errorf("finding alias %s:%s: %w", scheme, value, err)
	}
	return alias, nil
}

// ListAliases returns the aliases owned by book in creation order.
func (t *Tx) ListAliases(ctx context.Context, book types.Book) ([]types.Alias, error) {
	rows, err := t.q.QueryContext(ctx, aliasSelect+` WHERE a.book_pk = ? ORDER BY a.id`, book.ID)
	if err != nil {
		return nil, fmt.Errorf("listing aliases: %w", err)
	}
	defer rows.Close()

	var aliases []types.Alias
	for rows.Next() {
		alias, err := scanAlias(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning alias: %w", err)
		}
		aliases = append(aliases, *alias)
	}
	return aliases, rows.Err()
}

// GetOrCreateAlias attaches (scheme, value) to book. A book holds each
// value once: if book already owns value, under any scheme, that alias is
// returned and created is false.
func (t *Tx) GetOrCreateAlias(ctx context.Context, book types.Book, scheme, value string) (*types.Alias, bool, error) {
	res, err := t.q.ExecContext(ctx,
		`INSERT INTO aliases (book_pk, scheme, value, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(book_pk, value) DO NOTHING`,
		book.ID, scheme, value, t.timestamp(),
	)
	if err != nil {
		return nil, false, fmt.Errorf("inserting alias %s:%s: %w", scheme, value, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("inserting alias %s:%s: %w", scheme, value, err)
	}

	alias, err := t.findAlias(ctx, `a.book_pk = ? AND a.value = ?`, book.ID, value)
	if err != nil {
		return nil, false, fmt.Errorf("reading alias %s:%s: %w", scheme, value, err)
	}
	if alias == nil {
		return nil, false, fmt.Errorf("reading alias %s:%s: row not found after write", scheme, value)
	}
	return alias, n == 1, nil
}
