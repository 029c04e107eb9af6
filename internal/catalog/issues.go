// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/pdiddy/bookfeed/pkg/types"
)

// ErrUnknownIssueKind is returned for an issue whose Kind is not one of
// types.IssueKinds.
var ErrUnknownIssueKind = errors.New("unknown issue kind")

// issueTable maps an issue kind onto its table. keyColumns and keyArgs
// describe the natural key, which is also the table's UNIQUE constraint.
type issueTable struct {
	kind       types.IssueKind
	table      string
	keyColumns []string
	keyArgs    func(types.Issue) ([]any, error)
	selectCols string
	joins      string
	scan       func(row scanner) (*types.Issue, error)
}

func aliasIssueKey(issue types.Issue) ([]any, error) {
	if issue.Alias == nil || issue.Book == nil {
		return nil, fmt.Errorf("%s issue needs an alias and a book", issue.Kind)
	}
	return []any{issue.Alias.ID, issue.Book.ID, issue.SourceFile}, nil
}

func aliasIssueTable(kind types.IssueKind, table string) issueTable {
	return issueTable{
		kind:       kind,
		table:      table,
		keyColumns: []string{"alias_id", "book_pk", "source_file"},
		keyArgs:    aliasIssueKey,
		selectCols: `i.id, i.source_file, i.created_at, a.id, a.scheme, a.value, a.created_at, ` + bookColumns,
		joins:      `JOIN aliases a ON a.id = i.alias_id JOIN books b ON b.id = i.book_pk`,
		scan: func(row scanner) (*types.Issue, error) {
			var (
				issue            types.Issue
				alias            types.Alias
				book             types.Book
				created, aliasAt string
			)
			bookDst, finish := bookDest(&book)
			dest := append([]any{&issue.ID, &issue.SourceFile, &created, &alias.ID, &alias.Scheme, &alias.Value, &aliasAt}, bookDst...)
			if err := row.Scan(dest...); err != nil {
				return nil, err
			}
			finish()
			alias.CreatedAt = parseTime(aliasAt)
			alias.Book = book
			issue.Kind = kind
			issue.Alias = &alias
			issue.Book = &book
			issue.CreatedAt = parseTime(created)
			return &issue, nil
		},
	}
}

var issueTables = map[types.IssueKind]issueTable{
	types.IssueAliasUsedAsBookID:        aliasIssueTable(types.IssueAliasUsedAsBookID, "alias_used_as_book_id_issues"),
	types.IssueAliasUsedToResolveBookID: aliasIssueTable(types.IssueAliasUsedToResolveBookID, "alias_used_to_resolve_book_id_issues"),
	types.IssueAliasPointsToConflictingBook: {
		kind:       types.IssueAliasPointsToConflictingBook,
		table:      "alias_points_to_conflicting_book_issues",
		keyColumns: []string{"book_pk", "scheme", "value", "source_file"},
		keyArgs: func(issue types.Issue) ([]any, error) {
			if issue.Book == nil {
				return nil, fmt.Errorf("%s issue needs a book", issue.Kind)
			}
			return []any{issue.Book.ID, issue.Scheme, issue.Value, issue.SourceFile}, nil
		},
		selectCols: `i.id, i.source_file, i.created_at, i.scheme, i.value, ` + bookColumns,
		joins:      `JOIN books b ON b.id = i.book_pk`,
		scan: func(row scanner) (*types.Issue, error) {
			var (
				issue   types.Issue
				book    types.Book
				created string
			)
			bookDst, finish := bookDest(&book)
			dest := append([]any{&issue.ID, &issue.SourceFile, &created, &issue.Scheme, &issue.Value}, bookDst...)
			if err := row.Scan(dest...); err != nil {
				return nil, err
			}
			finish()
			issue.Kind = types.IssueAliasPointsToConflictingBook
			issue.Book = &book
			issue.CreatedAt = parseTime(created)
			return &issue, nil
		},
	},
	types.IssueVersionUnspecified: {
		kind:       types.IssueVersionUnspecified,
		table:      "version_unspecified_issues",
		keyColumns: []string{"book_id", "source_file"},
		keyArgs: func(issue types.Issue) ([]any, error) {
			return []any{issue.BookID, issue.SourceFile}, nil
		},
		selectCols: `i.id, i.source_file, i.created_at, i.book_id`,
		scan: func(row scanner) (*types.Issue, error) {
			var (
				issue   types.Issue
				created string
			)
			if err := row.Scan(&issue.ID, &issue.SourceFile, &created, &issue.BookID); err != nil {
				return nil, err
			}
			issue.Kind = types.IssueVersionUnspecified
			issue.CreatedAt = parseTime(created)
			return &issue, nil
		},
	},
}

func (it issueTable) selectQuery() string {
	return `SELECT ` + it.selectCols + ` FROM ` + it.table + ` i ` + it.joins
}

func (it issueTable) insertQuery() string {
	cols, marks := "", ""
	for _, c := range it.keyColumns {
		cols += c + ", "
		marks += "?, "
	}
	return `INSERT INTO ` + it.table + ` (` + cols + `created_at) VALUES (` + marks + `?)
		ON CONFLICT DO NOTHING`
}

func (it issueTable) keyWhere() string {
	where := ""
	for i, c := range it.keyColumns {
		if i > 0 {
			where += " AND "
		}
		where += "i." + c + " = ?"
	}
	return where
}

// RecordIssue stores issue unless one with the same natural key already
// exists, and returns the stored row. The insert and the conflict check
// are a single statement, so concurrent writers cannot duplicate an issue.
func (t *Tx) RecordIssue(ctx context.Context, issue types.Issue) (*types.Issue, bool, error) {
	it, ok := issueTables[issue.Kind]
	if !ok {
		return nil, false, fmt.Errorf("%w: %q", ErrUnknownIssueKind, issue.Kind)
	}
	key, err := it.keyArgs(issue)
	if err != nil {
		return nil, false, err
	}

	res, err := t.q.ExecContext(ctx, it.insertQuery(), append(key, t.timestamp())...)
	if err != nil {
		return nil, false, fmt.Errorf("recording %s issue: %w", issue.Kind, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("recording %s issue: %w", issue.Kind, err)
	}

	stored, err := it.scan(t.q.QueryRowContext(ctx, it.selectQuery()+` WHERE `+it.keyWhere(), key...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("reading %s issue: row not found after write", issue.Kind)
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading %s issue: %w", issue.Kind, err)
	}
	return stored, n == 1, nil
}

// IssueFilter narrows ListIssues. Zero values match everything.
type IssueFilter struct {
	Kind       types.IssueKind
	SourceFile string
	BookID     string
}

func (t *Tx) listIssues(ctx context.Context, it issueTable, f IssueFilter) ([]types.Issue, error) {
	query := it.selectQuery() + ` WHERE 1=1`
	var args []any
	if f.SourceFile != "" {
		query += ` AND i.source_file = ?`
		args = append(args, f.SourceFile)
	}
	if f.BookID != "" {
		if it.kind == types.IssueVersionUnspecified {
			query += ` AND i.book_id = ?`
		} else {
			query += ` AND b.book_id = ?`
		}
		args = append(args, f.BookID)
	}
	query += ` ORDER BY i.id`

	rows, err := t.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing %s issues: %w", it.kind, err)
	}
	defer rows.Close()

	var issues []types.Issue
	for rows.Next() {
		issue, err := it.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning %s issue: %w", it.kind, err)
		}
		issues = append(issues, *issue)
	}
	return issues, rows.Err()
}

// ListIssues returns the issues matching f, oldest first.
func (s *Store) ListIssues(ctx context.Context, f IssueFilter) ([]types.Issue, error) {
	kinds := types.IssueKinds
	if f.Kind != "" {
		if !f.Kind.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownIssueKind, f.Kind)
		}
		kinds = []types.IssueKind{f.Kind}
	}

	r := s.reader()
	var all []types.Issue
	for _, kind := range kinds {
		issues, err := r.listIssues(ctx, issueTables[kind], f)
		if err != nil {
			return nil, err
		}
		all = append(all, issues...)
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})
	return all, nil
}
