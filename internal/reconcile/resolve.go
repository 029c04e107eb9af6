// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reconcile

import (
	"context"

	"github.com/pdiddy/bookfeed/pkg/types"
)

// resolveBookID picks the book id for the record. Precedence, first match
// wins:
//
//  1. a book with the declared id exists: keep it;
//  2. the declared id is the value of a trusted-scheme alias, checked in
//     TrustedSchemes order: use that alias's book;
//  3. one of the record's aliases, in document order, exists under any
//     scheme: use that alias's book;
//  4. otherwise the declared id names a new book.
//
// Steps 2 and 3 record an issue. No books or aliases are written.
func (rc *run) resolveBookID(ctx context.Context) (string, error) {
	declared := rc.rec.DeclaredID

	existing, err := rc.cat.FindBook(ctx, declared, "")
	if err != nil {
		return "", catalogErr("finding book", err)
	}
	if existing != nil {
		return declared, nil
	}

	if id, ok, err := rc.resolveByTrustedScheme(ctx, declared); err != nil || ok {
		return id, err
	}
	if id, ok, err := rc.resolveByRecordAliases(ctx); err != nil || ok {
		return id, err
	}
	return declared, nil
}

// resolveByTrustedScheme handles a declared id that is really an ISBN
// already on file.
func (rc *run) resolveByTrustedScheme(ctx context.Context, declared string) (string, bool, error) {
	for _, scheme := range rc.trusted {
		alias, err := rc.cat.FindAlias(ctx, scheme, declared)
		if err != nil {
			return "", false, catalogErr("finding alias", err)
		}
		if alias == nil {
			continue
		}
		if err := rc.recordIssue(ctx, types.NewAliasUsedAsBookIDIssue(*alias, rc.rec.SourceFile)); err != nil {
			return "", false, err
		}
		rc.logger.Debug("declared id is a trusted alias",
			"declared_id", declared, "scheme", scheme, "book_id", alias.Book.BookID)
		return alias.Book.BookID, true, nil
	}
	return "", false, nil
}

// resolveByRecordAliases is the least trusted path: any scheme qualifies.
func (rc *run) resolveByRecordAliases(ctx context.Context) (string, bool, error) {
	for _, pair := range rc.rec.Aliases {
		alias, err := rc.cat.FindAlias(ctx, pair.Scheme, pair.Value)
		if err != nil {
			return "", false, catalogErr("finding alias", err)
		}
		if alias == nil {
			continue
		}
		if err := rc.recordIssue(ctx, types.NewAliasUsedToResolveBookIDIssue(*alias, rc.rec.SourceFile)); err != nil {
			return "", false, err
		}
		rc.logger.Debug("book id resolved from record alias",
			"declared_id", rc.rec.DeclaredID, "alias", pair.String(), "book_id", alias.Book.BookID)
		return alias.Book.BookID, true, nil
	}
	return "", false, nil
}
