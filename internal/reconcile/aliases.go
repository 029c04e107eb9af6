// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reconcile

import (
	"context"

	"github.com/pdiddy/bookfeed/pkg/types"
)

// reconcileAliases attaches the record's aliases to book, then backfills
// aliases the preceding version had but the record omitted.
//
// An alias already owned by a book with a different book id is never
// moved: it is left where it is and a conflicting-book issue is recorded.
func (rc *run) reconcileAliases(ctx context.Context, book types.Book) error {
	for _, pair := range rc.rec.Aliases {
		existing, err := rc.cat.FindAlias(ctx, pair.Scheme, pair.Value)
		if err != nil {
			return catalogErr("finding alias", err)
		}
		if existing != nil && existing.Book.BookID != rc.res.ResolvedID {
			issue := types.NewAliasPointsToConflictingBookIssue(existing.Book, pair.Scheme, pair.Value, rc.rec.SourceFile)
			if err := rc.recordIssue(ctx, issue); err != nil {
				return err
			}
			rc.res.Conflicts = append(rc.res.Conflicts, pair)
			continue
		}

		_, created, err := rc.cat.GetOrCreateAlias(ctx, book, pair.Scheme, pair.Value)
		if err != nil {
			return catalogErr("creating alias", err)
		}
		if created {
			rc.res.Attached = append(rc.res.Attached, pair)
		}
	}

	return rc.backfillAliases(ctx, book)
}

// backfillAliases copies onto book every alias of its preceding version
// that book lacks, so a later update never loses a valid identifier.
func (rc *run) backfillAliases(ctx context.Context, book types.Book) error {
	books, err := rc.cat.ListBooks(ctx, book.BookID)
	if err != nil {
		return catalogErr("listing books", err)
	}
	prev := precedingVersion(books, book)
	if prev == nil {
		return nil
	}

	prevAliases, err := rc.cat.ListAliases(ctx, *prev)
	if err != nil {
		return catalogErr("listing aliases", err)
	}
	current, err := rc.cat.ListAliases(ctx, book)
	if err != nil {
		return catalogErr("listing aliases", err)
	}

	have := make(map[types.AliasPair]bool, len(current))
	for _, a := range current {
		have[a.Pair()] = true
	}

	for _, a := range prevAliases {
		pair := a.Pair()
		if have[pair] {
			continue
		}
		have[pair] = true
		_, created, err := rc.cat.GetOrCreateAlias(ctx, book, pair.Scheme, pair.Value)
		if err != nil {
			return catalogErr("backfilling alias", err)
		}
		if created {
			rc.res.Backfilled = append(rc.res.Backfilled, pair)
		}
	}

	if len(rc.res.Backfilled) > 0 {
		rc.logger.Debug("aliases backfilled",
			"book_id", book.BookID, "version", book.Version,
			"from_version", prev.Version, "count", len(rc.res.Backfilled))
	}
	return nil
}
