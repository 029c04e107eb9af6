// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reconcile

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/pdiddy/bookfeed/pkg/types"
)

// InitialVersion is assigned to a brand-new book whose record has no version.
const InitialVersion = "1.0"

// ParseVersion parses version text as a float64. Surrounding whitespace is
// ignored. Empty text, hex literals, NaN and infinities do not parse.
func ParseVersion(text string) (float64, bool) {
	s := strings.TrimSpace(text)
	if s == "" || strings.ContainsAny(s, "xX") {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// FormatVersion renders v in canonical form: the shortest representation
// that round-trips, with ".0" appended to integral values ("1" becomes
// "1.0"). Magnitudes below 1e-4 or at least 1e16 use exponent notation
// ("1e+16"). Every stored version goes through this function.
//
// This matches Python 3's repr/str of a float, not Python 2's
// 12-significant-digit str.
func FormatVersion(v float64) string {
	e := strconv.FormatFloat(v, 'e', -1, 64)
	exp, err := strconv.Atoi(e[strings.IndexByte(e, 'e')+1:])
	if err == nil && (exp < -4 || exp >= 16) {
		return e
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// CanonicalVersion parses and re-formats text. ok is false when text does
// not parse.
func CanonicalVersion(text string) (string, bool) {
	v, ok := ParseVersion(text)
	if !ok {
		return "", false
	}
	return FormatVersion(v), true
}

// inferVersion returns the record's version, or guesses one when the
// record has none: InitialVersion for an unknown book, otherwise one more
// than the highest version on file. A guess records a
// version_unspecified issue.
//
// The guess assumes versions only increase. An older edition arriving
// without a version is taken for a newer one; the issue row is what lets
// an operator find and correct it.
func (rc *run) inferVersion(ctx context.Context, bookID string) (string, error) {
	if v, ok := CanonicalVersion(rc.rec.VersionText); ok {
		return v, nil
	}

	if err := rc.recordIssue(ctx, types.NewVersionUnspecifiedIssue(bookID, rc.rec.SourceFile)); err != nil {
		return "", err
	}

	books, err := rc.cat.ListBooks(ctx, bookID)
	if err != nil {
		return "", catalogErr("listing books", err)
	}
	latest, ok := latestVersion(books)
	if !ok {
		return InitialVersion, nil
	}
	version := FormatVersion(latest + 1)
	rc.logger.Debug("version inferred", "book_id", bookID, "latest", FormatVersion(latest), "version", version)
	return version, nil
}

// latestVersion returns the numerically highest version among books.
// Versions that do not parse are ignored.
func latestVersion(books []types.Book) (float64, bool) {
	var (
		latest float64
		found  bool
	)
	for _, b := range books {
		v, ok := ParseVersion(b.Version)
		if !ok {
			continue
		}
		if !found || v > latest {
			latest, found = v, true
		}
	}
	return latest, found
}

// precedingVersion returns the book among books with the highest version
// strictly below book's, or nil when book is the earliest version.
func precedingVersion(books []types.Book, book types.Book) *types.Book {
	current, ok := ParseVersion(book.Version)
	if !ok {
		return nil
	}
	var (
		prev *types.Book
		best float64
	)
	for i := range books {
		b := books[i]
		if b.ID == book.ID {
			continue
		}
		v, ok := ParseVersion(b.Version)
		if !ok || v >= current {
			continue
		}
		if prev == nil || v > best {
			prev, best = &books[i], v
		}
	}
	return prev
}
