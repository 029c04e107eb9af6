// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/bookfeed/pkg/types"
)

// --- test helpers ---

type fixture struct {
	cat   *memCatalog
	book1 types.Book
	book2 types.Book
	isbn1 types.Alias
	isbn2 types.Alias
}

// seedCatalog mirrors the state every feed test starts from: book-1 and
// book-2 at version 1.0, each with one ISBN-10.
func seedCatalog(t *testing.T) fixture {
	t.Helper()
	cat := newMemCatalog()
	f := fixture{cat: cat}
	f.book1 = cat.addBook("book-1", "1.0", "Book 1")
	f.book2 = cat.addBook("book-2", "1.0", "Book 2")
	f.isbn1 = cat.addAlias(f.book1, "ISBN-10", "1000000001")
	f.isbn2 = cat.addAlias(f.book2, "ISBN-10", "1000000002")
	return f
}

func isbn10(value string) types.AliasPair { return types.AliasPair{Scheme: "ISBN-10", Value: value} }
func isbn13(value string) types.AliasPair { return types.AliasPair{Scheme: "ISBN-13", Value: value} }

func process(t *testing.T, cat Catalog, rec types.BookRecord) Result {
	t.Helper()
	res, err := New().Process(context.Background(), cat, rec)
	require.NoError(t, err)
	return res
}

// --- end-to-end record scenarios ---

func TestProcessNewBook(t *testing.T) {
	f := seedCatalog(t)

	res := process(t, f.cat, types.BookRecord{
		DeclaredID: "12345",
		Title:      "A title",
		Aliases:    []types.AliasPair{isbn10("0158757819"), isbn13("0000000000123")},
		SourceFile: "book-simple.xml",
	})

	assert.Equal(t, "12345", res.ResolvedID)
	assert.Equal(t, "1.0", res.Version, "a new book without a version starts at 1.0")
	assert.Equal(t, "A title", res.Book.Title)
	assert.ElementsMatch(t,
		[]types.AliasPair{isbn10("0158757819"), isbn13("0000000000123")},
		f.cat.aliasPairs(res.Book))

	issues := f.cat.issuesOf(types.IssueVersionUnspecified)
	require.Len(t, issues, 1)
	assert.Equal(t, "12345", issues[0].BookID)
	assert.Equal(t, "book-simple.xml", issues[0].SourceFile)
	assert.Empty(t, f.cat.issuesOf(types.IssueAliasUsedAsBookID))
	assert.Empty(t, f.cat.issuesOf(types.IssueAliasUsedToResolveBookID))
}

func TestProcessISBNUsedAsBookID(t *testing.T) {
	f := seedCatalog(t)

	res := process(t, f.cat, types.BookRecord{
		DeclaredID:  "1000000001",
		Title:       "Book 1",
		VersionText: "2.0",
		Aliases:     []types.AliasPair{isbn10("1000000001")},
		SourceFile:  "book-isbn.xml",
	})

	assert.Equal(t, "book-1", res.ResolvedID)
	books := f.cat.sorted("book-1")
	require.Len(t, books, 2, "both versions exist")
	assert.Equal(t, "1.0", books[0].Version)
	assert.Equal(t, "2.0", books[1].Version)
	assert.Equal(t, "Book 1", books[1].Title)

	issues := f.cat.issuesOf(types.IssueAliasUsedAsBookID)
	require.Len(t, issues, 1)
	assert.Equal(t, f.isbn1.ID, issues[0].Alias.ID)
	assert.Equal(t, f.book1.ID, issues[0].Book.ID)
	assert.Equal(t, "book-isbn.xml", issues[0].SourceFile)
	assert.Empty(t, f.cat.issuesOf(types.IssueAliasUsedToResolveBookID))
}

func TestProcessResolvesFromRecordAliases(t *testing.T) {
	f := seedCatalog(t)

	res := process(t, f.cat, types.BookRecord{
		DeclaredID:  "12345ABC",
		Title:       "Book 1",
		VersionText: "2.0",
		Aliases:     []types.AliasPair{isbn10("1000000001")},
		SourceFile:  "book-aliases.xml",
	})

	assert.Equal(t, "book-1", res.ResolvedID)
	assert.Len(t, f.cat.sorted("book-1"), 2)
	assert.Empty(t, f.cat.sorted("12345ABC"))

	issues := f.cat.issuesOf(types.IssueAliasUsedToResolveBookID)
	require.Len(t, issues, 1)
	assert.Equal(t, f.isbn1.ID, issues[0].Alias.ID)
	assert.Equal(t, f.book1.ID, issues[0].Book.ID)
	assert.Equal(t, "book-aliases.xml", issues[0].SourceFile)
	assert.Empty(t, f.cat.issuesOf(types.IssueAliasUsedAsBookID))
}

func TestProcessConflictingAlias(t *testing.T) {
	f := seedCatalog(t)

	res := process(t, f.cat, types.BookRecord{
		DeclaredID:  "book-1",
		Title:       "Book 1",
		VersionText: "2.0",
		Aliases:     []types.AliasPair{isbn10("1000000002")},
		SourceFile:  "book-conflict.xml",
	})

	issues := f.cat.issuesOf(types.IssueAliasPointsToConflictingBook)
	require.Len(t, issues, 1)
	assert.Equal(t, f.book2.ID, issues[0].Book.ID)
	assert.Equal(t, "ISBN-10", issues[0].Scheme)
	assert.Equal(t, "1000000002", issues[0].Value)
	assert.Equal(t, "book-conflict.xml", issues[0].SourceFile)

	assert.Equal(t, []types.AliasPair{isbn10("1000000002")}, res.Conflicts)
	assert.NotContains(t, f.cat.aliasPairs(res.Book), isbn10("1000000002"))
	assert.Equal(t, []types.AliasPair{isbn10("1000000002")}, f.cat.aliasPairs(f.book2), "alias stays with book-2")
}

func TestProcessInfersNextVersion(t *testing.T) {
	f := seedCatalog(t)

	res := process(t, f.cat, types.BookRecord{
		DeclaredID: "book-1",
		Title:      "Book 1",
		Aliases:    []types.AliasPair{isbn10("1000000001")},
		SourceFile: "book-version.xml",
	})

	assert.Equal(t, "2.0", res.Version)
	assert.Len(t, f.cat.sorted("book-1"), 2)

	issues := f.cat.issuesOf(types.IssueVersionUnspecified)
	require.Len(t, issues, 1)
	assert.Equal(t, "book-1", issues[0].BookID)
	assert.Equal(t, "book-version.xml", issues[0].SourceFile)
}

func TestProcessIsIdempotent(t *testing.T) {
	f := seedCatalog(t)
	records := []types.BookRecord{
		{DeclaredID: "1000000001", Title: "Book 1", VersionText: "2.0", Aliases: []types.AliasPair{isbn10("1000000001")}, SourceFile: "a.xml"},
		{DeclaredID: "book-1", Title: "Book 1", VersionText: "2.0", Aliases: []types.AliasPair{isbn10("1000000002")}, SourceFile: "b.xml"},
		{DeclaredID: "12345ABC", Title: "Book 2", VersionText: "3", Aliases: []types.AliasPair{isbn10("1000000002")}, SourceFile: "c.xml"},
		{DeclaredID: "new-1", Title: "New", VersionText: "1", SourceFile: "d.xml"},
	}

	for _, rec := range records {
		process(t, f.cat, rec)
	}
	books, aliases, issues := len(f.cat.books), len(f.cat.aliases), len(f.cat.issues)

	for _, rec := range records {
		res := process(t, f.cat, rec)
		assert.Zero(t, res.NewIssues, "re-running %s creates no issues", rec.SourceFile)
	}

	assert.Equal(t, books, len(f.cat.books))
	assert.Equal(t, aliases, len(f.cat.aliases))
	assert.Equal(t, issues, len(f.cat.issues))
}

func TestProcessSameFileTwiceWithoutVersionRecordsOneIssue(t *testing.T) {
	f := seedCatalog(t)
	rec := types.BookRecord{DeclaredID: "book-2", Title: "Book 2", SourceFile: "same.xml"}

	first := process(t, f.cat, rec)
	second := process(t, f.cat, rec)

	assert.Equal(t, 1, first.NewIssues)
	assert.Zero(t, second.NewIssues)
	require.Len(t, second.Issues, 1)
	assert.Equal(t, first.Issues[0].ID, second.Issues[0].ID)
	assert.Len(t, f.cat.issuesOf(types.IssueVersionUnspecified), 1)
}

// --- identifier resolution ---

func TestResolveExistingBookIDIsTrusted(t *testing.T) {
	f := seedCatalog(t)
	// book-2's ISBN also appears as an ISBN-10 alias value on book-1.
	f.cat.addAlias(f.book1, "ISBN-10", "book-2")

	res := process(t, f.cat, types.BookRecord{
		DeclaredID: "book-2", Title: "Book 2", VersionText: "1.0", SourceFile: "x.xml",
		Aliases: []types.AliasPair{isbn10("1000000001")},
	})

	assert.Equal(t, "book-2", res.ResolvedID)
	assert.Empty(t, f.cat.issuesOf(types.IssueAliasUsedAsBookID))
	assert.Empty(t, f.cat.issuesOf(types.IssueAliasUsedToResolveBookID))
}

func TestResolveTrustedSchemePrecedence(t *testing.T) {
	cat := newMemCatalog()
	a := cat.addBook("book-a", "1.0", "A")
	b := cat.addBook("book-b", "1.0", "B")
	cat.addAlias(a, "ISBN-13", "9990000000001")
	cat.addAlias(b, "ISBN-10", "9990000000001")

	res := process(t, cat, types.BookRecord{DeclaredID: "9990000000001", Title: "?", VersionText: "2", SourceFile: "p.xml"})

	assert.Equal(t, "book-b", res.ResolvedID, "ISBN-10 is consulted before ISBN-13")
	require.Len(t, cat.issuesOf(types.IssueAliasUsedAsBookID), 1)
}

func TestResolveISBN13(t *testing.T) {
	cat := newMemCatalog()
	a := cat.addBook("book-a", "1.0", "A")
	cat.addAlias(a, "ISBN-13", "9780000000002")

	res := process(t, cat, types.BookRecord{DeclaredID: "9780000000002", Title: "A", VersionText: "2.0", SourceFile: "p.xml"})

	assert.Equal(t, "book-a", res.ResolvedID)
	assert.Len(t, cat.issuesOf(types.IssueAliasUsedAsBookID), 1)
}

func TestResolveUntrustedSchemeIsNotUsedForDeclaredID(t *testing.T) {
	f := seedCatalog(t)
	f.cat.addAlias(f.book2, "PROPRIETARY", "P-2")

	res := process(t, f.cat, types.BookRecord{DeclaredID: "P-2", Title: "Other", VersionText: "1.0", SourceFile: "u.xml"})

	assert.Equal(t, "P-2", res.ResolvedID, "a proprietary alias value is not trusted as an id")
	assert.Empty(t, f.cat.issuesOf(types.IssueAliasUsedAsBookID))
}

func TestResolveRecordAliasesInDocumentOrder(t *testing.T) {
	f := seedCatalog(t)

	res := process(t, f.cat, types.BookRecord{
		DeclaredID: "unknown", Title: "?", VersionText: "5.0", SourceFile: "o.xml",
		Aliases: []types.AliasPair{isbn10("0000000000"), isbn10("1000000002"), isbn10("1000000001")},
	})

	assert.Equal(t, "book-2", res.ResolvedID, "first matching alias wins")
	issues := f.cat.issuesOf(types.IssueAliasUsedToResolveBookID)
	require.Len(t, issues, 1)
	assert.Equal(t, f.isbn2.ID, issues[0].Alias.ID)
}

func TestResolveWithCustomTrustedSchemes(t *testing.T) {
	f := seedCatalog(t)
	f.cat.addAlias(f.book2, "PROPRIETARY", "P-2")

	r := New(WithTrustedSchemes([]string{"PROPRIETARY"}))
	res, err := r.Process(context.Background(), f.cat, types.BookRecord{DeclaredID: "P-2", Title: "Book 2", VersionText: "2", SourceFile: "c.xml"})
	require.NoError(t, err)

	assert.Equal(t, "book-2", res.ResolvedID)
	assert.Equal(t, []string{"PROPRIETARY"}, r.TrustedSchemes())
}

// --- version inference ---

func TestInferVersionUsesNumericMaximum(t *testing.T) {
	cat := newMemCatalog()
	cat.addBook("book-3", "2.0", "Three")
	cat.addBook("book-3", "10.0", "Three")
	cat.addBook("book-3", "9.5", "Three")

	res := process(t, cat, types.BookRecord{DeclaredID: "book-3", Title: "Three", SourceFile: "v.xml"})

	assert.Equal(t, "11.0", res.Version, "10.0 compares above 2.0 and 9.5")
}

func TestInferVersionIgnoresUnparseableStoredVersions(t *testing.T) {
	cat := newMemCatalog()
	cat.addBook("book-4", "draft", "Four")

	res := process(t, cat, types.BookRecord{DeclaredID: "book-4", Title: "Four", VersionText: "n/a", SourceFile: "v.xml"})

	assert.Equal(t, InitialVersion, res.Version)
}

func TestInferVersionCanonicalizesExplicitVersion(t *testing.T) {
	cat := newMemCatalog()

	res := process(t, cat, types.BookRecord{DeclaredID: "book-5", Title: "Five", VersionText: " 1 ", SourceFile: "v.xml"})

	assert.Equal(t, "1.0", res.Version)
	assert.Empty(t, cat.issues, "an explicit version records no issue")
}

func TestFormatVersion(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1", "1.0"},
		{"1.0", "1.0"},
		{"2.5", "2.5"},
		{"2.50", "2.5"},
		{"10", "10.0"},
		{"0.1", "0.1"},
		{"-3", "-3.0"},
		{"1e3", "1000.0"},
		{"0.0001", "0.0001"},
		{"0.00001", "1e-05"},
		{"1e16", "1e+16"},
		{"123456789012345", "123456789012345.0"},
		{"1.0000000000001", "1.0000000000001"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := CanonicalVersion(tt.in)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseVersionRejects(t *testing.T) {
	for _, in := range []string{"", "  ", "abc", "NaN", "inf", "-Infinity", "0x10", "1.2.3", "1e999"} {
		_, ok := ParseVersion(in)
		assert.False(t, ok, "%q should not parse", in)
	}
}

// --- alias reconciliation ---

func TestBackfillKeepsAliasesFromPreviousVersion(t *testing.T) {
	f := seedCatalog(t)
	f.cat.addAlias(f.book1, "ISBN-13", "9781000000001")

	res := process(t, f.cat, types.BookRecord{
		DeclaredID: "book-1", Title: "Book 1", VersionText: "2.0", SourceFile: "u2.xml",
		Aliases: []types.AliasPair{isbn10("1000000001")},
	})

	assert.ElementsMatch(t,
		[]types.AliasPair{isbn10("1000000001"), isbn13("9781000000001")},
		f.cat.aliasPairs(res.Book))
	assert.Equal(t, []types.AliasPair{isbn13("9781000000001")}, res.Backfilled)
}

func TestBackfillUsesImmediatelyPrecedingVersion(t *testing.T) {
	cat := newMemCatalog()
	v1 := cat.addBook("book-6", "1.0", "Six")
	v2 := cat.addBook("book-6", "2.0", "Six")
	cat.addAlias(v1, "OLD", "only-on-1")
	cat.addAlias(v2, "ISBN-10", "6000000006")

	res := process(t, cat, types.BookRecord{DeclaredID: "book-6", Title: "Six", VersionText: "3.0", SourceFile: "b.xml"})

	assert.Equal(t, []types.AliasPair{isbn10("6000000006")}, cat.aliasPairs(res.Book))
}

func TestBackfillSkipsEarliestVersion(t *testing.T) {
	cat := newMemCatalog()
	cat.addBook("book-7", "1.0", "Seven")
	v2 := cat.addBook("book-7", "2.0", "Seven")
	cat.addAlias(v2, "ISBN-10", "7000000007")

	res := process(t, cat, types.BookRecord{DeclaredID: "book-7", Title: "Seven", VersionText: "1.0", SourceFile: "b.xml"})

	assert.Empty(t, cat.aliasPairs(res.Book), "a later version's aliases are not copied back")
	assert.Empty(t, res.Backfilled)
}

func TestAliasOnSameBookIDIsAttachedToNewVersion(t *testing.T) {
	f := seedCatalog(t)

	res := process(t, f.cat, types.BookRecord{
		DeclaredID: "book-2", Title: "Book 2", VersionText: "2.0", SourceFile: "s.xml",
		Aliases: []types.AliasPair{isbn10("1000000002")},
	})

	assert.Equal(t, []types.AliasPair{isbn10("1000000002")}, res.Attached)
	assert.Empty(t, f.cat.issuesOf(types.IssueAliasPointsToConflictingBook))
	assert.Equal(t, []types.AliasPair{isbn10("1000000002")}, f.cat.aliasPairs(f.book2))
}

// --- failures ---

func TestProcessInvalidRecord(t *testing.T) {
	tests := []struct {
		name string
		rec  types.BookRecord
		want string
	}{
		{"missing id", types.BookRecord{Title: "T"}, "declared_id is required"},
		{"blank id", types.BookRecord{DeclaredID: "  ", Title: "T"}, "declared_id is required"},
		{"missing title", types.BookRecord{DeclaredID: "x"}, "title is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat := newMemCatalog()
			_, err := New().Process(context.Background(), cat, tt.rec)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidRecord)
			assert.Contains(t, err.Error(), tt.want)
			assert.Empty(t, cat.books)
			assert.Empty(t, cat.issues)
		})
	}
}

func TestProcessPropagatesCatalogErrors(t *testing.T) {
	for _, op := range []string{"FindBook", "FindAlias", "ListBooks", "UpsertBook", "GetOrCreateAlias", "RecordIssue", "ListAliases"} {
		t.Run(op, func(t *testing.T) {
			f := seedCatalog(t)
			f.cat.failOn = op

			_, err := New().Process(context.Background(), f.cat, types.BookRecord{
				DeclaredID: "12345ABC", Title: "Book 1", SourceFile: "f.xml",
				Aliases: []types.AliasPair{isbn10("1000000001")},
			})

			require.Error(t, err)
			var catErr *CatalogError
			require.True(t, errors.As(err, &catErr), "got %v", err)
			assert.ErrorIs(t, err, errBoom)
			assert.NotErrorIs(t, err, ErrInvalidRecord)
		})
	}
}

func TestValidateRecord(t *testing.T) {
	assert.NoError(t, ValidateRecord(types.BookRecord{DeclaredID: " book-1 ", Title: "Book 1"}))

	err := ValidateRecord(types.BookRecord{DeclaredID: "   ", Title: " ", SourceFile: "a.xml"})
	require.ErrorIs(t, err, ErrInvalidRecord)
	assert.EqualError(t, err, "invalid book record in a.xml: declared_id is required; title is required")
}
