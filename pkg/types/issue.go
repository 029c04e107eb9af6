// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// IssueKind names one of the irregular decisions recorded during
// reconciliation.
type IssueKind string

const (
	// IssueAliasUsedAsBookID marks a declared id that matched an existing
	// trusted alias value rather than a book id.
	IssueAliasUsedAsBookID IssueKind = "alias_used_as_book_id"

	// IssueAliasUsedToResolveBookID marks a book id resolved through one of
	// the record's own aliases.
	IssueAliasUsedToResolveBookID IssueKind = "alias_used_to_resolve_book_id"

	// IssueAliasPointsToConflictingBook marks a record alias already owned
	// by a book with a different book id. The alias is not attached.
	IssueAliasPointsToConflictingBook IssueKind = "alias_points_to_conflicting_book"

	// IssueVersionUnspecified marks a record whose version was inferred.
	IssueVersionUnspecified IssueKind = "version_unspecified"
)

// IssueKinds lists every kind in display order.
var IssueKinds = []IssueKind{
	IssueAliasUsedAsBookID,
	IssueAliasUsedToResolveBookID,
	IssueAliasPointsToConflictingBook,
	IssueVersionUnspecified,
}

// Valid reports whether k is a known kind.
func (k IssueKind) Valid() bool {
	for _, known := range IssueKinds {
		if k == known {
			return true
		}
	}
	return false
}

// Issue is an immutable audit record. Which fields are set depends on Kind:
//
//	alias_used_as_book_id, alias_used_to_resolve_book_id: Alias, Book, SourceFile
//	alias_points_to_conflicting_book:                      Book, Scheme, Value, SourceFile
//	version_unspecified:                                   BookID, SourceFile
//
// The set fields form the issue's natural key.
type Issue struct {
	ID   int64     `json:"id" yaml:"id"`
	Kind IssueKind `json:"kind" yaml:"kind"`

	// Alias is the alias used to resolve the book id.
	Alias *Alias `json:"alias_used,omitempty" yaml:"alias_used,omitempty"`

	// Book is the resolved book, or the book that owns a conflicting alias.
	Book *Book `json:"book,omitempty" yaml:"book,omitempty"`

	Scheme string `json:"scheme,omitempty" yaml:"scheme,omitempty"`
	Value  string `json:"value,omitempty" yaml:"value,omitempty"`
	BookID string `json:"book_id,omitempty" yaml:"book_id,omitempty"`

	// SourceFile is the feed file that triggered the decision.
	SourceFile string `json:"source_file" yaml:"source_file"`

	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// NewAliasUsedAsBookIDIssue records that a declared id was the value of
// alias, which resolved to alias.Book.
func NewAliasUsedAsBookIDIssue(alias Alias, sourceFile string) Issue {
	book := alias.Book
	return Issue{Kind: IssueAliasUsedAsBookID, Alias: &alias, Book: &book, SourceFile: sourceFile}
}

// NewAliasUsedToResolveBookIDIssue records that a record alias matched
// alias, which resolved to alias.Book.
func NewAliasUsedToResolveBookIDIssue(alias Alias, sourceFile string) Issue {
	book := alias.Book
	return Issue{Kind: IssueAliasUsedToResolveBookID, Alias: &alias, Book: &book, SourceFile: sourceFile}
}

// NewAliasPointsToConflictingBookIssue records that (scheme, value) is
// owned by owner, not by the book being updated.
func NewAliasPointsToConflictingBookIssue(owner Book, scheme, value, sourceFile string) Issue {
	return Issue{Kind: IssueAliasPointsToConflictingBook, Book: &owner, Scheme: scheme, Value: value, SourceFile: sourceFile}
}

// NewVersionUnspecifiedIssue records that bookID arrived without a usable version.
func NewVersionUnspecifiedIssue(bookID, sourceFile string) Issue {
	return Issue{Kind: IssueVersionUnspecified, BookID: bookID, SourceFile: sourceFile}
}
