// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"time"
)

// Book is a specific edition of a title. The pair (BookID, Version) is
// unique in the catalog; ID is the surrogate key.
type Book struct {
	// ID is the catalog's surrogate key.
	ID int64 `json:"id" yaml:"id"`

	// BookID is the publisher-assigned identifier. It is shared by every
	// version of the same title.
	BookID string `json:"book_id" yaml:"book_id"`

	// Version is the canonical string form of a floating-point version
	// number (e.g. "1.0", "2.5").
	Version string `json:"version" yaml:"version"`

	// Title is overwritten on every update to the same (BookID, Version).
	Title string `json:"title" yaml:"title"`

	// Description is overwritten on every update. Empty when absent.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// String renders the book the way operators refer to it in reports.
func (b Book) String() string {
	return fmt.Sprintf("%s - version %s", b.Title, b.Version)
}

// Alias is an alternate (scheme, value) identifier owned by exactly one book.
type Alias struct {
	ID int64 `json:"id" yaml:"id"`

	// Book is the owning book, populated by catalog lookups.
	Book Book `json:"book" yaml:"book"`

	// Scheme is a short tag such as "ISBN-10", "ISBN-13" or a proprietary name.
	Scheme string `json:"scheme" yaml:"scheme"`

	// Value is the identifier under Scheme.
	Value string `json:"value" yaml:"value"`

	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// Pair returns the alias's (scheme, value) key.
func (a Alias) Pair() AliasPair {
	return AliasPair{Scheme: a.Scheme, Value: a.Value}
}

// AliasPair is a (scheme, value) identifier as it appears in a feed record.
type AliasPair struct {
	Scheme string `json:"scheme" yaml:"scheme"`
	Value  string `json:"value" yaml:"value"`
}

func (p AliasPair) String() string {
	return p.Scheme + ":" + p.Value
}

// BookRecord is one book update extracted from a feed file.
type BookRecord struct {
	// DeclaredID is the identifier the feed claims for the book. It may
	// turn out to be an alias value.
	DeclaredID string `json:"declared_id" yaml:"declared_id" validate:"required"`

	Title string `json:"title" yaml:"title" validate:"required"`

	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// VersionText is the raw <version> text, empty when the element is missing.
	VersionText string `json:"version_text,omitempty" yaml:"version_text,omitempty"`

	// Aliases are kept in document order; resolution depends on it.
	Aliases []AliasPair `json:"aliases" yaml:"aliases"`

	// SourceFile names the feed file the record came from.
	SourceFile string `json:"source_file" yaml:"source_file"`
}
