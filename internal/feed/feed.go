// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package feed reads publisher XML update files into book records.
//
// A file holds either a single <book> root or a <books> root wrapping
// several <book> elements:
//
//	<book id="book-1">
//	    <title>Book 1</title>
//	    <description>...</description>
//	    <version>2.0</version>
//	    <aliases>
//	        <alias scheme="ISBN-10" value="1000000001"/>
//	    </aliases>
//	</book>
//
// The loader extracts fields only; it does not validate the document
// against a schema.
package feed

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/pdiddy/bookfeed/pkg/types"
)

// ErrMalformedFeed is returned when a file is not a book feed document.
var ErrMalformedFeed = errors.New("malformed feed")

type xmlBook struct {
	ID          string     `xml:"id,attr"`
	Title       string     `xml:"title"`
	Description string     `xml:"description"`
	Version     *string    `xml:"version"`
	Aliases     []xmlAlias `xml:"aliases>alias"`
}

type xmlAlias struct {
	Scheme string `xml:"scheme,attr"`
	Value  string `xml:"value,attr"`
}

type xmlBooks struct {
	Books []xmlBook `xml:"book"`
}

// ParseFile reads the feed file at path. Each record's SourceFile is set
// to sourceName, or to path when sourceName is empty.
func ParseFile(path, sourceName string) ([]types.BookRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening feed %s: %w", path, err)
	}
	defer f.Close()

	if sourceName == "" {
		sourceName = path
	}
	return Parse(f, sourceName)
}

// Parse decodes a feed document. Records keep document order and their
// aliases keep document order.
func Parse(r io.Reader, sourceFile string) ([]types.BookRecord, error) {
	dec := xml.NewDecoder(r)

	start, err := rootElement(dec)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedFeed, sourceFile, err)
	}

	var books []xmlBook
	switch start.Name.Local {
	case "book":
		var b xmlBook
		if err := dec.DecodeElement(&b, &start); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformedFeed, sourceFile, err)
		}
		books = []xmlBook{b}
	case "books":
		var bs xmlBooks
		if err := dec.DecodeElement(&bs, &start); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformedFeed, sourceFile, err)
		}
		books = bs.Books
	default:
		return nil, fmt.Errorf("%w: %s: unexpected root element <%s>", ErrMalformedFeed, sourceFile, start.Name.Local)
	}

	records := make([]types.BookRecord, len(books))
	for i, b := range books {
		records[i] = b.record(sourceFile)
	}
	return records, nil
}

func rootElement(dec *xml.Decoder) (xml.StartElement, error) {
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return xml.StartElement{}, errors.New("no root element")
		}
		if err != nil {
			return xml.StartElement{}, err
		}
		if start, ok := tok.(xml.StartElement); ok {
			return start, nil
		}
	}
}

func (b xmlBook) record(sourceFile string) types.BookRecord {
	rec := types.BookRecord{
		DeclaredID:  strings.TrimSpace(b.ID),
		Title:       cleanText(b.Title),
		Description: cleanText(b.Description),
		SourceFile:  sourceFile,
	}
	if b.Version != nil {
		rec.VersionText = strings.TrimSpace(*b.Version)
	}
	rec.Aliases = make([]types.AliasPair, 0, len(b.Aliases))
	for _, a := range b.Aliases {
		rec.Aliases = append(rec.Aliases, types.AliasPair{
			Scheme: strings.TrimSpace(a.Scheme),
			Value:  strings.TrimSpace(a.Value),
		})
	}
	return rec
}

// cleanText trims display text and normalizes it to NFC so that the same
// title typed with combining marks compares equal.
func cleanText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
