// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/bookfeed/pkg/types"
)

// Export is the full catalog snapshot written by ExportYAML and ExportJSON.
type Export struct {
	Books  []ExportBook  `json:"books" yaml:"books"`
	Issues []ExportIssue `json:"issues" yaml:"issues"`
}

// ExportBook holds a book and its aliases.
type ExportBook struct {
	BookID      string            `json:"book_id" yaml:"book_id"`
	Version     string            `json:"version" yaml:"version"`
	Title       string            `json:"title" yaml:"title"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Aliases     []types.AliasPair `json:"aliases" yaml:"aliases"`
}

// ExportIssue flattens an issue into the fields an auditor reads.
type ExportIssue struct {
	Kind        types.IssueKind `json:"kind" yaml:"kind"`
	SourceFile  string          `json:"source_file" yaml:"source_file"`
	BookID      string          `json:"book_id,omitempty" yaml:"book_id,omitempty"`
	BookVersion string          `json:"book_version,omitempty" yaml:"book_version,omitempty"`
	Scheme      string          `json:"scheme,omitempty" yaml:"scheme,omitempty"`
	Value       string          `json:"value,omitempty" yaml:"value,omitempty"`
	CreatedAt   string          `json:"created_at" yaml:"created_at"`
}

// FlattenIssue converts issue to its export form.
func FlattenIssue(issue types.Issue) ExportIssue {
	e := ExportIssue{
		Kind:       issue.Kind,
		SourceFile: issue.SourceFile,
		BookID:     issue.BookID,
		Scheme:     issue.Scheme,
		Value:      issue.Value,
		CreatedAt:  issue.CreatedAt.Format(timeLayout),
	}
	if issue.Book != nil {
		e.BookID = issue.Book.BookID
		e.BookVersion = issue.Book.Version
	}
	if issue.Alias != nil {
		e.Scheme = issue.Alias.Scheme
		e.Value = issue.Alias.Value
	}
	return e
}

// Snapshot collects every book and issue in the catalog.
func (s *Store) Snapshot(ctx context.Context) (Export, error) {
	entries, err := s.ListBooks(ctx, "")
	if err != nil {
		return Export{}, fmt.Errorf("querying books for export: %w", err)
	}
	issues, err := s.ListIssues(ctx, IssueFilter{})
	if err != nil {
		return Export{}, fmt.Errorf("querying issues for export: %w", err)
	}

	out := Export{
		Books:  make([]ExportBook, len(entries)),
		Issues: make([]ExportIssue, len(issues)),
	}
	for i, e := range entries {
		out.Books[i] = ExportBook{
			BookID:      e.BookID,
			Version:     e.Version,
			Title:       e.Title,
			Description: e.Description,
			Aliases:     e.Aliases,
		}
	}
	for i, issue := range issues {
		out.Issues[i] = FlattenIssue(issue)
	}
	return out, nil
}

// ExportYAML writes the catalog to export.yaml next to the database and
// returns the file path.
func (s *Store) ExportYAML(ctx context.Context) (string, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return "", err
	}
	data, err := yaml.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("marshaling YAML: %w", err)
	}
	path := filepath.Join(s.Dir(), "export.yaml")
	return path, os.WriteFile(path, data, 0o644)
}

// ExportJSON writes the catalog to export.json next to the database and
// returns the file path.
func (s *Store) ExportJSON(ctx context.Context) (string, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling JSON: %w", err)
	}
	path := filepath.Join(s.Dir(), "export.json")
	return path, os.WriteFile(path, data, 0o644)
}
