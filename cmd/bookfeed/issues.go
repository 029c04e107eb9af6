// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/bookfeed/internal/catalog"
	"github.com/pdiddy/bookfeed/pkg/types"
)

var issuesCmd = &cobra.Command{
	Use:   "issues",
	Short: "List reconciliation issues",
	Long: `Issues lists the irregular decisions recorded while importing feeds:

  alias_used_as_book_id              a declared id was an ISBN of another book
  alias_used_to_resolve_book_id      a record's alias located its book
  alias_points_to_conflicting_book   an alias already belongs to another book
  version_unspecified                a version was inferred

Filter with --kind, --source-file and --book.`,
	Args: cobra.NoArgs,
	RunE: runIssues,
}

func init() {
	f := issuesCmd.Flags()
	f.String("kind", "", "only issues of this kind")
	f.String("source-file", "", "only issues recorded for this feed file")
	f.String("book", "", "only issues about this book id")
	f.Bool("json", false, "output as JSON")

	rootCmd.AddCommand(issuesCmd)
}

func runIssues(cmd *cobra.Command, args []string) error {
	kind, _ := cmd.Flags().GetString("kind")
	sourceFile, _ := cmd.Flags().GetString("source-file")
	bookID, _ := cmd.Flags().GetString("book")

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	issues, err := store.ListIssues(cmd.Context(), catalog.IssueFilter{
		Kind:       types.IssueKind(kind),
		SourceFile: sourceFile,
		BookID:     bookID,
	})
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatIssuesOutput(cmd.OutOrStdout(), issues, jsonOutput)
}

func formatIssuesOutput(w io.Writer, issues []types.Issue, jsonOutput bool) error {
	flat := make([]catalog.ExportIssue, len(issues))
	for i, issue := range issues {
		flat[i] = catalog.FlattenIssue(issue)
	}

	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(flat)
	}

	if len(flat) == 0 {
		fmt.Fprintln(w, "No issues found.")
		return nil
	}

	fmt.Fprintf(w, "%-32s  %-20s  %-8s  %-28s  %s\n", "Kind", "Book ID", "Version", "Alias", "Source")
	fmt.Fprintln(w, strings.Repeat("-", 110))

	for _, is := range flat {
		alias := ""
		if is.Value != "" {
			alias = types.AliasPair{Scheme: is.Scheme, Value: is.Value}.String()
		}
		fmt.Fprintf(w, "%-32s  %-20s  %-8s  %-28s  %s\n",
			is.Kind, truncate(is.BookID, 20), is.BookVersion, truncate(alias, 28), is.SourceFile)
	}

	fmt.Fprintf(w, "\n%d issues\n", len(flat))
	return nil
}
