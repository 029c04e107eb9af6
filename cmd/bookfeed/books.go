// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/bookfeed/internal/catalog"
)

var booksCmd = &cobra.Command{
	Use:   "books [BOOK_ID]",
	Short: "List catalog books with their aliases",
	Long: `Books lists every book in the catalog, or every version of BOOK_ID,
ordered by title then version. Each book is followed by the aliases it owns.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBooks,
}

func init() {
	booksCmd.Flags().Bool("json", false, "output as JSON")
	rootCmd.AddCommand(booksCmd)
}

func runBooks(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	var bookID string
	if len(args) == 1 {
		bookID = args[0]
	}
	entries, err := store.ListBooks(cmd.Context(), bookID)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatBooksOutput(cmd.OutOrStdout(), entries, jsonOutput)
}

func formatBooksOutput(w io.Writer, entries []catalog.BookEntry, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	if len(entries) == 0 {
		fmt.Fprintln(w, "No books found.")
		return nil
	}

	fmt.Fprintf(w, "%-20s  %-8s  %-40s  %s\n", "Book ID", "Version", "Title", "Aliases")
	fmt.Fprintln(w, strings.Repeat("-", 100))

	for _, e := range entries {
		aliases := make([]string, len(e.Aliases))
		for i, a := range e.Aliases {
			aliases[i] = a.String()
		}
		fmt.Fprintf(w, "%-20s  %-8s  %-40s  %s\n",
			truncate(e.BookID, 20), e.Version, truncate(e.Title, 40), strings.Join(aliases, ", "))
	}

	fmt.Fprintf(w, "\n%d books\n", len(entries))
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
