// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/bookfeed/internal/ingest"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest FILE...",
	Short: "Import publisher feed files into the catalog",
	Long: `Ingest reads each XML feed file and reconciles its book records into the
catalog. Every file is applied in its own transaction: a file that fails
leaves no trace and the remaining files are still imported.

Prints one line per file and a summary. Exits non-zero if any file failed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().Int("workers", 1, "number of files processed concurrently")
	viper.BindPFlag("ingest.workers", ingestCmd.Flags().Lookup("workers"))

	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	runner := ingest.NewRunner(store, newReconciler(), cfg.Ingest, logger)
	summary, err := runner.Run(cmd.Context(), args, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d file(s) failed to import", summary.Failed)
	}
	return nil
}
