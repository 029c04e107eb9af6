// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/bookfeed/internal/ingest"
	"github.com/pdiddy/bookfeed/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch DIR",
	Short: "Import feed files as they arrive in an inbox directory",
	Long: `Watch monitors DIR and imports every *.xml file once it has stopped
changing. Files already in DIR are imported first. Processed files can be
moved aside with --done-dir and --failed-dir.

Only one watcher may feed a catalog at a time. Stop with Ctrl-C.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	f := watchCmd.Flags()
	f.String("done-dir", "", "move imported files here")
	f.String("failed-dir", "", "move files that failed here")
	f.Duration("debounce", watch.DefaultDebounce, "quiet period before a changed file is imported")

	viper.BindPFlag("watch.done_dir", f.Lookup("done-dir"))
	viper.BindPFlag("watch.failed_dir", f.Lookup("failed-dir"))
	viper.BindPFlag("watch.debounce", f.Lookup("debounce"))

	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	runner := ingest.NewRunner(store, newReconciler(), cfg.Ingest, logger)
	w := watch.New(runner, watch.LockPath(store.Path()), cfg.Watch, logger)
	return w.Run(cmd.Context(), args[0], cmd.OutOrStdout())
}
