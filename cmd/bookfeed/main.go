// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the bookfeed CLI.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/bookfeed/internal/catalog"
	"github.com/pdiddy/bookfeed/internal/logging"
	"github.com/pdiddy/bookfeed/internal/reconcile"
	"github.com/pdiddy/bookfeed/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	cfg    types.Config
	logger *slog.Logger
)

// rootCmd is the base command for the bookfeed CLI.
var rootCmd = &cobra.Command{
	Use:   "bookfeed",
	Short: "Reconcile publisher book feeds into a catalog",
	Long: `bookfeed imports per-book XML update records from a publisher feed into a
SQLite catalog of books and their identifiers (ISBNs and other aliases).

Every record is resolved to a canonical book id, versioned and merged. When
a record has to be guessed at or partly rejected, bookfeed records a typed
issue instead of failing; use the issues command to review them.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := viper.Unmarshal(&cfg); err != nil {
			return fmt.Errorf("reading configuration: %w", err)
		}
		l, err := logging.NewFromConfig(cfg.Log)
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./bookfeed.yaml or ~/.config/bookfeed/bookfeed.yaml)")
	pf.String("catalog", catalog.DefaultPath, "catalog database path")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.String("log-format", "console", "log format (console, json)")

	viper.BindPFlag("catalog.path", pf.Lookup("catalog"))
	viper.BindPFlag("log.level", pf.Lookup("log-level"))
	viper.BindPFlag("log.format", pf.Lookup("log-format"))

	setDefaults(viper.GetViper())
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("catalog.path", catalog.DefaultPath)
	v.SetDefault("catalog.busy_retries", 5)
	v.SetDefault("ingest.workers", 1)
	v.SetDefault("reconcile.trusted_schemes", reconcile.DefaultTrustedSchemes)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("watch.debounce", "500ms")
	v.SetDefault("watch.done_dir", "")
	v.SetDefault("watch.failed_dir", "")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("bookfeed")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "bookfeed"))
		}
	}

	viper.SetEnvPrefix("BOOKFEED")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// openStore opens the configured catalog.
func openStore() (*catalog.Store, error) {
	return catalog.NewStore(cfg.Catalog)
}

// newReconciler builds a reconciler from the configured trusted schemes.
func newReconciler() *reconcile.Reconciler {
	return reconcile.New(
		reconcile.WithTrustedSchemes(cfg.Reconcile.TrustedSchemes),
		reconcile.WithLogger(logger),
	)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
