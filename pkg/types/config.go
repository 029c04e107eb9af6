// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// CatalogConfig holds settings for the SQLite catalog.
type CatalogConfig struct {
	// Path is the SQLite database file (default "catalog/bookfeed.db").
	Path string `json:"path" yaml:"path" mapstructure:"path"`

	// BusyRetries is the number of times a locked transaction is retried
	// before the file fails (default 5).
	BusyRetries int `json:"busy_retries" yaml:"busy_retries" mapstructure:"busy_retries"`
}

// ReconcileConfig holds settings for identifier resolution.
type ReconcileConfig struct {
	// TrustedSchemes are the alias schemes, in precedence order, whose
	// values may stand in for a declared book id (default ISBN-10, ISBN-13).
	TrustedSchemes []string `json:"trusted_schemes" yaml:"trusted_schemes" mapstructure:"trusted_schemes"`
}

// IngestConfig holds settings for batch ingestion.
type IngestConfig struct {
	// Workers is the number of files processed concurrently (default 1).
	Workers int `json:"workers" yaml:"workers" mapstructure:"workers"`
}

// WatchConfig holds settings for the inbox watcher.
type WatchConfig struct {
	// Debounce is how long a file must stay unchanged before it is ingested.
	Debounce time.Duration `json:"debounce" yaml:"debounce" mapstructure:"debounce"`

	// DoneDir receives successfully ingested files. Empty leaves them in place.
	DoneDir string `json:"done_dir" yaml:"done_dir" mapstructure:"done_dir"`

	// FailedDir receives files that failed. Empty leaves them in place.
	FailedDir string `json:"failed_dir" yaml:"failed_dir" mapstructure:"failed_dir"`
}

// LogConfig selects the log level and handler format.
type LogConfig struct {
	Level  string `json:"level" yaml:"level" mapstructure:"level"`
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// Config groups all settings for the bookfeed CLI.
type Config struct {
	Catalog   CatalogConfig   `json:"catalog" yaml:"catalog" mapstructure:"catalog"`
	Reconcile ReconcileConfig `json:"reconcile" yaml:"reconcile" mapstructure:"reconcile"`
	Ingest    IngestConfig    `json:"ingest" yaml:"ingest" mapstructure:"ingest"`
	Watch     WatchConfig     `json:"watch" yaml:"watch" mapstructure:"watch"`
	Log       LogConfig       `json:"log" yaml:"log" mapstructure:"log"`
}
