// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ingest imports publisher feed files into the catalog.
//
// Every file is applied in one catalog transaction: either all of its
// records land or none do. Files are independent, so a failing file is
// reported and the batch moves on.
package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/bookfeed/internal/catalog"
	"github.com/pdiddy/bookfeed/internal/feed"
	"github.com/pdiddy/bookfeed/internal/reconcile"
	"github.com/pdiddy/bookfeed/pkg/types"
)

// Summary holds counts from an ingest run.
type Summary struct {
	Imported int
	Failed   int
	Records  int
	Issues   int
}

// Total returns the number of files seen.
func (s Summary) Total() int {
	return s.Imported + s.Failed
}

func (s *Summary) add(fr FileResult) {
	if fr.Err != nil {
		s.Failed++
		return
	}
	s.Imported++
	s.Records += fr.Records
	s.Issues += fr.NewIssues
}

// FileResult reports the outcome of one file.
type FileResult struct {
	File      string
	Records   int
	NewIssues int
	Err       error
}

// Runner applies feed files to a catalog store.
type Runner struct {
	store      *catalog.Store
	reconciler *reconcile.Reconciler
	logger     *slog.Logger
	workers    int
}

// NewRunner creates a Runner. workers below 1 means sequential.
func NewRunner(store *catalog.Store, reconciler *reconcile.Reconciler, cfg types.IngestConfig, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	return &Runner{
		store:      store,
		reconciler: reconciler,
		logger:     logger,
		workers:    workers,
	}
}

// Run ingests files with bounded parallelism and writes one progress line
// per file plus a final summary to w. A failed file does not stop the
// batch; cancelling ctx stops new files from starting. The returned error
// is non-nil only when ctx was cancelled.
func (r *Runner) Run(ctx context.Context, files []string, w io.Writer) (Summary, error) {
	runID := uuid.NewString()
	logger := r.logger.With("run_id", runID)
	logger.Info("ingest started", "files", len(files), "workers", r.workers)

	var (
		mu      sync.Mutex
		summary Summary
	)

	g := new(errgroup.Group)
	g.SetLimit(r.workers)

	for _, path := range files {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			// A file waiting for a worker when ctx is cancelled is skipped.
			if ctx.Err() != nil {
				return nil
			}
			fr := r.ingestFile(ctx, logger, path, filepath.Base(path))

			mu.Lock()
			defer mu.Unlock()
			summary.add(fr)
			writeFileLine(w, fr)
			return nil
		})
	}
	g.Wait()

	fmt.Fprintf(w, "\nimported: %d, failed: %d, records: %d, issues: %d\n",
		summary.Imported, summary.Failed, summary.Records, summary.Issues)

	logger.Info("ingest finished",
		"imported", summary.Imported,
		"failed", summary.Failed,
		"records", summary.Records,
		"issues", summary.Issues,
	)

	if err := ctx.Err(); err != nil {
		return summary, fmt.Errorf("ingest interrupted after %d of %d files: %w", summary.Total(), len(files), err)
	}
	return summary, nil
}

// IngestFile applies a single file. sourceName is the name stored on the
// file's issues; empty means the base name of path.
func (r *Runner) IngestFile(ctx context.Context, path, sourceName string) FileResult {
	if sourceName == "" {
		sourceName = filepath.Base(path)
	}
	logger := r.logger.With("run_id", uuid.NewString())
	return r.ingestFile(ctx, logger, path, sourceName)
}

func (r *Runner) ingestFile(ctx context.Context, logger *slog.Logger, path, sourceName string) FileResult {
	fr := FileResult{File: path}
	logger = logger.With("source_file", sourceName)

	records, err := feed.ParseFile(path, sourceName)
	if err != nil {
		fr.Err = err
		logger.Warn("feed rejected", "error", err)
		return fr
	}

	// Reject a file with an invalid record before taking the write lock.
	for i, rec := range records {
		if err := reconcile.ValidateRecord(rec); err != nil {
			fr.Err = fmt.Errorf("record %d: %w", i+1, err)
			logger.Warn("feed rejected", "error", fr.Err)
			return fr
		}
	}

	err = r.store.WithinTx(ctx, func(tx *catalog.Tx) error {
		// The transaction may be retried, so counts restart each attempt.
		fr.Records, fr.NewIssues = 0, 0
		for i, rec := range records {
			res, err := r.reconciler.Process(ctx, tx, rec)
			if err != nil {
				return fmt.Errorf("record %d (%s): %w", i+1, rec.DeclaredID, err)
			}
			fr.Records++
			fr.NewIssues += res.NewIssues
		}
		return nil
	})
	if err != nil {
		fr.Records, fr.NewIssues = 0, 0
		fr.Err = err
		logger.Error("file rolled back", "error", err)
		return fr
	}

	logger.Info("file imported", "records", fr.Records, "new_issues", fr.NewIssues)
	return fr
}

func writeFileLine(w io.Writer, fr FileResult) {
	if fr.Err != nil {
		fmt.Fprintf(w, "failed   %s: %v\n", fr.File, fr.Err)
		return
	}
	fmt.Fprintf(w, "imported %s (%d records, %d new issues)\n", fr.File, fr.Records, fr.NewIssues)
}
