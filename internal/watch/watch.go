// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package watch ingests feed files as they land in an inbox directory.
//
// A file is ingested once it has stopped changing for the debounce
// interval. Only one watcher may feed a catalog at a time; the watcher
// holds an exclusive lock on a file next to the catalog database while it
// runs.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gofrs/flock"

	"github.com/pdiddy/bookfeed/internal/ingest"
	"github.com/pdiddy/bookfeed/pkg/types"
)

// DefaultDebounce is used when WatchConfig.Debounce is zero.
const DefaultDebounce = 500 * time.Millisecond

// ErrAlreadyWatching is returned when another watcher holds the lock.
var ErrAlreadyWatching = errors.New("another watcher is already feeding this catalog")

// LockPath returns the lock file guarding the catalog at catalogPath.
func LockPath(catalogPath string) string {
	return catalogPath + ".lock"
}

// Watcher feeds files from an inbox directory to an ingest runner.
type Watcher struct {
	runner   *ingest.Runner
	lock     *flock.Flock
	debounce time.Duration
	doneDir  string
	failDir  string
	logger   *slog.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer
	ready   chan string

	// timers counts debounce callbacks that are armed or running.
	timers sync.WaitGroup
}

// New creates a Watcher. lockPath is usually LockPath(catalog path).
func New(runner *ingest.Runner, lockPath string, cfg types.WatchConfig, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		runner:   runner,
		lock:     flock.New(lockPath),
		debounce: debounce,
		doneDir:  cfg.DoneDir,
		failDir:  cfg.FailedDir,
		logger:   logger,
		pending:  make(map[string]*time.Timer),
		ready:    make(chan string, 64),
	}
}

// Run watches dir until ctx is cancelled, ingesting every *.xml file that
// is created or written there. Files already present when Run starts are
// ingested first. One line per file is written to out.
func (w *Watcher) Run(ctx context.Context, dir string, out io.Writer) error {
	ok, err := w.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquiring watch lock %s: %w", w.lock.Path(), err)
	}
	if !ok {
		return fmt.Errorf("%w (lock %s)", ErrAlreadyWatching, w.lock.Path())
	}
	defer w.lock.Unlock()

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	// Debounce callbacks are bound to this context and are drained before
	// Run returns, whichever way it returns.
	ctx, cancel := context.WithCancel(ctx)
	defer w.drain(cancel)

	w.logger.Info("watching inbox", "dir", dir, "debounce", w.debounce)

	existing, err := inboxFiles(dir)
	if err != nil {
		return err
	}
	for _, path := range existing {
		w.process(ctx, path, out)
	}

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watch stopped", "dir", dir)
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, event)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)

		case path := <-w.ready:
			w.process(ctx, path, out)
		}
	}
}

func (w *Watcher) handle(ctx context.Context, event fsnotify.Event) {
	if !isFeedFile(event.Name) {
		return
	}
	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		w.cancel(event.Name)
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		w.settle(ctx, event.Name)
	}
}

// settle (re)starts the debounce timer for path.
func (w *Watcher) settle(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.stopLocked(path)

	var t *time.Timer
	w.timers.Add(1)
	t = time.AfterFunc(w.debounce, func() {
		defer w.timers.Done()

		w.mu.Lock()
		if w.pending[path] == t {
			delete(w.pending, path)
		}
		w.mu.Unlock()

		select {
		case w.ready <- path:
		case <-ctx.Done():
		}
	})
	w.pending[path] = t
}

func (w *Watcher) cancel(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopLocked(path)
}

// stopLocked disarms the timer for path. A timer stopped before firing
// never runs its callback, so its slot in timers is released here.
func (w *Watcher) stopLocked(path string) {
	t, ok := w.pending[path]
	if !ok {
		return
	}
	if t.Stop() {
		w.timers.Done()
	}
	delete(w.pending, path)
}

// drain cancels the run context, disarms pending timers and waits for
// callbacks already firing to give up.
func (w *Watcher) drain(cancel context.CancelFunc) {
	cancel()
	w.mu.Lock()
	for path := range w.pending {
		w.stopLocked(path)
	}
	w.mu.Unlock()
	w.timers.Wait()
}

func (w *Watcher) process(ctx context.Context, path string, out io.Writer) {
	if _, err := os.Stat(path); err != nil {
		// Moved away or deleted while settling.
		return
	}

	fr := w.runner.IngestFile(ctx, path, "")
	dest := w.doneDir
	if fr.Err != nil {
		fmt.Fprintf(out, "failed   %s: %v\n", path, fr.Err)
		dest = w.failDir
	} else {
		fmt.Fprintf(out, "imported %s (%d records, %d new issues)\n", path, fr.Records, fr.NewIssues)
	}

	if dest == "" {
		return
	}
	if err := moveInto(path, dest); err != nil {
		w.logger.Warn("moving processed file", "file", path, "dest", dest, "error", err)
	}
}

func moveInto(path, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	return os.Rename(path, filepath.Join(dir, filepath.Base(path)))
}

func inboxFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading inbox %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.Type().IsRegular() && isFeedFile(e.Name()) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

func isFeedFile(name string) bool {
	base := filepath.Base(name)
	return strings.EqualFold(filepath.Ext(base), ".xml") && !strings.HasPrefix(base, ".")
}
