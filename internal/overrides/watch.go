package overrides

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// defaultDebounce batches the burst of events a single editor save produces.
const defaultDebounce = 250 * time.Millisecond

// Watcher reloads a Store when its override file is edited externally.
//
// The parent directory is watched rather than the file itself, because
// atomic saves replace the file and would drop a watch on the old inode.
type Watcher struct {
	store    *Store
	path     string
	debounce time.Duration
	logger   Logger
	reloads  atomic.Int64
	onReload func(LoadStatus)
}

// NewWatcher creates a watcher for the override file at path.
func NewWatcher(store *Store, path string) *Watcher {
	return &Watcher{
		store:    store,
		path:     filepath.Clean(path),
		debounce: defaultDebounce,
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the watcher.
func (w *Watcher) SetLogger(logger Logger) {
	w.logger = logger
}

// SetDebounce changes the quiet period before a reload.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

// SetOnReload registers a callback run after every reload, on the
// watcher goroutine.
func (w *Watcher) SetOnReload(fn func(LoadStatus)) {
	w.onReload = fn
}

// Reloads returns how many reloads the watcher has triggered.
func (w *Watcher) Reloads() int64 {
	return w.reloads.Load()
}

// Run watches until ctx is cancelled. It returns nil on cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer fw.Close() //nolint:errcheck // shutdown path

	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	w.logger.Info("watching naming overrides file", "path", w.path)

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			timer.Reset(w.debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("naming overrides watcher error", "error", err)

		case <-timer.C:
			status, changed := w.store.ReloadIfChanged(ctx)
			if !changed {
				w.logger.Debug("naming overrides file unchanged, reload skipped", "path", w.path)
				continue
			}
			w.reloads.Add(1)
			w.logger.Info("naming overrides reloaded", "path", w.path, "status", status.String())
			if w.onReload != nil {
				w.onReload(status)
			}
		}
	}
}
