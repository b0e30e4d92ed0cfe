package endpoint

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce is how long to wait for further writes before reloading.
const watchDebounce = 500 * time.Millisecond

// Watcher hot-reloads the endpoint overrides file into a Registry.
type Watcher struct {
	registry *Registry
	path     string
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
}

// NewWatcher creates a watcher for the overrides file and performs an
// initial load. The file not existing yet is not an error; it will be
// picked up when created.
func NewWatcher(registry *Registry, path string, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory: editors replace files on save, which drops a
	// watch placed on the file itself.
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{
		registry: registry,
		path:     path,
		watcher:  fsw,
		logger:   logger,
	}
	w.reload()
	return w, nil
}

// Run processes file events until the context is canceled.
func (w *Watcher) Run(ctx context.Context) {
	defer w.watcher.Close()

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
				timerC = timer.C
			} else {
				timer.Reset(watchDebounce)
			}

		case <-timerC:
			timer = nil
			timerC = nil
			w.reload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("overrides watcher error", "error", err)
		}
	}
}

func (w *Watcher) reload() {
	overrides, err := LoadOverrides(w.path)
	if err != nil {
		w.logger.Warn("failed to load endpoint overrides", "path", w.path, "error", err)
		return
	}
	w.registry.SetOverrides(overrides)
	w.logger.Info("loaded endpoint overrides", "path", w.path, "count", len(overrides))
}
