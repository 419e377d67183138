// Package watch reloads configuration when its file changes on disk.
//
// The parent directory is watched rather than the file itself so that
// editors which save by writing a temporary file and renaming it over the
// watched file keep triggering reloads.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// defaultDebounce coalesces the burst of events a single save produces.
const defaultDebounce = 200 * time.Millisecond

// Options configures the watcher behavior.
type Options struct {
	FilePath string        // File to watch
	Debounce time.Duration // Quiet period before OnChange runs (default 200ms)
	OnChange func() error  // Called after the file changed; errors are logged
	Logger   *slog.Logger  // Optional; defaults to discarding output
}

// Watcher calls OnChange after each settled change to a file.
type Watcher struct {
	opts    Options
	path    string
	watcher *fsnotify.Watcher
	logger  *slog.Logger
}

// New creates a new Watcher with the given options.
func New(opts Options) (*Watcher, error) {
	if opts.FilePath == "" {
		return nil, errors.New("file path is required")
	}
	if opts.OnChange == nil {
		return nil, errors.New("OnChange callback is required")
	}
	if opts.Debounce <= 0 {
		opts.Debounce = defaultDebounce
	}

	path, err := filepath.Abs(opts.FilePath)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", opts.FilePath, err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Watcher{
		opts:   opts,
		path:   filepath.Clean(path),
		logger: logger.With("component", "watch", "file", path),
	}, nil
}

// Run watches until ctx is cancelled or the underlying watcher fails.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.setupWatcher(); err != nil {
		return fmt.Errorf("failed to setup watcher: %w", err)
	}
	defer w.watcher.Close()

	return w.watch(ctx)
}

// setupWatcher initializes the fsnotify watcher on the file's directory.
func (w *Watcher) setupWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.watcher = watcher

	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		watcher.Close()
		return err
	}
	return nil
}

func (w *Watcher) watch(ctx context.Context) error {
	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher closed unexpectedly")
			}
			if !w.relevant(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.opts.Debounce)
			} else {
				timer.Reset(w.opts.Debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			w.logger.Info("config file changed, reloading")
			if err := w.opts.OnChange(); err != nil {
				w.logger.Warn("reload failed", "error", err)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher error channel closed")
			}
			return fmt.Errorf("watcher error: %w", err)
		}
	}
}

// relevant reports whether event may have changed the watched file's
// content. Removal alone is ignored; the Create that follows a rename-save
// triggers the reload.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	switch {
	case event.Has(fsnotify.Write), event.Has(fsnotify.Create):
		return true
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		w.logger.Debug("config file moved away, waiting for it to reappear")
		return false
	default:
		// Chmod
		return false
	}
}
