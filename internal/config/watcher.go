package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/moolen/usersim/internal/logging"
)

// ReloadCallback receives every document the watcher loads. Returning an
// error rejects the document; the watcher logs it and keeps watching.
type ReloadCallback func(doc *Document) error

// WatcherConfig holds configuration for a Watcher.
type WatcherConfig struct {
	// FilePath is the YAML file to watch
	FilePath string

	// DebounceMillis is the quiet period after the last change event before
	// the file is reloaded. Default: 500ms
	DebounceMillis int

	// Loader parses the file on every reload. Default: FileLoader
	Loader Loader
}

// Watcher reloads a config file whenever it changes on disk.
//
// The parent directory is watched rather than the file itself, so editors
// and WriteBytes that replace the file by renaming over it keep being
// followed. Bursts of events are coalesced by the debounce period. A file
// that fails to load or is rejected by the callback leaves the previously
// accepted document in effect.
type Watcher struct {
	path     string
	debounce time.Duration
	loader   Loader
	callback ReloadCallback
	logger   *logging.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewWatcher creates a watcher for the given file. Nothing is read until Start.
func NewWatcher(config WatcherConfig, callback ReloadCallback) (*Watcher, error) {
	if config.FilePath == "" {
		return nil, fmt.Errorf("FilePath cannot be empty")
	}
	if callback == nil {
		return nil, fmt.Errorf("callback cannot be nil")
	}
	if config.DebounceMillis < 0 {
		return nil, fmt.Errorf("DebounceMillis must not be negative, got %d", config.DebounceMillis)
	}
	if config.DebounceMillis == 0 {
		config.DebounceMillis = 500
	}
	if config.Loader == nil {
		config.Loader = NewFileLoader()
	}

	path := filepath.Clean(config.FilePath)
	return &Watcher{
		path:     path,
		debounce: time.Duration(config.DebounceMillis) * time.Millisecond,
		loader:   config.Loader,
		callback: callback,
		logger:   logging.GetLogger("config.watcher").WithField("path", path),
	}, nil
}

// Start loads the file, hands it to the callback and starts watching. It
// fails if the initial document cannot be loaded or is rejected, or if the
// watch cannot be installed. The watch ends when ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	doc, err := w.loader.Load(w.path)
	if err != nil {
		return fmt.Errorf("failed to load initial config: %w", err)
	}
	if err := w.callback(doc); err != nil {
		return fmt.Errorf("initial callback failed: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		fsw.Close()
		return fmt.Errorf("failed to watch %q: %w", filepath.Dir(w.path), err)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})

	w.logger.InfoWithFields("watching for changes",
		logging.Field("debounce_ms", w.debounce.Milliseconds()))

	go w.run(watchCtx, fsw)
	return nil
}

// run owns the fsnotify watcher and the debounce timer. Reloads happen on
// this goroutine, so no callback runs after Stop returns.
func (w *Watcher) run(ctx context.Context, fsw *fsnotify.Watcher) {
	defer close(w.done)
	defer fsw.Close()

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
			w.logger.Debug("context cancelled, stopping")
			return

		case event, ok := <-fsw.Events:
			if !ok {
				w.logger.Warn("watcher events channel closed")
				return
			}
			if !w.affects(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			w.reload()

		case err, ok := <-fsw.Errors:
			if !ok {
				w.logger.Warn("watcher errors channel closed")
				return
			}
			w.logger.ErrorWithErr("watcher error", err)
		}
	}
}

// affects reports whether a directory event concerns the watched file.
// A rename onto the file arrives as Create; a rename away or a delete
// triggers a reload that fails and keeps the previous document.
func (w *Watcher) affects(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
		event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove)
}

func (w *Watcher) reload() {
	doc, err := w.loader.Load(w.path)
	if err != nil {
		w.logger.Warn("failed to load config (keeping previous config): %v", err)
		return
	}
	if err := w.callback(doc); err != nil {
		w.logger.Warn("reload rejected (keeping previous config): %v", err)
		return
	}
	w.logger.Info("config reloaded")
}

// Stop ends the watch and waits up to 5 seconds for it to finish. Stopping a
// watcher that was never started is a no-op.
func (w *Watcher) Stop() error {
	if w.cancel == nil {
		return nil
	}
	w.cancel()

	select {
	case <-w.done:
		w.logger.Debug("stopped")
		return nil
	case <-time.After(5 * time.Second):
		return fmt.Errorf("timeout waiting for watcher to stop")
	}
}
