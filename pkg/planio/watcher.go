package planio

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/planshift/planshift/pkg/log"
)

// planExt is the file extension the watcher reacts to.
const planExt = ".json"

// Watcher monitors a directory tree of plan files and reports changes
// after a debounce window, so editors that write in several steps
// trigger one notification.
type Watcher struct {
	mu sync.RWMutex

	root   string
	logger *log.Logger

	fsWatcher *fsnotify.Watcher

	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	// Debouncing: collect events and process in batches
	debounceDelay time.Duration
	pendingEvents map[string]fsnotify.Op
	eventTimer    *time.Timer

	onChange func(path string)
	onRemove func(path string)
	onError  func(err error)
}

// WatcherOption configures the watcher.
type WatcherOption func(*Watcher)

// WithDebounceDelay sets the delay for batching file events. Default is
// 100ms.
func WithDebounceDelay(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounceDelay = d
	}
}

// WithOnChange sets a callback for created or modified plan files.
func WithOnChange(fn func(path string)) WatcherOption {
	return func(w *Watcher) {
		w.onChange = fn
	}
}

// WithOnRemove sets a callback for removed plan files.
func WithOnRemove(fn func(path string)) WatcherOption {
	return func(w *Watcher) {
		w.onRemove = fn
	}
}

// WithOnError sets a callback for watch errors.
func WithOnError(fn func(err error)) WatcherOption {
	return func(w *Watcher) {
		w.onError = fn
	}
}

// NewWatcher creates a watcher over the given directory tree.
func NewWatcher(root string, logger *log.Logger, opts ...WatcherOption) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Nop()
	}

	w := &Watcher{
		root:          root,
		logger:        logger,
		fsWatcher:     fsw,
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
		debounceDelay: 100 * time.Millisecond,
		pendingEvents: make(map[string]fsnotify.Op),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w, nil
}

// Start begins watching for file changes.
func (w *Watcher) Start() error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.addWatchesRecursive(w.root); err != nil {
		return err
	}

	w.logger.Info("plan watcher started", "root", w.root)

	go w.processEvents()

	return nil
}

// Stop stops the watcher and waits for the event processor to finish.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	w.logger.Info("plan watcher stopped")

	return w.fsWatcher.Close()
}

// IsRunning reports whether the watcher is currently running.
func (w *Watcher) IsRunning() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

// addWatchesRecursive adds watches for a directory and all
// subdirectories, skipping hidden ones.
func (w *Watcher) addWatchesRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if !info.IsDir() {
			return nil
		}

		if strings.HasPrefix(info.Name(), ".") && path != root {
			return filepath.SkipDir
		}

		if err := w.fsWatcher.Add(path); err != nil {
			w.logger.Warn("failed to watch directory",
				"path", path,
				"error", err.Error(),
			)
			// Continue watching other directories
			return nil
		}

		w.logger.Debug("watching directory", "path", path)

		return nil
	})
}

// processEvents handles fsnotify events.
func (w *Watcher) processEvents() {
	defer close(w.doneCh)

	for {
		select {
		case <-w.stopCh:
			if w.eventTimer != nil {
				w.eventTimer.Stop()
			}
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watch error", log.Err(err))
			if w.onError != nil {
				w.onError(err)
			}
		}
	}
}

// handleEvent accumulates a single fsnotify event for debouncing.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !strings.HasSuffix(strings.ToLower(event.Name), planExt) {
		// New directories join the watch set
		if event.Has(fsnotify.Create) {
			if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
				if err := w.fsWatcher.Add(event.Name); err == nil {
					w.logger.Debug("added watch for new directory", "path", event.Name)
				}
			}
		}
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	// Last operation wins for the same file
	w.pendingEvents[event.Name] = event.Op

	if w.eventTimer != nil {
		w.eventTimer.Stop()
	}
	w.eventTimer = time.AfterFunc(w.debounceDelay, w.processPendingEvents)
}

// processPendingEvents drains the accumulated batch.
func (w *Watcher) processPendingEvents() {
	w.mu.Lock()
	events := w.pendingEvents
	w.pendingEvents = make(map[string]fsnotify.Op)
	w.mu.Unlock()

	for path, op := range events {
		w.processFileEvent(path, op)
	}
}

// processFileEvent dispatches one debounced file change.
func (w *Watcher) processFileEvent(path string, op fsnotify.Op) {
	if op.Has(fsnotify.Remove) || op.Has(fsnotify.Rename) {
		w.logger.Info("plan file removed", "path", path)
		if w.onRemove != nil {
			w.onRemove(path)
		}
		return
	}

	if op.Has(fsnotify.Create) || op.Has(fsnotify.Write) {
		w.logger.Info("plan file changed", "path", path)
		if w.onChange != nil {
			w.onChange(path)
		}
	}
}
