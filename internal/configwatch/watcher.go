// Package configwatch reloads the livesync config file when it changes on disk.
package configwatch

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/grovetools/livesync/config"
	"github.com/sirupsen/logrus"
)

const defaultDebounce = 100 * time.Millisecond

// ReloadFunc receives each successfully loaded configuration.
type ReloadFunc func(cfg *config.Config)

// Watcher watches one config file. It watches the parent directory so
// editors that save by rename are still seen.
type Watcher struct {
	watcher  *fsnotify.Watcher
	path     string
	target   string // symlink target of path, if any
	debounce time.Duration
	onReload ReloadFunc
	logger   *logrus.Entry

	mu    sync.Mutex
	timer *time.Timer
}

// New creates a watcher for path. debounce <= 0 selects 100ms.
func New(path string, debounce time.Duration, onReload ReloadFunc, logger *logrus.Entry) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		watcher.Close()
		return nil, err
	}

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, err
	}

	// fsnotify doesn't follow symlinks, so watch the target directory too.
	target := ""
	if resolved, err := filepath.EvalSymlinks(abs); err == nil && resolved != abs {
		target = resolved
		if filepath.Dir(resolved) != filepath.Dir(abs) {
			if err := watcher.Add(filepath.Dir(resolved)); err != nil {
				logger.WithError(err).Warnf("Failed to watch symlink target dir %s", filepath.Dir(resolved))
			}
		}
	}

	if debounce <= 0 {
		debounce = defaultDebounce
	}

	return &Watcher{
		watcher:  watcher,
		path:     abs,
		target:   target,
		debounce: debounce,
		onReload: onReload,
		logger:   logger,
	}, nil
}

// Start processes file events until ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) {
	defer w.stopTimer()
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debugf("fsnotify event: %s op=%v", event.Name, event.Op)
			w.schedule()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Errorf("Watcher error: %v", err)
		case <-ctx.Done():
			w.watcher.Close()
			return
		}
	}
}

// Close stops the watcher and releases resources.
func (w *Watcher) Close() error {
	w.stopTimer()
	return w.watcher.Close()
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return false
	}
	name := filepath.Clean(event.Name)
	return name == w.path || (w.target != "" && name == w.target)
}

// schedule restarts the debounce timer so a burst of writes yields one reload.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

func (w *Watcher) reload() {
	cfg, err := config.Load(w.path)
	if err != nil {
		w.logger.WithError(err).Warnf("Ignoring invalid config change in %s", filepath.Base(w.path))
		return
	}
	w.logger.Infof("Config changed: %s", filepath.Base(w.path))
	if w.onReload != nil {
		w.onReload(cfg)
	}
}
