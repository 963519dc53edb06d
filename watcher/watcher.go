// Package watcher keeps scan results current by following filesystem changes
// below a scan root.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// IgnoreChecker decides which paths are not reported.
type IgnoreChecker interface {
	ShouldIgnoreDir(absolutePath string) bool
	ShouldIgnore(absolutePath string) bool
}

// Watcher watches a directory tree and emits debounced batches of changes.
type Watcher struct {
	fsWatcher     *fsnotify.Watcher
	debouncer     *Debouncer
	ignoreChecker IgnoreChecker
	rootDir       string
	logger        *logrus.Entry
}

// NewWatcher watches rootDir and every subdirectory the checker does not ignore.
// A nil checker ignores nothing. interval <= 0 selects DefaultInterval.
func NewWatcher(rootDir string, ignoreChecker IgnoreChecker, interval time.Duration, logger *logrus.Entry) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	if ignoreChecker == nil {
		ignoreChecker = nothingIgnored{}
	}

	w := &Watcher{
		fsWatcher:     fsWatcher,
		debouncer:     NewDebouncer(interval),
		ignoreChecker: ignoreChecker,
		rootDir:       rootDir,
		logger:        logger.WithField("root", rootDir),
	}

	err = filepath.WalkDir(rootDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != rootDir && ignoreChecker.ShouldIgnoreDir(path) {
			return filepath.SkipDir
		}
		w.watchDir(path)
		return nil
	})
	if err != nil {
		fsWatcher.Close()
		return nil, err
	}

	return w, nil
}

// Root returns the watched directory.
func (w *Watcher) Root() string {
	return w.rootDir
}

// Events returns the channel receiving debounced batches. It is closed by Close.
func (w *Watcher) Events() <-chan []DebouncedEvent {
	return w.debouncer.Output()
}

// Start forwards filesystem events to the debouncer until ctx is done or the
// watcher is closed. Call it in a goroutine.
func (w *Watcher) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
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
			w.logger.WithError(err).Warn("watcher error")
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := event.Name

	if event.Has(fsnotify.Create) {
		info, err := os.Stat(path)
		if err == nil && info.IsDir() {
			if w.ignoreChecker.ShouldIgnoreDir(path) {
				return
			}
			w.watchDir(path)
			// Files moved in together with the directory produce no events of their own.
			w.addExisting(path)
			return
		}
	}

	if w.ignoreChecker.ShouldIgnore(path) {
		return
	}

	var op EventOp
	switch {
	case event.Has(fsnotify.Create):
		op = OpCreate
	case event.Has(fsnotify.Write):
		op = OpWrite
	case event.Has(fsnotify.Remove):
		op = OpRemove
	case event.Has(fsnotify.Rename):
		op = OpRename
	default:
		return
	}

	w.debouncer.Add(path, op)
}

func (w *Watcher) addExisting(dir string) {
	_ = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || path == dir {
			return nil
		}
		if d.IsDir() {
			if w.ignoreChecker.ShouldIgnoreDir(path) {
				return filepath.SkipDir
			}
			w.watchDir(path)
			return nil
		}
		if !w.ignoreChecker.ShouldIgnore(path) {
			w.debouncer.Add(path, OpCreate)
		}
		return nil
	})
}

func (w *Watcher) watchDir(path string) {
	if err := w.fsWatcher.Add(path); err != nil {
		w.logger.WithError(err).WithField("path", path).Warn("failed to watch directory")
	}
}

// Close stops watching and closes the Events channel.
func (w *Watcher) Close() error {
	err := w.fsWatcher.Close()
	w.debouncer.Stop()
	return err
}

type nothingIgnored struct{}

func (nothingIgnored) ShouldIgnoreDir(string) bool { return false }
func (nothingIgnored) ShouldIgnore(string) bool    { return false }
