package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/lexandro/fileorganizer-mcp/category"
	"github.com/lexandro/fileorganizer-mcp/config"
	"github.com/lexandro/fileorganizer-mcp/ignore"
	"github.com/lexandro/fileorganizer-mcp/index"
	"github.com/lexandro/fileorganizer-mcp/logging"
	"github.com/lexandro/fileorganizer-mcp/organizer"
	"github.com/lexandro/fileorganizer-mcp/results"
	"github.com/lexandro/fileorganizer-mcp/scanner"
	"github.com/lexandro/fileorganizer-mcp/watcher"
	"github.com/sirupsen/logrus"
)

// engine owns the long-lived parts shared by the commands.
type engine struct {
	cfg       *config.Config
	logger    *logrus.Logger
	registry  *category.Registry
	store     *results.Store
	paths     *index.PathIndex
	organizer *organizer.Organizer

	watchMu     sync.Mutex
	watcher     *watcher.Watcher
	watchCancel context.CancelFunc
}

// newEngine builds the registry from the configuration (or from
// categoriesFile when it exists) and wires the organizer.
func newEngine(cfg *config.Config, logger *logrus.Logger, categoriesFile string) (*engine, error) {
	registry := category.NewRegistry()
	source, err := categorySource(cfg, categoriesFile)
	if err != nil {
		return nil, err
	}
	if err := config.ApplyCategories(registry, source); err != nil {
		return nil, fmt.Errorf("loading categories: %w", err)
	}

	pathIndex, err := index.NewPathIndex()
	if err != nil {
		return nil, fmt.Errorf("creating path index: %w", err)
	}

	e := &engine{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		store:    results.NewStore(),
		paths:    pathIndex,
	}
	e.organizer = organizer.New(registry, e.store, organizer.Options{
		Scan:      e.scanOptions(),
		NewIgnore: e.ignoreFor,
		PathIndex: pathIndex,
		Logger:    logger,
	})
	return e, nil
}

func categorySource(cfg *config.Config, categoriesFile string) (*config.Config, error) {
	if categoriesFile == "" {
		return cfg, nil
	}
	if _, err := os.Stat(categoriesFile); errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	saved, err := config.Load(categoriesFile)
	if err != nil {
		return nil, fmt.Errorf("loading saved categories: %w", err)
	}
	return saved, nil
}

func (e *engine) scanOptions() scanner.Options {
	return scanner.Options{
		MaxDepth:       e.cfg.Scan.MaxDepth,
		FollowSymlinks: e.cfg.Scan.FollowSymlinks,
	}
}

func (e *engine) newMatcher(rootDir string) *ignore.Matcher {
	return ignore.NewMatcher(ignore.MatcherOptions{
		RootDir:      rootDir,
		Patterns:     e.cfg.Scan.Exclude,
		UseGitignore: e.cfg.Scan.RespectGitignore,
	})
}

func (e *engine) ignoreFor(rootDir string) scanner.IgnoreChecker {
	return e.newMatcher(rootDir)
}

// watch follows changes below rootDir, replacing any previous watch.
func (e *engine) watch(ctx context.Context, rootDir string) {
	e.watchMu.Lock()
	defer e.watchMu.Unlock()

	if e.watcher != nil && e.watcher.Root() == rootDir {
		return
	}
	e.stopWatchLocked()

	matcher := e.newMatcher(rootDir)
	logger := logging.Component(e.logger, "watcher")
	fileWatcher, err := watcher.NewWatcher(rootDir, matcher, 0, logger)
	if err != nil {
		logger.WithError(err).Warn("failed to start file watcher, continuing without live updates")
		return
	}

	watchCtx, cancel := context.WithCancel(ctx)
	e.watcher = fileWatcher
	e.watchCancel = cancel
	go fileWatcher.Start(watchCtx)
	go handleWatcherEvents(fileWatcher, e.organizer, matcher, logger)
	logger.WithField("root", rootDir).Info("watching for changes")
}

// watching returns the watched root, or "".
func (e *engine) watching() string {
	e.watchMu.Lock()
	defer e.watchMu.Unlock()
	if e.watcher == nil {
		return ""
	}
	return e.watcher.Root()
}

func (e *engine) stopWatchLocked() {
	if e.watcher == nil {
		return
	}
	e.watchCancel()
	if err := e.watcher.Close(); err != nil {
		e.logger.WithError(err).Debug("closing watcher")
	}
	e.watcher = nil
	e.watchCancel = nil
}

func (e *engine) close() {
	e.watchMu.Lock()
	e.stopWatchLocked()
	e.watchMu.Unlock()

	if err := e.paths.Close(); err != nil {
		e.logger.WithError(err).Debug("closing path index")
	}
}

// handleWatcherEvents applies debounced changes to the stored results until
// the watcher is closed.
func handleWatcherEvents(fileWatcher *watcher.Watcher, org *organizer.Organizer, matcher *ignore.Matcher, logger *logrus.Entry) {
	for events := range fileWatcher.Events() {
		for _, event := range events {
			if filepath.Base(event.Path) == ".gitignore" && (event.Op == watcher.OpCreate || event.Op == watcher.OpWrite) {
				matcher.Reload()
				logger.WithField("trigger", event.Path).Info("reloaded ignore rules")
			}

			org.ApplyChange(fileWatcher.Root(), event.Path)
			logger.WithFields(logrus.Fields{"path": event.Path, "op": event.Op.String()}).Debug("applied change")
		}
	}
}
