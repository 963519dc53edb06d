package main

import (
	"context"
	"time"

	"github.com/lexandro/fileorganizer-mcp/organizer"
	"github.com/lexandro/fileorganizer-mcp/scanner"
	"github.com/sirupsen/logrus"
)

// SyncResult holds the outcome of a single sync verification run.
type SyncResult struct {
	MissingFiles  int // files on disk but not in the results
	StaleFiles    int // results whose file is gone or now ignored
	ModifiedFiles int // files whose size or ModTime differs
	Duration      time.Duration
}

// runPeriodicSync verifies the results of the latest scan root against the
// disk at the given interval, catching changes the watcher missed.
// It runs until ctx is done.
func runPeriodicSync(
	ctx context.Context,
	interval time.Duration,
	org *organizer.Organizer,
	options scanner.Options,
	ignoreFor func(rootDir string) scanner.IgnoreChecker,
	logger *logrus.Entry,
) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.WithField("interval", interval).Info("periodic sync started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("periodic sync stopped")
			return
		case <-ticker.C:
			if org.Status().ActiveScan != nil {
				continue
			}
			rootDir := org.Root()
			if rootDir == "" {
				continue
			}
			options.Ignore = ignoreFor(rootDir)
			result := performSyncVerification(ctx, rootDir, org, options, logger)
			entry := logger.WithFields(logrus.Fields{
				"missing":  result.MissingFiles,
				"stale":    result.StaleFiles,
				"modified": result.ModifiedFiles,
				"duration": result.Duration,
			})
			if result.MissingFiles+result.StaleFiles+result.ModifiedFiles > 0 {
				entry.Info("sync verification complete")
			} else {
				entry.Debug("sync verification complete, results are in sync")
			}
		}
	}
}

// performSyncVerification compares the files under rootDir with the stored
// results and applies the differences.
func performSyncVerification(
	ctx context.Context,
	rootDir string,
	org *organizer.Organizer,
	options scanner.Options,
	logger *logrus.Entry,
) SyncResult {
	start := time.Now()
	var result SyncResult

	// Warnings were already reported by the scan.
	options.OnWarning = nil
	diskFiles := make(map[string]scanner.Descriptor)
	walker := scanner.New(options, logger)
	err := walker.Walk(ctx, rootDir, func(d scanner.Descriptor) error {
		diskFiles[d.Path] = d
		return nil
	})
	if err != nil || ctx.Err() != nil {
		logger.WithError(err).Debug("sync verification skipped")
		result.Duration = time.Since(start)
		return result
	}

	stored := org.Store().Snapshot()
	storedSet := make(map[string]scanner.Descriptor, len(stored))
	for _, record := range stored {
		storedSet[record.Path] = record.Descriptor
	}

	for path, onDisk := range diskFiles {
		known, exists := storedSet[path]
		switch {
		case !exists:
			org.ApplyChange(rootDir, path)
			logger.WithField("path", path).Info("sync: added missing file")
			result.MissingFiles++
		case !onDisk.ModTime.Equal(known.ModTime) || onDisk.SizeBytes != known.SizeBytes:
			org.ApplyChange(rootDir, path)
			logger.WithField("path", path).Info("sync: refreshed modified file")
			result.ModifiedFiles++
		}
	}

	for path := range storedSet {
		if _, exists := diskFiles[path]; !exists {
			org.Forget(path)
			logger.WithField("path", path).Info("sync: removed stale file")
			result.StaleFiles++
		}
	}

	result.Duration = time.Since(start)
	return result
}
