package organizer

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/lexandro/fileorganizer-mcp/classify"
	"github.com/lexandro/fileorganizer-mcp/scanner"
)

// ApplyChange updates the stored result for a single path under rootDir after
// a filesystem change. Changes outside the latest scan root are ignored.
// A path that no longer exists, or that a scan would not report, is removed.
// Symlinks follow the same rule as the scanner's FollowSymlinks option.
func (o *Organizer) ApplyChange(rootDir string, path string) {
	if root := o.Root(); root == "" || root != rootDir || !within(rootDir, path) {
		return
	}

	info, err := scanner.Stat(path, o.options.Scan.FollowSymlinks)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) && !errors.Is(err, scanner.ErrNotRegular) {
			o.logger.WithError(err).WithField("path", path).Debug("stat failed, dropping result")
		}
		o.Forget(path)
		return
	}

	o.syncMu.Lock()
	_ = o.syncLocked()
	record := classify.Classify(scanner.Describe(rootDir, path, info), o.idx.Load())
	if previous, ok := o.store.Get(path); ok && sameRecord(previous, record) {
		o.syncMu.Unlock()
		return
	}
	o.store.Upsert(record)
	if o.paths != nil {
		if err := o.paths.Add(record); err != nil {
			o.logger.WithError(err).WithField("path", path).Warn("failed to index changed path")
		}
	}
	o.syncMu.Unlock()
	o.listeners.emit(Event{Type: EventFileChanged, Root: rootDir, Path: path, Record: &record})
}

// Forget drops the result for path, or every result below it when path is a
// directory, without looking at the disk.
func (o *Organizer) Forget(path string) {
	prefix := path + string(filepath.Separator)
	var removed []string
	o.store.Rewrite(func(current []classify.Record) []classify.Record {
		kept := make([]classify.Record, 0, len(current))
		for _, record := range current {
			if record.Path == path || strings.HasPrefix(record.Path, prefix) {
				removed = append(removed, record.Path)
				continue
			}
			kept = append(kept, record)
		}
		return kept
	})

	for _, p := range removed {
		if o.paths != nil {
			if err := o.paths.Remove(p); err != nil {
				o.logger.WithError(err).WithField("path", p).Warn("failed to unindex removed path")
			}
		}
		o.listeners.emit(Event{Type: EventFileRemoved, Path: p})
	}
}

func sameRecord(a, b classify.Record) bool {
	return a.Category == b.Category &&
		a.SizeBytes == b.SizeBytes &&
		a.ModTime.Equal(b.ModTime) &&
		a.RelativePath == b.RelativePath
}

func within(rootDir, path string) bool {
	rel, err := filepath.Rel(rootDir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
