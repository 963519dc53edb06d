// Package scanner walks a directory tree and reports every regular file as a
// Descriptor, as soon as it is found.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lexandro/fileorganizer-mcp/extension"
	"github.com/sirupsen/logrus"
)

// ErrNotRegular is returned by Stat for paths a walk would not report.
var ErrNotRegular = errors.New("not a regular file")

// ErrInvalidRoot is returned when the scan root does not exist or is not a directory.
var ErrInvalidRoot = errors.New("invalid scan root")

// Descriptor describes one discovered file. It is a value type and is never
// modified after the scanner creates it.
type Descriptor struct {
	Path         string    `json:"path"`         // Absolute file path
	RelativePath string    `json:"relativePath"` // Path relative to the scan root (forward slashes)
	Extension    string    `json:"extension"`    // Normalized, "" when the file has none
	SizeBytes    int64     `json:"sizeBytes"`
	ModTime      time.Time `json:"modTime"`
}

// Name returns the file's base name.
func (d Descriptor) Name() string {
	return filepath.Base(d.Path)
}

// Warning reports an entry that was skipped because of an I/O error.
type Warning struct {
	Path string
	Err  error
}

func (w Warning) Error() string {
	return fmt.Sprintf("skipped %s: %v", w.Path, w.Err)
}

// IgnoreChecker is used by the scanner to leave out paths.
type IgnoreChecker interface {
	ShouldIgnoreDir(absolutePath string) bool
	ShouldIgnore(absolutePath string) bool
}

// Options configures a Scanner.
type Options struct {
	// MaxDepth limits recursion; 1 reports only files directly in the root.
	// Zero or negative means unbounded.
	MaxDepth int
	// FollowSymlinks reports symlinked files using the target's size and time.
	// Symlinked directories are never descended.
	FollowSymlinks bool
	// Ignore, when set, filters files and prunes directories.
	Ignore IgnoreChecker
	// OnWarning receives every skipped entry. Called from the walking goroutine.
	OnWarning func(Warning)
}

// Scanner walks directory trees. A Scanner holds no per-scan state and may be
// used for several walks at once.
type Scanner struct {
	options Options
	logger  *logrus.Entry
}

// New creates a scanner.
func New(options Options, logger *logrus.Entry) *Scanner {
	return &Scanner{options: options, logger: logger}
}

// ResolveRoot returns the absolute, symlink-resolved form of root, or
// ErrInvalidRoot if it is missing or not a directory.
func ResolveRoot(root string) (string, error) {
	if strings.TrimSpace(root) == "" {
		return "", fmt.Errorf("%w: empty path", ErrInvalidRoot)
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrInvalidRoot, root, err)
	}
	resolved, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrInvalidRoot, root, err)
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrInvalidRoot, root, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s is not a directory", ErrInvalidRoot, root)
	}
	return resolved, nil
}

// Walk calls fn for every file under root in lexical order, as each is found.
// The context is checked before every entry; once it is done the walk stops
// and Walk returns nil. An error returned by fn stops the walk and is
// returned, except filepath.SkipAll which stops it quietly.
func (s *Scanner) Walk(ctx context.Context, root string, fn func(Descriptor) error) error {
	rootDir, err := ResolveRoot(root)
	if err != nil {
		return err
	}
	return s.walk(ctx, rootDir, fn)
}

// Scan returns a lazy sequence of descriptors. Nothing is read until the
// sequence is ranged over, and breaking out of the range stops the walk.
func (s *Scanner) Scan(ctx context.Context, root string) (iter.Seq[Descriptor], error) {
	rootDir, err := ResolveRoot(root)
	if err != nil {
		return nil, err
	}
	return func(yield func(Descriptor) bool) {
		_ = s.walk(ctx, rootDir, func(d Descriptor) error {
			if !yield(d) {
				return filepath.SkipAll
			}
			return nil
		})
	}, nil
}

func (s *Scanner) walk(ctx context.Context, rootDir string, fn func(Descriptor) error) error {
	return filepath.WalkDir(rootDir, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return filepath.SkipAll
		}
		if err != nil {
			// Unreadable directory or vanished entry: skip it, keep walking.
			s.warn(path, err)
			return nil
		}

		if d.IsDir() {
			if path == rootDir {
				return nil
			}
			if s.options.MaxDepth > 0 && depth(rootDir, path) >= s.options.MaxDepth {
				return filepath.SkipDir
			}
			if s.options.Ignore != nil && s.options.Ignore.ShouldIgnoreDir(path) {
				return filepath.SkipDir
			}
			return nil
		}

		if s.options.Ignore != nil && s.options.Ignore.ShouldIgnore(path) {
			return nil
		}

		info, ok := s.entryInfo(path, d)
		if !ok {
			return nil
		}
		return fn(Describe(rootDir, path, info))
	})
}

// entryInfo returns file info for regular files and, when following links,
// for symlinks pointing at regular files.
func (s *Scanner) entryInfo(path string, d fs.DirEntry) (fs.FileInfo, bool) {
	if d.Type()&fs.ModeSymlink != 0 {
		if !s.options.FollowSymlinks {
			s.logger.WithField("path", path).Debug("symlink not followed")
			return nil, false
		}
		info, err := Stat(path, true)
		if errors.Is(err, ErrNotRegular) {
			s.logger.WithField("path", path).Debug("symlink target is not a regular file")
			return nil, false
		}
		if err != nil {
			s.warn(path, err)
			return nil, false
		}
		return info, true
	}

	if !d.Type().IsRegular() {
		return nil, false
	}
	info, err := d.Info()
	if err != nil {
		s.warn(path, err)
		return nil, false
	}
	return info, true
}

// Stat returns file info for a single path under the same rules as a walk:
// regular files are reported, and symlinks to regular files when
// followSymlinks is set, with the target's size and time. Anything else
// fails with ErrNotRegular.
func Stat(path string, followSymlinks bool) (fs.FileInfo, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return nil, err
	}
	if info.Mode()&fs.ModeSymlink != 0 {
		if !followSymlinks {
			return nil, fmt.Errorf("%s: %w", path, ErrNotRegular)
		}
		if info, err = os.Stat(path); err != nil {
			return nil, err
		}
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%s: %w", path, ErrNotRegular)
	}
	return info, nil
}

func (s *Scanner) warn(path string, err error) {
	s.logger.WithField("path", path).WithError(err).Warn("skipped entry")
	if s.options.OnWarning != nil {
		s.options.OnWarning(Warning{Path: path, Err: err})
	}
}

// Describe builds a Descriptor for a file under rootDir.
func Describe(rootDir string, path string, info fs.FileInfo) Descriptor {
	relPath, err := filepath.Rel(rootDir, path)
	if err != nil {
		relPath = path
	}
	return Descriptor{
		Path:         path,
		RelativePath: filepath.ToSlash(relPath),
		Extension:    extension.FromPath(path),
		SizeBytes:    info.Size(),
		ModTime:      info.ModTime(),
	}
}

// depth counts path components between rootDir and path.
func depth(rootDir string, path string) int {
	relPath, err := filepath.Rel(rootDir, path)
	if err != nil || relPath == "." {
		return 0
	}
	return strings.Count(filepath.ToSlash(relPath), "/") + 1
}
