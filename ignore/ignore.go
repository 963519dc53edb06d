// Package ignore decides which paths a scan skips.
package ignore

import (
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	gitignore "github.com/denormal/go-gitignore"
)

// Matcher combines the default skip lists, an optional .gitignore at the scan
// root and user exclude patterns (doublestar syntax).
// Thread-safe: Reload() acquires a write lock, ShouldIgnore()/ShouldIgnoreDir() acquire a read lock.
type Matcher struct {
	mu           sync.RWMutex
	rootDir      string
	useGitignore bool
	useDefaults  bool
	gitIgnore    gitignore.GitIgnore
	patterns     []string
}

// MatcherOptions configures the ignore matcher.
type MatcherOptions struct {
	RootDir      string
	Patterns     []string // e.g. "**/node_modules", "*.tmp"
	UseGitignore bool
	SkipDefaults bool // disable DefaultSkipDirs and DefaultIgnorePatterns
}

// NewMatcher creates a matcher for one scan root.
func NewMatcher(options MatcherOptions) *Matcher {
	patterns := make([]string, 0, len(options.Patterns))
	for _, p := range options.Patterns {
		p = strings.TrimSpace(strings.ReplaceAll(p, "\\", "/"))
		if p != "" && doublestar.ValidatePattern(p) {
			patterns = append(patterns, p)
		}
	}

	matcher := &Matcher{
		rootDir:      options.RootDir,
		useGitignore: options.UseGitignore,
		useDefaults:  !options.SkipDefaults,
		patterns:     patterns,
	}
	if matcher.useGitignore {
		matcher.gitIgnore = loadIgnoreFile(filepath.Join(options.RootDir, ".gitignore"), options.RootDir)
	}
	return matcher
}

// ShouldIgnore reports whether a file should be left out of the scan.
func (m *Matcher) ShouldIgnore(absolutePath string) bool {
	return m.match(absolutePath, false)
}

// ShouldIgnoreDir reports whether a directory should be skipped entirely.
func (m *Matcher) ShouldIgnoreDir(absolutePath string) bool {
	if m.useDefaults {
		dirName := filepath.Base(absolutePath)
		for _, skip := range DefaultSkipDirs {
			if strings.EqualFold(dirName, skip) {
				return true
			}
		}
	}
	return m.match(absolutePath, true)
}

// Patterns returns the accepted exclude patterns.
func (m *Matcher) Patterns() []string {
	result := make([]string, len(m.patterns))
	copy(result, m.patterns)
	return result
}

func (m *Matcher) match(absolutePath string, isDir bool) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	relativePath, err := filepath.Rel(m.rootDir, absolutePath)
	if err != nil {
		relativePath = absolutePath
	}
	relativePath = filepath.ToSlash(relativePath)
	baseName := path.Base(relativePath)

	if m.useDefaults && !isDir {
		for _, pattern := range DefaultIgnorePatterns {
			if matched, _ := path.Match(strings.ToLower(pattern), strings.ToLower(baseName)); matched {
				return true
			}
		}
	}

	if m.gitIgnore != nil {
		match := m.gitIgnore.Relative(relativePath, isDir)
		if match != nil && match.Ignore() {
			return true
		}
	}

	for _, pattern := range m.patterns {
		if matched, _ := doublestar.Match(pattern, relativePath); matched {
			return true
		}
		if matched, _ := doublestar.Match(pattern, baseName); matched {
			return true
		}
	}
	return false
}

// Reload re-reads .gitignore from the root. Used when the watcher sees it change.
func (m *Matcher) Reload() {
	if !m.useGitignore {
		return
	}
	newGitIgnore := loadIgnoreFile(filepath.Join(m.rootDir, ".gitignore"), m.rootDir)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.gitIgnore = newGitIgnore
}

// loadIgnoreFile reads an ignore file and creates a GitIgnore matcher from it.
// Uses io.Reader approach to ensure the file handle is properly closed on Windows.
func loadIgnoreFile(filePath string, baseDir string) gitignore.GitIgnore {
	f, err := os.Open(filePath)
	if err != nil {
		return nil
	}
	defer f.Close()

	return gitignore.New(f, baseDir, nil)
}
