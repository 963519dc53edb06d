// Package category owns the category model: the registry of named extension
// sets and the extension index derived from it.
package category

import (
	"fmt"
	"strings"
	"sync"

	"github.com/lexandro/fileorganizer-mcp/extension"
	"golang.org/x/text/cases"
)

// Uncategorized is the category reported for files no category claims.
// The name is reserved and cannot be registered.
const Uncategorized = "Uncategorized"

// Category is a named set of normalized extensions.
type Category struct {
	Name       string   `json:"name" yaml:"name" mapstructure:"name"`
	Extensions []string `json:"extensions" yaml:"extensions" mapstructure:"extensions"`
}

// Snapshot is a copy of the registry contents at one version.
type Snapshot struct {
	Version    uint64
	Categories []Category
}

type entry struct {
	name       string
	extensions []string // normalized, insertion order
}

// Registry holds categories in insertion order and enforces that every
// extension belongs to at most one category.
// Thread-safe: mutations take a write lock, reads take a read lock.
type Registry struct {
	mu       sync.RWMutex
	entries  []*entry
	byKey    map[string]*entry // key: folded name
	owners   map[string]string // key: normalized extension, value: folded name
	version  uint64
	watchers map[int]chan uint64
	nextID   int
}

// NewRegistry creates an empty registry at version 0.
func NewRegistry() *Registry {
	return &Registry{
		byKey:    make(map[string]*entry),
		owners:   make(map[string]string),
		watchers: make(map[int]chan uint64),
	}
}

// FoldName returns the case-insensitive key of a category name.
func FoldName(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}

// Add registers a new category. It fails with ErrDuplicateCategory if the name
// exists and with ErrExtensionConflict if any extension is already owned.
// Nothing is changed on failure.
func (r *Registry) Add(name string, extensions []string) error {
	name = strings.TrimSpace(name)
	if err := validateName(name); err != nil {
		return err
	}
	exts := extension.Dedupe(extensions)
	key := FoldName(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byKey[key]; ok {
		return fmt.Errorf("%w: %q (existing %q)", ErrDuplicateCategory, name, existing.name)
	}
	if err := r.checkOwnership(key, name, exts); err != nil {
		return err
	}

	e := &entry{name: name, extensions: exts}
	r.entries = append(r.entries, e)
	r.byKey[key] = e
	for _, ext := range exts {
		r.owners[ext] = key
	}
	r.bumpLocked()
	return nil
}

// Remove deletes a category and frees all of its extensions.
func (r *Registry) Remove(name string) error {
	key := FoldName(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byKey[key]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}

	for _, ext := range e.extensions {
		delete(r.owners, ext)
	}
	delete(r.byKey, key)
	for i, candidate := range r.entries {
		if candidate == e {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			break
		}
	}
	r.bumpLocked()
	return nil
}

// UpdateExtensions removes and adds extensions of an existing category as one
// step: removals are applied first, then additions, and if any addition
// conflicts with another category nothing is applied.
func (r *Registry) UpdateExtensions(name string, add, remove []string) error {
	key := FoldName(name)
	addExts := extension.Dedupe(add)
	removeExts := extension.Dedupe(remove)

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byKey[key]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if err := r.checkOwnership(key, e.name, addExts); err != nil {
		return err
	}

	removeSet := make(map[string]bool, len(removeExts))
	for _, ext := range removeExts {
		removeSet[ext] = true
	}

	next := make([]string, 0, len(e.extensions)+len(addExts))
	present := make(map[string]bool, cap(next))
	for _, ext := range e.extensions {
		if removeSet[ext] {
			continue
		}
		next = append(next, ext)
		present[ext] = true
	}
	for _, ext := range addExts {
		if !present[ext] {
			next = append(next, ext)
			present[ext] = true
		}
	}

	if sameExtensions(e.extensions, next) {
		return nil
	}

	for _, ext := range e.extensions {
		delete(r.owners, ext)
	}
	for _, ext := range next {
		r.owners[ext] = key
	}
	e.extensions = next
	r.bumpLocked()
	return nil
}

// List returns a copy of all categories in insertion order.
func (r *Registry) List() []Category {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.copyLocked()
}

// Snapshot returns a copy of all categories together with the registry version.
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Snapshot{Version: r.version, Categories: r.copyLocked()}
}

// Get returns a copy of the named category.
func (r *Registry) Get(name string) (Category, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.byKey[FoldName(name)]
	if !ok {
		return Category{}, false
	}
	return e.toCategory(), true
}

// Owner returns the name of the category owning an extension.
func (r *Registry) Owner(ext string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	key, ok := r.owners[extension.Normalize(ext)]
	if !ok {
		return "", false
	}
	return r.byKey[key].name, true
}

// Len returns the number of categories.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Version returns the mutation counter. It grows by one on every successful mutation.
func (r *Registry) Version() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}

// Watch returns a channel that receives the new version after mutations.
// Notifications coalesce: a slow reader sees only the latest version.
// The returned func unsubscribes and closes the channel.
func (r *Registry) Watch() (<-chan uint64, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextID
	r.nextID++
	ch := make(chan uint64, 1)
	r.watchers[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			delete(r.watchers, id)
			close(ch)
		})
	}
	return ch, cancel
}

// checkOwnership fails if any extension is owned by a category other than key.
func (r *Registry) checkOwnership(key, requested string, exts []string) error {
	for _, ext := range exts {
		ownerKey, owned := r.owners[ext]
		if owned && ownerKey != key {
			return &ConflictError{
				Extension: ext,
				Owner:     r.byKey[ownerKey].name,
				Requested: requested,
			}
		}
	}
	return nil
}

func (r *Registry) bumpLocked() {
	r.version++
	for _, ch := range r.watchers {
		// Drop a stale pending version so the reader sees the newest one.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- r.version:
		default:
		}
	}
}

func (r *Registry) copyLocked() []Category {
	result := make([]Category, 0, len(r.entries))
	for _, e := range r.entries {
		result = append(result, e.toCategory())
	}
	return result
}

func (e *entry) toCategory() Category {
	exts := make([]string, len(e.extensions))
	copy(exts, e.extensions)
	return Category{Name: e.name, Extensions: exts}
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name is empty", ErrInvalidName)
	}
	if FoldName(name) == FoldName(Uncategorized) {
		return fmt.Errorf("%w: %q is reserved", ErrInvalidName, name)
	}
	return nil
}

func sameExtensions(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
