// Package results holds the ordered set of classified records shown to users.
package results

import (
	"strings"
	"sync"
	"sync/atomic"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/lexandro/fileorganizer-mcp/category"
	"github.com/lexandro/fileorganizer-mcp/classify"
	"github.com/lexandro/fileorganizer-mcp/extension"
)

// snapshot is an immutable view of the store. Readers load it with one atomic
// read, so they never see a half-applied change.
type snapshot struct {
	records    []classify.Record
	generation uint64
}

// Store is an ordered sequence of records. Writers are serialized by a mutex
// and publish a new snapshot for each change; records are never modified in place.
type Store struct {
	mu      sync.Mutex
	current atomic.Pointer[snapshot]
	// positions maps a path to its index in the current snapshot. Guarded by mu.
	positions map[string]int
}

// NewStore creates an empty store.
func NewStore() *Store {
	s := &Store{positions: make(map[string]int)}
	s.current.Store(&snapshot{})
	return s
}

// Append adds records to the end in the given order.
func (s *Store) Append(records ...classify.Record) {
	if len(records) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.current.Load()
	// Appending may write past old's length in a shared array; readers of old
	// never look beyond their own length.
	next := append(old.records, records...)
	for i := len(old.records); i < len(next); i++ {
		s.positions[next[i].Path] = i
	}
	s.publish(next, old.generation)
}

// Merge replaces records whose path is already stored, keeping their
// position, and appends the rest in the given order. Every path appears at
// most once afterwards.
func (s *Store) Merge(records ...classify.Record) {
	if len(records) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.current.Load()
	next := old.records
	copied := false
	for _, record := range records {
		if i, ok := s.positions[record.Path]; ok {
			if !copied && i < len(old.records) {
				fresh := make([]classify.Record, len(next), len(next)+len(records))
				copy(fresh, next)
				next = fresh
				copied = true
			}
			next[i] = record
			continue
		}
		s.positions[record.Path] = len(next)
		next = append(next, record)
	}
	s.publish(next, old.generation)
}

// ReplaceAll swaps the whole content for a copy of records.
func (s *Store) ReplaceAll(records []classify.Record) {
	next := make([]classify.Record, len(records))
	copy(next, records)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.reindexLocked(next)
	s.publish(next, s.current.Load().generation)
}

// Rewrite replaces the content with fn(current) while holding the writer
// lock, so appends cannot slip in between reading and swapping.
// fn must not modify the slice it receives.
func (s *Store) Rewrite(fn func(current []classify.Record) []classify.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.current.Load()
	next := fn(old.records[:len(old.records):len(old.records)])
	next = next[:len(next):len(next)]
	s.reindexLocked(next)
	s.publish(next, old.generation)
}

// Upsert replaces the record with the same path at its position, or appends it.
func (s *Store) Upsert(record classify.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.current.Load()
	if i, ok := s.positions[record.Path]; ok {
		next := make([]classify.Record, len(old.records))
		copy(next, old.records)
		next[i] = record
		s.publish(next, old.generation)
		return
	}
	s.positions[record.Path] = len(old.records)
	s.publish(append(old.records, record), old.generation)
}

// Remove drops the record with the given absolute path. Reports whether one was removed.
func (s *Store) Remove(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.current.Load()
	i, ok := s.positions[path]
	if !ok {
		return false
	}
	next := make([]classify.Record, 0, len(old.records)-1)
	next = append(next, old.records[:i]...)
	next = append(next, old.records[i+1:]...)
	s.reindexLocked(next)
	s.publish(next, old.generation)
	return true
}

// Clear empties the store.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reindexLocked(nil)
	s.publish(nil, s.current.Load().generation)
}

func (s *Store) publish(records []classify.Record, previousGeneration uint64) {
	s.current.Store(&snapshot{records: records, generation: previousGeneration + 1})
}

func (s *Store) reindexLocked(records []classify.Record) {
	s.positions = make(map[string]int, len(records))
	for i, record := range records {
		s.positions[record.Path] = i
	}
}

// Snapshot returns a copy of all records in order.
func (s *Store) Snapshot() []classify.Record {
	snap := s.current.Load()
	result := make([]classify.Record, len(snap.records))
	copy(result, snap.records)
	return result
}

// Len returns the number of records.
func (s *Store) Len() int {
	return len(s.current.Load().records)
}

// Generation grows by one on every change. Pollers compare it to decide
// whether to refresh a view.
func (s *Store) Generation() uint64 {
	return s.current.Load().generation
}

// Get returns the record with the given absolute path.
func (s *Store) Get(path string) (classify.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.positions[path]
	if !ok {
		return classify.Record{}, false
	}
	return s.current.Load().records[i], true
}

// Filter selects records in Query. Empty fields match everything.
type Filter struct {
	Category  string // case-insensitive; "Uncategorized" selects unmatched files
	Extension string // normalized like registry input; "(none)" selects files without extension
	Glob      string // doublestar pattern against the relative path
	Offset    int
	Limit     int // 0 means no limit
}

// Query returns matching records in store order. It never modifies the store.
func (s *Store) Query(filter Filter) ([]classify.Record, error) {
	var glob string
	if filter.Glob != "" {
		glob = strings.ReplaceAll(filter.Glob, "\\", "/")
		if !doublestar.ValidatePattern(glob) {
			return nil, &InvalidGlobError{Pattern: filter.Glob}
		}
	}

	var categoryKey string
	if filter.Category != "" {
		categoryKey = category.FoldName(filter.Category)
	}
	matchExtension := filter.Extension != ""
	wantExtension := extension.ParseFilter(filter.Extension)

	snap := s.current.Load()
	result := make([]classify.Record, 0)
	skipped := 0
	for _, record := range snap.records {
		if categoryKey != "" && category.FoldName(record.Category) != categoryKey {
			continue
		}
		if matchExtension && record.Extension != wantExtension {
			continue
		}
		if glob != "" {
			matched, err := doublestar.Match(glob, record.RelativePath)
			if err != nil || !matched {
				continue
			}
		}
		if skipped < filter.Offset {
			skipped++
			continue
		}
		result = append(result, record)
		if filter.Limit > 0 && len(result) >= filter.Limit {
			break
		}
	}
	return result, nil
}

// CategoryCounts returns the number of records per category.
func (s *Store) CategoryCounts() map[string]int {
	counts := make(map[string]int)
	for _, record := range s.current.Load().records {
		counts[record.Category]++
	}
	return counts
}

// TotalSizeBytes returns the summed size of all records.
func (s *Store) TotalSizeBytes() int64 {
	var total int64
	for _, record := range s.current.Load().records {
		total += record.SizeBytes
	}
	return total
}

// InvalidGlobError is returned by Query for malformed patterns.
type InvalidGlobError struct {
	Pattern string
}

func (e *InvalidGlobError) Error() string {
	return "invalid glob pattern: " + e.Pattern
}
