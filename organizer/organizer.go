// Package organizer ties the category registry, the scanner and the result
// store together: it keeps the extension index in step with the registry,
// reclassifies stored results when categories change and runs scans.
package organizer

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/lexandro/fileorganizer-mcp/category"
	"github.com/lexandro/fileorganizer-mcp/classify"
	"github.com/lexandro/fileorganizer-mcp/index"
	"github.com/lexandro/fileorganizer-mcp/logging"
	"github.com/lexandro/fileorganizer-mcp/results"
	"github.com/lexandro/fileorganizer-mcp/scanner"
	"github.com/sirupsen/logrus"
)

// DefaultBatchSize is the number of records appended to the store at once during a scan.
const DefaultBatchSize = 64

// Options configures an Organizer.
type Options struct {
	// Scan holds the scanner settings. OnWarning and Ignore are set per scan.
	Scan scanner.Options
	// NewIgnore builds the ignore checker for a scan root. Optional.
	NewIgnore func(rootDir string) scanner.IgnoreChecker
	// BatchSize bounds the scan queue and the store append batch.
	BatchSize int
	// PathIndex enables Search. Optional.
	PathIndex *index.PathIndex
	Logger    *logrus.Logger
}

// Organizer is the classification engine. All methods are safe for concurrent use.
type Organizer struct {
	registry  *category.Registry
	store     *results.Store
	paths     *index.PathIndex
	options   Options
	logger    *logrus.Entry
	listeners listeners

	idx atomic.Pointer[category.Index]

	syncMu            sync.Mutex
	classifiedVersion uint64 // index version the store was last reclassified with
	failedVersion     uint64 // registry version whose index build failed
	hasFailed         bool

	scanMu   sync.Mutex
	active   *ScanHandle
	lastRoot string
}

// New creates an organizer over an existing registry and store.
func New(registry *category.Registry, store *results.Store, options Options) *Organizer {
	if options.BatchSize <= 0 {
		options.BatchSize = DefaultBatchSize
	}
	logger := options.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	o := &Organizer{
		registry: registry,
		store:    store,
		paths:    options.PathIndex,
		options:  options,
		logger:   logging.Component(logger, "organizer"),
	}
	o.idx.Store(category.EmptyIndex())

	o.syncMu.Lock()
	if idx, err := o.refreshIndexLocked(); err == nil {
		o.classifiedVersion = idx.Version()
	}
	o.syncMu.Unlock()
	return o
}

// Registry returns the category registry.
func (o *Organizer) Registry() *category.Registry { return o.registry }

// Store returns the result store.
func (o *Organizer) Store() *results.Store { return o.store }

// Subscribe registers a listener and returns a func removing it.
func (o *Organizer) Subscribe(listener Listener) func() {
	return o.listeners.add(listener)
}

// AddCategory registers a category and reclassifies existing results.
func (o *Organizer) AddCategory(name string, extensions []string) error {
	if err := o.registry.Add(name, extensions); err != nil {
		return err
	}
	o.logger.WithFields(logrus.Fields{"category": name, "extensions": extensions}).Info("category added")
	return o.Sync()
}

// RemoveCategory removes a category and reclassifies existing results.
func (o *Organizer) RemoveCategory(name string) error {
	if err := o.registry.Remove(name); err != nil {
		return err
	}
	o.logger.WithField("category", name).Info("category removed")
	return o.Sync()
}

// UpdateExtensions changes a category's extensions and reclassifies existing results.
func (o *Organizer) UpdateExtensions(name string, add, remove []string) error {
	if err := o.registry.UpdateExtensions(name, add, remove); err != nil {
		return err
	}
	o.logger.WithFields(logrus.Fields{"category": name, "add": add, "remove": remove}).Info("category updated")
	return o.Sync()
}

// Index returns the extension index matching the current registry version,
// rebuilding it first if the registry moved on. If the rebuild fails the
// previous index is returned.
func (o *Organizer) Index() *category.Index {
	idx := o.idx.Load()
	if idx.Version() == o.registry.Version() {
		return idx
	}

	o.syncMu.Lock()
	defer o.syncMu.Unlock()
	idx, err := o.refreshIndexLocked()
	if err != nil {
		return o.idx.Load()
	}
	return idx
}

// Sync brings the index and the stored results up to the registry version.
// Existing records are reclassified in place of the old ones, without disk access.
func (o *Organizer) Sync() error {
	o.syncMu.Lock()
	defer o.syncMu.Unlock()
	return o.syncLocked()
}

func (o *Organizer) syncLocked() error {
	idx, err := o.refreshIndexLocked()
	if err != nil {
		return err
	}
	if o.classifiedVersion == idx.Version() {
		return nil
	}

	var changedRecords []classify.Record
	total := 0
	o.store.Rewrite(func(current []classify.Record) []classify.Record {
		next := classify.Reclassify(current, idx)
		changedRecords = classify.Changed(current, next)
		total = len(next)
		return next
	})
	o.classifiedVersion = idx.Version()

	if o.paths != nil && len(changedRecords) > 0 {
		if err := o.paths.Add(changedRecords...); err != nil {
			o.logger.WithError(err).Warn("failed to refresh path index")
		}
	}

	o.logger.WithFields(logrus.Fields{
		"version": idx.Version(),
		"records": total,
		"changed": len(changedRecords),
	}).Info("results reclassified")
	o.listeners.emit(Event{Type: EventReclassified, Changed: len(changedRecords)})
	return nil
}

// Run keeps results in step with registry changes made through any path
// until ctx is done.
func (o *Organizer) Run(ctx context.Context) {
	changes, cancel := o.registry.Watch()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-changes:
			if !ok {
				return
			}
			if err := o.Sync(); err != nil {
				o.logger.WithError(err).Error("sync after registry change failed")
			}
		}
	}
}

// refreshIndexLocked rebuilds the index if the registry version changed.
// Callers hold syncMu.
func (o *Organizer) refreshIndexLocked() (*category.Index, error) {
	current := o.idx.Load()
	snap := o.registry.Snapshot()
	if current.Version() == snap.Version {
		return current, nil
	}
	if o.hasFailed && o.failedVersion == snap.Version {
		return current, fmt.Errorf("%w: version %d already failed", category.ErrIndexInconsistent, snap.Version)
	}

	idx, err := category.BuildIndex(snap)
	if err != nil {
		o.hasFailed = true
		o.failedVersion = snap.Version
		o.logger.WithError(err).WithField("version", snap.Version).
			Error("extension index rebuild aborted, keeping previous index")
		o.listeners.emit(Event{Type: EventIndexError, Message: err.Error()})
		return current, err
	}

	o.idx.Store(idx)
	o.hasFailed = false
	o.logger.WithFields(logrus.Fields{"version": idx.Version(), "extensions": idx.Len()}).Debug("extension index rebuilt")
	return idx, nil
}

// Query returns a snapshot of matching results.
func (o *Organizer) Query(filter results.Filter) ([]classify.Record, error) {
	return o.store.Query(filter)
}

// Search finds stored results by words in their path. Requires a PathIndex.
func (o *Organizer) Search(options index.SearchOptions) ([]classify.Record, error) {
	if o.paths == nil {
		return nil, fmt.Errorf("path search is not enabled")
	}
	paths, err := o.paths.Search(options)
	if err != nil {
		return nil, err
	}

	byPath := make(map[string]classify.Record, o.store.Len())
	for _, record := range o.store.Snapshot() {
		byPath[record.Path] = record
	}
	found := make([]classify.Record, 0, len(paths))
	for _, path := range paths {
		if record, ok := byPath[path]; ok {
			found = append(found, record)
		}
	}
	return found, nil
}

// Clear empties the results and the path index.
func (o *Organizer) Clear() {
	o.store.Clear()
	if o.paths != nil {
		if err := o.paths.Clear(); err != nil {
			o.logger.WithError(err).Warn("failed to clear path index")
		}
	}
}

// Status summarizes the engine state.
type Status struct {
	Files           int            `json:"files"`
	TotalSizeBytes  int64          `json:"totalSizeBytes"`
	CategoryCounts  map[string]int `json:"categoryCounts"`
	Categories      int            `json:"categories"`
	RegistryVersion uint64         `json:"registryVersion"`
	IndexVersion    uint64         `json:"indexVersion"`
	Generation      uint64         `json:"generation"`
	Root            string         `json:"root,omitempty"`
	ActiveScan      *ScanProgress  `json:"activeScan,omitempty"`
}

// Status returns a point-in-time summary.
func (o *Organizer) Status() Status {
	status := Status{
		Files:           o.store.Len(),
		TotalSizeBytes:  o.store.TotalSizeBytes(),
		CategoryCounts:  o.store.CategoryCounts(),
		Categories:      o.registry.Len(),
		RegistryVersion: o.registry.Version(),
		IndexVersion:    o.idx.Load().Version(),
		Generation:      o.store.Generation(),
	}

	o.scanMu.Lock()
	status.Root = o.lastRoot
	if o.active != nil && !o.active.finished() {
		progress := o.active.Progress()
		status.ActiveScan = &progress
	}
	o.scanMu.Unlock()
	return status
}
