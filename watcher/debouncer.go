package watcher

import (
	"sort"
	"sync"
	"time"
)

// DefaultInterval is the quiet period before a batch of changes is emitted.
const DefaultInterval = 200 * time.Millisecond

// DebouncedEvent is the last operation seen for a path within one quiet period.
type DebouncedEvent struct {
	Path string
	Op   EventOp
}

// EventOp is the kind of filesystem change.
type EventOp int

const (
	OpCreate EventOp = iota
	OpWrite
	OpRemove
	OpRename
)

func (op EventOp) String() string {
	switch op {
	case OpCreate:
		return "create"
	case OpWrite:
		return "write"
	case OpRemove:
		return "remove"
	case OpRename:
		return "rename"
	default:
		return "unknown"
	}
}

// Debouncer collects changes and emits them as one batch after a quiet period.
// Changes to the same path within the window collapse into the latest one.
type Debouncer struct {
	interval time.Duration
	events   map[string]DebouncedEvent
	mu       sync.Mutex
	timer    *time.Timer
	output   chan []DebouncedEvent
	stopped  bool
}

// NewDebouncer creates a debouncer with the given quiet interval.
func NewDebouncer(interval time.Duration) *Debouncer {
	return &Debouncer{
		interval: interval,
		events:   make(map[string]DebouncedEvent),
		output:   make(chan []DebouncedEvent, 16),
	}
}

// Output returns the channel receiving batches, sorted by path.
func (d *Debouncer) Output() <-chan []DebouncedEvent {
	return d.output
}

// Add records a change and restarts the quiet period.
func (d *Debouncer) Add(path string, op EventOp) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.events[path] = DebouncedEvent{Path: path, Op: op}

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, d.flush)
}

// Stop drops pending changes and closes the output channel.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.events = nil
	close(d.output)
}

func (d *Debouncer) flush() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped || len(d.events) == 0 {
		return
	}

	batch := make([]DebouncedEvent, 0, len(d.events))
	for _, event := range d.events {
		batch = append(batch, event)
	}
	sort.Slice(batch, func(i, j int) bool { return batch[i].Path < batch[j].Path })

	d.events = make(map[string]DebouncedEvent)
	d.output <- batch
}
