package organizer

import (
	"sync"
	"time"

	"github.com/lexandro/fileorganizer-mcp/classify"
)

// EventType identifies what happened.
type EventType string

const (
	EventScanStarted  EventType = "scan_started"
	EventFile         EventType = "file"
	EventWarning      EventType = "warning"
	EventScanFinished EventType = "scan_finished"
	EventReclassified EventType = "reclassified"
	EventIndexError   EventType = "index_error"
	EventFileChanged  EventType = "file_changed"
	EventFileRemoved  EventType = "file_removed"
)

// Event is delivered to listeners. Only the fields relevant to Type are set.
type Event struct {
	Type    EventType
	Time    time.Time
	ScanID  string
	Root    string
	Path    string
	Record  *classify.Record
	Message string
	Summary *ScanSummary
	Changed int // records whose category changed, for EventReclassified
}

// Listener receives events synchronously on the goroutine that produced them,
// so it must return quickly. It may call Status, Root, Query and Subscribe.
// It must not change categories or start a scan: EventReclassified is
// delivered while the index lock is held, and a new scan waits for the scan
// whose event is being delivered.
type Listener func(Event)

type listeners struct {
	mu     sync.RWMutex
	byID   map[int]Listener
	nextID int
}

func (l *listeners) add(listener Listener) func() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.byID == nil {
		l.byID = make(map[int]Listener)
	}
	id := l.nextID
	l.nextID++
	l.byID[id] = listener

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.byID, id)
	}
}

func (l *listeners) emit(event Event) {
	if event.Time.IsZero() {
		event.Time = time.Now()
	}
	l.mu.RLock()
	current := make([]Listener, 0, len(l.byID))
	for _, listener := range l.byID {
		current = append(current, listener)
	}
	l.mu.RUnlock()

	for _, listener := range current {
		listener(event)
	}
}
