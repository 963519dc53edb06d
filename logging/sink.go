package logging

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultBuffer is the number of records a Sink keeps when no size is given.
const DefaultBuffer = 500

// Record is one log event as handed to the presentation layer.
// Formatting and coloring are up to the consumer.
type Record struct {
	Level   string         `json:"level"`
	Message string         `json:"message"`
	Source  string         `json:"source,omitempty"` // file:line of the caller
	Time    time.Time      `json:"time"`
	Fields  map[string]any `json:"fields,omitempty"`
}

// Sink is a logrus hook that keeps the most recent records in a ring buffer
// and forwards them to subscribers.
type Sink struct {
	mu          sync.RWMutex
	records     []Record
	next        int
	full        bool
	subscribers map[int]chan Record
	nextID      int
}

// NewSink creates a sink keeping up to size records.
func NewSink(size int) *Sink {
	if size <= 0 {
		size = DefaultBuffer
	}
	return &Sink{
		records:     make([]Record, size),
		subscribers: make(map[int]chan Record),
	}
}

// Levels implements logrus.Hook.
func (s *Sink) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire implements logrus.Hook.
func (s *Sink) Fire(entry *logrus.Entry) error {
	s.Add(FromEntry(entry))
	return nil
}

// Add stores a record and forwards it to subscribers without blocking.
// A subscriber that falls behind misses records.
func (s *Sink) Add(record Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[s.next] = record
	s.next = (s.next + 1) % len(s.records)
	if s.next == 0 {
		s.full = true
	}

	for _, ch := range s.subscribers {
		select {
		case ch <- record:
		default:
		}
	}
}

// Recent returns up to limit records at or above minLevel, oldest first.
// limit <= 0 returns everything buffered.
func (s *Sink) Recent(limit int, minLevel logrus.Level) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ordered := make([]Record, 0, len(s.records))
	if s.full {
		ordered = append(ordered, s.records[s.next:]...)
	}
	ordered = append(ordered, s.records[:s.next]...)

	filtered := ordered[:0]
	for _, record := range ordered {
		level, err := logrus.ParseLevel(record.Level)
		if err != nil || level <= minLevel {
			filtered = append(filtered, record)
		}
	}

	if limit > 0 && len(filtered) > limit {
		filtered = filtered[len(filtered)-limit:]
	}
	result := make([]Record, len(filtered))
	copy(result, filtered)
	return result
}

// Subscribe returns a channel receiving new records and a func to unsubscribe.
func (s *Sink) Subscribe(buffer int) (<-chan Record, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	ch := make(chan Record, buffer)
	s.subscribers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subscribers, id)
			close(ch)
		})
	}
}

// FromEntry converts a logrus entry into a Record.
func FromEntry(entry *logrus.Entry) Record {
	record := Record{
		Level:   entry.Level.String(),
		Message: entry.Message,
		Time:    entry.Time,
	}
	if entry.Caller != nil {
		record.Source = fmt.Sprintf("%s:%d", filepath.Base(entry.Caller.File), entry.Caller.Line)
	}
	if len(entry.Data) > 0 {
		record.Fields = make(map[string]any, len(entry.Data))
		for key, value := range entry.Data {
			if err, ok := value.(error); ok {
				value = err.Error()
			}
			record.Fields[key] = value
		}
	}
	return record
}
