package jobs

import (
	"sync"
	"time"

	"media-transcoder/internal/domain"
)

// EventType classifies messages emitted during a session.
type EventType string

const (
	EventTypeStatus   EventType = "status"
	EventTypeLog      EventType = "log"
	EventTypeProgress EventType = "progress"
	EventTypeResult   EventType = "result"
	EventTypeError    EventType = "error"
)

// Log levels carried by log events.
const (
	LevelInfo  = "info"
	LevelError = "error"
)

// Event is a sequenced payload consumed by UI subscribers.
type Event struct {
	Seq       int64            `json:"seq"`
	Timestamp time.Time        `json:"timestamp"`
	JobID     string           `json:"jobId,omitempty"`
	Type      EventType        `json:"type"`
	Status    domain.JobStatus `json:"status,omitempty"`
	Level     string           `json:"level,omitempty"`
	Message   string           `json:"message,omitempty"`
	Progress  float64          `json:"progress,omitempty"`
	ErrorKind string           `json:"errorKind,omitempty"`
	Size      int              `json:"size,omitempty"`
}

// LogEntry converts a log event into its session log form.
func (e Event) LogEntry() domain.LogEntry {
	return domain.LogEntry{
		Seq:       e.Seq,
		Timestamp: e.Timestamp,
		Level:     e.Level,
		Message:   e.Message,
	}
}

// EventBus stores events in publish order and provides incremental reads.
type EventBus struct {
	mu        sync.RWMutex
	nextSeq   int64
	maxEvents int
	events    []Event
	lastTime  time.Time
	now       func() time.Time
}

// NewEventBus creates an in-memory event buffer. maxEvents <= 0 keeps every
// event; the session log is never trimmed.
func NewEventBus(maxEvents int) *EventBus {
	return &EventBus{
		maxEvents: maxEvents,
		now:       time.Now,
	}
}

// Publish appends one event and assigns sequence and timestamp.
func (b *EventBus) Publish(event Event) Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextSeq++
	event.Seq = b.nextSeq
	if event.Timestamp.IsZero() {
		event.Timestamp = b.now().UTC()
	}
	// Timestamps never run backwards, even across wall clock adjustments.
	if event.Timestamp.Before(b.lastTime) {
		event.Timestamp = b.lastTime
	}
	b.lastTime = event.Timestamp

	b.events = append(b.events, event)
	if b.maxEvents > 0 && len(b.events) > b.maxEvents {
		trim := len(b.events) - b.maxEvents
		b.events = append([]Event(nil), b.events[trim:]...)
	}

	return event
}

// Since returns events with sequence strictly greater than seq.
func (b *EventBus) Since(seq int64) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if len(b.events) == 0 {
		return nil
	}

	out := make([]Event, 0, len(b.events))
	for _, event := range b.events {
		if event.Seq > seq {
			out = append(out, event)
		}
	}
	return out
}

// Logs returns every log event as a session log entry, oldest first.
func (b *EventBus) Logs() []domain.LogEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]domain.LogEntry, 0, len(b.events))
	for _, event := range b.events {
		if event.Type == EventTypeLog {
			out = append(out, event.LogEntry())
		}
	}
	return out
}

// FormatLogEntry renders an entry as "[HH:MM:SS] message" in local time.
func FormatLogEntry(entry domain.LogEntry) string {
	return "[" + entry.Timestamp.Local().Format("15:04:05") + "] " + entry.Message
}
