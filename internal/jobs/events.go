package jobs

import (
	"sync"
	"time"

	"yt-transcriber/internal/domain"
)

// EventType classifies messages emitted during a request.
type EventType string

const (
	EventTypeStatus   EventType = "status"
	EventTypeProgress EventType = "progress"
	EventTypeLog      EventType = "log"
	EventTypeResult   EventType = "result"
	EventTypeError    EventType = "error"
)

// Event is a sequenced payload consumed by the progress renderer.
type Event struct {
	Seq       int64              `json:"seq"`
	Timestamp time.Time          `json:"timestamp"`
	JobID     string             `json:"jobId"`
	Type      EventType          `json:"type"`
	Stage     domain.Stage       `json:"stage,omitempty"`
	Message   string             `json:"message,omitempty"`
	Current   int64              `json:"current,omitempty"`
	Total     int64              `json:"total,omitempty"`
	Command   string             `json:"command,omitempty"`
	Args      []string           `json:"args,omitempty"`
	ExitCode  int                `json:"exitCode,omitempty"`
	Stderr    string             `json:"stderr,omitempty"`
	Kind      domain.FailureKind `json:"kind,omitempty"`
	Source    domain.SourceKind  `json:"source,omitempty"`
	Segments  int                `json:"segments,omitempty"`
}

// ProgressEvent converts a progress update into a bus event.
func ProgressEvent(jobID string, p domain.Progress) Event {
	return Event{
		JobID:   jobID,
		Type:    EventTypeProgress,
		Stage:   p.Stage,
		Message: p.Message,
		Current: p.Current,
		Total:   p.Total,
	}
}

// EventBus stores recent events and provides incremental reads.
// Publish never waits on readers.
type EventBus struct {
	mu        sync.RWMutex
	nextSeq   int64
	maxEvents int
	events    []Event
}

// NewEventBus creates a bounded in-memory event buffer.
func NewEventBus(maxEvents int) *EventBus {
	if maxEvents <= 0 {
		maxEvents = 500
	}

	return &EventBus{
		maxEvents: maxEvents,
		events:    make([]Event, 0, maxEvents),
	}
}

// Publish appends one event and assigns sequence and timestamp.
func (b *EventBus) Publish(event Event) Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextSeq++
	event.Seq = b.nextSeq
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	b.events = append(b.events, event)
	if len(b.events) > b.maxEvents {
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

// LastSeq returns the sequence number of the newest event.
func (b *EventBus) LastSeq() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.nextSeq
}
