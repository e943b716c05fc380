package storage

import (
	"sync"
	"time"

	"netinsight/internal/model"
)

// DefaultCapacity bounds both the event log and the alert store.
const DefaultCapacity = 100

// EventLog is a bounded, append-only history of textual events.
type EventLog struct {
	mu     sync.RWMutex
	events *ring[model.Event]
	now    func() time.Time
}

func NewEventLog(capacity int) *EventLog {
	return &EventLog{
		events: newRing[model.Event](capacity),
		now:    time.Now,
	}
}

// Append records text and evicts the oldest event when full.
func (l *EventLog) Append(text string) model.Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	event := model.Event{Timestamp: l.now(), Text: text}
	l.events.push(event)
	return event
}

// Snapshot returns a copy of every event, most recent last.
func (l *EventLog) Snapshot() []model.Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.events.all()
}

// Recent returns the last n events, most recent last.
func (l *EventLog) Recent(n int) []model.Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.events.last(n)
}

func (l *EventLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.events.len()
}

func (l *EventLog) Capacity() int {
	return l.events.capacity()
}
