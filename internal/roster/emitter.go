package roster

import (
	"log"
	"sync/atomic"
	"time"
)

// EventEmitter distributes roster events to a subscriber.
// It provides a simple, thread-safe way to emit events without blocking
// the source when the subscriber falls behind.
type EventEmitter struct {
	events       chan Event
	droppedCount atomic.Uint64
}

// NewEventEmitter creates a new EventEmitter with the given buffer size.
func NewEventEmitter(bufferSize int) *EventEmitter {
	return &EventEmitter{
		events: make(chan Event, bufferSize),
	}
}

// Emit sends an event to the events channel.
// If the channel is full, it tries with a timeout before dropping the event.
// Dropped events are safe: the dashboard re-syncs from the roster
// periodically, so a missed event only delays the update.
func (e *EventEmitter) Emit(event Event) {
	select {
	case e.events <- event:
		return
	default:
		// Channel full, try with timeout
	}

	select {
	case e.events <- event:
		return
	case <-time.After(100 * time.Millisecond):
		count := e.droppedCount.Add(1)
		if count%10 == 1 { // Log every 10th drop to avoid spam
			log.Printf("[roster] WARNING: Event channel full, dropped event (total dropped: %d): kind=%s", count, event.Kind)
		}
	}
}

// DroppedCount returns the total number of events that have been dropped.
func (e *EventEmitter) DroppedCount() uint64 {
	return e.droppedCount.Load()
}

// Events returns a read-only channel of events.
// This is used by subscribers (the dashboard) to receive updates.
func (e *EventEmitter) Events() <-chan Event {
	return e.events
}

// Close closes the events channel.
// This should be called when the source is stopped.
func (e *EventEmitter) Close() {
	close(e.events)
}
