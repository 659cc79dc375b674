package dashboard

import (
	"time"

	"github.com/fleetwatch/fleetwatch/internal/roster"
)

// EventMsg wraps a roster event for delivery through the bubbletea loop.
// The source's forwarding goroutine converts channel events into these via
// program.Send, which serializes them with the render cycle.
type EventMsg struct {
	Event roster.Event
}

// fastTickMsg drives the elapsed-time refresh and redraw, roughly once a
// second.
type fastTickMsg struct {
	at time.Time
}

// resyncTickMsg drives the slower full roster re-sync and, in timeline and
// stats modes, the refetch of history for active agents.
type resyncTickMsg struct {
	at time.Time
}
