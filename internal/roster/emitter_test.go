package roster

import (
	"testing"
	"time"
)

func TestEmitter_Delivers(t *testing.T) {
	e := NewEventEmitter(4)
	defer e.Close()

	e.Emit(Event{Kind: EventToolStart, AgentID: "a1"})

	select {
	case ev := <-e.Events():
		if ev.Kind != EventToolStart || ev.AgentID != "a1" {
			t.Errorf("got %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestEmitter_DropsWhenFull(t *testing.T) {
	e := NewEventEmitter(1)
	defer e.Close()

	e.Emit(Event{Kind: EventToolStart, AgentID: "a1"})
	// Buffer full and nobody reading: this one times out and is dropped.
	e.Emit(Event{Kind: EventToolDone, AgentID: "a1"})

	if got := e.DroppedCount(); got != 1 {
		t.Errorf("DroppedCount = %d, want 1", got)
	}

	// The first event is still intact.
	select {
	case ev := <-e.Events():
		if ev.Kind != EventToolStart {
			t.Errorf("kind = %q, want tool_start", ev.Kind)
		}
	default:
		t.Fatal("buffered event lost")
	}
}
