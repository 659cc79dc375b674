// Package roster tracks the live set of agent sessions and distributes
// lifecycle events to subscribers.
package roster

import "time"

// EventKind is the closed set of lifecycle event types.
type EventKind string

const (
	// EventAgentCreated indicates a new top-level session appeared.
	EventAgentCreated EventKind = "agent_created"
	// EventAgentRemoved indicates a top-level session was removed.
	EventAgentRemoved EventKind = "agent_removed"
	// EventSubagentCreated indicates a nested sub-agent session appeared.
	EventSubagentCreated EventKind = "subagent_created"
	// EventSubagentRemoved indicates a sub-agent session was removed.
	EventSubagentRemoved EventKind = "subagent_removed"
	// EventToolStart indicates an agent began a tool call.
	EventToolStart EventKind = "tool_start"
	// EventToolDone indicates an agent's tool call finished.
	EventToolDone EventKind = "tool_done"
	// EventStatusChanged indicates an agent's status flipped.
	EventStatusChanged EventKind = "status_changed"
	// EventTurnComplete indicates an assistant turn finished.
	EventTurnComplete EventKind = "turn_complete"
)

// Valid returns true if the kind is a known value.
func (k EventKind) Valid() bool {
	switch k {
	case EventAgentCreated, EventAgentRemoved,
		EventSubagentCreated, EventSubagentRemoved,
		EventToolStart, EventToolDone,
		EventStatusChanged, EventTurnComplete:
		return true
	default:
		return false
	}
}

// Event is one lifecycle notification. Only the fields relevant to the
// kind are populated; consumers dispatch on Kind.
type Event struct {
	// ID uniquely identifies the event instance. Delivery is not
	// exactly-once, so consumers must stay idempotent regardless.
	ID string
	// Kind is the event type.
	Kind EventKind
	// AgentID is the id of the affected agent.
	AgentID string
	// Timestamp is when the event occurred at the source.
	Timestamp time.Time
	// Tool is the tool name for tool_start/tool_done.
	Tool string
	// IsError marks a failed tool call on tool_done.
	IsError bool
	// Status is the new status for status_changed.
	Status string
}
