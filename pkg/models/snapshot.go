package models

import "time"

// AgentStatus represents the current state of an agent session.
type AgentStatus string

const (
	// AgentStatusIdle indicates the session has gone quiet.
	AgentStatusIdle AgentStatus = "idle"
	// AgentStatusActive indicates the agent is actively working.
	AgentStatusActive AgentStatus = "active"
	// AgentStatusWaiting indicates the agent is waiting on the user.
	AgentStatusWaiting AgentStatus = "waiting"
	// AgentStatusDone indicates the session has finished.
	AgentStatusDone AgentStatus = "done"
)

// Valid returns true if the status is a known value.
func (s AgentStatus) Valid() bool {
	switch s {
	case AgentStatusIdle, AgentStatusActive, AgentStatusWaiting, AgentStatusDone:
		return true
	default:
		return false
	}
}

// AgentSnapshot is the authoritative description of one agent session as the
// source last observed it. It is owned by the roster; the dashboard only
// reads it. A snapshot may lag behind the event stream.
type AgentSnapshot struct {
	// ID is the unique identifier for this agent.
	ID string `json:"id"`
	// Name is the display name shown in the dashboard.
	Name string `json:"name"`
	// Status is the current state of the agent.
	Status AgentStatus `json:"status"`
	// CurrentTool is the name of the tool currently running, if any.
	CurrentTool string `json:"current_tool,omitempty"`
	// SessionID identifies the underlying session log.
	SessionID string `json:"session_id"`
	// Project is the project the session belongs to, if known.
	Project string `json:"project,omitempty"`
	// StartedAt is when the session began.
	StartedAt time.Time `json:"started_at"`
	// LastActivity is the timestamp of the most recent log entry.
	LastActivity time.Time `json:"last_activity"`
	// ParentID is the id of the spawning agent for sub-agents.
	ParentID string `json:"parent_id,omitempty"`
	// IsSubagent marks sessions spawned by another agent.
	IsSubagent bool `json:"is_subagent"`

	// Optional extension fields. Zero values mean "not reported".

	// TurnCount is the number of user/assistant turns so far.
	TurnCount int `json:"turn_count,omitempty"`
	// CostUSD is the accumulated API cost in dollars.
	CostUSD float64 `json:"cost_usd,omitempty"`
	// ErrorCount is the number of tool errors the source has seen.
	ErrorCount int `json:"error_count,omitempty"`
	// ErrorStreak is the number of consecutive tool errors.
	ErrorStreak int `json:"error_streak,omitempty"`
	// ContextPct is the context-window usage percentage.
	ContextPct float64 `json:"ctx_pct,omitempty"`
	// ContextLabel is a free-text description of what fills the context.
	ContextLabel string `json:"context,omitempty"`
	// ToolStartedAt is the source's view of when the current tool began.
	// Nil when no tool is running.
	ToolStartedAt *time.Time `json:"tool_started_at,omitempty"`
}
