package models

import "time"

// SubAgentCall is one tool invocation recorded inside a session's history.
// Immutable once fetched.
type SubAgentCall struct {
	// ID is the tool-use id from the session log.
	ID string `json:"id"`
	// Tool is the tool name (Bash, Edit, Task, ...).
	Tool string `json:"tool"`
	// Prompt is the input text or serialized input payload.
	Prompt string `json:"prompt"`
	// Output is the result text, truncated by the server.
	Output string `json:"output,omitempty"`
	// Completed is true once a matching tool result was seen.
	Completed bool `json:"completed"`
	// IsError is true if the tool result was an error.
	IsError bool `json:"is_error"`
	// StartedAt is when the tool call was issued.
	StartedAt time.Time `json:"started_at"`
	// FinishedAt is when the result arrived, if it has.
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	// Duration is the server-computed call duration, if finished.
	Duration time.Duration `json:"duration,omitempty"`
}

// Span returns the [start, end] interval of the call. Unfinished calls
// extend to now.
func (c *SubAgentCall) Span(now time.Time) (time.Time, time.Time) {
	if c.FinishedAt != nil {
		return c.StartedAt, *c.FinishedAt
	}
	return c.StartedAt, now
}
