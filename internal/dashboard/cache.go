package dashboard

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fleetwatch/fleetwatch/internal/trace"
	"github.com/fleetwatch/fleetwatch/pkg/models"
)

// SubAgentsLoadedMsg delivers a finished sub-agent list fetch.
type SubAgentsLoadedMsg struct {
	SessionID string
	Calls     []models.SubAgentCall
	Err       error
}

// HistoryLoadedMsg delivers a finished tool-history fetch.
type HistoryLoadedMsg struct {
	SessionID string
	Calls     []models.SubAgentCall
	Err       error
}

// RetroLoadedMsg delivers a finished retro analysis fetch.
type RetroLoadedMsg struct {
	SessionID string
	Retro     *models.RetroAnalysis
	Err       error
}

// DataCache holds the three lazily fetched datasets keyed by session id:
// sub-agent call lists, timeline tool history, and retro analyses. Each
// has a companion pending set so that at most one fetch per (cache, key)
// is in flight; concurrent consumers share the pending fetch.
//
// All methods run on the dashboard's update goroutine. Fetches themselves
// run as bubbletea commands and report back through the *LoadedMsg types.
type DataCache struct {
	client *trace.Client

	subAgents map[string][]models.SubAgentCall
	history   map[string][]models.SubAgentCall
	// retro uses presence-with-nil as "fetched but unavailable": a nil
	// entry suppresses retries until the key is purged.
	retro map[string]*models.RetroAnalysis

	subAgentsPending map[string]bool
	historyPending   map[string]bool
	retroPending     map[string]bool
}

// NewDataCache creates an empty cache backed by the given client.
func NewDataCache(client *trace.Client) *DataCache {
	return &DataCache{
		client:           client,
		subAgents:        make(map[string][]models.SubAgentCall),
		history:          make(map[string][]models.SubAgentCall),
		retro:            make(map[string]*models.RetroAnalysis),
		subAgentsPending: make(map[string]bool),
		historyPending:   make(map[string]bool),
		retroPending:     make(map[string]bool),
	}
}

// SubAgents returns the cached call list and whether it is present.
func (c *DataCache) SubAgents(sessionID string) ([]models.SubAgentCall, bool) {
	calls, ok := c.subAgents[sessionID]
	return calls, ok
}

// History returns the cached tool history and whether it is present.
func (c *DataCache) History(sessionID string) ([]models.SubAgentCall, bool) {
	calls, ok := c.history[sessionID]
	return calls, ok
}

// Retro returns the cached analysis and whether a fetch has completed.
// A present nil value means the session has no analysis.
func (c *DataCache) Retro(sessionID string) (*models.RetroAnalysis, bool) {
	retro, ok := c.retro[sessionID]
	return retro, ok
}

// Loading reports whether any fetch for the session is in flight.
func (c *DataCache) Loading(sessionID string) bool {
	return c.subAgentsPending[sessionID] || c.historyPending[sessionID] || c.retroPending[sessionID]
}

// EnsureSubAgents returns a fetch command for the session's call list, or
// nil when the data is already cached or being fetched.
func (c *DataCache) EnsureSubAgents(sessionID string) tea.Cmd {
	if _, ok := c.subAgents[sessionID]; ok {
		return nil
	}
	if c.subAgentsPending[sessionID] {
		return nil
	}
	c.subAgentsPending[sessionID] = true
	client := c.client
	return func() tea.Msg {
		calls, err := client.SubAgentCalls(context.Background(), sessionID)
		return SubAgentsLoadedMsg{SessionID: sessionID, Calls: calls, Err: err}
	}
}

// EnsureHistory returns a fetch command for the session's tool history,
// or nil when the data is already cached or being fetched.
func (c *DataCache) EnsureHistory(sessionID string) tea.Cmd {
	if _, ok := c.history[sessionID]; ok {
		return nil
	}
	if c.historyPending[sessionID] {
		return nil
	}
	c.historyPending[sessionID] = true
	client := c.client
	return func() tea.Msg {
		calls, err := client.ToolHistory(context.Background(), sessionID)
		return HistoryLoadedMsg{SessionID: sessionID, Calls: calls, Err: err}
	}
}

// EnsureRetro returns a fetch command for the session's retro analysis,
// or nil when a fetch already completed (even an unavailable one) or is
// in flight.
func (c *DataCache) EnsureRetro(sessionID string) tea.Cmd {
	if _, ok := c.retro[sessionID]; ok {
		return nil
	}
	if c.retroPending[sessionID] {
		return nil
	}
	c.retroPending[sessionID] = true
	client := c.client
	return func() tea.Msg {
		retro, err := client.Retro(context.Background(), sessionID)
		return RetroLoadedMsg{SessionID: sessionID, Retro: retro, Err: err}
	}
}

// StoreSubAgents records a completed sub-agent fetch. Results whose key
// is no longer pending (purged mid-flight) are dropped. Failures leave
// the entry absent so the next access retries.
func (c *DataCache) StoreSubAgents(msg SubAgentsLoadedMsg) {
	if !c.subAgentsPending[msg.SessionID] {
		return
	}
	delete(c.subAgentsPending, msg.SessionID)
	if msg.Err != nil {
		return
	}
	c.subAgents[msg.SessionID] = msg.Calls
}

// StoreHistory records a completed tool-history fetch with the same
// retry-on-failure semantics as StoreSubAgents.
func (c *DataCache) StoreHistory(msg HistoryLoadedMsg) {
	if !c.historyPending[msg.SessionID] {
		return
	}
	delete(c.historyPending, msg.SessionID)
	if msg.Err != nil {
		return
	}
	c.history[msg.SessionID] = msg.Calls
}

// StoreRetro records a completed retro fetch. Any failure, including the
// not-analyzed 404, stores the explicit nil marker: analyses are immutable
// once computed and permanently unavailable once found missing, so there
// is nothing to retry.
func (c *DataCache) StoreRetro(msg RetroLoadedMsg) {
	if !c.retroPending[msg.SessionID] {
		return
	}
	delete(c.retroPending, msg.SessionID)
	if msg.Err != nil {
		c.retro[msg.SessionID] = nil
		return
	}
	c.retro[msg.SessionID] = msg.Retro
}

// Invalidate clears the sub-agent and timeline entries for a session so
// the next access refetches. Called when a tool_done or the periodic
// refresh suggests the underlying history changed. The retro cache is
// deliberately untouched.
func (c *DataCache) Invalidate(sessionID string) {
	delete(c.subAgents, sessionID)
	delete(c.history, sessionID)
}

// Purge removes every trace of a session from all three caches, including
// pending marks so that an in-flight result for the dead id is dropped on
// arrival.
func (c *DataCache) Purge(sessionID string) {
	delete(c.subAgents, sessionID)
	delete(c.history, sessionID)
	delete(c.retro, sessionID)
	delete(c.subAgentsPending, sessionID)
	delete(c.historyPending, sessionID)
	delete(c.retroPending, sessionID)
}
