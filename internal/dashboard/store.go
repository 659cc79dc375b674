package dashboard

import (
	"time"

	"github.com/fleetwatch/fleetwatch/internal/roster"
	"github.com/fleetwatch/fleetwatch/pkg/models"
)

// AgentRow is the dashboard's derived per-agent record. It embeds the
// latest snapshot plus the handful of fields the dashboard tracks itself
// between roster syncs.
type AgentRow struct {
	// Snapshot is the latest roster snapshot for this agent. It may be
	// stale until the next sync.
	Snapshot *models.AgentSnapshot

	// ToolStartedAt is the locally tracked start of the current tool
	// call. It is kept separate from the snapshot's own copy so that a
	// tool_start/tool_done pair is reflected immediately even when the
	// snapshot has not refreshed yet. Nil when no tool is running. The
	// periodic resync adopts the roster's copy, so a lost tool_done
	// cannot pin a row as running forever.
	ToolStartedAt *time.Time

	// ErrorCount counts tool errors. Seeded from the snapshot at row
	// creation and incremented locally on failed tool_done events. The
	// roster keeps its own count which may already include the same
	// event, so the two can disagree; the source tolerates this and the
	// next row recreation reconciles it. See DESIGN.md.
	ErrorCount int

	// Counters re-read from the roster on every sync.
	TurnCount    int
	CostUSD      float64
	ErrorStreak  int
	ContextPct   float64
	ContextLabel string
}

// Elapsed returns how long the current tool call has been running, or 0
// when no tool is running.
func (r *AgentRow) Elapsed(now time.Time) time.Duration {
	if r.ToolStartedAt == nil {
		return 0
	}
	return now.Sub(*r.ToolStartedAt)
}

// RowStore holds one AgentRow per known agent and keeps the table
// consistent with the event stream and the lagging roster. All methods
// run on the dashboard's single update goroutine; the roster handles its
// own locking.
type RowStore struct {
	rows   map[string]*AgentRow
	roster *roster.Roster
	// purge is invoked with the removed agent's id and session id so
	// dependent caches and selections can be cleared. Removal must be
	// total, not just from this table.
	purge func(agentID, sessionID string)
}

// NewRowStore builds a store with one row per agent currently on the
// roster. purge may be nil.
func NewRowStore(r *roster.Roster, purge func(agentID, sessionID string)) *RowStore {
	s := &RowStore{
		rows:   make(map[string]*AgentRow),
		roster: r,
		purge:  purge,
	}
	for _, snap := range r.All() {
		s.rows[snap.ID] = newRow(snap)
	}
	return s
}

// newRow builds a row from a roster snapshot with metrics seeded from the
// snapshot's extension fields.
func newRow(snap *models.AgentSnapshot) *AgentRow {
	return &AgentRow{
		Snapshot:      snap,
		ToolStartedAt: snap.ToolStartedAt,
		ErrorCount:    snap.ErrorCount,
		TurnCount:     snap.TurnCount,
		CostUSD:       snap.CostUSD,
		ErrorStreak:   snap.ErrorStreak,
		ContextPct:    snap.ContextPct,
		ContextLabel:  snap.ContextLabel,
	}
}

// Apply updates the table for one event. Unknown ids are tolerated: rows
// are lazily created from the roster when possible and the event is
// otherwise ignored. Duplicate events are idempotent apart from the
// error-counter quirk documented on AgentRow.
func (s *RowStore) Apply(ev roster.Event) {
	switch ev.Kind {
	case roster.EventAgentCreated, roster.EventSubagentCreated:
		if _, ok := s.rows[ev.AgentID]; !ok {
			snap := s.roster.Get(ev.AgentID)
			if snap == nil {
				// Not yet visible on the roster; a later sync or
				// event will pick it up.
				return
			}
			s.rows[ev.AgentID] = newRow(snap)
		}

	case roster.EventAgentRemoved, roster.EventSubagentRemoved:
		row, ok := s.rows[ev.AgentID]
		if !ok {
			return
		}
		delete(s.rows, ev.AgentID)
		if s.purge != nil {
			s.purge(ev.AgentID, row.Snapshot.SessionID)
		}
		return

	case roster.EventToolStart:
		row := s.ensureRow(ev.AgentID)
		if row == nil {
			return
		}
		ts := ev.Timestamp
		row.ToolStartedAt = &ts

	case roster.EventToolDone:
		row := s.ensureRow(ev.AgentID)
		if row == nil {
			return
		}
		row.ToolStartedAt = nil
		if ev.IsError {
			row.ErrorCount++
		}

	case roster.EventStatusChanged, roster.EventTurnComplete:
		if s.ensureRow(ev.AgentID) == nil {
			return
		}
	}

	// Every surviving branch reconciles against the roster; out-of-order
	// delivery drifts the row and the authoritative snapshot wins on
	// everything except the local tool-start and error count.
	s.sync(ev.AgentID)
}

// ensureRow returns the row for an agent, lazily creating it from the
// roster. Returns nil when the roster does not know the id either.
func (s *RowStore) ensureRow(agentID string) *AgentRow {
	if row, ok := s.rows[agentID]; ok {
		return row
	}
	snap := s.roster.Get(agentID)
	if snap == nil {
		return nil
	}
	row := newRow(snap)
	s.rows[agentID] = row
	return row
}

// sync re-reads one row's snapshot and extension counters from the roster.
// The locally tracked tool start and error count survive an event-path
// sync; a tool_start must show before the source republishes its snapshot.
func (s *RowStore) sync(agentID string) {
	row, ok := s.rows[agentID]
	if !ok {
		return
	}
	snap := s.roster.Get(agentID)
	if snap == nil {
		return
	}
	row.Snapshot = snap
	row.TurnCount = snap.TurnCount
	row.CostUSD = snap.CostUSD
	row.ErrorStreak = snap.ErrorStreak
	row.ContextPct = snap.ContextPct
	row.ContextLabel = snap.ContextLabel
}

// SyncAll reconciles every row against the roster. It picks up agents
// that appeared without a creation event, adopts the roster's tool-start
// instant, and drops rows whose agent has left the roster, purging their
// dependents. Driven by the periodic resync tick, this is the recovery
// path for dropped events: the roster wins on everything except the
// local error count.
func (s *RowStore) SyncAll() {
	live := make(map[string]bool, len(s.rows))
	for _, snap := range s.roster.All() {
		live[snap.ID] = true
		row, ok := s.rows[snap.ID]
		if !ok {
			s.rows[snap.ID] = newRow(snap)
			continue
		}
		s.sync(snap.ID)
		row.ToolStartedAt = snap.ToolStartedAt
	}
	for id, row := range s.rows {
		if live[id] {
			continue
		}
		delete(s.rows, id)
		if s.purge != nil {
			s.purge(id, row.Snapshot.SessionID)
		}
	}
}

// Get returns the row for an agent, or nil.
func (s *RowStore) Get(agentID string) *AgentRow {
	return s.rows[agentID]
}

// Len returns the number of rows.
func (s *RowStore) Len() int {
	return len(s.rows)
}

// All returns every row in first-seen roster order. Rows without a
// roster entry are omitted, matching what the listing shows.
func (s *RowStore) All() []*AgentRow {
	snaps := s.roster.All()
	out := make([]*AgentRow, 0, len(snaps))
	for _, snap := range snaps {
		if row, ok := s.rows[snap.ID]; ok {
			out = append(out, row)
		}
	}
	return out
}
