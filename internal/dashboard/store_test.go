package dashboard

import (
	"testing"
	"time"

	"github.com/fleetwatch/fleetwatch/internal/roster"
	"github.com/fleetwatch/fleetwatch/pkg/models"
)

func newTestRoster(snaps ...*models.AgentSnapshot) *roster.Roster {
	r := roster.New()
	for _, s := range snaps {
		r.Upsert(s)
	}
	return r
}

func TestNewRowStore_SeedsFromRoster(t *testing.T) {
	reg := newTestRoster(
		&models.AgentSnapshot{ID: "a1", SessionID: "s1", ErrorCount: 2, TurnCount: 5},
	)
	store := NewRowStore(reg, nil)

	row := store.Get("a1")
	if row == nil {
		t.Fatal("expected row for a1")
	}
	if row.ErrorCount != 2 {
		t.Errorf("ErrorCount = %d, want 2 (seeded from snapshot)", row.ErrorCount)
	}
	if row.TurnCount != 5 {
		t.Errorf("TurnCount = %d, want 5", row.TurnCount)
	}
}

func TestApply_ToolStartAndDone(t *testing.T) {
	reg := newTestRoster(&models.AgentSnapshot{ID: "a1", SessionID: "s1"})
	store := NewRowStore(reg, nil)

	start := time.Now().Add(-30 * time.Second)
	store.Apply(roster.Event{Kind: roster.EventToolStart, AgentID: "a1", Timestamp: start, Tool: "bash"})

	row := store.Get("a1")
	if row.ToolStartedAt == nil || !row.ToolStartedAt.Equal(start) {
		t.Fatalf("ToolStartedAt = %v, want %v", row.ToolStartedAt, start)
	}
	if got := row.Elapsed(start.Add(30 * time.Second)); got != 30*time.Second {
		t.Errorf("Elapsed = %v, want 30s", got)
	}

	store.Apply(roster.Event{Kind: roster.EventToolDone, AgentID: "a1", Timestamp: time.Now()})
	if row.ToolStartedAt != nil {
		t.Error("ToolStartedAt not cleared by tool_done")
	}
	if row.Elapsed(time.Now()) != 0 {
		t.Error("Elapsed should be 0 with no running tool")
	}
}

func TestApply_ErrorCountIncrementsLocally(t *testing.T) {
	reg := newTestRoster(&models.AgentSnapshot{ID: "a1", SessionID: "s1", ErrorCount: 1})
	store := NewRowStore(reg, nil)

	store.Apply(roster.Event{Kind: roster.EventToolDone, AgentID: "a1", IsError: true, Timestamp: time.Now()})

	if got := store.Get("a1").ErrorCount; got != 2 {
		t.Errorf("ErrorCount = %d, want 2", got)
	}

	// A duplicate delivery bumps the counter again; the counter is
	// best-effort until the row is recreated.
	store.Apply(roster.Event{Kind: roster.EventToolDone, AgentID: "a1", IsError: true, Timestamp: time.Now()})
	if got := store.Get("a1").ErrorCount; got != 3 {
		t.Errorf("ErrorCount after duplicate = %d, want 3", got)
	}
}

func TestApply_SyncDoesNotOverwriteLocalFields(t *testing.T) {
	snap := &models.AgentSnapshot{ID: "a1", SessionID: "s1", ErrorCount: 0}
	reg := newTestRoster(snap)
	store := NewRowStore(reg, nil)

	start := time.Now()
	store.Apply(roster.Event{Kind: roster.EventToolStart, AgentID: "a1", Timestamp: start, Tool: "grep"})
	store.Apply(roster.Event{Kind: roster.EventToolDone, AgentID: "a1", IsError: true, Timestamp: start})

	// Roster still says zero errors and no tool; a status event syncs the
	// row but must keep the locally tracked fields.
	reg.Upsert(&models.AgentSnapshot{ID: "a1", SessionID: "s1", Status: models.AgentStatusWaiting})
	store.Apply(roster.Event{Kind: roster.EventStatusChanged, AgentID: "a1", Status: "waiting", Timestamp: time.Now()})

	row := store.Get("a1")
	if row.ErrorCount != 1 {
		t.Errorf("ErrorCount = %d, want 1 (sync must not reset it)", row.ErrorCount)
	}
	if row.Snapshot.Status != models.AgentStatusWaiting {
		t.Errorf("Status = %q, want waiting", row.Snapshot.Status)
	}
}

func TestApply_RemovalPurgesAndIsIdempotent(t *testing.T) {
	reg := newTestRoster(&models.AgentSnapshot{ID: "a1", SessionID: "s1"})

	var purged []string
	store := NewRowStore(reg, func(agentID, sessionID string) {
		purged = append(purged, agentID+"/"+sessionID)
	})

	store.Apply(roster.Event{Kind: roster.EventAgentRemoved, AgentID: "a1", Timestamp: time.Now()})
	if store.Get("a1") != nil {
		t.Error("row survived removal")
	}
	if len(purged) != 1 || purged[0] != "a1/s1" {
		t.Errorf("purged = %v, want [a1/s1]", purged)
	}

	// Second removal for the same id is a no-op.
	store.Apply(roster.Event{Kind: roster.EventAgentRemoved, AgentID: "a1", Timestamp: time.Now()})
	if len(purged) != 1 {
		t.Errorf("purge ran %d times, want 1", len(purged))
	}
}

func TestApply_UnknownAgentIgnored(t *testing.T) {
	store := NewRowStore(roster.New(), nil)

	store.Apply(roster.Event{Kind: roster.EventToolStart, AgentID: "ghost", Timestamp: time.Now()})
	if store.Len() != 0 {
		t.Errorf("Len = %d, want 0", store.Len())
	}
}

func TestApply_LazyRowCreation(t *testing.T) {
	reg := roster.New()
	store := NewRowStore(reg, nil)

	// The agent reaches the roster after the store was built; a tool
	// event materializes the row on demand.
	reg.Upsert(&models.AgentSnapshot{ID: "late", SessionID: "s9"})
	store.Apply(roster.Event{Kind: roster.EventToolStart, AgentID: "late", Timestamp: time.Now(), Tool: "edit"})

	if store.Get("late") == nil {
		t.Fatal("expected lazily created row")
	}
}

func TestSyncAll_AdoptsRosterToolStart(t *testing.T) {
	reg := newTestRoster(&models.AgentSnapshot{ID: "a1", SessionID: "s1"})
	store := NewRowStore(reg, nil)

	start := time.Now().Add(-5 * time.Minute)
	store.Apply(roster.Event{Kind: roster.EventToolStart, AgentID: "a1", Timestamp: start, Tool: "bash"})

	// The tool finished but its tool_done never arrived; the source has
	// since published a snapshot with no running tool. The resync must
	// clear the stale local instant or the row reads as stuck forever.
	reg.Upsert(&models.AgentSnapshot{ID: "a1", SessionID: "s1", Status: models.AgentStatusWaiting})
	store.SyncAll()

	row := store.Get("a1")
	if row.ToolStartedAt != nil {
		t.Errorf("ToolStartedAt = %v, want nil after resync", row.ToolStartedAt)
	}
	if row.Elapsed(time.Now()) != 0 {
		t.Error("Elapsed should be 0 once the resync dropped the stale tool start")
	}

	// The converse: a tool_start was lost but the snapshot carries one.
	toolStart := time.Now().Add(-10 * time.Second)
	reg.Upsert(&models.AgentSnapshot{ID: "a1", SessionID: "s1", Status: models.AgentStatusActive,
		CurrentTool: "grep", ToolStartedAt: &toolStart})
	store.SyncAll()
	if row.ToolStartedAt == nil || !row.ToolStartedAt.Equal(toolStart) {
		t.Errorf("ToolStartedAt = %v, want %v from the roster", row.ToolStartedAt, toolStart)
	}
}

func TestApply_EventSyncKeepsLocalToolStart(t *testing.T) {
	reg := newTestRoster(&models.AgentSnapshot{ID: "a1", SessionID: "s1"})
	store := NewRowStore(reg, nil)

	// The roster has not seen the tool yet; the event-path sync inside
	// Apply must not wipe the instant the event just set.
	start := time.Now()
	store.Apply(roster.Event{Kind: roster.EventToolStart, AgentID: "a1", Timestamp: start, Tool: "edit"})

	row := store.Get("a1")
	if row.ToolStartedAt == nil || !row.ToolStartedAt.Equal(start) {
		t.Fatalf("ToolStartedAt = %v, want %v", row.ToolStartedAt, start)
	}
}

func TestSyncAll_DropsRowsGoneFromRoster(t *testing.T) {
	reg := newTestRoster(
		&models.AgentSnapshot{ID: "a1", SessionID: "s1"},
		&models.AgentSnapshot{ID: "a2", SessionID: "s2"},
	)
	var purged []string
	store := NewRowStore(reg, func(agentID, sessionID string) {
		purged = append(purged, agentID+"/"+sessionID)
	})

	// a2's agent_removed was dropped; only the roster knows it is gone.
	reg.Remove("a2")
	store.SyncAll()

	if store.Get("a2") != nil {
		t.Error("row survived resync after leaving the roster")
	}
	if store.Len() != 1 {
		t.Errorf("Len = %d, want 1", store.Len())
	}
	if len(purged) != 1 || purged[0] != "a2/s2" {
		t.Errorf("purged = %v, want [a2/s2]", purged)
	}

	store.SyncAll()
	if len(purged) != 1 {
		t.Errorf("purge ran %d times, want 1", len(purged))
	}
}

func TestSyncAll_PicksUpEventlessAgents(t *testing.T) {
	reg := roster.New()
	store := NewRowStore(reg, nil)

	reg.Upsert(&models.AgentSnapshot{ID: "quiet", SessionID: "s2", TurnCount: 3})
	store.SyncAll()

	row := store.Get("quiet")
	if row == nil {
		t.Fatal("expected row after SyncAll")
	}
	if row.TurnCount != 3 {
		t.Errorf("TurnCount = %d, want 3", row.TurnCount)
	}
}
