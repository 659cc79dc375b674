package roster

import (
	"testing"

	"github.com/fleetwatch/fleetwatch/pkg/models"
)

func TestRoster_UpsertAndGet(t *testing.T) {
	r := New()

	r.Upsert(&models.AgentSnapshot{ID: "a1", Name: "first"})
	r.Upsert(&models.AgentSnapshot{ID: "a1", Name: "renamed"})

	got := r.Get("a1")
	if got == nil {
		t.Fatal("expected snapshot for a1")
	}
	if got.Name != "renamed" {
		t.Errorf("Name = %q, want %q", got.Name, "renamed")
	}
	if r.Count() != 1 {
		t.Errorf("Count = %d, want 1", r.Count())
	}
}

func TestRoster_GetUnknown(t *testing.T) {
	r := New()
	if got := r.Get("missing"); got != nil {
		t.Errorf("Get(missing) = %v, want nil", got)
	}
}

func TestRoster_AllFirstSeenOrder(t *testing.T) {
	r := New()
	r.Upsert(&models.AgentSnapshot{ID: "b"})
	r.Upsert(&models.AgentSnapshot{ID: "a"})
	r.Upsert(&models.AgentSnapshot{ID: "c"})
	// Re-upserting must not change the ordering.
	r.Upsert(&models.AgentSnapshot{ID: "a", Name: "updated"})

	all := r.All()
	want := []string{"b", "a", "c"}
	if len(all) != len(want) {
		t.Fatalf("got %d snapshots, want %d", len(all), len(want))
	}
	for i, id := range want {
		if all[i].ID != id {
			t.Errorf("position %d = %q, want %q", i, all[i].ID, id)
		}
	}
}

func TestRoster_Remove(t *testing.T) {
	r := New()
	r.Upsert(&models.AgentSnapshot{ID: "a1"})
	r.Remove("a1")

	if r.Get("a1") != nil {
		t.Error("snapshot survived removal")
	}
	if r.Count() != 0 {
		t.Errorf("Count = %d, want 0", r.Count())
	}
	// Removing again is a no-op.
	r.Remove("a1")
}

func TestEventKind_Valid(t *testing.T) {
	for _, k := range []EventKind{
		EventAgentCreated, EventAgentRemoved,
		EventSubagentCreated, EventSubagentRemoved,
		EventToolStart, EventToolDone,
		EventStatusChanged, EventTurnComplete,
	} {
		if !k.Valid() {
			t.Errorf("%q should be valid", k)
		}
	}
	if EventKind("bogus").Valid() {
		t.Error("bogus kind should be invalid")
	}
}
