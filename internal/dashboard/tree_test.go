package dashboard

import (
	"testing"

	"github.com/fleetwatch/fleetwatch/pkg/models"
)

func snap(id, parentID string) *models.AgentSnapshot {
	return &models.AgentSnapshot{ID: id, Name: id, ParentID: parentID}
}

func rowIDs(rows []TreeRow) []string {
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.Snapshot.ID
	}
	return ids
}

func TestFlatten_SingleChain(t *testing.T) {
	// a -> b -> c, each the only child of its parent.
	rows, err := Flatten([]*models.AgentSnapshot{
		snap("a", ""),
		snap("b", "a"),
		snap("c", "b"),
	})
	if err != nil {
		t.Fatalf("Flatten returned error: %v", err)
	}

	wantIDs := []string{"a", "b", "c"}
	wantPrefixes := []string{"", "└─ ", "   └─ "}
	if len(rows) != len(wantIDs) {
		t.Fatalf("got %d rows, want %d", len(rows), len(wantIDs))
	}
	for i := range rows {
		if rows[i].Snapshot.ID != wantIDs[i] {
			t.Errorf("row %d id = %q, want %q", i, rows[i].Snapshot.ID, wantIDs[i])
		}
		if rows[i].Prefix != wantPrefixes[i] {
			t.Errorf("row %d prefix = %q, want %q", i, rows[i].Prefix, wantPrefixes[i])
		}
	}
}

func TestFlatten_SiblingGlyphs(t *testing.T) {
	// Two children: first gets a branch glyph, last gets the corner.
	rows, err := Flatten([]*models.AgentSnapshot{
		snap("root", ""),
		snap("first", "root"),
		snap("second", "root"),
	})
	if err != nil {
		t.Fatalf("Flatten returned error: %v", err)
	}

	if rows[1].Prefix != "├─ " {
		t.Errorf("first sibling prefix = %q, want %q", rows[1].Prefix, "├─ ")
	}
	if rows[2].Prefix != "└─ " {
		t.Errorf("last sibling prefix = %q, want %q", rows[2].Prefix, "└─ ")
	}
}

func TestFlatten_ContinuationUnderBranch(t *testing.T) {
	// A grandchild under a non-last child carries the continuation bar.
	rows, err := Flatten([]*models.AgentSnapshot{
		snap("root", ""),
		snap("mid", "root"),
		snap("leaf", "mid"),
		snap("tail", "root"),
	})
	if err != nil {
		t.Fatalf("Flatten returned error: %v", err)
	}

	got := rowIDs(rows)
	want := []string{"root", "mid", "leaf", "tail"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
	if rows[2].Prefix != "│  └─ " {
		t.Errorf("grandchild prefix = %q, want %q", rows[2].Prefix, "│  └─ ")
	}
}

func TestFlatten_OrphanPromotedToRoot(t *testing.T) {
	rows, err := Flatten([]*models.AgentSnapshot{
		snap("a", ""),
		snap("orphan", "gone"),
	})
	if err != nil {
		t.Fatalf("Flatten returned error: %v", err)
	}

	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[1].Snapshot.ID != "orphan" || rows[1].Prefix != "" {
		t.Errorf("orphan row = (%q, %q), want root with empty prefix",
			rows[1].Snapshot.ID, rows[1].Prefix)
	}
}

func TestFlatten_CycleStaysTotal(t *testing.T) {
	// a <-> b reference each other; both must still be listed.
	rows, err := Flatten([]*models.AgentSnapshot{
		snap("a", "b"),
		snap("b", "a"),
		snap("c", ""),
	})
	if err != ErrHierarchyCycle {
		t.Fatalf("err = %v, want ErrHierarchyCycle", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}

	seen := make(map[string]bool)
	for _, r := range rows {
		if seen[r.Snapshot.ID] {
			t.Errorf("agent %q listed twice", r.Snapshot.ID)
		}
		seen[r.Snapshot.ID] = true
	}
	for _, id := range []string{"a", "b", "c"} {
		if !seen[id] {
			t.Errorf("agent %q missing from listing", id)
		}
	}
}

func TestFlatten_Empty(t *testing.T) {
	rows, err := Flatten(nil)
	if err != nil {
		t.Fatalf("Flatten(nil) returned error: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("got %d rows, want 0", len(rows))
	}
}
