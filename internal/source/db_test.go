package source

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// setupTestDB creates a new temporary database for testing.
func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	return db
}

func TestOpen_CreatesParentDirectories(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "a", "b", "c")
	path := filepath.Join(nested, "test.db")

	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(nested); os.IsNotExist(err) {
		t.Errorf("parent directories not created: %s", nested)
	}
	if db.Path() != path {
		t.Errorf("Path() = %q, want %q", db.Path(), path)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	db := setupTestDB(t)
	if err := db.Migrate(); err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}

	var version int
	row := db.QueryRow("SELECT MAX(version) FROM schema_version")
	if err := row.Scan(&version); err != nil {
		t.Fatalf("read schema version: %v", err)
	}
	if version != 4 {
		t.Errorf("schema version = %d, want 4", version)
	}
}

func TestOffsets(t *testing.T) {
	db := setupTestDB(t)

	off, err := db.Offset("/tmp/missing.jsonl")
	if err != nil {
		t.Fatalf("Offset failed: %v", err)
	}
	if off != 0 {
		t.Errorf("offset for unknown path = %d, want 0", off)
	}

	if err := db.SetOffset("/tmp/a.jsonl", 1024); err != nil {
		t.Fatalf("SetOffset failed: %v", err)
	}
	if err := db.SetOffset("/tmp/a.jsonl", 2048); err != nil {
		t.Fatalf("SetOffset update failed: %v", err)
	}

	off, err = db.Offset("/tmp/a.jsonl")
	if err != nil {
		t.Fatalf("Offset failed: %v", err)
	}
	if off != 2048 {
		t.Errorf("offset = %d, want 2048", off)
	}
}

func TestListSessions(t *testing.T) {
	db := setupTestDB(t)

	now := time.Now()
	insert := func(id string, last time.Time) {
		_, err := db.Exec(`
			INSERT INTO sessions (id, agent_id, name, project, status, started_at, last_activity,
				turn_count, cost_usd, error_count)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, id, id, "name-"+id, "proj", "idle", formatTime(last.Add(-time.Hour)), formatTime(last), 2, 0.5, 1)
		if err != nil {
			t.Fatalf("insert session: %v", err)
		}
	}
	insert("old", now.Add(-2*time.Hour))
	insert("new", now)

	sessions, err := db.ListSessions()
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("got %d sessions, want 2", len(sessions))
	}
	if sessions[0].ID != "new" {
		t.Errorf("first session = %q, want most recently active first", sessions[0].ID)
	}
	if sessions[1].TurnCount != 2 || sessions[1].CostUSD != 0.5 {
		t.Errorf("session fields = %+v", sessions[1])
	}
}

func TestPurgeOldSessions(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.Exec(`
		INSERT INTO sessions (id, agent_id, name, status, started_at, last_activity, log_path)
		VALUES ('stale', 'stale', 'stale', 'done', ?, ?, '/tmp/stale.jsonl')
	`, formatTime(time.Now().Add(-48*time.Hour)), formatTime(time.Now().Add(-48*time.Hour)))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := db.SetOffset("/tmp/stale.jsonl", 512); err != nil {
		t.Fatalf("set offset: %v", err)
	}
	_, err = db.Exec(`
		INSERT INTO tool_calls (id, session_id, tool, started_at)
		VALUES ('tc1', 'stale', 'Bash', ?)
	`, formatTime(time.Now().Add(-48*time.Hour)))
	if err != nil {
		t.Fatalf("insert tool call: %v", err)
	}

	count, err := db.PurgeOldSessions(24 * time.Hour)
	if err != nil {
		t.Fatalf("PurgeOldSessions failed: %v", err)
	}
	if count != 1 {
		t.Errorf("purged %d sessions, want 1", count)
	}

	var calls int
	if err := db.QueryRow("SELECT COUNT(*) FROM tool_calls").Scan(&calls); err != nil {
		t.Fatalf("count tool calls: %v", err)
	}
	if calls != 0 {
		t.Errorf("tool calls remaining = %d, want 0", calls)
	}

	off, err := db.Offset("/tmp/stale.jsonl")
	if err != nil {
		t.Fatalf("Offset failed: %v", err)
	}
	if off != 0 {
		t.Errorf("ingest offset survived the purge: %d", off)
	}
}
