// Package source ingests agent session logs from disk and turns them
// into roster snapshots and lifecycle events. It watches a projects
// directory for JSONL session files, parses them incrementally, and
// persists sessions plus tool calls to SQLite
// (~/.local/share/fleetwatch/fleetwatch.db by default).
package source

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps an SQLite database connection with ingest-specific operations.
type DB struct {
	conn *sql.DB
	path string
	mu   sync.RWMutex
}

// DefaultDBPath returns the path to the default fleetwatch database.
func DefaultDBPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, _ := os.UserHomeDir()
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "fleetwatch", "fleetwatch.db")
}

// Open opens an SQLite database at the given path.
// It creates the parent directories if they don't exist.
// WAL mode is enabled for concurrent reads.
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	return &DB{conn: conn, path: path}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.conn.Close()
}

// Path returns the path to the database file.
func (db *DB) Path() string {
	return db.path
}

// Migrate applies all pending schema migrations.
func (db *DB) Migrate() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var currentVersion int
	row := db.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migrationV1Sessions},
		{2, migrationV2ToolCalls},
		{3, migrationV3Offsets},
		{4, migrationV4Resume},
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}

		tx, err := db.conn.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}

		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration v%d: %w", m.version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration v%d: %w", m.version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// Migration SQL statements
const migrationV1Sessions = `
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	agent_id TEXT NOT NULL,
	name TEXT NOT NULL,
	project TEXT,
	parent_id TEXT,
	is_subagent INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL DEFAULT 'idle',
	started_at DATETIME NOT NULL,
	last_activity DATETIME NOT NULL,
	turn_count INTEGER NOT NULL DEFAULT 0,
	cost_usd REAL NOT NULL DEFAULT 0.0,
	error_count INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions(status);
CREATE INDEX IF NOT EXISTS idx_sessions_project ON sessions(project);
`

const migrationV2ToolCalls = `
CREATE TABLE IF NOT EXISTS tool_calls (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	tool TEXT NOT NULL,
	started_at DATETIME NOT NULL,
	finished_at DATETIME,
	is_error INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_tool_calls_session_id ON tool_calls(session_id);
`

const migrationV3Offsets = `
CREATE TABLE IF NOT EXISTS ingest_offsets (
	path TEXT PRIMARY KEY,
	offset INTEGER NOT NULL DEFAULT 0,
	updated_at DATETIME NOT NULL
);
`

// v4 adds the columns needed to resume ingestion from the persisted
// offset after a restart: the session row must carry its log path and
// error streak, and open tool calls must be re-matchable by tool_use id.
const migrationV4Resume = `
ALTER TABLE sessions ADD COLUMN error_streak INTEGER NOT NULL DEFAULT 0;
ALTER TABLE sessions ADD COLUMN log_path TEXT;
ALTER TABLE tool_calls ADD COLUMN tool_use_id TEXT;

CREATE INDEX IF NOT EXISTS idx_sessions_log_path ON sessions(log_path);
`

// Exec executes a query that doesn't return rows.
func (db *DB) Exec(query string, args ...any) (sql.Result, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.conn.Exec(query, args...)
}

// Query executes a query that returns rows.
func (db *DB) Query(query string, args ...any) (*sql.Rows, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.conn.Query(query, args...)
}

// QueryRow executes a query that returns at most one row.
func (db *DB) QueryRow(query string, args ...any) *sql.Row {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.conn.QueryRow(query, args...)
}

// Transaction runs the given function within a transaction.
func (db *DB) Transaction(fn func(tx *sql.Tx) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

// formatTime formats a time.Time for SQLite storage.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// parseTime parses a time string from SQLite.
func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

// Offset returns the last ingested byte offset for a session file, or
// zero if the file has never been ingested.
func (db *DB) Offset(path string) (int64, error) {
	var off int64
	row := db.QueryRow("SELECT offset FROM ingest_offsets WHERE path = ?", path)
	if err := row.Scan(&off); err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, fmt.Errorf("get ingest offset: %w", err)
	}
	return off, nil
}

// SetOffset records the ingested byte offset for a session file.
func (db *DB) SetOffset(path string, offset int64) error {
	_, err := db.Exec(`
		INSERT INTO ingest_offsets (path, offset, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET offset = excluded.offset, updated_at = excluded.updated_at
	`, path, offset, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("set ingest offset: %w", err)
	}
	return nil
}

// SessionRecord is one persisted session row.
type SessionRecord struct {
	ID           string
	Name         string
	Project      string
	Status       string
	StartedAt    time.Time
	LastActivity time.Time
	TurnCount    int
	CostUSD      float64
	ErrorCount   int
}

// ListSessions returns every persisted session, most recently active
// first.
func (db *DB) ListSessions() ([]SessionRecord, error) {
	rows, err := db.Query(`
		SELECT id, name, COALESCE(project, ''), status, started_at, last_activity,
			turn_count, cost_usd, error_count
		FROM sessions ORDER BY last_activity DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionRecord
	for rows.Next() {
		var rec SessionRecord
		var started, last string
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Project, &rec.Status,
			&started, &last, &rec.TurnCount, &rec.CostUSD, &rec.ErrorCount); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		rec.StartedAt, _ = parseTime(started)
		rec.LastActivity, _ = parseTime(last)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// PurgeOldSessions deletes sessions older than the specified duration,
// along with their tool calls and ingest offsets. The deletes run in one
// transaction so a session never loses its tool calls without going
// itself. Returns the number of sessions deleted.
func (db *DB) PurgeOldSessions(olderThan time.Duration) (int64, error) {
	cutoff := formatTime(time.Now().Add(-olderThan))

	var count int64
	err := db.Transaction(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`
			DELETE FROM tool_calls WHERE session_id IN
				(SELECT id FROM sessions WHERE last_activity < ?)
		`, cutoff); err != nil {
			return fmt.Errorf("purge old tool calls: %w", err)
		}

		if _, err := tx.Exec(`
			DELETE FROM ingest_offsets WHERE path IN
				(SELECT log_path FROM sessions WHERE last_activity < ? AND log_path IS NOT NULL)
		`, cutoff); err != nil {
			return fmt.Errorf("purge old ingest offsets: %w", err)
		}

		result, err := tx.Exec("DELETE FROM sessions WHERE last_activity < ?", cutoff)
		if err != nil {
			return fmt.Errorf("purge old sessions: %w", err)
		}

		count, err = result.RowsAffected()
		if err != nil {
			return fmt.Errorf("get rows affected: %w", err)
		}
		return nil
	})
	return count, err
}

// sessionResume is the persisted slice of session state the ingester
// needs to pick up a log file where the previous run left off.
type sessionResume struct {
	sessionID string
	agentID   string
	name      string
	project   string
	parentID  string
	isSub     bool
	status    string
	started   time.Time
	last      time.Time
	turns     int
	cost      float64
	errors    int
	errStreak int
}

// sessionByLogPath loads the persisted session for a log file, or nil
// when the file was never ingested.
func (db *DB) sessionByLogPath(path string) (*sessionResume, error) {
	row := db.QueryRow(`
		SELECT id, agent_id, name, COALESCE(project, ''), COALESCE(parent_id, ''),
			is_subagent, status, started_at, last_activity,
			turn_count, cost_usd, error_count, error_streak
		FROM sessions WHERE log_path = ?
	`, path)

	var rec sessionResume
	var isSub int
	var started, last string
	err := row.Scan(&rec.sessionID, &rec.agentID, &rec.name, &rec.project, &rec.parentID,
		&isSub, &rec.status, &started, &last, &rec.turns, &rec.cost, &rec.errors, &rec.errStreak)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session by log path: %w", err)
	}
	rec.isSub = isSub != 0
	rec.started, _ = parseTime(started)
	rec.last, _ = parseTime(last)
	return &rec, nil
}

// openToolCalls returns a session's unfinished tool calls keyed by their
// originating tool_use id. Rows persisted before the tool_use id column
// existed cannot be re-matched and are skipped.
func (db *DB) openToolCalls(sessionID string) (map[string]pendingTool, error) {
	rows, err := db.Query(`
		SELECT id, tool, started_at, COALESCE(tool_use_id, '')
		FROM tool_calls WHERE session_id = ? AND finished_at IS NULL
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load open tool calls: %w", err)
	}
	defer rows.Close()

	pending := make(map[string]pendingTool)
	for rows.Next() {
		var rowID, tool, started, useID string
		if err := rows.Scan(&rowID, &tool, &started, &useID); err != nil {
			return nil, fmt.Errorf("scan open tool call: %w", err)
		}
		if useID == "" {
			continue
		}
		ts, _ := parseTime(started)
		pending[useID] = pendingTool{rowID: rowID, tool: tool, started: ts}
	}
	return pending, rows.Err()
}
