package source

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fleetwatch/fleetwatch/internal/roster"
	"github.com/fleetwatch/fleetwatch/pkg/models"
)

// logEntry is one line of a JSONL session log. Only the fields the
// ingester consumes are declared; everything else is ignored.
type logEntry struct {
	Type          string      `json:"type"`
	SessionID     string      `json:"sessionId"`
	ParentSession string      `json:"parentSessionId"`
	Timestamp     string      `json:"timestamp"`
	IsSidechain   bool        `json:"isSidechain"`
	CWD           string      `json:"cwd"`
	CostUSD       float64     `json:"costUSD"`
	Message       *logMessage `json:"message"`
}

type logMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

// contentBlock is one block of a structured message content array.
type contentBlock struct {
	Type      string `json:"type"`
	ID        string `json:"id"`
	Name      string `json:"name"`
	Text      string `json:"text"`
	ToolUseID string `json:"tool_use_id"`
	IsError   bool   `json:"is_error"`
}

// pendingTool is an open tool call awaiting its result block.
type pendingTool struct {
	rowID   string
	tool    string
	started time.Time
}

// fileState accumulates what the ingester has learned from one session
// file so far. Re-ingests resume from offset instead of re-reading.
type fileState struct {
	path      string
	offset    int64
	announced bool

	sessionID string
	agentID   string
	name      string
	project   string
	parentID  string
	isSub     bool

	started   time.Time
	last      time.Time
	lastRole  string
	finished  bool
	turns     int
	cost      float64
	errors    int
	errStreak int
	pending   map[string]pendingTool
}

// Ingester parses session logs into roster snapshots and events, and
// persists sessions plus tool calls to the database.
type Ingester struct {
	db        *DB
	roster    *roster.Roster
	emitter   *roster.EventEmitter
	idleAfter time.Duration

	mu    sync.Mutex
	files map[string]*fileState
}

// NewIngester creates an ingester. idleAfter is how long a session may
// stay quiet before it is considered idle.
func NewIngester(db *DB, r *roster.Roster, emitter *roster.EventEmitter, idleAfter time.Duration) *Ingester {
	return &Ingester{
		db:        db,
		roster:    r,
		emitter:   emitter,
		idleAfter: idleAfter,
		files:     make(map[string]*fileState),
	}
}

// IngestFile parses any lines appended to a session file since the last
// ingest, then publishes the updated snapshot. Malformed lines are
// logged and skipped.
func (in *Ingester) IngestFile(path string) error {
	in.mu.Lock()
	defer in.mu.Unlock()

	st := in.fileState(path)

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open session log: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat session log: %w", err)
	}
	if info.Size() < st.offset {
		// Truncated or rewritten, start over. This also guards a stale
		// persisted offset pointing past the end of a shrunken file.
		st = newFileState()
		st.path = path
		in.files[path] = st
	}

	if _, err := f.Seek(st.offset, io.SeekStart); err != nil {
		return fmt.Errorf("seek session log: %w", err)
	}

	reader := bufio.NewReaderSize(f, 1<<20)
	offset := st.offset
	for {
		line, err := reader.ReadString('\n')
		if err == io.EOF {
			// Partial trailing line, wait for the writer to finish it.
			break
		}
		if err != nil {
			return fmt.Errorf("read session log: %w", err)
		}
		offset += int64(len(line))
		if strings.TrimSpace(line) == "" {
			continue
		}
		if err := in.processLine(st, path, line); err != nil {
			log.Printf("[source] %s: skipping line: %v", filepath.Base(path), err)
		}
	}

	st.offset = offset
	if err := in.db.SetOffset(path, offset); err != nil {
		log.Printf("[source] %s: %v", filepath.Base(path), err)
	}

	in.publish(st, time.Now())
	return nil
}

// RemoveFile drops a deleted session file from the roster.
func (in *Ingester) RemoveFile(path string) {
	in.mu.Lock()
	defer in.mu.Unlock()

	st, ok := in.files[path]
	if !ok || st.agentID == "" {
		delete(in.files, path)
		return
	}
	in.roster.Remove(st.agentID)

	kind := roster.EventAgentRemoved
	if st.isSub {
		kind = roster.EventSubagentRemoved
	}
	in.emit(roster.Event{Kind: kind, AgentID: st.agentID, Timestamp: time.Now()})
	delete(in.files, path)
}

// Sweep re-derives every tracked session's status against the clock and
// emits status_changed for sessions that crossed the idle threshold.
func (in *Ingester) Sweep(now time.Time) {
	in.mu.Lock()
	defer in.mu.Unlock()

	for _, st := range in.files {
		if st.agentID == "" {
			continue
		}
		in.publish(st, now)
	}
}

func (in *Ingester) fileState(path string) *fileState {
	if st, ok := in.files[path]; ok {
		return st
	}
	// No in-memory state means a fresh start or a restart. A restart
	// resumes from the database instead of re-reading the whole log.
	st := in.resumeState(path)
	if st == nil {
		st = newFileState()
		st.path = path
	}
	in.files[path] = st
	return st
}

// resumeState rebuilds a file's accumulators from the persisted session
// row, offset, and open tool calls. Returns nil when nothing usable was
// persisted, in which case the file is read from the top.
func (in *Ingester) resumeState(path string) *fileState {
	off, err := in.db.Offset(path)
	if err != nil || off == 0 {
		return nil
	}
	rec, err := in.db.sessionByLogPath(path)
	if err != nil || rec == nil {
		return nil
	}
	pending, err := in.db.openToolCalls(rec.sessionID)
	if err != nil {
		return nil
	}

	st := &fileState{
		path:      path,
		offset:    off,
		sessionID: rec.sessionID,
		agentID:   rec.agentID,
		name:      rec.name,
		project:   rec.project,
		parentID:  rec.parentID,
		isSub:     rec.isSub,
		started:   rec.started,
		last:      rec.last,
		finished:  rec.status == string(models.AgentStatusDone),
		turns:     rec.turns,
		cost:      rec.cost,
		errors:    rec.errors,
		errStreak: rec.errStreak,
		pending:   pending,
	}
	// lastRole is not persisted; a waiting session implies the assistant
	// spoke last, everything else re-derives from the next lines.
	if rec.status == string(models.AgentStatusWaiting) {
		st.lastRole = "assistant"
	}
	return st
}

func newFileState() *fileState {
	return &fileState{pending: make(map[string]pendingTool)}
}

// processLine folds one log line into the file state, emitting tool and
// turn events as a side effect.
func (in *Ingester) processLine(st *fileState, path, line string) error {
	var entry logEntry
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		return fmt.Errorf("malformed entry: %w", err)
	}

	ts := parseTimestamp(entry.Timestamp)
	if st.sessionID == "" && entry.SessionID != "" {
		st.sessionID = entry.SessionID
		st.agentID = entry.SessionID
		st.project = projectName(path, entry.CWD)
		st.name = sessionName(st.project, entry.SessionID)
		st.isSub = entry.IsSidechain
		st.parentID = entry.ParentSession
		st.started = ts
	}
	if !ts.IsZero() {
		st.last = ts
	}
	st.cost += entry.CostUSD

	if entry.Type == "result" {
		st.finished = true
		return nil
	}
	if entry.Message == nil {
		return nil
	}

	switch entry.Message.Role {
	case "assistant":
		st.lastRole = "assistant"
		blocks := parseBlocks(entry.Message.Content)
		sawTool := false
		for _, b := range blocks {
			if b.Type != "tool_use" {
				continue
			}
			sawTool = true
			in.startTool(st, b, ts)
		}
		if !sawTool {
			st.turns++
			in.emit(roster.Event{Kind: roster.EventTurnComplete, AgentID: st.agentID, Timestamp: ts})
		}
	case "user":
		blocks := parseBlocks(entry.Message.Content)
		sawResult := false
		for _, b := range blocks {
			if b.Type != "tool_result" {
				continue
			}
			sawResult = true
			in.finishTool(st, b, ts)
		}
		if !sawResult {
			st.lastRole = "user"
		}
	}
	return nil
}

func (in *Ingester) startTool(st *fileState, b contentBlock, ts time.Time) {
	rowID := uuid.NewString()
	st.pending[b.ID] = pendingTool{rowID: rowID, tool: b.Name, started: ts}

	if _, err := in.db.Exec(`
		INSERT INTO tool_calls (id, session_id, tool, started_at, tool_use_id)
		VALUES (?, ?, ?, ?, ?)
	`, rowID, st.sessionID, b.Name, formatTime(ts), b.ID); err != nil {
		log.Printf("[source] record tool call: %v", err)
	}

	in.emit(roster.Event{
		Kind:      roster.EventToolStart,
		AgentID:   st.agentID,
		Timestamp: ts,
		Tool:      b.Name,
	})
}

func (in *Ingester) finishTool(st *fileState, b contentBlock, ts time.Time) {
	p, ok := st.pending[b.ToolUseID]
	if !ok {
		// Result for a call started before our offset; count errors
		// anyway so the tally stays honest.
		if b.IsError {
			st.errors++
			st.errStreak++
		} else {
			st.errStreak = 0
		}
		return
	}
	delete(st.pending, b.ToolUseID)

	if b.IsError {
		st.errors++
		st.errStreak++
	} else {
		st.errStreak = 0
	}

	if _, err := in.db.Exec(`
		UPDATE tool_calls SET finished_at = ?, is_error = ? WHERE id = ?
	`, formatTime(ts), boolInt(b.IsError), p.rowID); err != nil {
		log.Printf("[source] finish tool call: %v", err)
	}

	in.emit(roster.Event{
		Kind:      roster.EventToolDone,
		AgentID:   st.agentID,
		Timestamp: ts,
		Tool:      p.tool,
		IsError:   b.IsError,
	})
}

// publish derives the current snapshot, upserts it into the roster, and
// emits lifecycle events for new sessions and status flips.
func (in *Ingester) publish(st *fileState, now time.Time) {
	if st.agentID == "" {
		return
	}

	status := deriveStatus(st, now, in.idleAfter)
	prev := in.roster.Get(st.agentID)

	snap := &models.AgentSnapshot{
		ID:           st.agentID,
		Name:         st.name,
		Status:       status,
		SessionID:    st.sessionID,
		Project:      st.project,
		StartedAt:    st.started,
		LastActivity: st.last,
		ParentID:     st.parentID,
		IsSubagent:   st.isSub,
		TurnCount:    st.turns,
		CostUSD:      st.cost,
		ErrorCount:   st.errors,
		ErrorStreak:  st.errStreak,
	}
	if tool, started, ok := newestPending(st); ok {
		snap.CurrentTool = tool
		snap.ToolStartedAt = &started
	}
	in.roster.Upsert(snap)

	if err := in.saveSession(st, snap); err != nil {
		log.Printf("[source] save session: %v", err)
	}

	if !st.announced {
		st.announced = true
		kind := roster.EventAgentCreated
		if st.isSub {
			kind = roster.EventSubagentCreated
		}
		in.emit(roster.Event{Kind: kind, AgentID: st.agentID, Timestamp: now})
		return
	}
	if prev != nil && prev.Status != status {
		in.emit(roster.Event{
			Kind:      roster.EventStatusChanged,
			AgentID:   st.agentID,
			Timestamp: now,
			Status:    string(status),
		})
	}
}

func (in *Ingester) saveSession(st *fileState, snap *models.AgentSnapshot) error {
	_, err := in.db.Exec(`
		INSERT INTO sessions (id, agent_id, name, project, parent_id, is_subagent,
			status, started_at, last_activity, turn_count, cost_usd, error_count,
			error_streak, log_path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			last_activity = excluded.last_activity,
			turn_count = excluded.turn_count,
			cost_usd = excluded.cost_usd,
			error_count = excluded.error_count,
			error_streak = excluded.error_streak,
			log_path = excluded.log_path
	`, snap.SessionID, snap.ID, snap.Name, snap.Project, snap.ParentID,
		boolInt(snap.IsSubagent), string(snap.Status), formatTime(snap.StartedAt),
		formatTime(snap.LastActivity), snap.TurnCount, snap.CostUSD, snap.ErrorCount,
		snap.ErrorStreak, st.path)
	return err
}

func (in *Ingester) emit(ev roster.Event) {
	ev.ID = uuid.NewString()
	in.emitter.Emit(ev)
}

// deriveStatus classifies a session. Open tool calls and finished logs
// dominate; otherwise an assistant turn waits on the user and a quiet
// log past the threshold goes idle.
func deriveStatus(st *fileState, now time.Time, idleAfter time.Duration) models.AgentStatus {
	switch {
	case st.finished:
		return models.AgentStatusDone
	case len(st.pending) > 0:
		return models.AgentStatusActive
	case st.lastRole == "assistant":
		return models.AgentStatusWaiting
	case now.Sub(st.last) <= idleAfter:
		return models.AgentStatusActive
	default:
		return models.AgentStatusIdle
	}
}

// newestPending returns the most recently started open tool call.
func newestPending(st *fileState) (tool string, started time.Time, ok bool) {
	for _, p := range st.pending {
		if !ok || p.started.After(started) {
			tool, started, ok = p.tool, p.started, true
		}
	}
	return tool, started, ok
}

// parseBlocks decodes a content field that may be either a block array
// or a plain string.
func parseBlocks(raw json.RawMessage) []contentBlock {
	if len(raw) == 0 {
		return nil
	}
	var blocks []contentBlock
	if err := json.Unmarshal(raw, &blocks); err == nil {
		return blocks
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return []contentBlock{{Type: "text", Text: text}}
	}
	return nil
}

func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// projectName prefers the session's working directory and falls back to
// the projects-dir encoding of the parent directory name.
func projectName(path, cwd string) string {
	if cwd != "" {
		return filepath.Base(cwd)
	}
	dir := filepath.Base(filepath.Dir(path))
	dir = strings.TrimPrefix(dir, "-")
	if i := strings.LastIndex(dir, "-"); i >= 0 && i < len(dir)-1 {
		return dir[i+1:]
	}
	return dir
}

// sessionName builds a stable display name from the project and a short
// session id prefix.
func sessionName(project, sessionID string) string {
	short := sessionID
	if len(short) > 8 {
		short = short[:8]
	}
	if project == "" {
		return short
	}
	return project + "/" + short
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
