// Package dashboard implements the live-monitoring TUI for a fleet of
// agent sessions: a derived per-agent metrics table kept consistent with
// the event stream and the lagging roster, a hierarchy view, a zoomable
// timeline, and lazily fetched enrichment panels.
package dashboard

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fleetwatch/fleetwatch/internal/config"
	"github.com/fleetwatch/fleetwatch/internal/roster"
	"github.com/fleetwatch/fleetwatch/internal/trace"
	"github.com/fleetwatch/fleetwatch/pkg/models"
)

// Mode is the dashboard's view mode. Exactly one is active.
type Mode int

const (
	// ModeList shows the hierarchical agent table.
	ModeList Mode = iota
	// ModeTimeline shows tool-call spans on a zoomable time axis.
	ModeTimeline
	// ModeStats shows fleet aggregates and retro analyses.
	ModeStats
)

// App is the bubbletea model for the dashboard. All state lives here and
// is torn down with the model; nothing is package-global, so multiple
// instances can be mounted independently (and tested in isolation).
type App struct {
	cfg    *config.Config
	roster *roster.Roster
	rows   *RowStore
	cache  *DataCache
	zoom   *Zoom

	header *Header
	footer *Footer
	spin   spinner.Model
	filter textinput.Model

	mode      Mode
	now       time.Time
	width     int
	height    int
	quitting  bool
	filtering bool

	// selectedID tracks selection by agent id so it survives reordering.
	selectedID string
	// expanded marks agents whose sub-agent panel is open in list mode.
	expanded map[string]bool
	// scrollOffset is the list viewport position, preserved across full
	// redraws.
	scrollOffset int

	// Timeline layout recorded during render so mouse positions can be
	// mapped back to times and rows.
	trackLeft  int
	trackWidth int
	rowAgents  map[int]string

	// Drag-to-zoom state.
	dragging  bool
	dragStart int

	// onFocusAgent is the host callback fired when the user selects a row.
	onFocusAgent func(agentID string)
}

// NewApp creates a dashboard over the given roster and analysis client.
func NewApp(cfg *config.Config, r *roster.Roster, client *trace.Client) *App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	fi := textinput.New()
	fi.Placeholder = "filter agents"
	fi.CharLimit = 64

	a := &App{
		cfg:       cfg,
		roster:    r,
		cache:     NewDataCache(client),
		zoom:      NewZoom(cfg.Timeline.Horizon),
		header:    NewHeader(),
		footer:    NewFooter(),
		spin:      sp,
		filter:    fi,
		now:       time.Now(),
		expanded:  make(map[string]bool),
		rowAgents: make(map[int]string),
	}
	// Removal must be total: the row, its caches, its expansion state and
	// the selection all go together so no dead id is referenced later.
	a.rows = NewRowStore(r, func(agentID, sessionID string) {
		a.cache.Purge(sessionID)
		delete(a.expanded, agentID)
		if a.selectedID == agentID {
			a.selectedID = ""
		}
	})
	return a
}

// SetFocusAgentHandler registers the host callback for row selection.
func (a *App) SetFocusAgentHandler(fn func(agentID string)) {
	a.onFocusAgent = fn
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.scheduleFastTick(), a.scheduleResyncTick(), a.spin.Tick)
}

// scheduleFastTick arms the 1s elapsed-time refresh.
func (a *App) scheduleFastTick() tea.Cmd {
	return tea.Tick(a.cfg.Refresh.Tick, func(t time.Time) tea.Msg {
		return fastTickMsg{at: t}
	})
}

// scheduleResyncTick arms the slower roster re-sync.
func (a *App) scheduleResyncTick() tea.Cmd {
	return tea.Tick(a.cfg.Refresh.Resync, func(t time.Time) tea.Msg {
		return resyncTickMsg{at: t}
	})
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if cmd, handled := a.handleKey(msg); handled {
			return a, cmd
		}

	case tea.MouseMsg:
		cmds = append(cmds, a.handleMouse(msg))

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.header.SetWidth(msg.Width)
		a.footer.SetWidth(msg.Width)
		a.filter.Width = msg.Width - 10

	case fastTickMsg:
		a.now = msg.at
		cmds = append(cmds, a.scheduleFastTick())

	case resyncTickMsg:
		cmds = append(cmds, a.handleResync()...)
		cmds = append(cmds, a.scheduleResyncTick())

	case EventMsg:
		cmds = append(cmds, a.handleEvent(msg.Event)...)

	case SubAgentsLoadedMsg:
		a.cache.StoreSubAgents(msg)

	case HistoryLoadedMsg:
		a.cache.StoreHistory(msg)

	case RetroLoadedMsg:
		a.cache.StoreRetro(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spin, cmd = a.spin.Update(msg)
		cmds = append(cmds, cmd)
	}

	return a, tea.Batch(cmds...)
}

// handleKey processes a key press. Returns handled=false only for keys
// that should fall through to default processing (none today, but the
// shape matches how panels forward keys).
func (a *App) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	if a.filtering {
		switch msg.String() {
		case "esc":
			a.filtering = false
			a.filter.SetValue("")
			a.filter.Blur()
		case "enter":
			a.filtering = false
			a.filter.Blur()
		default:
			var cmd tea.Cmd
			a.filter, cmd = a.filter.Update(msg)
			return cmd, true
		}
		return nil, true
	}

	switch msg.String() {
	case "q", "ctrl+c":
		a.quitting = true
		return tea.Quit, true

	case "1":
		a.setMode(ModeList)
	case "2":
		return tea.Batch(a.setMode(ModeTimeline)...), true
	case "3":
		return tea.Batch(a.setMode(ModeStats)...), true

	case "up", "k":
		a.moveSelection(-1)
	case "down", "j":
		a.moveSelection(1)

	case "enter":
		if a.selectedID != "" && a.onFocusAgent != nil {
			a.onFocusAgent(a.selectedID)
		}

	case " ":
		if a.mode == ModeList && a.selectedID != "" {
			a.expanded[a.selectedID] = !a.expanded[a.selectedID]
			if a.expanded[a.selectedID] {
				if row := a.rows.Get(a.selectedID); row != nil {
					return a.cache.EnsureSubAgents(row.Snapshot.SessionID), true
				}
			}
		}

	case "/":
		if a.mode == ModeList {
			a.filtering = true
			a.filter.Focus()
			return textinput.Blink, true
		}

	case "z":
		if a.mode == ModeTimeline && a.selectedID != "" {
			if row := a.rows.Get(a.selectedID); row != nil {
				a.zoom.ZoomToSession(row.Snapshot.StartedAt, row.Snapshot.LastActivity)
			}
		}

	case "esc":
		if a.mode == ModeTimeline {
			a.zoom.Reset()
		}
		if a.filter.Value() != "" {
			a.filter.SetValue("")
		}

	case "r":
		return tea.Batch(a.refreshActive()...), true
	}

	return nil, true
}

// setMode switches the view mode. Entering timeline or stats kicks off
// history loads for every known agent that has none cached yet.
func (a *App) setMode(mode Mode) []tea.Cmd {
	a.mode = mode
	if mode == ModeList {
		return nil
	}
	var cmds []tea.Cmd
	for _, snap := range a.roster.All() {
		if cmd := a.cache.EnsureHistory(snap.SessionID); cmd != nil {
			cmds = append(cmds, cmd)
		}
		if mode == ModeStats {
			if cmd := a.cache.EnsureRetro(snap.SessionID); cmd != nil {
				cmds = append(cmds, cmd)
			}
		}
	}
	return cmds
}

// handleMouse implements click- and drag-to-zoom on the timeline track.
// A drag under the cell threshold counts as a click.
func (a *App) handleMouse(msg tea.MouseMsg) tea.Cmd {
	if a.mode != ModeTimeline || a.trackWidth <= 0 {
		return nil
	}
	if msg.Button != tea.MouseButtonLeft {
		return nil
	}

	col := msg.X - a.trackLeft

	switch msg.Action {
	case tea.MouseActionPress:
		a.dragging = true
		a.dragStart = col

	case tea.MouseActionRelease:
		if !a.dragging {
			return nil
		}
		a.dragging = false

		start, end := a.dragStart, col
		if start > end {
			start, end = end, start
		}
		if end-start >= minDragCells {
			w := a.zoom.Window(a.now)
			a.zoom.ZoomTo(w.TimeAt(start, a.trackWidth), w.TimeAt(end, a.trackWidth))
			return nil
		}
		a.clickZoom(msg.Y, col)
	}
	return nil
}

// clickZoom zooms to whatever sits under a click: the tool-call block at
// that instant when there is one, otherwise the whole session span.
func (a *App) clickZoom(y, col int) {
	agentID, ok := a.rowAgents[y]
	if !ok {
		return
	}
	row := a.rows.Get(agentID)
	if row == nil {
		return
	}

	w := a.zoom.Window(a.now)
	at := w.TimeAt(col, a.trackWidth)

	if calls, ok := a.cache.History(row.Snapshot.SessionID); ok {
		for i := range calls {
			start, end := calls[i].Span(a.now)
			if !at.Before(start) && !at.After(end) {
				a.zoom.ZoomToCall(start, end)
				return
			}
		}
	}
	a.zoom.ZoomToSession(row.Snapshot.StartedAt, row.Snapshot.LastActivity)
}

// moveSelection moves the selected row up or down the visible listing.
func (a *App) moveSelection(delta int) {
	rows := a.visibleRows()
	if len(rows) == 0 {
		a.selectedID = ""
		return
	}

	idx := 0
	for i, r := range rows {
		if r.Snapshot.ID == a.selectedID {
			idx = i + delta
			break
		}
	}
	if idx < 0 {
		idx = 0
	}
	if idx >= len(rows) {
		idx = len(rows) - 1
	}
	a.selectedID = rows[idx].Snapshot.ID
	a.ensureSelectedVisible(len(rows))
}

// visibleRows flattens the roster hierarchy and applies the list filter.
// Recomputed on every use: parent links and ordering change between
// renders, so nothing here may be cached.
func (a *App) visibleRows() []TreeRow {
	// A hierarchy fault still yields a total listing; render what we have.
	flat, _ := Flatten(a.roster.All())

	needle := strings.ToLower(a.filter.Value())
	if needle == "" {
		return flat
	}
	filtered := flat[:0:0]
	for _, r := range flat {
		if strings.Contains(strings.ToLower(r.Snapshot.Name), needle) ||
			strings.Contains(strings.ToLower(r.Snapshot.Project), needle) {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// ensureSelectedVisible clamps the scroll offset so the selection stays
// inside the viewport after a redraw.
func (a *App) ensureSelectedVisible(total int) {
	visible := a.contentHeight()
	if visible < 1 {
		visible = 1
	}

	idx := a.selectedIndex()
	if idx < 0 {
		return
	}
	if idx < a.scrollOffset {
		a.scrollOffset = idx
	} else if idx >= a.scrollOffset+visible {
		a.scrollOffset = idx - visible + 1
	}
	maxOffset := total - visible
	if maxOffset < 0 {
		maxOffset = 0
	}
	if a.scrollOffset > maxOffset {
		a.scrollOffset = maxOffset
	}
}

// selectedIndex returns the selection's index among visible rows, or -1.
func (a *App) selectedIndex() int {
	for i, r := range a.visibleRows() {
		if r.Snapshot.ID == a.selectedID {
			return i
		}
	}
	return -1
}

// contentHeight is the vertical budget for the mode content.
func (a *App) contentHeight() int {
	// header + tab bar + footer
	return a.height - 3
}

// View implements tea.Model. Every call is a full recomputation from
// current state; there is no incremental patching.
func (a *App) View() string {
	if a.quitting {
		return ""
	}

	counts := a.headerCounts()

	var content string
	switch a.mode {
	case ModeList:
		content = a.renderList()
	case ModeTimeline:
		content = a.renderTimeline()
	case ModeStats:
		content = a.renderStats()
	}

	a.footer.SetMode(a.mode, a.zoom.Active())

	return a.header.View(counts, a.now) + "\n" +
		a.renderTabBar() + "\n" +
		content + "\n" +
		a.footer.View()
}

// headerCounts derives the fleet summary, classifying every running tool
// call against the elapsed clock.
func (a *App) headerCounts() HeaderCounts {
	counts := HeaderCounts{}
	for _, snap := range a.roster.All() {
		counts.Total++
		if snap.Status == models.AgentStatusActive {
			counts.Active++
		}
		if row := a.rows.Get(snap.ID); row != nil {
			if row.ToolStartedAt != nil && ClassifyDuration(row.Elapsed(a.now)) == DurationStuck {
				counts.Stuck++
			}
		}
	}
	return counts
}

// renderTabBar renders the mode indicator.
func (a *App) renderTabBar() string {
	activeStyle := lipgloss.NewStyle().Bold(true).Reverse(true)
	inactiveStyle := lipgloss.NewStyle().Faint(true)

	tabs := []struct {
		mode  Mode
		label string
	}{
		{ModeList, " 1:Agents "},
		{ModeTimeline, " 2:Timeline "},
		{ModeStats, " 3:Stats "},
	}

	var b strings.Builder
	for _, t := range tabs {
		if a.mode == t.mode {
			b.WriteString(activeStyle.Render(t.label))
		} else {
			b.WriteString(inactiveStyle.Render(t.label))
		}
	}
	if a.filtering || a.filter.Value() != "" {
		b.WriteString("  ")
		b.WriteString(a.filter.View())
	}
	return b.String()
}

// NewProgram creates the bubbletea program for a dashboard instance.
// Mouse cell motion is required for the timeline's drag-to-zoom.
func NewProgram(app *App) *tea.Program {
	return tea.NewProgram(app, tea.WithAltScreen(), tea.WithMouseCellMotion())
}
