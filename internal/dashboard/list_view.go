package dashboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/fleetwatch/fleetwatch/pkg/models"
)

// Status icons for the agent listing.
const (
	iconActive  = "●"
	iconWaiting = "◐"
	iconIdle    = "○"
	iconDone    = "✓"
)

var (
	listSelectedStyle = lipgloss.NewStyle().
				Background(lipgloss.Color("236")).
				Foreground(lipgloss.Color("15")).
				Bold(true)

	listDimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	listValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	statusActiveStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("34"))
	statusWaitingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	statusIdleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	statusDoneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("28"))

	durationOKStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("34"))
	durationLongStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	durationStuckStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)

	callErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// renderList renders the hierarchical agent table with per-row duration
// bars and optional expanded sub-agent panels.
func (a *App) renderList() string {
	rows := a.visibleRows()
	if len(rows) == 0 {
		return listDimStyle.Italic(true).Render("  No agents")
	}

	var lines []string
	for _, r := range rows {
		selected := r.Snapshot.ID == a.selectedID
		lines = append(lines, a.renderAgentLine(r, selected))
		if a.expanded[r.Snapshot.ID] {
			lines = append(lines, a.renderSubAgentPanel(r.Snapshot.SessionID)...)
		}
	}

	return a.clipToViewport(lines)
}

// clipToViewport slices rendered lines to the content viewport using the
// preserved scroll offset.
func (a *App) clipToViewport(lines []string) string {
	visible := a.contentHeight()
	if visible < 1 {
		visible = 1
	}

	offset := a.scrollOffset
	maxOffset := len(lines) - visible
	if maxOffset < 0 {
		maxOffset = 0
	}
	if offset > maxOffset {
		offset = maxOffset
	}

	end := offset + visible
	if end > len(lines) {
		end = len(lines)
	}
	clipped := lines[offset:end]

	// Pad so mode switches do not shift the footer around.
	out := make([]string, 0, visible)
	out = append(out, clipped...)
	for len(out) < visible {
		out = append(out, "")
	}
	return strings.Join(out, "\n")
}

// renderAgentLine renders one agent row: tree prefix, status, name,
// current tool with its duration bar, and metrics.
func (a *App) renderAgentLine(r TreeRow, selected bool) string {
	snap := r.Snapshot

	var b strings.Builder
	b.WriteString(" ")
	b.WriteString(listDimStyle.Render(r.Prefix))
	b.WriteString(a.statusIcon(snap.Status))
	b.WriteString(" ")
	b.WriteString(listValueStyle.Render(truncateName(snap.Name, 24)))

	if snap.Project != "" {
		b.WriteString(listDimStyle.Render(" (" + snap.Project + ")"))
	}

	if row := a.rows.Get(snap.ID); row != nil {
		if row.ToolStartedAt != nil {
			elapsed := row.Elapsed(a.now)
			b.WriteString("  ")
			b.WriteString(listDimStyle.Render(snap.CurrentTool))
			b.WriteString(" ")
			b.WriteString(renderDurationBar(elapsed))
			b.WriteString(" ")
			b.WriteString(durationStyle(elapsed).Render(formatDuration(elapsed)))
		}

		var metrics []string
		if row.TurnCount > 0 {
			metrics = append(metrics, fmt.Sprintf("%d turns", row.TurnCount))
		}
		if row.CostUSD > 0 {
			metrics = append(metrics, fmt.Sprintf("$%.2f", row.CostUSD))
		}
		if row.ErrorCount > 0 {
			metrics = append(metrics, callErrorStyle.Render(fmt.Sprintf("%d err", row.ErrorCount)))
		}
		if row.ContextPct > 0 {
			metrics = append(metrics, fmt.Sprintf("ctx %.0f%%", row.ContextPct))
		}
		if len(metrics) > 0 {
			b.WriteString("  ")
			b.WriteString(listDimStyle.Render(strings.Join(metrics, " · ")))
		}
	}

	line := b.String()
	if selected {
		return listSelectedStyle.Render(line)
	}
	return line
}

// renderSubAgentPanel renders the expanded call list for a session, or
// its loading placeholder.
func (a *App) renderSubAgentPanel(sessionID string) []string {
	calls, ok := a.cache.SubAgents(sessionID)
	if !ok {
		return []string{"      " + a.spin.View() + listDimStyle.Render(" loading calls…")}
	}
	if len(calls) == 0 {
		return []string{listDimStyle.Render("      no tool calls recorded")}
	}

	lines := make([]string, 0, len(calls))
	for i := range calls {
		call := &calls[i]
		status := listDimStyle.Render("…")
		if call.Completed {
			status = statusDoneStyle.Render(iconDone)
			if call.IsError {
				status = callErrorStyle.Render("✗")
			}
		}
		dur := ""
		if call.Duration > 0 {
			dur = listDimStyle.Render(" " + formatDuration(call.Duration))
		}
		lines = append(lines, fmt.Sprintf("      %s %s %s%s",
			status,
			listValueStyle.Render(call.Tool),
			listDimStyle.Render(truncateName(call.Prompt, 48)),
			dur))
	}
	return lines
}

// statusIcon returns the styled icon for an agent status.
func (a *App) statusIcon(status models.AgentStatus) string {
	switch status {
	case models.AgentStatusActive:
		return statusActiveStyle.Render(iconActive)
	case models.AgentStatusWaiting:
		return statusWaitingStyle.Render(iconWaiting)
	case models.AgentStatusDone:
		return statusDoneStyle.Render(iconDone)
	default:
		return statusIdleStyle.Render(iconIdle)
	}
}

// durationBarWidth is the cell width of the per-row progress bar.
const durationBarWidth = 10

// renderDurationBar renders the saturation bar for a running tool call.
func renderDurationBar(elapsed time.Duration) string {
	fill := int(BarFill(elapsed) / 100 * durationBarWidth)
	if fill > durationBarWidth {
		fill = durationBarWidth
	}
	bar := strings.Repeat("█", fill) + strings.Repeat("░", durationBarWidth-fill)
	return durationStyle(elapsed).Render(bar)
}

// durationStyle picks the style for a classified elapsed time. It
// returns a pointer into the package palette so track rendering can
// group cells by style identity.
func durationStyle(elapsed time.Duration) *lipgloss.Style {
	switch ClassifyDuration(elapsed) {
	case DurationStuck:
		return &durationStuckStyle
	case DurationLong:
		return &durationLongStyle
	default:
		return &durationOKStyle
	}
}

// formatDuration formats an elapsed time compactly (e.g. "2m05s").
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
}

// truncateName shortens a string for column display.
func truncateName(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= max {
		return s
	}
	if max <= 1 {
		return "…"
	}
	return s[:max-1] + "…"
}
