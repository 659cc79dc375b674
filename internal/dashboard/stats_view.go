package dashboard

import (
	"fmt"
	"strings"

	"github.com/fleetwatch/fleetwatch/pkg/models"
)

// renderStats renders the fleet aggregates plus, when an agent is
// selected, the retro panel for its session.
func (a *App) renderStats() string {
	var lines []string

	lines = append(lines, listDimStyle.Render("Fleet"))
	lines = append(lines, a.fleetStatLines()...)

	if a.selectedID != "" {
		if row := a.rows.Get(a.selectedID); row != nil {
			lines = append(lines, "")
			lines = append(lines, listDimStyle.Render("Session "+truncateName(row.Snapshot.Name, 40)))
			lines = append(lines, a.retroLines(row)...)
		}
	} else {
		lines = append(lines, "")
		lines = append(lines, listDimStyle.Render("Select an agent in the list for its retro analysis."))
	}

	return a.clipToViewport(lines)
}

// fleetStatLines aggregates counters across every tracked agent.
func (a *App) fleetStatLines() []string {
	var (
		byStatus = map[models.AgentStatus]int{}
		turns    int
		cost     float64
		errors   int
		running  int
	)
	for _, row := range a.rows.All() {
		byStatus[row.Snapshot.Status]++
		turns += row.TurnCount
		cost += row.CostUSD
		errors += row.ErrorCount
		if row.ToolStartedAt != nil {
			running++
		}
	}

	statLine := func(label, value string) string {
		return fmt.Sprintf("  %s %s", listDimStyle.Render(label+":"), listValueStyle.Render(value))
	}

	return []string{
		statLine("agents", fmt.Sprintf("%d (%d active, %d waiting, %d idle, %d done)",
			a.rows.Len(),
			byStatus[models.AgentStatusActive],
			byStatus[models.AgentStatusWaiting],
			byStatus[models.AgentStatusIdle],
			byStatus[models.AgentStatusDone])),
		statLine("running tools", fmt.Sprintf("%d", running)),
		statLine("turns", fmt.Sprintf("%d", turns)),
		statLine("cost", fmt.Sprintf("$%.2f", cost)),
		statLine("tool errors", fmt.Sprintf("%d", errors)),
	}
}

// retroLines renders the retro analysis panel for one agent. A missing
// analysis is a normal state and renders a placeholder, not an error.
func (a *App) retroLines(row *AgentRow) []string {
	sessionID := row.Snapshot.SessionID

	retro, ok := a.cache.Retro(sessionID)
	if !ok {
		if a.cache.Loading(sessionID) {
			return []string{"  " + a.spin.View() + " fetching analysis..."}
		}
		return []string{"  " + listDimStyle.Render("analysis not requested yet")}
	}
	if retro == nil {
		return []string{"  " + listDimStyle.Render("not analyzed yet")}
	}

	field := func(label, value string) string {
		return fmt.Sprintf("  %-14s %s", listDimStyle.Render(label), listValueStyle.Render(value))
	}

	lines := []string{
		field("drift", fmt.Sprintf("%.2f", retro.DriftScore)),
		field("convergence", fmt.Sprintf("%.2f", retro.ConvergenceScore)),
		field("thrash", fmt.Sprintf("%.2f", retro.ThrashScore)),
	}

	if j := retro.Judgment; j != nil {
		lines = append(lines,
			field("outcome", fmt.Sprintf("%s (%.0f%% confidence)", outcomeLabel(j.Outcome), j.OutcomeConfidence*100)),
			field("prompt", fmt.Sprintf("clarity %.2f, completeness %.2f", j.PromptClarity, j.PromptCompleteness)),
		)
		if j.OutcomeReasoning != "" {
			lines = append(lines, wrapIndented(j.OutcomeReasoning, a.width-4, "  ")...)
		}
	}

	if retro.Narrative != "" {
		lines = append(lines, "", listDimStyle.Render("  Narrative"))
		lines = append(lines, wrapIndented(retro.Narrative, a.width-4, "  ")...)
	}
	return lines
}

// outcomeLabel styles a judgment outcome for display.
func outcomeLabel(o models.JudgmentOutcome) string {
	switch o {
	case models.OutcomeCompleted:
		return statusDoneStyle.Render(string(o))
	case models.OutcomeFailed, models.OutcomeAbandoned:
		return callErrorStyle.Render(string(o))
	default:
		return string(o)
	}
}

// wrapIndented word-wraps prose into indented lines of at most width
// display cells.
func wrapIndented(text string, width int, indent string) []string {
	if width < 10 {
		width = 10
	}
	var lines []string
	line := indent
	for _, word := range strings.Fields(text) {
		if line != indent && len(line)+1+len(word) > width {
			lines = append(lines, line)
			line = indent
		}
		if line != indent {
			line += " "
		}
		line += word
	}
	if line != indent {
		lines = append(lines, line)
	}
	return lines
}
