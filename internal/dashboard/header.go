package dashboard

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Header renders the one-line fleet summary bar.
type Header struct {
	width int

	titleStyle lipgloss.Style
	countStyle lipgloss.Style
	stuckStyle lipgloss.Style
	dimStyle   lipgloss.Style
}

// HeaderCounts summarizes the fleet for the header.
type HeaderCounts struct {
	Total  int
	Active int
	Stuck  int
}

// NewHeader creates a new Header.
func NewHeader() *Header {
	return &Header{
		width: 80,

		titleStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")),

		countStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("34")),

		stuckStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true),

		dimStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")),
	}
}

// SetWidth sets the header width.
func (h *Header) SetWidth(width int) {
	h.width = width
}

// View renders the header for the given counts and clock.
func (h *Header) View(counts HeaderCounts, now time.Time) string {
	title := h.titleStyle.Render(" fleetwatch ")

	summary := fmt.Sprintf("%d agents", counts.Total)
	if counts.Active > 0 {
		summary += h.countStyle.Render(fmt.Sprintf("  %d active", counts.Active))
	}
	if counts.Stuck > 0 {
		summary += h.stuckStyle.Render(fmt.Sprintf("  %d stuck", counts.Stuck))
	}

	clock := h.dimStyle.Render(now.Format("15:04:05"))

	gap := h.width - lipgloss.Width(title) - lipgloss.Width(summary) - lipgloss.Width(clock) - 2
	if gap < 1 {
		gap = 1
	}

	return title + summary + lipgloss.NewStyle().Width(gap).Render("") + clock
}

// Height returns the header height in lines.
func (h *Header) Height() int {
	return 1
}
