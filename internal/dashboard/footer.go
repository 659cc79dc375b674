package dashboard

import (
	"github.com/charmbracelet/lipgloss"
)

// Footer renders the keyboard hint bar.
type Footer struct {
	width int
	mode  Mode
	zoom  bool

	hintStyle      lipgloss.Style
	separatorStyle lipgloss.Style
}

// NewFooter creates a new Footer.
func NewFooter() *Footer {
	return &Footer{
		hintStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),

		separatorStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("236")),
	}
}

// SetWidth sets the footer width.
func (f *Footer) SetWidth(width int) {
	f.width = width
}

// SetMode updates the hint context.
func (f *Footer) SetMode(mode Mode, zoomed bool) {
	f.mode = mode
	f.zoom = zoomed
}

// View renders the footer.
func (f *Footer) View() string {
	hints := "1/2/3 views │ ↑/↓ select │ enter focus"

	switch f.mode {
	case ModeList:
		hints += " │ space expand │ / filter"
	case ModeTimeline:
		hints += " │ z zoom │ drag zoom"
		if f.zoom {
			hints += " │ esc reset"
		}
	case ModeStats:
		hints += " │ r refresh"
	}

	hints += " │ q quit"

	return f.hintStyle.Render(hints)
}
