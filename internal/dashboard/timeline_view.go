package dashboard

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// timelineLabelWidth is the left column reserved for agent names.
const timelineLabelWidth = 18

var (
	axisStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	nowMarkerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	blockDoneStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("28"))
	blockErrStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// cellRow builds one styled track line out of per-cell runes, grouping
// equal-styled runs so styling cost stays linear in the width.
type cellRow struct {
	runes  []rune
	styles []*lipgloss.Style
}

func newCellRow(width int) *cellRow {
	row := &cellRow{
		runes:  make([]rune, width),
		styles: make([]*lipgloss.Style, width),
	}
	for i := range row.runes {
		row.runes[i] = ' '
	}
	return row
}

// put writes a rune at cell with a style, ignoring out-of-track cells.
func (r *cellRow) put(cell int, ch rune, style *lipgloss.Style) {
	if cell < 0 || cell >= len(r.runes) {
		return
	}
	r.runes[cell] = ch
	r.styles[cell] = style
}

// fill writes a run of cells [from, to] with one rune and style.
func (r *cellRow) fill(from, to int, ch rune, style *lipgloss.Style) {
	for c := from; c <= to; c++ {
		r.put(c, ch, style)
	}
}

// String renders the row, styling contiguous runs together.
func (r *cellRow) String() string {
	var b strings.Builder
	i := 0
	for i < len(r.runes) {
		if r.styles[i] == nil {
			b.WriteRune(r.runes[i])
			i++
			continue
		}
		j := i
		var run strings.Builder
		for j < len(r.runes) && r.styles[j] == r.styles[i] {
			run.WriteRune(r.runes[j])
			j++
		}
		b.WriteString(r.styles[i].Render(run.String()))
		i = j
	}
	return b.String()
}

// renderTimeline renders the zoomable tool-call timeline. The layout of
// the track (left edge, width, agent per screen row) is recorded so mouse
// input can be mapped back to times and sessions.
func (a *App) renderTimeline() string {
	rows := a.visibleRows()

	a.trackLeft = timelineLabelWidth + 1
	a.trackWidth = a.width - a.trackLeft - 1
	if a.trackWidth < 10 {
		a.trackWidth = 10
	}
	a.rowAgents = make(map[int]string)

	w := a.zoom.Window(a.now)

	var lines []string
	lines = append(lines, strings.Repeat(" ", a.trackLeft)+a.renderAxis(w))

	// Screen rows: header, tab bar, then the axis line above the tracks.
	screenY := 3

	budget := a.contentHeight() - 1
	nowCell := -1
	if w.Contains(a.now) {
		nowCell = w.CellAt(a.now, a.trackWidth)
	}

	for _, r := range rows {
		if len(lines)-1 >= budget {
			break
		}
		snap := r.Snapshot

		calls, haveCalls := a.cache.History(snap.SessionID)
		lanes := AssignLanes(calls, a.now)

		tracks := []*cellRow{newCellRow(a.trackWidth)}
		if haveCalls {
			for i := range calls {
				start, end := calls[i].Span(a.now)
				left, width, visible := w.SpanRect(start, end)
				if !visible {
					continue
				}
				from := int(left / 100 * float64(a.trackWidth-1))
				to := from + int(width/100*float64(a.trackWidth-1))
				style := &blockDoneStyle
				if calls[i].IsError {
					style = &blockErrStyle
				} else if !calls[i].Completed {
					style = durationStyle(a.now.Sub(start))
				}
				if lanes[i] == 1 {
					if len(tracks) == 1 {
						tracks = append(tracks, newCellRow(a.trackWidth))
					}
					tracks[1].fill(from, to, '█', style)
				} else {
					tracks[0].fill(from, to, '█', style)
				}
			}
		}

		for _, track := range tracks {
			if nowCell >= 0 {
				track.put(nowCell, '│', &nowMarkerStyle)
			}
		}

		label := truncateName(snap.Name, timelineLabelWidth)
		labelStyle := listValueStyle
		if snap.ID == a.selectedID {
			labelStyle = listSelectedStyle
		}
		pad := timelineLabelWidth - lipgloss.Width(label)
		if pad < 0 {
			pad = 0
		}

		first := labelStyle.Render(label) + strings.Repeat(" ", pad+1) + tracks[0].String()
		if !haveCalls {
			first = labelStyle.Render(label) + strings.Repeat(" ", pad+1) +
				a.spin.View() + listDimStyle.Render(" loading…")
		}
		lines = append(lines, first)
		a.rowAgents[screenY+len(lines)-2] = snap.ID

		if haveCalls && len(tracks) > 1 {
			lines = append(lines, strings.Repeat(" ", a.trackLeft)+tracks[1].String())
			a.rowAgents[screenY+len(lines)-2] = snap.ID
		}
	}

	if len(rows) == 0 {
		lines = append(lines, listDimStyle.Italic(true).Render("  No agents"))
	}

	// The timeline draws from the top; the scroll offset belongs to the
	// list viewport and is deliberately left untouched here.
	for len(lines) < a.contentHeight() {
		lines = append(lines, "")
	}
	if len(lines) > a.contentHeight() && a.contentHeight() > 0 {
		lines = lines[:a.contentHeight()]
	}
	return strings.Join(lines, "\n")
}

// renderAxis renders the labeled tick line for the active window.
func (a *App) renderAxis(w Window) string {
	row := newCellRow(a.trackWidth)
	for _, tick := range Ticks(w) {
		cell := w.CellAt(tick.Time, a.trackWidth)
		for i, ch := range tick.Label {
			if cell+i >= a.trackWidth {
				break
			}
			row.put(cell+i, ch, &axisStyle)
		}
	}
	return row.String()
}
