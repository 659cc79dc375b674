package dashboard

import (
	"time"

	"github.com/fleetwatch/fleetwatch/pkg/models"
)

// Window is the active [Start, End] range the timeline is scaled to.
type Window struct {
	Start time.Time
	End   time.Time
}

// Duration returns the window width.
func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// PercentOf maps an instant to its percentage offset into the window,
// clamped to [0, 100].
func (w Window) PercentOf(t time.Time) float64 {
	total := w.Duration()
	if total <= 0 {
		return 0
	}
	pct := float64(t.Sub(w.Start)) / float64(total) * 100
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// SpanRect maps a [start, end] span to its clamped left/width percentages.
// Spans falling entirely outside the window are not visible.
func (w Window) SpanRect(start, end time.Time) (left, width float64, visible bool) {
	if end.Before(w.Start) || start.After(w.End) {
		return 0, 0, false
	}
	left = w.PercentOf(start)
	width = w.PercentOf(end) - left
	return left, width, true
}

// TimeAt maps a track cell back to an instant, given the track width.
// A track of one cell or fewer has no extent and maps to Start.
func (w Window) TimeAt(cell, trackWidth int) time.Time {
	if trackWidth <= 1 {
		return w.Start
	}
	if cell < 0 {
		cell = 0
	}
	if cell >= trackWidth {
		cell = trackWidth - 1
	}
	frac := float64(cell) / float64(trackWidth-1)
	return w.Start.Add(time.Duration(frac * float64(w.Duration())))
}

// CellAt maps an instant to a track cell, clamped to the track.
func (w Window) CellAt(t time.Time, trackWidth int) int {
	if trackWidth <= 0 {
		return 0
	}
	cell := int(w.PercentOf(t) / 100 * float64(trackWidth-1))
	if cell < 0 {
		return 0
	}
	if cell >= trackWidth {
		return trackWidth - 1
	}
	return cell
}

// minZoomSpan is the smallest range a zoom request may carry; anything
// tighter is treated as accidental input and ignored.
const minZoomSpan = 500 * time.Millisecond

// minDragCells is how many cells a drag must cover to count as a zoom
// gesture rather than a click.
const minDragCells = 5

// Zoom tracks the timeline's active range: either the rolling full window
// of fixed horizon ending at now, or one explicit range. Zooming again
// replaces the range, it never stacks.
type Zoom struct {
	horizon  time.Duration
	explicit *Window
}

// NewZoom creates a Zoom with the given full-window horizon.
func NewZoom(horizon time.Duration) *Zoom {
	return &Zoom{horizon: horizon}
}

// Active reports whether an explicit zoom range is set.
func (z *Zoom) Active() bool {
	return z.explicit != nil
}

// Window returns the active window: the explicit range when zoomed,
// otherwise [now − horizon, now].
func (z *Zoom) Window(now time.Time) Window {
	if z.explicit != nil {
		return *z.explicit
	}
	return Window{Start: now.Add(-z.horizon), End: now}
}

// ZoomTo replaces the active range. Degenerate or inverted ranges under
// the minimum span are ignored.
func (z *Zoom) ZoomTo(start, end time.Time) {
	if end.Before(start.Add(minZoomSpan)) {
		return
	}
	z.explicit = &Window{Start: start, End: end}
}

// sessionPadFloor pads session zooms so short sessions do not fill the
// whole track edge to edge.
const sessionPadFloor = 2 * time.Minute

// ZoomToSession zooms to a session's [start, last-activity] span with
// proportional padding.
func (z *Zoom) ZoomToSession(start, lastActivity time.Time) {
	span := lastActivity.Sub(start)
	pad := span / 10
	if pad < sessionPadFloor {
		pad = sessionPadFloor
	}
	z.ZoomTo(start.Add(-pad), lastActivity.Add(pad))
}

// Asymmetric floors for very short tool-call spans: a little lead-in,
// more room after so the call does not sit on the right edge.
const (
	callPadBeforeFloor = time.Second
	callPadAfterFloor  = 2 * time.Second
)

// ZoomToCall zooms to a single tool call's [start, finish] span.
func (z *Zoom) ZoomToCall(start, finish time.Time) {
	span := finish.Sub(start)
	before := span / 10
	if before < callPadBeforeFloor {
		before = callPadBeforeFloor
	}
	after := span / 10
	if after < callPadAfterFloor {
		after = callPadAfterFloor
	}
	z.ZoomTo(start.Add(-before), finish.Add(after))
}

// Reset returns to the rolling full window.
func (z *Zoom) Reset() {
	z.explicit = nil
}

// tickIntervals are the candidate axis intervals, ascending.
var tickIntervals = []time.Duration{
	time.Second,
	5 * time.Second,
	10 * time.Second,
	30 * time.Second,
	time.Minute,
	5 * time.Minute,
	10 * time.Minute,
	15 * time.Minute,
	30 * time.Minute,
	time.Hour,
	2 * time.Hour,
	4 * time.Hour,
}

// AxisTick is one labeled tick on the time axis.
type AxisTick struct {
	Time    time.Time
	Percent float64
	Label   string
}

// TickInterval picks the axis interval for a window: the first candidate
// at least window/8, falling back to the largest candidate for very wide
// windows.
func TickInterval(w Window) time.Duration {
	target := w.Duration() / 8
	for _, iv := range tickIntervals {
		if iv >= target {
			return iv
		}
	}
	return tickIntervals[len(tickIntervals)-1]
}

// Ticks places labeled ticks at every interval multiple inside the window.
func Ticks(w Window) []AxisTick {
	interval := TickInterval(w)

	var ticks []AxisTick
	first := w.Start.Truncate(interval)
	if first.Before(w.Start) {
		first = first.Add(interval)
	}
	for t := first; !t.After(w.End); t = t.Add(interval) {
		label := t.Format("15:04")
		if interval < time.Minute {
			label = t.Format("15:04:05")
		}
		ticks = append(ticks, AxisTick{
			Time:    t,
			Percent: w.PercentOf(t),
			Label:   label,
		})
	}
	return ticks
}

// timelineLanes is the maximum number of parallel lanes per session.
const timelineLanes = 2

// AssignLanes places overlapping tool calls of one session into at most
// timelineLanes lanes: a call drops to the overflow lane when its start
// precedes the latest end seen so far, otherwise it stays in lane 0.
func AssignLanes(calls []models.SubAgentCall, now time.Time) []int {
	lanes := make([]int, len(calls))
	var latestEnd time.Time
	for i, call := range calls {
		start, end := call.Span(now)
		if i > 0 && start.Before(latestEnd) {
			lanes[i] = timelineLanes - 1
		}
		if end.After(latestEnd) {
			latestEnd = end
		}
	}
	return lanes
}
