package dashboard

import "time"

// DurationClass is the severity of a running tool call's elapsed time.
type DurationClass string

const (
	// DurationOK means the call is within normal bounds.
	DurationOK DurationClass = "ok"
	// DurationLong means the call has run for at least a minute.
	DurationLong DurationClass = "long"
	// DurationStuck means the call has run for at least three minutes.
	DurationStuck DurationClass = "stuck"
)

const (
	longThreshold  = 60 * time.Second
	stuckThreshold = 180 * time.Second
)

// ClassifyDuration maps elapsed time since tool start to a severity class.
// The boundaries are inclusive: exactly 60s is long, exactly 180s is stuck.
func ClassifyDuration(elapsed time.Duration) DurationClass {
	switch {
	case elapsed >= stuckThreshold:
		return DurationStuck
	case elapsed >= longThreshold:
		return DurationLong
	default:
		return DurationOK
	}
}

// BarFill returns the progress-bar fill percentage for an elapsed duration.
// The bar saturates at 100 exactly on the stuck boundary.
func BarFill(elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	pct := float64(elapsed) / float64(stuckThreshold) * 100
	if pct > 100 {
		return 100
	}
	return pct
}
