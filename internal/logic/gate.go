package logic

import "time"

// Gate rate-limits telemetry. A new Gate is due immediately; after Mark it
// is due again once TelemetryInterval has elapsed.
type Gate struct {
	// Every replaces TelemetryInterval when non-zero.
	Every time.Duration

	last     time.Time
	interval time.Duration
}

// Due reports whether a publish is allowed at now.
func (g *Gate) Due(now time.Time) bool {
	return g.interval == 0 || now.Sub(g.last) >= g.interval
}

// Mark records a publish attempt at now.
func (g *Gate) Mark(now time.Time) {
	g.last = now
	g.interval = g.Every
	if g.interval <= 0 {
		g.interval = TelemetryInterval
	}
}

// Suspend clears the interval so the next Due call returns true.
func (g *Gate) Suspend() {
	g.interval = 0
}

// Last returns the time of the last publish attempt.
func (g *Gate) Last() time.Time {
	return g.last
}

// EdgeDetector recognizes level changes between consecutive polls.
// Debouncing is at iteration granularity: a change is only seen when the
// level differs from the previous poll.
type EdgeDetector struct {
	prev   bool
	primed bool
}

// Falling reports a high-to-low transition since the previous call. The
// first call only records the level.
func (e *EdgeDetector) Falling(level bool) bool {
	edge := e.primed && e.prev && !level
	e.prev = level
	e.primed = true
	return edge
}
