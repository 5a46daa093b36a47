package logic

import (
	"fmt"
	"time"
)

// Pin is a pin owned by a TimedToggle together with the level it is set to
// when the timer starts.
type Pin struct {
	Num     int
	Initial bool
}

// TimedToggle flips one or two outputs after an elapsed interval without
// blocking. Each logical indicator needs its own TimedToggle: the phase and
// the last toggle time are local to the instance.
type TimedToggle struct {
	pins       []Pin
	levels     []bool
	lastToggle time.Time
	started    bool
}

// NewTimedToggle creates a timer driving the given pins in lock-step.
func NewTimedToggle(pins ...Pin) *TimedToggle {
	return &TimedToggle{
		pins:   pins,
		levels: make([]bool, len(pins)),
	}
}

// Tick toggles the outputs once interval has elapsed since the last toggle.
// The first call only sets the initial levels and starts the timer.
func (t *TimedToggle) Tick(out Output, now time.Time, interval time.Duration) (bool, error) {
	return t.TickAsym(out, now, interval, interval)
}

// TickAsym is Tick with distinct durations for the active phase (primary pin
// high) and the inactive phase.
func (t *TimedToggle) TickAsym(out Output, now time.Time, on, off time.Duration) (bool, error) {
	if !t.started {
		t.started = true
		t.lastToggle = now
		for i, p := range t.pins {
			t.levels[i] = p.Initial
		}
		return false, t.write(out)
	}

	if now.Sub(t.lastToggle) < t.currentInterval(on, off) {
		return false, nil
	}

	for i := range t.levels {
		t.levels[i] = !t.levels[i]
	}
	t.lastToggle = now
	return true, t.write(out)
}

// Active reports whether the primary pin is currently high.
func (t *TimedToggle) Active() bool {
	return len(t.levels) > 0 && t.levels[0]
}

// Reset returns the timer to its uninitialized state. The next tick writes
// the initial levels again.
func (t *TimedToggle) Reset() {
	t.started = false
	t.lastToggle = time.Time{}
}

func (t *TimedToggle) currentInterval(on, off time.Duration) time.Duration {
	if t.Active() {
		return on
	}
	return off
}

func (t *TimedToggle) write(out Output) error {
	for i, p := range t.pins {
		if err := out.Write(p.Num, t.levels[i]); err != nil {
			return fmt.Errorf("write pin %d: %w", p.Num, err)
		}
	}
	return nil
}
