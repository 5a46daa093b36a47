package logic

import "time"

// CalibrationState is the state of the forced recalibration procedure.
type CalibrationState int

const (
	StateOperation CalibrationState = iota
	StateCalibrationStart
	StateCalibrationWait5Min
	StateCalibrationWait500ms
)

func (s CalibrationState) String() string {
	switch s {
	case StateOperation:
		return "OPERATION"
	case StateCalibrationStart:
		return "CALIBRATION_START"
	case StateCalibrationWait5Min:
		return "CALIBRATION_WAIT_5MIN"
	case StateCalibrationWait500ms:
		return "CALIBRATION_WAIT_500MS"
	}
	return "UNKNOWN"
}

// Wait durations of the calibration procedure.
const (
	CalibrationSettle = 5 * time.Minute
	CalibrationPause  = 500 * time.Millisecond
)

// ActionType tells the loop which side effect a calibration step requires.
type ActionType int

const (
	ActionNone ActionType = iota
	// ActionBegin: suspend the telemetry gate, publish the calibrating
	// status immediately and (re)start periodic sampling.
	ActionBegin
	// ActionStopSampling: stop periodic sampling before recalibration.
	ActionStopSampling
	// ActionRecalibrate: force recalibration to Target ppm and restart
	// periodic sampling.
	ActionRecalibrate
)

// Action is the result of a calibration step.
type Action struct {
	Type   ActionType
	Target int
}

// Calibration is the recalibration state machine. The zero value is in
// StateOperation.
type Calibration struct {
	state     CalibrationState
	stepStart time.Time
	wait      time.Duration
	target    int
	cycles    int
}

// Request asks for a calibration cycle. It only has an effect in
// StateOperation and reports whether the transition happened.
func (c *Calibration) Request() bool {
	if c.state != StateOperation {
		return false
	}
	c.state = StateCalibrationStart
	return true
}

// Step advances the state machine. target is the currently configured
// calibration reference in ppm; it is used when recalibration fires.
// Deadlines are polled: an action fires on the first step at or after its
// deadline, never before.
func (c *Calibration) Step(now time.Time, target int) Action {
	switch c.state {
	case StateOperation:
		return Action{}

	case StateCalibrationStart:
		c.arm(StateCalibrationWait5Min, now, CalibrationSettle)
		return Action{Type: ActionBegin}

	case StateCalibrationWait5Min:
		if !c.elapsed(now) {
			return Action{}
		}
		c.arm(StateCalibrationWait500ms, now, CalibrationPause)
		return Action{Type: ActionStopSampling}

	case StateCalibrationWait500ms:
		if !c.elapsed(now) {
			return Action{}
		}
		c.target = target
		c.cycles++
		c.state = StateOperation
		c.stepStart = time.Time{}
		c.wait = 0
		return Action{Type: ActionRecalibrate, Target: target}
	}
	return Action{}
}

// State returns the current state.
func (c *Calibration) State() CalibrationState {
	return c.state
}

// Active reports whether a calibration cycle is in progress.
func (c *Calibration) Active() bool {
	return c.state != StateOperation
}

// Deadline returns when the current wait ends. It is zero outside the wait
// states.
func (c *Calibration) Deadline() time.Time {
	if c.wait == 0 {
		return time.Time{}
	}
	return c.stepStart.Add(c.wait)
}

// Cycles returns the number of completed calibration cycles.
func (c *Calibration) Cycles() int {
	return c.cycles
}

// LastTarget returns the reference used by the last completed cycle.
func (c *Calibration) LastTarget() int {
	return c.target
}

func (c *Calibration) arm(next CalibrationState, now time.Time, wait time.Duration) {
	c.state = next
	c.stepStart = now
	c.wait = wait
}

func (c *Calibration) elapsed(now time.Time) bool {
	return now.Sub(c.stepStart) >= c.wait
}
