// Package indicator maps alert levels, calibration and connectivity onto
// LEDs and the buzzer. Every blinking behavior owns its own timer.
package indicator

import (
	"time"

	"github.com/sweeney/co2-sensor/internal/gpio"
	"github.com/sweeney/co2-sensor/internal/logic"
)

// Blink timings.
const (
	AlarmBlink       = 500 * time.Millisecond
	BuzzerOn         = 200 * time.Millisecond
	BuzzerOff        = 1800 * time.Millisecond
	CalibrationBlink = 250 * time.Millisecond
)

type mode int

const (
	modeOff mode = iota
	modeLevel
	modeCalibrating
)

// Panel drives the indicator outputs. It is owned by the control loop.
type Panel struct {
	out    logic.Output
	layout gpio.Layout

	alarm       *logic.TimedToggle // red blink in RED_ALARM
	buzzer      *logic.TimedToggle // asymmetric beep in RED_ALARM
	calibration *logic.TimedToggle // red/blue alternation while calibrating

	mode      mode
	level     logic.AlertLevel
	connected bool
}

// NewPanel creates a panel writing to out with the given wiring.
func NewPanel(out logic.Output, layout gpio.Layout) *Panel {
	return &Panel{
		out:         out,
		layout:      layout,
		alarm:       logic.NewTimedToggle(logic.Pin{Num: layout.Red, Initial: true}),
		buzzer:      logic.NewTimedToggle(logic.Pin{Num: layout.Buzzer, Initial: true}),
		calibration: logic.NewTimedToggle(logic.Pin{Num: layout.Red, Initial: true}, logic.Pin{Num: layout.Blue, Initial: false}),
		connected:   true,
	}
}

// ShowLevel shows the steady pattern of level, or the alarm pattern for
// RED_ALARM. Switching level restarts the patterns from their initial state.
func (p *Panel) ShowLevel(now time.Time, level logic.AlertLevel) error {
	if p.mode != modeLevel || p.level != level {
		p.mode = modeLevel
		p.level = level
		p.resetTimers()
		if err := p.steady(level); err != nil {
			return err
		}
	}

	if level != logic.LevelRedAlarm {
		return nil
	}
	if _, err := p.alarm.Tick(p.out, now, AlarmBlink); err != nil {
		return err
	}
	_, err := p.buzzer.TickAsym(p.out, now, BuzzerOn, BuzzerOff)
	return err
}

// ShowCalibrating alternates red and blue and silences everything else.
func (p *Panel) ShowCalibrating(now time.Time) error {
	if p.mode != modeCalibrating {
		p.mode = modeCalibrating
		p.resetTimers()
		if err := p.writeAll(false); err != nil {
			return err
		}
	}
	_, err := p.calibration.Tick(p.out, now, CalibrationBlink)
	return err
}

// SetConnected records broker connectivity. While disconnected the blue LED
// is lit steadily outside calibration.
func (p *Panel) SetConnected(connected bool) error {
	if p.connected == connected {
		return nil
	}
	p.connected = connected
	if p.mode == modeCalibrating {
		return nil
	}
	return p.out.Write(p.layout.Blue, !connected)
}

// Off turns every output off.
func (p *Panel) Off() error {
	p.mode = modeOff
	p.resetTimers()
	return p.writeAll(false)
}

func (p *Panel) steady(level logic.AlertLevel) error {
	l := p.layout
	levels := map[int]bool{
		l.Green:  level == logic.LevelGreen,
		l.Yellow: level == logic.LevelYellow,
		l.Red:    level == logic.LevelRed,
		l.Blue:   !p.connected,
		l.Buzzer: false,
	}
	// Write in layout order so the sequence is deterministic.
	for _, pin := range l.Outputs() {
		if err := p.out.Write(pin, levels[pin]); err != nil {
			return err
		}
	}
	return nil
}

func (p *Panel) writeAll(level bool) error {
	for _, pin := range p.layout.Outputs() {
		if err := p.out.Write(pin, level); err != nil {
			return err
		}
	}
	return nil
}

func (p *Panel) resetTimers() {
	p.alarm.Reset()
	p.buzzer.Reset()
	p.calibration.Reset()
}
