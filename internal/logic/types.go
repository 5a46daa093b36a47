// Package logic contains the pure decision logic of the CO2 sensor loop.
// This package has NO external dependencies (no GPIO, MQTT, I2C, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// Reading is a single sensor sample captured for one loop iteration.
type Reading struct {
	CO2         float64 // ppm
	Temperature float64 // °C
	Humidity    float64 // %RH
}

// AlertLevel is the air quality classification derived from a CO2 reading.
// Levels are ordered: a higher value is never a better air quality.
type AlertLevel int

const (
	LevelGreen AlertLevel = iota
	LevelYellow
	LevelRed
	LevelRedAlarm
)

func (l AlertLevel) String() string {
	switch l {
	case LevelGreen:
		return "GREEN"
	case LevelYellow:
		return "YELLOW"
	case LevelRed:
		return "RED"
	case LevelRedAlarm:
		return "RED_ALARM"
	}
	return "UNKNOWN"
}

// Output drives binary outputs such as LEDs and buzzers.
type Output interface {
	Write(pin int, level bool) error
}

// TelemetryInterval is the spacing between two regular telemetry publishes.
const TelemetryInterval = 5 * time.Minute
