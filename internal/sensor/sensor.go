// Package sensor provides the periodic CO2/temperature/humidity measurement
// source with hardware abstraction.
// The real implementation talks to a Sensirion SCD30 over I²C.
// The fake implementation allows testing without hardware.
package sensor

import (
	"errors"

	"github.com/sweeney/co2-sensor/internal/logic"
)

var (
	// ErrNoData is returned by Read before the first measurement is available.
	ErrNoData = errors.New("sensor: no measurement available yet")

	// ErrStopped is returned by Read while periodic sampling is stopped.
	ErrStopped = errors.New("sensor: periodic measurement stopped")
)

// Source is a sensor with a periodic measurement cadence.
type Source interface {
	// Start begins (or restarts) periodic sampling.
	Start() error

	// Stop halts periodic sampling.
	Stop() error

	// Read returns the most recent complete measurement.
	Read() (logic.Reading, error)

	// ForceRecalibration sets the sensor reference to targetPPM and returns
	// the reference concentration the sensor reports as applied.
	ForceRecalibration(targetPPM int) (int, error)

	// Close releases the sensor.
	Close() error
}
