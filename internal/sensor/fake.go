package sensor

import "github.com/sweeney/co2-sensor/internal/logic"

// FakeSource is a test double that returns scripted readings.
type FakeSource struct {
	// Readings contains scripted values to return.
	// Each call to Read() consumes the next reading; the last one repeats.
	Readings []logic.Reading

	// index tracks current position in Readings
	index int

	// Sampling reports whether periodic measurement is running.
	Sampling bool

	// Starts and Stops count calls to Start and Stop.
	Starts int
	Stops  int

	// Recalibrations records every ForceRecalibration target.
	Recalibrations []int

	// Applied is the reference ForceRecalibration reports. Zero means the
	// requested target.
	Applied int

	// ReadError, if set, will be returned by Read()
	ReadError error

	// RecalibrationError, if set, will be returned by ForceRecalibration()
	RecalibrationError error

	// Closed tracks if Close was called
	Closed bool
}

// NewFakeSource creates a FakeSource that is already sampling.
func NewFakeSource(readings ...logic.Reading) *FakeSource {
	return &FakeSource{Readings: readings, Sampling: true}
}

// Start marks sampling active.
func (f *FakeSource) Start() error {
	f.Starts++
	f.Sampling = true
	return nil
}

// Stop marks sampling inactive.
func (f *FakeSource) Stop() error {
	f.Stops++
	f.Sampling = false
	return nil
}

// Read returns the next scripted reading.
func (f *FakeSource) Read() (logic.Reading, error) {
	if f.ReadError != nil {
		return logic.Reading{}, f.ReadError
	}
	if !f.Sampling {
		return logic.Reading{}, ErrStopped
	}
	if len(f.Readings) == 0 {
		return logic.Reading{}, ErrNoData
	}

	r := f.Readings[f.index]
	if f.index < len(f.Readings)-1 {
		f.index++
	}
	return r, nil
}

// ForceRecalibration records the target.
func (f *FakeSource) ForceRecalibration(targetPPM int) (int, error) {
	if f.RecalibrationError != nil {
		return 0, f.RecalibrationError
	}
	f.Recalibrations = append(f.Recalibrations, targetPPM)
	if f.Applied != 0 {
		return f.Applied, nil
	}
	return targetPPM, nil
}

// Close marks the source as closed.
func (f *FakeSource) Close() error {
	f.Closed = true
	return nil
}
