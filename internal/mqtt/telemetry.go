package mqtt

import (
	"fmt"
	"time"

	"github.com/sweeney/co2-sensor/internal/logic"
)

// Telemetry publishes readings at most once per interval and calibration
// status immediately.
type Telemetry struct {
	client Client
	topics Topics
	gate   logic.Gate
}

// NewTelemetry returns a publisher using c. interval <= 0 selects
// logic.TelemetryInterval.
func NewTelemetry(c Client, topics Topics, interval time.Duration) *Telemetry {
	return &Telemetry{
		client: c,
		topics: topics,
		gate:   logic.Gate{Every: interval},
	}
}

// MaybePublish publishes sample as retained telemetry if the interval has
// elapsed. The attempt consumes the interval even when the publish fails;
// the next due sample replaces it. It reports whether an attempt was made.
func (t *Telemetry) MaybePublish(now time.Time, sample logic.Reading, deviceID string) (bool, error) {
	if !t.gate.Due(now) {
		return false, nil
	}
	t.gate.Mark(now)

	payload, err := FormatTelemetry(deviceID, sample)
	if err != nil {
		return true, fmt.Errorf("format telemetry: %w", err)
	}
	if err := t.client.Publish(t.topics.Telemetry(deviceID), payload, true); err != nil {
		return true, fmt.Errorf("publish telemetry: %w", err)
	}
	return true, nil
}

// PublishStatus publishes a non-retained calibration status message.
func (t *Telemetry) PublishStatus(deviceID, status string) error {
	payload, err := FormatStatus(deviceID, status)
	if err != nil {
		return fmt.Errorf("format status: %w", err)
	}
	if err := t.client.Publish(t.topics.Status(deviceID), payload, false); err != nil {
		return fmt.Errorf("publish status %s: %w", status, err)
	}
	return nil
}

// Suspend makes the next MaybePublish due regardless of the last attempt.
func (t *Telemetry) Suspend() {
	t.gate.Suspend()
}

// LastAttempt returns the time of the last telemetry attempt.
func (t *Telemetry) LastAttempt() time.Time {
	return t.gate.Last()
}
