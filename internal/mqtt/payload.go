package mqtt

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/sweeney/co2-sensor/internal/logic"
)

// Calibration status values published on the status topic.
const (
	StatusCalibrating = "calibrating"
	StatusCalibrated  = "calibrated"
)

// TelemetryPayload is the retained reading message.
type TelemetryPayload struct {
	DeviceID    string  `json:"device_id"`
	CO2         float64 `json:"co2"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
}

// StatusPayload announces calibration progress.
type StatusPayload struct {
	DeviceID string `json:"device_id"`
	Status   string `json:"status"`
}

// FormatTelemetry creates the JSON payload for a reading. CO2 is reported in
// whole ppm, temperature and humidity to two decimals.
func FormatTelemetry(deviceID string, r logic.Reading) ([]byte, error) {
	return json.Marshal(TelemetryPayload{
		DeviceID:    deviceID,
		CO2:         math.Round(r.CO2),
		Temperature: round2(r.Temperature),
		Humidity:    round2(r.Humidity),
	})
}

// FormatStatus creates the JSON payload for a status message.
func FormatStatus(deviceID, status string) ([]byte, error) {
	return json.Marshal(StatusPayload{DeviceID: deviceID, Status: status})
}

// ParseCommand decodes a command payload. Unknown fields are ignored and
// absent or null fields stay nil. Each field is decoded on its own: a field
// of the wrong type is left nil and reported in the returned error while the
// other fields are kept. A payload that is not a JSON object yields an empty
// command and an error.
func ParseCommand(payload []byte) (logic.Command, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		return logic.Command{}, fmt.Errorf("parse command: %w", err)
	}

	var errs []error
	cmd := logic.Command{
		CalibrationValue: field[int](raw, "calibration_value", &errs),
		Calibration:      field[bool](raw, "calibration", &errs),
		CO2VeryHigh:      field[int](raw, "co2_very_high", &errs),
		CO2High:          field[int](raw, "co2_high", &errs),
		CO2Mid:           field[int](raw, "co2_mid", &errs),
	}
	if err := errors.Join(errs...); err != nil {
		return cmd, fmt.Errorf("parse command: %w", err)
	}
	return cmd, nil
}

// field decodes raw[key] into a new T, or returns nil when the key is
// absent, null or of the wrong type.
func field[T any](raw map[string]json.RawMessage, key string, errs *[]error) *T {
	v, ok := raw[key]
	if !ok || bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
		return nil
	}
	var out T
	if err := json.Unmarshal(v, &out); err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return nil
	}
	return &out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
