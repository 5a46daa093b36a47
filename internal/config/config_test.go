package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/co2-sensor/internal/gpio"
	"github.com/sweeney/co2-sensor/internal/logic"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "co2-sensor.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Logic() != logic.DefaultConfig() {
		t.Errorf("Logic: got %+v, want %+v", cfg.Logic(), logic.DefaultConfig())
	}
	if cfg.GPIO.Pins != gpio.DefaultLayout() {
		t.Errorf("Pins: got %+v", cfg.GPIO.Pins)
	}
}

func TestLoadOverridesOnlyGivenKeys(t *testing.T) {
	path := writeFile(t, `
poll: 500ms
mqtt:
  broker: tcp://broker.local:1883
  telemetry_interval: 1m
  outbox: 32
sensor:
  interval: 5s
gpio:
  pins:
    buzzer: 5
thresholds:
  co2_high: 1800
calibration_ppm: 420
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Poll != 500*time.Millisecond {
		t.Errorf("Poll: got %v", cfg.Poll)
	}
	if cfg.MQTT.Broker != "tcp://broker.local:1883" {
		t.Errorf("Broker: got %q", cfg.MQTT.Broker)
	}
	if cfg.MQTT.Namespace != "co2melder" {
		t.Errorf("Namespace should keep default, got %q", cfg.MQTT.Namespace)
	}
	if cfg.MQTT.Telemetry != time.Minute {
		t.Errorf("Telemetry: got %v", cfg.MQTT.Telemetry)
	}
	if cfg.MQTT.Outbox != 32 || cfg.MQTT.Inbox != 16 {
		t.Errorf("Outbox/Inbox: got %d/%d", cfg.MQTT.Outbox, cfg.MQTT.Inbox)
	}
	if cfg.Sensor.Interval != 5*time.Second {
		t.Errorf("Sensor.Interval: got %v", cfg.Sensor.Interval)
	}
	if cfg.GPIO.Pins.Buzzer != 5 || cfg.GPIO.Pins.Red != gpio.PinRed {
		t.Errorf("Pins: got %+v", cfg.GPIO.Pins)
	}

	want := logic.Config{
		Thresholds:     logic.Thresholds{VeryHigh: 2500, High: 1800, Mid: 1500},
		CalibrationPPM: 420,
	}
	if cfg.Logic() != want {
		t.Errorf("Logic: got %+v, want %+v", cfg.Logic(), want)
	}
}

func TestLoadAcceptsMisorderedThresholds(t *testing.T) {
	path := writeFile(t, "thresholds:\n  co2_very_high: 1000\n  co2_high: 2000\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Logic().Thresholds.Ordered() {
		t.Error("thresholds should be kept as given")
	}
}

func TestLoadUnknownKey(t *testing.T) {
	path := writeFile(t, "pole: 1s\n")
	if _, err := Load(path); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil || !strings.Contains(err.Error(), "read config") {
		t.Errorf("expected read error, got %v", err)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"zero poll", "poll: 0s\n"},
		{"empty broker", "mqtt:\n  broker: \"\"\n"},
		{"sensor interval too short", "sensor:\n  interval: 1s\n"},
		{"display size", "display:\n  width: 0\n"},
		{"bad duration", "poll: soon\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeFile(t, tt.body)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestDisabledDisplaySkipsSizeCheck(t *testing.T) {
	path := writeFile(t, "display:\n  enabled: false\n  width: 0\n")
	if _, err := Load(path); err != nil {
		t.Errorf("Load: %v", err)
	}
}
