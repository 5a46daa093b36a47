// Package config holds daemon settings. Values start from Default, are
// overridden by an optional YAML file and finally by command-line flags.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/sweeney/co2-sensor/internal/gpio"
	"github.com/sweeney/co2-sensor/internal/logic"
	"github.com/sweeney/co2-sensor/internal/sensor"
)

// Config is the full daemon configuration.
type Config struct {
	Poll      time.Duration `yaml:"poll"`
	HTTPAddr  string        `yaml:"http"`
	Interface string        `yaml:"interface"`

	MQTT    MQTT    `yaml:"mqtt"`
	Sensor  Sensor  `yaml:"sensor"`
	Display Display `yaml:"display"`
	GPIO    GPIO    `yaml:"gpio"`

	Thresholds     Thresholds `yaml:"thresholds"`
	CalibrationPPM int        `yaml:"calibration_ppm"`
}

// MQTT configures the broker connection.
type MQTT struct {
	Broker    string        `yaml:"broker"`
	Namespace string        `yaml:"namespace"`
	Username  string        `yaml:"username"`
	Password  string        `yaml:"password"`
	Telemetry time.Duration `yaml:"telemetry_interval"`
	Inbox     int           `yaml:"inbox"`
	Outbox    int           `yaml:"outbox"`
}

// Sensor configures the SCD30.
type Sensor struct {
	Bus      string        `yaml:"bus"`
	Address  uint16        `yaml:"address"`
	Interval time.Duration `yaml:"interval"`
}

// Display configures the optional panel.
type Display struct {
	Enabled bool   `yaml:"enabled"`
	Width   int    `yaml:"width"`
	Height  int    `yaml:"height"`
	Address uint16 `yaml:"address"`
}

// GPIO names the chip and the line layout.
type GPIO struct {
	Chip string      `yaml:"chip"`
	Pins gpio.Layout `yaml:"pins"`
}

// Thresholds mirrors logic.Thresholds with YAML keys matching the
// remote command fields.
type Thresholds struct {
	VeryHigh int `yaml:"co2_very_high"`
	High     int `yaml:"co2_high"`
	Mid      int `yaml:"co2_mid"`
}

// Default returns the built-in configuration.
func Default() Config {
	th := logic.DefaultThresholds()
	return Config{
		Poll:     time.Second,
		HTTPAddr: ":80",
		MQTT: MQTT{
			Broker:    "tcp://192.168.1.200:1883",
			Namespace: "co2melder",
			Telemetry: logic.TelemetryInterval,
			Inbox:     16,
			Outbox:    16,
		},
		Sensor: Sensor{
			Address:  sensor.SCD30Address,
			Interval: 2 * time.Second,
		},
		Display: Display{
			Enabled: true,
			Width:   128,
			Height:  64,
			Address: 0x3c,
		},
		GPIO: GPIO{
			Chip: "gpiochip0",
			Pins: gpio.DefaultLayout(),
		},
		Thresholds: Thresholds{
			VeryHigh: th.VeryHigh,
			High:     th.High,
			Mid:      th.Mid,
		},
		CalibrationPPM: logic.DefaultCalibrationPPM,
	}
}

// Load reads path over the defaults. Keys missing from the file keep
// their default value.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects settings the daemon cannot run with. Thresholds and
// the calibration reference are accepted as given, as they are over MQTT.
func (c Config) Validate() error {
	if c.Poll <= 0 {
		return fmt.Errorf("poll must be positive, got %v", c.Poll)
	}
	if c.MQTT.Broker == "" {
		return fmt.Errorf("mqtt broker is required")
	}
	if c.MQTT.Namespace == "" {
		return fmt.Errorf("mqtt namespace is required")
	}
	if c.MQTT.Telemetry <= 0 {
		return fmt.Errorf("telemetry interval must be positive, got %v", c.MQTT.Telemetry)
	}
	if c.Sensor.Interval < 2*time.Second || c.Sensor.Interval > 1800*time.Second {
		return fmt.Errorf("sensor interval must be between 2s and 30m, got %v", c.Sensor.Interval)
	}
	if c.Display.Enabled && (c.Display.Width <= 0 || c.Display.Height <= 0) {
		return fmt.Errorf("display size must be positive, got %dx%d", c.Display.Width, c.Display.Height)
	}
	return nil
}

// Logic returns the runtime-adjustable part of the configuration.
func (c Config) Logic() logic.Config {
	return logic.Config{
		Thresholds: logic.Thresholds{
			VeryHigh: c.Thresholds.VeryHigh,
			High:     c.Thresholds.High,
			Mid:      c.Thresholds.Mid,
		},
		CalibrationPPM: c.CalibrationPPM,
	}
}
