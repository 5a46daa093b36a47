package main

import (
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"github.com/sweeney/co2-sensor/internal/device"
	"github.com/sweeney/co2-sensor/internal/gpio"
	"github.com/sweeney/co2-sensor/internal/logic"
	"github.com/sweeney/co2-sensor/internal/mqtt"
	"github.com/sweeney/co2-sensor/internal/sensor"
)

// TestEnvVarNames verifies the env var constants match what pi-helper writes
// to /run/pi-helper.env.
func TestEnvVarNames(t *testing.T) {
	want := map[string]string{
		"NETWORK_TYPE":        envNetworkType,
		"NETWORK_IP":          envNetworkIP,
		"NETWORK_STATUS":      envNetworkStatus,
		"NETWORK_GATEWAY":     envNetworkGateway,
		"NETWORK_WIFI_STATUS": envNetworkWifiStatus,
		"NETWORK_WIFI_SSID":   envNetworkWifiSSID,
	}
	for canonical, got := range want {
		if got != canonical {
			t.Errorf("env var constant: got %q, want %q", got, canonical)
		}
	}
}

func TestReadNetworkInfoAllSet(t *testing.T) {
	t.Setenv(envNetworkType, "wifi")
	t.Setenv(envNetworkIP, "192.168.1.100")
	t.Setenv(envNetworkStatus, "connected")
	t.Setenv(envNetworkGateway, "192.168.1.1")
	t.Setenv(envNetworkWifiStatus, "connected")
	t.Setenv(envNetworkWifiSSID, "MyNetwork")

	info := readNetworkInfo()
	if info == nil {
		t.Fatal("expected non-nil NetworkInfo")
	}
	if info.Type != "wifi" || info.IP != "192.168.1.100" || info.Status != "connected" ||
		info.Gateway != "192.168.1.1" || info.WifiStatus != "connected" || info.SSID != "MyNetwork" {
		t.Errorf("unexpected info %+v", info)
	}
	if info.Label() != "MyNetwork" {
		t.Errorf("Label: got %q, want MyNetwork", info.Label())
	}
}

func TestReadNetworkInfoNoneSet(t *testing.T) {
	t.Setenv(envNetworkStatus, "")
	info := readNetworkInfo()
	if info != nil {
		t.Errorf("expected nil when NETWORK_STATUS is unset, got %+v", info)
	}
	if info.Label() != "" {
		t.Errorf("Label of nil info: got %q", info.Label())
	}
}

func TestReadNetworkInfoPartial(t *testing.T) {
	t.Setenv(envNetworkStatus, "connected")
	t.Setenv(envNetworkIP, "10.0.0.7")

	info := readNetworkInfo()
	if info == nil {
		t.Fatal("expected non-nil NetworkInfo when NETWORK_STATUS is set")
	}
	if info.SSID != "" || info.Type != "" {
		t.Errorf("unset fields should be empty: %+v", info)
	}
	if info.Label() != "10.0.0.7" {
		t.Errorf("Label: got %q, want IP fallback", info.Label())
	}
}

// --- parseArgs tests ---

func TestParseArgsDefaults(t *testing.T) {
	cfg, printReading, err := parseArgs(nil)
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	if printReading {
		t.Error("print-reading should default to false")
	}
	if cfg.Poll != time.Second || cfg.MQTT.Namespace != "co2melder" || !cfg.Display.Enabled {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if cfg.Logic() != logic.DefaultConfig() {
		t.Errorf("Logic: got %+v", cfg.Logic())
	}
}

func TestParseArgsFlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	body := "poll: 2s\nmqtt:\n  broker: tcp://file:1883\n  namespace: lab\ncalibration_ppm: 430\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, _, err := parseArgs([]string{"-config", path, "-broker", "tcp://flag:1883", "-no-display"})
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	if cfg.MQTT.Broker != "tcp://flag:1883" {
		t.Errorf("Broker: got %q, flag should win", cfg.MQTT.Broker)
	}
	if cfg.Poll != 2*time.Second {
		t.Errorf("Poll: got %v, file value should survive unset flag", cfg.Poll)
	}
	if cfg.MQTT.Namespace != "lab" {
		t.Errorf("Namespace: got %q", cfg.MQTT.Namespace)
	}
	if cfg.CalibrationPPM != 430 {
		t.Errorf("CalibrationPPM: got %d", cfg.CalibrationPPM)
	}
	if cfg.Display.Enabled {
		t.Error("display should be disabled")
	}
}

func TestParseArgsPrintReading(t *testing.T) {
	_, printReading, err := parseArgs([]string{"-print-reading"})
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	if !printReading {
		t.Error("expected print-reading")
	}
}

func TestParseArgsErrors(t *testing.T) {
	tests := [][]string{
		{"-poll", "0s"},
		{"-sensor-interval", "1s"},
		{"-poll", "fast"},
		{"-config", filepath.Join(t.TempDir(), "missing.yaml")},
		{"-unknown"},
	}
	for _, args := range tests {
		if _, _, err := parseArgs(args); err == nil {
			t.Errorf("parseArgs(%v): expected error", args)
		}
	}
}

// --- runLoop tests ---

const testDevice = "a1b2c3d4e5f6"

var topics = mqtt.Topics{Namespace: "co2melder"}

// fakeClock returns a function that yields start, start+step, start+2*step, ...
// on successive calls. Only called from runLoop's goroutine.
func fakeClock(start time.Time, step time.Duration) func() time.Time {
	n := 0
	return func() time.Time {
		t := start.Add(time.Duration(n) * step)
		n++
		return t
	}
}

type loopRig struct {
	pins   *gpio.FakePins
	src    *sensor.FakeSource
	client *mqtt.FakeClient
	ctrl   *device.Controller
	notes  []string
}

func newLoopRig(readings ...logic.Reading) *loopRig {
	r := &loopRig{
		pins:   gpio.NewFakePins(),
		src:    sensor.NewFakeSource(readings...),
		client: mqtt.NewFakeClient(),
	}
	inbox := mqtt.NewInbox(topics, testDevice, 0)
	r.client.Subscribe(topics.CommandFilter(), inbox.Handle)
	r.ctrl = device.New(device.Deps{
		DeviceID:  testDevice,
		Config:    logic.DefaultConfig(),
		Pins:      r.pins,
		Layout:    gpio.DefaultLayout(),
		Source:    r.src,
		Client:    r.client,
		Telemetry: mqtt.NewTelemetry(r.client, topics, 0),
		Inbox:     inbox,
	})
	return r
}

// drive runs runLoop for nTicks ticks and nWatchdog watchdog ticks, then
// delivers signal and waits for the loop to return.
func (r *loopRig) drive(t *testing.T, clock func() time.Time, nTicks, nWatchdog int, signal os.Signal) error {
	t.Helper()
	tick := make(chan time.Time)
	watchdog := make(chan time.Time)
	sig := make(chan os.Signal, 1)

	errCh := make(chan error, 1)
	go func() {
		errCh <- runLoop(r.ctrl, func(s string) { r.notes = append(r.notes, s) }, clock, tick, watchdog, sig)
	}()

	for i := 0; i < nTicks; i++ {
		tick <- time.Time{}
	}
	for i := 0; i < nWatchdog; i++ {
		watchdog <- time.Time{}
	}
	sig <- signal

	return <-errCh
}

func TestRunLoopPublishesAndShowsLevel(t *testing.T) {
	r := newLoopRig(logic.Reading{CO2: 1700, Temperature: 21, Humidity: 40})
	clock := fakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), time.Second)

	// Ten seconds of ticks publish once.
	if err := r.drive(t, clock, 10, 0, syscall.SIGTERM); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	if got := len(r.client.OnTopic(topics.Telemetry(testDevice))); got != 1 {
		t.Errorf("expected 1 telemetry message, got %d", got)
	}
	if r.ctrl.Level() != logic.LevelYellow {
		t.Errorf("Level: got %v, want YELLOW", r.ctrl.Level())
	}
}

func TestRunLoopShutdown(t *testing.T) {
	for _, s := range []os.Signal{syscall.SIGINT, syscall.SIGTERM} {
		t.Run(s.String(), func(t *testing.T) {
			r := newLoopRig(logic.Reading{CO2: 2700})
			clock := fakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), time.Second)

			if err := r.drive(t, clock, 3, 0, s); err != nil {
				t.Fatalf("runLoop returned error: %v", err)
			}
			for _, pin := range gpio.DefaultLayout().Outputs() {
				if r.pins.Levels[pin] {
					t.Errorf("pin %d still on after shutdown", pin)
				}
			}
			if !r.src.Closed {
				t.Error("sensor not closed")
			}
			if len(r.notes) != 1 || r.notes[0] != daemon.SdNotifyStopping {
				t.Errorf("notifications: got %v, want [STOPPING=1]", r.notes)
			}
		})
	}
}

func TestRunLoopWatchdog(t *testing.T) {
	r := newLoopRig(logic.Reading{CO2: 600})
	clock := fakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), time.Second)

	if err := r.drive(t, clock, 1, 2, syscall.SIGTERM); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}
	want := []string{daemon.SdNotifyWatchdog, daemon.SdNotifyWatchdog, daemon.SdNotifyStopping}
	if len(r.notes) != len(want) {
		t.Fatalf("notifications: got %v, want %v", r.notes, want)
	}
	for i := range want {
		if r.notes[i] != want[i] {
			t.Errorf("notification %d: got %q, want %q", i, r.notes[i], want[i])
		}
	}
}

func TestRunLoopSensorFailureDoesNotStop(t *testing.T) {
	r := newLoopRig(logic.Reading{CO2: 600})
	r.src.ReadError = sensor.ErrStopped
	clock := fakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), time.Second)

	if err := r.drive(t, clock, 5, 0, syscall.SIGTERM); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}
	if got := r.ctrl.Counts().SensorErrors; got != 5 {
		t.Errorf("SensorErrors: got %d, want 5", got)
	}
	if got := len(r.client.OnTopic(topics.Telemetry(testDevice))); got != 0 {
		t.Errorf("expected no telemetry without readings, got %d", got)
	}
}

func TestFirstReadingWaitsForData(t *testing.T) {
	src := sensor.NewFakeSource()
	if _, err := firstReading(src, -time.Second); err != sensor.ErrNoData {
		t.Errorf("expected ErrNoData after timeout, got %v", err)
	}

	src.Readings = []logic.Reading{{CO2: 640, Temperature: 20.5, Humidity: 38}}
	r, err := firstReading(src, time.Second)
	if err != nil {
		t.Fatalf("firstReading: %v", err)
	}
	if r.CO2 != 640 {
		t.Errorf("CO2: got %v", r.CO2)
	}
}
