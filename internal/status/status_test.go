package status

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/co2-sensor/internal/logic"
)

var start = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestNewTracker(t *testing.T) {
	cfg := Config{PollMs: 1000, Broker: "tcp://localhost:1883", HTTPAddr: ":80"}
	tr := NewTracker(start, "a1b2c3d4e5f6", cfg)

	snap := tr.Snapshot()
	if !snap.StartTime.Equal(start) {
		t.Errorf("StartTime: got %v, want %v", snap.StartTime, start)
	}
	if snap.DeviceID != "a1b2c3d4e5f6" {
		t.Errorf("DeviceID: got %q", snap.DeviceID)
	}
	if snap.Config.PollMs != 1000 {
		t.Errorf("Config.PollMs: got %d, want 1000", snap.Config.PollMs)
	}
	if snap.HaveReading() {
		t.Error("expected no reading initially")
	}
	if snap.MQTTConnected {
		t.Error("expected MQTTConnected=false initially")
	}
	if snap.History != nil {
		t.Errorf("expected empty history, got %v", snap.History)
	}
}

func TestUpdateAndSnapshot(t *testing.T) {
	tr := NewTracker(start, "dev", Config{})

	tr.Update(Loop{
		Reading:     logic.Reading{CO2: 1700},
		ReadingTime: start.Add(time.Minute),
		Level:       logic.LevelYellow,
		Thresholds:  logic.DefaultThresholds(),
		Calibration: Calibration{State: logic.StateCalibrationWait5Min, Cycles: 2},
		Counts:      Counts{Publishes: 3, SensorErrors: 1},
	})

	snap := tr.Snapshot()
	if snap.Level != logic.LevelYellow {
		t.Errorf("Level: got %v, want YELLOW", snap.Level)
	}
	if !snap.HaveReading() || snap.Reading.CO2 != 1700 {
		t.Errorf("Reading: got %+v", snap.Reading)
	}
	if snap.Calibration.State != logic.StateCalibrationWait5Min || snap.Calibration.Cycles != 2 {
		t.Errorf("Calibration: got %+v", snap.Calibration)
	}
	if snap.Counts.Publishes != 3 || snap.Counts.SensorErrors != 1 {
		t.Errorf("Counts: got %+v", snap.Counts)
	}
}

func TestSetMQTTConnectedAndNetwork(t *testing.T) {
	tr := NewTracker(start, "dev", Config{})
	tr.SetMQTTConnected(true)
	tr.SetNetwork(&NetworkInfo{Type: "wifi", SSID: "home"})

	snap := tr.Snapshot()
	if !snap.MQTTConnected {
		t.Error("expected MQTTConnected=true")
	}
	if snap.Network == nil || snap.Network.SSID != "home" {
		t.Errorf("Network: got %+v", snap.Network)
	}
}

func TestNetworkLabel(t *testing.T) {
	tests := []struct {
		info *NetworkInfo
		want string
	}{
		{nil, ""},
		{&NetworkInfo{Type: "wifi", IP: "10.0.0.2", SSID: "home"}, "home"},
		{&NetworkInfo{Type: "ethernet", IP: "10.0.0.2"}, "10.0.0.2"},
		{&NetworkInfo{Type: "ethernet"}, "ethernet"},
	}
	for _, tt := range tests {
		if got := tt.info.Label(); got != tt.want {
			t.Errorf("Label(%+v): got %q, want %q", tt.info, got, tt.want)
		}
	}
}

func TestHistoryKeepsNewest(t *testing.T) {
	h := newHistory(3)
	for i := 0; i < 5; i++ {
		h.add(Sample{Reading: logic.Reading{CO2: float64(i)}})
	}

	got := h.list()
	if len(got) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(got))
	}
	for i, want := range []float64{2, 3, 4} {
		if got[i].Reading.CO2 != want {
			t.Errorf("sample %d: got %v, want %v", i, got[i].Reading.CO2, want)
		}
	}
}

func TestSnapshotHistoryIsCopy(t *testing.T) {
	tr := NewTracker(start, "dev", Config{})
	tr.Record(Sample{Time: start, Reading: logic.Reading{CO2: 500}})

	snap := tr.Snapshot()
	snap.History[0].Reading.CO2 = 9999

	if got := tr.Snapshot().History[0].Reading.CO2; got != 500 {
		t.Errorf("tracker history mutated through snapshot: got %v", got)
	}
}

func TestSnapshotUptime(t *testing.T) {
	snap := Snapshot{StartTime: start, Now: start.Add(90 * time.Second)}
	if snap.Uptime() != 90*time.Second {
		t.Errorf("Uptime: got %v, want 90s", snap.Uptime())
	}
}

func TestFormatJSON(t *testing.T) {
	snap := Snapshot{
		Loop: Loop{
			Reading:        logic.Reading{CO2: 2100, Temperature: 22, Humidity: 40},
			ReadingTime:    start.Add(14 * time.Minute),
			Level:          logic.LevelRed,
			Thresholds:     logic.DefaultThresholds(),
			CalibrationPPM: 500,
			LastPublish:    start.Add(10 * time.Minute),
			Counts:         Counts{Publishes: 3, Commands: 1, CommandsIgnored: 4, CommandsDropped: 2},
		},
		DeviceID:      "a1b2c3d4e5f6",
		StartTime:     start,
		Now:           start.Add(15 * time.Minute),
		MQTTConnected: true,
		Config:        Config{PollMs: 1000, Broker: "tcp://localhost:1883", Namespace: "co2melder"},
		History:       []Sample{{Time: start, Reading: logic.Reading{CO2: 600}, Level: logic.LevelGreen}},
	}

	var parsed StatusJSON
	if err := json.Unmarshal(FormatJSON(snap), &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	s := parsed.Status

	if s.Level != "RED" {
		t.Errorf("Level: got %q, want RED", s.Level)
	}
	if s.Reading == nil || s.Reading.CO2 != 2100 {
		t.Errorf("Reading: got %+v", s.Reading)
	}
	if s.Thresholds.VeryHigh != 2500 || s.Thresholds.High != 2000 || s.Thresholds.Mid != 1500 || !s.Thresholds.Ordered {
		t.Errorf("Thresholds: got %+v", s.Thresholds)
	}
	if s.Calibration.State != "OPERATION" || s.Calibration.Deadline != "" {
		t.Errorf("Calibration: got %+v", s.Calibration)
	}
	if s.UptimeSeconds != 900 {
		t.Errorf("UptimeSeconds: got %d, want 900", s.UptimeSeconds)
	}
	if s.LastPublish != "2026-01-01T00:10:00Z" {
		t.Errorf("LastPublish: got %q", s.LastPublish)
	}
	if !s.MQTT.Connected || s.MQTT.Broker != "tcp://localhost:1883" {
		t.Errorf("MQTT: got %+v", s.MQTT)
	}
	if s.Counts.Publishes != 3 || s.Counts.Commands != 1 || s.Counts.Ignored != 4 || s.Counts.Dropped != 2 {
		t.Errorf("Counts: got %+v", s.Counts)
	}
	if len(s.History) != 1 || s.History[0].Level != "GREEN" {
		t.Errorf("History: got %+v", s.History)
	}
	if s.Network != nil {
		t.Error("expected network omitted")
	}
}

func TestFormatJSONBeforeFirstReading(t *testing.T) {
	snap := Snapshot{StartTime: start, Now: start, Loop: Loop{Thresholds: logic.Thresholds{VeryHigh: 1000, High: 2000, Mid: 1500}}}

	var parsed StatusJSON
	if err := json.Unmarshal(FormatJSON(snap), &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Status.Reading != nil {
		t.Errorf("expected reading omitted, got %+v", parsed.Status.Reading)
	}
	if parsed.Status.Thresholds.Ordered {
		t.Error("misordered thresholds reported as ordered")
	}
	if parsed.Status.History == nil {
		t.Error("history should be an empty array, not null")
	}
}

func TestConcurrentAccess(t *testing.T) {
	tr := NewTracker(time.Now(), "dev", Config{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			tr.Update(Loop{Counts: Counts{Publishes: i}})
			tr.Record(Sample{Reading: logic.Reading{CO2: float64(i)}})
			tr.SetMQTTConnected(i%2 == 0)
			tr.SetNetwork(&NetworkInfo{IP: "1.2.3.4"})
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			snap := tr.Snapshot()
			_ = FormatJSON(snap)
		}
	}()

	wg.Wait()
}
