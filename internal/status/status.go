// Package status provides a thread-safe view of the device state for the
// HTTP status page. The control loop writes, handlers read.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/co2-sensor/internal/logic"
)

// DefaultHistorySize is the number of recent samples kept.
const DefaultHistorySize = 120

// NetworkInfo describes how the device reaches the network. It is supplied
// by the environment, not detected by the daemon.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Label is a short identity for the connection screen.
func (n *NetworkInfo) Label() string {
	switch {
	case n == nil:
		return ""
	case n.SSID != "":
		return n.SSID
	case n.IP != "":
		return n.IP
	}
	return n.Type
}

// Config contains daemon configuration for display.
type Config struct {
	PollMs    int64
	Broker    string
	Namespace string
	HTTPAddr  string
}

// Calibration is the calibration session as seen from outside the loop.
type Calibration struct {
	State      logic.CalibrationState
	Deadline   time.Time
	Cycles     int
	LastTarget int
}

// Counts are monotonically increasing loop counters.
type Counts struct {
	Publishes     int
	PublishErrors int
	SensorErrors  int
	Commands      int

	// CommandsIgnored were not for this device or had no usable field.
	CommandsIgnored int
	// CommandsDropped arrived while the command queue was full.
	CommandsDropped int
}

// Sample is one entry of the recent history.
type Sample struct {
	Time    time.Time
	Reading logic.Reading
	Level   logic.AlertLevel
}

// Loop is the part of the snapshot refreshed every iteration.
type Loop struct {
	Reading        logic.Reading
	ReadingTime    time.Time
	Level          logic.AlertLevel
	Thresholds     logic.Thresholds
	CalibrationPPM int
	Calibration    Calibration
	LastPublish    time.Time
	Counts         Counts
}

// Snapshot is a point-in-time view of device state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Loop
	DeviceID      string
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
	History       []Sample
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// HaveReading reports whether any sample has been read yet.
func (s Snapshot) HaveReading() bool {
	return !s.ReadingTime.IsZero()
}

// Tracker holds mutable device state behind an RWMutex.
type Tracker struct {
	mu      sync.RWMutex
	snap    Snapshot
	history *history
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, deviceID string, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			DeviceID:  deviceID,
			StartTime: startTime,
			Config:    cfg,
		},
		history: newHistory(DefaultHistorySize),
	}
}

// Update replaces the loop state. Called from the control loop on every
// iteration.
func (t *Tracker) Update(l Loop) {
	t.mu.Lock()
	t.snap.Loop = l
	t.mu.Unlock()
}

// Record appends a fresh sample to the history.
func (t *Tracker) Record(s Sample) {
	t.mu.Lock()
	t.history.add(s)
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the device state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	s.History = t.history.list()
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
