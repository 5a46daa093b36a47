package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	DeviceID       string          `json:"device_id"`
	Level          string          `json:"level"`
	Reading        *ReadingJSON    `json:"reading,omitempty"`
	Thresholds     ThresholdsJSON  `json:"thresholds"`
	CalibrationPPM int             `json:"calibration_ppm"`
	Calibration    CalibrationJSON `json:"calibration"`
	LastPublish    string          `json:"last_publish,omitempty"`
	UptimeSeconds  int64           `json:"uptime_seconds"`
	StartTime      string          `json:"start_time"`
	Timestamp      string          `json:"timestamp"`
	MQTT           MQTTStatus      `json:"mqtt"`
	Counts         CountsJSON      `json:"counts"`
	Network        *NetworkJSON    `json:"network,omitempty"`
	Config         ConfigJSON      `json:"config"`
	History        []HistoryJSON   `json:"history"`
}

// ReadingJSON is the latest sensor reading.
type ReadingJSON struct {
	CO2         float64 `json:"co2"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	Time        string  `json:"time"`
}

// ThresholdsJSON is the live threshold configuration.
type ThresholdsJSON struct {
	VeryHigh int  `json:"co2_very_high"`
	High     int  `json:"co2_high"`
	Mid      int  `json:"co2_mid"`
	Ordered  bool `json:"ordered"`
}

// CalibrationJSON is the calibration session.
type CalibrationJSON struct {
	State      string `json:"state"`
	Deadline   string `json:"deadline,omitempty"`
	Cycles     int    `json:"cycles"`
	LastTarget int    `json:"last_target,omitempty"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of loop counters.
type CountsJSON struct {
	Publishes     int `json:"publishes"`
	PublishErrors int `json:"publish_errors"`
	SensorErrors  int `json:"sensor_errors"`
	Commands      int `json:"commands"`
	Ignored       int `json:"commands_ignored"`
	Dropped       int `json:"commands_dropped"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs    int64  `json:"poll_ms"`
	Broker    string `json:"broker"`
	Namespace string `json:"namespace"`
	HTTPAddr  string `json:"http_addr"`
}

// HistoryJSON is one history entry.
type HistoryJSON struct {
	Time  string  `json:"time"`
	CO2   float64 `json:"co2"`
	Level string  `json:"level"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// FormatJSON returns the JSON status for the web endpoint.
func FormatJSON(snap Snapshot) []byte {
	th := snap.Thresholds
	inner := StatusInner{
		DeviceID: snap.DeviceID,
		Level:    snap.Level.String(),
		Thresholds: ThresholdsJSON{
			VeryHigh: th.VeryHigh,
			High:     th.High,
			Mid:      th.Mid,
			Ordered:  th.Ordered(),
		},
		CalibrationPPM: snap.CalibrationPPM,
		Calibration: CalibrationJSON{
			State:      snap.Calibration.State.String(),
			Deadline:   formatTime(snap.Calibration.Deadline),
			Cycles:     snap.Calibration.Cycles,
			LastTarget: snap.Calibration.LastTarget,
		},
		LastPublish:   formatTime(snap.LastPublish),
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     formatTime(snap.StartTime),
		Timestamp:     formatTime(snap.Now),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Publishes:     snap.Counts.Publishes,
			PublishErrors: snap.Counts.PublishErrors,
			SensorErrors:  snap.Counts.SensorErrors,
			Commands:      snap.Counts.Commands,
			Ignored:       snap.Counts.CommandsIgnored,
			Dropped:       snap.Counts.CommandsDropped,
		},
		Config: ConfigJSON{
			PollMs:    snap.Config.PollMs,
			Broker:    snap.Config.Broker,
			Namespace: snap.Config.Namespace,
			HTTPAddr:  snap.Config.HTTPAddr,
		},
		History: make([]HistoryJSON, 0, len(snap.History)),
	}

	if snap.HaveReading() {
		inner.Reading = &ReadingJSON{
			CO2:         snap.Reading.CO2,
			Temperature: snap.Reading.Temperature,
			Humidity:    snap.Reading.Humidity,
			Time:        formatTime(snap.ReadingTime),
		}
	}
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
	for _, s := range snap.History {
		inner.History = append(inner.History, HistoryJSON{
			Time:  formatTime(s.Time),
			CO2:   s.Reading.CO2,
			Level: s.Level.String(),
		})
	}

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}
