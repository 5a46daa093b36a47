// Package metrics exposes device state as Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sweeney/co2-sensor/internal/logic"
)

// Publish results.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Reasons a remote command was not applied.
const (
	ReasonIgnored = "ignored"
	ReasonDropped = "dropped"
)

// Metrics holds the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	reg *prometheus.Registry

	co2         prometheus.Gauge
	temperature prometheus.Gauge
	humidity    prometheus.Gauge
	level       prometheus.Gauge
	calibration prometheus.Gauge
	connected   prometheus.Gauge

	publishes    *prometheus.CounterVec
	calibrations prometheus.Counter
	commands     prometheus.Counter
	rejected     *prometheus.CounterVec
	sensorErrors prometheus.Counter
}

// New creates the collectors on a private registry labelled with deviceID.
func New(deviceID string) *Metrics {
	labels := prometheus.Labels{"device_id": deviceID}
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "co2", Name: name, Help: help, ConstLabels: labels,
		})
	}
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "co2", Name: name, Help: help, ConstLabels: labels,
		})
	}

	m := &Metrics{
		reg:         prometheus.NewRegistry(),
		co2:         gauge("concentration_ppm", "Latest CO2 concentration in ppm."),
		temperature: gauge("temperature_celsius", "Latest temperature in degrees Celsius."),
		humidity:    gauge("humidity_percent", "Latest relative humidity in percent."),
		level:       gauge("alert_level", "Current alert level (0 green, 1 yellow, 2 red, 3 red alarm)."),
		calibration: gauge("calibration_state", "Calibration state (0 operation, 1 start, 2 wait 5 min, 3 wait 500 ms)."),
		connected:   gauge("mqtt_connected", "1 when the broker session is open."),
		publishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "co2", Name: "telemetry_publishes_total",
			Help: "Telemetry publish attempts by result.", ConstLabels: labels,
		}, []string{"result"}),
		calibrations: counter("calibrations_total", "Completed forced recalibrations."),
		commands:     counter("commands_total", "Remote commands applied."),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "co2", Name: "commands_rejected_total",
			Help: "Remote commands not applied, by reason.", ConstLabels: labels,
		}, []string{"reason"}),
		sensorErrors: counter("sensor_errors_total", "Failed sensor reads."),
	}

	m.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.co2,
		m.temperature,
		m.humidity,
		m.level,
		m.calibration,
		m.connected,
		m.publishes,
		m.calibrations,
		m.commands,
		m.rejected,
		m.sensorErrors,
	)
	m.publishes.WithLabelValues(ResultOK)
	m.publishes.WithLabelValues(ResultError)
	m.rejected.WithLabelValues(ReasonIgnored)
	m.rejected.WithLabelValues(ReasonDropped)

	return m
}

// Handler serves the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// ObserveReading records a fresh sample and its level.
func (m *Metrics) ObserveReading(r logic.Reading, level logic.AlertLevel) {
	if m == nil {
		return
	}
	m.co2.Set(r.CO2)
	m.temperature.Set(r.Temperature)
	m.humidity.Set(r.Humidity)
	m.level.Set(float64(level))
}

// SetCalibrationState records the calibration state.
func (m *Metrics) SetCalibrationState(s logic.CalibrationState) {
	if m == nil {
		return
	}
	m.calibration.Set(float64(s))
}

// SetConnected records broker connectivity.
func (m *Metrics) SetConnected(connected bool) {
	if m == nil {
		return
	}
	v := 0.0
	if connected {
		v = 1
	}
	m.connected.Set(v)
}

// Published counts a telemetry attempt.
func (m *Metrics) Published(err error) {
	if m == nil {
		return
	}
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	m.publishes.WithLabelValues(result).Inc()
}

// Calibrated counts a completed recalibration.
func (m *Metrics) Calibrated() {
	if m == nil {
		return
	}
	m.calibrations.Inc()
}

// CommandApplied counts an applied remote command.
func (m *Metrics) CommandApplied() {
	if m == nil {
		return
	}
	m.commands.Inc()
}

// CommandsRejected adds commands that were ignored or dropped since the
// last call.
func (m *Metrics) CommandsRejected(ignored, dropped int) {
	if m == nil {
		return
	}
	if ignored > 0 {
		m.rejected.WithLabelValues(ReasonIgnored).Add(float64(ignored))
	}
	if dropped > 0 {
		m.rejected.WithLabelValues(ReasonDropped).Add(float64(dropped))
	}
}

// SensorError counts a failed read.
func (m *Metrics) SensorError() {
	if m == nil {
		return
	}
	m.sensorErrors.Inc()
}
