// Package device runs one iteration of the control loop at a time. The
// Controller owns all mutable device state and never sleeps; the only waits
// are bounded sensor bus transfers.
package device

import (
	"errors"
	"log"
	"time"

	"github.com/sweeney/co2-sensor/internal/display"
	"github.com/sweeney/co2-sensor/internal/gpio"
	"github.com/sweeney/co2-sensor/internal/indicator"
	"github.com/sweeney/co2-sensor/internal/logic"
	"github.com/sweeney/co2-sensor/internal/metrics"
	"github.com/sweeney/co2-sensor/internal/mqtt"
	"github.com/sweeney/co2-sensor/internal/sensor"
	"github.com/sweeney/co2-sensor/internal/status"
)

// Deps are the collaborators of a Controller. Surface, Tracker and Metrics
// may be nil.
type Deps struct {
	DeviceID string
	Network  string
	Config   logic.Config

	Pins      gpio.Pins
	Layout    gpio.Layout
	Source    sensor.Source
	Surface   display.Surface
	Client    mqtt.Client
	Telemetry *mqtt.Telemetry
	Inbox     *mqtt.Inbox
	Tracker   *status.Tracker
	Metrics   *metrics.Metrics
}

// Controller is the device state plus the components acting on it.
type Controller struct {
	deviceID string
	network  string
	cfg      logic.Config

	pins      gpio.Pins
	layout    gpio.Layout
	source    sensor.Source
	panel     *indicator.Panel
	renderer  *display.Renderer
	client    mqtt.Client
	telemetry *mqtt.Telemetry
	inbox     *mqtt.Inbox
	tracker   *status.Tracker
	metrics   *metrics.Metrics

	button      logic.EdgeDetector
	calibration logic.Calibration

	sample     logic.Reading
	sampleTime time.Time
	level      logic.AlertLevel
	frame      display.Frame
	connected  bool
	counts     status.Counts

	// failing holds the components whose last operation failed, so a
	// persistent fault is logged once rather than every iteration.
	failing map[string]bool
}

// New creates a controller in Operation.
func New(d Deps) *Controller {
	c := &Controller{
		deviceID:  d.DeviceID,
		network:   d.Network,
		cfg:       d.Config,
		pins:      d.Pins,
		layout:    d.Layout,
		source:    d.Source,
		panel:     indicator.NewPanel(d.Pins, d.Layout),
		client:    d.Client,
		telemetry: d.Telemetry,
		inbox:     d.Inbox,
		tracker:   d.Tracker,
		metrics:   d.Metrics,
		connected: true,
		failing:   make(map[string]bool),
	}
	if d.Surface != nil {
		c.renderer = display.NewRenderer(d.Surface, display.DefaultLayout())
	}
	if !c.cfg.Thresholds.Ordered() {
		log.Printf("warning: thresholds not ordered: very_high=%d high=%d mid=%d",
			c.cfg.Thresholds.VeryHigh, c.cfg.Thresholds.High, c.cfg.Thresholds.Mid)
	}
	return c
}

// Step runs one loop iteration at now.
func (c *Controller) Step(now time.Time) {
	c.pollButton()
	c.applyCommands()
	c.trackConnection()

	if c.calibration.Active() {
		c.stepCalibration(now)
	} else {
		c.stepOperation(now)
	}

	c.publishState()
}

// Shutdown turns all indicators off and releases the sensor.
func (c *Controller) Shutdown() error {
	return errors.Join(c.panel.Off(), c.source.Close())
}

func (c *Controller) pollButton() {
	level, err := c.pins.Read(c.layout.Button)
	if c.check("button", err) {
		return
	}
	if c.button.Falling(level) && c.calibration.Request() {
		log.Printf("calibration requested by button")
	}
}

func (c *Controller) applyCommands() {
	if c.inbox == nil {
		return
	}
	ignored, dropped := int(c.inbox.Ignored()), int(c.inbox.Dropped())
	c.metrics.CommandsRejected(ignored-c.counts.CommandsIgnored, dropped-c.counts.CommandsDropped)
	c.counts.CommandsIgnored, c.counts.CommandsDropped = ignored, dropped

	for _, cmd := range c.inbox.Drain() {
		calibrate := c.cfg.Apply(cmd)
		c.counts.Commands++
		c.metrics.CommandApplied()

		th := c.cfg.Thresholds
		log.Printf("command applied: very_high=%d high=%d mid=%d calibration_ppm=%d",
			th.VeryHigh, th.High, th.Mid, c.cfg.CalibrationPPM)
		if !th.Ordered() {
			log.Printf("warning: thresholds not ordered, levels may be skipped")
		}

		if calibrate {
			if c.calibration.Request() {
				log.Printf("calibration requested by command")
			} else {
				log.Printf("calibration command ignored: already in %s", c.calibration.State())
			}
		}
	}
}

func (c *Controller) trackConnection() {
	connected := c.client.IsConnected()
	if connected == c.connected {
		return
	}
	c.connected = connected
	if connected {
		log.Printf("mqtt: broker reachable")
	} else {
		log.Printf("mqtt: broker unreachable")
	}
}

// stepCalibration replaces the normal iteration while a calibration cycle
// is in progress.
func (c *Controller) stepCalibration(now time.Time) {
	action := c.calibration.Step(now, c.cfg.CalibrationPPM)

	switch action.Type {
	case logic.ActionBegin:
		log.Printf("calibration: started, settling for %v, target=%d ppm", logic.CalibrationSettle, c.cfg.CalibrationPPM)
		c.telemetry.Suspend()
		if err := c.telemetry.PublishStatus(c.deviceID, mqtt.StatusCalibrating); err != nil {
			log.Printf("calibration: %v", err)
		}
		if err := c.source.Start(); err != nil {
			log.Printf("calibration: start sampling: %v", err)
		}

	case logic.ActionStopSampling:
		if err := c.source.Stop(); err != nil {
			log.Printf("calibration: stop sampling: %v", err)
		}

	case logic.ActionRecalibrate:
		applied, err := c.source.ForceRecalibration(action.Target)
		if err != nil {
			log.Printf("calibration: forced recalibration to %d ppm failed: %v", action.Target, err)
		} else {
			log.Printf("calibration: done, target=%d ppm applied=%d ppm", action.Target, applied)
			if applied != action.Target {
				log.Printf("warning: sensor applied %d ppm, requested %d ppm", applied, action.Target)
			}
			c.metrics.Calibrated()
			if err := c.telemetry.PublishStatus(c.deviceID, mqtt.StatusCalibrated); err != nil {
				log.Printf("calibration: %v", err)
			}
		}
		if err := c.source.Start(); err != nil {
			log.Printf("calibration: restart sampling: %v", err)
		}
	}

	// Keep the screen current while the sensor settles. Reads fail while
	// sampling is stopped; that is expected here.
	if r, err := c.source.Read(); err == nil {
		c.sample = r
		c.sampleTime = now
	}

	c.check("indicator", errors.Join(c.panel.SetConnected(c.connected), c.panel.ShowCalibrating(now)))
	c.render(display.ZoneCalibrating)
}

func (c *Controller) stepOperation(now time.Time) {
	r, err := c.source.Read()
	fresh := err == nil
	switch {
	case fresh:
		c.check("sensor", nil)
		c.sample = r
		c.sampleTime = now
		c.level = c.cfg.Thresholds.Level(r.CO2)
		c.metrics.ObserveReading(r, c.level)
		if c.tracker != nil {
			c.tracker.Record(status.Sample{Time: now, Reading: r, Level: c.level})
		}
	case errors.Is(err, sensor.ErrNoData):
		// Warming up; the first measurement is not ready yet.
	default:
		c.counts.SensorErrors++
		c.metrics.SensorError()
		c.check("sensor", err)
	}

	c.check("indicator", errors.Join(c.panel.SetConnected(c.connected), c.panel.ShowLevel(now, c.level)))

	zone := display.ZoneFor(c.level)
	if !c.connected {
		zone = display.ZoneConnecting
	}
	c.render(zone)

	if !fresh {
		return
	}
	attempted, err := c.telemetry.MaybePublish(now, r, c.deviceID)
	if !attempted {
		return
	}
	c.metrics.Published(err)
	if err != nil {
		c.counts.PublishErrors++
		log.Printf("telemetry: %v", err)
		return
	}
	c.counts.Publishes++
}

func (c *Controller) render(zone display.Zone) {
	if c.renderer == nil {
		return
	}
	frame, err := c.renderer.Render(c.sample, zone, c.network, c.frame)
	c.frame = frame
	c.check("display", err)
}

func (c *Controller) publishState() {
	c.metrics.SetConnected(c.connected)
	c.metrics.SetCalibrationState(c.calibration.State())

	if c.tracker == nil {
		return
	}
	c.tracker.SetMQTTConnected(c.connected)
	c.tracker.Update(status.Loop{
		Reading:        c.sample,
		ReadingTime:    c.sampleTime,
		Level:          c.level,
		Thresholds:     c.cfg.Thresholds,
		CalibrationPPM: c.cfg.CalibrationPPM,
		Calibration: status.Calibration{
			State:      c.calibration.State(),
			Deadline:   c.calibration.Deadline(),
			Cycles:     c.calibration.Cycles(),
			LastTarget: c.calibration.LastTarget(),
		},
		LastPublish: c.telemetry.LastAttempt(),
		Counts:      c.counts,
	})
}

// check logs err the first time a component fails and again when it
// recovers. It reports whether err is non-nil.
func (c *Controller) check(component string, err error) bool {
	if err == nil {
		if c.failing[component] {
			log.Printf("%s: recovered", component)
			delete(c.failing, component)
		}
		return false
	}
	if !c.failing[component] {
		log.Printf("%s: %v", component, err)
		c.failing[component] = true
	}
	return true
}

// Config returns the live configuration.
func (c *Controller) Config() logic.Config {
	return c.cfg
}

// CalibrationState returns the calibration state.
func (c *Controller) CalibrationState() logic.CalibrationState {
	return c.calibration.State()
}

// Level returns the alert level last classified.
func (c *Controller) Level() logic.AlertLevel {
	return c.level
}

// Frame returns what the display currently shows.
func (c *Controller) Frame() display.Frame {
	return c.frame
}

// Counts returns the loop counters.
func (c *Controller) Counts() status.Counts {
	return c.counts
}
