// Command co2-sensor measures CO2, drives the indicator LEDs, buzzer and
// display, and reports readings over MQTT.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/host/v3"

	"github.com/sweeney/co2-sensor/internal/config"
	"github.com/sweeney/co2-sensor/internal/device"
	"github.com/sweeney/co2-sensor/internal/display"
	"github.com/sweeney/co2-sensor/internal/gpio"
	"github.com/sweeney/co2-sensor/internal/logic"
	"github.com/sweeney/co2-sensor/internal/metrics"
	"github.com/sweeney/co2-sensor/internal/mqtt"
	"github.com/sweeney/co2-sensor/internal/sensor"
	"github.com/sweeney/co2-sensor/internal/status"
	"github.com/sweeney/co2-sensor/internal/web"
)

func main() {
	cfg, printReading, err := parseArgs(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatalf("fatal: %v", err)
	}
	if err := run(cfg, printReading); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// parseArgs builds the configuration: defaults, then the -config file,
// then any flag given explicitly on the command line.
func parseArgs(args []string) (config.Config, bool, error) {
	def := config.Default()
	fs := flag.NewFlagSet("co2-sensor", flag.ContinueOnError)

	configPath := fs.String("config", "", "YAML configuration file")
	poll := fs.Duration("poll", def.Poll, "Control loop interval")
	broker := fs.String("broker", def.MQTT.Broker, "MQTT broker address")
	namespace := fs.String("namespace", def.MQTT.Namespace, "MQTT topic namespace")
	telemetry := fs.Duration("telemetry", def.MQTT.Telemetry, "Telemetry publish interval")
	iface := fs.String("interface", def.Interface, "Network interface whose MAC is the device id (empty picks the first)")
	httpAddr := fs.String("http", def.HTTPAddr, "HTTP status address (empty to disable)")
	bus := fs.String("i2c", def.Sensor.Bus, "I2C bus name (empty picks the first)")
	sensorInterval := fs.Duration("sensor-interval", def.Sensor.Interval, "SCD30 measurement interval")
	noDisplay := fs.Bool("no-display", !def.Display.Enabled, "Run without the display panel")
	calibrationPPM := fs.Int("calibration-ppm", def.CalibrationPPM, "Forced recalibration reference in ppm")
	printReading := fs.Bool("print-reading", false, "Print one sensor reading and exit")

	if err := fs.Parse(args); err != nil {
		return def, false, err
	}

	cfg := def
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return def, false, err
		}
		cfg = loaded
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "poll":
			cfg.Poll = *poll
		case "broker":
			cfg.MQTT.Broker = *broker
		case "namespace":
			cfg.MQTT.Namespace = *namespace
		case "telemetry":
			cfg.MQTT.Telemetry = *telemetry
		case "interface":
			cfg.Interface = *iface
		case "http":
			cfg.HTTPAddr = *httpAddr
		case "i2c":
			cfg.Sensor.Bus = *bus
		case "sensor-interval":
			cfg.Sensor.Interval = *sensorInterval
		case "no-display":
			cfg.Display.Enabled = !*noDisplay
		case "calibration-ppm":
			cfg.CalibrationPPM = *calibrationPPM
		}
	})

	if err := cfg.Validate(); err != nil {
		return cfg, false, err
	}
	return cfg, *printReading, nil
}

func run(cfg config.Config, printReading bool) error {
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("init periph: %w", err)
	}
	bus, err := i2creg.Open(cfg.Sensor.Bus)
	if err != nil {
		return fmt.Errorf("open i2c: %w", err)
	}
	defer bus.Close()

	scd, err := sensor.NewSCD30(bus, cfg.Sensor.Address, cfg.Sensor.Interval)
	if err != nil {
		return fmt.Errorf("init sensor: %w", err)
	}
	defer scd.Close()
	if err := scd.Start(); err != nil {
		return fmt.Errorf("start sensor: %w", err)
	}

	if printReading {
		r, err := firstReading(scd, 3*cfg.Sensor.Interval)
		if err != nil {
			return fmt.Errorf("read sensor: %w", err)
		}
		level := cfg.Logic().Thresholds.Level(r.CO2)
		fmt.Printf("CO2: %.0f ppm (%s), T: %.1f C, RH: %.1f %%\n", r.CO2, level, r.Temperature, r.Humidity)
		return nil
	}

	deviceID, err := device.ID(cfg.Interface)
	if err != nil {
		return fmt.Errorf("device id: %w", err)
	}

	pins, err := gpio.NewRealPins(cfg.GPIO.Chip, cfg.GPIO.Pins)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer pins.Close()

	// The panel is optional hardware; run headless when it is missing.
	var surface display.Surface
	if cfg.Display.Enabled {
		opts := ssd1306.DefaultOpts
		opts.W = cfg.Display.Width
		opts.H = cfg.Display.Height
		opts.Addr = cfg.Display.Address
		dev, err := ssd1306.NewI2C(bus, &opts)
		if err != nil {
			log.Printf("display unavailable, continuing without it: %v", err)
		} else {
			defer dev.Halt()
			surface = display.NewCanvas(dev)
		}
	}

	topics := mqtt.Topics{Namespace: cfg.MQTT.Namespace}
	client := mqtt.NewRealClient(mqtt.Options{
		Broker:            cfg.MQTT.Broker,
		Username:          cfg.MQTT.Username,
		Password:          cfg.MQTT.Password,
		AvailabilityTopic: topics.Availability(deviceID),
		OutboxSize:        cfg.MQTT.Outbox,
	})
	defer client.Close()

	inbox := mqtt.NewInbox(topics, deviceID, cfg.MQTT.Inbox)
	if err := client.Subscribe(topics.CommandFilter(), inbox.Handle); err != nil {
		// Retried on every reconnect.
		log.Printf("subscribe %s: %v", topics.CommandFilter(), err)
	}

	tracker := status.NewTracker(time.Now(), deviceID, status.Config{
		PollMs:    cfg.Poll.Milliseconds(),
		Broker:    cfg.MQTT.Broker,
		Namespace: cfg.MQTT.Namespace,
		HTTPAddr:  cfg.HTTPAddr,
	})
	network := readNetworkInfo()
	if network != nil {
		tracker.SetNetwork(network)
	}
	m := metrics.New(deviceID)

	if cfg.HTTPAddr != "" {
		srv := web.New(cfg.HTTPAddr, tracker, m.Handler())
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTPAddr)
	}

	controller := device.New(device.Deps{
		DeviceID:  deviceID,
		Network:   network.Label(),
		Config:    cfg.Logic(),
		Pins:      pins,
		Layout:    cfg.GPIO.Pins,
		Source:    scd,
		Surface:   surface,
		Client:    client,
		Telemetry: mqtt.NewTelemetry(client, topics, cfg.MQTT.Telemetry),
		Inbox:     inbox,
		Tracker:   tracker,
		Metrics:   m,
	})

	log.Printf("started: device=%s poll=%v broker=%s namespace=%s display=%v",
		deviceID, cfg.Poll, cfg.MQTT.Broker, cfg.MQTT.Namespace, surface != nil)

	ticker := time.NewTicker(cfg.Poll)
	defer ticker.Stop()

	var watchdog <-chan time.Time
	if interval, err := daemon.SdWatchdogEnabled(false); err != nil {
		log.Printf("systemd watchdog: %v", err)
	} else if interval > 0 {
		wt := time.NewTicker(interval / 2)
		defer wt.Stop()
		watchdog = wt.C
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sdNotify(daemon.SdNotifyReady)
	return runLoop(controller, sdNotify, time.Now, ticker.C, watchdog, sigCh)
}

// stepper is the part of device.Controller driven by the loop.
type stepper interface {
	Step(now time.Time)
	Shutdown() error
}

func runLoop(c stepper, notify func(state string), now func() time.Time, tick, watchdog <-chan time.Time, sig <-chan os.Signal) error {
	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			notify(daemon.SdNotifyStopping)
			if err := c.Shutdown(); err != nil {
				log.Printf("shutdown: %v", err)
			}
			return nil

		case <-tick:
			c.Step(now())

		case <-watchdog:
			notify(daemon.SdNotifyWatchdog)
		}
	}
}

func sdNotify(state string) {
	if _, err := daemon.SdNotify(false, state); err != nil {
		log.Printf("sd_notify %s: %v", state, err)
	}
}

// firstReading waits for the sensor's first measurement.
func firstReading(src sensor.Source, timeout time.Duration) (logic.Reading, error) {
	deadline := time.Now().Add(timeout)
	for {
		r, err := src.Read()
		if err == nil {
			return r, nil
		}
		if !errors.Is(err, sensor.ErrNoData) || time.Now().After(deadline) {
			return logic.Reading{}, err
		}
		time.Sleep(250 * time.Millisecond)
	}
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
