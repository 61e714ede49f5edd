package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"periph.io/x/host/v3"

	"github.com/paperhome/paperhome/internal/button"
	"github.com/paperhome/paperhome/internal/config"
	"github.com/paperhome/paperhome/internal/coordinator"
	"github.com/paperhome/paperhome/internal/display"
	"github.com/paperhome/paperhome/internal/display/epd"
	"github.com/paperhome/paperhome/internal/homekit"
	"github.com/paperhome/paperhome/internal/hue"
	"github.com/paperhome/paperhome/internal/input"
	"github.com/paperhome/paperhome/internal/input/gamepad"
	"github.com/paperhome/paperhome/internal/logging"
	"github.com/paperhome/paperhome/internal/mqtt"
	"github.com/paperhome/paperhome/internal/power"
	"github.com/paperhome/paperhome/internal/sensors"
	"github.com/paperhome/paperhome/internal/tado"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the panel daemon",
	RunE:  runDaemon,
}

// Poll cadences for the network managers. The Hue bridge is on the
// LAN and cheap to ask; Tado is a rate-limited cloud API.
const (
	huePollInterval   = 5 * time.Second
	tadoPollInterval  = 30 * time.Second
	powerPollInterval = 30 * time.Second
)

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	closeLogs, err := logging.Setup(cfg.Logging)
	if err != nil {
		return fmt.Errorf("configuring logging: %w", err)
	}
	defer closeLogs()
	log := slog.Default()

	log.Info("paperhome starting", "version", version)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("shutdown signal received")
		cancel()
	}()

	if _, err := host.Init(); err != nil {
		return fmt.Errorf("initializing hardware: %w", err)
	}

	drv, err := epd.New(epd.Opts{
		SPIDev:  cfg.Display.SPIDev,
		DCPin:   cfg.Display.DCPin,
		RSTPin:  cfg.Display.RSTPin,
		BusyPin: cfg.Display.BusyPin,
	})
	if err != nil {
		return fmt.Errorf("opening panel: %w", err)
	}
	defer drv.Close()

	queue, err := input.NewQueue(cfg.Input.QueueCapacity)
	if err != nil {
		return fmt.Errorf("building input queue: %w", err)
	}

	opts := coordinator.Options{
		Queue:       queue,
		Driver:      drv,
		Display:     displayConfig(cfg.Display),
		BatchWindow: cfg.Input.BatchWindow(),
		Version:     version,
		Log:         log,
	}

	// Managers are constructed first so the coordinator can attach its
	// update hooks, then started once the wiring is complete.
	var hueMgr *hue.Manager
	if cfg.Hue.Host != "" {
		hueMgr = hue.NewManager(hue.NewClient(cfg.Hue.Host, cfg.Hue.AppKey), huePollInterval, log)
		hueMgr.OnKey(func(key string) {
			if err := config.SetSecret(config.KeyHueAppKey, key); err != nil {
				log.Error("storing hue application key", "err", err)
			}
		})
		opts.Hue = hueMgr
		opts.HueHost = cfg.Hue.Host
	}

	// Tado always runs: without a refresh token it parks in needs-auth
	// and the Network screen shows the sign-in code.
	tadoMgr := tado.NewManager(tado.NewClient("", cfg.Tado.RefreshToken), cfg.Tado.HomeName, tadoPollInterval, log)
	tadoMgr.OnTokens(func(token string) {
		if err := config.SetSecret(config.KeyTadoRefreshToken, token); err != nil {
			log.Error("storing tado refresh token", "err", err)
		}
	})
	opts.Tado = tadoMgr

	var sensorMgr *sensors.Manager
	if cfg.Sensors.I2CBus != "" {
		sensorMgr = sensors.NewManager(cfg.Sensors.I2CBus, time.Duration(cfg.Sensors.PollSeconds)*time.Second, log)
		opts.Sensors = sensorMgr
		opts.CO2WarnPPM = cfg.Sensors.CO2WarnPPM
	}

	powerMon := power.NewMonitor(powerPollInterval, log)
	opts.Power = powerMon

	var mqttMgr *mqtt.Manager
	if cfg.MQTT.Broker != "" {
		mqttMgr = mqtt.NewManager(mqtt.Options{
			Broker:          cfg.MQTT.Broker,
			ClientID:        cfg.MQTT.ClientID,
			Username:        cfg.MQTT.Username,
			Password:        cfg.MQTT.Password,
			BaseTopic:       cfg.MQTT.BaseTopic,
			DiscoveryPrefix: cfg.MQTT.DiscoveryPrefix,
			Version:         version,
		}, log)
		opts.MQTT = mqttMgr
		opts.MQTTBroker = cfg.MQTT.Broker
	}

	var homekitMgr *homekit.Manager
	if cfg.HomeKit.Enabled {
		stateDir := cfg.HomeKit.StateDir
		if stateDir == "" {
			stateDir = filepath.Join(config.DefaultConfigDir(), "homekit")
		}
		homekitMgr = homekit.NewManager(cfg.HomeKit.Pin, stateDir, log)
		opts.HomeKit = homekitMgr
		opts.HomeKitPin = cfg.HomeKit.Pin
	}

	coord, err := coordinator.New(opts)
	if err != nil {
		return fmt.Errorf("building coordinator: %w", err)
	}

	reader := gamepad.NewReader(cfg.Input.Device, queue, log)
	if err := reader.Start(ctx); err != nil {
		return fmt.Errorf("starting gamepad reader: %w", err)
	}
	defer reader.Stop()

	if hueMgr != nil {
		if err := hueMgr.Start(ctx); err != nil {
			return fmt.Errorf("starting hue manager: %w", err)
		}
		defer hueMgr.Stop()
	}

	if err := tadoMgr.Start(ctx); err != nil {
		return fmt.Errorf("starting tado manager: %w", err)
	}
	defer tadoMgr.Stop()

	if sensorMgr != nil {
		if err := sensorMgr.Start(ctx); err != nil {
			log.Warn("sensors unavailable", "err", err)
		} else {
			defer sensorMgr.Stop()
		}
	}

	powerMon.Start(ctx)
	defer powerMon.Stop()

	if mqttMgr != nil {
		if err := mqttMgr.Start(); err != nil {
			log.Warn("mqtt unavailable", "err", err)
		} else {
			defer mqttMgr.Stop()
		}
	}

	if homekitMgr != nil {
		if err := homekitMgr.Start(ctx); err != nil {
			log.Warn("homekit unavailable", "err", err)
		} else {
			defer homekitMgr.Stop()
		}
	}

	if cfg.Button.Enabled {
		btn := button.New(cfg.Button.Chip, cfg.Button.Line, log)
		btn.OnPress(coord.ForceRefresh)
		if err := btn.Start(); err != nil {
			log.Warn("front button unavailable", "err", err)
		} else {
			defer btn.Stop()
		}
	}

	log.Info("paperhome ready")
	return coord.Run(ctx)
}

// displayConfig lays the config file's refresh policy over the panel
// defaults.
func displayConfig(dc config.DisplayConfig) display.Config {
	out := display.DefaultConfig()
	if dc.MaxPartialBeforeFull > 0 {
		out.MaxPartialBeforeFull = dc.MaxPartialBeforeFull
	}
	if dc.FullRefreshIntervalMin > 0 {
		out.FullRefreshInterval = time.Duration(dc.FullRefreshIntervalMin) * time.Minute
	}
	return out
}
