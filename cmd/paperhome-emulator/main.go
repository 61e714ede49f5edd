// The paperhome-emulator binary runs the panel UI in a desktop window,
// with the keyboard standing in for the controller. Network managers
// run for real, so Hue pairing and Tado sign-in work from the desk;
// the I2C sensors, gamepad, and GPIO button need the hardware.
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

	"github.com/paperhome/paperhome/internal/config"
	"github.com/paperhome/paperhome/internal/coordinator"
	"github.com/paperhome/paperhome/internal/display"
	"github.com/paperhome/paperhome/internal/display/emulator"
	"github.com/paperhome/paperhome/internal/homekit"
	"github.com/paperhome/paperhome/internal/hue"
	"github.com/paperhome/paperhome/internal/input"
	"github.com/paperhome/paperhome/internal/logging"
	"github.com/paperhome/paperhome/internal/mqtt"
	"github.com/paperhome/paperhome/internal/power"
	"github.com/paperhome/paperhome/internal/tado"
)

// version is stamped at build time; local builds report "dev".
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run() error {
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

	log.Info("paperhome emulator starting", "version", version)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("shutdown signal received")
		cancel()
	}()

	queue, err := input.NewQueue(cfg.Input.QueueCapacity)
	if err != nil {
		return fmt.Errorf("building input queue: %w", err)
	}

	emu := emulator.New(queue)

	opts := coordinator.Options{
		Queue:       queue,
		Driver:      emu,
		Display:     display.DefaultConfig(),
		BatchWindow: cfg.Input.BatchWindow(),
		Version:     version,
		Log:         log,
	}

	var hueMgr *hue.Manager
	if cfg.Hue.Host != "" {
		hueMgr = hue.NewManager(hue.NewClient(cfg.Hue.Host, cfg.Hue.AppKey), 5*time.Second, log)
		hueMgr.OnKey(func(key string) {
			if err := config.SetSecret(config.KeyHueAppKey, key); err != nil {
				log.Error("storing hue application key", "err", err)
			}
		})
		opts.Hue = hueMgr
		opts.HueHost = cfg.Hue.Host
	}

	tadoMgr := tado.NewManager(tado.NewClient("", cfg.Tado.RefreshToken), cfg.Tado.HomeName, 30*time.Second, log)
	tadoMgr.OnTokens(func(token string) {
		if err := config.SetSecret(config.KeyTadoRefreshToken, token); err != nil {
			log.Error("storing tado refresh token", "err", err)
		}
	})
	opts.Tado = tadoMgr

	// The development laptop has a battery of its own, which gives the
	// status bar something real to show.
	powerMon := power.NewMonitor(30*time.Second, log)
	opts.Power = powerMon

	var mqttMgr *mqtt.Manager
	if cfg.MQTT.Broker != "" {
		mqttMgr = mqtt.NewManager(mqtt.Options{
			Broker:          cfg.MQTT.Broker,
			ClientID:        cfg.MQTT.ClientID + "-emulator",
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

	// The coordinator gets a background goroutine; ebiten insists on
	// the main one.
	coordDone := make(chan error, 1)
	go func() {
		coordDone <- coord.Run(ctx)
	}()

	guiErr := emu.RunGUI(ctx)
	cancel()

	select {
	case err := <-coordDone:
		if err != nil {
			log.Error("coordinator stopped", "err", err)
		}
	case <-time.After(2 * time.Second):
		log.Warn("coordinator shutdown timed out")
	}

	return guiErr
}
