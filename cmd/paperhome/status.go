package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/paperhome/paperhome/internal/config"
	"github.com/paperhome/paperhome/internal/hue"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check config, secrets, and reachability",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	fmt.Println("=== PaperHome Status ===")
	fmt.Println()

	allOK := true

	configPath := config.DefaultConfigPath()
	fmt.Printf("Config file: %s\n", configPath)
	if _, err := os.Stat(configPath); err == nil {
		fmt.Println("  Status: found")
	} else {
		fmt.Println("  Status: NOT FOUND")
		allOK = false
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("  Load error: %v\n", err)
		return err
	}
	fmt.Println()

	fmt.Println("Hue:")
	if cfg.Hue.Host != "" {
		fmt.Printf("  Bridge: %s\n", cfg.Hue.Host)
	} else {
		fmt.Println("  Bridge: NOT SET")
		allOK = false
	}
	if _, err := config.GetSecret(config.KeyHueAppKey); err == nil {
		fmt.Println("  Application key (keyring): set")
	} else if cfg.Hue.AppKey != "" {
		fmt.Println("  Application key (env): set")
	} else {
		fmt.Println("  Application key: NOT SET (pair from the panel)")
	}
	if cfg.Hue.Host != "" {
		if err := probeBridge(cfg.Hue.Host); err == nil {
			fmt.Println("  Bridge probe: REACHABLE")
		} else {
			fmt.Printf("  Bridge probe: unreachable (%v)\n", err)
			allOK = false
		}
	}
	fmt.Println()

	fmt.Println("Tado:")
	if _, err := config.GetSecret(config.KeyTadoRefreshToken); err == nil {
		fmt.Println("  Refresh token (keyring): set")
	} else if cfg.Tado.RefreshToken != "" {
		fmt.Println("  Refresh token (env): set")
	} else {
		fmt.Println("  Refresh token: NOT SET (sign in from the panel)")
	}
	fmt.Println()

	fmt.Println("MQTT:")
	if cfg.MQTT.Broker != "" {
		fmt.Printf("  Broker: %s\n", cfg.MQTT.Broker)
		if _, err := config.GetSecret(config.KeyMQTTPassword); err == nil {
			fmt.Println("  Password (keyring): set")
		} else if cfg.MQTT.Password != "" {
			fmt.Println("  Password (env): set")
		} else {
			fmt.Println("  Password: not set")
		}
	} else {
		fmt.Println("  Broker: disabled")
	}
	fmt.Println()

	fmt.Println("Sensors:")
	fmt.Printf("  I2C bus: %s\n", cfg.Sensors.I2CBus)
	fmt.Printf("  CO2 warning: %d ppm\n", cfg.Sensors.CO2WarnPPM)
	fmt.Println()

	fmt.Println("Controller:")
	fmt.Printf("  Device: %s\n", cfg.Input.Device)
	if _, err := os.Stat(cfg.Input.Device); err == nil {
		fmt.Println("  Status: present")
	} else {
		fmt.Println("  Status: not detected (pair the controller)")
	}
	fmt.Println()

	fmt.Println("HomeKit:")
	if cfg.HomeKit.Enabled {
		fmt.Printf("  Enabled, PIN %s\n", cfg.HomeKit.Pin)
	} else {
		fmt.Println("  Disabled")
	}
	fmt.Println()

	if allOK {
		fmt.Println("All checks passed.")
	} else {
		fmt.Println("Some checks failed. Run 'paperhome setup' to configure.")
	}

	return nil
}

// probeBridge hits the bridge's unauthenticated config endpoint with a
// short timeout.
func probeBridge(host string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return hue.NewClient(host, "").Probe(ctx)
}
