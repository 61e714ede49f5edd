package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/paperhome/paperhome/internal/config"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive setup: write config and store secrets in the OS keyring",
	RunE:  runSetup,
}

func runSetup(cmd *cobra.Command, args []string) error {
	reader := bufio.NewReader(os.Stdin)
	fmt.Println("=== PaperHome Setup ===")
	fmt.Println()

	// Existing config supplies the defaults, so re-running setup only
	// changes what the user types.
	cfg, err := config.Load()
	if err != nil {
		cfg = config.Default()
	}

	fmt.Println("-- Hue --")
	cfg.Hue.Host = prompt(reader, "Bridge host or IP", cfg.Hue.Host)
	appKey := promptSecret(reader, "Application key (blank to pair on-device)", cfg.Hue.AppKey != "")
	if appKey != "" {
		if err := config.SetSecret(config.KeyHueAppKey, appKey); err != nil {
			return fmt.Errorf("storing hue application key: %w", err)
		}
		fmt.Println("  -> Stored in keyring")
	} else {
		fmt.Println("  -> Kept existing")
	}
	fmt.Println()

	fmt.Println("-- Tado --")
	fmt.Println("  Sign-in happens on the panel (Settings > Network shows a code).")
	cfg.Tado.HomeName = prompt(reader, "Home name (blank for first home)", cfg.Tado.HomeName)
	fmt.Println()

	fmt.Println("-- Sensors --")
	cfg.Sensors.I2CBus = prompt(reader, "I2C bus", cfg.Sensors.I2CBus)
	cfg.Sensors.CO2WarnPPM = promptInt(reader, "CO2 warning threshold (ppm)", cfg.Sensors.CO2WarnPPM)
	fmt.Println()

	fmt.Println("-- MQTT --")
	cfg.MQTT.Broker = prompt(reader, "Broker URL (blank to disable)", cfg.MQTT.Broker)
	if cfg.MQTT.Broker != "" {
		cfg.MQTT.Username = prompt(reader, "Username", cfg.MQTT.Username)
		password := promptSecret(reader, "Password", cfg.MQTT.Password != "")
		if password != "" {
			if err := config.SetSecret(config.KeyMQTTPassword, password); err != nil {
				return fmt.Errorf("storing mqtt password: %w", err)
			}
			fmt.Println("  -> Stored in keyring")
		} else {
			fmt.Println("  -> Kept existing")
		}
	}
	fmt.Println()

	fmt.Println("-- HomeKit --")
	cfg.HomeKit.Enabled = promptBool(reader, "Expose sensors to HomeKit", cfg.HomeKit.Enabled)
	if cfg.HomeKit.Enabled {
		cfg.HomeKit.Pin = prompt(reader, "Pairing PIN (8 digits)", cfg.HomeKit.Pin)
	}
	fmt.Println()

	fmt.Println("-- Input --")
	cfg.Input.Device = prompt(reader, "Controller device", cfg.Input.Device)
	fmt.Println()

	if err := config.WriteConfigFile(cfg); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	fmt.Printf("Config written to %s\n", config.DefaultConfigPath())
	fmt.Println("Setup complete!")
	return nil
}

// prompt asks for a value with an optional default.
func prompt(reader *bufio.Reader, label, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("  %s [%s]: ", label, defaultVal)
	} else {
		fmt.Printf("  %s: ", label)
	}
	line, _ := reader.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		return defaultVal
	}
	return line
}

// promptSecret asks for a secret value. If one already exists, allows
// keeping it.
func promptSecret(reader *bufio.Reader, label string, hasExisting bool) string {
	if hasExisting {
		fmt.Printf("  %s [press Enter to keep existing]: ", label)
	} else {
		fmt.Printf("  %s: ", label)
	}
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}

// promptInt asks for a number, keeping the default on blank or
// unparseable input.
func promptInt(reader *bufio.Reader, label string, defaultVal int) int {
	line := prompt(reader, label, strconv.Itoa(defaultVal))
	n, err := strconv.Atoi(line)
	if err != nil {
		return defaultVal
	}
	return n
}

// promptBool asks a yes/no question.
func promptBool(reader *bufio.Reader, label string, defaultVal bool) bool {
	def := "y/N"
	if defaultVal {
		def = "Y/n"
	}
	fmt.Printf("  %s [%s]: ", label, def)
	line, _ := reader.ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	case "n", "no":
		return false
	default:
		return defaultVal
	}
}
