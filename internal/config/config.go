// Package config provides configuration loading from YAML files, the
// OS keyring, and environment variables. Environment variables take
// precedence for dev flexibility.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"

	"github.com/paperhome/paperhome/internal/logging"
)

const (
	// KeyringService is the OS keyring service name for paperhome secrets.
	KeyringService = "paperhome"

	// Keyring account names for each secret.
	KeyHueAppKey        = "hue-application-key"
	KeyTadoRefreshToken = "tado-refresh-token"
	KeyMQTTPassword     = "mqtt-password"
)

// Config holds the full application configuration, assembled from
// YAML + keyring + env.
type Config struct {
	Display DisplayConfig  `yaml:"display"`
	Input   InputConfig    `yaml:"input"`
	Hue     HueConfig      `yaml:"hue"`
	Tado    TadoConfig     `yaml:"tado"`
	Sensors SensorsConfig  `yaml:"sensors"`
	MQTT    MQTTConfig     `yaml:"mqtt"`
	HomeKit HomeKitConfig  `yaml:"homekit"`
	Button  ButtonConfig   `yaml:"button"`
	Logging logging.Config `yaml:"logging"`
}

// DisplayConfig holds the panel wiring and refresh policy.
type DisplayConfig struct {
	// SPIDev is the periph.io SPI port name, e.g. "SPI0.0".
	SPIDev string `yaml:"spi_dev"`

	// Control pin names as known to the GPIO registry.
	DCPin   string `yaml:"dc_pin"`
	RSTPin  string `yaml:"rst_pin"`
	BusyPin string `yaml:"busy_pin"`

	MaxPartialBeforeFull   int `yaml:"max_partial_before_full"`
	FullRefreshIntervalMin int `yaml:"full_refresh_interval_min"`
}

// InputConfig holds the gamepad pipeline settings.
type InputConfig struct {
	// Device is the joystick node the controller appears at.
	Device string `yaml:"device"`

	QueueCapacity int `yaml:"queue_capacity"`
	BatchWindowMs int `yaml:"batch_window_ms"`
}

// BatchWindow returns the coalescing window as a duration.
func (c InputConfig) BatchWindow() time.Duration {
	return time.Duration(c.BatchWindowMs) * time.Millisecond
}

// HueConfig holds the Hue bridge connection settings.
type HueConfig struct {
	Host   string `yaml:"host"`
	AppKey string `yaml:"-"` // secret, not in YAML
}

// TadoConfig holds the Tado cloud settings.
type TadoConfig struct {
	HomeName     string `yaml:"home_name"`
	RefreshToken string `yaml:"-"` // secret, not in YAML
}

// SensorsConfig holds the I2C sensor settings.
type SensorsConfig struct {
	// I2CBus is the periph.io bus name, e.g. "/dev/i2c-1" or "1".
	I2CBus string `yaml:"i2c_bus"`

	// CO2 warning threshold in ppm, used by screens and HomeKit.
	CO2WarnPPM int `yaml:"co2_warn_ppm"`

	PollSeconds int `yaml:"poll_seconds"`
}

// MQTTConfig holds the telemetry broker settings.
type MQTTConfig struct {
	Broker          string `yaml:"broker"`
	ClientID        string `yaml:"client_id"`
	Username        string `yaml:"username"`
	Password        string `yaml:"-"` // secret, not in YAML
	BaseTopic       string `yaml:"base_topic"`
	DiscoveryPrefix string `yaml:"discovery_prefix"`
}

// HomeKitConfig holds the HomeKit accessory settings.
type HomeKitConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Pin      string `yaml:"pin"`
	StateDir string `yaml:"state_dir"`
}

// ButtonConfig holds the optional GPIO front button settings.
type ButtonConfig struct {
	Enabled bool   `yaml:"enabled"`
	Chip    string `yaml:"chip"`
	Line    int    `yaml:"line"`
}

// Default returns the configuration for a stock Raspberry Pi wiring.
func Default() *Config {
	return &Config{
		Display: DisplayConfig{
			SPIDev:                 "SPI0.0",
			DCPin:                  "GPIO25",
			RSTPin:                 "GPIO17",
			BusyPin:                "GPIO24",
			MaxPartialBeforeFull:   5,
			FullRefreshIntervalMin: 30,
		},
		Input: InputConfig{
			Device:        "/dev/input/js0",
			QueueCapacity: 32,
			BatchWindowMs: 50,
		},
		Sensors: SensorsConfig{
			I2CBus:      "1",
			CO2WarnPPM:  1200,
			PollSeconds: 30,
		},
		MQTT: MQTTConfig{
			ClientID:        "paperhome",
			BaseTopic:       "paperhome",
			DiscoveryPrefix: "homeassistant",
		},
		HomeKit: HomeKitConfig{
			Pin: "10042001",
		},
		Button: ButtonConfig{
			Chip: "gpiochip0",
			Line: 3,
		},
		Logging: logging.DefaultConfig(),
	}
}

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "paperhome")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	if p := os.Getenv("PAPERHOME_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// Load assembles configuration from the YAML file + keyring +
// environment variables. Environment variables always take
// precedence. Returns a usable Config even if some sources are
// missing (managers handle their own "not configured" state).
func Load() (*Config, error) {
	cfg := Default()

	configPath := DefaultConfigPath()
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", configPath, err)
		}
	}

	// Layer in keyring secrets (ignore errors, the keyring may not be
	// populated yet)
	if key, err := keyring.Get(KeyringService, KeyHueAppKey); err == nil {
		cfg.Hue.AppKey = key
	}
	if token, err := keyring.Get(KeyringService, KeyTadoRefreshToken); err == nil {
		cfg.Tado.RefreshToken = token
	}
	if pw, err := keyring.Get(KeyringService, KeyMQTTPassword); err == nil {
		cfg.MQTT.Password = pw
	}

	// Environment variables override everything
	if v := os.Getenv("PAPERHOME_HUE_HOST"); v != "" {
		cfg.Hue.Host = v
	}
	if v := os.Getenv("PAPERHOME_HUE_APP_KEY"); v != "" {
		cfg.Hue.AppKey = v
	}
	if v := os.Getenv("PAPERHOME_TADO_REFRESH_TOKEN"); v != "" {
		cfg.Tado.RefreshToken = v
	}
	if v := os.Getenv("PAPERHOME_MQTT_BROKER"); v != "" {
		cfg.MQTT.Broker = v
	}
	if v := os.Getenv("PAPERHOME_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Password = v
	}
	if v := os.Getenv("PAPERHOME_INPUT_DEVICE"); v != "" {
		cfg.Input.Device = v
	}

	return cfg, nil
}

// WriteConfigFile writes the non-secret portion of config to the YAML
// file.
func WriteConfigFile(cfg *Config) error {
	dir := filepath.Dir(DefaultConfigPath())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	return os.WriteFile(DefaultConfigPath(), data, 0o644)
}

// SetSecret stores a secret in the OS keyring.
func SetSecret(account, value string) error {
	// Delete first to avoid "already exists" errors on update
	_ = keyring.Delete(KeyringService, account)
	return keyring.Set(KeyringService, account, value)
}

// GetSecret retrieves a secret from the OS keyring.
func GetSecret(account string) (string, error) {
	return keyring.Get(KeyringService, account)
}
