// Package logging configures the process-wide slog logger: level,
// text or JSON format, and a stderr or rotating-file sink.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Format selects the log line encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Sink selects where log lines go.
type Sink string

const (
	SinkStderr Sink = "stderr"
	SinkFile   Sink = "file"
)

// Environment overrides, applied on top of the config file.
const (
	EnvLogLevel  = "PAPERHOME_LOG_LEVEL"
	EnvLogFormat = "PAPERHOME_LOG_FORMAT"
	EnvLogSink   = "PAPERHOME_LOG_SINK"
	EnvLogFile   = "PAPERHOME_LOG_FILE"
)

// Config is the logging section of the config file.
type Config struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Sink   string `yaml:"sink"`
	File   string `yaml:"file"`

	MaxSizeMB  int  `yaml:"max_size_mb"`
	MaxBackups int  `yaml:"max_backups"`
	MaxAgeDays int  `yaml:"max_age_days"`
	Compress   bool `yaml:"compress"`
}

// DefaultConfig returns the daemon defaults: info-level text on
// stderr, and modest rotation limits once a file sink is chosen.
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     string(FormatText),
		Sink:       string(SinkStderr),
		MaxSizeMB:  10,
		MaxBackups: 3,
		MaxAgeDays: 7,
		Compress:   true,
	}
}

// Setup installs the default slog logger per cfg, with environment
// overrides applied on top. The returned func closes the sink.
func Setup(cfg Config) (func() error, error) {
	cfg = cfg.withEnv()

	writer, closeFn, err := resolveWriter(cfg)
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	var handler slog.Handler
	switch Format(strings.ToLower(cfg.Format)) {
	case FormatJSON:
		handler = slog.NewJSONHandler(writer, opts)
	default:
		handler = slog.NewTextHandler(writer, opts)
	}

	slog.SetDefault(slog.New(handler))
	return closeFn, nil
}

func (c Config) withEnv() Config {
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		c.Level = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		c.Format = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSink)); v != "" {
		c.Sink = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		c.File = v
	}
	return c
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func resolveWriter(cfg Config) (io.Writer, func() error, error) {
	switch Sink(strings.ToLower(cfg.Sink)) {
	case SinkFile:
		file := cfg.File
		if file == "" {
			dir, err := os.UserCacheDir()
			if err != nil {
				return nil, nil, fmt.Errorf("resolving log directory: %w", err)
			}
			file = filepath.Join(dir, "paperhome", "paperhome.log")
		}
		if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
			return nil, nil, fmt.Errorf("creating log directory: %w", err)
		}
		lj := &lumberjack.Logger{
			Filename:   file,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
		return lj, lj.Close, nil
	default:
		return os.Stderr, func() error { return nil }, nil
	}
}
