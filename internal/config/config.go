// Package config loads and validates the CanvasFlow configuration file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
type Config struct {
	Logging  LoggingConfig  `yaml:"logging" mapstructure:"logging"`
	Snapshot SnapshotConfig `yaml:"snapshot" mapstructure:"snapshot"`
	Engine   EngineConfig   `yaml:"engine" mapstructure:"engine"`
	Events   EventsConfig   `yaml:"events" mapstructure:"events"`
	Tracing  TracingConfig  `yaml:"tracing" mapstructure:"tracing"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" mapstructure:"format" validate:"oneof=json text"`
}

// SnapshotConfig controls the sqlite snapshot database.
type SnapshotConfig struct {
	Path string `yaml:"path" mapstructure:"path" validate:"required"`
}

// EngineConfig controls the execution engine.
type EngineConfig struct {
	// ProcessingDelay is the artificial per-node delay of the simulated
	// processing backend.
	ProcessingDelay time.Duration `yaml:"processing_delay" mapstructure:"processing_delay" validate:"min=0"`
}

// EventsConfig controls the event bus.
type EventsConfig struct {
	BufferSize int `yaml:"buffer_size" mapstructure:"buffer_size" validate:"min=1"`
}

// TracingConfig controls OpenTelemetry tracing of execution runs.
type TracingConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
}

// Save writes the configuration to the given path as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SlogLevel converts the configured level string to a slog.Level.
func (c LoggingConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds a structured logger from the logging configuration.
func NewLogger(cfg LoggingConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
