package config

import (
	"os"
	"path/filepath"
	"time"
)

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Snapshot: SnapshotConfig{
			Path: filepath.Join(defaultHomeDir(), "canvasflow.db"),
		},
		Engine: EngineConfig{
			ProcessingDelay: 100 * time.Millisecond,
		},
		Events: EventsConfig{
			BufferSize: 100,
		},
		Tracing: TracingConfig{
			Enabled: false,
		},
	}
}

// DefaultConfigPath returns the default location of the config file.
func DefaultConfigPath() string {
	return filepath.Join(defaultHomeDir(), "config.yaml")
}

// defaultHomeDir resolves the per-user data directory, falling back to the
// current directory when no home directory is available.
func defaultHomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".canvasflow"
	}
	return filepath.Join(home, ".canvasflow")
}
