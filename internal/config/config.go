// Package config handles configuration loading from YAML files and
// environment variables. Precedence: environment variables > config
// file > defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a wrapper around time.Duration that supports YAML
// unmarshaling from human-readable strings like "750ms", "3s", "1m".
type Duration struct {
	time.Duration
}

// UnmarshalYAML implements the yaml.Unmarshaler interface for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		parsed, err := time.ParseDuration(value.Value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value.Value, err)
		}
		d.Duration = parsed
		return nil
	default:
		return fmt.Errorf("unsupported duration format: %v", value.Kind)
	}
}

// MarshalYAML implements the yaml.Marshaler interface for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// Config holds all monitor configuration.
type Config struct {
	Polling  PollingConfig  `yaml:"polling"`
	Watchdog WatchdogConfig `yaml:"watchdog"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// PollingConfig holds the poll cadence and scan depth tunables.
type PollingConfig struct {
	// Interval is the nominal poll cadence.
	Interval Duration `yaml:"interval"`

	// MinGap is the minimum time between poll starts; ticks arriving
	// sooner are dropped. Many sensor backends are expensive to call
	// faster than this.
	MinGap Duration `yaml:"min_gap"`

	// StaleAfter is how old the last successful poll may be before the
	// next poll runs thorough.
	StaleAfter Duration `yaml:"stale_after"`

	// WarmupScans and WarmupSpacing control the thorough scans run at
	// startup to let slow sensor chips settle.
	WarmupScans   int      `yaml:"warmup_scans"`
	WarmupSpacing Duration `yaml:"warmup_spacing"`
}

// WatchdogConfig holds the liveness monitor settings.
type WatchdogConfig struct {
	Interval   Duration `yaml:"interval"`
	StartDelay Duration `yaml:"start_delay"`

	// ThresholdFactor scales the nominal poll interval into the maximum
	// tolerated age of the last successful poll.
	ThresholdFactor float64 `yaml:"threshold_factor"`
}

// Threshold returns the stall threshold for the given nominal poll
// interval.
func (w WatchdogConfig) Threshold(nominal time.Duration) time.Duration {
	f := w.ThresholdFactor
	if f <= 0 {
		f = 1.5
	}
	return time.Duration(float64(nominal) * f)
}

// LoggingConfig holds logging settings. The file sink rotates when it
// exceeds MaxSizeMB.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Polling: PollingConfig{
			Interval:      Duration{950 * time.Millisecond},
			MinGap:        Duration{750 * time.Millisecond},
			StaleAfter:    Duration{time.Second},
			WarmupScans:   2,
			WarmupSpacing: Duration{3 * time.Second},
		},
		Watchdog: WatchdogConfig{
			Interval:        Duration{2 * time.Second},
			StartDelay:      Duration{10 * time.Second},
			ThresholdFactor: 1.5,
		},
		Logging: LoggingConfig{
			Level:      "info",
			File:       "./monitor.log",
			MaxSizeMB:  20,
			MaxBackups: 3,
		},
	}
}

// LoadFromBytes parses YAML configuration from a byte slice and merges
// with defaults. Environment variables take highest precedence.
func LoadFromBytes(data []byte) (*Config, error) {
	cfg := DefaultConfig()

	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config data: %w", err)
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// Load reads configuration from a YAML file and merges with defaults.
// An empty path auto-discovers via Locate; a missing file falls back to
// defaults plus environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = Locate()
	}
	if path == "" {
		return LoadFromBytes(nil)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		return LoadFromBytes(nil)
	}

	return LoadFromBytes(data)
}

// Locate searches standard config file paths and returns the first one
// found, empty string if none exists.
func Locate() string {
	for _, p := range configSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// WriteConfig serializes the config to a YAML file at the given path,
// creating parent directories if needed.
func WriteConfig(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0640)
}

// applyEnvOverrides applies environment variable overrides to the
// configuration. Environment variables have the highest precedence.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HWPULSE_POLL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Polling.Interval = Duration{d}
		}
	}
	if v := os.Getenv("HWPULSE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("HWPULSE_LOG_FILE"); v != "" {
		cfg.Logging.File = v
	}
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.Polling.Interval.Duration <= 0 {
		return fmt.Errorf("polling interval must be positive")
	}
	if c.Polling.MinGap.Duration < 0 {
		return fmt.Errorf("polling min_gap must not be negative")
	}
	if c.Polling.StaleAfter.Duration <= 0 {
		return fmt.Errorf("polling stale_after must be positive")
	}
	if c.Polling.WarmupScans < 0 {
		return fmt.Errorf("warmup_scans must not be negative")
	}
	if c.Watchdog.Interval.Duration <= 0 {
		return fmt.Errorf("watchdog interval must be positive")
	}
	if c.Watchdog.ThresholdFactor != 0 && c.Watchdog.ThresholdFactor < 1 {
		return fmt.Errorf("watchdog threshold_factor must be at least 1 (got %v)", c.Watchdog.ThresholdFactor)
	}
	return nil
}
