package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete manager configuration
type Config struct {
	Strategies StrategiesConfig `json:"strategies" yaml:"strategies"`
	State      StateConfig      `json:"state" yaml:"state"`
	Journal    JournalConfig    `json:"journal" yaml:"journal"`
	Retention  RetentionConfig  `json:"retention" yaml:"retention"`
	Logging    LoggingConfig    `json:"logging" yaml:"logging"`
}

// StrategiesConfig describes where strategies live and how they are launched
type StrategiesConfig struct {
	// Root directory containing one subdirectory per strategy
	Root string `json:"root" yaml:"root"`
	// Relative path of the runnable entry point inside a strategy directory
	EntryPoint string `json:"entry_point" yaml:"entry_point"`
	// Interpreter used to launch the entry point; empty execs it directly
	Interpreter string `json:"interpreter,omitempty" yaml:"interpreter,omitempty"`
	// How long Stop waits for a graceful exit before killing, e.g. "5s"
	StopTimeout string `json:"stop_timeout,omitempty" yaml:"stop_timeout,omitempty"`
}

// StateConfig locates the persisted instance document
type StateConfig struct {
	File string `json:"file" yaml:"file"`
}

// JournalConfig contains run-history journaling parameters
type JournalConfig struct {
	DBPath string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// RetentionConfig controls run-directory compression
type RetentionConfig struct {
	// Number of most recent run directories kept uncompressed per strategy
	KeepRuns int `json:"keep_runs" yaml:"keep_runs"`
}

// LoggingConfig controls the slog handler
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level"`   // DEBUG, INFO, WARN, ERROR
	Format string `json:"format" yaml:"format"` // json or text
}

// Default returns a configuration with sensible defaults for a local setup.
func Default() *Config {
	return &Config{
		Strategies: StrategiesConfig{
			Root:        "./strategies",
			EntryPoint:  "run.py",
			Interpreter: "python3",
			StopTimeout: "5s",
		},
		State:     StateConfig{File: "./instances.json"},
		Journal:   JournalConfig{DBPath: "./fleet.sqlite"},
		Retention: RetentionConfig{KeepRuns: 5},
		Logging:   LoggingConfig{Level: "INFO", Format: "text"},
	}
}

// LoadFromFile loads configuration from a file (JSON or YAML based on content)
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}

	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Strategies.Root == "" {
		return fmt.Errorf("strategies.root is required")
	}
	if c.Strategies.EntryPoint == "" {
		return fmt.Errorf("strategies.entry_point is required")
	}
	if c.State.File == "" {
		return fmt.Errorf("state.file is required")
	}
	if c.Retention.KeepRuns < 0 {
		return fmt.Errorf("retention.keep_runs must not be negative")
	}
	if _, err := c.ParseStopTimeout(); err != nil {
		return fmt.Errorf("strategies.stop_timeout: %w", err)
	}
	switch strings.ToUpper(c.Logging.Level) {
	case "", "DEBUG", "INFO", "WARN", "ERROR":
	default:
		return fmt.Errorf("unknown logging.level: %s", c.Logging.Level)
	}
	return nil
}

// ParseStopTimeout converts the stop timeout string to a time.Duration.
// An empty value means the default of 5 seconds.
func (c *Config) ParseStopTimeout() (time.Duration, error) {
	if c.Strategies.StopTimeout == "" {
		return 5 * time.Second, nil
	}
	return time.ParseDuration(c.Strategies.StopTimeout)
}
