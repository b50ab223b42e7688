package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"cmdtutor/internal/tutorerr"
)

// Config holds all tutor configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Code derivation and cohort settings
	Tutor TutorConfig `yaml:"tutor"`

	// Subprocess execution
	Execution ExecutionConfig `yaml:"execution"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`

	// Terminal rendering
	UI UIConfig `yaml:"ui"`
}

// TutorConfig configures progress checkpoints and cohort assignment.
type TutorConfig struct {
	CheckpointInterval int    `yaml:"checkpoint_interval"` // codes every N verified exercises
	GroupCount         int    `yaml:"group_count"`         // 2..26
	DefaultKey         string `yaml:"default_key"`         // used when the learner enters no key
	HashVersion        string `yaml:"hash_version"`        // group hash identifier
	LessonsPath        string `yaml:"lessons_path"`        // optional YAML catalog; empty = built-in
	RosterPath         string `yaml:"roster_path"`         // optional roster to load at startup
}

const (
	MinGroups = 2
	MaxGroups = 26
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "cmdtutor",
		Version: "1.0.0",

		Tutor: TutorConfig{
			CheckpointInterval: 5,
			GroupCount:         4,
			DefaultKey:         "DEFAULT",
			HashVersion:        "fnv1a64/v1",
		},

		Execution: ExecutionConfig{
			DefaultTimeout:   "10s",
			WorkingDirectory: ".",
			MaxOutputBytes:   1 << 20,
			Shell:            "sh",
		},

		Logging: LoggingConfig{
			Level:     "info",
			DebugMode: false,
		},

		UI: UIConfig{
			Theme:    "dark",
			Markdown: true,
			Width:    80,
		},
	}
}

// Load loads configuration from a YAML file.
// A missing file yields the defaults (with environment overrides applied).
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
// Unparseable numeric values are ignored and the file value stays.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("TUTOR_GROUPS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Tutor.GroupCount = n
		}
	}
	if v := os.Getenv("TUTOR_CHECKPOINT_INTERVAL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Tutor.CheckpointInterval = n
		}
	}
	if v := os.Getenv("TUTOR_TIMEOUT"); v != "" {
		c.Execution.DefaultTimeout = v
	}
	if v := os.Getenv("TUTOR_WORKDIR"); v != "" {
		c.Execution.WorkingDirectory = v
	}
	if v := os.Getenv("TUTOR_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Logging.DebugMode = b
		}
	}
}

// GetExecutionTimeout returns the command timeout as a duration.
func (c *Config) GetExecutionTimeout() time.Duration {
	d, err := time.ParseDuration(c.Execution.DefaultTimeout)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Tutor.GroupCount < MinGroups || c.Tutor.GroupCount > MaxGroups {
		return tutorerr.New("config", "Validate", tutorerr.ErrInvalidConfig,
			fmt.Sprintf("group_count must be between %d and %d, got %d", MinGroups, MaxGroups, c.Tutor.GroupCount))
	}
	if c.Tutor.CheckpointInterval < 1 {
		return tutorerr.New("config", "Validate", tutorerr.ErrInvalidConfig,
			fmt.Sprintf("checkpoint_interval must be at least 1, got %d", c.Tutor.CheckpointInterval))
	}
	d, err := time.ParseDuration(c.Execution.DefaultTimeout)
	if err != nil {
		return tutorerr.Wrap("config", "Validate", tutorerr.ErrInvalidConfig,
			fmt.Sprintf("invalid default_timeout %q", c.Execution.DefaultTimeout), err)
	}
	if d <= 0 {
		return tutorerr.New("config", "Validate", tutorerr.ErrInvalidConfig, "default_timeout must be positive")
	}
	if c.Execution.MaxOutputBytes < 0 {
		return tutorerr.New("config", "Validate", tutorerr.ErrInvalidConfig, "max_output_bytes must not be negative")
	}
	return c.Logging.validate()
}

// AssignmentKey returns key, or the configured default when key is blank.
func (c *Config) AssignmentKey(key string) string {
	if key != "" {
		return key
	}
	if c.Tutor.DefaultKey != "" {
		return c.Tutor.DefaultKey
	}
	return "DEFAULT"
}
