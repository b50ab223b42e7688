package config

import (
	"fmt"
	"strings"

	"cmdtutor/internal/tutorerr"
)

// LoggingConfig controls the debug log under <workspace>/.tutor/logs.
// Nothing is written unless DebugMode is set.
type LoggingConfig struct {
	Level      string          `yaml:"level" json:"level,omitempty"` // debug, info, warn, error
	DebugMode  bool            `yaml:"debug_mode" json:"debug_mode,omitempty"`
	Categories map[string]bool `yaml:"categories,omitempty" json:"categories,omitempty"` // unlisted = on
}

var logLevels = []string{"debug", "info", "warn", "warning", "error"}

func (c LoggingConfig) validate() error {
	if c.Level == "" {
		return nil
	}
	for _, l := range logLevels {
		if strings.EqualFold(c.Level, l) {
			return nil
		}
	}
	return tutorerr.New("config", "Validate", tutorerr.ErrInvalidConfig,
		fmt.Sprintf("unknown logging level %q", c.Level))
}

// Verbose returns a copy with debug logging forced on when verbose is set.
func (c LoggingConfig) Verbose(verbose bool) LoggingConfig {
	if !verbose {
		return c
	}
	c.DebugMode = true
	c.Level = "debug"
	return c
}
