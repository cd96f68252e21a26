package config

import (
	"fmt"
	"os"
	"strings"
)

var validLogLevels = []string{"", "debug", "info", "warn", "warning", "error"}

var validOutputs = []string{"", "auto", "text", "markdown", "json"}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if !contains(validLogLevels, strings.ToLower(c.LogLevel)) {
		return fmt.Errorf("invalid log_level %q: must be one of %s", c.LogLevel, strings.Join(validLogLevels, ", "))
	}
	if !contains(validOutputs, c.OutputFormat) {
		return fmt.Errorf("invalid output %q: must be one of auto, text, markdown, json", c.OutputFormat)
	}
	if c.Debounce < 0 {
		return fmt.Errorf("debounce must not be negative, got %s", c.Debounce)
	}
	if c.Sources.RatePerSecond < 0 {
		return fmt.Errorf("sources.rate_per_second must not be negative, got %g", c.Sources.RatePerSecond)
	}
	return nil
}

// ValidateStylesPath checks that a configured StylesPath exists.
func (c *Config) ValidateStylesPath() error {
	if c.StylesPath == "" {
		return nil
	}
	if _, err := os.Stat(c.StylesPath); os.IsNotExist(err) {
		return fmt.Errorf("styles path does not exist: %s\nHint: create the directory or use --styles-path to specify a different path", c.StylesPath)
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
