package config

import "time"

// Default configuration values.
const (
	DefaultDebounce      = 300 * time.Millisecond
	DefaultLogLevel      = "info"
	DefaultRatePerSecond = 2.0
	DefaultStateFile     = "state.db"
)

// Defaults returns the default settings as a flat koanf map.
func Defaults() map[string]any {
	return map[string]any{
		"config_path":             "",
		"styles_path":             "",
		"linter_path":             "",
		"filter":                  "",
		"install_vale":            false,
		"sync_on_startup":         false,
		"allow_unverified":        false,
		"debounce":                DefaultDebounce.String(),
		"metrics_addr":            "",
		"log_level":               DefaultLogLevel,
		"sources.rate_per_second": DefaultRatePerSecond,
	}
}

// ApplyDefaults fills zero values.
func (s *Settings) ApplyDefaults() {
	if s == nil {
		return
	}
	if s.Debounce <= 0 {
		s.Debounce = DefaultDebounce
	}
	if s.LogLevel == "" {
		s.LogLevel = DefaultLogLevel
	}
	if s.Sources.RatePerSecond <= 0 {
		s.Sources.RatePerSecond = DefaultRatePerSecond
	}
}
