// Package config provides the settings shared by the CLI and the language
// server. It is decoupled from CLI concerns so the server can decode editor
// options on top of the same values.
package config

import "time"

// Settings holds the runtime configuration.
type Settings struct {
	// ConfigPath is the linter's .vale.ini; discovered upward when empty.
	ConfigPath string `koanf:"config_path"`
	// StylesPath overrides the StylesPath declared in .vale.ini.
	StylesPath string `koanf:"styles_path"`
	// LinterPath is an explicit linter executable.
	LinterPath string `koanf:"linter_path"`
	// Filter is passed to the linter as --filter.
	Filter string `koanf:"filter"`
	// InstallVale installs the linter on startup when it is missing.
	InstallVale bool `koanf:"install_vale"`
	// SyncOnStartup installs the packages listed in .vale.ini on startup.
	SyncOnStartup bool `koanf:"sync_on_startup"`
	// AllowUnverified accepts packages without an integrity descriptor.
	AllowUnverified bool `koanf:"allow_unverified"`
	// Debounce is the quiet period before a reparse or index refresh.
	Debounce time.Duration `koanf:"debounce"`
	// MetricsAddr serves /metrics and /health when set.
	MetricsAddr string `koanf:"metrics_addr"`
	// LogLevel is debug, info, warn or error.
	LogLevel string  `koanf:"log_level"`
	Sources  Sources `koanf:"sources"`
}

// Sources configures the remote release and package host.
type Sources struct {
	ReleasesURL   string  `koanf:"releases_url"`
	LatestURL     string  `koanf:"latest_url"`
	PackagesURL   string  `koanf:"packages_url"`
	LibraryURL    string  `koanf:"library_url"`
	RatePerSecond float64 `koanf:"rate_per_second"`
}
