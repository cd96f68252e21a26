// Package config provides configuration management for the vale-ls CLI.
//
// It layers CLI concerns (output mode, verbosity, project root) over the
// settings shared with the language server in internal/config.
package config

import (
	sharedcfg "github.com/leapstack-labs/vale-ls/internal/config"
)

// Settings is an alias for the shared runtime settings.
type Settings = sharedcfg.Settings

// Config holds all CLI configuration options.
type Config struct {
	Settings     `koanf:",squash"`
	Verbose      bool   `koanf:"verbose"`
	OutputFormat string `koanf:"output"`

	// ProjectRoot is the directory paths are resolved against.
	ProjectRoot string `koanf:"-"`
}

// Default configuration values.
const (
	DefaultOutput = "auto" // terminal: text, otherwise markdown
	EnvPrefix     = "VALE_LS_"
)
