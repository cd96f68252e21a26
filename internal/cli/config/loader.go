package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	sharedcfg "github.com/leapstack-labs/vale-ls/internal/config"
)

// loggerKey is used to store logger in context.
type loggerKey struct{}

// maxUpwardSearchLevels limits how far up the directory tree to search for
// a project marker.
const maxUpwardSearchLevels = 10

// flagKeys maps flag names whose config key is not the snake_case name.
var flagKeys = map[string]string{
	"vale-config": "config_path",
	"config":      "",
	"project-dir": "",
}

var (
	configFileUsed string
	currentConfig  *Config
)

// projectMarkerIn reports whether dir holds a settings or linter
// configuration file.
func projectMarkerIn(dir string) bool {
	if sharedcfg.FindConfigFile(dir) != "" {
		return true
	}
	for _, name := range sharedcfg.ValeConfigNames {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

// findProjectRootUpward searches upward from startDir for a project marker.
func findProjectRootUpward(startDir string) string {
	dir := startDir
	for i := 0; i < maxUpwardSearchLevels; i++ {
		if projectMarkerIn(dir) {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// inferProjectRoot determines the project root.
// Priority:
//  1. Explicit --project-dir flag
//  2. Directory of an explicit --config file
//  3. Search upward from CWD for .vale-ls.yaml or .vale.ini
//  4. Current working directory
func inferProjectRoot(cfgFile string, flags *pflag.FlagSet) string {
	if flags != nil && flags.Lookup("project-dir") != nil && flags.Changed("project-dir") {
		if dir, _ := flags.GetString("project-dir"); dir != "" {
			if abs, err := filepath.Abs(dir); err == nil {
				return abs
			}
			return filepath.Clean(dir)
		}
	}

	if cfgFile != "" {
		if abs, err := filepath.Abs(cfgFile); err == nil {
			return filepath.Dir(abs)
		}
	}

	cwd, err := os.Getwd()
	if err != nil || cwd == "" {
		return "."
	}
	if root := findProjectRootUpward(cwd); root != "" {
		return root
	}
	return cwd
}

// envKey turns VALE_LS_SOURCES_RELEASES_URL into sources.releases_url.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	if rest, ok := strings.CutPrefix(key, "sources_"); ok {
		return "sources." + rest
	}
	return key
}

// ResetConfig clears the loaded configuration. Used for testing.
func ResetConfig() {
	configFileUsed = ""
	currentConfig = nil
}

// LoadConfig loads configuration from defaults, the settings file,
// environment variables and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")
	projectRoot := inferProjectRoot(cfgFile, flags)

	// 1. Defaults
	defaults := sharedcfg.Defaults()
	defaults["verbose"] = false
	defaults["output"] = DefaultOutput
	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Settings file
	if cfgFile == "" {
		cfgFile = sharedcfg.FindConfigFile(projectRoot)
	}
	configFileUsed = cfgFile
	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", cfgFile, err)
		}
	}

	// 3. Environment variables (VALE_LS_ prefix)
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Explicitly set flags
	var flagPaths map[string]string
	if flags != nil {
		flagPaths = absFlagPaths(flags)
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			key, mapped := flagKeys[f.Name]
			if !mapped {
				key = strings.ReplaceAll(f.Name, "-", "_")
			}
			if key == "" {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// 5. Decode
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	cfg.ProjectRoot = projectRoot

	// Paths given as flags are relative to the working directory, the rest
	// to the project root.
	cfg.ResolvePaths(projectRoot)
	for key, p := range flagPaths {
		switch key {
		case "config_path":
			cfg.ConfigPath = p
		case "styles_path":
			cfg.StylesPath = p
		case "linter_path":
			cfg.LinterPath = p
		}
	}

	currentConfig = &cfg
	return &cfg, nil
}

// absFlagPaths returns the explicitly set path flags made absolute against
// the working directory, keyed by config key.
func absFlagPaths(flags *pflag.FlagSet) map[string]string {
	out := map[string]string{}
	for name, key := range map[string]string{
		"vale-config": "config_path",
		"styles-path": "styles_path",
		"linter-path": "linter_path",
	} {
		if flags.Lookup(name) == nil || !flags.Changed(name) {
			continue
		}
		if v, _ := flags.GetString(name); v != "" {
			if abs, err := filepath.Abs(v); err == nil {
				out[key] = abs
			}
		}
	}
	return out
}

// GetConfigFileUsed returns the path to the settings file being used, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// GetCurrentConfig returns the most recently loaded configuration.
func GetCurrentConfig() *Config {
	return currentConfig
}

// LoggerKey returns the context key used for storing the logger.
// This allows the commands package to retrieve the logger from context
// without creating an import cycle with the cli package.
func LoggerKey() any {
	return loggerKey{}
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
			return l
		}
	}
	return slog.New(slog.DiscardHandler)
}

// NewLogger builds the CLI logger. Verbose forces debug level.
func NewLogger(cfg *Config) *slog.Logger {
	level := ParseLogLevel(cfg.LogLevel)
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// ParseLogLevel maps a level name to a slog level, defaulting to info.
func ParseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// configKey is used to store the loaded config in context.
type configKey struct{}

// WithConfig returns a context carrying cfg.
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext returns the config stored by WithConfig, falling back to the
// most recently loaded one.
func FromContext(ctx context.Context) *Config {
	if ctx != nil {
		if c, ok := ctx.Value(configKey{}).(*Config); ok {
			return c
		}
	}
	return currentConfig
}
