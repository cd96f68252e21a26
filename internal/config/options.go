package config

import (
	"fmt"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

// ClientOptions are the initializationOptions an editor may send. Unset
// fields keep the loaded settings.
type ClientOptions struct {
	ConfigPath    *string        `mapstructure:"configPath"`
	StylesPath    *string        `mapstructure:"stylesPath"`
	ValePath      *string        `mapstructure:"valePath"`
	Filter        *string        `mapstructure:"filter"`
	InstallVale   *bool          `mapstructure:"installVale"`
	SyncOnStartup *bool          `mapstructure:"syncOnStartup"`
	Debounce      *time.Duration `mapstructure:"debounce"`
}

// WithClientOptions decodes raw initializationOptions and applies them on
// top of s. Unknown keys are ignored.
func (s Settings) WithClientOptions(raw any) (Settings, error) {
	if raw == nil {
		return s, nil
	}
	var opts ClientOptions
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &opts,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return s, err
	}
	if err := dec.Decode(raw); err != nil {
		return s, fmt.Errorf("invalid initialization options: %w", err)
	}

	if opts.ConfigPath != nil {
		s.ConfigPath = *opts.ConfigPath
	}
	if opts.StylesPath != nil {
		s.StylesPath = *opts.StylesPath
	}
	if opts.ValePath != nil {
		s.LinterPath = *opts.ValePath
	}
	if opts.Filter != nil {
		s.Filter = *opts.Filter
	}
	if opts.InstallVale != nil {
		s.InstallVale = *opts.InstallVale
	}
	if opts.SyncOnStartup != nil {
		s.SyncOnStartup = *opts.SyncOnStartup
	}
	if opts.Debounce != nil && *opts.Debounce > 0 {
		s.Debounce = *opts.Debounce
	}
	return s, nil
}
