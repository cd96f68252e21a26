package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromDir(t *testing.T) {
	t.Run("defaults without file", func(t *testing.T) {
		s, err := LoadFromDir(t.TempDir())
		require.NoError(t, err)
		assert.Equal(t, DefaultDebounce, s.Debounce)
		assert.Equal(t, DefaultLogLevel, s.LogLevel)
		assert.InDelta(t, DefaultRatePerSecond, s.Sources.RatePerSecond, 0.001)
		assert.Empty(t, s.ConfigPath)
	})

	t.Run("file overrides defaults", func(t *testing.T) {
		dir := t.TempDir()
		content := `config_path: docs/.vale.ini
filter: .Level in ["error"]
debounce: 1s
sync_on_startup: true
sources:
  library_url: https://example.com/library.json
`
		require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(content), 0o644))

		s, err := LoadFromDir(dir)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "docs", ".vale.ini"), s.ConfigPath)
		assert.Equal(t, `.Level in ["error"]`, s.Filter)
		assert.Equal(t, time.Second, s.Debounce)
		assert.True(t, s.SyncOnStartup)
		assert.Equal(t, "https://example.com/library.json", s.Sources.LibraryURL)
		assert.Equal(t, DefaultLogLevel, s.LogLevel)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileNameAlt), []byte("filter: [\n"), 0o644))
		_, err := LoadFromDir(dir)
		assert.Error(t, err)
	})
}

func TestFindValeConfig(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "docs", "guide")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	assert.Empty(t, FindValeConfig(nested))

	require.NoError(t, os.WriteFile(filepath.Join(root, "_vale.ini"), []byte("StylesPath = styles\n"), 0o644))
	assert.Equal(t, filepath.Join(root, "_vale.ini"), FindValeConfig(nested))

	require.NoError(t, os.WriteFile(filepath.Join(root, "docs", ".vale.ini"), []byte(""), 0o644))
	assert.Equal(t, filepath.Join(root, "docs", ".vale.ini"), FindValeConfig(nested))
}

func TestWithClientOptions(t *testing.T) {
	base := Settings{ConfigPath: "/a/.vale.ini", Filter: "x", Debounce: DefaultDebounce}

	tests := []struct {
		name    string
		raw     any
		want    Settings
		wantErr bool
	}{
		{
			name: "nil keeps settings",
			raw:  nil,
			want: base,
		},
		{
			name: "camel case keys",
			raw: map[string]any{
				"configPath":    "/b/.vale.ini",
				"installVale":   true,
				"syncOnStartup": "true",
				"valePath":      "/usr/bin/vale",
				"debounce":      "50ms",
				"unknown":       1,
			},
			want: Settings{
				ConfigPath:    "/b/.vale.ini",
				Filter:        "x",
				LinterPath:    "/usr/bin/vale",
				InstallVale:   true,
				SyncOnStartup: true,
				Debounce:      50 * time.Millisecond,
			},
		},
		{
			name:    "wrong type",
			raw:     map[string]any{"installVale": map[string]any{"on": 1}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := base.WithClientOptions(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
