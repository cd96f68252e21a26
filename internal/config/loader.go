package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// ConfigFileName is the name of the settings file.
const ConfigFileName = ".vale-ls.yaml"

// ConfigFileNameAlt is the alternate name of the settings file.
const ConfigFileNameAlt = ".vale-ls.yml"

// ValeConfigNames are the linter configuration file names, in lookup order.
var ValeConfigNames = []string{".vale.ini", "_vale.ini", "vale.ini"}

// LoadFromDir loads Settings from the settings file in dir, on top of the
// defaults. A missing file is not an error.
func LoadFromDir(dir string) (*Settings, error) {
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if p := FindConfigFile(dir); p != "" {
		if err := k.Load(file.Provider(p), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", p, err)
		}
	}

	var s Settings
	if err := k.Unmarshal("", &s); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	s.ApplyDefaults()
	s.ResolvePaths(dir)
	return &s, nil
}

// ResolvePaths makes relative paths absolute against base.
func (s *Settings) ResolvePaths(base string) {
	s.ConfigPath = resolvePathRelativeTo(s.ConfigPath, base)
	s.StylesPath = resolvePathRelativeTo(s.StylesPath, base)
	s.LinterPath = resolvePathRelativeTo(s.LinterPath, base)
}

func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// FindConfigFile returns the settings file in dir, or "".
func FindConfigFile(dir string) string {
	for _, name := range []string{ConfigFileName, ConfigFileNameAlt} {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// FindValeConfig walks up from startDir to the first directory holding a
// linter configuration file and returns its path, or "".
func FindValeConfig(startDir string) string {
	dir := startDir
	for {
		for _, name := range ValeConfigNames {
			p := filepath.Join(dir, name)
			if info, err := os.Stat(p); err == nil && !info.IsDir() {
				return p
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
