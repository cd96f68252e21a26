package workspace

import (
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/leapstack-labs/vale-ls/internal/assets"
	"github.com/leapstack-labs/vale-ls/internal/observability"
	"github.com/leapstack-labs/vale-ls/internal/resolve"
	"github.com/leapstack-labs/vale-ls/pkg/dsl"
	"github.com/leapstack-labs/vale-ls/pkg/dsl/ini"
	"github.com/leapstack-labs/vale-ls/pkg/dsl/rule"
)

// Snapshot is an immutable view of the configuration, the StylesPath index
// and every parsed rule file. Resolution results are memoised per scope.
type Snapshot struct {
	Seq        int64
	Root       string
	ConfigPath string      // "" when no .vale.ini was found
	Config     *ini.Config // nil when ConfigPath is ""
	StylesPath string      // "" when none is configured
	Index      *assets.Index
	Rules      map[string]*rule.File // keyed by relative asset path
	Vocab      map[string]resolve.Vocabulary

	resolved  sync.Map // scope -> *resolve.Config
	checkOnce sync.Once
	check     []dsl.Diagnostic
}

func emptySnapshot(root string) *Snapshot {
	return &Snapshot{
		Root:  root,
		Index: assets.Empty(""),
		Rules: map[string]*rule.File{},
		Vocab: map[string]resolve.Vocabulary{},
	}
}

// Input returns the resolution input held by the snapshot.
func (s *Snapshot) Input() resolve.Input {
	return resolve.Input{Config: s.Config, Index: s.Index, Rules: s.Rules, Vocab: s.Vocab}
}

// Scope returns the slash-separated path of file relative to the
// configuration's directory. Files outside it are matched by base name.
func (s *Snapshot) Scope(file string) string {
	base := s.Root
	if s.ConfigPath != "" {
		base = filepath.Dir(s.ConfigPath)
	}
	if !filepath.IsAbs(file) || base == "" {
		return filepath.ToSlash(file)
	}
	rel, err := filepath.Rel(base, file)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.Base(file)
	}
	return filepath.ToSlash(rel)
}

// Resolve returns the effective configuration for scope.
func (s *Snapshot) Resolve(scope string) *resolve.Config {
	if c, ok := s.resolved.Load(scope); ok {
		return c.(*resolve.Config)
	}
	start := time.Now()
	c := resolve.Resolve(s.Input(), scope)
	observability.ResolveDuration.Observe(time.Since(start).Seconds())
	actual, _ := s.resolved.LoadOrStore(scope, c)
	return actual.(*resolve.Config)
}

// ConfigDiagnostics returns the parse and resolution diagnostics of the
// configuration file.
func (s *Snapshot) ConfigDiagnostics() []dsl.Diagnostic {
	if s.Config == nil {
		return nil
	}
	s.checkOnce.Do(func() {
		s.check = append(append([]dsl.Diagnostic(nil), s.Config.Diagnostics...), resolve.Check(s.Input())...)
	})
	return s.check
}

// RulePath returns the relative path of the rule file behind a qualified
// "Style.Rule" name.
func (s *Snapshot) RulePath(name string) (string, bool) {
	style, ruleName, ok := strings.Cut(name, ".")
	if !ok {
		return "", false
	}
	for _, a := range s.Index.RuleFiles(style) {
		if rule.NameFromPath(a.Path) == ruleName {
			return a.Path, true
		}
	}
	return "", false
}

// RuleFile returns the parsed rule file at a path, which may be absolute.
func (s *Snapshot) RuleFile(p string) (*rule.File, string, bool) {
	rel, ok := s.Index.Rel(p)
	if !ok {
		return nil, "", false
	}
	f, ok := s.Rules[rel]
	return f, rel, ok
}

// InStylesPath reports whether an absolute path lies under StylesPath.
func (s *Snapshot) InStylesPath(p string) bool {
	if s.StylesPath == "" || !filepath.IsAbs(p) {
		return false
	}
	_, ok := s.Index.Rel(p)
	return ok
}
