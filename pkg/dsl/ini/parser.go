// Package ini parses .vale.ini files into a symbol table. The parser never
// fails: a malformed line produces one diagnostic and parsing resumes on the
// next line.
package ini

import (
	"strings"

	"github.com/gobwas/glob"

	"github.com/leapstack-labs/vale-ls/pkg/dsl"
	"github.com/leapstack-labs/vale-ls/pkg/token"
)

// Entry is one "Key = Value" line.
type Entry struct {
	Key       string
	Value     string
	Values    []string // split on commas for list keys
	KeySpan   token.Span
	ValueSpan token.Span
}

// Section is the global section or one [glob] section.
type Section struct {
	Name    string // "" for the global section
	Span    token.Span
	Glob    glob.Glob // nil for the global section, special sections and bad globs
	Special bool
	Index   int // position in file order, the global section is -1
	Entries []Entry
}

// Get returns the last entry for key in the section.
func (s *Section) Get(key string) (Entry, bool) {
	for i := len(s.Entries) - 1; i >= 0; i-- {
		if s.Entries[i].Key == key {
			return s.Entries[i], true
		}
	}
	return Entry{}, false
}

// Matches reports whether the section applies to a slash-separated path.
// The global section applies everywhere.
func (s *Section) Matches(path string) bool {
	if s.Name == "" {
		return true
	}
	if s.Glob == nil {
		return false
	}
	if s.Glob.Match(path) {
		return true
	}
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return s.Glob.Match(path[i+1:])
	}
	return false
}

// Config is a parsed .vale.ini.
type Config struct {
	*dsl.Table
	Global   *Section
	Sections []*Section
}

// StylesPath returns the global StylesPath value, "" if unset.
func (c *Config) StylesPath() string {
	if e, ok := c.Global.Get(KeyStylesPath); ok {
		return e.Value
	}
	return ""
}

// Packages returns the global Packages list.
func (c *Config) Packages() []string {
	if e, ok := c.Global.Get(KeyPackages); ok {
		return e.Values
	}
	return nil
}

// All returns the global section followed by the glob sections.
func (c *Config) All() []*Section {
	return append([]*Section{c.Global}, c.Sections...)
}

// IsRuleKey reports whether key has the "Style.Rule" form.
func IsRuleKey(key string) bool {
	i := strings.IndexByte(key, '.')
	if i <= 0 || i == len(key)-1 {
		return false
	}
	return !strings.ContainsAny(key, " \t") && strings.Count(key, ".") == 1
}

type parser struct {
	cfg     *Config
	current *Section
}

// Parse parses src as the contents of file.
func Parse(file, src string) *Config {
	cfg := &Config{
		Table:  dsl.NewTable(file),
		Global: &Section{Index: -1},
	}
	p := &parser{cfg: cfg, current: cfg.Global}

	offset := 0
	for i, raw := range strings.Split(src, "\n") {
		p.line(i+1, offset, strings.TrimSuffix(raw, "\r"))
		offset += len(raw) + 1
	}
	return cfg
}

func (p *parser) line(lineNo, offset int, raw string) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || trimmed[0] == '#' || trimmed[0] == ';' {
		return
	}
	indent := strings.Index(raw, trimmed)

	if trimmed[0] == '[' {
		p.header(lineNo, offset, indent, trimmed)
		return
	}

	eq := strings.IndexByte(raw, '=')
	if eq < 0 {
		p.cfg.Report(dsl.Errorf(dsl.SchemaViolation,
			token.NewSpan(lineNo, indent+1, len(trimmed), offset),
			"malformed line").WithExpected("'Key = Value'", trimmed))
		return
	}

	key := strings.TrimSpace(raw[:eq])
	if key == "" {
		p.cfg.Report(dsl.Errorf(dsl.SchemaViolation,
			token.NewSpan(lineNo, eq+1, 1, offset),
			"missing key before '='").WithExpected("a key name", trimmed))
		return
	}
	keyCol := strings.Index(raw, key) + 1
	value := strings.TrimSpace(raw[eq+1:])
	valueCol := eq + 2
	if value != "" {
		valueCol = eq + 1 + strings.Index(raw[eq+1:], value) + 1
	}

	entry := Entry{
		Key:       key,
		Value:     value,
		KeySpan:   token.NewSpan(lineNo, keyCol, len(key), offset),
		ValueSpan: token.NewSpan(lineNo, valueCol, len(value), offset),
	}

	var refs []dsl.Symbol
	if IsListKey(key) {
		entry.Values, refs = splitList(key, value, lineNo, valueCol, offset, p.current.Name)
	} else if value != "" {
		entry.Values = []string{value}
	}

	p.current.Entries = append(p.current.Entries, entry)
	p.cfg.Add(dsl.Symbol{
		Name:    key,
		Kind:    dsl.SymbolKey,
		Span:    entry.KeySpan,
		Section: p.current.Name,
		Values:  entry.Values,
	})
	if IsRuleKey(key) {
		p.cfg.Add(dsl.Symbol{
			Name:    key,
			Kind:    dsl.SymbolRuleRef,
			Span:    entry.KeySpan,
			Section: p.current.Name,
			Key:     key,
		})
	}
	for _, ref := range refs {
		p.cfg.Add(ref)
	}

	if !p.current.Special {
		p.validate(entry)
	}
}

func (p *parser) header(lineNo, offset, indent int, trimmed string) {
	end := strings.IndexByte(trimmed, ']')
	if end < 0 {
		p.cfg.Report(dsl.Errorf(dsl.SchemaViolation,
			token.NewSpan(lineNo, indent+1, len(trimmed), offset),
			"unterminated section header").WithExpected("']'", trimmed))
		return
	}
	name := strings.TrimSpace(trimmed[1:end])
	span := token.NewSpan(lineNo, indent+1, end+1, offset)
	if name == "" {
		p.cfg.Report(dsl.Errorf(dsl.SchemaViolation, span, "empty section header").
			WithExpected("a glob such as '*.md'", trimmed[:end+1]))
		return
	}

	sec := &Section{
		Name:    name,
		Span:    span,
		Index:   len(p.cfg.Sections),
		Special: specialSections[name],
	}
	if !sec.Special {
		g, err := glob.Compile(name)
		if err != nil {
			p.cfg.Report(dsl.Errorf(dsl.SchemaViolation, span, "invalid section glob: %v", err))
		} else {
			sec.Glob = g
		}
	}
	p.cfg.Sections = append(p.cfg.Sections, sec)
	p.current = sec
	p.cfg.Add(dsl.Symbol{Name: name, Kind: dsl.SymbolSection, Span: span, Section: name})
}

func (p *parser) validate(e Entry) {
	if IsRuleKey(e.Key) {
		if !contains(RuleToggles, e.Value) {
			p.cfg.Report(dsl.Errorf(dsl.SchemaViolation, e.ValueSpan, "invalid value for %s", e.Key).
				WithExpected("one of "+strings.Join(RuleToggles, ", "), e.Value))
		}
		return
	}

	doc, known := keyDocs[e.Key]
	if !known {
		p.cfg.Report(dsl.Warnf(dsl.SchemaViolation, e.KeySpan, "unknown key %q", e.Key))
		return
	}
	if doc.GlobalOnly && p.current.Name != "" {
		p.cfg.Report(dsl.Warnf(dsl.SchemaViolation, e.KeySpan,
			"%s is only read from the global section", e.Key))
	}
	if !doc.Allows(e.Value) {
		p.cfg.Report(dsl.Errorf(dsl.SchemaViolation, e.ValueSpan, "invalid value for %s", e.Key).
			WithExpected("one of "+strings.Join(doc.Values, ", "), e.Value))
	}
}

// splitList splits a comma-separated value and emits a reference symbol per
// element for keys that name other assets.
func splitList(key, value string, lineNo, valueCol, offset int, section string) ([]string, []dsl.Symbol) {
	if value == "" {
		return nil, nil
	}
	kind, isRef := refKind(key)

	var (
		values []string
		refs   []dsl.Symbol
	)
	pos := 0
	for _, part := range strings.Split(value, ",") {
		item := strings.TrimSpace(part)
		itemCol := valueCol + pos + strings.Index(part, item)
		pos += len(part) + 1
		if item == "" {
			continue
		}
		values = append(values, item)
		if isRef {
			refs = append(refs, dsl.Symbol{
				Name:    item,
				Kind:    kind,
				Span:    token.NewSpan(lineNo, itemCol, len(item), offset),
				Section: section,
				Key:     key,
			})
		}
	}
	return values, refs
}

func refKind(key string) (dsl.SymbolKind, bool) {
	switch key {
	case KeyBasedOnStyles:
		return dsl.SymbolStyleRef, true
	case KeyVocab:
		return dsl.SymbolVocabRef, true
	case KeyPackages:
		return dsl.SymbolPackageRef, true
	}
	return 0, false
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
