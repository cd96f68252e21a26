// Package resolve computes the effective configuration for a file: which
// rules are active, at what level, and which vocabulary terms apply.
//
// Style inheritance is expanded by interpreting a list of explicit steps with
// a stack instead of recursing through packages, so a cycle is detected when
// a step names a package already on the stack.
package resolve

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"github.com/leapstack-labs/vale-ls/internal/assets"
	"github.com/leapstack-labs/vale-ls/pkg/dsl"
	"github.com/leapstack-labs/vale-ls/pkg/dsl/ini"
	"github.com/leapstack-labs/vale-ls/pkg/dsl/rule"
	"github.com/leapstack-labs/vale-ls/pkg/token"
)

// Vocabulary is a pair of term lists.
type Vocabulary struct {
	Accept []string
	Reject []string
}

// Input is everything resolution reads. It is never modified.
type Input struct {
	Config *ini.Config
	Index  *assets.Index
	Rules  map[string]*rule.File // keyed by relative asset path
	Vocab  map[string]Vocabulary // keyed by vocabulary name
}

// EffectiveRule is an enabled rule after overrides.
type EffectiveRule struct {
	Name       string // Style.Rule
	Style      string
	Level      string
	Path       string // relative rule file path, "" for built-in rules
	Definition *rule.Definition
}

// Config is the resolved configuration for one file scope. It is an
// immutable snapshot and refers to packages by name only.
type Config struct {
	Scope         string
	Sections      []string
	Styles        []string
	Vocabularies  []string
	MinAlertLevel string
	Rules         []EffectiveRule
	Vocab         Vocabulary
	Diagnostics   []dsl.Diagnostic
}

// Rule returns an effective rule by its qualified name.
func (c *Config) Rule(name string) (EffectiveRule, bool) {
	i := sort.Search(len(c.Rules), func(i int) bool { return c.Rules[i].Name >= name })
	if i < len(c.Rules) && c.Rules[i].Name == name {
		return c.Rules[i], true
	}
	return EffectiveRule{}, false
}

type stepKind int

const (
	includeStyle stepKind = iota
	includeVocab
)

// step is one edge of the inheritance graph: "from" pulls in "name".
type step struct {
	kind stepKind
	name string
	from string // "" for edges declared in the config file
	span token.Span
}

type frame struct {
	name  string
	edges []step
	next  int
}

type resolver struct {
	in       Input
	out      *Config
	rules    map[string]EffectiveRule
	vocabs   []string
	seenVoc  map[string]bool
	done     map[string]bool
	onStack  map[string]bool
	reported map[string]bool
}

// Resolve computes the effective configuration for scope, a path relative
// to the config file's directory. Resolving the same input twice yields
// equal results.
func Resolve(in Input, scope string) *Config {
	var sections []*ini.Section
	if in.Config != nil {
		sections = Sections(in.Config, scope)
	}
	return resolveSections(in, scope, sections)
}

// Check resolves every section of the configuration as if it applied and
// returns the distinct diagnostics, so problems in sections that match no
// open file are still reported.
func Check(in Input) []dsl.Diagnostic {
	if in.Config == nil {
		return nil
	}
	type key struct {
		kind dsl.DiagnosticKind
		span token.Span
		msg  string
	}
	seen := map[key]bool{}
	var out []dsl.Diagnostic
	collect := func(c *Config) {
		for _, d := range c.Diagnostics {
			k := key{d.Kind, d.Span, d.Message}
			if !seen[k] {
				seen[k] = true
				out = append(out, d)
			}
		}
	}
	collect(resolveSections(in, "", []*ini.Section{in.Config.Global}))
	for _, sec := range in.Config.Sections {
		if sec.Special {
			continue
		}
		collect(resolveSections(in, sec.Name, []*ini.Section{in.Config.Global, sec}))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Span.Start.Before(out[j].Span.Start) })
	return out
}

func resolveSections(in Input, scope string, sections []*ini.Section) *Config {
	r := &resolver{
		in:       in,
		out:      &Config{Scope: scope, MinAlertLevel: rule.DefaultLevel},
		rules:    map[string]EffectiveRule{},
		seenVoc:  map[string]bool{},
		done:     map[string]bool{},
		onStack:  map[string]bool{},
		reported: map[string]bool{},
	}
	if in.Index == nil {
		r.in.Index = assets.Empty("")
	}
	if in.Config == nil {
		return r.out
	}

	var (
		roots     []step
		seenRoot  = map[string]bool{}
		overrides = map[string]overrideEntry{}
		order     []string
	)
	for _, sec := range sections {
		name := sec.Name
		if name == "" {
			name = "global"
		}
		r.out.Sections = append(r.out.Sections, name)

		for _, e := range sec.Entries {
			switch {
			case e.Key == ini.KeyBasedOnStyles || e.Key == ini.KeyVocab:
				kind := includeStyle
				if e.Key == ini.KeyVocab {
					kind = includeVocab
				}
				for _, ref := range r.refs(sec, e) {
					key := e.Key + "\x00" + ref.Name
					if seenRoot[key] {
						continue
					}
					seenRoot[key] = true
					roots = append(roots, step{kind: kind, name: ref.Name, span: ref.Span})
				}
			case e.Key == ini.KeyMinAlertLevel && dsl.IsLevel(e.Value):
				r.out.MinAlertLevel = e.Value
			case ini.IsRuleKey(e.Key):
				if _, ok := overrides[e.Key]; !ok {
					order = append(order, e.Key)
				}
				overrides[e.Key] = overrideEntry{value: e.Value, span: e.KeySpan}
			}
		}
	}

	for _, s := range roots {
		if s.kind == includeVocab {
			r.includeVocab(s)
			continue
		}
		r.run(s)
	}
	for _, name := range order {
		r.override(name, overrides[name])
	}

	r.finish()
	return r.out
}

func (r *resolver) refs(sec *ini.Section, e ini.Entry) []dsl.Symbol {
	var out []dsl.Symbol
	for _, sym := range r.in.Config.Symbols {
		if !sym.Kind.IsReference() || sym.Key != e.Key || sym.Section != sec.Name {
			continue
		}
		if sym.Span.Start.Line == e.ValueSpan.Start.Line {
			out = append(out, sym)
		}
	}
	return out
}

// run interprets the inheritance steps reachable from root.
func (r *resolver) run(root step) {
	if r.done[root.name] {
		return
	}
	if !r.enter(root, root) {
		return
	}
	stack := []*frame{r.frameFor(root.name)}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		if top.next >= len(top.edges) {
			stack = stack[:len(stack)-1]
			r.onStack[top.name] = false
			r.done[top.name] = true
			continue
		}
		e := top.edges[top.next]
		top.next++

		switch {
		case e.kind == includeVocab:
			r.includeVocab(step{kind: includeVocab, name: e.name, from: e.from, span: root.span})
		case r.onStack[e.name]:
			r.cycle(stack, e, root)
		case r.done[e.name]:
		default:
			if r.enter(e, root) {
				stack = append(stack, r.frameFor(e.name))
			}
		}
	}
}

// enter includes a style's own rules and marks it on the stack. It reports
// false when the style does not exist.
func (r *resolver) enter(s, root step) bool {
	if s.name == BuiltinStyle {
		if !r.done[s.name] {
			for _, def := range builtinRules {
				r.addRule(BuiltinStyle, "", def)
			}
			r.out.Styles = append(r.out.Styles, BuiltinStyle)
		}
		r.done[s.name] = true
		return false
	}
	if _, ok := r.in.Index.Package(s.name); !ok {
		msg := "style %q not found in StylesPath"
		args := []any{s.name}
		if s.from != "" {
			msg = "style %q (based on by %q) not found in StylesPath"
			args = append(args, s.from)
		}
		r.report(dsl.Errorf(dsl.UnresolvedReference, root.span, msg, args...))
		r.done[s.name] = true
		return false
	}
	r.onStack[s.name] = true
	r.out.Styles = append(r.out.Styles, s.name)
	for _, a := range r.in.Index.RuleFiles(s.name) {
		if f, ok := r.in.Rules[a.Path]; ok && f.Rule != nil {
			r.addRule(s.name, a.Path, f.Rule)
		}
	}
	return true
}

func (r *resolver) frameFor(name string) *frame {
	pkg, _ := r.in.Index.Package(name)
	f := &frame{name: name}
	for _, b := range pkg.BasedOn {
		f.edges = append(f.edges, step{kind: includeStyle, name: b, from: name})
	}
	for _, v := range pkg.Vocab {
		f.edges = append(f.edges, step{kind: includeVocab, name: v, from: name})
	}
	return f
}

// cycle reports a back edge once per distinct cycle and drops it.
func (r *resolver) cycle(stack []*frame, e step, root step) {
	var path []string
	for i := len(stack) - 1; i >= 0; i-- {
		path = append([]string{stack[i].name}, path...)
		if stack[i].name == e.name {
			break
		}
	}
	members := append([]string(nil), path...)
	sort.Strings(members)
	key := strings.Join(members, "\x00")
	if r.reported[key] {
		return
	}
	r.reported[key] = true
	r.report(dsl.Errorf(dsl.CyclicInheritance, root.span,
		"cyclic inheritance: %s -> %s", strings.Join(path, " -> "), e.name))
}

func (r *resolver) includeVocab(s step) {
	if r.seenVoc[s.name] {
		return
	}
	r.seenVoc[s.name] = true
	if _, ok := r.in.Vocab[s.name]; !ok && len(r.in.Index.VocabFiles(s.name)) == 0 {
		msg := "vocabulary %q not found in StylesPath"
		args := []any{s.name}
		if s.from != "" {
			msg = "vocabulary %q (used by %q) not found in StylesPath"
			args = append(args, s.from)
		}
		r.report(dsl.Errorf(dsl.UnresolvedReference, s.span, msg, args...))
		return
	}
	r.vocabs = append(r.vocabs, s.name)
}

type overrideEntry struct {
	value string
	span  token.Span
}

func (r *resolver) override(name string, o overrideEntry) {
	if o.value == "NO" {
		delete(r.rules, name)
		return
	}
	if !(o.value == "YES" || dsl.IsLevel(o.value)) {
		return
	}
	er, ok := r.rules[name]
	if !ok {
		er, ok = r.lookupRule(name)
		if !ok {
			r.report(dsl.Errorf(dsl.UnresolvedReference, o.span, "rule %q not found in StylesPath", name))
			return
		}
	}
	if o.value != "YES" {
		er.Level = o.value
	}
	r.rules[name] = er
}

func (r *resolver) lookupRule(name string) (EffectiveRule, bool) {
	style, ruleName, _ := strings.Cut(name, ".")
	if style == BuiltinStyle {
		for _, def := range builtinRules {
			if def.Name == ruleName {
				return EffectiveRule{Name: name, Style: style, Level: def.EffectiveLevel(), Definition: def}, true
			}
		}
		return EffectiveRule{}, false
	}
	for _, a := range r.in.Index.RuleFiles(style) {
		f, ok := r.in.Rules[a.Path]
		if ok && f.Rule != nil && f.Rule.Name == ruleName {
			return EffectiveRule{Name: name, Style: style, Level: f.Rule.EffectiveLevel(), Path: a.Path, Definition: f.Rule}, true
		}
	}
	return EffectiveRule{}, false
}

func (r *resolver) addRule(style, path string, def *rule.Definition) {
	name := style + "." + def.Name
	if _, exists := r.rules[name]; exists {
		return
	}
	r.rules[name] = EffectiveRule{
		Name:       name,
		Style:      style,
		Level:      def.EffectiveLevel(),
		Path:       path,
		Definition: def,
	}
}

func (r *resolver) report(d dsl.Diagnostic) {
	if r.in.Config != nil {
		d.File = r.in.Config.File
	}
	r.out.Diagnostics = append(r.out.Diagnostics, d)
}

// finish sorts rules and merges vocabularies as a union. Terms are
// de-duplicated case-insensitively, keeping the first spelling seen.
func (r *resolver) finish() {
	for _, er := range r.rules {
		r.out.Rules = append(r.out.Rules, er)
	}
	sort.Slice(r.out.Rules, func(i, j int) bool { return r.out.Rules[i].Name < r.out.Rules[j].Name })

	r.out.Vocabularies = r.vocabs
	fold := cases.Fold()
	accept, reject := map[string]bool{}, map[string]bool{}
	for _, name := range r.vocabs {
		v := r.in.Vocab[name]
		r.out.Vocab.Accept = appendUnique(r.out.Vocab.Accept, v.Accept, accept, fold)
		r.out.Vocab.Reject = appendUnique(r.out.Vocab.Reject, v.Reject, reject, fold)
	}
	sort.Strings(r.out.Vocab.Accept)
	sort.Strings(r.out.Vocab.Reject)
}

func appendUnique(dst, terms []string, seen map[string]bool, fold cases.Caser) []string {
	for _, t := range terms {
		k := fold.String(t)
		if seen[k] {
			continue
		}
		seen[k] = true
		dst = append(dst, t)
	}
	return dst
}
