package lsp

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/vale-ls/internal/assetsync"
	"github.com/leapstack-labs/vale-ls/internal/provider"
	"github.com/leapstack-labs/vale-ls/internal/resolve"
	"github.com/leapstack-labs/vale-ls/internal/workspace"
	"github.com/leapstack-labs/vale-ls/pkg/dsl"
	"github.com/leapstack-labs/vale-ls/pkg/dsl/ini"
	"github.com/leapstack-labs/vale-ls/pkg/dsl/rule"
	"github.com/leapstack-labs/vale-ls/pkg/selector"
)

// hover returns documentation for the symbol under the cursor.
func hover(r request, pos Position) *Hover {
	table := r.parsed.Table()
	if table == nil {
		return nil
	}
	line, col := r.doc.TokenPosition(pos)
	sym, ok := table.At(line, col)
	if !ok {
		return nil
	}

	var text string
	switch r.parsed.Dialect {
	case provider.DialectINI:
		text = iniHover(r, sym)
	case provider.DialectRule:
		text = ruleHover(r.parsed.Rule, sym)
	}
	if text == "" {
		return nil
	}
	rng := r.doc.SpanRange(sym.Span)
	return &Hover{
		Contents: MarkupContent{Kind: MarkupKindMarkdown, Value: text},
		Range:    &rng,
	}
}

func iniHover(r request, sym dsl.Symbol) string {
	switch sym.Kind {
	case dsl.SymbolKey:
		if doc, ok := ini.KeyDoc(sym.Name); ok {
			return doc.Markdown()
		}
	case dsl.SymbolRuleRef:
		return ruleRefSummary(r.snap, sym.Name)
	case dsl.SymbolSection:
		return sectionSummary(r.parsed.INI, sym.Name)
	case dsl.SymbolStyleRef:
		return styleSummary(r.snap, sym.Name)
	case dsl.SymbolVocabRef:
		return vocabSummary(r.snap, sym.Name)
	case dsl.SymbolPackageRef:
		return packageSummary(r.snap, r.catalog, sym.Name)
	}
	return ""
}

func sectionSummary(cfg *ini.Config, name string) string {
	for _, sec := range cfg.Sections {
		if sec.Name != name {
			continue
		}
		if sec.Special {
			return fmt.Sprintf("**[%s]**\n\nSpecial section.", name)
		}
		return fmt.Sprintf("**[%s]**\n\nSettings in this section apply to files matching `%s`.", name, name)
	}
	return ""
}

func styleSummary(snap *workspace.Snapshot, name string) string {
	var b strings.Builder
	if name == resolve.BuiltinStyle {
		fmt.Fprintf(&b, "**%s** (built-in style)\n\nRules:", name)
		for _, d := range resolve.BuiltinRules() {
			fmt.Fprintf(&b, "\n- `%s.%s` (%s)", name, d.Name, d.Extends)
		}
		return b.String()
	}

	pkg, ok := snap.Index.Package(name)
	if !ok {
		return fmt.Sprintf("**%s**\n\nNo style named `%s` under StylesPath.", name, name)
	}
	fmt.Fprintf(&b, "**%s** style", name)
	if pkg.Version != "" {
		fmt.Fprintf(&b, " %s", pkg.Version)
	}
	if pkg.Description != "" {
		fmt.Fprintf(&b, "\n\n%s", pkg.Description)
	}
	fmt.Fprintf(&b, "\n\n- Path: `%s`", snap.Index.Abs(pkg.Dir))
	fmt.Fprintf(&b, "\n- Rules: %d", len(snap.Index.RuleFiles(name)))
	if len(pkg.BasedOn) > 0 {
		fmt.Fprintf(&b, "\n- Based on: %s", strings.Join(pkg.BasedOn, ", "))
	}
	if len(pkg.Vocab) > 0 {
		fmt.Fprintf(&b, "\n- Vocabularies: %s", strings.Join(pkg.Vocab, ", "))
	}
	if pkg.Origin != "" {
		fmt.Fprintf(&b, "\n- Installed from: %s", pkg.Origin)
	}
	return b.String()
}

func vocabSummary(snap *workspace.Snapshot, name string) string {
	files := snap.Index.VocabFiles(name)
	if len(files) == 0 {
		return fmt.Sprintf("**%s**\n\nNo vocabulary named `%s` under StylesPath.", name, name)
	}
	v := snap.Vocab[name]
	var b strings.Builder
	fmt.Fprintf(&b, "**%s** vocabulary\n\n- %s\n- %s",
		name, plural(len(v.Accept), "accepted term"), plural(len(v.Reject), "rejected term"))
	for _, f := range files {
		fmt.Fprintf(&b, "\n- `%s`", snap.Index.Abs(f.Path))
	}
	return b.String()
}

func packageSummary(snap *workspace.Snapshot, catalog []assetsync.CatalogEntry, name string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s** package", name)
	for _, e := range catalog {
		if e.Name == name {
			if e.Description != "" {
				fmt.Fprintf(&b, "\n\n%s", e.Description)
			}
			if e.Homepage != "" {
				fmt.Fprintf(&b, "\n\n%s", e.Homepage)
			}
			break
		}
	}
	if pkg, ok := snap.Index.Package(name); ok {
		version := pkg.Version
		if version == "" {
			version = "unknown version"
		}
		fmt.Fprintf(&b, "\n\nInstalled: %s", version)
	} else {
		b.WriteString("\n\nNot installed. Run `vale-ls.sync` to install it.")
	}
	return b.String()
}

// ruleRefSummary describes the rule behind a "Style.Rule" key.
func ruleRefSummary(snap *workspace.Snapshot, name string) string {
	doc, _ := ini.KeyDoc(name)
	toggle := doc.Markdown()

	style, ruleName, _ := strings.Cut(name, ".")
	if style == resolve.BuiltinStyle {
		for _, d := range resolve.BuiltinRules() {
			if d.Name == ruleName {
				return definitionSummary(name, "", d) + "\n\n---\n\n" + toggle
			}
		}
	}
	p, ok := snap.RulePath(name)
	if !ok {
		return toggle
	}
	f := snap.Rules[p]
	if f == nil || f.Rule == nil {
		return toggle
	}
	return definitionSummary(name, snap.Index.Abs(p), f.Rule) + "\n\n---\n\n" + toggle
}

func definitionSummary(name, path string, d *rule.Definition) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s**", name)
	if d.Extends != "" {
		fmt.Fprintf(&b, " (%s)", d.Extends)
	}
	if d.Message != "" {
		fmt.Fprintf(&b, "\n\n> %s", d.Message)
	}
	fmt.Fprintf(&b, "\n\n- Level: %s", d.EffectiveLevel())
	if path != "" {
		fmt.Fprintf(&b, "\n- Path: `%s`", path)
	}
	if d.Link != "" {
		fmt.Fprintf(&b, "\n- Link: %s", d.Link)
	}
	return b.String()
}

func ruleHover(f *rule.File, sym dsl.Symbol) string {
	if f == nil || f.Rule == nil {
		return ""
	}
	def := f.Rule

	switch sym.Kind {
	case dsl.SymbolKey:
		doc, ok := rule.KeyDoc(def.Extends, sym.Name)
		if !ok {
			return ""
		}
		text := doc.Markdown()
		if sym.Name == "tokens" && def.Sequence != nil {
			text += "\n\n**Matches**\n\n" + def.Sequence.Explain()
		}
		return text
	case dsl.SymbolToken:
		if def.Sequence == nil || len(sym.Values) == 0 {
			return ""
		}
		return fmt.Sprintf("**Token %s** of the sequence\n\n%s", sym.Values[0], def.Sequence.Explain())
	case dsl.SymbolScope:
		return scopeSummary(sym.Name)
	case dsl.SymbolLink:
		return fmt.Sprintf("**link**\n\nShown with every alert of this rule: %s", sym.Name)
	}
	return ""
}

// scopeSummary documents every known leaf named in a scope item.
func scopeSummary(item string) string {
	docs := map[string]string{}
	for _, l := range selector.KnownLeaves() {
		docs[l.Name] = l.Description
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**scope** `%s`", item)
	for _, word := range strings.FieldsFunc(item, func(r rune) bool { return r == ' ' || r == '&' || r == '~' }) {
		if d, ok := docs[word]; ok {
			fmt.Fprintf(&b, "\n\n- `%s`: %s", word, d)
		}
	}
	return b.String()
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
