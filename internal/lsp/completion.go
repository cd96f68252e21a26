package lsp

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/leapstack-labs/vale-ls/internal/provider"
	"github.com/leapstack-labs/vale-ls/internal/resolve"
	"github.com/leapstack-labs/vale-ls/internal/workspace"
	"github.com/leapstack-labs/vale-ls/pkg/dsl"
	"github.com/leapstack-labs/vale-ls/pkg/dsl/ini"
	"github.com/leapstack-labs/vale-ls/pkg/dsl/rule"
	"github.com/leapstack-labs/vale-ls/pkg/selector"
	"github.com/leapstack-labs/vale-ls/pkg/sequence"
)

// CompletionContextType describes what kind of completion context we're in.
type CompletionContextType int

// Completion context type constants.
const (
	ContextUnknown   CompletionContextType = iota
	ContextINIKey                          // Key position in .vale.ini
	ContextINIValue                        // After "Key ="
	ContextRuleKey                         // Top-level key position in a rule file
	ContextRuleValue                       // After "key:" or in a "- " list item
)

// actionNames are the fix actions a rule may declare.
var actionNames = []string{"suggest", "replace", "remove", "edit"}

// completionContext is the result of analysing the text before the cursor.
type completionContext struct {
	Type    CompletionContextType
	Key     string   // key whose value is completed
	Parent  string   // enclosing top-level key in a rule file
	Section string   // enclosing INI section, "" for the global section
	Prefix  string   // typed text being completed
	Listed  []string // values already present in the list being completed
	Start   int      // byte offset where Prefix starts
	Cursor  int      // byte offset of the cursor
}

// complete returns completion items for the given position.
func complete(r request, pos Position) []CompletionItem {
	ctx := detectContext(r.doc, r.parsed, pos)
	if ctx.Type == ContextUnknown {
		return nil
	}

	var candidates []CompletionItem
	switch ctx.Type {
	case ContextINIKey:
		candidates = iniKeyCompletions(r.snap, ctx)
	case ContextINIValue:
		candidates = iniValueCompletions(r, ctx)
	case ContextRuleKey:
		candidates = ruleKeyCompletions(r.parsed)
	case ContextRuleValue:
		candidates = ruleValueCompletions(ctx)
	}
	return filterItems(r.doc, candidates, ctx)
}

// detectContext analyses the line before the cursor.
func detectContext(doc *Document, parsed *provider.ParsedDocument, pos Position) completionContext {
	cursor := doc.PositionToOffset(pos)
	line := int(doc.OffsetToPosition(cursor).Line)
	before := doc.Content[doc.Lines[line]:cursor]

	switch parsed.Dialect {
	case provider.DialectINI:
		return iniContext(doc, line, before, cursor)
	case provider.DialectRule:
		return ruleContext(doc, line, before, cursor)
	}
	return completionContext{}
}

func iniContext(doc *Document, line int, before string, cursor int) completionContext {
	trimmed := strings.TrimLeft(before, " \t")
	if strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, ";") {
		return completionContext{}
	}
	ctx := completionContext{Section: iniSection(doc, line), Cursor: cursor}

	eq := strings.IndexByte(before, '=')
	if eq < 0 {
		ctx.Type = ContextINIKey
		ctx.Prefix = trimmed
		ctx.Start = cursor - len(trimmed)
		return ctx
	}

	ctx.Type = ContextINIValue
	ctx.Key = strings.TrimSpace(before[:eq])
	value := before[eq+1:]
	if ini.IsListKey(ctx.Key) {
		parts := strings.Split(value, ",")
		for _, p := range parts[:len(parts)-1] {
			if p = strings.TrimSpace(p); p != "" {
				ctx.Listed = append(ctx.Listed, p)
			}
		}
		value = parts[len(parts)-1]
		// Values after the cursor are listed too.
		rest := doc.GetLine(line)[len(before):]
		for _, p := range strings.Split(rest, ",")[1:] {
			if p = strings.TrimSpace(p); p != "" {
				ctx.Listed = append(ctx.Listed, p)
			}
		}
	}
	ctx.Prefix = strings.TrimLeft(value, " \t")
	ctx.Start = cursor - len(ctx.Prefix)
	return ctx
}

// iniSection finds the section header above line.
func iniSection(doc *Document, line int) string {
	for i := line - 1; i >= 0; i-- {
		l := strings.TrimSpace(doc.GetLine(i))
		if strings.HasPrefix(l, "[") {
			if end := strings.IndexByte(l, ']'); end > 0 {
				return strings.TrimSpace(l[1:end])
			}
		}
	}
	return ""
}

func ruleContext(doc *Document, line int, before string, cursor int) completionContext {
	ctx := completionContext{Cursor: cursor}
	trimmed := strings.TrimLeft(before, " \t")
	indented := len(trimmed) < len(before)
	if strings.HasPrefix(trimmed, "#") {
		return completionContext{}
	}

	// "- item" under a key, or "- tag: X" inside a sequence
	item, isItem := strings.CutPrefix(trimmed, "-")
	if isItem {
		trimmed = strings.TrimLeft(item, " \t")
	}

	colon := strings.IndexByte(trimmed, ':')
	switch {
	case colon >= 0:
		ctx.Type = ContextRuleValue
		ctx.Key = strings.TrimSpace(trimmed[:colon])
		ctx.Prefix = strings.TrimLeft(trimmed[colon+1:], " \t")
		if !indented && !isItem {
			ctx.Parent = ctx.Key
		} else {
			ctx.Parent = ruleParent(doc, line)
		}
	case isItem:
		ctx.Type = ContextRuleValue
		ctx.Parent = ruleParent(doc, line)
		ctx.Key = ctx.Parent
		ctx.Prefix = trimmed
	case !indented:
		ctx.Type = ContextRuleKey
		ctx.Prefix = trimmed
	default:
		return completionContext{}
	}

	switch {
	case ctx.Key == "tag":
		// "VB|VBN": complete the last alternative
		if i := strings.LastIndexByte(ctx.Prefix, '|'); i >= 0 {
			ctx.Prefix = ctx.Prefix[i+1:]
		}
	case ctx.Parent == "scope":
		// "heading & ~li" or "heading,li": complete the last leaf
		if i := strings.LastIndexAny(ctx.Prefix, " &~,|"); i >= 0 {
			ctx.Prefix = ctx.Prefix[i+1:]
		}
	}
	ctx.Prefix = strings.Trim(ctx.Prefix, `"'`)
	ctx.Start = cursor - len(ctx.Prefix)
	return ctx
}

// ruleParent finds the top-level key that owns line.
func ruleParent(doc *Document, line int) string {
	for i := line - 1; i >= 0; i-- {
		l := doc.GetLine(i)
		if l == "" || l[0] == ' ' || l[0] == '\t' || l[0] == '-' || l[0] == '#' {
			continue
		}
		if key, _, ok := strings.Cut(l, ":"); ok {
			return strings.TrimSpace(key)
		}
		return ""
	}
	return ""
}

func iniKeyCompletions(snap *workspace.Snapshot, ctx completionContext) []CompletionItem {
	var items []CompletionItem
	for _, k := range ini.Keys() {
		doc, _ := ini.KeyDoc(k)
		if doc.GlobalOnly && ctx.Section != "" {
			continue
		}
		items = append(items, CompletionItem{
			Label:         k,
			Kind:          CompletionItemKindProperty,
			Detail:        "key",
			Documentation: doc.Description,
		})
	}
	if ctx.Section == "" || !strings.Contains(ctx.Prefix, ".") {
		return items
	}

	// Style.Rule toggles
	for _, d := range resolve.BuiltinRules() {
		items = append(items, CompletionItem{
			Label:  resolve.BuiltinStyle + "." + d.Name,
			Kind:   CompletionItemKindReference,
			Detail: "built-in rule",
		})
	}
	for _, pkg := range snap.Index.Packages() {
		for _, a := range snap.Index.RuleFiles(pkg.Name) {
			detail := "rule"
			if f := snap.Rules[a.Path]; f != nil && f.Rule != nil && f.Rule.Extends != "" {
				detail = f.Rule.Extends + " rule"
			}
			items = append(items, CompletionItem{
				Label:  pkg.Name + "." + rule.NameFromPath(a.Path),
				Kind:   CompletionItemKindReference,
				Detail: detail,
			})
		}
	}
	return items
}

func iniValueCompletions(r request, ctx completionContext) []CompletionItem {
	switch {
	case ctx.Key == ini.KeyBasedOnStyles:
		items := []CompletionItem{{
			Label:         resolve.BuiltinStyle,
			Kind:          CompletionItemKindModule,
			Detail:        "built-in style",
			Documentation: "The spelling, terminology and repetition checks built into Vale.",
		}}
		for _, pkg := range r.snap.Index.Packages() {
			items = append(items, CompletionItem{
				Label:         pkg.Name,
				Kind:          CompletionItemKindModule,
				Detail:        packageDetail(r.snap, pkg.Name),
				Documentation: pkg.Description,
			})
		}
		return items
	case ctx.Key == ini.KeyVocab:
		var items []CompletionItem
		for _, name := range r.snap.Index.Vocabularies() {
			v := r.snap.Vocab[name]
			items = append(items, CompletionItem{
				Label:  name,
				Kind:   CompletionItemKindFolder,
				Detail: vocabDetail(v),
			})
		}
		return items
	case ctx.Key == ini.KeyPackages:
		var items []CompletionItem
		for _, e := range r.catalog {
			items = append(items, CompletionItem{
				Label:         e.Name,
				Kind:          CompletionItemKindModule,
				Detail:        "package",
				Documentation: e.Description,
			})
		}
		return items
	case ctx.Key == ini.KeyMinAlertLevel:
		return valueItems(dsl.Levels, "level")
	case ctx.Key == ini.KeyIgnoredScopes:
		return valueItems(ini.InlineScopes, "inline tag")
	case ctx.Key == ini.KeySkippedScopes:
		return valueItems(ini.BlockScopes, "block tag")
	case ini.IsRuleKey(ctx.Key):
		return valueItems(ini.RuleToggles, "rule toggle")
	}
	if doc, ok := ini.KeyDoc(ctx.Key); ok && len(doc.Values) > 0 {
		return valueItems(doc.Values, ctx.Key)
	}
	return nil
}

func ruleKeyCompletions(parsed *provider.ParsedDocument) []CompletionItem {
	kind := ""
	present := map[string]bool{}
	if parsed.Rule != nil {
		if parsed.Rule.Rule != nil {
			kind = parsed.Rule.Rule.Extends
		}
		for _, sym := range parsed.Rule.ByKind(dsl.SymbolKey) {
			present[sym.Name] = true
		}
	}

	var items []CompletionItem
	for _, k := range rule.KeysFor(kind) {
		if present[k] {
			continue
		}
		item := CompletionItem{Label: k, Kind: CompletionItemKindProperty, Detail: "key"}
		if doc, ok := rule.KeyDoc(kind, k); ok {
			item.Documentation = doc.Description
		}
		items = append(items, item)
	}
	return items
}

func ruleValueCompletions(ctx completionContext) []CompletionItem {
	switch {
	case ctx.Key == "extends":
		var items []CompletionItem
		for _, k := range rule.Kinds {
			item := CompletionItem{Label: k, Kind: CompletionItemKindEnumMember, Detail: "rule kind"}
			if doc, ok := rule.KindDoc(k); ok {
				item.Documentation = doc.Description
			}
			items = append(items, item)
		}
		return items
	case ctx.Key == "level":
		return valueItems(dsl.Levels, "level")
	case ctx.Key == "scope" || ctx.Parent == "scope":
		leaves := selector.KnownLeaves()
		items := make([]CompletionItem, 0, len(leaves))
		for _, l := range leaves {
			items = append(items, CompletionItem{
				Label:         l.Name,
				Kind:          CompletionItemKindEnumMember,
				Detail:        "scope",
				Documentation: l.Description,
			})
		}
		return items
	case ctx.Key == "tag":
		items := make([]CompletionItem, 0, len(sequence.PennTags))
		for _, t := range sequence.PennTags {
			items = append(items, CompletionItem{
				Label:  t.Tag,
				Kind:   CompletionItemKindEnumMember,
				Detail: t.Description,
			})
		}
		return items
	case ctx.Key == "name" && ctx.Parent == "action":
		return valueItems(actionNames, "action")
	}
	return nil
}

func valueItems(values []string, detail string) []CompletionItem {
	items := make([]CompletionItem, 0, len(values))
	for _, v := range values {
		items = append(items, CompletionItem{Label: v, Kind: CompletionItemKindValue, Detail: detail})
	}
	return items
}

// filterItems keeps candidates whose label starts with the typed prefix,
// ignoring case, drops values already listed, and makes each item replace
// the prefix.
func filterItems(doc *Document, candidates []CompletionItem, ctx completionContext) []CompletionItem {
	fold := cases.Fold()
	prefix := fold.String(ctx.Prefix)
	listed := map[string]bool{}
	for _, v := range ctx.Listed {
		listed[fold.String(v)] = true
	}
	replace := Range{Start: doc.OffsetToPosition(ctx.Start), End: doc.OffsetToPosition(ctx.Cursor)}

	var items []CompletionItem
	seen := map[string]bool{}
	for _, c := range candidates {
		label := fold.String(c.Label)
		if listed[label] || seen[c.Label] || !strings.HasPrefix(label, prefix) {
			continue
		}
		seen[c.Label] = true
		c.TextEdit = &TextEdit{Range: replace, NewText: c.Label}
		items = append(items, c)
	}
	return items
}

func packageDetail(snap *workspace.Snapshot, name string) string {
	pkg, ok := snap.Index.Package(name)
	if !ok {
		return "style"
	}
	detail := "style"
	if pkg.Version != "" {
		detail += " " + pkg.Version
	}
	return detail
}

func vocabDetail(v resolve.Vocabulary) string {
	return "vocabulary: " + plural(len(v.Accept), "accepted term") + ", " + plural(len(v.Reject), "rejected term")
}
