package lsp

import (
	"os"
	"path"

	"github.com/leapstack-labs/vale-ls/internal/assets"
	"github.com/leapstack-labs/vale-ls/pkg/dsl"
)

// documentLinks turns resolvable references into links. Unresolved
// references get none.
func documentLinks(r request) []DocumentLink {
	table := r.parsed.Table()
	if table == nil {
		return []DocumentLink{}
	}

	links := []DocumentLink{}
	for _, sym := range table.Symbols {
		target, tooltip := linkTarget(r, sym)
		if target == "" {
			continue
		}
		links = append(links, DocumentLink{
			Range:   r.doc.SpanRange(sym.Span),
			Target:  target,
			Tooltip: tooltip,
		})
	}
	return links
}

func linkTarget(r request, sym dsl.Symbol) (string, string) {
	idx := r.snap.Index
	switch sym.Kind {
	case dsl.SymbolLink:
		return sym.Name, "Open rule documentation"
	case dsl.SymbolStyleRef:
		if rules := idx.RuleFiles(sym.Name); len(rules) > 0 {
			return PathToURI(idx.Abs(rules[0].Path)), "Open style " + sym.Name
		}
		if pkg, ok := idx.Package(sym.Name); ok {
			p := idx.Abs(path.Join(pkg.Dir, assets.ManifestFile))
			if _, err := os.Stat(p); err == nil {
				return PathToURI(p), "Open style " + sym.Name
			}
		}
	case dsl.SymbolRuleRef:
		if p, ok := r.snap.RulePath(sym.Name); ok {
			return PathToURI(idx.Abs(p)), "Open rule " + sym.Name
		}
	case dsl.SymbolVocabRef:
		if len(idx.VocabFiles(sym.Name)) > 0 {
			return PathToURI(idx.Abs(idx.VocabPath(sym.Name, assets.AcceptFile))), "Open vocabulary " + sym.Name
		}
	case dsl.SymbolPackageRef:
		for _, e := range r.catalog {
			if e.Name == sym.Name && e.Homepage != "" {
				return e.Homepage, "Open package homepage"
			}
		}
	}
	return "", ""
}
