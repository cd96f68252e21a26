// Package dsl defines the symbol table and diagnostics shared by the
// .vale.ini parser and the YAML rule parser.
package dsl

import (
	"github.com/leapstack-labs/vale-ls/pkg/token"
)

// SymbolKind classifies a symbol.
type SymbolKind int

const (
	SymbolSection SymbolKind = iota
	SymbolKey
	SymbolValue
	SymbolStyleRef
	SymbolVocabRef
	SymbolRuleRef
	SymbolPackageRef
	SymbolLink
	SymbolScope
	SymbolToken
)

var symbolKindNames = map[SymbolKind]string{
	SymbolSection:    "section",
	SymbolKey:        "key",
	SymbolValue:      "value",
	SymbolStyleRef:   "style",
	SymbolVocabRef:   "vocab",
	SymbolRuleRef:    "rule",
	SymbolPackageRef: "package",
	SymbolLink:       "link",
	SymbolScope:      "scope",
	SymbolToken:      "token",
}

func (k SymbolKind) String() string {
	if s, ok := symbolKindNames[k]; ok {
		return s
	}
	return "unknown"
}

// IsReference reports whether the symbol names another asset.
func (k SymbolKind) IsReference() bool {
	switch k {
	case SymbolStyleRef, SymbolVocabRef, SymbolRuleRef, SymbolPackageRef:
		return true
	}
	return false
}

// Symbol is a named, positioned element of a parsed file. Symbols are
// rebuilt on every parse and carry no identity across parses.
type Symbol struct {
	Name    string
	Kind    SymbolKind
	File    string
	Span    token.Span
	Section string   // enclosing INI section, "" for the global section
	Key     string   // key a value or reference belongs to
	Values  []string // list values for keys
}
