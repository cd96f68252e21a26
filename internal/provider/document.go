package provider

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/leapstack-labs/vale-ls/internal/config"
	"github.com/leapstack-labs/vale-ls/pkg/dsl"
	"github.com/leapstack-labs/vale-ls/pkg/dsl/ini"
	"github.com/leapstack-labs/vale-ls/pkg/dsl/rule"
)

// Dialect is the language a document is parsed as.
type Dialect int

const (
	// DialectProse is any file the linter checks; it has no symbol table.
	DialectProse Dialect = iota
	DialectINI
	DialectRule
)

func (d Dialect) String() string {
	switch d {
	case DialectINI:
		return "ini"
	case DialectRule:
		return "rule"
	}
	return "prose"
}

// DialectOf picks the dialect from a file name.
func DialectOf(path string) Dialect {
	base := filepath.Base(path)
	for _, name := range config.ValeConfigNames {
		if base == name {
			return DialectINI
		}
	}
	if base == config.ConfigFileName || base == config.ConfigFileNameAlt {
		return DialectProse
	}
	switch strings.ToLower(filepath.Ext(base)) {
	case ".yml", ".yaml":
		return DialectRule
	}
	return DialectProse
}

// ParsedDocument holds the parse result of one document at one edit
// sequence number.
type ParsedDocument struct {
	URI     string
	Path    string
	Seq     int
	Content string
	Dialect Dialect

	INI  *ini.Config // set for DialectINI
	Rule *rule.File  // set for DialectRule

	ParsedAt time.Time
}

// Parse creates a ParsedDocument from content.
func Parse(uri, path, content string, seq int) *ParsedDocument {
	doc := &ParsedDocument{
		URI:      uri,
		Path:     path,
		Seq:      seq,
		Content:  content,
		Dialect:  DialectOf(path),
		ParsedAt: time.Now(),
	}
	switch doc.Dialect {
	case DialectINI:
		doc.INI = ini.Parse(path, content)
	case DialectRule:
		doc.Rule = rule.Parse(path, content)
	}
	return doc
}

// Table returns the document's symbol table, nil for prose.
func (d *ParsedDocument) Table() *dsl.Table {
	switch {
	case d == nil:
		return nil
	case d.INI != nil:
		return d.INI.Table
	case d.Rule != nil:
		return d.Rule.Table
	}
	return nil
}

// Diagnostics returns the parse diagnostics.
func (d *ParsedDocument) Diagnostics() []dsl.Diagnostic {
	if t := d.Table(); t != nil {
		return t.Diagnostics
	}
	return nil
}
