// Package rule parses YAML rule files into a symbol table and a typed
// Definition.
//
// The whole document is parsed first. When that fails the file is split into
// top-level key blocks and each block is parsed on its own, so one broken key
// costs one diagnostic and the remaining keys still produce symbols.
package rule

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/vale-ls/pkg/dsl"
	"github.com/leapstack-labs/vale-ls/pkg/selector"
	"github.com/leapstack-labs/vale-ls/pkg/sequence"
	"github.com/leapstack-labs/vale-ls/pkg/token"
)

// File is a parsed rule file.
type File struct {
	*dsl.Table
	Rule *Definition
}

type entry struct {
	key   string
	kNode *yaml.Node
	vNode *yaml.Node
}

type parser struct {
	file    *File
	src     string
	lines   []int
	entries []entry
	seen    map[string]bool
}

// Parse parses src as the contents of the rule file at path.
func Parse(path, src string) *File {
	f := &File{
		Table: dsl.NewTable(path),
		Rule:  &Definition{Name: NameFromPath(path), Raw: map[string]any{}},
	}
	p := &parser{file: f, src: src, lines: lineOffsets(src), seen: map[string]bool{}}

	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(src), &doc); err == nil {
		p.document(&doc)
	} else {
		for _, b := range splitBlocks(src) {
			var n yaml.Node
			if err := yaml.Unmarshal([]byte(b.text), &n); err != nil {
				p.blockError(b, err)
				continue
			}
			shiftLines(&n, b.start-1)
			p.document(&n)
		}
	}

	p.build()
	return f
}

func (p *parser) document(n *yaml.Node) {
	if n.Kind == 0 {
		return
	}
	if n.Kind == yaml.DocumentNode {
		if len(n.Content) == 0 {
			return
		}
		n = n.Content[0]
	}
	if n.Kind != yaml.MappingNode {
		p.file.Report(dsl.Errorf(dsl.SchemaViolation, p.lineSpan(n.Line), "expected 'key: value'").
			WithExpected("a mapping", strings.TrimSpace(p.lineText(n.Line))))
		return
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		key := k.Value
		span := p.nodeSpan(k)
		if p.seen[key] {
			p.file.Report(dsl.Warnf(dsl.SchemaViolation, span, "duplicate key %q, the last one wins", key))
		}
		p.seen[key] = true
		p.file.Add(dsl.Symbol{Name: key, Kind: dsl.SymbolKey, Span: span, Values: scalars(v)})
		p.entries = append(p.entries, entry{key: key, kNode: k, vNode: v})
	}
}

var yamlLineErr = regexp.MustCompile(`^yaml: line (\d+): (.*)$`)

func (p *parser) blockError(b block, err error) {
	line := b.start
	msg := err.Error()
	if m := yamlLineErr.FindStringSubmatch(msg); m != nil {
		if n, convErr := strconv.Atoi(m[1]); convErr == nil {
			line = b.start + n - 1
		}
		msg = m[2]
	}
	msg = strings.TrimPrefix(msg, "yaml: ")
	p.file.Report(dsl.Errorf(dsl.SchemaViolation, p.lineSpan(line), "invalid YAML: %s", msg).
		WithExpected("'key: value'", strings.TrimSpace(p.lineText(line))))
}

// build turns the collected entries into the Definition.
func (p *parser) build() {
	def := p.file.Rule

	var (
		msgNode    *yaml.Node
		tokensNode *yaml.Node
	)

	for _, e := range p.entries {
		if e.key == "extends" {
			def.Extends = e.vNode.Value
			if !IsKind(def.Extends) {
				p.file.Report(dsl.Errorf(dsl.SchemaViolation, p.nodeSpan(e.vNode), "unknown rule kind").
					WithExpected("one of "+strings.Join(Kinds, ", "), def.Extends))
			}
		}
	}
	if def.Extends == "" {
		p.file.Report(dsl.Errorf(dsl.SchemaViolation, p.lineSpan(1), "missing required key 'extends'").
			WithExpected("one of "+strings.Join(Kinds, ", "), ""))
	}

	for _, e := range p.entries {
		if IsKind(def.Extends) && !ValidKey(def.Extends, e.key) {
			p.file.Report(dsl.Warnf(dsl.SchemaViolation, p.nodeSpan(e.kNode),
				"%q is not a key of %s rules", e.key, def.Extends))
		}

		switch e.key {
		case "extends":
		case "message":
			p.decode(e, &def.Message, "a string")
			msgNode = e.vNode
		case "level":
			p.decode(e, &def.Level, "a string")
			if def.Level != "" && !dsl.IsLevel(def.Level) {
				p.file.Report(dsl.Errorf(dsl.SchemaViolation, p.nodeSpan(e.vNode), "invalid level").
					WithExpected("one of "+strings.Join(dsl.Levels, ", "), def.Level))
			}
		case "scope":
			p.scope(e)
		case "link":
			p.decode(e, &def.Link, "a URL")
			if def.Link != "" {
				p.file.Add(dsl.Symbol{Name: def.Link, Kind: dsl.SymbolLink, Span: p.nodeSpan(e.vNode), Key: "link"})
			}
		case "limit":
			p.decode(e, &def.Limit, "an integer")
		case "ignorecase":
			p.decode(e, &def.IgnoreCase, "true or false")
		case "nonword":
			p.decode(e, &def.Nonword, "true or false")
		case "exceptions":
			p.decode(e, &def.Exceptions, "a list of strings")
		case "swap":
			p.swap(e)
		case "action":
			p.decode(e, &def.Action, "a mapping with 'name' and 'params'")
		case "tokens":
			if def.Extends == KindSequence {
				tokensNode = e.vNode
			} else {
				p.decode(e, &def.Tokens, "a list of strings")
			}
		default:
			var v any
			if err := e.vNode.Decode(&v); err == nil {
				def.Raw[e.key] = v
			}
		}
	}

	if def.Extends == KindSequence {
		p.sequence(tokensNode, msgNode)
	}
	if msgNode == nil && def.Extends != "" {
		p.file.Report(dsl.Warnf(dsl.SchemaViolation, p.lineSpan(1), "missing key 'message'"))
	}
}

func (p *parser) decode(e entry, out any, expected string) {
	if err := e.vNode.Decode(out); err != nil {
		p.file.Report(dsl.Errorf(dsl.SchemaViolation, p.nodeSpan(e.vNode), "invalid value for %s", e.key).
			WithExpected(expected, strings.TrimSpace(p.lineText(e.vNode.Line))))
	}
}

func (p *parser) scope(e entry) {
	var nodes []*yaml.Node
	switch e.vNode.Kind {
	case yaml.ScalarNode:
		nodes = []*yaml.Node{e.vNode}
	case yaml.SequenceNode:
		nodes = e.vNode.Content
	default:
		p.file.Report(dsl.Errorf(dsl.SchemaViolation, p.nodeSpan(e.kNode), "invalid value for scope").
			WithExpected("a string or a list of strings", ""))
		return
	}

	items := make([]selector.Item, 0, len(nodes))
	for _, n := range nodes {
		if n.Kind != yaml.ScalarNode {
			p.file.Report(dsl.Errorf(dsl.SchemaViolation, p.nodeSpan(n), "scope entries must be strings"))
			continue
		}
		at := p.contentStart(n)
		items = append(items, selector.Item{Text: n.Value, At: at})
		p.file.Rule.ScopeSource = append(p.file.Rule.ScopeSource, n.Value)
		p.file.Add(dsl.Symbol{Name: n.Value, Kind: dsl.SymbolScope, Span: p.nodeSpan(n), Key: "scope"})
	}
	expr, diags := selector.ParseList(items)
	p.file.Rule.Scope = expr
	p.file.Merge(diags)
}

func (p *parser) swap(e entry) {
	if e.vNode.Kind != yaml.MappingNode {
		p.file.Report(dsl.Errorf(dsl.SchemaViolation, p.nodeSpan(e.kNode), "invalid value for swap").
			WithExpected("a mapping of pattern to replacement", ""))
		return
	}
	for i := 0; i+1 < len(e.vNode.Content); i += 2 {
		k, v := e.vNode.Content[i], e.vNode.Content[i+1]
		if v.Kind != yaml.ScalarNode {
			p.file.Report(dsl.Errorf(dsl.SchemaViolation, p.nodeSpan(k), "replacement for %q must be a string", k.Value))
			continue
		}
		p.file.Rule.Swap = append(p.file.Rule.Swap, Swap{From: k.Value, To: v.Value, Span: p.nodeSpan(k)})
	}
}

func (p *parser) sequence(tokens, msg *yaml.Node) {
	def := p.file.Rule
	if tokens == nil {
		p.file.Report(dsl.Errorf(dsl.SchemaViolation, p.lineSpan(1), "sequence rules require 'tokens'"))
		return
	}
	if tokens.Kind != yaml.SequenceNode {
		p.file.Report(dsl.Errorf(dsl.SchemaViolation, p.nodeSpan(tokens), "invalid value for tokens").
			WithExpected("a list of 'tag' / 'pattern' entries", strings.TrimSpace(p.lineText(tokens.Line))))
		return
	}

	entries := make([]sequence.Entry, 0, len(tokens.Content))
	for i, item := range tokens.Content {
		if item.Kind != yaml.MappingNode {
			p.file.Report(dsl.Errorf(dsl.SchemaViolation, p.nodeSpan(item), "token %d must be a mapping", i+1).
				WithExpected("'tag' or 'pattern'", item.Value))
			entries = append(entries, sequence.Entry{Span: p.nodeSpan(item)})
			continue
		}
		var se sequence.Entry
		se.Span = p.nodeSpan(item)
		for j := 0; j+1 < len(item.Content); j += 2 {
			k, v := item.Content[j], item.Content[j+1]
			switch k.Value {
			case "tag":
				se.Tag = v.Value
				se.Span = p.nodeSpan(v)
			case "pattern":
				se.Pattern = v.Value
				se.Span = p.nodeSpan(v)
			case "negate":
				if err := v.Decode(&se.Negate); err != nil {
					p.file.Report(dsl.Errorf(dsl.SchemaViolation, p.nodeSpan(v), "invalid value for negate").
						WithExpected("true or false", v.Value))
				}
			default:
				p.file.Report(dsl.Warnf(dsl.SchemaViolation, p.nodeSpan(k), "unknown token key %q", k.Value))
			}
		}
		name := se.Tag
		if name == "" {
			name = se.Pattern
		}
		p.file.Add(dsl.Symbol{Name: name, Kind: dsl.SymbolToken, Span: se.Span, Key: "tokens", Values: []string{fmt.Sprint(i + 1)}})
		entries = append(entries, se)
	}

	m, diags := sequence.Compile(entries)
	def.Sequence = m
	p.file.Merge(diags)

	if msg != nil && msg.Kind == yaml.ScalarNode {
		tmpl, diags := sequence.CompileTemplate(msg.Value, m.Len(), p.contentStart(msg))
		def.Template = tmpl
		p.file.Merge(diags)
	}
}

// nodeSpan returns the span of a node on its first line.
func (p *parser) nodeSpan(n *yaml.Node) token.Span {
	length := 1
	if n.Kind == yaml.ScalarNode {
		length = len(n.Value)
		switch {
		case n.Style&(yaml.DoubleQuotedStyle|yaml.SingleQuotedStyle) != 0:
			length += 2
		case n.Style&(yaml.LiteralStyle|yaml.FoldedStyle) != 0:
			length = 1
		}
		if length == 0 {
			length = 1
		}
	}
	return token.NewSpan(n.Line, n.Column, length, p.lineOffset(n.Line))
}

// contentStart returns the position of a scalar's first content byte.
func (p *parser) contentStart(n *yaml.Node) token.Position {
	col := n.Column
	if n.Style&(yaml.DoubleQuotedStyle|yaml.SingleQuotedStyle) != 0 {
		col++
	}
	return token.Position{Line: n.Line, Column: col, Offset: p.lineOffset(n.Line) + col - 1}
}

func (p *parser) lineSpan(line int) token.Span {
	text := p.lineText(line)
	trimmed := strings.TrimSpace(text)
	col := strings.Index(text, trimmed) + 1
	if trimmed == "" {
		col = 1
	}
	return token.NewSpan(line, col, max(len(trimmed), 1), p.lineOffset(line))
}

func (p *parser) lineText(line int) string {
	if line < 1 || line > len(p.lines) {
		return ""
	}
	start := p.lines[line-1]
	end := len(p.src)
	if line < len(p.lines) {
		end = p.lines[line] - 1
	}
	return strings.TrimSuffix(p.src[start:end], "\r")
}

func (p *parser) lineOffset(line int) int {
	if line < 1 || line > len(p.lines) {
		return 0
	}
	return p.lines[line-1]
}

func lineOffsets(src string) []int {
	offsets := []int{0}
	for i := 0; i < len(src); i++ {
		if src[i] == '\n' {
			offsets = append(offsets, i+1)
		}
	}
	return offsets
}

func scalars(n *yaml.Node) []string {
	switch n.Kind {
	case yaml.ScalarNode:
		return []string{n.Value}
	case yaml.SequenceNode:
		var out []string
		for _, c := range n.Content {
			if c.Kind == yaml.ScalarNode {
				out = append(out, c.Value)
			}
		}
		return out
	}
	return nil
}

func shiftLines(n *yaml.Node, delta int) {
	n.Line += delta
	for _, c := range n.Content {
		shiftLines(c, delta)
	}
}

type block struct {
	start int // 1-based line of the block's first line
	text  string
}

// splitBlocks groups lines into top-level key blocks. A block starts at a
// non-indented line that is not a comment, list item or document marker.
func splitBlocks(src string) []block {
	var (
		blocks  []block
		current *block
		buf     []string
	)
	flush := func() {
		if current != nil {
			current.text = strings.Join(buf, "\n")
			blocks = append(blocks, *current)
		}
		buf = nil
	}
	for i, line := range strings.Split(src, "\n") {
		if line == "---" || line == "..." {
			flush()
			current = nil
			continue
		}
		if isBlockStart(line) {
			flush()
			current = &block{start: i + 1}
		}
		if current == nil {
			if strings.TrimSpace(line) == "" || strings.HasPrefix(strings.TrimSpace(line), "#") {
				continue
			}
			current = &block{start: i + 1}
		}
		buf = append(buf, line)
	}
	flush()
	return blocks
}

func isBlockStart(line string) bool {
	if line == "" {
		return false
	}
	switch line[0] {
	case ' ', '\t', '#', '-', '\r':
		return false
	}
	return true
}
