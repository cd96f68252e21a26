// Package selector parses and evaluates rule scope expressions such as
// "heading.h1, paragraph & ~blockquote".
//
// An expression is an OR of terms, a term is an AND of leaves, and a leaf may
// be negated. Negation always binds to a single leaf. An expression with no
// terms, or a term with no leaves, matches nothing.
package selector

import (
	"strings"

	"github.com/leapstack-labs/vale-ls/pkg/dsl"
	"github.com/leapstack-labs/vale-ls/pkg/token"
)

// anyType is the leaf type produced by Negate for "always true".
const anyType = "*"

// Leaf is a single node-type test.
type Leaf struct {
	Type    string
	Subtype string
	Negated bool
}

func (l Leaf) String() string {
	s := l.Type
	if l.Subtype != "" {
		s += "." + l.Subtype
	}
	if l.Negated {
		s = "~" + s
	}
	return s
}

// Term is a conjunction of leaves.
type Term []Leaf

// Expr is a disjunction of terms.
type Expr struct {
	Terms []Term
}

func (e Expr) String() string {
	terms := make([]string, 0, len(e.Terms))
	for _, t := range e.Terms {
		leaves := make([]string, 0, len(t))
		for _, l := range t {
			leaves = append(leaves, l.String())
		}
		terms = append(terms, strings.Join(leaves, " & "))
	}
	return strings.Join(terms, ", ")
}

// Node describes a document node: its type, subtype and ancestors, nearest
// first.
type Node struct {
	Type      string
	Subtype   string
	Ancestors []Node
}

// Evaluate reports whether the expression selects the node.
func Evaluate(e Expr, n Node) bool {
	for _, t := range e.Terms {
		if evalTerm(t, n) {
			return true
		}
	}
	return false
}

func evalTerm(t Term, n Node) bool {
	if len(t) == 0 {
		return false
	}
	for _, l := range t {
		if l.test(n) == l.Negated {
			return false
		}
	}
	return true
}

// test reports whether the un-negated leaf matches the node or any ancestor.
func (l Leaf) test(n Node) bool {
	if l.Type == anyType {
		return true
	}
	if l.matchOne(n) {
		return true
	}
	for _, a := range n.Ancestors {
		if l.matchOne(a) {
			return true
		}
	}
	return false
}

func (l Leaf) matchOne(n Node) bool {
	if l.Type != n.Type {
		return false
	}
	return l.Subtype == "" || l.Subtype == n.Subtype
}

// Negate returns an expression selecting exactly the nodes e does not, in
// disjunctive normal form. Negating a single leaf flips its polarity.
func Negate(e Expr) Expr {
	// not(T1 or T2 ...) = not T1 and not T2 ...; each not Ti is an OR of
	// flipped leaves, so the result is the product of those ORs.
	product := []Term{{}}
	for _, t := range e.Terms {
		if len(t) == 0 {
			continue
		}
		next := make([]Term, 0, len(product)*len(t))
		for _, prefix := range product {
			for _, l := range t {
				flipped := l
				flipped.Negated = !l.Negated
				term := make(Term, 0, len(prefix)+1)
				term = append(term, prefix...)
				term = append(term, flipped)
				next = append(next, term)
			}
		}
		product = next
	}
	if len(product) == 1 && len(product[0]) == 0 {
		return Expr{Terms: []Term{{{Type: anyType}}}}
	}
	return Expr{Terms: product}
}

// Item is one scope string with the position of its first byte.
type Item struct {
	Text string
	At   token.Position
}

// ParseList parses each item and ORs the results together.
func ParseList(items []Item) (Expr, []dsl.Diagnostic) {
	var (
		out   Expr
		diags []dsl.Diagnostic
	)
	for _, it := range items {
		e, d := Parse(it.Text, it.At)
		out.Terms = append(out.Terms, e.Terms...)
		diags = append(diags, d...)
	}
	return out, diags
}

// Parse parses a single scope string. at is the position of src's first
// byte and is used to place diagnostics. Malformed terms are dropped and
// reported.
func Parse(src string, at token.Position) (Expr, []dsl.Diagnostic) {
	var (
		e     Expr
		diags []dsl.Diagnostic
	)
	start := 0
	for i := 0; i <= len(src); i++ {
		if i < len(src) && src[i] != ',' && src[i] != '|' {
			continue
		}
		term, d := parseTerm(src[start:i], shift(at, start))
		diags = append(diags, d...)
		if term != nil {
			e.Terms = append(e.Terms, term)
		}
		start = i + 1
	}
	return e, diags
}

func parseTerm(src string, at token.Position) (Term, []dsl.Diagnostic) {
	if strings.TrimSpace(src) == "" {
		return nil, []dsl.Diagnostic{
			dsl.Errorf(dsl.SchemaViolation, spanAt(at, max(len(src), 1)), "empty scope term").
				WithExpected("a node type such as 'heading'", src),
		}
	}

	var (
		term  Term
		diags []dsl.Diagnostic
		bad   bool
	)
	start := 0
	for i := 0; i <= len(src); i++ {
		if i < len(src) && src[i] != '&' {
			continue
		}
		part := src[start:i]
		leaf, d, ok := parseLeaf(part, shift(at, start))
		diags = append(diags, d...)
		if ok {
			term = append(term, leaf)
		} else {
			bad = true
		}
		start = i + 1
	}
	if bad {
		return nil, diags
	}
	return term, diags
}

func parseLeaf(src string, at token.Position) (Leaf, []dsl.Diagnostic, bool) {
	lead := len(src) - len(strings.TrimLeft(src, " \t"))
	text := strings.TrimSpace(src)
	pos := shift(at, lead)

	var leaf Leaf
	tildes := 0
	for strings.HasPrefix(text, "~") {
		tildes++
		text = strings.TrimSpace(text[1:])
	}
	leaf.Negated = tildes%2 == 1

	if text == "" {
		return leaf, []dsl.Diagnostic{
			dsl.Errorf(dsl.SchemaViolation, spanAt(pos, max(len(strings.TrimSpace(src)), 1)), "missing node type in scope").
				WithExpected("a node type such as 'heading'", strings.TrimSpace(src)),
		}, false
	}

	typ, sub, _ := strings.Cut(text, ".")
	if !validName(typ) || (strings.Contains(text, ".") && !validName(sub)) {
		return leaf, []dsl.Diagnostic{
			dsl.Errorf(dsl.SchemaViolation, spanAt(pos, len(strings.TrimSpace(src))), "malformed scope %q", text).
				WithExpected("'type' or 'type.subtype'", text),
		}, false
	}
	leaf.Type = typ
	leaf.Subtype = sub

	var diags []dsl.Diagnostic
	if !isKnownType(typ) {
		diags = append(diags, dsl.Warnf(dsl.SchemaViolation, spanAt(pos, len(strings.TrimSpace(src))), "unknown scope %q", text))
	}
	return leaf, diags, true
}

func validName(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return false
		}
	}
	return true
}

func shift(p token.Position, n int) token.Position {
	p.Column += n
	p.Offset += n
	return p
}

func spanAt(p token.Position, length int) token.Span {
	end := shift(p, length)
	return token.Span{Start: p, End: end}
}
