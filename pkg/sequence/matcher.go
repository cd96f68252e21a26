// Package sequence compiles token-sequence patterns and the positional
// message templates that reference them.
//
// A pattern is a list of entries, one per token position (1-based). An entry
// tests the token's grammatical tag against an exact alternation ("VB|VBN"),
// the token's text against an anchored regular expression, or both.
package sequence

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/leapstack-labs/vale-ls/pkg/dsl"
	"github.com/leapstack-labs/vale-ls/pkg/token"
)

// Token is one tagged word of prose.
type Token struct {
	Tag  string
	Text string
}

// Entry is one position of a sequence as written in a rule file.
type Entry struct {
	Tag     string
	Pattern string
	Negate  bool
	Span    token.Span
}

type position struct {
	entry   Entry
	tags    []string
	re      *regexp.Regexp
	literal string
	invalid bool
}

// Matcher is a compiled sequence.
type Matcher struct {
	positions []position
}

// Compile compiles entries into a Matcher. Problems are reported as
// diagnostics; an entry that cannot be compiled never matches.
func Compile(entries []Entry) (*Matcher, []dsl.Diagnostic) {
	m := &Matcher{positions: make([]position, 0, len(entries))}
	var diags []dsl.Diagnostic

	if len(entries) == 0 {
		diags = append(diags, dsl.Errorf(dsl.SchemaViolation, token.Span{}, "sequence has no tokens").
			WithExpected("at least one 'tag' or 'pattern' entry", ""))
	}

	for i, e := range entries {
		p := position{entry: e}
		if e.Tag == "" && e.Pattern == "" {
			diags = append(diags, dsl.Errorf(dsl.SchemaViolation, e.Span,
				"token %d has neither tag nor pattern", i+1))
			p.invalid = true
		}
		if e.Tag != "" {
			for _, alt := range strings.Split(e.Tag, "|") {
				alt = strings.TrimSpace(alt)
				if alt == "" {
					diags = append(diags, dsl.Errorf(dsl.SchemaViolation, e.Span,
						"token %d has an empty tag alternative", i+1).WithExpected("a tag such as 'NN'", e.Tag))
					continue
				}
				p.tags = append(p.tags, alt)
			}
			if len(p.tags) == 0 {
				p.invalid = true
			}
		}
		if e.Pattern != "" {
			re, err := regexp.Compile("^(?:" + e.Pattern + ")$")
			if err != nil {
				diags = append(diags, dsl.Warnf(dsl.SchemaViolation, e.Span,
					"token %d pattern is not a valid regular expression, matching literally: %v", i+1, err))
				p.literal = e.Pattern
			} else {
				p.re = re
			}
		}
		m.positions = append(m.positions, p)
	}
	return m, diags
}

// Len returns the number of positions.
func (m *Matcher) Len() int {
	return len(m.positions)
}

// Match reports whether the window matches position by position. The window
// must have exactly Len() tokens.
func (m *Matcher) Match(window []Token) bool {
	if len(m.positions) == 0 || len(window) != len(m.positions) {
		return false
	}
	for i, p := range m.positions {
		if !p.match(window[i]) {
			return false
		}
	}
	return true
}

// Find returns the start index of every matching window in tokens.
func (m *Matcher) Find(tokens []Token) []int {
	var starts []int
	n := len(m.positions)
	for i := 0; n > 0 && i+n <= len(tokens); i++ {
		if m.Match(tokens[i : i+n]) {
			starts = append(starts, i)
		}
	}
	return starts
}

func (p position) match(t Token) bool {
	if p.invalid {
		return false
	}
	ok := true
	if len(p.tags) > 0 {
		ok = false
		for _, tag := range p.tags {
			if tag == t.Tag {
				ok = true
				break
			}
		}
	}
	if ok && p.re != nil {
		ok = p.re.MatchString(t.Text)
	}
	if ok && p.literal != "" {
		ok = p.literal == t.Text
	}
	return ok != p.entry.Negate
}

// Explain renders the compiled positions as a numbered markdown list.
func (m *Matcher) Explain() string {
	var b strings.Builder
	for i, p := range m.positions {
		var parts []string
		if len(p.tags) > 0 {
			parts = append(parts, "tag `"+strings.Join(p.tags, "` or `")+"`")
		}
		if p.re != nil {
			parts = append(parts, "text matching `"+p.entry.Pattern+"`")
		}
		if p.literal != "" {
			parts = append(parts, "text `"+p.literal+"`")
		}
		desc := strings.Join(parts, " with ")
		if p.invalid {
			desc = "(invalid)"
		}
		if p.entry.Negate {
			desc = "not " + desc
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, desc)
	}
	return b.String()
}
