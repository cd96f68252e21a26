package sequence

import (
	"strconv"
	"strings"

	"github.com/leapstack-labs/vale-ls/pkg/dsl"
	"github.com/leapstack-labs/vale-ls/pkg/token"
)

type part struct {
	text  string
	index int // 1-based token position, 0 for literal text
}

// Template is a compiled message template. "%[n]s" is replaced by the text
// of token n, a bare "%s" by token 1 and "%%" by a percent sign.
type Template struct {
	parts []part
}

// CompileTemplate compiles msg for a sequence of n tokens. at is the
// position of msg's first byte. Placeholders outside 1..n are reported and
// kept as literal text.
func CompileTemplate(msg string, n int, at token.Position) (*Template, []dsl.Diagnostic) {
	t := &Template{}
	var (
		diags []dsl.Diagnostic
		lit   strings.Builder
	)
	flush := func() {
		if lit.Len() > 0 {
			t.parts = append(t.parts, part{text: lit.String()})
			lit.Reset()
		}
	}
	placeholder := func(idx, start, end int) {
		if idx < 1 || idx > n {
			diags = append(diags, dsl.Errorf(dsl.SchemaViolation, spanOf(at, start, end),
				"placeholder %s refers to token %d", msg[start:end], idx).
				WithExpected(rangeText(n), strconv.Itoa(idx)))
			lit.WriteString(msg[start:end])
			return
		}
		flush()
		t.parts = append(t.parts, part{index: idx})
	}

	for i := 0; i < len(msg); i++ {
		c := msg[i]
		if c != '%' || i+1 >= len(msg) {
			lit.WriteByte(c)
			continue
		}
		switch next := msg[i+1]; {
		case next == '%':
			lit.WriteByte('%')
			i++
		case next == 's':
			placeholder(1, i, i+2)
			i++
		case next == '[':
			end := strings.IndexByte(msg[i:], ']')
			if end < 0 || i+end+1 >= len(msg) || msg[i+end+1] != 's' {
				stop := len(msg)
				if end >= 0 {
					stop = i + end + 1
				}
				diags = append(diags, dsl.Errorf(dsl.SchemaViolation, spanOf(at, i, stop),
					"malformed placeholder %q", msg[i:stop]).WithExpected("'%[n]s'", msg[i:stop]))
				lit.WriteByte(c)
				continue
			}
			digits := msg[i+2 : i+end]
			idx, err := strconv.Atoi(digits)
			if err != nil {
				diags = append(diags, dsl.Errorf(dsl.SchemaViolation, spanOf(at, i, i+end+2),
					"malformed placeholder %q", msg[i:i+end+2]).WithExpected("a token number", digits))
				lit.WriteString(msg[i : i+end+2])
			} else {
				placeholder(idx, i, i+end+2)
			}
			i += end + 1
		default:
			lit.WriteByte(c)
		}
	}
	flush()
	return t, diags
}

// Resolve substitutes placeholders with the text of the matched window.
func (t *Template) Resolve(window []Token) string {
	var b strings.Builder
	for _, p := range t.parts {
		if p.index == 0 {
			b.WriteString(p.text)
			continue
		}
		if p.index <= len(window) {
			b.WriteString(window[p.index-1].Text)
		}
	}
	return b.String()
}

// Placeholders returns the token positions referenced, in order.
func (t *Template) Placeholders() []int {
	var out []int
	for _, p := range t.parts {
		if p.index > 0 {
			out = append(out, p.index)
		}
	}
	return out
}

func rangeText(n int) string {
	if n < 1 {
		return "no placeholders (sequence is empty)"
	}
	return "a token between 1 and " + strconv.Itoa(n)
}

func spanOf(at token.Position, start, end int) token.Span {
	return token.Span{
		Start: token.Position{Line: at.Line, Column: at.Column + start, Offset: at.Offset + start},
		End:   token.Position{Line: at.Line, Column: at.Column + end, Offset: at.Offset + end},
	}
}
