package rule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/vale-ls/pkg/dsl"
	"github.com/leapstack-labs/vale-ls/pkg/selector"
	"github.com/leapstack-labs/vale-ls/pkg/sequence"
)

func keyNames(f *File) []string {
	var names []string
	for _, s := range f.ByKind(dsl.SymbolKey) {
		names = append(names, s.Name)
	}
	return names
}

func errorsOnly(diags []dsl.Diagnostic) []dsl.Diagnostic {
	var out []dsl.Diagnostic
	for _, d := range diags {
		if d.Severity == dsl.SeverityError {
			out = append(out, d)
		}
	}
	return out
}

const sequenceRule = `extends: sequence
message: "'%[4]s' requires 'to'"
level: error
scope: sentence
link: https://example.com/rules/to
tokens:
  - tag: MD
  - pattern: be
  - tag: JJ
  - tag: VB|VBN
`

func TestParseSequenceRule(t *testing.T) {
	f := Parse("styles/Demo/To.yml", sequenceRule)

	require.Empty(t, f.Diagnostics)
	def := f.Rule
	assert.Equal(t, "To", def.Name)
	assert.Equal(t, KindSequence, def.Extends)
	assert.Equal(t, "error", def.EffectiveLevel())
	assert.Equal(t, []string{"sentence"}, def.ScopeSource)
	assert.True(t, selector.Evaluate(def.Scope, selector.Node{Type: "sentence"}))

	require.NotNil(t, def.Sequence)
	window := []sequence.Token{
		{Tag: "MD", Text: "a"}, {Tag: "VB", Text: "be"}, {Tag: "JJ", Text: "happy"}, {Tag: "VBN", Text: "gone"},
	}
	assert.True(t, def.Sequence.Match(window))
	require.NotNil(t, def.Template)
	assert.Equal(t, "'gone' requires 'to'", def.Template.Resolve(window))

	links := f.ByKind(dsl.SymbolLink)
	require.Len(t, links, 1)
	assert.Equal(t, "https://example.com/rules/to", links[0].Name)
	assert.Equal(t, 5, links[0].Span.Start.Line)
	assert.Equal(t, 7, links[0].Span.Start.Column)

	assert.Len(t, f.ByKind(dsl.SymbolToken), 4)
}

func TestParseResyncsAfterBrokenKey(t *testing.T) {
	src := "extends: existence\nmessage: \"Avoid '%s'\nlevel: warning\nignorecase: true\ntokens:\n  - very\n"
	f := Parse("Weasel.yml", src)

	assert.Equal(t, []string{"extends", "level", "ignorecase", "tokens"}, keyNames(f))
	errs := errorsOnly(f.Diagnostics)
	require.Len(t, errs, 1)
	assert.Equal(t, dsl.SchemaViolation, errs[0].Kind)
	assert.Equal(t, 2, errs[0].Span.Start.Line)
	assert.Equal(t, []string{"very"}, f.Rule.Tokens)
	assert.True(t, f.Rule.IgnoreCase)
}

func TestParseMissingColon(t *testing.T) {
	src := "extends: existence\nlevel warning\nmessage: Hello\ntokens: [a]\n"
	f := Parse("Hello.yml", src)

	assert.Equal(t, []string{"extends", "message", "tokens"}, keyNames(f))
	errs := errorsOnly(f.Diagnostics)
	require.Len(t, errs, 1)
	assert.Equal(t, 2, errs[0].Span.Start.Line)
	assert.Equal(t, "level warning", errs[0].Found)
}

func TestParseValidation(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		severity dsl.Severity
		line     int
		found    string
	}{
		{"unknown kind", "extends: exists\nmessage: x\n", dsl.SeverityError, 1, "exists"},
		{"invalid level", "extends: existence\nmessage: x\nlevel: fatal\n", dsl.SeverityError, 3, "fatal"},
		{"key of another kind", "extends: existence\nmessage: x\nswap:\n  a: b\n", dsl.SeverityWarning, 3, ""},
		{"missing extends", "message: x\n", dsl.SeverityError, 1, ""},
		{"wrong type", "extends: existence\nmessage: x\nlimit: lots\n", dsl.SeverityError, 3, "limit: lots"},
		{"duplicate key", "extends: existence\nmessage: x\nmessage: y\n", dsl.SeverityWarning, 3, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Parse("Rule.yml", tt.src)
			require.Len(t, f.Diagnostics, 1, "%v", f.Diagnostics)
			d := f.Diagnostics[0]
			assert.Equal(t, dsl.SchemaViolation, d.Kind)
			assert.Equal(t, tt.severity, d.Severity)
			assert.Equal(t, tt.line, d.Span.Start.Line)
			assert.Equal(t, tt.found, d.Found)
		})
	}
}

func TestParseTemplateOutOfRange(t *testing.T) {
	src := "extends: sequence\nmessage: \"%[5]s\"\ntokens:\n  - tag: NN\n"
	f := Parse("Seq.yml", src)

	require.Len(t, f.Diagnostics, 1)
	d := f.Diagnostics[0]
	assert.Equal(t, 2, d.Span.Start.Line)
	assert.Equal(t, 11, d.Span.Start.Column)
	assert.Equal(t, "5", d.Found)
}

func TestParseScopeList(t *testing.T) {
	src := "extends: existence\nmessage: x\nscope:\n  - heading.h1\n  - paragraph & ~blockquote\n  - heading &\n"
	f := Parse("Scoped.yml", src)

	require.Len(t, f.Diagnostics, 1)
	assert.Equal(t, 6, f.Diagnostics[0].Span.Start.Line)
	assert.Equal(t, "heading.h1, paragraph & ~blockquote", f.Rule.Scope.String())
	assert.Len(t, f.ByKind(dsl.SymbolScope), 3)
}

func TestReplacements(t *testing.T) {
	src := "extends: substitution\nmessage: Use '%s' instead of '%s'\nignorecase: true\nswap:\n  utilize: use\n  '(?:leverage|leveraging)': use|apply\n"
	f := Parse("Simple.yml", src)
	require.Empty(t, f.Diagnostics)

	assert.Equal(t, []string{"use"}, f.Rule.Replacements("Utilize"))
	assert.Equal(t, []string{"use", "apply"}, f.Rule.Replacements("leveraging"))
	assert.Nil(t, f.Rule.Replacements("other"))
}

func TestSplitBlocks(t *testing.T) {
	src := "# header\nextends: existence\ntokens:\n  - a\n\n  - b\n---\nlevel: error\n"
	blocks := splitBlocks(src)
	require.Len(t, blocks, 3)
	assert.Equal(t, 2, blocks[0].start)
	assert.Equal(t, 3, blocks[1].start)
	assert.Equal(t, "tokens:\n  - a\n\n  - b", blocks[1].text)
	assert.Equal(t, 8, blocks[2].start)
}

func TestKeysFor(t *testing.T) {
	keys := KeysFor(KindSequence)
	assert.Contains(t, keys, "tokens")
	assert.Contains(t, keys, "extends")
	assert.NotContains(t, keys, "swap")
	assert.Equal(t, commonKeys, KeysFor(""))
}
