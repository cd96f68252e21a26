package ini

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/vale-ls/pkg/dsl"
)

const sample = `StylesPath = styles
MinAlertLevel warning
Vocab = Base

[*.md]
BasedOnStyles = Vale, Microsoft
Microsoft.Headings = NO
`

func TestParseRecoversFromMalformedLine(t *testing.T) {
	cfg := Parse(".vale.ini", sample)

	keys := cfg.ByKind(dsl.SymbolKey)
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		names = append(names, k.Name)
	}
	assert.Equal(t, []string{"StylesPath", "Vocab", "BasedOnStyles", "Microsoft.Headings"}, names)

	require.Len(t, cfg.Diagnostics, 1)
	d := cfg.Diagnostics[0]
	assert.Equal(t, dsl.SchemaViolation, d.Kind)
	assert.Equal(t, 2, d.Span.Start.Line)
	assert.Equal(t, "MinAlertLevel warning", d.Found)
	assert.Equal(t, ".vale.ini", d.File)
}

func TestParseSectionsAndReferences(t *testing.T) {
	cfg := Parse(".vale.ini", sample)

	assert.Equal(t, "styles", cfg.StylesPath())
	require.Len(t, cfg.Sections, 1)
	sec := cfg.Sections[0]
	assert.Equal(t, "*.md", sec.Name)

	e, ok := sec.Get(KeyBasedOnStyles)
	require.True(t, ok)
	assert.Equal(t, []string{"Vale", "Microsoft"}, e.Values)

	styles := cfg.ByKind(dsl.SymbolStyleRef)
	require.Len(t, styles, 2)
	assert.Equal(t, "Vale", styles[0].Name)
	assert.Equal(t, 6, styles[0].Span.Start.Line)
	assert.Equal(t, 17, styles[0].Span.Start.Column)
	assert.Equal(t, "Microsoft", styles[1].Name)
	assert.Equal(t, 23, styles[1].Span.Start.Column)
	assert.Equal(t, 32, styles[1].Span.End.Column)
	assert.Equal(t, "*.md", styles[1].Section)

	vocabs := cfg.ByKind(dsl.SymbolVocabRef)
	require.Len(t, vocabs, 1)
	assert.Equal(t, "Base", vocabs[0].Name)

	rules := cfg.ByKind(dsl.SymbolRuleRef)
	require.Len(t, rules, 1)
	assert.Equal(t, "Microsoft.Headings", rules[0].Name)

	sym, ok := cfg.At(6, 25)
	require.True(t, ok)
	assert.Equal(t, dsl.SymbolStyleRef, sym.Kind)
	assert.Equal(t, "Microsoft", sym.Name)
}

func TestParseValidation(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		kind     dsl.DiagnosticKind
		severity dsl.Severity
		line     int
	}{
		{
			name:     "level outside enumeration",
			src:      "MinAlertLevel = fatal\n",
			kind:     dsl.SchemaViolation,
			severity: dsl.SeverityError,
			line:     1,
		},
		{
			name:     "rule toggle outside enumeration",
			src:      "[*]\nVale.Spelling = maybe\n",
			kind:     dsl.SchemaViolation,
			severity: dsl.SeverityError,
			line:     2,
		},
		{
			name:     "unterminated header",
			src:      "[*.md\nBasedOnStyles = Vale\n",
			kind:     dsl.SchemaViolation,
			severity: dsl.SeverityError,
			line:     1,
		},
		{
			name:     "unknown key",
			src:      "Colour = blue\n",
			kind:     dsl.SchemaViolation,
			severity: dsl.SeverityWarning,
			line:     1,
		},
		{
			name:     "global key in glob section",
			src:      "[*.md]\nStylesPath = styles\n",
			kind:     dsl.SchemaViolation,
			severity: dsl.SeverityWarning,
			line:     2,
		},
		{
			name:     "missing key",
			src:      " = value\n",
			kind:     dsl.SchemaViolation,
			severity: dsl.SeverityError,
			line:     1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Parse(".vale.ini", tt.src)
			require.Len(t, cfg.Diagnostics, 1)
			d := cfg.Diagnostics[0]
			assert.Equal(t, tt.kind, d.Kind)
			assert.Equal(t, tt.severity, d.Severity)
			assert.Equal(t, tt.line, d.Span.Start.Line)
		})
	}
}

func TestParseUnterminatedHeaderKeepsPreviousSection(t *testing.T) {
	cfg := Parse(".vale.ini", "[*.md\nBasedOnStyles = Vale\n")

	assert.Empty(t, cfg.Sections)
	_, ok := cfg.Global.Get(KeyBasedOnStyles)
	assert.True(t, ok)
}

func TestSectionMatches(t *testing.T) {
	cfg := Parse(".vale.ini", "[*]\n[*.{md,txt}]\n[docs/*.rst]\n[formats]\nmdx = md\n")
	require.Len(t, cfg.Sections, 4)

	all, multi, docs, formats := cfg.Sections[0], cfg.Sections[1], cfg.Sections[2], cfg.Sections[3]

	assert.True(t, all.Matches("a.md"))
	assert.True(t, multi.Matches("notes/readme.txt"))
	assert.False(t, multi.Matches("a.rst"))
	assert.True(t, docs.Matches("docs/a.rst"))
	assert.False(t, docs.Matches("src/a.rst"))
	assert.True(t, formats.Special)
	assert.False(t, formats.Matches("a.mdx"))
	assert.True(t, cfg.Global.Matches("anything"))
	assert.Empty(t, cfg.Diagnostics)
}

func TestParseCRLFAndComments(t *testing.T) {
	cfg := Parse(".vale.ini", "# comment\r\n; other\r\nStylesPath = styles\r\n")

	assert.Empty(t, cfg.Diagnostics)
	assert.Equal(t, "styles", cfg.StylesPath())
}

func TestIsRuleKey(t *testing.T) {
	assert.True(t, IsRuleKey("Vale.Spelling"))
	assert.False(t, IsRuleKey("StylesPath"))
	assert.False(t, IsRuleKey(".Spelling"))
	assert.False(t, IsRuleKey("Vale."))
	assert.False(t, IsRuleKey("a.b.c"))
}
