package dsl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/vale-ls/pkg/token"
)

func TestTableAtPrefersInnermostReference(t *testing.T) {
	tbl := NewTable(".vale.ini")
	tbl.Add(Symbol{
		Name: "BasedOnStyles",
		Kind: SymbolKey,
		Span: token.NewSpan(2, 1, 30, 10),
	})
	tbl.Add(Symbol{
		Name: "Microsoft",
		Kind: SymbolStyleRef,
		Span: token.NewSpan(2, 17, 9, 10),
	})

	sym, ok := tbl.At(2, 20)
	require.True(t, ok)
	assert.Equal(t, "Microsoft", sym.Name)
	assert.Equal(t, ".vale.ini", sym.File)

	sym, ok = tbl.At(2, 3)
	require.True(t, ok)
	assert.Equal(t, SymbolKey, sym.Kind)

	_, ok = tbl.At(5, 1)
	assert.False(t, ok)
}

func TestDiagnosticText(t *testing.T) {
	d := Errorf(SchemaViolation, token.Span{}, "invalid level").WithExpected("one of suggestion, warning, error", "fatal")
	assert.Equal(t, `invalid level (expected one of suggestion, warning, error, found "fatal")`, d.Text())
	assert.Equal(t, SeverityError, d.Severity)

	w := Warnf(SchemaViolation, token.Span{}, "unknown key %q", "Foo")
	assert.Equal(t, SeverityWarning, w.Severity)
	assert.Equal(t, `unknown key "Foo"`, w.Text())
}

func TestKeyDocAllows(t *testing.T) {
	free := KeyDoc{Name: "StylesPath"}
	assert.True(t, free.Allows("anything"))

	closed := KeyDoc{Name: "MinAlertLevel", Values: Levels}
	assert.True(t, closed.Allows("warning"))
	assert.False(t, closed.Allows("Warning"))
	assert.Contains(t, closed.Markdown(), "`suggestion`, `warning`, `error`")
}
