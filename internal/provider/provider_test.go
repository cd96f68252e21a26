package provider

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/vale-ls/internal/testutil"
	"github.com/leapstack-labs/vale-ls/pkg/dsl"
)

func TestDialectOf(t *testing.T) {
	tests := []struct {
		path string
		want Dialect
	}{
		{"/p/.vale.ini", DialectINI},
		{"/p/_vale.ini", DialectINI},
		{"/p/vale.ini", DialectINI},
		{"/p/styles/Demo/Weasel.yml", DialectRule},
		{"/p/styles/Demo/Weasel.YAML", DialectRule},
		{"/p/.vale-ls.yaml", DialectProse},
		{"/p/docs/index.md", DialectProse},
		{"/p/setup.ini", DialectProse},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, DialectOf(tt.path))
		})
	}
}

func TestParse(t *testing.T) {
	t.Run("ini", func(t *testing.T) {
		doc := Parse("file:///p/.vale.ini", "/p/.vale.ini", "StylesPath = styles\n[*.md]\nBasedOnStyles = Vale\n", 1)
		require.NotNil(t, doc.INI)
		assert.Nil(t, doc.Rule)
		assert.Equal(t, "styles", doc.INI.StylesPath())
		assert.NotEmpty(t, doc.Table().ByKind(dsl.SymbolKey))
		assert.Empty(t, doc.Diagnostics())
	})

	t.Run("rule", func(t *testing.T) {
		doc := Parse("file:///s/Demo/Weasel.yml", "/s/Demo/Weasel.yml", "extends: existence\nmessage: x\ntokens:\n  - very\n", 3)
		require.NotNil(t, doc.Rule)
		assert.Equal(t, 3, doc.Seq)
		assert.Equal(t, "existence", doc.Rule.Rule.Extends)
		assert.Equal(t, []string{"very"}, doc.Rule.Rule.Tokens)
	})

	t.Run("prose", func(t *testing.T) {
		doc := Parse("file:///p/README.md", "/p/README.md", "# Title\n", 1)
		assert.Nil(t, doc.Table())
		assert.Nil(t, doc.Diagnostics())
		assert.Equal(t, DialectProse, doc.Dialect)
	})
}

func TestGetOrParse(t *testing.T) {
	p := New(Config{Logger: testutil.NewTestLogger(t)})
	const uri = "file:///p/.vale.ini"

	first := p.GetOrParse(uri, "/p/.vale.ini", "MinAlertLevel = error\n", 2)
	assert.Same(t, first, p.GetOrParse(uri, "/p/.vale.ini", "ignored", 2))
	assert.Same(t, first, p.GetOrParse(uri, "/p/.vale.ini", "ignored", 1), "older sequence returns newer cached result")

	second := p.GetOrParse(uri, "/p/.vale.ini", "MinAlertLevel = warning\n", 3)
	assert.NotSame(t, first, second)
	assert.Same(t, second, p.Get(uri))

	p.Invalidate(uri)
	assert.Nil(t, p.Get(uri))
}

type recorder struct {
	mu   sync.Mutex
	seqs []int
}

func (r *recorder) record(doc *ParsedDocument) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seqs = append(r.seqs, doc.Seq)
}

func (r *recorder) get() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.seqs...)
}

func TestScheduleDebouncesToLatestEdit(t *testing.T) {
	rec := &recorder{}
	p := New(Config{Debounce: 30 * time.Millisecond, OnParsed: rec.record, Logger: testutil.NewTestLogger(t)})
	defer p.Close()

	const uri = "file:///s/Demo/Rule.yml"
	for seq := 1; seq <= 5; seq++ {
		p.Schedule(uri, "/s/Demo/Rule.yml", "extends: existence\nlevel: warning\n", seq)
	}
	p.Wait()

	assert.Equal(t, []int{5}, rec.get())
	doc := p.Get(uri)
	require.NotNil(t, doc)
	assert.Equal(t, 5, doc.Seq)
}

func TestScheduleNeverReplacesNewerResult(t *testing.T) {
	rec := &recorder{}
	p := New(Config{Debounce: time.Millisecond, OnParsed: rec.record})
	defer p.Close()

	const uri = "file:///p/.vale.ini"
	newer := p.GetOrParse(uri, "/p/.vale.ini", "MinAlertLevel = error\n", 7)

	p.Schedule(uri, "/p/.vale.ini", "MinAlertLevel = warning\n", 6)
	p.Wait()

	assert.Same(t, newer, p.Get(uri))
	assert.Empty(t, rec.get())
}

func TestScheduleIgnoresOlderThanPending(t *testing.T) {
	rec := &recorder{}
	p := New(Config{Debounce: 20 * time.Millisecond, OnParsed: rec.record})
	defer p.Close()

	const uri = "file:///p/.vale.ini"
	p.Schedule(uri, "/p/.vale.ini", "MinAlertLevel = error\n", 4)
	p.Schedule(uri, "/p/.vale.ini", "MinAlertLevel = warning\n", 3)
	p.Wait()

	assert.Equal(t, []int{4}, rec.get())
	assert.Equal(t, "MinAlertLevel = error\n", p.Get(uri).Content)
}

func TestInvalidateCancelsPending(t *testing.T) {
	rec := &recorder{}
	p := New(Config{Debounce: 50 * time.Millisecond, OnParsed: rec.record})

	const uri = "file:///p/.vale.ini"
	p.Schedule(uri, "/p/.vale.ini", "MinAlertLevel = error\n", 1)
	p.Invalidate(uri)
	p.Close()

	assert.Empty(t, rec.get())
	assert.Nil(t, p.Get(uri))

	p.Schedule(uri, "/p/.vale.ini", "MinAlertLevel = error\n", 2)
	p.Wait()
	assert.Nil(t, p.Get(uri), "closed provider ignores new work")
}

func TestInvalidateAll(t *testing.T) {
	p := New(Config{})
	p.GetOrParse("a", "/p/.vale.ini", "", 1)
	p.GetOrParse("b", "/p/x.yml", "", 1)
	assert.Len(t, p.Documents(), 2)

	p.InvalidateAll()
	assert.Empty(t, p.Documents())
}
