package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRenderer(mode Mode, isTTY bool) (*Renderer, *bytes.Buffer, *bytes.Buffer) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	return NewRendererWithTTY(out, errOut, isTTY, mode), out, errOut
}

func TestEffectiveMode(t *testing.T) {
	tests := []struct {
		mode  Mode
		isTTY bool
		want  Mode
	}{
		{ModeAuto, true, ModeText},
		{ModeAuto, false, ModeMarkdown},
		{"", false, ModeMarkdown},
		{ModeJSON, true, ModeJSON},
		{ModeText, false, ModeText},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			r, _, _ := newTestRenderer(tt.mode, tt.isTTY)
			assert.Equal(t, tt.want, r.EffectiveMode())
		})
	}
}

func TestModeValid(t *testing.T) {
	assert.True(t, Mode("").Valid())
	assert.True(t, ModeJSON.Valid())
	assert.False(t, Mode("yaml").Valid())
}

func TestMarkdownOutput(t *testing.T) {
	r, out, errOut := newTestRenderer(ModeAuto, false)

	r.Header(1, "Assets")
	r.KeyValue("Packages", "2")
	r.Table([]string{"Path", "Kind"}, [][]string{{"Demo/Weasel.yml", "rule"}})
	r.Warning("stale")

	got := out.String()
	assert.Contains(t, got, "# Assets\n")
	assert.Contains(t, got, "- **Packages:** 2")
	assert.Contains(t, got, "| Path | Kind |")
	assert.Contains(t, got, "| Demo/Weasel.yml | rule |")
	assert.Equal(t, "! stale\n", errOut.String(), "no colour when piped")
}

func TestTextOutput(t *testing.T) {
	r, out, _ := newTestRenderer(ModeText, false)

	r.StatusLine("Demo", "success", "1.2.0")
	r.StatusLine("Google", "error", "offline")
	r.Table([]string{"Name"}, [][]string{{"Demo"}})

	got := out.String()
	assert.Contains(t, got, "✓ Demo 1.2.0")
	assert.Contains(t, got, "✗ Google offline")
	assert.Contains(t, got, "│ Demo │")
}

func TestJSON(t *testing.T) {
	r, out, _ := newTestRenderer(ModeJSON, false)
	require.NoError(t, r.JSON(map[string]int{"rules": 3}))
	assert.JSONEq(t, `{"rules": 3}`, out.String())
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "## Rules", FormatHeader(2, "Rules"))
	assert.Equal(t, "# Rules", FormatHeader(0, "Rules"))
	assert.Equal(t, "- **Level:** warning", FormatKeyValue("Level", "warning"))
}
