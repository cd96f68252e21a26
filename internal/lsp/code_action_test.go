package lsp

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/vale-ls/internal/engine"
)

const prose = "We utilize very good tools quickly.\n"

func proseDiagnostic(t *testing.T, r request, a engine.Alert) Diagnostic {
	t.Helper()
	diags := alertDiagnostics(r.doc, []engine.Alert{a})
	require.Len(t, diags, 1)
	return diags[0]
}

func TestCodeActions(t *testing.T) {
	root, snap := testProject(t, projectINI, nil)
	r, _ := newRequest(t, snap, filepath.Join(root, "README.md"), prose)

	tests := []struct {
		name   string
		alert  engine.Alert
		titles []string
		edits  []string
	}{
		{
			name:   "substitution swap",
			alert:  engine.Alert{Check: "Demo.Simple", Match: "utilize", Line: 1, Span: [2]int{4, 10}},
			titles: []string{"Replace with ‘use’"},
			edits:  []string{"use"},
		},
		{
			name: "replace params",
			alert: engine.Alert{
				Check: "Demo.Other", Match: "utilize", Line: 1, Span: [2]int{4, 10},
				Action: engine.Action{Name: "replace", Params: []string{"use", "employ"}},
			},
			titles: []string{"Replace with ‘use’", "Replace with ‘employ’"},
			edits:  []string{"use", "employ"},
		},
		{
			name: "replace without params uses swap",
			alert: engine.Alert{
				Check: "Demo.Simple", Match: "utilize", Line: 1, Span: [2]int{4, 10},
				Action: engine.Action{Name: "replace"},
			},
			titles: []string{"Replace with ‘use’"},
			edits:  []string{"use"},
		},
		{
			name: "remove",
			alert: engine.Alert{
				Check: "Demo.Weasel", Match: "very", Line: 1, Span: [2]int{12, 15},
				Action: engine.Action{Name: "remove"},
			},
			titles: []string{"Remove ‘very’"},
			edits:  []string{""},
		},
		{
			name: "edit regex",
			alert: engine.Alert{
				Check: "Demo.Adverbs", Match: "quickly", Line: 1, Span: [2]int{28, 34},
				Action: engine.Action{Name: "edit", Params: []string{"regex", `(\w+)ly`, "$1"}},
			},
			titles: []string{"Replace with ‘quick’"},
			edits:  []string{"quick"},
		},
		{
			name: "spelling",
			alert: engine.Alert{
				Check: "Vale.Spelling", Match: "utilize", Line: 1, Span: [2]int{4, 10},
				Action: engine.Action{Name: "suggest", Params: []string{"spellings"}},
			},
			titles: []string{"Add ‘utilize’ to the accepted vocabulary"},
		},
		{
			name:  "no fix",
			alert: engine.Alert{Check: "Demo.Weasel", Match: "very", Line: 1, Span: [2]int{12, 15}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := proseDiagnostic(t, r, tt.alert)
			actions := codeActions(r, []Diagnostic{d})

			var titles, edits []string
			for _, a := range actions {
				titles = append(titles, a.Title)
				assert.Equal(t, CodeActionKindQuickFix, a.Kind)
				assert.Equal(t, []Diagnostic{d}, a.Diagnostics)
				if a.Edit != nil {
					require.Len(t, a.Edit.Changes[r.doc.URI], 1)
					edits = append(edits, a.Edit.Changes[r.doc.URI][0].NewText)
				}
			}
			assert.Equal(t, tt.titles, titles)
			assert.Equal(t, tt.edits, edits)
		})
	}
}

func TestCodeActionRemoveWidensRange(t *testing.T) {
	root, snap := testProject(t, projectINI, nil)
	r, _ := newRequest(t, snap, filepath.Join(root, "README.md"), prose)
	d := proseDiagnostic(t, r, engine.Alert{
		Check: "Demo.Weasel", Match: "very", Line: 1, Span: [2]int{12, 15},
		Action: engine.Action{Name: "remove"},
	})

	actions := codeActions(r, []Diagnostic{d})
	require.Len(t, actions, 1)
	assert.True(t, actions[0].IsPreferred)

	edit := actions[0].Edit.Changes[r.doc.URI][0]
	assert.Equal(t, "very ", r.doc.GetTextInRange(edit.Range))
}

func TestCodeActionSpellingCommand(t *testing.T) {
	root, snap := testProject(t, projectINI, nil)
	r, _ := newRequest(t, snap, filepath.Join(root, "README.md"), prose)
	d := proseDiagnostic(t, r, engine.Alert{Check: "Demo.Spell", Match: "utilize", Line: 1, Span: [2]int{4, 10}})

	actions := codeActions(r, []Diagnostic{d})
	require.Len(t, actions, 1)
	require.NotNil(t, actions[0].Command)
	assert.Equal(t, CommandAddToAccept, actions[0].Command.Command)
	assert.Equal(t, []any{termArgs{Term: "utilize", URI: r.doc.URI}}, actions[0].Command.Arguments)
}

func TestCodeActionsIgnoreOtherDiagnostics(t *testing.T) {
	root, snap := testProject(t, projectINI, nil)
	r, _ := newRequest(t, snap, filepath.Join(root, "README.md"), prose)

	diags := []Diagnostic{
		{Source: SourceConfig, Message: "unknown key"},
		{Source: SourceLinter, Message: "no data"},
	}
	assert.Empty(t, codeActions(r, diags))
}

func TestEditMatch(t *testing.T) {
	tests := []struct {
		name   string
		match  string
		params []string
		want   string
		ok     bool
	}{
		{"regex", "utilizes", []string{"regex", "ize", "ise"}, "utilises", true},
		{"bad regex", "x", []string{"regex", "(", "y"}, "", false},
		{"trim", "  word  ", []string{"trim"}, "word", true},
		{"trim chars", "..word..", []string{"trim", "."}, "word", true},
		{"trim left", "  word", []string{"trim_left"}, "word", true},
		{"trim right", "end.", []string{"trim_right", "."}, "end", true},
		{"unknown", "x", []string{"split", "-"}, "", false},
		{"no params", "x", nil, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := editMatch(tt.match, tt.params)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
