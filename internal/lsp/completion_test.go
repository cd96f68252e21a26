package lsp

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectContext(t *testing.T) {
	_, snap := testProject(t, projectINI, nil)

	tests := []struct {
		name    string
		file    string
		content string
		want    completionContext
	}{
		{
			name:    "ini key",
			file:    ".vale.ini",
			content: "Min^",
			want:    completionContext{Type: ContextINIKey, Prefix: "Min"},
		},
		{
			name:    "ini list value",
			file:    ".vale.ini",
			content: "[*.md]\nBasedOnStyles = Vale, De^, Other\n",
			want: completionContext{
				Type: ContextINIValue, Key: "BasedOnStyles", Section: "*.md",
				Prefix: "De", Listed: []string{"Vale", "Other"},
			},
		},
		{
			name:    "ini header",
			file:    ".vale.ini",
			content: "[*.m^",
			want:    completionContext{},
		},
		{
			name:    "rule key",
			file:    "styles/Demo/New.yml",
			content: "extends: existence\nmes^",
			want:    completionContext{Type: ContextRuleKey, Prefix: "mes"},
		},
		{
			name:    "rule scope item",
			file:    "styles/Demo/New.yml",
			content: "scope:\n  - heading & ~he^",
			want:    completionContext{Type: ContextRuleValue, Key: "scope", Parent: "scope", Prefix: "he"},
		},
		{
			name:    "rule scope after comma",
			file:    "styles/Demo/New.yml",
			content: "scope: heading,he^",
			want:    completionContext{Type: ContextRuleValue, Key: "scope", Parent: "scope", Prefix: "he"},
		},
		{
			name:    "rule scope after pipe",
			file:    "styles/Demo/New.yml",
			content: "scope:\n  - list|he^",
			want:    completionContext{Type: ContextRuleValue, Key: "scope", Parent: "scope", Prefix: "he"},
		},
		{
			name:    "sequence tag alternative",
			file:    "styles/Demo/New.yml",
			content: "extends: sequence\ntokens:\n  - tag: VB|N^",
			want:    completionContext{Type: ContextRuleValue, Key: "tag", Parent: "tokens", Prefix: "N"},
		},
		{
			name:    "indented value outside a list",
			file:    "styles/Demo/New.yml",
			content: "action:\n  name: re^",
			want:    completionContext{Type: ContextRuleValue, Key: "name", Parent: "action", Prefix: "re"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, pos := newRequest(t, snap, filepath.Join(snap.Root, tt.file), tt.content)
			got := detectContext(r.doc, r.parsed, pos)
			got.Start, got.Cursor = 0, 0
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompleteINI(t *testing.T) {
	_, snap := testProject(t, projectINI, nil)
	path := filepath.Join(snap.Root, ".vale.ini")

	tests := []struct {
		name     string
		content  string
		contains []string
		excludes []string
	}{
		{
			name:     "global keys",
			content:  "Min^",
			contains: []string{"MinAlertLevel"},
			excludes: []string{"StylesPath"},
		},
		{
			name:     "global only keys are not offered in sections",
			content:  "[*.md]\n^",
			contains: []string{"BasedOnStyles"},
			excludes: []string{"StylesPath", "MinAlertLevel"},
		},
		{
			name:     "rule toggles in sections",
			content:  "[*.md]\nDemo.^",
			contains: []string{"Demo.Weasel", "Demo.Simple"},
			excludes: []string{"Vale.Spelling"},
		},
		{
			name:     "styles exclude listed values",
			content:  "[*.md]\nBasedOnStyles = Vale, ^",
			contains: []string{"Demo"},
			excludes: []string{"Vale"},
		},
		{
			name:     "built-in style",
			content:  "[*.md]\nBasedOnStyles = v^",
			contains: []string{"Vale"},
		},
		{
			name:     "vocabularies",
			content:  "Vocab = ^",
			contains: []string{"Base"},
		},
		{
			name:     "packages from the catalogue",
			content:  "Packages = Go^",
			contains: []string{"Google"},
			excludes: []string{"Demo"},
		},
		{
			name:     "alert levels",
			content:  "MinAlertLevel = ^",
			contains: []string{"suggestion", "warning", "error"},
		},
		{
			name:     "inline tags",
			content:  "IgnoredScopes = code, ^",
			contains: []string{"kbd", "tt"},
			excludes: []string{"code", "pre"},
		},
		{
			name:     "block tags",
			content:  "SkippedScopes = ^",
			contains: []string{"pre", "figure"},
		},
		{
			name:     "rule toggle values",
			content:  "[*.md]\nDemo.Weasel = ^",
			contains: []string{"YES", "NO", "warning"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, pos := newRequest(t, snap, path, tt.content)
			got := labels(complete(r, pos))
			for _, want := range tt.contains {
				assert.Contains(t, got, want)
			}
			for _, unwanted := range tt.excludes {
				assert.NotContains(t, got, unwanted)
			}
		})
	}
}

func TestCompleteRule(t *testing.T) {
	_, snap := testProject(t, projectINI, nil)
	path := filepath.Join(snap.Root, "styles", "Demo", "New.yml")

	t.Run("scope leaves", func(t *testing.T) {
		r, pos := newRequest(t, snap, path, "extends: existence\nscope: head^\n")
		got := labels(complete(r, pos))
		assert.Equal(t, []string{
			"heading", "heading.h1", "heading.h2", "heading.h3",
			"heading.h4", "heading.h5", "heading.h6",
		}, got)
	})

	t.Run("scope leaves after comma", func(t *testing.T) {
		r, pos := newRequest(t, snap, path, "extends: existence\nscope: list,heading.h^\n")
		got := labels(complete(r, pos))
		assert.Equal(t, []string{
			"heading.h1", "heading.h2", "heading.h3",
			"heading.h4", "heading.h5", "heading.h6",
		}, got)
	})

	t.Run("rule kinds", func(t *testing.T) {
		r, pos := newRequest(t, snap, path, "extends: ex^")
		assert.Equal(t, []string{"existence"}, labels(complete(r, pos)))
	})

	t.Run("keys skip those present", func(t *testing.T) {
		r, pos := newRequest(t, snap, path, "extends: existence\nmessage: x\n^")
		got := labels(complete(r, pos))
		assert.Contains(t, got, "tokens")
		assert.Contains(t, got, "level")
		assert.NotContains(t, got, "extends")
		assert.NotContains(t, got, "message")
	})

	t.Run("levels", func(t *testing.T) {
		r, pos := newRequest(t, snap, path, "level: w^")
		assert.Equal(t, []string{"warning"}, labels(complete(r, pos)))
	})

	t.Run("part of speech tags", func(t *testing.T) {
		r, pos := newRequest(t, snap, path, "extends: sequence\ntokens:\n  - tag: DT|NN^")
		got := labels(complete(r, pos))
		assert.Contains(t, got, "NN")
		assert.Contains(t, got, "NNS")
		assert.NotContains(t, got, "DT")
	})

	t.Run("action names", func(t *testing.T) {
		r, pos := newRequest(t, snap, path, "action:\n  name: re^")
		assert.Equal(t, []string{"replace", "remove"}, labels(complete(r, pos)))
	})

	t.Run("prose has no completions", func(t *testing.T) {
		r, pos := newRequest(t, snap, filepath.Join(snap.Root, "README.md"), "Some te^")
		assert.Empty(t, complete(r, pos))
	})
}

func TestCompleteTextEdit(t *testing.T) {
	_, snap := testProject(t, projectINI, nil)
	r, pos := newRequest(t, snap, filepath.Join(snap.Root, ".vale.ini"), "MinAlertLevel = WA^")

	items := complete(r, pos)
	require.Len(t, items, 1)
	assert.Equal(t, "warning", items[0].Label)
	require.NotNil(t, items[0].TextEdit)
	assert.Equal(t, Range{
		Start: Position{Line: 0, Character: 16},
		End:   Position{Line: 0, Character: 18},
	}, items[0].TextEdit.Range)
	assert.Equal(t, "warning", items[0].TextEdit.NewText)
}
