// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/leapstack-labs/vale-ls/internal/cli/output"
)

// ValeINI is the configuration written by SetupTestProject.
const ValeINI = `StylesPath = styles
MinAlertLevel = suggestion
Vocab = Base

[*.md]
BasedOnStyles = Vale, Demo
Demo.Weasel = error
`

// SetupTestProject creates a temporary project with a .vale.ini, a Demo
// style, a Base vocabulary and one markdown document.
func SetupTestProject(t *testing.T) string {
	t.Helper()

	tmpDir := t.TempDir()
	files := map[string]string{
		".vale.ini":                                  ValeINI,
		"styles/Demo/Weasel.yml":                     "extends: existence\nmessage: \"'%s' is a weasel word\"\nlevel: warning\ntokens:\n  - very\n  - really\n",
		"styles/Demo/Simple.yml":                     "extends: substitution\nmessage: \"Use '%s' instead of '%s'\"\nignorecase: true\nswap:\n  utilize: use\n",
		"styles/config/vocabularies/Base/accept.txt": "Vale\nYAML\n",
		"docs/index.md":                              "# Hello\n\nThis is very good.\n",
	}
	WriteFiles(t, tmpDir, files)
	return tmpDir
}

// WriteFiles writes files (slash-separated path to content) under root.
func WriteFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("failed to create directory for %s: %v", rel, err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", rel, err)
		}
	}
}

// TestRenderer wraps a Renderer for testing with captured output buffers.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer creates a new test renderer with the specified mode and TTY state.
// Output is captured in buffers for inspection.
func NewTestRenderer(mode output.Mode, isTTY bool) *TestRenderer {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &TestRenderer{
		Renderer: output.NewRendererWithTTY(out, errOut, isTTY, mode),
		Out:      out,
		ErrOut:   errOut,
	}
}

// NewTestRendererMarkdown creates a new test renderer in markdown mode.
func NewTestRendererMarkdown() *TestRenderer {
	return NewTestRenderer(output.ModeMarkdown, false)
}

// NewTestRendererJSON creates a new test renderer in JSON mode.
func NewTestRendererJSON() *TestRenderer {
	return NewTestRenderer(output.ModeJSON, false)
}

// Output returns the stdout output as a string.
func (tr *TestRenderer) Output() string {
	return tr.Out.String()
}

// ErrorOutput returns the stderr output as a string.
func (tr *TestRenderer) ErrorOutput() string {
	return tr.ErrOut.String()
}

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}

// AssertValidMarkdown checks for unclosed code fences and empty headers.
func AssertValidMarkdown(t *testing.T, md string) {
	t.Helper()

	if n := strings.Count(md, "```"); n%2 != 0 {
		t.Errorf("unbalanced code fences in markdown: found %d occurrences", n)
	}
	for i, line := range strings.Split(md, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") && strings.TrimLeft(trimmed, "# ") == "" {
			t.Errorf("empty header at line %d: %q", i+1, line)
		}
	}
}
