package lsp

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/vale-ls/internal/assetsync"
	"github.com/leapstack-labs/vale-ls/internal/provider"
	"github.com/leapstack-labs/vale-ls/internal/testutil"
	"github.com/leapstack-labs/vale-ls/internal/workspace"
)

const projectINI = "StylesPath = styles\nMinAlertLevel = suggestion\nPackages = Demo\n\n[*.md]\nBasedOnStyles = Vale, Demo\nVocab = Base\n"

// testProject writes a project with a Demo style and a Base vocabulary
// and returns its root and loaded snapshot.
func testProject(t *testing.T, iniContent string, extra map[string]string) (string, *workspace.Snapshot) {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		".vale.ini":              iniContent,
		"styles/Demo/Weasel.yml": "extends: existence\nmessage: \"'%s' is a weasel word\"\nlevel: warning\nlink: https://example.com/weasel\ntokens:\n  - very\n  - really\n",
		"styles/Demo/Simple.yml": "extends: substitution\nmessage: \"Use '%s' instead of '%s'\"\nignorecase: true\nswap:\n  utilize: use\n  leverage: use|apply\n",
		"styles/Demo/Spell.yml":  "extends: spelling\nmessage: \"Did you mean '%s'?\"\n",
		"styles/Demo/meta.json":  `{"version": "1.2.0", "description": "Demo rules"}`,
		"styles/config/vocabularies/Base/accept.txt": "Vale\nYAML\n",
		"styles/config/vocabularies/Base/reject.txt": "Javascript\n",
	}
	for k, v := range extra {
		files[k] = v
	}
	testutil.WriteTree(t, root, files)

	w, err := workspace.New(workspace.Config{Root: root, Logger: testutil.NewTestLogger(t)})
	require.NoError(t, err)
	snap, err := w.Load(context.Background())
	require.NoError(t, err)
	return root, snap
}

// newRequest opens content at path. A "^" in content marks the cursor,
// which is returned as a position.
func newRequest(t *testing.T, snap *workspace.Snapshot, path, content string) (request, Position) {
	t.Helper()
	offset := strings.IndexByte(content, '^')
	if offset >= 0 {
		content = content[:offset] + content[offset+1:]
	}
	doc := NewDocumentStore().Open(PathToURI(filepath.Clean(path)), content, 1)
	r := request{
		doc:    doc,
		parsed: provider.Parse(doc.URI, doc.Path, doc.Content, doc.Seq),
		snap:   snap,
		catalog: []assetsync.CatalogEntry{
			{Name: "Demo", Description: "Demo rules", Homepage: "https://example.com/demo"},
			{Name: "Google", Description: "Google developer documentation style"},
		},
	}
	var pos Position
	if offset >= 0 {
		pos = doc.OffsetToPosition(offset)
	}
	return r, pos
}

func labels(items []CompletionItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Label)
	}
	return out
}
