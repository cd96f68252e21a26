package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// WriteTree writes files (slash-separated relative path to content) under
// root, creating directories as needed.
func WriteTree(t testing.TB, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

// StylesTree returns a temporary StylesPath with a small set of packages:
// Demo (one existence and one substitution rule), Base vocabulary, and the
// given extra files.
func StylesTree(t testing.TB, extra map[string]string) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"Demo/Weasel.yml": "extends: existence\nmessage: \"'%s' is a weasel word\"\nlevel: warning\ntokens:\n  - very\n  - really\n",
		"Demo/Simple.yml": "extends: substitution\nmessage: \"Use '%s' instead of '%s'\"\nignorecase: true\nswap:\n  utilize: use\n",
		"config/vocabularies/Base/accept.txt": "Vale\nYAML\n",
		"config/vocabularies/Base/reject.txt": "Javascript\n",
	}
	for k, v := range extra {
		files[k] = v
	}
	WriteTree(t, root, files)
	return root
}
