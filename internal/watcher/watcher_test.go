package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/vale-ls/internal/assets"
	"github.com/leapstack-labs/vale-ls/internal/testutil"
	"github.com/leapstack-labs/vale-ls/internal/workspace"
)

func start(t *testing.T, cfg Config) <-chan []workspace.Change {
	t.Helper()
	batches := make(chan []workspace.Change, 16)
	cfg.Logger = testutil.NewTestLogger(t)
	if cfg.Debounce == 0 {
		cfg.Debounce = 30 * time.Millisecond
	}
	w := New(cfg, func(_ context.Context, changes []workspace.Change) {
		batches <- changes
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
	})
	// Give the watcher time to register its directories.
	time.Sleep(50 * time.Millisecond)
	return batches
}

// collect merges batches until want is seen or the timeout expires.
func collect(t *testing.T, batches <-chan []workspace.Change, want string) map[string]assets.ChangeKind {
	t.Helper()
	seen := map[string]assets.ChangeKind{}
	deadline := time.After(3 * time.Second)
	for {
		select {
		case batch := <-batches:
			for _, c := range batch {
				seen[c.Path] = c.Kind
			}
			if _, ok := seen[want]; ok {
				return seen
			}
		case <-deadline:
			t.Fatalf("no change for %s, saw %v", want, seen)
		}
	}
}

func TestWatcherBatchesChanges(t *testing.T) {
	styles := t.TempDir()
	testutil.WriteTree(t, styles, map[string]string{"Demo/Weasel.yml": "extends: existence\n"})
	batches := start(t, Config{Dirs: []string{styles}})

	rule := filepath.Join(styles, "Demo", "Weasel.yml")
	require.NoError(t, os.WriteFile(rule, []byte("extends: existence\nlevel: error\n"), 0o644))
	seen := collect(t, batches, rule)
	assert.Equal(t, assets.Changed, seen[rule])

	nested := filepath.Join(styles, "New", "Rule.yml")
	require.NoError(t, os.MkdirAll(filepath.Dir(nested), 0o755))
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(nested, []byte("extends: existence\n"), 0o644))
	seen = collect(t, batches, nested)
	assert.Contains(t, []assets.ChangeKind{assets.Created, assets.Changed}, seen[nested])

	require.NoError(t, os.Remove(rule))
	seen = collect(t, batches, rule)
	assert.Equal(t, assets.Deleted, seen[rule])
}

func TestWatcherFiltersFiles(t *testing.T) {
	root := t.TempDir()
	cfg := filepath.Join(root, ".vale.ini")
	require.NoError(t, os.WriteFile(cfg, []byte("StylesPath = styles\n"), 0o644))
	batches := start(t, Config{Files: []string{cfg}})

	require.NoError(t, os.WriteFile(filepath.Join(root, "README.md"), []byte("# x\n"), 0o644))
	require.NoError(t, os.WriteFile(cfg, []byte("StylesPath = other\n"), 0o644))

	seen := collect(t, batches, cfg)
	assert.NotContains(t, seen, filepath.Join(root, "README.md"))
}

func TestSkipped(t *testing.T) {
	tests := []struct {
		rel  string
		want bool
	}{
		{"Demo/Rule.yml", false},
		{".vale-ls/bin/vale", false},
		{".vale-ls/staging", true},
		{".vale-ls/staging/abc/Demo/Rule.yml", true},
		{"Demo/.git/HEAD", true},
		{"node_modules/x/y.yml", true},
		{"staging/Rule.yml", false},
	}
	for _, tt := range tests {
		t.Run(tt.rel, func(t *testing.T) {
			assert.Equal(t, tt.want, skipped(tt.rel))
		})
	}
}
