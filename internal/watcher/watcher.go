// Package watcher turns file system events under StylesPath and the linter
// configuration into debounced batches of workspace changes.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/leapstack-labs/vale-ls/internal/assets"
	"github.com/leapstack-labs/vale-ls/internal/observability"
	"github.com/leapstack-labs/vale-ls/internal/workspace"
)

// DefaultDebounce is used when Config.Debounce is zero.
const DefaultDebounce = 100 * time.Millisecond

const stagingDir = assets.StateDir + "/staging"

// Handler receives one batch of changes. Batches are delivered one at a
// time.
type Handler func(ctx context.Context, changes []workspace.Change)

// Config holds watcher configuration.
type Config struct {
	// Dirs are watched recursively.
	Dirs []string
	// Files are watched individually through their parent directory.
	Files    []string
	Debounce time.Duration
	Logger   *slog.Logger
}

// Watcher batches file events.
type Watcher struct {
	dirs     []string
	files    map[string]bool
	debounce time.Duration
	handle   Handler
	logger   *slog.Logger

	mu      sync.Mutex
	pending map[string]assets.ChangeKind
	timer   *time.Timer
	flushMu sync.Mutex
}

// New creates a Watcher.
func New(cfg Config, handle Handler) *Watcher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	w := &Watcher{
		files:    map[string]bool{},
		debounce: debounce,
		handle:   handle,
		logger:   logger,
		pending:  map[string]assets.ChangeKind{},
	}
	for _, d := range cfg.Dirs {
		if d != "" {
			w.dirs = append(w.dirs, filepath.Clean(d))
		}
	}
	for _, f := range cfg.Files {
		if f != "" {
			w.files[filepath.Clean(f)] = true
		}
	}
	return w
}

// Run watches until ctx is cancelled. Missing directories are skipped.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	for _, d := range w.dirs {
		if err := watchDirRecursive(watcher, d); err != nil {
			w.logger.Warn("Failed to watch directory", "path", d, "error", err)
		}
	}
	for f := range w.files {
		if err := watcher.Add(filepath.Dir(f)); err != nil {
			w.logger.Warn("Failed to watch file", "path", f, "error", err)
		}
	}

	for {
		select {
		case <-ctx.Done():
			w.mu.Lock()
			if w.timer != nil {
				w.timer.Stop()
			}
			w.mu.Unlock()
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			observability.WatcherEventsTotal.Inc()
			w.event(ctx, watcher, event)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("Watcher error", "error", err)
		}
	}
}

func (w *Watcher) event(ctx context.Context, watcher *fsnotify.Watcher, event fsnotify.Event) {
	name := filepath.Clean(event.Name)
	if !w.wanted(name) {
		return
	}

	var kind assets.ChangeKind
	switch {
	case event.Has(fsnotify.Create):
		kind = assets.Created
		if info, err := os.Stat(name); err == nil && info.IsDir() {
			if err := watchDirRecursive(watcher, name); err != nil {
				w.logger.Warn("Failed to watch directory", "path", name, "error", err)
			}
		}
	case event.Has(fsnotify.Write):
		kind = assets.Changed
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		kind = assets.Deleted
	default:
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if prev, ok := w.pending[name]; ok && prev == assets.Created && kind == assets.Changed {
		kind = assets.Created
	}
	w.pending[name] = kind

	// Debounce
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() { w.flush(ctx) })
}

func (w *Watcher) wanted(name string) bool {
	if w.files[name] {
		return true
	}
	for _, d := range w.dirs {
		if name == d {
			return true
		}
		if rel, ok := strings.CutPrefix(name, d+string(filepath.Separator)); ok {
			return !skipped(filepath.ToSlash(rel))
		}
	}
	return false
}

func (w *Watcher) flush(ctx context.Context) {
	w.flushMu.Lock()
	defer w.flushMu.Unlock()

	w.mu.Lock()
	batch := w.pending
	w.pending = map[string]assets.ChangeKind{}
	w.mu.Unlock()

	if len(batch) == 0 || ctx.Err() != nil {
		return
	}
	changes := make([]workspace.Change, 0, len(batch))
	for p, k := range batch {
		changes = append(changes, workspace.Change{Path: p, Kind: k})
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].Path < changes[j].Path })
	w.logger.Debug("File changes", "count", len(changes))
	w.handle(ctx, changes)
}

// skipped reports whether a slash-separated path relative to a watched
// directory lies in a tree that is never interesting.
func skipped(rel string) bool {
	if rel == stagingDir || strings.HasPrefix(rel, stagingDir+"/") {
		return true
	}
	for _, seg := range strings.Split(rel, "/") {
		if seg == ".git" || seg == "node_modules" {
			return true
		}
	}
	return false
}

// watchDirRecursive adds a directory and all subdirectories to the watcher.
func watchDirRecursive(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if rel, _ := filepath.Rel(dir, path); skipped(filepath.ToSlash(rel)) {
				return filepath.SkipDir
			}
			return watcher.Add(path)
		}
		return nil
	})
}
