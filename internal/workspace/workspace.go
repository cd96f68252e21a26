// Package workspace owns the current Snapshot of a project's linter
// configuration and StylesPath.
//
// Every mutation builds a new Snapshot and publishes it atomically; readers
// never lock. Mutations are serialized.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/leapstack-labs/vale-ls/internal/assets"
	"github.com/leapstack-labs/vale-ls/internal/assetsync"
	"github.com/leapstack-labs/vale-ls/internal/config"
	"github.com/leapstack-labs/vale-ls/internal/engine"
	"github.com/leapstack-labs/vale-ls/internal/observability"
	"github.com/leapstack-labs/vale-ls/internal/resolve"
	"github.com/leapstack-labs/vale-ls/internal/state"
	"github.com/leapstack-labs/vale-ls/pkg/dsl/ini"
	"github.com/leapstack-labs/vale-ls/pkg/dsl/rule"
)

// DefaultCacheSize is the number of parsed rule files kept across snapshots.
const DefaultCacheSize = 4096

// LinterConfig reports the linter's own view of its configuration.
type LinterConfig interface {
	Config(ctx context.Context, dir string) (*engine.LsConfig, error)
}

// CatalogSource lists remotely available packages.
type CatalogSource interface {
	Catalog(ctx context.Context) ([]assetsync.CatalogEntry, error)
}

// Config holds workspace configuration.
type Config struct {
	// Root is the project directory.
	Root     string
	Settings config.Settings
	// Linter discovers StylesPath when neither the settings nor .vale.ini
	// name one (optional).
	Linter LinterConfig
	// Store supplies installed package versions (optional).
	Store     state.Store
	CacheSize int
	Logger    *slog.Logger
}

// Change is one file event.
type Change struct {
	Path string
	Kind assets.ChangeKind
}

type cacheKey struct {
	path    string
	modTime int64
	size    int64
}

// Workspace publishes snapshots.
type Workspace struct {
	root     string
	settings config.Settings
	linter   LinterConfig
	store    state.Store
	logger   *slog.Logger

	snap atomic.Pointer[Snapshot]
	seq  atomic.Int64

	mu          sync.Mutex // serializes mutations
	cache       *lru.Cache[cacheKey, *rule.File]
	iniOverlay  *ini.Config
	ruleOverlay map[string]*rule.File // keyed by absolute path

	group singleflight.Group

	catalogMu sync.RWMutex
	catalog   []assetsync.CatalogEntry
}

// New creates a Workspace holding an empty snapshot. Call Load to read the
// project.
func New(cfg Config) (*Workspace, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	size := cfg.CacheSize
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[cacheKey, *rule.File](size)
	if err != nil {
		return nil, fmt.Errorf("create rule cache: %w", err)
	}
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace root: %w", err)
	}
	w := &Workspace{
		root:        root,
		settings:    cfg.Settings,
		linter:      cfg.Linter,
		store:       cfg.Store,
		logger:      logger,
		cache:       cache,
		ruleOverlay: map[string]*rule.File{},
	}
	w.snap.Store(emptySnapshot(root))
	return w, nil
}

// Root returns the project directory.
func (w *Workspace) Root() string { return w.root }

// Snapshot returns the current snapshot. It is never nil.
func (w *Workspace) Snapshot() *Snapshot {
	return w.snap.Load()
}

// Load reads the configuration, scans StylesPath and publishes a new
// snapshot.
func (w *Workspace) Load(ctx context.Context) (*Snapshot, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.load(ctx)
}

func (w *Workspace) load(ctx context.Context) (*Snapshot, error) {
	start := time.Now()
	configPath := w.configPath()
	cfg, err := w.readConfig(configPath)
	if err != nil {
		return w.Snapshot(), err
	}
	if cfg == nil {
		configPath = ""
	}

	stylesPath := w.stylesPath(ctx, configPath, cfg)
	idx := assets.Empty(stylesPath)
	if stylesPath != "" {
		idx, err = assets.Scan(stylesPath)
		if err != nil {
			w.logger.Warn("StylesPath scan incomplete", "path", stylesPath, "error", err)
		}
	}

	snap, err := w.derive(ctx, configPath, cfg, idx)
	if err != nil {
		return w.Snapshot(), err
	}
	w.logger.Info("Loaded workspace",
		"config", configPath,
		"styles_path", stylesPath,
		"packages", len(snap.Index.Packages()),
		"rules", len(snap.Rules),
		"duration", time.Since(start))
	return snap, nil
}

func (w *Workspace) configPath() string {
	if w.settings.ConfigPath != "" {
		return w.settings.ConfigPath
	}
	return config.FindValeConfig(w.root)
}

// readConfig parses the configuration, preferring an open editor buffer.
// A missing file yields nil.
func (w *Workspace) readConfig(p string) (*ini.Config, error) {
	if p == "" {
		return nil, nil
	}
	if w.iniOverlay != nil && w.iniOverlay.File == p {
		return w.iniOverlay, nil
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", p, err)
	}
	return ini.Parse(p, string(data)), nil
}

// stylesPath picks StylesPath from the settings, then the configuration,
// then the linter.
func (w *Workspace) stylesPath(ctx context.Context, configPath string, cfg *ini.Config) string {
	if w.settings.StylesPath != "" {
		return w.settings.StylesPath
	}
	if cfg != nil {
		if sp := cfg.StylesPath(); sp != "" {
			if filepath.IsAbs(sp) {
				return filepath.Clean(sp)
			}
			return filepath.Join(filepath.Dir(configPath), filepath.FromSlash(sp))
		}
	}
	if w.linter != nil {
		ls, err := w.linter.Config(ctx, w.root)
		if err != nil {
			w.logger.Debug("Linter did not report a StylesPath", "error", err)
			return ""
		}
		return ls.StylesPath
	}
	return ""
}

// derive parses rules and vocabularies for idx and publishes the result.
func (w *Workspace) derive(ctx context.Context, configPath string, cfg *ini.Config, idx *assets.Index) (*Snapshot, error) {
	rules, idx, err := w.parseRules(ctx, idx)
	if err != nil {
		return nil, err
	}
	vocab, idx := readVocab(idx)
	idx = w.withInstalled(ctx, idx)

	snap := &Snapshot{
		Seq:        w.seq.Add(1),
		Root:       w.root,
		ConfigPath: configPath,
		Config:     cfg,
		StylesPath: idx.Root(),
		Index:      idx,
		Rules:      rules,
		Vocab:      vocab,
	}
	w.snap.Store(snap)

	for _, k := range []assets.Kind{assets.KindStylePackage, assets.KindRuleFile, assets.KindVocabFile, assets.KindBinaryArtifact} {
		observability.IndexedAssets.WithLabelValues(k.String()).Set(float64(idx.Count(k)))
	}
	return snap, nil
}

func (w *Workspace) parseRules(ctx context.Context, idx *assets.Index) (map[string]*rule.File, *assets.Index, error) {
	var ruleAssets []assets.Asset
	for _, a := range idx.Assets() {
		if a.Kind == assets.KindRuleFile {
			ruleAssets = append(ruleAssets, a)
		}
	}

	files := make([]*rule.File, len(ruleAssets))
	errs := make([]error, len(ruleAssets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, a := range ruleAssets {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			files[i], errs[i] = w.ruleFile(idx, a)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, idx, fmt.Errorf("parse rules: %w", err)
	}

	rules := make(map[string]*rule.File, len(ruleAssets))
	for i, a := range ruleAssets {
		switch {
		case errs[i] != nil:
			idx = idx.WithState(a.Path, assets.Invalid, errs[i])
		case files[i].HasErrors():
			rules[a.Path] = files[i]
			idx = idx.WithState(a.Path, assets.Invalid, errors.New(files[i].Diagnostics[0].Text()))
		default:
			rules[a.Path] = files[i]
			idx = idx.WithState(a.Path, assets.Valid, nil)
		}
	}
	return rules, idx, nil
}

// ruleFile returns the parsed rule file for an asset, from the open buffer,
// the cache or disk.
func (w *Workspace) ruleFile(idx *assets.Index, a assets.Asset) (*rule.File, error) {
	abs := idx.Abs(a.Path)
	if f, ok := w.ruleOverlay[abs]; ok {
		return f, nil
	}
	if a.Err != nil {
		return nil, a.Err
	}
	key := cacheKey{path: abs, modTime: a.ModTime.UnixNano(), size: a.Size}
	if f, ok := w.cache.Get(key); ok {
		return f, nil
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, &assets.UnreadableError{Path: a.Path, Err: err}
	}
	f := rule.Parse(abs, string(data))
	w.cache.Add(key, f)
	return f, nil
}

func readVocab(idx *assets.Index) (map[string]resolve.Vocabulary, *assets.Index) {
	vocab := map[string]resolve.Vocabulary{}
	for _, name := range idx.Vocabularies() {
		var v resolve.Vocabulary
		for _, a := range idx.VocabFiles(name) {
			terms, err := assets.ReadVocab(idx.Abs(a.Path))
			if err != nil {
				idx = idx.WithState(a.Path, assets.Invalid, err)
				continue
			}
			idx = idx.WithState(a.Path, assets.Valid, nil)
			switch path.Base(a.Path) {
			case assets.AcceptFile:
				v.Accept = append(v.Accept, terms...)
			case assets.RejectFile:
				v.Reject = append(v.Reject, terms...)
			}
		}
		vocab[name] = v
	}
	return vocab, idx
}

func (w *Workspace) withInstalled(ctx context.Context, idx *assets.Index) *assets.Index {
	if w.store == nil {
		return idx
	}
	recs, err := w.store.Installed(ctx, state.KindPackage)
	if err != nil {
		w.logger.Warn("Failed to read installed packages", "error", err)
		return idx
	}
	installed := make([]assets.Installed, 0, len(recs))
	for _, r := range recs {
		installed = append(installed, assets.Installed{Name: r.Name, Version: r.Version, Origin: r.Origin, Checksum: r.Checksum})
	}
	return idx.WithInstalled(installed)
}

// SetStore replaces the registry of installed versions and republishes the
// current snapshot with it.
func (w *Workspace) SetStore(ctx context.Context, store state.Store) (*Snapshot, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.store = store
	cur := w.Snapshot()
	return w.derive(ctx, cur.ConfigPath, cur.Config, cur.Index)
}

// ApplyChanges folds file events into a new snapshot and returns it with
// the names of the packages whose resolved content may have changed. A
// change to the configuration file reloads everything.
func (w *Workspace) ApplyChanges(ctx context.Context, changes []Change) (*Snapshot, []string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.applyChanges(ctx, changes)
}

// applyChanges requires w.mu.
func (w *Workspace) applyChanges(ctx context.Context, changes []Change) (*Snapshot, []string, error) {
	cur := w.Snapshot()
	for _, c := range changes {
		if w.isConfigFile(cur, c.Path) {
			snap, err := w.load(ctx)
			if err != nil {
				return snap, nil, err
			}
			return snap, packageNames(snap.Index), nil
		}
	}
	if cur.StylesPath == "" {
		return cur, nil, nil
	}

	idx := cur.Index
	impacted := map[string]bool{}
	var errs []error
	for _, c := range changes {
		next, names, err := idx.Apply(c.Path, c.Kind)
		if err != nil {
			w.logger.Warn("Asset unreadable", "path", c.Path, "error", err)
			errs = append(errs, err)
		}
		idx = next
		for _, n := range names {
			impacted[n] = true
		}
	}
	if idx == cur.Index {
		return cur, nil, errors.Join(errs...)
	}

	snap, err := w.derive(ctx, cur.ConfigPath, cur.Config, idx)
	if err != nil {
		return cur, nil, err
	}
	names := make([]string, 0, len(impacted))
	for n := range impacted {
		names = append(names, n)
	}
	sort.Strings(names)
	w.logger.Debug("Applied changes", "changes", len(changes), "impacted", names, "seq", snap.Seq)
	return snap, names, errors.Join(errs...)
}

func (w *Workspace) isConfigFile(cur *Snapshot, p string) bool {
	if cur.ConfigPath != "" {
		return p == cur.ConfigPath
	}
	for _, name := range config.ValeConfigNames {
		if filepath.Base(p) == name {
			return true
		}
	}
	return false
}

func packageNames(idx *assets.Index) []string {
	var names []string
	for _, p := range idx.Packages() {
		names = append(names, p.Name)
	}
	return names
}

// UpdateConfig publishes a snapshot using an edited, unsaved configuration.
// A changed StylesPath triggers a rescan.
func (w *Workspace) UpdateConfig(ctx context.Context, cfg *ini.Config) (*Snapshot, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	cur := w.Snapshot()
	if cur.ConfigPath != "" && cfg.File != cur.ConfigPath {
		return cur, nil
	}
	w.iniOverlay = cfg
	if cur.ConfigPath == "" || w.stylesPath(ctx, cfg.File, cfg) != cur.StylesPath {
		return w.load(ctx)
	}
	return w.derive(ctx, cur.ConfigPath, cfg, cur.Index)
}

// UpdateRule publishes a snapshot using an edited, unsaved rule file. Files
// outside StylesPath are ignored.
func (w *Workspace) UpdateRule(ctx context.Context, abs string, f *rule.File) (*Snapshot, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	cur := w.Snapshot()
	if !cur.InStylesPath(abs) {
		return cur, nil
	}
	w.ruleOverlay[abs] = f
	return w.derive(ctx, cur.ConfigPath, cur.Config, cur.Index)
}

// CloseDocument drops the unsaved buffer for a file and falls back to its
// content on disk.
func (w *Workspace) CloseDocument(ctx context.Context, abs string) (*Snapshot, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	cur := w.Snapshot()
	switch {
	case w.iniOverlay != nil && w.iniOverlay.File == abs:
		w.iniOverlay = nil
		return w.load(ctx)
	case w.ruleOverlay[abs] != nil:
		delete(w.ruleOverlay, abs)
		return w.derive(ctx, cur.ConfigPath, cur.Config, cur.Index)
	}
	return cur, nil
}

// Resolve returns the effective configuration for a file against the
// current snapshot. Concurrent calls for the same scope share one
// computation.
func (w *Workspace) Resolve(file string) *resolve.Config {
	snap := w.Snapshot()
	scope := snap.Scope(file)
	key := strconv.FormatInt(snap.Seq, 10) + "\x00" + scope
	v, _, _ := w.group.Do(key, func() (any, error) {
		return snap.Resolve(scope), nil
	})
	return v.(*resolve.Config)
}

// AddTerm appends a term to a vocabulary list (accept.txt or reject.txt)
// and publishes the updated snapshot.
func (w *Workspace) AddTerm(ctx context.Context, vocab, list, term string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	snap := w.Snapshot()
	if snap.StylesPath == "" {
		return errors.New("no StylesPath configured")
	}
	if list != assets.AcceptFile && list != assets.RejectFile {
		return fmt.Errorf("unknown vocabulary list %q", list)
	}
	p := snap.Index.Abs(snap.Index.VocabPath(vocab, list))
	if err := assets.AddTerm(p, term); err != nil {
		return fmt.Errorf("add %q to %s: %w", term, p, err)
	}
	_, _, err := w.applyChanges(ctx, []Change{{Path: p, Kind: assets.Changed}})
	return err
}

// Catalog returns the cached remote package catalogue. It never touches the
// network.
func (w *Workspace) Catalog() []assetsync.CatalogEntry {
	w.catalogMu.RLock()
	defer w.catalogMu.RUnlock()
	return w.catalog
}

// RefreshCatalog fetches the remote package catalogue into the cache.
func (w *Workspace) RefreshCatalog(ctx context.Context, src CatalogSource) error {
	entries, err := src.Catalog(ctx)
	if err != nil {
		return fmt.Errorf("fetch package catalogue: %w", err)
	}
	w.catalogMu.Lock()
	w.catalog = entries
	w.catalogMu.Unlock()
	w.logger.Debug("Refreshed package catalogue", "entries", len(entries))
	return nil
}
