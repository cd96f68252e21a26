// Package assetsync installs and updates the linter binary and style
// packages under a StylesPath.
//
// Every download is staged under .vale-ls/staging, hashed while it is
// written, verified against the source's integrity descriptor and only then
// renamed into the live location. A failed operation leaves the previously
// installed files untouched.
package assetsync

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/mod/semver"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/vale-ls/internal/assets"
	"github.com/leapstack-labs/vale-ls/internal/observability"
	"github.com/leapstack-labs/vale-ls/internal/state"
)

// BinaryName is the registry name of the linter binary.
const BinaryName = "vale"

// Operation names, used for errors, events and metrics.
const (
	OpInstall        = "install"
	OpUpdate         = "update"
	OpInstallPackage = "install-package"
)

const stagingDir = assets.StateDir + "/staging"

// Config holds synchronizer configuration.
type Config struct {
	// StylesPath is the root the binary and packages are installed under.
	StylesPath string
	// Source is the remote package source.
	Source Source
	// Store records installed versions (optional).
	Store state.Store
	// CurrentVersion reports the version of the binary on disk when the
	// registry has no record (optional).
	CurrentVersion func(ctx context.Context) (string, error)
	// AllowUnverified accepts archives that publish no integrity descriptor.
	AllowUnverified bool
	// GOOS and GOARCH select the release platform; default to the host.
	GOOS   string
	GOARCH string
	// Logger is the structured logger (optional, uses discard if nil).
	Logger *slog.Logger
}

// Result describes a completed installation.
type Result struct {
	Kind     ArtifactKind
	Name     string
	Version  string
	Path     string // relative to StylesPath
	Origin   string
	Checksum string
}

// Synchronizer installs artifacts into a StylesPath.
type Synchronizer struct {
	cfg    Config
	logger *slog.Logger
	locks  sync.Map // name -> *sync.Mutex
	now    func() time.Time
}

// New creates a synchronizer.
func New(cfg Config) *Synchronizer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.GOOS == "" {
		cfg.GOOS = runtime.GOOS
	}
	if cfg.GOARCH == "" {
		cfg.GOARCH = runtime.GOARCH
	}
	return &Synchronizer{
		cfg:    cfg,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// BinaryPath returns the absolute path of the managed linter executable.
func (s *Synchronizer) BinaryPath() string {
	return filepath.Join(s.cfg.StylesPath, filepath.FromSlash(assets.BinDir), ExecutableName(s.cfg.GOOS))
}

// Catalog lists the remote package library.
func (s *Synchronizer) Catalog(ctx context.Context) ([]CatalogEntry, error) {
	return s.cfg.Source.Catalog(ctx)
}

// Install installs the given linter version, or the latest when empty.
func (s *Synchronizer) Install(ctx context.Context, version string) (*Result, error) {
	version = strings.TrimPrefix(version, "v")
	if version == "" {
		latest, err := s.cfg.Source.Latest(ctx)
		if err != nil {
			return nil, &Error{Op: OpInstall, Ref: "latest", Err: err}
		}
		version = latest
	}
	return s.installBinary(ctx, OpInstall, version)
}

// Update installs the latest linter release when it is newer than the
// installed one. It returns ErrUpToDate otherwise.
func (s *Synchronizer) Update(ctx context.Context) (*Result, error) {
	latest, err := s.cfg.Source.Latest(ctx)
	if err != nil {
		return nil, &Error{Op: OpUpdate, Ref: "latest", Err: err}
	}
	current := s.installedVersion(ctx)
	if current != "" && !newer(latest, current) {
		s.logger.Debug("linter is up to date", "version", current, "latest", latest)
		return nil, ErrUpToDate
	}
	return s.installBinary(ctx, OpUpdate, latest)
}

func (s *Synchronizer) installedVersion(ctx context.Context) string {
	if s.cfg.Store != nil {
		rec, err := s.cfg.Store.Current(ctx, state.KindBinary, BinaryName)
		if err != nil {
			s.logger.Warn("failed to read installed version", "error", err)
		} else if rec != nil {
			return rec.Version
		}
	}
	if s.cfg.CurrentVersion != nil {
		if v, err := s.cfg.CurrentVersion(ctx); err == nil {
			return v
		}
	}
	return ""
}

// newer reports whether latest is a higher semantic version than current.
// An unparsable current version is always considered older.
func newer(latest, current string) bool {
	l, c := canonical(latest), canonical(current)
	if !semver.IsValid(c) {
		return true
	}
	return semver.Compare(l, c) > 0
}

func canonical(v string) string {
	return "v" + strings.TrimPrefix(strings.TrimSpace(v), "v")
}

func (s *Synchronizer) installBinary(ctx context.Context, op, version string) (*Result, error) {
	art := Artifact{
		Kind:    ArtifactBinary,
		Name:    BinaryName,
		Version: version,
		File:    ReleaseFile(version, s.cfg.GOOS, s.cfg.GOARCH),
	}
	return s.run(ctx, op, version, art, s.swapBinary)
}

// InstallPackage installs a style package. ref is a package name, a
// name@version pair, or an archive URL.
func (s *Synchronizer) InstallPackage(ctx context.Context, ref string) (*Result, error) {
	art, err := parseRef(ref)
	if err != nil {
		return nil, &Error{Op: OpInstallPackage, Ref: ref, Err: err}
	}
	return s.run(ctx, OpInstallPackage, ref, art, s.swapPackage)
}

// InstallPackages installs several packages concurrently. Failures are
// joined; successful installs are returned regardless.
func (s *Synchronizer) InstallPackages(ctx context.Context, refs []string) ([]Result, error) {
	results := make([]*Result, len(refs))
	errs := make([]error, len(refs))

	var g errgroup.Group
	g.SetLimit(3)
	for i, ref := range refs {
		g.Go(func() error {
			results[i], errs[i] = s.InstallPackage(ctx, ref)
			return nil
		})
	}
	_ = g.Wait()

	var out []Result
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out, errors.Join(errs...)
}

// parseRef turns a package reference into an artifact.
func parseRef(ref string) (Artifact, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return Artifact{}, errors.New("empty package reference")
	}
	if strings.Contains(ref, "://") {
		u, err := url.Parse(ref)
		if err != nil {
			return Artifact{}, fmt.Errorf("invalid package URL: %w", err)
		}
		file := path.Base(u.Path)
		name := strings.TrimSuffix(strings.TrimSuffix(strings.TrimSuffix(file, ".zip"), ".tar.gz"), ".tgz")
		if name == "" || name == "." || name == "/" {
			return Artifact{}, fmt.Errorf("cannot derive package name from %q", ref)
		}
		return Artifact{Kind: ArtifactPackage, Name: name, File: file, URL: ref}, nil
	}
	name, version, _ := strings.Cut(ref, "@")
	if name == "" || strings.ContainsAny(name, `/\`) {
		return Artifact{}, fmt.Errorf("invalid package name %q", name)
	}
	return Artifact{Kind: ArtifactPackage, Name: name, Version: version, File: name + ".zip"}, nil
}

type swapFunc func(stage, extracted string, art Artifact) (string, error)

// run stages, verifies and swaps one artifact, then records it.
func (s *Synchronizer) run(ctx context.Context, op, ref string, art Artifact, swap swapFunc) (res *Result, err error) {
	started := s.now()
	unlock := s.lock(art.Name)
	defer unlock()

	defer func() {
		status := state.StatusSucceeded
		if err != nil {
			status = state.StatusFailed
			err = &Error{Op: op, Ref: ref, Err: err}
			s.logger.Warn("sync failed", "op", op, "ref", ref, "error", err)
		}
		observability.SyncOperationsTotal.WithLabelValues(op, status).Inc()
		observability.SyncDuration.WithLabelValues(op).Observe(time.Since(started).Seconds())
		s.recordEvent(ctx, op, ref, status, err, started)
	}()

	stage := filepath.Join(s.cfg.StylesPath, filepath.FromSlash(stagingDir), uuid.New().String())
	if err := os.MkdirAll(stage, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create staging: %w", ErrTransferFailed, err)
	}
	defer func() {
		if rerr := os.RemoveAll(stage); rerr != nil {
			s.logger.Warn("failed to remove staging directory", "path", stage, "error", rerr)
		}
	}()

	archive, sum, err := s.download(ctx, stage, art)
	if err != nil {
		return nil, err
	}

	extracted := filepath.Join(stage, "extract")
	if err := extract(archive, fileName(art), extracted); err != nil {
		return nil, wrapTransfer(err, "extract")
	}

	rel, err := swap(stage, extracted, art)
	if err != nil {
		return nil, err
	}

	version := art.Version
	if art.Kind == ArtifactPackage {
		version = s.packageVersion(rel, version)
	}
	res = &Result{
		Kind:     art.Kind,
		Name:     art.Name,
		Version:  version,
		Path:     rel,
		Origin:   s.origin(art),
		Checksum: sum,
	}
	s.record(ctx, res)
	s.logger.Info("installed", "op", op, "name", res.Name, "version", res.Version, "path", res.Path)
	return res, nil
}

func (s *Synchronizer) lock(name string) func() {
	v, _ := s.locks.LoadOrStore(name, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// download writes the archive into stage while hashing it and verifies the
// digest against the descriptor.
func (s *Synchronizer) download(ctx context.Context, stage string, art Artifact) (string, string, error) {
	body, desc, err := s.cfg.Source.Fetch(ctx, art)
	if err != nil {
		return "", "", wrapTransfer(err, "fetch")
	}
	defer body.Close()

	archive := filepath.Join(stage, fileName(art))
	f, err := os.Create(archive)
	if err != nil {
		return "", "", fmt.Errorf("%w: create %s: %w", ErrTransferFailed, archive, err)
	}
	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(f, h), body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", "", wrapTransfer(err, "download")
	}
	sum := hex.EncodeToString(h.Sum(nil))
	s.logger.Debug("downloaded", "name", art.Name, "bytes", n, "sha256", sum)

	switch {
	case desc.Sum == "" && !s.cfg.AllowUnverified:
		return "", "", fmt.Errorf("%w: no integrity descriptor for %s", ErrIntegrityCheckFailed, fileName(art))
	case desc.Sum != "" && !strings.EqualFold(desc.Sum, sum):
		return "", "", fmt.Errorf("%w: sha256 of %s is %s, expected %s", ErrIntegrityCheckFailed, fileName(art), sum, desc.Sum)
	}
	return archive, sum, nil
}

// swapBinary renames the staged executable over the managed one.
func (s *Synchronizer) swapBinary(_ string, extracted string, _ Artifact) (string, error) {
	exe := ExecutableName(s.cfg.GOOS)
	found, err := findFile(extracted, exe)
	if err != nil {
		return "", err
	}
	if err := os.Chmod(found, 0o755); err != nil {
		return "", wrapTransfer(err, "chmod")
	}
	bin := filepath.Join(s.cfg.StylesPath, filepath.FromSlash(assets.BinDir))
	if err := os.MkdirAll(bin, 0o755); err != nil {
		return "", wrapTransfer(err, "create bin directory")
	}
	if err := os.Rename(found, filepath.Join(bin, exe)); err != nil {
		return "", wrapTransfer(err, "swap binary")
	}
	return path.Join(assets.BinDir, exe), nil
}

// swapPackage moves the live package aside, renames the staged one in and
// removes the old copy, restoring it if the rename fails.
func (s *Synchronizer) swapPackage(stage, extracted string, art Artifact) (string, error) {
	src, err := packageRoot(extracted, art.Name)
	if err != nil {
		return "", err
	}
	live := filepath.Join(s.cfg.StylesPath, art.Name)
	previous := filepath.Join(stage, "previous")

	hadPrevious := false
	if _, err := os.Lstat(live); err == nil {
		if err := os.Rename(live, previous); err != nil {
			return "", wrapTransfer(err, "move previous package aside")
		}
		hadPrevious = true
	}
	if err := os.Rename(src, live); err != nil {
		if hadPrevious {
			if rerr := os.Rename(previous, live); rerr != nil {
				s.logger.Error("failed to restore previous package", "path", live, "error", rerr)
			}
		}
		return "", wrapTransfer(err, "swap package")
	}
	return art.Name, nil
}

// packageRoot locates the package directory inside an extracted archive:
// a directory named after the package, the single top-level directory, or
// the archive root itself.
func packageRoot(extracted, name string) (string, error) {
	entries, err := os.ReadDir(extracted)
	if err != nil {
		return "", wrapTransfer(err, "read archive")
	}
	if len(entries) == 0 {
		return "", transferError("archive for %s is empty", name)
	}
	var dirs []string
	rules := false
	for _, e := range entries {
		if !e.IsDir() {
			ext := strings.ToLower(filepath.Ext(e.Name()))
			rules = rules || ext == ".yml" || ext == ".yaml"
			continue
		}
		if e.Name() == name {
			return filepath.Join(extracted, name), nil
		}
		if !strings.HasPrefix(e.Name(), ".") && !strings.HasPrefix(e.Name(), "__") {
			dirs = append(dirs, e.Name())
		}
	}
	if len(dirs) == 1 && !rules {
		return filepath.Join(extracted, dirs[0]), nil
	}
	return extracted, nil
}

func findFile(root, name string) (string, error) {
	var found string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && d.Name() == name {
			found = p
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", wrapTransfer(err, "search archive")
	}
	if found == "" {
		return "", transferError("archive contains no %s", name)
	}
	return found, nil
}

func (s *Synchronizer) packageVersion(rel, requested string) string {
	if requested != "" {
		return requested
	}
	m, err := assets.ReadManifest(filepath.Join(s.cfg.StylesPath, rel, assets.ManifestFile))
	if err == nil && m.Version != "" {
		return m.Version
	}
	return "latest"
}

func (s *Synchronizer) origin(art Artifact) string {
	if hs, ok := s.cfg.Source.(*HTTPSource); ok {
		return hs.ArchiveURL(art)
	}
	if art.URL != "" {
		return art.URL
	}
	return art.Name
}

func (s *Synchronizer) record(ctx context.Context, res *Result) {
	if s.cfg.Store == nil {
		return
	}
	kind := state.KindPackage
	if res.Kind == ArtifactBinary {
		kind = state.KindBinary
	}
	_, err := s.cfg.Store.Supersede(context.WithoutCancel(ctx), state.Record{
		Kind:     kind,
		Name:     res.Name,
		Version:  res.Version,
		Origin:   res.Origin,
		Checksum: res.Checksum,
	})
	if err != nil {
		s.logger.Error("failed to record install", "name", res.Name, "error", err)
	}
}

func (s *Synchronizer) recordEvent(ctx context.Context, op, ref, status string, err error, started time.Time) {
	if s.cfg.Store == nil {
		return
	}
	ev := state.Event{
		Op:         op,
		Ref:        ref,
		Status:     status,
		StartedAt:  started,
		FinishedAt: s.now(),
	}
	if err != nil {
		ev.Error = err.Error()
	}
	if rerr := s.cfg.Store.RecordEvent(context.WithoutCancel(ctx), ev); rerr != nil {
		s.logger.Warn("failed to record sync event", "error", rerr)
	}
}
