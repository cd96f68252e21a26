package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/vale-ls/internal/assets"
	"github.com/leapstack-labs/vale-ls/internal/assetsync"
	"github.com/leapstack-labs/vale-ls/internal/cli/config"
	"github.com/leapstack-labs/vale-ls/internal/cli/output"
	sharedcfg "github.com/leapstack-labs/vale-ls/internal/config"
	"github.com/leapstack-labs/vale-ls/internal/engine"
	"github.com/leapstack-labs/vale-ls/internal/state"
	"github.com/leapstack-labs/vale-ls/internal/workspace"
)

// errIssuesFound makes a command exit non-zero after it printed problems.
var errIssuesFound = errors.New("issues found")

// ErrIssuesFound reports whether err only signals that a command found and
// printed problems.
func ErrIssuesFound(err error) bool {
	return errors.Is(err, errIssuesFound)
}

// CommandContext holds common dependencies for command execution.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
	Version  string
}

// NewCommandContext creates a CommandContext from the command's context.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := getConfig(cmd.Context())
	mode := output.Mode(cfg.OutputFormat)
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode),
		Version:  cmd.Root().Version,
	}
}

// getConfig returns the loaded configuration, or defaults rooted at the
// working directory when none was loaded.
func getConfig(ctx context.Context) *config.Config {
	if cfg := config.FromContext(ctx); cfg != nil {
		return cfg
	}
	cfg := &config.Config{OutputFormat: config.DefaultOutput}
	cfg.ApplyDefaults()
	cfg.ProjectRoot, _ = os.Getwd()
	return cfg
}

// project is a loaded workspace and the services bound to its StylesPath.
type project struct {
	ws     *workspace.Workspace
	snap   *workspace.Snapshot
	store  *state.SQLiteStore
	runner *engine.Runner
}

// Close releases the registry.
func (p *project) Close() {
	if p.store != nil {
		_ = p.store.Close()
	}
}

// openProject loads the workspace. With createStore the installed-package
// registry is created when missing; otherwise it is only read if present.
func (cc *CommandContext) openProject(ctx context.Context, createStore bool) (*project, error) {
	settings := cc.Cfg.Settings
	base := engine.New(engine.Config{
		Path:       settings.LinterPath,
		ConfigPath: settings.ConfigPath,
		Filter:     settings.Filter,
		Logger:     cc.Logger,
	})
	ws, err := workspace.New(workspace.Config{
		Root:     cc.Cfg.ProjectRoot,
		Settings: settings,
		Linter:   base,
		Logger:   cc.Logger,
	})
	if err != nil {
		return nil, err
	}
	snap, err := ws.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load project: %w", err)
	}

	p := &project{ws: ws, snap: snap, runner: base}
	if snap.StylesPath == "" {
		return p, nil
	}

	p.runner = engine.New(engine.Config{
		ManagedPath: filepath.Join(snap.StylesPath, filepath.FromSlash(assets.BinDir), assetsync.HostExecutableName()),
		Path:        settings.LinterPath,
		ConfigPath:  settings.ConfigPath,
		Filter:      settings.Filter,
		Logger:      cc.Logger,
	})

	dbPath := filepath.Join(snap.StylesPath, filepath.FromSlash(assets.StateDir), sharedcfg.DefaultStateFile)
	if !createStore {
		if _, err := os.Stat(dbPath); err != nil {
			return p, nil
		}
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	p.store = state.NewSQLiteStore(cc.Logger)
	if err := p.store.Open(dbPath); err != nil {
		p.store = nil
		return nil, fmt.Errorf("failed to open package registry: %w", err)
	}
	if p.snap, err = ws.SetStore(ctx, p.store); err != nil {
		cc.Logger.Warn("Failed to read installed packages", "error", err)
	}
	return p, nil
}

// requireStylesPath fails when the project has no StylesPath.
func (p *project) requireStylesPath() error {
	if p.snap.StylesPath != "" {
		return nil
	}
	return fmt.Errorf("no StylesPath configured\nHint: set StylesPath in %s or pass --styles-path", sharedcfg.ValeConfigNames[0])
}

// source builds the remote release and package source.
func (cc *CommandContext) source() *assetsync.HTTPSource {
	src := cc.Cfg.Sources
	return assetsync.NewHTTPSource(assetsync.SourceConfig{
		ReleasesURL:   src.ReleasesURL,
		LatestURL:     src.LatestURL,
		PackagesURL:   src.PackagesURL,
		LibraryURL:    src.LibraryURL,
		RatePerSecond: src.RatePerSecond,
		UserAgent:     "vale-ls/" + cc.Version,
	})
}

// synchronizer builds a synchronizer for the project's StylesPath.
func (cc *CommandContext) synchronizer(p *project) *assetsync.Synchronizer {
	cfg := assetsync.Config{
		StylesPath:      p.snap.StylesPath,
		Source:          cc.source(),
		AllowUnverified: cc.Cfg.AllowUnverified,
		CurrentVersion:  p.runner.Version,
		Logger:          cc.Logger,
	}
	if p.store != nil {
		cfg.Store = p.store
	}
	return assetsync.New(cfg)
}
