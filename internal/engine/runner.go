// Package engine runs the external linter and decodes its output.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/leapstack-labs/vale-ls/internal/observability"
)

// ErrNotInstalled means no linter executable could be found.
var ErrNotInstalled = errors.New("vale is not installed")

// Config holds runner configuration.
type Config struct {
	// ManagedPath is the executable installed by the synchronizer. It is
	// preferred when it exists.
	ManagedPath string
	// Path is an explicit executable, used when the managed one is absent.
	Path string
	// ConfigPath is passed as --config when set.
	ConfigPath string
	// Filter is passed as --filter when set.
	Filter string
	// Logger is the structured logger (optional, uses discard if nil).
	Logger *slog.Logger
}

// Runner invokes the linter as a subprocess.
type Runner struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a runner.
func New(cfg Config) *Runner {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Runner{cfg: cfg, logger: logger}
}

// Executable returns the linter executable to run.
func (r *Runner) Executable() (string, error) {
	if r.cfg.ManagedPath != "" {
		if info, err := os.Stat(r.cfg.ManagedPath); err == nil && !info.IsDir() {
			return r.cfg.ManagedPath, nil
		}
	}
	if r.cfg.Path != "" {
		if _, err := os.Stat(r.cfg.Path); err == nil {
			return r.cfg.Path, nil
		}
		return "", fmt.Errorf("%w: %s", ErrNotInstalled, r.cfg.Path)
	}
	if p, err := exec.LookPath("vale"); err == nil {
		return p, nil
	}
	return "", ErrNotInstalled
}

// Installed reports whether an executable is available.
func (r *Runner) Installed() bool {
	_, err := r.Executable()
	return err == nil
}

func (r *Runner) globalArgs() []string {
	var args []string
	if r.cfg.ConfigPath != "" {
		args = append(args, "--config="+r.cfg.ConfigPath)
	}
	return args
}

// Lint checks text as if it were the file at path. Alerts are sorted by
// position.
func (r *Runner) Lint(ctx context.Context, path, text string) ([]Alert, error) {
	ext := filepath.Ext(path)
	if ext == "" {
		ext = ".txt"
	}
	args := append(r.globalArgs(), "--output=JSON", "--ext="+ext)
	if r.cfg.Filter != "" {
		args = append(args, "--filter="+r.cfg.Filter)
	}

	started := time.Now()
	stdout, stderr, err := r.exec(ctx, filepath.Dir(path), strings.NewReader(text), args...)
	observability.LintDuration.Observe(time.Since(started).Seconds())
	if err != nil && len(bytes.TrimSpace(stdout)) == 0 {
		return nil, runFailure(err, stderr)
	}
	return parseAlerts(stdout, stderr)
}

// Config runs ls-config in dir and returns the effective configuration.
func (r *Runner) Config(ctx context.Context, dir string) (*LsConfig, error) {
	stdout, stderr, err := r.exec(ctx, dir, nil, append(r.globalArgs(), "ls-config")...)
	if err != nil {
		return nil, runFailure(err, stderr)
	}
	var cfg LsConfig
	if err := json.Unmarshal(stdout, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse ls-config output: %w", err)
	}
	return &cfg, nil
}

// Version returns the linter version, without the "v".
func (r *Runner) Version(ctx context.Context) (string, error) {
	stdout, stderr, err := r.exec(ctx, "", nil, "-v")
	if err != nil {
		return "", runFailure(err, stderr)
	}
	out := strings.TrimSpace(string(stdout))
	out = strings.TrimPrefix(out, "vale version ")
	return strings.TrimPrefix(out, "v"), nil
}

func (r *Runner) exec(ctx context.Context, dir string, stdin *strings.Reader, args ...string) ([]byte, []byte, error) {
	exe, err := r.Executable()
	if err != nil {
		return nil, nil, err
	}
	cmd := exec.CommandContext(ctx, exe, args...)
	if dir != "" {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			cmd.Dir = dir
		}
	}
	if stdin != nil {
		cmd.Stdin = stdin
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.logger.Debug("running linter", "exe", exe, "args", args, "dir", cmd.Dir)
	err = cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

func runFailure(err error, stderr []byte) error {
	if errors.Is(err, ErrNotInstalled) {
		return err
	}
	var runErr RunError
	if json.Unmarshal(bytes.TrimSpace(stderr), &runErr) == nil && runErr.Text != "" {
		return &runErr
	}
	if msg := strings.TrimSpace(string(stderr)); msg != "" {
		return fmt.Errorf("vale: %s: %w", msg, err)
	}
	return fmt.Errorf("vale: %w", err)
}

// parseAlerts decodes the JSON output, a map from file name to alerts.
func parseAlerts(stdout, stderr []byte) ([]Alert, error) {
	trimmed := bytes.TrimSpace(stdout)
	if len(trimmed) == 0 {
		if msg := strings.TrimSpace(string(stderr)); msg != "" {
			return nil, runFailure(errors.New("no output"), stderr)
		}
		return nil, nil
	}
	var byFile map[string][]Alert
	if err := json.Unmarshal(trimmed, &byFile); err != nil {
		var runErr RunError
		if json.Unmarshal(trimmed, &runErr) == nil && runErr.Text != "" {
			return nil, &runErr
		}
		return nil, fmt.Errorf("failed to parse linter output: %w", err)
	}
	var out []Alert
	for _, alerts := range byFile {
		out = append(out, alerts...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Line != out[j].Line {
			return out[i].Line < out[j].Line
		}
		if out[i].Span[0] != out[j].Span[0] {
			return out[i].Span[0] < out[j].Span[0]
		}
		return out[i].Check < out[j].Check
	})
	return out, nil
}
