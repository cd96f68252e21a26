package commands

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/vale-ls/internal/assetsync"
	"github.com/leapstack-labs/vale-ls/internal/cli/config"
	"github.com/leapstack-labs/vale-ls/internal/cli/testutil"
	"github.com/leapstack-labs/vale-ls/pkg/dsl"
)

// testConfig returns a configuration rooted at root with JSON output and a
// linter path that never resolves.
func testConfig(root, format string) *config.Config {
	cfg := &config.Config{OutputFormat: format, ProjectRoot: root}
	cfg.LinterPath = filepath.Join(root, "no-such-vale")
	cfg.ApplyDefaults()
	return cfg
}

// execute runs cmd with cfg in its context and returns stdout and stderr.
func execute(t *testing.T, cmd *cobra.Command, cfg *config.Config, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	cmd.SetContext(config.WithConfig(context.Background(), cfg))
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func decode[T any](t *testing.T, s string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(s), &v), s)
	return v
}

func TestCommandMetadata(t *testing.T) {
	tests := []struct {
		cmd   *cobra.Command
		use   string
		flags []string
	}{
		{NewServeCommand(), "serve", []string{"stdio", "metrics-addr", "install-vale", "sync-on-startup"}},
		{NewIndexCommand(), "index", []string{"kind", "package"}},
		{NewCheckCommand(), "check", []string{"severity"}},
		{NewResolveCommand(), "resolve <file>", []string{"rules"}},
		{NewInstallCommand(), "install [version]", []string{"allow-unverified"}},
		{NewUpdateCommand(), "update", []string{"allow-unverified"}},
		{NewSyncCommand(), "sync [package...]", []string{"allow-unverified"}},
		{NewHistoryCommand(), "history", []string{"limit"}},
		{NewVersionCommand(VersionInfo{}), "version", []string{"linter"}},
	}
	for _, tt := range tests {
		t.Run(tt.use, func(t *testing.T) {
			assert.Equal(t, tt.use, tt.cmd.Use)
			assert.NotEmpty(t, tt.cmd.Short)
			assert.NotNil(t, tt.cmd.RunE)
			for _, name := range tt.flags {
				assert.NotNil(t, tt.cmd.Flags().Lookup(name), "flag %s", name)
			}
		})
	}
	assert.Contains(t, NewServeCommand().Aliases, "lsp")
}

func TestVersionCommand(t *testing.T) {
	cmd := NewVersionCommand(VersionInfo{Version: "1.2.3", Commit: "abc123", BuildDate: "2026-01-02"})
	out, _, err := execute(t, cmd, testConfig(t.TempDir(), "text"))
	require.NoError(t, err)
	assert.Equal(t, "vale-ls v1.2.3\ncommit abc123 built 2026-01-02\n", out)

	cmd = NewVersionCommand(VersionInfo{Version: "1.2.3", Commit: "unknown"})
	out, _, err = execute(t, cmd, testConfig(t.TempDir(), "text"), "--linter")
	require.NoError(t, err)
	assert.Equal(t, "vale-ls v1.2.3\nvale not installed\n", out)
}

func TestIndexCommand(t *testing.T) {
	root := testutil.SetupTestProject(t)

	out, _, err := execute(t, NewIndexCommand(), testConfig(root, "json"))
	require.NoError(t, err)
	got := decode[indexOutput](t, out)
	assert.Equal(t, filepath.Join(root, "styles"), got.StylesPath)
	require.Len(t, got.Packages, 1)
	assert.Equal(t, "Demo", got.Packages[0].Name)
	assert.Equal(t, 2, got.Packages[0].Rules)

	out, _, err = execute(t, NewIndexCommand(), testConfig(root, "json"), "--kind", "rule")
	require.NoError(t, err)
	got = decode[indexOutput](t, out)
	require.Len(t, got.Assets, 2)
	for _, a := range got.Assets {
		assert.Equal(t, "rule", a.Kind)
		assert.Equal(t, "Demo", a.Package)
	}
	assert.Equal(t, "Demo/Simple.yml", got.Assets[0].Path)
}

func TestIndexCommandMarkdown(t *testing.T) {
	root := testutil.SetupTestProject(t)

	out, _, err := execute(t, NewIndexCommand(), testConfig(root, "markdown"), "--kind", "vocab")
	require.NoError(t, err)
	testutil.AssertNoANSI(t, out)
	testutil.AssertValidMarkdown(t, out)
	assert.Contains(t, out, "# StylesPath")
	assert.Contains(t, out, "| Demo |")
	assert.Contains(t, out, "Vocab")
}

func TestIndexCommandRequiresStylesPath(t *testing.T) {
	root := t.TempDir()
	testutil.WriteFiles(t, root, map[string]string{".vale.ini": "[*]\nBasedOnStyles = Vale\n"})

	_, _, err := execute(t, NewIndexCommand(), testConfig(root, "json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no StylesPath configured")

	cfg := testConfig(root, "json")
	cfg.StylesPath = filepath.Join(root, "missing")
	_, _, err = execute(t, NewIndexCommand(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "styles path does not exist")
}

func TestCheckCommand(t *testing.T) {
	t.Run("clean project", func(t *testing.T) {
		root := testutil.SetupTestProject(t)

		out, _, err := execute(t, NewCheckCommand(), testConfig(root, "json"))
		require.NoError(t, err)
		got := decode[checkOutput](t, out)
		assert.Empty(t, got.Diagnostics)
		assert.Equal(t, 3, got.Summary.Files)
		assert.Equal(t, filepath.Join(root, ".vale.ini"), got.Config)
	})

	t.Run("clean project markdown", func(t *testing.T) {
		root := testutil.SetupTestProject(t)

		out, _, err := execute(t, NewCheckCommand(), testConfig(root, "markdown"))
		require.NoError(t, err)
		assert.Contains(t, out, "No configuration problems found (3 files checked)")
	})

	t.Run("unresolved style", func(t *testing.T) {
		root := testutil.SetupTestProject(t)
		testutil.WriteFiles(t, root, map[string]string{
			".vale.ini": testutil.ValeINI + "\n[*.txt]\nBasedOnStyles = Missing\n",
		})

		out, errOut, err := execute(t, NewCheckCommand(), testConfig(root, "json"))
		require.Error(t, err)
		assert.True(t, ErrIssuesFound(err))
		assert.NotContains(t, out, "Usage:")
		assert.Empty(t, errOut)
		got := decode[checkOutput](t, out)
		require.Len(t, got.Diagnostics, 1)
		d := got.Diagnostics[0]
		assert.Equal(t, ".vale.ini", d.File)
		assert.Equal(t, "error", d.Severity)
		assert.Equal(t, string(dsl.UnresolvedReference), d.Kind)
		assert.Equal(t, 1, got.Summary.Errors)
	})

	t.Run("no configuration", func(t *testing.T) {
		_, _, err := execute(t, NewCheckCommand(), testConfig(t.TempDir(), "json"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no .vale.ini found")
	})

	t.Run("invalid severity", func(t *testing.T) {
		_, _, err := execute(t, NewCheckCommand(), testConfig(t.TempDir(), "json"), "--severity", "loud")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid severity")
	})
}

func TestResolveCommand(t *testing.T) {
	root := testutil.SetupTestProject(t)
	doc := filepath.Join(root, "docs", "index.md")

	out, _, err := execute(t, NewResolveCommand(), testConfig(root, "json"), doc)
	require.NoError(t, err)
	got := decode[resolveOutput](t, out)
	assert.Equal(t, []string{"global", "*.md"}, got.Sections)
	assert.Equal(t, []string{"Vale", "Demo"}, got.Styles)
	assert.Contains(t, got.Vocabularies, "Base")
	assert.Equal(t, "suggestion", got.MinAlertLevel)
	assert.Equal(t, 2, got.Accept)

	levels := map[string]string{}
	for _, r := range got.Rules {
		levels[r.Name] = r.Level
	}
	assert.Equal(t, "error", levels["Demo.Weasel"])
	assert.Equal(t, "suggestion", levels["Demo.Simple"])

	out, _, err = execute(t, NewResolveCommand(), testConfig(root, "markdown"), doc, "--rules")
	require.NoError(t, err)
	assert.Contains(t, out, "- **Styles:** Vale, Demo")
	assert.Contains(t, out, "| Demo.Weasel | existence | error |")
}

func TestHistoryWithoutRegistry(t *testing.T) {
	root := testutil.SetupTestProject(t)

	out, _, err := execute(t, NewHistoryCommand(), testConfig(root, "markdown"))
	require.NoError(t, err)
	assert.Contains(t, out, "Nothing has been installed yet")
}

func TestSyncWithoutPackages(t *testing.T) {
	root := testutil.SetupTestProject(t)

	out, _, err := execute(t, NewSyncCommand(), testConfig(root, "markdown"))
	require.NoError(t, err)
	assert.Contains(t, out, "No packages to install")
}

func packageServer(t *testing.T) *httptest.Server {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("Extra/Rule.yml")
	require.NoError(t, err)
	_, err = w.Write([]byte("extends: existence\nmessage: \"%s\"\ntokens:\n  - foo\n"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	archive := buf.Bytes()
	sum := sha256.Sum256(archive)

	mux := http.NewServeMux()
	mux.HandleFunc("/Extra/releases/latest/download/Extra.zip", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(archive)
	})
	mux.HandleFunc("/Extra/releases/latest/download/Extra.zip.sha256", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprintf(w, "%s  Extra.zip\n", hex.EncodeToString(sum[:]))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestSyncAndHistory(t *testing.T) {
	root := testutil.SetupTestProject(t)
	srv := packageServer(t)
	cfg := testConfig(root, "json")
	cfg.Sources.PackagesURL = srv.URL
	cfg.Sources.RatePerSecond = 100

	out, _, err := execute(t, NewSyncCommand(), cfg, "Extra", "Broken")
	require.Error(t, err)
	assert.True(t, ErrIssuesFound(err))
	assert.NotContains(t, out, "Usage:")

	got := decode[syncOutput](t, out)
	assert.Equal(t, 1, got.Installed)
	assert.Equal(t, 1, got.Failed)
	require.Len(t, got.Packages, 2)
	assert.Equal(t, "Extra", got.Packages[0].Name)
	assert.Equal(t, "latest", got.Packages[0].Version)
	assert.Empty(t, got.Packages[0].Error)
	assert.Equal(t, "Broken", got.Packages[1].Ref)
	assert.Contains(t, got.Packages[1].Error, "status 404")
	assert.FileExists(t, filepath.Join(root, "styles", "Extra", "Rule.yml"))

	out, _, err = execute(t, NewHistoryCommand(), cfg)
	require.NoError(t, err)
	hist := decode[historyOutput](t, out)
	require.Len(t, hist.Installed, 1)
	assert.Equal(t, "Extra", hist.Installed[0].Name)
	assert.Len(t, hist.Events, 2)
}

func TestFailedRefs(t *testing.T) {
	boom := errors.New("boom")
	err := errors.Join(
		&assetsync.Error{Op: assetsync.OpInstallPackage, Ref: "A", Err: boom},
		errors.New("unrelated"),
		&assetsync.Error{Op: assetsync.OpInstallPackage, Ref: "B@1.0.0", Err: boom},
	)
	got := failedRefs(err)
	assert.Len(t, got, 2)
	assert.Equal(t, boom, got["A"])
	assert.Equal(t, boom, got["B@1.0.0"])

	assert.Empty(t, failedRefs(nil))
	single := failedRefs(&assetsync.Error{Ref: "C", Err: boom})
	assert.Equal(t, boom, single["C"])
}

func TestHelpers(t *testing.T) {
	assert.Equal(t, "Google", packageName("Google@0.6.1"))
	assert.Equal(t, "Google", packageName("Google"))

	root := filepath.FromSlash("/work/project")
	assert.Equal(t, "styles/Demo/A.yml", displayPath(root, filepath.Join(root, "styles", "Demo", "A.yml")))
	outside := filepath.FromSlash("/elsewhere/A.yml")
	assert.Equal(t, outside, displayPath(root, outside))

	tests := []struct {
		in   string
		want dsl.Severity
	}{
		{"error", dsl.SeverityError},
		{"warning", dsl.SeverityWarning},
		{"info", dsl.SeverityInformation},
		{"", dsl.SeverityInformation},
		{"hint", dsl.SeverityHint},
	}
	for _, tt := range tests {
		got, err := parseSeverity(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.in)
	}

	assert.Equal(t, "none", listOrNone(nil))
	assert.Equal(t, "a, b", listOrNone([]string{"a", "b"}))
}
