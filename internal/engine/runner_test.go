package engine

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/vale-ls/internal/testutil"
)

const alertsJSON = `{
  "stdin.md": [
    {"Action": {"Name": "replace", "Params": ["use"]}, "Check": "Demo.Simple", "Match": "utilize",
     "Line": 3, "Span": [5, 11], "Severity": "warning", "Message": "Use 'use' instead of 'utilize'."},
    {"Action": {"Name": "", "Params": null}, "Check": "Demo.Weasel", "Match": "very",
     "Line": 1, "Span": [1, 4], "Severity": "error", "Message": "Avoid 'very'.", "Link": "https://example.com"}
  ]
}`

func TestParseAlerts(t *testing.T) {
	tests := []struct {
		name       string
		stdout     string
		stderr     string
		wantChecks []string
		wantErr    string
	}{
		{
			name:       "alerts sorted by position",
			stdout:     alertsJSON,
			wantChecks: []string{"Demo.Weasel", "Demo.Simple"},
		},
		{
			name:   "no alerts",
			stdout: "{}",
		},
		{
			name: "empty output",
		},
		{
			name:    "runtime error on stdout",
			stdout:  `{"Code": "E100", "Text": "missing StylesPath", "Path": ".vale.ini", "Line": 1, "Span": 1}`,
			wantErr: ".vale.ini:1:1: missing StylesPath",
		},
		{
			name:    "error on stderr",
			stderr:  `{"Code": "E201", "Text": "Invalid value"}`,
			wantErr: "Invalid value",
		},
		{
			name:    "garbage",
			stdout:  "not json",
			wantErr: "failed to parse linter output",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alerts, err := parseAlerts([]byte(tt.stdout), []byte(tt.stderr))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			var checks []string
			for _, a := range alerts {
				checks = append(checks, a.Check)
			}
			assert.Equal(t, tt.wantChecks, checks)
		})
	}
}

func TestParseAlertsFields(t *testing.T) {
	alerts, err := parseAlerts([]byte(alertsJSON), nil)
	require.NoError(t, err)
	require.Len(t, alerts, 2)

	simple := alerts[1]
	assert.Equal(t, "replace", simple.Action.Name)
	assert.Equal(t, []string{"use"}, simple.Action.Params)
	assert.Equal(t, 3, simple.Line)
	assert.Equal(t, [2]int{5, 11}, simple.Span)
	assert.Equal(t, "warning", simple.Severity)
	assert.Equal(t, "https://example.com", alerts[0].Link)
}

// fakeVale writes a shell script standing in for the linter.
func fakeVale(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fixture")
	}
	p := filepath.Join(t.TempDir(), "vale")
	require.NoError(t, os.WriteFile(p, []byte("#!/bin/sh\n"+script), 0o755))
	return p
}

func TestRunnerLint(t *testing.T) {
	exe := fakeVale(t, `
for arg in "$@"; do
  case "$arg" in
    --ext=.md) ;;
    --output=JSON) ;;
    --config=*) ;;
    *) echo "unexpected arg $arg" >&2; exit 2 ;;
  esac
done
input=$(cat)
[ "$input" = "very good" ] || { echo "bad stdin" >&2; exit 2; }
cat <<'EOF'
`+alertsJSON+`
EOF
exit 1
`)
	r := New(Config{Path: exe, ConfigPath: "/tmp/.vale.ini", Logger: testutil.NewTestLogger(t)})

	alerts, err := r.Lint(context.Background(), filepath.Join(t.TempDir(), "doc.md"), "very good")
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	assert.Equal(t, "Demo.Weasel", alerts[0].Check)
}

func TestRunnerLintFailure(t *testing.T) {
	exe := fakeVale(t, `cat >/dev/null; echo '{"Code": "E100", "Text": "broken config"}' >&2; exit 2`)
	r := New(Config{Path: exe})

	_, err := r.Lint(context.Background(), "doc.md", "text")
	require.Error(t, err)
	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, "E100", runErr.Code)
}

func TestRunnerVersionAndConfig(t *testing.T) {
	exe := fakeVale(t, `
case "$1" in
  -v) echo "vale version v3.9.1" ;;
  ls-config) echo '{"StylesPath": "/styles", "MinAlertLevel": 1}' ;;
esac
`)
	r := New(Config{Path: exe})
	ctx := context.Background()

	v, err := r.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, "3.9.1", v)

	cfg, err := r.Config(ctx, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "/styles", cfg.StylesPath)
	assert.Equal(t, 1, cfg.MinAlertLevel)
}

func TestExecutable(t *testing.T) {
	dir := t.TempDir()
	managed := filepath.Join(dir, "managed")
	explicit := filepath.Join(dir, "explicit")
	require.NoError(t, os.WriteFile(explicit, []byte("x"), 0o755))

	r := New(Config{ManagedPath: managed, Path: explicit})
	exe, err := r.Executable()
	require.NoError(t, err)
	assert.Equal(t, explicit, exe)

	require.NoError(t, os.WriteFile(managed, []byte("x"), 0o755))
	exe, err = r.Executable()
	require.NoError(t, err)
	assert.Equal(t, managed, exe)

	r = New(Config{Path: filepath.Join(dir, "missing")})
	_, err = r.Executable()
	assert.ErrorIs(t, err, ErrNotInstalled)
	assert.False(t, r.Installed())
}
