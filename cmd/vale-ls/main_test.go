// Package main provides tests for the vale-ls CLI.
package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/leapstack-labs/vale-ls/internal/cli"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := cli.NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestVersionCommand(t *testing.T) {
	t.Chdir(t.TempDir())

	output, err := run(t, "version")
	if err != nil {
		t.Fatalf("version command error = %v", err)
	}
	if !strings.Contains(output, "vale-ls v"+cli.Version) {
		t.Errorf("version output should contain the version, got: %s", output)
	}
}

func TestVersionFlag(t *testing.T) {
	output, err := run(t, "--version")
	if err != nil {
		t.Fatalf("--version error = %v", err)
	}
	if strings.TrimSpace(output) != "vale-ls "+cli.Version {
		t.Errorf("unexpected --version output: %q", output)
	}
}

func TestHelpCommand(t *testing.T) {
	output, err := run(t, "--help")
	if err != nil {
		t.Fatalf("help command error = %v", err)
	}
	for _, expected := range []string{"serve", "index", "check", "resolve", "install", "update", "sync", "history", "completion"} {
		if !strings.Contains(output, expected) {
			t.Errorf("help output should contain '%s', got: %s", expected, output)
		}
	}
	for _, flag := range []string{"--config", "--project-dir", "--styles-path", "--output"} {
		if !strings.Contains(output, flag) {
			t.Errorf("help output should contain flag '%s'", flag)
		}
	}
}

func TestCompletionCommand(t *testing.T) {
	tests := []struct {
		shell string
		want  string
	}{
		{"bash", "bash completion"},
		{"zsh", "#compdef vale-ls"},
		{"fish", "complete -c vale-ls"},
		{"powershell", "Register-ArgumentCompleter"},
	}
	for _, tt := range tests {
		t.Run(tt.shell, func(t *testing.T) {
			output, err := run(t, "completion", tt.shell)
			if err != nil {
				t.Fatalf("completion %s error = %v", tt.shell, err)
			}
			if !strings.Contains(output, tt.want) {
				t.Errorf("completion %s output should contain %q", tt.shell, tt.want)
			}
		})
	}

	if _, err := run(t, "completion", "tcsh"); err == nil {
		t.Error("expected an error for an unsupported shell")
	}
}

func TestInvalidOutputFormat(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := run(t, "check", "-o", "yaml")
	if err == nil || !strings.Contains(err.Error(), "output") {
		t.Errorf("expected an output format error, got %v", err)
	}
}

func TestCheckWithoutConfiguration(t *testing.T) {
	dir := t.TempDir()

	_, err := run(t, "--project-dir", dir, "--linter-path", dir+"/missing", "check")
	if err == nil || !strings.Contains(err.Error(), "no .vale.ini found") {
		t.Errorf("expected a missing configuration error, got %v", err)
	}
}
