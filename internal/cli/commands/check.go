package commands

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/vale-ls/internal/cli/output"
	"github.com/leapstack-labs/vale-ls/pkg/dsl"
)

// CheckOptions holds options for the check command.
type CheckOptions struct {
	Severity string // Minimum severity reported
}

// checkDiagnostic is the JSON form of one diagnostic.
type checkDiagnostic struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
	Severity string `json:"severity"`
	Kind     string `json:"kind"`
	Message  string `json:"message"`
}

// checkSummary counts diagnostics by severity.
type checkSummary struct {
	Files    int `json:"files"`
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
	Info     int `json:"info"`
}

type checkOutput struct {
	Config      string            `json:"config,omitempty"`
	Diagnostics []checkDiagnostic `json:"diagnostics"`
	Summary     checkSummary      `json:"summary"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand() *cobra.Command {
	opts := &CheckOptions{}
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check .vale.ini and rule files for configuration problems",
		Long: `Parse the linter configuration and every rule file under StylesPath
and report schema violations, unresolved references, inheritance
cycles and unreadable assets.

The command exits with a non-zero status when an error is found.`,
		Example: `  # Check the project
  vale-ls check

  # Errors only
  vale-ls check --severity error

  # Output as JSON
  vale-ls check -o json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCheck(cmd, opts)
		},
		// Problems are printed by the command itself.
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.Flags().StringVarP(&opts.Severity, "severity", "s", "info", "Minimum severity to report: error, warning, info")
	_ = cmd.RegisterFlagCompletionFunc("severity", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"error", "warning", "info"}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func parseSeverity(s string) (dsl.Severity, error) {
	switch s {
	case "error":
		return dsl.SeverityError, nil
	case "warning":
		return dsl.SeverityWarning, nil
	case "info", "":
		return dsl.SeverityInformation, nil
	case "hint":
		return dsl.SeverityHint, nil
	}
	return 0, fmt.Errorf("invalid severity %q: must be one of error, warning, info", s)
}

func runCheck(cmd *cobra.Command, opts *CheckOptions) error {
	threshold, err := parseSeverity(opts.Severity)
	if err != nil {
		return err
	}

	cc := NewCommandContext(cmd)
	p, err := cc.openProject(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer p.Close()

	snap := p.snap
	if snap.ConfigPath == "" {
		return fmt.Errorf("no .vale.ini found in %s or its parents", cc.Cfg.ProjectRoot)
	}

	var all []dsl.Diagnostic
	for _, d := range snap.ConfigDiagnostics() {
		if d.File == "" {
			d.File = snap.ConfigPath
		}
		all = append(all, d)
	}
	files := 1
	for rel, f := range snap.Rules {
		files++
		for _, d := range f.Diagnostics {
			if d.File == "" {
				d.File = snap.Index.Abs(rel)
			}
			all = append(all, d)
		}
	}

	out := checkOutput{Config: snap.ConfigPath, Summary: checkSummary{Files: files}}
	for _, d := range all {
		if d.Severity > threshold {
			continue
		}
		switch d.Severity {
		case dsl.SeverityError:
			out.Summary.Errors++
		case dsl.SeverityWarning:
			out.Summary.Warnings++
		default:
			out.Summary.Info++
		}
		out.Diagnostics = append(out.Diagnostics, checkDiagnostic{
			File:     displayPath(cc.Cfg.ProjectRoot, d.File),
			Line:     d.Span.Start.Line,
			Column:   d.Span.Start.Column,
			Severity: d.Severity.String(),
			Kind:     string(d.Kind),
			Message:  d.Text(),
		})
	}
	sort.SliceStable(out.Diagnostics, func(i, j int) bool {
		a, b := out.Diagnostics[i], out.Diagnostics[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Column < b.Column
	})

	r := cc.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		if err := r.JSON(out); err != nil {
			return err
		}
	} else {
		renderCheck(r, out)
	}
	if out.Summary.Errors > 0 {
		return errIssuesFound
	}
	return nil
}

// displayPath shortens p relative to root when it lies inside it.
func displayPath(root, p string) string {
	if rel, err := filepath.Rel(root, p); err == nil && filepath.IsLocal(rel) {
		return filepath.ToSlash(rel)
	}
	return p
}

func renderCheck(r *output.Renderer, out checkOutput) {
	if len(out.Diagnostics) == 0 {
		r.Success(fmt.Sprintf("No configuration problems found (%d files checked)", out.Summary.Files))
		return
	}

	styles := r.Styles()
	markdown := r.EffectiveMode() == output.ModeMarkdown
	if markdown {
		r.Header(1, "Configuration Problems")
	}
	for _, d := range out.Diagnostics {
		loc := fmt.Sprintf("%s:%d:%d", d.File, d.Line, d.Column)
		if markdown {
			r.Printf("- `%s` **%s** %s: %s\n", loc, d.Severity, d.Kind, d.Message)
			continue
		}
		r.Printf("%s %s %s %s\n",
			styles.Path.Render(loc),
			styles.Level(d.Severity).Render(d.Severity),
			styles.Muted.Render(d.Kind),
			d.Message)
	}
	r.Println("")
	summary := fmt.Sprintf("%d errors, %d warnings, %d info in %d files",
		out.Summary.Errors, out.Summary.Warnings, out.Summary.Info, out.Summary.Files)
	if markdown {
		r.Println(output.FormatKeyValue("Summary", summary))
		return
	}
	r.Println(styles.Bold.Render(summary))
}
