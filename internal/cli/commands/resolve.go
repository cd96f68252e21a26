package commands

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/vale-ls/internal/cli/output"
	"github.com/leapstack-labs/vale-ls/internal/resolve"
)

// ResolveOptions holds options for the resolve command.
type ResolveOptions struct {
	Rules bool // List every enabled rule
}

type resolvedRule struct {
	Name  string `json:"name"`
	Kind  string `json:"kind,omitempty"`
	Level string `json:"level"`
	Path  string `json:"path,omitempty"`
}

type resolveOutput struct {
	File          string         `json:"file"`
	Scope         string         `json:"scope"`
	Sections      []string       `json:"sections"`
	Styles        []string       `json:"styles"`
	Vocabularies  []string       `json:"vocabularies"`
	MinAlertLevel string         `json:"min_alert_level"`
	Accept        int            `json:"accept"`
	Reject        int            `json:"reject"`
	Rules         []resolvedRule `json:"rules"`
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand() *cobra.Command {
	opts := &ResolveOptions{}
	cmd := &cobra.Command{
		Use:   "resolve <file>",
		Short: "Show the effective configuration for a file",
		Long: `Resolve the configuration that applies to a file: the matching
sections, the styles and vocabularies in effect after BasedOnStyles
inheritance, and every enabled rule with its level.`,
		Example: `  # Configuration for a markdown file
  vale-ls resolve docs/index.md

  # Include the enabled rules
  vale-ls resolve docs/index.md --rules`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(cmd, args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Rules, "rules", false, "List every enabled rule")

	return cmd
}

func runResolve(cmd *cobra.Command, file string, opts *ResolveOptions) error {
	cc := NewCommandContext(cmd)
	p, err := cc.openProject(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer p.Close()

	abs, err := filepath.Abs(file)
	if err != nil {
		return err
	}
	scope := p.snap.Scope(abs)
	res := p.snap.Resolve(scope)
	out := newResolveOutput(file, res)

	r := cc.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(out)
	}
	renderResolve(r, out, opts.Rules)
	return nil
}

func newResolveOutput(file string, res *resolve.Config) resolveOutput {
	out := resolveOutput{
		File:          file,
		Scope:         res.Scope,
		Sections:      res.Sections,
		Styles:        res.Styles,
		Vocabularies:  res.Vocabularies,
		MinAlertLevel: res.MinAlertLevel,
		Accept:        len(res.Vocab.Accept),
		Reject:        len(res.Vocab.Reject),
	}
	for _, er := range res.Rules {
		rr := resolvedRule{Name: er.Name, Level: er.Level, Path: er.Path}
		if er.Definition != nil {
			rr.Kind = er.Definition.Extends
		}
		out.Rules = append(out.Rules, rr)
	}
	return out
}

func renderResolve(r *output.Renderer, out resolveOutput, rules bool) {
	r.Header(1, out.File)
	r.KeyValue("Scope", out.Scope)
	r.KeyValue("Sections", listOrNone(out.Sections))
	r.KeyValue("Styles", listOrNone(out.Styles))
	r.KeyValue("Vocabularies", listOrNone(out.Vocabularies))
	r.KeyValue("MinAlertLevel", out.MinAlertLevel)
	r.KeyValue("Terms", strconv.Itoa(out.Accept)+" accepted, "+strconv.Itoa(out.Reject)+" rejected")
	r.KeyValue("Rules", strconv.Itoa(len(out.Rules))+" enabled")

	if !rules || len(out.Rules) == 0 {
		return
	}
	r.Println("")
	r.Header(2, "Rules")
	rows := make([][]string, 0, len(out.Rules))
	for _, rule := range out.Rules {
		rows = append(rows, []string{rule.Name, valueOr(rule.Kind, "-"), rule.Level, valueOr(rule.Path, "built-in")})
	}
	r.Table([]string{"Rule", "Kind", "Level", "Path"}, rows)
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}
