package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/vale-ls/internal/cli/output"
	"github.com/leapstack-labs/vale-ls/internal/state"
)

// HistoryOptions holds options for the history command.
type HistoryOptions struct {
	Limit int
}

type historyOutput struct {
	Installed []state.Record `json:"installed"`
	Events    []state.Event  `json:"events"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	opts := &HistoryOptions{}
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show installed packages and recent sync operations",
		Long: `Read the installed-package registry under StylesPath and show the
live version of every package and binary, followed by the most recent
install, update and sync operations.`,
		Example: `  vale-ls history --limit 5`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistory(cmd, opts)
		},
	}
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "Number of operations to show")
	return cmd
}

func runHistory(cmd *cobra.Command, opts *HistoryOptions) error {
	cc := NewCommandContext(cmd)
	p, err := cc.openProject(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer p.Close()
	if err := p.requireStylesPath(); err != nil {
		return err
	}

	r := cc.Renderer
	if p.store == nil {
		r.Muted("Nothing has been installed yet")
		return nil
	}

	ctx := cmd.Context()
	var out historyOutput
	for _, kind := range []string{state.KindBinary, state.KindPackage} {
		recs, err := p.store.Installed(ctx, kind)
		if err != nil {
			return err
		}
		out.Installed = append(out.Installed, recs...)
	}
	if out.Events, err = p.store.Events(ctx, opts.Limit); err != nil {
		return err
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(out)
	}

	r.Header(1, "Installed")
	if len(out.Installed) == 0 {
		r.Muted("none")
	} else {
		rows := make([][]string, 0, len(out.Installed))
		for _, rec := range out.Installed {
			rows = append(rows, []string{rec.Name, rec.Kind, rec.Version, rec.InstalledAt.Local().Format(time.DateTime)})
		}
		r.Table([]string{"Name", "Kind", "Version", "Installed"}, rows)
	}
	r.Println("")

	r.Header(2, "Recent operations")
	if len(out.Events) == 0 {
		r.Muted("none")
		return nil
	}
	rows := make([][]string, 0, len(out.Events))
	for _, ev := range out.Events {
		rows = append(rows, []string{ev.StartedAt.Local().Format(time.DateTime), ev.Op, ev.Ref, ev.Status, ev.Error})
	}
	r.Table([]string{"Started", "Operation", "Ref", "Status", "Error"}, rows)
	return nil
}
