package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/vale-ls/internal/engine"
)

// VersionInfo is the build information printed by the version command.
type VersionInfo struct {
	Version   string
	Commit    string
	BuildDate string
}

// NewVersionCommand creates the version command.
func NewVersionCommand(info VersionInfo) *cobra.Command {
	var linter bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display vale-ls version and build information, and optionally the version of the Vale binary it runs.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "vale-ls v%s\n", info.Version)
			if info.Commit != "" && info.Commit != "unknown" {
				_, _ = fmt.Fprintf(w, "commit %s built %s\n", info.Commit, info.BuildDate)
			}
			if !linter {
				return nil
			}
			_, _ = fmt.Fprintf(w, "vale %s\n", linterVersion(cmd))
			return nil
		},
	}
	cmd.Flags().BoolVar(&linter, "linter", false, "Also report the Vale binary version")
	return cmd
}

func linterVersion(cmd *cobra.Command) string {
	cc := NewCommandContext(cmd)
	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	runner := engine.New(engine.Config{Path: cc.Cfg.LinterPath, Logger: cc.Logger})
	if p, err := cc.openProject(ctx, false); err == nil {
		runner = p.runner
		p.Close()
	}
	v, err := runner.Version(ctx)
	if err != nil {
		return "not installed"
	}
	return v
}
