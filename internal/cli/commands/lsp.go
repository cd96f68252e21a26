package commands

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/vale-ls/internal/lsp"
	"github.com/leapstack-labs/vale-ls/internal/observability"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"lsp"},
		Short:   "Start the Language Server Protocol server",
		Long: `Start the LSP server for editor integration.

The server communicates over stdin/stdout using JSON-RPC.
The project root is taken from the client's initialize request
(rootUri); settings from .vale-ls.yaml, VALE_LS_* variables and flags
apply first, and the client's initializationOptions on top.`,
		Example: `  # Start the server (usually launched by an editor)
  vale-ls serve

  # Expose Prometheus metrics while serving
  vale-ls serve --metrics-addr 127.0.0.1:9464`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd)
		},
	}

	// Editors commonly pass --stdio; it is the only transport.
	cmd.Flags().Bool("stdio", true, "Communicate over stdin/stdout")
	cmd.Flags().String("metrics-addr", "", "Serve /metrics and /health on this address")
	cmd.Flags().Bool("install-vale", false, "Install the linter on startup when it is missing")
	cmd.Flags().Bool("sync-on-startup", false, "Install the packages listed in .vale.ini on startup")

	return cmd
}

func runServe(cmd *cobra.Command) error {
	cc := NewCommandContext(cmd)
	settings := cc.Cfg.Settings

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	server := lsp.NewServerWithOptions(cmd.InOrStdin(), cmd.OutOrStdout(), lsp.Options{
		Logger:   cc.Logger,
		Settings: &settings,
		Version:  cc.Version,
	})

	if settings.MetricsAddr != "" {
		metrics := observability.NewServer(settings.MetricsAddr, server.Health, cc.Logger)
		go func() {
			if err := metrics.Serve(ctx); err != nil {
				cc.Logger.Warn("Metrics server stopped", "error", err)
			}
		}()
	}
	err := server.Run()
	if errors.Is(err, lsp.ErrExitWithoutShutdown) {
		cc.Logger.Warn("Client exited without shutdown")
	}
	return err
}
