// Package cli provides the command-line interface for vale-ls.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/vale-ls/internal/cli/commands"
	"github.com/leapstack-labs/vale-ls/internal/cli/config"
	"github.com/leapstack-labs/vale-ls/internal/cli/output"
)

var cfgFile string

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// skipConfig lists commands that run without loading configuration.
var skipConfig = map[string]bool{
	"help":                          true,
	"completion":                    true,
	cobra.ShellCompRequestCmd:       true,
	cobra.ShellCompNoDescRequestCmd: true,
}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "vale-ls",
		Short: "vale-ls - language server for Vale",
		Long: `vale-ls is a language server for the Vale prose linter.

It lints prose as you type and understands Vale's own configuration:
.vale.ini and rule files get completion, hover documentation, links and
diagnostics, and style packages and the Vale binary are installed into
StylesPath on demand.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if skipConfig[cmd.Name()] {
				return nil
			}

			cfg, err := config.LoadConfig(cfgFile, cmd.Flags())
			if err != nil {
				return err
			}

			logger := config.NewLogger(cfg)
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx = config.WithConfig(ctx, cfg)
			ctx = context.WithValue(ctx, config.LoggerKey(), logger)
			cmd.SetContext(ctx)

			if configFile := config.GetConfigFileUsed(); configFile != "" {
				logger.Debug("Using config file", "path", configFile)
			}
			logger.Debug("Project root", "path", cfg.ProjectRoot)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
`)

	// Global persistent flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "settings file (default: ./.vale-ls.yaml)")
	flags.StringP("project-dir", "C", "", "Project directory (default: searched upward from the working directory)")
	flags.String("vale-config", "", "Path to .vale.ini")
	flags.String("styles-path", "", "Override the StylesPath from .vale.ini")
	flags.String("linter-path", "", "Path to the vale executable")
	flags.String("filter", "", "Filter expression passed to vale")
	flags.String("log-level", "", "Log level (debug|info|warn|error)")
	flags.BoolP("verbose", "v", false, "Verbose output")
	flags.StringP("output", "o", "", "Output format (auto|text|markdown|json)")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return output.Modes, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("log-level", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"debug", "info", "warn", "error"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.MarkPersistentFlagDirname("project-dir")
	_ = rootCmd.MarkPersistentFlagDirname("styles-path")

	// Add subcommands
	rootCmd.AddCommand(commands.NewVersionCommand(commands.VersionInfo{
		Version:   Version,
		Commit:    GitCommit,
		BuildDate: BuildDate,
	}))
	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewIndexCommand())
	rootCmd.AddCommand(commands.NewCheckCommand())
	rootCmd.AddCommand(commands.NewResolveCommand())
	rootCmd.AddCommand(commands.NewInstallCommand())
	rootCmd.AddCommand(commands.NewUpdateCommand())
	rootCmd.AddCommand(commands.NewSyncCommand())
	rootCmd.AddCommand(commands.NewHistoryCommand())
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		// Commands that found problems have already printed them.
		if !commands.ErrIssuesFound(err) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return err
	}
	return nil
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for vale-ls.

To load completions:

Bash:
  $ source <(vale-ls completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ vale-ls completion bash > /etc/bash_completion.d/vale-ls
  # macOS:
  $ vale-ls completion bash > $(brew --prefix)/etc/bash_completion.d/vale-ls

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. Execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ vale-ls completion zsh > "${fpath[1]}/_vale-ls"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ vale-ls completion fish | source

  # To load completions for each session, execute once:
  $ vale-ls completion fish > ~/.config/fish/completions/vale-ls.fish

PowerShell:
  PS> vale-ls completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> vale-ls completion powershell > vale-ls.ps1
  # and source this file from your PowerShell profile.
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
	return cmd
}
