package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/vale-ls/internal/assetsync"
	"github.com/leapstack-labs/vale-ls/internal/cli/output"
)

// installOutput is the JSON form of a binary install or update.
type installOutput struct {
	Name     string `json:"name"`
	Version  string `json:"version"`
	Path     string `json:"path"`
	Origin   string `json:"origin"`
	Checksum string `json:"checksum,omitempty"`
	UpToDate bool   `json:"up_to_date,omitempty"`
}

// NewInstallCommand creates the install command.
func NewInstallCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "install [version]",
		Short: "Install the Vale binary into StylesPath",
		Long: `Download a Vale release for this platform, verify its checksum and
install it under StylesPath/.vale-ls/bin. The language server prefers
this binary over one found on PATH.

Without a version the latest release is installed.`,
		Example: `  # Latest release
  vale-ls install

  # A specific release
  vale-ls install 3.9.1`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version := ""
			if len(args) > 0 {
				version = args[0]
			}
			return runInstall(cmd, version)
		},
	}
	cmd.Flags().Bool("allow-unverified", false, "Accept archives that publish no checksum")
	return cmd
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update the installed Vale binary to the latest release",
		Long: `Compare the installed Vale version with the latest release and
install the release when it is newer.`,
		Example: `  vale-ls update`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runUpdate(cmd)
		},
	}
	cmd.Flags().Bool("allow-unverified", false, "Accept archives that publish no checksum")
	return cmd
}

func runInstall(cmd *cobra.Command, version string) error {
	cc := NewCommandContext(cmd)
	p, err := cc.openProject(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer p.Close()
	if err := p.requireStylesPath(); err != nil {
		return err
	}

	res, err := cc.synchronizer(p).Install(cmd.Context(), version)
	if err != nil {
		return err
	}
	return renderInstall(cc.Renderer, res, "Installed")
}

func runUpdate(cmd *cobra.Command) error {
	cc := NewCommandContext(cmd)
	p, err := cc.openProject(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer p.Close()
	if err := p.requireStylesPath(); err != nil {
		return err
	}

	res, err := cc.synchronizer(p).Update(cmd.Context())
	if errors.Is(err, assetsync.ErrUpToDate) {
		r := cc.Renderer
		if r.EffectiveMode() == output.ModeJSON {
			return r.JSON(installOutput{Name: assetsync.BinaryName, UpToDate: true})
		}
		r.Success("Vale is already up to date")
		return nil
	}
	if err != nil {
		return err
	}
	return renderInstall(cc.Renderer, res, "Updated")
}

func renderInstall(r *output.Renderer, res *assetsync.Result, verb string) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(installOutput{
			Name:     res.Name,
			Version:  res.Version,
			Path:     res.Path,
			Origin:   res.Origin,
			Checksum: res.Checksum,
		})
	}
	r.Success(fmt.Sprintf("%s %s %s", verb, res.Name, res.Version))
	r.KeyValue("Path", res.Path)
	r.KeyValue("Origin", res.Origin)
	return nil
}
