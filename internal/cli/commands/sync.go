package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/vale-ls/internal/assetsync"
	"github.com/leapstack-labs/vale-ls/internal/cli/output"
)

type syncResult struct {
	Ref     string `json:"ref"`
	Name    string `json:"name,omitempty"`
	Version string `json:"version,omitempty"`
	Path    string `json:"path,omitempty"`
	Error   string `json:"error,omitempty"`
}

type syncOutput struct {
	Packages  []syncResult `json:"packages"`
	Installed int          `json:"installed"`
	Failed    int          `json:"failed"`
}

// NewSyncCommand creates the sync command.
func NewSyncCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync [package...]",
		Short: "Install the packages listed in .vale.ini",
		Long: `Download and install style packages into StylesPath.

Without arguments every entry of the Packages key is installed. A
package is a library name (Google), a pinned release (Google@0.6.1)
or an archive URL. Each archive is verified before it replaces the
installed copy; a failed package leaves the previous one untouched.`,
		Example: `  # Everything listed in Packages
  vale-ls sync

  # One package
  vale-ls sync Microsoft`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, args)
		},
		// Problems are printed by the command itself.
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.Flags().Bool("allow-unverified", false, "Accept archives that publish no checksum")
	return cmd
}

func runSync(cmd *cobra.Command, refs []string) error {
	cc := NewCommandContext(cmd)
	p, err := cc.openProject(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer p.Close()
	if err := p.requireStylesPath(); err != nil {
		return err
	}

	r := cc.Renderer
	if len(refs) == 0 && p.snap.Config != nil {
		refs = p.snap.Config.Packages()
	}
	if len(refs) == 0 {
		r.Muted("No packages to install")
		return nil
	}

	installed, err := cc.synchronizer(p).InstallPackages(cmd.Context(), refs)
	out := syncOutput{Installed: len(installed)}
	byName := map[string]assetsync.Result{}
	for _, res := range installed {
		byName[res.Name] = res
	}
	failures := failedRefs(err)
	for _, ref := range refs {
		sr := syncResult{Ref: ref}
		if ferr, ok := failures[ref]; ok {
			sr.Error = ferr.Error()
			out.Failed++
		} else if res, ok := byName[packageName(ref)]; ok {
			sr.Name, sr.Version, sr.Path = res.Name, res.Version, res.Path
		}
		out.Packages = append(out.Packages, sr)
	}

	if r.EffectiveMode() == output.ModeJSON {
		if jerr := r.JSON(out); jerr != nil {
			return jerr
		}
	} else {
		renderSync(r, out)
	}
	if out.Failed > 0 {
		return errIssuesFound
	}
	return nil
}

// failedRefs splits a joined install error by package reference.
func failedRefs(err error) map[string]error {
	out := map[string]error{}
	if err == nil {
		return out
	}
	var errs []error
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		errs = joined.Unwrap()
	} else {
		errs = []error{err}
	}
	for _, e := range errs {
		var se *assetsync.Error
		if errors.As(e, &se) {
			out[se.Ref] = se.Err
		}
	}
	return out
}

// packageName strips a version pin from a library reference.
func packageName(ref string) string {
	name, _, _ := strings.Cut(ref, "@")
	return name
}

func renderSync(r *output.Renderer, out syncOutput) {
	for _, p := range out.Packages {
		switch {
		case p.Error != "":
			r.StatusLine(p.Ref, "error", p.Error)
		case p.Version != "":
			r.StatusLine(p.Name, "success", p.Version)
		default:
			r.StatusLine(p.Ref, "success", "")
		}
	}
	r.Println("")
	summary := fmt.Sprintf("%d installed, %d failed", out.Installed, out.Failed)
	if out.Failed > 0 {
		r.Error(summary)
		return
	}
	r.Success(summary)
}
