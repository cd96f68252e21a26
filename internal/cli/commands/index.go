package commands

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/vale-ls/internal/assets"
	"github.com/leapstack-labs/vale-ls/internal/cli/output"
)

// IndexOptions holds options for the index command.
type IndexOptions struct {
	Kind    string // package, rule, vocab, binary
	Package string
}

// indexAsset is the JSON form of one asset.
type indexAsset struct {
	Path    string `json:"path"`
	Kind    string `json:"kind"`
	Package string `json:"package,omitempty"`
	State   string `json:"state"`
	Error   string `json:"error,omitempty"`
}

// indexPackage is the JSON form of one style package.
type indexPackage struct {
	Name        string   `json:"name"`
	Version     string   `json:"version,omitempty"`
	Origin      string   `json:"origin,omitempty"`
	Description string   `json:"description,omitempty"`
	Rules       int      `json:"rules"`
	BasedOn     []string `json:"based_on,omitempty"`
}

// indexOutput is the JSON form of the index command.
type indexOutput struct {
	StylesPath string         `json:"styles_path"`
	Packages   []indexPackage `json:"packages"`
	Assets     []indexAsset   `json:"assets"`
}

// NewIndexCommand creates the index command.
func NewIndexCommand() *cobra.Command {
	opts := &IndexOptions{}
	cmd := &cobra.Command{
		Use:   "index",
		Short: "List the assets under StylesPath",
		Long: `Scan StylesPath and list every style package, rule file,
vocabulary file and managed binary found there.

Output adapts to environment:
  - Terminal: Styled tables
  - Piped/Scripted: Markdown format
  - JSON: Machine-readable format`,
		Example: `  # List everything
  vale-ls index

  # Rule files of one package
  vale-ls index --kind rule --package Google

  # Output as JSON
  vale-ls index -o json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runIndex(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Kind, "kind", "", "Filter by kind: package, rule, vocab, binary")
	cmd.Flags().StringVarP(&opts.Package, "package", "p", "", "Filter by package or vocabulary name")
	_ = cmd.RegisterFlagCompletionFunc("kind", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"package", "rule", "vocab", "binary"}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runIndex(cmd *cobra.Command, opts *IndexOptions) error {
	cc := NewCommandContext(cmd)
	if err := cc.Cfg.ValidateStylesPath(); err != nil {
		return err
	}
	p, err := cc.openProject(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer p.Close()
	if err := p.requireStylesPath(); err != nil {
		return err
	}

	idx := p.snap.Index
	out := indexOutput{StylesPath: idx.Root()}
	for _, pkg := range idx.Packages() {
		if opts.Package != "" && pkg.Name != opts.Package {
			continue
		}
		out.Packages = append(out.Packages, indexPackage{
			Name:        pkg.Name,
			Version:     pkg.Version,
			Origin:      pkg.Origin,
			Description: pkg.Description,
			Rules:       len(idx.RuleFiles(pkg.Name)),
			BasedOn:     pkg.BasedOn,
		})
	}
	for _, a := range filterAssets(idx.Assets(), opts) {
		ia := indexAsset{Path: a.Path, Kind: a.Kind.String(), Package: a.Package, State: a.State.String()}
		if a.Err != nil {
			ia.Error = a.Err.Error()
		}
		out.Assets = append(out.Assets, ia)
	}

	r := cc.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(out)
	}
	renderIndex(r, out)
	return nil
}

func filterAssets(all []assets.Asset, opts *IndexOptions) []assets.Asset {
	var out []assets.Asset
	for _, a := range all {
		if opts.Kind != "" && a.Kind.String() != opts.Kind {
			continue
		}
		if opts.Package != "" && a.Package != opts.Package {
			continue
		}
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

func renderIndex(r *output.Renderer, out indexOutput) {
	title := cases.Title(language.English)

	r.Header(1, "StylesPath")
	r.KeyValue("Path", out.StylesPath)
	r.KeyValue("Packages", strconv.Itoa(len(out.Packages)))
	r.KeyValue("Assets", strconv.Itoa(len(out.Assets)))
	r.Println("")

	if len(out.Packages) > 0 {
		r.Header(2, "Packages")
		rows := make([][]string, 0, len(out.Packages))
		for _, p := range out.Packages {
			rows = append(rows, []string{p.Name, valueOr(p.Version, "-"), strconv.Itoa(p.Rules), p.Description})
		}
		r.Table([]string{"Name", "Version", "Rules", "Description"}, rows)
		r.Println("")
	}

	if len(out.Assets) == 0 {
		r.Muted("No assets found")
		return
	}
	r.Header(2, "Assets")
	rows := make([][]string, 0, len(out.Assets))
	for _, a := range out.Assets {
		state := title.String(a.State)
		if a.Error != "" {
			state = fmt.Sprintf("%s: %s", state, a.Error)
		}
		rows = append(rows, []string{a.Path, title.String(a.Kind), state})
	}
	r.Table([]string{"Path", "Kind", "State"}, rows)
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
