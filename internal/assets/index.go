package assets

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// Index is an immutable catalogue of a StylesPath tree.
type Index struct {
	root     string
	assets   map[string]Asset
	packages map[string]Package
}

// Empty returns an index with no assets rooted at root.
func Empty(root string) *Index {
	return &Index{root: root, assets: map[string]Asset{}, packages: map[string]Package{}}
}

// Scan walks root and catalogues every asset. A missing root yields an
// empty index. Unreadable entries are recorded as Invalid rather than
// failing the scan.
func Scan(root string) (*Index, error) {
	idx := Empty(root)
	if _, err := os.Stat(root); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return idx, nil
		}
		return idx, &UnreadableError{Path: root, Err: err}
	}
	if err := idx.walk(""); err != nil {
		return idx, err
	}
	return idx, nil
}

// walk catalogues the subtree at rel ("" for the root) into idx in place.
// Only called on indexes not yet published.
func (idx *Index) walk(rel string) error {
	start := filepath.Join(idx.root, filepath.FromSlash(rel))
	return filepath.WalkDir(start, func(p string, d fs.DirEntry, err error) error {
		r, relErr := filepath.Rel(idx.root, p)
		if relErr != nil {
			return fmt.Errorf("relative path for %s: %w", p, relErr)
		}
		r = filepath.ToSlash(r)
		if r == "." {
			return err
		}
		if err != nil {
			idx.recordUnreadable(r, err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if skipDir(r) {
				return fs.SkipDir
			}
			if classifyDir(r) {
				idx.addPackage(r)
			}
			return nil
		}
		idx.addFile(r, d)
		return nil
	})
}

func (idx *Index) addFile(rel string, d fs.DirEntry) {
	kind, owner, ok := classify(rel)
	if !ok {
		if path.Base(rel) == ManifestFile && classifyDir(path.Dir(rel)) {
			idx.addPackage(path.Dir(rel))
		}
		return
	}
	a := Asset{Path: rel, Kind: kind, Package: owner}
	info, err := d.Info()
	if err != nil {
		a.State = Invalid
		a.Err = &UnreadableError{Path: rel, Err: err}
	} else {
		a.ModTime = info.ModTime()
		a.Size = info.Size()
	}
	idx.assets[rel] = a
}

func (idx *Index) recordUnreadable(rel string, err error) {
	kind, owner, ok := classify(rel)
	if !ok {
		if !classifyDir(rel) {
			return
		}
		kind, owner = KindStylePackage, rel
	}
	idx.assets[rel] = Asset{
		Path:    rel,
		Kind:    kind,
		Package: owner,
		State:   Invalid,
		Err:     &UnreadableError{Path: rel, Err: err},
	}
}

// addPackage registers a package directory and reads its manifest.
func (idx *Index) addPackage(rel string) {
	pkg := idx.packages[rel]
	pkg.Name = rel
	pkg.Dir = rel
	a := Asset{Path: rel, Kind: KindStylePackage, Package: rel}

	if info, err := os.Stat(filepath.Join(idx.root, rel)); err == nil {
		a.ModTime = info.ModTime()
	}
	m, err := ReadManifest(filepath.Join(idx.root, rel, ManifestFile))
	switch {
	case err == nil:
		pkg.Description = m.Description
		pkg.BasedOn = m.BasedOn
		pkg.Vocab = m.Vocab
		if pkg.Version == "" {
			pkg.Version = m.Version
		}
	case !errors.Is(err, fs.ErrNotExist):
		a.State = Invalid
		a.Err = err
	}
	idx.assets[rel] = a
	idx.packages[rel] = pkg
}

// Manifest is the optional meta.json of a style package.
type Manifest struct {
	Version     string   `json:"version"`
	Description string   `json:"description"`
	BasedOn     []string `json:"based_on"`
	Vocab       []string `json:"vocab"`
	Feed        string   `json:"feed"`
	ValeVersion string   `json:"vale_version"`
}

// ReadManifest reads a package manifest. A missing file yields an error
// matching fs.ErrNotExist.
func ReadManifest(p string) (*Manifest, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		return nil, &UnreadableError{Path: p, Err: err}
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", p, err)
	}
	return &m, nil
}

// Root returns the StylesPath the index was built from.
func (idx *Index) Root() string { return idx.root }

// Abs returns the absolute path of a relative asset path.
func (idx *Index) Abs(rel string) string {
	return filepath.Join(idx.root, filepath.FromSlash(rel))
}

// Rel converts an absolute or relative path to the index's relative form.
func (idx *Index) Rel(p string) (string, bool) {
	if !filepath.IsAbs(p) {
		return filepath.ToSlash(filepath.Clean(p)), true
	}
	r, err := filepath.Rel(idx.root, p)
	if err != nil || r == "." || strings.HasPrefix(r, "..") {
		return "", false
	}
	return filepath.ToSlash(r), true
}

// Get returns the asset at a relative path.
func (idx *Index) Get(rel string) (Asset, bool) {
	a, ok := idx.assets[rel]
	return a, ok
}

// Assets returns all assets sorted by path.
func (idx *Index) Assets() []Asset {
	out := make([]Asset, 0, len(idx.assets))
	for _, a := range idx.assets {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Count returns the number of assets of a kind.
func (idx *Index) Count(kind Kind) int {
	n := 0
	for _, a := range idx.assets {
		if a.Kind == kind {
			n++
		}
	}
	return n
}

// Packages returns all packages sorted by name.
func (idx *Index) Packages() []Package {
	out := make([]Package, 0, len(idx.packages))
	for _, p := range idx.packages {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Package returns a package by name.
func (idx *Index) Package(name string) (Package, bool) {
	p, ok := idx.packages[name]
	return p, ok
}

// RuleFiles returns the rule files of a package sorted by path.
func (idx *Index) RuleFiles(pkg string) []Asset {
	return idx.filter(func(a Asset) bool { return a.Kind == KindRuleFile && a.Package == pkg })
}

// VocabFiles returns the files of a vocabulary sorted by path.
func (idx *Index) VocabFiles(name string) []Asset {
	return idx.filter(func(a Asset) bool { return a.Kind == KindVocabFile && a.Package == name })
}

// Vocabularies returns the vocabulary names sorted.
func (idx *Index) Vocabularies() []string {
	seen := map[string]bool{}
	var names []string
	for _, a := range idx.assets {
		if a.Kind == KindVocabFile && !seen[a.Package] {
			seen[a.Package] = true
			names = append(names, a.Package)
		}
	}
	sort.Strings(names)
	return names
}

// Binaries returns the managed binary artifacts.
func (idx *Index) Binaries() []Asset {
	return idx.filter(func(a Asset) bool { return a.Kind == KindBinaryArtifact })
}

func (idx *Index) filter(keep func(Asset) bool) []Asset {
	var out []Asset
	for _, a := range idx.assets {
		if keep(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

func (idx *Index) clone() *Index {
	c := &Index{
		root:     idx.root,
		assets:   make(map[string]Asset, len(idx.assets)),
		packages: make(map[string]Package, len(idx.packages)),
	}
	for k, v := range idx.assets {
		c.assets[k] = v
	}
	for k, v := range idx.packages {
		c.packages[k] = v
	}
	return c
}

// WithState returns a copy with the parse state of one asset updated.
func (idx *Index) WithState(rel string, state ParseState, err error) *Index {
	a, ok := idx.assets[rel]
	if !ok {
		return idx
	}
	c := idx.clone()
	a.State = state
	a.Err = err
	c.assets[rel] = a
	return c
}

// WithInstalled returns a copy carrying registry data for installed
// packages.
func (idx *Index) WithInstalled(recs []Installed) *Index {
	c := idx.clone()
	for _, r := range recs {
		p, ok := c.packages[r.Name]
		if !ok {
			continue
		}
		p.Version = r.Version
		p.Origin = r.Origin
		p.Checksum = r.Checksum
		c.packages[r.Name] = p
	}
	return c
}

// Dependents returns the packages whose based-on closure includes name.
func (idx *Index) Dependents(name string) []string {
	seen := map[string]bool{name: true}
	queue := []string{name}
	var out []string
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, p := range idx.Packages() {
			if seen[p.Name] {
				continue
			}
			for _, b := range p.BasedOn {
				if b == cur {
					seen[p.Name] = true
					out = append(out, p.Name)
					queue = append(queue, p.Name)
					break
				}
			}
		}
	}
	sort.Strings(out)
	return out
}
