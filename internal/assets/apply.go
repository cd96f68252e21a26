package assets

import (
	"errors"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
)

// Apply returns a new index reflecting one file event and the names of the
// packages whose resolved content may have changed. A path outside the
// index root is ignored. An unreadable path is recorded as Invalid and the
// returned error matches ErrAssetUnreadable.
func (idx *Index) Apply(p string, change ChangeKind) (*Index, []string, error) {
	rel, ok := idx.Rel(p)
	if !ok || ignored(rel) {
		return idx, nil, nil
	}

	c := idx.clone()
	impacted := map[string]bool{}

	if change == Deleted {
		c.remove(rel, impacted)
		return c, c.expand(impacted), nil
	}

	info, err := os.Stat(idx.Abs(rel))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			c.remove(rel, impacted)
			return c, c.expand(impacted), nil
		}
		c.recordUnreadable(rel, err)
		if a, ok := c.assets[rel]; ok {
			impacted[a.Package] = true
		}
		return c, c.expand(impacted), &UnreadableError{Path: rel, Err: err}
	}

	if info.IsDir() {
		if err := c.walk(rel); err != nil {
			return c, nil, err
		}
		for _, a := range c.assets {
			if a.Path == rel || strings.HasPrefix(a.Path, rel+"/") {
				impacted[a.Package] = true
			}
		}
		return c, c.expand(impacted), nil
	}

	if path.Base(rel) == ManifestFile && classifyDir(path.Dir(rel)) {
		c.addPackage(path.Dir(rel))
		impacted[path.Dir(rel)] = true
		return c, c.expand(impacted), nil
	}

	kind, owner, ok := classify(rel)
	if !ok {
		return idx, nil, nil
	}
	if kind == KindRuleFile {
		if _, exists := c.packages[owner]; !exists {
			c.addPackage(owner)
		}
	}
	c.assets[rel] = Asset{
		Path:    rel,
		Kind:    kind,
		Package: owner,
		ModTime: info.ModTime(),
		Size:    info.Size(),
	}
	if owner != "" {
		impacted[owner] = true
	}
	return c, c.expand(impacted), nil
}

// remove drops rel and everything below it.
func (idx *Index) remove(rel string, impacted map[string]bool) {
	for k, a := range idx.assets {
		if k == rel || strings.HasPrefix(k, rel+"/") {
			if a.Package != "" {
				impacted[a.Package] = true
			}
			delete(idx.assets, k)
		}
	}
	if _, ok := idx.packages[rel]; ok {
		impacted[rel] = true
		delete(idx.packages, rel)
	}
	if path.Base(rel) == ManifestFile {
		dir := path.Dir(rel)
		if p, ok := idx.packages[dir]; ok {
			p.BasedOn, p.Vocab, p.Description = nil, nil, ""
			idx.packages[dir] = p
			impacted[dir] = true
		}
	}
}

// expand adds transitive dependents and returns a sorted list.
func (idx *Index) expand(impacted map[string]bool) []string {
	for name := range impacted {
		for _, d := range idx.Dependents(name) {
			impacted[d] = true
		}
	}
	out := make([]string, 0, len(impacted))
	for name := range impacted {
		if name != "" {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
