package assets

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Layout names under StylesPath.
const (
	StateDir      = ".vale-ls"
	BinDir        = ".vale-ls/bin"
	ManifestFile  = "meta.json"
	AcceptFile    = "accept.txt"
	RejectFile    = "reject.txt"
	valeConfigDir = ".vale-config"
)

type rule struct {
	pattern string
	kind    Kind
	owner   int // path segment naming the owner
}

// Patterns are matched against the lower-cased relative path. Order matters:
// the first match wins.
var fileRules = []rule{
	{pattern: ".vale-ls/bin/*", kind: KindBinaryArtifact, owner: -1},
	{pattern: "vocab/*/*.txt", kind: KindVocabFile, owner: 1},
	{pattern: "config/vocabularies/*/*.txt", kind: KindVocabFile, owner: 2},
	{pattern: "*/**/*.{yml,yaml}", kind: KindRuleFile, owner: 0},
}

// classify returns the kind and owner of a relative file path.
func classify(rel string) (Kind, string, bool) {
	lower := strings.ToLower(rel)
	segs := strings.Split(rel, "/")
	for _, r := range fileRules {
		ok, err := doublestar.Match(r.pattern, lower)
		if err != nil || !ok {
			continue
		}
		if r.kind == KindRuleFile && reserved(segs[0]) {
			return 0, "", false
		}
		owner := ""
		if r.owner >= 0 {
			owner = segs[r.owner]
		}
		return r.kind, owner, true
	}
	return 0, "", false
}

// classifyDir reports whether a relative directory is a style package.
func classifyDir(rel string) bool {
	return !strings.Contains(rel, "/") && !reserved(rel)
}

// reserved reports whether a top-level directory holds something other than
// a style package.
func reserved(top string) bool {
	switch strings.ToLower(top) {
	case StateDir, valeConfigDir, "vocab", "config":
		return true
	}
	return strings.HasPrefix(top, ".")
}

// skipDir reports whether a directory is never walked.
func skipDir(rel string) bool {
	if rel == StateDir || rel == BinDir {
		return false
	}
	if strings.HasPrefix(rel, StateDir+"/") {
		return true
	}
	top, _, _ := strings.Cut(rel, "/")
	return top != StateDir && strings.HasPrefix(top, ".")
}

// ignored reports whether events for rel are outside the catalogue.
func ignored(rel string) bool {
	if k, _, ok := classify(rel); ok && k == KindBinaryArtifact {
		return false
	}
	if rel == StateDir || rel == BinDir {
		return false
	}
	return skipDir(rel)
}
