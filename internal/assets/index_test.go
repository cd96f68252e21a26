package assets

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/vale-ls/internal/testutil"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		rel   string
		kind  Kind
		owner string
		ok    bool
	}{
		{"Microsoft/Headings.yml", KindRuleFile, "Microsoft", true},
		{"Microsoft/nested/Rule.yaml", KindRuleFile, "Microsoft", true},
		{"Vocab/Base/accept.txt", KindVocabFile, "Base", true},
		{"config/vocabularies/Blog/reject.txt", KindVocabFile, "Blog", true},
		{".vale-ls/bin/vale", KindBinaryArtifact, "", true},
		{"config/templates/x.yml", 0, "", false},
		{".vale-config/0-Hugo.ini", 0, "", false},
		{"README.md", 0, "", false},
		{"Rule.yml", 0, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.rel, func(t *testing.T) {
			kind, owner, ok := classify(tt.rel)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.kind, kind)
				assert.Equal(t, tt.owner, owner)
			}
		})
	}
}

func TestScan(t *testing.T) {
	root := testutil.StylesTree(t, map[string]string{
		"Other/meta.json":      `{"version": "1.2.0", "description": "Other rules", "based_on": ["Demo"]}`,
		"Other/Rule.yml":       "extends: existence\nmessage: x\ntokens: [a]\n",
		".vale-ls/bin/vale":    "binary",
		".vale-ls/state.db":    "ignored",
		".vale-config/0-x.ini": "ignored",
	})

	idx, err := Scan(root)
	require.NoError(t, err)

	pkgs := idx.Packages()
	require.Len(t, pkgs, 2)
	assert.Equal(t, "Demo", pkgs[0].Name)
	assert.Equal(t, "Other", pkgs[1].Name)
	assert.Equal(t, "1.2.0", pkgs[1].Version)
	assert.Equal(t, []string{"Demo"}, pkgs[1].BasedOn)

	assert.Len(t, idx.RuleFiles("Demo"), 2)
	assert.Equal(t, []string{"Base"}, idx.Vocabularies())
	assert.Equal(t, 2, idx.Count(KindVocabFile))
	assert.Equal(t, 1, idx.Count(KindBinaryArtifact))
	assert.Equal(t, 3, idx.Count(KindRuleFile))

	for _, a := range idx.Assets() {
		assert.Equal(t, Unparsed, a.State, a.Path)
	}
	assert.Equal(t, []string{"Other"}, idx.Dependents("Demo"))
}

func TestScanMissingRoot(t *testing.T) {
	idx, err := Scan(filepath.Join(t.TempDir(), "missing"))
	require.NoError(t, err)
	assert.Empty(t, idx.Assets())
}

func TestApply(t *testing.T) {
	root := testutil.StylesTree(t, map[string]string{
		"Other/meta.json": `{"based_on": ["Demo"]}`,
	})
	idx, err := Scan(root)
	require.NoError(t, err)

	testutil.WriteTree(t, root, map[string]string{"Demo/New.yml": "extends: existence\n"})
	next, impacted, err := idx.Apply(filepath.Join(root, "Demo", "New.yml"), Created)
	require.NoError(t, err)
	assert.Equal(t, []string{"Demo", "Other"}, impacted)

	a, ok := next.Get("Demo/New.yml")
	require.True(t, ok)
	assert.Equal(t, KindRuleFile, a.Kind)

	_, ok = idx.Get("Demo/New.yml")
	assert.False(t, ok, "original snapshot must not change")

	require.NoError(t, os.Remove(filepath.Join(root, "Demo", "Weasel.yml")))
	next, impacted, err = next.Apply(filepath.Join(root, "Demo", "Weasel.yml"), Deleted)
	require.NoError(t, err)
	assert.Equal(t, []string{"Demo", "Other"}, impacted)
	_, ok = next.Get("Demo/Weasel.yml")
	assert.False(t, ok)

	next, impacted, err = next.Apply("Demo", Deleted)
	require.NoError(t, err)
	assert.Equal(t, []string{"Demo", "Other"}, impacted)
	_, ok = next.Package("Demo")
	assert.False(t, ok)
	assert.Empty(t, next.RuleFiles("Demo"))

	same, impacted, err := next.Apply(filepath.Join(root, ".vale-ls", "state.db"), Changed)
	require.NoError(t, err)
	assert.Nil(t, impacted)
	assert.Same(t, next, same)
}

func TestApplyNewPackageDirectory(t *testing.T) {
	root := testutil.StylesTree(t, nil)
	idx, err := Scan(root)
	require.NoError(t, err)

	testutil.WriteTree(t, root, map[string]string{
		"Fresh/A.yml": "extends: existence\n",
		"Fresh/B.yml": "extends: existence\n",
	})
	next, impacted, err := idx.Apply(filepath.Join(root, "Fresh"), Created)
	require.NoError(t, err)
	assert.Equal(t, []string{"Fresh"}, impacted)
	assert.Len(t, next.RuleFiles("Fresh"), 2)
}

func TestApplyUnreadable(t *testing.T) {
	if runtime.GOOS == "windows" || os.Getuid() == 0 {
		t.Skip("permission bits are not enforced")
	}
	root := testutil.StylesTree(t, nil)
	idx, err := Scan(root)
	require.NoError(t, err)

	dir := filepath.Join(root, "Demo")
	require.NoError(t, os.Chmod(dir, 0o000))
	t.Cleanup(func() { _ = os.Chmod(dir, 0o755) })

	next, _, err := idx.Apply(filepath.Join(dir, "Weasel.yml"), Changed)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAssetUnreadable))

	a, ok := next.Get("Demo/Weasel.yml")
	require.True(t, ok)
	assert.Equal(t, Invalid, a.State)
}

func TestWithState(t *testing.T) {
	root := testutil.StylesTree(t, nil)
	idx, err := Scan(root)
	require.NoError(t, err)

	next := idx.WithState("Demo/Weasel.yml", Valid, nil)
	a, _ := next.Get("Demo/Weasel.yml")
	assert.Equal(t, Valid, a.State)
	a, _ = idx.Get("Demo/Weasel.yml")
	assert.Equal(t, Unparsed, a.State)

	installed := idx.WithInstalled([]Installed{{Name: "Demo", Version: "v1.0.0", Origin: "remote", Checksum: "abc"}})
	p, _ := installed.Package("Demo")
	assert.Equal(t, "v1.0.0", p.Version)
	assert.Equal(t, "abc", p.Checksum)
}

func TestVocabFiles(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "Base", "accept.txt")

	terms, err := ReadVocab(p)
	require.NoError(t, err)
	assert.Empty(t, terms)

	require.NoError(t, AddTerm(p, "Zeta"))
	require.NoError(t, AddTerm(p, "Alpha"))
	require.NoError(t, AddTerm(p, "Zeta"))

	terms, err = ReadVocab(p)
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha", "Zeta"}, terms)

	assert.Error(t, AddTerm(p, "  "))
}

func TestVocabPath(t *testing.T) {
	root := testutil.StylesTree(t, nil)
	idx, err := Scan(root)
	require.NoError(t, err)

	assert.Equal(t, "config/vocabularies/Base/reject.txt", idx.VocabPath("Base", RejectFile))
	assert.Equal(t, "config/vocabularies/New/accept.txt", idx.VocabPath("New", AcceptFile))
}
