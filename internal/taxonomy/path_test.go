package taxonomy

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/soochol/skillsmith/internal/apierr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizePath_Valid(t *testing.T) {
	got, err := SanitizePath("development/languages/python/async")
	require.NoError(t, err)
	assert.Equal(t, "development/languages/python/async", got)
}

func TestSanitizePath_RejectsTraversal(t *testing.T) {
	for _, raw := range []string{"a/../b", "a/..", "..", "a//b", "a/ b", " a/b", "a/b "} {
		_, err := SanitizePath(raw)
		require.Error(t, err, raw)
		assert.True(t, apierr.Is(err, apierr.InvalidInput), raw)
	}
}

func TestResolveWithinRoot_StaysInsideRoot(t *testing.T) {
	root := t.TempDir()
	resolved, err := ResolveWithinRoot(root, "a/b/c")
	require.NoError(t, err)

	resolvedRoot, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(resolved, resolvedRoot))
}

func TestResolveWithinRoot_SymlinkEscapeRejected(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()

	require.NoError(t, os.Symlink(outside, filepath.Join(root, "escape")))

	_, err := ResolveWithinRoot(root, "escape/beyond")
	require.Error(t, err)
	assert.True(t, apierr.Is(err, apierr.PathEscape))
}

func TestNameFromID(t *testing.T) {
	cases := map[string]string{
		"development/languages/python/async": "python-async",
		"development/tools/git/aliases":       "git-aliases",
		"top":                                 "top",
		"a/_hidden":                           "a-hidden",
		"a/_/b":                               "a-b",
	}
	for id, want := range cases {
		assert.Equal(t, want, NameFromID(id), id)
	}
}

func TestNameFromID_Idempotent(t *testing.T) {
	x := "development/languages/python/async"
	once := NameFromID(x)
	twice := NameFromID(once)
	assert.Equal(t, once, twice)
}

func TestManager_WriteThenLoad_RoundTrips(t *testing.T) {
	root := t.TempDir()
	mgr := NewManager(root, nil)

	meta := skillMetaFixture("development/tools/git/aliases")
	require.NoError(t, mgr.WriteSkill(meta, "# Git Aliases\n\nBody content."))

	loaded, body, err := mgr.LoadSkill("development/tools/git/aliases")
	require.NoError(t, err)
	assert.Equal(t, meta, loaded)
	assert.Contains(t, body, "Body content.")
}

func TestManager_ListSkills_SkipsUnreadable(t *testing.T) {
	root := t.TempDir()
	mgr := NewManager(root, nil)
	require.NoError(t, mgr.WriteSkill(skillMetaFixture("a/good"), "body"))

	require.NoError(t, os.MkdirAll(filepath.Join(root, "a", "bad"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a", "bad", artifactFilename), []byte("not valid frontmatter"), 0644))

	ids, err := mgr.ListSkills()
	require.NoError(t, err)
	assert.Contains(t, ids, "a/good")
	assert.NotContains(t, ids, "a/bad")
}
