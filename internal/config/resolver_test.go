package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestResolveDirNearestAncestor(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "")
	nested := filepath.Join(root, "svc")
	nestedPath := writeConfig(t, nested, "")

	r := NewResolver()
	res := r.ResolveDir(filepath.Join(nested, "api"))
	require.NotNil(t, res)
	assert.Equal(t, nestedPath, res.Path)
}

func TestResolveDirNoConfig(t *testing.T) {
	r := NewResolver()
	res := r.ResolveDir(t.TempDir())
	assert.Nil(t, res)
}

func TestResolveSkipsNonCoveringConfig(t *testing.T) {
	root := t.TempDir()
	rootPath := writeConfig(t, root, "")
	mid := filepath.Join(root, "mid")
	writeConfig(t, mid, "include = [\"api/**\"]\n")

	// mid's config only covers mid/api; mid/web must fall through to root.
	r := NewResolver()
	res := r.ResolveDir(filepath.Join(mid, "web"))
	require.NotNil(t, res)
	assert.Equal(t, rootPath, res.Path)

	res = r.ResolveDir(filepath.Join(mid, "api"))
	require.NotNil(t, res)
	assert.Equal(t, filepath.Join(mid, FileName), res.Path)
}

func TestResolveExcludeWins(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "exclude = [\"vendor/**\"]\n")

	r := NewResolver()
	res := r.ResolveDir(filepath.Join(root, "vendor", "dep"))
	assert.Nil(t, res)

	res = r.ResolveDir(filepath.Join(root, "api"))
	require.NotNil(t, res)
}

func TestMalformedConfigFallsBackToDefaults(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "include = [unterminated\n")

	r := NewResolver()
	res := r.ResolveDir(root)
	require.NotNil(t, res)
	assert.True(t, res.Malformed)
	assert.Equal(t, Default().Output.Client, res.Options.Output.Client)

	diags := r.Diagnostics()
	require.Len(t, diags, 1)
	assert.Equal(t, res.Path, diags[0].Path)
}

func TestSharedResolutionAcrossDirs(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "")

	r := NewResolver()
	a := r.ResolveDir(filepath.Join(root, "a"))
	b := r.ResolveDir(filepath.Join(root, "b"))
	require.NotNil(t, a)
	assert.Same(t, a, b)
	assert.Equal(t, []string{filepath.Join(root, "a"), filepath.Join(root, "b")}, a.Dirs())
}

func TestInvalidateReturnsGovernedDirs(t *testing.T) {
	root := t.TempDir()
	path := writeConfig(t, root, "")

	r := NewResolver()
	r.ResolveDir(filepath.Join(root, "a"))
	r.ResolveDir(filepath.Join(root, "b"))

	dirs := r.Invalidate(path)
	assert.Equal(t, []string{filepath.Join(root, "a"), filepath.Join(root, "b")}, dirs)

	// A fresh resolution picks up new contents.
	writeConfig(t, root, "include = [\"a/**\"]\n")
	res := r.ResolveDir(filepath.Join(root, "b"))
	assert.Nil(t, res)
}

func TestVerifyReattributesNarrowedInclude(t *testing.T) {
	root := t.TempDir()
	rootPath := writeConfig(t, root, "")
	mid := filepath.Join(root, "mid")
	midPath := writeConfig(t, mid, "")

	r := NewResolver()
	res := r.ResolveDir(filepath.Join(mid, "web"))
	require.Equal(t, midPath, res.Path)

	// Narrow mid's include so web is no longer covered, then reload.
	writeConfig(t, mid, "include = [\"api/**\"]\n")
	r.Invalidate(midPath)
	res = r.ResolveDir(filepath.Join(mid, "api"))
	require.Equal(t, midPath, res.Path)

	// web was re-resolved away from mid on the next resolve.
	res = r.ResolveDir(filepath.Join(mid, "web"))
	require.NotNil(t, res)
	assert.Equal(t, rootPath, res.Path)
}

func TestVerifyMovesMisattributedDirs(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "")
	mid := filepath.Join(root, "mid")
	midPath := writeConfig(t, mid, "")

	r := NewResolver()
	web := filepath.Join(mid, "web")
	require.Equal(t, midPath, r.ResolveDir(web).Path)

	// Simulate an in-place edit that narrows include without invalidation;
	// Verify must detect the misattribution.
	r.mu.Lock()
	r.byPath[midPath].Options.Include = []string{"api/**"}
	r.mu.Unlock()

	moved := r.Verify()
	assert.Equal(t, []string{web}, moved)
}

func TestCoversFile(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "include = [\"api/**/*.go\"]\nexclude = [\"api/gen/**\"]\n")

	r := NewResolver()
	res := r.ResolveDir(filepath.Join(root, "api"))
	require.NotNil(t, res)

	assert.True(t, res.CoversFile(filepath.Join(root, "api", "routes.go")))
	assert.True(t, res.CoversFile(filepath.Join(root, "api", "v2", "routes.go")))
	assert.False(t, res.CoversFile(filepath.Join(root, "api", "gen", "out.go")))
	assert.False(t, res.CoversFile(filepath.Join(root, "web", "page.go")))
}
