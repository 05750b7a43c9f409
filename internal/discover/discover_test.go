package discover

import (
	"go/token"
	"go/types"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/tools/go/packages"
)

func loadFixture(t *testing.T) *packages.Package {
	t.Helper()
	cfg := &packages.Config{
		Dir:  filepath.Join("testdata", "discoverapp"),
		Fset: token.NewFileSet(),
		Mode: packages.NeedName | packages.NeedFiles | packages.NeedSyntax |
			packages.NeedTypes | packages.NeedTypesInfo | packages.NeedImports | packages.NeedDeps,
	}
	pkgs, err := packages.Load(cfg, "./api")
	require.NoError(t, err)
	require.Len(t, pkgs, 1)
	require.Empty(t, pkgs[0].Errors)
	return pkgs[0]
}

func discoverAll(t *testing.T) (map[string]*Route, []ExportedDecl) {
	t.Helper()
	pkg := loadFixture(t)
	d := New([]string{"example.test/discoverapp/rt"})

	routes := make(map[string]*Route)
	var decls []ExportedDecl
	for _, file := range pkg.Syntax {
		rs, ds := d.File(pkg, file)
		for _, r := range rs {
			routes[r.Name] = r
		}
		decls = append(decls, ds...)
	}
	return routes, decls
}

func namedTypeName(t *testing.T, ref *TypeRef) string {
	t.Helper()
	require.NotNil(t, ref)
	named, ok := ref.Type.(*types.Named)
	require.True(t, ok, "expected named type, got %T", ref.Type)
	return named.Obj().Name()
}

func TestDiscoverHTTPRoute(t *testing.T) {
	routes, _ := discoverAll(t)

	r := routes["GetNote"]
	require.NotNil(t, r)
	assert.True(t, r.Valid)
	assert.Equal(t, "GET", r.Method)
	assert.Equal(t, "/notes/:id", r.Path)
	assert.Equal(t, "http", r.Protocol)

	require.Len(t, r.Params, 1)
	assert.Equal(t, "id", r.Params[0].Name)
	assert.Nil(t, r.Body)
	assert.Equal(t, "Note", namedTypeName(t, r.Result))
}

func TestDiscoverNamedHandlerFunction(t *testing.T) {
	routes, _ := discoverAll(t)

	r := routes["CreateNote"]
	require.NotNil(t, r)
	assert.True(t, r.Valid)
	assert.Equal(t, "POST", r.Method)
	assert.Empty(t, r.Params)
	require.NotNil(t, r.Body)
	assert.Equal(t, "in", r.Body.Name)
	assert.Equal(t, "Note", namedTypeName(t, &r.Body.Ref))
}

func TestDiscoverHandleCarriesMethodArgument(t *testing.T) {
	routes, _ := discoverAll(t)

	r := routes["ReplaceNote"]
	require.NotNil(t, r)
	assert.True(t, r.Valid)
	assert.Equal(t, "PUT", r.Method)
	require.Len(t, r.Params, 1)
	require.NotNil(t, r.Body)
}

func TestDiscoverProtocols(t *testing.T) {
	routes, _ := discoverAll(t)

	ws := routes["NoteSocket"]
	require.NotNil(t, ws)
	assert.True(t, ws.Valid)
	assert.Equal(t, "ws", ws.Protocol)
	assert.Empty(t, ws.Method)

	stream := routes["WatchNotes"]
	require.NotNil(t, stream)
	assert.True(t, stream.Valid)
	assert.Equal(t, "stream", stream.Protocol)
	// The channel unwraps to its element type.
	assert.Equal(t, "Note", namedTypeName(t, stream.Result))
}

func TestDiscoverUnwrapsBuilderChain(t *testing.T) {
	routes, _ := discoverAll(t)

	r := routes["DescribedNote"]
	require.NotNil(t, r)
	assert.True(t, r.Valid)
	assert.Equal(t, "/notes/described", r.Path)
}

func TestDiscoverCollectsConstArgs(t *testing.T) {
	routes, _ := discoverAll(t)

	r := routes["ActivateNote"]
	require.NotNil(t, r)
	require.Len(t, r.ConstArgs, 1)
	assert.Equal(t, "StatusActive", r.ConstArgs[0].Name())
}

func TestDiscoverInvalidRoutes(t *testing.T) {
	routes, _ := discoverAll(t)

	dynamic := routes["DynamicNote"]
	require.NotNil(t, dynamic)
	assert.False(t, dynamic.Valid)
	assert.Contains(t, dynamic.Reason, "constant string")

	missing := routes["MissingContext"]
	require.NotNil(t, missing)
	assert.False(t, missing.Valid)
	assert.Contains(t, missing.Reason, "context.Context")

	variadic := routes["VariadicNote"]
	require.NotNil(t, variadic)
	assert.False(t, variadic.Valid)
	assert.Contains(t, variadic.Reason, "variadic")
}

func TestDiscoverSkipsNonCandidates(t *testing.T) {
	routes, decls := discoverAll(t)

	// Unexported vars and non-call initializers are not candidates.
	assert.NotContains(t, routes, "internalNote")
	assert.NotContains(t, routes, "Banner")

	names := make([]string, 0, len(decls))
	for _, d := range decls {
		names = append(names, d.Obj.Name())
	}
	assert.ElementsMatch(t, []string{"Status", "Note"}, names)
}

func TestUnrecognizedOriginIsIgnored(t *testing.T) {
	pkg := loadFixture(t)
	d := New([]string{"example.test/other/origin"})

	total := 0
	for _, file := range pkg.Syntax {
		rs, _ := d.File(pkg, file)
		total += len(rs)
	}
	assert.Zero(t, total)
}
