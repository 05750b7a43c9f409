package schema

import (
	"go/token"
	"go/types"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routegen/routegen/internal/emit"
	"github.com/routegen/routegen/internal/typeref"
)

func declObj(pkg *types.Package, name string) *types.TypeName {
	return types.NewTypeName(token.NoPos, pkg, name, nil)
}

var strDesc = typeref.Descriptor{Kind: typeref.KindPrimitive, Primitive: "string"}

func fixtureSnapshot() *emit.Snapshot {
	pkg := types.NewPackage("example.test/app", "app")
	authorObj := declObj(pkg, "Author")
	postObj := declObj(pkg, "Post")
	statusObj := declObj(pkg, "Status")

	status := &typeref.Ref{
		Obj: statusObj, Name: "Status", Emitted: "Status",
		Decision: typeref.DecisionNamed, Kind: typeref.RefEnum, IsString: true,
		Members: []typeref.EnumMember{
			{Name: "StatusPending", Value: "pending"},
			{Name: "StatusActive", Value: "active"},
		},
	}
	author := &typeref.Ref{
		Obj: authorObj, Name: "Author", Emitted: "Author",
		Decision: typeref.DecisionNamed, Kind: typeref.RefStruct,
		Shape: typeref.Descriptor{Kind: typeref.KindObject, Fields: []typeref.Field{
			{Name: "name", Desc: strDesc},
			{Name: "status", Desc: typeref.Descriptor{Kind: typeref.KindRef, RefObj: statusObj}},
		}},
	}
	// Post references Author; dependency order must put Author first even
	// though "Author" < "Post" alphabetically anyway, the route below pins
	// the reference.
	post := &typeref.Ref{
		Obj: postObj, Name: "Post", Emitted: "Post",
		Decision: typeref.DecisionNamed, Kind: typeref.RefStruct,
		Shape: typeref.Descriptor{Kind: typeref.KindObject, Fields: []typeref.Field{
			{Name: "title", Desc: strDesc},
			{Name: "author", Desc: typeref.Descriptor{Kind: typeref.KindRef, RefObj: authorObj}},
			{Name: "tags", Optional: true, Desc: typeref.Descriptor{Kind: typeref.KindArray, Elem: &strDesc}},
		}},
	}

	postRef := typeref.Descriptor{Kind: typeref.KindRef, RefObj: postObj}
	routes := []emit.RouteDoc{
		{
			Name: "GetPost", Method: "GET", Path: "/posts/:id", Protocol: "http",
			Params: []emit.ParamDoc{{Name: "id", Desc: strDesc}},
			Result: &postRef,
		},
		{
			Name: "CreatePost", Method: "POST", Path: "/posts", Protocol: "http",
			Body:   &postRef,
			Result: &postRef,
		},
	}
	return emit.NewSnapshot(routes, []*typeref.Ref{author, post, status})
}

func TestGenerateFileSchemas(t *testing.T) {
	out := NewGenerator().GenerateFile(fixtureSnapshot())

	assert.Contains(t, out, `import { Type, type Static } from "@sinclair/typebox";`)
	assert.Contains(t, out, "export const AuthorSchema = Type.Object({")
	assert.Contains(t, out, "export type Author = Static<typeof AuthorSchema>;")
	assert.Contains(t, out, "status: StatusSchema,")
	assert.Contains(t, out, `export const StatusSchema = Type.Union([Type.Literal("pending"), Type.Literal("active")]);`)
	assert.Contains(t, out, "tags: Type.Optional(Type.Array(Type.String())),")
}

func TestGenerateFileDependencyOrder(t *testing.T) {
	out := NewGenerator().GenerateFile(fixtureSnapshot())

	statusAt := strings.Index(out, "export const StatusSchema")
	authorAt := strings.Index(out, "export const AuthorSchema")
	postAt := strings.Index(out, "export const PostSchema")
	require.True(t, statusAt >= 0 && authorAt >= 0 && postAt >= 0)

	assert.Less(t, statusAt, authorAt)
	assert.Less(t, authorAt, postAt)
}

func TestGenerateFileRoutesConst(t *testing.T) {
	out := NewGenerator().GenerateFile(fixtureSnapshot())

	assert.Contains(t, out, "export const routes = {")
	assert.Contains(t, out, "GetPost: {")
	assert.Contains(t, out, `method: "GET",`)
	assert.Contains(t, out, `path: "/posts/:id",`)
	assert.Contains(t, out, "id: Type.String(),")
	assert.Contains(t, out, "body: PostSchema,")
	assert.Contains(t, out, "result: PostSchema,")
	assert.Contains(t, out, "} as const;")
}

func TestNullableAndInlineExpressions(t *testing.T) {
	g := NewGenerator()

	pkg := types.NewPackage("example.test/app", "app")
	inlineObj := declObj(pkg, "pageInfo")
	inline := &typeref.Ref{
		Obj: inlineObj, Name: "pageInfo", Emitted: "pageInfo",
		Decision: typeref.DecisionInline, Kind: typeref.RefStruct,
		Shape: typeref.Descriptor{Kind: typeref.KindObject, Fields: []typeref.Field{
			{Name: "cursor", Desc: strDesc},
		}},
	}
	snap := emit.NewSnapshot(nil, []*typeref.Ref{inline})

	nullable := typeref.Descriptor{Kind: typeref.KindPrimitive, Primitive: "number", Nullable: true}
	assert.Equal(t, "Type.Union([Type.Number(), Type.Null()])", g.schemaExpr(snap, nullable, 0))

	ref := typeref.Descriptor{Kind: typeref.KindRef, RefObj: inlineObj}
	got := g.schemaExpr(snap, ref, 0)
	assert.Contains(t, got, "Type.Object({")
	assert.Contains(t, got, "cursor: Type.String(),")
	assert.NotContains(t, got, "pageInfoSchema")
}

func TestSingleMemberEnum(t *testing.T) {
	ref := &typeref.Ref{
		Kind: typeref.RefEnum, IsString: true,
		Members: []typeref.EnumMember{{Name: "Only", Value: "only"}},
	}
	assert.Equal(t, `Type.Literal("only")`, enumSchema(ref, 0))
}

func TestGeneratorMetadata(t *testing.T) {
	g := NewGenerator()
	assert.Equal(t, "schema", g.Language())
	assert.Equal(t, "ts", g.FileExtension())
}
