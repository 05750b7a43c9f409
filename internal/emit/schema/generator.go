// Package schema renders the runtime-validation schema document. Every
// emitted name carries the "Schema" suffix so project types never collide
// with the validation library's own exports.
package schema

import (
	"fmt"
	"strings"

	"github.com/routegen/routegen/internal/emit"
	"github.com/routegen/routegen/internal/typeref"
)

const header = `// Code generated by routegen. DO NOT EDIT.

import { Type, type Static } from "@sinclair/typebox";
`

// Generator implements emit.Generator for the validation schema module.
type Generator struct{}

// NewGenerator creates a schema document generator.
func NewGenerator() *Generator {
	return &Generator{}
}

// Language returns "schema"
func (g *Generator) Language() string { return "schema" }

// FileExtension returns "ts"
func (g *Generator) FileExtension() string { return "ts" }

// GenerateFile renders the full schema document. Named declarations are
// emitted in dependency order because schema consts evaluate top to bottom.
func (g *Generator) GenerateFile(snap *emit.Snapshot) string {
	var b strings.Builder
	b.WriteString(header)

	for _, ref := range snap.TypesInDependencyOrder() {
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("export const %s = %s;\n", ref.SchemaName(), g.refSchema(snap, ref, 0)))
		b.WriteString(fmt.Sprintf("export type %s = Static<typeof %s>;\n", ref.Emitted, ref.SchemaName()))
	}

	b.WriteString("\n")
	b.WriteString(g.routesConst(snap))
	return b.String()
}

func (g *Generator) refSchema(snap *emit.Snapshot, ref *typeref.Ref, depth int) string {
	if ref.Kind == typeref.RefEnum {
		return enumSchema(ref, depth)
	}
	return g.schemaExpr(snap, ref.Shape, depth)
}

// enumSchema renders an enum as a literal union, preserving member order.
func enumSchema(ref *typeref.Ref, depth int) string {
	parts := make([]string, 0, len(ref.Members))
	for _, m := range ref.Members {
		if ref.IsString {
			parts = append(parts, fmt.Sprintf("Type.Literal(%q)", m.Value))
		} else {
			parts = append(parts, fmt.Sprintf("Type.Literal(%s)", m.Value))
		}
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return "Type.Union([" + strings.Join(parts, ", ") + "])"
}

func (g *Generator) routesConst(snap *emit.Snapshot) string {
	var b strings.Builder
	b.WriteString("export const routes = {\n")

	for _, r := range snap.Routes {
		b.WriteString(fmt.Sprintf("  %s: {\n", r.Name))
		b.WriteString(fmt.Sprintf("    method: %q,\n", r.Method))
		b.WriteString(fmt.Sprintf("    path: %q,\n", r.Path))
		b.WriteString(fmt.Sprintf("    protocol: %q,\n", r.Protocol))

		if len(r.Params) > 0 {
			b.WriteString("    params: Type.Object({\n")
			for _, p := range r.Params {
				b.WriteString(fmt.Sprintf("      %s: %s,\n", p.Name, g.schemaExpr(snap, p.Desc, 3)))
			}
			b.WriteString("    }),\n")
		}
		if r.Body != nil {
			b.WriteString(fmt.Sprintf("    body: %s,\n", g.schemaExpr(snap, *r.Body, 2)))
		}
		if r.Result != nil {
			b.WriteString(fmt.Sprintf("    result: %s,\n", g.schemaExpr(snap, *r.Result, 2)))
		}
		b.WriteString("  },\n")
	}

	b.WriteString("} as const;\n")
	return b.String()
}

// schemaExpr renders a descriptor as a TypeBox expression. Named
// declarations reference their schema const; inline-decided ones expand at
// the use site.
func (g *Generator) schemaExpr(snap *emit.Snapshot, d typeref.Descriptor, depth int) string {
	expr := g.bareSchemaExpr(snap, d, depth)
	if d.Nullable {
		return fmt.Sprintf("Type.Union([%s, Type.Null()])", expr)
	}
	return expr
}

func (g *Generator) bareSchemaExpr(snap *emit.Snapshot, d typeref.Descriptor, depth int) string {
	switch d.Kind {
	case typeref.KindPrimitive:
		switch d.Primitive {
		case "string":
			return "Type.String()"
		case "number":
			return "Type.Number()"
		case "boolean":
			return "Type.Boolean()"
		}
		return "Type.Unknown()"
	case typeref.KindUnknown:
		return "Type.Unknown()"
	case typeref.KindArray:
		return fmt.Sprintf("Type.Array(%s)", g.schemaExpr(snap, *d.Elem, depth))
	case typeref.KindMap:
		return fmt.Sprintf("Type.Record(Type.String(), %s)", g.schemaExpr(snap, *d.Elem, depth))
	case typeref.KindObject:
		return g.objectSchema(snap, d, depth)
	case typeref.KindRef:
		ref, ok := snap.Resolve(d.RefObj)
		if !ok {
			return "Type.Unknown()"
		}
		if ref.Decision == typeref.DecisionNamed {
			return ref.SchemaName()
		}
		return g.refSchema(snap, ref, depth)
	default:
		return "Type.Unknown()"
	}
}

func (g *Generator) objectSchema(snap *emit.Snapshot, d typeref.Descriptor, depth int) string {
	if len(d.Fields) == 0 {
		return "Type.Object({})"
	}
	indent := strings.Repeat("  ", depth+1)

	var b strings.Builder
	b.WriteString("Type.Object({\n")
	for _, f := range d.Fields {
		expr := g.schemaExpr(snap, f.Desc, depth+1)
		if f.Optional {
			expr = fmt.Sprintf("Type.Optional(%s)", expr)
		}
		b.WriteString(fmt.Sprintf("%s%s: %s,\n", indent, f.Name, expr))
	}
	b.WriteString(strings.Repeat("  ", depth))
	b.WriteString("})")
	return b.String()
}
