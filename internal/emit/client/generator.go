// Package client renders the statically-typed client declaration document.
// Original type names are preserved on this side; runtime transport is
// supplied by the consuming application.
package client

import (
	"fmt"
	"strings"

	"github.com/routegen/routegen/internal/emit"
	"github.com/routegen/routegen/internal/typeref"
)

const header = `// Code generated by routegen. DO NOT EDIT.

export interface Socket<TSend, TReceive> {
  send(message: TSend): void;
  receive(handler: (message: TReceive) => void): void;
  close(): void;
}
`

// Generator implements emit.Generator for the client declaration module.
type Generator struct{}

// NewGenerator creates a client document generator.
func NewGenerator() *Generator {
	return &Generator{}
}

// Language returns "client"
func (g *Generator) Language() string { return "client" }

// FileExtension returns "ts"
func (g *Generator) FileExtension() string { return "ts" }

// GenerateFile renders the full client declaration document.
func (g *Generator) GenerateFile(snap *emit.Snapshot) string {
	var b strings.Builder
	b.WriteString(header)

	for _, ref := range snap.Types {
		b.WriteString("\n")
		b.WriteString(g.declaration(snap, ref))
	}

	b.WriteString("\n")
	b.WriteString(g.routesInterface(snap))
	return b.String()
}

func (g *Generator) declaration(snap *emit.Snapshot, ref *typeref.Ref) string {
	switch ref.Kind {
	case typeref.RefEnum:
		return fmt.Sprintf("export type %s = %s;\n", ref.Emitted, enumUnion(ref))
	case typeref.RefStruct:
		return fmt.Sprintf("export interface %s %s\n", ref.Emitted, g.objectBody(snap, ref.Shape, 0))
	default:
		return fmt.Sprintf("export type %s = %s;\n", ref.Emitted, g.typeExpr(snap, ref.Shape, 0))
	}
}

// enumUnion renders an enum as a union of its member values, preserving
// member order exactly.
func enumUnion(ref *typeref.Ref) string {
	parts := make([]string, 0, len(ref.Members))
	for _, m := range ref.Members {
		if ref.IsString {
			parts = append(parts, fmt.Sprintf("%q", m.Value))
		} else {
			parts = append(parts, m.Value)
		}
	}
	return strings.Join(parts, " | ")
}

func (g *Generator) routesInterface(snap *emit.Snapshot) string {
	var b strings.Builder
	b.WriteString("export interface Routes {\n")

	for _, r := range snap.Routes {
		if r.Protocol == "http" {
			b.WriteString(fmt.Sprintf("  /** %s %s */\n", r.Method, r.Path))
		} else {
			b.WriteString(fmt.Sprintf("  /** %s %s */\n", strings.ToUpper(r.Protocol), r.Path))
		}
		b.WriteString(fmt.Sprintf("  %s(%s): %s;\n", methodName(r.Name), g.paramList(snap, r), g.returnType(snap, r)))
	}

	b.WriteString("}\n")
	return b.String()
}

func (g *Generator) paramList(snap *emit.Snapshot, r emit.RouteDoc) string {
	var parts []string
	for _, p := range r.Params {
		parts = append(parts, fmt.Sprintf("%s: %s", p.Name, g.typeExpr(snap, p.Desc, 0)))
	}
	if r.Body != nil && r.Protocol != "ws" {
		parts = append(parts, fmt.Sprintf("body: %s", g.typeExpr(snap, *r.Body, 0)))
	}
	return strings.Join(parts, ", ")
}

func (g *Generator) returnType(snap *emit.Snapshot, r emit.RouteDoc) string {
	switch r.Protocol {
	case "ws":
		send := "void"
		if r.Body != nil {
			send = g.typeExpr(snap, *r.Body, 0)
		}
		receive := "void"
		if r.Result != nil {
			receive = g.typeExpr(snap, *r.Result, 0)
		}
		return fmt.Sprintf("Socket<%s, %s>", send, receive)
	case "stream":
		elem := "void"
		if r.Result != nil {
			elem = g.typeExpr(snap, *r.Result, 0)
		}
		return fmt.Sprintf("AsyncIterable<%s>", elem)
	default:
		if r.Result == nil {
			return "Promise<void>"
		}
		return fmt.Sprintf("Promise<%s>", g.typeExpr(snap, *r.Result, 0))
	}
}

// typeExpr renders a descriptor as a TypeScript type expression. Named
// declarations reference their emitted name; inline-decided ones expand at
// the use site.
func (g *Generator) typeExpr(snap *emit.Snapshot, d typeref.Descriptor, depth int) string {
	expr := g.bareTypeExpr(snap, d, depth)
	if d.Nullable {
		return expr + " | null"
	}
	return expr
}

func (g *Generator) bareTypeExpr(snap *emit.Snapshot, d typeref.Descriptor, depth int) string {
	switch d.Kind {
	case typeref.KindPrimitive:
		return d.Primitive
	case typeref.KindUnknown:
		return "unknown"
	case typeref.KindArray:
		elem := g.typeExpr(snap, *d.Elem, depth)
		if strings.ContainsAny(elem, "|{") {
			return "(" + elem + ")[]"
		}
		return elem + "[]"
	case typeref.KindMap:
		return fmt.Sprintf("Record<string, %s>", g.typeExpr(snap, *d.Elem, depth))
	case typeref.KindObject:
		return g.objectBody(snap, d, depth)
	case typeref.KindRef:
		ref, ok := snap.Resolve(d.RefObj)
		if !ok {
			return "unknown"
		}
		if ref.Decision == typeref.DecisionNamed {
			return ref.Emitted
		}
		if ref.Kind == typeref.RefEnum {
			return enumUnion(ref)
		}
		return g.bareTypeExpr(snap, ref.Shape, depth)
	default:
		return "unknown"
	}
}

func (g *Generator) objectBody(snap *emit.Snapshot, d typeref.Descriptor, depth int) string {
	if len(d.Fields) == 0 {
		return "{}"
	}
	indent := strings.Repeat("  ", depth+1)

	var b strings.Builder
	b.WriteString("{\n")
	for _, f := range d.Fields {
		opt := ""
		if f.Optional {
			opt = "?"
		}
		b.WriteString(fmt.Sprintf("%s%s%s: %s;\n", indent, f.Name, opt, g.typeExpr(snap, f.Desc, depth+1)))
	}
	b.WriteString(strings.Repeat("  ", depth))
	b.WriteString("}")
	return b.String()
}

// methodName lowercases the leading rune of an exported route name.
func methodName(name string) string {
	if name == "" {
		return name
	}
	return strings.ToLower(name[:1]) + name[1:]
}
