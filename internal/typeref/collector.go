// Package typeref resolves the types referenced from route handler
// signatures into canonical descriptors and populates the generation-scoped
// registry with every named declaration transitively reachable from them.
package typeref

import (
	"fmt"
	"go/ast"
	"go/constant"
	"go/token"
	"go/types"
	"reflect"
	"sort"
	"strings"

	"golang.org/x/tools/go/packages"

	"github.com/routegen/routegen/internal/discover"
)

// UnsupportedTypeError marks a type outside the representable output
// vocabulary. Recoverable: the owning route is skipped with a warning.
type UnsupportedTypeError struct {
	Type string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("type %s cannot be represented in the output vocabulary", e.Type)
}

// Types with fixed output representations regardless of their declarations.
var wellKnown = map[string]Descriptor{
	"time.Time":                {Kind: KindPrimitive, Primitive: "string"},
	"time.Duration":            {Kind: KindPrimitive, Primitive: "number"},
	"encoding/json.RawMessage": {Kind: KindUnknown},
}

// syntaxCtx carries the written form of a type alongside the checked type.
// The checker flattens alias identity (a literal alias checks as its RHS),
// so identity questions must be answered from the referencing syntax node's
// symbol, never from the checked type alone.
type syntaxCtx struct {
	expr ast.Expr
	info *types.Info
}

func (s syntaxCtx) sub(expr ast.Expr) syntaxCtx {
	return syntaxCtx{expr: expr, info: s.info}
}

// Collector walks types reachable from route signatures, registering named
// declarations in its registry and returning canonical descriptors.
type Collector struct {
	reg        *Registry
	fset       *token.FileSet
	pkgs       map[string]*packages.Package
	modulePath string
}

// NewCollector creates a collector over a fresh registry. modulePath scopes
// which declarations are registered: types declared outside the scanned
// module are treated structurally (except well-known ones).
func NewCollector(reg *Registry, fset *token.FileSet, modulePath string) *Collector {
	return &Collector{
		reg:        reg,
		fset:       fset,
		pkgs:       make(map[string]*packages.Package),
		modulePath: modulePath,
	}
}

// AddPackage makes a loaded package's syntax available for declaration
// lookups during shape walks.
func (c *Collector) AddPackage(pkg *packages.Package) {
	c.pkgs[pkg.PkgPath] = pkg
}

// Collect resolves one parameter or result position into a descriptor,
// registering every named type transitively reachable from it.
func (c *Collector) Collect(pkg *packages.Package, routeName string, ref discover.TypeRef) (Descriptor, error) {
	sx := syntaxCtx{expr: ref.Expr}
	if pkg != nil {
		sx.info = pkg.TypesInfo
	}
	return c.walk(ref.Type, sx, routeName, make(map[*types.TypeName]bool))
}

// CollectConst handles a reference to a single enum member: the collector
// walks up to the member's parent declaration and registers the whole enum,
// since partial enum emission is invalid.
func (c *Collector) CollectConst(routeName string, con *types.Const) error {
	named, ok := con.Type().(*types.Named)
	if !ok {
		return nil
	}
	tn := named.Obj()
	if !c.inModule(tn) || !c.enumLike(tn) {
		return nil
	}
	_, err := c.named(tn, routeName, make(map[*types.TypeName]bool))
	return err
}

func (c *Collector) inModule(tn *types.TypeName) bool {
	pkg := tn.Pkg()
	if pkg == nil || c.modulePath == "" {
		return false
	}
	return pkg.Path() == c.modulePath || strings.HasPrefix(pkg.Path(), c.modulePath+"/")
}

func (c *Collector) walk(t types.Type, sx syntaxCtx, routeName string, visiting map[*types.TypeName]bool) (Descriptor, error) {
	// Alias identity workaround: when the written type is a plain name,
	// resolve which declaration produced it from the syntax symbol. This
	// recovers aliases the checker has already flattened away.
	if tn := c.namedFromSyntax(sx); tn != nil && c.inModule(tn) {
		return c.named(tn, routeName, visiting)
	}

	switch u := t.(type) {
	case *types.Alias:
		tn := u.Obj()
		if c.inModule(tn) {
			return c.named(tn, routeName, visiting)
		}
		return c.walk(types.Unalias(t), syntaxCtx{}, routeName, visiting)

	case *types.Named:
		tn := u.Obj()
		if desc, ok := wellKnown[qualifiedName(tn)]; ok {
			return desc, nil
		}
		if c.inModule(tn) {
			return c.named(tn, routeName, visiting)
		}
		// External named types are expanded structurally, not registered.
		return c.walk(u.Underlying(), syntaxCtx{}, routeName, visiting)

	case *types.Basic:
		return basicDescriptor(u)

	case *types.Pointer:
		sub := sx
		if star, ok := sx.expr.(*ast.StarExpr); ok {
			sub = sx.sub(star.X)
		} else {
			sub = syntaxCtx{}
		}
		desc, err := c.walk(u.Elem(), sub, routeName, visiting)
		if err != nil {
			return Descriptor{}, err
		}
		desc.Nullable = true
		return desc, nil

	case *types.Slice:
		if basic, ok := u.Elem().(*types.Basic); ok && basic.Kind() == types.Byte {
			return primitive("string"), nil
		}
		return c.walkElem(u.Elem(), sx, routeName, visiting)

	case *types.Array:
		return c.walkElem(u.Elem(), sx, routeName, visiting)

	case *types.Map:
		if b, ok := u.Key().Underlying().(*types.Basic); !ok || b.Info()&types.IsString == 0 {
			return Descriptor{}, &UnsupportedTypeError{Type: t.String()}
		}
		sub := syntaxCtx{}
		if m, ok := sx.expr.(*ast.MapType); ok {
			sub = sx.sub(m.Value)
		}
		elem, err := c.walk(u.Elem(), sub, routeName, visiting)
		if err != nil {
			return Descriptor{}, err
		}
		return Descriptor{Kind: KindMap, Elem: &elem}, nil

	case *types.Struct:
		var structSyntax *ast.StructType
		if st, ok := sx.expr.(*ast.StructType); ok {
			structSyntax = st
		}
		return c.walkStruct(u, structSyntax, sx.info, routeName, visiting)

	case *types.Interface:
		if u.Empty() {
			return unknown(), nil
		}
		return Descriptor{}, &UnsupportedTypeError{Type: t.String()}

	default:
		return Descriptor{}, &UnsupportedTypeError{Type: t.String()}
	}
}

func (c *Collector) walkElem(elem types.Type, sx syntaxCtx, routeName string, visiting map[*types.TypeName]bool) (Descriptor, error) {
	sub := syntaxCtx{}
	if arr, ok := sx.expr.(*ast.ArrayType); ok {
		sub = sx.sub(arr.Elt)
	}
	desc, err := c.walk(elem, sub, routeName, visiting)
	if err != nil {
		return Descriptor{}, err
	}
	return Descriptor{Kind: KindArray, Elem: &desc}, nil
}

// named registers a module declaration and returns a reference descriptor.
// A second reference to the same declaration is a no-op beyond recording the
// referencing route.
func (c *Collector) named(tn *types.TypeName, routeName string, visiting map[*types.TypeName]bool) (Descriptor, error) {
	desc := Descriptor{Kind: KindRef, RefObj: tn}
	if visiting[tn] {
		return desc, nil
	}

	ref, decision := c.reg.register(tn, c.fileOf(tn), routeName)
	if decision == DecisionDuplicate {
		return desc, nil
	}

	visiting[tn] = true
	defer delete(visiting, tn)

	if c.enumLike(tn) {
		ref.Kind = RefEnum
		ref.forced = true
		ref.IsString, ref.Members = c.enumMembers(tn)
		return desc, nil
	}

	declExpr, declInfo := c.declSyntax(tn)
	if _, isAlias := tn.Type().(*types.Alias); isAlias {
		ref.Kind = RefAlias
	} else if _, isStruct := tn.Type().Underlying().(*types.Struct); !isStruct {
		ref.Kind = RefAlias
	}

	shape, err := c.walk(shapeType(tn), syntaxCtx{expr: declExpr, info: declInfo}, routeName, visiting)
	if err != nil {
		return Descriptor{}, err
	}
	ref.Shape = shape
	return desc, nil
}

// shapeType picks the structural type to walk for a declaration.
func shapeType(tn *types.TypeName) types.Type {
	if alias, ok := tn.Type().(*types.Alias); ok {
		return types.Unalias(alias)
	}
	return tn.Type().Underlying()
}

func (c *Collector) walkStruct(st *types.Struct, syntax *ast.StructType, info *types.Info, routeName string, visiting map[*types.TypeName]bool) (Descriptor, error) {
	fieldExprs := flattenStructFields(syntax)

	var fields []Field
	for i := 0; i < st.NumFields(); i++ {
		f := st.Field(i)
		tag := reflect.StructTag(st.Tag(i))

		name, optional, skip := jsonFieldName(f, tag)
		if skip {
			continue
		}

		sub := syntaxCtx{info: info}
		if i < len(fieldExprs) {
			sub.expr = fieldExprs[i]
		}

		if f.Embedded() && name == "" {
			// Anonymous embeds flatten into the parent object, matching
			// encoding/json.
			embedded, err := c.walk(f.Type(), sub, routeName, visiting)
			if err != nil {
				return Descriptor{}, err
			}
			var err2 error
			fields, err2 = c.spliceEmbedded(fields, embedded)
			if err2 != nil {
				return Descriptor{}, err2
			}
			continue
		}
		if !f.Exported() {
			continue
		}
		if name == "" {
			name = f.Name()
		}

		desc, err := c.walk(f.Type(), sub, routeName, visiting)
		if err != nil {
			return Descriptor{}, err
		}
		fields = append(fields, Field{Name: name, Optional: optional, Desc: desc})
	}
	return Descriptor{Kind: KindObject, Fields: fields}, nil
}

// spliceEmbedded appends an embedded struct's fields, resolving references
// through the registry so flattening works for named embeds too.
func (c *Collector) spliceEmbedded(fields []Field, embedded Descriptor) ([]Field, error) {
	shape := embedded
	if embedded.Kind == KindRef {
		ref, ok := c.reg.Lookup(embedded.RefObj)
		if !ok {
			return fields, nil
		}
		shape = ref.Shape
	}
	if shape.Kind != KindObject {
		return nil, &UnsupportedTypeError{Type: "embedded non-struct field"}
	}
	return append(fields, shape.Fields...), nil
}

// enumLike reports whether a declaration is an enum: a defined type with a
// basic string/integer underlying and at least one package-level constant.
func (c *Collector) enumLike(tn *types.TypeName) bool {
	if _, isAlias := tn.Type().(*types.Alias); isAlias {
		return false
	}
	basic, ok := tn.Type().Underlying().(*types.Basic)
	if !ok || basic.Info()&(types.IsString|types.IsInteger) == 0 {
		return false
	}
	if tn.Pkg() == nil {
		return false
	}
	scope := tn.Pkg().Scope()
	for _, name := range scope.Names() {
		if con, ok := scope.Lookup(name).(*types.Const); ok && types.Identical(con.Type(), tn.Type()) {
			return true
		}
	}
	return false
}

// enumMembers collects the declaration's constants in source order. Ordering
// and values are preserved exactly; partial emission is invalid.
func (c *Collector) enumMembers(tn *types.TypeName) (isString bool, members []EnumMember) {
	basic := tn.Type().Underlying().(*types.Basic)
	isString = basic.Info()&types.IsString != 0

	scope := tn.Pkg().Scope()
	var consts []*types.Const
	for _, name := range scope.Names() {
		if con, ok := scope.Lookup(name).(*types.Const); ok && types.Identical(con.Type(), tn.Type()) {
			consts = append(consts, con)
		}
	}
	sort.Slice(consts, func(i, j int) bool { return consts[i].Pos() < consts[j].Pos() })

	for _, con := range consts {
		m := EnumMember{Name: con.Name()}
		if isString {
			m.Value = constant.StringVal(con.Val())
		} else {
			m.Value = con.Val().ExactString()
		}
		members = append(members, m)
	}
	return isString, members
}

// namedFromSyntax resolves the declaration a written type name refers to.
func (c *Collector) namedFromSyntax(sx syntaxCtx) *types.TypeName {
	if sx.expr == nil || sx.info == nil {
		return nil
	}
	var id *ast.Ident
	switch e := sx.expr.(type) {
	case *ast.Ident:
		id = e
	case *ast.SelectorExpr:
		id = e.Sel
	default:
		return nil
	}
	tn, ok := sx.info.Uses[id].(*types.TypeName)
	if !ok || tn.Pkg() == nil {
		return nil
	}
	return tn
}

// declSyntax locates the written RHS of a type declaration for alias
// recovery inside its shape. Missing syntax degrades to checked-type walks.
func (c *Collector) declSyntax(tn *types.TypeName) (ast.Expr, *types.Info) {
	pkg, ok := c.pkgs[tn.Pkg().Path()]
	if !ok {
		return nil, nil
	}
	for _, file := range pkg.Syntax {
		for _, decl := range file.Decls {
			gen, ok := decl.(*ast.GenDecl)
			if !ok || gen.Tok != token.TYPE {
				continue
			}
			for _, spec := range gen.Specs {
				ts, ok := spec.(*ast.TypeSpec)
				if ok && ts.Name.Pos() == tn.Pos() {
					return ts.Type, pkg.TypesInfo
				}
			}
		}
	}
	return nil, nil
}

func (c *Collector) fileOf(tn *types.TypeName) string {
	if c.fset == nil {
		return ""
	}
	return c.fset.Position(tn.Pos()).Filename
}

func qualifiedName(tn *types.TypeName) string {
	if tn.Pkg() == nil {
		return tn.Name()
	}
	return tn.Pkg().Path() + "." + tn.Name()
}

func basicDescriptor(b *types.Basic) (Descriptor, error) {
	switch {
	case b.Info()&types.IsBoolean != 0:
		return primitive("boolean"), nil
	case b.Info()&types.IsString != 0:
		return primitive("string"), nil
	case b.Info()&(types.IsInteger|types.IsFloat) != 0:
		if b.Kind() == types.Uintptr {
			return Descriptor{}, &UnsupportedTypeError{Type: b.String()}
		}
		return primitive("number"), nil
	default:
		return Descriptor{}, &UnsupportedTypeError{Type: b.String()}
	}
}

// jsonFieldName reads the wire name from a json struct tag.
func jsonFieldName(f *types.Var, tag reflect.StructTag) (name string, optional, skip bool) {
	jsonTag, ok := tag.Lookup("json")
	if !ok {
		return "", false, false
	}
	parts := strings.Split(jsonTag, ",")
	name = parts[0]
	if name == "-" && len(parts) == 1 {
		return "", false, true
	}
	for _, part := range parts[1:] {
		if part == "omitempty" {
			optional = true
		}
	}
	return name, optional, false
}

// flattenStructFields expands multi-name fields so that field index i maps
// to its written type expression.
func flattenStructFields(st *ast.StructType) []ast.Expr {
	if st == nil {
		return nil
	}
	var out []ast.Expr
	for _, field := range st.Fields.List {
		n := len(field.Names)
		if n == 0 {
			n = 1
		}
		for i := 0; i < n; i++ {
			out = append(out, field.Type)
		}
	}
	return out
}
