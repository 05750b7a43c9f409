// Package discover walks candidate source files and identifies exported
// route declarations: package-level vars initialized by a call (or builder
// chain) rooted at a factory function from a recognized origin package.
//
// Detection is a closed set of recognized syntactic patterns matched through
// the type checker's uses information, never runtime duck-typing: the callee
// must resolve to a known factory in a configured origin import path.
package discover

import (
	"go/ast"
	"go/constant"
	"go/types"

	"golang.org/x/tools/go/packages"
)

// Factory names recognized on origin packages, mapped to HTTP methods.
// Handle carries its method as the first argument; WS and Stream carry
// protocol tags instead.
var factoryMethods = map[string]string{
	"Get":    "GET",
	"Post":   "POST",
	"Put":    "PUT",
	"Delete": "DELETE",
	"Patch":  "PATCH",
	"Handle": "",
	"WS":     "",
	"Stream": "GET",
}

var factoryProtocols = map[string]string{
	"WS":     "ws",
	"Stream": "stream",
}

// TypeRef pairs a checked type with the syntax node it was written as.
// The syntax node is required to recover alias identity that the checker
// discards; collectors must consult it before trusting the checked type.
type TypeRef struct {
	Type types.Type
	Expr ast.Expr
}

// Param is one handler parameter descriptor.
type Param struct {
	Name string
	Ref  TypeRef
}

// Route is one discovered route declaration.
type Route struct {
	File     string
	Name     string
	Method   string
	Path     string
	Protocol string

	// Params are the leading path/query scalar descriptors, Body the
	// optional trailing message descriptor.
	Params []Param
	Body   *Param

	// Result is the handler's unwrapped result type; nil when the handler
	// returns only an error.
	Result *TypeRef

	// ConstArgs are enum-like constants referenced in the builder call's
	// arguments. The collector registers their whole parent declarations.
	ConstArgs []*types.Const

	// Valid is false when analysis failed recoverably; the route is skipped
	// with a warning instead of aborting generation.
	Valid  bool
	Reason string
}

// ExportedDecl is a non-route exported type declaration found in a route
// file, consumed later for reachable-public-type extraction.
type ExportedDecl struct {
	Obj  *types.TypeName
	File string
}

// Discoverer recognizes route declarations for a set of origin packages.
type Discoverer struct {
	origins map[string]struct{}
}

// New creates a Discoverer recognizing factories from the given import paths.
func New(origins []string) *Discoverer {
	set := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		set[o] = struct{}{}
	}
	return &Discoverer{origins: set}
}

// File extracts route candidates and non-route exported type declarations
// from one file of a type-checked package.
func (d *Discoverer) File(pkg *packages.Package, file *ast.File) ([]*Route, []ExportedDecl) {
	fileName := pkg.Fset.Position(file.Pos()).Filename

	var routes []*Route
	var decls []ExportedDecl

	for _, decl := range file.Decls {
		gen, ok := decl.(*ast.GenDecl)
		if !ok {
			continue
		}
		for _, spec := range gen.Specs {
			switch s := spec.(type) {
			case *ast.TypeSpec:
				if !s.Name.IsExported() {
					continue
				}
				if obj, ok := pkg.TypesInfo.Defs[s.Name].(*types.TypeName); ok {
					decls = append(decls, ExportedDecl{Obj: obj, File: fileName})
				}
			case *ast.ValueSpec:
				if len(s.Names) != 1 || len(s.Values) != 1 || !s.Names[0].IsExported() {
					continue
				}
				if r := d.routeFromValue(pkg, fileName, s.Names[0].Name, s.Values[0]); r != nil {
					routes = append(routes, r)
				}
			}
		}
	}
	return routes, decls
}

// routeFromValue matches one initializer expression against the recognized
// route shapes. Returns nil when the value is not a route candidate at all.
func (d *Discoverer) routeFromValue(pkg *packages.Package, file, name string, value ast.Expr) *Route {
	call := rootFactoryCall(value)
	if call == nil {
		return nil
	}

	fn := calleeFunc(pkg, call)
	if fn == nil || fn.Pkg() == nil {
		return nil
	}
	if _, ok := d.origins[fn.Pkg().Path()]; !ok {
		return nil
	}
	method, ok := factoryMethods[fn.Name()]
	if !ok {
		return nil
	}

	r := &Route{
		File:     file,
		Name:     name,
		Method:   method,
		Protocol: "http",
		Valid:    true,
	}
	if p, ok := factoryProtocols[fn.Name()]; ok {
		r.Protocol = p
		if p == "ws" {
			r.Method = ""
		}
	}

	args := call.Args
	if fn.Name() == "Handle" {
		if len(args) != 3 {
			return invalid(r, "Handle requires method, path and handler arguments")
		}
		if m, ok := stringArg(pkg, args[0]); ok {
			r.Method = m
		} else {
			return invalid(r, "Handle method argument must be a constant string")
		}
		args = args[1:]
	}
	if len(args) != 2 {
		return invalid(r, "route factory requires path and handler arguments")
	}

	path, ok := stringArg(pkg, args[0])
	if !ok {
		return invalid(r, "route path must be a constant string")
	}
	r.Path = path

	r.ConstArgs = constArgs(pkg, call)

	if reason := d.extractHandler(pkg, r, args[1]); reason != "" {
		return invalid(r, reason)
	}
	return r
}

func invalid(r *Route, reason string) *Route {
	r.Valid = false
	r.Reason = reason
	return r
}

// rootFactoryCall unwraps a builder chain like
// route.Get(...).Tag(...).Name(...) down to the innermost call.
func rootFactoryCall(expr ast.Expr) *ast.CallExpr {
	call, ok := expr.(*ast.CallExpr)
	if !ok {
		return nil
	}
	for {
		sel, ok := call.Fun.(*ast.SelectorExpr)
		if !ok {
			return call
		}
		inner, ok := sel.X.(*ast.CallExpr)
		if !ok {
			return call
		}
		call = inner
	}
}

func calleeFunc(pkg *packages.Package, call *ast.CallExpr) *types.Func {
	var id *ast.Ident
	switch fun := call.Fun.(type) {
	case *ast.Ident:
		id = fun
	case *ast.SelectorExpr:
		id = fun.Sel
	default:
		return nil
	}
	fn, _ := pkg.TypesInfo.Uses[id].(*types.Func)
	return fn
}

func stringArg(pkg *packages.Package, arg ast.Expr) (string, bool) {
	tv, ok := pkg.TypesInfo.Types[arg]
	if !ok || tv.Value == nil || tv.Value.Kind() != constant.String {
		return "", false
	}
	return constant.StringVal(tv.Value), true
}

// constArgs collects named constants referenced anywhere in the builder
// expression's arguments. A reference to a single enum member must register
// the whole parent declaration, so the collector needs the constant objects.
func constArgs(pkg *packages.Package, call *ast.CallExpr) []*types.Const {
	var out []*types.Const
	for _, arg := range call.Args {
		ast.Inspect(arg, func(n ast.Node) bool {
			id, ok := n.(*ast.Ident)
			if !ok {
				return true
			}
			if c, ok := pkg.TypesInfo.Uses[id].(*types.Const); ok {
				if _, named := c.Type().(*types.Named); named {
					out = append(out, c)
				}
			}
			return true
		})
	}
	return out
}

// extractHandler reads the handler's signature positionally: a leading
// context.Context, scalar path/query parameters, an optional trailing body
// struct, and an (T, error) or (error) result. Returns a reason string on a
// recoverable shape violation.
func (d *Discoverer) extractHandler(pkg *packages.Package, r *Route, handler ast.Expr) string {
	sig, ftype := handlerSignature(pkg, handler)
	if sig == nil {
		return "handler is not a function"
	}
	if sig.Variadic() {
		return "variadic handlers are not supported"
	}

	paramExprs, resultExprs := flattenFuncType(ftype)

	params := sig.Params()
	if params.Len() == 0 || !isContext(params.At(0).Type()) {
		return "handler must take context.Context as its first parameter"
	}

	for i := 1; i < params.Len(); i++ {
		p := params.At(i)
		ref := TypeRef{Type: p.Type()}
		if i < len(paramExprs) {
			ref.Expr = paramExprs[i]
		}
		param := Param{Name: p.Name(), Ref: ref}

		if isScalar(p.Type()) {
			if r.Body != nil {
				return "scalar parameters must precede the body parameter"
			}
			r.Params = append(r.Params, param)
			continue
		}
		if i != params.Len()-1 {
			return "only the final parameter may be a body descriptor"
		}
		r.Body = &param
	}

	results := sig.Results()
	switch results.Len() {
	case 1:
		if !isError(results.At(0).Type()) {
			return "handler must return error as its final result"
		}
	case 2:
		if !isError(results.At(1).Type()) {
			return "handler must return error as its final result"
		}
		ref := TypeRef{Type: results.At(0).Type()}
		if len(resultExprs) > 0 {
			ref.Expr = resultExprs[0]
		}
		if r.Protocol == "stream" {
			ch, ok := ref.Type.(*types.Chan)
			if !ok || ch.Dir() == types.SendOnly {
				return "stream handlers must return a receive channel"
			}
			ref = TypeRef{Type: ch.Elem()}
			if chExpr, ok := ref2chanElem(resultExprs); ok {
				ref.Expr = chExpr
			}
		}
		r.Result = &ref
	default:
		return "handler must return (T, error) or error"
	}
	return ""
}

// handlerSignature resolves the handler expression to its signature and, when
// the declaration is visible in the package, the syntactic func type carrying
// the written parameter and result types.
func handlerSignature(pkg *packages.Package, handler ast.Expr) (*types.Signature, *ast.FuncType) {
	if lit, ok := handler.(*ast.FuncLit); ok {
		sig, _ := pkg.TypesInfo.TypeOf(lit).(*types.Signature)
		return sig, lit.Type
	}

	var id *ast.Ident
	switch h := handler.(type) {
	case *ast.Ident:
		id = h
	case *ast.SelectorExpr:
		id = h.Sel
	default:
		return nil, nil
	}

	fn, ok := pkg.TypesInfo.Uses[id].(*types.Func)
	if !ok {
		return nil, nil
	}
	sig, _ := fn.Type().(*types.Signature)
	return sig, funcDeclType(pkg, fn)
}

// funcDeclType locates the FuncDecl syntax for a function declared in the
// same package. Returns nil for functions from other packages; callers then
// fall back to checked types without alias recovery.
func funcDeclType(pkg *packages.Package, fn *types.Func) *ast.FuncType {
	for _, file := range pkg.Syntax {
		for _, decl := range file.Decls {
			fd, ok := decl.(*ast.FuncDecl)
			if !ok {
				continue
			}
			if fd.Name.Pos() == fn.Pos() {
				return fd.Type
			}
		}
	}
	return nil
}

// flattenFuncType expands multi-name fields so parameter index i maps to its
// written type expression.
func flattenFuncType(ftype *ast.FuncType) (params, results []ast.Expr) {
	if ftype == nil {
		return nil, nil
	}
	if ftype.Params != nil {
		for _, field := range ftype.Params.List {
			n := len(field.Names)
			if n == 0 {
				n = 1
			}
			for i := 0; i < n; i++ {
				params = append(params, field.Type)
			}
		}
	}
	if ftype.Results != nil {
		for _, field := range ftype.Results.List {
			n := len(field.Names)
			if n == 0 {
				n = 1
			}
			for i := 0; i < n; i++ {
				results = append(results, field.Type)
			}
		}
	}
	return params, results
}

// ref2chanElem unwraps a written "<-chan T" result expression to T.
func ref2chanElem(resultExprs []ast.Expr) (ast.Expr, bool) {
	if len(resultExprs) == 0 {
		return nil, false
	}
	if ch, ok := resultExprs[0].(*ast.ChanType); ok {
		return ch.Value, true
	}
	return nil, false
}

func isContext(t types.Type) bool {
	named, ok := t.(*types.Named)
	if !ok {
		return false
	}
	obj := named.Obj()
	return obj.Pkg() != nil && obj.Pkg().Path() == "context" && obj.Name() == "Context"
}

func isError(t types.Type) bool {
	named, ok := t.(*types.Named)
	if !ok {
		return false
	}
	return named.Obj().Pkg() == nil && named.Obj().Name() == "error"
}

// isScalar reports whether a type is a path/query parameter candidate: a
// basic type, or a named/alias type whose underlying is basic.
func isScalar(t types.Type) bool {
	switch u := t.Underlying().(type) {
	case *types.Basic:
		return u.Info()&(types.IsBoolean|types.IsInteger|types.IsFloat|types.IsString) != 0
	}
	return false
}
