// Package driver runs generation passes: load and type-check the scanned
// module, discover routes, collect referenced types, and emit both output
// documents from one immutable snapshot.
//
// Passes are serialized; the driver is the single writer of output files and
// of the cross-pass caches it owns. A pass that fails preserves the previous
// outputs untouched.
package driver

import (
	"context"
	"go/ast"
	"go/token"
	"go/types"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/tools/go/packages"

	"github.com/routegen/routegen/errors"
	"github.com/routegen/routegen/internal/config"
	"github.com/routegen/routegen/internal/discover"
	"github.com/routegen/routegen/internal/emit"
	"github.com/routegen/routegen/internal/emit/client"
	"github.com/routegen/routegen/internal/emit/schema"
	"github.com/routegen/routegen/internal/typeref"
	"github.com/routegen/routegen/internal/workspace"
	"github.com/routegen/routegen/logger"
)

// loadMode is everything discovery and collection need from the checker.
const loadMode = packages.NeedName |
	packages.NeedFiles |
	packages.NeedSyntax |
	packages.NeedTypes |
	packages.NeedTypesInfo |
	packages.NeedImports |
	packages.NeedDeps

// State is the driver's pass state machine position.
type State int32

const (
	StateIdle State = iota
	StateAnalyzing
	StateEmitting
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAnalyzing:
		return "analyzing"
	case StateEmitting:
		return "emitting"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Warning is a recoverable per-route analysis problem. The route is skipped
// and the pass continues.
type Warning struct {
	Message string
	Route   string
	File    string
}

// Diagnostic is a surfaced checker or config problem attributed to a file.
type Diagnostic struct {
	File    string
	Message string
}

// Result summarizes one pass.
type Result struct {
	PassID     string
	Full       bool
	Superseded bool

	Routes  int
	Types   int
	Written []string

	Warnings    []Warning
	Diagnostics []Diagnostic

	Duration time.Duration
}

// Driver owns the cross-pass caches and runs serialized generation passes.
type Driver struct {
	root       string
	cache      *workspace.Cache
	resolver   *config.Resolver
	generators []emit.Generator

	mu    sync.Mutex
	state atomic.Int32
	gen   atomic.Int64
	graph *depGraph

	// hookAnalyzed, when set, runs between analysis and the supersession
	// check. Test seam.
	hookAnalyzed func()
}

// New creates a driver over the scan root. A persisted manifest, when
// present, warms the included-file set so watch mode can classify changes
// before the first in-process pass.
func New(root string, cache *workspace.Cache, resolver *config.Resolver) *Driver {
	d := &Driver{
		root:       root,
		cache:      cache,
		resolver:   resolver,
		generators: []emit.Generator{client.NewGenerator(), schema.NewGenerator()},
		graph:      newDepGraph(),
	}

	if m, err := LoadManifest(root); err != nil {
		logger.Warnw("Ignoring unreadable pass manifest", logger.FieldError, err)
	} else if m != nil {
		included := make(map[string]struct{}, len(m.Included))
		for _, f := range m.Included {
			cache.AddFile(f)
			included[f] = struct{}{}
		}
		cache.SetIncluded(included)
		logger.Debugw("Warm start from pass manifest",
			logger.FieldPassID, m.PassID,
			logger.FieldCount, len(m.Included))
	}
	return d
}

// State returns the current pass state.
func (d *Driver) State() State {
	return State(d.state.Load())
}

func (d *Driver) setState(s State) {
	d.state.Store(int32(s))
	logger.Debugw("Driver state", logger.FieldState, s.String())
}

// Supersede marks any in-flight pass as stale. The pass finishes its
// analysis but skips emission; the caller is expected to schedule a fresh
// pass covering the new change.
func (d *Driver) Supersede() {
	d.gen.Add(1)
}

// Run executes a full pass over every candidate file under the root.
func (d *Driver) Run(ctx context.Context) (*Result, error) {
	return d.pass(ctx, true)
}

// RunChanged executes a pass in response to changed source files. Changes
// that cannot affect any route resolve to a no-op result without loading
// anything. A relevant change still re-analyzes the whole tree: checker
// object identity does not survive across loads, so extraction state cannot
// be reused between passes.
func (d *Driver) RunChanged(ctx context.Context, changed []string) (*Result, error) {
	if !d.relevant(changed) {
		logger.Debugw("Change set affects no routes, skipping pass",
			logger.FieldCount, len(changed))
		return &Result{PassID: uuid.NewString(), Superseded: false}, nil
	}
	return d.pass(ctx, false)
}

// relevant reports whether any changed file can affect generation output:
// it participates in the dependency graph, is currently included, or has
// never been through a pass (a new file may declare routes). Analysis marks
// records by setting Imports non-nil, even when empty.
func (d *Driver) relevant(changed []string) bool {
	d.mu.Lock()
	graph := d.graph
	d.mu.Unlock()

	if graph.touches(changed) {
		return true
	}
	for _, file := range changed {
		rec, known := d.cache.Record(file)
		if !known || rec.Included || rec.Imports == nil {
			return true
		}
	}
	return false
}

func (d *Driver) pass(ctx context.Context, full bool) (*Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	start := time.Now()
	startGen := d.gen.Load()
	res := &Result{PassID: uuid.NewString(), Full: full}

	d.setState(StateAnalyzing)
	logger.Infow("Pass started",
		logger.FieldPassID, res.PassID,
		logger.FieldDir, d.root)

	a, err := d.analyze(ctx, res)
	if err != nil {
		d.setState(StateFailed)
		res.Duration = time.Since(start)
		return res, err
	}
	if d.hookAnalyzed != nil {
		d.hookAnalyzed()
	}

	// A superseded pass must not leak any of its conclusions into the shared
	// caches: its included set and diagnostics are stale by definition.
	if d.gen.Load() != startGen {
		res.Superseded = true
		res.Duration = time.Since(start)
		d.setState(StateIdle)
		logger.Infow("Pass superseded before emission", logger.FieldPassID, res.PassID)
		return res, nil
	}

	d.cache.SetIncluded(a.included)
	res.Diagnostics = a.diagnostics(d.resolver.Diagnostics())
	res.Routes = len(a.docs)
	res.Types = len(a.snapshot.Types)

	d.setState(StateEmitting)
	if err := d.emit(ctx, a, res); err != nil {
		d.setState(StateFailed)
		res.Duration = time.Since(start)
		return res, err
	}

	d.graph = a.graph
	d.saveManifest(a, res)

	res.Duration = time.Since(start)
	d.setState(StateIdle)
	logger.Infow("Pass complete",
		logger.FieldPassID, res.PassID,
		logger.FieldRoutes, res.Routes,
		logger.FieldTypes, res.Types,
		logger.FieldWarnings, len(res.Warnings),
		logger.FieldDurationMS, res.Duration.Milliseconds())
	return res, nil
}

// analysis carries one pass's intermediate state between phases.
type analysis struct {
	modPath  string
	cfgDir   string
	opts     config.Options
	docs     []emit.RouteDoc
	snapshot *emit.Snapshot
	graph    *depGraph
	included map[string]struct{}
	pkgErrs  []Diagnostic
}

func (d *Driver) analyze(ctx context.Context, res *Result) (*analysis, error) {
	a := &analysis{
		cfgDir:   d.root,
		opts:     config.Default(),
		graph:    newDepGraph(),
		included: make(map[string]struct{}),
	}
	// Re-check config attribution before trusting cached resolutions; a
	// directory may have moved under a different config since last pass.
	if moved := d.resolver.Verify(); len(moved) > 0 {
		logger.Debugw("Directories re-attributed to new configs", logger.FieldCount, len(moved))
	}
	if rootCfg := d.resolver.ResolveDir(d.root); rootCfg != nil {
		a.opts = rootCfg.Options
		a.cfgDir = rootCfg.Dir
	}

	modPath, err := modulePath(d.root)
	if err != nil {
		return nil, err
	}
	a.modPath = modPath

	fset := token.NewFileSet()
	cfg := &packages.Config{
		Context: ctx,
		Dir:     d.root,
		Fset:    fset,
		Mode:    loadMode,
	}
	if len(a.opts.BuildTags) > 0 {
		cfg.BuildFlags = []string{"-tags=" + strings.Join(a.opts.BuildTags, ",")}
	}

	pkgs, err := packages.Load(cfg, "./...")
	if err != nil {
		return nil, errors.Wrap(err, "failed to load packages")
	}

	origins := a.opts.RouteOrigins
	if len(origins) == 0 {
		origins = []string{config.DefaultRouteOrigin}
	}
	disc := discover.New(origins)
	reg := typeref.NewRegistry()
	coll := typeref.NewCollector(reg, fset, modPath)

	declFiles := make(map[*types.TypeName]string)
	for _, pkg := range pkgs {
		coll.AddPackage(pkg)
		for _, e := range pkg.Errors {
			a.pkgErrs = append(a.pkgErrs, packageDiagnostic(e))
		}
	}

	for _, pkg := range pkgs {
		for _, file := range pkg.Syntax {
			path := fset.Position(file.Pos()).Filename
			if !d.covered(path) {
				// Record the file as analyzed-and-excluded so later changes
				// to it classify as irrelevant.
				rec := d.cache.AddFile(path)
				rec.Imports = []string{}
				continue
			}

			rec := d.cache.AddFile(path)
			rec.Imports = importSpecs(file)
			d.resolveImports(path, rec.Imports, a)

			routes, decls := disc.File(pkg, file)
			for _, decl := range decls {
				declFiles[decl.Obj] = decl.File
			}
			for _, r := range routes {
				d.collectRoute(reg, coll, pkg, r, a, res)
			}
		}
	}

	refs, err := reg.Snapshot()
	if err != nil {
		// Name collisions are fatal for the pass; previous outputs stay
		// untouched.
		return nil, err
	}

	for _, ref := range refs {
		file := ref.File
		if file == "" {
			file = declFiles[ref.Obj]
		}
		if file == "" {
			continue
		}
		a.included[file] = struct{}{}
		for _, route := range ref.UsedBy() {
			a.graph.addEdge(route, file)
		}
	}

	a.snapshot = emit.NewSnapshot(a.docs, refs)
	return a, nil
}

// collectRoute turns one discovered route into an emission-ready RouteDoc.
// Unsupported types invalidate only this route; the pass continues. All
// registrations are staged and rolled back when the route is invalidated, so
// types reachable only through a skipped route never enter the registry.
func (d *Driver) collectRoute(reg *typeref.Registry, coll *typeref.Collector, pkg *packages.Package, r *discover.Route, a *analysis, res *Result) {
	if !r.Valid {
		d.warnRoute(res, r, r.Reason)
		return
	}

	doc := emit.RouteDoc{
		Name:     r.Name,
		Method:   r.Method,
		Path:     r.Path,
		Protocol: r.Protocol,
	}

	reg.Begin()
	for _, p := range r.Params {
		desc, err := coll.Collect(pkg, r.Name, p.Ref)
		if err != nil {
			reg.Rollback()
			d.warnRoute(res, r, err.Error())
			return
		}
		doc.Params = append(doc.Params, emit.ParamDoc{Name: p.Name, Desc: desc})
	}
	if r.Body != nil {
		desc, err := coll.Collect(pkg, r.Name, r.Body.Ref)
		if err != nil {
			reg.Rollback()
			d.warnRoute(res, r, err.Error())
			return
		}
		doc.Body = &desc
	}
	if r.Result != nil {
		desc, err := coll.Collect(pkg, r.Name, *r.Result)
		if err != nil {
			reg.Rollback()
			d.warnRoute(res, r, err.Error())
			return
		}
		doc.Result = &desc
	}
	for _, con := range r.ConstArgs {
		if err := coll.CollectConst(r.Name, con); err != nil {
			reg.Rollback()
			d.warnRoute(res, r, err.Error())
			return
		}
	}
	reg.Commit()

	a.docs = append(a.docs, doc)
	a.graph.addRoute(r.Name, r.File)
	a.included[r.File] = struct{}{}
}

// resolveImports warms the per-directory import cache and records failing
// specifiers as diagnostics. Failures are memoized in the workspace and only
// surface when the importing file ends up included.
func (d *Driver) resolveImports(path string, specs []string, a *analysis) {
	dctx := d.cache.Context(filepath.Dir(path))
	for _, spec := range specs {
		if res := dctx.Resolve(spec); res.Err != nil {
			a.pkgErrs = append(a.pkgErrs, Diagnostic{
				File:    path,
				Message: res.Err.Error(),
			})
		}
	}
}

func (d *Driver) warnRoute(res *Result, r *discover.Route, msg string) {
	res.Warnings = append(res.Warnings, Warning{Message: msg, Route: r.Name, File: r.File})
	logger.Warnw("Route skipped",
		logger.FieldRoute, r.Name,
		logger.FieldFile, r.File,
		logger.FieldError, msg)
}

// covered reports whether a file is inside the generation scope. A file with
// no governing config anywhere falls under default options, which include
// everything; an existing config narrows coverage through its globs.
func (d *Driver) covered(path string) bool {
	res := d.resolver.ResolveFile(path)
	if res == nil {
		return true
	}
	return res.CoversFile(path)
}

// diagnostics merges config diagnostics with checker errors, the latter
// filtered to included files so stale problems in unrelated code never
// surface.
func (a *analysis) diagnostics(cfgDiags []config.Diagnostic) []Diagnostic {
	var out []Diagnostic
	for _, cd := range cfgDiags {
		out = append(out, Diagnostic{File: cd.Path, Message: cd.Message})
	}
	for _, pe := range a.pkgErrs {
		if _, ok := a.included[pe.File]; ok {
			out = append(out, pe)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].File != out[j].File {
			return out[i].File < out[j].File
		}
		return out[i].Message < out[j].Message
	})
	return out
}

// emit renders and writes every output document. All documents are staged to
// temp files first and renamed into place only once each one staged
// successfully, so the generated pair never diverges on disk.
func (d *Driver) emit(ctx context.Context, a *analysis, res *Result) error {
	outputs := map[string]string{
		"client": outputPath(a.cfgDir, a.opts.Output.Client),
		"schema": outputPath(a.cfgDir, a.opts.Output.Schema),
	}

	staged := make(map[string]string, len(d.generators))
	var mu sync.Mutex
	eg, _ := errgroup.WithContext(ctx)
	for _, g := range d.generators {
		g := g
		eg.Go(func() error {
			path, ok := outputs[g.Language()]
			if !ok {
				return errors.Newf("no output target for generator %q", g.Language())
			}
			tmp, err := stageWrite(path, g.GenerateFile(a.snapshot))
			if err != nil {
				return err
			}
			logger.Debugw("Output staged",
				logger.FieldOutput, path,
				logger.FieldOperation, g.Language())
			mu.Lock()
			staged[path] = tmp
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		discardStaged(staged)
		return err
	}

	paths := make([]string, 0, len(staged))
	for path := range staged {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	for _, path := range paths {
		if err := os.Rename(staged[path], path); err != nil {
			discardStaged(staged)
			return errors.Wrapf(err, "failed to replace %s", path)
		}
	}
	res.Written = paths
	return nil
}

func discardStaged(staged map[string]string) {
	for _, tmp := range staged {
		os.Remove(tmp)
	}
}

func (d *Driver) saveManifest(a *analysis, res *Result) {
	// SetIncluded already ran for this pass, so the cache view matches the
	// pass's reachability set.
	included := d.cache.IncludedFiles()

	outputs := make(map[string]string, len(d.generators))
	for _, g := range d.generators {
		outputs[g.Language()] = outputPath(a.cfgDir, outputOption(a.opts, g.Language()))
	}

	m := &Manifest{
		PassID:     res.PassID,
		ModulePath: a.modPath,
		Generated:  time.Now().UTC(),
		Routes:     res.Routes,
		Types:      res.Types,
		Included:   included,
		Outputs:    outputs,
	}
	if err := SaveManifest(d.root, m); err != nil {
		// Manifest loss only costs the next warm start.
		logger.Warnw("Failed to persist pass manifest", logger.FieldError, err)
	}
}

func outputOption(opts config.Options, language string) string {
	if language == "schema" {
		return opts.Output.Schema
	}
	return opts.Output.Client
}

func outputPath(cfgDir, target string) string {
	if filepath.IsAbs(target) {
		return target
	}
	return filepath.Join(cfgDir, target)
}

func importSpecs(file *ast.File) []string {
	out := make([]string, 0, len(file.Imports))
	for _, imp := range file.Imports {
		if spec, err := strconv.Unquote(imp.Path.Value); err == nil {
			out = append(out, spec)
		}
	}
	return out
}

// packageDiagnostic converts a checker error, splitting the trailing
// ":line:col" off its position to recover the file path.
func packageDiagnostic(e packages.Error) Diagnostic {
	file := e.Pos
	if i := strings.Index(file, ":"); i > 1 {
		file = file[:i]
	}
	return Diagnostic{File: file, Message: e.Msg}
}
