// Package emit defines the immutable pass snapshot consumed by the output
// generators and the Generator interface each target document implements.
//
// Both documents of a pass are generated from the same snapshot so that
// named types referenced by both sides use consistent identity; emission
// never starts until analysis has fully completed.
package emit

import (
	"go/types"
	"sort"

	"github.com/routegen/routegen/internal/typeref"
)

// Generator is implemented by each output document renderer.
type Generator interface {
	// GenerateFile creates a complete output document from one snapshot.
	GenerateFile(snap *Snapshot) string

	// FileExtension returns the output file extension (e.g. "ts").
	FileExtension() string

	// Language returns the generator name (e.g. "client", "schema").
	Language() string
}

// ParamDoc is one path/query parameter of a route.
type ParamDoc struct {
	Name string
	Desc typeref.Descriptor
}

// RouteDoc is the emission-ready record of one valid route.
type RouteDoc struct {
	Name     string
	Method   string
	Path     string
	Protocol string

	Params []ParamDoc
	Body   *typeref.Descriptor
	Result *typeref.Descriptor
}

// Snapshot is the immutable input to both generators. Routes are sorted by
// name and Types by emitted name, so output is deterministic.
type Snapshot struct {
	Routes []RouteDoc
	// Types holds the named (emitted-once) declarations.
	Types []*typeref.Ref

	byObj map[*types.TypeName]*typeref.Ref
}

// NewSnapshot assembles a snapshot from the pass's route docs and the
// finalized registry entries.
func NewSnapshot(routes []RouteDoc, refs []*typeref.Ref) *Snapshot {
	snap := &Snapshot{byObj: make(map[*types.TypeName]*typeref.Ref, len(refs))}

	snap.Routes = append(snap.Routes, routes...)
	sort.Slice(snap.Routes, func(i, j int) bool { return snap.Routes[i].Name < snap.Routes[j].Name })

	for _, ref := range refs {
		snap.byObj[ref.Obj] = ref
		if ref.Decision == typeref.DecisionNamed {
			snap.Types = append(snap.Types, ref)
		}
	}
	sort.Slice(snap.Types, func(i, j int) bool { return snap.Types[i].Emitted < snap.Types[j].Emitted })
	return snap
}

// Resolve maps a declaration back to its registry entry.
func (s *Snapshot) Resolve(obj *types.TypeName) (*typeref.Ref, bool) {
	ref, ok := s.byObj[obj]
	return ref, ok
}

// TypesInDependencyOrder returns the named declarations ordered so that a
// declaration precedes its referencers. Needed by the schema document, whose
// consts are evaluated top to bottom; cycles are broken at the revisit point.
func (s *Snapshot) TypesInDependencyOrder() []*typeref.Ref {
	var out []*typeref.Ref
	state := make(map[*typeref.Ref]int) // 0 unseen, 1 visiting, 2 done

	var visit func(ref *typeref.Ref)
	visit = func(ref *typeref.Ref) {
		if state[ref] != 0 {
			return
		}
		state[ref] = 1
		for _, dep := range s.shapeDeps(ref) {
			if state[dep] == 1 {
				continue // cycle: emit in discovery order
			}
			visit(dep)
		}
		state[ref] = 2
		out = append(out, ref)
	}

	for _, ref := range s.Types {
		visit(ref)
	}
	return out
}

func (s *Snapshot) shapeDeps(ref *typeref.Ref) []*typeref.Ref {
	var deps []*typeref.Ref
	var walk func(d typeref.Descriptor)
	walk = func(d typeref.Descriptor) {
		switch d.Kind {
		case typeref.KindRef:
			if dep, ok := s.byObj[d.RefObj]; ok && dep.Decision == typeref.DecisionNamed {
				deps = append(deps, dep)
			} else if ok {
				walk(dep.Shape)
			}
		case typeref.KindArray, typeref.KindMap:
			if d.Elem != nil {
				walk(*d.Elem)
			}
		case typeref.KindObject:
			for _, f := range d.Fields {
				walk(f.Desc)
			}
		}
	}
	walk(ref.Shape)
	return deps
}
