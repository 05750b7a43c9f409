package typeref

import (
	"fmt"
	"go/types"
	"sort"
	"strings"

	"github.com/routegen/routegen/errors"
)

// Decision records how a registered declaration is treated in the output.
type Decision int

const (
	// DecisionInline expands the shape at each use site.
	DecisionInline Decision = iota
	// DecisionNamed emits the declaration once under its (possibly
	// qualified) name and references it elsewhere.
	DecisionNamed
	// DecisionDuplicate marks a re-registration of an already known
	// declaration; the event is a no-op.
	DecisionDuplicate
)

// RefKind classifies registered declarations.
type RefKind int

const (
	RefStruct RefKind = iota
	RefEnum
	RefAlias
)

// EnumMember is one constant of an enum-like declaration, in source order.
// Member ordering and values are part of the enum's identity and must be
// preserved exactly.
type EnumMember struct {
	Name string
	// Value is the literal as source text: quoted semantics are decided by
	// IsString on the owning Ref.
	Value string
}

// Ref is one (declaration → extraction decision) registry entry.
type Ref struct {
	// Obj is the originating declaration. The registry is keyed by this
	// identity, never by structural shape: two structurally identical but
	// separately declared types never collapse into one alias.
	Obj *types.TypeName

	// Name is the original declared name; Emitted the client-facing output
	// name after collision qualification. The schema side appends the
	// "Schema" suffix to Emitted.
	Name    string
	Emitted string

	Decision Decision
	Kind     RefKind
	File     string

	// Shape is the structural descriptor for structs and aliases.
	Shape Descriptor

	// Members and IsString describe enum-like declarations.
	Members  []EnumMember
	IsString bool

	exported bool
	forced   bool
	usedBy   map[string]struct{}
	order    int
}

// UsedBy returns the route names referencing this declaration, sorted.
func (r *Ref) UsedBy() []string {
	out := make([]string, 0, len(r.usedBy))
	for name := range r.usedBy {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// SchemaName is the validation-side export name, suffixed to avoid colliding
// with the validation library's own exports.
func (r *Ref) SchemaName() string {
	return r.Emitted + "Schema"
}

// CollisionError reports two distinct declarations whose emitted names could
// not be disambiguated. Fatal for the generation pass.
type CollisionError struct {
	Name  string
	FileA string
	FileB string
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("name collision: %q declared in both %s and %s", e.Name, e.FileA, e.FileB)
}

// txEntry records one registration effect so a failed route's additions can
// be undone in reverse order.
type txEntry struct {
	ref   *Ref
	added bool
	route string
}

// Registry is the generation-scoped (declaration → decision) registry.
// Created fresh per pass; the driver owns it exclusively.
type Registry struct {
	byObj map[*types.TypeName]*Ref
	refs  []*Ref

	recording bool
	tx        []txEntry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byObj: make(map[*types.TypeName]*Ref)}
}

// Begin starts recording registrations for one route so they can be rolled
// back if the route turns out not to be representable. One window at a time;
// Commit or Rollback closes it.
func (g *Registry) Begin() {
	g.tx = g.tx[:0]
	g.recording = true
}

// Commit keeps everything registered since Begin.
func (g *Registry) Commit() {
	g.tx = g.tx[:0]
	g.recording = false
}

// Rollback undoes every registration and route attribution recorded since
// Begin, so declarations reached only through an invalidated route never
// leak into the output.
func (g *Registry) Rollback() {
	for i := len(g.tx) - 1; i >= 0; i-- {
		e := g.tx[i]
		if e.added {
			delete(g.byObj, e.ref.Obj)
			g.refs = g.refs[:len(g.refs)-1]
			continue
		}
		delete(e.ref.usedBy, e.route)
	}
	g.tx = g.tx[:0]
	g.recording = false
}

// register adds or revisits a declaration. The returned decision is
// DecisionDuplicate for revisits, which callers treat as a no-op.
func (g *Registry) register(obj *types.TypeName, file string, routeName string) (*Ref, Decision) {
	if ref, ok := g.byObj[obj]; ok {
		if routeName != "" {
			if _, seen := ref.usedBy[routeName]; !seen {
				ref.usedBy[routeName] = struct{}{}
				if g.recording {
					g.tx = append(g.tx, txEntry{ref: ref, route: routeName})
				}
			}
		}
		return ref, DecisionDuplicate
	}

	ref := &Ref{
		Obj:      obj,
		Name:     obj.Name(),
		File:     file,
		exported: obj.Exported(),
		usedBy:   make(map[string]struct{}),
		order:    len(g.refs),
	}
	if routeName != "" {
		ref.usedBy[routeName] = struct{}{}
	}
	g.byObj[obj] = ref
	g.refs = append(g.refs, ref)
	if g.recording {
		g.tx = append(g.tx, txEntry{ref: ref, added: true})
	}
	return ref, DecisionInline
}

// Lookup returns the entry for a declaration, if registered.
func (g *Registry) Lookup(obj *types.TypeName) (*Ref, bool) {
	ref, ok := g.byObj[obj]
	return ref, ok
}

// Len returns the number of registered declarations.
func (g *Registry) Len() int {
	return len(g.refs)
}

// Snapshot finalizes decisions and emitted names and returns the entries
// ordered by emitted name. Same-name declarations from different files are
// disambiguated by qualifying the later one with its package name; a still
// unresolved collision is a fatal generation error naming both files.
func (g *Registry) Snapshot() ([]*Ref, error) {
	for _, ref := range g.refs {
		if ref.Kind == RefEnum || ref.forced || ref.exported || len(ref.usedBy) >= 2 {
			ref.Decision = DecisionNamed
		} else {
			ref.Decision = DecisionInline
		}
		ref.Emitted = ref.Name
	}

	// Inline refs are expanded at use sites and never claim a name, but an
	// inline and a named ref sharing a key would still confuse expansion
	// lookups, so qualification considers every entry.
	claimed := make(map[string]*Ref)
	ordered := append([]*Ref(nil), g.refs...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].order < ordered[j].order })

	for _, ref := range ordered {
		prev, taken := claimed[ref.Emitted]
		if !taken {
			claimed[ref.Emitted] = ref
			continue
		}
		qualified := qualify(ref)
		if _, stillTaken := claimed[qualified]; stillTaken || qualified == ref.Emitted {
			return nil, errors.WithHint(
				&CollisionError{Name: ref.Name, FileA: prev.File, FileB: ref.File},
				"rename one declaration or move it to a differently named package")
		}
		ref.Emitted = qualified
		claimed[qualified] = ref
	}

	out := append([]*Ref(nil), g.refs...)
	sort.Slice(out, func(i, j int) bool { return out[i].Emitted < out[j].Emitted })
	return out, nil
}

// qualify prefixes a declaration's name with its package name.
func qualify(ref *Ref) string {
	pkg := ref.Obj.Pkg()
	if pkg == nil {
		return ref.Name
	}
	return upperFirst(pkg.Name()) + ref.Name
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
