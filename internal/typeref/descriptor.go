package typeref

import "go/types"

// Kind discriminates canonical type descriptors.
type Kind int

const (
	KindPrimitive Kind = iota
	KindArray
	KindMap
	KindObject
	KindRef
	KindUnknown
)

// Descriptor is the canonical, emission-ready shape of a type. Named
// declarations appear as KindRef entries pointing into the registry; the
// generators decide whether to reference or expand them based on the
// registered decision.
type Descriptor struct {
	Kind Kind

	// Primitive is "string", "number" or "boolean" for KindPrimitive.
	Primitive string

	// Nullable marks pointer-typed values.
	Nullable bool

	// Elem is the element descriptor for arrays and map values.
	Elem *Descriptor

	// Fields are the object fields for KindObject, in declaration order.
	Fields []Field

	// RefObj identifies the registered declaration for KindRef. Generators
	// resolve it to an emitted name through the pass snapshot; identity is
	// the declaration object, never the name, so same-named declarations
	// stay distinct until qualification.
	RefObj *types.TypeName
}

// Field is one object field with its wire name.
type Field struct {
	Name     string
	Optional bool
	Desc     Descriptor
}

func primitive(name string) Descriptor {
	return Descriptor{Kind: KindPrimitive, Primitive: name}
}

func unknown() Descriptor {
	return Descriptor{Kind: KindUnknown}
}
