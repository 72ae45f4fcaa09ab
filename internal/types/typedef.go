// Package types implements the type descriptor graph: scalar, array,
// pointer and record/class type descriptors, their reference-qualified
// wrapper (RefType), and the registry (Model) that owns them.
//
// TypeDef fields could hold bare pointers into the
// symbol table's owned vector (SymTableTypes.h). Per the "owning vs
// non-owning type graph" design note, this port stores every TypeDef in a
// single owned slice on Model (an arena) and refers to other types through
// *Def pointers that are only ever handed out by Model, so identity
// comparison (used for nominal Class typing) stays meaningful without a
// garbage collector pretending otherwise.
package types

import (
	"fmt"
	"strings"

	"pascalvm/internal/value"
)

// Category is the broad shape of a type.
type Category int

const (
	Scalar Category = iota
	Array
	Pointer
	Class
)

func (c Category) String() string {
	switch c {
	case Scalar:
		return "scalar"
	case Array:
		return "array"
	case Pointer:
		return "pointer"
	case Class:
		return "class"
	}
	return "unknown"
}

// Def describes one type. Only the fields relevant to Category are
// meaningful: ScalarKind for Scalar, ArrayLow/ArrayHigh/Children[0] for
// Array, Children[0] for Pointer, Children/FieldNames/FieldIndex/Parent for
// Class.
type Def struct {
	id       int
	model    *Model
	Category Category
	Alias    string // empty until SetName is called; anonymous until then

	ScalarKind value.Kind // meaningful only for Category == Scalar

	ArrayLow, ArrayHigh int64 // meaningful only for Category == Array, inclusive bounds

	Children   []*Def         // Array/Pointer: single element type; Class: field types in declaration order
	FieldNames []string       // Class only, parallel to Children
	FieldIndex map[string]int // Class only, lowercase field name -> index into Children
	Parent     *Def           // Class only: inherited base type, nil if none

	External bool // registered via register(..., external=true)
}

// ID is a stable arena index, usable as a hash-stable substitute for
// pointer identity when serializing.
func (d *Def) ID() int { return d.id }

func (d *Def) IsUndefined() bool { return d == d.model.undefined }
func (d *Def) IsInt() bool       { return d.Category == Scalar && d.ScalarKind.IsInt() }
func (d *Def) IsFloat() bool     { return d.Category == Scalar && d.ScalarKind.IsFloat() }
func (d *Def) IsBoolean() bool   { return d.Category == Scalar && d.ScalarKind == value.Bool }
func (d *Def) IsClass() bool     { return d.Category == Class }
func (d *Def) IsPointer() bool   { return d.Category == Pointer }
func (d *Def) IsScalar() bool    { return d.Category == Scalar }

// Elem returns the element type for Array/Pointer categories.
func (d *Def) Elem() *Def {
	if len(d.Children) != 1 {
		return nil
	}
	return d.Children[0]
}

// ByteSize computes the cell-count footprint of the type: Scalar and
// Pointer are always one cell; Array is (high-low+1) times the element
// size; Class is the parent's size plus the sum of its own field sizes.
func (d *Def) ByteSize() int {
	switch d.Category {
	case Scalar, Pointer:
		return 1
	case Array:
		n := int(d.ArrayHigh-d.ArrayLow) + 1
		if n < 0 {
			n = 0
		}
		return n * d.Elem().ByteSize()
	case Class:
		size := 0
		if d.Parent != nil {
			size += d.Parent.ByteSize()
		}
		for _, f := range d.Children {
			size += f.ByteSize()
		}
		return size
	}
	return 0
}

// SigRun is one run-length-encoded entry of a Signature: Kind repeated Run
// times consecutively in the flattened stack layout.
type SigRun struct {
	Kind value.Kind
	Run  int
}

// Signature flattens the type into a run-length-encoded list of scalar
// kinds describing how it decomposes into stack cells.
func (d *Def) Signature() []SigRun {
	switch d.Category {
	case Scalar:
		return []SigRun{{Kind: d.ScalarKind, Run: 1}}
	case Pointer:
		return []SigRun{{Kind: value.Int32, Run: 1}}
	case Array:
		elemSig := d.Elem().Signature()
		n := int(d.ArrayHigh-d.ArrayLow) + 1
		if n < 0 {
			n = 0
		}
		if len(elemSig) == 1 {
			return []SigRun{{Kind: elemSig[0].Kind, Run: elemSig[0].Run * n}}
		}
		out := make([]SigRun, 0, len(elemSig)*n)
		for i := 0; i < n; i++ {
			out = append(out, elemSig...)
		}
		return compactSig(out)
	case Class:
		var out []SigRun
		if d.Parent != nil {
			out = append(out, d.Parent.Signature()...)
		}
		for _, f := range d.Children {
			out = append(out, f.Signature()...)
		}
		return compactSig(out)
	}
	return nil
}

func compactSig(in []SigRun) []SigRun {
	if len(in) == 0 {
		return in
	}
	out := make([]SigRun, 0, len(in))
	out = append(out, in[0])
	for _, r := range in[1:] {
		last := &out[len(out)-1]
		if last.Kind == r.Kind {
			last.Run += r.Run
			continue
		}
		out = append(out, r)
	}
	return out
}

// Offset walks the parent chain first, then sums the byte sizes of own
// fields preceding fieldName.
func (d *Def) Offset(fieldName string) (int, bool) {
	key := strings.ToLower(fieldName)
	if d.Parent != nil {
		if off, ok := d.Parent.Offset(fieldName); ok {
			return off, true
		}
	}
	base := 0
	if d.Parent != nil {
		base = d.Parent.ByteSize()
	}
	idx, ok := d.FieldIndex[key]
	if !ok {
		return 0, false
	}
	off := base
	for i := 0; i < idx; i++ {
		off += d.Children[i].ByteSize()
	}
	return off, true
}

// Field returns the field type by name, walking the parent chain.
func (d *Def) Field(name string) (*Def, bool) {
	key := strings.ToLower(name)
	if idx, ok := d.FieldIndex[key]; ok {
		return d.Children[idx], true
	}
	if d.Parent != nil {
		return d.Parent.Field(name)
	}
	return nil, false
}

// AddField appends a named field to a Class-category type, maintaining
// FieldIndex.
func (d *Def) AddField(name string, t *Def) {
	if d.FieldIndex == nil {
		d.FieldIndex = map[string]int{}
	}
	d.FieldIndex[strings.ToLower(name)] = len(d.Children)
	d.FieldNames = append(d.FieldNames, name)
	d.Children = append(d.Children, t)
}

// equalStructural reports structural equality for two not-yet-registered
// definitions. Class types are nominal: equalStructural never unifies two
// distinct Class values, even if their shape matches exactly, matching the
// "Class types always compare unequal" rule used by Model.Register.
func equalStructural(a, b *Def) bool {
	if a.Category == Class || b.Category == Class {
		return a == b
	}
	if a.Category != b.Category {
		return false
	}
	switch a.Category {
	case Scalar:
		return a.ScalarKind == b.ScalarKind
	case Pointer:
		return equalStructural(a.Elem(), b.Elem())
	case Array:
		return a.ArrayLow == b.ArrayLow && a.ArrayHigh == b.ArrayHigh && equalStructural(a.Elem(), b.Elem())
	}
	return false
}

// Description renders a short human-readable type name, used in diagnostic
// messages.
func (d *Def) Description() string {
	if d.Alias != "" {
		return d.Alias
	}
	switch d.Category {
	case Scalar:
		return d.ScalarKind.String()
	case Pointer:
		return "^" + d.Elem().Description()
	case Array:
		return fmt.Sprintf("array[%d..%d] of %s", d.ArrayLow, d.ArrayHigh, d.Elem().Description())
	case Class:
		return "class"
	}
	return "undefined"
}

// RefType wraps a Def with the const/reference/literal qualifiers used at
// expression sites. A nil Type means "undefined".
type RefType struct {
	Type      *Def
	IsConst   bool
	IsRef     bool
	IsLiteral bool
}

func (r RefType) IsValid() bool { return r.Type != nil }

func (r RefType) ByteSize() int {
	if r.Type == nil {
		return 0
	}
	return r.Type.ByteSize()
}

func (r RefType) ScalarKind() value.Kind {
	if r.Type == nil {
		return value.Undefined
	}
	return r.Type.ScalarKind
}

func (r RefType) Offset(name string) (int, bool) {
	if r.Type == nil {
		return 0, false
	}
	return r.Type.Offset(name)
}

// Const and Ref return copies of r with the respective flag set, for
// fluent construction at call sites (mirrors RefType::setConst/setRef).
func (r RefType) Const(v bool) RefType { r.IsConst = v; return r }
func (r RefType) Ref(v bool) RefType   { r.IsRef = v; return r }
func (r RefType) Literal(v bool) RefType {
	r.IsLiteral = v
	return r
}
