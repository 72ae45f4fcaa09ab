package types

import (
	"strings"

	"pascalvm/internal/value"
)

// Model is the type registry: an arena of Defs plus a case-insensitive
// alias table. It corresponds to SymTable's _registeredTypes /
// _registeredTypeIndex plus the find_type/register/set_name_for_type
// operations, pulled out of the symbol table into its own package so the
// type graph has a single owner independent of scope lifetime.
type Model struct {
	defs      []*Def
	byAlias   map[string]*Def
	undefined *Def
}

// NewModel creates a Model with the built-in scalar aliases pre-registered,
// mirroring SymTable::clear(registerTypes=true).
func NewModel() *Model {
	m := &Model{byAlias: map[string]*Def{}}
	m.undefined = m.newDef(Scalar)
	m.undefined.ScalarKind = value.Undefined
	m.registerBuiltinAliases()
	return m
}

func (m *Model) newDef(cat Category) *Def {
	d := &Def{id: len(m.defs), model: m, Category: cat}
	m.defs = append(m.defs, d)
	return d
}

// Undefined returns the sentinel "undefined" type, which compares equal
// only to itself.
func (m *Model) Undefined() *Def { return m.undefined }

type aliasSpec struct {
	kind    value.Kind
	aliases []string
}

func (m *Model) registerBuiltinAliases() {
	specs := []aliasSpec{
		{value.Bool, []string{"boolean", "bool"}},
		{value.Int8, []string{"shortint", "int8"}},
		{value.Uint8, []string{"byte", "uint8"}},
		{value.Int16, []string{"smallint", "int16"}},
		{value.Uint16, []string{"word", "uint16"}},
		{value.Int32, []string{"integer", "int", "int32", "longint"}},
		{value.Uint32, []string{"cardinal", "uint32", "longword"}},
		{value.Int64, []string{"int64"}},
		{value.Uint64, []string{"uint64", "qword"}},
		{value.Float32, []string{"single", "float32"}},
		{value.Float64, []string{"real", "double", "float64", "float"}},
		{value.String, []string{"string"}},
		{value.StringChar, []string{"char"}},
	}
	for _, s := range specs {
		d := m.newDef(Scalar)
		d.ScalarKind = s.kind
		d.Alias = s.aliases[0]
		for _, a := range s.aliases {
			m.byAlias[strings.ToLower(a)] = d
		}
	}
}

// FindType performs a case-insensitive alias lookup, returning the
// sentinel undefined type if name is unregistered.
func (m *Model) FindType(name string) *Def {
	if d, ok := m.byAlias[strings.ToLower(name)]; ok {
		return d
	}
	return m.undefined
}

// SetNameForType binds a user-visible alias to a previously anonymous type.
func (m *Model) SetNameForType(t *Def, name string) {
	t.Alias = name
	m.byAlias[strings.ToLower(name)] = t
}

// Register returns an existing structurally-equal Def if one is already
// registered (Class types never unify this way), otherwise appends def to
// the arena and returns it. def must have been obtained from one of the
// New* constructors below so it is already owned by m.
func (m *Model) Register(def *Def, autoAppend bool, external bool) *Def {
	if autoAppend {
		for _, existing := range m.defs {
			if existing != def && equalStructural(existing, def) {
				return existing
			}
		}
	}
	def.External = external
	already := false
	for _, existing := range m.defs {
		if existing == def {
			already = true
			break
		}
	}
	if !already {
		def.id = len(m.defs)
		m.defs = append(m.defs, def)
	}
	return def
}

// NewScalar allocates an anonymous Scalar type descriptor owned by m.
func (m *Model) NewScalar(kind value.Kind) *Def {
	d := m.newDef(Scalar)
	d.ScalarKind = kind
	return d
}

// NewArray allocates an anonymous Array type with inclusive bounds
// [low, high] over elem.
func (m *Model) NewArray(low, high int64, elem *Def) *Def {
	d := m.newDef(Array)
	d.ArrayLow, d.ArrayHigh = low, high
	d.Children = []*Def{elem}
	return d
}

// NewPointer allocates an anonymous Pointer type wrapping elem.
func (m *Model) NewPointer(elem *Def) *Def {
	d := m.newDef(Pointer)
	d.Children = []*Def{elem}
	return d
}

// NewClass allocates a Class type with the given parent (nil for none).
// Class types are nominal: every call returns a fresh, distinct Def even if
// an identically-shaped class was registered before.
func (m *Model) NewClass(parent *Def) *Def {
	d := m.newDef(Class)
	d.Parent = parent
	d.FieldIndex = map[string]int{}
	return d
}

// RegisteredTypeNames lists every alias currently bound, for
// autocompletion-style tooling and diagnostics.
func (m *Model) RegisteredTypeNames() []string {
	names := make([]string, 0, len(m.byAlias))
	for name := range m.byAlias {
		names = append(names, name)
	}
	return names
}
