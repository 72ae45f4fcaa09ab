package symtab

import (
	"pascalvm/internal/types"
	"pascalvm/internal/value"
)

// MetaKind is the designator cursor's current binding.
type MetaKind int

const (
	MetaNone MetaKind = iota
	MetaVar
	MetaFunc
	MetaMethod
	MetaUnnamedVar // an intermediate value with no named object: a field, a dereference, a call result
)

// Find flag bits for MetaObj.FindAny, selecting which namespaces a bare
// identifier may resolve against.
const (
	FindVariable = 1 << iota
	FindFunction
	FindField
	FindMethod
	FindMethodRetain
	FindAllGlobal = FindVariable | FindFunction | FindField | FindMethod | FindMethodRetain
	FindAllObject = FindField | FindMethod | FindMethodRetain
)

// MetaObj walks a chained designator expression (`arr[i].field.method()`)
// one postfix operator at a time, tracking the class a `.` currently
// indexes into and the type the chain has resolved to so far. It is the
// compiler's main bridge between internal/ast postfix nodes and
// internal/symtab/internal/types declarations.
type MetaObj struct {
	tab *SymTable

	Kind MetaKind

	WrapperClassPrev *ClassObj // the class before the most recent doAccess
	WrapperClass     *ClassObj // the class `.`/method lookups currently resolve against
	ObjectClass      *ClassObj // the class of the chain's current value, if any

	FieldOffset int // byte offset of the last resolved field, -1 if none
	Low         int64
	IsRef       bool
	CallDone    bool

	VarObj      *VarObj
	FuncObj     *FuncObj
	UnnamedType types.RefType
}

// NewMetaObj creates a cursor bound to tab, ready for a Find* call to
// seed it with the designator's leading identifier.
func NewMetaObj(tab *SymTable) *MetaObj {
	return &MetaObj{tab: tab, FieldOffset: -1, IsRef: true}
}

func (m *MetaObj) IsCallable() bool { return m.Kind == MetaFunc || m.Kind == MetaMethod }
func (m *MetaObj) IsRefable() bool  { return m.Kind == MetaVar || m.Kind == MetaUnnamedVar }

// Type resolves the cursor's current binding to a RefType.
func (m *MetaObj) Type() types.RefType {
	switch m.Kind {
	case MetaVar:
		return m.VarObj.Type.Const(m.VarObj.Const).Ref(m.IsRef)
	case MetaUnnamedVar:
		return m.UnnamedType.Ref(m.IsRef)
	case MetaFunc, MetaMethod:
		return m.FuncObj.ReturnType.Ref(m.IsRef)
	}
	return types.RefType{Type: m.tab.Types.Undefined()}
}

// SetClassObj seeds the cursor for a method body: wrapperClass is the
// enclosing class and `self` becomes the implicit variable binding.
func (m *MetaObj) SetClassObj(cls *ClassObj) {
	m.WrapperClass = cls
	if cls != nil {
		m.VarObj = m.tab.FindSelfVar()
	}
}

func (m *MetaObj) SetVarObj(v *VarObj) bool {
	if v == nil {
		m.Kind = MetaNone
		return false
	}
	m.VarObj = v
	m.Kind = MetaVar
	m.determineClass()
	return true
}

func (m *MetaObj) SetFuncObj(f *FuncObj, isMethod bool) bool {
	if f == nil {
		m.Kind = MetaNone
		return false
	}
	m.FuncObj = f
	if isMethod {
		m.Kind = MetaMethod
	} else {
		m.Kind = MetaFunc
	}
	m.CallDone = false
	m.determineClass()
	return true
}

func (m *MetaObj) SetUnnamedObject(t *types.Def) bool {
	if t == nil || t.IsUndefined() {
		return false
	}
	m.UnnamedType = types.RefType{Type: t}
	m.Kind = MetaUnnamedVar
	m.determineClass()
	return true
}

func (m *MetaObj) determineClass() {
	m.ObjectClass = nil
	t := m.Type()
	if t.Type != nil && !t.Type.IsUndefined() && t.Type.IsClass() {
		m.ObjectClass = m.tab.FindClass(t.Type.Alias)
	}
}

// FindField resolves name as a field of the current WrapperClass.
func (m *MetaObj) FindField(name string) bool {
	if m.WrapperClass == nil {
		return false
	}
	field, ok := m.WrapperClass.ClassType.Field(name)
	if !ok {
		return false
	}
	if m.SetUnnamedObject(field) {
		off, _ := m.WrapperClass.ClassType.Offset(name)
		m.FieldOffset = off
		return true
	}
	return false
}

// FindMethod resolves name as a method of the current WrapperClass.
func (m *MetaObj) FindMethod(name string) bool {
	if m.WrapperClass == nil {
		return false
	}
	return m.SetFuncObj(m.WrapperClass.FindMethod(name), true)
}

// FindVariable resolves name as a plain in-scope variable.
func (m *MetaObj) FindVariable(name string) bool {
	return m.SetVarObj(m.tab.FindVar(name, nil))
}

// FindFunction resolves name as a free function.
func (m *MetaObj) FindFunction(name string) bool {
	return m.SetFuncObj(m.tab.FindFunc(name), false)
}

// FindMethodRetain resolves name as a field synthesized for a function's
// retained (closed-over) local, stored as "<func>.<name>" on the
// enclosing class or the class active before the last doAccess.
func (m *MetaObj) FindMethodRetain(name string) bool {
	if m.FuncObj == nil {
		return false
	}
	fieldName := m.FuncObj.Name() + "." + name
	if m.FindField(fieldName) {
		return true
	}
	if m.WrapperClassPrev != nil {
		field, ok := m.WrapperClassPrev.ClassType.Field(fieldName)
		if ok && m.SetUnnamedObject(field) {
			off, _ := m.WrapperClassPrev.ClassType.Offset(fieldName)
			m.FieldOffset = off
			return true
		}
	}
	return false
}

// FindAny tries each namespace selected by flags, in method/field/
// variable/function/retain order, stopping at the first match.
func (m *MetaObj) FindAny(name string, flags int) bool {
	if flags&FindMethod != 0 && m.FindMethod(name) {
		return true
	}
	if flags&FindField != 0 && m.FindField(name) {
		return true
	}
	if flags&FindVariable != 0 && m.FindVariable(name) {
		return true
	}
	if flags&FindFunction != 0 && m.FindFunction(name) {
		return true
	}
	if flags&FindMethodRetain != 0 && m.FindMethodRetain(name) {
		return true
	}
	return false
}

// DoAccess advances the cursor across a `.`: the class the chain just
// produced (ObjectClass) becomes the class subsequent field/method
// lookups resolve against.
func (m *MetaObj) DoAccess() bool {
	if m.Kind == MetaNone || m.Kind == MetaFunc {
		return false
	}
	m.FieldOffset = 0
	m.WrapperClassPrev = m.WrapperClass
	m.WrapperClass = m.ObjectClass
	m.ObjectClass = nil
	return true
}

// DoDeref advances the cursor across a `^`: the current value must be a
// single-element container (pointer), and the cursor becomes its element.
func (m *MetaObj) DoDeref() bool {
	t := m.Type()
	if t.Type == nil || len(t.Type.Children) != 1 {
		return false
	}
	m.Low = 0
	return m.SetUnnamedObject(t.Type.Elem())
}

// DoAddress advances the cursor across a `@`: the current value becomes
// a pointer to its former type. Fails on literals, which have no address.
func (m *MetaObj) DoAddress() bool {
	t := m.Type()
	if t.IsLiteral {
		return false
	}
	newType := m.tab.Types.Register(m.tab.Types.NewPointer(t.Type), true, false)
	m.IsRef = false
	return m.SetUnnamedObject(newType)
}

// DoIndex advances the cursor across a `[...]` on an array value.
func (m *MetaObj) DoIndex() bool {
	t := m.Type()
	if !m.DoDeref() {
		return false
	}
	if t.Type.Category != types.Array {
		return false
	}
	m.Low = t.Type.ArrayLow
	return true
}

// DoIndexStr advances the cursor across a `[...]` on a string value,
// producing a single character rather than an array element.
func (m *MetaObj) DoIndexStr() bool {
	t := m.Type()
	if t.Type == nil || t.Type.Category != types.Scalar || t.Type.ScalarKind != value.String {
		return false
	}
	charType := m.tab.Types.Register(m.tab.Types.NewScalar(value.StringChar), true, false)
	return m.SetUnnamedObject(charType)
}

// DoCall advances the cursor past a call's `(...)`, resolving to the
// callee's return type.
func (m *MetaObj) DoCall() bool {
	m.CallDone = true
	m.IsRef = false
	return m.SetUnnamedObject(m.FuncObj.ReturnType.Type)
}
