package symtab

import (
	"strings"

	"pascalvm/internal/errors"
	"pascalvm/internal/types"
)

// SymTable owns the scope tree for one compilation unit: a top scope for
// globals, a current-scope cursor that codegen pushes/pops as it enters
// blocks, and the shared type Model. Duplicate-identifier and
// undefined-parent errors are reported through diags rather than
// returned, matching the rest of the frontend's diagnostics-accumulation
// style.
type SymTable struct {
	Types        *types.Model
	topScope     *Scope
	currentScope *Scope
	scopeStack   []*Scope
	diags        *errors.Diagnostics
	file         string
	LastFunc     *FuncObj
}

// New creates a symbol table with an empty top scope, ready to accept
// declarations. diags receives duplicate-identifier and undefined-parent
// diagnostics; file labels their source location.
func New(model *types.Model, diags *errors.Diagnostics, file string) *SymTable {
	top := NewScope()
	return &SymTable{Types: model, topScope: top, currentScope: top, diags: diags, file: file}
}

func (t *SymTable) loc(line, col int) errors.SourceLocation {
	return errors.SourceLocation{File: t.file, Line: line, Column: col}
}

func (t *SymTable) checkIdent(line, col int, name string) bool {
	if t.currentScope.FindObj(name, KindNone) != nil {
		t.diags.Errorf(t.loc(line, col), "duplicate identifier: %s", name)
		return false
	}
	return true
}

// DeclareVar registers a frame-resident variable in the current scope.
func (t *SymTable) DeclareVar(line, col int, name string, typ types.RefType, isConst bool) *VarObj {
	if !t.checkIdent(line, col, name) {
		return nil
	}
	v := NewRegularVar(name, typ, t.currentScope.NextAddress(), isConst)
	t.currentScope.RegisterVariable(v)
	return v
}

// DeclareStaticVar registers a variable that keeps one address for the
// lifetime of the program instead of living on the current frame.
func (t *SymTable) DeclareStaticVar(line, col int, name string, typ types.RefType, address int) *VarObj {
	if !t.checkIdent(line, col, name) {
		return nil
	}
	v := NewStaticVar(name, typ, address)
	t.currentScope.RegisterVariable(v)
	return v
}

// DeclareExternalVar registers a variable bound to a host callback. It
// always lands in the top scope regardless of the current scope, so an
// external declared inside a procedure is still globally visible (it has
// no frame storage to scope).
func (t *SymTable) DeclareExternalVar(line, col int, name string, typ types.RefType, isConst bool) *VarObj {
	if !t.checkIdent(line, col, name) {
		return nil
	}
	v := NewExternalVar(name, typ, isConst)
	t.topScope.RegisterVariable(v)
	return v
}

// DeclareFunc registers name (a free function, or a method of owner when
// owner is non-nil) in the appropriate scope. A prior forward declaration
// with the same name is reused rather than rejected as a duplicate,
// unless both declarations claim to be forward.
func (t *SymTable) DeclareFunc(line, col int, owner *ClassObj, name string, returnType types.RefType, args []FuncArg, isForward, isStatic, isExternal bool) *FuncObj {
	target := t.currentScope
	prefix := ""
	if owner != nil {
		target = owner.InternalScope
		prefix = strings.ToLower(owner.Name()) + "@"
	}

	lower := strings.ToLower(name)
	existing := target.FindFunc(lower)
	if existing != nil {
		if !existing.Forward || isForward {
			t.diags.Errorf(t.loc(line, col), "duplicate function: %s", name)
			return nil
		}
		existing.Forward = isForward
		existing.InternalScope = target.CreateNested()
		for _, a := range args {
			existing.InternalScope.RegisterVariable(newArgVar(a, existing.InternalScope.NextAddress()))
		}
		t.LastFunc = existing
		return existing
	}

	if !t.checkIdent(line, col, lower) {
		return nil
	}
	f := NewFunc(name, prefix+lower, returnType, args)
	f.Static = isStatic
	f.External = isExternal
	f.Forward = isForward
	f.InternalScope = target.CreateNested()
	for _, a := range args {
		f.InternalScope.RegisterVariable(newArgVar(a, f.InternalScope.NextAddress()))
	}
	target.RegisterObject(f)
	t.LastFunc = f
	return f
}

// newArgVar builds the frame-resident VarObj for one formal parameter. A
// by-ref parameter's frame slot holds only the pointer cell the caller
// pushed, not the pointee's own footprint, so it always claims exactly one
// cell of address space regardless of the declared type's ByteSize (an
// array or class passed by reference still lands in one slot) -- the
// declared Type is kept as-is so field-offset lookups (self.field) still
// resolve against the real type.
func newArgVar(a FuncArg, address int) *VarObj {
	v := NewRegularVar(a.Name, a.Type, address, false)
	if a.ByRef {
		v.MemorySize = 1
	}
	return v
}

// DeclareClass registers a class type, resolving parentName against
// already-declared classes. An unresolvable parent name reports a
// diagnostic and returns nil, matching SymTable::createNewClassObj's
// undefined-parent check.
func (t *SymTable) DeclareClass(line, col int, name string, classType *types.Def, parentName string) *ClassObj {
	if !t.checkIdent(line, col, name) {
		return nil
	}
	var parent *ClassObj
	if parentName != "" {
		parent = t.FindClass(parentName)
		if parent == nil {
			t.diags.Errorf(t.loc(line, col), "undefined parent class: %s", parentName)
			return nil
		}
		classType.Parent = parent.ClassType
	}
	cls := &ClassObj{named: named{name: name}, ClassType: classType, Parent: parent, InternalScope: t.currentScope.CreateNested()}
	t.currentScope.RegisterObject(cls)
	return cls
}

// FindSelfVar returns the implicit `self` parameter of the current
// method scope, or nil outside a method body.
func (t *SymTable) FindSelfVar() *VarObj {
	return t.currentScope.FindVar("self")
}

// FindSelfClassField resolves name as a field of the current `self`,
// returning the field's byte offset. ok is false if there is no `self`
// in scope or the field doesn't exist.
func (t *SymTable) FindSelfClassField(name string) (v *VarObj, offset int, ok bool) {
	self := t.FindSelfVar()
	if self == nil {
		return nil, 0, false
	}
	off := self.Offset(name)
	if off < 0 {
		return nil, 0, false
	}
	return self, off, true
}

// FindVar walks from scope (or the current scope, if nil) up through
// parents looking for a variable named name.
func (t *SymTable) FindVar(name string, scope *Scope) *VarObj {
	if obj := t.FindObj(name, scope); obj != nil {
		if v, ok := obj.(*VarObj); ok {
			return v
		}
	}
	return nil
}

func (t *SymTable) FindFunc(name string) *FuncObj {
	if obj := t.FindObj(name, nil); obj != nil {
		if f, ok := obj.(*FuncObj); ok {
			return f
		}
	}
	return nil
}

func (t *SymTable) FindClass(name string) *ClassObj {
	if obj := t.FindObj(name, nil); obj != nil {
		if c, ok := obj.(*ClassObj); ok {
			return c
		}
	}
	return nil
}

// FindObj walks from scope (or the current scope, if nil) up to the root
// looking for any object named name.
func (t *SymTable) FindObj(name string, scope *Scope) NamedObj {
	if name == "" {
		return nil
	}
	s := scope
	if s == nil {
		s = t.currentScope
	}
	for s != nil {
		if obj := s.FindObj(name, KindNone); obj != nil {
			return obj
		}
		s = s.Parent()
	}
	return nil
}

// OpenScope pushes the current scope and descends into forceScope, or a
// freshly created nested scope when forceScope is nil.
func (t *SymTable) OpenScope(forceScope *Scope) {
	t.scopeStack = append(t.scopeStack, t.currentScope)
	if forceScope != nil {
		t.currentScope = forceScope
		return
	}
	t.currentScope = t.currentScope.CreateNested()
}

// CloseScope pops back to the scope active before the matching OpenScope.
func (t *SymTable) CloseScope() {
	n := len(t.scopeStack)
	if n == 0 {
		return
	}
	t.currentScope = t.scopeStack[n-1]
	t.scopeStack = t.scopeStack[:n-1]
}

func (t *SymTable) CurrentScope() *Scope { return t.currentScope }
func (t *SymTable) TopScope() *Scope     { return t.topScope }

// VarClass returns the ClassObj of a variable's declared type, or nil if
// the variable is unknown or isn't class-typed.
func (t *SymTable) VarClass(name string) *ClassObj {
	v := t.FindVar(name, nil)
	if v == nil || v.Type.Type == nil || !v.Type.Type.IsClass() {
		return nil
	}
	return t.FindClass(v.Type.Type.Alias)
}
