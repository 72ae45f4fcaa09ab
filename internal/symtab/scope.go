// Package symtab implements the declaration-time symbol table: nested
// block scopes, the variable/function/class object kinds they hold, and
// a designator cursor (MetaObj) that walks chained field/index/call
// expressions down to a concrete type and storage location.
package symtab

import "strings"

// Scope is one lexical block: a program/unit body, a procedure body, or a
// class's member list. Scopes nest; lookups walk up the parent chain.
type Scope struct {
	parent       *Scope
	nested       []*Scope
	objects      []NamedObj
	byName       map[string]int
	nextAddress  int
}

// NewScope creates a root scope with no parent.
func NewScope() *Scope {
	return &Scope{byName: map[string]int{}}
}

// CreateNested allocates a child scope, defaulting its parent to s.
func (s *Scope) CreateNested() *Scope {
	child := &Scope{parent: s, byName: map[string]int{}}
	s.nested = append(s.nested, child)
	return child
}

func (s *Scope) IsRoot() bool { return s.parent == nil }

func (s *Scope) Parent() *Scope { return s.parent }

// LastNested returns the most recently created child scope, or nil.
func (s *Scope) LastNested() *Scope {
	if len(s.nested) == 0 {
		return nil
	}
	return s.nested[len(s.nested)-1]
}

// Level counts scopes from the root (root is level 0).
func (s *Scope) Level() int {
	if s.parent == nil {
		return 0
	}
	return s.parent.Level() + 1
}

// NextAddress is the memory offset the next registered variable will be
// assigned, monotonically increasing as variables are registered.
func (s *Scope) NextAddress() int { return s.nextAddress }

// FindObj looks up name (case-insensitively) in this scope only, not its
// parents. kind, if non-empty, additionally filters by object kind.
func (s *Scope) FindObj(name string, kind ObjKind) NamedObj {
	idx, ok := s.byName[strings.ToLower(name)]
	if !ok {
		return nil
	}
	obj := s.objects[idx]
	if kind != KindNone && obj.Kind() != kind {
		return nil
	}
	return obj
}

func (s *Scope) FindVar(name string) *VarObj {
	if obj := s.FindObj(name, KindVar); obj != nil {
		return obj.(*VarObj)
	}
	return nil
}

func (s *Scope) FindFunc(name string) *FuncObj {
	if obj := s.FindObj(name, KindFunc); obj != nil {
		return obj.(*FuncObj)
	}
	return nil
}

func (s *Scope) FindClass(name string) *ClassObj {
	if obj := s.FindObj(name, KindClass); obj != nil {
		return obj.(*ClassObj)
	}
	return nil
}

// RegisterObject appends obj to the scope's ordered object list.
func (s *Scope) RegisterObject(obj NamedObj) {
	obj.setScope(s)
	s.byName[strings.ToLower(obj.Name())] = len(s.objects)
	s.objects = append(s.objects, obj)
}

// RegisterVariable registers v and advances the scope's next-address
// cursor by v's memory size, mirroring how locals are laid out in
// declaration order on the VM's stack frame.
func (s *Scope) RegisterVariable(v *VarObj) {
	s.nextAddress += v.MemorySize
	s.RegisterObject(v)
}

// Objects returns the scope's objects in declaration order.
func (s *Scope) Objects() []NamedObj { return s.objects }

// Locals returns every VarObj in this scope that is neither external nor
// static, i.e. it occupies real frame storage.
func (s *Scope) Locals() []*VarObj {
	var out []*VarObj
	for _, obj := range s.objects {
		if v, ok := obj.(*VarObj); ok && !v.External && !v.Static {
			out = append(out, v)
		}
	}
	return out
}

// Externals returns every VarObj in this scope bound to a host callback.
func (s *Scope) Externals() []*VarObj {
	var out []*VarObj
	for _, obj := range s.objects {
		if v, ok := obj.(*VarObj); ok && v.External {
			out = append(out, v)
		}
	}
	return out
}

// Clear empties the scope, used when a symbol table is reset between
// independently compiled units sharing one frontend instance.
func (s *Scope) Clear() {
	s.objects = nil
	s.byName = map[string]int{}
	s.nextAddress = 0
}
