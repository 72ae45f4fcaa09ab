package symtab

import (
	"strings"

	"pascalvm/internal/ast"
	"pascalvm/internal/types"
)

// ObjKind distinguishes the three things a Scope can hold.
type ObjKind int

const (
	KindNone ObjKind = iota
	KindVar
	KindFunc
	KindClass
)

// NamedObj is anything a Scope can register by name.
type NamedObj interface {
	Name() string
	Kind() ObjKind
	Scope() *Scope
	setScope(s *Scope)
}

// named is embedded by every concrete object kind for the name/scope
// bookkeeping they all share.
type named struct {
	name  string
	scope *Scope
}

func (n *named) Name() string    { return n.name }
func (n *named) Scope() *Scope   { return n.scope }
func (n *named) setScope(s *Scope) { n.scope = s }

// VarObj is a declared variable, constant, or parameter.
type VarObj struct {
	named
	Type          types.RefType
	MemoryAddress int
	MemorySize    int
	Const         bool
	Static        bool
	External      bool
	Used          bool
}

func (v *VarObj) Kind() ObjKind { return KindVar }

// NewRegularVar creates a frame-resident variable at the scope's current
// next-address cursor; the caller registers it into a Scope afterward.
func NewRegularVar(name string, t types.RefType, address int, isConst bool) *VarObj {
	return &VarObj{named: named{name: name}, Type: t, MemoryAddress: address, MemorySize: t.ByteSize(), Const: isConst}
}

// NewStaticVar creates a variable bound to a fixed address outside the
// current frame, surviving across calls (Pascal's `static` locals).
func NewStaticVar(name string, t types.RefType, address int) *VarObj {
	return &VarObj{named: named{name: name}, Type: t, MemoryAddress: address, MemorySize: t.ByteSize(), Static: true}
}

// NewExternalVar creates a variable bound to a host callback rather than
// VM-managed storage; it is always registered into the top scope.
func NewExternalVar(name string, t types.RefType, isConst bool) *VarObj {
	return &VarObj{named: named{name: name}, Type: t, MemorySize: t.ByteSize(), Const: isConst, External: true}
}

// Offset resolves a field name against the variable's declared type,
// returning -1 if the type has no such field (or isn't a class).
func (v *VarObj) Offset(fieldName string) int {
	off, ok := v.Type.Offset(fieldName)
	if !ok {
		return -1
	}
	return off
}

// FuncArg is one formal parameter of a FuncObj.
type FuncArg struct {
	Name    string
	Type    types.RefType
	ByRef   bool
	Default ast.Expr // nil if the parameter has no default value
}

// FuncObj is a declared procedure or function, free or a class method.
type FuncObj struct {
	named
	FullName      string // lowercased, "class@method" for methods
	ReturnType    types.RefType
	Args          []FuncArg
	InternalScope *Scope // the function's own body scope
	Static        bool
	External      bool
	Forward       bool
}

func (f *FuncObj) Kind() ObjKind { return KindFunc }

// NewFunc creates a function/procedure object. InternalScope is created
// separately by the caller once the scope tree is available.
func NewFunc(name, fullName string, returnType types.RefType, args []FuncArg) *FuncObj {
	return &FuncObj{named: named{name: name}, FullName: fullName, ReturnType: returnType, Args: args}
}

// ArgumentsSize is the combined stack footprint of the function's formal
// parameters, used to size the call frame.
func (f *FuncObj) ArgumentsSize() int {
	n := 0
	for _, a := range f.Args {
		if a.ByRef {
			n++ // by-ref params pass one pointer cell regardless of pointee size
			continue
		}
		n += a.Type.ByteSize()
	}
	return n
}

// ReturnSize is 0 for a procedure, or the function's return type's cell
// footprint.
func (f *FuncObj) ReturnSize() int { return f.ReturnType.ByteSize() }

// ClassObj is a declared class type together with its member scope.
type ClassObj struct {
	named
	ClassType     *types.Def // the underlying types.Def (Category == Class)
	Parent        *ClassObj
	InternalScope *Scope // holds the class's methods (fields live on ClassType)
}

func (c *ClassObj) Kind() ObjKind { return KindClass }

// MemberNames lists field and method names visible on the class,
// including those inherited from Parent.
func (c *ClassObj) MemberNames() []string {
	var out []string
	seen := map[string]bool{}
	for cls := c; cls != nil; cls = cls.Parent {
		for _, f := range cls.ClassType.FieldNames {
			key := strings.ToLower(f)
			if !seen[key] {
				seen[key] = true
				out = append(out, f)
			}
		}
		if cls.InternalScope != nil {
			for _, obj := range cls.InternalScope.Objects() {
				key := strings.ToLower(obj.Name())
				if !seen[key] {
					seen[key] = true
					out = append(out, obj.Name())
				}
			}
		}
	}
	return out
}

// FindMethod looks up name on c or any ancestor class.
func (c *ClassObj) FindMethod(name string) *FuncObj {
	for cls := c; cls != nil; cls = cls.Parent {
		if cls.InternalScope == nil {
			continue
		}
		if f := cls.InternalScope.FindFunc(name); f != nil {
			return f
		}
	}
	return nil
}
