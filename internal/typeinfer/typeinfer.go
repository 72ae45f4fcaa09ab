// Package typeinfer computes the static type of every expression and
// resolves every type-expression node to a concrete internal/types
// descriptor. It walks internal/ast trees through the Expr/TypeExpr
// visitor dispatch, consulting internal/symtab for identifier and field
// lookups.
package typeinfer

import (
	"pascalvm/internal/ast"
	"pascalvm/internal/errors"
	"pascalvm/internal/symtab"
	"pascalvm/internal/types"
	"pascalvm/internal/value"
)

// promotionPriority is the total order a binary operation's result type
// is promoted along: whichever operand's kind sits further right wins.
var promotionPriority = []value.Kind{
	value.Bool, value.StringChar,
	value.Int8, value.Uint8, value.Int16, value.Uint16, value.Int32, value.Uint32, value.Int64, value.Uint64,
	value.Float32, value.Float64,
	value.String,
}

func priorityIndex(k value.Kind) int {
	for i, p := range promotionPriority {
		if p == k {
			return i
		}
	}
	return -1
}

var comparisonOps = map[string]bool{
	"=": true, "<>": true, "<": true, ">": true, "<=": true, ">=": true, "in": true,
}

// Inferencer computes types over one compilation unit's symbol table.
type Inferencer struct {
	tab      *symtab.SymTable
	diags    *errors.Diagnostics
	file     string
	typeName string // name of the type currently being declared, for class_type self-reference
}

func New(tab *symtab.SymTable, diags *errors.Diagnostics, file string) *Inferencer {
	return &Inferencer{tab: tab, diags: diags, file: file}
}

func (ti *Inferencer) errorf(pos ast.Pos, format string, args ...interface{}) {
	ti.diags.Errorf(errors.SourceLocation{File: pos.File, Line: pos.Line, Column: pos.Column}, format, args...)
}

func (ti *Inferencer) undefined() types.RefType {
	return types.RefType{Type: ti.tab.Types.Undefined()}
}

// InferExpr dispatches through e's Accept method to compute its type.
func (ti *Inferencer) InferExpr(e ast.Expr) types.RefType {
	if e == nil {
		return ti.undefined()
	}
	return e.Accept(ti).(types.RefType)
}

// SetDeclaringTypeName tells the inferencer which name a `type X = ...`
// declaration is binding, so VisitClassTypeExpr can register the class
// under that name rather than requiring a separate pass.
func (ti *Inferencer) SetDeclaringTypeName(name string) { ti.typeName = name }

// --- expressions ---

func (ti *Inferencer) VisitLiteralExpr(e *ast.LiteralExpr) interface{} {
	var alias string
	switch e.Value.(type) {
	case bool:
		alias = "boolean"
	case int64:
		alias = "int64"
	case float64:
		alias = "float64"
	case rune:
		alias = "char"
	case string:
		alias = "string"
	}
	t := ti.tab.Types.Undefined()
	if alias != "" {
		t = ti.tab.Types.FindType(alias)
	}
	return types.RefType{Type: t, IsConst: true, IsLiteral: true}
}

func (ti *Inferencer) VisitIdentExpr(e *ast.IdentExpr) interface{} {
	if v := ti.tab.FindVar(e.Name, nil); v != nil {
		return v.Type.Const(v.Const)
	}
	if f := ti.tab.FindFunc(e.Name); f != nil {
		return f.ReturnType
	}
	if self := ti.tab.FindSelfVar(); self != nil && self.Type.Type != nil {
		if field, ok := self.Type.Type.Field(e.Name); ok {
			return types.RefType{Type: field}
		}
	}
	ti.errorf(e.Loc(), "undefined identifier: %s", e.Name)
	return ti.undefined()
}

func (ti *Inferencer) VisitUnaryExpr(e *ast.UnaryExpr) interface{} {
	operand := ti.InferExpr(e.Operand)
	if e.Operator == "not" && operand.Type != nil && !operand.Type.IsBoolean() && !operand.Type.IsInt() {
		ti.errorf(e.Loc(), "'not' requires a boolean or integer operand")
	}
	return operand
}

// binaryOperationType promotes left/right to whichever has the higher
// promotionPriority rank; non-scalar operands leave left unchanged.
func (ti *Inferencer) binaryOperationType(left, right types.RefType) types.RefType {
	if left.Type == nil || right.Type == nil || !left.Type.IsScalar() || !right.Type.IsScalar() {
		return left
	}
	leftPri := priorityIndex(left.Type.ScalarKind)
	rightPri := priorityIndex(right.Type.ScalarKind)
	if rightPri > leftPri {
		return right
	}
	return left
}

func (ti *Inferencer) checkBinary(left, right types.RefType, op string, pos ast.Pos) {
	if left.Type != nil && left.Type.IsUndefined() {
		ti.errorf(pos, "left operand is undefined")
		return
	}
	if right.Type != nil && right.Type.IsUndefined() {
		ti.errorf(pos, "right operand is undefined")
		return
	}
	if op == "div" || op == "mod" {
		if left.Type == nil || right.Type == nil || !left.Type.IsInt() || !right.Type.IsInt() {
			ti.errorf(pos, "'%s' requires integer operands", op)
		}
	}
}

func (ti *Inferencer) VisitBinaryExpr(e *ast.BinaryExpr) interface{} {
	left := ti.InferExpr(e.Left)
	right := ti.InferExpr(e.Right)
	ti.checkBinary(left, right, e.Operator, e.Loc())
	result := ti.binaryOperationType(left, right)
	if comparisonOps[e.Operator] {
		result = types.RefType{Type: ti.tab.Types.FindType("boolean")}
	}
	result.IsRef = false
	return result
}

func (ti *Inferencer) VisitCallExpr(e *ast.CallExpr) interface{} {
	if id, ok := e.Callee.(*ast.IdentExpr); ok {
		if f := ti.tab.FindFunc(id.Name); f != nil {
			return f.ReturnType
		}
		if cls := ti.tab.FindClass(id.Name); cls != nil {
			// Constructing a class value names the class as a constructor.
			return types.RefType{Type: cls.ClassType}
		}
		ti.errorf(e.Loc(), "undefined function: %s", id.Name)
		return ti.undefined()
	}
	if fe, ok := e.Callee.(*ast.FieldExpr); ok {
		objType := ti.InferExpr(fe.Object)
		if objType.Type != nil && objType.Type.IsClass() {
			if cls := ti.tab.FindClass(objType.Type.Alias); cls != nil {
				if m := cls.FindMethod(fe.Name); m != nil {
					return m.ReturnType
				}
			}
		}
		ti.errorf(e.Loc(), "undefined method: %s", fe.Name)
		return ti.undefined()
	}
	return ti.InferExpr(e.Callee)
}

func (ti *Inferencer) VisitIndexExpr(e *ast.IndexExpr) interface{} {
	objType := ti.InferExpr(e.Object)
	if objType.Type == nil {
		return ti.undefined()
	}
	switch {
	case objType.Type.Category == types.Array:
		return types.RefType{Type: objType.Type.Elem()}
	case objType.Type.Category == types.Scalar && objType.Type.ScalarKind == value.String:
		charType := ti.tab.Types.Register(ti.tab.Types.NewScalar(value.StringChar), true, false)
		return types.RefType{Type: charType}
	}
	ti.errorf(e.Loc(), "type %s is not indexable", objType.Type.Description())
	return ti.undefined()
}

func (ti *Inferencer) VisitFieldExpr(e *ast.FieldExpr) interface{} {
	objType := ti.InferExpr(e.Object)
	if objType.Type != nil && objType.Type.IsClass() {
		if field, ok := objType.Type.Field(e.Name); ok {
			return types.RefType{Type: field}
		}
		if cls := ti.tab.FindClass(objType.Type.Alias); cls != nil {
			if m := cls.FindMethod(e.Name); m != nil {
				return m.ReturnType
			}
		}
	}
	ti.errorf(e.Loc(), "undefined field or method: %s", e.Name)
	return ti.undefined()
}

func (ti *Inferencer) VisitAddressOfExpr(e *ast.AddressOfExpr) interface{} {
	operand := ti.InferExpr(e.Operand)
	if operand.IsLiteral {
		ti.errorf(e.Loc(), "cannot take the address of a literal")
		return ti.undefined()
	}
	ptr := ti.tab.Types.Register(ti.tab.Types.NewPointer(operand.Type), true, false)
	return types.RefType{Type: ptr}
}

func (ti *Inferencer) VisitDerefExpr(e *ast.DerefExpr) interface{} {
	operand := ti.InferExpr(e.Operand)
	if operand.Type == nil || operand.Type.Category != types.Pointer {
		ti.errorf(e.Loc(), "'^' requires a pointer operand")
		return ti.undefined()
	}
	return types.RefType{Type: operand.Type.Elem()}
}

func (ti *Inferencer) VisitSetExpr(e *ast.SetLiteralExpr) interface{} {
	ti.errorf(e.Loc(), "set literals are not supported")
	return ti.undefined()
}

// --- types ---

// ResolveType dispatches through t's Accept method to compute the
// concrete descriptor it names.
func (ti *Inferencer) ResolveType(t ast.TypeExpr) types.RefType {
	if t == nil {
		return ti.undefined()
	}
	return t.Accept(ti).(types.RefType)
}

func (ti *Inferencer) VisitSimpleTypeExpr(t *ast.SimpleTypeExpr) interface{} {
	d := ti.tab.Types.FindType(t.Name)
	if d.IsUndefined() {
		ti.errorf(t.Loc(), "undefined type: %s", t.Name)
	}
	return types.RefType{Type: d}
}

// evalConstInt folds a restricted class of constant integer expressions
// (literals and unary minus over them), enough to resolve array bounds
// without a general constant-folding pass.
func (ti *Inferencer) evalConstInt(e ast.Expr) (int64, bool) {
	switch n := e.(type) {
	case *ast.LiteralExpr:
		if i, ok := n.Value.(int64); ok {
			return i, true
		}
	case *ast.UnaryExpr:
		if n.Operator == "-" {
			if i, ok := ti.evalConstInt(n.Operand); ok {
				return -i, true
			}
		}
	}
	return 0, false
}

func (ti *Inferencer) VisitArrayTypeExpr(t *ast.ArrayTypeExpr) interface{} {
	low, lok := ti.evalConstInt(t.Low)
	high, hok := ti.evalConstInt(t.High)
	if !lok || !hok {
		ti.errorf(t.Loc(), "array bounds must be integer constants")
		return ti.undefined()
	}
	elem := ti.ResolveType(t.Elem)
	arr := ti.tab.Types.NewArray(low, high, elem.Type)
	return types.RefType{Type: ti.tab.Types.Register(arr, true, false)}
}

func (ti *Inferencer) VisitPointerTypeExpr(t *ast.PointerTypeExpr) interface{} {
	elem := ti.ResolveType(t.Elem)
	ptr := ti.tab.Types.NewPointer(elem.Type)
	return types.RefType{Type: ti.tab.Types.Register(ptr, true, false)}
}

// VisitClassTypeExpr registers the class named by the last
// SetDeclaringTypeName call, resolving its parent and field types and
// adding them in declaration order so field offsets match source order.
// Methods are left to internal/compiler, which owns emitting bodies.
func (ti *Inferencer) VisitClassTypeExpr(t *ast.ClassTypeExpr) interface{} {
	if ti.typeName == "" {
		ti.errorf(t.Loc(), "unnamed classes are not allowed")
		return ti.undefined()
	}
	classType := ti.tab.Types.NewClass(nil)
	for _, f := range t.Fields {
		fieldType := ti.ResolveType(f.Type)
		classType.AddField(f.Name, fieldType.Type)
	}
	cls := ti.tab.DeclareClass(t.Loc().Line, t.Loc().Column, ti.typeName, classType, t.Parent)
	if cls == nil {
		return ti.undefined()
	}
	ti.tab.Types.SetNameForType(classType, ti.typeName)
	return types.RefType{Type: classType}
}

func (ti *Inferencer) VisitSubrangeTypeExpr(t *ast.SubrangeTypeExpr) interface{} {
	low, lok := ti.evalConstInt(t.Low)
	high, hok := ti.evalConstInt(t.High)
	if !lok || !hok {
		ti.errorf(t.Loc(), "subrange bounds must be integer constants")
		return ti.undefined()
	}
	return types.RefType{Type: ti.tab.Types.NewArray(low, high, ti.tab.Types.FindType("integer")).Elem()}
}

func (ti *Inferencer) VisitEnumTypeExpr(t *ast.EnumTypeExpr) interface{} {
	// Enum members become integer constants (0, 1, 2, ...) in the current
	// scope; the type itself behaves as a plain integer.
	for i, name := range t.Names {
		intType := types.RefType{Type: ti.tab.Types.FindType("integer"), IsConst: true, IsLiteral: true}
		ti.tab.DeclareVar(t.Loc().Line, t.Loc().Column, name, intType, true)
		_ = i
	}
	return types.RefType{Type: ti.tab.Types.FindType("integer")}
}
