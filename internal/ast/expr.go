package ast

// ExprVisitor is implemented by anything that walks expression trees:
// internal/typeinfer's Inferencer, internal/compiler's CodeGen, and
// internal/cppemit's Emitter each provide their own.
type ExprVisitor interface {
	VisitLiteralExpr(e *LiteralExpr) interface{}
	VisitIdentExpr(e *IdentExpr) interface{}
	VisitUnaryExpr(e *UnaryExpr) interface{}
	VisitBinaryExpr(e *BinaryExpr) interface{}
	VisitCallExpr(e *CallExpr) interface{}
	VisitIndexExpr(e *IndexExpr) interface{}
	VisitFieldExpr(e *FieldExpr) interface{}
	VisitAddressOfExpr(e *AddressOfExpr) interface{}
	VisitDerefExpr(e *DerefExpr) interface{}
	VisitSetExpr(e *SetLiteralExpr) interface{}
}

// LiteralExpr is a constant: integer, float, string, char or boolean.
type LiteralExpr struct {
	Base
	Value interface{}
}

func (e *LiteralExpr) Accept(v ExprVisitor) interface{} { return v.VisitLiteralExpr(e) }

// IdentExpr names a variable, constant, function or type.
type IdentExpr struct {
	Base
	Name string
}

func (e *IdentExpr) Accept(v ExprVisitor) interface{} { return v.VisitIdentExpr(e) }

// UnaryExpr applies a prefix operator: -x or not x (@x is an AddressOfExpr).
type UnaryExpr struct {
	Base
	Operator string
	Operand  Expr
}

func (e *UnaryExpr) Accept(v ExprVisitor) interface{} { return v.VisitUnaryExpr(e) }

// BinaryExpr applies an infix operator: a + b, a and b, a = b.
type BinaryExpr struct {
	Base
	Left     Expr
	Operator string
	Right    Expr
}

func (e *BinaryExpr) Accept(v ExprVisitor) interface{} { return v.VisitBinaryExpr(e) }

// CallExpr invokes a function or procedure: Callee(Args...).
type CallExpr struct {
	Base
	Callee Expr
	Args   []Expr
}

func (e *CallExpr) Accept(v ExprVisitor) interface{} { return v.VisitCallExpr(e) }

// IndexExpr subscripts an array or string: Object[Index].
type IndexExpr struct {
	Base
	Object Expr
	Index  Expr
}

func (e *IndexExpr) Accept(v ExprVisitor) interface{} { return v.VisitIndexExpr(e) }

// FieldExpr accesses a class member: Object.Name.
type FieldExpr struct {
	Base
	Object Expr
	Name   string
}

func (e *FieldExpr) Accept(v ExprVisitor) interface{} { return v.VisitFieldExpr(e) }

// AddressOfExpr takes a pointer to its operand: @x.
type AddressOfExpr struct {
	Base
	Operand Expr
}

func (e *AddressOfExpr) Accept(v ExprVisitor) interface{} { return v.VisitAddressOfExpr(e) }

// DerefExpr dereferences a pointer: x^.
type DerefExpr struct {
	Base
	Operand Expr
}

func (e *DerefExpr) Accept(v ExprVisitor) interface{} { return v.VisitDerefExpr(e) }

// SetLiteralExpr is a bracketed set constructor: [a, b, c]. Parsed but
// rejected by the type inferencer and code generator (see the Open Question
// decision on set types in the design notes); kept as its own node so
// diagnostics can point at it precisely instead of misreporting it as an
// array literal.
type SetLiteralExpr struct {
	Base
	Elements []Expr
}

func (e *SetLiteralExpr) Accept(v ExprVisitor) interface{} { return v.VisitSetExpr(e) }
