package ast

// TypeVisitor is implemented by anything that resolves type-expression
// nodes into internal/types descriptors (internal/symtab's declaration
// pass is the main consumer).
type TypeVisitor interface {
	VisitSimpleTypeExpr(t *SimpleTypeExpr) interface{}
	VisitArrayTypeExpr(t *ArrayTypeExpr) interface{}
	VisitPointerTypeExpr(t *PointerTypeExpr) interface{}
	VisitClassTypeExpr(t *ClassTypeExpr) interface{}
	VisitSubrangeTypeExpr(t *SubrangeTypeExpr) interface{}
	VisitEnumTypeExpr(t *EnumTypeExpr) interface{}
}

// SimpleTypeExpr names a previously declared type: integer, TMyClass, ...
type SimpleTypeExpr struct {
	Base
	Name string
}

func (t *SimpleTypeExpr) Accept(v TypeVisitor) interface{} { return v.VisitSimpleTypeExpr(t) }

// ArrayTypeExpr is array[Low..High] of Elem.
type ArrayTypeExpr struct {
	Base
	Low, High Expr
	Elem      TypeExpr
}

func (t *ArrayTypeExpr) Accept(v TypeVisitor) interface{} { return v.VisitArrayTypeExpr(t) }

// PointerTypeExpr is ^Elem.
type PointerTypeExpr struct {
	Base
	Elem TypeExpr
}

func (t *PointerTypeExpr) Accept(v TypeVisitor) interface{} { return v.VisitPointerTypeExpr(t) }

// ClassField is one member declaration inside a class body.
type ClassField struct {
	Name string
	Type TypeExpr
}

// ClassTypeExpr is class(Parent) Fields... Methods... end.
type ClassTypeExpr struct {
	Base
	Parent  string // empty if no explicit ancestor
	Fields  []ClassField
	Methods []*ProcDecl
}

func (t *ClassTypeExpr) Accept(v TypeVisitor) interface{} { return v.VisitClassTypeExpr(t) }

// SubrangeTypeExpr is Low..High over an ordinal Base type.
type SubrangeTypeExpr struct {
	Base
	Low, High Expr
}

func (t *SubrangeTypeExpr) Accept(v TypeVisitor) interface{} { return v.VisitSubrangeTypeExpr(t) }

// EnumTypeExpr is (Name1, Name2, ...).
type EnumTypeExpr struct {
	Base
	Names []string
}

func (t *EnumTypeExpr) Accept(v TypeVisitor) interface{} { return v.VisitEnumTypeExpr(t) }
