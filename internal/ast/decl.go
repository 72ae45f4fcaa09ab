package ast

// DeclVisitor is implemented by anything that walks a declaration part.
type DeclVisitor interface {
	VisitConstDecl(d *ConstDecl) interface{}
	VisitTypeDecl(d *TypeDecl) interface{}
	VisitVarDecl(d *VarDecl) interface{}
	VisitProcDecl(d *ProcDecl) interface{}
	VisitClassDecl(d *ClassDecl) interface{}
	VisitUnitDecl(d *UnitDecl) interface{}
	VisitUsesDecl(d *UsesDecl) interface{}
}

// ConstDecl is const Name = Value; or const Name: Type = Value;
type ConstDecl struct {
	Base
	Name  string
	Type  TypeExpr // nil if untyped
	Value Expr
}

func (d *ConstDecl) Accept(v DeclVisitor) interface{} { return v.VisitConstDecl(d) }

// TypeDecl is type Name = Def;
type TypeDecl struct {
	Base
	Name string
	Def  TypeExpr
}

func (d *TypeDecl) Accept(v DeclVisitor) interface{} { return v.VisitTypeDecl(d) }

// VarDecl is var Names: Type [= Init];
type VarDecl struct {
	Base
	Names []string
	Type  TypeExpr
	Init  Expr // nil if no initializer
}

func (d *VarDecl) Accept(v DeclVisitor) interface{} { return v.VisitVarDecl(d) }

// ParamDecl is one formal parameter of a ProcDecl.
type ParamDecl struct {
	Name    string
	Type    TypeExpr
	ByRef   bool
	Default Expr // nil if no default value
}

// ProcDecl is a procedure or function declaration, optionally a class
// method (Receiver non-empty).
type ProcDecl struct {
	Base
	Name       string
	Receiver   string // enclosing class name, empty for free functions
	Params     []ParamDecl
	ReturnType TypeExpr // nil for a procedure
	Body       *Block   // nil for an external/forward declaration
	External   bool     // bound to a Go callback instead of having a Body
}

func (d *ProcDecl) Accept(v DeclVisitor) interface{} { return v.VisitProcDecl(d) }

// ClassDecl is type Name = class(Parent) ... end;, kept distinct from a
// plain TypeDecl so the declaration pass can register the class name before
// resolving its member types (classes may reference themselves).
type ClassDecl struct {
	Base
	Name string
	Expr *ClassTypeExpr
}

func (d *ClassDecl) Accept(v DeclVisitor) interface{} { return v.VisitClassDecl(d) }

// UnitDecl is a full `unit Name; interface ... implementation ... end.`
// source file.
type UnitDecl struct {
	Base
	Name           string
	Interface      []Decl
	Implementation []Decl
}

func (d *UnitDecl) Accept(v DeclVisitor) interface{} { return v.VisitUnitDecl(d) }

// UsesDecl is uses Unit1, Unit2, ...;
type UsesDecl struct {
	Base
	Units []string
}

func (d *UsesDecl) Accept(v DeclVisitor) interface{} { return v.VisitUsesDecl(d) }
