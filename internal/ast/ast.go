// Package ast defines the abstract syntax tree the parser produces and the
// semantic analyzer (internal/compiler, internal/typeinfer) consumes.
//
// Per the "discriminated AST via wrapper variants" design note, every node
// category is a small closed interface dispatched through a visitor
// (Accept/XxxVisitor): boxed recursive arms instead of
// a tagged union, since Go has no native sum type.
package ast

// Pos is a source location, attached to every node for diagnostics.
type Pos struct {
	File   string
	Line   int
	Column int
}

// Expr is any expression node.
type Expr interface {
	Accept(v ExprVisitor) interface{}
	Loc() Pos
}

// Stmt is any statement node.
type Stmt interface {
	Accept(v StmtVisitor) interface{}
	Loc() Pos
}

// Decl is any declaration-part node (const/type/var/proc/class/uses).
type Decl interface {
	Accept(v DeclVisitor) interface{}
	Loc() Pos
}

// TypeExpr is any type-reference node appearing in a declaration.
type TypeExpr interface {
	Accept(v TypeVisitor) interface{}
	Loc() Pos
}

// Base is embedded in every concrete node to carry its source location;
// exported so other packages (the parser) can populate it in a struct
// literal: ast.IdentExpr{Base: ast.Base{P: loc}, ...}.
type Base struct{ P Pos }

func (b Base) Loc() Pos { return b.P }
