package cppemit

import (
	"fmt"

	"pascalvm/internal/ast"
)

func (e *Emitter) VisitSimpleTypeExpr(t *ast.SimpleTypeExpr) interface{} {
	return cppType(t.Name)
}

// VisitArrayTypeExpr renders a fixed-size Pascal array as std::array when
// its bounds are both integer literals (the common case), falling back to
// std::vector when a bound is itself an expression this visitor cannot
// fold without a symbol table (a named constant, for instance).
func (e *Emitter) VisitArrayTypeExpr(t *ast.ArrayTypeExpr) interface{} {
	elem := e.typeExpr(t.Elem)
	low, lowOK := t.Low.(*ast.LiteralExpr)
	high, highOK := t.High.(*ast.LiteralExpr)
	if lowOK && highOK {
		if lo, ok := low.Value.(int64); ok {
			if hi, ok := high.Value.(int64); ok {
				return fmt.Sprintf("std::array<%s, %d>", elem, hi-lo+1)
			}
		}
	}
	return "std::vector<" + elem + ">"
}

func (e *Emitter) VisitPointerTypeExpr(t *ast.PointerTypeExpr) interface{} {
	return e.typeExpr(t.Elem) + "*"
}

// VisitClassTypeExpr is reached only when a class type appears somewhere
// other than directly under a TypeDecl/ClassDecl (Pascal has no anonymous
// class types, so this is effectively unreachable from real source); the
// class's own name is unknown here, so it renders as a forward reference
// comment rather than attempting a nested definition.
func (e *Emitter) VisitClassTypeExpr(t *ast.ClassTypeExpr) interface{} {
	return "/* inline class type */"
}

func (e *Emitter) VisitSubrangeTypeExpr(t *ast.SubrangeTypeExpr) interface{} {
	return "int32_t"
}

// VisitEnumTypeExpr is reached the same way VisitClassTypeExpr is: enum
// definitions are always named through a TypeDecl, which renders the full
// `enum class` form itself.
func (e *Emitter) VisitEnumTypeExpr(t *ast.EnumTypeExpr) interface{} {
	return "/* inline enum type */"
}
