package cppemit

import (
	"fmt"
	"strings"

	"pascalvm/internal/ast"
)

// binaryOps maps a Pascal-surface operator token to its C++ spelling for
// every case that translates directly; "in" and set-valued operators are
// handled separately in VisitBinaryExpr since they have no single-token
// C++ equivalent.
var binaryOps = map[string]string{
	"=": "==", "<>": "!=", "<": "<", ">": ">", "<=": "<=", ">=": ">=",
	"+": "+", "-": "-", "or": "||", "xor": "^",
	"*": "*", "/": "/", "div": "/", "mod": "%", "and": "&&",
	"shl": "<<", "shr": ">>",
}

func (e *Emitter) expr(x ast.Expr) string {
	return x.Accept(e).(string)
}

func (e *Emitter) VisitLiteralExpr(x *ast.LiteralExpr) interface{} {
	switch v := x.Value.(type) {
	case int64:
		return fmt.Sprintf("%d", v)
	case float64:
		return formatFloat(v)
	case string:
		return quoteCString(v)
	case rune:
		return quoteCChar(v)
	case bool:
		if v {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprintf("/* unrepresentable literal %v */", v)
	}
}

func (e *Emitter) VisitIdentExpr(x *ast.IdentExpr) interface{} {
	return escapeIdent(x.Name)
}

func (e *Emitter) VisitUnaryExpr(x *ast.UnaryExpr) interface{} {
	operand := e.expr(x.Operand)
	switch x.Operator {
	case "not":
		return "!(" + operand + ")"
	default:
		return x.Operator + "(" + operand + ")"
	}
}

func (e *Emitter) VisitBinaryExpr(x *ast.BinaryExpr) interface{} {
	left, right := e.expr(x.Left), e.expr(x.Right)
	if x.Operator == "in" {
		return fmt.Sprintf("(std::count(std::begin(%s), std::end(%s), %s) > 0)", right, right, left)
	}
	op, ok := binaryOps[x.Operator]
	if !ok {
		op = x.Operator
	}
	return "(" + left + " " + op + " " + right + ")"
}

func (e *Emitter) VisitCallExpr(x *ast.CallExpr) interface{} {
	args := make([]string, len(x.Args))
	for i, a := range x.Args {
		args[i] = e.expr(a)
	}
	return e.expr(x.Callee) + "(" + strings.Join(args, ", ") + ")"
}

func (e *Emitter) VisitIndexExpr(x *ast.IndexExpr) interface{} {
	// Approximate: the element's declared low bound lives in the type
	// declaration, not in the index expression itself, so a pure AST
	// visitor with no symbol table cannot offset a non-zero-based Pascal
	// array the way internal/compiler does; this renders the syntactic
	// translation and leaves any base-offset adjustment to the reader.
	return e.expr(x.Object) + "[" + e.expr(x.Index) + "]"
}

func (e *Emitter) VisitFieldExpr(x *ast.FieldExpr) interface{} {
	return e.expr(x.Object) + "." + escapeIdent(x.Name)
}

func (e *Emitter) VisitAddressOfExpr(x *ast.AddressOfExpr) interface{} {
	return "(&(" + e.expr(x.Operand) + "))"
}

func (e *Emitter) VisitDerefExpr(x *ast.DerefExpr) interface{} {
	return "(*(" + e.expr(x.Operand) + "))"
}

func (e *Emitter) VisitSetExpr(x *ast.SetLiteralExpr) interface{} {
	elems := make([]string, len(x.Elements))
	for i, el := range x.Elements {
		elems[i] = e.expr(el)
	}
	return "std::set<int>{" + strings.Join(elems, ", ") + "}"
}
