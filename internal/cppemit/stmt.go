package cppemit

import (
	"strings"

	"pascalvm/internal/ast"
)

// block renders s as a brace-delimited block regardless of whether it is
// already a CompoundStmt, so if/while/for bodies are always safe to place
// an `else`/trailing statement after.
func (e *Emitter) block(s ast.Stmt) string {
	if cs, ok := s.(*ast.CompoundStmt); ok {
		var b strings.Builder
		b.WriteString("{\n")
		e.level++
		for _, inner := range cs.Stmts {
			b.WriteString(e.idn())
			b.WriteString(e.stmt(inner))
			b.WriteByte('\n')
		}
		e.level--
		b.WriteString(e.idn())
		b.WriteString("}")
		return b.String()
	}
	return "{\n" + e.idn() + "    " + func() string {
		e.level++
		defer func() { e.level-- }()
		return e.stmt(s)
	}() + "\n" + e.idn() + "}"
}

func (e *Emitter) stmt(s ast.Stmt) string {
	return s.Accept(e).(string)
}

func (e *Emitter) VisitAssignStmt(s *ast.AssignStmt) interface{} {
	return e.expr(s.Target) + " = " + e.expr(s.Value) + ";"
}

func (e *Emitter) VisitExprStmt(s *ast.ExprStmt) interface{} {
	return e.expr(s.X) + ";"
}

func (e *Emitter) VisitCompoundStmt(s *ast.CompoundStmt) interface{} {
	return e.block(s)
}

func (e *Emitter) VisitIfStmt(s *ast.IfStmt) interface{} {
	out := "if (" + e.expr(s.Cond) + ") " + e.block(s.Then)
	if s.Else != nil {
		out += " else " + e.block(s.Else)
	}
	return out
}

func (e *Emitter) VisitWhileStmt(s *ast.WhileStmt) interface{} {
	return "while (" + e.expr(s.Cond) + ") " + e.block(s.Body)
}

func (e *Emitter) VisitRepeatStmt(s *ast.RepeatStmt) interface{} {
	var b strings.Builder
	b.WriteString("do {\n")
	e.level++
	for _, inner := range s.Stmts {
		b.WriteString(e.idn())
		b.WriteString(e.stmt(inner))
		b.WriteByte('\n')
	}
	e.level--
	b.WriteString(e.idn())
	b.WriteString("} while (!(" + e.expr(s.Cond) + "));")
	return b.String()
}

func (e *Emitter) VisitForStmt(s *ast.ForStmt) interface{} {
	name := escapeIdent(s.Var)
	cmp, step := "<=", "++"
	if s.Down {
		cmp, step = ">=", "--"
	}
	header := "for (" + name + " = " + e.expr(s.Start) + "; " +
		name + " " + cmp + " " + e.expr(s.Stop) + "; " + name + step + ")"
	return header + " " + e.block(s.Body)
}

func (e *Emitter) VisitCaseStmt(s *ast.CaseStmt) interface{} {
	var b strings.Builder
	b.WriteString("switch (" + e.expr(s.Selector) + ") {\n")
	e.level++
	for _, arm := range s.Arms {
		for _, lbl := range arm.Labels {
			b.WriteString(e.idn())
			b.WriteString("case " + e.expr(lbl) + ":\n")
		}
		e.level++
		b.WriteString(e.idn())
		b.WriteString(e.stmt(arm.Body))
		b.WriteByte('\n')
		b.WriteString(e.idn())
		b.WriteString("break;\n")
		e.level--
	}
	if s.Default != nil {
		b.WriteString(e.idn())
		b.WriteString("default:\n")
		e.level++
		b.WriteString(e.idn())
		b.WriteString(e.stmt(s.Default))
		b.WriteByte('\n')
		b.WriteString(e.idn())
		b.WriteString("break;\n")
		e.level--
	}
	e.level--
	b.WriteString(e.idn())
	b.WriteString("}")
	return b.String()
}

// VisitWithStmt has no C++ equivalent scoping construct (Pascal's `with`
// brings a record's fields into unqualified scope for its body); rendered
// as a commented-out header so the body, which still spells fields out in
// full through VisitFieldExpr, remains valid C++.
func (e *Emitter) VisitWithStmt(s *ast.WithStmt) interface{} {
	return "/* with " + e.expr(s.Record) + " do */ " + e.block(s.Body)
}

func (e *Emitter) VisitWriteStmt(s *ast.WriteStmt) interface{} {
	var b strings.Builder
	b.WriteString("std::cout")
	for _, a := range s.Args {
		b.WriteString(" << ")
		b.WriteString(e.expr(a))
	}
	if s.Newline {
		b.WriteString(" << std::endl")
	}
	b.WriteString(";")
	return b.String()
}

func (e *Emitter) VisitBreakStmt(s *ast.BreakStmt) interface{} { return "break;" }

func (e *Emitter) VisitContinueStmt(s *ast.ContinueStmt) interface{} { return "continue;" }

func (e *Emitter) VisitGotoStmt(s *ast.GotoStmt) interface{} {
	return "goto " + escapeIdent(s.Label) + ";"
}

func (e *Emitter) VisitLabelStmt(s *ast.LabelStmt) interface{} {
	return escapeIdent(s.Name) + ": " + e.stmt(s.Stmt)
}

// VisitTryStmt maps try/except to native try/catch(...), with the except
// body rendered as a comment since it operates on the original runtime's
// own exception-value representation, which has no C++ analogue here.
// try/finally has no RAII translation attempted; the finally body is
// inlined as trailing statements, which only matches try/finally's
// semantics on the non-exceptional path.
func (e *Emitter) VisitTryStmt(s *ast.TryStmt) interface{} {
	var b strings.Builder
	if s.FinallyBody != nil {
		b.WriteString("{\n")
		e.level++
		for _, inner := range s.Body {
			b.WriteString(e.idn())
			b.WriteString(e.stmt(inner))
			b.WriteByte('\n')
		}
		for _, inner := range s.FinallyBody {
			b.WriteString(e.idn())
			b.WriteString(e.stmt(inner))
			b.WriteByte('\n')
		}
		e.level--
		b.WriteString(e.idn())
		b.WriteString("}")
		return b.String()
	}
	b.WriteString("try {\n")
	e.level++
	for _, inner := range s.Body {
		b.WriteString(e.idn())
		b.WriteString(e.stmt(inner))
		b.WriteByte('\n')
	}
	e.level--
	b.WriteString(e.idn())
	b.WriteString("} catch (...) {\n")
	e.level++
	for _, inner := range s.ExceptBody {
		b.WriteString(e.idn())
		b.WriteString("// " + e.stmt(inner))
		b.WriteByte('\n')
	}
	e.level--
	b.WriteString(e.idn())
	b.WriteString("}")
	return b.String()
}

func (e *Emitter) VisitRaiseStmt(s *ast.RaiseStmt) interface{} {
	if s.Value == nil {
		return "throw;"
	}
	return "throw " + e.expr(s.Value) + ";"
}
