package cppemit

import (
	"strings"

	"pascalvm/internal/ast"
)

func (e *Emitter) typeExpr(t ast.TypeExpr) string {
	return t.Accept(e).(string)
}

func (e *Emitter) VisitConstDecl(d *ast.ConstDecl) interface{} {
	ty := "auto"
	if d.Type != nil {
		ty = e.typeExpr(d.Type)
	}
	e.writeln("const %s %s = %s;", ty, escapeIdent(d.Name), e.expr(d.Value))
	return nil
}

func (e *Emitter) VisitTypeDecl(d *ast.TypeDecl) interface{} {
	switch def := d.Def.(type) {
	case *ast.ClassTypeExpr:
		e.emitClass(d.Name, def)
	case *ast.EnumTypeExpr:
		e.writeln("enum class %s { %s };", escapeIdent(d.Name), strings.Join(def.Names, ", "))
	default:
		e.writeln("using %s = %s;", escapeIdent(d.Name), e.typeExpr(d.Def))
	}
	return nil
}

func (e *Emitter) VisitVarDecl(d *ast.VarDecl) interface{} {
	ty := e.typeExpr(d.Type)
	names := make([]string, len(d.Names))
	for i, n := range d.Names {
		names[i] = escapeIdent(n)
	}
	if d.Init != nil && len(names) == 1 {
		e.writeln("%s %s = %s;", ty, names[0], e.expr(d.Init))
		return nil
	}
	e.writeln("%s %s;", ty, strings.Join(names, ", "))
	return nil
}

// procSignature renders a ProcDecl's return type, name and parameter list;
// shared by free-function declarations and class method declarations.
func (e *Emitter) procSignature(d *ast.ProcDecl) string {
	ret, rest := e.procSignatureParts(d)
	return ret + " " + rest
}

// procSignatureParts splits a signature into its return type and its
// "name(params)" remainder, so an out-of-line method definition can
// interpose "ClassName::" between the two without reparsing the string.
func (e *Emitter) procSignatureParts(d *ast.ProcDecl) (ret, rest string) {
	ret = "void"
	if d.ReturnType != nil {
		ret = e.typeExpr(d.ReturnType)
	}
	params := make([]string, len(d.Params))
	for i, p := range d.Params {
		ty := e.typeExpr(p.Type)
		if p.ByRef {
			ty += "&"
		}
		params[i] = ty + " " + escapeIdent(p.Name)
	}
	rest = escapeIdent(d.Name) + "(" + strings.Join(params, ", ") + ")"
	return ret, rest
}

func (e *Emitter) VisitProcDecl(d *ast.ProcDecl) interface{} {
	ret, rest := e.procSignatureParts(d)
	if d.External {
		e.writeln("extern %s %s;", ret, rest)
		return nil
	}
	if d.Body == nil {
		e.writeln("%s %s;", ret, rest)
		return nil
	}
	if d.Receiver != "" {
		rest = escapeIdent(d.Receiver) + "::" + rest
	}
	e.writeln("%s %s {", ret, rest)
	e.level++
	if d.ReturnType != nil {
		e.writeln("%s result{};", e.typeExpr(d.ReturnType))
	}
	e.emitDecls(d.Body.Decls)
	e.emitCompoundBody(d.Body.Body)
	if d.ReturnType != nil {
		e.writeln("return result;")
	}
	e.level--
	e.writeln("}")
	return nil
}

func (e *Emitter) VisitClassDecl(d *ast.ClassDecl) interface{} {
	e.emitClass(d.Name, d.Expr)
	return nil
}

// emitClass renders a Pascal class as a C++ struct: fields first, then
// each method's prototype inline and its body as a separately emitted
// out-of-line definition (Name::Method), matching how the original class
// declarations keep method bodies adjacent to the class but C++ idiom
// keeps non-trivial method bodies out of the class body.
func (e *Emitter) emitClass(name string, def *ast.ClassTypeExpr) {
	header := "struct " + escapeIdent(name)
	if def.Parent != "" {
		header += " : public " + escapeIdent(def.Parent)
	}
	e.writeln("%s {", header)
	e.level++
	for _, f := range def.Fields {
		e.writeln("%s %s;", e.typeExpr(f.Type), escapeIdent(f.Name))
	}
	for _, m := range def.Methods {
		e.writeln("%s;", e.procSignature(m))
	}
	e.level--
	e.writeln("};")
	for _, m := range def.Methods {
		if m.Body == nil {
			continue
		}
		mCopy := *m
		mCopy.Receiver = name
		e.VisitProcDecl(&mCopy)
	}
}

func (e *Emitter) VisitUnitDecl(d *ast.UnitDecl) interface{} {
	e.writeln("namespace %s {", escapeIdent(d.Name))
	e.level++
	e.emitDecls(d.Interface)
	e.emitDecls(d.Implementation)
	e.level--
	e.writeln("} // namespace %s", escapeIdent(d.Name))
	return nil
}

// VisitUsesDecl has no structural C++ translation (a Pascal unit's public
// surface isn't split into its own header the way #include expects);
// rendered as a comment recording which units this block depended on.
func (e *Emitter) VisitUsesDecl(d *ast.UsesDecl) interface{} {
	e.writeln("// uses %s;", strings.Join(d.Units, ", "))
	return nil
}
