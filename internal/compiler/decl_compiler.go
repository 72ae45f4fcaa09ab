package compiler

import (
	"pascalvm/internal/ast"
	"pascalvm/internal/bytecode"
	"pascalvm/internal/symtab"
	"pascalvm/internal/types"
)

// compileBlock walks one declaration part followed by its body in a single
// top-to-bottom pass. Pascal's `forward;` directive (rather than hoisting)
// is what lets one procedure call another declared later in the same
// block, so declarations and bodies interleave in source order; every
// internal OpCall is emitted with a placeholder address and patched at
// the end via pendingCalls/funcAddr.
func (cg *CodeGen) compileBlock(block *ast.Block) {
	if block == nil {
		return
	}
	for _, d := range block.Decls {
		d.Accept(cg)
	}
	if block.Body != nil {
		block.Body.Accept(cg)
	}
}

// CompileProgram compiles a full `program Name; Block.` source file and
// returns the resulting chunk, terminated with EXIT and with every call
// address resolved.
func (cg *CodeGen) CompileProgram(p *ast.Program) *bytecode.Chunk {
	cg.compileBlock(p.Block)
	cg.emit(ast.Pos{}, bytecode.OpExit)
	cg.resolvePendingCalls()
	cg.chunk.GlobalSize = cg.tab.TopScope().NextAddress()
	return cg.chunk
}

// CompileSTProgram compiles a bare script body (the REPL/.st entry point):
// same shape as a program block, without the `program Name;` header.
func (cg *CodeGen) CompileSTProgram(p *ast.STProgram) *bytecode.Chunk {
	for _, d := range p.Decls {
		d.Accept(cg)
	}
	if p.Body != nil {
		p.Body.Accept(cg)
	}
	cg.emit(ast.Pos{}, bytecode.OpExit)
	cg.resolvePendingCalls()
	cg.chunk.GlobalSize = cg.tab.TopScope().NextAddress()
	return cg.chunk
}

// CompileUnit compiles a `unit Name; interface ... implementation ... end.`
// source file. Both sections share one flat symbol table and chunk: the
// interface section's declarations (types, consts, proc/func signatures)
// must be visible to whatever uses the unit, but since this toolchain
// compiles one program at a time rather than linking separately compiled
// units, interface and implementation are simply compiled as one
// concatenated declaration list. There is no standalone body, so nothing
// but resolving pending calls terminates the pass; a program's own
// CompileProgram appends its own body after internal/frontend has merged a
// used unit's declarations into the same symbol table.
func (cg *CodeGen) CompileUnit(u *ast.Unit) *bytecode.Chunk {
	for _, d := range u.Interface {
		d.Accept(cg)
	}
	for _, d := range u.Implementation {
		d.Accept(cg)
	}
	cg.resolvePendingCalls()
	cg.chunk.GlobalSize = cg.tab.TopScope().NextAddress()
	return cg.chunk
}

// VisitConstDecl registers Name as a const-flagged global and emits its
// initializer immediately at the declaration point. There is no dedicated
// ConstObj kind in internal/symtab; a constant is a regular VarObj with
// Const set, matching how VisitAssignStmt already rejects writes to it.
func (cg *CodeGen) VisitConstDecl(d *ast.ConstDecl) interface{} {
	var t types.RefType
	if d.Type != nil {
		t = cg.infer.ResolveType(d.Type)
	} else {
		t = cg.infer.InferExpr(d.Value)
	}
	t = t.Const(true)
	v := cg.tab.DeclareVar(d.Loc().Line, d.Loc().Column, d.Name, t, true)
	if v == nil {
		return nil
	}
	cg.emitVarRef(d.Loc(), v)
	valType := cg.compileExpr(d.Value)
	cg.emit(d.Loc(), bytecode.OpMovs, int32(bytecode.MovsLeftRef), int32(valType.ByteSize()))
	return nil
}

// VisitTypeDecl resolves Def and, for the categories that don't register
// their own alias (array/pointer/subrange/enum all return an anonymous
// types.Def; only VisitClassTypeExpr names itself, since a class may refer
// to its own name in a field), binds Name to it.
func (cg *CodeGen) VisitTypeDecl(d *ast.TypeDecl) interface{} {
	cg.infer.SetDeclaringTypeName(d.Name)
	t := cg.infer.ResolveType(d.Def)
	cg.infer.SetDeclaringTypeName("")
	if t.Type != nil && t.Type.Alias == "" {
		cg.tab.Types.SetNameForType(t.Type, d.Name)
	}
	if enum, ok := d.Def.(*ast.EnumTypeExpr); ok {
		for i, name := range enum.Names {
			if v := cg.tab.FindVar(name, nil); v != nil {
				cg.emitVarRef(d.Loc(), v)
				cg.compileExpr(&ast.LiteralExpr{Base: ast.Base{P: d.Loc()}, Value: int64(i)})
				cg.emit(d.Loc(), bytecode.OpMovs, int32(bytecode.MovsLeftRef), 1)
			}
		}
	}
	return nil
}

// VisitVarDecl declares each name in Names at the current scope, compiling
// an initializer once and assigning it to every name (`var a, b: integer =
// 0;` initializes both the same way).
func (cg *CodeGen) VisitVarDecl(d *ast.VarDecl) interface{} {
	t := cg.infer.ResolveType(d.Type)
	for _, name := range d.Names {
		v := cg.tab.DeclareVar(d.Loc().Line, d.Loc().Column, name, t, false)
		if v == nil || d.Init == nil {
			continue
		}
		cg.emitVarRef(d.Loc(), v)
		cg.compileExpr(d.Init)
		cg.emit(d.Loc(), bytecode.OpMovs, int32(bytecode.MovsLeftRef), int32(v.MemorySize))
	}
	return nil
}

// buildFuncArgs resolves d's formal parameters into symtab.FuncArg,
// prepending a synthetic by-ref `self` argument when owner is non-nil so a
// method's receiver occupies argument slot 0 exactly like any other by-ref
// parameter: VisitCallExpr's method path pushes the receiver's reference
// as that first argument cell, and VisitIdentExpr/FindSelfVar resolve
// bare-field access against it by name.
func (cg *CodeGen) buildFuncArgs(d *ast.ProcDecl, owner *symtab.ClassObj) []symtab.FuncArg {
	var args []symtab.FuncArg
	if owner != nil {
		selfType := types.RefType{Type: owner.ClassType}.Ref(true)
		args = append(args, symtab.FuncArg{Name: "self", Type: selfType, ByRef: true})
	}
	for _, p := range d.Params {
		args = append(args, symtab.FuncArg{
			Name:    p.Name,
			Type:    cg.infer.ResolveType(p.Type),
			ByRef:   p.ByRef,
			Default: p.Default,
		})
	}
	return args
}

// VisitProcDecl registers d's signature (forward, external, or a real
// definition) and, when it has a body, compiles it. A prior `forward;`
// declaration for the same name is reused by DeclareFunc rather than
// rejected, so the out-of-class `procedure TFoo.Method(...)` form and an
// earlier in-class forward signature resolve to the same FuncObj.
func (cg *CodeGen) VisitProcDecl(d *ast.ProcDecl) interface{} {
	var owner *symtab.ClassObj
	if d.Receiver != "" {
		owner = cg.tab.FindClass(d.Receiver)
		if owner == nil {
			cg.errorf(d.Loc(), "undefined class: %s", d.Receiver)
			return nil
		}
	}

	args := cg.buildFuncArgs(d, owner)
	var retType types.RefType
	if d.ReturnType != nil {
		retType = cg.infer.ResolveType(d.ReturnType)
	}
	isForward := d.Body == nil && !d.External

	fn := cg.tab.DeclareFunc(d.Loc().Line, d.Loc().Column, owner, d.Name, retType, args, isForward, false, d.External)
	if fn == nil || d.External || d.Body == nil {
		return nil
	}
	cg.compileFuncBody(fn, d)
	return nil
}

// compileFuncBody compiles fn's body at its InternalScope behind a JMP
// past its RET, so straight-line execution of the enclosing block never
// falls into the body. The entry address (just after that JMP) is
// recorded in funcAddr, from which resolvePendingCalls patches every CALL
// to fn, recursive ones included. A function's return value
// is communicated through a synthetic "result" local declared right after
// fn's arguments (so it sits at address fn.ArgumentsSize() in the callee's
// own frame) rather than through a dedicated opcode; internal/vm's RET
// copies ReturnSize() cells starting there back to the caller.
func (cg *CodeGen) compileFuncBody(fn *symtab.FuncObj, d *ast.ProcDecl) {
	prevFunc := cg.curFunc
	cg.curFunc = fn
	skip := cg.emit(d.Loc(), bytecode.OpJmp, 0)
	entryAddr := cg.chunk.Len()
	cg.funcAddr[fn.FullName] = entryAddr

	cg.tab.OpenScope(fn.InternalScope)
	if fn.ReturnType.IsValid() {
		cg.tab.DeclareVar(d.Loc().Line, d.Loc().Column, "result", fn.ReturnType, false)
	}
	cg.compileBlock(d.Body)
	cg.chunk.FrameSizes[entryAddr] = fn.InternalScope.NextAddress()
	cg.tab.CloseScope()

	cg.emit(d.Loc(), bytecode.OpRet)
	cg.chunk.Patch(skip, int32(cg.chunk.Len()))
	cg.curFunc = prevFunc
}

// VisitClassDecl resolves the class's field layout (via typeinfer, which
// also registers the class itself so its methods and later references can
// name it) and then compiles each inline method body. In-class method
// declarations are parsed without the `TFoo.Method` receiver-dot prefix
// (the parser has no reason to repeat the enclosing class name), so
// Receiver is stamped in here before each one is visited.
func (cg *CodeGen) VisitClassDecl(d *ast.ClassDecl) interface{} {
	cg.infer.SetDeclaringTypeName(d.Name)
	cg.infer.ResolveType(d.Expr)
	cg.infer.SetDeclaringTypeName("")

	for _, m := range d.Expr.Methods {
		m.Receiver = d.Name
		m.Accept(cg)
	}
	return nil
}

// VisitUnitDecl compiles a unit nested inside a larger declaration list
// (rather than as its own top-level compilation passed to CompileUnit):
// both sections' declarations are visited in order, same as CompileUnit.
func (cg *CodeGen) VisitUnitDecl(d *ast.UnitDecl) interface{} {
	for _, decl := range d.Interface {
		decl.Accept(cg)
	}
	for _, decl := range d.Implementation {
		decl.Accept(cg)
	}
	return nil
}

// VisitUsesDecl has nothing to compile directly: resolving Units into
// their declarations is internal/frontend's job (it owns merging a unit's
// compiled symbols into the program that uses it), not codegen's.
func (cg *CodeGen) VisitUsesDecl(d *ast.UsesDecl) interface{} {
	return nil
}
