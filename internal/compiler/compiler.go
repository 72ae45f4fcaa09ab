// Package compiler lowers an internal/ast tree into an internal/bytecode
// Chunk. It consults internal/symtab for storage layout (slot, frame
// level, byte offsets) and internal/typeinfer for the type of every
// expression it emits code for, driving designator-chain compilation
// (arr[i].field.method()) through a symtab.MetaObj cursor rather than
// re-deriving field/offset resolution on its own.
package compiler

import (
	"pascalvm/internal/ast"
	"pascalvm/internal/bytecode"
	"pascalvm/internal/errors"
	"pascalvm/internal/symtab"
	"pascalvm/internal/typeinfer"
	"pascalvm/internal/types"
	"pascalvm/internal/value"
)

// loopCtx collects the break/continue jump sites of one enclosing loop,
// patched once the loop's exit and test addresses are known.
type loopCtx struct {
	breaks    []int
	continues []int
}

// pendingCall is an OpCall site emitted with a placeholder address.
// Every internal call is recorded here, whether or not its callee's body
// has already been compiled; resolvePendingCalls patches them all once
// the whole program has been compiled.
type pendingCall struct {
	ip   int
	name string // FuncObj.FullName, lowercased
}

// CodeGen compiles one program/unit/script body against a symbol table
// already populated by a prior declaration pass.
type CodeGen struct {
	tab   *symtab.SymTable
	infer *typeinfer.Inferencer
	diags *errors.Diagnostics
	chunk *bytecode.Chunk
	file  string

	loops        []*loopCtx
	pendingCalls []pendingCall
	funcAddr     map[string]int

	externalIndex map[string]int
	externalNames []string

	withStack []*symtab.ClassObj
	withVars  []*symtab.VarObj

	curFunc *symtab.FuncObj

	labels        map[string]int   // label name -> resolved instruction index
	pendingLabels map[string][]int // label name -> GOTOs awaiting that label
}

// New creates a CodeGen sharing tab and infer with whatever declaration
// pass already populated them.
func New(tab *symtab.SymTable, infer *typeinfer.Inferencer, diags *errors.Diagnostics, file string) *CodeGen {
	return &CodeGen{
		tab:           tab,
		infer:         infer,
		diags:         diags,
		chunk:         bytecode.NewChunk(),
		file:          file,
		funcAddr:      map[string]int{},
		externalIndex: map[string]int{},
		labels:        map[string]int{},
		pendingLabels: map[string][]int{},
	}
}

// Chunk returns the instruction stream compiled so far.
func (cg *CodeGen) Chunk() *bytecode.Chunk { return cg.chunk }

// ExternalNames lists every external function or variable referenced, in
// the order OpCallExt/OpRefExt's index operand expects.
func (cg *CodeGen) ExternalNames() []string { return cg.externalNames }

func (cg *CodeGen) errorf(pos ast.Pos, format string, args ...interface{}) {
	cg.diags.Errorf(errors.SourceLocation{File: pos.File, Line: pos.Line, Column: pos.Column}, format, args...)
}

func (cg *CodeGen) undefined() types.RefType {
	return types.RefType{Type: cg.tab.Types.Undefined()}
}

func (cg *CodeGen) debugAt(pos ast.Pos) bytecode.DebugInfo {
	fn := ""
	if cg.curFunc != nil {
		fn = cg.curFunc.Name()
	}
	return bytecode.DebugInfo{Line: pos.Line, Column: pos.Column, File: pos.File, Function: fn}
}

func (cg *CodeGen) emit(pos ast.Pos, op bytecode.OpCode, args ...int32) int {
	return cg.chunk.WriteWithDebug(cg.debugAt(pos), op, args...)
}

// frameLevel is the level OpRef/OpCall address a variable's scope at: 0
// for the program's top (global) scope, 1 for the current function's own
// frame. Nothing in this language declares a procedure inside another,
// so these are the only two levels a name ever resolves at.
func (cg *CodeGen) frameLevel(v *symtab.VarObj) int32 {
	if cg.curFunc != nil && v.Scope() == cg.curFunc.InternalScope {
		return 1
	}
	return 0
}

func (cg *CodeGen) externalIndexFor(name string) int32 {
	if idx, ok := cg.externalIndex[name]; ok {
		return int32(idx)
	}
	idx := len(cg.externalNames)
	cg.externalIndex[name] = idx
	cg.externalNames = append(cg.externalNames, name)
	return int32(idx)
}

// emitVarRef pushes a reference to v: REF for frame-resident storage,
// REFEXT for a host-bound external.
func (cg *CodeGen) emitVarRef(pos ast.Pos, v *symtab.VarObj) {
	if v == nil {
		return
	}
	if v.External {
		cg.emit(pos, bytecode.OpRefExt, cg.externalIndexFor(v.Name()))
		return
	}
	cg.emit(pos, bytecode.OpRef, int32(v.MemoryAddress), cg.frameLevel(v), int32(v.MemorySize))
}

// emitAddref appends an ADDREF, coalescing into the immediately
// preceding instruction if it was also an ADDREF: a chain of field
// accesses (a.b.c) folds into one offset shift rather than one
// instruction per '.'.
func (cg *CodeGen) emitAddref(pos ast.Pos, offset int32) {
	if offset == 0 {
		return
	}
	n := len(cg.chunk.Code)
	if n > 0 && cg.chunk.Code[n-1].Op == bytecode.OpAddref {
		cg.chunk.Code[n-1].Args[0] += offset
		return
	}
	cg.emit(pos, bytecode.OpAddref, offset)
}

// compileDesignator walks e (a postfix chain of Ident/Field/Index/Deref/
// AddressOf/Call nodes) and returns the symtab.MetaObj cursor left
// pointing at its resolved storage or call result.
func (cg *CodeGen) compileDesignator(e ast.Expr) *symtab.MetaObj {
	if m, ok := e.Accept(cg).(*symtab.MetaObj); ok {
		return m
	}
	cg.errorf(e.Loc(), "expression is not a valid designator")
	return symtab.NewMetaObj(cg.tab)
}

// compileExpr emits code leaving e's value on top of the stack and
// returns its type. Designator expressions (variables, fields, indexing,
// dereference) get one trailing DEREF to turn the reference MetaObj left
// on the stack into the value it refers to; call results and @-addresses
// are already values (MetaObj.IsRef is false for both), so no DEREF is
// emitted for them.
func (cg *CodeGen) compileExpr(e ast.Expr) types.RefType {
	switch res := e.Accept(cg).(type) {
	case types.RefType:
		return res
	case *symtab.MetaObj:
		t := res.Type()
		if res.IsRef {
			cg.emit(e.Loc(), bytecode.OpDeref, int32(t.ByteSize()))
		}
		return t
	}
	return cg.undefined()
}

// --- literals and operators: pure rvalues, no storage location ---

func (cg *CodeGen) VisitLiteralExpr(e *ast.LiteralExpr) interface{} {
	t := cg.infer.InferExpr(e)
	cell := literalCell(e.Value)
	idx := cg.chunk.AddConstant(cell)
	cg.emit(e.Loc(), bytecode.OpPush, int32(idx), 1)
	return t
}

// literalCell builds the constant-pool cell for a parsed literal value.
// Char literals (Go rune) are stored as their bare ordinal: value.StringChar
// is a borrow-only kind (SetStringReference needs a backing cell to point
// into), so it has no freestanding literal form, and value.NewAuto has no
// case for rune. The declared type stays StringChar throughout type
// inference; only the constant-pool representation differs.
func literalCell(v interface{}) value.Cell {
	if r, ok := v.(rune); ok {
		c := value.New(value.Uint8)
		c.Set(int64(r), value.Coerce)
		return c
	}
	return value.NewAuto(v)
}

func (cg *CodeGen) VisitUnaryExpr(e *ast.UnaryExpr) interface{} {
	t := cg.compileExpr(e.Operand)
	var op bytecode.UnOp
	switch e.Operator {
	case "-":
		op = bytecode.UMinus
	case "not":
		op = bytecode.UNot
	default:
		op = bytecode.UPlus
	}
	cg.emit(e.Loc(), bytecode.OpUnOp, int32(op), int32(t.ScalarKind()))
	return t
}

func binOpFor(operator string, operand types.RefType) bytecode.BinOp {
	switch operator {
	case "+":
		return bytecode.Plus
	case "-":
		return bytecode.Minus
	case "*":
		return bytecode.Mul
	case "/":
		return bytecode.Div
	case "div":
		return bytecode.IDiv
	case "mod":
		return bytecode.Mod
	case "and":
		if operand.Type != nil && operand.Type.IsBoolean() {
			return bytecode.AndLog
		}
		return bytecode.AndBin
	case "or":
		if operand.Type != nil && operand.Type.IsBoolean() {
			return bytecode.OrLog
		}
		return bytecode.OrBin
	case "xor":
		return bytecode.XorBin
	case "shl":
		return bytecode.Shl
	case "shr":
		return bytecode.Shr
	case "=":
		return bytecode.Eq
	case "<>":
		return bytecode.Ne
	case "<":
		return bytecode.Lt
	case ">":
		return bytecode.Gt
	case "<=":
		return bytecode.Le
	case ">=":
		return bytecode.Ge
	case "in":
		return bytecode.In
	}
	return bytecode.Plus
}

// VisitBinaryExpr compiles a + b. Scalar/string operands (the common
// case, including comparisons) go through BINOP. Whole-value equality on
// multi-cell operands (arrays, class instances) goes through CMPS
// instead, which compares cell-by-cell rather than coercing to one
// scalar BinOp.
func (cg *CodeGen) VisitBinaryExpr(e *ast.BinaryExpr) interface{} {
	leftType := cg.compileExpr(e.Left)
	cg.compileExpr(e.Right)
	result := cg.infer.InferExpr(e)
	op := binOpFor(e.Operator, leftType)
	if op.IsComparison() && leftType.ByteSize() > 1 {
		flags := int32(bytecode.MovsNone)
		if op == bytecode.Ne {
			flags = int32(bytecode.MovsNegate)
		}
		cg.emit(e.Loc(), bytecode.OpCmps, flags, int32(leftType.ByteSize()))
		return result
	}
	cg.emit(e.Loc(), bytecode.OpBinOp, int32(op), int32(result.ScalarKind()))
	return result
}

func (cg *CodeGen) VisitSetExpr(e *ast.SetLiteralExpr) interface{} {
	cg.errorf(e.Loc(), "set literals are not supported")
	return cg.undefined()
}

// --- designators: every node below returns *symtab.MetaObj ---

// VisitIdentExpr looks name up against an explicit with-object class
// first (innermost first), then against the enclosing method's self (if
// any) and the ordinary scope chain.
func (cg *CodeGen) VisitIdentExpr(e *ast.IdentExpr) interface{} {
	for i := len(cg.withStack) - 1; i >= 0; i-- {
		wm := symtab.NewMetaObj(cg.tab)
		wm.WrapperClass = cg.withStack[i]
		if wm.FindAny(e.Name, symtab.FindAllObject) {
			cg.emitVarRef(e.Loc(), cg.withVars[i])
			cg.emitAddref(e.Loc(), int32(wm.FieldOffset))
			return wm
		}
	}

	meta := symtab.NewMetaObj(cg.tab)
	meta.SetClassObj(cg.tab.VarClass("self"))
	if !meta.FindAny(e.Name, symtab.FindAllGlobal) {
		cg.errorf(e.Loc(), "undefined identifier: %s", e.Name)
		return meta
	}
	switch meta.Kind {
	case symtab.MetaVar:
		cg.emitVarRef(e.Loc(), meta.VarObj)
	case symtab.MetaUnnamedVar:
		// resolved as an implicit field of self (bare name inside a method)
		cg.emitVarRef(e.Loc(), cg.tab.FindSelfVar())
		cg.emitAddref(e.Loc(), int32(meta.FieldOffset))
	}
	return meta
}

func (cg *CodeGen) VisitFieldExpr(e *ast.FieldExpr) interface{} {
	meta := cg.compileDesignator(e.Object)
	if !meta.DoAccess() {
		cg.errorf(e.Loc(), "'.' requires a class-valued operand")
		return meta
	}
	if meta.FindMethod(e.Name) {
		return meta
	}
	if meta.FindField(e.Name) {
		cg.emitAddref(e.Loc(), int32(meta.FieldOffset))
		return meta
	}
	cg.errorf(e.Loc(), "undefined field or method: %s", e.Name)
	return meta
}

func (cg *CodeGen) VisitIndexExpr(e *ast.IndexExpr) interface{} {
	meta := cg.compileDesignator(e.Object)
	t := meta.Type()
	if t.Type != nil && t.Type.Category == types.Array {
		elemSize := int32(t.Type.Elem().ByteSize())
		low := t.Type.ArrayLow
		cg.compileExpr(e.Index)
		meta.DoIndex()
		cg.emit(e.Loc(), bytecode.OpIdx, elemSize, int32(low))
		return meta
	}
	if t.Type != nil && t.Type.Category == types.Scalar && t.Type.ScalarKind == value.String {
		cg.compileExpr(e.Index)
		meta.DoIndexStr()
		cg.emit(e.Loc(), bytecode.OpIdxStr)
		return meta
	}
	cg.errorf(e.Loc(), "'[...]' requires an array or string operand")
	return meta
}

func (cg *CodeGen) VisitDerefExpr(e *ast.DerefExpr) interface{} {
	meta := cg.compileDesignator(e.Operand)
	if !meta.DoDeref() {
		cg.errorf(e.Loc(), "'^' requires a pointer operand")
		return meta
	}
	cg.emit(e.Loc(), bytecode.OpDeref, 1)
	return meta
}

// VisitAddressOfExpr compiles @x. The reference compileDesignator(x)
// already left on the stack is itself the pointer value @x produces
// (both are a value.Cell encoding a Container/Index pair), so no
// additional instruction is needed: DoAddress just retags the cursor as
// a non-reference value so compileExpr skips the trailing DEREF.
func (cg *CodeGen) VisitAddressOfExpr(e *ast.AddressOfExpr) interface{} {
	meta := cg.compileDesignator(e.Operand)
	if !meta.DoAddress() {
		cg.errorf(e.Loc(), "cannot take the address of a literal")
	}
	return meta
}

func (cg *CodeGen) VisitCallExpr(e *ast.CallExpr) interface{} {
	if id, ok := e.Callee.(*ast.IdentExpr); ok {
		if cg.tab.FindClass(id.Name) != nil && cg.tab.FindFunc(id.Name) == nil {
			cg.errorf(e.Loc(), "class construction via a call expression is not supported; declare a variable instead")
			return symtab.NewMetaObj(cg.tab)
		}
	}

	var meta *symtab.MetaObj
	var fn *symtab.FuncObj
	isMethod := false
	switch callee := e.Callee.(type) {
	case *ast.FieldExpr:
		objMeta := cg.compileDesignator(callee.Object)
		if !objMeta.DoAccess() || !objMeta.FindMethod(callee.Name) {
			cg.errorf(e.Loc(), "undefined method: %s", callee.Name)
			return objMeta
		}
		meta, fn, isMethod = objMeta, objMeta.FuncObj, true
	case *ast.IdentExpr:
		meta = symtab.NewMetaObj(cg.tab)
		if !meta.FindFunction(callee.Name) {
			cg.errorf(e.Loc(), "undefined function: %s", callee.Name)
			return meta
		}
		fn = meta.FuncObj
	default:
		cg.errorf(e.Loc(), "expression is not callable")
		return symtab.NewMetaObj(cg.tab)
	}

	fnArgs := fn.Args
	argsSize := int32(0)
	if isMethod {
		argsSize = 1 // `self` reference already pushed by compileDesignator(callee.Object)
		fnArgs = fn.Args[1:]
	}
	for i, arg := range e.Args {
		if i < len(fnArgs) && fnArgs[i].ByRef {
			cg.compileDesignator(arg)
			argsSize++
			continue
		}
		t := cg.compileExpr(arg)
		argsSize += int32(t.ByteSize())
	}

	retSize := int32(fn.ReturnSize())
	if fn.External {
		cg.emit(e.Loc(), bytecode.OpCallExt, cg.externalIndexFor(fn.Name()), argsSize, retSize)
	} else {
		ip := cg.emit(e.Loc(), bytecode.OpCall, 0, argsSize, retSize, 1)
		cg.pendingCalls = append(cg.pendingCalls, pendingCall{ip: ip, name: fn.FullName})
	}
	meta.DoCall()
	return meta
}

// resolvePendingCalls patches every OpCall emitted before its callee's
// entry address was known, once the whole program has been compiled.
func (cg *CodeGen) resolvePendingCalls() {
	for _, pc := range cg.pendingCalls {
		addr, ok := cg.funcAddr[pc.name]
		if !ok {
			cg.errorf(ast.Pos{}, "undefined function body: %s", pc.name)
			continue
		}
		cg.chunk.Code[pc.ip].Args[0] = int32(addr)
	}
}
