package compiler

import (
	"pascalvm/internal/ast"
	"pascalvm/internal/bytecode"
	"pascalvm/internal/symtab"
	"pascalvm/internal/value"
)

func (cg *CodeGen) VisitCompoundStmt(s *ast.CompoundStmt) interface{} {
	for _, stmt := range s.Stmts {
		stmt.Accept(cg)
	}
	return nil
}

func (cg *CodeGen) VisitExprStmt(s *ast.ExprStmt) interface{} {
	// A bare call used as a statement: compile it and discard any result
	// it left behind (a procedure call leaves nothing; a function call's
	// value is simply unused).
	meta := cg.compileDesignator(s.X)
	if call, ok := s.X.(*ast.CallExpr); ok {
		_ = call
		if meta.Type().ByteSize() > 0 && !meta.IsRef {
			cg.emit(s.Loc(), bytecode.OpPop, int32(meta.Type().ByteSize()))
		}
		return nil
	}
	if meta.IsRef {
		cg.emit(s.Loc(), bytecode.OpPop, 1)
	}
	return nil
}

// VisitAssignStmt compiles Target := Value. The target is walked as a
// designator (its reference, not its value, is what MOVS needs); the
// value is compiled as an ordinary rvalue.
func (cg *CodeGen) VisitAssignStmt(s *ast.AssignStmt) interface{} {
	targetMeta := cg.compileDesignator(s.Target)
	targetType := targetMeta.Type()
	if targetMeta.Kind == symtab.MetaVar && targetMeta.VarObj.Const {
		cg.errorf(s.Loc(), "cannot assign to constant %s", targetMeta.VarObj.Name())
	}
	if !targetMeta.IsRef {
		cg.errorf(s.Loc(), "left side of ':=' is not assignable")
	}
	valueType := cg.compileExpr(s.Value)
	if targetType.ByteSize() != valueType.ByteSize() {
		cg.errorf(s.Loc(), "cannot assign %s to %s: incompatible size", valueType.Type.Description(), targetType.Type.Description())
	}
	cg.emit(s.Loc(), bytecode.OpMovs, int32(bytecode.MovsLeftRef), int32(targetType.ByteSize()))
	return nil
}

// VisitIfStmt emits: Cond, FJMP else/end, Then, [JMP end, else:, Else], end:
func (cg *CodeGen) VisitIfStmt(s *ast.IfStmt) interface{} {
	cg.compileExpr(s.Cond)
	fjmp := cg.emit(s.Loc(), bytecode.OpFJmp, 0)
	s.Then.Accept(cg)
	if s.Else == nil {
		cg.chunk.Patch(fjmp, int32(cg.chunk.Len()))
		return nil
	}
	jmp := cg.emit(s.Loc(), bytecode.OpJmp, 0)
	cg.chunk.Patch(fjmp, int32(cg.chunk.Len()))
	s.Else.Accept(cg)
	cg.chunk.Patch(jmp, int32(cg.chunk.Len()))
	return nil
}

// pushLoop opens a fresh break/continue patch list for the loop about to
// be compiled.
func (cg *CodeGen) pushLoop() *loopCtx {
	lc := &loopCtx{}
	cg.loops = append(cg.loops, lc)
	return lc
}

// popLoop patches every BREAK to breakTarget and every CONTINUE to
// continueTarget, then pops the loop context.
func (cg *CodeGen) popLoop(breakTarget, continueTarget int32) {
	n := len(cg.loops)
	lc := cg.loops[n-1]
	cg.loops = cg.loops[:n-1]
	for _, ip := range lc.breaks {
		cg.chunk.Patch(ip, breakTarget)
	}
	for _, ip := range lc.continues {
		cg.chunk.Patch(ip, continueTarget)
	}
}

// VisitWhileStmt emits: test:, Cond, FJMP end, Body, JMP test, end:
func (cg *CodeGen) VisitWhileStmt(s *ast.WhileStmt) interface{} {
	cg.pushLoop()
	testIP := int32(cg.chunk.Len())
	cg.compileExpr(s.Cond)
	fjmp := cg.emit(s.Loc(), bytecode.OpFJmp, 0)
	s.Body.Accept(cg)
	cg.emit(s.Loc(), bytecode.OpJmp, testIP)
	endIP := int32(cg.chunk.Len())
	cg.chunk.Patch(fjmp, endIP)
	cg.popLoop(endIP, testIP)
	return nil
}

// VisitRepeatStmt emits: body:, Stmts, Cond, FJMP body, end:
// continue jumps re-test Cond (the loop repeats until Cond holds), so
// CONTINUE targets the condition, not the top of the body.
func (cg *CodeGen) VisitRepeatStmt(s *ast.RepeatStmt) interface{} {
	cg.pushLoop()
	bodyIP := int32(cg.chunk.Len())
	for _, stmt := range s.Stmts {
		stmt.Accept(cg)
	}
	condIP := int32(cg.chunk.Len())
	cg.compileExpr(s.Cond)
	cg.emit(s.Loc(), bytecode.OpFJmp, bodyIP)
	endIP := int32(cg.chunk.Len())
	cg.popLoop(endIP, condIP)
	return nil
}

// VisitForStmt desugars `for v := Start to/downto Stop do Body` into the
// while-loop shape: v := Start; while v <= Stop (or
// v >= Stop for downto) do { Body; inc/dec v }. CONTINUE re-enters at the
// increment step, not the top-of-loop test, since the increment must
// still run before the next test.
func (cg *CodeGen) VisitForStmt(s *ast.ForStmt) interface{} {
	loopVar := cg.tab.FindVar(s.Var, nil)
	if loopVar == nil {
		cg.errorf(s.Loc(), "undefined identifier: %s", s.Var)
		return nil
	}

	cg.emitVarRef(s.Loc(), loopVar)
	cg.compileExpr(s.Start)
	cg.emit(s.Loc(), bytecode.OpMovs, int32(bytecode.MovsLeftRef), int32(loopVar.MemorySize))

	cg.pushLoop()
	testIP := int32(cg.chunk.Len())
	cg.emitVarRef(s.Loc(), loopVar)
	cg.emit(s.Loc(), bytecode.OpDeref, int32(loopVar.MemorySize))
	cg.compileExpr(s.Stop)
	op := bytecode.Le
	if s.Down {
		op = bytecode.Ge
	}
	cg.emit(s.Loc(), bytecode.OpBinOp, int32(op), int32(loopVar.Type.ScalarKind()))
	fjmp := cg.emit(s.Loc(), bytecode.OpFJmp, 0)

	s.Body.Accept(cg)

	stepIP := int32(cg.chunk.Len())
	cg.emitVarRef(s.Loc(), loopVar)
	cg.emitVarRef(s.Loc(), loopVar)
	cg.emit(s.Loc(), bytecode.OpDeref, int32(loopVar.MemorySize))
	one := cg.chunk.AddConstant(onePerKind(loopVar.Type.ScalarKind()))
	cg.emit(s.Loc(), bytecode.OpPush, int32(one), 1)
	stepOp := bytecode.Plus
	if s.Down {
		stepOp = bytecode.Minus
	}
	cg.emit(s.Loc(), bytecode.OpBinOp, int32(stepOp), int32(loopVar.Type.ScalarKind()))
	cg.emit(s.Loc(), bytecode.OpMovs, int32(bytecode.MovsLeftRef), int32(loopVar.MemorySize))
	cg.emit(s.Loc(), bytecode.OpJmp, testIP)

	endIP := int32(cg.chunk.Len())
	cg.chunk.Patch(fjmp, endIP)
	cg.popLoop(endIP, stepIP)
	return nil
}

func onePerKind(k value.Kind) value.Cell {
	if k.IsFloat() {
		return value.NewAuto(float64(1))
	}
	return value.NewAuto(int64(1))
}

func (cg *CodeGen) VisitBreakStmt(s *ast.BreakStmt) interface{} {
	if len(cg.loops) == 0 {
		cg.errorf(s.Loc(), "break outside a loop")
		return nil
	}
	lc := cg.loops[len(cg.loops)-1]
	lc.breaks = append(lc.breaks, cg.emit(s.Loc(), bytecode.OpJmp, 0))
	return nil
}

func (cg *CodeGen) VisitContinueStmt(s *ast.ContinueStmt) interface{} {
	if len(cg.loops) == 0 {
		cg.errorf(s.Loc(), "continue outside a loop")
		return nil
	}
	lc := cg.loops[len(cg.loops)-1]
	lc.continues = append(lc.continues, cg.emit(s.Loc(), bytecode.OpJmp, 0))
	return nil
}

// VisitCaseStmt stores the selector in a hidden temporary and compiles a
// chain of selector = label comparisons: one TJMP per label into its arm's
// body, and a JMP past the arm when none of its labels match. Each arm
// body ends with a JMP to the end of the statement; the else clause (or
// nothing) runs when no label matches.
func (cg *CodeGen) VisitCaseStmt(s *ast.CaseStmt) interface{} {
	selType := cg.infer.InferExpr(s.Selector)
	selTmp := cg.tab.DeclareVar(s.Loc().Line, s.Loc().Column, caseTempName(s), selType, false)
	if selTmp == nil {
		return nil
	}
	cg.emitVarRef(s.Loc(), selTmp)
	cg.compileExpr(s.Selector)
	cg.emit(s.Loc(), bytecode.OpMovs, int32(bytecode.MovsLeftRef), int32(selTmp.MemorySize))

	var endJumps []int
	for _, arm := range s.Arms {
		// one label match is enough to run the arm: each label test that
		// comes back true jumps straight to armStart, skipping the rest
		var labelMatchJumps []int
		for _, label := range arm.Labels {
			cg.emitVarRef(s.Loc(), selTmp)
			cg.emit(s.Loc(), bytecode.OpDeref, int32(selTmp.MemorySize))
			cg.compileExpr(label)
			cg.emit(s.Loc(), bytecode.OpBinOp, int32(bytecode.Eq), int32(selTmp.Type.ScalarKind()))
			labelMatchJumps = append(labelMatchJumps, cg.emit(s.Loc(), bytecode.OpTJmp, 0))
		}
		skip := cg.emit(s.Loc(), bytecode.OpJmp, 0)
		armStart := int32(cg.chunk.Len())
		for _, ip := range labelMatchJumps {
			cg.chunk.Patch(ip, armStart)
		}
		arm.Body.Accept(cg)
		endJumps = append(endJumps, cg.emit(s.Loc(), bytecode.OpJmp, 0))
		cg.chunk.Patch(skip, int32(cg.chunk.Len()))
	}
	if s.Default != nil {
		s.Default.Accept(cg)
	}
	endIP := int32(cg.chunk.Len())
	for _, ip := range endJumps {
		cg.chunk.Patch(ip, endIP)
	}
	return nil
}

var caseTempCounter int

func caseTempName(s *ast.CaseStmt) string {
	caseTempCounter++
	return caseSelectorPrefix + itoa(caseTempCounter)
}

const caseSelectorPrefix = "$case_selector$"

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := [20]byte{}
	i := len(digits)
	for n > 0 {
		i--
		digits[i] = byte('0' + n%10)
		n /= 10
	}
	return string(digits[i:])
}

// VisitWithStmt pushes Record's class onto the with-stack so bare
// identifiers inside Body resolve as its fields/methods first, mirroring
// MetaObj's WrapperClass shadowing.
func (cg *CodeGen) VisitWithStmt(s *ast.WithStmt) interface{} {
	meta := cg.compileDesignator(s.Record)
	t := meta.Type()
	if t.Type == nil || !t.Type.IsClass() {
		cg.errorf(s.Loc(), "'with' requires a class-valued operand")
		s.Body.Accept(cg)
		return nil
	}
	cls := cg.tab.FindClass(t.Type.Alias)
	tmp := cg.tab.DeclareVar(s.Loc().Line, s.Loc().Column, withTempName(), t, false)
	if tmp == nil || cls == nil {
		s.Body.Accept(cg)
		return nil
	}
	cg.emitVarRef(s.Loc(), tmp)
	cg.emit(s.Loc(), bytecode.OpMovs, int32(bytecode.MovsLeftRef), int32(tmp.MemorySize))

	cg.withStack = append(cg.withStack, cls)
	cg.withVars = append(cg.withVars, tmp)
	s.Body.Accept(cg)
	cg.withStack = cg.withStack[:len(cg.withStack)-1]
	cg.withVars = cg.withVars[:len(cg.withVars)-1]
	return nil
}

var withTempCounter int

func withTempName() string {
	withTempCounter++
	return "$with$" + itoa(withTempCounter)
}

// VisitWriteStmt compiles write/writeln(args...): each argument leaves
// its value(s) on the stack, WRT prints and pops them. Only the final
// WRT carries the newline flag, matching how writeln(a, b) prints one
// trailing newline rather than one per argument.
func (cg *CodeGen) VisitWriteStmt(s *ast.WriteStmt) interface{} {
	for i, arg := range s.Args {
		t := cg.compileExpr(arg)
		nl := int32(0)
		if s.Newline && i == len(s.Args)-1 {
			nl = 1
		}
		cg.emit(arg.Loc(), bytecode.OpWrt, int32(t.ByteSize()), nl)
	}
	if len(s.Args) == 0 && s.Newline {
		cg.emit(s.Loc(), bytecode.OpWrt, 0, 1)
	}
	return nil
}

func (cg *CodeGen) VisitGotoStmt(s *ast.GotoStmt) interface{} {
	name := lowerLabel(s.Label)
	if ip, ok := cg.labels[name]; ok {
		cg.emit(s.Loc(), bytecode.OpJmp, int32(ip))
		return nil
	}
	jmp := cg.emit(s.Loc(), bytecode.OpJmp, 0)
	cg.pendingLabels[name] = append(cg.pendingLabels[name], jmp)
	return nil
}

func (cg *CodeGen) VisitLabelStmt(s *ast.LabelStmt) interface{} {
	name := lowerLabel(s.Name)
	target := int32(cg.chunk.Len())
	cg.labels[name] = cg.chunk.Len()
	for _, ip := range cg.pendingLabels[name] {
		cg.chunk.Patch(ip, target)
	}
	delete(cg.pendingLabels, name)
	s.Stmt.Accept(cg)
	return nil
}

func lowerLabel(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}

// VisitTryStmt and VisitRaiseStmt: this toolchain's VM has no unwind
// mechanism (no call-stack frame marker for an active handler, no
// exception-object representation): no exception opcodes exist. try/except and
// raise compile to plain sequential execution of their statement lists;
// a raised value is simply dropped rather than transferring control,
// which is flagged as an accepted gap rather than a silent miscompile.
func (cg *CodeGen) VisitTryStmt(s *ast.TryStmt) interface{} {
	cg.errorf(s.Loc(), "try/except/finally has no bytecode implementation; statements run sequentially with no unwind")
	for _, stmt := range s.Body {
		stmt.Accept(cg)
	}
	for _, stmt := range s.ExceptBody {
		stmt.Accept(cg)
	}
	for _, stmt := range s.FinallyBody {
		stmt.Accept(cg)
	}
	return nil
}

func (cg *CodeGen) VisitRaiseStmt(s *ast.RaiseStmt) interface{} {
	cg.errorf(s.Loc(), "raise has no bytecode implementation")
	if s.Value != nil {
		t := cg.compileExpr(s.Value)
		if t.ByteSize() > 0 {
			cg.emit(s.Loc(), bytecode.OpPop, int32(t.ByteSize()))
		}
	}
	return nil
}
