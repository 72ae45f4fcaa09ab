package compiler

import (
	"testing"

	"pascalvm/internal/bytecode"
)

func TestCompileForLoopStepsAndPatchesJumps(t *testing.T) {
	src := `program P;
var i, total: integer;
begin
  total := 0;
  for i := 1 to 10 do
    total := total + i;
end.`
	chunk, diags := compileSource(t, src)
	requireNoErrors(t, diags)

	var jmps, fjmps int
	for _, in := range chunk.Code {
		switch in.Op {
		case bytecode.OpJmp:
			jmps++
		case bytecode.OpFJmp:
			fjmps++
		}
	}
	if jmps == 0 || fjmps == 0 {
		t.Fatalf("expected both JMP (back-edge) and FJMP (exit test) in a for loop, got jmps=%d fjmps=%d", jmps, fjmps)
	}
}

func TestCompileBreakContinueLeaveNoDanglingJump(t *testing.T) {
	src := `program P;
var i: integer;
begin
  i := 0;
  while i < 10 do begin
    i := i + 1;
    if i = 5 then
      continue;
    if i = 8 then
      break;
  end;
end.`
	chunk, diags := compileSource(t, src)
	requireNoErrors(t, diags)

	for idx, in := range chunk.Code {
		if in.Op == bytecode.OpJmp || in.Op == bytecode.OpFJmp || in.Op == bytecode.OpTJmp {
			if in.Args[0] == 0 && idx != 0 {
				t.Fatalf("instruction %d (%s) still has an unpatched zero jump target", idx, in.Op)
			}
		}
	}
}

func TestCompileCaseStmtEmitsOneEqualityTestPerLabel(t *testing.T) {
	src := `program P;
var x, y: integer;
begin
  x := 2;
  case x of
    1: y := 10;
    2: y := 20;
  else
    y := 0;
  end;
end.`
	chunk, diags := compileSource(t, src)
	requireNoErrors(t, diags)

	count := 0
	for _, in := range chunk.Code {
		if in.Op == bytecode.OpBinOp && bytecode.BinOp(in.Args[0]) == bytecode.Eq {
			count++
		}
	}
	if count != 2 {
		t.Fatalf("expected 2 label-equality tests (one per case arm), got %d", count)
	}
}

func TestCompileRepeatUntilTestsAfterBody(t *testing.T) {
	src := `program P;
var i: integer;
begin
  i := 0;
  repeat
    i := i + 1;
  until i >= 5;
end.`
	chunk, diags := compileSource(t, src)
	requireNoErrors(t, diags)

	sawFjmp := false
	for _, in := range chunk.Code {
		if in.Op == bytecode.OpFJmp {
			sawFjmp = true
		}
	}
	if !sawFjmp {
		t.Fatal("expected repeat/until to compile a conditional back-edge")
	}
}
