package compiler

import (
	"testing"

	"pascalvm/internal/bytecode"
)

func TestCompileFunctionCallResolvesAfterForwardDeclaration(t *testing.T) {
	src := `program P;
function Double(n: integer): integer; forward;

var result: integer;

function Double(n: integer): integer;
begin
  result := n * 2;
end;

begin
  result := Double(21);
end.`
	chunk, diags := compileSource(t, src)
	requireNoErrors(t, diags)

	for _, in := range chunk.Code {
		if in.Op == bytecode.OpCall && in.Args[0] == 0 {
			t.Fatal("expected the forward-declared call's address to be patched to a non-zero entry point")
		}
	}
}

func TestCompileRecursiveFunctionResolvesOwnAddress(t *testing.T) {
	src := `program P;
function Fact(n: integer): integer;
begin
  if n <= 1 then
    result := 1
  else
    result := n * Fact(n - 1);
end;

var x: integer;
begin
  x := Fact(5);
end.`
	chunk, diags := compileSource(t, src)
	requireNoErrors(t, diags)

	calls := 0
	for _, in := range chunk.Code {
		if in.Op == bytecode.OpCall {
			calls++
			if in.Args[0] == 0 {
				t.Fatal("expected the recursive call's address to resolve, not stay at placeholder 0")
			}
		}
	}
	if calls != 2 {
		t.Fatalf("expected 2 CALL sites (recursive + top-level), got %d", calls)
	}
}

func TestCompileMethodCallPassesSelfAsFirstArgument(t *testing.T) {
	src := `program P;
type
  TCounter = class
    value: integer;
    procedure Bump;
    begin
      value := value + 1;
    end;
  end;

var c: TCounter;
begin
  c.Bump();
end.`
	chunk, diags := compileSource(t, src)
	requireNoErrors(t, diags)

	sawCall := false
	for _, in := range chunk.Code {
		if in.Op == bytecode.OpCall {
			sawCall = true
			if in.Args[1] < 1 {
				t.Fatalf("expected method call's args size to include the self cell, got %d", in.Args[1])
			}
		}
	}
	if !sawCall {
		t.Fatal("expected a CALL instruction for c.Bump")
	}
}

func TestCompileConstDeclEmitsInitializerAndAssignmentMoves(t *testing.T) {
	src := `program P;
const Limit = 100;
var x: integer;
begin
  x := Limit;
end.`
	chunk, diags := compileSource(t, src)
	requireNoErrors(t, diags)

	count := 0
	for _, in := range chunk.Code {
		if in.Op == bytecode.OpMovs {
			count++
		}
	}
	if count < 2 {
		t.Fatalf("expected at least 2 MOVS (const init + assignment), got %d", count)
	}
}

func TestCompileAssignToConstReportsDiagnostic(t *testing.T) {
	src := `program P;
const Limit = 100;
begin
  Limit := 5;
end.`
	_, diags := compileSource(t, src)
	if diags.OK() {
		t.Fatal("expected a diagnostic for assigning to a constant")
	}
}
