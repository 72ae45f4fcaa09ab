package vm

import (
	"bytes"
	"strings"
	"testing"

	"pascalvm/internal/compiler"
	"pascalvm/internal/errors"
	"pascalvm/internal/lexer"
	"pascalvm/internal/parser"
	"pascalvm/internal/symtab"
	"pascalvm/internal/typeinfer"
	"pascalvm/internal/types"
)

// compileAndRun runs source through the full front end and then executes
// the resulting chunk, returning whatever write/writeln printed.
func compileAndRun(t *testing.T, source string) string {
	t.Helper()
	diags := &errors.Diagnostics{}
	tokens := lexer.NewScanner(source).ScanTokens()
	p := parser.New(tokens, "test.pas", source)
	prog, err := p.ParseProgram()
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	model := types.NewModel()
	tab := symtab.New(model, diags, "test.pas")
	infer := typeinfer.New(tab, diags, "test.pas")
	cg := compiler.New(tab, infer, diags, "test.pas")
	chunk := cg.CompileProgram(prog)
	if !diags.OK() {
		t.Fatalf("unexpected diagnostics: %v", diags.Strings())
	}

	machine := NewVM(chunk, cg.ExternalNames())
	var out bytes.Buffer
	machine.SetOutput(&out)
	if err := machine.Run(); err != nil {
		t.Fatalf("runtime error: %v", err)
	}
	return out.String()
}

func TestRunArithmeticAndWrite(t *testing.T) {
	src := `program P;
var x: integer;
begin
  x := 1 + 2 * 3;
  writeln(x);
end.`
	got := strings.TrimRight(compileAndRun(t, src), "\n")
	if got != "7" {
		t.Fatalf("got %q, want 7", got)
	}
}

func TestRunIfElseTakesCorrectBranch(t *testing.T) {
	src := `program P;
var x: integer;
begin
  x := 5;
  if x > 3 then
    writeln('big')
  else
    writeln('small');
end.`
	got := strings.TrimRight(compileAndRun(t, src), "\n")
	if got != "big" {
		t.Fatalf("got %q, want big", got)
	}
}

func TestRunWhileLoopAccumulates(t *testing.T) {
	src := `program P;
var i, total: integer;
begin
  i := 1;
  total := 0;
  while i <= 5 do begin
    total := total + i;
    i := i + 1;
  end;
  writeln(total);
end.`
	got := strings.TrimRight(compileAndRun(t, src), "\n")
	if got != "15" {
		t.Fatalf("got %q, want 15", got)
	}
}

func TestRunForLoopSum(t *testing.T) {
	src := `program P;
var i, total: integer;
begin
  total := 0;
  for i := 1 to 10 do
    total := total + i;
  writeln(total);
end.`
	got := strings.TrimRight(compileAndRun(t, src), "\n")
	if got != "55" {
		t.Fatalf("got %q, want 55", got)
	}
}

func TestRunBreakContinueSkipAndStop(t *testing.T) {
	src := `program P;
var i, total: integer;
begin
  i := 0;
  total := 0;
  while i < 10 do begin
    i := i + 1;
    if i = 3 then
      continue;
    if i = 7 then
      break;
    total := total + i;
  end;
  writeln(total);
end.`
	// 1+2+4+5+6 = 18 (3 skipped via continue, loop stops before adding 7)
	got := strings.TrimRight(compileAndRun(t, src), "\n")
	if got != "18" {
		t.Fatalf("got %q, want 18", got)
	}
}

func TestRunRecursiveFunctionCall(t *testing.T) {
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
  writeln(x);
end.`
	got := strings.TrimRight(compileAndRun(t, src), "\n")
	if got != "120" {
		t.Fatalf("got %q, want 120", got)
	}
}

func TestRunByRefParameterMutatesCaller(t *testing.T) {
	src := `program P;
procedure Inc2(var n: integer);
begin
  n := n + 2;
end;

var x: integer;
begin
  x := 10;
  Inc2(x);
  writeln(x);
end.`
	got := strings.TrimRight(compileAndRun(t, src), "\n")
	if got != "12" {
		t.Fatalf("got %q, want 12", got)
	}
}

// TestRunMethodCallMutatesSelfField uses a two-field class so a method's
// synthetic `self` argument has ByteSize() > 1: if DeclareFunc ever went
// back to sizing a by-ref argument's frame slot from its pointee type
// instead of forcing 1 cell, `self` would claim two addresses here and
// every local declared after it in the method's frame would land one cell
// off from where the caller's pushed reference actually put it.
func TestRunMethodCallMutatesSelfField(t *testing.T) {
	src := `program P;
type
  TCounter = class
    value: integer;
    step: integer;
    procedure Bump;
    var extra: integer;
    begin
      extra := step;
      value := value + extra;
    end;
  end;

var c: TCounter;
begin
  c.value := 41;
  c.step := 1;
  c.Bump();
  writeln(c.value);
end.`
	got := strings.TrimRight(compileAndRun(t, src), "\n")
	if got != "42" {
		t.Fatalf("got %q, want 42", got)
	}
}

func TestRunArrayIndexingReadsAndWrites(t *testing.T) {
	src := `program P;
var a: array[1..3] of integer;
begin
  a[1] := 10;
  a[2] := 20;
  a[3] := a[1] + a[2];
  writeln(a[3]);
end.`
	got := strings.TrimRight(compileAndRun(t, src), "\n")
	if got != "30" {
		t.Fatalf("got %q, want 30", got)
	}
}

func TestRunStringIndexingReadsCharacter(t *testing.T) {
	src := `program P;
var s: string;
begin
  s := 'hello';
  writeln(s[1]);
end.`
	got := strings.TrimRight(compileAndRun(t, src), "\n")
	if got != "h" {
		t.Fatalf("got %q, want h", got)
	}
}

func TestRunCaseStmtMatchesArm(t *testing.T) {
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
  writeln(y);
end.`
	got := strings.TrimRight(compileAndRun(t, src), "\n")
	if got != "20" {
		t.Fatalf("got %q, want 20", got)
	}
}
