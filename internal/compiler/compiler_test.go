package compiler

import (
	"testing"

	"pascalvm/internal/bytecode"
	"pascalvm/internal/errors"
	"pascalvm/internal/lexer"
	"pascalvm/internal/parser"
	"pascalvm/internal/symtab"
	"pascalvm/internal/typeinfer"
	"pascalvm/internal/types"
)

// compileSource runs source through the full lexer/parser/symtab/
// typeinfer/compiler pipeline and returns the compiled chunk plus the
// diagnostics accumulated along the way.
func compileSource(t *testing.T, source string) (*bytecode.Chunk, *errors.Diagnostics) {
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
	cg := New(tab, infer, diags, "test.pas")
	chunk := cg.CompileProgram(prog)
	return chunk, diags
}

func requireNoErrors(t *testing.T, diags *errors.Diagnostics) {
	t.Helper()
	if !diags.OK() {
		t.Fatalf("unexpected diagnostics: %v", diags.Strings())
	}
}

func TestCompileSimpleAssignmentAndWrite(t *testing.T) {
	src := `program P;
var x: integer;
begin
  x := 1 + 2;
  writeln(x);
end.`
	chunk, diags := compileSource(t, src)
	requireNoErrors(t, diags)

	var ops []bytecode.OpCode
	for _, in := range chunk.Code {
		ops = append(ops, in.Op)
	}
	last := ops[len(ops)-1]
	if last != bytecode.OpExit {
		t.Fatalf("expected chunk to end with EXIT, got %s", last)
	}

	sawMovs, sawWrt := false, false
	for _, op := range ops {
		if op == bytecode.OpMovs {
			sawMovs = true
		}
		if op == bytecode.OpWrt {
			sawWrt = true
		}
	}
	if !sawMovs || !sawWrt {
		t.Fatalf("expected MOVS and WRT in %v", ops)
	}
}

func TestCompileBinaryExprUsesBinOp(t *testing.T) {
	src := `program P;
var x: integer;
begin
  x := 1 + 2 * 3;
end.`
	chunk, diags := compileSource(t, src)
	requireNoErrors(t, diags)

	count := 0
	for _, in := range chunk.Code {
		if in.Op == bytecode.OpBinOp {
			count++
		}
	}
	if count != 2 {
		t.Fatalf("expected 2 BINOP instructions (+ and *), got %d", count)
	}
}

func TestCompileUndefinedIdentifierReportsDiagnostic(t *testing.T) {
	src := `program P;
begin
  y := 1;
end.`
	_, diags := compileSource(t, src)
	if diags.OK() {
		t.Fatal("expected an undefined-identifier diagnostic")
	}
}

func TestCompileIfElseJumpsArePatched(t *testing.T) {
	src := `program P;
var x: integer;
begin
  if x > 0 then
    x := 1
  else
    x := 2;
end.`
	chunk, diags := compileSource(t, src)
	requireNoErrors(t, diags)

	for i, in := range chunk.Code {
		switch in.Op {
		case bytecode.OpFJmp, bytecode.OpJmp:
			if int(in.Args[0]) <= i {
				t.Fatalf("jump at %d targets %d, expected a forward address", i, in.Args[0])
			}
			if int(in.Args[0]) > len(chunk.Code) {
				t.Fatalf("jump at %d targets %d, past the end of the chunk (%d instructions)", i, in.Args[0], len(chunk.Code))
			}
		}
	}
}

func TestCompileCharLiteralUsesUint8Constant(t *testing.T) {
	src := `program P;
var c: char;
begin
  c := 'x';
end.`
	chunk, diags := compileSource(t, src)
	requireNoErrors(t, diags)

	found := false
	for _, in := range chunk.Code {
		if in.Op == bytecode.OpPush {
			cell := chunk.Constants[in.Args[0]]
			if cell.Int64() == int64('x') {
				found = true
			}
		}
	}
	if !found {
		t.Fatal("expected the char literal to round-trip through the constant pool as its ordinal value")
	}
}
