package parser

import (
	"testing"

	"pascalvm/internal/ast"
	"pascalvm/internal/lexer"
)

func parse(src string) (*ast.Program, error) {
	toks := lexer.NewScanner(src).ScanTokens()
	return New(toks, "test.pas", src).ParseProgram()
}

func parseST(src string) (*ast.STProgram, error) {
	toks := lexer.NewScanner(src).ScanTokens()
	return New(toks, "test.st", src).ParseSTProgram()
}

func TestParseEmptyProgram(t *testing.T) {
	prog, err := parse("program Empty; begin end.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if prog.Name != "Empty" {
		t.Fatalf("got name %q, want Empty", prog.Name)
	}
	if len(prog.Block.Body.Stmts) != 0 {
		t.Fatalf("expected empty body, got %d statements", len(prog.Block.Body.Stmts))
	}
}

func TestParseVarAndAssign(t *testing.T) {
	prog, err := parse(`program P;
var
  x: integer;
begin
  x := 1 + 2 * 3;
end.`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(prog.Block.Decls) != 1 {
		t.Fatalf("expected 1 decl, got %d", len(prog.Block.Decls))
	}
	vd, ok := prog.Block.Decls[0].(*ast.VarDecl)
	if !ok {
		t.Fatalf("expected *ast.VarDecl, got %T", prog.Block.Decls[0])
	}
	if len(vd.Names) != 1 || vd.Names[0] != "x" {
		t.Fatalf("got names %v", vd.Names)
	}
	stmt := prog.Block.Body.Stmts[0]
	as, ok := stmt.(*ast.AssignStmt)
	if !ok {
		t.Fatalf("expected *ast.AssignStmt, got %T", stmt)
	}
	bin, ok := as.Value.(*ast.BinaryExpr)
	if !ok {
		t.Fatalf("expected *ast.BinaryExpr, got %T", as.Value)
	}
	if bin.Operator != "+" {
		t.Fatalf("expected top-level '+', got %q (precedence climbing broken)", bin.Operator)
	}
	rhs, ok := bin.Right.(*ast.BinaryExpr)
	if !ok || rhs.Operator != "*" {
		t.Fatalf("expected '*' to bind tighter than '+', got %#v", bin.Right)
	}
}

func TestParseIfWhileFor(t *testing.T) {
	_, err := parse(`program P;
var i: integer;
begin
  if i > 0 then
    i := i - 1
  else
    i := 0;
  while i < 10 do
    i := i + 1;
  for i := 1 to 10 do
    i := i;
end.`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestParseClassDecl(t *testing.T) {
	prog, err := parse(`program P;
type
  TPoint = class
    x, y: integer;
    procedure Move(dx, dy: integer);
  end;
begin
end.`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cd, ok := prog.Block.Decls[0].(*ast.ClassDecl)
	if !ok {
		t.Fatalf("expected *ast.ClassDecl, got %T", prog.Block.Decls[0])
	}
	if len(cd.Expr.Fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(cd.Expr.Fields))
	}
	if len(cd.Expr.Methods) != 1 || cd.Expr.Methods[0].Name != "Move" {
		t.Fatalf("expected method Move, got %#v", cd.Expr.Methods)
	}
}

func TestParseArrayAndIndex(t *testing.T) {
	prog, err := parse(`program P;
var a: array[0..9] of integer;
begin
  a[0] := a[1];
end.`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	vd := prog.Block.Decls[0].(*ast.VarDecl)
	at, ok := vd.Type.(*ast.ArrayTypeExpr)
	if !ok {
		t.Fatalf("expected *ast.ArrayTypeExpr, got %T", vd.Type)
	}
	_ = at
	as := prog.Block.Body.Stmts[0].(*ast.AssignStmt)
	if _, ok := as.Target.(*ast.IndexExpr); !ok {
		t.Fatalf("expected *ast.IndexExpr target, got %T", as.Target)
	}
}

func TestParseCaseStmt(t *testing.T) {
	prog, err := parse(`program P;
var x: integer;
begin
  case x of
    1: x := 10;
    2, 3: x := 20;
  else
    x := 0;
  end;
end.`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cs, ok := prog.Block.Body.Stmts[0].(*ast.CaseStmt)
	if !ok {
		t.Fatalf("expected *ast.CaseStmt, got %T", prog.Block.Body.Stmts[0])
	}
	if len(cs.Arms) != 2 {
		t.Fatalf("expected 2 arms, got %d", len(cs.Arms))
	}
	if cs.Default == nil {
		t.Fatal("expected else arm to set Default")
	}
}

func TestParseTryExceptAndFinally(t *testing.T) {
	prog, err := parse(`program P;
begin
  try
    raise;
  except
    writeln('caught');
  end;
  try
    writeln('a');
  finally
    writeln('b');
  end;
end.`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ts1 := prog.Block.Body.Stmts[0].(*ast.TryStmt)
	if len(ts1.ExceptBody) != 1 || ts1.FinallyBody != nil {
		t.Fatalf("expected except-only try, got %#v", ts1)
	}
	ts2 := prog.Block.Body.Stmts[1].(*ast.TryStmt)
	if len(ts2.FinallyBody) != 1 || ts2.ExceptBody != nil {
		t.Fatalf("expected finally-only try, got %#v", ts2)
	}
}

func TestParseProcAndFunc(t *testing.T) {
	prog, err := parse(`program P;
procedure Greet(name: string);
begin
  writeln(name);
end;
function Square(n: integer): integer;
begin
end;
begin
end.`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pd, ok := prog.Block.Decls[0].(*ast.ProcDecl)
	if !ok || pd.Name != "Greet" || len(pd.Params) != 1 {
		t.Fatalf("expected procedure Greet/1, got %#v", prog.Block.Decls[0])
	}
	fd, ok := prog.Block.Decls[1].(*ast.ProcDecl)
	if !ok || fd.Name != "Square" || fd.ReturnType == nil {
		t.Fatalf("expected function Square with return type, got %#v", prog.Block.Decls[1])
	}
}

func TestParseExternalAndForward(t *testing.T) {
	prog, err := parse(`program P;
function sqrt(x: float): float; external;
procedure helper(); forward;
begin
end.`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sq := prog.Block.Decls[0].(*ast.ProcDecl)
	if !sq.External || sq.Body != nil {
		t.Fatalf("expected external proc with no body, got %#v", sq)
	}
	hp := prog.Block.Decls[1].(*ast.ProcDecl)
	if hp.External || hp.Body != nil {
		t.Fatalf("expected forward proc with no body, got %#v", hp)
	}
}

func TestParsePointerAndAddressOf(t *testing.T) {
	prog, err := parse(`program P;
var p: ^integer;
var x: integer;
begin
  p := @x;
  x := p^;
end.`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	vd := prog.Block.Decls[0].(*ast.VarDecl)
	if _, ok := vd.Type.(*ast.PointerTypeExpr); !ok {
		t.Fatalf("expected *ast.PointerTypeExpr, got %T", vd.Type)
	}
	as1 := prog.Block.Body.Stmts[0].(*ast.AssignStmt)
	if _, ok := as1.Value.(*ast.AddressOfExpr); !ok {
		t.Fatalf("expected *ast.AddressOfExpr, got %T", as1.Value)
	}
	as2 := prog.Block.Body.Stmts[1].(*ast.AssignStmt)
	if _, ok := as2.Value.(*ast.DerefExpr); !ok {
		t.Fatalf("expected *ast.DerefExpr, got %T", as2.Value)
	}
}

func TestParseSTProgramNoHeader(t *testing.T) {
	prog, err := parseST(`var x: integer;
begin
  x := 1;
end.`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(prog.Decls) != 1 {
		t.Fatalf("expected 1 decl, got %d", len(prog.Decls))
	}
}

func TestParseUnit(t *testing.T) {
	toks := lexer.NewScanner(`unit Geometry;
interface
function Area(w, h: integer): integer;
implementation
function Area(w, h: integer): integer;
begin
end;
end.`).ScanTokens()
	unit, err := New(toks, "geometry.pas", "").ParseUnit()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if unit.Name != "Geometry" {
		t.Fatalf("got name %q, want Geometry", unit.Name)
	}
	if len(unit.Interface) != 1 || len(unit.Implementation) != 1 {
		t.Fatalf("expected 1 interface decl and 1 implementation decl, got %d/%d",
			len(unit.Interface), len(unit.Implementation))
	}
}

func TestParseSyntaxErrorReportsLocation(t *testing.T) {
	_, err := parse("program P; begin x := ; end.")
	if err == nil {
		t.Fatal("expected a syntax error")
	}
}

func TestParseBreakContinueGoto(t *testing.T) {
	prog, err := parse(`program P;
var i: integer;
begin
  while i < 10 do
  begin
    if i = 5 then
      break;
    if i = 3 then
      continue;
    i := i + 1;
  end;
  goto done;
  done: writeln('done');
end.`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_ = prog
}
