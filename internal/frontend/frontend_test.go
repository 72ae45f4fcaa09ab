package frontend

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCompileProgramRunsArithmetic(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "main.pas")
	f := New(file)

	chunk, err := f.CompileProgram(`program P;
begin
  writeln(1 + 2 * 3);
end.`)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	out, err := f.Run(chunk)
	if err != nil {
		t.Fatalf("runtime error: %v", err)
	}
	if strings.TrimSpace(out) != "7" {
		t.Fatalf("expected output 7, got %q", out)
	}
}

func TestCompileProgramMergesUsedUnit(t *testing.T) {
	dir := t.TempDir()
	unitSrc := `unit MathUtils;

interface

function Square(x: integer): integer;

implementation

function Square(x: integer): integer;
begin
  Square := x * x;
end;

end.`
	if err := os.WriteFile(filepath.Join(dir, "MathUtils.pas"), []byte(unitSrc), 0o644); err != nil {
		t.Fatalf("writing unit: %v", err)
	}

	mainFile := filepath.Join(dir, "main.pas")
	f := New(mainFile)

	chunk, err := f.CompileProgram(`program P;
uses MathUtils;
begin
  writeln(Square(5));
end.`)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}

	out, err := f.Run(chunk)
	if err != nil {
		t.Fatalf("runtime error: %v", err)
	}
	if strings.TrimSpace(out) != "25" {
		t.Fatalf("expected output 25, got %q", out)
	}
}

func TestCompileProgramMissingUnitReportsError(t *testing.T) {
	dir := t.TempDir()
	f := New(filepath.Join(dir, "main.pas"))

	_, err := f.CompileProgram(`program P;
uses NoSuchUnit;
begin
end.`)
	if err == nil {
		t.Fatal("expected an error for an unresolvable uses clause")
	}
	if !strings.Contains(err.Error(), "NoSuchUnit") {
		t.Fatalf("expected error to name the missing unit, got: %v", err)
	}
}

func TestCompileScriptRunsWithoutProgramHeader(t *testing.T) {
	dir := t.TempDir()
	f := New(filepath.Join(dir, "main.pas"))

	chunk, err := f.CompileScript(`var total, i: integer;
begin
  total := 0;
  for i := 1 to 5 do
    total := total + i;
  writeln(total);
end.`)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	out, err := f.Run(chunk)
	if err != nil {
		t.Fatalf("runtime error: %v", err)
	}
	if strings.TrimSpace(out) != "15" {
		t.Fatalf("expected output 15, got %q", out)
	}
}

func TestStepLimitAbortsRunawayLoop(t *testing.T) {
	dir := t.TempDir()
	f := New(filepath.Join(dir, "main.pas"))
	f.StepLimit = 1000

	chunk, err := f.CompileProgram(`program P;
var x: integer;
begin
  x := 0;
  while true do
    x := x + 1;
end.`)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	if _, err := f.Run(chunk); err == nil {
		t.Fatal("expected the step limit to abort the infinite loop")
	}
}
