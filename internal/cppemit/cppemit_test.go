package cppemit

import (
	"strings"
	"testing"

	"pascalvm/internal/lexer"
	"pascalvm/internal/parser"
)

func TestEmitProgramRendersArithmeticAndControlFlow(t *testing.T) {
	src := `program P;
var x: integer;
begin
  x := 1 + 2;
  if x > 2 then
    writeln('big')
  else
    writeln('small');
end.`
	tokens := lexer.NewScanner(src).ScanTokens()
	p := parser.New(tokens, "test.pas", src)
	prog, err := p.ParseProgram()
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	out := New().EmitProgram(prog)

	for _, want := range []string{
		"int main() {",
		"int32_t x;",
		"x = (1 + 2);",
		"if ((x > 2)) {",
		`std::cout << "big" << std::endl;`,
		`std::cout << "small" << std::endl;`,
		"return 0;",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q; got:\n%s", want, out)
		}
	}
}

func TestEmitProgramRendersClassAsStruct(t *testing.T) {
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
  c.value := 0;
  c.Bump();
end.`
	tokens := lexer.NewScanner(src).ScanTokens()
	p := parser.New(tokens, "test.pas", src)
	prog, err := p.ParseProgram()
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	out := New().EmitProgram(prog)

	for _, want := range []string{
		"struct TCounter {",
		"int32_t value;",
		"void Bump();",
		"};",
		"void TCounter::Bump() {",
		"c.value = 0;",
		"c.Bump();",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q; got:\n%s", want, out)
		}
	}
}

func TestEmitProgramRendersForLoopAndWriteln(t *testing.T) {
	src := `program P;
var i, total: integer;
begin
  total := 0;
  for i := 1 to 10 do
    total := total + i;
  writeln(total);
end.`
	tokens := lexer.NewScanner(src).ScanTokens()
	p := parser.New(tokens, "test.pas", src)
	prog, err := p.ParseProgram()
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	out := New().EmitProgram(prog)

	for _, want := range []string{
		"for (i = 1; i <= 10; i++) {",
		"total = (total + i);",
		"std::cout << total << std::endl;",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q; got:\n%s", want, out)
		}
	}
}
