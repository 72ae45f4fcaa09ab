package repl

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

func TestREPLAccumulatesStateAcrossLines(t *testing.T) {
	dir := t.TempDir()
	r := New(filepath.Join(dir, "session.pas"))
	var out bytes.Buffer

	in := strings.NewReader("var total: integer;\ntotal := 0;\ntotal := total + 5;\nwriteln(total);\nexit\n")
	r.Start(in, &out)

	if !strings.Contains(out.String(), "5") {
		t.Fatalf("expected accumulated total 5 in output, got:\n%s", out.String())
	}
}

func TestREPLRollsBackFailedLine(t *testing.T) {
	dir := t.TempDir()
	r := New(filepath.Join(dir, "session.pas"))
	var out bytes.Buffer

	in := strings.NewReader("writeln(1);\nwriteln(undeclaredThing);\nwriteln(2);\nexit\n")
	r.Start(in, &out)

	text := out.String()
	if !strings.Contains(text, "error:") {
		t.Fatalf("expected the undeclared-identifier line to report an error, got:\n%s", text)
	}
	if !strings.Contains(text, "1") || !strings.Contains(text, "2") {
		t.Fatalf("expected both valid lines to still run, got:\n%s", text)
	}
}

func TestIsDeclLineDistinguishesDeclsFromStatements(t *testing.T) {
	cases := map[string]bool{
		"var x: integer;":          true,
		"const Pi = 3;":            true,
		"type TInt = integer;":     true,
		"procedure P; begin end;":  true,
		"function F: integer;":     true,
		"x := 1;":                  false,
		"writeln(x);":              false,
	}
	for line, want := range cases {
		if got := isDeclLine(line); got != want {
			t.Errorf("isDeclLine(%q) = %v, want %v", line, got, want)
		}
	}
}
