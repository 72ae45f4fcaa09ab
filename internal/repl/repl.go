// Package repl implements an interactive read-eval-print loop over
// internal/frontend: read a line, compile it, run it, print what it produced.
package repl

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"pascalvm/internal/frontend"
	"pascalvm/internal/lexer"
)

// REPL accumulates a session's entered lines and replays the whole session
// fresh on every new line. The original's ResetWithChunk can swap a new
// chunk into a persistent VM because Sentra's globals live in a name-keyed
// runtime environment; this toolchain instead assigns every global a
// compile-time slot number, so a chunk compiled against one symbol table
// can't be safely extended once a second, differently-shaped chunk has
// been compiled on top of it. Recompiling the whole session each time
// keeps every line's global slot layout internally consistent, at the
// cost of re-running earlier statements' side effects on every keystroke
// — which is why eval diffs the freshly produced output against what was
// already shown instead of printing all of it again.
type REPL struct {
	decls []string
	stmts []string
	seen  int
	file  string
}

// New creates a REPL. file is only used for diagnostics and as the unit
// search root, the same way internal/frontend.New uses it.
func New(file string) *REPL {
	return &REPL{file: file}
}

// Start runs the loop against in/out until "exit", "quit", or EOF.
func (r *REPL) Start(in io.Reader, out io.Writer) {
	fmt.Fprintln(out, "pascalvm REPL | type 'exit' to quit")
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, ">>> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "exit", "quit":
			return
		}
		if err := r.eval(line, out); err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
		}
	}
}

// eval appends line to the relevant section of the session buffer,
// recompiles and reruns the accumulated session, and prints whatever new
// output that produced. A line that fails to compile or run is rolled
// back out of the buffer so it doesn't poison later lines.
func (r *REPL) eval(line string, out io.Writer) error {
	section := &r.stmts
	if isDeclLine(line) {
		section = &r.decls
	}
	*section = append(*section, line)

	f := frontend.New(r.file)
	chunk, err := f.CompileScript(r.source())
	if err != nil {
		*section = (*section)[:len(*section)-1]
		return err
	}
	output, err := f.Run(chunk)
	if err != nil {
		*section = (*section)[:len(*section)-1]
		return err
	}
	if len(output) < r.seen {
		r.seen = 0
	}
	fmt.Fprint(out, output[r.seen:])
	r.seen = len(output)
	return nil
}

// source reconstructs the session so far as one bare script body: every
// declaration line the user has entered, in order, followed by a
// `begin ... end.` wrapping every statement line in order.
func (r *REPL) source() string {
	var b strings.Builder
	for _, d := range r.decls {
		b.WriteString(d)
		b.WriteByte('\n')
	}
	b.WriteString("begin\n")
	for _, s := range r.stmts {
		b.WriteString(s)
		b.WriteByte('\n')
	}
	b.WriteString("end.\n")
	return b.String()
}

// isDeclLine reports whether line opens a declaration section
// (const/type/var/procedure/function), which must sit before `begin`
// rather than inside the statement body.
func isDeclLine(line string) bool {
	tokens := lexer.NewScanner(line).ScanTokens()
	if len(tokens) == 0 {
		return false
	}
	switch tokens[0].Type {
	case lexer.TokenConst, lexer.TokenType_, lexer.TokenVar, lexer.TokenProcedure, lexer.TokenFunction:
		return true
	default:
		return false
	}
}
