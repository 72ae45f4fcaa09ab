// Package trace is the toolchain's small diagnostic logger, used by the
// CLI and by the VM's optional instruction trace (VM.Trace). It wraps
// the standard library's log.Logger rather than introducing a structured
// logging dependency the rest of the corpus never reaches for either.
package trace

import (
	"fmt"
	"io"
	"log"
	"os"
)

// Logger writes timestamp-free, prefix-tagged lines, toggled by Enabled.
type Logger struct {
	out     *log.Logger
	Enabled bool
}

// New creates a Logger writing to w with the given prefix (e.g. "vm: ").
func New(w io.Writer, prefix string) *Logger {
	return &Logger{out: log.New(w, prefix, 0)}
}

// Default writes to stderr and starts disabled.
func Default(prefix string) *Logger {
	return New(os.Stderr, prefix)
}

func (l *Logger) Printf(format string, args ...interface{}) {
	if l == nil || !l.Enabled {
		return
	}
	l.out.Printf(format, args...)
}

func (l *Logger) Println(args ...interface{}) {
	if l == nil || !l.Enabled {
		return
	}
	l.out.Println(args...)
}

func (l *Logger) Instruction(pc int, opcode string, detail string) {
	if l == nil || !l.Enabled {
		return
	}
	if detail != "" {
		l.out.Printf("%04d %-8s %s", pc, opcode, detail)
		return
	}
	l.out.Printf("%04d %-8s", pc, opcode)
}

// Sprint is a small helper for building one-line detail strings without
// importing fmt at every call site.
func Sprint(args ...interface{}) string { return fmt.Sprint(args...) }
