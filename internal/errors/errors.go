// Package errors implements a located, typed error style
// (SentraError/SourceLocation) used by the compiler's ordered
// Diagnostic list and the VM's RuntimeError.
package errors

import (
	"fmt"
	"strings"
)

// Severity classifies a compile-time Diagnostic.
type Severity string

const (
	Error   Severity = "error"
	Warning Severity = "warning"
	Info    Severity = "info"
)

// SourceLocation is a position in source text.
type SourceLocation struct {
	File   string
	Line   int
	Column int
}

func (l SourceLocation) String() string {
	if l.File == "" {
		return fmt.Sprintf("%d:%d", l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// Diagnostic is one compile-time message, per the runtime/compile-time
// taxonomy (undeclared symbol, duplicate identifier, invalid member, ...).
type Diagnostic struct {
	Severity Severity
	Message  string
	Location SourceLocation
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s: %s", d.Location, d.Severity, d.Message)
}

// Diagnostics is an ordered, de-duplicated diagnostic list: a compilation
// is successful iff it contains no Error-severity entry. Duplicate
// (severity, location, message) triples are suppressed.
type Diagnostics struct {
	items []Diagnostic
	seen  map[string]bool
}

func (d *Diagnostics) add(sev Severity, loc SourceLocation, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	key := fmt.Sprintf("%s|%s|%s", sev, loc, msg)
	if d.seen == nil {
		d.seen = map[string]bool{}
	}
	if d.seen[key] {
		return
	}
	d.seen[key] = true
	d.items = append(d.items, Diagnostic{Severity: sev, Message: msg, Location: loc})
}

func (d *Diagnostics) Errorf(loc SourceLocation, format string, args ...interface{}) {
	d.add(Error, loc, format, args...)
}

func (d *Diagnostics) Warnf(loc SourceLocation, format string, args ...interface{}) {
	d.add(Warning, loc, format, args...)
}

func (d *Diagnostics) Infof(loc SourceLocation, format string, args ...interface{}) {
	d.add(Info, loc, format, args...)
}

// All returns every diagnostic in emission order.
func (d *Diagnostics) All() []Diagnostic { return d.items }

// ErrorCount returns the number of Error-severity diagnostics.
func (d *Diagnostics) ErrorCount() int {
	n := 0
	for _, it := range d.items {
		if it.Severity == Error {
			n++
		}
	}
	return n
}

// OK reports whether the compilation succeeded.
func (d *Diagnostics) OK() bool { return d.ErrorCount() == 0 }

// Strings renders every diagnostic one per line, for the CLI's stderr
// output (errors printed one per line, per §6).
func (d *Diagnostics) Strings() []string {
	out := make([]string, len(d.items))
	for i, it := range d.items {
		out[i] = it.Error()
	}
	return out
}

// SentraError is a located, typed error for cases that need to unwind
// immediately (the parser's panic/recover boundary) rather than accumulate
// in a Diagnostics list.
type SentraError struct {
	Type     string
	Message  string
	Location SourceLocation
	Source   string
}

func (e *SentraError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s: %s", e.Type, e.Message))
	if e.Location.File != "" || e.Location.Line != 0 {
		sb.WriteString(fmt.Sprintf(" (at %s)", e.Location))
	}
	return sb.String()
}

// WithSource attaches the offending source line, for richer CLI output.
func (e *SentraError) WithSource(source string) *SentraError {
	e.Source = source
	return e
}

// NewSyntaxError builds a parser-fatal error at the given location.
func NewSyntaxError(message, file string, line, column int) *SentraError {
	return &SentraError{Type: "SyntaxError", Message: message, Location: SourceLocation{File: file, Line: line, Column: column}}
}

// RuntimeError is the VM's runtime taxonomy: unknown opcode, reference
// beyond stack size, pointer offset beyond max index, cyclic reference,
// unresolved call, trying to set address of non-pointer.
type RuntimeError struct {
	Opcode  string
	PC      int
	Message string
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("runtime error at pc=%d (%s): %s", e.PC, e.Opcode, e.Message)
}

func NewRuntimeError(opcode string, pc int, format string, args ...interface{}) *RuntimeError {
	return &RuntimeError{Opcode: opcode, PC: pc, Message: fmt.Sprintf(format, args...)}
}
