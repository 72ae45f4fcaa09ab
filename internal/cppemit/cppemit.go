// Package cppemit re-emits an internal/ast tree as equivalent C++ source
// text. It is a pure AST visitor: unlike internal/compiler and
// internal/typeinfer it never consults internal/symtab, so its output is a
// best-effort syntactic translation rather than a semantically verified
// one: one recursive visitor, no symbol table lookups, each Pascal construct
// mapped to its closest C++ equivalent.
package cppemit

import (
	"fmt"
	"strconv"
	"strings"

	"pascalvm/internal/ast"
)

// Emitter walks an AST and accumulates its C++ translation. The zero value
// is ready to use.
type Emitter struct {
	buf   strings.Builder
	level int
}

// New creates an Emitter.
func New() *Emitter { return &Emitter{} }

func (e *Emitter) idn() string { return strings.Repeat("    ", e.level) }

func (e *Emitter) writef(format string, args ...interface{}) {
	fmt.Fprintf(&e.buf, format, args...)
}

func (e *Emitter) writeln(format string, args ...interface{}) {
	e.writef("%s", e.idn())
	e.writef(format, args...)
	e.buf.WriteByte('\n')
}

const preamble = `#include <cstdint>
#include <string>
#include <vector>
#include <array>
#include <set>
#include <algorithm>
#include <iostream>
#include <cmath>

`

// EmitProgram renders a full `program Name; Block.` source file as a
// freestanding C++ translation unit with an int main() entry point.
func (e *Emitter) EmitProgram(p *ast.Program) string {
	e.buf.Reset()
	e.level = 0
	e.writef(preamble)
	e.writeln("// translated from program %s", p.Name)
	e.emitDecls(p.Block.Decls)
	e.writeln("int main() {")
	e.level++
	e.emitCompoundBody(p.Block.Body)
	e.writeln("return 0;")
	e.level--
	e.writeln("}")
	return e.buf.String()
}

// EmitSTProgram renders a bare script body (no `program` header) the same
// way, since a C++ translation unit always needs one entry point.
func (e *Emitter) EmitSTProgram(p *ast.STProgram) string {
	e.buf.Reset()
	e.level = 0
	e.writef(preamble)
	e.writeln("// translated from script body")
	e.emitDecls(p.Decls)
	e.writeln("int main() {")
	e.level++
	e.emitCompoundBody(p.Body)
	e.writeln("return 0;")
	e.level--
	e.writeln("}")
	return e.buf.String()
}

// EmitUnit renders a `unit Name; interface ... implementation ... end.`
// file as a C++ namespace: interface declarations become the namespace's
// forward-facing members, implementation declarations follow in the same
// namespace since C++ has no separate interface/implementation split for
// free functions the way a Pascal unit does.
func (e *Emitter) EmitUnit(u *ast.Unit) string {
	e.buf.Reset()
	e.level = 0
	e.writef(preamble)
	e.writeln("namespace %s {", u.Name)
	e.level++
	e.emitDecls(u.Interface)
	e.emitDecls(u.Implementation)
	e.level--
	e.writeln("} // namespace %s", u.Name)
	return e.buf.String()
}

func (e *Emitter) emitDecls(decls []ast.Decl) {
	for _, d := range decls {
		d.Accept(e)
	}
}

func (e *Emitter) emitCompoundBody(b *ast.CompoundStmt) {
	for _, s := range b.Stmts {
		e.writeln("%s", e.stmt(s))
	}
}

// cppType maps a type-alias spelling from internal/types.Model's builtin
// alias table to the closest fixed-width C++ type, matching the aliasSpec
// table in internal/types/model.go kind for kind.
func cppType(name string) string {
	switch strings.ToLower(name) {
	case "boolean", "bool":
		return "bool"
	case "shortint", "int8":
		return "int8_t"
	case "byte", "uint8":
		return "uint8_t"
	case "smallint", "int16":
		return "int16_t"
	case "word", "uint16":
		return "uint16_t"
	case "integer", "int", "int32", "longint":
		return "int32_t"
	case "cardinal", "uint32", "longword":
		return "uint32_t"
	case "int64":
		return "int64_t"
	case "uint64", "qword":
		return "uint64_t"
	case "single", "float32":
		return "float"
	case "real", "double", "float64", "float":
		return "double"
	case "string":
		return "std::string"
	case "char":
		return "char"
	default:
		// A user-defined type name: C++ identifiers and Pascal identifiers
		// share enough syntax that the name itself is usually valid as-is.
		return name
	}
}

// cppKeywords collides with a handful of Pascal-legal identifiers that are
// reserved words in C++; escapeIdent appends an underscore rather than
// emitting invalid code.
var cppKeywords = map[string]bool{
	"class": true, "new": true, "delete": true, "template": true,
	"namespace": true, "public": true, "private": true, "protected": true,
	"friend": true, "operator": true, "typename": true, "this": true,
	"export": true, "union": true, "auto": true, "register": true,
	"virtual": true, "explicit": true, "typeid": true, "using": true,
}

func escapeIdent(name string) string {
	if cppKeywords[strings.ToLower(name)] {
		return name + "_"
	}
	return name
}

// quoteCString escapes a Pascal string literal's content for a C++ string
// literal; Pascal string literals never carry C-style backslash escapes of
// their own, so only the characters C++ requires escaping need handling.
func quoteCString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// quoteCChar renders a single rune as a C++ char literal.
func quoteCChar(r rune) string {
	switch r {
	case '\'':
		return `'\''`
	case '\\':
		return `'\\'`
	case '\n':
		return `'\n'`
	default:
		return "'" + string(r) + "'"
	}
}

// formatFloat renders a Pascal real literal so the result always parses as
// a C++ floating-point literal (3 alone is a valid double in Pascal but an
// int in C++).
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
