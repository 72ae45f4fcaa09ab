// Package stdlib is the script-visible standard library: the fixed set of
// math/bit/utility functions a Pascal program can call without declaring
// `external` itself. Declare seeds the symbol table with each function's
// external signature before a program is parsed; Bind attaches the Go
// implementation a compiled chunk's OpCallExt actually invokes. The two are
// kept separate because declaration happens once per compilation (symtab
// time) while binding happens once per VM (run time), mirroring how the
// original runtime split StadardLibrary.cpp's prototype table from its
// bindFunction calls.
package stdlib

import (
	"pascalvm/internal/symtab"
	"pascalvm/internal/types"
	"pascalvm/internal/value"
	"pascalvm/internal/vm"
)

// param is one formal parameter of a stdlib function: a name (cosmetic,
// shown in diagnostics) and the type alias symtab resolves against
// types.Model's built-in aliases.
type param struct {
	name  string
	alias string
	byRef bool
}

// fn is one bindable stdlib entry. Several names can share the same
// implementation (asin/asn, pow/expt/xpy): each gets its own fn value
// rather than a shared alias table, since DeclareFunc and BindFunc both
// key by the function's own name.
type fn struct {
	name   string
	params []param
	ret    string // "" for a procedure
	impl   vm.ExternalFunc
}

// real/scalar aliases already registered by types.Model.registerBuiltinAliases.
const (
	tReal   = "real"
	tInt    = "integer"
	tBool   = "boolean"
	tWord   = "word"
	tInt64  = "int64"
	tUint64 = "uint64"
	tSingle = "single"
	tStr    = "string"
)

func p1(name, alias string) []param { return []param{{name: name, alias: alias}} }
func p2(n1, a1, n2, a2 string) []param {
	return []param{{name: n1, alias: a1}, {name: n2, alias: a2}}
}
func p3(n1, a1, n2, a2, n3, a3 string) []param {
	return []param{{name: n1, alias: a1}, {name: n2, alias: a2}, {name: n3, alias: a3}}
}

// registry lists every name the parser treats as a resolvable function
// with no prior declaration in source, per the external-interfaces function
// list: trig, rounding, bit/shift, selection, and time/byte-reading
// utilities, each bound by name case-insensitively.
var registry = []fn{
	{name: "sin", params: p1("a", tReal), ret: tReal, impl: unary(mathSin)},
	{name: "cos", params: p1("a", tReal), ret: tReal, impl: unary(mathCos)},
	{name: "tan", params: p1("a", tReal), ret: tReal, impl: unary(mathTan)},
	{name: "asin", params: p1("a", tReal), ret: tReal, impl: unary(mathAsin)},
	{name: "asn", params: p1("a", tReal), ret: tReal, impl: unary(mathAsin)},
	{name: "acos", params: p1("a", tReal), ret: tReal, impl: unary(mathAcos)},
	{name: "acs", params: p1("a", tReal), ret: tReal, impl: unary(mathAcos)},
	{name: "atan", params: p1("a", tReal), ret: tReal, impl: unary(mathAtan)},
	{name: "atn", params: p1("a", tReal), ret: tReal, impl: unary(mathAtan)},
	{name: "atan2", params: p2("a", tReal, "b", tReal), ret: tReal, impl: binary(mathAtan2)},
	{name: "sqrt", params: p1("a", tReal), ret: tReal, impl: unary(mathSqrt)},
	{name: "sqr", params: p1("a", tReal), ret: tReal, impl: unary(mathSqr)},
	{name: "abs", params: p1("a", tReal), ret: tReal, impl: unary(mathAbs)},
	{name: "pow", params: p2("a", tReal, "b", tReal), ret: tReal, impl: binary(mathPow)},
	{name: "expt", params: p2("a", tReal, "b", tReal), ret: tReal, impl: binary(mathPow)},
	{name: "xpy", params: p2("a", tReal, "b", tReal), ret: tReal, impl: binary(mathPow)},
	{name: "ln", params: p1("a", tReal), ret: tReal, impl: unary(mathLn)},
	{name: "log", params: p1("a", tReal), ret: tReal, impl: unary(mathLog10)},
	{name: "exp", params: p1("a", tReal), ret: tReal, impl: unary(mathExp)},
	{name: "div", params: p2("a", tReal, "b", tReal), ret: tReal, impl: binary(mathDiv)},
	{name: "mod", params: p2("a", tReal, "b", tReal), ret: tReal, impl: binary(mathMod)},
	{name: "sub", params: p2("a", tReal, "b", tReal), ret: tReal, impl: binary(mathSub)},
	{name: "neg", params: p1("a", tReal), ret: tReal, impl: unary(mathNeg)},
	{name: "rol", params: p2("in", tUint64, "n", tUint64), ret: tUint64, impl: bitwise(bitRol)},
	{name: "ror", params: p2("in", tUint64, "n", tUint64), ret: tUint64, impl: bitwise(bitRor)},
	{name: "shl", params: p2("in", tUint64, "n", tUint64), ret: tUint64, impl: bitwise(bitShl)},
	{name: "shr", params: p2("in", tUint64, "n", tUint64), ret: tUint64, impl: bitwise(bitShr)},
	{name: "deg", params: p1("a", tReal), ret: tReal, impl: unary(mathDeg)},
	{name: "rad", params: p1("a", tReal), ret: tReal, impl: unary(mathRad)},
	{name: "sel", params: p3("c", tReal, "a", tReal, "b", tReal), ret: tReal, impl: sel},
	{name: "limit", params: p3("mn", tReal, "in", tReal, "mx", tReal), ret: tBool, impl: limit},
	{name: "trunc", params: p1("a", tReal), ret: tReal, impl: unary(mathTrunc)},
	{name: "len", params: p1("a", tStr), ret: tInt, impl: lenFn},
	{name: "move", params: []param{{name: "a", alias: tReal, byRef: true}}, ret: tReal, impl: moveFn},
	{name: "now", params: nil, ret: tInt64, impl: nowFn},
	{name: "secondsbetween", params: p2("fromt", tInt64, "tot", tInt64), ret: tReal, impl: secondsBetween},
	{name: "readint", params: p3("lower", tWord, "high", tWord, "be", tBool), ret: tInt, impl: readInt},
	{name: "readfloat", params: p3("lower", tWord, "high", tWord, "be", tBool), ret: tSingle, impl: readFloat},
}

// Declare registers every registry entry as an external function in tab's
// top scope, so a program can call e.g. `sqrt(x)` without an `external`
// declaration of its own.
func Declare(tab *symtab.SymTable) {
	for _, f := range registry {
		args := make([]symtab.FuncArg, len(f.params))
		for i, p := range f.params {
			args[i] = symtab.FuncArg{Name: p.name, Type: types.RefType{Type: tab.Types.FindType(p.alias)}, ByRef: p.byRef}
		}
		var ret types.RefType
		if f.ret != "" {
			ret = types.RefType{Type: tab.Types.FindType(f.ret)}
		}
		tab.DeclareFunc(0, 0, nil, f.name, ret, args, false, false, true)
	}
}

// Bind attaches every registry entry's Go implementation to v, so a chunk's
// OpCallExt instructions referencing these names resolve at run time.
func Bind(v *vm.VM) {
	for _, f := range registry {
		v.BindFunc(f.name, f.impl)
	}
}

// unary/binary/bitwise adapt a plain Go numeric function to ExternalFunc,
// reading args[i].Float64()/Uint64() and wrapping the result back into a
// Cell of the matching kind.
func unary(f func(float64) float64) vm.ExternalFunc {
	return func(args []value.Cell) ([]value.Cell, error) {
		return []value.Cell{floatCell(f(args[0].Float64()))}, nil
	}
}

func binary(f func(a, b float64) float64) vm.ExternalFunc {
	return func(args []value.Cell) ([]value.Cell, error) {
		return []value.Cell{floatCell(f(args[0].Float64(), args[1].Float64()))}, nil
	}
}

func bitwise(f func(a, b uint64) uint64) vm.ExternalFunc {
	return func(args []value.Cell) ([]value.Cell, error) {
		c := value.New(value.Uint64)
		c.Set(int64(f(args[0].Uint64(), args[1].Uint64())), value.Coerce)
		return []value.Cell{c}, nil
	}
}

func floatCell(v float64) value.Cell {
	c := value.New(value.Float64)
	c.Set(v, value.Coerce)
	return c
}
