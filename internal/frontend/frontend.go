// Package frontend ties a scanner, parser, symbol table, type inferencer,
// code generator and VM together into the single owning pipeline a script
// or program runs through: source text in, bytecode or a completed VM run
// out. Each CompilerFrontend uniquely owns one of each, matching how a
// single cmd/sentra invocation owned one scanner/parser/compiler/VM tuple
// for the whole life of a run.
package frontend

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"pascalvm/internal/ast"
	"pascalvm/internal/bytecode"
	"pascalvm/internal/compiler"
	"pascalvm/internal/cppemit"
	"pascalvm/internal/errors"
	"pascalvm/internal/lexer"
	"pascalvm/internal/parser"
	"pascalvm/internal/stdlib"
	"pascalvm/internal/symtab"
	"pascalvm/internal/typeinfer"
	"pascalvm/internal/types"
	"pascalvm/internal/vm"
)

// CompilerFrontend owns one symbol table, type inferencer and code
// generator for the lifetime of a single compile, and lazily owns the VM
// instance once a chunk is run. A frontend is single-use: build one per
// source file or REPL session, not one shared across unrelated programs,
// since the symbol table accumulates every compiled unit's declarations.
type CompilerFrontend struct {
	file        string
	searchPaths []string

	diags *errors.Diagnostics
	model *types.Model
	tab   *symtab.SymTable
	infer *typeinfer.Inferencer
	cg    *compiler.CodeGen

	loadedUnits map[string]bool

	// StepLimit bounds the number of VM instructions a Run executes before
	// aborting, the cooperative cancellation mechanism a long-running or
	// runaway script is stopped with. Zero means use the VM's own default.
	StepLimit int64

	// Hook, if set, is attached to the VM Run constructs, the in-process
	// stepping/breakpoint touch point internal/debugger implements.
	Hook vm.Hook
}

// New builds a frontend rooted at file (used for diagnostics and as the
// default directory searched for uses-clause units). Additional unit
// search directories can be given in searchPaths; file's own directory is
// always searched first.
func New(file string, searchPaths ...string) *CompilerFrontend {
	diags := &errors.Diagnostics{}
	model := types.NewModel()
	tab := symtab.New(model, diags, file)
	stdlib.Declare(tab)
	infer := typeinfer.New(tab, diags, file)
	cg := compiler.New(tab, infer, diags, file)
	dirs := append([]string{filepath.Dir(file)}, searchPaths...)
	return &CompilerFrontend{
		file:        file,
		searchPaths: dirs,
		diags:       diags,
		model:       model,
		tab:         tab,
		infer:       infer,
		cg:          cg,
		loadedUnits: make(map[string]bool),
	}
}

// Diagnostics returns every diagnostic accumulated across every unit and
// program compiled through this frontend so far.
func (f *CompilerFrontend) Diagnostics() *errors.Diagnostics { return f.diags }

// CompileProgram parses a `program Name; ...` source file, merges in every
// unit it names in a uses clause (transitively), and compiles the program
// body last so its references to unit-declared names resolve against the
// same symbol table. Returns the finished chunk, or the first parse error
// encountered.
func (f *CompilerFrontend) CompileProgram(source string) (*bytecode.Chunk, error) {
	tokens := lexer.NewScanner(source).ScanTokens()
	p := parser.New(tokens, f.file, source)
	prog, err := p.ParseProgram()
	if err != nil {
		return nil, err
	}
	if err := f.mergeUses(prog.Block.Decls); err != nil {
		return nil, err
	}
	chunk := f.cg.CompileProgram(prog)
	if !f.diags.OK() {
		return nil, fmt.Errorf("compile error: %s", strings.Join(f.diags.Strings(), "; "))
	}
	return chunk, nil
}

// CompileScript parses a bare script body with no `program` header, the
// REPL/.st entry point, and compiles it the same way.
func (f *CompilerFrontend) CompileScript(source string) (*bytecode.Chunk, error) {
	tokens := lexer.NewScanner(source).ScanTokens()
	p := parser.New(tokens, f.file, source)
	prog, err := p.ParseSTProgram()
	if err != nil {
		return nil, err
	}
	if err := f.mergeUses(prog.Decls); err != nil {
		return nil, err
	}
	chunk := f.cg.CompileSTProgram(prog)
	if !f.diags.OK() {
		return nil, fmt.Errorf("compile error: %s", strings.Join(f.diags.Strings(), "; "))
	}
	return chunk, nil
}

// mergeUses finds every *ast.UsesDecl among decls and compiles each named
// unit's declarations into the frontend's shared symbol table and chunk,
// before the caller compiles its own program/script body. A unit is
// compiled once per frontend even if named by more than one uses clause or
// reached through more than one transitive chain.
func (f *CompilerFrontend) mergeUses(decls []ast.Decl) error {
	for _, d := range decls {
		ud, ok := d.(*ast.UsesDecl)
		if !ok {
			continue
		}
		for _, name := range ud.Units {
			if err := f.loadUnit(name); err != nil {
				return err
			}
		}
	}
	return nil
}

func (f *CompilerFrontend) loadUnit(name string) error {
	key := strings.ToLower(name)
	if f.loadedUnits[key] {
		return nil
	}
	f.loadedUnits[key] = true

	path, err := f.resolveUnit(name)
	if err != nil {
		return err
	}
	source, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading unit %s: %w", name, err)
	}
	tokens := lexer.NewScanner(string(source)).ScanTokens()
	up := parser.New(tokens, path, string(source))
	unit, err := up.ParseUnit()
	if err != nil {
		return fmt.Errorf("parsing unit %s: %w", name, err)
	}
	if err := f.mergeUses(unit.Interface); err != nil {
		return err
	}
	if err := f.mergeUses(unit.Implementation); err != nil {
		return err
	}
	f.cg.CompileUnit(unit)
	if !f.diags.OK() {
		return fmt.Errorf("compile error in unit %s: %s", name, strings.Join(f.diags.Strings(), "; "))
	}
	return nil
}

// resolveUnit finds the source file backing a uses-clause name by looking
// for "<Name>.pas" in each of the frontend's search directories, in order.
func (f *CompilerFrontend) resolveUnit(name string) (string, error) {
	for _, dir := range f.searchPaths {
		candidate := filepath.Join(dir, name+".pas")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("unit %s not found in %s", name, strings.Join(f.searchPaths, ", "))
}

// Run executes chunk on a fresh VM bound to the stdlib and returns
// everything the program wrote via write/writeln. StepLimit, if set,
// bounds how many instructions the VM executes before aborting, so a
// caller can cooperatively cancel a runaway script.
func (f *CompilerFrontend) Run(chunk *bytecode.Chunk) (string, error) {
	machine := vm.NewVM(chunk, f.cg.ExternalNames())
	if f.StepLimit > 0 {
		machine.MaxInstructions = f.StepLimit
	}
	machine.Hook = f.Hook
	stdlib.Bind(machine)
	var out bytes.Buffer
	machine.SetOutput(&out)
	if err := machine.Run(); err != nil {
		return out.String(), err
	}
	return out.String(), nil
}

// EmitCpp re-emits a parsed program as a C++ translation unit, independent
// of CompileProgram/Run: cppemit is a pure AST visitor and never touches
// this frontend's symbol table.
func EmitCpp(prog *ast.Program) string {
	return cppemit.New().EmitProgram(prog)
}

// EmitCppScript re-emits a bare script body as a C++ translation unit.
func EmitCppScript(prog *ast.STProgram) string {
	return cppemit.New().EmitSTProgram(prog)
}

// EmitCppUnit re-emits a parsed unit as a C++ namespace.
func EmitCppUnit(u *ast.Unit) string {
	return cppemit.New().EmitUnit(u)
}

// ParseOnly parses source as a full program without compiling it, for
// callers that only need the AST (EmitCpp, static analysis tools).
func ParseOnly(file, source string) (*ast.Program, error) {
	tokens := lexer.NewScanner(source).ScanTokens()
	p := parser.New(tokens, file, source)
	return p.ParseProgram()
}
