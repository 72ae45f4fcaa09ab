// cmd/pascalvm/main.go
package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"pascalvm/internal/debugger"
	"pascalvm/internal/frontend"
	"pascalvm/internal/repl"
)

const version = "1.0.0"

// commandAliases maps a one-letter shorthand to its full subcommand name,
// the same dispatch shape used for subcommands below.
var commandAliases = map[string]string{
	"r": "run",
	"i": "repl",
	"d": "disasm",
	"c": "cpp",
}

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		showUsage()
		return
	}

	cmd := args[0]
	if alias, ok := commandAliases[cmd]; ok {
		cmd = alias
	}

	switch cmd {
	case "--help", "-h", "help":
		showUsage()
	case "--version", "-v", "version":
		fmt.Println("pascalvm " + version)
	case "run":
		runCommand(args[1:])
	case "repl":
		replCommand(args[1:])
	case "disasm":
		disasmCommand(args[1:])
	case "cpp":
		cppCommand(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		showUsage()
		os.Exit(1)
	}
}

func showUsage() {
	fmt.Println(`pascalvm - a Pascal-dialect compiler and bytecode VM

Usage:
  pascalvm run <file.pas> [--step-limit N] [--debug]   compile and execute a program
  pascalvm repl                              start an interactive session
  pascalvm disasm <file.pas>                 print a program's compiled bytecode
  pascalvm cpp <input.pas> <output.cpp>      translate a program to C++ source

Aliases: r=run, i=repl, d=disasm, c=cpp`)
}

// runCommand mirrors cmd/sentra's own "run" handler: read the file, build
// one frontend owning its own scanner/parser/compiler/VM, compile, run.
func runCommand(args []string) {
	var stepLimit int64
	var debug bool
	var filename string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--step-limit":
			i++
			if i >= len(args) {
				log.Fatal("--step-limit requires a value")
			}
			n, err := strconv.ParseInt(args[i], 10, 64)
			if err != nil {
				log.Fatalf("invalid --step-limit: %v", err)
			}
			stepLimit = n
		case "--debug":
			debug = true
		default:
			filename = args[i]
		}
	}
	if filename == "" {
		log.Fatal("usage: pascalvm run <file.pas> [--step-limit N] [--debug]")
	}

	source, err := os.ReadFile(filename)
	if err != nil {
		log.Fatalf("could not read file: %v", err)
	}

	f := frontend.New(filename)
	f.StepLimit = stepLimit
	if debug {
		d := debugger.New()
		d.LoadSourceFile(filename, string(source))
		f.Hook = debugger.NewHook(d)
	}
	chunk, err := f.CompileProgram(string(source))
	if err != nil {
		log.Fatalf("%v", err)
	}
	out, err := f.Run(chunk)
	fmt.Print(out)
	if err != nil {
		log.Fatalf("%v", err)
	}
}

func replCommand(args []string) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	r := repl.New(filepath.Join(dir, "repl-session.pas"))
	r.Start(os.Stdin, os.Stdout)
}

func disasmCommand(args []string) {
	if len(args) == 0 {
		log.Fatal("usage: pascalvm disasm <file.pas>")
	}
	filename := args[0]
	source, err := os.ReadFile(filename)
	if err != nil {
		log.Fatalf("could not read file: %v", err)
	}

	f := frontend.New(filename)
	chunk, err := f.CompileProgram(string(source))
	if err != nil {
		f = frontend.New(filename)
		chunk, err = f.CompileScript(string(source))
	}
	if err != nil {
		log.Fatalf("%v", err)
	}
	fmt.Print(chunk.Disassemble())
}

// cppCommand re-emits a program as a C++ translation unit. Unlike run and
// disasm, this never compiles anything: internal/frontend.EmitCpp walks
// the parsed AST directly, the same pure-visitor translation
// internal/cppemit performs with no symbol table involved.
func cppCommand(args []string) {
	if len(args) < 2 {
		log.Fatal("usage: pascalvm cpp <input.pas> <output.cpp>")
	}
	inFile, outFile := args[0], args[1]
	source, err := os.ReadFile(inFile)
	if err != nil {
		log.Fatalf("could not read file: %v", err)
	}
	prog, err := frontend.ParseOnly(inFile, string(source))
	if err != nil {
		log.Fatalf("%v", err)
	}
	cpp := frontend.EmitCpp(prog)
	if err := os.WriteFile(outFile, []byte(cpp), 0o644); err != nil {
		log.Fatalf("could not write file: %v", err)
	}
}
