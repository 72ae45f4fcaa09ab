// Package vm executes a compiled internal/bytecode.Chunk: a stack-machine
// interpreter over value.Cell operands, with a single operand stack plus a
// call-frame stack, matching the typed Cell/Container addressing scheme
// internal/compiler emits REF/DEREF/MOVS/CMPS against.
package vm

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"pascalvm/internal/bytecode"
	"pascalvm/internal/errors"
	"pascalvm/internal/trace"
	"pascalvm/internal/value"
)

// ExternalFunc is a host callback bound to an external name referenced via
// OpCallExt. It receives exactly the pushed argument cells and must return
// exactly the callee's declared return size in cells.
type ExternalFunc func(args []value.Cell) ([]value.Cell, error)

// callFrame is one live function activation: its own cell storage
// (pre-sized from Chunk.FrameSizes so REF never grows it underneath a
// borrowed string pointer), where its arguments end and its Result begins
// (argsSize), how many cells RET copies back to the caller (retSize), and
// the instruction to resume at in the caller.
type callFrame struct {
	store    *cellStore
	argsSize int
	retSize  int
	returnPC int
}

// VM interprets one compiled Chunk. Globals and the active call frame are
// pre-sized cellStores (Chunk.GlobalSize / Chunk.FrameSizes); the operand
// stack grows lazily since nothing ever borrows a raw pointer into it.
type VM struct {
	chunk *bytecode.Chunk

	globals *cellStore
	stack   *cellStore
	frames  []*callFrame

	externalNames []string
	externalIndex map[string]int
	externalVars  *cellStore
	externalFuncs map[int]ExternalFunc

	out io.Writer

	Trace           *trace.Logger
	MaxInstructions int64

	// Hook, if set, is consulted before every instruction the same way
	// Trace is, giving internal/debugger a breakpoint/step touch point
	// without the VM knowing anything about debugging itself. A hook
	// blocks for as long as it needs to (interactive stepping reads its
	// own commands from stdin); returning false ends Run immediately.
	Hook Hook
}

// Hook is the per-instruction callback internal/debugger implements to
// add breakpoints and step-into/step-over/step-out control without this
// package importing debugger (which would need to import vm right back).
type Hook interface {
	OnInstruction(pc int, debug bytecode.DebugInfo) (cont bool)
}

// defaultMaxInstructions bounds a runaway program (an unconditional loop
// with no EXIT reachable).
const defaultMaxInstructions = 100_000_000

// NewVM builds a VM ready to run chunk. externalNames is the index-ordered
// name list a CodeGen produced via ExternalNames(); host bindings are
// attached afterward with BindFunc/SetExternalVar.
func NewVM(chunk *bytecode.Chunk, externalNames []string) *VM {
	idx := make(map[string]int, len(externalNames))
	for i, name := range externalNames {
		idx[name] = i
	}
	return &VM{
		chunk:           chunk,
		globals:         newSizedCellStore(chunk.GlobalSize),
		stack:           newCellStore(256),
		externalNames:   externalNames,
		externalIndex:   idx,
		externalVars:    newSizedCellStore(len(externalNames)),
		externalFuncs:   map[int]ExternalFunc{},
		out:             os.Stdout,
		Trace:           trace.Default("vm: "),
		MaxInstructions: defaultMaxInstructions,
	}
}

// SetOutput redirects write/writeln output, for tests and the REPL's
// captured-output mode.
func (vm *VM) SetOutput(w io.Writer) { vm.out = w }

// BindFunc attaches fn to the external function named name. A name absent
// from the chunk's external table (nothing ever referenced it) is a no-op.
func (vm *VM) BindFunc(name string, fn ExternalFunc) {
	if idx, ok := vm.externalIndex[name]; ok {
		vm.externalFuncs[idx] = fn
	}
}

// SetExternalVar seeds the storage cell bound to the external variable
// named name, for host state a script reads through an `external var`.
func (vm *VM) SetExternalVar(name string, c value.Cell) {
	if idx, ok := vm.externalIndex[name]; ok {
		*vm.externalVars.Cell(idx) = c
	}
}

// ExternalVar returns the live storage cell for name, or nil if name was
// never declared external.
func (vm *VM) ExternalVar(name string) *value.Cell {
	idx, ok := vm.externalIndex[name]
	if !ok {
		return nil
	}
	return vm.externalVars.Cell(idx)
}

func (vm *VM) runtimeErr(pc int, op bytecode.OpCode, format string, args ...interface{}) error {
	return errors.NewRuntimeError(op.String(), pc, format, args...)
}

// frameStore resolves the Container a REF at the given level addresses:
// 0 is the program's globals, 1 is the currently executing frame's own
// storage. No other levels exist since procedures never nest.
func (vm *VM) frameStore(level int32) *cellStore {
	if level == 0 || len(vm.frames) == 0 {
		return vm.globals
	}
	return vm.frames[len(vm.frames)-1].store
}

func (vm *VM) pop() value.Cell {
	n := len(vm.stack.cells)
	c := vm.stack.cells[n-1]
	vm.stack.cells = vm.stack.cells[:n-1]
	return c
}

func (vm *VM) popN(n int) []value.Cell {
	base := len(vm.stack.cells) - n
	out := make([]value.Cell, n)
	copy(out, vm.stack.cells[base:])
	vm.stack.cells = vm.stack.cells[:base]
	return out
}

func (vm *VM) push(c value.Cell) { vm.stack.cells = append(vm.stack.cells, c) }

// Run executes the chunk from instruction 0 until EXIT, returning any
// runtime error encountered along the way.
func (vm *VM) Run() error {
	pc := 0
	var instructions int64
	for pc >= 0 && pc < len(vm.chunk.Code) {
		instructions++
		in := vm.chunk.Code[pc]
		if vm.MaxInstructions > 0 && instructions > vm.MaxInstructions {
			return vm.runtimeErr(pc, in.Op, "instruction limit exceeded (possible infinite loop)")
		}
		vm.Trace.Instruction(pc, in.Op.String(), trace.Sprint(in.Args))
		if vm.Hook != nil && !vm.Hook.OnInstruction(pc, vm.chunk.GetDebugInfo(pc)) {
			return vm.runtimeErr(pc, in.Op, "execution halted by debugger")
		}

		next := pc + 1
		switch in.Op {
		case bytecode.OpNop:

		case bytecode.OpExit:
			return nil

		case bytecode.OpPush:
			idx := int(in.Args[0])
			if idx < 0 || idx >= len(vm.chunk.Constants) {
				return vm.runtimeErr(pc, in.Op, "constant index %d out of range", idx)
			}
			for i := int32(0); i < in.Args[1]; i++ {
				vm.push(vm.chunk.Constants[idx])
			}

		case bytecode.OpPop:
			count := int(in.Args[0])
			if count > len(vm.stack.cells) {
				return vm.runtimeErr(pc, in.Op, "pop %d exceeds stack depth %d", count, len(vm.stack.cells))
			}
			vm.stack.cells = vm.stack.cells[:len(vm.stack.cells)-count]

		case bytecode.OpRef:
			store := vm.frameStore(in.Args[1])
			var c value.Cell
			c.SetPointer(store, int(in.Args[0]), int(in.Args[2]), false)
			vm.push(c)

		case bytecode.OpRefExt:
			idx := int(in.Args[0])
			var c value.Cell
			c.SetPointer(vm.externalVars, idx, 1, false)
			vm.push(c)

		case bytecode.OpRefSt:
			size := int(in.Args[0])
			if size > len(vm.stack.cells) {
				return vm.runtimeErr(pc, in.Op, "REFST size %d exceeds stack depth %d", size, len(vm.stack.cells))
			}
			base := len(vm.stack.cells) - size
			var c value.Cell
			c.SetPointer(vm.stack, base, size, false)
			vm.push(c)

		case bytecode.OpDeref:
			ref := vm.pop()
			ptr, ok := ref.PointerInfo()
			if !ok {
				return vm.runtimeErr(pc, in.Op, "DEREF operand is not a reference")
			}
			size := int(in.Args[0])
			for i := 0; i < size; i++ {
				idx := ptr.Index + i
				if idx > ptr.MaxIndex {
					return vm.runtimeErr(pc, in.Op, "pointer offset %d beyond max index %d", idx, ptr.MaxIndex)
				}
				vm.push(*ptr.Container.Cell(idx))
			}

		case bytecode.OpAddref:
			top := &vm.stack.cells[len(vm.stack.cells)-1]
			if err := top.AddPointer(int(in.Args[0])); err != nil {
				return vm.runtimeErr(pc, in.Op, "%s", err)
			}

		case bytecode.OpIdx:
			if err := vm.execIdx(int(in.Args[0]), int(in.Args[1])); err != nil {
				return vm.runtimeErr(pc, in.Op, "%s", err)
			}

		case bytecode.OpIdxStr:
			if err := vm.execIdxStr(); err != nil {
				return vm.runtimeErr(pc, in.Op, "%s", err)
			}

		case bytecode.OpMovs:
			if err := vm.execMovs(bytecode.MovsFlags(in.Args[0]), int(in.Args[1])); err != nil {
				return vm.runtimeErr(pc, in.Op, "%s", err)
			}

		case bytecode.OpCmps:
			vm.execCmps(bytecode.MovsFlags(in.Args[0]), int(in.Args[1]))

		case bytecode.OpBinOp:
			b := vm.pop()
			a := vm.pop()
			vm.push(execBinOp(bytecode.BinOp(in.Args[0]), value.Kind(in.Args[1]), &a, &b))

		case bytecode.OpUnOp:
			operand := vm.pop()
			vm.push(execUnOp(bytecode.UnOp(in.Args[0]), value.Kind(in.Args[1]), &operand))

		case bytecode.OpCvrt:
			top := &vm.stack.cells[len(vm.stack.cells)-1]
			execCvrt(top, value.Kind(in.Args[0]))

		case bytecode.OpWrt:
			vm.execWrt(int(in.Args[0]), in.Args[1] != 0)

		case bytecode.OpJmp:
			next = int(in.Args[0])

		case bytecode.OpFJmp:
			cond := vm.pop()
			if !cond.Bool() {
				next = int(in.Args[0])
			}

		case bytecode.OpTJmp:
			cond := vm.pop()
			if cond.Bool() {
				next = int(in.Args[0])
			}

		case bytecode.OpCall:
			address := int(in.Args[0])
			argsSize := int(in.Args[1])
			retSize := int(in.Args[2])
			frameSize, ok := vm.chunk.FrameSizes[address]
			if !ok {
				return vm.runtimeErr(pc, in.Op, "no frame size recorded for entry point %d", address)
			}
			if argsSize > len(vm.stack.cells) {
				return vm.runtimeErr(pc, in.Op, "CALL args size %d exceeds stack depth %d", argsSize, len(vm.stack.cells))
			}
			frame := &callFrame{store: newSizedCellStore(frameSize), argsSize: argsSize, retSize: retSize, returnPC: next}
			args := vm.popN(argsSize)
			copy(frame.store.cells[:argsSize], args)
			vm.frames = append(vm.frames, frame)
			next = address

		case bytecode.OpRet:
			if len(vm.frames) == 0 {
				return vm.runtimeErr(pc, in.Op, "RET with no active call frame")
			}
			frame := vm.frames[len(vm.frames)-1]
			vm.frames = vm.frames[:len(vm.frames)-1]
			if frame.argsSize+frame.retSize > len(frame.store.cells) {
				return vm.runtimeErr(pc, in.Op, "frame too small for its own return value")
			}
			vm.stack.cells = append(vm.stack.cells, frame.store.cells[frame.argsSize:frame.argsSize+frame.retSize]...)
			next = frame.returnPC

		case bytecode.OpCallExt:
			idx := int(in.Args[0])
			argsSize := int(in.Args[1])
			retSize := int(in.Args[2])
			fn, ok := vm.externalFuncs[idx]
			if !ok {
				name := "?"
				if idx >= 0 && idx < len(vm.externalNames) {
					name = vm.externalNames[idx]
				}
				return vm.runtimeErr(pc, in.Op, "unresolved external call: %s", name)
			}
			args := vm.popN(argsSize)
			rets, err := fn(args)
			if err != nil {
				return vm.runtimeErr(pc, in.Op, "%s", err)
			}
			if len(rets) != retSize {
				return vm.runtimeErr(pc, in.Op, "external function returned %d cells, want %d", len(rets), retSize)
			}
			vm.stack.cells = append(vm.stack.cells, rets...)

		default:
			return vm.runtimeErr(pc, in.Op, "unknown opcode")
		}
		pc = next
	}
	return nil
}

// execIdx narrows a reference already on TOP (the array's base storage, at
// whatever level it was REF'd to) to one element, one hop: the result
// stays a Pointer the surrounding compileExpr's own DEREF resolves.
func (vm *VM) execIdx(elemSize, low int) error {
	idxCell := vm.pop()
	refCell := vm.pop()
	ptr, ok := refCell.PointerInfo()
	if !ok {
		return fmt.Errorf("IDX operand is not a reference")
	}
	offset := (int(idxCell.Int64()) - low) * elemSize
	newIndex := ptr.Index + offset
	maxIndex := newIndex + elemSize - 1
	if newIndex < ptr.Index || maxIndex > ptr.MaxIndex {
		return fmt.Errorf("index out of bounds")
	}
	var result value.Cell
	result.SetPointer(ptr.Container, newIndex, elemSize, false)
	vm.push(result)
	return nil
}

// execIdxStr narrows a string reference to a single 1-based character,
// producing a Pointer into a throwaway singleCellBox holding the
// StringChar borrow, so OpDeref can resolve it the same one-hop way it
// resolves every other REF result.
func (vm *VM) execIdxStr() error {
	idxCell := vm.pop()
	refCell := vm.pop()
	ptr, ok := refCell.PointerInfo()
	if !ok {
		return fmt.Errorf("IDX_STR operand is not a reference")
	}
	owner := ptr.Container.Cell(ptr.Index)
	pos := int(idxCell.Int64()) - 1
	if pos < 0 || pos >= len(owner.Str()) {
		return fmt.Errorf("string index out of bounds")
	}
	box := &singleCellBox{}
	box.cell.SetStringReference(owner, pos)
	var result value.Cell
	result.SetPointer(box, 0, 1, false)
	vm.push(result)
	return nil
}

// execMovs writes the count value cells on TOP into the reference beneath
// them, cell by cell. MovsRightRef is part of the shared MOVS/CMPS flag
// type but the compiler never emits it (every write's source is already a
// plain value by the time MOVS runs); it is accepted here with no extra
// indirection rather than rejected, since nothing distinguishes "absent"
// from "explicitly clear".
func (vm *VM) execMovs(flags bytecode.MovsFlags, count int) error {
	if flags&bytecode.MovsLeftRef == 0 {
		return fmt.Errorf("MOVS target is not flagged as a reference")
	}
	values := vm.popN(count)
	refCell := vm.pop()
	ptr, ok := refCell.PointerInfo()
	if !ok {
		return fmt.Errorf("MOVS target is not a reference")
	}
	for i, v := range values {
		idx := ptr.Index + i
		if idx > ptr.MaxIndex {
			return fmt.Errorf("pointer offset %d beyond max index %d", idx, ptr.MaxIndex)
		}
		*ptr.Container.Cell(idx) = v
	}
	return nil
}

// execCmps compares two already-dereferenced count-cell values (arrays,
// class instances) cell by cell for equality, leaving one Bool result.
func (vm *VM) execCmps(flags bytecode.MovsFlags, count int) {
	right := vm.popN(count)
	left := vm.popN(count)
	equal := true
	for i := range left {
		if !value.EqualScalar(&left[i], &right[i]) {
			equal = false
			break
		}
	}
	if flags&bytecode.MovsNegate != 0 {
		equal = !equal
	}
	var result value.Cell
	result.Set(equal, value.Auto)
	vm.push(result)
}

func (vm *VM) execWrt(count int, newline bool) {
	values := vm.popN(count)
	var sb strings.Builder
	for _, v := range values {
		sb.WriteString(v.Str())
	}
	if newline {
		fmt.Fprintln(vm.out, sb.String())
		return
	}
	fmt.Fprint(vm.out, sb.String())
}

// execBinOp applies a scalar BinOp to two already-dereferenced operands.
// Comparisons always yield Bool regardless of resultKind (resultKind is
// the operands' common kind, used to pick the comparison's own domain);
// arithmetic yields resultKind.
func execBinOp(op bytecode.BinOp, resultKind value.Kind, a, b *value.Cell) value.Cell {
	if op.IsComparison() {
		var r bool
		switch op {
		case bytecode.Eq:
			r = value.EqualScalar(a, b)
		case bytecode.Ne:
			r = !value.EqualScalar(a, b)
		case bytecode.AndLog:
			r = a.Bool() && b.Bool()
		case bytecode.OrLog:
			r = a.Bool() || b.Bool()
		case bytecode.In:
			r = false
		default:
			c := compareScalar(a, b)
			switch op {
			case bytecode.Lt:
				r = c < 0
			case bytecode.Gt:
				r = c > 0
			case bytecode.Le:
				r = c <= 0
			case bytecode.Ge:
				r = c >= 0
			}
		}
		result := value.New(value.Bool)
		result.Set(r, value.Coerce)
		return result
	}

	result := value.New(resultKind)
	switch {
	case resultKind == value.String || resultKind == value.StringChar:
		result.Set(a.Str()+b.Str(), value.Coerce)
	case resultKind.IsFloat():
		result.Set(arithFloat(op, a.Float64(), b.Float64()), value.Coerce)
	default:
		result.Set(arithInt(op, a.Int64(), b.Int64()), value.Coerce)
	}
	return result
}

func compareScalar(a, b *value.Cell) int {
	if a.Kind == value.String || a.Kind == value.StringChar || b.Kind == value.String || b.Kind == value.StringChar {
		x, y := a.Str(), b.Str()
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		default:
			return 0
		}
	}
	if a.Kind.IsFloat() || b.Kind.IsFloat() {
		x, y := a.Float64(), b.Float64()
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		default:
			return 0
		}
	}
	x, y := a.Int64(), b.Int64()
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	default:
		return 0
	}
}

func arithFloat(op bytecode.BinOp, x, y float64) float64 {
	switch op {
	case bytecode.Plus:
		return x + y
	case bytecode.Minus:
		return x - y
	case bytecode.Mul:
		return x * y
	case bytecode.Div:
		if y == 0 {
			return 0
		}
		return x / y
	case bytecode.Mod:
		if y == 0 {
			return 0
		}
		return math.Mod(x, y)
	}
	return 0
}

func arithInt(op bytecode.BinOp, x, y int64) int64 {
	switch op {
	case bytecode.Plus:
		return x + y
	case bytecode.Minus:
		return x - y
	case bytecode.Mul:
		return x * y
	case bytecode.Div, bytecode.IDiv:
		if y == 0 {
			return 0
		}
		return x / y
	case bytecode.Mod:
		if y == 0 {
			return 0
		}
		return x % y
	case bytecode.AndBin:
		return x & y
	case bytecode.OrBin:
		return x | y
	case bytecode.XorBin:
		return x ^ y
	case bytecode.Shl:
		return x << uint(y&63)
	case bytecode.Shr:
		return x >> uint(y&63)
	}
	return 0
}

func execUnOp(op bytecode.UnOp, resultKind value.Kind, operand *value.Cell) value.Cell {
	if op == bytecode.UNot {
		result := value.New(value.Bool)
		result.Set(!operand.Bool(), value.Coerce)
		return result
	}
	result := value.New(resultKind)
	if resultKind.IsFloat() {
		v := operand.Float64()
		if op == bytecode.UMinus {
			v = -v
		}
		result.Set(v, value.Coerce)
		return result
	}
	v := operand.Int64()
	if op == bytecode.UMinus {
		v = -v
	}
	result.Set(v, value.Coerce)
	return result
}

// execCvrt coerces c in place into targetKind, reading its current value
// through whichever accessor matches its present Kind before retagging it
// (Cell.Set's own coercion then derives the new representation).
func execCvrt(c *value.Cell, targetKind value.Kind) {
	var raw interface{}
	switch {
	case c.Kind == value.Bool:
		raw = c.Bool()
	case c.Kind.IsFloat():
		raw = c.Float64()
	case c.Kind == value.String || c.Kind == value.StringChar:
		raw = c.Str()
	default:
		raw = c.Int64()
	}
	c.Kind = targetKind
	c.Set(raw, value.Coerce)
}
