package bytecode

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"pascalvm/internal/value"
)

// DebugInfo stores the source location an instruction was compiled from.
type DebugInfo struct {
	Line     int
	Column   int
	File     string
	Function string
}

// Instr is one decoded stack-machine instruction: an opcode plus up to
// four integer operands (slot/address/size/offset, per OpCode's doc
// comment) and, for OpPush, the constant pool index to push.
type Instr struct {
	Op   OpCode
	Args [4]int32
}

// Chunk is a compiled instruction stream: the code itself, the constant
// pool OpPush indexes into, and parallel per-instruction debug info.
//
// GlobalSize and FrameSizes record the storage a REF at frame level 0 (the
// program's top scope) or level 1 (a function's own scope) needs: the
// symbol table hands out addresses monotonically but never says when a
// scope is "done" growing, so the compiler captures each scope's final
// address cursor once and stamps it here, letting the VM preallocate
// every storage region up front instead of growing it underneath live
// pointer cells.
type Chunk struct {
	Code      []Instr
	Constants []value.Cell
	Debug     []DebugInfo

	GlobalSize int
	FrameSizes map[int]int // function entry instruction index -> cell count
}

func NewChunk() *Chunk {
	return &Chunk{FrameSizes: map[int]int{}}
}

// Write appends an instruction with no known source location; compiler
// call sites that care about diagnostics use WriteWithDebug instead.
func (c *Chunk) Write(op OpCode, args ...int32) int {
	return c.WriteWithDebug(DebugInfo{}, op, args...)
}

// WriteWithDebug appends an instruction and returns its index, so callers
// can patch a jump's Args[0] once the target address is known.
func (c *Chunk) WriteWithDebug(debug DebugInfo, op OpCode, args ...int32) int {
	var in Instr
	in.Op = op
	copy(in.Args[:], args)
	c.Code = append(c.Code, in)
	c.Debug = append(c.Debug, debug)
	return len(c.Code) - 1
}

// Patch overwrites a previously written instruction's operands, used to
// back-patch forward jump targets once the branch destination is known.
func (c *Chunk) Patch(ip int, args ...int32) {
	copy(c.Code[ip].Args[:], args)
}

// AddConstant interns val into the constant pool and returns its index.
func (c *Chunk) AddConstant(val value.Cell) int {
	c.Constants = append(c.Constants, val)
	return len(c.Constants) - 1
}

// GetDebugInfo returns the DebugInfo for instruction ip, or the zero value
// if ip is out of range.
func (c *Chunk) GetDebugInfo(ip int) DebugInfo {
	if ip >= 0 && ip < len(c.Debug) {
		return c.Debug[ip]
	}
	return DebugInfo{}
}

// Len reports the number of instructions in the chunk.
func (c *Chunk) Len() int { return len(c.Code) }

// Disassemble renders every instruction in c as one "index: OP args" line,
// with the OpPush constant value appended inline so a reader doesn't have
// to cross-reference the constant pool by hand.
func (c *Chunk) Disassemble() string {
	var b strings.Builder
	for i, in := range c.Code {
		fmt.Fprintf(&b, "%4d: %-8s", i, in.Op.String())
		for _, a := range in.Args {
			if a != 0 {
				fmt.Fprintf(&b, " %d", a)
			}
		}
		if in.Op == OpPush && int(in.Args[0]) < len(c.Constants) {
			fmt.Fprintf(&b, "  ; %v", c.Constants[in.Args[0]])
		}
		b.WriteByte('\n')
	}
	return b.String()
}

const fileMagic = "PVMB"
const fileVersion = 1

// File is a persisted Chunk plus a stamped build-id fingerprint, so a
// bytecode file loaded at a later date can be matched back to the
// toolchain build that produced it.
type File struct {
	BuildID uuid.UUID
	Chunk   *Chunk
}

// Encode writes f in the bytecode file format: a magic/version header, a
// build-id, then the instruction stream, constant pool, global size and
// per-function frame sizes. The debug table is not written.
func Encode(w io.Writer, f *File) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(fileMagic); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, uint32(fileVersion)); err != nil {
		return err
	}
	buildID := f.BuildID
	if buildID == uuid.Nil {
		buildID = uuid.New()
	}
	if _, err := bw.Write(buildID[:]); err != nil {
		return err
	}

	if err := binary.Write(bw, binary.LittleEndian, uint32(len(f.Chunk.Code))); err != nil {
		return err
	}
	for _, in := range f.Chunk.Code {
		if err := bw.WriteByte(byte(in.Op)); err != nil {
			return err
		}
		for _, a := range in.Args {
			if err := binary.Write(bw, binary.LittleEndian, a); err != nil {
				return err
			}
		}
	}

	if err := binary.Write(bw, binary.LittleEndian, uint32(len(f.Chunk.Constants))); err != nil {
		return err
	}
	for _, cell := range f.Chunk.Constants {
		if err := encodeConstant(bw, cell); err != nil {
			return err
		}
	}

	if err := binary.Write(bw, binary.LittleEndian, uint32(f.Chunk.GlobalSize)); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, uint32(len(f.Chunk.FrameSizes))); err != nil {
		return err
	}
	for addr, size := range f.Chunk.FrameSizes {
		if err := binary.Write(bw, binary.LittleEndian, uint32(addr)); err != nil {
			return err
		}
		if err := binary.Write(bw, binary.LittleEndian, uint32(size)); err != nil {
			return err
		}
	}

	return bw.Flush()
}

func encodeConstant(w *bufio.Writer, cell value.Cell) error {
	if err := w.WriteByte(byte(cell.Kind)); err != nil {
		return err
	}
	switch cell.Kind {
	case value.Bool:
		b := cell.Bool()
		var v byte
		if b {
			v = 1
		}
		return w.WriteByte(v)
	case value.Float32, value.Float64:
		return binary.Write(w, binary.LittleEndian, cell.Float64())
	case value.String, value.StringChar:
		s := cell.Str()
		if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
			return err
		}
		_, err := w.WriteString(s)
		return err
	default:
		return binary.Write(w, binary.LittleEndian, cell.Int64())
	}
}

// Decode reads back a file written by Encode.
func Decode(r io.Reader) (*File, error) {
	br := bufio.NewReader(r)
	magic := make([]byte, len(fileMagic))
	if _, err := io.ReadFull(br, magic); err != nil {
		return nil, err
	}
	if string(magic) != fileMagic {
		return nil, fmt.Errorf("bytecode: bad file magic %q", magic)
	}
	var version uint32
	if err := binary.Read(br, binary.LittleEndian, &version); err != nil {
		return nil, err
	}
	if version != fileVersion {
		return nil, fmt.Errorf("bytecode: unsupported file version %d", version)
	}
	var idBytes [16]byte
	if _, err := io.ReadFull(br, idBytes[:]); err != nil {
		return nil, err
	}
	buildID, err := uuid.FromBytes(idBytes[:])
	if err != nil {
		return nil, err
	}

	chunk := NewChunk()
	var codeLen uint32
	if err := binary.Read(br, binary.LittleEndian, &codeLen); err != nil {
		return nil, err
	}
	for i := uint32(0); i < codeLen; i++ {
		opByte, err := br.ReadByte()
		if err != nil {
			return nil, err
		}
		var in Instr
		in.Op = OpCode(opByte)
		for j := range in.Args {
			if err := binary.Read(br, binary.LittleEndian, &in.Args[j]); err != nil {
				return nil, err
			}
		}
		chunk.Code = append(chunk.Code, in)
		chunk.Debug = append(chunk.Debug, DebugInfo{})
	}

	var constLen uint32
	if err := binary.Read(br, binary.LittleEndian, &constLen); err != nil {
		return nil, err
	}
	for i := uint32(0); i < constLen; i++ {
		cell, err := decodeConstant(br)
		if err != nil {
			return nil, err
		}
		chunk.Constants = append(chunk.Constants, cell)
	}

	var globalSize uint32
	if err := binary.Read(br, binary.LittleEndian, &globalSize); err != nil {
		return nil, err
	}
	chunk.GlobalSize = int(globalSize)

	var frameCount uint32
	if err := binary.Read(br, binary.LittleEndian, &frameCount); err != nil {
		return nil, err
	}
	for i := uint32(0); i < frameCount; i++ {
		var addr, size uint32
		if err := binary.Read(br, binary.LittleEndian, &addr); err != nil {
			return nil, err
		}
		if err := binary.Read(br, binary.LittleEndian, &size); err != nil {
			return nil, err
		}
		chunk.FrameSizes[int(addr)] = int(size)
	}

	return &File{BuildID: buildID, Chunk: chunk}, nil
}

func decodeConstant(r *bufio.Reader) (value.Cell, error) {
	kindByte, err := r.ReadByte()
	if err != nil {
		return value.Cell{}, err
	}
	kind := value.Kind(kindByte)
	cell := value.New(kind)
	switch kind {
	case value.Bool:
		b, err := r.ReadByte()
		if err != nil {
			return value.Cell{}, err
		}
		cell.Set(b != 0, value.Coerce)
	case value.Float32, value.Float64:
		var f float64
		if err := binary.Read(r, binary.LittleEndian, &f); err != nil {
			return value.Cell{}, err
		}
		cell.Set(f, value.Coerce)
	case value.String, value.StringChar:
		var n uint32
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return value.Cell{}, err
		}
		buf := make([]byte, n)
		if _, err := io.ReadFull(r, buf); err != nil {
			return value.Cell{}, err
		}
		cell = value.New(value.String)
		cell.Set(string(buf), value.Coerce)
	default:
		var i int64
		if err := binary.Read(r, binary.LittleEndian, &i); err != nil {
			return value.Cell{}, err
		}
		cell.Set(i, value.Coerce)
	}
	return cell, nil
}
