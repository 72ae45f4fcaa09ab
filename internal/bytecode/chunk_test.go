package bytecode

import (
	"bytes"
	"testing"

	"pascalvm/internal/value"
)

func TestWriteAndPatchJump(t *testing.T) {
	c := NewChunk()
	c.Write(OpPush, 0, 1)
	jmpIP := c.Write(OpFJmp, 0)
	c.Write(OpWrt, 1, 1)
	target := int32(c.Len())
	c.Patch(jmpIP, target)

	if c.Code[jmpIP].Args[0] != target {
		t.Fatalf("expected patched jump target %d, got %d", target, c.Code[jmpIP].Args[0])
	}
	if c.Len() != 3 {
		t.Fatalf("expected 3 instructions, got %d", c.Len())
	}
}

func TestAddConstantReturnsStableIndex(t *testing.T) {
	c := NewChunk()
	i := c.AddConstant(value.NewAuto(int64(42)))
	j := c.AddConstant(value.NewAuto("hello"))
	if i != 0 || j != 1 {
		t.Fatalf("expected indexes 0,1, got %d,%d", i, j)
	}
	if c.Constants[i].Int64() != 42 {
		t.Fatal("expected constant 0 to round-trip to 42")
	}
	if c.Constants[j].Str() != "hello" {
		t.Fatal("expected constant 1 to round-trip to 'hello'")
	}
}

func TestDebugInfoOutOfRangeReturnsZeroValue(t *testing.T) {
	c := NewChunk()
	c.Write(OpNop)
	if got := c.GetDebugInfo(5); got != (DebugInfo{}) {
		t.Fatalf("expected zero DebugInfo for out-of-range ip, got %+v", got)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	c := NewChunk()
	c.WriteWithDebug(DebugInfo{Line: 3, File: "x.pas"}, OpPush, int32(c.AddConstant(value.NewAuto(int64(7)))), 1)
	c.Write(OpBinOp, int32(Plus), int32(value.Int64))
	c.Write(OpWrt, 1, 1)
	c.Write(OpExit)

	var buf bytes.Buffer
	if err := Encode(&buf, &File{Chunk: c}); err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	got, err := Decode(&buf)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if got.BuildID.String() == "00000000-0000-0000-0000-000000000000" {
		t.Fatal("expected a stamped build id, got the nil uuid")
	}
	if len(got.Chunk.Code) != len(c.Code) {
		t.Fatalf("expected %d instructions after round-trip, got %d", len(c.Code), len(got.Chunk.Code))
	}
	for i, in := range c.Code {
		if got.Chunk.Code[i].Op != in.Op || got.Chunk.Code[i].Args != in.Args {
			t.Fatalf("instruction %d mismatch: got %+v, want %+v", i, got.Chunk.Code[i], in)
		}
	}
	if len(got.Chunk.Constants) != 1 || got.Chunk.Constants[0].Int64() != 7 {
		t.Fatalf("expected constant pool [7], got %+v", got.Chunk.Constants)
	}
}

func TestEncodeDecodeStringConstant(t *testing.T) {
	c := NewChunk()
	c.AddConstant(value.NewAuto("hi there"))

	var buf bytes.Buffer
	if err := Encode(&buf, &File{Chunk: c}); err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	got, err := Decode(&buf)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if got.Chunk.Constants[0].Str() != "hi there" {
		t.Fatalf("expected string constant to round-trip, got %q", got.Chunk.Constants[0].Str())
	}
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	_, err := Decode(bytes.NewReader([]byte("nope")))
	if err == nil {
		t.Fatal("expected an error decoding a non-bytecode stream")
	}
}
