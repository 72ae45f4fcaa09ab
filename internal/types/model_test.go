package types

import (
	"testing"

	"pascalvm/internal/value"
)

func TestBuiltinAliasesShareDescriptor(t *testing.T) {
	m := NewModel()
	integer := m.FindType("integer")
	intAlias := m.FindType("int")
	if integer != intAlias {
		t.Fatal("expected integer and int to resolve to the same descriptor")
	}
	if integer.ScalarKind != value.Int32 {
		t.Fatalf("expected int32 scalar kind, got %v", integer.ScalarKind)
	}
}

func TestFindTypeUndefinedSentinel(t *testing.T) {
	m := NewModel()
	got := m.FindType("nonexistent")
	if got != m.Undefined() {
		t.Fatal("expected undefined sentinel for unknown type name")
	}
	if !got.IsUndefined() {
		t.Fatal("sentinel should report IsUndefined")
	}
}

func TestRegisterStructuralDedup(t *testing.T) {
	m := NewModel()
	elem := m.FindType("integer")
	a1 := m.Register(m.NewArray(0, 9, elem), true, false)
	a2 := m.Register(m.NewArray(0, 9, elem), true, false)
	if a1 != a2 {
		t.Fatal("expected structurally identical arrays to dedup to one descriptor")
	}
}

func TestRegisterClassNeverUnifies(t *testing.T) {
	m := NewModel()
	c1 := m.Register(m.NewClass(nil), true, false)
	c2 := m.Register(m.NewClass(nil), true, false)
	if c1 == c2 {
		t.Fatal("expected two classes to remain distinct even with identical (empty) shape")
	}
}

func TestClassByteSizeAndOffset(t *testing.T) {
	m := NewModel()
	i32 := m.FindType("integer")
	f64 := m.FindType("real")

	base := m.Register(m.NewClass(nil), true, false)
	base.AddField("x", i32)

	derived := m.Register(m.NewClass(base), true, false)
	derived.AddField("y", f64)

	if got := derived.ByteSize(); got != 2 {
		t.Fatalf("got byte size %d, want 2 (1 inherited + 1 own)", got)
	}
	off, ok := derived.Offset("y")
	if !ok || off != 1 {
		t.Fatalf("got offset (%d, %v), want (1, true)", off, ok)
	}
	off, ok = derived.Offset("x")
	if !ok || off != 0 {
		t.Fatalf("got offset (%d, %v), want (0, true) for inherited field", off, ok)
	}
}

func TestArraySignatureCompaction(t *testing.T) {
	m := NewModel()
	i32 := m.FindType("integer")
	arr := m.NewArray(0, 4, i32)
	sig := arr.Signature()
	if len(sig) != 1 || sig[0].Kind != value.Int32 || sig[0].Run != 5 {
		t.Fatalf("expected single compacted run of 5 int32s, got %+v", sig)
	}
}

func TestPointerSignatureIsInt32(t *testing.T) {
	m := NewModel()
	ptr := m.NewPointer(m.FindType("real"))
	sig := ptr.Signature()
	if len(sig) != 1 || sig[0].Kind != value.Int32 {
		t.Fatalf("expected pointer signature to be a single int32 run, got %+v", sig)
	}
}
