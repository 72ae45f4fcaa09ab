package value

import "testing"

type sliceContainer struct{ cells []Cell }

func (s *sliceContainer) Cell(i int) *Cell { return &s.cells[i] }
func (s *sliceContainer) Len() int         { return len(s.cells) }

func TestSetValueAuto(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want Kind
	}{
		{"bool", true, Bool},
		{"int64", int64(5), Int64},
		{"float64", 3.5, Float64},
		{"string", "hi", String},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewAuto(tt.in)
			if c.Kind != tt.want {
				t.Fatalf("got kind %v, want %v", c.Kind, tt.want)
			}
		})
	}
}

func TestSetValueCoercesIntoExistingKind(t *testing.T) {
	c := New(Int32)
	c.Set(3.9, Coerce)
	if c.Kind != Int32 {
		t.Fatalf("kind changed under coercion, got %v", c.Kind)
	}
	if v, _ := Get[int64](&c); v != 3 {
		t.Fatalf("got %d, want 3", v)
	}
}

func TestPointerDerefAndDepthLimit(t *testing.T) {
	c := &sliceContainer{cells: make([]Cell, 4)}
	c.cells[0] = NewAuto(int64(42))

	var p Cell
	p.SetPointer(c, 0, 1, false)
	got, err := Get[int64](&p)
	if err != nil || got != 42 {
		t.Fatalf("deref got (%d, %v), want (42, nil)", got, err)
	}

	// Build a self-referential chain exceeding MaxReferenceDepth.
	chain := &sliceContainer{cells: make([]Cell, 1)}
	chain.cells[0].SetPointer(chain, 0, 1, false)
	if _, err := Get[int64](&chain.cells[0]); err == nil {
		t.Fatal("expected cyclic reference error")
	}
}

func TestAddPointerRequiresPointerKind(t *testing.T) {
	c := NewAuto(int64(1))
	if err := c.AddPointer(1); err == nil {
		t.Fatal("expected error adding to non-pointer cell")
	}
}

func TestPointerOffsetBeyondMaxIndex(t *testing.T) {
	container := &sliceContainer{cells: make([]Cell, 2)}
	var p Cell
	p.SetPointer(container, 0, 1, false)
	p.AddPointer(5)
	if _, err := Get[int64](&p); err == nil {
		t.Fatal("expected pointer offset error")
	}
}

func TestEqualScalarFloatTolerance(t *testing.T) {
	a := NewAuto(1.0000000000001)
	b := NewAuto(1.0000000000002)
	if !EqualScalar(&a, &b) {
		t.Fatal("expected near-equal float64 cells to compare equal")
	}
	c := NewAuto(1.0)
	d := NewAuto(1.1)
	if EqualScalar(&c, &d) {
		t.Fatal("expected distinguishably different floats to compare unequal")
	}
}

func TestMapKeyOrder(t *testing.T) {
	var m Cell
	m.MapSet("zebra", NewAuto(int64(1)))
	m.MapSet("apple", NewAuto(int64(2)))
	keys := m.MapKeys()
	if len(keys) != 2 || keys[0] != "apple" || keys[1] != "zebra" {
		t.Fatalf("unexpected key order: %v", keys)
	}
}

func TestStringReferenceBorrow(t *testing.T) {
	src := NewAuto("hello")
	var ch Cell
	ch.SetStringReference(&src, 1)
	if ch.Kind != StringChar {
		t.Fatalf("expected StringChar kind, got %v", ch.Kind)
	}
	if got := ch.Str(); got != "e" {
		t.Fatalf("got %q, want %q", got, "e")
	}
}
