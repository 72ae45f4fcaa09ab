// Package value implements the tagged scalar/pointer/string/aggregate cell
// used on the virtual machine's stack and in its storage (name table,
// static variables). It is a closed, explicitly tagged
// union the bytecode VM requires for scalar-kind polymorphic arithmetic and
// for pointer-chasing dereference.
package value

import (
	"fmt"
	"math"
	"sort"
)

// Kind is the tag of a Cell. It mirrors ScriptVariant::Types from the
// original implementation (ScriptVariant.h), in the same declaration order
// so the numeric opcode encoding stays stable across the bytecode file
// format.
type Kind uint8

const (
	Bool Kind = iota
	Float32
	Float64
	Int8
	Uint8
	Int16
	Uint16
	Int32
	Uint32
	Int64
	Uint64
	Pointer
	String
	StringChar
	Array
	Map
	kindCount
	Undefined = kindCount
)

// Auto tells SetValue to derive the kind from the Go type of the value
// being stored, rather than coercing into the cell's current kind.
const Auto Kind = 255

// Coerce tells SetValue to coerce v into the cell's existing kind. Any
// hint other than Auto has this effect; Coerce exists purely as a
// self-documenting spelling for call sites that want the existing-kind path.
const Coerce Kind = Undefined

// MaxReferenceDepth bounds pointer-chasing. Exceeding it fails with
// ErrCyclicReference rather than detecting cycles by marking, per the
// pointer-depth-bound design note.
const MaxReferenceDepth = 32

func (k Kind) IsInt() bool   { return k >= Int8 && k <= Uint64 }
func (k Kind) IsFloat() bool { return k == Float32 || k == Float64 }

func (k Kind) String() string {
	switch k {
	case Bool:
		return "bool"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Int8:
		return "int8"
	case Uint8:
		return "uint8"
	case Int16:
		return "int16"
	case Uint16:
		return "uint16"
	case Int32:
		return "int32"
	case Uint32:
		return "uint32"
	case Int64:
		return "int64"
	case Uint64:
		return "uint64"
	case Pointer:
		return "ptr"
	case String:
		return "string"
	case StringChar:
		return "string_char"
	case Array:
		return "array"
	case Map:
		return "map"
	}
	return "undefined"
}

// ErrCyclicReference is returned (wrapped) when a pointer chase exceeds
// MaxReferenceDepth.
type ErrCyclicReference struct{}

func (ErrCyclicReference) Error() string { return "cyclic reference" }

// ErrPointerOffset is returned when a pointer's index runs past its
// recorded max-valid index.
type ErrPointerOffset struct {
	Index, Max int
}

func (e ErrPointerOffset) Error() string {
	return fmt.Sprintf("pointer offset %d beyond max index %d", e.Index, e.Max)
}

// ErrNotAPointer is returned by operations that require a pointer cell.
type ErrNotAPointer struct{}

func (ErrNotAPointer) Error() string { return "trying to set address of non-pointer" }

// Container is anything a Ptr can address: the VM's stack, its static
// variable storage, or the external name-table storage. Cell is resolved
// dynamically on every chase, so a Container may grow between takes without
// invalidating previously-constructed pointers.
type Container interface {
	Cell(index int) *Cell
	Len() int
}

// Ptr is the payload of a Pointer-kind cell: a container handle plus an
// inclusive index range (index must stay <= maxIndex to dereference).
type Ptr struct {
	Container Container
	Index     int
	MaxIndex  int
}

func (p Ptr) valid() bool { return p.Index <= p.MaxIndex }

// Cell is the tagged union. Only the field matching Kind is meaningful;
// callers coerce across kinds through Get/Set rather than touching fields
// directly.
type Cell struct {
	Kind         Kind
	ValueChanged bool

	b   bool
	f32 float32
	f64 float64
	i8  int8
	u8  uint8
	i16 int16
	u16 uint16
	i32 int32
	u32 uint32
	i64 int64
	u64 uint64

	ptr Ptr

	str     string   // owned string storage (String kind)
	strRef  *string  // borrowed string (StringChar kind): points at another cell's str
	strAt   int      // byte offset into *strRef (StringChar kind)
	arr     []Cell   // Array kind
	mapKeys []string // Map kind, insertion order preserved at Set, iteration order sorted
	mapVals map[string]Cell
}

// New constructs a zero-valued cell of the given kind.
func New(k Kind) Cell {
	return Cell{Kind: k}
}

// NewAuto constructs a cell whose kind is derived from v's Go type and
// stores v into it. Equivalent to an AUTO-hinted SetValue on a fresh cell.
func NewAuto(v interface{}) Cell {
	var c Cell
	c.Set(v, Auto)
	return c
}

func kindOf(v interface{}) Kind {
	switch v.(type) {
	case bool:
		return Bool
	case float32:
		return Float32
	case float64:
		return Float64
	case int8:
		return Int8
	case uint8:
		return Uint8
	case int16:
		return Int16
	case uint16:
		return Uint16
	case int32:
		return Int32
	case uint32:
		return Uint32
	case int64:
		return Int64
	case uint64:
		return Uint64
	case int:
		return Int64
	case string:
		return String
	}
	return Undefined
}

// Set stores v into the cell, coercing into the cell's current Kind unless
// hint is Auto, in which case the Kind is derived from v's Go type first.
func (c *Cell) Set(v interface{}, hint Kind) {
	k := c.Kind
	if hint == Auto {
		k = kindOf(v)
		c.Kind = k
	}
	switch k {
	case Bool:
		c.b = toBool(v)
	case Float32:
		c.f32 = float32(toFloat(v))
	case Float64:
		c.f64 = toFloat(v)
	case Int8:
		c.i8 = int8(toInt(v))
	case Uint8:
		c.u8 = uint8(toInt(v))
	case Int16:
		c.i16 = int16(toInt(v))
	case Uint16:
		c.u16 = uint16(toInt(v))
	case Int32:
		c.i32 = int32(toInt(v))
	case Uint32:
		c.u32 = uint32(toInt(v))
	case Int64:
		c.i64 = toInt(v)
	case Uint64:
		c.u64 = uint64(toInt(v))
	case String:
		c.str = toString(v)
	case StringChar:
		if c.strRef != nil {
			b := []byte(*c.strRef)
			if c.strAt >= 0 && c.strAt < len(b) {
				b[c.strAt] = byte(toInt(v))
				*c.strRef = string(b)
			}
		}
	case Pointer:
		target := c.ptr.Container.Cell(c.ptr.Index)
		target.Set(v, Auto)
	}
	c.ValueChanged = true
}

func toBool(v interface{}) bool {
	switch x := v.(type) {
	case bool:
		return x
	case string:
		return x != "" && x != "0" && x != "false"
	default:
		return toFloat(v) != 0
	}
}

func toFloat(v interface{}) float64 {
	switch x := v.(type) {
	case bool:
		if x {
			return 1
		}
		return 0
	case float32:
		return float64(x)
	case float64:
		return x
	case int:
		return float64(x)
	case int8:
		return float64(x)
	case uint8:
		return float64(x)
	case int16:
		return float64(x)
	case uint16:
		return float64(x)
	case int32:
		return float64(x)
	case uint32:
		return float64(x)
	case int64:
		return float64(x)
	case uint64:
		return float64(x)
	case string:
		var f float64
		fmt.Sscanf(x, "%g", &f)
		return f
	}
	return 0
}

func toInt(v interface{}) int64 {
	switch x := v.(type) {
	case bool:
		if x {
			return 1
		}
		return 0
	case float32:
		return int64(x)
	case float64:
		return int64(x)
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case uint8:
		return int64(x)
	case int16:
		return int64(x)
	case uint16:
		return int64(x)
	case int32:
		return int64(x)
	case uint32:
		return int64(x)
	case int64:
		return x
	case uint64:
		return int64(x)
	case string:
		var i int64
		fmt.Sscanf(x, "%d", &i)
		return i
	}
	return 0
}

func toString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// Bool, Int64, Uint64, Float64, Str report the cell coerced into that Go
// type without chasing pointers. Use Get for pointer-transparent reads.
func (c *Cell) Bool() bool       { return toBool(c.raw()) }
func (c *Cell) Int64() int64     { return toInt(c.raw()) }
func (c *Cell) Uint64() uint64   { return uint64(toInt(c.raw())) }
func (c *Cell) Float64() float64 { return toFloat(c.raw()) }
func (c *Cell) Str() string      { return c.rawString() }

func (c *Cell) raw() interface{} {
	switch c.Kind {
	case Bool:
		return c.b
	case Float32:
		return c.f32
	case Float64:
		return c.f64
	case Int8:
		return c.i8
	case Uint8:
		return c.u8
	case Int16:
		return c.i16
	case Uint16:
		return c.u16
	case Int32:
		return c.i32
	case Uint32:
		return c.u32
	case Int64:
		return c.i64
	case Uint64:
		return c.u64
	case String:
		return c.str
	case StringChar:
		if c.strRef != nil && c.strAt >= 0 && c.strAt < len(*c.strRef) {
			return int64((*c.strRef)[c.strAt])
		}
		return int64(0)
	}
	return int64(0)
}

func (c *Cell) rawString() string {
	if c.Kind == String {
		return c.str
	}
	if c.Kind == StringChar {
		v, _ := c.raw().(int64)
		return string(rune(v))
	}
	return fmt.Sprintf("%v", c.raw())
}

// Get returns the cell's value coerced to T, chasing at most
// MaxReferenceDepth pointer hops. T must be one of bool, int64, uint64,
// float64, or string; other numeric widths should narrow from Int64/Uint64.
func Get[T any](c *Cell) (T, error) {
	var zero T
	v, err := c.getCounted(MaxReferenceDepth, any(zero))
	if err != nil {
		return zero, err
	}
	coerced, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("cell: cannot coerce %T to requested type", v)
	}
	return coerced, nil
}

func (c *Cell) getCounted(maxRef int, sample interface{}) (interface{}, error) {
	if c.Kind == Pointer {
		if maxRef < 0 {
			return nil, ErrCyclicReference{}
		}
		target, err := c.deref()
		if err != nil {
			return nil, err
		}
		return target.getCounted(maxRef-1, sample)
	}
	switch sample.(type) {
	case string:
		return c.rawString(), nil
	case bool:
		return c.Bool(), nil
	case float64:
		return c.Float64(), nil
	case uint64:
		return c.Uint64(), nil
	default:
		return c.Int64(), nil
	}
}

func (c *Cell) deref() (*Cell, error) {
	if !c.ptr.valid() {
		return nil, ErrPointerOffset{Index: c.ptr.Index, Max: c.ptr.MaxIndex}
	}
	return c.ptr.Container.Cell(c.ptr.Index), nil
}

// SetPointer turns the cell into a Pointer addressing [index, index+size)
// within container. If autoDeref is set and the target cell is itself a
// pointer, the target's pointer is copied instead (one-hop flattening) so
// chains of "var ref = ref2" collapse rather than nest.
func (c *Cell) SetPointer(container Container, index, size int, autoDeref bool) {
	p := Ptr{Container: container, Index: index, MaxIndex: index + size - 1}
	if autoDeref {
		if target := container.Cell(index); target != nil && target.Kind == Pointer {
			p = target.ptr
		}
	}
	c.Kind = Pointer
	c.ptr = p
	c.ValueChanged = true
}

// AddPointer advances a pointer cell's index by delta. Fails if the cell
// is not currently a pointer.
func (c *Cell) AddPointer(delta int) error {
	if c.Kind != Pointer {
		return ErrNotAPointer{}
	}
	c.ptr.Index += delta
	c.ValueChanged = true
	return nil
}

// PointerInfo exposes the pointer payload for VM opcodes (IDX, ADDREF,
// DEREF) that need direct access to the index/container rather than a
// coerced scalar read.
func (c *Cell) PointerInfo() (Ptr, bool) {
	if c.Kind != Pointer {
		return Ptr{}, false
	}
	return c.ptr, true
}

// SetStringReference turns the cell into a StringChar borrow of byte n of
// source's owned string.
func (c *Cell) SetStringReference(source *Cell, n int) {
	c.Kind = StringChar
	c.strRef = &source.str
	c.strAt = n
	c.ValueChanged = true
}

// GetReferenced chases up to limit pointer hops starting at (self, offset),
// returning the final non-pointer cell. limit < 0 means unlimited (bounded
// only by MaxReferenceDepth).
func (c *Cell) GetReferenced(offset, limit int) (*Cell, error) {
	cur := c
	if offset != 0 {
		if cur.Kind != Pointer {
			return nil, ErrNotAPointer{}
		}
		shifted := *cur
		shifted.ptr.Index += offset
		cur = &shifted
	}
	hops := limit
	if hops < 0 {
		hops = MaxReferenceDepth
	}
	for cur.Kind == Pointer {
		if hops < 0 {
			return nil, ErrCyclicReference{}
		}
		next, err := cur.deref()
		if err != nil {
			return nil, err
		}
		cur = next
		hops--
	}
	return cur, nil
}

// ArrayCells returns the backing slice of an Array-kind cell.
func (c *Cell) ArrayCells() []Cell { return c.arr }

// SetArray replaces the cell's contents with an Array of the given cells.
func (c *Cell) SetArray(cells []Cell) {
	c.Kind = Array
	c.arr = cells
	c.ValueChanged = true
}

// MapKeys returns the map's keys in sorted (key-ordered) order.
func (c *Cell) MapKeys() []string {
	keys := make([]string, len(c.mapKeys))
	copy(keys, c.mapKeys)
	sort.Strings(keys)
	return keys
}

// MapGet returns the cell stored at key, or the zero Cell and false.
func (c *Cell) MapGet(key string) (Cell, bool) {
	v, ok := c.mapVals[key]
	return v, ok
}

// MapSet stores val at key, initializing the map on first use.
func (c *Cell) MapSet(key string, val Cell) {
	if c.Kind != Map {
		c.Kind = Map
		c.mapVals = map[string]Cell{}
	}
	if _, exists := c.mapVals[key]; !exists {
		c.mapKeys = append(c.mapKeys, key)
	}
	c.mapVals[key] = val
	c.ValueChanged = true
}

// MapDelete removes key from the map, if present.
func (c *Cell) MapDelete(key string) {
	delete(c.mapVals, key)
	for i, k := range c.mapKeys {
		if k == key {
			c.mapKeys = append(c.mapKeys[:i], c.mapKeys[i+1:]...)
			break
		}
	}
}

// EqualScalar compares two scalar cells for the VM's CMPS opcode. Integer
// equality is exact; float comparisons use a relative tolerance scaled by
// the smaller magnitude, per the numeric-comparison rule.
func EqualScalar(a, b *Cell) bool {
	if a.Kind.IsFloat() || b.Kind.IsFloat() {
		x, y := a.Float64(), b.Float64()
		tol := 1e-12
		if a.Kind == Float32 || b.Kind == Float32 {
			tol = 1e-5
		}
		m := math.Min(math.Abs(x), math.Abs(y))
		return math.Abs(x-y) <= tol*math.Max(m, 1)
	}
	if a.Kind == Bool || b.Kind == Bool {
		return a.Bool() == b.Bool()
	}
	if a.Kind == String || a.Kind == StringChar || b.Kind == String || b.Kind == StringChar {
		return a.Str() == b.Str()
	}
	return a.Int64() == b.Int64()
}
