package stdlib

import (
	"fmt"
	"math"
	"time"

	"pascalvm/internal/value"
)

func mathSin(a float64) float64  { return math.Sin(a) }
func mathCos(a float64) float64  { return math.Cos(a) }
func mathTan(a float64) float64  { return math.Tan(a) }
func mathAsin(a float64) float64 { return math.Asin(a) }
func mathAcos(a float64) float64 { return math.Acos(a) }
func mathAtan(a float64) float64 { return math.Atan(a) }
func mathAtan2(a, b float64) float64 { return math.Atan2(a, b) }
func mathSqrt(a float64) float64 { return math.Sqrt(a) }
func mathSqr(a float64) float64  { return a * a }
func mathAbs(a float64) float64  { return math.Abs(a) }
func mathPow(a, b float64) float64 { return math.Pow(a, b) }
func mathLn(a float64) float64   { return math.Log(a) }
func mathLog10(a float64) float64 { return math.Log10(a) }
func mathExp(a float64) float64  { return math.Exp(a) }
func mathDiv(a, b float64) float64 { return a / b }

// mathMod replicates the original's integer modulo over two real-typed
// operands (StadardLibrary.cpp's Mod truncates both to uint64 before %).
func mathMod(a, b float64) float64 {
	ub := uint64(b)
	if ub == 0 {
		return 0
	}
	return float64(uint64(a) % ub)
}

func mathSub(a, b float64) float64 { return a - b }
func mathNeg(a float64) float64    { return -a }
func mathDeg(a float64) float64    { return a * 180 / math.Pi }
func mathRad(a float64) float64    { return a * math.Pi / 180 }
func mathTrunc(a float64) float64  { return math.Trunc(a) }

// bitRol/bitRor are named for rotate but, matching the original
// implementation exactly, are plain shifts rather than true bit rotations.
func bitRol(in, n uint64) uint64 { return in << n }
func bitRor(in, n uint64) uint64 { return in >> n }
func bitShl(in, n uint64) uint64 { return in << n }
func bitShr(in, n uint64) uint64 { return in >> n }

func boolCell(b bool) value.Cell {
	c := value.New(value.Bool)
	c.Set(b, value.Coerce)
	return c
}

func int32Cell(v int64) value.Cell {
	c := value.New(value.Int32)
	c.Set(v, value.Coerce)
	return c
}

// sel(c, a, b) = c ? b : a, matching the original's `!c ? a : b`.
func sel(args []value.Cell) ([]value.Cell, error) {
	if len(args) != 3 {
		return nil, fmt.Errorf("sel expects 3 arguments")
	}
	if args[0].Float64() == 0 {
		return []value.Cell{floatCell(args[1].Float64())}, nil
	}
	return []value.Cell{floatCell(args[2].Float64())}, nil
}

func limit(args []value.Cell) ([]value.Cell, error) {
	if len(args) != 3 {
		return nil, fmt.Errorf("limit expects 3 arguments")
	}
	mn, in, mx := args[0].Float64(), args[1].Float64(), args[2].Float64()
	return []value.Cell{boolCell(in >= mn && in <= mx)}, nil
}

func lenFn(args []value.Cell) ([]value.Cell, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("len expects 1 argument")
	}
	return []value.Cell{int32Cell(int64(len(args[0].Str())))}, nil
}

// moveFn reads through the reference args[0] holds, mirroring the
// original's `*result = *(args[0]->getReferenced())`.
func moveFn(args []value.Cell) ([]value.Cell, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("move expects 1 argument")
	}
	ptr, ok := args[0].PointerInfo()
	if !ok {
		return nil, fmt.Errorf("move: argument is not a reference")
	}
	return []value.Cell{*ptr.Container.Cell(ptr.Index)}, nil
}

func nowFn(args []value.Cell) ([]value.Cell, error) {
	c := value.New(value.Int64)
	c.Set(time.Now().UnixMicro(), value.Coerce)
	return []value.Cell{c}, nil
}

func secondsBetween(args []value.Cell) ([]value.Cell, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("secondsbetween expects 2 arguments")
	}
	from, to := args[0].Int64(), args[1].Int64()
	return []value.Cell{floatCell(float64(to-from) / 1000000.0)}, nil
}

// wordSwap applies the big-endian byte swap the original performs on each
// 16-bit half when be is set, before the halves are combined into one
// 32-bit word.
func wordSwap(w uint16, be bool) uint16 {
	if !be {
		return w
	}
	return (w%256)<<8 | (w / 256)
}

func readInt(args []value.Cell) ([]value.Cell, error) {
	if len(args) != 3 {
		return nil, fmt.Errorf("readint expects 3 arguments")
	}
	lower := wordSwap(uint16(args[0].Uint64()), args[2].Bool())
	high := wordSwap(uint16(args[1].Uint64()), args[2].Bool())
	result := uint32(high)<<16 | uint32(lower)
	return []value.Cell{int32Cell(int64(int32(result)))}, nil
}

func readFloat(args []value.Cell) ([]value.Cell, error) {
	if len(args) != 3 {
		return nil, fmt.Errorf("readfloat expects 3 arguments")
	}
	lower := wordSwap(uint16(args[0].Uint64()), args[2].Bool())
	high := wordSwap(uint16(args[1].Uint64()), args[2].Bool())
	bits := uint32(high)<<16 | uint32(lower)
	c := value.New(value.Float32)
	c.Set(float64(math.Float32frombits(bits)), value.Coerce)
	return []value.Cell{c}, nil
}
