package array5d

import (
	"fmt"
	"math"
)

// DType is the element type an array's values are constrained to.
// Values are always stored as float64; the dtype decides how they are
// coerced on write.
type DType uint8

const (
	Float64 DType = iota
	Float32
	Uint8
	Uint16
	Uint32
	Int32
	Int64
)

// Coerce converts v to the nearest value representable by d.
// Integer types truncate toward zero and saturate at their bounds; NaN maps
// to zero.
func (d DType) Coerce(v float64) float64 {
	switch d {
	case Float64:
		return v
	case Float32:
		return float64(float32(v))
	}
	if math.IsNaN(v) {
		return 0
	}
	lo, hi := d.bounds()
	return math.Max(lo, math.Min(hi, math.Trunc(v)))
}

func (d DType) bounds() (float64, float64) {
	switch d {
	case Uint8:
		return 0, math.MaxUint8
	case Uint16:
		return 0, math.MaxUint16
	case Uint32:
		return 0, math.MaxUint32
	case Int32:
		return math.MinInt32, math.MaxInt32
	case Int64:
		return math.MinInt64, math.MaxInt64
	}
	return math.Inf(-1), math.Inf(1)
}

// IsFloat reports whether d is a floating point type.
func (d DType) IsFloat() bool { return d == Float32 || d == Float64 }

func (d DType) String() string {
	switch d {
	case Float64:
		return "float64"
	case Float32:
		return "float32"
	case Uint8:
		return "uint8"
	case Uint16:
		return "uint16"
	case Uint32:
		return "uint32"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	}
	return fmt.Sprintf("DType(%d)", uint8(d))
}
