// Package point5d provides the fixed-axis coordinate, extent and region types
// shared by every array in pixelclassifier.
//
// All types enumerate the five semantic axes explicitly: t (time), c
// (channel) and the spatial axes x, y and z. Axis keys are single bytes taken
// from Labels.
package point5d

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// Labels is the canonical axis order.
const Labels = "tcxyz"

// Spatials lists the spatial axis keys in canonical order.
const Spatials = "xyz"

var (
	// ErrInvalidAxis is returned when an axis key is not one of Labels or
	// appears more than once.
	ErrInvalidAxis = errors.New("invalid axis key")

	// ErrOutOfBounds is returned when a region does not fit inside a shape.
	ErrOutOfBounds = errors.New("region out of bounds")
)

// ValidateKeys checks that keys is made of distinct axis keys from Labels.
func ValidateKeys(keys string) error {
	seen := make(map[byte]bool, len(keys))
	for i := 0; i < len(keys); i++ {
		k := keys[i]
		if strings.IndexByte(Labels, k) < 0 {
			return errors.Wrapf(ErrInvalidAxis, "%q in %q", string(k), keys)
		}
		if seen[k] {
			return errors.Wrapf(ErrInvalidAxis, "duplicate %q in %q", string(k), keys)
		}
		seen[k] = true
	}
	return nil
}

// IsSpatial reports whether key names one of x, y or z.
func IsSpatial(key byte) bool {
	return strings.IndexByte(Spatials, key) >= 0
}

// Point5D is an integer coordinate over the five semantic axes.
type Point5D struct {
	T, C, X, Y, Z int
}

// Get returns the coordinate along key. It panics on an unknown key.
func (p Point5D) Get(key byte) int {
	switch key {
	case 't':
		return p.T
	case 'c':
		return p.C
	case 'x':
		return p.X
	case 'y':
		return p.Y
	case 'z':
		return p.Z
	}
	panic(fmt.Sprintf("point5d: unknown axis %q", string(key)))
}

// With returns a copy of p with the coordinate along key replaced.
func (p Point5D) With(key byte, value int) Point5D {
	switch key {
	case 't':
		p.T = value
	case 'c':
		p.C = value
	case 'x':
		p.X = value
	case 'y':
		p.Y = value
	case 'z':
		p.Z = value
	default:
		panic(fmt.Sprintf("point5d: unknown axis %q", string(key)))
	}
	return p
}

// Add returns the axis-wise sum of p and o.
func (p Point5D) Add(o Point5D) Point5D {
	return Point5D{T: p.T + o.T, C: p.C + o.C, X: p.X + o.X, Y: p.Y + o.Y, Z: p.Z + o.Z}
}

// ToTuple returns the coordinates in the order given by keys.
func (p Point5D) ToTuple(keys string) []int {
	out := make([]int, len(keys))
	for i := 0; i < len(keys); i++ {
		out[i] = p.Get(keys[i])
	}
	return out
}

func (p Point5D) String() string {
	return fmt.Sprintf("Point5D(t:%d c:%d x:%d y:%d z:%d)", p.T, p.C, p.X, p.Y, p.Z)
}

// Shape5D holds the extent of an array along each semantic axis.
// The zero value is an empty shape; use NewShape5D for the 1x1x1x1x1 shape.
type Shape5D struct {
	T, C, X, Y, Z int
}

// NewShape5D returns the shape with extent 1 on every axis.
func NewShape5D() Shape5D {
	return Shape5D{T: 1, C: 1, X: 1, Y: 1, Z: 1}
}

// ShapeOf builds a shape from extents listed in keys order. Axes absent from
// keys get extent 1.
func ShapeOf(keys string, dims []int) (Shape5D, error) {
	if err := ValidateKeys(keys); err != nil {
		return Shape5D{}, err
	}
	if len(keys) != len(dims) {
		return Shape5D{}, errors.Newf("%d axis keys %q for %d extents", len(keys), keys, len(dims))
	}
	s := NewShape5D()
	for i := 0; i < len(keys); i++ {
		if dims[i] < 0 {
			return Shape5D{}, errors.Newf("negative extent %d on axis %q", dims[i], string(keys[i]))
		}
		s = s.With(keys[i], dims[i])
	}
	return s, nil
}

// Get returns the extent along key. It panics on an unknown key.
func (s Shape5D) Get(key byte) int {
	return Point5D(s).Get(key)
}

// With returns a copy of s with the extent along key replaced.
func (s Shape5D) With(key byte, value int) Shape5D {
	return Shape5D(Point5D(s).With(key, value))
}

// ToTuple returns the extents in the order given by keys.
func (s Shape5D) ToTuple(keys string) []int {
	return Point5D(s).ToTuple(keys)
}

// Volume is the number of elements covered by s.
func (s Shape5D) Volume() int {
	return s.T * s.C * s.X * s.Y * s.Z
}

// IsStatic reports a single time point.
func (s Shape5D) IsStatic() bool { return s.T == 1 }

// IsScalar reports a single channel.
func (s Shape5D) IsScalar() bool { return s.C == 1 }

// IsFlat reports exactly one singleton spatial axis, i.e. planar data.
func (s Shape5D) IsFlat() bool { return s.singletonSpatials() == 1 }

// IsLine reports exactly two singleton spatial axes.
func (s Shape5D) IsLine() bool { return s.singletonSpatials() == 2 }

func (s Shape5D) singletonSpatials() int {
	n := 0
	for _, e := range []int{s.X, s.Y, s.Z} {
		if e == 1 {
			n++
		}
	}
	return n
}

// ToSlice5D returns the region covering the whole shape.
func (s Shape5D) ToSlice5D() Slice5D {
	return Slice5D{
		T: Range(0, s.T),
		C: Range(0, s.C),
		X: Range(0, s.X),
		Y: Range(0, s.Y),
		Z: Range(0, s.Z),
	}
}

func (s Shape5D) String() string {
	return fmt.Sprintf("Shape5D(t:%d c:%d x:%d y:%d z:%d)", s.T, s.C, s.X, s.Y, s.Z)
}
