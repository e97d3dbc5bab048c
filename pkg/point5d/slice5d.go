package point5d

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Span is a half-open range [Start, Stop) along one axis.
// The zero value selects the full extent of the axis.
type Span struct {
	Start, Stop int
	bounded     bool
}

// All selects the full extent of an axis.
func All() Span { return Span{} }

// Range selects [start, stop).
func Range(start, stop int) Span {
	return Span{Start: start, Stop: stop, bounded: true}
}

// At selects the single index i.
func At(i int) Span { return Range(i, i+1) }

// IsAll reports whether s selects the full axis.
func (s Span) IsAll() bool { return !s.bounded }

func (s Span) resolve(extent int) (int, int, error) {
	if !s.bounded {
		return 0, extent, nil
	}
	if s.Start < 0 || s.Stop > extent || s.Start > s.Stop {
		return 0, 0, errors.Wrapf(ErrOutOfBounds, "range [%d:%d) for extent %d", s.Start, s.Stop, extent)
	}
	return s.Start, s.Stop, nil
}

func (s Span) String() string {
	if !s.bounded {
		return ":"
	}
	return fmt.Sprintf("%d:%d", s.Start, s.Stop)
}

// Slice5D is a region of interest given as one Span per axis.
// Omitted (zero) spans select the full axis.
type Slice5D struct {
	T, C, X, Y, Z Span
}

// Get returns the span along key. It panics on an unknown key.
func (s Slice5D) Get(key byte) Span {
	switch key {
	case 't':
		return s.T
	case 'c':
		return s.C
	case 'x':
		return s.X
	case 'y':
		return s.Y
	case 'z':
		return s.Z
	}
	panic(fmt.Sprintf("point5d: unknown axis %q", string(key)))
}

// With returns a copy of s with the span along key replaced.
func (s Slice5D) With(key byte, span Span) Slice5D {
	switch key {
	case 't':
		s.T = span
	case 'c':
		s.C = span
	case 'x':
		s.X = span
	case 'y':
		s.Y = span
	case 'z':
		s.Z = span
	default:
		panic(fmt.Sprintf("point5d: unknown axis %q", string(key)))
	}
	return s
}

// Resolve turns s into concrete bounds inside shape.
func (s Slice5D) Resolve(shape Shape5D) (Region, error) {
	var r Region
	for i := 0; i < len(Labels); i++ {
		key := Labels[i]
		start, stop, err := s.Get(key).resolve(shape.Get(key))
		if err != nil {
			return Region{}, errors.Wrapf(err, "axis %q of %s", string(key), shape)
		}
		r.Start = r.Start.With(key, start)
		r.Stop = r.Stop.With(key, stop)
	}
	return r, nil
}

func (s Slice5D) String() string {
	return fmt.Sprintf("Slice5D(t:%s c:%s x:%s y:%s z:%s)", s.T, s.C, s.X, s.Y, s.Z)
}

// Region is a resolved, in-bounds Slice5D.
type Region struct {
	Start, Stop Point5D
}

// Shape returns the extent of the region.
func (r Region) Shape() Shape5D {
	return Shape5D{
		T: r.Stop.T - r.Start.T,
		C: r.Stop.C - r.Start.C,
		X: r.Stop.X - r.Start.X,
		Y: r.Stop.Y - r.Start.Y,
		Z: r.Stop.Z - r.Start.Z,
	}
}

// ToSlice5D converts the region back to bounded spans.
func (r Region) ToSlice5D() Slice5D {
	var s Slice5D
	for i := 0; i < len(Labels); i++ {
		key := Labels[i]
		s = s.With(key, Range(r.Start.Get(key), r.Stop.Get(key)))
	}
	return s
}
