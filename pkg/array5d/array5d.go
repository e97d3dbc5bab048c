// Package array5d implements the canonical five-axis array used for all
// image, volume and time-series data in pixelclassifier.
//
// Every Array5D exposes exactly the axes t, c, x, y and z, whatever the
// layout of the buffer it was built from: missing axes are inserted with
// extent 1. Arrays may be tagged with a Kind (Image, ScalarImage, ...) that is
// validated against the shape when the tag is applied and that decides the
// squeezed, display-ready view returned by Raw.
package array5d

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"gonum.org/v1/gonum/mat"

	"pixelclassifier/pkg/point5d"
)

// Array5D is a dense five-axis array. Values are stored row-major over the
// raw axis order returned by Keys.
type Array5D struct {
	data    []float64
	keys    string
	dims    []int
	strides []int
	dtype   DType
	kind    Kind
}

// New wraps data laid out row-major over keys with the given extents. keys
// may name any subset of "tcxyz"; the missing axes are prepended with extent
// 1 in canonical order. New takes ownership of data and coerces it to dtype.
func New(data []float64, keys string, dims []int, dtype DType) (*Array5D, error) {
	if err := point5d.ValidateKeys(keys); err != nil {
		return nil, err
	}
	if len(keys) != len(dims) {
		return nil, errors.Newf("%d axis keys %q for %d extents", len(keys), keys, len(dims))
	}
	var missing strings.Builder
	for i := 0; i < len(point5d.Labels); i++ {
		if strings.IndexByte(keys, point5d.Labels[i]) < 0 {
			missing.WriteByte(point5d.Labels[i])
		}
	}
	full := make([]int, 0, len(point5d.Labels))
	for i := 0; i < missing.Len(); i++ {
		full = append(full, 1)
	}
	volume := 1
	for i, d := range dims {
		if d < 0 {
			return nil, errors.Newf("negative extent %d on axis %q", d, string(keys[i]))
		}
		volume *= d
		full = append(full, d)
	}
	if len(data) != volume {
		return nil, errors.Wrapf(ErrShapeMismatch, "%d values for extents %v over %q", len(data), dims, keys)
	}
	if dtype != Float64 {
		for i, v := range data {
			data[i] = dtype.Coerce(v)
		}
	}
	return newArray(data, missing.String()+keys, full, dtype), nil
}

func newArray(data []float64, keys string, dims []int, dtype DType) *Array5D {
	strides := make([]int, len(dims))
	stride := 1
	for i := len(dims) - 1; i >= 0; i-- {
		strides[i] = stride
		stride *= dims[i]
	}
	return &Array5D{data: data, keys: keys, dims: dims, strides: strides, dtype: dtype}
}

// Allocate returns an array of the given shape with its raw buffer laid out
// over axisOrder, which must be a permutation of "tcxyz". Without a fill
// value the content is zero, but callers must not rely on it.
func Allocate(shape point5d.Shape5D, dtype DType, axisOrder string, fill ...float64) (*Array5D, error) {
	if err := point5d.ValidateKeys(axisOrder); err != nil {
		return nil, err
	}
	if len(axisOrder) != len(point5d.Labels) {
		return nil, errors.Wrapf(ErrInvalidAxis, "axis order %q must name all of %q", axisOrder, point5d.Labels)
	}
	dims := shape.ToTuple(axisOrder)
	for i, d := range dims {
		if d < 0 {
			return nil, errors.Newf("negative extent %d on axis %q", d, string(axisOrder[i]))
		}
	}
	a := newArray(make([]float64, shape.Volume()), axisOrder, dims, dtype)
	if len(fill) > 0 {
		v := dtype.Coerce(fill[0])
		for i := range a.data {
			a.data[i] = v
		}
	}
	return a, nil
}

// FromInt returns a 1x1x1x1x1 array holding value. It is the broadcast source
// used to assign a scalar to a region with SetSlice.
func FromInt(value int) *Array5D {
	return newArray([]float64{float64(value)}, point5d.Labels, []int{1, 1, 1, 1, 1}, Int64)
}

// FromFloat is the floating point counterpart of FromInt.
func FromFloat(value float64) *Array5D {
	return newArray([]float64{value}, point5d.Labels, []int{1, 1, 1, 1, 1}, Float64)
}

// Shape returns the extent along each axis.
func (a *Array5D) Shape() point5d.Shape5D {
	s, _ := point5d.ShapeOf(a.keys, a.dims)
	return s
}

// Keys returns the raw axis order.
func (a *Array5D) Keys() string { return a.keys }

// RawShape returns the extents in raw axis order.
func (a *Array5D) RawShape() []int {
	out := make([]int, len(a.dims))
	copy(out, a.dims)
	return out
}

// DType returns the element type.
func (a *Array5D) DType() DType { return a.dtype }

// Kind returns the shape invariants the array is tagged with.
func (a *Array5D) Kind() Kind { return a.kind }

// Data returns the raw buffer. Writes through it are visible in a.
func (a *Array5D) Data() []float64 { return a.data }

func (a *Array5D) offset(p point5d.Point5D) int {
	off := 0
	for i := 0; i < len(a.keys); i++ {
		off += p.Get(a.keys[i]) * a.strides[i]
	}
	return off
}

// At returns the value at p. p must lie inside the shape.
func (a *Array5D) At(p point5d.Point5D) float64 {
	return a.data[a.offset(p)]
}

// SetAt stores v at p, coerced to the array's dtype.
func (a *Array5D) SetAt(p point5d.Point5D, v float64) {
	a.data[a.offset(p)] = a.dtype.Coerce(v)
}

// As returns a view of a tagged with kind. The view shares a's buffer.
func (a *Array5D) As(kind Kind) (*Array5D, error) {
	if err := kind.Check(a.Shape()); err != nil {
		return nil, err
	}
	out := *a
	out.kind = kind
	return &out, nil
}

// RawAxes returns the view over every raw axis.
func (a *Array5D) RawAxes() AxisView {
	v, _ := NewAxisView(a.keys, a.Shape())
	return v
}

// SqueezedAxes returns the display view of the array, derived from its kind.
func (a *Array5D) SqueezedAxes() AxisView {
	v, err := a.kind.Squeeze(a.RawAxes())
	if err != nil {
		// kinds are validated when applied, so the reduction always succeeds
		panic(err)
	}
	return v
}

// RawArray is a projection of an array's values over a subset of its axes.
type RawArray struct {
	Keys string
	Dims []int
	Data []float64
}

// Raw returns the values laid out over the squeezed view's axes, in raw
// order. The axes removed by the view all have extent 1. The returned data
// is a copy.
func (a *Array5D) Raw() RawArray {
	view := a.SqueezedAxes()
	out := RawArray{Keys: view.Keys(), Data: make([]float64, len(a.data))}
	for _, pos := range view.ToIndexTuple() {
		out.Dims = append(out.Dims, a.dims[pos])
	}
	copy(out.Data, a.data)
	return out
}

// Cut returns a copy of the region roi. Spans left at their zero value select
// the full axis. The copy keeps those of a's kind flags its shape satisfies.
func (a *Array5D) Cut(roi point5d.Slice5D) (*Array5D, error) {
	region, err := roi.Resolve(a.Shape())
	if err != nil {
		return nil, err
	}
	return a.cutRegion(region), nil
}

func (a *Array5D) cutRegion(region point5d.Region) *Array5D {
	shape := region.Shape()
	out := newArray(make([]float64, shape.Volume()), a.keys, shape.ToTuple(a.keys), a.dtype)
	each(shape, func(p point5d.Point5D) {
		out.data[out.offset(p)] = a.data[a.offset(p.Add(region.Start))]
	})
	out.kind = a.kind.holding(shape)
	return out
}

// SetSlice writes value into the region roi of a. value must have the shape
// of the region, or be 1x1x1x1x1 (see FromInt) to be broadcast over it.
func (a *Array5D) SetSlice(value *Array5D, roi point5d.Slice5D) error {
	region, err := roi.Resolve(a.Shape())
	if err != nil {
		return err
	}
	target := region.Shape()
	if value.Shape() == point5d.NewShape5D() {
		v := a.dtype.Coerce(value.data[0])
		each(target, func(p point5d.Point5D) {
			a.data[a.offset(p.Add(region.Start))] = v
		})
		return nil
	}
	if value.Shape() != target {
		return errors.Wrapf(ErrShapeMismatch, "assigning %s to region %s", value.Shape(), target)
	}
	each(target, func(p point5d.Point5D) {
		a.data[a.offset(p.Add(region.Start))] = a.dtype.Coerce(value.data[value.offset(p)])
	})
	return nil
}

// Set is SetSlice for a scalar value.
func (a *Array5D) Set(value float64, roi point5d.Slice5D) error {
	return a.SetSlice(FromFloat(value), roi)
}

// Equal compares a and other element-wise. Arrays of different shape are not
// comparable and yield ErrShapeMismatch rather than false.
func (a *Array5D) Equal(other *Array5D) (bool, error) {
	if other == nil {
		return false, errors.Wrapf(ErrShapeMismatch, "comparing %s with nil", a)
	}
	if a.Shape() != other.Shape() {
		return false, errors.Wrapf(ErrShapeMismatch, "comparing %s with %s", a, other)
	}
	equal := true
	each(a.Shape(), func(p point5d.Point5D) {
		if equal && a.At(p) != other.At(p) {
			equal = false
		}
	})
	return equal, nil
}

// Clone returns a deep copy of a.
func (a *Array5D) Clone() *Array5D {
	out := newArray(append([]float64(nil), a.data...), a.keys, a.RawShape(), a.dtype)
	out.kind = a.kind
	return out
}

// AsType returns a copy of a with values coerced to dtype.
func (a *Array5D) AsType(dtype DType) *Array5D {
	out := a.Clone()
	out.dtype = dtype
	for i, v := range out.data {
		out.data[i] = dtype.Coerce(v)
	}
	return out
}

// Reorder returns a copy of a whose raw buffer is laid out over keys, a
// permutation of "tcxyz".
func (a *Array5D) Reorder(keys string) (*Array5D, error) {
	if err := point5d.ValidateKeys(keys); err != nil {
		return nil, err
	}
	if len(keys) != len(point5d.Labels) {
		return nil, errors.Wrapf(ErrInvalidAxis, "axis order %q must name all of %q", keys, point5d.Labels)
	}
	if keys == a.keys {
		return a.Clone(), nil
	}
	shape := a.Shape()
	out := newArray(make([]float64, len(a.data)), keys, shape.ToTuple(keys), a.dtype)
	each(shape, func(p point5d.Point5D) {
		out.data[out.offset(p)] = a.data[a.offset(p)]
	})
	out.kind = a.kind
	return out, nil
}

// WithCAsLastAxis returns a copy of a with the channel axis moved to the end
// of the raw order, the other axes keeping their relative order.
func (a *Array5D) WithCAsLastAxis() *Array5D {
	out, _ := a.Reorder(strings.ReplaceAll(a.keys, "c", "") + "c")
	return out
}

// LinearRaw flattens a into a (sample x channel) matrix. Samples follow the
// raw order of the non-channel axes.
func (a *Array5D) LinearRaw() (*mat.Dense, error) {
	shape := a.Shape()
	if shape.Volume() == 0 {
		return nil, errors.Wrapf(ErrShapeMismatch, "cannot flatten empty %s", a)
	}
	clast := a.WithCAsLastAxis()
	return mat.NewDense(shape.Volume()/shape.C, shape.C, clast.data), nil
}

func (a *Array5D) String() string {
	return fmt.Sprintf("<%s %s>", a.kind, a.Shape())
}

// each calls fn for every point inside shape, in canonical t, c, x, y, z
// order.
func each(shape point5d.Shape5D, fn func(p point5d.Point5D)) {
	var p point5d.Point5D
	for p.T = 0; p.T < shape.T; p.T++ {
		for p.C = 0; p.C < shape.C; p.C++ {
			for p.X = 0; p.X < shape.X; p.X++ {
				for p.Y = 0; p.Y < shape.Y; p.Y++ {
					for p.Z = 0; p.Z < shape.Z; p.Z++ {
						fn(p)
					}
				}
			}
		}
	}
}
