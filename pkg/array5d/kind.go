package array5d

import (
	"strings"

	"github.com/cockroachdb/errors"

	"pixelclassifier/pkg/point5d"
)

// Kind tags an array with the shape invariants it was validated against.
// Kinds combine with |; the zero value KindArray carries no invariant.
type Kind uint8

const (
	// KindStatic requires a single time point.
	KindStatic Kind = 1 << iota
	// KindScalar requires a single channel.
	KindScalar
	// KindFlat requires exactly one singleton spatial axis.
	KindFlat
	// KindLinear requires exactly two singleton spatial axes.
	KindLinear
)

const (
	// KindArray is a plain array with no constraints.
	KindArray Kind = 0

	// KindImage is a single 2-D plane of one time point.
	KindImage = KindStatic | KindFlat

	// KindScalarImage is an image with one channel.
	KindScalarImage = KindImage | KindScalar

	// KindScalarLine is a single-channel line along one spatial axis.
	KindScalarLine = KindLinear | KindScalar
)

// Has reports whether every flag of o is set in k.
func (k Kind) Has(o Kind) bool { return k&o == o }

// Check returns ErrInvariantViolation when shape fails any predicate of k.
func (k Kind) Check(shape point5d.Shape5D) error {
	checks := []struct {
		flag Kind
		ok   bool
		name string
	}{
		{KindStatic, shape.IsStatic(), "static"},
		{KindScalar, shape.IsScalar(), "scalar"},
		{KindFlat, shape.IsFlat(), "flat"},
		{KindLinear, shape.IsLine(), "linear"},
	}
	for _, c := range checks {
		if k.Has(c.flag) && !c.ok {
			return errors.Wrapf(ErrInvariantViolation, "%s is not %s (required by %s)", shape, c.name, k)
		}
	}
	return nil
}

// holding returns the subset of k's flags that shape satisfies.
func (k Kind) holding(shape point5d.Shape5D) Kind {
	var out Kind
	for _, f := range []Kind{KindStatic, KindScalar, KindFlat, KindLinear} {
		if k.Has(f) && f.Check(shape) == nil {
			out |= f
		}
	}
	return out
}

// Squeeze derives the display view of v for kind k: static drops t, scalar
// drops c, flat keeps two spatial axes and linear keeps one.
func (k Kind) Squeeze(v AxisView) (AxisView, error) {
	out := v
	if k.Has(KindStatic) {
		out = out.Drop("t")
	}
	if k.Has(KindScalar) {
		out = out.ToScalar()
	}
	var err error
	switch {
	case k.Has(KindFlat):
		out, err = out.ToPlanar()
	case k.Has(KindLinear):
		out, err = out.ToLinear()
	}
	return out, err
}

func (k Kind) String() string {
	switch k {
	case KindArray:
		return "Array5D"
	case KindStatic:
		return "StaticData"
	case KindScalar:
		return "ScalarData"
	case KindFlat:
		return "FlatData"
	case KindLinear:
		return "LinearData"
	case KindImage:
		return "Image"
	case KindScalarImage:
		return "ScalarImage"
	case KindScalarLine:
		return "ScalarLine"
	}
	var parts []string
	for _, f := range []Kind{KindStatic, KindScalar, KindFlat, KindLinear} {
		if k.Has(f) {
			parts = append(parts, f.String())
		}
	}
	return strings.Join(parts, "+")
}
