package array5d

import (
	"iter"

	"github.com/cockroachdb/errors"

	"pixelclassifier/pkg/point5d"
)

// IterOver returns the slabs of a that span step units along axis and the
// full extent of every other axis. Each call to the returned sequence cuts
// fresh copies from a.
func (a *Array5D) IterOver(axis byte, step int) (iter.Seq[*Array5D], error) {
	if err := point5d.ValidateKeys(string(axis)); err != nil {
		return nil, err
	}
	extent := a.Shape().Get(axis)
	if step <= 0 || extent%step != 0 {
		return nil, errors.Wrapf(ErrIndivisibleStep, "step %d along %q of %s", step, string(axis), a)
	}
	full, _ := a.Shape().ToSlice5D().Resolve(a.Shape())
	return func(yield func(*Array5D) bool) {
		for start := 0; start < extent; start += step {
			region := full
			region.Start = region.Start.With(axis, start)
			region.Stop = region.Stop.With(axis, start+step)
			if !yield(a.cutRegion(region)) {
				return
			}
		}
	}, nil
}

// unitSlabs iterates axis with step 1, which always divides.
func (a *Array5D) unitSlabs(axis byte) iter.Seq[*Array5D] {
	seq, err := a.IterOver(axis, 1)
	if err != nil {
		panic(err)
	}
	return seq
}

// Frames iterates over time points.
func (a *Array5D) Frames() iter.Seq[*Array5D] { return a.unitSlabs('t') }

// Planes iterates along the spatial axis key, usually 'z'.
func (a *Array5D) Planes(key byte) (iter.Seq[*Array5D], error) {
	if !point5d.IsSpatial(key) {
		return nil, errors.Wrapf(ErrInvalidAxis, "planes through %q", string(key))
	}
	return a.IterOver(key, 1)
}

// Channels iterates over single channels. Channels of a kind-tagged array
// carry the ScalarData tag as well, so the channels of an Image are
// ScalarImages.
func (a *Array5D) Channels() iter.Seq[*Array5D] {
	return func(yield func(*Array5D) bool) {
		for ch := range a.unitSlabs('c') {
			if a.kind != KindArray {
				ch.kind |= KindScalar
			}
			if !yield(ch) {
				return
			}
		}
	}
}

// ChannelStacks iterates over groups of step consecutive channels.
func (a *Array5D) ChannelStacks(step int) (iter.Seq[*Array5D], error) {
	return a.IterOver('c', step)
}

// Images yields every 2-D plane of a as an Image: frames outer, planes along
// through inner. The plane shape is validated once up front.
func (a *Array5D) Images(through byte) (iter.Seq[*Array5D], error) {
	if !point5d.IsSpatial(through) {
		return nil, errors.Wrapf(ErrInvalidAxis, "images through %q", string(through))
	}
	plane := a.Shape().With('t', 1).With(through, 1)
	if err := KindImage.Check(plane); err != nil {
		return nil, errors.Wrapf(err, "planes through %q of %s", string(through), a)
	}
	return func(yield func(*Array5D) bool) {
		for frame := range a.Frames() {
			for img := range frame.unitSlabs(through) {
				img.kind = KindImage | a.kind.holding(plane)
				if !yield(img) {
					return
				}
			}
		}
	}, nil
}

// PlaneAxis picks the axis to cut 2-D planes through: the first of z, y, x
// whose planes are flat.
func PlaneAxis(shape point5d.Shape5D) (byte, error) {
	for _, key := range []byte("zyx") {
		if shape.With('t', 1).With(key, 1).IsFlat() {
			return key, nil
		}
	}
	return 0, errors.Wrapf(ErrInvariantViolation, "%s has no 2-D planes", shape)
}
