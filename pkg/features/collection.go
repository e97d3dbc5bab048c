// Package features computes per-pixel feature vectors from raw arrays.
//
// A Collection applies a bank of 2-D filters to every plane and channel of
// its input. The result is an Array5D with the input's t, x, y and z extents
// whose channel axis enumerates features, filter-major: feature
// f*C+c is filter f applied to input channel c.
package features

import (
	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"

	"pixelclassifier/pkg/array5d"
	"pixelclassifier/pkg/point5d"
)

// Collection is an ordered bank of filters.
type Collection struct {
	filters []Filter
}

// NewCollection returns a collection applying filters in order.
func NewCollection(filters ...Filter) (*Collection, error) {
	if len(filters) == 0 {
		return nil, errors.New("feature collection needs at least one filter")
	}
	return &Collection{filters: filters}, nil
}

// Filters returns the filter names in feature order.
func (c *Collection) Filters() []string {
	names := make([]string, len(c.filters))
	for i, f := range c.filters {
		names[i] = f.Name()
	}
	return names
}

// NumFeatures returns the feature channel count for an input with the given
// number of channels.
func (c *Collection) NumFeatures(channels int) int {
	return len(c.filters) * channels
}

// Compute applies every filter to every channel of every 2-D plane of raw.
// Planes are taken through z, or through y or x when those are the axes of
// extent 1.
func (c *Collection) Compute(raw *array5d.Array5D) (*array5d.Array5D, error) {
	shape := raw.Shape()
	through, err := array5d.PlaneAxis(shape)
	if err != nil {
		return nil, err
	}
	out, err := array5d.Allocate(shape.With('c', c.NumFeatures(shape.C)), array5d.Float32, raw.Keys())
	if err != nil {
		return nil, err
	}
	images, err := raw.Images(through)
	if err != nil {
		return nil, err
	}

	planes := shape.Get(through)
	i := 0
	for img := range images {
		t, p := i/planes, i%planes
		ch := 0
		for channel := range img.Channels() {
			plane := channel.Raw()
			for fi, f := range c.filters {
				values := f.Apply(plane.Data, plane.Dims[0], plane.Dims[1])
				feature, err := array5d.New(values, plane.Keys, plane.Dims, array5d.Float32)
				if err != nil {
					return nil, err
				}
				roi := point5d.Slice5D{T: point5d.At(t), C: point5d.At(fi*shape.C + ch)}.
					With(through, point5d.At(p))
				if err := out.SetSlice(feature, roi); err != nil {
					return nil, errors.Wrapf(err, "storing %s", f.Name())
				}
			}
			ch++
		}
		i++
	}
	log.Debug().
		Str("input", raw.String()).
		Str("output", out.String()).
		Int("filters", len(c.filters)).
		Msg("computed features")
	return out, nil
}
