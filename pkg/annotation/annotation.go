// Package annotation holds user labels drawn over raw data and turns them
// into training samples.
package annotation

import (
	"slices"

	"github.com/cockroachdb/errors"

	"pixelclassifier/pkg/array5d"
	"pixelclassifier/pkg/point5d"
)

// ErrNoSamples is returned when an annotation has no labelled pixel.
var ErrNoSamples = errors.New("annotation has no labelled pixels")

// FeatureComputer computes a feature array aligned with its raw input.
type FeatureComputer interface {
	Compute(raw *array5d.Array5D) (*array5d.Array5D, error)
}

// Annotation is a scalar label array placed at an offset inside a raw array.
// Label 0 marks unlabelled pixels; every positive value is a class.
type Annotation struct {
	labels *array5d.Array5D
	raw    *array5d.Array5D
	offset point5d.Point5D
	roi    point5d.Slice5D
}

// New validates that labels is single-channel and fits inside raw at offset.
// The channel coordinate of offset is ignored.
func New(labels, raw *array5d.Array5D, offset point5d.Point5D) (*Annotation, error) {
	scalar, err := labels.As(array5d.KindScalar)
	if err != nil {
		return nil, errors.Wrap(err, "labels must have a single channel")
	}
	offset.C = 0
	shape := scalar.Shape()
	region := point5d.Region{
		Start: offset,
		Stop: offset.Add(point5d.Point5D{
			T: shape.T, C: raw.Shape().C, X: shape.X, Y: shape.Y, Z: shape.Z,
		}),
	}
	roi := region.ToSlice5D()
	if _, err := roi.Resolve(raw.Shape()); err != nil {
		return nil, errors.Wrapf(err, "labels %s at %s inside raw %s", shape, offset, raw.Shape())
	}
	return &Annotation{labels: scalar, raw: raw, offset: offset, roi: roi}, nil
}

// Labels returns the label array.
func (a *Annotation) Labels() *array5d.Array5D { return a.labels }

// ROI returns the region of the raw array covered by the labels, all
// channels included.
func (a *Annotation) ROI() point5d.Slice5D { return a.roi }

// Classes returns the sorted distinct positive labels.
func (a *Annotation) Classes() []int {
	var out []int
	for _, v := range a.labels.Data() {
		if v > 0 {
			out = append(out, int(v))
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Samples computes features over the raw array and returns the feature
// vectors of the labelled pixels as an array with samples along x and
// features along c, plus their labels laid out along x.
func (a *Annotation) Samples(fx FeatureComputer) (*array5d.Array5D, *array5d.Array5D, error) {
	features, err := fx.Compute(a.raw)
	if err != nil {
		return nil, nil, errors.Wrap(err, "computing features")
	}
	roi := a.roi.With('c', point5d.All())
	region, err := features.Cut(roi)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "cutting features %s", features.Shape())
	}

	// align pixels of both arrays before flattening
	region, err = region.Reorder(point5d.Labels)
	if err != nil {
		return nil, nil, err
	}
	labels, err := a.labels.Reorder(point5d.Labels)
	if err != nil {
		return nil, nil, err
	}
	x, err := region.LinearRaw()
	if err != nil {
		return nil, nil, err
	}
	y := labels.Data()

	_, numFeatures := x.Dims()
	var xs, ys []float64
	for i, label := range y {
		if label <= 0 {
			continue
		}
		xs = append(xs, x.RawRowView(i)...)
		ys = append(ys, label)
	}
	if len(ys) == 0 {
		return nil, nil, errors.Wrapf(ErrNoSamples, "labels %s", a.labels.Shape())
	}
	fs, err := array5d.New(xs, "xc", []int{len(ys), numFeatures}, features.DType())
	if err != nil {
		return nil, nil, err
	}
	ls, err := array5d.New(ys, "x", []int{len(ys)}, array5d.Uint32)
	if err != nil {
		return nil, nil, err
	}
	return fs, ls, nil
}
