package classifier

import (
	"math"
	"slices"

	"github.com/cockroachdb/errors"
	"gonum.org/v1/gonum/floats"

	"pixelclassifier/pkg/array5d"
)

// Predictions holds per-pixel class probabilities in [0, 1]. Channel j is
// the probability of Classes()[j].
type Predictions struct {
	*array5d.Array5D
	classes []int
}

// Classes returns the class label of each channel.
func (p *Predictions) Classes() []int { return slices.Clone(p.classes) }

// AsUint8 scales probabilities to 0..255.
func (p *Predictions) AsUint8() *array5d.Array5D {
	scaled := p.Clone()
	floats.Scale(255, scaled.Data())
	return scaled.AsType(array5d.Uint8)
}

// ErrTooManyClasses is returned by SegmentationImage when the classes
// cannot be told apart in 8 bits.
var ErrTooManyClasses = errors.New("too many classes for an 8-bit image")

// Segmentation returns, for every pixel, the class label with the highest
// probability as a single-channel array.
func (p *Predictions) Segmentation() (*array5d.Array5D, error) {
	return p.argmax(array5d.Uint32, func(j int) float64 { return float64(p.classes[j]) })
}

// SegmentationImage is Segmentation for display: the classes, in label
// order, are spread evenly over 0..255. A single class maps to 255.
func (p *Predictions) SegmentationImage() (*array5d.Array5D, error) {
	n := len(p.classes)
	if n > 256 {
		return nil, errors.Wrapf(ErrTooManyClasses, "%d classes", n)
	}
	return p.argmax(array5d.Uint8, func(j int) float64 {
		if n == 1 {
			return 255
		}
		return math.Round(float64(j) * 255 / float64(n-1))
	})
}

// argmax maps the index of each pixel's most probable channel through value.
func (p *Predictions) argmax(dtype array5d.DType, value func(int) float64) (*array5d.Array5D, error) {
	clast := p.WithCAsLastAxis()
	probs, err := clast.LinearRaw()
	if err != nil {
		return nil, err
	}
	rows, _ := probs.Dims()
	out := make([]float64, rows)
	for i := range out {
		out[i] = value(floats.MaxIdx(probs.RawRowView(i)))
	}
	keys := clast.Keys()[:len(clast.Keys())-1]
	dims := clast.RawShape()
	return array5d.New(out, keys, dims[:len(dims)-1], dtype)
}
