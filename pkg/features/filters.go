package features

import (
	"fmt"
	"math"

	"github.com/cockroachdb/errors"
	"gonum.org/v1/gonum/floats"
)

// Filter computes one feature plane from a 2-D plane of rows x cols values.
type Filter interface {
	Name() string
	Apply(plane []float64, rows, cols int) []float64
}

// Identity passes raw intensities through.
type Identity struct{}

func (Identity) Name() string { return "identity" }

func (Identity) Apply(plane []float64, rows, cols int) []float64 {
	return append([]float64(nil), plane...)
}

// GaussianSmoothing blurs the plane with an isotropic Gaussian.
type GaussianSmoothing struct {
	Sigma float64
}

func (f GaussianSmoothing) Name() string { return fmt.Sprintf("gaussian_smoothing(%g)", f.Sigma) }

func (f GaussianSmoothing) Apply(plane []float64, rows, cols int) []float64 {
	k := gaussianKernel(f.Sigma, 0)
	return separable(plane, rows, cols, k, k)
}

// GaussianGradientMagnitude is the norm of the Gaussian derivatives along
// both axes.
type GaussianGradientMagnitude struct {
	Sigma float64
}

func (f GaussianGradientMagnitude) Name() string {
	return fmt.Sprintf("gaussian_gradient_magnitude(%g)", f.Sigma)
}

func (f GaussianGradientMagnitude) Apply(plane []float64, rows, cols int) []float64 {
	g, d := gaussianKernel(f.Sigma, 0), gaussianKernel(f.Sigma, 1)
	gr := separable(plane, rows, cols, d, g)
	gc := separable(plane, rows, cols, g, d)
	out := make([]float64, len(plane))
	for i := range out {
		out[i] = math.Hypot(gr[i], gc[i])
	}
	return out
}

// DifferenceOfGaussians subtracts a blur at Sigma*K from a blur at Sigma.
type DifferenceOfGaussians struct {
	Sigma, K float64
}

func (f DifferenceOfGaussians) Name() string {
	return fmt.Sprintf("difference_of_gaussians(%g,%g)", f.Sigma, f.K)
}

func (f DifferenceOfGaussians) Apply(plane []float64, rows, cols int) []float64 {
	narrow := GaussianSmoothing{Sigma: f.Sigma}.Apply(plane, rows, cols)
	wide := GaussianSmoothing{Sigma: f.Sigma * f.K}.Apply(plane, rows, cols)
	floats.Sub(narrow, wide)
	return narrow
}

// LaplacianOfGaussian sums the second Gaussian derivatives along both axes.
type LaplacianOfGaussian struct {
	Sigma float64
}

func (f LaplacianOfGaussian) Name() string { return fmt.Sprintf("laplacian_of_gaussian(%g)", f.Sigma) }

func (f LaplacianOfGaussian) Apply(plane []float64, rows, cols int) []float64 {
	g, d2 := gaussianKernel(f.Sigma, 0), gaussianKernel(f.Sigma, 2)
	out := separable(plane, rows, cols, d2, g)
	floats.Add(out, separable(plane, rows, cols, g, d2))
	return out
}

// ParseFilter builds a filter from its configuration name.
func ParseFilter(name string, sigma float64) (Filter, error) {
	if name != "identity" && sigma <= 0 {
		return nil, errors.Newf("filter %q needs a positive sigma, got %g", name, sigma)
	}
	switch name {
	case "identity":
		return Identity{}, nil
	case "gaussian_smoothing":
		return GaussianSmoothing{Sigma: sigma}, nil
	case "gaussian_gradient_magnitude":
		return GaussianGradientMagnitude{Sigma: sigma}, nil
	case "difference_of_gaussians":
		return DifferenceOfGaussians{Sigma: sigma, K: 1.6}, nil
	case "laplacian_of_gaussian":
		return LaplacianOfGaussian{Sigma: sigma}, nil
	}
	return nil, errors.Newf("unknown filter %q", name)
}

// gaussianKernel samples the order-th derivative of a Gaussian over
// [-3 sigma, 3 sigma], normalised by the sum of the plain Gaussian.
func gaussianKernel(sigma float64, order int) []float64 {
	radius := int(math.Ceil(3 * sigma))
	base := make([]float64, 2*radius+1)
	for i := range base {
		x := float64(i - radius)
		base[i] = math.Exp(-x * x / (2 * sigma * sigma))
	}
	norm := floats.Sum(base)
	kernel := make([]float64, len(base))
	s2 := sigma * sigma
	for i, g := range base {
		x := float64(i - radius)
		switch order {
		case 0:
			kernel[i] = g
		case 1:
			kernel[i] = -x / s2 * g
		case 2:
			kernel[i] = (x*x/(s2*s2) - 1/s2) * g
		}
	}
	floats.Scale(1/norm, kernel)
	if order == 2 {
		// second derivative must not respond to constant planes
		mean := floats.Sum(kernel) / float64(len(kernel))
		floats.AddConst(-mean, kernel)
	}
	return kernel
}

// separable convolves along rows with rowKernel (vertical direction) and
// along columns with colKernel, mirroring at the borders.
func separable(plane []float64, rows, cols int, rowKernel, colKernel []float64) []float64 {
	tmp := make([]float64, len(plane))
	rc := len(colKernel) / 2
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			sum := 0.0
			for k, w := range colKernel {
				sum += w * plane[r*cols+reflect(c+k-rc, cols)]
			}
			tmp[r*cols+c] = sum
		}
	}
	out := make([]float64, len(plane))
	rr := len(rowKernel) / 2
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			sum := 0.0
			for k, w := range rowKernel {
				sum += w * tmp[reflect(r+k-rr, rows)*cols+c]
			}
			out[r*cols+c] = sum
		}
	}
	return out
}

func reflect(i, n int) int {
	if n == 1 {
		return 0
	}
	period := 2 * (n - 1)
	i %= period
	if i < 0 {
		i += period
	}
	if i >= n {
		i = period - i
	}
	return i
}
