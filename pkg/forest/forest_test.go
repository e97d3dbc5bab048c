package forest

import (
	"math/rand/v2"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// createBlobs returns two well separated clusters in a 2-D feature space,
// labelled 1 and 2.
func createBlobs(n int, seed uint64) (*mat.Dense, []int) {
	rng := rand.New(rand.NewPCG(seed, 0))
	x := mat.NewDense(2*n, 2, nil)
	y := make([]int, 2*n)
	for i := 0; i < 2*n; i++ {
		center := 0.0
		y[i] = 1
		if i >= n {
			center = 10
			y[i] = 2
		}
		x.Set(i, 0, center+rng.NormFloat64())
		x.Set(i, 1, center+rng.NormFloat64())
	}
	return x, y
}

func TestTrainAndPredictSeparableClasses(t *testing.T) {
	x, y := createBlobs(30, 1)
	f := New(20, WithSeed(7))
	oob, err := f.Train(x, y)
	require.NoError(t, err)
	assert.Less(t, oob, 0.1)
	assert.Equal(t, []int{1, 2}, f.Classes())
	assert.Equal(t, 2, f.NumFeatures())
	assert.Equal(t, 20, f.TreeCount())

	probe := mat.NewDense(2, 2, []float64{0, 0, 10, 10})
	p, err := f.PredictProbabilities(probe)
	require.NoError(t, err)

	rows, cols := p.Dims()
	require.Equal(t, 2, rows)
	require.Equal(t, 2, cols)
	for i := 0; i < rows; i++ {
		assert.InDelta(t, 1.0, floats.Sum(p.RawRowView(i)), 1e-9)
	}
	assert.Greater(t, p.At(0, 0), 0.9)
	assert.Greater(t, p.At(1, 1), 0.9)
}

func TestTrainIsDeterministicForSeed(t *testing.T) {
	x, y := createBlobs(15, 3)
	a, b := New(5, WithSeed(11)), New(5, WithSeed(11))
	_, err := a.Train(x, y)
	require.NoError(t, err)
	_, err = b.Train(x, y)
	require.NoError(t, err)

	pa, err := a.PredictProbabilities(x)
	require.NoError(t, err)
	pb, err := b.PredictProbabilities(x)
	require.NoError(t, err)
	assert.True(t, mat.Equal(pa, pb))
}

func TestSingleClass(t *testing.T) {
	x := mat.NewDense(3, 1, []float64{1, 2, 3})
	f := New(3)
	_, err := f.Train(x, []int{4, 4, 4})
	require.NoError(t, err)

	p, err := f.PredictProbabilities(mat.NewDense(1, 1, []float64{9}))
	require.NoError(t, err)
	assert.Equal(t, 1.0, p.At(0, 0))
}

func TestMaxDepthAndMinLeaf(t *testing.T) {
	x, y := createBlobs(10, 5)
	f := New(4, WithMaxDepth(1), WithMinSamplesLeaf(3), WithFeaturesPerSplit(2))
	_, err := f.Train(x, y)
	require.NoError(t, err)
	for _, tree := range f.trees {
		if tree.left != nil {
			assert.Nil(t, tree.left.left, "depth is limited to one split")
		}
	}
}

func TestTrainErrors(t *testing.T) {
	f := New(2)
	_, err := f.PredictProbabilities(mat.NewDense(1, 1, nil))
	assert.True(t, errors.Is(err, ErrNotTrained))

	_, err = f.Train(mat.NewDense(2, 1, nil), []int{1})
	assert.Error(t, err)

	_, err = New(0).Train(mat.NewDense(1, 1, nil), []int{1})
	assert.Error(t, err)

	x, y := createBlobs(5, 2)
	_, err = f.Train(x, y)
	require.NoError(t, err)
	_, err = f.PredictProbabilities(mat.NewDense(1, 3, nil))
	assert.Error(t, err)
}
