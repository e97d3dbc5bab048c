// Package forest implements the tree-ensemble model used by the pixel
// classifier: a random forest of CART trees grown on bootstrap samples with
// Gini impurity splits over a random subset of the features at each node.
//
// Class probabilities of a forest are the mean of its trees' leaf class
// distributions, so PredictProbabilities scaled by TreeCount is the sum of
// the per-tree votes. Forests trained on the same samples can therefore be
// merged by weighting each with its tree count.
package forest

import (
	"math"
	"math/rand/v2"
	"slices"

	"github.com/cockroachdb/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

var (
	// ErrNotTrained is returned by PredictProbabilities before Train.
	ErrNotTrained = errors.New("forest is not trained")

	// ErrEmptyTrainingSet is returned when Train gets no samples.
	ErrEmptyTrainingSet = errors.New("empty training set")
)

// Forest is a random forest classifier.
type Forest struct {
	treeCount        int
	seed             uint64
	maxDepth         int
	minSamplesLeaf   int
	featuresPerSplit int
	numFeatures      int
	classes          []int
	trees            []*node
}

// Option configures a Forest.
type Option func(*Forest)

// WithSeed sets the seed of the bootstrap and feature sampling.
func WithSeed(seed uint64) Option {
	return func(f *Forest) { f.seed = seed }
}

// WithMaxDepth limits tree depth. Zero means unlimited.
func WithMaxDepth(depth int) Option {
	return func(f *Forest) { f.maxDepth = depth }
}

// WithMinSamplesLeaf sets the minimum number of samples in a leaf.
func WithMinSamplesLeaf(n int) Option {
	return func(f *Forest) { f.minSamplesLeaf = n }
}

// WithFeaturesPerSplit sets how many features are tried at each split.
// Zero selects the square root of the feature count.
func WithFeaturesPerSplit(n int) Option {
	return func(f *Forest) { f.featuresPerSplit = n }
}

// New returns an untrained forest of treeCount trees.
func New(treeCount int, opts ...Option) *Forest {
	f := &Forest{
		treeCount:      treeCount,
		minSamplesLeaf: 1,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.minSamplesLeaf < 1 {
		f.minSamplesLeaf = 1
	}
	return f
}

// TreeCount returns the number of trees.
func (f *Forest) TreeCount() int { return f.treeCount }

// Classes returns the sorted class labels seen in training. Column j of
// PredictProbabilities belongs to Classes()[j].
func (f *Forest) Classes() []int { return slices.Clone(f.classes) }

// NumFeatures returns the feature count the forest was trained with.
func (f *Forest) NumFeatures() int { return f.numFeatures }

// Train grows the trees on the rows of x labelled by y and returns the
// out-of-bag misclassification rate.
func (f *Forest) Train(x mat.Matrix, y []int) (float64, error) {
	rows, cols := x.Dims()
	if rows == 0 || cols == 0 {
		return 0, errors.Wrapf(ErrEmptyTrainingSet, "%dx%d samples", rows, cols)
	}
	if len(y) != rows {
		return 0, errors.Newf("%d labels for %d samples", len(y), rows)
	}
	if f.treeCount < 1 {
		return 0, errors.Newf("tree count %d must be positive", f.treeCount)
	}

	data := mat.DenseCopyOf(x)
	f.numFeatures = cols
	f.classes = slices.Compact(slices.Sorted(slices.Values(y)))
	targets := make([]int, rows)
	for i, label := range y {
		targets[i], _ = slices.BinarySearch(f.classes, label)
	}

	mtry := f.featuresPerSplit
	if mtry <= 0 || mtry > cols {
		mtry = int(math.Max(1, math.Round(math.Sqrt(float64(cols)))))
	}
	g := &grower{
		x:        data,
		y:        targets,
		classes:  len(f.classes),
		mtry:     mtry,
		maxDepth: f.maxDepth,
		minLeaf:  f.minSamplesLeaf,
	}

	oobVotes := mat.NewDense(rows, len(f.classes), nil)
	f.trees = make([]*node, f.treeCount)
	for t := range f.trees {
		g.rng = rand.New(rand.NewPCG(f.seed, uint64(t)))
		sample, inBag := g.bootstrap(rows)
		f.trees[t] = g.grow(sample, 0)
		for i := 0; i < rows; i++ {
			if inBag[i] {
				continue
			}
			floats.Add(oobVotes.RawRowView(i), f.trees[t].leaf(data.RawRowView(i)).probs)
		}
	}
	return oobError(oobVotes, targets), nil
}

func oobError(votes *mat.Dense, targets []int) float64 {
	var misses []float64
	for i, target := range targets {
		row := votes.RawRowView(i)
		if floats.Sum(row) == 0 {
			continue
		}
		miss := 0.0
		if floats.MaxIdx(row) != target {
			miss = 1
		}
		misses = append(misses, miss)
	}
	if len(misses) == 0 {
		return 0
	}
	return stat.Mean(misses, nil)
}

// PredictProbabilities returns a (sample x class) matrix of class
// probabilities for the rows of x.
func (f *Forest) PredictProbabilities(x mat.Matrix) (*mat.Dense, error) {
	if f.trees == nil {
		return nil, ErrNotTrained
	}
	rows, cols := x.Dims()
	if rows == 0 {
		return nil, errors.New("no samples to predict")
	}
	if cols != f.numFeatures {
		return nil, errors.Newf("%d features given to a forest trained on %d", cols, f.numFeatures)
	}
	out := mat.NewDense(rows, len(f.classes), nil)
	sample := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(sample, i, x)
		acc := out.RawRowView(i)
		for _, tree := range f.trees {
			floats.Add(acc, tree.leaf(sample).probs)
		}
		floats.Scale(1/float64(len(f.trees)), acc)
	}
	return out, nil
}
