// Package classifier implements the ensemble pixel classifier: several
// independently trained random forests whose class probabilities are
// combined, weighted by tree count, into one prediction array.
package classifier

import (
	"runtime"
	"slices"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"pixelclassifier/pkg/annotation"
	"pixelclassifier/pkg/array5d"
	"pixelclassifier/pkg/forest"
	"pixelclassifier/pkg/metrics"
)

// ErrNoAnnotations is returned when a classifier is built without training
// annotations.
var ErrNoAnnotations = errors.New("no annotations to train on")

// FeatureComputer computes a feature array aligned with its raw input.
type FeatureComputer = annotation.FeatureComputer

// Annotation yields labelled training samples: features with samples along
// x and features along c, and the matching labels along x.
type Annotation interface {
	Samples(fx annotation.FeatureComputer) (*array5d.Array5D, *array5d.Array5D, error)
}

// Model is one tree ensemble of the classifier.
type Model interface {
	Train(x mat.Matrix, y []int) (float64, error)
	PredictProbabilities(x mat.Matrix) (*mat.Dense, error)
	TreeCount() int
}

// ModelFactory creates an untrained model of treeCount trees.
type ModelFactory func(treeCount int, seed uint64) Model

// RandomForests returns a factory for forest.Forest models.
func RandomForests(opts ...forest.Option) ModelFactory {
	return func(treeCount int, seed uint64) Model {
		return forest.New(treeCount, append(slices.Clone(opts), forest.WithSeed(seed))...)
	}
}

// Params holds the ensemble configuration.
type Params struct {
	// NumTrees is the total tree count across all forests. Defaults to 100.
	NumTrees int

	// NumForests is the number of independently trained forests. Defaults to
	// runtime.NumCPU() and is capped at NumTrees.
	NumForests int

	// Seed seeds forest i with Seed+i.
	Seed uint64

	// NewModel builds the forests. Defaults to RandomForests().
	NewModel ModelFactory

	// Metrics receives training and prediction measurements. May be nil.
	Metrics *metrics.Metrics
}

// PixelClassifier is a trained ensemble. It is immutable.
type PixelClassifier struct {
	features    FeatureComputer
	numTrees    int
	numFeatures int
	classes     []int
	forests     []Model
	oobs        []float64
	metrics     *metrics.Metrics
}

// TreeCounts splits total trees over forests as evenly as possible; the
// first total%forests forests get one extra tree.
func TreeCounts(total, forests int) []int {
	counts := make([]int, forests)
	for i := range counts {
		counts[i] = total / forests
		if i < total%forests {
			counts[i]++
		}
	}
	return counts
}

// New trains a classifier on the samples of all annotations, concatenated.
// Forests are trained concurrently; any failure fails the whole
// construction.
func New(fx FeatureComputer, annotations []Annotation, params *Params) (*PixelClassifier, error) {
	if len(annotations) == 0 {
		return nil, ErrNoAnnotations
	}
	p := Params{}
	if params != nil {
		p = *params
	}
	if p.NumTrees == 0 {
		p.NumTrees = 100
	}
	if p.NumForests == 0 {
		p.NumForests = runtime.NumCPU()
	}
	if p.NumTrees < 0 || p.NumForests < 0 {
		return nil, errors.Newf("tree count %d and forest count %d must be positive", p.NumTrees, p.NumForests)
	}
	p.NumForests = min(p.NumForests, p.NumTrees)
	if p.NewModel == nil {
		p.NewModel = RandomForests()
	}

	x, y, err := collectSamples(fx, annotations)
	if err != nil {
		p.Metrics.Failure(metrics.StageFeatures)
		return nil, err
	}
	_, numFeatures := x.Dims()
	p.Metrics.ObserveTraining(len(y))

	counts := TreeCounts(p.NumTrees, p.NumForests)
	forests := make([]Model, len(counts))
	oobs := make([]float64, len(counts))
	var g errgroup.Group
	for i, count := range counts {
		g.Go(func() error {
			start := time.Now()
			model := p.NewModel(count, p.Seed+uint64(i))
			oob, err := model.Train(x, y)
			if err != nil {
				return errors.Wrapf(err, "training forest %d of %d trees", i, count)
			}
			p.Metrics.ObserveForest(oob, time.Since(start))
			log.Debug().Int("forest", i).Int("trees", count).Float64("oob", oob).Msg("trained forest")
			forests[i], oobs[i] = model, oob
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		p.Metrics.Failure(metrics.StageTraining)
		return nil, err
	}

	classes := slices.Compact(slices.Sorted(slices.Values(y)))
	log.Debug().
		Int("forests", len(forests)).
		Int("trees", p.NumTrees).
		Int("samples", len(y)).
		Ints("classes", classes).
		Msg("trained pixel classifier")
	return &PixelClassifier{
		features:    fx,
		numTrees:    p.NumTrees,
		numFeatures: numFeatures,
		classes:     classes,
		forests:     forests,
		oobs:        oobs,
		metrics:     p.Metrics,
	}, nil
}

// featureCache computes the features of each raw array once, so that
// annotations sharing a raw array share its features.
type featureCache struct {
	fx       FeatureComputer
	computed map[*array5d.Array5D]*array5d.Array5D
}

func (c *featureCache) Compute(raw *array5d.Array5D) (*array5d.Array5D, error) {
	if features, ok := c.computed[raw]; ok {
		return features, nil
	}
	features, err := c.fx.Compute(raw)
	if err != nil {
		return nil, err
	}
	c.computed[raw] = features
	return features, nil
}

// collectSamples concatenates the samples of every annotation into one
// (sample x feature) matrix and label slice.
func collectSamples(fx FeatureComputer, annotations []Annotation) (*mat.Dense, []int, error) {
	fx = &featureCache{fx: fx, computed: make(map[*array5d.Array5D]*array5d.Array5D)}
	var data []float64
	var labels []int
	numFeatures := -1
	for i, ann := range annotations {
		fs, ls, err := ann.Samples(fx)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "samples of annotation %d", i)
		}
		x, err := fs.LinearRaw()
		if err != nil {
			return nil, nil, err
		}
		rows, cols := x.Dims()
		if numFeatures >= 0 && cols != numFeatures {
			return nil, nil, errors.Wrapf(array5d.ErrShapeMismatch,
				"annotation %d has %d features, expected %d", i, cols, numFeatures)
		}
		if len(ls.Data()) != rows {
			return nil, nil, errors.Wrapf(array5d.ErrShapeMismatch,
				"annotation %d has %d labels for %d samples", i, len(ls.Data()), rows)
		}
		numFeatures = cols
		data = append(data, x.RawMatrix().Data...)
		for _, l := range ls.Data() {
			labels = append(labels, int(l))
		}
	}
	return mat.NewDense(len(labels), numFeatures, data), labels, nil
}

// Classes returns the class labels, one per prediction channel.
func (c *PixelClassifier) Classes() []int { return slices.Clone(c.classes) }

// NumTrees returns the total tree count.
func (c *PixelClassifier) NumTrees() int { return c.numTrees }

// TreeCounts returns the tree count of each forest.
func (c *PixelClassifier) TreeCounts() []int {
	out := make([]int, len(c.forests))
	for i, f := range c.forests {
		out[i] = f.TreeCount()
	}
	return out
}

// OOBErrors returns each forest's out-of-bag error from training.
func (c *PixelClassifier) OOBErrors() []float64 { return slices.Clone(c.oobs) }

// Predict computes features for raw and returns the ensemble's class
// probabilities. Each forest's estimate is weighted by its tree count and
// the sum divided by the total tree count.
func (c *PixelClassifier) Predict(raw *array5d.Array5D) (*Predictions, error) {
	start := time.Now()
	preds, err := c.predict(raw)
	if err != nil {
		c.metrics.Failure(metrics.StagePrediction)
		return nil, err
	}
	c.metrics.ObservePrediction(raw.Shape().With('c', 1).Volume(), time.Since(start))
	return preds, nil
}

func (c *PixelClassifier) predict(raw *array5d.Array5D) (*Predictions, error) {
	features, err := c.features.Compute(raw)
	if err != nil {
		return nil, errors.Wrap(err, "computing features")
	}
	clast := features.WithCAsLastAxis()
	x, err := clast.LinearRaw()
	if err != nil {
		return nil, err
	}
	rows, cols := x.Dims()
	if cols != c.numFeatures {
		return nil, errors.Wrapf(array5d.ErrShapeMismatch,
			"%d features for a classifier trained on %d", cols, c.numFeatures)
	}

	results := make([]*mat.Dense, len(c.forests))
	var g errgroup.Group
	for i, f := range c.forests {
		g.Go(func() error {
			probs, err := f.PredictProbabilities(x)
			if err != nil {
				return errors.Wrapf(err, "forest %d", i)
			}
			probs.Scale(float64(f.TreeCount()), probs)
			results[i] = probs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := mat.NewDense(rows, len(c.classes), nil)
	for i, r := range results {
		if _, k := r.Dims(); k != len(c.classes) {
			return nil, errors.Wrapf(array5d.ErrShapeMismatch,
				"forest %d predicts %d classes, expected %d", i, k, len(c.classes))
		}
		total.Add(total, r)
	}
	total.Scale(1/float64(c.numTrees), total)

	dims := clast.RawShape()
	dims[len(dims)-1] = len(c.classes)
	out, err := array5d.New(total.RawMatrix().Data, clast.Keys(), dims, array5d.Float32)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("features", features.String()).Str("predictions", out.String()).Msg("predicted")
	return &Predictions{Array5D: out, classes: c.Classes()}, nil
}
