package forest

import (
	"math/rand/v2"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// node is a split when left and right are set, a leaf otherwise.
type node struct {
	feature     int
	threshold   float64
	left, right *node
	probs       []float64
}

func (n *node) leaf(sample []float64) *node {
	for n.left != nil {
		if sample[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n
}

// grower holds the training set shared by all trees of a forest.
type grower struct {
	x        *mat.Dense
	y        []int
	classes  int
	mtry     int
	maxDepth int
	minLeaf  int
	rng      *rand.Rand
}

// bootstrap draws n samples with replacement.
func (g *grower) bootstrap(n int) ([]int, []bool) {
	sample := make([]int, n)
	inBag := make([]bool, n)
	for i := range sample {
		sample[i] = g.rng.IntN(n)
		inBag[sample[i]] = true
	}
	return sample, inBag
}

func (g *grower) histogram(idx []int) []float64 {
	counts := make([]float64, g.classes)
	for _, i := range idx {
		counts[g.y[i]]++
	}
	return counts
}

func (g *grower) newLeaf(counts []float64) *node {
	probs := slices.Clone(counts)
	floats.Scale(1/floats.Sum(probs), probs)
	return &node{probs: probs}
}

func (g *grower) grow(idx []int, depth int) *node {
	counts := g.histogram(idx)
	if len(idx) < 2*g.minLeaf || isPure(counts) || (g.maxDepth > 0 && depth >= g.maxDepth) {
		return g.newLeaf(counts)
	}
	feature, threshold, ok := g.bestSplit(idx, counts, depth < maxFlatSplitDepth)
	if !ok {
		return g.newLeaf(counts)
	}
	var left, right []int
	for _, i := range idx {
		if g.x.At(i, feature) <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return g.newLeaf(counts)
	}
	return &node{
		feature:   feature,
		threshold: threshold,
		left:      g.grow(left, depth+1),
		right:     g.grow(right, depth+1),
	}
}

// maxFlatSplitDepth bounds the depth at which a split that does not lower
// the Gini impurity is still taken.
const maxFlatSplitDepth = 32

// bestSplit tries mtry random features and returns the split with the lowest
// weighted Gini impurity. With allowFlat, the first valid split is taken
// even when it does not improve on the parent, so XOR-like nodes still split.
// Thresholds lie halfway between distinct values and strictly below the
// upper one.
func (g *grower) bestSplit(idx []int, counts []float64, allowFlat bool) (int, float64, bool) {
	_, cols := g.x.Dims()
	n := float64(len(idx))
	bestScore := gini(counts, n)
	bestFeature, bestThreshold, found := -1, 0.0, false

	order := slices.Clone(idx)
	left := make([]float64, g.classes)
	right := make([]float64, g.classes)
	for _, feature := range g.rng.Perm(cols)[:g.mtry] {
		slices.SortFunc(order, func(a, b int) int {
			va, vb := g.x.At(a, feature), g.x.At(b, feature)
			switch {
			case va < vb:
				return -1
			case va > vb:
				return 1
			}
			return 0
		})
		for k := range left {
			left[k] = 0
		}
		copy(right, counts)
		for pos := 0; pos < len(order)-1; pos++ {
			class := g.y[order[pos]]
			left[class]++
			right[class]--

			nl := float64(pos + 1)
			if pos+1 < g.minLeaf || len(order)-pos-1 < g.minLeaf {
				continue
			}
			v, next := g.x.At(order[pos], feature), g.x.At(order[pos+1], feature)
			if v == next {
				continue
			}
			score := (nl*gini(left, nl) + (n-nl)*gini(right, n-nl)) / n
			if score < bestScore || (allowFlat && !found && score <= bestScore) {
				bestScore = score
				bestFeature = feature
				bestThreshold = midpoint(v, next)
				found = true
			}
		}
	}
	return bestFeature, bestThreshold, found
}

// midpoint returns a threshold t with v <= t < next.
func midpoint(v, next float64) float64 {
	t := v + (next-v)/2
	if t >= next {
		return v
	}
	return t
}

func gini(counts []float64, n float64) float64 {
	if n == 0 {
		return 0
	}
	sum := 0.0
	for _, c := range counts {
		p := c / n
		sum += p * p
	}
	return 1 - sum
}

func isPure(counts []float64) bool {
	nonzero := 0
	for _, c := range counts {
		if c > 0 {
			nonzero++
		}
	}
	return nonzero <= 1
}
