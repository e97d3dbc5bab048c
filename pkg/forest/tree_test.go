package forest

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func allRows(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

func TestGrowSplitsXOR(t *testing.T) {
	corners := [][]float64{{0, 0}, {0, 1}, {1, 0}, {1, 1}}
	x := mat.NewDense(20, 2, nil)
	y := make([]int, 20)
	for i := 0; i < 20; i++ {
		c := corners[i%4]
		x.SetRow(i, c)
		if c[0] != c[1] {
			y[i] = 1
		}
	}

	for seed := uint64(0); seed < 20; seed++ {
		g := &grower{x: x, y: y, classes: 2, mtry: 2, minLeaf: 1, rng: rand.New(rand.NewPCG(seed, 0))}
		root := g.grow(allRows(20), 0)
		require.NotNil(t, root.left, "seed %d: root must split", seed)
		for _, c := range corners {
			want := []float64{1, 0}
			if c[0] != c[1] {
				want = []float64{0, 1}
			}
			assert.Equal(t, want, root.leaf(c).probs, "seed %d, sample %v", seed, c)
		}
	}

	g := &grower{x: x, y: y, classes: 2, mtry: 2, minLeaf: 1, rng: rand.New(rand.NewPCG(1, 0))}
	assert.Nil(t, g.grow(allRows(20), maxFlatSplitDepth).left, "no gain below the depth limit")
}

func TestMidpoint(t *testing.T) {
	assert.Equal(t, 2.0, midpoint(1, 3))

	v := math.Nextafter(1, 2)
	next := math.Nextafter(v, 2)
	got := midpoint(v, next)
	assert.GreaterOrEqual(t, got, v)
	assert.Less(t, got, next)
}

func TestSplitBetweenAdjacentValues(t *testing.T) {
	v := math.Nextafter(1, 2)
	next := math.Nextafter(v, 2)
	x := mat.NewDense(2, 1, []float64{v, next})
	g := &grower{x: x, y: []int{0, 1}, classes: 2, mtry: 1, minLeaf: 1, rng: rand.New(rand.NewPCG(1, 0))}

	root := g.grow(allRows(2), 0)
	require.NotNil(t, root.left)
	assert.Equal(t, []float64{1, 0}, root.leaf([]float64{v}).probs)
	assert.Equal(t, []float64{0, 1}, root.leaf([]float64{next}).probs)
}
