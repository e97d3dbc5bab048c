package array5d

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pixelclassifier/pkg/point5d"
)

func TestAxisViewDrop(t *testing.T) {
	shape := point5d.Shape5D{T: 1, C: 3, X: 10, Y: 20, Z: 1}
	v, err := NewAxisView("tzyxc", shape)
	require.NoError(t, err)

	dropped := v.Drop("tc")
	assert.Equal(t, "zyx", dropped.Keys())
	assert.Equal(t, []int{1, 2, 3}, dropped.ToIndexTuple())
	assert.Equal(t, shape, dropped.Shape())

	// the original view is untouched
	assert.Equal(t, "tzyxc", v.Keys())
	assert.Equal(t, []int{0, 1, 2, 3, 4}, v.ToIndexTuple())
}

func TestAxisViewDropOneSpatialPrefersZ(t *testing.T) {
	shape := point5d.Shape5D{T: 1, C: 1, X: 1, Y: 1, Z: 1}
	v, err := NewAxisView("xyz", shape)
	require.NoError(t, err)

	v, ok := v.DropOneSpatial()
	require.True(t, ok)
	assert.Equal(t, "xy", v.Keys())

	v, ok = v.DropOneSpatial()
	require.True(t, ok)
	assert.Equal(t, "x", v.Keys())
}

func TestAxisViewDropOneSpatialNoSingleton(t *testing.T) {
	v, err := NewAxisView("xyz", point5d.Shape5D{T: 1, C: 1, X: 4, Y: 4, Z: 4})
	require.NoError(t, err)

	same, ok := v.DropOneSpatial()
	assert.False(t, ok)
	assert.Equal(t, "xyz", same.Keys())
}

func TestAxisViewToNSpatials(t *testing.T) {
	shape := point5d.Shape5D{T: 2, C: 1, X: 8, Y: 1, Z: 1}
	v, err := NewAxisView("tcxyz", shape)
	require.NoError(t, err)

	planar, err := v.ToPlanar()
	require.NoError(t, err)
	assert.Equal(t, "tcxy", planar.Keys())

	linear, err := v.ToLinear()
	require.NoError(t, err)
	assert.Equal(t, "tcx", linear.Keys())
	assert.Equal(t, []int{0, 1, 2}, linear.ToIndexTuple())

	assert.Equal(t, "tx", linear.ToScalar().Keys())
}

func TestAxisViewToNSpatialsNotCollapsible(t *testing.T) {
	v, err := NewAxisView("xyz", point5d.Shape5D{T: 1, C: 1, X: 4, Y: 4, Z: 1})
	require.NoError(t, err)

	out, err := v.ToLinear()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvariantViolation))
	assert.Equal(t, "xy", out.Keys(), "partial reduction is still reported")
}

func TestNewAxisViewRejectsUnknownKeys(t *testing.T) {
	_, err := NewAxisView("xyq", point5d.NewShape5D())
	assert.True(t, errors.Is(err, ErrInvalidAxis))
}
