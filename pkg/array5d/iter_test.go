package array5d

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pixelclassifier/pkg/point5d"
)

func TestIterOverRoundTrip(t *testing.T) {
	a := createRamp(t, "tcxyz", 2, 3, 4, 2, 3)

	for _, tc := range []struct {
		axis byte
		step int
	}{
		{'t', 1}, {'t', 2}, {'c', 1}, {'c', 3}, {'x', 2}, {'y', 1}, {'z', 3},
	} {
		t.Run(string(tc.axis), func(t *testing.T) {
			seq, err := a.IterOver(tc.axis, tc.step)
			require.NoError(t, err)

			rebuilt, err := Allocate(a.Shape(), Float64, "zyxct", -1)
			require.NoError(t, err)

			start, count := 0, 0
			for slab := range seq {
				want := a.Shape().With(tc.axis, tc.step)
				require.Equal(t, want, slab.Shape())

				roi := point5d.Slice5D{}.With(tc.axis, point5d.Range(start, start+tc.step))
				require.NoError(t, rebuilt.SetSlice(slab, roi))
				start += tc.step
				count++
			}
			assert.Equal(t, a.Shape().Get(tc.axis)/tc.step, count)

			equal, err := rebuilt.Equal(a)
			require.NoError(t, err)
			assert.True(t, equal)
		})
	}
}

func TestIterOverIsRestartable(t *testing.T) {
	a := createRamp(t, "cx", 3, 2)
	seq, err := a.IterOver('c', 1)
	require.NoError(t, err)

	first, second := 0, 0
	for range seq {
		first++
	}
	for range seq {
		second++
	}
	assert.Equal(t, 3, first)
	assert.Equal(t, first, second)
}

func TestIterOverIndivisibleStep(t *testing.T) {
	a := createRamp(t, "cx", 3, 2)

	_, err := a.IterOver('c', 2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIndivisibleStep))

	_, err = a.ChannelStacks(0)
	assert.True(t, errors.Is(err, ErrIndivisibleStep))

	_, err = a.IterOver('w', 1)
	assert.True(t, errors.Is(err, ErrInvalidAxis))
}

func TestAxisBoundIterators(t *testing.T) {
	a := createRamp(t, "tcyxz", 2, 4, 3, 3, 5)

	frames := 0
	for f := range a.Frames() {
		assert.Equal(t, 1, f.Shape().T)
		frames++
	}
	assert.Equal(t, 2, frames)

	planes, err := a.Planes('z')
	require.NoError(t, err)
	n := 0
	for p := range planes {
		assert.Equal(t, 1, p.Shape().Z)
		n++
	}
	assert.Equal(t, 5, n)

	_, err = a.Planes('c')
	assert.True(t, errors.Is(err, ErrInvalidAxis))

	stacks, err := a.ChannelStacks(2)
	require.NoError(t, err)
	n = 0
	for s := range stacks {
		assert.Equal(t, 2, s.Shape().C)
		n++
	}
	assert.Equal(t, 2, n)
}

func TestImagesOrder(t *testing.T) {
	a := createRamp(t, "tzyx", 2, 3, 4, 4)
	seq, err := a.Images('z')
	require.NoError(t, err)

	var got []point5d.Point5D
	for img := range seq {
		assert.Equal(t, KindImage, img.Kind())
		assert.Equal(t, "cyx", img.Raw().Keys)
		// first element of each image tells which (t, z) it came from
		v := int(img.Data()[0])
		got = append(got, point5d.Point5D{T: v / 48, Z: (v % 48) / 16})
	}
	want := []point5d.Point5D{
		{T: 0, Z: 0}, {T: 0, Z: 1}, {T: 0, Z: 2},
		{T: 1, Z: 0}, {T: 1, Z: 1}, {T: 1, Z: 2},
	}
	assert.Equal(t, want, got)
}

func TestImagesRejectsNonPlanarPlanes(t *testing.T) {
	// a 1-pixel-wide plane is a line, not an image
	a := createRamp(t, "zyx", 3, 4, 1)
	_, err := a.Images('z')
	assert.True(t, errors.Is(err, ErrInvariantViolation))

	_, err = a.Images('t')
	assert.True(t, errors.Is(err, ErrInvalidAxis))
}

func TestPlaneAxis(t *testing.T) {
	tests := []struct {
		shape point5d.Shape5D
		want  byte
	}{
		{point5d.Shape5D{T: 1, C: 2, X: 4, Y: 3, Z: 1}, 'z'},
		{point5d.Shape5D{T: 2, C: 1, X: 4, Y: 3, Z: 5}, 'z'},
		{point5d.Shape5D{T: 1, C: 1, X: 4, Y: 1, Z: 5}, 'y'},
		{point5d.Shape5D{T: 3, C: 1, X: 1, Y: 3, Z: 5}, 'x'},
	}
	for _, tt := range tests {
		got, err := PlaneAxis(tt.shape)
		require.NoError(t, err, "%s", tt.shape)
		assert.Equal(t, string(tt.want), string(got), "%s", tt.shape)
	}

	_, err := PlaneAxis(point5d.Shape5D{T: 1, C: 1, X: 9, Y: 1, Z: 1})
	assert.True(t, errors.Is(err, ErrInvariantViolation))
}

func TestImageChannelsAreScalarImages(t *testing.T) {
	a := createRamp(t, "yxc", 3, 4, 3)
	img, err := a.As(KindImage)
	require.NoError(t, err)

	n := 0
	for ch := range img.Channels() {
		assert.Equal(t, KindScalarImage, ch.Kind())
		raw := ch.Raw()
		assert.Equal(t, "yx", raw.Keys)
		assert.Equal(t, []int{3, 4}, raw.Dims)
		n++
	}
	assert.Equal(t, 3, n)
}
