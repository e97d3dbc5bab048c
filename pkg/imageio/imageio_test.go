package imageio

import (
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pixelclassifier/pkg/array5d"
	"pixelclassifier/pkg/point5d"
)

func writeGray(t *testing.T, path string, w, h int, value func(x, y int) uint8) {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: value(x, y)})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestOpenGray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ramp.png")
	writeGray(t, path, 4, 3, func(x, y int) uint8 { return uint8(10*y + x) })

	a, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, point5d.Shape5D{T: 1, C: 1, X: 4, Y: 3, Z: 1}, a.Shape())
	assert.Equal(t, array5d.KindImage, a.Kind())
	assert.Equal(t, 21.0, a.At(point5d.Point5D{X: 1, Y: 2}))
}

func TestSaveRoundTripRGB(t *testing.T) {
	data := make([]float64, 0, 2*3*3)
	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			data = append(data, float64(x*50), float64(y*100), 300)
		}
	}
	a, err := array5d.New(data, "yxc", []int{2, 3, 3}, array5d.Float32)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out", "rgb.png")
	require.NoError(t, Save(a, path))

	back, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, a.Shape(), back.Shape())
	assert.Equal(t, 100.0, back.At(point5d.Point5D{C: 0, X: 2, Y: 1}))
	assert.Equal(t, 100.0, back.At(point5d.Point5D{C: 1, X: 2, Y: 1}))
	// saturated at the 8-bit bound
	assert.Equal(t, 255.0, back.At(point5d.Point5D{C: 2}))
}

func TestSaveRejectsNonImages(t *testing.T) {
	vol, err := array5d.Allocate(point5d.Shape5D{T: 1, C: 1, X: 3, Y: 3, Z: 3}, array5d.Uint8, "tczyx")
	require.NoError(t, err)
	err = Save(vol, filepath.Join(t.TempDir(), "vol.png"))
	assert.True(t, errors.Is(err, array5d.ErrInvariantViolation))

	two, err := array5d.Allocate(point5d.Shape5D{T: 1, C: 2, X: 3, Y: 3, Z: 1}, array5d.Uint8, "tczyx")
	require.NoError(t, err)
	err = Save(two, filepath.Join(t.TempDir(), "two.png"))
	assert.True(t, errors.Is(err, array5d.ErrShapeMismatch))
}

func TestOpenStackOrdersByNumber(t *testing.T) {
	dir := t.TempDir()
	for _, n := range []int{10, 2, 1} {
		name := filepath.Join(dir, "slice_"+strconv.Itoa(n)+".png")
		writeGray(t, name, 2, 2, func(int, int) uint8 { return uint8(n) })
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))

	vol, err := OpenStack(dir)
	require.NoError(t, err)
	assert.Equal(t, point5d.Shape5D{T: 1, C: 1, X: 2, Y: 2, Z: 3}, vol.Shape())
	assert.Equal(t, 1.0, vol.At(point5d.Point5D{Z: 0}))
	assert.Equal(t, 2.0, vol.At(point5d.Point5D{Z: 1}))
	assert.Equal(t, 10.0, vol.At(point5d.Point5D{Z: 2}))

	_, err = OpenStack(t.TempDir())
	assert.True(t, errors.Is(err, ErrNoImages))
}

type failingCloser struct{}

func (failingCloser) Close() error { return errors.New("disk full") }

func TestCloseIntoKeepsFirstError(t *testing.T) {
	var err error
	closeInto(&err, failingCloser{}, "out.png")
	assert.ErrorContains(t, err, "closing out.png: disk full")

	err = errors.New("encoding failed")
	closeInto(&err, failingCloser{}, "out.png")
	assert.EqualError(t, err, "encoding failed")

	err = nil
	closeInto(&err, io.NopCloser(nil), "out.png")
	assert.NoError(t, err)
}

func TestSaveChannels(t *testing.T) {
	a, err := array5d.Allocate(point5d.Shape5D{T: 1, C: 2, X: 4, Y: 3, Z: 2}, array5d.Float32, "tzyxc", 128)
	require.NoError(t, err)

	dir := t.TempDir()
	paths, err := SaveChannels(a, dir, "pred")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "pred_000_c0.png"),
		filepath.Join(dir, "pred_000_c1.png"),
		filepath.Join(dir, "pred_001_c0.png"),
		filepath.Join(dir, "pred_001_c1.png"),
	}, paths)

	back, err := Open(paths[3])
	require.NoError(t, err)
	assert.Equal(t, point5d.Shape5D{T: 1, C: 1, X: 4, Y: 3, Z: 1}, back.Shape())
	assert.Equal(t, 128.0, back.At(point5d.Point5D{X: 3, Y: 2}))
}

func TestSaveChannelsXZPlanes(t *testing.T) {
	var data []float64
	for z := 0; z < 3; z++ {
		for x := 0; x < 4; x++ {
			data = append(data, float64(10*z+x))
		}
	}
	a, err := array5d.New(data, "zyx", []int{3, 1, 4}, array5d.Uint8)
	require.NoError(t, err)

	dir := t.TempDir()
	paths, err := SaveChannels(a, dir, "slab")
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(dir, "slab_000_c0.png")}, paths)

	back, err := Open(paths[0])
	require.NoError(t, err)
	assert.Equal(t, point5d.Shape5D{T: 1, C: 1, X: 4, Y: 3, Z: 1}, back.Shape())
	assert.Equal(t, 23.0, back.At(point5d.Point5D{X: 3, Y: 2}))
}

func TestExtractNumber(t *testing.T) {
	assert.Equal(t, 12, extractNumber("scan3_slice12.png"))
	assert.Equal(t, -1, extractNumber("slice.png"))
}

