// Package imageio loads and stores 2-D images and numbered slice stacks as
// arrays.
package imageio

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"

	"pixelclassifier/pkg/array5d"
	"pixelclassifier/pkg/point5d"
)

// ErrNoImages is returned by OpenStack for a directory without images.
var ErrNoImages = errors.New("no images found")

// Open decodes a PNG or JPEG file into an Image with keys "yxc". Grayscale
// files give one channel, everything else three. Values span 0..255.
func Open(path string) (*array5d.Array5D, error) {
	img, err := loadImage(path)
	if err != nil {
		return nil, err
	}
	return imageToArray(img)
}

func loadImage(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding %s", path)
	}
	return img, nil
}

func isGray(img image.Image) bool {
	switch img.ColorModel() {
	case color.GrayModel, color.Gray16Model:
		return true
	}
	return false
}

// imageToArray converts img to an Image of one or three 8-bit channels.
func imageToArray(img image.Image) (*array5d.Array5D, error) {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	channels := 3
	if isGray(img) {
		channels = 1
	}
	data := make([]float64, 0, width*height*channels)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			data = append(data, float64(r>>8))
			if channels == 3 {
				data = append(data, float64(g>>8), float64(b>>8))
			}
		}
	}
	a, err := array5d.New(data, "yxc", []int{height, width, channels}, array5d.Float32)
	if err != nil {
		return nil, err
	}
	return a.As(array5d.KindImage)
}

var sliceNumber = regexp.MustCompile(`\d+`)

// extractNumber returns the last number in a file name, or -1.
func extractNumber(filename string) int {
	matches := sliceNumber.FindAllString(filepath.Base(filename), -1)
	if len(matches) == 0 {
		return -1
	}
	n, _ := strconv.Atoi(matches[len(matches)-1])
	return n
}

// OpenStack loads every PNG and JPEG in dir as one z plane of a volume with
// keys "zyxc". Planes are ordered by the number in their file name. All
// images must share size and channel count.
func OpenStack(dir string) (*array5d.Array5D, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", dir)
	}
	var files []string
	for _, e := range entries {
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".png", ".jpg", ".jpeg":
			files = append(files, e.Name())
		}
	}
	if len(files) == 0 {
		return nil, errors.Wrapf(ErrNoImages, "in %s", dir)
	}
	slices.SortStableFunc(files, func(a, b string) int {
		return extractNumber(a) - extractNumber(b)
	})

	var data []float64
	var first point5d.Shape5D
	for i, name := range files {
		plane, err := Open(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		if i == 0 {
			first = plane.Shape()
		} else if plane.Shape() != first {
			return nil, errors.Wrapf(array5d.ErrShapeMismatch,
				"%s is %s, first slice is %s", name, plane.Shape(), first)
		}
		data = append(data, plane.Data()...)
	}
	log.Debug().Int("slices", len(files)).Str("shape", first.String()).Str("dir", dir).Msg("loaded stack")
	return array5d.New(data, "zyxc", []int{len(files), first.Y, first.X, first.C}, array5d.Float32)
}

// Save writes a 2-D array of one or three channels to path, as JPEG when the
// extension says so and PNG otherwise. Values are truncated to 0..255.
func Save(a *array5d.Array5D, path string) (err error) {
	img, err := arrayToImage(a)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrapf(err, "creating directory for %s", path)
	}
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating %s", path)
	}
	defer closeInto(&err, file, path)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		err = jpeg.Encode(file, img, &jpeg.Options{Quality: 90})
	default:
		err = png.Encode(file, img)
	}
	if err != nil {
		return errors.Wrapf(err, "encoding %s", path)
	}
	return nil
}

// closeInto closes c and reports its error through err unless err already
// holds one.
func closeInto(err *error, c io.Closer, path string) {
	if cerr := c.Close(); cerr != nil && *err == nil {
		*err = errors.Wrapf(cerr, "closing %s", path)
	}
}

// arrayToImage maps the first displayed spatial axis of a to image rows and
// the second to columns.
func arrayToImage(a *array5d.Array5D) (image.Image, error) {
	view, err := a.As(array5d.KindImage)
	if err != nil {
		return nil, errors.Wrapf(err, "saving %s", a)
	}
	shape := a.Shape()
	spatials := view.SqueezedAxes().Spatials()
	rowKey, colKey := spatials[0], spatials[1]
	rows, cols := shape.Get(rowKey), shape.Get(colKey)
	rect := image.Rect(0, 0, cols, rows)

	at := func(r, c, ch int) uint8 {
		p := point5d.Point5D{C: ch}.With(rowKey, r).With(colKey, c)
		return uint8(array5d.Uint8.Coerce(a.At(p)))
	}
	switch shape.C {
	case 1:
		img := image.NewGray(rect)
		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				img.SetGray(c, r, color.Gray{Y: at(r, c, 0)})
			}
		}
		return img, nil
	case 3:
		img := image.NewRGBA(rect)
		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				img.SetRGBA(c, r, color.RGBA{R: at(r, c, 0), G: at(r, c, 1), B: at(r, c, 2), A: 255})
			}
		}
		return img, nil
	}
	return nil, errors.Wrapf(array5d.ErrShapeMismatch, "cannot save %d channels as an image", shape.C)
}

// SaveChannels writes every channel of every 2-D plane of a as a grayscale
// PNG named <prefix>_<plane>_c<channel>.png inside dir, and returns the
// written paths. Planes are cut through the axis array5d.PlaneAxis picks.
func SaveChannels(a *array5d.Array5D, dir, prefix string) ([]string, error) {
	through, err := array5d.PlaneAxis(a.Shape())
	if err != nil {
		return nil, err
	}
	images, err := a.Images(through)
	if err != nil {
		return nil, err
	}
	var paths []string
	i := 0
	for img := range images {
		c := 0
		for ch := range img.Channels() {
			path := filepath.Join(dir, fmt.Sprintf("%s_%03d_c%d.png", prefix, i, c))
			if err := Save(ch, path); err != nil {
				return paths, err
			}
			paths = append(paths, path)
			c++
		}
		i++
	}
	return paths, nil
}
