package array5d

import (
	"strings"

	"github.com/cockroachdb/errors"

	"pixelclassifier/pkg/point5d"
)

// AxisView maps a subset of the five axis keys to their positions in the
// raw buffer of an array. Views are values: every operation returns a new
// view over the same shape.
type AxisView struct {
	keys  string
	pos   []int
	shape point5d.Shape5D
}

// NewAxisView returns a view over every key of rawKeys. rawKeys must be made
// of distinct axis keys.
func NewAxisView(rawKeys string, shape point5d.Shape5D) (AxisView, error) {
	if err := point5d.ValidateKeys(rawKeys); err != nil {
		return AxisView{}, err
	}
	pos := make([]int, len(rawKeys))
	for i := range pos {
		pos[i] = i
	}
	return AxisView{keys: rawKeys, pos: pos, shape: shape}, nil
}

// Keys returns the retained axis keys in raw-buffer order.
func (v AxisView) Keys() string { return v.keys }

// Shape returns the shape the view refers to.
func (v AxisView) Shape() point5d.Shape5D { return v.shape }

// Spatials returns the retained spatial keys in raw-buffer order.
func (v AxisView) Spatials() string {
	var b strings.Builder
	for i := 0; i < len(v.keys); i++ {
		if point5d.IsSpatial(v.keys[i]) {
			b.WriteByte(v.keys[i])
		}
	}
	return b.String()
}

// Drop returns a view without any of the given keys.
func (v AxisView) Drop(keys string) AxisView {
	out := AxisView{shape: v.shape}
	var b strings.Builder
	for i := 0; i < len(v.keys); i++ {
		if strings.IndexByte(keys, v.keys[i]) >= 0 {
			continue
		}
		b.WriteByte(v.keys[i])
		out.pos = append(out.pos, v.pos[i])
	}
	out.keys = b.String()
	return out
}

// DropOneSpatial drops the first singleton spatial axis, scanning z, y, x.
// ok is false when no retained spatial axis has extent 1.
func (v AxisView) DropOneSpatial() (AxisView, bool) {
	for _, key := range []byte("zyx") {
		if strings.IndexByte(v.keys, key) >= 0 && v.shape.Get(key) == 1 {
			return v.Drop(string(key)), true
		}
	}
	return v, false
}

// ToNSpatials drops singleton spatial axes until at most n remain. When the
// remaining spatial axes cannot be dropped the partially reduced view is
// returned together with ErrInvariantViolation.
func (v AxisView) ToNSpatials(n int) (AxisView, error) {
	out := v
	for len(out.Spatials()) > n {
		next, ok := out.DropOneSpatial()
		if !ok {
			return out, errors.Wrapf(ErrInvariantViolation,
				"cannot reduce %q of %s to %d spatial axes", v.keys, v.shape, n)
		}
		out = next
	}
	return out, nil
}

// ToPlanar reduces the view to two spatial axes.
func (v AxisView) ToPlanar() (AxisView, error) { return v.ToNSpatials(2) }

// ToLinear reduces the view to one spatial axis.
func (v AxisView) ToLinear() (AxisView, error) { return v.ToNSpatials(1) }

// ToScalar drops the channel axis.
func (v AxisView) ToScalar() AxisView { return v.Drop("c") }

// ToIndexTuple returns the raw-buffer positions of the retained keys.
func (v AxisView) ToIndexTuple() []int {
	out := make([]int, len(v.pos))
	copy(out, v.pos)
	return out
}
