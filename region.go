package quadbatch

import (
	"image"

	"golang.org/x/exp/constraints"
)

// Region is an immutable view of a pixel sub-rectangle of a TextureBase with
// its normalized UV bounds cached at construction.
//
// A region holds one reference on its base until Close.
type Region struct {
	base                     *TextureBase
	left, top, right, bottom int
	u0, v0, u1, v1           float32
	closed                   bool
}

func newRegion(base *TextureBase, left, top, right, bottom int) *Region {
	r := &Region{base: base, left: left, top: top, right: right, bottom: bottom}
	r.u0, r.u1 = normalize(left, base.width), normalize(right, base.width)
	r.v0, r.v1 = normalize(top, base.height), normalize(bottom, base.height)
	base.retain()
	return r
}

// normalize maps a pixel coordinate to [0, 1]. A zero-sized texture maps
// everything to 0.
func normalize(px, size int) float32 {
	if size == 0 {
		return 0
	}
	return float32(float64(px) / float64(size))
}

func clamp[T constraints.Integer](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Slice returns a sub-region at offset (x, y) relative to r's top-left corner
// with size (w, h). The result is clamped to r's bounds and may be empty; out
// of range input is not an error.
func (r *Region) Slice(x, y, w, h int) *Region {
	left := clamp(r.left+x, r.left, r.right)
	top := clamp(r.top+y, r.top, r.bottom)
	right := clamp(r.left+x+w, left, r.right)
	bottom := clamp(r.top+y+h, top, r.bottom)
	return newRegion(r.base, left, top, right, bottom)
}

// Base returns the texture the region views.
func (r *Region) Base() *TextureBase { return r.base }

// Bounds returns the region's pixel rectangle in texture space.
func (r *Region) Bounds() image.Rectangle {
	return image.Rect(r.left, r.top, r.right, r.bottom)
}

// Width returns the region width in pixels.
func (r *Region) Width() int { return r.right - r.left }

// Height returns the region height in pixels.
func (r *Region) Height() int { return r.bottom - r.top }

// Empty reports whether the region has zero area. Empty regions draw nothing.
func (r *Region) Empty() bool { return r.right == r.left || r.bottom == r.top }

// UV returns the normalized texture coordinates of the top-left (u0, v0) and
// bottom-right (u1, v1) corners.
func (r *Region) UV() (u0, v0, u1, v1 float32) {
	return r.u0, r.v0, r.u1, r.v1
}

// Closed reports whether Close has been called.
func (r *Region) Closed() bool { return r.closed }

// Close releases the region's reference on its base. It is safe to call more
// than once.
func (r *Region) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.base.release()
	return nil
}
