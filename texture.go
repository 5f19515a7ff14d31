package quadbatch

import (
	"image"

	"github.com/pkg/errors"
)

// TextureBase is a shared, reference-counted GPU texture. Every Region slicing
// it and every pending batch slot binding it holds one reference; the GPU
// texture is released when the last holder lets go.
//
// A base with no holders has nothing allocated on the GPU: the texture is
// created on the first flush that binds it.
type TextureBase struct {
	dev           *Device
	width, height int
	pixels        []byte // nil for adopted textures
	adopted       bool

	refs   int
	res    gpuResource
	handle TextureHandle
}

// Width returns the texture width in pixels.
func (t *TextureBase) Width() int { return t.width }

// Height returns the texture height in pixels.
func (t *TextureBase) Height() int { return t.height }

// Bounds returns the full pixel rectangle of the texture.
func (t *TextureBase) Bounds() image.Rectangle { return image.Rect(0, 0, t.width, t.height) }

// Refs returns the number of current holders.
func (t *TextureBase) Refs() int { return t.refs }

// Handle returns the GPU handle, or the zero handle if the texture is not
// currently allocated.
func (t *TextureBase) Handle() TextureHandle {
	if t.res.state(t.dev) != ResourceFresh {
		return 0
	}
	return t.handle
}

// State reports the GPU lifecycle state of the texture.
func (t *TextureBase) State() ResourceState { return t.res.state(t.dev) }

// Region returns a new region covering the whole texture.
func (t *TextureBase) Region() *Region {
	return newRegion(t, 0, 0, t.width, t.height)
}

// NewRegion returns a region over the given pixel bounds. Bounds outside the
// texture are rejected; use Region().Slice for clamping behavior.
func (t *TextureBase) NewRegion(left, top, right, bottom int) (*Region, error) {
	if left < 0 || top < 0 || left > right || top > bottom || right > t.width || bottom > t.height {
		return nil, errors.Wrapf(ErrInvalidBounds, "(%d,%d)-(%d,%d) in %dx%d", left, top, right, bottom, t.width, t.height)
	}
	return newRegion(t, left, top, right, bottom), nil
}

func (t *TextureBase) retain() {
	t.refs++
}

func (t *TextureBase) release() {
	if t.refs == 0 {
		return
	}
	t.refs--
	if t.refs > 0 {
		return
	}
	// A stale handle died with its context; only release live ones.
	if t.res.state(t.dev) == ResourceFresh {
		t.dev.gd.ReleaseTexture(t.handle)
	}
	t.res.invalidate()
	t.handle = 0
}

// ensure returns a valid GPU handle, uploading the pixels if the texture was
// never created or was lost with the context.
func (t *TextureBase) ensure() (TextureHandle, error) {
	if t.adopted && t.res.state(t.dev) != ResourceFresh {
		return 0, errors.Wrap(ErrResourceLost, "quadbatch: render target texture")
	}
	err := t.res.ensure(t.dev, func() error {
		h, err := t.dev.gd.CreateTexture(t.pixels, t.width, t.height)
		if err != nil {
			return err
		}
		t.handle = h
		return nil
	})
	return t.handle, err
}
