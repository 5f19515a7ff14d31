package quadbatch

import (
	"image"
	"log/slog"

	"github.com/pkg/errors"
	xdraw "golang.org/x/image/draw"
)

// ResourceState is the lifecycle of one GPU object owned by the batching
// layer.
type ResourceState uint8

const (
	// ResourceLost means the object must be (re)created before use. Objects
	// that were never created are also in this state.
	ResourceLost ResourceState = iota
	// ResourceFresh means the handle is valid for the current context.
	ResourceFresh
	// ResourceRecreating means a creation request is in flight.
	ResourceRecreating
)

func (s ResourceState) String() string {
	switch s {
	case ResourceFresh:
		return "fresh"
	case ResourceRecreating:
		return "recreating"
	default:
		return "lost"
	}
}

// gpuResource tracks which context generation a GPU object was created in.
// A context loss bumps the device generation, which moves every resource to
// ResourceLost at once without visiting them.
type gpuResource struct {
	generation uint64
	recreating bool
}

func (r *gpuResource) state(d *Device) ResourceState {
	switch {
	case r.recreating:
		return ResourceRecreating
	case r.generation == d.generation:
		return ResourceFresh
	default:
		return ResourceLost
	}
}

// ensure runs create unless the resource is already fresh. Calling it any
// number of times within one generation creates the object at most once.
func (r *gpuResource) ensure(d *Device, create func() error) error {
	if r.state(d) == ResourceFresh {
		return nil
	}
	r.recreating = true
	err := create()
	r.recreating = false
	if err != nil {
		return err
	}
	r.generation = d.generation
	return nil
}

// invalidate forgets the GPU object so the next ensure creates a new one.
func (r *gpuResource) invalidate() {
	r.generation = 0
}

// Device wraps a GraphicsDevice with the bookkeeping shared by every batch,
// texture and program created on it: the context generation used for
// loss recovery.
type Device struct {
	gd         GraphicsDevice
	generation uint64
	losses     int
}

// NewDevice wraps gd. Create one Device per GraphicsDevice; context loss is
// an edge-triggered signal and must have a single observer.
func NewDevice(gd GraphicsDevice) *Device {
	return &Device{gd: gd, generation: 1}
}

// GraphicsDevice returns the wrapped backend.
func (d *Device) GraphicsDevice() GraphicsDevice { return d.gd }

// Generation returns the current context generation. It starts at 1 and
// increases by one on every observed context loss.
func (d *Device) Generation() uint64 { return d.generation }

// ContextLosses returns how many context losses have been observed.
func (d *Device) ContextLosses() int { return d.losses }

// checkLost polls the backend once and, on loss, moves every resource
// created on d to ResourceLost.
func (d *Device) checkLost(log *slog.Logger) bool {
	if !d.gd.ContextLost() {
		return false
	}
	d.generation++
	d.losses++
	log.Warn("quadbatch: graphics context lost; resources will be recreated",
		"generation", d.generation)
	return true
}

// NewTexture creates a texture base from premultiplied RGBA8 pixels. The
// pixels are copied and kept to re-create the GPU texture after a context
// loss. The GPU texture itself is created lazily on first flush.
func (d *Device) NewTexture(pixels []byte, width, height int) (*TextureBase, error) {
	if width < 0 || height < 0 || len(pixels) != 4*width*height {
		return nil, errors.Wrapf(ErrInvalidPixels, "%d bytes for %dx%d", len(pixels), width, height)
	}
	pix := make([]byte, len(pixels))
	copy(pix, pixels)
	return &TextureBase{dev: d, width: width, height: height, pixels: pix}, nil
}

// NewTextureFromImage creates a texture base of the same size as src.
// Regardless of the source type the texture is stored as premultiplied RGBA.
func (d *Device) NewTextureFromImage(src image.Image) (*TextureBase, error) {
	sr := src.Bounds()
	dr := image.Rectangle{Max: sr.Size()}
	rgba, ok := src.(*image.RGBA)
	if !ok || sr.Min != (image.Point{}) || rgba.Stride != 4*dr.Dx() {
		rgba = image.NewRGBA(dr)
		xdraw.Draw(rgba, dr, src, sr.Min, xdraw.Src)
	}
	return d.NewTexture(rgba.Pix[:4*dr.Dx()*dr.Dy()], dr.Dx(), dr.Dy())
}

// NewProgram registers a shader program. Source is opaque to this package.
func (d *Device) NewProgram(source []byte) *Program {
	return &Program{dev: d, source: source}
}

// adoptTexture wraps a texture the backend produced itself, such as a render
// target. Adopted textures cannot be re-created after a context loss.
func (d *Device) adoptTexture(h TextureHandle, width, height int) *TextureBase {
	t := &TextureBase{dev: d, width: width, height: height, handle: h, adopted: true}
	t.res.generation = d.generation
	return t
}
