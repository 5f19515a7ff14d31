package quadbatch

import "image"

// BlendMode selects a compositing operation. Backends map each value to their
// native blend state.
type BlendMode uint8

const (
	BlendNormal   BlendMode = iota // source-over (standard alpha blending)
	BlendAdd                       // additive / lighter
	BlendMultiply                  // multiply (source * destination; only darkens)
	BlendScreen                    // screen (1 - (1-src)*(1-dst); only brightens)
	BlendErase                     // destination-out (punch transparent holes)
	BlendMask                      // clip destination to source alpha
	BlendBelow                     // destination-over (draw behind existing content)
	BlendNone                      // opaque copy (skip blending)
)

var blendNames = [...]string{
	BlendNormal:   "normal",
	BlendAdd:      "add",
	BlendMultiply: "multiply",
	BlendScreen:   "screen",
	BlendErase:    "erase",
	BlendMask:     "mask",
	BlendBelow:    "below",
	BlendNone:     "none",
}

func (b BlendMode) String() string {
	if int(b) < len(blendNames) {
		return blendNames[b]
	}
	return "unknown"
}

// DrawState is the non-texture state of a draw call. Quads with different
// states never share a batch, so one GPU draw call has exactly one state.
//
// The zero value is normal blending with the default program, no scissor and
// no stencil.
type DrawState struct {
	Blend   BlendMode
	Program *Program        // nil selects the device's default program
	Scissor image.Rectangle // empty disables scissoring
	Stencil uint8           // 0 disables stencil testing
}

// DefaultDrawState is the state used by AddQuad and DrawRegion.
var DefaultDrawState = DrawState{}

// Program is a logical shader program. Its GPU object is created lazily on
// the first flush that uses it and re-created after a context loss.
type Program struct {
	dev    *Device
	source []byte
	res    gpuResource
	handle ProgramHandle
}

// Source returns the program source handed to the device.
func (p *Program) Source() []byte { return p.source }

// ensure returns a valid GPU handle for p, creating it if needed.
func (p *Program) ensure() (ProgramHandle, error) {
	err := p.res.ensure(p.dev, func() error {
		h, err := p.dev.gd.CreateProgram(p.source)
		if err != nil {
			return err
		}
		p.handle = h
		return nil
	})
	return p.handle, err
}
