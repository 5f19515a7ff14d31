package quadbatch

import "image/color"

// RGBA8888 is a straight-alpha color packed as 0xRRGGBBAA.
type RGBA8888 uint32

// White is the neutral tint.
const White RGBA8888 = 0xFFFFFFFF

// RGBA packs four 8-bit channels.
func RGBA(r, g, b, a uint8) RGBA8888 {
	return RGBA8888(uint32(r)<<24 | uint32(g)<<16 | uint32(b)<<8 | uint32(a))
}

// FromColor converts any color.Color. The standard library returns
// premultiplied components, so they are divided back out.
func FromColor(c color.Color) RGBA8888 {
	nc := color.NRGBAModel.Convert(c).(color.NRGBA)
	return RGBA(nc.R, nc.G, nc.B, nc.A)
}

// Channels returns the four 8-bit components.
func (c RGBA8888) Channels() (r, g, b, a uint8) {
	return uint8(c >> 24), uint8(c >> 16), uint8(c >> 8), uint8(c)
}

// Premultiplied returns the color as premultiplied floats in [0, 1], the form
// GPU backends feed to their vertex color attribute.
func (c RGBA8888) Premultiplied() (r, g, b, a float32) {
	cr, cg, cb, ca := c.Channels()
	a = float32(ca) / 255
	return float32(cr) / 255 * a, float32(cg) / 255 * a, float32(cb) / 255 * a, a
}

// RGBA implements color.Color.
func (c RGBA8888) RGBA() (r, g, b, a uint32) {
	cr, cg, cb, ca := c.Channels()
	return color.NRGBA{R: cr, G: cg, B: cb, A: ca}.RGBA()
}
