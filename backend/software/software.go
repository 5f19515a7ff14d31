// Package software is a CPU implementation of quadbatch.GraphicsDevice that
// rasterizes into image.RGBA with golang.org/x/image/draw.
//
// It exists for tests and headless rendering. Every GPU object is a plain Go
// value, so context loss can be simulated with LoseContext and the number of
// create calls per kind can be inspected with Counters.
package software

import (
	"image"
	"image/draw"
	"math"

	"github.com/pkg/errors"
	"honnef.co/go/safeish"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/phanxgames/quadbatch"
)

var (
	// ErrUnknownHandle reports a handle that was never issued or that died
	// with a lost context.
	ErrUnknownHandle = errors.New("software: unknown or stale handle")
	// ErrBufferOverflow reports an upload larger than the buffer capacity.
	ErrBufferOverflow = errors.New("software: upload exceeds buffer capacity")
)

// Counters reports how many objects of each kind the device has created.
type Counters struct {
	VertexBuffers int
	IndexBuffers  int
	Programs      int
	Textures      int
	Released      int
	Draws         int
	Flips         int
}

type buffer struct {
	data     []byte
	capacity int
}

// Device is a software GraphicsDevice. The zero value is not usable; call New.
type Device struct {
	screen  *image.RGBA
	targets []*image.RGBA // render-target stack; the top is drawn to

	buffers  map[quadbatch.BufferHandle]*buffer
	textures map[quadbatch.TextureHandle]*image.RGBA
	programs map[quadbatch.ProgramHandle][]byte
	next     uint32

	interp  xdraw.Interpolator
	scratch *image.RGBA
	tinted  *image.RGBA
	lost    bool

	counters Counters
}

// New returns a device whose screen is a transparent width x height image.
func New(width, height int) *Device {
	d := &Device{
		screen: image.NewRGBA(image.Rect(0, 0, width, height)),
		interp: xdraw.ApproxBiLinear,
	}
	d.reset()
	return d
}

func (d *Device) reset() {
	d.buffers = make(map[quadbatch.BufferHandle]*buffer)
	d.textures = make(map[quadbatch.TextureHandle]*image.RGBA)
	d.programs = make(map[quadbatch.ProgramHandle][]byte)
}

// SetInterpolator selects the sampling filter, for example
// xdraw.NearestNeighbor for pixel-exact output.
func (d *Device) SetInterpolator(interp xdraw.Interpolator) {
	d.interp = interp
}

// Screen returns the image presented by Flip.
func (d *Device) Screen() *image.RGBA { return d.screen }

// Counters returns the creation counters.
func (d *Device) Counters() Counters { return d.counters }

// Texture returns the pixels behind h, or nil.
func (d *Device) Texture(h quadbatch.TextureHandle) *image.RGBA { return d.textures[h] }

// LiveTextures returns the number of textures currently allocated.
func (d *Device) LiveTextures() int { return len(d.textures) }

// LoseContext drops every buffer, texture and program. The next ContextLost
// call reports true.
func (d *Device) LoseContext() {
	d.reset()
	d.lost = true
	quadbatch.Logger().Debug("software: context lost")
}

func (d *Device) handle() uint32 {
	d.next++
	return d.next
}

func (d *Device) target() *image.RGBA {
	if n := len(d.targets); n > 0 {
		return d.targets[n-1]
	}
	return d.screen
}

// --- Buffers ---

func (d *Device) CreateVertexBuffer(capacityBytes int) (quadbatch.BufferHandle, error) {
	d.counters.VertexBuffers++
	return d.newBuffer(capacityBytes), nil
}

func (d *Device) newBuffer(capacityBytes int) quadbatch.BufferHandle {
	h := quadbatch.BufferHandle(d.handle())
	// Allocated up front so the backing array is word aligned for the
	// vertex and index views taken in Draw.
	d.buffers[h] = &buffer{data: make([]byte, 0, capacityBytes), capacity: capacityBytes}
	return h
}

func (d *Device) CreateIndexBuffer(capacityBytes int) (quadbatch.BufferHandle, error) {
	d.counters.IndexBuffers++
	return d.newBuffer(capacityBytes), nil
}

func (d *Device) upload(h quadbatch.BufferHandle, data []byte) error {
	b, ok := d.buffers[h]
	if !ok {
		return errors.Wrapf(ErrUnknownHandle, "buffer %d", h)
	}
	if len(data) > b.capacity {
		return errors.Wrapf(ErrBufferOverflow, "%d > %d bytes", len(data), b.capacity)
	}
	b.data = append(b.data[:0], data...)
	return nil
}

func (d *Device) UploadVertices(buf quadbatch.BufferHandle, data []byte) error {
	return d.upload(buf, data)
}

func (d *Device) UploadIndices(buf quadbatch.BufferHandle, data []byte) error {
	return d.upload(buf, data)
}

// --- Programs and textures ---

// CreateProgram accepts any source; the software device always runs its
// built-in textured-quad pipeline.
func (d *Device) CreateProgram(source []byte) (quadbatch.ProgramHandle, error) {
	d.counters.Programs++
	h := quadbatch.ProgramHandle(d.handle())
	d.programs[h] = source
	return h, nil
}

func (d *Device) CreateTexture(pixels []byte, width, height int) (quadbatch.TextureHandle, error) {
	if len(pixels) != 4*width*height {
		return 0, errors.Wrapf(quadbatch.ErrInvalidPixels, "%d bytes for %dx%d", len(pixels), width, height)
	}
	d.counters.Textures++
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	copy(img.Pix, pixels)
	h := quadbatch.TextureHandle(d.handle())
	d.textures[h] = img
	return h, nil
}

func (d *Device) ReleaseTexture(tex quadbatch.TextureHandle) {
	if _, ok := d.textures[tex]; !ok {
		quadbatch.Logger().Warn("software: release of unknown texture", "handle", tex)
		return
	}
	d.counters.Released++
	delete(d.textures, tex)
}

// --- Drawing ---

// Draw rasterizes every quad of the call in index order.
func (d *Device) Draw(call quadbatch.DrawCall) error {
	vb, ok := d.buffers[call.VertexBuffer]
	if !ok {
		return errors.Wrapf(ErrUnknownHandle, "vertex buffer %d", call.VertexBuffer)
	}
	ib, ok := d.buffers[call.IndexBuffer]
	if !ok {
		return errors.Wrapf(ErrUnknownHandle, "index buffer %d", call.IndexBuffer)
	}
	if _, ok := d.programs[call.Program]; !ok {
		return errors.Wrapf(ErrUnknownHandle, "program %d", call.Program)
	}
	vertices := safeish.SliceCast[[]quadbatch.Vertex](vb.data)
	indices := safeish.SliceCast[[]uint16](ib.data)
	if call.VertexCount > len(vertices) || call.IndexCount > len(indices) {
		return errors.Errorf("software: draw of %d vertices, %d indices from %d, %d uploaded",
			call.VertexCount, call.IndexCount, len(vertices), len(indices))
	}
	vertices, indices = vertices[:call.VertexCount], indices[:call.IndexCount]

	dst := d.target()
	if s := call.State.Scissor; !s.Empty() {
		dst = dst.SubImage(s).(*image.RGBA)
	}
	d.counters.Draws++

	for i := 0; i+6 <= len(indices); i += 6 {
		// Each quad is two triangles (tl, tr, br) and (tl, br, bl).
		tl, tr, bl := int(indices[i]), int(indices[i+1]), int(indices[i+5])
		if tl >= len(vertices) || tr >= len(vertices) || bl >= len(vertices) {
			return errors.Errorf("software: index out of range at %d", i)
		}
		v0, v1, v3 := &vertices[tl], &vertices[tr], &vertices[bl]
		unit := int(v0.TexUnit)
		if unit >= len(call.Textures) {
			return errors.Errorf("software: texture unit %d not bound", unit)
		}
		src, ok := d.textures[call.Textures[unit]]
		if !ok {
			return errors.Wrapf(ErrUnknownHandle, "texture %d", call.Textures[unit])
		}
		d.drawQuad(dst, src, v0, v1, v3, call.State.Blend)
	}
	return nil
}

// drawQuad maps the source rectangle spanned by the quad's UVs onto the
// parallelogram v0 (top-left), v1 (top-right), v3 (bottom-left).
func (d *Device) drawQuad(dst, src *image.RGBA, v0, v1, v3 *quadbatch.Vertex, blend quadbatch.BlendMode) {
	size := src.Bounds().Size()
	sr := image.Rect(
		texel(v0.U, size.X), texel(v0.V, size.Y),
		texel(v1.U, size.X), texel(v3.V, size.Y),
	)
	if sr.Dx() <= 0 || sr.Dy() <= 0 {
		return
	}
	sw, sh := float64(sr.Dx()), float64(sr.Dy())
	ax, ay := float64(v1.X-v0.X)/sw, float64(v1.Y-v0.Y)/sw
	bx, by := float64(v3.X-v0.X)/sh, float64(v3.Y-v0.Y)/sh
	m := f64.Aff3{
		ax, bx, float64(v0.X) - ax*float64(sr.Min.X) - bx*float64(sr.Min.Y),
		ay, by, float64(v0.Y) - ay*float64(sr.Min.X) - by*float64(sr.Min.Y),
	}

	var source image.Image = src
	if v0.Tint != quadbatch.White {
		d.tinted = tint(d.tinted, src, sr, v0.Tint)
		source = d.tinted
	}

	if int(blend) >= len(blendFuncs) {
		blend = quadbatch.BlendNormal
	}
	switch blend {
	case quadbatch.BlendNormal:
		d.interp.Transform(dst, m, source, sr, draw.Over, nil)
	case quadbatch.BlendNone:
		d.interp.Transform(dst, m, source, sr, draw.Src, nil)
	default:
		d.compose(dst, m, source, sr, blendFuncs[blend])
	}
}

// compose draws through the generic blend equation: the quad is first
// resampled into a scratch image, then every covered pixel is combined with
// the destination.
func (d *Device) compose(dst *image.RGBA, m f64.Aff3, src image.Image, sr image.Rectangle, fn blendFunc) {
	area := transformedBounds(m, sr).Intersect(dst.Bounds())
	if area.Empty() {
		return
	}
	if d.scratch == nil || !area.In(d.scratch.Rect) {
		d.scratch = image.NewRGBA(area.Union(d.screen.Rect))
	}
	scratch := d.scratch.SubImage(area).(*image.RGBA)
	draw.Draw(scratch, area, image.Transparent, image.Point{}, draw.Src)
	d.interp.Transform(scratch, m, src, sr, draw.Src, nil)

	inv, ok := invert(m)
	if !ok {
		return
	}
	for y := area.Min.Y; y < area.Max.Y; y++ {
		for x := area.Min.X; x < area.Max.X; x++ {
			// Only pixels whose centers map into the source rectangle are
			// covered by the quad.
			px, py := float64(x)+0.5, float64(y)+0.5
			sx := inv[0]*px + inv[1]*py + inv[2]
			sy := inv[3]*px + inv[4]*py + inv[5]
			if sx < float64(sr.Min.X) || sx >= float64(sr.Max.X) || sy < float64(sr.Min.Y) || sy >= float64(sr.Max.Y) {
				continue
			}
			si, di := scratch.PixOffset(x, y), dst.PixOffset(x, y)
			fn.apply(dst.Pix[di:di+4:di+4], scratch.Pix[si:si+4:si+4])
		}
	}
}

// --- Render targets ---

// RenderToTexture pushes a transparent width x height target, runs body and
// pops it, then keeps the target as a texture.
func (d *Device) RenderToTexture(width, height int, body func() error) (quadbatch.TextureHandle, error) {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	d.targets = append(d.targets, img)
	err := func() error {
		defer func() { d.targets = d.targets[:len(d.targets)-1] }()
		return body()
	}()
	d.counters.Textures++
	h := quadbatch.TextureHandle(d.handle())
	d.textures[h] = img
	return h, err
}

// RenderToBitmap renders body into dst. Drawing happens directly on dst.
func (d *Device) RenderToBitmap(dst *image.RGBA, body func() error) error {
	d.targets = append(d.targets, dst)
	defer func() { d.targets = d.targets[:len(d.targets)-1] }()
	return body()
}

func (d *Device) ContextLost() bool {
	lost := d.lost
	d.lost = false
	return lost
}

// Flip counts presented frames; the screen is left as drawn.
func (d *Device) Flip() error {
	d.counters.Flips++
	return nil
}

// Clear fills the screen with transparent black.
func (d *Device) Clear() {
	draw.Draw(d.screen, d.screen.Rect, image.Transparent, image.Point{}, draw.Src)
}

// --- helpers ---

// texel converts a normalized coordinate to the nearest texel edge.
func texel(u float32, size int) int {
	return int(math.Round(float64(u) * float64(size)))
}

// tint returns src's sr multiplied by the straight-alpha color c, reusing buf
// when it is large enough. Pixels are premultiplied, so every channel is
// scaled by the color channel times its alpha.
func tint(buf, src *image.RGBA, sr image.Rectangle, c quadbatch.RGBA8888) *image.RGBA {
	if buf == nil || !sr.In(buf.Rect) {
		buf = image.NewRGBA(sr.Union(src.Rect))
	}
	out := buf.SubImage(sr).(*image.RGBA)
	cr, cg, cb, ca := c.Channels()
	a := uint32(ca)
	scale := [4]uint32{uint32(cr) * a, uint32(cg) * a, uint32(cb) * a, a * 255}
	for y := sr.Min.Y; y < sr.Max.Y; y++ {
		si, di := src.PixOffset(sr.Min.X, y), out.PixOffset(sr.Min.X, y)
		for x := 0; x < sr.Dx()*4; x++ {
			out.Pix[di+x] = uint8(uint32(src.Pix[si+x]) * scale[x&3] / (255 * 255))
		}
	}
	return out
}

// transformedBounds returns the destination bounding box of sr under m.
func transformedBounds(m f64.Aff3, sr image.Rectangle) image.Rectangle {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range [4][2]float64{
		{float64(sr.Min.X), float64(sr.Min.Y)},
		{float64(sr.Max.X), float64(sr.Min.Y)},
		{float64(sr.Max.X), float64(sr.Max.Y)},
		{float64(sr.Min.X), float64(sr.Max.Y)},
	} {
		x := m[0]*p[0] + m[1]*p[1] + m[2]
		y := m[3]*p[0] + m[4]*p[1] + m[5]
		minX, maxX = math.Min(minX, x), math.Max(maxX, x)
		minY, maxY = math.Min(minY, y), math.Max(maxY, y)
	}
	return image.Rect(int(math.Floor(minX)), int(math.Floor(minY)), int(math.Ceil(maxX)), int(math.Ceil(maxY)))
}

func invert(m f64.Aff3) (f64.Aff3, bool) {
	det := m[0]*m[4] - m[1]*m[3]
	if det == 0 {
		return f64.Aff3{}, false
	}
	inv := 1 / det
	a, b := m[4]*inv, -m[1]*inv
	c, e := -m[3]*inv, m[0]*inv
	return f64.Aff3{
		a, b, -(a*m[2] + b*m[5]),
		c, e, -(c*m[2] + e*m[5]),
	}, true
}
