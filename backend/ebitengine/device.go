// Package ebitengine implements quadbatch.GraphicsDevice on top of
// Ebitengine.
//
// Ebitengine owns the GPU context and restores it on its own, so the device
// never reports a context loss. Stencil state is ignored.
package ebitengine

import (
	"image"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/pkg/errors"
	"honnef.co/go/safeish"

	"github.com/phanxgames/quadbatch"
)

var (
	// ErrNoScreen is returned by Draw when SetScreen was never called.
	ErrNoScreen = errors.New("ebitengine: no screen set")
	// ErrUnknownHandle reports a handle that was never issued or was released.
	ErrUnknownHandle = errors.New("ebitengine: unknown handle")
)

type texture struct {
	img    *ebiten.Image // what quads sample
	pooled *ebiten.Image // full pool image backing img, if any
}

// Device is an Ebitengine GraphicsDevice. Call SetScreen with the image passed
// to ebiten.Game.Draw before drawing each frame.
type Device struct {
	screen  *ebiten.Image
	targets []*ebiten.Image

	buffers  map[quadbatch.BufferHandle][]byte
	textures map[quadbatch.TextureHandle]texture
	programs map[quadbatch.ProgramHandle]*ebiten.Shader // nil value: built-in
	next     uint32
	pool     targetPool

	verts []ebiten.Vertex
	inds  []uint32
	runs  int // DrawTriangles calls issued, for tests and diagnostics
}

// New returns an empty device.
func New() *Device {
	return &Device{
		buffers:  make(map[quadbatch.BufferHandle][]byte),
		textures: make(map[quadbatch.TextureHandle]texture),
		programs: make(map[quadbatch.ProgramHandle]*ebiten.Shader),
	}
}

// SetScreen sets the image top-level draws go to.
func (d *Device) SetScreen(screen *ebiten.Image) {
	d.screen = screen
}

// Runs returns the number of Ebitengine draw calls issued so far. A batch
// sampling n textures costs at least n of them.
func (d *Device) Runs() int { return d.runs }

func (d *Device) handle() uint32 {
	d.next++
	return d.next
}

func (d *Device) target() *ebiten.Image {
	if n := len(d.targets); n > 0 {
		return d.targets[n-1]
	}
	return d.screen
}

// --- Buffers ---

// Vertex and index buffers are CPU-side: Ebitengine takes geometry per call.

func (d *Device) CreateVertexBuffer(capacityBytes int) (quadbatch.BufferHandle, error) {
	h := quadbatch.BufferHandle(d.handle())
	d.buffers[h] = make([]byte, 0, capacityBytes)
	return h, nil
}

func (d *Device) CreateIndexBuffer(capacityBytes int) (quadbatch.BufferHandle, error) {
	return d.CreateVertexBuffer(capacityBytes)
}

func (d *Device) upload(h quadbatch.BufferHandle, data []byte) error {
	buf, ok := d.buffers[h]
	if !ok {
		return errors.Wrapf(ErrUnknownHandle, "buffer %d", h)
	}
	d.buffers[h] = append(buf[:0], data...)
	return nil
}

func (d *Device) UploadVertices(buf quadbatch.BufferHandle, data []byte) error {
	return d.upload(buf, data)
}

func (d *Device) UploadIndices(buf quadbatch.BufferHandle, data []byte) error {
	return d.upload(buf, data)
}

// --- Programs and textures ---

// CreateProgram compiles a Kage shader. A nil source selects the built-in
// textured-quad pipeline. The shader samples Images[0] with the vertex's
// source position and receives the premultiplied tint as the vertex color.
func (d *Device) CreateProgram(source []byte) (quadbatch.ProgramHandle, error) {
	var shader *ebiten.Shader
	if source != nil {
		var err error
		if shader, err = ebiten.NewShader(source); err != nil {
			return 0, errors.Wrap(err, "ebitengine: compile shader")
		}
	}
	h := quadbatch.ProgramHandle(d.handle())
	d.programs[h] = shader
	return h, nil
}

func (d *Device) CreateTexture(pixels []byte, width, height int) (quadbatch.TextureHandle, error) {
	if len(pixels) != 4*width*height {
		return 0, errors.Wrapf(quadbatch.ErrInvalidPixels, "%d bytes for %dx%d", len(pixels), width, height)
	}
	img := ebiten.NewImage(max(width, 1), max(height, 1))
	if width > 0 && height > 0 {
		img.WritePixels(pixels)
	}
	h := quadbatch.TextureHandle(d.handle())
	d.textures[h] = texture{img: img}
	return h, nil
}

func (d *Device) ReleaseTexture(tex quadbatch.TextureHandle) {
	t, ok := d.textures[tex]
	if !ok {
		quadbatch.Logger().Warn("ebitengine: release of unknown texture", "handle", tex)
		return
	}
	delete(d.textures, tex)
	if t.pooled != nil {
		d.pool.put(t.pooled)
		return
	}
	t.img.Deallocate()
}

// --- Drawing ---

// Draw converts the batch to Ebitengine vertices and submits it. Ebitengine
// binds one source image per call, so the batch is split into contiguous runs
// of triangles sampling the same texture unit; submission order is kept.
func (d *Device) Draw(call quadbatch.DrawCall) error {
	dst := d.target()
	if dst == nil {
		return errors.WithStack(ErrNoScreen)
	}
	if s := call.State.Scissor; !s.Empty() {
		dst = dst.SubImage(s).(*ebiten.Image)
	}
	shader, ok := d.programs[call.Program]
	if !ok {
		return errors.Wrapf(ErrUnknownHandle, "program %d", call.Program)
	}
	vertices := safeish.SliceCast[[]quadbatch.Vertex](d.buffers[call.VertexBuffer])
	indices := safeish.SliceCast[[]uint16](d.buffers[call.IndexBuffer])
	if call.VertexCount > len(vertices) || call.IndexCount > len(indices) {
		return errors.Errorf("ebitengine: draw of %d vertices, %d indices from %d, %d uploaded",
			call.VertexCount, call.IndexCount, len(vertices), len(indices))
	}
	vertices, indices = vertices[:call.VertexCount], indices[:call.IndexCount]

	images := make([]*ebiten.Image, len(call.Textures))
	for i, h := range call.Textures {
		t, ok := d.textures[h]
		if !ok {
			return errors.Wrapf(ErrUnknownHandle, "texture %d", h)
		}
		images[i] = t.img
	}

	for _, r := range splitRuns(vertices, indices) {
		if int(r.unit) >= len(images) {
			return errors.Errorf("ebitengine: texture unit %d not bound", r.unit)
		}
		src := images[r.unit]
		d.convert(vertices, indices[r.start:r.end], src)
		d.submit(dst, src, shader, call.State.Blend)
	}
	return nil
}

// run is a contiguous range of indices whose triangles all sample one unit.
type run struct {
	start, end int
	unit       uint8
}

// splitRuns partitions indices into maximal same-unit runs of whole
// triangles. A triangle's unit is that of its first vertex.
func splitRuns(vertices []quadbatch.Vertex, indices []uint16) []run {
	var runs []run
	for i := 0; i+3 <= len(indices); i += 3 {
		unit := vertices[indices[i]].TexUnit
		if n := len(runs); n > 0 && runs[n-1].unit == unit {
			runs[n-1].end = i + 3
			continue
		}
		runs = append(runs, run{start: i, end: i + 3, unit: unit})
	}
	return runs
}

// convert fills d.verts and d.inds with the run's geometry, rebased so only
// the referenced vertices are copied.
func (d *Device) convert(vertices []quadbatch.Vertex, indices []uint16, src *ebiten.Image) {
	lo, hi := indices[0], indices[0]
	for _, i := range indices {
		lo, hi = min(lo, i), max(hi, i)
	}
	b := src.Bounds()
	w, h := float32(b.Dx()), float32(b.Dy())

	d.verts = d.verts[:0]
	for _, v := range vertices[lo : hi+1] {
		cr, cg, cb, ca := v.Tint.Premultiplied()
		d.verts = append(d.verts, ebiten.Vertex{
			DstX:   v.X,
			DstY:   v.Y,
			SrcX:   float32(b.Min.X) + v.U*w,
			SrcY:   float32(b.Min.Y) + v.V*h,
			ColorR: cr,
			ColorG: cg,
			ColorB: cb,
			ColorA: ca,
		})
	}
	d.inds = d.inds[:0]
	for _, i := range indices {
		d.inds = append(d.inds, uint32(i-lo))
	}
}

func (d *Device) submit(dst, src *ebiten.Image, shader *ebiten.Shader, mode quadbatch.BlendMode) {
	d.runs++
	if shader != nil {
		var op ebiten.DrawTrianglesShaderOptions
		op.Blend = blend(mode)
		op.Images[0] = src
		dst.DrawTrianglesShader32(d.verts, d.inds, shader, &op)
		return
	}
	var op ebiten.DrawTrianglesOptions
	op.Blend = blend(mode)
	op.ColorScaleMode = ebiten.ColorScaleModePremultipliedAlpha
	dst.DrawTriangles32(d.verts, d.inds, src, &op)
}

// --- Render targets ---

// RenderToTexture renders body into a pooled offscreen image and returns it
// as a texture. Releasing the texture returns the image to the pool.
func (d *Device) RenderToTexture(width, height int, body func() error) (quadbatch.TextureHandle, error) {
	pooled := d.pool.take(width, height)
	img := pooled.SubImage(image.Rect(0, 0, width, height)).(*ebiten.Image)
	d.targets = append(d.targets, img)
	err := func() error {
		defer func() { d.targets = d.targets[:len(d.targets)-1] }()
		return body()
	}()
	h := quadbatch.TextureHandle(d.handle())
	d.textures[h] = texture{img: img, pooled: pooled}
	return h, err
}

// RenderToBitmap renders body offscreen on top of dst's current contents and
// reads the result back into dst.
func (d *Device) RenderToBitmap(dst *image.RGBA, body func() error) error {
	b := dst.Bounds()
	w, h := b.Dx(), b.Dy()
	pooled := d.pool.take(w, h)
	defer d.pool.put(pooled)
	img := pooled.SubImage(image.Rect(0, 0, w, h)).(*ebiten.Image)

	pix := make([]byte, 4*w*h)
	for y := 0; y < h; y++ {
		copy(pix[y*4*w:(y+1)*4*w], dst.Pix[dst.PixOffset(b.Min.X, b.Min.Y+y):])
	}
	img.WritePixels(pix)

	d.targets = append(d.targets, img)
	err := func() error {
		defer func() { d.targets = d.targets[:len(d.targets)-1] }()
		return body()
	}()
	if err != nil {
		return err
	}

	img.ReadPixels(pix)
	for y := 0; y < h; y++ {
		copy(dst.Pix[dst.PixOffset(b.Min.X, b.Min.Y+y):], pix[y*4*w:(y+1)*4*w])
	}
	return nil
}

// ContextLost always reports false; Ebitengine restores its own context.
func (d *Device) ContextLost() bool { return false }

// Flip is a no-op: Ebitengine presents the screen after Game.Draw returns.
func (d *Device) Flip() error { return nil }
