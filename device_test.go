package quadbatch

import (
	"image"
	"testing"

	"github.com/pkg/errors"
	"honnef.co/go/safeish"
	"seehuhn.de/go/geom/matrix"
)

// recordedDraw is a snapshot of one DrawCall with its uploaded geometry.
type recordedDraw struct {
	call     DrawCall
	vertices []Vertex
	indices  []uint16
	textures []TextureHandle
	target   int // render-target depth at submission
}

// recordingDevice is an in-memory GraphicsDevice that records every call.
type recordingDevice struct {
	next      uint32
	buffers   map[BufferHandle][]byte
	textures  map[TextureHandle]bool
	draws     []recordedDraw
	calls     map[string]int
	fail      map[string]error
	depth     int
	lost      bool
	released  []TextureHandle
	onDraw    func()
	noTexture bool // RenderToTexture runs body but returns no handle
}

func newRecordingDevice() *recordingDevice {
	return &recordingDevice{
		buffers:  make(map[BufferHandle][]byte),
		textures: make(map[TextureHandle]bool),
		calls:    make(map[string]int),
		fail:     make(map[string]error),
	}
}

func (d *recordingDevice) handle(op string) (uint32, error) {
	d.calls[op]++
	if err := d.fail[op]; err != nil {
		return 0, err
	}
	d.next++
	return d.next, nil
}

func (d *recordingDevice) CreateVertexBuffer(int) (BufferHandle, error) {
	h, err := d.handle("createVertexBuffer")
	d.buffers[BufferHandle(h)] = nil
	return BufferHandle(h), err
}

func (d *recordingDevice) CreateIndexBuffer(int) (BufferHandle, error) {
	h, err := d.handle("createIndexBuffer")
	d.buffers[BufferHandle(h)] = nil
	return BufferHandle(h), err
}

func (d *recordingDevice) upload(op string, buf BufferHandle, data []byte) error {
	d.calls[op]++
	if err := d.fail[op]; err != nil {
		return err
	}
	if _, ok := d.buffers[buf]; !ok {
		return errors.Errorf("unknown buffer %d", buf)
	}
	d.buffers[buf] = append([]byte(nil), data...)
	return nil
}

func (d *recordingDevice) UploadVertices(buf BufferHandle, data []byte) error {
	return d.upload("uploadVertices", buf, data)
}

func (d *recordingDevice) UploadIndices(buf BufferHandle, data []byte) error {
	return d.upload("uploadIndices", buf, data)
}

func (d *recordingDevice) CreateProgram([]byte) (ProgramHandle, error) {
	h, err := d.handle("createProgram")
	return ProgramHandle(h), err
}

func (d *recordingDevice) CreateTexture(pixels []byte, w, h int) (TextureHandle, error) {
	n, err := d.handle("createTexture")
	if err != nil {
		return 0, err
	}
	d.textures[TextureHandle(n)] = true
	return TextureHandle(n), nil
}

func (d *recordingDevice) ReleaseTexture(tex TextureHandle) {
	d.calls["releaseTexture"]++
	delete(d.textures, tex)
	d.released = append(d.released, tex)
}

func (d *recordingDevice) Draw(call DrawCall) error {
	d.calls["draw"]++
	if err := d.fail["draw"]; err != nil {
		return err
	}
	if d.onDraw != nil {
		d.onDraw()
	}
	// Copy the uploads: the byte view aliases a buffer that the next upload
	// replaces.
	vs := safeish.SliceCast[[]Vertex](d.buffers[call.VertexBuffer])
	is := safeish.SliceCast[[]uint16](d.buffers[call.IndexBuffer])
	d.draws = append(d.draws, recordedDraw{
		call:     call,
		vertices: append([]Vertex(nil), vs[:call.VertexCount]...),
		indices:  append([]uint16(nil), is[:call.IndexCount]...),
		textures: append([]TextureHandle(nil), call.Textures...),
		target:   d.depth,
	})
	return nil
}

func (d *recordingDevice) RenderToTexture(w, h int, body func() error) (TextureHandle, error) {
	n, err := d.handle("renderToTexture")
	if err != nil {
		return 0, err
	}
	d.depth++
	defer func() { d.depth-- }()
	if d.noTexture {
		return 0, body()
	}
	d.textures[TextureHandle(n)] = true
	return TextureHandle(n), body()
}

func (d *recordingDevice) RenderToBitmap(dst *image.RGBA, body func() error) error {
	d.calls["renderToBitmap"]++
	d.depth++
	defer func() { d.depth-- }()
	return body()
}

func (d *recordingDevice) ContextLost() bool {
	lost := d.lost
	d.lost = false
	return lost
}

func (d *recordingDevice) Flip() error {
	d.calls["flip"]++
	return nil
}

// --- helpers ---

func newTestDevice(t *testing.T) (*recordingDevice, *Device) {
	t.Helper()
	gd := newRecordingDevice()
	return gd, NewDevice(gd)
}

func newTestTexture(t *testing.T, dev *Device, w, h int) *TextureBase {
	t.Helper()
	tex, err := dev.NewTexture(make([]byte, 4*w*h), w, h)
	if err != nil {
		t.Fatal(err)
	}
	return tex
}

func newTestRegion(t *testing.T, dev *Device, w, h int) *Region {
	t.Helper()
	r := newTestTexture(t, dev, w, h).Region()
	t.Cleanup(func() { r.Close() })
	return r
}

func translate(x, y float64) matrix.Matrix {
	return matrix.Matrix{1, 0, 0, 1, x, y}
}
