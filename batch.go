package quadbatch

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"
	"honnef.co/go/safeish"
	"seehuhn.de/go/geom/matrix"
)

// BatchBuffer packs transformed quads into shared vertex and index buffers and
// assigns their textures to a bounded table of texture units. Everything added
// between two flushes is submitted as one draw call, in submission order.
//
// Running out of vertices, indices or texture units, or changing draw state,
// flushes the pending batch automatically; none of these are errors.
type BatchBuffer struct {
	dev     *Device
	cfg     Config
	policy  FlushPolicy
	log     *slog.Logger
	program *Program

	vertices arena[Vertex]
	indices  arena[uint16]
	units    []*TextureBase // bound texture units, in slot order
	quads    int
	state    DrawState

	vbuf, ibuf   gpuResource
	vbufH, ibufH BufferHandle

	handles []TextureHandle
	corners [verticesPerQuad]Vertex
	stats   Stats
}

// NewBatchBuffer creates a batch buffer submitting to dev.
func NewBatchBuffer(dev *Device, cfg Config) (*BatchBuffer, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return newBatchBuffer(dev, cfg), nil
}

func newBatchBuffer(dev *Device, cfg Config) *BatchBuffer {
	return &BatchBuffer{
		dev:     dev,
		cfg:     cfg,
		policy:  cfg.policy(),
		log:     cfg.logger(),
		program: dev.NewProgram(cfg.ProgramSource),
		units:   make([]*TextureBase, 0, cfg.MaxTextureUnits),
		handles: make([]TextureHandle, 0, cfg.MaxTextureUnits),
	}
}

// AddQuad adds region drawn through transform with the given tint under the
// default draw state.
func (b *BatchBuffer) AddQuad(region *Region, transform matrix.Matrix, tint RGBA8888) error {
	return b.Add(Quad{Region: region, Transform: transform, Tint: tint})
}

// Add appends one quad, flushing the pending batch first if the flush policy
// requires it. Empty regions are accepted and draw nothing.
//
// A quad that cannot fit in an empty batch is a configuration error
// (ErrPrimitiveTooLarge); the batch is left untouched.
func (b *BatchBuffer) Add(q Quad) error {
	r := q.Region
	switch {
	case r == nil:
		return errors.Wrap(ErrRegionClosed, "quadbatch: nil region")
	case r.closed:
		return errors.WithStack(ErrRegionClosed)
	case r.base.dev != b.dev:
		return errors.WithStack(ErrForeignTexture)
	case q.State.Program != nil && q.State.Program.dev != b.dev:
		return errors.Wrap(ErrForeignTexture, "quadbatch: program")
	case !b.policy.fits():
		return errors.Wrapf(ErrPrimitiveTooLarge, "quad needs %d vertices, %d indices, 1 texture unit; batch holds %d, %d, %d",
			verticesPerQuad, indicesPerQuad, b.policy.MaxVertices, b.policy.MaxIndices, b.policy.MaxTextureUnits)
	}
	if r.Empty() {
		return nil
	}

	if reason := b.policy.Evaluate(b.pending(), q); reason != FlushNone {
		if err := b.flush(reason); err != nil {
			return err
		}
	}
	if b.quads == 0 {
		b.state = q.State
	}

	unit := b.bind(r.base)
	first := uint16(b.vertices.count())
	q.corners(&b.corners, unit)
	copy(b.vertices.grow(verticesPerQuad), b.corners[:])
	idx := b.indices.grow(indicesPerQuad)
	idx[0], idx[1], idx[2] = first, first+1, first+2
	idx[3], idx[4], idx[5] = first, first+2, first+3
	b.quads++
	return nil
}

// bind returns the texture unit holding t, assigning the next free one if t
// is not bound yet. The caller guarantees a free unit exists.
func (b *BatchBuffer) bind(t *TextureBase) uint8 {
	for i, u := range b.units {
		if u == t {
			return uint8(i)
		}
	}
	t.retain()
	b.units = append(b.units, t)
	return uint8(len(b.units) - 1)
}

func (b *BatchBuffer) pending() BatchState {
	return BatchState{
		Quads:    b.quads,
		Vertices: b.vertices.count(),
		Indices:  b.indices.count(),
		Textures: b.units,
		State:    b.state,
	}
}

// Flush submits the pending batch as one draw call. It is a no-op when
// nothing is pending.
func (b *BatchBuffer) Flush() error {
	return b.flush(FlushExplicit)
}

func (b *BatchBuffer) flush(reason FlushReason) error {
	if b.quads == 0 {
		return nil
	}
	// The batch is consumed whether or not submission succeeds.
	defer b.Reset()

	if b.dev.checkLost(b.log) {
		b.stats.ContextLosses++
	}
	if err := b.ensureBuffers(); err != nil {
		return err
	}

	program := b.state.Program
	if program == nil {
		program = b.program
	}
	ph, err := program.ensure()
	if err != nil {
		return backendError(err, "create program")
	}

	b.handles = b.handles[:0]
	for _, t := range b.units {
		h, err := t.ensure()
		if err != nil {
			return backendError(err, "create texture")
		}
		b.handles = append(b.handles, h)
	}

	gd := b.dev.gd
	if err := gd.UploadVertices(b.vbufH, safeish.SliceCast[[]byte](b.vertices.slice())); err != nil {
		return backendError(err, "upload vertices")
	}
	if err := gd.UploadIndices(b.ibufH, safeish.SliceCast[[]byte](b.indices.slice())); err != nil {
		return backendError(err, "upload indices")
	}
	err = gd.Draw(DrawCall{
		VertexBuffer: b.vbufH,
		IndexBuffer:  b.ibufH,
		VertexCount:  b.vertices.count(),
		IndexCount:   b.indices.count(),
		Textures:     b.handles,
		Program:      ph,
		State:        b.state,
	})
	if err != nil {
		return backendError(err, "draw")
	}

	b.stats.record(reason, b.quads, b.vertices.count(), len(b.units))
	if b.log.Enabled(context.Background(), slog.LevelDebug) {
		b.log.Debug("quadbatch: flush", "reason", reason, "quads", b.quads, "textures", len(b.units))
	}
	return nil
}

func (b *BatchBuffer) ensureBuffers() error {
	gd := b.dev.gd
	err := b.vbuf.ensure(b.dev, func() error {
		h, err := gd.CreateVertexBuffer(b.cfg.MaxVertices * VertexSize)
		b.vbufH = h
		return err
	})
	if err != nil {
		return backendError(err, "create vertex buffer")
	}
	err = b.ibuf.ensure(b.dev, func() error {
		h, err := gd.CreateIndexBuffer(b.cfg.MaxIndices * IndexSize)
		b.ibufH = h
		return err
	})
	if err != nil {
		return backendError(err, "create index buffer")
	}
	return nil
}

// Reset discards the pending batch without drawing it and releases the
// textures it held.
func (b *BatchBuffer) Reset() {
	b.vertices.reset()
	b.indices.reset()
	for i, t := range b.units {
		t.release()
		b.units[i] = nil
	}
	b.units = b.units[:0]
	b.quads = 0
	b.state = DrawState{}
}

// Len returns the number of pending quads.
func (b *BatchBuffer) Len() int { return b.quads }

// Vertices returns the number of pending vertices.
func (b *BatchBuffer) Vertices() int { return b.vertices.count() }

// Indices returns the number of pending indices.
func (b *BatchBuffer) Indices() int { return b.indices.count() }

// TextureUnits returns the number of texture units bound by the pending batch.
func (b *BatchBuffer) TextureUnits() int { return len(b.units) }

// State returns the draw state recorded for the pending batch.
func (b *BatchBuffer) State() DrawState { return b.state }

// Config returns the effective configuration.
func (b *BatchBuffer) Config() Config { return b.cfg }

// Stats returns the metrics accumulated since the buffer was created.
func (b *BatchBuffer) Stats() Stats { return b.stats }
