package quadbatch

import (
	"image"
	"log/slog"

	"github.com/pkg/errors"
	"seehuhn.de/go/geom/matrix"
)

// ContextState is the RenderContext state machine.
type ContextState uint8

const (
	StateIdle      ContextState = iota // nothing pending
	StateRecording                     // draw calls accepted into the batch
	StateFlushing                      // a batch is being submitted
)

func (s ContextState) String() string {
	switch s {
	case StateRecording:
		return "recording"
	case StateFlushing:
		return "flushing"
	default:
		return "idle"
	}
}

// debugMaxDepth is the render-target nesting depth above which a Debug
// context warns.
const debugMaxDepth = 8

// renderTarget is one entry of the nested render-target stack.
type renderTarget struct {
	width, height int
	bitmap        bool
}

// RenderContext drives one rendering surface frame by frame. It owns a single
// BatchBuffer and keeps it consistent across nested render-to-texture and
// render-to-bitmap passes: the batch is flushed whenever the target stack
// changes depth and is always empty when a nested pass returns.
//
// A RenderContext is not safe for concurrent use.
type RenderContext struct {
	dev     *Device
	cfg     Config
	log     *slog.Logger
	batch   *BatchBuffer
	targets []renderTarget
	state   ContextState
	frame   int

	frameStart Stats // batch stats at the start of the current frame
	last       Stats // stats of the last finished frame
}

// NewRenderContext creates a context submitting to dev.
func NewRenderContext(dev *Device, cfg Config) (*RenderContext, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &RenderContext{
		dev:   dev,
		cfg:   cfg,
		log:   cfg.logger(),
		batch: newBatchBuffer(dev, cfg),
	}, nil
}

// Draw adds q to the active batch.
func (rc *RenderContext) Draw(q Quad) error {
	if rc.state == StateFlushing {
		return errors.WithStack(ErrReentrantDraw)
	}
	// Add may flush on its own.
	rc.state = StateFlushing
	defer rc.settle()
	return rc.batch.Add(q)
}

// settle leaves the flushing state: recording if quads are pending, idle
// otherwise. Callers defer it, so it also runs when the backend panics.
func (rc *RenderContext) settle() {
	if rc.batch.Len() > 0 {
		rc.state = StateRecording
	} else {
		rc.state = StateIdle
	}
}

// DrawRegion draws region through transform with the default draw state.
func (rc *RenderContext) DrawRegion(region *Region, transform matrix.Matrix, tint RGBA8888) error {
	return rc.Draw(Quad{Region: region, Transform: transform, Tint: tint})
}

// Flush submits the active batch without changing the render target.
func (rc *RenderContext) Flush() error {
	return rc.flush(FlushExplicit)
}

func (rc *RenderContext) flush(reason FlushReason) error {
	if rc.state == StateFlushing {
		return errors.WithStack(ErrReentrantDraw)
	}
	rc.state = StateFlushing
	defer rc.settle()
	return rc.batch.flush(reason)
}

// RenderToTexture renders body into a new width x height texture and hands
// the result to use.
//
// The active batch is flushed before the pass starts and again before it
// ends, so no geometry crosses targets. The target is popped and the batch is
// left empty on every exit path, including a panic in body. use is called
// whenever the backend produced a texture, even if body failed; the region it
// receives is closed after use returns, and the texture is released once
// nothing (including a batch that drew it) holds it any more.
//
// An error from body takes precedence over one from use. A backend that
// returns no texture and no error is reported as ErrBackendFatal.
func (rc *RenderContext) RenderToTexture(width, height int, body func() error, use func(result *Region) error) error {
	if err := rc.flush(FlushTarget); err != nil {
		return err
	}

	var bodyErr error
	h, err := rc.nested(renderTarget{width: width, height: height}, func(inner func() error) (TextureHandle, error) {
		return rc.dev.gd.RenderToTexture(width, height, inner)
	}, body, &bodyErr)
	if h == 0 {
		switch {
		case bodyErr != nil:
			return bodyErr
		case err == nil:
			err = errNoTexture
		}
		return backendError(err, "render to texture")
	}

	result := rc.dev.adoptTexture(h, width, height).Region()
	var useErr error
	if use != nil {
		useErr = use(result)
	}
	_ = result.Close()

	switch {
	case bodyErr != nil:
		return bodyErr
	case err != nil:
		return backendError(err, "render to texture")
	default:
		return useErr
	}
}

// RenderToBitmap renders body into dst with the same batch and target
// discipline as RenderToTexture.
func (rc *RenderContext) RenderToBitmap(dst *image.RGBA, body func() error) error {
	if err := rc.flush(FlushTarget); err != nil {
		return err
	}
	var bodyErr error
	b := dst.Bounds()
	_, err := rc.nested(renderTarget{width: b.Dx(), height: b.Dy(), bitmap: true}, func(inner func() error) (TextureHandle, error) {
		return 0, rc.dev.gd.RenderToBitmap(dst, inner)
	}, body, &bodyErr)
	if bodyErr != nil {
		return bodyErr
	}
	if err != nil {
		return backendError(err, "render to bitmap")
	}
	return nil
}

// nested pushes t, runs body through the backend's scoped pass and pops t.
// body's own error (including the final flush inside the pass) is stored in
// bodyErr; the backend's error is returned.
func (rc *RenderContext) nested(t renderTarget, pass func(inner func() error) (TextureHandle, error), body func() error, bodyErr *error) (TextureHandle, error) {
	outer := rc.state
	rc.targets = append(rc.targets, t)
	rc.state = StateIdle
	if rc.cfg.Debug && len(rc.targets) > debugMaxDepth {
		rc.log.Warn("quadbatch: render target nesting exceeds threshold",
			"depth", len(rc.targets), "threshold", debugMaxDepth, "width", t.width, "height", t.height)
	}
	defer func() {
		rc.batch.Reset()
		rc.targets = rc.targets[:len(rc.targets)-1]
		rc.state = outer
	}()

	return pass(func() error {
		var err error
		if body != nil {
			err = body()
		}
		if ferr := rc.flush(FlushTarget); err == nil {
			err = ferr
		}
		*bodyErr = err
		return err
	})
}

// Finish flushes the active batch, presents the frame and advances the frame
// counter.
func (rc *RenderContext) Finish() error {
	if len(rc.targets) > 0 {
		return errors.Wrapf(ErrNestedFinish, "depth %d", len(rc.targets))
	}
	if err := rc.flush(FlushTarget); err != nil {
		return err
	}
	if err := rc.dev.gd.Flip(); err != nil {
		return backendError(err, "flip")
	}

	total := rc.batch.Stats()
	rc.last = total.sub(rc.frameStart)
	rc.frameStart = total
	if rc.cfg.Debug {
		rc.log.Info("quadbatch: frame", "frame", rc.frame, "stats", rc.last)
	}
	rc.frame++
	return nil
}

// Frame returns the number of finished top-level frames.
func (rc *RenderContext) Frame() int { return rc.frame }

// Depth returns the number of nested render passes in progress.
func (rc *RenderContext) Depth() int { return len(rc.targets) }

// State returns the current state machine value.
func (rc *RenderContext) State() ContextState { return rc.state }

// Batch returns the active batch buffer. Its identity never changes.
func (rc *RenderContext) Batch() *BatchBuffer { return rc.batch }

// Device returns the device the context submits to.
func (rc *RenderContext) Device() *Device { return rc.dev }

// Stats returns the metrics of the last finished frame.
func (rc *RenderContext) Stats() Stats { return rc.last }

// FrameStats returns the metrics accumulated so far in the current frame.
func (rc *RenderContext) FrameStats() Stats {
	return rc.batch.Stats().sub(rc.frameStart)
}
