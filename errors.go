package quadbatch

import "github.com/pkg/errors"

// Configuration errors. They are returned to the immediate caller and never
// leave a batch in a modified state.
var (
	// ErrInvalidConfig reports an out-of-range Config field.
	ErrInvalidConfig = errors.New("quadbatch: invalid config")
	// ErrPrimitiveTooLarge reports a quad whose geometry cannot fit in an
	// empty batch under the configured vertex/index capacity.
	ErrPrimitiveTooLarge = errors.New("quadbatch: primitive exceeds batch capacity")
	// ErrInvalidBounds reports a region whose bounds fall outside its base.
	ErrInvalidBounds = errors.New("quadbatch: region bounds outside texture")
	// ErrInvalidPixels reports a pixel buffer whose length does not match
	// 4*width*height.
	ErrInvalidPixels = errors.New("quadbatch: pixel buffer size mismatch")
	// ErrRegionClosed reports use of a region after Close.
	ErrRegionClosed = errors.New("quadbatch: region is closed")
	// ErrForeignTexture reports a texture created on a different Device.
	ErrForeignTexture = errors.New("quadbatch: texture belongs to another device")
)

// Misuse of the render context.
var (
	// ErrReentrantDraw is returned when Draw is called while the context is
	// submitting a batch.
	ErrReentrantDraw = errors.New("quadbatch: draw during flush")
	// ErrNestedFinish is returned when Finish is called inside a
	// render-to-texture or render-to-bitmap pass.
	ErrNestedFinish = errors.New("quadbatch: finish inside nested render pass")
)

// Backend-fatal errors. They propagate to the caller of Draw, Flush or Finish.
var (
	// ErrBackendFatal wraps any failure reported by the GraphicsDevice,
	// including a failed re-creation after context loss.
	ErrBackendFatal = errors.New("quadbatch: graphics backend failure")
	// ErrResourceLost reports a resource that cannot be re-created after a
	// context loss, such as the result of a render-to-texture pass.
	ErrResourceLost = errors.New("quadbatch: resource lost with graphics context")
)

// errNoTexture is the device error for a render-to-texture pass that returned
// neither a texture nor an error.
var errNoTexture = errors.New("render to texture produced no texture")

// backendError wraps err from the device as backend-fatal with context.
func backendError(err error, op string) error {
	return errors.Wrapf(&fatalError{err}, "quadbatch: %s", op)
}

// fatalError tags an underlying device error so errors.Is(err,
// ErrBackendFatal) holds while the device error stays reachable.
type fatalError struct {
	err error
}

func (e *fatalError) Error() string { return e.err.Error() }

func (e *fatalError) Unwrap() error { return e.err }

func (e *fatalError) Is(target error) bool { return target == ErrBackendFatal }
