package quadbatch

import (
	"log/slog"

	"github.com/pkg/errors"
)

const (
	// DefaultMaxVertices is the per-batch vertex capacity used when
	// Config.MaxVertices is zero (2048 quads).
	DefaultMaxVertices = 8192
	// DefaultMaxTextureUnits is the number of texture slots a batch may bind
	// when Config.MaxTextureUnits is zero.
	DefaultMaxTextureUnits = 8

	// MaxVertexLimit is the largest vertex capacity addressable by uint16
	// indices.
	MaxVertexLimit = 1 << 16
	// MaxTextureUnitLimit bounds Config.MaxTextureUnits.
	MaxTextureUnitLimit = 32
)

// Config holds the fixed per-draw-call limits and diagnostics settings of a
// batch buffer or render context. Zero fields take their defaults.
type Config struct {
	// MaxVertices is the vertex capacity of one batch. Must not exceed
	// MaxVertexLimit. A value below 4 is accepted but every quad is then
	// rejected with ErrPrimitiveTooLarge.
	MaxVertices int
	// MaxIndices is the index capacity of one batch. Defaults to
	// MaxVertices/4*6.
	MaxIndices int
	// MaxTextureUnits is the number of texture slots one draw call can bind.
	MaxTextureUnits int
	// ProgramSource is handed to GraphicsDevice.CreateProgram for the
	// default program. Nil selects the backend's built-in program.
	ProgramSource []byte
	// Debug logs per-frame statistics at Info level on every Finish.
	Debug bool
	// Logger overrides the package logger for this context.
	Logger *slog.Logger
}

// withDefaults returns a copy of c with zero fields filled in.
func (c Config) withDefaults() Config {
	if c.MaxVertices == 0 {
		c.MaxVertices = DefaultMaxVertices
	}
	if c.MaxIndices == 0 {
		c.MaxIndices = c.MaxVertices / verticesPerQuad * indicesPerQuad
	}
	if c.MaxTextureUnits == 0 {
		c.MaxTextureUnits = DefaultMaxTextureUnits
	}
	return c
}

func (c Config) validate() error {
	switch {
	case c.MaxVertices < 0 || c.MaxVertices > MaxVertexLimit:
		return errors.Wrapf(ErrInvalidConfig, "MaxVertices %d not in [0, %d]", c.MaxVertices, MaxVertexLimit)
	case c.MaxIndices < 0:
		return errors.Wrapf(ErrInvalidConfig, "MaxIndices %d is negative", c.MaxIndices)
	case c.MaxTextureUnits < 0 || c.MaxTextureUnits > MaxTextureUnitLimit:
		return errors.Wrapf(ErrInvalidConfig, "MaxTextureUnits %d not in [1, %d]", c.MaxTextureUnits, MaxTextureUnitLimit)
	}
	return nil
}

func (c Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return Logger()
}

func (c Config) policy() FlushPolicy {
	return FlushPolicy{
		MaxVertices:     c.MaxVertices,
		MaxIndices:      c.MaxIndices,
		MaxTextureUnits: c.MaxTextureUnits,
	}
}
