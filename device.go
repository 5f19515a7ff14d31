package quadbatch

import "image"

// BufferHandle identifies a vertex or index buffer on a GraphicsDevice.
// The zero value is never a valid handle.
type BufferHandle uint32

// TextureHandle identifies a texture on a GraphicsDevice. The zero value
// means "no texture".
type TextureHandle uint32

// ProgramHandle identifies a shader program on a GraphicsDevice.
type ProgramHandle uint32

// DrawCall is one batch submitted as a single GPU draw.
//
// Vertices and indices were uploaded to the buffers beforehand with
// UploadVertices and UploadIndices. Textures[i] is the texture bound to unit
// i; every Vertex.TexUnit in the batch indexes a non-zero entry. The
// Textures slice is reused by the caller and is only valid during Draw.
type DrawCall struct {
	VertexBuffer BufferHandle
	IndexBuffer  BufferHandle
	VertexCount  int
	IndexCount   int
	Textures     []TextureHandle
	Program      ProgramHandle
	State        DrawState
}

// GraphicsDevice is the backend the batching layer submits to. Backends are
// injected once through NewDevice.
//
// Pixel buffers are premultiplied RGBA8, row-major, 4*width*height bytes.
// Vertex data is a packed []Vertex (VertexSize stride); index data is a
// packed []uint16.
type GraphicsDevice interface {
	CreateVertexBuffer(capacityBytes int) (BufferHandle, error)
	CreateIndexBuffer(capacityBytes int) (BufferHandle, error)
	UploadVertices(buf BufferHandle, data []byte) error
	UploadIndices(buf BufferHandle, data []byte) error

	// CreateProgram compiles a program. A nil source selects the backend's
	// built-in textured-quad program.
	CreateProgram(source []byte) (ProgramHandle, error)

	CreateTexture(pixels []byte, width, height int) (TextureHandle, error)
	ReleaseTexture(tex TextureHandle)

	// Draw issues exactly one draw call.
	Draw(call DrawCall) error

	// RenderToTexture makes a new width x height texture the current target,
	// runs body, restores the previous target and returns the texture. The
	// previous target is restored even if body fails.
	RenderToTexture(width, height int, body func() error) (TextureHandle, error)
	// RenderToBitmap renders body into dst.
	RenderToBitmap(dst *image.RGBA, body func() error) error

	// ContextLost reports, once per event, that every handle issued so far
	// has become invalid.
	ContextLost() bool

	// Flip presents the current frame.
	Flip() error
}
