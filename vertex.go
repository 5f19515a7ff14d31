package quadbatch

import (
	"unsafe"

	"seehuhn.de/go/geom/matrix"
)

const (
	verticesPerQuad = 4
	indicesPerQuad  = 6
)

// Vertex is one corner of a batched quad as uploaded to the GPU.
type Vertex struct {
	X, Y    float32
	U, V    float32
	Tint    RGBA8888
	TexUnit uint8
}

// VertexSize is the in-memory size of a Vertex, which is also its stride in
// uploaded vertex data.
const VertexSize = int(unsafe.Sizeof(Vertex{}))

// IndexSize is the size of one uploaded index.
const IndexSize = 2

// Quad is a single draw request: a region mapped by an affine transform,
// tinted and drawn under a draw state.
type Quad struct {
	Region    *Region
	Transform matrix.Matrix
	Tint      RGBA8888
	State     DrawState
}

// NewQuad returns a quad with the default draw state.
func NewQuad(r *Region, m matrix.Matrix, tint RGBA8888) Quad {
	return Quad{Region: r, Transform: m, Tint: tint}
}

// corners writes the four transformed corners of q in top-left, top-right,
// bottom-right, bottom-left order.
func (q *Quad) corners(dst *[verticesPerQuad]Vertex, unit uint8) {
	r := q.Region
	w, h := float64(r.Width()), float64(r.Height())
	m := &q.Transform
	a, b, c, d, e, f := m[0], m[1], m[2], m[3], m[4], m[5]

	lx := [verticesPerQuad]float64{0, w, w, 0}
	ly := [verticesPerQuad]float64{0, 0, h, h}
	us := [verticesPerQuad]float32{r.u0, r.u1, r.u1, r.u0}
	vs := [verticesPerQuad]float32{r.v0, r.v0, r.v1, r.v1}

	for i := range dst {
		dst[i] = Vertex{
			X:       float32(a*lx[i] + c*ly[i] + e),
			Y:       float32(b*lx[i] + d*ly[i] + f),
			U:       us[i],
			V:       vs[i],
			Tint:    q.Tint,
			TexUnit: unit,
		}
	}
}
