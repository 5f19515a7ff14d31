package quadbatch

// FlushReason says why a pending batch was submitted.
type FlushReason uint8

const (
	FlushNone         FlushReason = iota // no flush needed
	FlushCapacity                        // vertex or index buffer full
	FlushTextureUnits                    // texture-unit table full
	FlushState                           // incoming draw state differs
	FlushExplicit                        // caller asked for it
	FlushTarget                          // render target changed or frame ended
)

var flushReasonNames = [...]string{
	FlushNone:         "none",
	FlushCapacity:     "capacity",
	FlushTextureUnits: "texture-units",
	FlushState:        "state",
	FlushExplicit:     "explicit",
	FlushTarget:       "target",
}

func (r FlushReason) String() string {
	if int(r) < len(flushReasonNames) {
		return flushReasonNames[r]
	}
	return "unknown"
}

// Full reports whether the flush was forced by a resource limit.
func (r FlushReason) Full() bool {
	return r == FlushCapacity || r == FlushTextureUnits
}

// BatchState is a snapshot of a pending batch as seen by the flush policy.
type BatchState struct {
	Quads    int
	Vertices int
	Indices  int
	Textures []*TextureBase // bound texture-unit slots, in slot order
	State    DrawState
}

func (s *BatchState) bound(t *TextureBase) bool {
	for _, b := range s.Textures {
		if b == t {
			return true
		}
	}
	return false
}

// FlushPolicy decides whether a pending batch must be submitted before an
// incoming quad is added.
type FlushPolicy struct {
	MaxVertices     int
	MaxIndices      int
	MaxTextureUnits int
}

// Evaluate checks, in this order, vertex/index capacity, texture-unit
// exhaustion and draw-state mismatch, and returns the first that applies.
// Capacity comes first so that a flush never interrupts a texture-unit
// assignment. An empty pending batch never needs a flush, and a quad without
// a region needs no texture unit.
func (p FlushPolicy) Evaluate(pending BatchState, incoming Quad) FlushReason {
	if pending.Quads == 0 {
		return FlushNone
	}
	if pending.Vertices+verticesPerQuad > p.MaxVertices || pending.Indices+indicesPerQuad > p.MaxIndices {
		return FlushCapacity
	}
	if r := incoming.Region; r != nil && !pending.bound(r.base) && len(pending.Textures) >= p.MaxTextureUnits {
		return FlushTextureUnits
	}
	if incoming.State != pending.State {
		return FlushState
	}
	return FlushNone
}

// ShouldFlush reports whether Evaluate returns anything but FlushNone.
func (p FlushPolicy) ShouldFlush(pending BatchState, incoming Quad) bool {
	return p.Evaluate(pending, incoming) != FlushNone
}

// fits reports whether a single quad fits in an empty batch.
func (p FlushPolicy) fits() bool {
	return p.MaxVertices >= verticesPerQuad && p.MaxIndices >= indicesPerQuad && p.MaxTextureUnits >= 1
}
