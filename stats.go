package quadbatch

import "log/slog"

// Stats holds draw-call metrics accumulated by a batch buffer and, per frame,
// by a render context.
type Stats struct {
	Batches       int // draw calls issued
	FullBatches   int // flushes forced by capacity or texture-unit exhaustion
	StateBatches  int // flushes forced by a draw-state change
	Quads         int // quads submitted
	Vertices      int // vertices uploaded
	TextureBinds  int // texture units bound across all draw calls
	ContextLosses int // context losses observed
}

func (s *Stats) add(o Stats) {
	s.Batches += o.Batches
	s.FullBatches += o.FullBatches
	s.StateBatches += o.StateBatches
	s.Quads += o.Quads
	s.Vertices += o.Vertices
	s.TextureBinds += o.TextureBinds
	s.ContextLosses += o.ContextLosses
}

func (s Stats) sub(o Stats) Stats {
	o.Batches = -o.Batches
	o.FullBatches = -o.FullBatches
	o.StateBatches = -o.StateBatches
	o.Quads = -o.Quads
	o.Vertices = -o.Vertices
	o.TextureBinds = -o.TextureBinds
	o.ContextLosses = -o.ContextLosses
	s.add(o)
	return s
}

func (s *Stats) record(reason FlushReason, quads, vertices, textures int) {
	s.Batches++
	if reason.Full() {
		s.FullBatches++
	}
	if reason == FlushState {
		s.StateBatches++
	}
	s.Quads += quads
	s.Vertices += vertices
	s.TextureBinds += textures
}

// LogValue implements slog.LogValuer.
func (s Stats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("batches", s.Batches),
		slog.Int("full", s.FullBatches),
		slog.Int("state", s.StateBatches),
		slog.Int("quads", s.Quads),
		slog.Int("vertices", s.Vertices),
		slog.Int("binds", s.TextureBinds),
		slog.Int("losses", s.ContextLosses),
	)
}
