// Package quadbatch batches textured 2D quads into as few GPU draw calls as
// possible.
//
// Callers describe each quad as a [Region] of a shared [TextureBase], an
// affine transform and a tint. A [BatchBuffer] packs the transformed corners
// into shared vertex and index buffers and assigns each distinct texture to one
// of a bounded number of texture units, so quads sampling different textures
// still share a draw call. A [FlushPolicy] decides when the pending batch must
// be submitted: when the buffers are full, when the texture-unit table is
// exhausted or when the draw state changes.
//
// A [RenderContext] drives one surface frame by frame and supports nested
// render-to-texture and render-to-bitmap passes without corrupting the batch
// that was being recorded when the pass began.
//
// # Backends
//
// The package never talks to a driver directly. Everything goes through a
// [GraphicsDevice], wrapped once in a [Device]:
//
//	dev := quadbatch.NewDevice(software.New(640, 480))
//	rc, err := quadbatch.NewRenderContext(dev, quadbatch.Config{})
//	if err != nil {
//		return err
//	}
//	tex, _ := dev.NewTextureFromImage(img)
//	hero, _ := tex.NewRegion(0, 0, 32, 32)
//	defer hero.Close()
//
//	rc.DrawRegion(hero, matrix.Identity.Translate(100, 50), quadbatch.White)
//	rc.Finish()
//
// The backend/software package rasterizes on the CPU with golang.org/x/image
// and is used for tests and headless rendering. The backend/ebitengine package
// submits to [Ebitengine].
//
// # Context loss
//
// GPU objects are created lazily on the first flush that needs them. When the
// backend reports a lost context, every buffer, texture and program created
// on the device is re-created on its next use; textures keep a CPU copy of
// their pixels for this. Textures produced by render-to-texture have no such
// copy and report [ErrResourceLost] if drawn after a loss.
//
// # Logging
//
// The package logs through [log/slog]. It is silent by default; install a
// logger with [SetLogger] or per context with Config.Logger. Set Config.Debug
// to log per-frame statistics.
//
// [Ebitengine]: https://ebitengine.org
package quadbatch
