package ebitengine

import (
	"image"
	"math/bits"

	"github.com/hajimehoshi/ebiten/v2"
)

// targetPool recycles offscreen images for render passes. Images are grouped
// by power-of-two size so passes of similar size share storage.
type targetPool struct {
	free map[image.Point][]*ebiten.Image
}

// bucket rounds a requested size up to the pool size class that holds it.
func bucket(w, h int) image.Point {
	return image.Pt(1<<bits.Len(uint(max(w, 1)-1)), 1<<bits.Len(uint(max(h, 1)-1)))
}

// take returns a cleared image of at least w x h pixels.
func (p *targetPool) take(w, h int) *ebiten.Image {
	size := bucket(w, h)
	if list := p.free[size]; len(list) > 0 {
		img := list[len(list)-1]
		p.free[size] = list[:len(list)-1]
		img.Clear()
		return img
	}
	return ebiten.NewImageWithOptions(image.Rectangle{Max: size}, &ebiten.NewImageOptions{Unmanaged: true})
}

// put makes img available to later passes. Clearing is left to take.
func (p *targetPool) put(img *ebiten.Image) {
	if img == nil {
		return
	}
	if p.free == nil {
		p.free = make(map[image.Point][]*ebiten.Image)
	}
	size := img.Bounds().Size()
	p.free[size] = append(p.free[size], img)
}

// idle returns how many images are waiting in the pool.
func (p *targetPool) idle() int {
	n := 0
	for _, list := range p.free {
		n += len(list)
	}
	return n
}
