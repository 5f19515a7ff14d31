package quadbatch

import (
	"image"
	"testing"

	"github.com/pkg/errors"
)

// --- UVs ---

func TestRegionUV(t *testing.T) {
	_, dev := newTestDevice(t)
	tex := newTestTexture(t, dev, 256, 128)

	tests := []struct {
		name                     string
		left, top, right, bottom int
		u0, v0, u1, v1           float32
	}{
		{"full", 0, 0, 256, 128, 0, 0, 1, 1},
		{"quarter", 64, 32, 128, 64, 0.25, 0.25, 0.5, 0.5},
		{"empty", 10, 10, 10, 10, 10.0 / 256, 10.0 / 128, 10.0 / 256, 10.0 / 128},
		{"bottom right", 255, 127, 256, 128, 255.0 / 256, 127.0 / 128, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := tex.NewRegion(tt.left, tt.top, tt.right, tt.bottom)
			if err != nil {
				t.Fatal(err)
			}
			defer r.Close()
			u0, v0, u1, v1 := r.UV()
			if u0 != tt.u0 || v0 != tt.v0 || u1 != tt.u1 || v1 != tt.v1 {
				t.Errorf("UV = (%v,%v,%v,%v), want (%v,%v,%v,%v)", u0, v0, u1, v1, tt.u0, tt.v0, tt.u1, tt.v1)
			}
		})
	}
}

func TestRegionUVDeterministic(t *testing.T) {
	_, dev := newTestDevice(t)
	tex := newTestTexture(t, dev, 333, 77)
	a, _ := tex.NewRegion(7, 3, 301, 70)
	b := tex.Region().Slice(7, 3, 294, 67)
	defer a.Close()
	defer b.Close()

	au0, av0, au1, av1 := a.UV()
	bu0, bv0, bu1, bv1 := b.UV()
	if au0 != bu0 || av0 != bv0 || au1 != bu1 || av1 != bv1 {
		t.Errorf("UVs differ for identical bounds: %v vs %v", [4]float32{au0, av0, au1, av1}, [4]float32{bu0, bv0, bu1, bv1})
	}
}

func TestNewRegionRejectsOutOfBounds(t *testing.T) {
	_, dev := newTestDevice(t)
	tex := newTestTexture(t, dev, 16, 16)

	tests := []image.Rectangle{
		image.Rect(-1, 0, 4, 4),
		{Min: image.Pt(0, 0), Max: image.Pt(17, 4)},
		{Min: image.Pt(8, 0), Max: image.Pt(4, 4)},
		{Min: image.Pt(0, 8), Max: image.Pt(4, 4)},
		{Min: image.Pt(0, 0), Max: image.Pt(4, 17)},
	}
	for _, b := range tests {
		_, err := tex.NewRegion(b.Min.X, b.Min.Y, b.Max.X, b.Max.Y)
		if !errors.Is(err, ErrInvalidBounds) {
			t.Errorf("NewRegion(%v) err = %v, want ErrInvalidBounds", b, err)
		}
	}
	if tex.Refs() != 0 {
		t.Errorf("refs = %d after rejected regions, want 0", tex.Refs())
	}
}

// --- Slice ---

func TestRegionSliceClamps(t *testing.T) {
	_, dev := newTestDevice(t)
	tex := newTestTexture(t, dev, 100, 100)
	parent, _ := tex.NewRegion(10, 20, 60, 80)
	defer parent.Close()

	tests := []struct {
		name       string
		x, y, w, h int
		want       image.Rectangle
	}{
		{"inside", 5, 5, 10, 10, image.Rect(15, 25, 25, 35)},
		{"overflow", 40, 50, 100, 100, image.Rect(50, 70, 60, 80)},
		{"negative offset", -5, -5, 10, 10, image.Rect(10, 20, 15, 25)},
		{"past far edge", 200, 200, 5, 5, image.Rect(60, 80, 60, 80)},
		{"negative size", 10, 10, -5, -5, image.Rect(20, 30, 20, 30)},
		{"zero size", 0, 0, 0, 0, image.Rect(10, 20, 10, 20)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := parent.Slice(tt.x, tt.y, tt.w, tt.h)
			defer s.Close()
			got := s.Bounds()
			if got != tt.want {
				t.Errorf("Slice(%d,%d,%d,%d) = %v, want %v", tt.x, tt.y, tt.w, tt.h, got, tt.want)
			}
			if !got.In(parent.Bounds()) {
				t.Errorf("slice %v escapes parent %v", got, parent.Bounds())
			}
		})
	}
}

func TestSliceOfSlice(t *testing.T) {
	_, dev := newTestDevice(t)
	tex := newTestTexture(t, dev, 100, 100)
	full := tex.Region()
	defer full.Close()

	s := full.Slice(25, 25, 50, 50)
	defer s.Close()
	if s.Bounds() != image.Rect(25, 25, 75, 75) {
		t.Errorf("bounds = %v", s.Bounds())
	}
	u0, v0, u1, v1 := s.UV()
	if u0 != 0.25 || v0 != 0.25 || u1 != 0.75 || v1 != 0.75 {
		t.Errorf("UV = (%v,%v,%v,%v), want (0.25,0.25,0.75,0.75)", u0, v0, u1, v1)
	}

	wide := s.Slice(-100, -100, 1000, 1000)
	defer wide.Close()
	if wide.Bounds() != s.Bounds() {
		t.Errorf("oversized slice = %v, want parent %v", wide.Bounds(), s.Bounds())
	}
	if w0, x0, w1, x1 := wide.UV(); w0 != u0 || x0 != v0 || w1 != u1 || x1 != v1 {
		t.Errorf("oversized slice UV = (%v,%v,%v,%v), want parent's", w0, x0, w1, x1)
	}
}

func TestRegionEmpty(t *testing.T) {
	_, dev := newTestDevice(t)
	tex := newTestTexture(t, dev, 8, 8)
	r := tex.Region()
	defer r.Close()

	if r.Empty() {
		t.Error("full region reported empty")
	}
	s := r.Slice(2, 2, 0, 4)
	defer s.Close()
	if !s.Empty() || s.Width() != 0 || s.Height() != 4 {
		t.Errorf("zero-width slice: empty=%v size=%dx%d", s.Empty(), s.Width(), s.Height())
	}
}

// --- Ownership ---

func TestRegionRefcount(t *testing.T) {
	gd, dev := newTestDevice(t)
	tex := newTestTexture(t, dev, 4, 4)

	r := tex.Region()
	s := r.Slice(0, 0, 2, 2)
	if tex.Refs() != 2 {
		t.Fatalf("refs = %d, want 2", tex.Refs())
	}

	// Allocate the GPU texture by drawing once.
	b, _ := NewBatchBuffer(dev, Config{})
	if err := b.AddQuad(s, translate(0, 0), White); err != nil {
		t.Fatal(err)
	}
	if err := b.Flush(); err != nil {
		t.Fatal(err)
	}
	if tex.State() != ResourceFresh {
		t.Fatalf("state = %v, want fresh", tex.State())
	}

	r.Close()
	r.Close()
	if tex.Refs() != 1 {
		t.Errorf("refs = %d after double close, want 1", tex.Refs())
	}
	if gd.calls["releaseTexture"] != 0 {
		t.Error("texture released while a region still holds it")
	}
	s.Close()
	if gd.calls["releaseTexture"] != 1 {
		t.Errorf("releaseTexture calls = %d, want 1", gd.calls["releaseTexture"])
	}
	if tex.State() != ResourceLost || tex.Handle() != 0 {
		t.Errorf("released texture: state=%v handle=%d", tex.State(), tex.Handle())
	}
}

func TestClosedRegionRejected(t *testing.T) {
	_, dev := newTestDevice(t)
	r := newTestTexture(t, dev, 4, 4).Region()
	r.Close()

	b, _ := NewBatchBuffer(dev, Config{})
	if err := b.AddQuad(r, translate(0, 0), White); !errors.Is(err, ErrRegionClosed) {
		t.Errorf("err = %v, want ErrRegionClosed", err)
	}
	if err := b.AddQuad(nil, translate(0, 0), White); !errors.Is(err, ErrRegionClosed) {
		t.Errorf("nil region err = %v, want ErrRegionClosed", err)
	}
}

func TestNewTextureValidatesPixels(t *testing.T) {
	_, dev := newTestDevice(t)
	if _, err := dev.NewTexture(make([]byte, 15), 2, 2); !errors.Is(err, ErrInvalidPixels) {
		t.Errorf("err = %v, want ErrInvalidPixels", err)
	}
}

func TestNewTextureFromImage(t *testing.T) {
	_, dev := newTestDevice(t)
	src := image.NewNRGBA(image.Rect(5, 5, 8, 7))
	src.Pix[3] = 255 // (5,5) opaque black
	tex, err := dev.NewTextureFromImage(src)
	if err != nil {
		t.Fatal(err)
	}
	if tex.Width() != 3 || tex.Height() != 2 {
		t.Errorf("size = %dx%d, want 3x2", tex.Width(), tex.Height())
	}
	if tex.pixels[3] != 255 || tex.pixels[7] != 0 {
		t.Errorf("alpha = %d, %d, want 255, 0", tex.pixels[3], tex.pixels[7])
	}
}
