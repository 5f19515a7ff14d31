package quadbatch

import "testing"

func TestNextPowerOfTwo(t *testing.T) {
	tests := []struct {
		input, want int
	}{
		{0, 1},
		{1, 1},
		{2, 2},
		{3, 4},
		{5, 8},
		{128, 128},
		{129, 256},
		{1000, 1024},
	}
	for _, tt := range tests {
		if got := nextPowerOfTwo(tt.input); got != tt.want {
			t.Errorf("nextPowerOfTwo(%d) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func TestArenaGrowKeepsContents(t *testing.T) {
	var a arena[uint16]
	for i := range 10 {
		a.grow(1)[0] = uint16(i)
	}
	if a.count() != 10 || a.capacity() != 16 {
		t.Fatalf("count/capacity = %d/%d, want 10/16", a.count(), a.capacity())
	}
	for i, v := range a.slice() {
		if v != uint16(i) {
			t.Fatalf("slice[%d] = %d", i, v)
		}
	}
}

func TestArenaResetKeepsCapacity(t *testing.T) {
	var a arena[Vertex]
	a.grow(100)
	c := a.capacity()
	a.reset()
	if a.count() != 0 || a.capacity() != c {
		t.Errorf("after reset count/capacity = %d/%d, want 0/%d", a.count(), a.capacity(), c)
	}
	a.grow(50)
	if a.capacity() != c {
		t.Errorf("regrow reallocated: capacity %d, want %d", a.capacity(), c)
	}
}
