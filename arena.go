package quadbatch

import "math/bits"

// arena is a growable buffer indexed by logical element count. Capacity
// doubles (to the next power of two) when exceeded and is kept across resets,
// so after warmup appending is allocation-free.
type arena[T any] struct {
	data []T
}

// grow extends the arena by n elements and returns them for the caller to
// fill.
func (a *arena[T]) grow(n int) []T {
	l := len(a.data)
	if l+n > cap(a.data) {
		next := make([]T, l, nextPowerOfTwo(l+n))
		copy(next, a.data)
		a.data = next
	}
	a.data = a.data[:l+n]
	return a.data[l:]
}

func (a *arena[T]) reset() {
	a.data = a.data[:0]
}

func (a *arena[T]) count() int { return len(a.data) }

func (a *arena[T]) capacity() int { return cap(a.data) }

func (a *arena[T]) slice() []T { return a.data }

// nextPowerOfTwo returns the smallest power of two >= n (minimum 1).
func nextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}
