// Package ringbuf provides a fixed-capacity rolling history. Pushing into a
// full history overwrites the oldest element, so indicator windows and the
// per-series bar lookback never allocate after construction.
package ringbuf

// History keeps the most recent Cap() values of T.
// Capacity is rounded up to a power of two for fast bitwise modulo; the
// requested size is kept as the logical window.
type History[T any] struct {
	buf  []T
	mask uint64
	size int    // logical window
	head uint64 // total pushes
}

// New creates a history holding the last size values. Minimum size is 1.
func New[T any](size int) *History[T] {
	if size < 1 {
		size = 1
	}
	c := nextPow2(size)
	return &History[T]{
		buf:  make([]T, c),
		mask: uint64(c - 1),
		size: size,
	}
}

// Push appends v, evicting the oldest value once the window is full.
// It returns the evicted value and whether one was evicted.
func (h *History[T]) Push(v T) (T, bool) {
	var evicted T
	full := h.Len() == h.size
	if full {
		evicted = h.buf[(h.head-uint64(h.size))&h.mask]
	}
	h.buf[h.head&h.mask] = v
	h.head++
	return evicted, full
}

// Ago returns the value pushed n pushes before the newest (0 = newest).
// ok is false when the history does not reach that far back.
func (h *History[T]) Ago(n int) (T, bool) {
	var zero T
	if n < 0 || n >= h.Len() {
		return zero, false
	}
	return h.buf[(h.head-1-uint64(n))&h.mask], true
}

// Oldest returns the oldest value still inside the window.
func (h *History[T]) Oldest() (T, bool) {
	return h.Ago(h.Len() - 1)
}

// Len returns the number of values currently held.
func (h *History[T]) Len() int {
	if h.head < uint64(h.size) {
		return int(h.head)
	}
	return h.size
}

// Cap returns the logical window size.
func (h *History[T]) Cap() int {
	return h.size
}

// Full reports whether the window has been filled.
func (h *History[T]) Full() bool {
	return h.Len() == h.size
}

// Count returns the total number of values ever pushed.
func (h *History[T]) Count() uint64 {
	return h.head
}

// Reset empties the history without releasing its storage.
func (h *History[T]) Reset() {
	var zero T
	for i := range h.buf {
		h.buf[i] = zero
	}
	h.head = 0
}

// nextPow2 returns the smallest power of 2 >= n.
func nextPow2(n int) int {
	if n <= 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}
