package storage

// ring is a fixed-capacity FIFO. Pushing into a full ring overwrites the
// oldest entry. It is not synchronized; callers hold their own lock.
type ring[T any] struct {
	entries []T
	head    int
	count   int
}

func newRing[T any](capacity int) *ring[T] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &ring[T]{entries: make([]T, capacity)}
}

func (r *ring[T]) push(v T) {
	r.entries[r.head] = v
	r.head = (r.head + 1) % len(r.entries)
	if r.count < len(r.entries) {
		r.count++
	}
}

// last returns the newest n entries, oldest first.
func (r *ring[T]) last(n int) []T {
	if n > r.count {
		n = r.count
	}
	if n <= 0 {
		return []T{}
	}
	out := make([]T, n)
	start := (r.head - n + len(r.entries)) % len(r.entries)
	for i := 0; i < n; i++ {
		out[i] = r.entries[(start+i)%len(r.entries)]
	}
	return out
}

func (r *ring[T]) all() []T {
	return r.last(r.count)
}

func (r *ring[T]) len() int {
	return r.count
}

func (r *ring[T]) capacity() int {
	return len(r.entries)
}
