package guild

// Ring is a fixed-capacity ring buffer that overwrites its oldest entry
// once full. Fields are exported so the buffer survives the aggregate's
// JSON round trip through the document store.
type Ring[T any] struct {
	Capacity int `json:"capacity"`
	Items    []T `json:"items"`
	Head     int `json:"head"` // index of the oldest entry once full
}

// NewRing creates a ring buffer holding at most capacity entries.
func NewRing[T any](capacity int) Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return Ring[T]{Capacity: capacity}
}

// Push appends v, evicting the oldest entry if the buffer is full.
func (r *Ring[T]) Push(v T) {
	if r.Capacity < 1 {
		r.Capacity = 1
	}
	if len(r.Items) < r.Capacity {
		r.Items = append(r.Items, v)
		return
	}
	r.Items[r.Head] = v
	r.Head = (r.Head + 1) % r.Capacity
}

// Len returns the number of stored entries.
func (r *Ring[T]) Len() int {
	return len(r.Items)
}

// List returns the entries in insertion order, oldest first.
func (r *Ring[T]) List() []T {
	out := make([]T, 0, len(r.Items))
	for i := 0; i < len(r.Items); i++ {
		out = append(out, r.Items[(r.Head+i)%len(r.Items)])
	}
	return out
}

// ListNewestFirst returns the entries newest first.
func (r *Ring[T]) ListNewestFirst() []T {
	ordered := r.List()
	for i, j := 0, len(ordered)-1; i < j; i, j = i+1, j-1 {
		ordered[i], ordered[j] = ordered[j], ordered[i]
	}
	return ordered
}
