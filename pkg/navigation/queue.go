// Package navigation provides ordered forward/backward traversal over a fixed list.
package navigation

// Queue splits a fixed list into pending and visited items.
// The current item is the tail of visited, so len(pending)+len(visited)
// always equals the length of the list the queue was created with.
type Queue[T any] struct {
	pending []T
	visited []T
}

// New creates a queue with every item pending
func New[T any](items []T) *Queue[T] {
	pending := make([]T, len(items))
	copy(pending, items)
	return &Queue[T]{pending: pending}
}

// Advance moves the head of pending onto visited and returns it as the new current item.
// It returns false once pending is empty, leaving the queue unchanged.
func (q *Queue[T]) Advance() (T, bool) {
	if len(q.pending) == 0 {
		var zero T
		return zero, false
	}
	next := q.pending[0]
	q.pending = q.pending[1:]
	q.visited = append(q.visited, next)
	return next, true
}

// Retreat moves the current item back to the head of pending and returns the restored item.
// It returns false when no item was visited before the current one.
func (q *Queue[T]) Retreat() (T, bool) {
	if len(q.visited) < 2 {
		var zero T
		return zero, false
	}
	last := len(q.visited) - 1
	current := q.visited[last]
	q.visited = q.visited[:last]

	pending := make([]T, 0, len(q.pending)+1)
	pending = append(pending, current)
	q.pending = append(pending, q.pending...)

	return q.visited[last-1], true
}

// Current returns the item being viewed, if any
func (q *Queue[T]) Current() (T, bool) {
	if len(q.visited) == 0 {
		var zero T
		return zero, false
	}
	return q.visited[len(q.visited)-1], true
}

// Pending returns a copy of the items not yet visited, next first
func (q *Queue[T]) Pending() []T {
	out := make([]T, len(q.pending))
	copy(out, q.pending)
	return out
}

// Visited returns a copy of the visited items, current last
func (q *Queue[T]) Visited() []T {
	out := make([]T, len(q.visited))
	copy(out, q.visited)
	return out
}

// Position returns the number of items visited before the current one
func (q *Queue[T]) Position() int {
	if len(q.visited) == 0 {
		return 0
	}
	return len(q.visited) - 1
}

// Len returns the size of the fixed list
func (q *Queue[T]) Len() int {
	return len(q.pending) + len(q.visited)
}
