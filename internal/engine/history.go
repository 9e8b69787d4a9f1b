package engine

import "sync"

// Log is a bounded, newest-first record log. Pushing beyond capacity evicts
// the oldest entry. Safe for concurrent use.
type Log[T any] struct {
	mu    sync.Mutex
	cap   int
	items []T
}

func NewLog[T any](capacity int) *Log[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Log[T]{cap: capacity}
}

// Push prepends v, evicting the oldest entry past capacity.
func (l *Log[T]) Push(v T) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.items = append([]T{v}, l.items...)
	if len(l.items) > l.cap {
		l.items = l.items[:l.cap]
	}
}

// Snapshot returns a copy of the current entries, newest first. The result is
// never nil so it serializes as a JSON array.
func (l *Log[T]) Snapshot() []T {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]T, len(l.items))
	copy(out, l.items)
	return out
}

// Clear empties the log.
func (l *Log[T]) Clear() {
	l.mu.Lock()
	l.items = nil
	l.mu.Unlock()
}

// Len returns the number of entries.
func (l *Log[T]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}
