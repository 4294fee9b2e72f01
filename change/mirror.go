package change

import "sync"

// Mirror materialises a stream of events into a list. It satisfies the
// stream observer contract structurally, so it can be subscribed directly
// to any change stream. A Mirror is safe for concurrent reads while events
// are being applied.
type Mirror[T any] struct {
	mu        sync.RWMutex
	items     []T
	events    int
	err       error
	completed bool
}

// NewMirror creates an empty mirror.
func NewMirror[T any]() *Mirror[T] {
	return &Mirror[T]{}
}

// OnNext applies e. The first invalid event is recorded as the mirror's error
// and later events are ignored.
func (m *Mirror[T]) OnNext(e Event[T]) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return
	}
	m.events++
	m.items, m.err = Apply(m.items, e)
}

// OnError records the upstream failure.
func (m *Mirror[T]) OnError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err == nil {
		m.err = err
	}
}

// OnCompleted marks the mirror as complete.
func (m *Mirror[T]) OnCompleted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completed = true
}

// Items returns a copy of the current list.
func (m *Mirror[T]) Items() []T {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]T, len(m.items))
	copy(out, m.items)
	return out
}

// Len returns the current list length.
func (m *Mirror[T]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

// EventCount returns how many events have been applied.
func (m *Mirror[T]) EventCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.events
}

// Err returns the first upstream or apply error.
func (m *Mirror[T]) Err() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.err
}

// Completed reports whether OnCompleted has been received.
func (m *Mirror[T]) Completed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.completed
}
