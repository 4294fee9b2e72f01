package view

import (
	"sync"

	"github.com/kbukum/rxkit/change"
	rxerrors "github.com/kbukum/rxkit/errors"
	"github.com/kbukum/rxkit/stream"
)

// List is a mutable list that publishes its edits as a change stream. A new
// subscriber first receives the current contents as Add events.
//
// Observers are called with the list's lock held: they must not mutate the
// list they are observing. They may unsubscribe.
type List[T any] struct {
	mu        sync.Mutex
	items     []T
	completed bool

	obsMu     sync.Mutex
	observers map[uint64]stream.Observer[change.Event[T]]
	nextID    uint64
}

// NewList creates a list holding items.
func NewList[T any](items ...T) *List[T] {
	return &List[T]{
		items:     append([]T(nil), items...),
		observers: make(map[uint64]stream.Observer[change.Event[T]]),
	}
}

// Changes returns the list's change stream.
func (l *List[T]) Changes() *stream.Stream[change.Event[T]] {
	return stream.From[change.Event[T]](l)
}

// Subscribe replays the contents to observer and registers it for later edits.
func (l *List[T]) Subscribe(observer stream.Observer[change.Event[T]]) stream.Disposable {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, v := range l.items {
		observer.OnNext(change.Add(i, v))
	}
	if l.completed {
		observer.OnCompleted()
		return stream.Nop
	}
	l.obsMu.Lock()
	id := l.nextID
	l.nextID++
	l.observers[id] = observer
	l.obsMu.Unlock()
	return stream.DisposableFunc(func() {
		l.obsMu.Lock()
		delete(l.observers, id)
		l.obsMu.Unlock()
	})
}

func (l *List[T]) snapshotObservers(clearAll bool) []stream.Observer[change.Event[T]] {
	l.obsMu.Lock()
	defer l.obsMu.Unlock()
	out := make([]stream.Observer[change.Event[T]], 0, len(l.observers))
	for _, o := range l.observers {
		out = append(out, o)
	}
	if clearAll {
		clear(l.observers)
	}
	return out
}

func (l *List[T]) publish(e change.Event[T]) {
	for _, o := range l.snapshotObservers(false) {
		o.OnNext(e)
	}
}

// Len returns the number of items.
func (l *List[T]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

// Snapshot returns a copy of the items.
func (l *List[T]) Snapshot() []T {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]T(nil), l.items...)
}

// Append adds v at the end.
func (l *List[T]) Append(v T) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.apply(change.Add(len(l.items), v))
}

// Insert adds v at index.
func (l *List[T]) Insert(index int, v T) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.apply(change.Add(index, v))
}

// RemoveAt removes the item at index.
func (l *List[T]) RemoveAt(index int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if index < 0 || index >= len(l.items) {
		return rxerrors.IndexOutOfRange(index, len(l.items))
	}
	return l.apply(change.Remove(index, l.items[index]))
}

// Set replaces the item at index.
func (l *List[T]) Set(index int, v T) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if index < 0 || index >= len(l.items) {
		return rxerrors.IndexOutOfRange(index, len(l.items))
	}
	return l.apply(change.Replace(index, l.items[index], v))
}

// Reset replaces the whole contents: one Reset event followed by an Add per item.
func (l *List[T]) Reset(items ...T) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.apply(change.Reset[T]())
	for _, v := range items {
		l.apply(change.Add(len(l.items), v))
	}
}

// Complete ends the change stream for every observer.
func (l *List[T]) Complete() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.completed {
		return
	}
	l.completed = true
	for _, o := range l.snapshotObservers(true) {
		o.OnCompleted()
	}
}

// apply must be called with l.mu held.
func (l *List[T]) apply(e change.Event[T]) error {
	if l.completed {
		return rxerrors.Disposed("list")
	}
	items, err := change.Apply(l.items, e)
	if err != nil {
		return err
	}
	l.items = items
	l.publish(e)
	return nil
}
