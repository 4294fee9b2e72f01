package stream

import (
	"context"
	"sync"
)

// FromSlice emits items in order and completes. Emission stops early when
// the subscription ends.
func FromSlice[T any](items []T) *Stream[T] {
	return From[T](ObservableFunc[T](func(o Observer[T]) Disposable {
		for _, v := range items {
			if isStopped(o) {
				return Nop
			}
			o.OnNext(v)
		}
		if !isStopped(o) {
			o.OnCompleted()
		}
		return Nop
	}))
}

// Just emits the given values and completes.
func Just[T any](values ...T) *Stream[T] {
	return FromSlice(values)
}

// Empty completes without emitting.
func Empty[T any]() *Stream[T] {
	return From[T](ObservableFunc[T](func(o Observer[T]) Disposable {
		o.OnCompleted()
		return Nop
	}))
}

// Never emits nothing and never terminates.
func Never[T any]() *Stream[T] {
	return From[T](ObservableFunc[T](func(Observer[T]) Disposable { return Nop }))
}

// Fail terminates immediately with err.
func Fail[T any](err error) *Stream[T] {
	return From[T](ObservableFunc[T](func(o Observer[T]) Disposable {
		o.OnError(err)
		return Nop
	}))
}

// FromChan emits the values received from ch on a dedicated goroutine and
// completes when ch is closed. Cancelling ctx terminates the stream with
// ctx.Err(); disposing the subscription stops the goroutine.
func FromChan[T any](ctx context.Context, ch <-chan T) *Stream[T] {
	return From[T](ObservableFunc[T](func(o Observer[T]) Disposable {
		stop := make(chan struct{})
		var once sync.Once
		go func() {
			for {
				select {
				case <-stop:
					return
				case <-ctx.Done():
					o.OnError(ctx.Err())
					return
				case v, ok := <-ch:
					if !ok {
						o.OnCompleted()
						return
					}
					o.OnNext(v)
				}
			}
		}()
		return DisposableFunc(func() { once.Do(func() { close(stop) }) })
	}))
}

// Subject is a hot source that multicasts to its current observers. After
// a terminal signal, late subscribers receive that signal immediately.
type Subject[T any] struct {
	mu        sync.Mutex
	observers map[uint64]Observer[T]
	nextID    uint64
	done      bool
	err       error
}

// NewSubject creates a subject with no observers.
func NewSubject[T any]() *Subject[T] {
	return &Subject[T]{observers: make(map[uint64]Observer[T])}
}

// Stream returns the subject as a stream.
func (s *Subject[T]) Stream() *Stream[T] { return From[T](s) }

// Subscribe registers observer until the returned handle is disposed.
func (s *Subject[T]) Subscribe(observer Observer[T]) Disposable {
	s.mu.Lock()
	if s.done {
		err := s.err
		s.mu.Unlock()
		if err != nil {
			observer.OnError(err)
		} else {
			observer.OnCompleted()
		}
		return Nop
	}
	id := s.nextID
	s.nextID++
	s.observers[id] = observer
	s.mu.Unlock()

	return DisposableFunc(func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	})
}

// HasObservers reports whether any observer is subscribed.
func (s *Subject[T]) HasObservers() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.observers) > 0
}

func (s *Subject[T]) snapshot() []Observer[T] {
	out := make([]Observer[T], 0, len(s.observers))
	for _, o := range s.observers {
		out = append(out, o)
	}
	return out
}

// OnNext delivers value to every current observer.
func (s *Subject[T]) OnNext(value T) {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return
	}
	obs := s.snapshot()
	s.mu.Unlock()
	for _, o := range obs {
		o.OnNext(value)
	}
}

// OnError terminates the subject with err.
func (s *Subject[T]) OnError(err error) {
	for _, o := range s.finish(err) {
		o.OnError(err)
	}
}

// OnCompleted terminates the subject.
func (s *Subject[T]) OnCompleted() {
	for _, o := range s.finish(nil) {
		o.OnCompleted()
	}
}

func (s *Subject[T]) finish(err error) []Observer[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return nil
	}
	s.done, s.err = true, err
	obs := s.snapshot()
	clear(s.observers)
	return obs
}
