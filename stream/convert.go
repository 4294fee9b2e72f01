package stream

import (
	"context"
	"sync/atomic"

	rxerrors "github.com/kbukum/rxkit/errors"
)

// ToFuture subscribes to s and returns a future for its first value. The
// subscription is disposed as soon as the value arrives. A stream that
// completes empty rejects the future with NO_ELEMENTS.
func ToFuture[T any](s *Stream[T]) *Future[T] {
	f, _ := toFuture(s)
	return f
}

func toFuture[T any](s *Stream[T]) (*Future[T], *Box) {
	f := NewFuture[T]()
	var ref atomic.Pointer[Box]
	box := Subscribe[T](s, ObserverFuncs[T]{
		Next: func(v T) {
			f.Resolve(v)
			if b := ref.Load(); b != nil {
				b.Dispose()
			}
		},
		Error:     f.Reject,
		Completed: func() { f.Reject(rxerrors.NoElements()) },
	})
	ref.Store(box)
	if f.IsCompleted() {
		box.Dispose()
	}
	return f, box
}

// Await subscribes to s and blocks for its first value. Cancelling ctx
// disposes the subscription and returns ctx.Err().
func Await[T any](ctx context.Context, s *Stream[T]) (T, error) {
	f, box := toFuture(s)
	v, err := f.Wait(ctx)
	if err != nil && ctx.Err() != nil {
		box.Dispose()
	}
	return v, err
}

// ToSlice subscribes to s and blocks until it terminates, returning every
// value received. Cancelling ctx disposes the subscription.
func ToSlice[T any](ctx context.Context, s *Stream[T]) ([]T, error) {
	list, box := toFuture(ToList(s))
	items, err := list.Wait(ctx)
	if err != nil && ctx.Err() != nil {
		box.Dispose()
	}
	return items, err
}
