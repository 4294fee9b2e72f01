package stream

import (
	"context"
	"sync"

	rxerrors "github.com/kbukum/rxkit/errors"
)

// Awaiter is a handle on an asynchronous operation. OnCompleted registers
// a continuation that runs once the operation finishes, possibly on another
// goroutine, or immediately if it already has. GetResult must only be
// called after completion.
type Awaiter[T any] interface {
	IsCompleted() bool
	OnCompleted(continuation func())
	GetResult() (T, error)
}

// Future is an Awaiter completed by Resolve or Reject. The zero value is
// not usable; create one with NewFuture.
type Future[T any] struct {
	mu     sync.Mutex
	done   chan struct{}
	value  T
	err    error
	conts  []func()
	closed bool
}

// NewFuture creates an incomplete future.
func NewFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Completed returns a future already resolved with value.
func Completed[T any](value T) *Future[T] {
	f := NewFuture[T]()
	f.Resolve(value)
	return f
}

// Failed returns a future already rejected with err.
func Failed[T any](err error) *Future[T] {
	f := NewFuture[T]()
	f.Reject(err)
	return f
}

// Go runs fn on a new goroutine and returns its future.
func Go[T any](ctx context.Context, fn func(context.Context) (T, error)) *Future[T] {
	f := NewFuture[T]()
	go func() {
		var (
			v   T
			err error
		)
		func() {
			defer recoverInto("go", &err)
			v, err = fn(ctx)
		}()
		f.complete(v, err)
	}()
	return f
}

// FromChannel returns a future resolved with the first value received from
// ch, or rejected with NO_ELEMENTS if ch is closed first.
func FromChannel[T any](ch <-chan T) *Future[T] {
	f := NewFuture[T]()
	go func() {
		v, ok := <-ch
		if !ok {
			f.Reject(rxerrors.NoElements())
			return
		}
		f.Resolve(v)
	}()
	return f
}

// Resolve completes the future with value. Later calls are ignored.
func (f *Future[T]) Resolve(value T) { f.complete(value, nil) }

// Reject completes the future with err. Later calls are ignored.
func (f *Future[T]) Reject(err error) {
	var zero T
	f.complete(zero, err)
}

func (f *Future[T]) complete(value T, err error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	f.value, f.err = value, err
	conts := f.conts
	f.conts = nil
	close(f.done)
	f.mu.Unlock()

	for _, c := range conts {
		c()
	}
}

// IsCompleted reports whether the future has a result.
func (f *Future[T]) IsCompleted() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// OnCompleted runs continuation once the future completes.
func (f *Future[T]) OnCompleted(continuation func()) {
	f.mu.Lock()
	if !f.closed {
		f.conts = append(f.conts, continuation)
		f.mu.Unlock()
		return
	}
	f.mu.Unlock()
	continuation()
}

// GetResult returns the outcome. Before completion it returns an
// INTERNAL_ERROR.
func (f *Future[T]) GetResult() (T, error) {
	if !f.IsCompleted() {
		var zero T
		return zero, rxerrors.New(rxerrors.ErrCodeInternal, "result requested before completion")
	}
	return f.value, f.err
}

// Done is closed when the future completes.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Wait blocks until the future completes or ctx ends.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Executor runs continuations on a particular execution context.
type Executor interface {
	Execute(fn func())
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(fn func())

// Execute calls f.
func (f ExecutorFunc) Execute(fn func()) { f(fn) }

type inlineExecutor struct{}

func (inlineExecutor) Execute(fn func()) { fn() }

// AwaitOption configures FilterAwait and TransformAwait.
type AwaitOption func(*awaitOptions)

type awaitOptions struct {
	exec Executor
}

// WithExecutor resumes the stream on exec after each asynchronous result,
// instead of on whichever goroutine completed the operation.
func WithExecutor(exec Executor) AwaitOption {
	return func(o *awaitOptions) { o.exec = exec }
}

func applyAwaitOptions(opts []AwaitOption) awaitOptions {
	o := awaitOptions{exec: inlineExecutor{}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// FilterAwait keeps the values whose asynchronous predicate resolves true.
// At most one predicate may be pending: a value arriving while one is
// outstanding fails the stream with OVERLAPPING_NOTIFICATION. Completion is
// deferred until the pending predicate resolves; errors are not.
func FilterAwait[T any](s *Stream[T], pred func(T) Awaiter[bool], opts ...AwaitOption) *Stream[T] {
	o := applyAwaitOptions(opts)
	return Pipe(s, OperatorFunc[T, T](func(next Stage[T]) Stage[T] {
		return &awaitStage[T, bool, T]{
			Link:  Link[T]{Next: next},
			name:  "filter_await",
			start: pred,
			finish: func(v T, keep bool) (T, bool) {
				return v, keep
			},
			exec: o.exec,
		}
	}))
}

// TransformAwait maps each value through an asynchronous selector, with the
// same overlap and completion rules as FilterAwait.
func TransformAwait[T, U any](s *Stream[T], sel func(T) Awaiter[U], opts ...AwaitOption) *Stream[U] {
	o := applyAwaitOptions(opts)
	return Pipe(s, OperatorFunc[T, U](func(next Stage[U]) Stage[T] {
		return &awaitStage[T, U, U]{
			Link:   Link[U]{Next: next},
			name:   "transform_await",
			start:  sel,
			finish: func(_ T, u U) (U, bool) { return u, true },
			exec:   o.exec,
		}
	}))
}

type awaitStage[T, R, U any] struct {
	Link[U]
	name          string
	start         func(T) Awaiter[R]
	finish        func(T, R) (U, bool)
	exec          Executor
	pending       bool
	completeAfter bool
	done          bool
}

func (s *awaitStage[T, R, U]) OnNext(value T) {
	if s.done {
		return
	}
	if s.pending {
		s.fail(rxerrors.OverlappingNotification(s.name))
		return
	}
	aw, err := call1(s.name, func(v T) (Awaiter[R], error) { return s.start(v), nil }, value)
	if err == nil && aw == nil {
		err = rxerrors.New(rxerrors.ErrCodeCallbackFailed, s.name+" callback returned a nil awaiter")
	}
	if err != nil {
		s.fail(err)
		return
	}
	if aw.IsCompleted() {
		s.resume(value, aw)
		return
	}
	s.pending = true
	box := s.Box()
	aw.OnCompleted(func() {
		s.exec.Execute(func() {
			box.Post(func() { s.resume(value, aw) })
		})
	})
}

func (s *awaitStage[T, R, U]) resume(value T, aw Awaiter[R]) {
	s.pending = false
	if s.done {
		return
	}
	r, err := awaitResult(s.name, aw)
	if err != nil {
		s.fail(err)
		return
	}
	if out, ok := s.finish(value, r); ok {
		s.Next.OnNext(out)
	}
	if s.completeAfter && !s.done {
		s.done = true
		s.Next.OnCompleted()
	}
}

// awaitResult reads a completed awaiter. Foreign awaiters may panic.
func awaitResult[R any](op string, aw Awaiter[R]) (r R, err error) {
	defer recoverInto(op, &err)
	r, err = aw.GetResult()
	return r, callbackError(op, err)
}

func (s *awaitStage[T, R, U]) fail(err error) {
	s.done = true
	s.Next.OnError(err)
}

func (s *awaitStage[T, R, U]) OnError(err error) {
	if s.done {
		dropped(s.Box(), err)
		return
	}
	s.fail(err)
}

func (s *awaitStage[T, R, U]) OnCompleted() {
	if s.done {
		return
	}
	if s.pending {
		s.completeAfter = true
		return
	}
	s.done = true
	s.Next.OnCompleted()
}
