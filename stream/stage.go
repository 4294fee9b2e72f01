package stream

import (
	"github.com/kbukum/rxkit/logger"
)

// Reference is a type-erased handle on a stage. It lets a box or another
// stage retain and dispose a stage without knowing its value type.
type Reference interface {
	Box() *Box
	Dispose()
}

// Stage is one link of a subscription's chain. Initialize runs once, from
// the source end towards the subscriber, before the source is subscribed.
// Dispose runs once when the owning box is released.
type Stage[T any] interface {
	Observer[T]
	Initialize(box *Box)
	Dispose()
	Box() *Box
	Reference() Reference
}

// Link holds the continuation of a stage and forwards everything it is
// not asked to intercept. Stages embed it and override what they need.
type Link[T any] struct {
	Next Stage[T]
	box  *Box
}

// Initialize records the owning box and initialises the continuation.
func (l *Link[T]) Initialize(box *Box) {
	l.box = box
	l.Next.Initialize(box)
}

// Box returns the owning box. It is nil before Initialize.
func (l *Link[T]) Box() *Box { return l.box }

// Dispose disposes the continuation.
func (l *Link[T]) Dispose() { l.Next.Dispose() }

// Reference returns l itself.
func (l *Link[T]) Reference() Reference { return l }

func (l *Link[T]) OnError(err error) { l.Next.OnError(err) }

func (l *Link[T]) OnCompleted() { l.Next.OnCompleted() }

// Operator turns the continuation stage for its output into the stage that
// consumes its input. Build runs once per subscription.
type Operator[In, Out any] interface {
	Build(next Stage[Out]) Stage[In]
}

// OperatorFunc adapts a function to Operator.
type OperatorFunc[In, Out any] func(next Stage[Out]) Stage[In]

// Build calls f.
func (f OperatorFunc[In, Out]) Build(next Stage[Out]) Stage[In] { return f(next) }

// attacher is the source end of a built chain.
type attacher interface {
	attach() *Box
}

// Stream is a cold, composable description of a pipeline. Nothing runs
// until Subscribe; each subscription builds its own chain and box.
type Stream[T any] struct {
	build func(next Stage[T]) attacher
}

// From wraps any observable source.
func From[T any](source Observable[T]) *Stream[T] {
	if s, ok := source.(*Stream[T]); ok {
		return s
	}
	return &Stream[T]{build: func(next Stage[T]) attacher {
		return &subscribeStage[T]{source: source, next: next}
	}}
}

// Pipe appends op to s.
func Pipe[In, Out any](s *Stream[In], op Operator[In, Out]) *Stream[Out] {
	return &Stream[Out]{build: func(next Stage[Out]) attacher {
		return s.build(op.Build(next))
	}}
}

// Subscribe attaches observer and returns the subscription's box.
func (s *Stream[T]) Subscribe(observer Observer[T]) Disposable {
	return Subscribe(s, observer)
}

// Subscribe attaches observer to s and returns the subscription's box.
func Subscribe[T any](s *Stream[T], observer Observer[T]) *Box {
	return s.build(&sinkStage[T]{observer: observer}).attach()
}

// SubscribeFuncs attaches plain callbacks to s. Nil callbacks are ignored.
func SubscribeFuncs[T any](s *Stream[T], onNext func(T), onError func(error), onCompleted func()) *Box {
	return Subscribe[T](s, ObserverFuncs[T]{Next: onNext, Error: onError, Completed: onCompleted})
}

// subscribeStage is the source end of every chain. It owns the box while
// the chain is being attached and funnels source notifications through
// the box's gate.
type subscribeStage[T any] struct {
	source Observable[T]
	next   Stage[T]
	box    *Box
}

func (s *subscribeStage[T]) attach() *Box {
	b := newBox()
	s.box = b
	b.setChain(s.next.Reference())
	s.next.Initialize(b)
	b.setUpstream(s.source.Subscribe(s))
	b.drain()
	return b
}

// stopped lets synchronous sources end their loop early.
func (s *subscribeStage[T]) stopped() bool { return !s.box.IsActive() }

func (s *subscribeStage[T]) OnNext(value T) {
	b := s.box
	if b.enter() {
		defer b.exit()
		if b.IsActive() {
			s.next.OnNext(value)
		}
		return
	}
	b.Post(func() { s.next.OnNext(value) })
}

func (s *subscribeStage[T]) OnError(err error) {
	b := s.box
	if b.enter() {
		defer b.exit()
		if b.IsActive() {
			s.next.OnError(err)
		} else {
			dropped(b, err)
		}
		return
	}
	b.Post(func() { s.next.OnError(err) })
}

func (s *subscribeStage[T]) OnCompleted() {
	b := s.box
	if b.enter() {
		defer b.exit()
		if b.IsActive() {
			s.next.OnCompleted()
		}
		return
	}
	b.Post(s.next.OnCompleted)
}

// stopper is implemented by observers that synchronous sources should poll.
type stopper interface {
	stopped() bool
}

// isStopped reports whether a synchronous source may stop emitting to o.
func isStopped[T any](o Observer[T]) bool {
	st, ok := o.(stopper)
	return ok && st.stopped()
}

// sinkStage is the subscriber end of every chain. It performs the single
// terminal transition of the box.
type sinkStage[T any] struct {
	observer Observer[T]
	box      *Box
}

func (s *sinkStage[T]) Initialize(box *Box) { s.box = box }
func (s *sinkStage[T]) Box() *Box           { return s.box }
func (s *sinkStage[T]) Dispose()            {}
func (s *sinkStage[T]) Reference() Reference {
	return s
}

func (s *sinkStage[T]) OnNext(value T) {
	if s.box.IsActive() {
		s.observer.OnNext(value)
	}
}

func (s *sinkStage[T]) OnError(err error) {
	if s.box.terminate(StateFaulted) {
		s.observer.OnError(err)
		return
	}
	dropped(s.box, err)
}

func (s *sinkStage[T]) OnCompleted() {
	if s.box.terminate(StateCompleted) {
		s.observer.OnCompleted()
	}
}

// dropped logs an error that arrived after the subscription had ended.
func dropped(b *Box, err error) {
	log().Debug("error after termination dropped", logger.Fields(
		logger.FieldSubscription, b.ID().String(),
		logger.FieldState, b.State().String(),
		logger.FieldError, err.Error(),
	))
}
