package stream

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// ThrottleOption configures Throttle.
type ThrottleOption func(*throttleOptions)

type throttleOptions struct {
	clock clockwork.Clock
}

// WithClock drives the quiet period from clock instead of the real clock.
func WithClock(clock clockwork.Clock) ThrottleOption {
	return func(o *throttleOptions) { o.clock = clock }
}

// Throttle forwards a value only after quiet has elapsed without a newer
// one. Completion flushes the pending value first; an error discards it.
func Throttle[T any](s *Stream[T], quiet time.Duration, opts ...ThrottleOption) *Stream[T] {
	o := throttleOptions{clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(&o)
	}
	return Pipe(s, OperatorFunc[T, T](func(next Stage[T]) Stage[T] {
		return &throttleStage[T]{Link: Link[T]{Next: next}, clock: o.clock, quiet: quiet}
	}))
}

type throttleStage[T any] struct {
	Link[T]
	clock   clockwork.Clock
	quiet   time.Duration
	timer   clockwork.Timer
	latest  T
	pending bool
	gen     uint64
	done    bool
}

func (s *throttleStage[T]) OnNext(value T) {
	if s.done {
		return
	}
	s.latest, s.pending = value, true
	s.gen++
	s.stopTimer()
	gen, box := s.gen, s.Box()
	s.timer = s.clock.AfterFunc(s.quiet, func() {
		box.Post(func() { s.fire(gen) })
	})
}

func (s *throttleStage[T]) fire(gen uint64) {
	if gen != s.gen || !s.pending || s.done {
		return
	}
	s.timer = nil
	s.emit()
}

func (s *throttleStage[T]) emit() {
	v := s.latest
	var zero T
	s.latest, s.pending = zero, false
	s.Next.OnNext(v)
}

func (s *throttleStage[T]) OnCompleted() {
	if s.done {
		return
	}
	s.done = true
	s.stopTimer()
	if s.pending {
		s.emit()
	}
	s.Next.OnCompleted()
}

func (s *throttleStage[T]) OnError(err error) {
	if s.done {
		dropped(s.Box(), err)
		return
	}
	s.done = true
	s.stopTimer()
	var zero T
	s.latest, s.pending = zero, false
	s.Next.OnError(err)
}

func (s *throttleStage[T]) stopTimer() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// Dispose stops the pending timer.
func (s *throttleStage[T]) Dispose() {
	s.stopTimer()
	s.Next.Dispose()
}

func (s *throttleStage[T]) Reference() Reference { return s }
