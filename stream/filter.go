package stream

import (
	"math"

	rxerrors "github.com/kbukum/rxkit/errors"
)

// Verdict is a predicate's decision about one value.
type Verdict uint8

const (
	// Drop discards the value.
	Drop Verdict = iota
	// Keep forwards the value.
	Keep
	// KeepAndComplete forwards the value, then completes the stream.
	KeepAndComplete
	// Complete discards the value and completes the stream.
	Complete
)

func (v Verdict) String() string {
	switch v {
	case Drop:
		return "drop"
	case Keep:
		return "keep"
	case KeepAndComplete:
		return "keep_and_complete"
	case Complete:
		return "complete"
	default:
		return "unknown"
	}
}

// Predicate decides the fate of each value. A predicate instance serves a
// single subscription and may keep state.
type Predicate[T any] interface {
	Evaluate(value T) (Verdict, error)
}

// PredicateFunc adapts a function to Predicate.
type PredicateFunc[T any] func(value T) (Verdict, error)

// Evaluate calls f.
func (f PredicateFunc[T]) Evaluate(value T) (Verdict, error) { return f(value) }

// Filter returns the operator driven by a fresh predicate per subscription.
// A predicate error or panic terminates the stream with that error.
func Filter[T any](name string, newPredicate func() Predicate[T]) Operator[T, T] {
	return OperatorFunc[T, T](func(next Stage[T]) Stage[T] {
		return &filterStage[T]{Link: Link[T]{Next: next}, name: name, pred: newPredicate()}
	})
}

type filterStage[T any] struct {
	Link[T]
	name string
	pred Predicate[T]
	done bool
}

func (s *filterStage[T]) OnNext(value T) {
	if s.done {
		return
	}
	verdict, err := s.evaluate(value)
	if err != nil {
		s.done = true
		s.Next.OnError(err)
		return
	}
	switch verdict {
	case Keep:
		s.Next.OnNext(value)
	case KeepAndComplete:
		s.done = true
		s.Next.OnNext(value)
		s.Next.OnCompleted()
	case Complete:
		s.done = true
		s.Next.OnCompleted()
	}
}

func (s *filterStage[T]) evaluate(value T) (verdict Verdict, err error) {
	defer recoverInto(s.name, &err)
	verdict, err = s.pred.Evaluate(value)
	return verdict, callbackError(s.name, err)
}

func (s *filterStage[T]) OnError(err error) {
	if s.done {
		dropped(s.Box(), err)
		return
	}
	s.done = true
	s.Next.OnError(err)
}

func (s *filterStage[T]) OnCompleted() {
	if s.done {
		return
	}
	s.done = true
	s.Next.OnCompleted()
}

// Where keeps the values for which keep returns true.
func Where[T any](s *Stream[T], keep func(T) bool) *Stream[T] {
	return Pipe(s, Filter("where", func() Predicate[T] {
		return PredicateFunc[T](func(v T) (Verdict, error) {
			if keep(v) {
				return Keep, nil
			}
			return Drop, nil
		})
	}))
}

// WhereIndexed is Where with the 0-based position of each upstream value.
func WhereIndexed[T any](s *Stream[T], keep func(T, int) bool) *Stream[T] {
	return Pipe(s, Filter("where", func() Predicate[T] {
		p := &indexCounter{op: "where"}
		return PredicateFunc[T](func(v T) (Verdict, error) {
			i, err := p.next()
			if err != nil {
				return Drop, err
			}
			if keep(v, i) {
				return Keep, nil
			}
			return Drop, nil
		})
	}))
}

// indexCounter counts positions with overflow detection.
type indexCounter struct {
	op string
	n  int
}

func (p *indexCounter) next() (int, error) {
	if p.n == math.MaxInt {
		return 0, rxerrors.CounterOverflow(p.op)
	}
	i := p.n
	p.n++
	return i, nil
}

type skipPredicate[T any] struct {
	count uint64
	seen  uint64
}

func (p *skipPredicate[T]) Evaluate(T) (Verdict, error) {
	if p.seen >= p.count {
		return Keep, nil
	}
	var ok bool
	if p.seen, ok = checkedInc(p.seen); !ok {
		return Drop, rxerrors.CounterOverflow("skip")
	}
	return Drop, nil
}

// Skip drops the first count values.
func Skip[T any](s *Stream[T], count uint64) *Stream[T] {
	if count == 0 {
		return s
	}
	return Pipe(s, Filter("skip", func() Predicate[T] {
		return &skipPredicate[T]{count: count}
	}))
}

type takePredicate[T any] struct {
	count uint64
	taken uint64
}

func (p *takePredicate[T]) Evaluate(T) (Verdict, error) {
	var ok bool
	if p.taken, ok = checkedInc(p.taken); !ok {
		return Drop, rxerrors.CounterOverflow("take")
	}
	if p.taken >= p.count {
		return KeepAndComplete, nil
	}
	return Keep, nil
}

// Take forwards the first count values, then completes and releases the
// upstream subscription. Take(0) completes without subscribing upstream.
func Take[T any](s *Stream[T], count uint64) *Stream[T] {
	if count == 0 {
		return Empty[T]()
	}
	return Pipe(s, Filter("take", func() Predicate[T] {
		return &takePredicate[T]{count: count}
	}))
}

// SkipWhile drops values while skip returns true. Once it returns false
// every later value is forwarded without consulting it.
func SkipWhile[T any](s *Stream[T], skip func(T) bool) *Stream[T] {
	return SkipWhileIndexed(s, func(v T, _ int) bool { return skip(v) })
}

// SkipWhileIndexed is SkipWhile with the 0-based position of each value.
func SkipWhileIndexed[T any](s *Stream[T], skip func(T, int) bool) *Stream[T] {
	return Pipe(s, Filter("skip_while", func() Predicate[T] {
		p := &indexCounter{op: "skip_while"}
		passing := false
		return PredicateFunc[T](func(v T) (Verdict, error) {
			if passing {
				return Keep, nil
			}
			i, err := p.next()
			if err != nil {
				return Drop, err
			}
			if skip(v, i) {
				return Drop, nil
			}
			passing = true
			return Keep, nil
		})
	}))
}

// TakeWhile forwards values while keep returns true and completes on the
// first value for which it returns false.
func TakeWhile[T any](s *Stream[T], keep func(T) bool) *Stream[T] {
	return TakeWhileIndexed(s, func(v T, _ int) bool { return keep(v) })
}

// TakeWhileIndexed is TakeWhile with the 0-based position of each value.
func TakeWhileIndexed[T any](s *Stream[T], keep func(T, int) bool) *Stream[T] {
	return Pipe(s, Filter("take_while", func() Predicate[T] {
		p := &indexCounter{op: "take_while"}
		return PredicateFunc[T](func(v T) (Verdict, error) {
			i, err := p.next()
			if err != nil {
				return Drop, err
			}
			if keep(v, i) {
				return Keep, nil
			}
			return Complete, nil
		})
	}))
}

// Distinct drops values equal to one already forwarded.
func Distinct[T comparable](s *Stream[T]) *Stream[T] {
	return DistinctBy(s, func(v T) T { return v })
}

// DistinctBy drops values whose key was already seen.
func DistinctBy[T any, K comparable](s *Stream[T], key func(T) K) *Stream[T] {
	return Pipe(s, Filter("distinct", func() Predicate[T] {
		seen := make(map[K]struct{})
		return PredicateFunc[T](func(v T) (Verdict, error) {
			k := key(v)
			if _, dup := seen[k]; dup {
				return Drop, nil
			}
			seen[k] = struct{}{}
			return Keep, nil
		})
	}))
}
