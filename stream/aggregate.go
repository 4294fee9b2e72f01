package stream

import (
	"cmp"

	rxerrors "github.com/kbukum/rxkit/errors"
)

// Accumulator folds a stream into a single result. Accumulate reports
// whether more values are needed; returning false ends the aggregation
// early. RequiresSeed reports whether an empty stream is an error rather
// than a zero-value result.
type Accumulator[T, R any] interface {
	Accumulate(value T) (more bool, err error)
	Result() R
	RequiresSeed() bool
}

// Aggregation returns the operator driven by a fresh accumulator per
// subscription. It emits exactly one result followed by completion, or an
// error: NO_ELEMENTS when a seed-requiring accumulator saw nothing, or the
// accumulator's own error.
func Aggregation[T, R any](name string, newAccumulator func() Accumulator[T, R]) Operator[T, R] {
	return OperatorFunc[T, R](func(next Stage[R]) Stage[T] {
		return &aggregateStage[T, R]{Link: Link[R]{Next: next}, name: name, acc: newAccumulator()}
	})
}

type aggregateStage[T, R any] struct {
	Link[R]
	name string
	acc  Accumulator[T, R]
	seen bool
	done bool
}

func (s *aggregateStage[T, R]) OnNext(value T) {
	if s.done {
		return
	}
	more, err := s.accumulate(value)
	if err != nil {
		s.done = true
		s.Next.OnError(err)
		return
	}
	s.seen = true
	if !more {
		s.done = true
		s.publish()
	}
}

func (s *aggregateStage[T, R]) accumulate(value T) (more bool, err error) {
	defer recoverInto(s.name, &err)
	more, err = s.acc.Accumulate(value)
	return more, callbackError(s.name, err)
}

func (s *aggregateStage[T, R]) OnError(err error) {
	if s.done {
		dropped(s.Box(), err)
		return
	}
	s.done = true
	s.Next.OnError(err)
}

func (s *aggregateStage[T, R]) OnCompleted() {
	if s.done {
		return
	}
	s.done = true
	if !s.seen && s.acc.RequiresSeed() {
		s.Next.OnError(rxerrors.NoElements().WithDetail("operator", s.name))
		return
	}
	s.publish()
}

func (s *aggregateStage[T, R]) publish() {
	s.Next.OnNext(s.acc.Result())
	s.Next.OnCompleted()
}

// AccumulatorFunc is an accumulator assembled from closures.
type AccumulatorFunc[T, R any] struct {
	Step   func(T) (bool, error)
	Value  func() R
	Seeded bool
}

func (a *AccumulatorFunc[T, R]) Accumulate(v T) (bool, error) { return a.Step(v) }
func (a *AccumulatorFunc[T, R]) Result() R                    { return a.Value() }
func (a *AccumulatorFunc[T, R]) RequiresSeed() bool           { return !a.Seeded }

// Number is the set of types Sum and Average accept.
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr |
		~float32 | ~float64
}

// Aggregate folds values into seed with fn. An empty stream yields seed.
func Aggregate[T, R any](s *Stream[T], seed R, fn func(R, T) (R, error)) *Stream[R] {
	return Pipe(s, Aggregation("aggregate", func() Accumulator[T, R] {
		acc := seed
		return &AccumulatorFunc[T, R]{
			Step: func(v T) (bool, error) {
				next, err := fn(acc, v)
				if err != nil {
					return false, err
				}
				acc = next
				return true, nil
			},
			Value:  func() R { return acc },
			Seeded: true,
		}
	}))
}

// Reduce folds values using the first one as the seed. An empty stream
// fails with NO_ELEMENTS.
func Reduce[T any](s *Stream[T], fn func(T, T) (T, error)) *Stream[T] {
	return Pipe(s, Aggregation("reduce", func() Accumulator[T, T] {
		var acc T
		has := false
		return &AccumulatorFunc[T, T]{
			Step: func(v T) (bool, error) {
				if !has {
					acc, has = v, true
					return true, nil
				}
				next, err := fn(acc, v)
				if err != nil {
					return false, err
				}
				acc = next
				return true, nil
			},
			Value: func() T { return acc },
		}
	}))
}

// Count emits the number of values. It fails with COUNTER_OVERFLOW rather
// than wrap.
func Count[T any](s *Stream[T]) *Stream[int] {
	return Pipe(s, Aggregation("count", func() Accumulator[T, int] {
		return counting[T](&indexCounter{op: "count"})
	}))
}

func counting[T any](c *indexCounter) *AccumulatorFunc[T, int] {
	return &AccumulatorFunc[T, int]{
		Step: func(T) (bool, error) {
			_, err := c.next()
			return err == nil, err
		},
		Value:  func() int { return c.n },
		Seeded: true,
	}
}

// Sum emits the sum of the values, or zero for an empty stream.
func Sum[T Number](s *Stream[T]) *Stream[T] {
	return Aggregate(s, T(0), func(acc, v T) (T, error) { return acc + v, nil })
}

// Average emits the arithmetic mean. An empty stream fails with NO_ELEMENTS.
func Average[T Number](s *Stream[T]) *Stream[float64] {
	return Pipe(s, Aggregation("average", func() Accumulator[T, float64] {
		var sum float64
		n := &indexCounter{op: "average"}
		return &AccumulatorFunc[T, float64]{
			Step: func(v T) (bool, error) {
				if _, err := n.next(); err != nil {
					return false, err
				}
				sum += float64(v)
				return true, nil
			},
			Value: func() float64 { return sum / float64(n.n) },
		}
	}))
}

// Any emits true as soon as a value arrives, false on empty completion.
func Any[T any](s *Stream[T]) *Stream[bool] {
	return AnyMatch(s, func(T) bool { return true })
}

// AnyMatch emits true on the first value satisfying pred.
func AnyMatch[T any](s *Stream[T], pred func(T) bool) *Stream[bool] {
	return Pipe(s, Aggregation("any", func() Accumulator[T, bool] {
		found := false
		return &AccumulatorFunc[T, bool]{
			Step: func(v T) (bool, error) {
				found = pred(v)
				return !found, nil
			},
			Value:  func() bool { return found },
			Seeded: true,
		}
	}))
}

// All emits false on the first value failing pred, true otherwise.
func All[T any](s *Stream[T], pred func(T) bool) *Stream[bool] {
	return Pipe(s, Aggregation("all", func() Accumulator[T, bool] {
		ok := true
		return &AccumulatorFunc[T, bool]{
			Step: func(v T) (bool, error) {
				ok = pred(v)
				return ok, nil
			},
			Value:  func() bool { return ok },
			Seeded: true,
		}
	}))
}

// Contains emits whether target occurs in the stream.
func Contains[T comparable](s *Stream[T], target T) *Stream[bool] {
	return AnyMatch(s, func(v T) bool { return v == target })
}

// First emits the first value. An empty stream fails with NO_ELEMENTS.
func First[T any](s *Stream[T]) *Stream[T] {
	return Pipe(s, Aggregation("first", func() Accumulator[T, T] {
		return &firstAccumulator[T]{}
	}))
}

// FirstOrDefault emits the first value, or def for an empty stream.
func FirstOrDefault[T any](s *Stream[T], def T) *Stream[T] {
	return Pipe(s, Aggregation("first", func() Accumulator[T, T] {
		return &firstAccumulator[T]{value: def, seeded: true}
	}))
}

type firstAccumulator[T any] struct {
	value  T
	seeded bool
}

func (a *firstAccumulator[T]) Accumulate(v T) (bool, error) { a.value = v; return false, nil }
func (a *firstAccumulator[T]) Result() T                    { return a.value }
func (a *firstAccumulator[T]) RequiresSeed() bool           { return !a.seeded }

// Last emits the last value. An empty stream fails with NO_ELEMENTS.
func Last[T any](s *Stream[T]) *Stream[T] {
	return Pipe(s, Aggregation("last", func() Accumulator[T, T] {
		return &lastAccumulator[T]{}
	}))
}

// LastOrDefault emits the last value, or def for an empty stream.
func LastOrDefault[T any](s *Stream[T], def T) *Stream[T] {
	return Pipe(s, Aggregation("last", func() Accumulator[T, T] {
		return &lastAccumulator[T]{value: def, seeded: true}
	}))
}

type lastAccumulator[T any] struct {
	value  T
	seeded bool
}

func (a *lastAccumulator[T]) Accumulate(v T) (bool, error) { a.value = v; return true, nil }
func (a *lastAccumulator[T]) Result() T                    { return a.value }
func (a *lastAccumulator[T]) RequiresSeed() bool           { return !a.seeded }

// Single emits the only value. An empty stream fails with NO_ELEMENTS and a
// second value fails with MORE_THAN_ONE_ELEMENT.
func Single[T any](s *Stream[T]) *Stream[T] {
	return Pipe(s, Aggregation("single", func() Accumulator[T, T] {
		return &singleAccumulator[T]{}
	}))
}

// SingleOrDefault is Single that emits def for an empty stream.
func SingleOrDefault[T any](s *Stream[T], def T) *Stream[T] {
	return Pipe(s, Aggregation("single", func() Accumulator[T, T] {
		return &singleAccumulator[T]{value: def, seeded: true}
	}))
}

type singleAccumulator[T any] struct {
	value  T
	seen   uint8 // saturates at 2
	seeded bool
}

func (a *singleAccumulator[T]) Accumulate(v T) (bool, error) {
	if a.seen > 0 {
		a.seen = 2
		return false, rxerrors.MoreThanOneElement()
	}
	a.seen = 1
	a.value = v
	return true, nil
}

func (a *singleAccumulator[T]) Result() T          { return a.value }
func (a *singleAccumulator[T]) RequiresSeed() bool { return !a.seeded }

// Max emits the largest value, keeping the first of equal values.
func Max[T cmp.Ordered](s *Stream[T]) *Stream[T] {
	return MaxFunc(s, cmp.Compare[T])
}

// Min emits the smallest value, keeping the first of equal values.
func Min[T cmp.Ordered](s *Stream[T]) *Stream[T] {
	return MinFunc(s, cmp.Compare[T])
}

// MaxFunc is Max with an explicit comparison.
func MaxFunc[T any](s *Stream[T], compare func(a, b T) int) *Stream[T] {
	return Pipe(s, Aggregation("max", func() Accumulator[T, T] {
		return &extremumBy[T, T]{key: identity[T], compare: compare, sign: 1}
	}))
}

// MinFunc is Min with an explicit comparison.
func MinFunc[T any](s *Stream[T], compare func(a, b T) int) *Stream[T] {
	return Pipe(s, Aggregation("min", func() Accumulator[T, T] {
		return &extremumBy[T, T]{key: identity[T], compare: compare, sign: -1}
	}))
}

// MaxBy emits the value with the largest key, keeping the first on ties.
func MaxBy[T any, K cmp.Ordered](s *Stream[T], key func(T) K) *Stream[T] {
	return Pipe(s, Aggregation("max_by", func() Accumulator[T, T] {
		return &extremumBy[T, K]{key: key, compare: cmp.Compare[K], sign: 1}
	}))
}

// MinBy emits the value with the smallest key, keeping the first on ties.
func MinBy[T any, K cmp.Ordered](s *Stream[T], key func(T) K) *Stream[T] {
	return Pipe(s, Aggregation("min_by", func() Accumulator[T, T] {
		return &extremumBy[T, K]{key: key, compare: cmp.Compare[K], sign: -1}
	}))
}

func identity[T any](v T) T { return v }

// extremumBy tracks the best value seen so far. The key of the current best
// is computed on its first comparison and cached until it is replaced.
type extremumBy[T, K any] struct {
	key     func(T) K
	compare func(a, b K) int
	sign    int
	best    T
	bestKey K
	keyed   bool
	has     bool
}

func (a *extremumBy[T, K]) Accumulate(v T) (bool, error) {
	if !a.has {
		a.best, a.has = v, true
		return true, nil
	}
	if !a.keyed {
		a.bestKey, a.keyed = a.key(a.best), true
	}
	k := a.key(v)
	if a.sign*a.compare(k, a.bestKey) > 0 {
		a.best, a.bestKey = v, k
	}
	return true, nil
}

func (a *extremumBy[T, K]) Result() T          { return a.best }
func (a *extremumBy[T, K]) RequiresSeed() bool { return true }

// ToList emits every value as one slice on completion.
func ToList[T any](s *Stream[T]) *Stream[[]T] {
	return Pipe(s, Aggregation("to_list", func() Accumulator[T, []T] {
		var items []T
		return &AccumulatorFunc[T, []T]{
			Step:   func(v T) (bool, error) { items = append(items, v); return true, nil },
			Value:  func() []T { return items },
			Seeded: true,
		}
	}))
}
