package stream

// Selector maps one value to another. A selector instance serves a single
// subscription and may keep state.
type Selector[T, U any] interface {
	Transform(value T) (U, error)
}

// SelectorFunc adapts a function to Selector.
type SelectorFunc[T, U any] func(value T) (U, error)

// Transform calls f.
func (f SelectorFunc[T, U]) Transform(value T) (U, error) { return f(value) }

// Transform returns the operator driven by a fresh selector per
// subscription. A selector error or panic terminates the stream.
func Transform[T, U any](name string, newSelector func() Selector[T, U]) Operator[T, U] {
	return OperatorFunc[T, U](func(next Stage[U]) Stage[T] {
		return &transformStage[T, U]{Link: Link[U]{Next: next}, name: name, sel: newSelector()}
	})
}

type transformStage[T, U any] struct {
	Link[U]
	name string
	sel  Selector[T, U]
	done bool
}

func (s *transformStage[T, U]) OnNext(value T) {
	if s.done {
		return
	}
	out, err := s.transform(value)
	if err != nil {
		s.done = true
		s.Next.OnError(err)
		return
	}
	s.Next.OnNext(out)
}

func (s *transformStage[T, U]) transform(value T) (out U, err error) {
	defer recoverInto(s.name, &err)
	out, err = s.sel.Transform(value)
	return out, callbackError(s.name, err)
}

func (s *transformStage[T, U]) OnError(err error) {
	if s.done {
		dropped(s.Box(), err)
		return
	}
	s.done = true
	s.Next.OnError(err)
}

func (s *transformStage[T, U]) OnCompleted() {
	if s.done {
		return
	}
	s.done = true
	s.Next.OnCompleted()
}

// Select maps every value through fn.
func Select[T, U any](s *Stream[T], fn func(T) (U, error)) *Stream[U] {
	return Pipe(s, Transform("select", func() Selector[T, U] {
		return SelectorFunc[T, U](fn)
	}))
}

// SelectIndexed maps every value and its 0-based position through fn.
func SelectIndexed[T, U any](s *Stream[T], fn func(T, int) (U, error)) *Stream[U] {
	return Pipe(s, Transform("select", func() Selector[T, U] {
		p := &indexCounter{op: "select"}
		return SelectorFunc[T, U](func(v T) (U, error) {
			i, err := p.next()
			if err != nil {
				var zero U
				return zero, err
			}
			return fn(v, i)
		})
	}))
}

// Map maps every value through a function that cannot fail.
func Map[T, U any](s *Stream[T], fn func(T) U) *Stream[U] {
	return Select(s, func(v T) (U, error) { return fn(v), nil })
}

// Do calls fn for every value and forwards it unchanged.
func Do[T any](s *Stream[T], fn func(T)) *Stream[T] {
	return Pipe(s, Transform("do", func() Selector[T, T] {
		return SelectorFunc[T, T](func(v T) (T, error) {
			fn(v)
			return v, nil
		})
	}))
}
