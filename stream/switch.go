package stream

// Switch subscribes to each inner source as it arrives and forwards only
// the most recent one. The previous inner subscription is disposed before
// the next is attached, and anything it still had queued is discarded.
// The result completes once the outer stream and the current inner one
// have both completed.
func Switch[T any](s *Stream[Observable[T]]) *Stream[T] {
	return Pipe(s, OperatorFunc[Observable[T], T](func(next Stage[T]) Stage[Observable[T]] {
		return &switchStage[T]{Link: Link[T]{Next: next}}
	}))
}

// SwitchMap maps each value to an inner source and switches to it.
func SwitchMap[T, U any](s *Stream[T], fn func(T) Observable[U]) *Stream[U] {
	return Switch(Map(s, fn))
}

type switchStage[T any] struct {
	Link[T]
	inner       Disposable
	gen         uint64
	innerActive bool
	outerDone   bool
	done        bool
}

func (s *switchStage[T]) OnNext(src Observable[T]) {
	if s.done {
		return
	}
	s.disposeInner()
	s.gen++
	gen := s.gen
	s.innerActive = true
	d := src.Subscribe(&switchObserver[T]{parent: s, gen: gen})
	if s.gen == gen && !s.done {
		s.inner = d
	} else if d != nil {
		d.Dispose()
	}
}

func (s *switchStage[T]) disposeInner() {
	if s.inner != nil {
		s.inner.Dispose()
		s.inner = nil
	}
}

func (s *switchStage[T]) OnError(err error) {
	if s.done {
		dropped(s.Box(), err)
		return
	}
	s.done = true
	s.disposeInner()
	s.Next.OnError(err)
}

func (s *switchStage[T]) OnCompleted() {
	if s.done {
		return
	}
	s.outerDone = true
	if !s.innerActive {
		s.done = true
		s.Next.OnCompleted()
	}
}

// Dispose disposes the current inner subscription.
func (s *switchStage[T]) Dispose() {
	s.disposeInner()
	s.Next.Dispose()
}

func (s *switchStage[T]) Reference() Reference { return s }

func (s *switchStage[T]) current(gen uint64) bool {
	return gen == s.gen && !s.done
}

// switchObserver routes one inner subscription back into the chain. Its
// notifications may come from any goroutine, so they are posted.
type switchObserver[T any] struct {
	parent *switchStage[T]
	gen    uint64
}

func (o *switchObserver[T]) OnNext(value T) {
	p := o.parent
	p.Box().Post(func() {
		if p.current(o.gen) {
			p.Next.OnNext(value)
		}
	})
}

func (o *switchObserver[T]) OnError(err error) {
	p := o.parent
	p.Box().Post(func() {
		if p.current(o.gen) {
			p.done = true
			p.Next.OnError(err)
		}
	})
}

func (o *switchObserver[T]) OnCompleted() {
	p := o.parent
	p.Box().Post(func() {
		if !p.current(o.gen) {
			return
		}
		p.innerActive = false
		p.inner = nil
		if p.outerDone {
			p.done = true
			p.Next.OnCompleted()
		}
	})
}
