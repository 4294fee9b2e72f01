package view

import (
	"cmp"
	"slices"
	"sort"

	"github.com/kbukum/rxkit/change"
	rxerrors "github.com/kbukum/rxkit/errors"
	"github.com/kbukum/rxkit/logger"
	"github.com/kbukum/rxkit/stream"
)

// OrderOption configures OrderBy.
type OrderOption[K any] func(*orderConfig[K])

type orderConfig[K any] struct {
	compare    func(a, b K) int
	descending bool
}

// WithComparer orders keys with compare instead of their natural order.
func WithComparer[K any](compare func(a, b K) int) OrderOption[K] {
	return func(c *orderConfig[K]) { c.compare = compare }
}

// Descending reverses the order. Items with equal keys keep arrival order.
func Descending[K any]() OrderOption[K] {
	return func(c *orderConfig[K]) { c.descending = true }
}

// OrderBy maintains the source list sorted by key. Items with equal keys
// are kept in the order they were added. A replaced item that moves is
// reported as Remove then Add; one that keeps its position is reported as
// a single Replace so the view still receives the new value. A panicking
// key selector or comparer fails the view.
func OrderBy[T any, K cmp.Ordered](src *stream.Stream[change.Event[T]], key func(T) K, opts ...OrderOption[K]) *stream.Stream[change.Event[T]] {
	cfg := orderConfig[K]{compare: cmp.Compare[K]}
	for _, opt := range opts {
		opt(&cfg)
	}
	return order(src, key, cfg)
}

// OrderByDescending is OrderBy with the order reversed.
func OrderByDescending[T any, K cmp.Ordered](src *stream.Stream[change.Event[T]], key func(T) K) *stream.Stream[change.Event[T]] {
	return OrderBy(src, key, Descending[K]())
}

// OrderByFunc maintains the source list sorted by key using compare, for
// key types without a natural order.
func OrderByFunc[T, K any](src *stream.Stream[change.Event[T]], key func(T) K, compare func(a, b K) int, opts ...OrderOption[K]) *stream.Stream[change.Event[T]] {
	cfg := orderConfig[K]{compare: compare}
	for _, opt := range opts {
		opt(&cfg)
	}
	return order(src, key, cfg)
}

func order[T, K any](src *stream.Stream[change.Event[T]], key func(T) K, cfg orderConfig[K]) *stream.Stream[change.Event[T]] {
	compare := cfg.compare
	if cfg.descending {
		asc := compare
		compare = func(a, b K) int { return asc(b, a) }
	}
	return stream.Pipe(src, stream.OperatorFunc[change.Event[T], change.Event[T]](
		func(next stream.Stage[change.Event[T]]) stream.Stage[change.Event[T]] {
			return &orderStage[T, K]{
				Link:    stream.Link[change.Event[T]]{Next: next},
				keyOf:   key,
				compare: compare,
			}
		}))
}

// orderedItem is one source item and its current position in the sorted view.
type orderedItem[T, K any] struct {
	index int
	key   K
	value T
	seq   uint64
}

// orderStage keeps two views of the same items: source order, addressed by
// incoming events, and sorted order, addressed by outgoing events. For every
// item sorted[item.index] == item.
type orderStage[T, K any] struct {
	stream.Link[change.Event[T]]
	keyOf   func(T) K
	compare func(a, b K) int
	source  []*orderedItem[T, K]
	sorted  []*orderedItem[T, K]
	seq     uint64
	done    bool
}

// less orders by key, then by arrival.
func (s *orderStage[T, K]) less(a, b *orderedItem[T, K]) bool {
	if c := s.compare(a.key, b.key); c != 0 {
		return c < 0
	}
	return a.seq < b.seq
}

func (s *orderStage[T, K]) OnNext(e change.Event[T]) {
	if s.done {
		return
	}
	var err error
	switch e.Kind {
	case change.KindAdd:
		err = s.add(e.Index, e.Value)
	case change.KindRemove:
		err = s.remove(e.Index)
	case change.KindReplace:
		err = s.replace(e.Index, e.Value)
	case change.KindReset:
		s.reset()
	default:
		err = rxerrors.InvalidInput("kind", e.Kind.String())
	}
	if err != nil {
		s.fail(err)
	}
}

// guarded runs user code (the key selector or the comparer) and reports a
// panic as an error. Nothing is mutated until it returns.
func guarded[R any](fn func() R) (r R, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = rxerrors.Recovered("order_by", p)
		}
	}()
	return fn(), nil
}

func (s *orderStage[T, K]) key(v T) (K, error) {
	return guarded(func() K { return s.keyOf(v) })
}

// searchFrom returns the first position in items[from:] that sorts after
// item, offset by from.
func (s *orderStage[T, K]) searchFrom(item *orderedItem[T, K], items []*orderedItem[T, K], from int) (int, error) {
	return guarded(func() int {
		tail := items[from:]
		return from + sort.Search(len(tail), func(i int) bool { return s.less(item, tail[i]) })
	})
}

func (s *orderStage[T, K]) add(index int, v T) error {
	if index < 0 || index > len(s.source) {
		return rxerrors.IndexOutOfRange(index, len(s.source))
	}
	k, err := s.key(v)
	if err != nil {
		return err
	}
	item := &orderedItem[T, K]{key: k, value: v, seq: s.seq}
	pos, err := s.searchFrom(item, s.sorted, 0)
	if err != nil {
		return err
	}
	s.seq++
	s.source = slices.Insert(s.source, index, item)
	s.sorted = slices.Insert(s.sorted, pos, item)
	s.renumber(pos, len(s.sorted)-1)
	s.Next.OnNext(change.Add(pos, v))
	return nil
}

func (s *orderStage[T, K]) remove(index int) error {
	if index < 0 || index >= len(s.source) {
		return rxerrors.IndexOutOfRange(index, len(s.source))
	}
	item := s.source[index]
	s.source = slices.Delete(s.source, index, index+1)

	pos := item.index
	s.sorted = slices.Delete(s.sorted, pos, pos+1)
	s.renumber(pos, len(s.sorted)-1)
	s.Next.OnNext(change.Remove(pos, item.value))
	return nil
}

func (s *orderStage[T, K]) replace(index int, v T) error {
	if index < 0 || index >= len(s.source) {
		return rxerrors.IndexOutOfRange(index, len(s.source))
	}
	k, err := s.key(v)
	if err != nil {
		return err
	}
	item := s.source[index]
	pos := item.index
	to, err := s.target(&orderedItem[T, K]{key: k, seq: item.seq}, pos)
	if err != nil {
		return err
	}
	old := item.value
	item.key, item.value = k, v

	switch {
	case to < pos:
		// Moves towards the front: shift sorted[to:pos] one step back.
		copy(s.sorted[to+1:pos+1], s.sorted[to:pos])
		s.sorted[to] = item
		s.renumber(to, pos)
		s.moved(pos, to, old, v)
	case to > pos:
		// Moves towards the back: shift sorted[pos+1:to+1] one step forward.
		copy(s.sorted[pos:to], s.sorted[pos+1:to+1])
		s.sorted[to] = item
		s.renumber(pos, to)
		s.moved(pos, to, old, v)
	default:
		s.Next.OnNext(change.Replace(pos, old, v))
	}
	return nil
}

// target returns where the item at sorted position pos belongs once its
// key becomes cand.key. The item itself is never compared.
func (s *orderStage[T, K]) target(cand *orderedItem[T, K], pos int) (int, error) {
	last := len(s.sorted) - 1
	front, err := guarded(func() bool { return pos > 0 && s.less(cand, s.sorted[pos-1]) })
	if err != nil {
		return pos, err
	}
	if front {
		return s.searchFrom(cand, s.sorted[:pos], 0)
	}
	back, err := guarded(func() bool { return pos < last && s.less(s.sorted[pos+1], cand) })
	if err != nil || !back {
		return pos, err
	}
	to, err := s.searchFrom(cand, s.sorted, pos+1)
	return to - 1, err
}

func (s *orderStage[T, K]) moved(from, to int, old, v T) {
	s.Next.OnNext(change.Remove(from, old))
	s.Next.OnNext(change.Add(to, v))
}

func (s *orderStage[T, K]) reset() {
	clear(s.source)
	clear(s.sorted)
	s.source, s.sorted = s.source[:0], s.sorted[:0]
	s.Next.OnNext(change.Reset[T]())
}

// renumber refreshes the stored position of sorted[from..to].
func (s *orderStage[T, K]) renumber(from, to int) {
	for i := from; i <= to; i++ {
		s.sorted[i].index = i
	}
}

func (s *orderStage[T, K]) fail(err error) {
	s.done = true
	logger.Get("view").Warn("order_by failed", logger.ErrorFields("order_by", err))
	s.Next.OnError(err)
}

func (s *orderStage[T, K]) OnError(err error) {
	if s.done {
		return
	}
	s.done = true
	s.Next.OnError(err)
}

func (s *orderStage[T, K]) OnCompleted() {
	if s.done {
		return
	}
	s.done = true
	s.Next.OnCompleted()
}
