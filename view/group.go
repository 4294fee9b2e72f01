package view

import (
	"fmt"
	"slices"
	"sync"

	"github.com/rs/zerolog"

	"github.com/kbukum/rxkit/change"
	rxerrors "github.com/kbukum/rxkit/errors"
	"github.com/kbukum/rxkit/logger"
	"github.com/kbukum/rxkit/stream"
)

// Grouping is the live set of source items sharing one key. It is itself a
// change stream: a subscriber receives the current members as Adds and then
// every edit, and completes when the group is disposed.
//
// Groupings are mutated by the GroupBy subscription that owns them and are
// meant to be subscribed from that subscription's notifications.
type Grouping[K comparable, T any] struct {
	key   K
	owner stream.Reference
	outer int

	mu        sync.Mutex
	members   []*groupedItem[K, T]
	observers map[uint64]stream.Observer[change.Event[T]]
	nextID    uint64
	disposed  bool
}

type groupedItem[K comparable, T any] struct {
	key   K
	value T
	group *Grouping[K, T]
	// indexInGroup is the item's position in group.members.
	indexInGroup int
}

// Key returns the shared key.
func (g *Grouping[K, T]) Key() K { return g.key }

// Len returns the number of members.
func (g *Grouping[K, T]) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.members)
}

// Snapshot returns the members' values in group order.
func (g *Grouping[K, T]) Snapshot() []T {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]T, len(g.members))
	for i, m := range g.members {
		out[i] = m.value
	}
	return out
}

// Active reports whether the group still exists and its owning
// subscription is live.
func (g *Grouping[K, T]) Active() bool {
	g.mu.Lock()
	disposed := g.disposed
	g.mu.Unlock()
	return !disposed && g.owner.Box().IsActive()
}

// Changes returns the group's change stream.
func (g *Grouping[K, T]) Changes() *stream.Stream[change.Event[T]] {
	return stream.From[change.Event[T]](g)
}

// Subscribe replays the members to observer and registers it for later edits.
func (g *Grouping[K, T]) Subscribe(observer stream.Observer[change.Event[T]]) stream.Disposable {
	g.mu.Lock()
	replay := make([]change.Event[T], len(g.members))
	for i, m := range g.members {
		replay[i] = change.Add(i, m.value)
	}
	disposed := g.disposed
	var id uint64
	if !disposed {
		id = g.nextID
		g.nextID++
		g.observers[id] = observer
	}
	g.mu.Unlock()

	for _, e := range replay {
		observer.OnNext(e)
	}
	if disposed {
		observer.OnCompleted()
		return stream.Nop
	}
	return stream.DisposableFunc(func() {
		g.mu.Lock()
		delete(g.observers, id)
		g.mu.Unlock()
	})
}

func (g *Grouping[K, T]) String() string {
	return fmt.Sprintf("group(%v, %d)", g.key, g.Len())
}

func (g *Grouping[K, T]) listeners() []stream.Observer[change.Event[T]] {
	out := make([]stream.Observer[change.Event[T]], 0, len(g.observers))
	for _, o := range g.observers {
		out = append(out, o)
	}
	return out
}

func (g *Grouping[K, T]) emit(e change.Event[T]) {
	g.mu.Lock()
	obs := g.listeners()
	g.mu.Unlock()
	for _, o := range obs {
		o.OnNext(e)
	}
}

func (g *Grouping[K, T]) push(item *groupedItem[K, T]) {
	g.mu.Lock()
	item.group = g
	item.indexInGroup = len(g.members)
	g.members = append(g.members, item)
	g.mu.Unlock()
	g.emit(change.Add(item.indexInGroup, item.value))
}

func (g *Grouping[K, T]) remove(item *groupedItem[K, T]) {
	g.mu.Lock()
	pos := item.indexInGroup
	g.members = slices.Delete(g.members, pos, pos+1)
	for i := pos; i < len(g.members); i++ {
		g.members[i].indexInGroup = i
	}
	item.group = nil
	g.mu.Unlock()
	g.emit(change.Remove(pos, item.value))
}

func (g *Grouping[K, T]) replace(item *groupedItem[K, T], old, v T) {
	g.mu.Lock()
	item.value = v
	pos := item.indexInGroup
	g.mu.Unlock()
	g.emit(change.Replace(pos, old, v))
}

// terminate disposes the group and signals its observers: completion when
// err is nil, err otherwise. With silent set observers are dropped without
// a signal.
func (g *Grouping[K, T]) terminate(err error, silent bool) {
	g.mu.Lock()
	if g.disposed {
		g.mu.Unlock()
		return
	}
	g.disposed = true
	obs := g.listeners()
	clear(g.observers)
	g.mu.Unlock()
	if silent {
		return
	}
	for _, o := range obs {
		if err != nil {
			o.OnError(err)
		} else {
			o.OnCompleted()
		}
	}
}

// groupManager owns the live groups and their positions in the outer list.
type groupManager[K comparable, T any] struct {
	owner  stream.Reference
	groups map[K]*Grouping[K, T]
	order  []*Grouping[K, T]
}

func newGroupManager[K comparable, T any](owner stream.Reference) *groupManager[K, T] {
	return &groupManager[K, T]{owner: owner, groups: make(map[K]*Grouping[K, T])}
}

// acquire returns the group for key, creating it at the end of the outer
// list if needed.
func (m *groupManager[K, T]) acquire(key K) (*Grouping[K, T], bool) {
	if g, ok := m.groups[key]; ok {
		return g, false
	}
	g := &Grouping[K, T]{
		key:       key,
		owner:     m.owner,
		outer:     len(m.order),
		observers: make(map[uint64]stream.Observer[change.Event[T]]),
	}
	m.groups[key] = g
	m.order = append(m.order, g)
	if l := logger.Get("view"); l.Enabled(zerolog.DebugLevel) {
		l.Debug("group created", logger.Fields(logger.FieldGroupKey, fmt.Sprint(key)))
	}
	return g, true
}

// release removes an empty group and returns the outer index it had.
func (m *groupManager[K, T]) release(g *Grouping[K, T]) int {
	pos := g.outer
	delete(m.groups, g.key)
	m.order = slices.Delete(m.order, pos, pos+1)
	for i := pos; i < len(m.order); i++ {
		m.order[i].outer = i
	}
	g.terminate(nil, false)
	if l := logger.Get("view"); l.Enabled(zerolog.DebugLevel) {
		l.Debug("group disposed", logger.Fields(logger.FieldGroupKey, fmt.Sprint(g.key)))
	}
	return pos
}

func (m *groupManager[K, T]) terminateAll(err error, silent bool) {
	for _, g := range m.order {
		g.terminate(err, silent)
	}
	clear(m.groups)
	clear(m.order)
	m.order = m.order[:0]
}

// GroupBy partitions the source list by key. The outer stream lists the
// groups in creation order; a group is created when the first item with
// its key arrives and disposed as soon as its last item leaves. Items are
// appended to their group in arrival order.
func GroupBy[T any, K comparable](src *stream.Stream[change.Event[T]], key func(T) K) *stream.Stream[change.Event[*Grouping[K, T]]] {
	return stream.Pipe(src, stream.OperatorFunc[change.Event[T], change.Event[*Grouping[K, T]]](
		func(next stream.Stage[change.Event[*Grouping[K, T]]]) stream.Stage[change.Event[T]] {
			s := &groupStage[K, T]{
				Link:  stream.Link[change.Event[*Grouping[K, T]]]{Next: next},
				keyOf: key,
			}
			s.groups = newGroupManager[K, T](s)
			return s
		}))
}

type groupStage[K comparable, T any] struct {
	stream.Link[change.Event[*Grouping[K, T]]]
	keyOf  func(T) K
	source []*groupedItem[K, T]
	groups *groupManager[K, T]
	done   bool
}

func (s *groupStage[K, T]) OnNext(e change.Event[T]) {
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
		s.groups.terminateAll(nil, false)
		clear(s.source)
		s.source = s.source[:0]
		s.Next.OnNext(change.Reset[*Grouping[K, T]]())
	default:
		err = rxerrors.InvalidInput("kind", e.Kind.String())
	}
	if err != nil {
		s.fail(err)
	}
}

func (s *groupStage[K, T]) key(v T) (k K, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = rxerrors.Recovered("group_by", r)
		}
	}()
	return s.keyOf(v), nil
}

func (s *groupStage[K, T]) add(index int, v T) error {
	if index < 0 || index > len(s.source) {
		return rxerrors.IndexOutOfRange(index, len(s.source))
	}
	k, err := s.key(v)
	if err != nil {
		return err
	}
	item := &groupedItem[K, T]{key: k, value: v}
	s.source = slices.Insert(s.source, index, item)
	s.join(item)
	return nil
}

// join places item in the group for its key, announcing a new group on the
// outer stream before the item appears in it.
func (s *groupStage[K, T]) join(item *groupedItem[K, T]) {
	g, created := s.groups.acquire(item.key)
	if created {
		s.Next.OnNext(change.Add(g.outer, g))
	}
	g.push(item)
}

// leave takes item out of its group, disposing the group if it empties.
func (s *groupStage[K, T]) leave(item *groupedItem[K, T]) {
	g := item.group
	g.remove(item)
	if g.Len() == 0 {
		pos := s.groups.release(g)
		s.Next.OnNext(change.Remove(pos, g))
	}
}

func (s *groupStage[K, T]) remove(index int) error {
	if index < 0 || index >= len(s.source) {
		return rxerrors.IndexOutOfRange(index, len(s.source))
	}
	item := s.source[index]
	s.source = slices.Delete(s.source, index, index+1)
	s.leave(item)
	return nil
}

func (s *groupStage[K, T]) replace(index int, v T) error {
	if index < 0 || index >= len(s.source) {
		return rxerrors.IndexOutOfRange(index, len(s.source))
	}
	k, err := s.key(v)
	if err != nil {
		return err
	}
	item := s.source[index]
	if k == item.key {
		item.group.replace(item, item.value, v)
		return nil
	}
	s.leave(item)
	item.key, item.value = k, v
	s.join(item)
	return nil
}

func (s *groupStage[K, T]) fail(err error) {
	s.done = true
	logger.Get("view").Warn("group_by failed", logger.ErrorFields("group_by", err))
	s.groups.terminateAll(err, false)
	s.Next.OnError(err)
}

func (s *groupStage[K, T]) OnError(err error) {
	if s.done {
		return
	}
	s.done = true
	s.groups.terminateAll(err, false)
	s.Next.OnError(err)
}

func (s *groupStage[K, T]) OnCompleted() {
	if s.done {
		return
	}
	s.done = true
	s.groups.terminateAll(nil, false)
	s.Next.OnCompleted()
}

// Dispose drops every group without signalling its observers.
func (s *groupStage[K, T]) Dispose() {
	s.groups.terminateAll(nil, true)
	s.Next.Dispose()
}

func (s *groupStage[K, T]) Reference() stream.Reference { return s }
