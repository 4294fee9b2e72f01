package stream

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kbukum/rxkit/logger"
)

// State is the lifecycle state of a Box.
type State int32

const (
	StateActive State = iota
	StateCompleted
	StateFaulted
	StateDisposed
)

// String returns the lowercase name of the state.
func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateCompleted:
		return "completed"
	case StateFaulted:
		return "faulted"
	case StateDisposed:
		return "disposed"
	default:
		return "unknown"
	}
}

// Box owns one subscription: the stage chain built for it and the handle of
// the upstream source. It leaves StateActive exactly once, either through a
// terminal signal reaching the subscriber or through Dispose, and releases
// the chain and the upstream handle exactly once afterwards.
//
// Notifications enter the chain through the gate. Whoever holds the gate
// also drains work queued by Post from other goroutines or from reentrant
// calls, and performs the release once the box is no longer active.
type Box struct {
	id    uuid.UUID
	state atomic.Int32

	gate sync.Mutex

	mu       sync.Mutex
	queue    []func()
	upstream Disposable
	chain    Reference
	released atomic.Bool
}

func newBox() *Box {
	b := &Box{id: uuid.New()}
	if l := log(); l.Enabled(zerolog.DebugLevel) {
		l.Debug("subscription created", logger.Fields(logger.FieldSubscription, b.id.String()))
	}
	return b
}

// ID identifies the subscription in logs and traces.
func (b *Box) ID() uuid.UUID { return b.id }

// State returns the current lifecycle state.
func (b *Box) State() State { return State(b.state.Load()) }

// IsActive reports whether the subscription may still deliver values.
func (b *Box) IsActive() bool { return b.state.Load() == int32(StateActive) }

// Released reports whether the chain and upstream handle have been released.
func (b *Box) Released() bool { return b.released.Load() }

// Chain returns the first stage of the subscription's chain.
func (b *Box) Chain() Reference {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.chain
}

// Dispose cancels the subscription. If a notification is in flight the
// release is performed by the goroutine delivering it, once it returns.
func (b *Box) Dispose() {
	if b.state.CompareAndSwap(int32(StateActive), int32(StateDisposed)) {
		if l := log(); l.Enabled(zerolog.DebugLevel) {
			l.Debug("subscription disposed", logger.Fields(logger.FieldSubscription, b.id.String()))
		}
	}
	b.drain()
}

// Post runs fn inside the chain once no other notification is in flight.
// Work posted after the box has left StateActive is discarded.
func (b *Box) Post(fn func()) {
	b.mu.Lock()
	b.queue = append(b.queue, fn)
	b.mu.Unlock()
	b.drain()
}

// terminate moves an active box to the given terminal state. It reports
// whether this call performed the transition.
func (b *Box) terminate(to State) bool {
	return b.state.CompareAndSwap(int32(StateActive), int32(to))
}

// enter tries to take the gate for a direct delivery.
func (b *Box) enter() bool {
	if !b.gate.TryLock() {
		return false
	}
	b.runQueued()
	return true
}

// exit releases the gate taken by enter and drains anything that arrived
// in the meantime.
func (b *Box) exit() {
	if b.leave() {
		b.drain()
	}
}

func (b *Box) drain() {
	for b.gate.TryLock() {
		if !b.drainLocked() {
			return
		}
	}
}

func (b *Box) drainLocked() (more bool) {
	defer func() { more = b.leave() }()
	b.runQueued()
	return
}

func (b *Box) runQueued() {
	for {
		b.mu.Lock()
		if len(b.queue) == 0 {
			b.mu.Unlock()
			return
		}
		if !b.IsActive() {
			b.queue = nil
			b.mu.Unlock()
			return
		}
		fn := b.queue[0]
		b.queue[0] = nil
		b.queue = b.queue[1:]
		b.mu.Unlock()
		fn()
	}
}

// leave unlocks the gate, releasing the box first if it is no longer
// active. It reports whether work arrived that nobody else will pick up.
func (b *Box) leave() bool {
	if !b.IsActive() {
		b.release()
	}
	b.gate.Unlock()

	b.mu.Lock()
	pending := len(b.queue) > 0
	b.mu.Unlock()
	return pending || (!b.IsActive() && !b.released.Load())
}

func (b *Box) release() {
	if !b.released.CompareAndSwap(false, true) {
		return
	}
	b.mu.Lock()
	chain, up := b.chain, b.upstream
	b.upstream = nil
	b.queue = nil
	b.mu.Unlock()

	if chain != nil {
		chain.Dispose()
	}
	if up != nil {
		up.Dispose()
	}
	if l := log(); l.Enabled(zerolog.DebugLevel) {
		l.Debug("subscription released", logger.Fields(
			logger.FieldSubscription, b.id.String(),
			logger.FieldState, b.State().String(),
		))
	}
}

// setUpstream records the handle returned by the source. A box that was
// released while the source was subscribing disposes the handle at once.
func (b *Box) setUpstream(d Disposable) {
	if d == nil {
		return
	}
	b.mu.Lock()
	if b.released.Load() {
		b.mu.Unlock()
		d.Dispose()
		return
	}
	b.upstream = d
	b.mu.Unlock()
}

func (b *Box) setChain(head Reference) {
	b.mu.Lock()
	b.chain = head
	b.mu.Unlock()
}

func log() *logger.Logger { return logger.Get("stream") }
