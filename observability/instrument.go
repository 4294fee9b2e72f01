package observability

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/rxkit/stream"
)

// InstrumentOption configures Instrument.
type InstrumentOption func(*instrumentConfig)

type instrumentConfig struct {
	ctx     context.Context
	tracer  trace.Tracer
	metrics *Metrics
	clock   clockwork.Clock
}

// WithParent sets the context the subscription spans are started from.
func WithParent(ctx context.Context) InstrumentOption {
	return func(c *instrumentConfig) { c.ctx = ctx }
}

// WithTracer overrides the global tracer.
func WithTracer(t trace.Tracer) InstrumentOption {
	return func(c *instrumentConfig) { c.tracer = t }
}

// WithMetrics records the stream instruments on m.
func WithMetrics(m *Metrics) InstrumentOption {
	return func(c *instrumentConfig) { c.metrics = m }
}

// WithInstrumentClock sets the clock used for subscription lifetimes.
func WithInstrumentClock(clock clockwork.Clock) InstrumentOption {
	return func(c *instrumentConfig) { c.clock = clock }
}

// Instrument traces every subscription to s as one span and records its
// notifications, outcome and lifetime. Values pass through unchanged.
func Instrument[T any](s *stream.Stream[T], name string, opts ...InstrumentOption) *stream.Stream[T] {
	cfg := instrumentConfig{
		ctx:    context.Background(),
		tracer: Tracer(defaultTracerName),
		clock:  clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return stream.Pipe(s, stream.OperatorFunc[T, T](func(next stream.Stage[T]) stream.Stage[T] {
		return &instrumentStage[T]{Link: stream.Link[T]{Next: next}, name: name, cfg: cfg}
	}))
}

type instrumentStage[T any] struct {
	stream.Link[T]
	name string
	cfg  instrumentConfig

	ctx      context.Context
	span     trace.Span
	started  time.Time
	notified int64
	end      sync.Once
}

func (s *instrumentStage[T]) Initialize(box *stream.Box) {
	s.started = s.cfg.clock.Now()
	s.ctx, s.span = s.cfg.tracer.Start(s.cfg.ctx, SpanSubscription,
		trace.WithAttributes(
			streamAttr(s.name),
			attribute.String(AttrSubscription, box.ID().String()),
		),
	)
	if s.cfg.metrics != nil {
		s.cfg.metrics.RecordSubscribe(s.ctx, s.name)
	}
	s.Link.Initialize(box)
}

func (s *instrumentStage[T]) OnNext(value T) {
	s.notified++
	if s.cfg.metrics != nil {
		s.cfg.metrics.RecordNotification(s.ctx, s.name)
	}
	s.Next.OnNext(value)
}

func (s *instrumentStage[T]) OnError(err error) {
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
	s.Next.OnError(err)
}

// Dispose runs once the subscription is released, whatever ended it.
func (s *instrumentStage[T]) Dispose() {
	s.end.Do(func() {
		outcome := outcomeOf(s.Box().State())
		s.span.SetAttributes(
			attribute.String(AttrOutcome, outcome),
			attribute.Int64(AttrNotified, s.notified),
		)
		s.span.End()
		if s.cfg.metrics != nil {
			s.cfg.metrics.RecordEnd(s.ctx, s.name, outcome, s.cfg.clock.Since(s.started))
		}
	})
	s.Link.Dispose()
}

func (s *instrumentStage[T]) Reference() stream.Reference { return s }

func outcomeOf(state stream.State) string {
	switch state {
	case stream.StateCompleted:
		return OutcomeCompleted
	case stream.StateFaulted:
		return OutcomeFaulted
	default:
		return OutcomeDisposed
	}
}
