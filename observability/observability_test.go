package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/kbukum/rxkit/config"
	"github.com/kbukum/rxkit/stream"
)

type harness struct {
	spans   *tracetest.SpanRecorder
	reader  *sdkmetric.ManualReader
	metrics *Metrics
	opts    []InstrumentOption
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	metrics, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("unexpected error creating metrics: %v", err)
	}
	return &harness{
		spans:   spans,
		reader:  reader,
		metrics: metrics,
		opts:    []InstrumentOption{WithTracer(tp.Tracer("test")), WithMetrics(metrics)},
	}
}

// sum returns the total of an int64 sum instrument across data points.
func (h *harness) sum(t *testing.T, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := h.reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			if data, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range data.DataPoints {
					total += dp.Value
				}
			}
		}
	}
	return total
}

func attr(span sdktrace.ReadOnlySpan, key string) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestDefaultTracerConfig(t *testing.T) {
	cfg := DefaultTracerConfig("test-service")

	if cfg.ServiceName != "test-service" {
		t.Errorf("expected ServiceName 'test-service', got %s", cfg.ServiceName)
	}
	if cfg.Endpoint != "localhost:4318" {
		t.Errorf("expected Endpoint 'localhost:4318', got %s", cfg.Endpoint)
	}
	if cfg.SampleRate != 1.0 {
		t.Errorf("expected SampleRate 1.0, got %f", cfg.SampleRate)
	}
}

func TestDefaultMeterConfig(t *testing.T) {
	cfg := DefaultMeterConfig("test-service")
	if cfg.Interval != 15*time.Second {
		t.Errorf("expected Interval 15s, got %v", cfg.Interval)
	}
}

func TestNewMetrics_Noop(t *testing.T) {
	metrics, err := NewMetrics(noop.NewMeterProvider().Meter("test"))
	if err != nil {
		t.Fatalf("unexpected error creating metrics: %v", err)
	}
	ctx := context.Background()
	metrics.RecordSubscribe(ctx, "s")
	metrics.RecordNotification(ctx, "s")
	metrics.RecordEnd(ctx, "s", OutcomeFaulted, time.Millisecond)
}

func TestSampler(t *testing.T) {
	if got := sampler(1).Description(); got != sdktrace.AlwaysSample().Description() {
		t.Errorf("rate 1: got %s", got)
	}
	if got := sampler(0).Description(); got != sdktrace.NeverSample().Description() {
		t.Errorf("rate 0: got %s", got)
	}
}

func TestInstrument_Completed(t *testing.T) {
	h := newHarness(t)
	var got []int
	box := stream.SubscribeFuncs(Instrument(stream.Just(1, 2, 3), "numbers", h.opts...),
		func(v int) { got = append(got, v) }, nil, nil)

	if !box.Released() {
		t.Fatal("expected released subscription")
	}
	if len(got) != 3 {
		t.Errorf("got %v, want 3 values", got)
	}

	ended := h.spans.Ended()
	if len(ended) != 1 {
		t.Fatalf("got %d spans, want 1", len(ended))
	}
	span := ended[0]
	if span.Name() != SpanSubscription {
		t.Errorf("got span %q, want %q", span.Name(), SpanSubscription)
	}
	if v, _ := attr(span, AttrOutcome); v.AsString() != OutcomeCompleted {
		t.Errorf("got outcome %q, want %q", v.AsString(), OutcomeCompleted)
	}
	if v, _ := attr(span, AttrNotified); v.AsInt64() != 3 {
		t.Errorf("got notified %d, want 3", v.AsInt64())
	}
	if v, _ := attr(span, AttrSubscription); v.AsString() != box.ID().String() {
		t.Errorf("got subscription %q, want %q", v.AsString(), box.ID())
	}

	if n := h.sum(t, "stream.notifications"); n != 3 {
		t.Errorf("got %d notifications, want 3", n)
	}
	if n := h.sum(t, "stream.subscriptions.active"); n != 0 {
		t.Errorf("got %d active, want 0", n)
	}
}

func TestInstrument_Faulted(t *testing.T) {
	h := newHarness(t)
	boom := errors.New("boom")
	var failure error
	stream.SubscribeFuncs(Instrument(stream.Fail[int](boom), "failing", h.opts...),
		nil, func(err error) { failure = err }, nil)

	if !errors.Is(failure, boom) {
		t.Errorf("got %v, want %v", failure, boom)
	}
	ended := h.spans.Ended()
	if len(ended) != 1 {
		t.Fatalf("got %d spans, want 1", len(ended))
	}
	if ended[0].Status().Code != codes.Error {
		t.Errorf("got status %v, want error", ended[0].Status().Code)
	}
	if v, _ := attr(ended[0], AttrOutcome); v.AsString() != OutcomeFaulted {
		t.Errorf("got outcome %q, want %q", v.AsString(), OutcomeFaulted)
	}
	if n := h.sum(t, "stream.errors"); n != 1 {
		t.Errorf("got %d errors, want 1", n)
	}
}

func TestInstrument_Disposed(t *testing.T) {
	h := newHarness(t)
	subject := stream.NewSubject[string]()
	box := stream.SubscribeFuncs(Instrument(subject.Stream(), "live", h.opts...), nil, nil, nil)

	subject.OnNext("a")
	if n := h.sum(t, "stream.subscriptions.active"); n != 1 {
		t.Errorf("got %d active, want 1", n)
	}
	if len(h.spans.Ended()) != 0 {
		t.Error("expected no ended span while subscribed")
	}

	box.Dispose()
	box.Dispose()

	ended := h.spans.Ended()
	if len(ended) != 1 {
		t.Fatalf("got %d spans, want 1", len(ended))
	}
	if v, _ := attr(ended[0], AttrOutcome); v.AsString() != OutcomeDisposed {
		t.Errorf("got outcome %q, want %q", v.AsString(), OutcomeDisposed)
	}
	if n := h.sum(t, "stream.subscriptions.active"); n != 0 {
		t.Errorf("got %d active, want 0", n)
	}
	if subject.HasObservers() {
		t.Error("expected subject to lose its observer")
	}
}

func TestInstrument_SpanPerSubscription(t *testing.T) {
	h := newHarness(t)
	s := Instrument(stream.Just("x"), "shared", h.opts...)
	stream.SubscribeFuncs(s, nil, nil, nil)
	stream.SubscribeFuncs(s, nil, nil, nil)

	if got := len(h.spans.Ended()); got != 2 {
		t.Errorf("got %d spans, want 2", got)
	}
}

func TestSetup_Disabled(t *testing.T) {
	shutdown, err := Setup(context.Background(), config.BaseConfig{Name: "svc"}, config.ObservabilityConfig{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("unexpected shutdown error: %v", err)
	}
}

func TestStartSpan(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "test-operation")
	defer span.End()
	if ctx == nil {
		t.Fatal("expected non-nil context")
	}
}
