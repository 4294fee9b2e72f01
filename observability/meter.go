package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/rxkit/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// DefaultMeterConfig returns sensible defaults for development.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "dev",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter installs a global meter provider exporting over OTLP/HTTP.
// The provider should be shut down on exit.
func InitMeter(ctx context.Context, config MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(config.Endpoint)}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	logger.Get("observability").Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))
	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds the instruments recorded for instrumented streams.
type Metrics struct {
	notifications metric.Int64Counter
	errors        metric.Int64Counter
	active        metric.Int64UpDownCounter
	duration      metric.Float64Histogram
}

// NewMetrics creates the stream instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	notifications, err := meter.Int64Counter("stream.notifications",
		metric.WithDescription("Values delivered to subscribers"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating stream.notifications counter: %w", err)
	}

	errs, err := meter.Int64Counter("stream.errors",
		metric.WithDescription("Subscriptions terminated by an error"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating stream.errors counter: %w", err)
	}

	active, err := meter.Int64UpDownCounter("stream.subscriptions.active",
		metric.WithDescription("Subscriptions currently attached"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating stream.subscriptions.active counter: %w", err)
	}

	duration, err := meter.Float64Histogram("stream.subscription.duration",
		metric.WithDescription("Lifetime of subscriptions in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating stream.subscription.duration histogram: %w", err)
	}

	return &Metrics{
		notifications: notifications,
		errors:        errs,
		active:        active,
		duration:      duration,
	}, nil
}

// RecordSubscribe counts a new subscription to the named stream.
func (m *Metrics) RecordSubscribe(ctx context.Context, name string) {
	m.active.Add(ctx, 1, metric.WithAttributes(streamAttr(name)))
}

// RecordNotification counts one delivered value.
func (m *Metrics) RecordNotification(ctx context.Context, name string) {
	m.notifications.Add(ctx, 1, metric.WithAttributes(streamAttr(name)))
}

// RecordEnd records how a subscription ended and how long it lived.
func (m *Metrics) RecordEnd(ctx context.Context, name, outcome string, lifetime time.Duration) {
	attrs := metric.WithAttributes(streamAttr(name), attribute.String(AttrOutcome, outcome))
	m.active.Add(ctx, -1, metric.WithAttributes(streamAttr(name)))
	m.duration.Record(ctx, lifetime.Seconds(), attrs)
	if outcome == OutcomeFaulted {
		m.errors.Add(ctx, 1, metric.WithAttributes(streamAttr(name)))
	}
}
