// Package observability wires OpenTelemetry tracing and metrics into
// reactive streams.
//
// Setup installs OTLP/HTTP exporters from configuration:
//
//	shutdown, err := observability.Setup(ctx, cfg.Base, cfg.Observability)
//	defer shutdown(ctx)
//
// Instrument wraps a stream so that every subscription gets a span and
// contributes to the stream.* instruments:
//
//	metrics, _ := observability.NewMetrics(observability.Meter("rxkit"))
//	s = observability.Instrument(s, "orders.sorted", observability.WithMetrics(metrics))
package observability
