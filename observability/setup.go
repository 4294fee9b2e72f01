package observability

import (
	"context"
	"errors"

	"github.com/kbukum/rxkit/config"
	"github.com/kbukum/rxkit/logger"
)

// ShutdownFunc flushes and stops the installed providers.
type ShutdownFunc func(ctx context.Context) error

// Setup installs the tracer and meter providers described by cfg. When
// export is disabled the global no-op providers stay in place and the
// returned shutdown does nothing.
func Setup(ctx context.Context, base config.BaseConfig, cfg config.ObservabilityConfig) (ShutdownFunc, error) {
	if !cfg.Enabled {
		logger.Get("observability").Debug("telemetry export disabled")
		return func(context.Context) error { return nil }, nil
	}

	tc := DefaultTracerConfig(base.Name)
	tc.ServiceVersion = base.Version
	tc.Environment = base.Environment
	tc.Endpoint = cfg.Endpoint
	tc.Insecure = cfg.Insecure
	tc.SampleRate = cfg.SampleRate

	tp, err := InitTracer(ctx, tc)
	if err != nil {
		return nil, err
	}

	mc := DefaultMeterConfig(base.Name)
	mc.ServiceVersion = base.Version
	mc.Environment = base.Environment
	mc.Endpoint = cfg.Endpoint
	mc.Insecure = cfg.Insecure
	mc.Interval = cfg.MetricInterval

	mp, err := InitMeter(ctx, mc)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, err
	}

	return func(ctx context.Context) error {
		return errors.Join(mp.Shutdown(ctx), tp.Shutdown(ctx))
	}, nil
}
