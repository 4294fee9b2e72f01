package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kbukum/rxkit/logger"
)

// Phase names a point in the application lifecycle that hooks attach to.
type Phase string

const (
	PhaseStart Phase = "start" // after every component started
	PhaseReady Phase = "ready" // after the ready check, before the summary
	PhaseStop  Phase = "stop"  // before components are stopped
)

// Hook is a lifecycle callback.
type Hook func(ctx context.Context) error

// OnStart registers hooks for PhaseStart.
func (a *App) OnStart(hooks ...Hook) { a.hooks[PhaseStart] = append(a.hooks[PhaseStart], hooks...) }

// OnReady registers hooks for PhaseReady.
func (a *App) OnReady(hooks ...Hook) { a.hooks[PhaseReady] = append(a.hooks[PhaseReady], hooks...) }

// OnStop registers hooks for PhaseStop. They run in reverse registration
// order, so whatever was set up last is torn down first.
func (a *App) OnStop(hooks ...Hook) { a.hooks[PhaseStop] = append(a.hooks[PhaseStop], hooks...) }

// runPhase runs the hooks of one phase. Start and ready hooks stop at the
// first failure; stop hooks all run and their errors are joined.
func (a *App) runPhase(ctx context.Context, phase Phase) error {
	hooks := a.hooks[phase]
	if phase != PhaseStop {
		for i, h := range hooks {
			if err := h(ctx); err != nil {
				return fmt.Errorf("%s hook %d: %w", phase, i, err)
			}
		}
		return nil
	}

	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		if err := hooks[i](ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s hook %d: %w", phase, i, err))
		}
	}
	return errors.Join(errs...)
}

// Option configures an App before its logger is initialized.
type Option func(*App)

// WithLogger uses l instead of initializing the global logger from the
// config's logging section.
func WithLogger(l *logger.Logger) Option {
	return func(a *App) { a.Logger = l }
}

// WithGracefulTimeout bounds shutdown and rollback. Non-positive values
// keep DefaultGracefulTimeout.
func WithGracefulTimeout(d time.Duration) Option {
	return func(a *App) {
		if d > 0 {
			a.gracefulTimeout = d
		}
	}
}
