package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kbukum/rxkit/component"
	"github.com/kbukum/rxkit/config"
	"github.com/kbukum/rxkit/logger"
)

// DefaultGracefulTimeout bounds shutdown when WithGracefulTimeout is not used.
const DefaultGracefulTimeout = 15 * time.Second

// App is a process with uniform lifecycle management.
type App struct {
	Name       string
	Version    string
	Cfg        *config.Config
	Components *component.Registry
	Logger     *logger.Logger
	Summary    *Summary

	gracefulTimeout time.Duration
	hooks           map[Phase][]Hook
}

// NewApp creates an application from cfg. It applies defaults, validates
// the config and initializes the logger.
func NewApp(cfg *config.Config, opts ...Option) (*App, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	app := &App{
		Name:            cfg.Base.Name,
		Version:         cfg.Base.Version,
		Cfg:             cfg,
		Components:      component.NewRegistry(),
		gracefulTimeout: DefaultGracefulTimeout,
		hooks:           make(map[Phase][]Hook),
	}
	for _, opt := range opts {
		opt(app)
	}
	if app.Logger == nil {
		logger.Init(cfg.Logging)
		app.Logger = logger.GetGlobalLogger()
	}

	app.Summary = NewSummary(app.Name, app.Version)
	return app, nil
}

// RegisterComponent adds a component to the application's registry.
func (a *App) RegisterComponent(c component.Component) error {
	return a.Components.Register(c)
}

// ReadyCheck returns an error naming every component that is not healthy.
func (a *App) ReadyCheck(ctx context.Context) error {
	var unhealthy []string
	for _, h := range a.Components.HealthAll(ctx) {
		if h.Status == component.StatusHealthy {
			continue
		}
		detail := h.Name + "=" + string(h.Status)
		if h.Message != "" {
			detail += "(" + h.Message + ")"
		}
		unhealthy = append(unhealthy, detail)
	}
	if len(unhealthy) > 0 {
		return fmt.Errorf("unhealthy components: %v", unhealthy)
	}
	return nil
}

// Run starts the application, blocks until a shutdown signal or ctx is
// done, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	if err := a.startup(ctx); err != nil {
		return err
	}
	a.Logger.Info("application ready, waiting for shutdown signal")
	a.WaitForSignal(ctx)
	return a.stop()
}

// RunTask starts the application, runs task and shuts down when it
// returns. SIGINT and SIGTERM cancel the task's context.
func (a *App) RunTask(ctx context.Context, task func(ctx context.Context) error) error {
	if err := a.startup(ctx); err != nil {
		return err
	}

	taskCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	taskErr := task(taskCtx)

	if stopErr := a.stop(); stopErr != nil && taskErr == nil {
		return stopErr
	}
	return taskErr
}

func (a *App) startup(ctx context.Context) error {
	start := time.Now()
	a.Logger.Info("starting application", logger.Fields("name", a.Name, "version", a.Version))

	if err := a.Components.StartAll(ctx); err != nil {
		a.rollback()
		return fmt.Errorf("initialization failed: %w", err)
	}
	if err := a.runPhase(ctx, PhaseStart); err != nil {
		a.rollback()
		return fmt.Errorf("onStart hook failed: %w", err)
	}
	if err := a.ReadyCheck(ctx); err != nil {
		a.Logger.Warn("ready check reported issues", logger.Fields(logger.FieldError, err.Error()))
	}
	if err := a.runPhase(ctx, PhaseReady); err != nil {
		a.rollback()
		return fmt.Errorf("onReady hook failed: %w", err)
	}

	a.Summary.SetStartupDuration(time.Since(start))
	a.Summary.Display(ctx, a.Components, a.Logger)
	return nil
}

// rollback stops whatever a failed startup already started.
func (a *App) rollback() {
	ctx, cancel := context.WithTimeout(context.Background(), a.gracefulTimeout)
	defer cancel()
	if err := a.Components.StopAll(ctx); err != nil {
		a.Logger.Error("rollback completed with errors", logger.Fields(logger.FieldError, err.Error()))
	}
}

// WaitForSignal blocks until SIGINT, SIGTERM or ctx cancellation.
func (a *App) WaitForSignal(ctx context.Context) os.Signal {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		a.Logger.Info("received shutdown signal", logger.Fields("signal", sig.String()))
		return sig
	case <-ctx.Done():
		a.Logger.Info("context canceled, shutting down")
		return nil
	}
}

// Shutdown performs graceful shutdown for callers managing their own
// lifecycle.
func (a *App) Shutdown() error {
	return a.stop()
}

func (a *App) stop() error {
	a.Logger.Info("shutting down application", logger.Fields("timeout", a.gracefulTimeout.String()))

	ctx, cancel := context.WithTimeout(context.Background(), a.gracefulTimeout)
	defer cancel()

	var shutdownErr error
	if err := a.runPhase(ctx, PhaseStop); err != nil {
		a.Logger.Error("onStop hook error", logger.Fields(logger.FieldError, err.Error()))
		shutdownErr = err
	}
	if err := a.Components.StopAll(ctx); err != nil {
		a.Logger.Error("shutdown completed with errors", logger.Fields(logger.FieldError, err.Error()))
		if shutdownErr == nil {
			shutdownErr = err
		}
	}

	a.Logger.Info("application shutdown complete")
	return shutdownErr
}
