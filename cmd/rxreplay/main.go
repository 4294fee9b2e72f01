// Command rxreplay replays a script of list edits through ordered and
// grouped live views and prints the result, or serves the views over
// Server-Sent Events while the script plays.
//
//	rxreplay [--config config.yml] [--serve] [--pace 500ms] script.yml
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"

	"github.com/kbukum/rxkit/bootstrap"
	"github.com/kbukum/rxkit/component"
	"github.com/kbukum/rxkit/config"
	"github.com/kbukum/rxkit/logger"
	"github.com/kbukum/rxkit/observability"
	"github.com/kbukum/rxkit/sse"
	"github.com/kbukum/rxkit/version"
)

const name = "rxreplay"

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, name+":", err)
		os.Exit(1)
	}
}

type options struct {
	configFile string
	envFile    string
	serve      bool
	pace       time.Duration
	version    bool
	script     string
}

func parseFlags(args []string) (*options, error) {
	var o options
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.StringVar(&o.configFile, "config", "", "config file (default: search standard locations)")
	fs.StringVar(&o.envFile, "env-file", "", ".env file (default: search standard locations)")
	fs.BoolVar(&o.serve, "serve", false, "serve the views over SSE and keep running after the replay")
	fs.DurationVar(&o.pace, "pace", 0, "delay between steps")
	fs.BoolVar(&o.version, "version", false, "print the version and exit")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if o.version {
		return &o, nil
	}
	if fs.NArg() != 1 {
		return nil, fmt.Errorf("usage: %s [flags] <script.yml>", name)
	}
	o.script = fs.Arg(0)
	return &o, nil
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	opts, err := parseFlags(args)
	if errors.Is(err, pflag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}
	if opts.version {
		_, err := fmt.Fprintln(stdout, name, version.Get())
		return err
	}

	var loadOpts []config.LoaderOption
	if opts.configFile != "" {
		loadOpts = append(loadOpts, config.WithConfigFile(opts.configFile))
	}
	if opts.envFile != "" {
		loadOpts = append(loadOpts, config.WithEnvFile(opts.envFile))
	}
	cfg, err := config.Load(name, loadOpts...)
	if err != nil {
		return err
	}
	if cfg.Base.Version == "" {
		cfg.Base.Version = version.Get().Short()
	}
	script, err := LoadScript(opts.script)
	if err != nil {
		return err
	}

	app, err := bootstrap.NewApp(cfg)
	if err != nil {
		return err
	}

	shutdown, err := observability.Setup(ctx, cfg.Base, cfg.Observability)
	if err != nil {
		return err
	}
	app.OnStop(func(ctx context.Context) error { return shutdown(ctx) })

	metrics, err := observability.NewMetrics(observability.Meter(name))
	if err != nil {
		return err
	}
	replayer, err := NewReplayer(script, WithInstrumentation(observability.WithMetrics(metrics)))
	if err != nil {
		return err
	}
	defer replayer.Close()

	if !opts.serve {
		return app.RunTask(ctx, func(ctx context.Context) error {
			if err := replayer.Run(ctx, script.Steps, opts.pace); err != nil {
				return err
			}
			awaitCtx, cancel := context.WithTimeout(ctx, cfg.Stream.AwaitTimeout)
			defer cancel()
			return replayer.Print(awaitCtx, stdout)
		})
	}

	if err := serve(app, replayer); err != nil {
		return err
	}
	app.OnReady(func(context.Context) error {
		go func() {
			log := logger.Get(name)
			if err := replayer.Run(ctx, script.Steps, opts.pace); err != nil {
				log.Error("replay failed", logger.ErrorFields("replay", err))
				return
			}
			log.Info("replay finished", logger.Fields("size", replayer.List().Len()))
		}()
		return nil
	})
	return app.Run(ctx)
}

// serve registers one feed component per view and the SSE server that
// mounts them.
func serve(app *bootstrap.App, replayer *Replayer) error {
	cfg := app.Cfg
	hub := sse.NewHub()
	server := sse.NewServer(cfg.SSE, hub)

	feeds := replayer.Feeds(hub,
		sse.WithKeepAlive(cfg.SSE.KeepAlive),
		sse.WithClientBuffer(cfg.SSE.ClientBuffer),
	)
	for _, feed := range feeds {
		if err := app.RegisterComponent(feed); err != nil {
			return err
		}
		server.Mount(feed)
	}
	server.Engine().GET("/healthz", healthHandler(app.Components))
	if err := app.RegisterComponent(server); err != nil {
		return err
	}

	settled := replayer.Settled(cfg.Stream.ThrottleQuiet)
	app.OnStop(func(context.Context) error {
		for _, d := range settled {
			d.Dispose()
		}
		return nil
	})
	return nil
}

func healthHandler(registry *component.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		all := registry.HealthAll(c.Request.Context())
		status := component.Status(all)
		code := http.StatusOK
		if status == component.StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{"status": status, "components": all})
	}
}
