// Package bootstrap runs an rxkit process: it initializes logging from
// configuration, starts registered components in order, runs lifecycle
// hooks, logs a startup summary and shuts everything down on a signal or
// when a finite task returns.
//
//	app, err := bootstrap.NewApp(cfg)
//	app.RegisterComponent(server)
//	app.Run(ctx)
package bootstrap
