// Package bootstrap runs the artcache lifecycle: validated typed config,
// logger setup, component start in registration order, configure
// callbacks, hooks, a startup summary and graceful shutdown on signal.
//
//	app, err := bootstrap.NewApp(&cfg)
//	app.RegisterComponent(storageComponent)
//	app.OnConfigure(func(ctx context.Context, a *bootstrap.App[*Config]) error {
//	    return nil
//	})
//	err = app.Run(ctx)
//
// RunTask uses the same lifecycle for finite work such as CLI commands.
package bootstrap
