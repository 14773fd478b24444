// Package bootstrap runs a service or a one-shot task with a uniform
// lifecycle: validate config, initialize logging, start components, run
// hooks, print a startup summary and shut down gracefully on signal.
//
//	app, err := bootstrap.NewApp(&cfg)
//	_ = app.RegisterComponent(srv)
//	err = app.Run(ctx)
package bootstrap
