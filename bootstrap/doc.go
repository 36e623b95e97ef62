// Package bootstrap wires a service around a scope cache: configuration,
// logging, optional OpenTelemetry export, the cache component, a DI
// container backed by the cache and the optional admin server.
//
//	var cfg config.Config
//	if err := config.LoadConfig("orders", &cfg); err != nil {
//	    log.Fatal(err)
//	}
//	app, err := bootstrap.NewApp(&cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	app.OnStart(func(ctx context.Context) error {
//	    return app.Container.Register("db", openDB, di.Singleton)
//	})
//	if err := app.Run(context.Background()); err != nil {
//	    log.Fatal(err)
//	}
package bootstrap
