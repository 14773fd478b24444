// Command streamd serves catalog files over HTTP through backpressured
// pipelines and streams run events to subscribers.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/kbukum/gostream/bootstrap"
	"github.com/kbukum/gostream/catalog"
	"github.com/kbukum/gostream/config"
	"github.com/kbukum/gostream/delivery"
	"github.com/kbukum/gostream/observability"
	"github.com/kbukum/gostream/pipeline"
	"github.com/kbukum/gostream/server"
	"github.com/kbukum/gostream/sse"
)

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "streamd: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var cfg Config
	if err := config.LoadConfig("streamd", &cfg); err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	app, err := bootstrap.NewApp(&cfg)
	if err != nil {
		return err
	}

	shutdownTelemetry, err := observability.Setup(ctx, cfg.Observability, cfg.Name, cfg.Version, cfg.Environment)
	if err != nil {
		return fmt.Errorf("observability setup: %w", err)
	}
	app.OnStop(func(ctx context.Context) error { return shutdownTelemetry(ctx) })

	httpMetrics, err := observability.NewMetrics(observability.Meter())
	if err != nil {
		return err
	}
	runMetrics, err := pipeline.NewMetrics(observability.Meter())
	if err != nil {
		return err
	}

	bus := pipeline.NewBus()
	files := catalog.NewOS(cfg.Catalog, app.Logger)
	hub := sse.NewHub(app.Logger)

	srv := server.New(cfg.Server, app.Logger)
	srv.ApplyMiddleware(httpMetrics)
	srv.RegisterDefaultEndpoints(cfg.Name, app.Components.HealthAll)

	deliveries := delivery.New(files, cfg.Pipeline,
		delivery.WithEvents(bus),
		delivery.WithMetrics(runMetrics),
		delivery.WithLogger(app.Logger),
		delivery.WithConcurrency(cfg.Server.MaxConcurrentDeliveries, cfg.Server.DeliveryWait),
	)
	deliveries.Register(srv.GinEngine(), cfg.Server.MaxBodySize)
	srv.RegisterOnShutdown(deliveries.Shutdown)
	srv.GinEngine().GET(cfg.Events.Path, sse.RunsHandler(hub, cfg.Events.KeepAlive))

	// Components stop in reverse order: the server first, so cancelled
	// deliveries publish their last events before the hub closes.
	if err := app.RegisterComponent(catalog.NewComponent(files)); err != nil {
		return err
	}
	if err := app.RegisterComponent(sse.NewComponent(hub, bus, cfg.Events.Path)); err != nil {
		return err
	}
	if err := app.RegisterComponent(server.NewComponent(srv)); err != nil {
		return err
	}

	return app.Run(ctx)
}
