// Package observability wires OpenTelemetry tracing and metrics.
//
// Setup installs OTLP HTTP exporters for both signals and returns a single
// shutdown function:
//
//	shutdown, err := observability.Setup(ctx, cfg.Observability, cfg.Name, cfg.Version, cfg.Environment)
//	defer shutdown(ctx)
//
//	ctx, span := observability.StartSpan(ctx, "pipeline.run")
//	defer span.End()
//
// HTTP request instruments live in Metrics; pipeline instruments are kept
// next to the controller in package pipeline. Both accept any metric.Meter,
// so tests pass a noop or a manual-reader meter.
package observability
