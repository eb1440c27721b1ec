// Package observability wires OpenTelemetry tracing and metrics.
//
// Setup installs OTLP/HTTP exporters when enabled and otherwise leaves the
// global no-op providers in place, so instrumented code never checks a flag:
//
//	shutdown, err := observability.Setup(ctx, cfg, "yttext", version.Get().Version, "production")
//	defer shutdown(ctx)
//
// Pipeline stages are wrapped with StartStage, which opens a span and
// records the stage duration on End:
//
//	ctx, stage := observability.StartStage(ctx, metrics, observability.SpanJobDownload)
//	err := download(ctx)
//	stage.End(ctx, err)
//
// Metrics methods are safe on a nil *Metrics.
package observability
