// Package observability provides OpenTelemetry tracing and metrics for the
// cache and its pruner.
//
// Tracing:
//
//	tp, err := observability.InitTracer(ctx, observability.DefaultTracerConfig("resolver"))
//	defer tp.Shutdown(ctx)
//
// Metrics:
//
//	mp, err := observability.InitMeter(ctx, observability.DefaultMeterConfig("resolver"))
//	defer mp.Shutdown(ctx)
//
//	metrics, err := observability.NewCacheMetrics(observability.Meter("scopecache"))
//	c := cache.New(pipeline, pruner, cache.WithMetrics(metrics))
package observability
