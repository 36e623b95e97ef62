package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/scopecache/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	// ServiceName is the name of the service.
	ServiceName string
	// ServiceVersion is the version of the service.
	ServiceVersion string
	// Environment is the deployment environment (dev, staging, prod).
	Environment string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	// Insecure allows insecure connections (for development).
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// DefaultMeterConfig returns sensible defaults for development.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "1.0.0",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter initializes the OpenTelemetry meter provider.
// Returns a MeterProvider that should be shut down on application exit.
func InitMeter(ctx context.Context, config *MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(newResource(config.ServiceName, config.ServiceVersion, config.Environment)),
	)

	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Eviction reasons recorded on scopecache.evictions.
const (
	ReasonPruned   = "pruned"
	ReasonDisposed = "disposed"
	ReasonCleared  = "cleared"
	ReasonReplaced = "replaced"
)

// CacheMetrics holds the instruments recorded by a scope cache. A nil
// *CacheMetrics records nothing.
type CacheMetrics struct {
	lookups              metric.Int64Counter
	remembered           metric.Int64Counter
	evictions            metric.Int64Counter
	deactivationFailures metric.Int64Counter
	sweepDuration        metric.Float64Histogram
}

// NewCacheMetrics creates the cache instruments on the given meter.
func NewCacheMetrics(meter metric.Meter) (*CacheMetrics, error) {
	lookups, err := meter.Int64Counter("scopecache.lookups",
		metric.WithDescription("Cache lookups by result"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating scopecache.lookups counter: %w", err)
	}

	remembered, err := meter.Int64Counter("scopecache.remembered",
		metric.WithDescription("Instances stored in the cache"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating scopecache.remembered counter: %w", err)
	}

	evictions, err := meter.Int64Counter("scopecache.evictions",
		metric.WithDescription("Instances deactivated and removed from the cache, by reason"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating scopecache.evictions counter: %w", err)
	}

	failures, err := meter.Int64Counter("scopecache.deactivation.failures",
		metric.WithDescription("Deactivation calls that returned an error"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating scopecache.deactivation.failures counter: %w", err)
	}

	sweepDuration, err := meter.Float64Histogram("scopecache.sweep.duration",
		metric.WithDescription("Duration of pruning sweeps in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating scopecache.sweep.duration histogram: %w", err)
	}

	return &CacheMetrics{
		lookups:              lookups,
		remembered:           remembered,
		evictions:            evictions,
		deactivationFailures: failures,
		sweepDuration:        sweepDuration,
	}, nil
}

// RecordLookup records one TryGet.
func (m *CacheMetrics) RecordLookup(ctx context.Context, cacheID string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.lookups.Add(ctx, 1, metric.WithAttributes(
		attribute.String("cache.id", cacheID),
		attribute.String("result", result),
	))
}

// RecordRemember records one stored instance.
func (m *CacheMetrics) RecordRemember(ctx context.Context, cacheID string) {
	if m == nil {
		return
	}
	m.remembered.Add(ctx, 1, metric.WithAttributes(attribute.String("cache.id", cacheID)))
}

// RecordEvictions records n instances leaving the cache for reason.
func (m *CacheMetrics) RecordEvictions(ctx context.Context, cacheID, reason string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.evictions.Add(ctx, int64(n), metric.WithAttributes(
		attribute.String("cache.id", cacheID),
		attribute.String("reason", reason),
	))
}

// RecordDeactivationFailure records one failed deactivation.
func (m *CacheMetrics) RecordDeactivationFailure(ctx context.Context, cacheID string) {
	if m == nil {
		return
	}
	m.deactivationFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("cache.id", cacheID)))
}

// RecordSweep records the duration of one pruning sweep.
func (m *CacheMetrics) RecordSweep(ctx context.Context, cacheID string, d time.Duration) {
	if m == nil {
		return
	}
	m.sweepDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("cache.id", cacheID)))
}
