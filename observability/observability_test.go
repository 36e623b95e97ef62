package observability

import (
	"context"
	"fmt"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestDefaultTracerConfig(t *testing.T) {
	cfg := DefaultTracerConfig("test-service")

	if cfg.ServiceName != "test-service" {
		t.Errorf("expected ServiceName 'test-service', got %s", cfg.ServiceName)
	}
	if cfg.Endpoint != "localhost:4318" {
		t.Errorf("expected Endpoint 'localhost:4318', got %s", cfg.Endpoint)
	}
	if cfg.SampleRate != 1.0 {
		t.Errorf("expected SampleRate 1.0, got %f", cfg.SampleRate)
	}
}

func TestDefaultMeterConfig(t *testing.T) {
	cfg := DefaultMeterConfig("test-service")
	if cfg.Interval != 15*time.Second {
		t.Errorf("expected Interval 15s, got %v", cfg.Interval)
	}
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect failed: %v", err)
	}
	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumWhere(t *testing.T, m metricdata.Metrics, key, value string) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("%s: expected int64 sum, got %T", m.Name, m.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		if key == "" {
			total += dp.Value
			continue
		}
		if v, ok := dp.Attributes.Value(attribute.Key(key)); ok && v.AsString() == value {
			total += dp.Value
		}
	}
	return total
}

func TestCacheMetricsRecording(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())

	m, err := NewCacheMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewCacheMetrics failed: %v", err)
	}

	ctx := context.Background()
	m.RecordLookup(ctx, "c1", true)
	m.RecordLookup(ctx, "c1", true)
	m.RecordLookup(ctx, "c1", false)
	m.RecordRemember(ctx, "c1")
	m.RecordEvictions(ctx, "c1", ReasonPruned, 3)
	m.RecordEvictions(ctx, "c1", ReasonDisposed, 0)
	m.RecordDeactivationFailure(ctx, "c1")
	m.RecordSweep(ctx, "c1", 20*time.Millisecond)

	got := collect(t, reader)
	if n := sumWhere(t, got["scopecache.lookups"], "result", "hit"); n != 2 {
		t.Errorf("expected 2 hits, got %d", n)
	}
	if n := sumWhere(t, got["scopecache.lookups"], "result", "miss"); n != 1 {
		t.Errorf("expected 1 miss, got %d", n)
	}
	if n := sumWhere(t, got["scopecache.remembered"], "", ""); n != 1 {
		t.Errorf("expected 1 remembered, got %d", n)
	}
	if n := sumWhere(t, got["scopecache.evictions"], "reason", ReasonPruned); n != 3 {
		t.Errorf("expected 3 pruned evictions, got %d", n)
	}
	if n := sumWhere(t, got["scopecache.evictions"], "reason", ReasonDisposed); n != 0 {
		t.Errorf("expected zero-count evictions to be skipped, got %d", n)
	}
	if n := sumWhere(t, got["scopecache.deactivation.failures"], "", ""); n != 1 {
		t.Errorf("expected 1 failure, got %d", n)
	}
	if _, ok := got["scopecache.sweep.duration"].Data.(metricdata.Histogram[float64]); !ok {
		t.Errorf("expected sweep duration histogram, got %T", got["scopecache.sweep.duration"].Data)
	}
}

func TestCacheMetricsNilIsNoop(t *testing.T) {
	var m *CacheMetrics
	ctx := context.Background()
	m.RecordLookup(ctx, "c", true)
	m.RecordRemember(ctx, "c")
	m.RecordEvictions(ctx, "c", ReasonCleared, 1)
	m.RecordDeactivationFailure(ctx, "c")
	m.RecordSweep(ctx, "c", time.Second)
}

func TestStartSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(prev)

	ctx, span := StartSpan(context.Background(), SpanPrune)
	SetSpanError(ctx, fmt.Errorf("deactivation failed"))
	span.End()

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Name() != SpanPrune {
		t.Errorf("expected span %q, got %q", SpanPrune, spans[0].Name())
	}
	if len(spans[0].Events()) != 1 {
		t.Errorf("expected recorded error event, got %d events", len(spans[0].Events()))
	}
}

func TestSetSpanErrorNoSpan(t *testing.T) {
	SetSpanError(context.Background(), fmt.Errorf("no span"))
}

func TestSampler(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{1.0, "AlwaysOnSampler"},
		{0, "AlwaysOffSampler"},
	}
	for _, tc := range tests {
		if got := sampler(tc.rate).Description(); got != tc.want {
			t.Errorf("sampler(%v) = %q, want %q", tc.rate, got, tc.want)
		}
	}
	if got := sampler(0.5).Description(); got == "AlwaysOnSampler" || got == "AlwaysOffSampler" {
		t.Errorf("expected ratio sampler, got %q", got)
	}
}

func TestInitTracer(t *testing.T) {
	tp, err := InitTracer(context.Background(), DefaultTracerConfig("test-service"))
	if err != nil {
		t.Fatalf("InitTracer failed: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_ = tp.Shutdown(ctx)
}

func TestInitMeter(t *testing.T) {
	cfg := DefaultMeterConfig("test-service")
	mp, err := InitMeter(context.Background(), &cfg)
	if err != nil {
		t.Fatalf("InitMeter failed: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_ = mp.Shutdown(ctx)
}
