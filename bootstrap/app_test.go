package bootstrap

import (
	"context"
	"errors"
	"net"
	"net/http"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/kbukum/scopecache/cache/cachetest"
	"github.com/kbukum/scopecache/config"
	"github.com/kbukum/scopecache/di"
	"github.com/kbukum/scopecache/logger"
	"github.com/kbukum/scopecache/observability"
)

func testConfig() *config.Config {
	return &config.Config{
		Name:  "test-service",
		Cache: config.CacheConfig{PruneInterval: time.Hour},
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestNewAppValidatesConfig(t *testing.T) {
	_, err := NewApp(&config.Config{}, WithLogger(logger.Nop()))
	if err == nil {
		t.Fatal("expected validation error for missing name")
	}
}

func TestNewAppShutsDownMeterWhenTracerFails(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	origMeter, origTracer := initMeter, initTracer
	t.Cleanup(func() { initMeter, initTracer = origMeter, origTracer })

	initMeter = func(context.Context, *observability.MeterConfig) (*sdkmetric.MeterProvider, error) {
		return sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)), nil
	}
	initTracer = func(context.Context, observability.TracerConfig) (*sdktrace.TracerProvider, error) {
		return nil, errors.New("exporter unavailable")
	}

	cfg := testConfig()
	cfg.Telemetry.Enabled = true
	if _, err := NewApp(cfg, WithLogger(logger.Nop())); err == nil {
		t.Fatal("expected NewApp to fail when the tracer cannot start")
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err == nil {
		t.Error("meter provider still collecting after failed telemetry init")
	}
}

func TestAppLifecycle(t *testing.T) {
	pipeline := cachetest.NewRecordingPipeline()
	app, err := NewApp(testConfig(), WithLogger(logger.Nop()), WithPipeline(pipeline))
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}

	var order []string
	app.OnStart(func(ctx context.Context) error {
		order = append(order, "start")
		return app.Container.Register("svc", func() *cachetest.Instance {
			return cachetest.NewInstance("svc")
		}, di.Scoped)
	})
	app.OnStop(func(ctx context.Context) error {
		order = append(order, "stop")
		return nil
	})

	ctx := context.Background()
	if err := app.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if app.Admin != nil {
		t.Error("admin server started while disabled")
	}

	scope := cachetest.NewScope("request")
	inst, err := di.ResolveScoped[*cachetest.Instance](ctx, app.Container, scope, "svc")
	if err != nil {
		t.Fatalf("ResolveScoped failed: %v", err)
	}

	if err := app.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if !app.Cache.Cache().Disposed() {
		t.Error("cache not disposed on stop")
	}
	if pipeline.Count(inst) != 1 {
		t.Errorf("scoped instance deactivated %d times, want 1", pipeline.Count(inst))
	}
	if len(order) != 2 || order[0] != "start" || order[1] != "stop" {
		t.Errorf("hook order = %v", order)
	}
}

func TestAppStartHookFailure(t *testing.T) {
	app, err := NewApp(testConfig(), WithLogger(logger.Nop()))
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	boom := errors.New("boom")
	app.OnStart(func(context.Context) error { return boom })

	if err := app.Run(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("Run = %v, want hook error", err)
	}
	if !app.Cache.Cache().Disposed() {
		t.Error("cache not disposed after failed start")
	}
}

func TestAppWithAdmin(t *testing.T) {
	cfg := testConfig()
	cfg.Admin = config.AdminConfig{Enabled: true, Host: "127.0.0.1", Port: freePort(t)}

	app, err := NewApp(cfg, WithLogger(logger.Nop()), WithGracefulTimeout(2*time.Second))
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}

	addrCh := make(chan string, 1)
	app.OnStart(func(context.Context) error {
		addrCh <- app.Admin.Addr()
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	var addr string
	select {
	case addr = <-addrCh:
	case err := <-done:
		t.Fatalf("Run returned early: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("admin server never started")
	}

	client := &http.Client{Timeout: time.Second}
	resp, err := client.Get("http://" + addr + "/cache/health")
	if err != nil {
		cancel()
		t.Fatalf("GET health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
