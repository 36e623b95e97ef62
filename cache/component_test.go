package cache_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/scopecache/activation"
	"github.com/kbukum/scopecache/cache"
	"github.com/kbukum/scopecache/cache/cachetest"
	"github.com/kbukum/scopecache/component"
	"github.com/kbukum/scopecache/config"
	"github.com/kbukum/scopecache/logger"
)

func TestComponentLifecycle(t *testing.T) {
	pipeline := cachetest.NewRecordingPipeline()
	comp := cache.NewComponent(config.CacheConfig{PruneInterval: time.Hour}, pipeline, logger.Nop())
	ctx := context.Background()

	if h := comp.Health(ctx); h.Status != component.StatusUnhealthy {
		t.Fatalf("health before start = %s", h.Status)
	}
	if err := comp.Stop(ctx); err != nil {
		t.Fatalf("Stop before start: %v", err)
	}

	if err := comp.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := comp.Start(ctx); err == nil {
		t.Fatal("second Start succeeded")
	}

	c := comp.Cache()
	i := cachetest.NewInstance("i")
	if err := c.Remember(activation.NewContext(cachetest.NewBinding("b"), cachetest.NewScope("s"), i)); err != nil {
		t.Fatalf("Remember: %v", err)
	}

	h := comp.Health(ctx)
	if h.Status != component.StatusHealthy || h.Details["entries"] != 1 {
		t.Fatalf("health while running = %+v", h)
	}

	if err := comp.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if !c.Disposed() || pipeline.Count(i) != 1 {
		t.Fatalf("stop did not dispose: disposed=%v deactivated=%d", c.Disposed(), pipeline.Count(i))
	}
	if h := comp.Health(ctx); h.Status != component.StatusUnhealthy {
		t.Errorf("health after stop = %s", h.Status)
	}
}

func TestComponentDegradedOnFailures(t *testing.T) {
	pipeline := cachetest.NewRecordingPipeline()
	comp := cache.NewComponent(config.CacheConfig{PruneInterval: time.Hour}, pipeline, logger.Nop())
	ctx := context.Background()
	if err := comp.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer comp.Stop(ctx)

	s, i := cachetest.NewScope("s"), cachetest.NewInstance("i")
	pipeline.PanicOn(i)
	c := comp.Cache()
	if err := c.Remember(activation.NewContext(cachetest.NewBinding("b"), s, i)); err != nil {
		t.Fatalf("Remember: %v", err)
	}
	c.Clear(s)

	if h := comp.Health(ctx); h.Status != component.StatusDegraded {
		t.Errorf("health = %s, want degraded", h.Status)
	}
}

func TestComponentDescribe(t *testing.T) {
	comp := cache.NewComponent(config.CacheConfig{
		PruneInterval:      time.Minute,
		SweepBatchSize:     16,
		DeactivateReplaced: true,
	}, nil, logger.Nop())

	desc := comp.Describe()
	if desc.Type != "cache" {
		t.Errorf("Type = %q", desc.Type)
	}
	for _, want := range []string{"prune=1m0s", "batch=16", "replace=deactivate"} {
		if !strings.Contains(desc.Details, want) {
			t.Errorf("Details %q missing %q", desc.Details, want)
		}
	}
}

func TestComponentInRegistry(t *testing.T) {
	pipeline := cachetest.NewRecordingPipeline()
	comp := cache.NewComponent(config.CacheConfig{}, pipeline, logger.Nop())
	reg := component.NewRegistry(logger.Nop())
	if err := reg.Register(comp); err != nil {
		t.Fatalf("Register: %v", err)
	}

	ctx := context.Background()
	if err := reg.StartAll(ctx); err != nil {
		t.Fatalf("StartAll: %v", err)
	}
	health := reg.HealthAll(ctx)
	if len(health) != 1 || health[0].Status != component.StatusHealthy {
		t.Fatalf("HealthAll = %+v", health)
	}
	if err := reg.StopAll(ctx); err != nil {
		t.Fatalf("StopAll: %v", err)
	}
	if !comp.Cache().Disposed() {
		t.Error("StopAll did not dispose the cache")
	}
}

func TestNewFromConfig(t *testing.T) {
	pipeline := cachetest.NewRecordingPipeline()
	c := cache.NewFromConfig(config.CacheConfig{
		PruneInterval:      time.Hour,
		SweepBatchSize:     1,
		DeactivateReplaced: true,
	}, pipeline, cache.WithLogger(logger.Nop()))
	defer c.Dispose()

	b, s := cachetest.NewBinding("b"), cachetest.NewScope("s")
	old := cachetest.NewInstance("old")
	if err := c.Remember(activation.NewContext(b, s, old)); err != nil {
		t.Fatalf("Remember: %v", err)
	}
	if err := c.Remember(activation.NewContext(b, s, cachetest.NewInstance("new"))); err != nil {
		t.Fatalf("Remember: %v", err)
	}

	if n := c.Prune(context.Background()); n != 1 {
		t.Fatalf("Prune = %d, want 1", n)
	}
	if pipeline.Count(old) != 1 {
		t.Errorf("superseded instance deactivated %d times, want 1", pipeline.Count(old))
	}
}
