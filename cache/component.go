package cache

import (
	"context"
	"fmt"
	"sync"

	"github.com/kbukum/scopecache/activation"
	"github.com/kbukum/scopecache/component"
	"github.com/kbukum/scopecache/config"
	"github.com/kbukum/scopecache/logger"
)

// Component wraps a Cache and implements component.Component for lifecycle
// management.
type Component struct {
	cfg      config.CacheConfig
	pipeline activation.Pipeline
	opts     []Option
	log      *logger.Logger

	mu    sync.RWMutex
	cache *Cache
}

var _ component.Component = (*Component)(nil)
var _ component.Describable = (*Component)(nil)

// NewComponent creates a cache component. The cache is built on Start.
func NewComponent(cfg config.CacheConfig, pipeline activation.Pipeline, log *logger.Logger, opts ...Option) *Component {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	cfg.ApplyDefaults()
	return &Component{
		cfg:      cfg,
		pipeline: pipeline,
		opts:     append([]Option{WithLogger(log)}, opts...),
		log:      log.WithComponent("scopecache"),
	}
}

// Cache returns the underlying cache, or nil if not started.
func (c *Component) Cache() *Cache {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cache
}

// Name returns the component name.
func (c *Component) Name() string { return "scopecache" }

// Start builds the cache and starts its pruner.
func (c *Component) Start(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cache != nil {
		return fmt.Errorf("scopecache start: already started")
	}
	c.cache = NewFromConfig(c.cfg, c.pipeline, c.opts...)
	c.log.Info("Cache component started", logger.Fields(logger.FieldCacheID, c.cache.ID()))
	return nil
}

// Stop disposes the cache. Dispose waits for an in-flight sweep; if ctx
// ends first Stop returns ctx.Err() and disposal finishes in the background.
func (c *Component) Stop(ctx context.Context) error {
	c.mu.RLock()
	cache := c.cache
	c.mu.RUnlock()
	if cache == nil {
		return nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		cache.Dispose()
	}()

	select {
	case <-done:
		c.log.Info("Cache component stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scopecache stop: %w", ctx.Err())
	}
}

// Health reports healthy while the cache is active.
func (c *Component) Health(_ context.Context) component.Health {
	cache := c.Cache()
	if cache == nil {
		return component.Health{
			Name:    c.Name(),
			Status:  component.StatusUnhealthy,
			Message: "cache not started",
		}
	}

	stats := cache.Stats()
	if stats.Disposed {
		return component.Health{
			Name:    c.Name(),
			Status:  component.StatusUnhealthy,
			Message: "cache disposed",
		}
	}

	h := component.Health{
		Name:   c.Name(),
		Status: component.StatusHealthy,
		Details: map[string]any{
			"entries": stats.Entries,
			"pending": stats.Pending,
			"scopes":  stats.Scopes,
		},
	}
	if stats.DeactivationFailures > 0 {
		h.Status = component.StatusDegraded
		h.Message = fmt.Sprintf("%d deactivation failures", stats.DeactivationFailures)
	}
	return h
}

// Describe returns summary info for startup logging.
func (c *Component) Describe() component.Description {
	policy := ReplaceSilently
	if c.cfg.DeactivateReplaced {
		policy = ReplaceDeactivate
	}
	return component.Description{
		Name:    "Scope Cache",
		Type:    "cache",
		Details: fmt.Sprintf("prune=%s batch=%d replace=%s", c.cfg.PruneInterval, c.cfg.SweepBatchSize, policy),
	}
}
