package cache

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/scopecache/logger"
	"github.com/kbukum/scopecache/observability"
)

// Prune removes the entries of every ended scope and deactivates them along
// with any entries already queued by lookups or replacements. Ended scopes
// are handed over by the registry as they end, so a sweep never scans the
// store; the lock is held for one batch of scopes at a time. Cancelling ctx
// stops further batches and leaves the rest for the next sweep; entries
// already removed are still deactivated. Returns the number of entries
// deactivated.
func (c *Cache) Prune(ctx context.Context) int {
	start := time.Now()
	ctx, span := observability.StartSpan(ctx, observability.SpanPrune,
		trace.WithAttributes(attribute.String(observability.AttrCacheID, c.id)))
	defer span.End()

	if c.Disposed() {
		return 0
	}
	dead := c.takeDead()

	var removed []*entry
	swept := 0
	for swept < len(dead) {
		if ctx.Err() != nil {
			break
		}
		end := min(swept+c.batchSize, len(dead))

		c.mu.Lock()
		if c.disposed {
			c.mu.Unlock()
			break
		}
		for _, token := range dead[swept:end] {
			removed = append(removed, c.takeBucket(token, observability.ReasonPruned)...)
		}
		c.mu.Unlock()
		swept = end
	}
	if swept < len(dead) {
		c.queueDead(dead[swept:]...)
	}

	c.mu.Lock()
	if !c.disposed {
		removed = append(removed, c.pending...)
		c.pending = nil
	}
	c.mu.Unlock()

	failed := c.deactivateAll(ctx, removed)
	elapsed := time.Since(start)

	c.sweeps.Add(1)
	c.metrics.RecordSweep(ctx, c.id, elapsed)
	span.SetAttributes(attribute.Int(observability.AttrEvicted, len(removed)))

	fields := logger.MergeWithDuration(logger.Fields(
		logger.FieldEvicted, len(removed),
		"dead_scopes", swept,
		"failed", failed,
	), elapsed)
	if len(removed) > 0 {
		c.log.Info("Cache pruned", fields)
	} else {
		c.log.Debug("Cache pruned", fields)
	}
	return len(removed)
}

// Stats is a point-in-time view of a cache.
type Stats struct {
	ID                   string `json:"id"`
	Entries              int    `json:"entries"`
	Pending              int    `json:"pending"`
	Scopes               int    `json:"scopes"`
	Hits                 int64  `json:"hits"`
	Misses               int64  `json:"misses"`
	Remembered           int64  `json:"remembered"`
	Evicted              int64  `json:"evicted"`
	DeactivationFailures int64  `json:"deactivation_failures"`
	Sweeps               int64  `json:"sweeps"`
	Disposed             bool   `json:"disposed"`
}

// Stats returns current counters.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	s := Stats{
		ID:       c.id,
		Entries:  c.size,
		Pending:  len(c.pending),
		Scopes:   len(c.buckets),
		Disposed: c.disposed,
	}
	c.mu.RUnlock()

	s.Hits = c.hits.Load()
	s.Misses = c.misses.Load()
	s.Remembered = c.remembered.Load()
	s.Evicted = c.evicted.Load()
	s.DeactivationFailures = c.failures.Load()
	s.Sweeps = c.sweeps.Load()
	return s
}
