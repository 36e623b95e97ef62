package cache

import (
	"time"

	"github.com/kbukum/scopecache/liveness"
	"github.com/kbukum/scopecache/logger"
	"github.com/kbukum/scopecache/observability"
)

// DefaultSweepBatchSize is the number of dead scopes removed per lock hold.
const DefaultSweepBatchSize = 256

// ReplacePolicy decides what happens to the instance superseded when a
// binding is remembered again in a live scope.
type ReplacePolicy int

const (
	// ReplaceSilently drops the superseded instance without deactivating it.
	ReplaceSilently ReplacePolicy = iota
	// ReplaceDeactivate queues the superseded instance for deactivation on
	// the next sweep.
	ReplaceDeactivate
)

func (p ReplacePolicy) String() string {
	switch p {
	case ReplaceSilently:
		return "silent"
	case ReplaceDeactivate:
		return "deactivate"
	default:
		return "unknown"
	}
}

// Option configures a Cache.
type Option func(*Cache)

// WithRegistry shares a liveness registry with the caller, who then ends
// scopes through it.
func WithRegistry(r *liveness.Registry) Option {
	return func(c *Cache) {
		if r != nil {
			c.registry = r
		}
	}
}

// WithLogger sets the logger. The cache tags it with its component name.
func WithLogger(l *logger.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.log = l
		}
	}
}

// WithMetrics records cache activity on m.
func WithMetrics(m *observability.CacheMetrics) Option {
	return func(c *Cache) { c.metrics = m }
}

// WithSweepBatchSize bounds how many dead scopes a sweep removes per lock hold.
func WithSweepBatchSize(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

// WithPruneInterval sets the interval of the IntervalPruner New builds when
// it is given no pruner. It has no effect on a pruner passed to New.
func WithPruneInterval(d time.Duration) Option {
	return func(c *Cache) { c.interval = d }
}

// WithReplacePolicy sets the policy for superseded instances.
func WithReplacePolicy(p ReplacePolicy) Option {
	return func(c *Cache) { c.replace = p }
}
