package cache

import (
	"github.com/kbukum/scopecache/activation"
	"github.com/kbukum/scopecache/config"
)

// NewFromConfig builds a cache swept by an IntervalPruner on
// cfg.PruneInterval. Options given explicitly override the ones derived
// from cfg.
func NewFromConfig(cfg config.CacheConfig, pipeline activation.Pipeline, opts ...Option) *Cache {
	cfg.ApplyDefaults()

	policy := ReplaceSilently
	if cfg.DeactivateReplaced {
		policy = ReplaceDeactivate
	}
	derived := []Option{
		WithPruneInterval(cfg.PruneInterval),
		WithSweepBatchSize(cfg.SweepBatchSize),
		WithReplacePolicy(policy),
	}
	return New(pipeline, nil, append(derived, opts...)...)
}
