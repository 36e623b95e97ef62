package cache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/scopecache/activation"
	"github.com/kbukum/scopecache/errors"
	"github.com/kbukum/scopecache/liveness"
	"github.com/kbukum/scopecache/logger"
	"github.com/kbukum/scopecache/observability"
)

// Prunable is swept by a Pruner. Prune removes entries whose scope has
// ended, deactivates them and returns how many were deactivated.
type Prunable interface {
	Prune(ctx context.Context) int
}

// Pruner drives periodic sweeps of a cache. New calls StartPruning once;
// Dispose calls StopPruning once.
type Pruner interface {
	StartPruning(target Prunable)
	StopPruning()
}

type entry struct {
	binding  any
	token    *liveness.Token
	instance any
	origin   activation.Context
	// reason is set once the entry has left the store.
	reason      string
	deactivated bool
}

// bucket holds the entries of one scope, keyed by binding identity.
type bucket map[any]*entry

// Cache is the store of remembered instances.
type Cache struct {
	id        string
	pipeline  activation.Pipeline
	pruner    Pruner
	registry  *liveness.Registry
	log       *logger.Logger
	metrics   *observability.CacheMetrics
	batchSize int
	replace   ReplacePolicy
	interval  time.Duration

	mu       sync.RWMutex
	buckets  map[*liveness.Token]bucket
	size     int
	pending  []*entry
	disposed bool

	// dead holds ended tokens this cache had entries for, in end order.
	deadMu sync.Mutex
	dead   []*liveness.Token

	unsubscribe func()
	disposeOnce sync.Once

	hits       atomic.Int64
	misses     atomic.Int64
	remembered atomic.Int64
	evicted    atomic.Int64
	failures   atomic.Int64
	sweeps     atomic.Int64
}

// New creates a cache that deactivates through pipeline and is swept by
// pruner. pruner.StartPruning is called with the new cache before New
// returns. A nil pipeline defaults to a CloserPipeline and a nil pruner to an
// IntervalPruner on the WithPruneInterval interval, logging to the cache's
// logger.
func New(pipeline activation.Pipeline, pruner Pruner, opts ...Option) *Cache {
	c := &Cache{
		id:        uuid.NewString(),
		pipeline:  pipeline,
		pruner:    pruner,
		registry:  liveness.NewRegistry(),
		log:       logger.GetGlobalLogger(),
		batchSize: DefaultSweepBatchSize,
		buckets:   make(map[*liveness.Token]bucket),
	}
	for _, opt := range opts {
		opt(c)
	}
	base := c.log
	c.log = base.WithComponent("scopecache").WithFields(logger.Fields(logger.FieldCacheID, c.id))

	if c.pipeline == nil {
		c.pipeline = activation.NewCloserPipeline(base.WithComponent("activation"))
	}
	if c.pruner == nil {
		c.pruner = NewIntervalPruner(c.interval, WithPrunerLogger(base))
	}

	c.unsubscribe = c.registry.OnEnd(c.scopeEnded)
	c.pruner.StartPruning(c)
	return c
}

// ID returns the cache's unique identifier.
func (c *Cache) ID() string { return c.id }

// Registry returns the liveness registry scopes are tracked in.
func (c *Cache) Registry() *liveness.Registry { return c.registry }

// Remember stores ctx.Instance() as the instance for ctx.Binding() within
// ctx.GetScope(), replacing any instance already stored for that pair.
func (c *Cache) Remember(ctx activation.Context) error {
	if ctx == nil {
		return errors.InvalidArgument("context", "must not be nil")
	}
	binding := ctx.Binding()
	if err := liveness.CheckIdentity("binding", binding); err != nil {
		return err
	}

	c.mu.RLock()
	disposed := c.disposed
	c.mu.RUnlock()
	if disposed {
		return errors.AlreadyDisposed("cache")
	}

	token, err := c.registry.Track(ctx.GetScope())
	if err != nil {
		return err
	}

	e := &entry{binding: binding, token: token, instance: ctx.Instance(), origin: ctx}

	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return errors.AlreadyDisposed("cache")
	}
	b, ok := c.buckets[token]
	if !ok {
		b = make(bucket)
		c.buckets[token] = b
	}
	old, replaced := b[binding]
	b[binding] = e
	if !replaced {
		c.size++
	} else if c.replace == ReplaceDeactivate && !sameInstance(old.instance, e.instance) {
		c.unqueueReplaced(e)
		old.reason = observability.ReasonReplaced
		c.pending = append(c.pending, old)
	}
	c.mu.Unlock()

	// The scope may have ended between Track and the store; its OnEnd hook
	// then found no bucket to queue.
	if !token.Alive() {
		c.queueDead(token)
	}

	c.remembered.Add(1)
	c.metrics.RecordRemember(context.Background(), c.id)
	return nil
}

// TryGet returns the instance remembered for binding within scope. found is
// false when nothing was remembered, when the scope has ended, or when the
// cache is disposed. A row found dead is taken out of the store and left for
// the next sweep to deactivate.
func (c *Cache) TryGet(binding, scope any) (instance any, found bool, err error) {
	if err := liveness.CheckIdentity("binding", binding); err != nil {
		return nil, false, err
	}

	token, ok := c.registry.Lookup(scope)
	if !ok {
		return c.miss()
	}

	c.mu.RLock()
	if c.disposed {
		c.mu.RUnlock()
		return nil, false, nil
	}
	e := c.buckets[token][binding]
	c.mu.RUnlock()

	if e == nil {
		return c.miss()
	}
	if !token.Alive() {
		c.evictDead(token)
		return c.miss()
	}

	c.hits.Add(1)
	c.metrics.RecordLookup(context.Background(), c.id, true)
	return e.instance, true, nil
}

// unqueueReplaced drops pending replacements of e's key that hold e's
// instance, which is live again. Caller holds c.mu.
func (c *Cache) unqueueReplaced(e *entry) {
	kept := c.pending[:0]
	for _, p := range c.pending {
		if p.reason == observability.ReasonReplaced && p.token == e.token &&
			p.binding == e.binding && sameInstance(p.instance, e.instance) {
			continue
		}
		kept = append(kept, p)
	}
	clear(c.pending[len(kept):])
	c.pending = kept
}

// scopeEnded queues token for the next sweep when this cache has entries
// for it.
func (c *Cache) scopeEnded(token *liveness.Token) {
	c.mu.RLock()
	_, held := c.buckets[token]
	c.mu.RUnlock()
	if held {
		c.queueDead(token)
	}
}

func (c *Cache) queueDead(tokens ...*liveness.Token) {
	c.deadMu.Lock()
	c.dead = append(c.dead, tokens...)
	c.deadMu.Unlock()
}

func (c *Cache) takeDead() []*liveness.Token {
	c.deadMu.Lock()
	defer c.deadMu.Unlock()
	dead := c.dead
	c.dead = nil
	return dead
}

func (c *Cache) miss() (any, bool, error) {
	c.misses.Add(1)
	c.metrics.RecordLookup(context.Background(), c.id, false)
	return nil, false, nil
}

// evictDead moves the bucket of a dead token to the pending queue.
func (c *Cache) evictDead(token *liveness.Token) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed || token.Alive() {
		return
	}
	c.pending = append(c.pending, c.takeBucket(token, observability.ReasonPruned)...)
}

// takeBucket removes the bucket of token from the store. Caller holds c.mu.
func (c *Cache) takeBucket(token *liveness.Token, reason string) []*entry {
	b, ok := c.buckets[token]
	if !ok {
		return nil
	}
	delete(c.buckets, token)
	c.size -= len(b)

	out := make([]*entry, 0, len(b))
	for _, e := range b {
		e.reason = reason
		out = append(out, e)
	}
	return out
}

// Count returns the number of entries in the store. Entries taken out and
// waiting for deactivation are not counted.
func (c *Cache) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.size
}

// Clear removes and deactivates every entry of scope. It is the explicit
// counterpart of pruning for owners that tear a scope down themselves, and
// deactivates on the calling goroutine. Returns the number deactivated.
func (c *Cache) Clear(scope any) int {
	token, ok := c.registry.Lookup(scope)
	if !ok {
		return 0
	}

	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return 0
	}
	removed := c.takeBucket(token, observability.ReasonCleared)
	c.mu.Unlock()

	c.deactivateAll(context.Background(), removed)
	return len(removed)
}

// ClearAll removes and deactivates every entry, pending ones included,
// leaving the cache usable.
func (c *Cache) ClearAll() int {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return 0
	}
	removed := c.drain(observability.ReasonCleared)
	c.mu.Unlock()

	c.deactivateAll(context.Background(), removed)
	return len(removed)
}

// drain empties the store and the pending queue. Caller holds c.mu.
func (c *Cache) drain(reason string) []*entry {
	removed := c.pending
	c.pending = nil
	for token := range c.buckets {
		removed = append(removed, c.takeBucket(token, reason)...)
	}
	return removed
}

// Dispose stops the pruner, deactivates every remaining entry and clears
// the store. Further Remember calls fail with ALREADY_DISPOSED. Calling
// Dispose again is a no-op. Dispose waits for an in-flight sweep, so it
// must not be called from a Pipeline while that pipeline is deactivating
// entries of a sweep; it would deadlock.
func (c *Cache) Dispose() {
	c.disposeOnce.Do(func() {
		ctx, span := observability.StartSpan(context.Background(), observability.SpanDispose)
		defer span.End()

		c.mu.Lock()
		c.disposed = true
		c.mu.Unlock()

		c.pruner.StopPruning()
		c.unsubscribe()
		c.takeDead()

		c.mu.Lock()
		removed := c.drain(observability.ReasonDisposed)
		c.buckets = make(map[*liveness.Token]bucket)
		c.mu.Unlock()

		failed := c.deactivateAll(ctx, removed)
		c.log.Info("Cache disposed", logger.Fields(
			logger.FieldEvicted, len(removed),
			"failed", failed,
		))
	})
}

// Disposed reports whether Dispose has been called.
func (c *Cache) Disposed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.disposed
}

// deactivateAll deactivates entries outside the cache lock, isolating
// failures per entry. Returns the number of failures.
func (c *Cache) deactivateAll(ctx context.Context, entries []*entry) int {
	failed := 0
	byReason := make(map[string]int)
	for _, e := range entries {
		if e.deactivated {
			continue
		}
		e.deactivated = true
		byReason[e.reason]++

		if err := c.deactivate(e); err != nil {
			failed++
			c.failures.Add(1)
			c.metrics.RecordDeactivationFailure(ctx, c.id)
			observability.SetSpanError(ctx, err)
			c.log.WithError(err).Error("Deactivation failed", logger.Fields(
				logger.FieldBinding, fmt.Sprintf("%T", e.binding),
				logger.FieldScopeToken, e.token.String(),
				logger.FieldInstance, fmt.Sprintf("%T", e.instance),
				logger.FieldReason, e.reason,
			))
		}
	}
	for reason, n := range byReason {
		c.evicted.Add(int64(n))
		c.metrics.RecordEvictions(ctx, c.id, reason, n)
	}
	return failed
}

func (c *Cache) deactivate(e *entry) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.DeactivationFailed(e.instance, fmt.Errorf("panic: %v", r))
		}
	}()
	return c.pipeline.Deactivate(e.instance, e.origin)
}

// sameInstance compares by identity, treating non-comparable values as distinct.
func sameInstance(a, b any) (same bool) {
	defer func() {
		if recover() != nil {
			same = false
		}
	}()
	return a == b
}
