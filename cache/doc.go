// Package cache remembers instances built by a dependency-injection runtime
// so that later resolutions of the same binding in the same scope reuse them.
//
// Entries are keyed by binding identity and by the liveness token of their
// scope. When a scope ends, its entries stop being returned at once and are
// deactivated by the next pruning sweep. Disposing the cache stops the pruner
// and deactivates everything still held.
//
//	c := cache.New(activation.NewCloserPipeline(nil), cache.NewIntervalPruner(30*time.Second))
//	defer c.Dispose()
//
//	if err := c.Remember(activation.NewContext(binding, request, conn)); err != nil {
//	    return err
//	}
//	conn, ok, err := c.TryGet(binding, request)
package cache
