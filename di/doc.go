// Package di provides a small dependency injection container whose
// singleton and scoped instances live in a scope cache.
//
// Singletons are remembered in the cache's unscoped bucket, scoped
// instances in the bucket of the scope they were resolved in, and transient
// instances are built on every resolution and never remembered. Ending a
// scope deactivates what was built in it; closing the container deactivates
// everything else.
//
// # Registration
//
//	c := di.NewContainer()
//	c.Register("db", func(ctx context.Context) (*sql.DB, error) { ... }, di.Singleton)
//	c.Register("tx", func(c *di.Container) (*Tx, error) { ... }, di.Scoped)
//
// # Resolution
//
//	db := di.MustResolve[*sql.DB](c, "db")
//	tx, err := c.ResolveIn(ctx, request, "tx")
//	defer c.EndScope(request)
package di
