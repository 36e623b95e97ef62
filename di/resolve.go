package di

import (
	"context"
	"fmt"
)

// MustResolve resolves key with type safety, panicking on error.
//
//	db := di.MustResolve[*sql.DB](c, "db")
func MustResolve[T any](c *Container, key string) T {
	result, err := Resolve[T](c, key)
	if err != nil {
		panic(err.Error())
	}
	return result
}

// Resolve resolves key with type safety, returning an error on failure.
func Resolve[T any](c *Container, key string) (T, error) {
	return ResolveScoped[T](context.Background(), c, nil, key)
}

// ResolveScoped resolves key within scope with type safety.
func ResolveScoped[T any](ctx context.Context, c *Container, scope any, key string) (T, error) {
	var zero T
	instance, err := c.ResolveIn(ctx, scope, key)
	if err != nil {
		return zero, fmt.Errorf("di: failed to resolve %s: %w", key, err)
	}
	result, ok := instance.(T)
	if !ok {
		return zero, fmt.Errorf("di: component %s is %T, expected %T", key, instance, zero)
	}
	return result, nil
}

// TryResolve resolves key, returning the zero value and false on any failure.
// Use this when a dependency is optional.
func TryResolve[T any](c *Container, key string) (T, bool) {
	result, err := Resolve[T](c, key)
	if err != nil {
		var zero T
		return zero, false
	}
	return result, true
}
