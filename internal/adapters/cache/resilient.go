package cache

import (
	"context"

	"github.com/mkarlsen/equiploan/internal/ports"
	"github.com/mkarlsen/equiploan/internal/resilience"
)

// Resilient decorates a ports.Cache with a resilience executor. Transient
// Redis failures are retried under the cache backoff policy, and a server
// that keeps failing trips the breaker so requests stop waiting on it.
type Resilient struct {
	inner ports.Cache
	exec  *resilience.Executor
}

// NewResilient wraps inner with the given executor.
func NewResilient(inner ports.Cache, exec *resilience.Executor) *Resilient {
	return &Resilient{inner: inner, exec: exec}
}

func cachectx(operation string) resilience.Context {
	return resilience.Context{Component: "cache", Operation: operation}
}

// Get implements ports.Cache.
func (r *Resilient) Get(ctx context.Context, key string) ([]byte, error) {
	return resilience.Run(ctx, r.exec, func(ctx context.Context) ([]byte, error) {
		return r.inner.Get(ctx, key)
	}, cachectx("cache_get"))
}

// Set implements ports.Cache.
func (r *Resilient) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	_, err := resilience.Run(ctx, r.exec, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, r.inner.Set(ctx, key, value, ttlSeconds)
	}, cachectx("cache_set"))

	return err
}

// Delete implements ports.Cache.
func (r *Resilient) Delete(ctx context.Context, key string) error {
	_, err := resilience.Run(ctx, r.exec, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, r.inner.Delete(ctx, key)
	}, cachectx("cache_delete"))

	return err
}

// DeletePrefix implements ports.Cache.
func (r *Resilient) DeletePrefix(ctx context.Context, prefix string) error {
	_, err := resilience.Run(ctx, r.exec, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, r.inner.DeletePrefix(ctx, prefix)
	}, cachectx("cache_delete_prefix"))

	return err
}

var _ ports.Cache = (*Resilient)(nil)
