package cache

import (
	"context"
	"errors"
	"time"

	"tx-tracker/pkg/monitor"
)

// Instrumented 包装一个 Cache，把每次操作按 backend / op / result 计入 tracker_storage_ops_total
// result: ok, miss, error
type Instrumented struct {
	inner   Cache
	backend string
}

func NewInstrumented(inner Cache, backend string) *Instrumented {
	return &Instrumented{inner: inner, backend: backend}
}

func (c *Instrumented) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	err := c.inner.Set(ctx, key, value, ttl)
	monitor.Tracker.StorageOp(c.backend, "set", result(err))
	return err
}

func (c *Instrumented) Get(ctx context.Context, key string, target interface{}) error {
	err := c.inner.Get(ctx, key, target)
	monitor.Tracker.StorageOp(c.backend, "get", result(err))
	return err
}

func (c *Instrumented) Delete(ctx context.Context, key string) error {
	err := c.inner.Delete(ctx, key)
	monitor.Tracker.StorageOp(c.backend, "delete", result(err))
	return err
}

func result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrCacheMiss):
		return "miss"
	default:
		return "error"
	}
}
