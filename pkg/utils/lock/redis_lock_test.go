package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisLock(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	ctx := context.Background()

	a := NewRedisLock(client, "ctx-a")
	b := NewRedisLock(client, "ctx-b")

	ok, err := a.Acquire(ctx, "poll", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = b.Acquire(ctx, "poll", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "锁被 a 持有时 b 不能获取")

	// b 释放不属于自己的锁不生效
	require.NoError(t, b.Release(ctx, "poll"))
	assert.True(t, mr.Exists("lock:poll"))

	require.NoError(t, a.Release(ctx, "poll"))
	ok, err = b.Acquire(ctx, "poll", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLockExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	ctx := context.Background()

	a := NewRedisLock(client, "ctx-a")
	ok, err := a.Acquire(ctx, "poll", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)

	ok, err = NewRedisLock(client, "ctx-b").Acquire(ctx, "poll", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}
