package lock

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// DistributedLock 定义分布式锁接口
type DistributedLock interface {
	// Acquire 尝试获取锁
	// key: 锁的唯一标识
	// ttl: 锁的过期时间
	// 返回: (是否成功, error)
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Release 释放锁 (只释放自己持有的锁)
	Release(ctx context.Context, key string) error
}

// releaseScript 仅当 value 属于自己时才删除，防止误删其他实例在锁过期后重新拿到的锁
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLock 基于 Redis SET NX 的实现
type RedisLock struct {
	client *redis.Client
	owner  string
}

// NewRedisLock owner 用于释放时校验归属，一般传实例 ID
func NewRedisLock(client *redis.Client, owner string) *RedisLock {
	return &RedisLock{client: client, owner: owner}
}

func (l *RedisLock) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return l.client.SetNX(ctx, "lock:"+key, l.owner, ttl).Result()
}

func (l *RedisLock) Release(ctx context.Context, key string) error {
	return releaseScript.Run(ctx, l.client, []string{"lock:" + key}, l.owner).Err()
}
