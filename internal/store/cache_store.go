package store

import (
	"context"
	"errors"
	"fmt"

	"tx-tracker/internal/model"
	"tx-tracker/pkg/cache"
)

// CacheStore 基于 pkg/cache 的存储 (MemoryCache 或 RedisCache)
// 多个实例共享同一个 Redis key 时即共享持久化状态
type CacheStore struct {
	c   cache.Cache
	key string
}

func NewCacheStore(c cache.Cache, key string) *CacheStore {
	return &CacheStore{c: c, key: key}
}

func (s *CacheStore) Load(ctx context.Context) ([]model.Transaction, error) {
	var snap snapshot
	err := s.c.Get(ctx, s.key, &snap)
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if snap.Version > snapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", snap.Version)
	}
	return snap.Transactions, nil
}

func (s *CacheStore) Save(ctx context.Context, txs []model.Transaction) error {
	return s.c.Set(ctx, s.key, snapshot{Version: snapshotVersion, Transactions: txs}, 0)
}
