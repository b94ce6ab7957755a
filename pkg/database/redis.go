package database

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"tx-tracker/pkg/logger"
)

// ConnectRedis 连接到 Redis
// addr: "localhost:6379"
func ConnectRedis(ctx context.Context, addr string, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("无法连接到 Redis: %w", err)
	}

	logger.Info("Redis 连接成功")
	return rdb, nil
}
