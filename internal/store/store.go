package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"tx-tracker/internal/service/ledger"
	"tx-tracker/pkg/cache"
	"tx-tracker/pkg/config"
)

var ErrUnknownDriver = errors.New("unknown store driver")

// Deps 按驱动需要提供的连接，未使用的可以为 nil
type Deps struct {
	Redis *redis.Client
	DB    *gorm.DB
}

// Open 根据 tracker.store 选择存储后端
func Open(cfg config.TrackerConfig, deps Deps) (ledger.Store, error) {
	switch cfg.Store {
	case "", "file":
		return NewFileStore(cfg.FilePath), nil
	case "memory":
		return NewCacheStore(cache.NewInstrumented(cache.NewMemoryCache(0, 10*time.Minute), "memory"), cfg.StorageKey), nil
	case "redis":
		if deps.Redis == nil {
			return nil, fmt.Errorf("store redis: redis client not configured")
		}
		return NewCacheStore(cache.NewInstrumented(cache.NewRedisCache(deps.Redis), "redis"), cfg.StorageKey), nil
	case "postgres":
		if deps.DB == nil {
			return nil, fmt.Errorf("store postgres: database not configured")
		}
		return NewPostgresStore(deps.DB), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, cfg.Store)
	}
}
