package cmd

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"tx-tracker/internal/model"
	"tx-tracker/internal/service/chain"
	"tx-tracker/internal/service/ledger"
	"tx-tracker/internal/service/mq"
	"tx-tracker/internal/service/synchronizer"
	"tx-tracker/internal/store"
	"tx-tracker/pkg/config"
	"tx-tracker/pkg/database"
	"tx-tracker/pkg/logger"
)

// runtime 一个执行上下文: 账本、存储、广播以及按需建立的外部连接
type runtime struct {
	cfg      config.Config
	rdb      *redis.Client
	db       *gorm.DB
	eth      *ethclient.Client
	producer mq.Producer
	consumer mq.Consumer
	relay    *synchronizer.Relay
	ledger   *ledger.Ledger
}

// checkTopology redis / postgres 存储按快照覆盖写入，多个进程之间必须有广播通道
// file 存储在写入时与磁盘合并，可以搭配 memory
func checkTopology(tc config.TrackerConfig) error {
	shared := tc.Store == "redis" || tc.Store == "postgres"
	if shared && (tc.MQType == "" || tc.MQType == "memory") {
		return fmt.Errorf("tracker.store=%s requires tracker.mq_type redis or kafka: memory does not reach other processes", tc.Store)
	}
	return nil
}

// bootstrap 按配置建立连接并从存储恢复账本
// withChain 为 true 时连接 RPC 节点
func bootstrap(ctx context.Context, cfg config.Config, withChain bool) (*runtime, error) {
	tc := cfg.Tracker
	if err := checkTopology(tc); err != nil {
		return nil, err
	}
	rt := &runtime{cfg: cfg}

	// 1. Redis: 存储、广播或轮询锁任一使用时才连接
	if tc.Store == "redis" || tc.MQType == "redis" || tc.PollLock {
		rdb, err := database.ConnectRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, err
		}
		rt.rdb = rdb
	}

	// 2. PostgreSQL
	if tc.Store == "postgres" {
		db, err := database.ConnectPostgres(cfg.DB.DSN(), cfg.App.Env == "development")
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.db = db
		if cfg.App.Env == "development" {
			logger.Info("开发环境: 自动迁移 Schema (GORM AutoMigrate)...")
			if err := db.AutoMigrate(model.AllModels()...); err != nil {
				rt.Close()
				return nil, fmt.Errorf("auto migrate: %w", err)
			}
		} else {
			logger.Info("生产环境: 跳过 AutoMigrate，请使用 migrate 工具管理 Schema")
		}
	}

	// 3. 存储
	st, err := store.Open(tc, store.Deps{Redis: rt.rdb, DB: rt.db})
	if err != nil {
		rt.Close()
		return nil, err
	}

	// 4. 广播通道
	rt.producer, rt.consumer, err = mq.New(tc.MQType, mq.Deps{Redis: rt.rdb, Brokers: cfg.Kafka.Brokers})
	if err != nil {
		rt.Close()
		return nil, err
	}
	if tc.MQType == "" || tc.MQType == "memory" {
		logger.Warn("mq_type=memory: 变更不会实时同步到其他进程，只在下次启动时从存储恢复")
	}
	rt.relay = synchronizer.NewRelay(rt.producer, rt.consumer, tc.Topic)

	// 5. 账本
	rt.ledger = ledger.New(st, rt.relay)
	rt.ledger.Load(ctx)

	// 6. 链上节点
	if withChain {
		eth, err := ethclient.DialContext(ctx, cfg.Chain.RpcUrl)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("dial rpc %s: %w", cfg.Chain.RpcUrl, err)
		}
		rt.eth = eth
	}

	logger.Info("Execution context ready",
		zap.String("origin", rt.relay.Origin()),
		zap.String("store", tc.Store),
		zap.String("mq", tc.MQType),
		zap.Int("tracked", rt.ledger.Len()),
	)
	return rt, nil
}

func (rt *runtime) fetcher() chain.ReceiptFetcher {
	return chain.NewEthReceiptFetcher(rt.eth)
}

// Close 释放所有连接; 可以在部分初始化失败后调用
func (rt *runtime) Close() {
	if rt.relay != nil {
		rt.relay.Stop()
	}
	if rt.consumer != nil {
		if err := rt.consumer.Close(); err != nil {
			logger.Warn("关闭消费者失败", zap.Error(err))
		}
	}
	if c, ok := rt.producer.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			logger.Warn("关闭生产者失败", zap.Error(err))
		}
	}
	if rt.eth != nil {
		rt.eth.Close()
	}
	if rt.db != nil {
		if sqlDB, err := rt.db.DB(); err == nil {
			sqlDB.Close()
		}
	}
	if rt.rdb != nil {
		rt.rdb.Close()
	}
}
