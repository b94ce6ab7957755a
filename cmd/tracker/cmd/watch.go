package cmd

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tx-tracker/internal/handler"
	"tx-tracker/internal/server"
	"tx-tracker/internal/service/synchronizer"
	"tx-tracker/internal/service/transfer"
	"tx-tracker/pkg/config"
	"tx-tracker/pkg/logger"
	"tx-tracker/pkg/utils/lock"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "启动常驻的追踪实例 (轮询 + 广播 + HTTP)",
	Long: `加载账本，订阅其他实例的广播，按 tracker.poll_interval 轮询 pending 交易的回执，
并在 app.http_port 上提供 REST 接口与 /metrics。收到 SIGINT/SIGTERM 后依次停止。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cfg := config.Global
		rt, err := bootstrap(ctx, cfg, true)
		if err != nil {
			return err
		}
		defer rt.Close()

		// 1. 订阅广播
		if err := rt.relay.Start(ctx, rt.ledger); err != nil {
			return err
		}

		// 2. 轮询
		pollCfg := synchronizer.PollerConfig{Interval: cfg.Tracker.PollInterval}
		if cfg.Tracker.PollLock {
			pollCfg.Lock = lock.NewRedisLock(rt.rdb, rt.relay.Origin())
			pollCfg.LockKey = cfg.Tracker.StorageKey + ":poll"
		}
		poller := synchronizer.NewPoller(rt.ledger, rt.fetcher(), pollCfg)
		poller.Start()
		defer poller.Stop()

		// 3. 可选的转账接口
		var sender handler.Transferer
		if key, err := transfer.LoadKey(cfg.Wallet); err == nil {
			s := transfer.NewSender(rt.eth, key, cfg.Chain.ChainID)
			sender = s
			logger.Info("转账接口已启用", zap.String("from", s.From().Hex()))
		} else if !errors.Is(err, transfer.ErrNoKey) {
			return err
		}

		// 4. HTTP (阻塞直到收到信号)
		r := server.NewHTTPRouter(
			handler.NewHealthHandler(rt.ledger, rt.relay.Origin()),
			handler.NewTransactionHandler(rt.ledger, sender, cfg.Chain.ExplorerUrl),
		)
		return server.New(server.Config{HttpPort: cfg.App.HttpPort}, r).Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
