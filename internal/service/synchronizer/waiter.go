package synchronizer

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"tx-tracker/internal/model"
	"tx-tracker/internal/service/chain"
	"tx-tracker/internal/service/ledger"
	"tx-tracker/pkg/logger"
	"tx-tracker/pkg/monitor"
)

var errNotMined = errors.New("receipt not available yet")

type WaiterConfig struct {
	// Timeout 之后仍未确认则调用一次 Notice，状态保持 pending
	Timeout time.Duration
	Notice  func(hash string)

	InitialInterval time.Duration // 默认 1s
	MaxInterval     time.Duration // 默认 15s
}

// Waiter 提交后立即等待回执 (one-shot)
type Waiter struct {
	ledger  *ledger.Ledger
	fetcher chain.ReceiptFetcher
	cfg     WaiterConfig
}

func NewWaiter(l *ledger.Ledger, fetcher chain.ReceiptFetcher, cfg WaiterConfig) *Waiter {
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = time.Second
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = 15 * time.Second
	}
	return &Waiter{ledger: l, fetcher: fetcher, cfg: cfg}
}

// Wait 重试查询回执直到拿到结果或 ctx 结束
// 拿到回执后调用 Resolve 并返回终态; ctx 结束时返回 pending 和 ctx 的错误
func (w *Waiter) Wait(ctx context.Context, hash string) (model.Status, error) {
	if w.cfg.Timeout > 0 && w.cfg.Notice != nil {
		timer := time.AfterFunc(w.cfg.Timeout, func() {
			logger.Warn("交易长时间未确认", zap.String("hash", hash), zap.Duration("timeout", w.cfg.Timeout))
			w.cfg.Notice(hash)
		})
		defer timer.Stop()
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = w.cfg.InitialInterval
	b.MaxInterval = w.cfg.MaxInterval
	b.MaxElapsedTime = 0 // 由 ctx 控制

	var outcome model.Status
	operation := func() error {
		receipt, err := w.fetcher.TransactionReceipt(ctx, hash)
		if err != nil {
			monitor.Tracker.LookupError()
			logger.Debug("查询交易回执失败，稍后重试", zap.String("hash", hash), zap.Error(err))
			return err
		}
		if receipt == nil {
			return errNotMined
		}
		outcome = receipt.Status
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return model.StatusPending, err
	}

	w.ledger.Resolve(ctx, hash, outcome)
	return outcome, nil
}
