package synchronizer

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tx-tracker/internal/service/chain"
	"tx-tracker/internal/service/ledger"
	"tx-tracker/pkg/logger"
	"tx-tracker/pkg/monitor"
	"tx-tracker/pkg/utils/lock"
)

const (
	defaultPollInterval = 5 * time.Second
	maxParallelLookups  = 8
	releaseTimeout      = 2 * time.Second
)

type PollerConfig struct {
	Interval time.Duration
	// LookupTimeout 单个回执查询的上限，默认等于 Interval; 超时计为该交易的一次查询失败
	LookupTimeout time.Duration
	// Lock 非空时每轮只有拿到锁的实例执行，其他实例依赖广播
	Lock    lock.DistributedLock
	LockKey string
}

// PollResult 一轮轮询的统计
type PollResult struct {
	Checked  int
	Resolved int
	Errors   int
	Skipped  bool
}

// Poller 定时把 pending 交易与链上回执对账
type Poller struct {
	ledger  *ledger.Ledger
	fetcher chain.ReceiptFetcher
	cfg     PollerConfig

	mu     sync.Mutex
	cron   *cron.Cron
	entry  cron.EntryID
	cancel context.CancelFunc
}

func NewPoller(l *ledger.Ledger, fetcher chain.ReceiptFetcher, cfg PollerConfig) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultPollInterval
	}
	if cfg.LookupTimeout <= 0 {
		cfg.LookupTimeout = cfg.Interval
	}
	if cfg.LockKey == "" {
		cfg.LockKey = "tracker:poll"
	}
	return &Poller{ledger: l, fetcher: fetcher, cfg: cfg}
}

// Start 注册定时任务; 重复调用无效果
// 上一轮还没结束时跳过本轮 (SkipIfStillRunning)
func (p *Poller) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cron != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := cron.New(
		cron.WithLogger(logger.NewCronLogger()),
		cron.WithChain(cron.SkipIfStillRunning(logger.NewCronLogger())),
	)
	p.entry = c.Schedule(cron.Every(p.cfg.Interval), cron.FuncJob(func() {
		p.PollOnce(ctx)
	}))
	c.Start()
	p.cron = c
	p.cancel = cancel

	logger.Info("Receipt poller started", zap.Duration("interval", p.cfg.Interval), zap.Bool("lock", p.cfg.Lock != nil))
}

// Stop 取消定时任务，等待正在执行的一轮结束后释放轮询锁
func (p *Poller) Stop() {
	p.mu.Lock()
	c, cancel := p.cron, p.cancel
	p.cron, p.cancel = nil, nil
	p.mu.Unlock()
	if c == nil {
		return
	}

	c.Remove(p.entry)
	cancel()
	<-c.Stop().Done()

	// 主动释放轮询锁，其他实例不必等到锁过期; 锁不属于自己时 Release 不生效
	if p.cfg.Lock != nil {
		ctx, done := context.WithTimeout(context.Background(), releaseTimeout)
		defer done()
		if err := p.cfg.Lock.Release(ctx, p.cfg.LockKey); err != nil {
			logger.Warn("释放轮询锁失败，等待自然过期", zap.Error(err))
		}
	}
	logger.Info("Receipt poller stopped")
}

// PollOnce 对所有 pending 交易各查询一次回执
// 单个查询失败只记录日志，不影响其他交易; 下一轮继续重试，不会因为查询失败把交易标记为 failed
func (p *Poller) PollOnce(ctx context.Context) PollResult {
	start := time.Now()
	defer func() { monitor.Tracker.ObservePoll(time.Since(start)) }()

	if p.cfg.Lock != nil {
		// 每轮结束不释放，持有一个周期后自然过期 (Stop 时才释放); 留一点余量给下一轮的持有者
		locked, err := p.cfg.Lock.Acquire(ctx, p.cfg.LockKey, p.cfg.Interval*9/10)
		switch {
		case err != nil:
			// 锁服务不可用时照常轮询，重复 Resolve 是无害的
			logger.Warn("获取轮询锁失败，继续本轮轮询", zap.Error(err))
		case !locked:
			logger.Debug("其他实例正在轮询，跳过本轮")
			return PollResult{Skipped: true}
		}
	}

	hashes := p.ledger.Pending()
	res := PollResult{Checked: len(hashes)}
	var mu sync.Mutex

	// 查询并发执行且各自有超时，一个卡住的查询不会拖住其他交易
	g := new(errgroup.Group)
	g.SetLimit(maxParallelLookups)
	for _, hash := range hashes {
		g.Go(func() error {
			resolved, err := p.check(ctx, hash)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.Errors++
				monitor.Tracker.LookupError()
				logger.Warn("查询交易回执失败，下一轮重试", zap.String("hash", hash), zap.Error(err))
				return nil
			}
			if resolved {
				res.Resolved++
			}
			return nil
		})
	}
	_ = g.Wait()

	if res.Checked > 0 {
		logger.Debug("轮询完成",
			zap.Int("checked", res.Checked),
			zap.Int("resolved", res.Resolved),
			zap.Int("errors", res.Errors),
		)
	}
	return res
}

func (p *Poller) check(ctx context.Context, hash string) (bool, error) {
	lookupCtx, cancel := context.WithTimeout(ctx, p.cfg.LookupTimeout)
	defer cancel()

	receipt, err := p.fetcher.TransactionReceipt(lookupCtx, hash)
	if err != nil {
		return false, err
	}
	if receipt == nil {
		return false, nil // 尚未打包
	}
	return p.ledger.Resolve(ctx, hash, receipt.Status), nil
}
