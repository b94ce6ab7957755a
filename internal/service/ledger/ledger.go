package ledger

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"tx-tracker/internal/event"
	"tx-tracker/internal/model"
	"tx-tracker/pkg/logger"
	"tx-tracker/pkg/monitor"
)

// Store 持久化整个交易列表 (快照语义: Save 覆盖, Load 读取)
type Store interface {
	Load(ctx context.Context) ([]model.Transaction, error)
	Save(ctx context.Context, txs []model.Transaction) error
}

// Resetter 可选接口，多个进程共享的存储实现它以记录清空时间
// 未实现时清空相当于 Save 一个空快照
type Resetter interface {
	Reset(ctx context.Context, at time.Time) error
}

// Publisher 把本地变更广播给其他实例
type Publisher interface {
	Publish(ctx context.Context, ev event.TransactionEvent) error
}

// Listener 账本变更回调，在账本锁释放之后调用
type Listener func(ev event.TransactionEvent)

type Option func(*Ledger)

// WithClock 测试时替换时间来源
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// Ledger 单个执行上下文内交易状态的唯一来源
// 核心约束:
// 1. Hash 唯一，重复 Record 无副作用
// 2. 状态单调: pending -> success | failed，终态不可再变
// 3. 列表保持首次记录的顺序
type Ledger struct {
	mu      sync.Mutex
	records []model.Transaction
	index   map[string]int
	gen     uint64

	store Store
	pub   Publisher
	now   func() time.Time

	// Save 串行化，savedGen 防止旧快照覆盖新快照
	persistMu sync.Mutex
	savedGen  uint64

	subMu     sync.RWMutex
	listeners map[int]Listener
	nextSub   int
}

// New store / pub 可以为 nil: 前者表示只在内存中保存，后者表示不广播
func New(store Store, pub Publisher, opts ...Option) *Ledger {
	l := &Ledger{
		index:     make(map[string]int),
		store:     store,
		pub:       pub,
		now:       time.Now,
		listeners: make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load 启动时从存储恢复状态; 失败时记录警告并以空账本运行
func (l *Ledger) Load(ctx context.Context) {
	if l.store == nil {
		return
	}
	txs, err := l.store.Load(ctx)
	if err != nil {
		logger.Warn("加载交易记录失败，本次会话仅保存在内存", zap.Error(err))
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = l.records[:0]
	l.index = make(map[string]int, len(txs))
	for _, tx := range txs {
		if tx.Hash == "" || !tx.Status.Valid() {
			logger.Warn("跳过无效的交易记录", zap.String("hash", tx.Hash), zap.String("status", tx.Status.String()))
			continue
		}
		if _, dup := l.index[tx.Hash]; dup {
			continue
		}
		l.index[tx.Hash] = len(l.records)
		l.records = append(l.records, tx)
	}
	monitor.Tracker.SetPending(l.pendingLocked())
	logger.Info("交易记录已恢复", zap.Int("count", len(l.records)))
}

// Record 新增一条 pending 记录; 已存在时什么也不做
// 返回是否发生了变更
func (l *Ledger) Record(ctx context.Context, hash string) bool {
	return l.record(ctx, hash, true)
}

// Resolve 把 pending 记录推进到终态; 记录不存在或已是终态时什么也不做
func (l *Ledger) Resolve(ctx context.Context, hash string, outcome model.Status) bool {
	return l.resolve(ctx, hash, outcome, true)
}

// Clear 清空账本并广播 CLEAR
func (l *Ledger) Clear(ctx context.Context) {
	l.clear(ctx, true)
}

// Apply 应用对端广播的变更，只在本地生效，不会再次广播
func (l *Ledger) Apply(ctx context.Context, ev event.TransactionEvent) bool {
	switch ev.Kind {
	case event.KindAdd:
		return l.record(ctx, ev.Hash, false)
	case event.KindUpdate:
		return l.resolve(ctx, ev.Hash, ev.Outcome, false)
	case event.KindClear:
		return l.clear(ctx, false)
	default:
		logger.Warn("未知的广播类型", zap.String("kind", string(ev.Kind)))
		return false
	}
}

func (l *Ledger) record(ctx context.Context, hash string, broadcast bool) bool {
	if hash == "" {
		return false
	}

	l.mu.Lock()
	if _, ok := l.index[hash]; ok {
		l.mu.Unlock()
		return false
	}
	now := l.now()
	l.index[hash] = len(l.records)
	l.records = append(l.records, model.Transaction{
		Hash:      hash,
		Status:    model.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	})
	gen, snap, pending := l.commitLocked()
	l.mu.Unlock()

	monitor.Tracker.Recorded()
	monitor.Tracker.SetPending(pending)
	logger.Info("开始追踪交易", zap.String("hash", hash), zap.Bool("local", broadcast))

	l.afterCommit(ctx, gen, snap, time.Time{}, event.TransactionEvent{Kind: event.KindAdd, Hash: hash}, broadcast)
	return true
}

func (l *Ledger) resolve(ctx context.Context, hash string, outcome model.Status, broadcast bool) bool {
	if !outcome.IsTerminal() {
		return false
	}

	l.mu.Lock()
	i, ok := l.index[hash]
	if !ok || l.records[i].Status != model.StatusPending {
		l.mu.Unlock()
		return false
	}
	l.records[i].Status = outcome
	l.records[i].UpdatedAt = l.now()
	gen, snap, pending := l.commitLocked()
	l.mu.Unlock()

	monitor.Tracker.Resolved(outcome.String())
	monitor.Tracker.SetPending(pending)
	logger.Info("交易状态已确定", zap.String("hash", hash), zap.String("status", outcome.String()), zap.Bool("local", broadcast))

	l.afterCommit(ctx, gen, snap, time.Time{}, event.TransactionEvent{Kind: event.KindUpdate, Hash: hash, Outcome: outcome}, broadcast)
	return true
}

func (l *Ledger) clear(ctx context.Context, broadcast bool) bool {
	l.mu.Lock()
	l.records = nil
	l.index = make(map[string]int)
	clearedAt := l.now()
	gen, snap, _ := l.commitLocked()
	l.mu.Unlock()

	monitor.Tracker.SetPending(0)
	logger.Info("交易记录已清空", zap.Bool("local", broadcast))

	l.afterCommit(ctx, gen, snap, clearedAt, event.TransactionEvent{Kind: event.KindClear}, broadcast)
	return true
}

// commitLocked 调用方必须持有 l.mu
func (l *Ledger) commitLocked() (uint64, []model.Transaction, int) {
	l.gen++
	return l.gen, l.snapshotLocked(), l.pendingLocked()
}

// clearedAt 非零表示这次变更是清空
func (l *Ledger) afterCommit(ctx context.Context, gen uint64, snap []model.Transaction, clearedAt time.Time, ev event.TransactionEvent, broadcast bool) {
	l.persist(ctx, gen, snap, clearedAt)
	l.notify(ev)

	if !broadcast || l.pub == nil {
		return
	}
	if err := l.pub.Publish(ctx, ev); err != nil {
		logger.Warn("广播交易变更失败", zap.String("kind", string(ev.Kind)), zap.String("hash", ev.Hash), zap.Error(err))
	}
}

// persist 写入完整快照; 失败只记录警告，下一次变更会带着完整状态重试
func (l *Ledger) persist(ctx context.Context, gen uint64, snap []model.Transaction, clearedAt time.Time) {
	if l.store == nil {
		return
	}

	l.persistMu.Lock()
	defer l.persistMu.Unlock()
	if gen <= l.savedGen {
		return // 更新的快照已经写入
	}
	var err error
	if r, ok := l.store.(Resetter); ok && !clearedAt.IsZero() {
		err = r.Reset(ctx, clearedAt)
	} else {
		err = l.store.Save(ctx, snap)
	}
	if err != nil {
		logger.Warn("持久化交易记录失败，状态保留在内存中", zap.Uint64("gen", gen), zap.Error(err))
		return
	}
	l.savedGen = gen
}

// Subscribe 注册变更回调，返回取消订阅函数
func (l *Ledger) Subscribe(fn Listener) (unsubscribe func()) {
	l.subMu.Lock()
	id := l.nextSub
	l.nextSub++
	l.listeners[id] = fn
	l.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.subMu.Lock()
			delete(l.listeners, id)
			l.subMu.Unlock()
		})
	}
}

func (l *Ledger) notify(ev event.TransactionEvent) {
	l.subMu.RLock()
	fns := make([]Listener, 0, len(l.listeners))
	for _, fn := range l.listeners {
		fns = append(fns, fn)
	}
	l.subMu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// List 按首次记录顺序返回快照
func (l *Ledger) List() []model.Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked()
}

func (l *Ledger) Get(hash string) (model.Transaction, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	i, ok := l.index[hash]
	if !ok {
		return model.Transaction{}, false
	}
	return l.records[i], true
}

// Pending 返回所有 pending 记录的 Hash，保持记录顺序
func (l *Ledger) Pending() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, tx := range l.records {
		if tx.Status == model.StatusPending {
			out = append(out, tx.Hash)
		}
	}
	return out
}

func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

func (l *Ledger) snapshotLocked() []model.Transaction {
	out := make([]model.Transaction, len(l.records))
	copy(out, l.records)
	return out
}

func (l *Ledger) pendingLocked() int {
	n := 0
	for _, tx := range l.records {
		if tx.Status == model.StatusPending {
			n++
		}
	}
	return n
}
