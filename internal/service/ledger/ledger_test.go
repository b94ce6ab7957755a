package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tx-tracker/internal/event"
	"tx-tracker/internal/model"
)

type memStore struct {
	mu    sync.Mutex
	txs   []model.Transaction
	saves int
	fail  bool
}

func (s *memStore) Load(ctx context.Context) ([]model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return nil, errors.New("disk unavailable")
	}
	return append([]model.Transaction(nil), s.txs...), nil
}

func (s *memStore) Save(ctx context.Context, txs []model.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("disk unavailable")
	}
	s.saves++
	s.txs = append([]model.Transaction(nil), txs...)
	return nil
}

func (s *memStore) setFail(v bool) {
	s.mu.Lock()
	s.fail = v
	s.mu.Unlock()
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []event.TransactionEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, ev event.TransactionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) kinds() []event.Kind {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []event.Kind
	for _, ev := range p.events {
		out = append(out, ev.Kind)
	}
	return out
}

func hashes(txs []model.Transaction) []string {
	var out []string
	for _, tx := range txs {
		out = append(out, tx.Hash)
	}
	return out
}

func TestRecordIsIdempotent(t *testing.T) {
	pub := &recordingPublisher{}
	l := New(nil, pub)
	ctx := context.Background()

	assert.True(t, l.Record(ctx, "0xabc"))
	assert.False(t, l.Record(ctx, "0xabc"), "重复记录应被忽略")

	txs := l.List()
	require.Len(t, txs, 1)
	assert.Equal(t, model.StatusPending, txs[0].Status)
	assert.Equal(t, []event.Kind{event.KindAdd}, pub.kinds(), "重复记录不应再次广播")
}

func TestRecordIgnoresEmptyHash(t *testing.T) {
	l := New(nil, nil)
	assert.False(t, l.Record(context.Background(), ""))
	assert.Equal(t, 0, l.Len())
}

func TestResolveIsMonotonic(t *testing.T) {
	pub := &recordingPublisher{}
	l := New(nil, pub)
	ctx := context.Background()

	l.Record(ctx, "0xabc")
	assert.True(t, l.Resolve(ctx, "0xabc", model.StatusSuccess))
	assert.False(t, l.Resolve(ctx, "0xabc", model.StatusFailed), "第一次终态转换生效")

	tx, ok := l.Get("0xabc")
	require.True(t, ok)
	assert.Equal(t, model.StatusSuccess, tx.Status)
	assert.Equal(t, []event.Kind{event.KindAdd, event.KindUpdate}, pub.kinds())
}

func TestResolveRejectsPendingOutcome(t *testing.T) {
	l := New(nil, nil)
	ctx := context.Background()
	l.Record(ctx, "0xabc")

	assert.False(t, l.Resolve(ctx, "0xabc", model.StatusPending))
	assert.False(t, l.Resolve(ctx, "0xabc", model.Status("mined")))
	tx, _ := l.Get("0xabc")
	assert.Equal(t, model.StatusPending, tx.Status)
}

func TestResolveUnknownHashIsNoop(t *testing.T) {
	pub := &recordingPublisher{}
	store := &memStore{}
	l := New(store, pub)
	ctx := context.Background()
	l.Record(ctx, "0xabc")
	before := l.List()

	assert.False(t, l.Resolve(ctx, "0xdoesnotexist", model.StatusSuccess))
	assert.Equal(t, before, l.List())
	assert.Equal(t, 1, store.saves, "无变更时不写存储")
	assert.Equal(t, []event.Kind{event.KindAdd}, pub.kinds())
}

func TestListKeepsInsertionOrder(t *testing.T) {
	l := New(nil, nil)
	ctx := context.Background()
	for _, h := range []string{"0x1", "0x2", "0x3"} {
		l.Record(ctx, h)
	}
	l.Resolve(ctx, "0x3", model.StatusSuccess)
	l.Resolve(ctx, "0x1", model.StatusFailed)

	assert.Equal(t, []string{"0x1", "0x2", "0x3"}, hashes(l.List()))
	assert.Equal(t, []string{"0x2"}, l.Pending())
}

func TestListReturnsCopy(t *testing.T) {
	l := New(nil, nil)
	l.Record(context.Background(), "0x1")

	txs := l.List()
	txs[0].Status = model.StatusFailed

	tx, _ := l.Get("0x1")
	assert.Equal(t, model.StatusPending, tx.Status)
}

func TestApplyDoesNotRebroadcast(t *testing.T) {
	pub := &recordingPublisher{}
	l := New(nil, pub)
	ctx := context.Background()

	assert.True(t, l.Apply(ctx, event.TransactionEvent{Kind: event.KindAdd, Hash: "0x1"}))
	assert.True(t, l.Apply(ctx, event.TransactionEvent{Kind: event.KindUpdate, Hash: "0x1", Outcome: model.StatusFailed}))
	// 重放同一消息收敛到同一状态
	assert.False(t, l.Apply(ctx, event.TransactionEvent{Kind: event.KindAdd, Hash: "0x1"}))
	assert.False(t, l.Apply(ctx, event.TransactionEvent{Kind: event.KindUpdate, Hash: "0x1", Outcome: model.StatusSuccess}))
	assert.False(t, l.Apply(ctx, event.TransactionEvent{Kind: "BOGUS"}))

	tx, _ := l.Get("0x1")
	assert.Equal(t, model.StatusFailed, tx.Status)
	assert.Empty(t, pub.kinds())

	assert.True(t, l.Apply(ctx, event.TransactionEvent{Kind: event.KindClear}))
	assert.Equal(t, 0, l.Len())
	assert.Empty(t, pub.kinds())
}

func TestClearBroadcasts(t *testing.T) {
	pub := &recordingPublisher{}
	store := &memStore{}
	l := New(store, pub)
	ctx := context.Background()

	l.Record(ctx, "0x1")
	l.Clear(ctx)

	assert.Empty(t, l.List())
	assert.Empty(t, store.txs)
	assert.Equal(t, []event.Kind{event.KindAdd, event.KindClear}, pub.kinds())

	// 清空后可以重新记录
	assert.True(t, l.Record(ctx, "0x1"))
}

type resettingStore struct {
	memStore
	resets []time.Time
}

func (s *resettingStore) Reset(ctx context.Context, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resets = append(s.resets, at)
	s.txs = nil
	return nil
}

func TestClearUsesResetter(t *testing.T) {
	clock := time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC)
	store := &resettingStore{}
	l := New(store, nil, WithClock(func() time.Time { return clock }))
	ctx := context.Background()

	l.Record(ctx, "0x1")
	saves := store.saves
	l.Clear(ctx)
	l.Apply(ctx, event.TransactionEvent{Kind: event.KindClear})

	assert.Equal(t, []time.Time{clock, clock}, store.resets)
	assert.Equal(t, saves, store.saves, "清空不走 Save")
	assert.Empty(t, store.txs)
}

func TestPersistAndReload(t *testing.T) {
	store := &memStore{}
	ctx := context.Background()

	a := New(store, nil)
	a.Record(ctx, "0x1")
	a.Record(ctx, "0x2")
	a.Resolve(ctx, "0x2", model.StatusSuccess)

	b := New(store, nil)
	b.Load(ctx)
	txs := b.List()
	require.Len(t, txs, 2)
	assert.Equal(t, []string{"0x1", "0x2"}, hashes(txs))
	assert.Equal(t, model.StatusSuccess, txs[1].Status)
}

func TestLoadDropsInvalidAndDuplicates(t *testing.T) {
	store := &memStore{txs: []model.Transaction{
		{Hash: "0x1", Status: model.StatusPending},
		{Hash: "0x1", Status: model.StatusSuccess},
		{Hash: "", Status: model.StatusPending},
		{Hash: "0x2", Status: "weird"},
		{Hash: "0x3", Status: model.StatusFailed},
	}}
	l := New(store, nil)
	l.Load(context.Background())

	txs := l.List()
	assert.Equal(t, []string{"0x1", "0x3"}, hashes(txs))
	assert.Equal(t, model.StatusPending, txs[0].Status)
}

func TestStorageFailureDegradesToMemory(t *testing.T) {
	store := &memStore{fail: true}
	ctx := context.Background()

	l := New(store, nil)
	l.Load(ctx) // 不应 panic
	assert.True(t, l.Record(ctx, "0x1"))
	assert.Equal(t, 1, l.Len(), "存储失败时状态保留在内存")
	assert.Empty(t, store.txs)

	// 存储恢复后，下一次变更写入完整快照
	store.setFail(false)
	l.Record(ctx, "0x2")
	assert.Equal(t, []string{"0x1", "0x2"}, hashes(store.txs))
}

func TestSubscribe(t *testing.T) {
	l := New(nil, nil)
	ctx := context.Background()

	var got []event.TransactionEvent
	unsubscribe := l.Subscribe(func(ev event.TransactionEvent) {
		// 回调内读取账本不应死锁
		_ = l.List()
		got = append(got, ev)
	})

	l.Record(ctx, "0x1")
	l.Apply(ctx, event.TransactionEvent{Kind: event.KindUpdate, Hash: "0x1", Outcome: model.StatusSuccess})
	unsubscribe()
	unsubscribe()
	l.Record(ctx, "0x2")

	require.Len(t, got, 2)
	assert.Equal(t, event.KindAdd, got[0].Kind)
	assert.Equal(t, event.KindUpdate, got[1].Kind)
	assert.Equal(t, model.StatusSuccess, got[1].Outcome)
}

func TestConcurrentRecordAndResolve(t *testing.T) {
	store := &memStore{}
	l := New(store, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			l.Record(ctx, "0xsame")
		}()
		go func(i int) {
			defer wg.Done()
			outcome := model.StatusSuccess
			if i%2 == 0 {
				outcome = model.StatusFailed
			}
			l.Resolve(ctx, "0xsame", outcome)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, l.Len())
	// 存储中的最终快照与内存一致
	assert.Equal(t, l.List(), store.txs)
}
