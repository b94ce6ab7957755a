package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tx-tracker/internal/model"
	"tx-tracker/internal/service/ledger"
)

func sampleTxs() []model.Transaction {
	now := time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC)
	return []model.Transaction{
		{Hash: "0x1", Status: model.StatusPending, CreatedAt: now, UpdatedAt: now},
		{Hash: "0x2", Status: model.StatusSuccess, CreatedAt: now, UpdatedAt: now.Add(time.Minute)},
	}
}

// exerciseStore 所有后端共用的行为检查
func exerciseStore(t *testing.T, s ledger.Store) {
	ctx := context.Background()

	txs, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, txs, "空存储返回空列表")

	require.NoError(t, s.Save(ctx, sampleTxs()))
	txs, err = s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, "0x1", txs[0].Hash)
	assert.Equal(t, model.StatusSuccess, txs[1].Status)
	assert.True(t, txs[1].UpdatedAt.Equal(sampleTxs()[1].UpdatedAt))
}

// exerciseOverwrite 快照语义的后端: Save 覆盖整个列表
func exerciseOverwrite(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	exerciseStore(t, s)

	require.NoError(t, s.Save(ctx, sampleTxs()[1:]))
	txs, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "0x2", txs[0].Hash)

	require.NoError(t, s.Save(ctx, nil))
	txs, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestFileStore(t *testing.T) {
	exerciseStore(t, NewFileStore(filepath.Join(t.TempDir(), "transactions.json")))
}

func TestFileStoreSaveMerges(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "transactions.json"))
	ctx := context.Background()
	now := time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.Save(ctx, []model.Transaction{
		{Hash: "0x1", Status: model.StatusPending, CreatedAt: now, UpdatedAt: now},
		{Hash: "0x2", Status: model.StatusFailed, CreatedAt: now, UpdatedAt: now},
	}))
	// 另一个进程只知道 0x1 (已确认) 和自己的 0x3, 而且把 0x2 看作 pending
	require.NoError(t, s.Save(ctx, []model.Transaction{
		{Hash: "0x3", Status: model.StatusPending, CreatedAt: now, UpdatedAt: now},
		{Hash: "0x1", Status: model.StatusSuccess, CreatedAt: now, UpdatedAt: now.Add(time.Minute)},
		{Hash: "0x2", Status: model.StatusPending, CreatedAt: now, UpdatedAt: now},
	}))
	// 空快照不会抹掉已有记录
	require.NoError(t, s.Save(ctx, nil))

	txs, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, txs, 3)
	assert.Equal(t, "0x1", txs[0].Hash)
	assert.Equal(t, model.StatusSuccess, txs[0].Status, "终态优先")
	assert.True(t, txs[0].UpdatedAt.Equal(now.Add(time.Minute)))
	assert.Equal(t, model.StatusFailed, txs[1].Status, "终态不会被 pending 覆盖")
	assert.Equal(t, "0x3", txs[2].Hash, "新记录追加在后")
}

func TestFileStoreReset(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "transactions.json"))
	ctx := context.Background()
	now := time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC)

	stale := []model.Transaction{{Hash: "0x1", Status: model.StatusPending, CreatedAt: now, UpdatedAt: now}}
	require.NoError(t, s.Save(ctx, stale))
	require.NoError(t, s.Reset(ctx, now.Add(time.Minute)))

	txs, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, txs)

	// 清空之前创建的记录不会复活，之后创建的正常保存
	fresh := model.Transaction{Hash: "0x2", Status: model.StatusPending, CreatedAt: now.Add(2 * time.Minute), UpdatedAt: now.Add(2 * time.Minute)}
	require.NoError(t, s.Save(ctx, append(stale, fresh)))
	txs, err = s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "0x2", txs[0].Hash)

	// 较早的清空时间不会回退
	require.NoError(t, s.Reset(ctx, now))
	require.NoError(t, s.Save(ctx, stale))
	txs, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestFileStoreSaveOverwritesCorrupted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transactions.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	s := NewFileStore(path)
	require.NoError(t, s.Save(context.Background(), sampleTxs()))
	txs, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, txs, 2)
}

func TestFileStoreCorrupted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transactions.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewFileStore(path).Load(context.Background())
	assert.Error(t, err)
}

func TestFileStoreFutureVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transactions.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version": 99, "transactions": []}`), 0o600))

	_, err := NewFileStore(path).Load(context.Background())
	assert.Error(t, err)
}

func TestFileStoreUnwritableDir(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "missing", "transactions.json"))
	assert.Error(t, s.Save(context.Background(), sampleTxs()))
}

// 两个实例共享同一个文件时，后启动的实例能恢复先前的状态
func TestFileStoreSharedBetweenLedgers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transactions.json")
	ctx := context.Background()

	a := ledger.New(NewFileStore(path), nil)
	a.Record(ctx, "0xabc")
	a.Resolve(ctx, "0xabc", model.StatusFailed)

	b := ledger.New(NewFileStore(path), nil)
	b.Load(ctx)
	tx, ok := b.Get("0xabc")
	require.True(t, ok)
	assert.Equal(t, model.StatusFailed, tx.Status)
}

// track 和 watch 各自是独立的进程，没有广播通道时也不能互相覆盖
func TestFileStoreConcurrentProcessesKeepRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transactions.json")
	ctx := context.Background()

	watch := ledger.New(NewFileStore(path), nil)
	watch.Load(ctx)
	track := ledger.New(NewFileStore(path), nil)
	track.Load(ctx)

	track.Record(ctx, "0xaaa")
	watch.Record(ctx, "0xbbb")
	watch.Resolve(ctx, "0xbbb", model.StatusSuccess)

	reloaded := ledger.New(NewFileStore(path), nil)
	reloaded.Load(ctx)
	txs := reloaded.List()
	require.Len(t, txs, 2)
	assert.Equal(t, "0xaaa", txs[0].Hash)
	assert.Equal(t, model.StatusPending, txs[0].Status)
	assert.Equal(t, "0xbbb", txs[1].Hash)
	assert.Equal(t, model.StatusSuccess, txs[1].Status)

	// 任一进程清空后，其他进程内存中的旧记录不会在下次写入时复活
	track.Clear(ctx)
	watch.Record(ctx, "0xccc")

	reloaded = ledger.New(NewFileStore(path), nil)
	reloaded.Load(ctx)
	assert.Equal(t, []string{"0xccc"}, hashesOf(reloaded.List()))
}

func hashesOf(txs []model.Transaction) []string {
	var out []string
	for _, tx := range txs {
		out = append(out, tx.Hash)
	}
	return out
}
