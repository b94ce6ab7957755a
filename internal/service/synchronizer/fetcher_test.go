package synchronizer

import (
	"context"
	"sync"

	"tx-tracker/internal/model"
	"tx-tracker/internal/service/chain"
)

// fakeFetcher 按 hash 返回预设的回执或错误
type fakeFetcher struct {
	mu       sync.Mutex
	receipts map[string]model.Status
	errs     map[string]error
	hang     map[string]bool
	calls    map[string]int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		receipts: make(map[string]model.Status),
		errs:     make(map[string]error),
		hang:     make(map[string]bool),
		calls:    make(map[string]int),
	}
}

func (f *fakeFetcher) TransactionReceipt(ctx context.Context, hash string) (*chain.Receipt, error) {
	f.mu.Lock()
	f.calls[hash]++
	if f.hang[hash] {
		f.mu.Unlock()
		<-ctx.Done() // 模拟无响应的节点
		return nil, ctx.Err()
	}
	defer f.mu.Unlock()
	if err, ok := f.errs[hash]; ok {
		return nil, err
	}
	status, ok := f.receipts[hash]
	if !ok {
		return nil, nil
	}
	return &chain.Receipt{Hash: hash, Status: status}, nil
}

func (f *fakeFetcher) mine(hash string, status model.Status) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.errs, hash)
	f.receipts[hash] = status
}

func (f *fakeFetcher) fail(hash string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[hash] = err
}

// block 让该 hash 的查询一直挂起直到 ctx 结束
func (f *fakeFetcher) block(hash string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hang[hash] = true
}

func (f *fakeFetcher) callCount(hash string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[hash]
}
