package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"tx-tracker/internal/model"
	"tx-tracker/pkg/logger"
)

const snapshotVersion = 1

// snapshot 持久化格式 (file / memory / redis 共用)
type snapshot struct {
	Version      int                 `json:"version"`
	ClearedAt    time.Time           `json:"cleared_at,omitzero"`
	Transactions []model.Transaction `json:"transactions"`
}

// FileStore 把交易列表保存为本地 JSON 文件
// 写入先落临时文件再 rename，进程崩溃不会留下半个文件
//
// 同一个文件可能被多个进程 (watch / track / send) 同时使用，而它们之间不一定有广播通道，
// 所以 Save 与磁盘上的快照合并而不是覆盖:
//   - 按 Hash 取并集，保持磁盘上的先后顺序，新记录追加在后
//   - 同一 Hash 终态优先，终态之间先写入的为准
//   - 创建时间不晚于 cleared_at 的记录视为已被清空，合并时丢弃
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load(ctx context.Context) ([]model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	return decodeSnapshot(data)
}

func (s *FileStore) Save(ctx context.Context, txs []model.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	disk := s.readLocked()
	disk.Transactions = mergeTransactions(disk.Transactions, txs, disk.ClearedAt)
	return s.writeLocked(disk)
}

// Reset 清空文件并记录清空时间，其他进程内存中旧的记录不会在之后的 Save 中复活
func (s *FileStore) Reset(ctx context.Context, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	disk := s.readLocked()
	if at.After(disk.ClearedAt) {
		disk.ClearedAt = at
	}
	disk.Transactions = mergeTransactions(disk.Transactions, nil, disk.ClearedAt)
	return s.writeLocked(disk)
}

// readLocked 读取当前快照; 文件不存在或损坏时返回空快照，随后的写入会覆盖损坏的文件
func (s *FileStore) readLocked() snapshot {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Warn("读取交易快照失败，按空快照合并", zap.String("path", s.path), zap.Error(err))
		}
		return snapshot{}
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		logger.Warn("交易快照已损坏，将被覆盖", zap.String("path", s.path), zap.Error(err))
		return snapshot{}
	}
	return snap
}

func (s *FileStore) writeLocked(snap snapshot) error {
	snap.Version = snapshotVersion
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("rename %s: %w", s.path, err)
	}
	return nil
}

func mergeTransactions(base, incoming []model.Transaction, clearedAt time.Time) []model.Transaction {
	live := func(tx model.Transaction) bool {
		return tx.Hash != "" && (clearedAt.IsZero() || tx.CreatedAt.After(clearedAt))
	}

	out := make([]model.Transaction, 0, len(base)+len(incoming))
	index := make(map[string]int, len(base)+len(incoming))
	for _, list := range [][]model.Transaction{base, incoming} {
		for _, tx := range list {
			if !live(tx) {
				continue
			}
			i, ok := index[tx.Hash]
			if !ok {
				index[tx.Hash] = len(out)
				out = append(out, tx)
				continue
			}
			if out[i].Status == model.StatusPending && tx.Status.IsTerminal() {
				out[i].Status = tx.Status
				out[i].UpdatedAt = tx.UpdatedAt
			}
		}
	}
	return out
}

func decodeSnapshot(data []byte) ([]model.Transaction, error) {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.Version > snapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", snap.Version)
	}
	return snap.Transactions, nil
}
