package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tx-tracker/internal/model"
)

// PostgresStore 每笔交易一行 (tracked_transactions)
type PostgresStore struct {
	db *gorm.DB
}

func NewPostgresStore(db *gorm.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Load(ctx context.Context) ([]model.Transaction, error) {
	var rows []model.TrackedTransaction
	if err := s.db.WithContext(ctx).Order("seq ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("查询交易记录失败: %w", err)
	}

	txs := make([]model.Transaction, 0, len(rows))
	for _, row := range rows {
		txs = append(txs, row.ToTransaction())
	}
	return txs, nil
}

// Save 在同一个事务中: 删除快照里已不存在的行，再 upsert 其余行
// upsert 不会把终态改回 pending
func (s *PostgresStore) Save(ctx context.Context, txs []model.Transaction) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(txs) == 0 {
			return tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.TrackedTransaction{}).Error
		}

		hashes := make([]string, 0, len(txs))
		rows := make([]model.TrackedTransaction, 0, len(txs))
		for i, t := range txs {
			hashes = append(hashes, t.Hash)
			rows = append(rows, model.TrackedTransaction{
				Hash:      t.Hash,
				Status:    t.Status.String(),
				Seq:       int64(i),
				CreatedAt: t.CreatedAt,
				UpdatedAt: t.UpdatedAt,
			})
		}

		if err := tx.Where("hash NOT IN ?", hashes).Delete(&model.TrackedTransaction{}).Error; err != nil {
			return err
		}

		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "hash"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"status": gorm.Expr("CASE WHEN tracked_transactions.status = ? THEN EXCLUDED.status ELSE tracked_transactions.status END",
					model.StatusPending.String()),
				"seq":        gorm.Expr("EXCLUDED.seq"),
				"updated_at": gorm.Expr("EXCLUDED.updated_at"),
			}),
		}).CreateInBatches(rows, 100).Error
	})
}
