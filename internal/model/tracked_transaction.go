package model

import "time"

// TrackedTransaction 交易追踪表 (Postgres 存储后端)
// Seq 保存首次记录的顺序，读取时按 Seq 排序
type TrackedTransaction struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Hash      string    `gorm:"type:varchar(66);not null;uniqueIndex" json:"hash"`
	Status    string    `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"` // pending, success, failed
	Seq       int64     `gorm:"not null;index" json:"seq"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (TrackedTransaction) TableName() string {
	return "tracked_transactions"
}

// AllModels 返回所有需要迁移的数据库模型对象
func AllModels() []interface{} {
	return []interface{}{
		&TrackedTransaction{},
	}
}

func (t TrackedTransaction) ToTransaction() Transaction {
	return Transaction{
		Hash:      t.Hash,
		Status:    Status(t.Status),
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}
