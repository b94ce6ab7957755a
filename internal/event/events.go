package event

import "tx-tracker/internal/model"

// Kind 跨实例广播的变更类型
type Kind string

const (
	KindAdd    Kind = "ADD"
	KindUpdate Kind = "UPDATE"
	KindClear  Kind = "CLEAR"
)

// TransactionEvent 账本变更事件
// 本地订阅者与跨实例广播共用同一结构; ID / Origin / Timestamp 由广播层填写
// Topic: tracker_transactions
type TransactionEvent struct {
	ID        string       `json:"id,omitempty"`
	Origin    string       `json:"origin,omitempty"`
	Kind      Kind         `json:"kind"`
	Hash      string       `json:"identifier,omitempty"`
	Outcome   model.Status `json:"outcome,omitempty"`
	Timestamp int64        `json:"ts,omitempty"` // unix 毫秒
}
