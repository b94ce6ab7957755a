package model

import (
	"regexp"
	"strings"
	"time"
)

var hashPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)

// Status 交易生命周期状态
// pending -> success | failed, 终态不可再变
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusSuccess, StatusFailed:
		return true
	}
	return false
}

// IsTerminal success / failed 为终态
func (s Status) IsTerminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

func (s Status) String() string {
	return string(s)
}

// Transaction 被追踪的一笔链上交易，Hash 唯一
type Transaction struct {
	Hash      string    `json:"hash"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ValidHash 0x + 64 位十六进制
func ValidHash(h string) bool {
	return hashPattern.MatchString(h)
}

// TruncateHash 0x1234567890abcdef -> 0x1234...cdef
func TruncateHash(h string, start, end int) string {
	if h == "" {
		return ""
	}
	if len(h) <= start+end {
		return h
	}
	return h[:start] + "..." + h[len(h)-end:]
}

// ExplorerLink 拼接区块浏览器链接, base 形如 https://sepolia.etherscan.io/tx/
func ExplorerLink(base, h string) string {
	if base == "" {
		return h
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base + h
}
