package request

import "github.com/shopspring/decimal"

type TrackTransactionRequest struct {
	Hash string `json:"hash" binding:"required"`
}

type ListTransactionsQuery struct {
	Order string `form:"order" binding:"omitempty,oneof=asc desc"`
}

type CreateTransferRequest struct {
	Token  string          `json:"token" binding:"required"` // "ETH" 或 ERC20 合约地址
	To     string          `json:"to" binding:"required"`
	Amount decimal.Decimal `json:"amount"`
}
