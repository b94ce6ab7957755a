package handler

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tx-tracker/internal/handler/request"
	"tx-tracker/internal/handler/response"
	"tx-tracker/internal/model"
	"tx-tracker/internal/service/ledger"
	"tx-tracker/internal/service/transfer"
	"tx-tracker/pkg/errno"
	"tx-tracker/pkg/logger"
)

// Transferer 提交转账的能力，由 transfer.Sender 实现
type Transferer interface {
	Send(ctx context.Context, req transfer.Request) (common.Hash, error)
}

type TransactionHandler struct {
	ledger   *ledger.Ledger
	sender   Transferer // 可以为 nil: 未配置钱包时禁用转账接口
	explorer string
}

func NewTransactionHandler(l *ledger.Ledger, sender Transferer, explorerURL string) *TransactionHandler {
	return &TransactionHandler{ledger: l, sender: sender, explorer: explorerURL}
}

// TransactionView 对外展示的交易
type TransactionView struct {
	Hash      string       `json:"hash"`
	Short     string       `json:"short"`
	Status    model.Status `json:"status"`
	Explorer  string       `json:"explorer_url"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

func (h *TransactionHandler) view(tx model.Transaction) TransactionView {
	return TransactionView{
		Hash:      tx.Hash,
		Short:     model.TruncateHash(tx.Hash, 6, 4),
		Status:    tx.Status,
		Explorer:  model.ExplorerLink(h.explorer, tx.Hash),
		CreatedAt: tx.CreatedAt,
		UpdatedAt: tx.UpdatedAt,
	}
}

// List GET /api/v1/transactions?order=desc
// 账本保持记录顺序，倒序只是展示层的处理
func (h *TransactionHandler) List(c *gin.Context) {
	var q request.ListTransactionsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, errno.ErrBind)
		return
	}

	txs := h.ledger.List()
	views := make([]TransactionView, 0, len(txs))
	for _, tx := range txs {
		views = append(views, h.view(tx))
	}
	if q.Order == "desc" {
		for i, j := 0, len(views)-1; i < j; i, j = i+1, j-1 {
			views[i], views[j] = views[j], views[i]
		}
	}

	response.Success(c, gin.H{"transactions": views, "total": len(views)})
}

// Get GET /api/v1/transactions/:hash
func (h *TransactionHandler) Get(c *gin.Context) {
	hash := c.Param("hash")
	if !model.ValidHash(hash) {
		response.Error(c, errno.ErrInvalidHash)
		return
	}
	tx, ok := h.ledger.Get(hash)
	if !ok {
		response.Error(c, errno.ErrTransactionNotFound)
		return
	}
	response.Success(c, h.view(tx))
}

// Track POST /api/v1/transactions
// 外部提交者上报新的交易 Hash; created=false 表示已在追踪中
func (h *TransactionHandler) Track(c *gin.Context) {
	var req request.TrackTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errno.ErrBind)
		return
	}
	if !model.ValidHash(req.Hash) {
		response.Error(c, errno.ErrInvalidHash)
		return
	}

	created := h.ledger.Record(c.Request.Context(), req.Hash)
	tx, _ := h.ledger.Get(req.Hash)
	response.Success(c, gin.H{"created": created, "transaction": h.view(tx)})
}

// Clear DELETE /api/v1/transactions
func (h *TransactionHandler) Clear(c *gin.Context) {
	h.ledger.Clear(c.Request.Context())
	response.Success(c, nil)
}

// Transfer POST /api/v1/transfers
// 签名并广播转账，成功后记录为 pending，由轮询负责确认
func (h *TransactionHandler) Transfer(c *gin.Context) {
	if h.sender == nil {
		response.Error(c, errno.ErrTransferNotConfigured)
		return
	}

	var req request.CreateTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errno.ErrBind)
		return
	}

	hash, err := h.sender.Send(c.Request.Context(), transfer.Request{
		Token:  req.Token,
		To:     req.To,
		Amount: req.Amount.String(),
	})
	switch {
	case errors.Is(err, transfer.ErrInvalidAmount), errors.Is(err, transfer.ErrInvalidAddress):
		response.Error(c, errno.ErrInvalidTransfer)
		return
	case errors.Is(err, transfer.ErrWrongNetwork):
		response.Error(c, errno.ErrWrongNetwork)
		return
	case err != nil:
		logger.Error("转账提交失败", zap.String("to", req.To), zap.Error(err))
		response.Error(c, errno.ErrTransferFailed)
		return
	}

	h.ledger.Record(c.Request.Context(), hash.Hex())
	tx, _ := h.ledger.Get(hash.Hex())
	response.Success(c, h.view(tx))
}
