package handler

import (
	"github.com/gin-gonic/gin"

	"tx-tracker/internal/handler/response"
	"tx-tracker/internal/service/ledger"
)

type HealthHandler struct {
	ledger *ledger.Ledger
	origin string
}

func NewHealthHandler(l *ledger.Ledger, origin string) *HealthHandler {
	return &HealthHandler{ledger: l, origin: origin}
}

// HealthCheck 返回服务状态与当前执行上下文的账本概况
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	response.Success(c, gin.H{
		"status":  "UP",
		"service": "tx-tracker",
		"origin":  h.origin,
		"tracked": h.ledger.Len(),
		"pending": len(h.ledger.Pending()),
	})
}
