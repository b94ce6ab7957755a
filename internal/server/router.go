package server

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tx-tracker/internal/handler"
	"tx-tracker/pkg/monitor"
)

// NewHTTPRouter 初始化并返回一个 Gin Engine
func NewHTTPRouter(health *handler.HealthHandler, txs *handler.TransactionHandler) *gin.Engine {
	// 0. 初始化监控指标
	monitor.Init()

	// 1. 创建 Engine (使用默认中间件: Logger, Recovery)
	r := gin.Default()

	// 2. 注册通用中间件
	r.Use(monitor.PrometheusMiddleware())

	// 3. 注册基础路由
	r.GET("/health", health.HealthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 4. 注册 API 路由组
	api := r.Group("/api/v1")
	{
		tx := api.Group("/transactions")
		tx.GET("", txs.List)
		tx.POST("", txs.Track)
		tx.DELETE("", txs.Clear)
		tx.GET("/:hash", txs.Get)

		api.POST("/transfers", txs.Transfer)
	}

	return r
}
