package monitor

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// HTTPRequestsTotal 按路由模板统计 REST 请求
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tracker",
			Name:      "http_requests_total",
			Help:      "REST requests served by the tracker, by route template and status.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration 接口只读写本地账本，桶集中在毫秒级; 转账接口会等待 RPC，保留秒级的桶
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tracker",
			Name:      "http_request_duration_seconds",
			Help:      "REST request latency by route template.",
			Buckets:   []float64{0.001, 0.005, 0.02, 0.1, 0.5, 2, 10},
		},
		[]string{"method", "path"},
	)

	// 探活与抓取请求不计入
	unmeteredPaths = map[string]bool{
		"/metrics": true,
		"/health":  true,
	}

	initOnce sync.Once
)

// Init 注册 HTTP 与追踪指标，可重复调用 (watch 与测试各自构造路由)
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(HTTPRequestsTotal, HTTPRequestDuration)
		InitTrackerMetrics()
	})
}

// PrometheusMiddleware 记录 /api 下的请求
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.FullPath() // 路由模板 /api/v1/transactions/:hash，避免每个 Hash 一条时间序列
		if path == "" || unmeteredPaths[path] {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
