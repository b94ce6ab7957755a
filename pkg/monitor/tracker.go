package monitor

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// TrackerMetrics 定义交易追踪的业务指标
// 所有方法对 nil 接收者安全，未 Init 时 (例如单元测试) 直接忽略
type TrackerMetrics struct {
	RecordedTotal     prometheus.Counter
	ResolvedTotal     *prometheus.CounterVec
	LookupErrorsTotal prometheus.Counter
	PendingGauge      prometheus.Gauge
	PollCycleDuration prometheus.Histogram
	BroadcastMessages *prometheus.CounterVec
	StorageOps        *prometheus.CounterVec
}

// Global Metrics Instance
var Tracker *TrackerMetrics

// InitTrackerMetrics 初始化业务指标
func InitTrackerMetrics() {
	Tracker = &TrackerMetrics{
		RecordedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tracker_transactions_recorded_total",
			Help: "The total number of tracked transactions",
		}),
		ResolvedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tracker_transactions_resolved_total",
			Help: "The total number of transactions that reached a terminal status",
		}, []string{"status"}),
		LookupErrorsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tracker_receipt_lookup_errors_total",
			Help: "Receipt lookups that failed and will be retried next cycle",
		}),
		PendingGauge: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "tracker_pending_transactions",
			Help: "Transactions still waiting for a receipt",
		}),
		PollCycleDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "tracker_poll_cycle_duration_seconds",
			Help:    "Duration of receipt polling cycles",
			Buckets: prometheus.DefBuckets,
		}),
		BroadcastMessages: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tracker_broadcast_messages_total",
			Help: "Cross-context broadcast messages by kind and direction",
		}, []string{"kind", "direction"}),
		StorageOps: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tracker_storage_ops_total",
			Help: "Snapshot storage operations by backend, operation and result",
		}, []string{"backend", "op", "result"}),
	}
}

func (m *TrackerMetrics) Recorded() {
	if m == nil {
		return
	}
	m.RecordedTotal.Inc()
}

func (m *TrackerMetrics) Resolved(status string) {
	if m == nil {
		return
	}
	m.ResolvedTotal.WithLabelValues(status).Inc()
}

func (m *TrackerMetrics) LookupError() {
	if m == nil {
		return
	}
	m.LookupErrorsTotal.Inc()
}

func (m *TrackerMetrics) SetPending(n int) {
	if m == nil {
		return
	}
	m.PendingGauge.Set(float64(n))
}

func (m *TrackerMetrics) ObservePoll(d time.Duration) {
	if m == nil {
		return
	}
	m.PollCycleDuration.Observe(d.Seconds())
}

// Broadcast direction: "out" 本实例发出, "in" 收到对端
func (m *TrackerMetrics) Broadcast(kind, direction string) {
	if m == nil {
		return
	}
	m.BroadcastMessages.WithLabelValues(kind, direction).Inc()
}

func (m *TrackerMetrics) StorageOp(backend, op, result string) {
	if m == nil {
		return
	}
	m.StorageOps.WithLabelValues(backend, op, result).Inc()
}
