package synchronizer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"tx-tracker/internal/event"
	"tx-tracker/internal/service/ledger"
	"tx-tracker/internal/service/mq"
	"tx-tracker/pkg/logger"
	"tx-tracker/pkg/monitor"
)

const seenTTL = 10 * time.Minute

// Relay 跨执行上下文的广播中继
// 出站: 作为 ledger.Publisher 把本地变更写入 MQ
// 入站: 把对端消息交给 ledger.Apply，只在本地生效，不会再次广播
type Relay struct {
	producer mq.Producer
	consumer mq.Consumer
	topic    string
	origin   string

	// 已处理的消息 ID，应对 at-least-once 的重复投递
	seen *gocache.Cache

	mu     sync.Mutex
	cancel context.CancelFunc
}

func NewRelay(producer mq.Producer, consumer mq.Consumer, topic string) *Relay {
	return &Relay{
		producer: producer,
		consumer: consumer,
		topic:    topic,
		origin:   uuid.NewString(),
		seen:     gocache.New(seenTTL, 2*seenTTL),
	}
}

// Origin 本执行上下文的标识
func (r *Relay) Origin() string {
	return r.origin
}

// Publish 实现 ledger.Publisher
func (r *Relay) Publish(ctx context.Context, ev event.TransactionEvent) error {
	ev.ID = uuid.NewString()
	ev.Origin = r.origin
	ev.Timestamp = time.Now().UnixMilli()

	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := r.producer.Publish(ctx, r.topic, ev.Hash, payload); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Kind, err)
	}
	monitor.Tracker.Broadcast(string(ev.Kind), "out")
	return nil
}

// Start 订阅广播主题并把对端变更应用到 l
func (r *Relay) Start(ctx context.Context, l *ledger.Ledger) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	handler := func(msg *mq.Message) error {
		r.handle(ctx, l, msg)
		return nil
	}
	if err := r.consumer.Subscribe(ctx, r.topic, handler); err != nil {
		cancel()
		return fmt.Errorf("subscribe %s: %w", r.topic, err)
	}
	r.cancel = cancel

	logger.Info("Broadcast relay started", zap.String("topic", r.topic), zap.String("origin", r.origin))
	return nil
}

// Stop 取消订阅; 消费者本身由调用方 Close
func (r *Relay) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel == nil {
		return
	}
	r.cancel()
	r.cancel = nil
	logger.Info("Broadcast relay stopped", zap.String("origin", r.origin))
}

func (r *Relay) handle(ctx context.Context, l *ledger.Ledger, msg *mq.Message) {
	var ev event.TransactionEvent
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		logger.Warn("丢弃格式错误的广播消息", zap.String("msg_id", msg.ID), zap.Error(err))
		return
	}
	if ev.Origin == r.origin {
		return // 自己发出的消息
	}
	if ev.ID != "" {
		if err := r.seen.Add(ev.ID, struct{}{}, gocache.DefaultExpiration); err != nil {
			return // 重复投递
		}
	}

	monitor.Tracker.Broadcast(string(ev.Kind), "in")
	l.Apply(ctx, ev)
}
