package mq

import (
	"context"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"tx-tracker/pkg/logger"
)

const memoryBufferSize = 256

// MemoryBus 进程内广播总线
// 同一进程中的多个执行上下文 (以及测试) 通过它互相通信
type MemoryBus struct {
	mu   sync.RWMutex
	subs map[string]map[uint64]chan *Message
	next uint64
	seq  uint64
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: make(map[string]map[uint64]chan *Message)}
}

// Publish 投递给该主题的所有订阅者; 订阅者缓冲区满时丢弃 (尽力而为)
func (b *MemoryBus) Publish(ctx context.Context, topic string, key string, payload []byte) error {
	b.mu.Lock()
	b.seq++
	id := strconv.FormatUint(b.seq, 10)
	targets := make([]chan *Message, 0, len(b.subs[topic]))
	for _, ch := range b.subs[topic] {
		targets = append(targets, ch)
	}
	b.mu.Unlock()

	for _, ch := range targets {
		msg := &Message{
			ID:      id,
			Topic:   topic,
			Key:     key,
			Payload: append([]byte(nil), payload...),
		}
		select {
		case ch <- msg:
		default:
			logger.Warn("[Memory MQ] 订阅者缓冲区已满，丢弃消息", zap.String("topic", topic), zap.String("id", id))
		}
	}
	return nil
}

// Subscribers 当前主题的订阅者数量
func (b *MemoryBus) Subscribers(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}

func (b *MemoryBus) add(topic string) (uint64, chan *Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next++
	ch := make(chan *Message, memoryBufferSize)
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[uint64]chan *Message)
	}
	b.subs[topic][b.next] = ch
	return b.next, ch
}

func (b *MemoryBus) remove(topic string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs[topic], id)
	if len(b.subs[topic]) == 0 {
		delete(b.subs, topic)
	}
}

// Consumer 为一个执行上下文创建独立的消费者，Close 只影响自己的订阅
func (b *MemoryBus) Consumer() *MemoryConsumer {
	return &MemoryConsumer{bus: b}
}

type MemoryConsumer struct {
	bus     *MemoryBus
	mu      sync.Mutex
	cancels []context.CancelFunc
	wg      sync.WaitGroup
}

func (c *MemoryConsumer) Subscribe(ctx context.Context, topic string, handler func(msg *Message) error) error {
	ctx, cancel := context.WithCancel(ctx)
	id, ch := c.bus.add(topic)

	c.mu.Lock()
	c.cancels = append(c.cancels, cancel)
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer c.bus.remove(topic, id)
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-ch:
				if err := handler(msg); err != nil {
					logger.Warn("[Memory MQ] 消息处理失败", zap.String("topic", topic), zap.Error(err))
				}
			}
		}
	}()
	return nil
}

func (c *MemoryConsumer) Close() error {
	c.mu.Lock()
	for _, cancel := range c.cancels {
		cancel()
	}
	c.cancels = nil
	c.mu.Unlock()
	c.wg.Wait()
	return nil
}
