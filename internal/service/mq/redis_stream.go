package mq

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"tx-tracker/pkg/logger"
)

// 广播流只需保留最近的消息，新订阅者从流尾开始读
const defaultStreamMaxLen = 1000

// RedisProducer 实现 Producer 接口
type RedisProducer struct {
	client *redis.Client
	maxLen int64
}

// NewRedisProducer 创建 Redis 生产者
func NewRedisProducer(client *redis.Client) *RedisProducer {
	return &RedisProducer{
		client: client,
		maxLen: defaultStreamMaxLen,
	}
}

// Publish 发送消息到 Redis Stream
func (p *RedisProducer) Publish(ctx context.Context, topic string, key string, payload []byte) error {
	// XADD <topic> MAXLEN ~ 1000 * key <key> payload <payload>
	err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: topic,
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"key":     key,
			"payload": payload,
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("redis xadd error: %w", err)
	}
	return nil
}

// RedisConsumer 实现 Consumer 接口
// 不使用 Consumer Group: Group 会在消费者之间分摊消息，而这里每个实例都要收到全部消息
type RedisConsumer struct {
	client *redis.Client
	block  time.Duration

	mu      sync.Mutex
	cancels []context.CancelFunc
	wg      sync.WaitGroup
}

// NewRedisConsumer 创建 Redis 消费者; client 由调用方负责关闭
func NewRedisConsumer(client *redis.Client) *RedisConsumer {
	return &RedisConsumer{
		client: client,
		block:  2 * time.Second,
	}
}

// Subscribe 订阅 Redis Stream，从订阅时刻的流尾开始读取
func (c *RedisConsumer) Subscribe(ctx context.Context, topic string, handler func(msg *Message) error) error {
	// 1. 记下当前最后一条消息的 ID，只读取之后的消息
	// 不直接用 "$": 每次 XREAD 的 "$" 都会重新取流尾，两次调用之间的消息会丢失
	last, err := c.tail(ctx, topic)
	if err != nil {
		return fmt.Errorf("读取 stream 尾部失败: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancels = append(c.cancels, cancel)
	c.mu.Unlock()

	logger.Info("[Redis MQ] 开始监听主题", zap.String("topic", topic), zap.String("from", last))

	c.wg.Add(1)
	go c.readLoop(ctx, topic, last, handler)
	return nil
}

func (c *RedisConsumer) tail(ctx context.Context, topic string) (string, error) {
	msgs, err := c.client.XRevRangeN(ctx, topic, "+", "-", 1).Result()
	if err != nil {
		return "", err
	}
	if len(msgs) == 0 {
		return "0-0", nil
	}
	return msgs[0].ID, nil
}

func (c *RedisConsumer) readLoop(ctx context.Context, topic, last string, handler func(msg *Message) error) {
	defer c.wg.Done()

	for {
		if ctx.Err() != nil {
			return
		}

		// 2. 阻塞读取消息
		// XREAD BLOCK 2000 COUNT 16 STREAMS <topic> <last>
		streams, err := c.client.XRead(ctx, &redis.XReadArgs{
			Streams: []string{topic, last},
			Count:   16,
			Block:   c.block,
		}).Result()

		if errors.Is(err, redis.Nil) {
			continue // 超时无消息
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("[Redis MQ] 读取消息错误", zap.String("topic", topic), zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		// 3. 处理消息
		for _, stream := range streams {
			for _, xMessage := range stream.Messages {
				last = xMessage.ID

				val, ok := xMessage.Values["payload"].(string)
				if !ok {
					logger.Warn("[Redis MQ] 消息格式错误: payload 缺失", zap.String("id", xMessage.ID))
					continue
				}
				key, _ := xMessage.Values["key"].(string)

				msg := &Message{
					ID:      xMessage.ID,
					Topic:   topic,
					Key:     key,
					Payload: []byte(val),
				}
				if err := handler(msg); err != nil {
					logger.Warn("[Redis MQ] 消息处理失败", zap.String("id", xMessage.ID), zap.Error(err))
				}
			}
		}
	}
}

func (c *RedisConsumer) Close() error {
	c.mu.Lock()
	for _, cancel := range c.cancels {
		cancel()
	}
	c.cancels = nil
	c.mu.Unlock()
	c.wg.Wait()
	return nil
}
