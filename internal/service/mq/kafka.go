package mq

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"tx-tracker/pkg/logger"
)

// KafkaProducer 实现 Producer 接口
type KafkaProducer struct {
	writer *kafka.Writer
}

// NewKafkaProducer 创建 Kafka 生产者
// Writer 不绑定 Topic，由每条消息指定
func NewKafkaProducer(brokers []string) *KafkaProducer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               kafka.BalancerFunc(broadcastPartition),
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireOne,
		BatchSize:              1, // 广播消息量很小，立即发送
		BatchTimeout:           10 * time.Millisecond,
	}

	return &KafkaProducer{
		writer: writer,
	}
}

// broadcastPartition 所有消息写入 partition 0，与 KafkaConsumer 读取的分区一致
// 单分区也保证了所有实例看到相同的消息顺序 (CLEAR 依赖这一点)
func broadcastPartition(msg kafka.Message, partitions ...int) int {
	for _, p := range partitions {
		if p == 0 {
			return 0
		}
	}
	return partitions[0]
}

// Publish 发送消息到 Kafka
func (p *KafkaProducer) Publish(ctx context.Context, topic string, key string, payload []byte) error {
	err := p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: payload,
	})
	if err != nil {
		return fmt.Errorf("kafka write error: %w", err)
	}
	return nil
}

// Close 关闭连接
func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}

// KafkaConsumer 实现 Consumer 接口
// 不设置 GroupID: 消费组会在实例之间分摊分区，广播需要每个实例独立读取
// 只读取 partition 0，KafkaProducer 也只写入该分区
type KafkaConsumer struct {
	brokers []string

	mu      sync.Mutex
	readers []*kafka.Reader
	cancels []context.CancelFunc
	wg      sync.WaitGroup
}

// NewKafkaConsumer 创建 Kafka 消费者
func NewKafkaConsumer(brokers []string) *KafkaConsumer {
	return &KafkaConsumer{
		brokers: brokers,
	}
}

// Subscribe 订阅 Kafka 主题，从最新 offset 开始读取
func (c *KafkaConsumer) Subscribe(ctx context.Context, topic string, handler func(msg *Message) error) error {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:   c.brokers,
		Topic:     topic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  10e6, // 10MB
		MaxWait:   500 * time.Millisecond,
	})
	// 没有 GroupID 时 StartOffset 不生效，需要显式 SetOffset
	if err := reader.SetOffset(kafka.LastOffset); err != nil {
		_ = reader.Close()
		return fmt.Errorf("kafka set offset: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.readers = append(c.readers, reader)
	c.cancels = append(c.cancels, cancel)
	c.mu.Unlock()

	logger.Info("[Kafka MQ] 开始监听主题", zap.String("topic", topic), zap.Strings("brokers", c.brokers))

	c.wg.Add(1)
	go c.consumeLoop(ctx, reader, topic, handler)
	return nil
}

func (c *KafkaConsumer) consumeLoop(ctx context.Context, reader *kafka.Reader, topic string, handler func(msg *Message) error) {
	defer c.wg.Done()

	for {
		// 1. 读取消息 (阻塞直到有消息)
		m, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return // 上下文取消，退出
			}
			logger.Warn("[Kafka MQ] 读取消息错误", zap.String("topic", topic), zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		// 2. 构造通用消息
		msg := &Message{
			ID:      strconv.FormatInt(m.Offset, 10),
			Topic:   topic,
			Key:     string(m.Key),
			Payload: m.Value,
		}

		// 3. 调用业务处理函数; 广播消息不重试，失败只记录
		if err := handler(msg); err != nil {
			logger.Warn("[Kafka MQ] 业务处理失败", zap.String("offset", msg.ID), zap.Error(err))
		}
	}
}

// Close 关闭消费者
func (c *KafkaConsumer) Close() error {
	c.mu.Lock()
	for _, cancel := range c.cancels {
		cancel()
	}
	readers := c.readers
	c.cancels = nil
	c.readers = nil
	c.mu.Unlock()

	c.wg.Wait()

	var firstErr error
	for _, r := range readers {
		if err := r.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
