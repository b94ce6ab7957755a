package mq

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Message 代表一条通用的广播消息
type Message struct {
	ID       string            // 消息ID (例如 Redis Stream ID, Kafka offset)
	Topic    string            // 主题 (例如 "tracker_transactions")
	Key      string            // 分区键 (交易 Hash)
	Payload  []byte            // 消息体 (JSON)
	Metadata map[string]string // 元数据
}

// Producer 生产者接口
type Producer interface {
	// Publish 发送消息
	// key: 用于分区排序 (Partition Key). 传空字符串则随机分区.
	Publish(ctx context.Context, topic string, key string, payload []byte) error
}

// Consumer 消费者接口
// 所有实现都是广播语义: 每个订阅者都会收到主题上的每一条消息
type Consumer interface {
	// Subscribe 订阅主题，订阅建立后立即返回，消息在后台 goroutine 中回调
	// ctx 取消或 Close 后停止投递; handler 返回的 error 只记录日志
	Subscribe(ctx context.Context, topic string, handler func(msg *Message) error) error

	// Close 停止所有订阅并等待后台 goroutine 退出
	Close() error
}

var ErrUnknownType = errors.New("unknown mq type")

// Deps 各实现需要的连接
type Deps struct {
	Memory  *MemoryBus
	Redis   *redis.Client
	Brokers []string
}

// New 根据 mq_type 创建生产者与消费者: memory, redis, kafka
func New(kind string, deps Deps) (Producer, Consumer, error) {
	switch kind {
	case "", "memory":
		bus := deps.Memory
		if bus == nil {
			bus = NewMemoryBus()
		}
		return bus, bus.Consumer(), nil
	case "redis":
		if deps.Redis == nil {
			return nil, nil, fmt.Errorf("mq redis: redis client not configured")
		}
		return NewRedisProducer(deps.Redis), NewRedisConsumer(deps.Redis), nil
	case "kafka":
		if len(deps.Brokers) == 0 {
			return nil, nil, fmt.Errorf("mq kafka: no brokers configured")
		}
		return NewKafkaProducer(deps.Brokers), NewKafkaConsumer(deps.Brokers), nil
	default:
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownType, kind)
	}
}
