// Package kafka 提供了与 Kafka 消息队列交互的功能。
// 机器人侧只做生产者：对话事件投递给外部的分析/加工流水线消费。
package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/DmitriyKrasnyh/BizIdeasProject/internal/config"
	"github.com/DmitriyKrasnyh/BizIdeasProject/pkg/log"
	"github.com/segmentio/kafka-go"
)

// ChatEvent 是发往分析流水线的对话事件。
type ChatEvent struct {
	UserID     uint      `json:"user_id"`
	SessionID  string    `json:"session_id,omitempty"`
	Action     string    `json:"action"`
	Details    string    `json:"details,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

var producer *kafka.Writer

// InitProducer 初始化 Kafka 生产者。
func InitProducer(cfg config.KafkaConfig) {
	producer = &kafka.Writer{
		Addr:     kafka.TCP(cfg.Brokers),
		Topic:    cfg.Topic,
		Balancer: &kafka.LeastBytes{},
	}
	log.Info("Kafka 生产者初始化成功")
}

// ProduceChatEvent 发送一条对话事件。
// 事件投递是尽力而为的：失败只记日志，绝不影响已送达的回答。
func ProduceChatEvent(event ChatEvent) error {
	if producer == nil {
		// 未配置 Kafka 时静默跳过
		return nil
	}

	eventBytes, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return producer.WriteMessages(context.Background(),
		kafka.Message{
			Value: eventBytes,
		},
	)
}
