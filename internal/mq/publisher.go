package mq

import (
	"context"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"brickpay-sol/internal/config"
	"brickpay-sol/internal/utils"
)

const defaultSendTimeout = 5 * time.Second

// EventPublisher 把索引产出的事件发往单一 topic，按消息 key 哈希选分区
type EventPublisher struct {
	producer   *kafka.Producer
	topic      string
	partitions uint32
	timeout    time.Duration
}

func NewEventPublisher(producer *kafka.Producer, cfg config.KafkaProducerConfig) *EventPublisher {
	return &EventPublisher{
		producer:   producer,
		topic:      cfg.Topic,
		partitions: uint32(cfg.Partitions),
		timeout:    defaultSendTimeout,
	}
}

// Publish 发送一条事件，key 决定分区（同一交易的事件落在同一分区）
func (p *EventPublisher) Publish(ctx context.Context, key []byte, payload []byte) error {
	job := &KafkaJob{
		Topic:     p.topic,
		Partition: int32(utils.PartitionHashBytes(key, p.partitions)),
		Key:       key,
		Value:     payload,
	}
	_, failed := SendKafkaJobs(ctx, p.producer, []*KafkaJob{job}, p.timeout)
	if len(failed) > 0 {
		return fmt.Errorf("publish to %s: %w", p.topic, failed[0].Err)
	}
	return nil
}

func (p *EventPublisher) Close() {
	p.producer.Flush(3000)
	p.producer.Close()
}
