// Package messaging Outbox 事件投递
package messaging

import (
	"context"

	"github.com/wyfcoding/shopmetrics/internal/order/domain"
	"github.com/wyfcoding/shopmetrics/pkg/mq"
)

// KafkaEventSink 将 Outbox 事件写入 Kafka
// 以订单 ID 作为消息键，同一订单的事件落在同一分区，保持提交顺序
type KafkaEventSink struct {
	producer *mq.KafkaProducer
	topic    string
}

// NewKafkaEventSink 构造 Kafka 投递通道
func NewKafkaEventSink(producer *mq.KafkaProducer, topic string) *KafkaEventSink {
	return &KafkaEventSink{producer: producer, topic: topic}
}

var _ domain.EventSink = (*KafkaEventSink)(nil)

// Send 投递单个事件，语义为至少一次，下游依赖幂等键去重
func (s *KafkaEventSink) Send(ctx context.Context, event *domain.OutboxEvent) error {
	headers := map[string]string{
		"event_id":        event.EventID,
		"event_type":      event.EventType,
		"idempotency_key": event.IdempotencyKey,
	}
	return s.producer.SendRaw(ctx, s.topic, event.OrderID, []byte(event.Payload), headers)
}
