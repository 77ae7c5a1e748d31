package domain

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// OutboxStatus Outbox 事件投递状态
type OutboxStatus string

const (
	// OutboxStatusPending 等待投递
	OutboxStatusPending OutboxStatus = "pending"
	// OutboxStatusDelivered 已成功投递
	OutboxStatusDelivered OutboxStatus = "delivered"
	// OutboxStatusFailed 超过最大重试次数，等待人工介入，绝不删除
	OutboxStatusFailed OutboxStatus = "failed"
)

// 事件类型
const (
	EventTypeOrderCreated   = "OrderCreated"
	EventTypeOrderCompleted = "OrderCompleted"
	EventTypeOrderCancelled = "OrderCancelled"
)

// maxBackoff 重试退避上限
const maxBackoff = 10 * time.Minute

// OutboxEvent Outbox 事件行
// 与其描述的订单变更在同一事务中写入，自增主键保证按提交顺序投递。
// 仅由投递进程变更，delivered 之前不允许删除或归档。
type OutboxEvent struct {
	gorm.Model
	// 事件 ID
	EventID string `gorm:"column:event_id;type:varchar(36);uniqueIndex;not null" json:"event_id"`
	// 所属订单 ID
	OrderID string `gorm:"column:order_id;type:varchar(32);index;not null" json:"order_id"`
	// 事件类型
	EventType string `gorm:"column:event_type;type:varchar(40);not null" json:"event_type"`
	// 序列化后的订单摘要
	Payload string `gorm:"column:payload;type:text;not null" json:"payload"`
	// 下游去重用幂等键
	IdempotencyKey string `gorm:"column:idempotency_key;type:varchar(100);uniqueIndex;not null" json:"idempotency_key"`
	// 投递状态
	Status OutboxStatus `gorm:"column:status;type:varchar(10);index;not null;default:'pending'" json:"status"`
	// 已尝试投递次数
	Attempts int `gorm:"column:attempts;not null;default:0" json:"attempts"`
	// 下次重试时间
	NextRetryAt time.Time `gorm:"column:next_retry_at;index;not null" json:"next_retry_at"`
}

// TableName 指定表名
func (OutboxEvent) TableName() string { return "order_outbox_events" }

// CreationIdempotencyKey 订单创建事件的幂等键即订单 ID
func CreationIdempotencyKey(orderID string) string {
	return orderID
}

// TransitionIdempotencyKey 状态迁移事件的幂等键：订单 ID + 事件类型 + 迁移序号
// 保证每次迁移各自拥有唯一幂等键
func TransitionIdempotencyKey(orderID, eventType string, seq int) string {
	return fmt.Sprintf("%s:%s:%d", orderID, eventType, seq)
}

// BackoffDelay 按尝试次数计算指数退避，封顶 maxBackoff
func BackoffDelay(base time.Duration, attempts int) time.Duration {
	d := base
	for i := 0; i < attempts; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}

// RecordFailure 记录一次投递失败并安排重试
// 达到 maxAttempts 后转入 failed 状态等待人工处理，返回 true 表示已放弃
func (e *OutboxEvent) RecordFailure(now time.Time, base time.Duration, maxAttempts int) bool {
	e.Attempts++
	if e.Attempts >= maxAttempts {
		e.Status = OutboxStatusFailed
		return true
	}
	e.NextRetryAt = now.Add(BackoffDelay(base, e.Attempts))
	return false
}

// Deliverable 截至给定时间是否应尝试投递
func (e *OutboxEvent) Deliverable(now time.Time) bool {
	return e.Status == OutboxStatusPending && !now.Before(e.NextRetryAt)
}
