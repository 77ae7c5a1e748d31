package mysql

import (
	"context"
	"time"

	"github.com/wyfcoding/shopmetrics/internal/order/domain"
	"gorm.io/gorm"
)

type outboxRepository struct{ db *gorm.DB }

// NewOutboxRepository 构造 Outbox 仓储
func NewOutboxRepository(db *gorm.DB) domain.OutboxRepository {
	return &outboxRepository{db: db}
}

func (r *outboxRepository) Append(ctx context.Context, event *domain.OutboxEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

// FetchDue 按自增主键升序取事件，即按事务提交顺序投递。
// 同一订单有更早的未投递事件（退避中或已 failed）时，后续事件被扣住，
// 任何情况下都不允许后发事件越过先发事件。
func (r *outboxRepository) FetchDue(ctx context.Context, now time.Time, limit int) ([]*domain.OutboxEvent, error) {
	var events []*domain.OutboxEvent
	err := r.db.WithContext(ctx).
		Where(`status = ? AND next_retry_at <= ?
			AND NOT EXISTS (
				SELECT 1 FROM order_outbox_events p
				WHERE p.order_id = order_outbox_events.order_id
					AND p.id < order_outbox_events.id
					AND (p.status = ? OR (p.status = ? AND p.next_retry_at > ?))
			)`,
			domain.OutboxStatusPending, now,
			domain.OutboxStatusFailed, domain.OutboxStatusPending, now).
		Order("id ASC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (r *outboxRepository) MarkDelivered(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).
		Model(&domain.OutboxEvent{}).
		Where("id = ?", id).
		Update("status", domain.OutboxStatusDelivered).Error
}

func (r *outboxRepository) Reschedule(ctx context.Context, event *domain.OutboxEvent) error {
	return r.db.WithContext(ctx).
		Model(&domain.OutboxEvent{}).
		Where("id = ?", event.ID).
		Updates(map[string]interface{}{
			"status":        event.Status,
			"attempts":      event.Attempts,
			"next_retry_at": event.NextRetryAt,
		}).Error
}

func (r *outboxRepository) CountPending(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.OutboxEvent{}).
		Where("status = ?", domain.OutboxStatusPending).
		Count(&count).Error
	return count, err
}

// PurgeDelivered 只清理已投递的事件，failed 状态的行永远保留待人工处理
func (r *outboxRepository) PurgeDelivered(ctx context.Context, before time.Time) error {
	return r.db.WithContext(ctx).
		Unscoped().
		Where("status = ? AND updated_at < ?", domain.OutboxStatusDelivered, before).
		Delete(&domain.OutboxEvent{}).Error
}
