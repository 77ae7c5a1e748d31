package domain

import "context"

// Observer 业务事件观察者
// 核心逻辑只负责通知，具体的指标系统由外部实现注入
type Observer interface {
	CartCreated(ctx context.Context, cart *Cart)
	CartsExpired(ctx context.Context, count int)
	OrderCreated(ctx context.Context, order *Order)
	OrderStatusChanged(ctx context.Context, order *Order, previous OrderStatus)
	OutboxDelivered(ctx context.Context, event *OutboxEvent)
	OutboxDeliveryFailed(ctx context.Context, event *OutboxEvent)
	OutboxAbandoned(ctx context.Context, event *OutboxEvent)
	OutboxPending(ctx context.Context, count int64)
}

// NopObserver 空实现，用于测试或关闭指标上报
type NopObserver struct{}

func (NopObserver) CartCreated(context.Context, *Cart)                      {}
func (NopObserver) CartsExpired(context.Context, int)                       {}
func (NopObserver) OrderCreated(context.Context, *Order)                    {}
func (NopObserver) OrderStatusChanged(context.Context, *Order, OrderStatus) {}
func (NopObserver) OutboxDelivered(context.Context, *OutboxEvent)           {}
func (NopObserver) OutboxDeliveryFailed(context.Context, *OutboxEvent)      {}
func (NopObserver) OutboxAbandoned(context.Context, *OutboxEvent)           {}
func (NopObserver) OutboxPending(context.Context, int64)                    {}
