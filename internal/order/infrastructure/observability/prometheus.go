// Package observability 将业务事件映射到 Prometheus 指标
package observability

import (
	"context"

	"github.com/wyfcoding/shopmetrics/internal/order/domain"
	"github.com/wyfcoding/shopmetrics/pkg/metrics"
)

// PrometheusObserver domain.Observer 的 Prometheus 实现
type PrometheusObserver struct {
	metrics *metrics.Metrics
}

// NewPrometheusObserver 构造指标观察者
func NewPrometheusObserver(m *metrics.Metrics) *PrometheusObserver {
	return &PrometheusObserver{metrics: m}
}

var _ domain.Observer = (*PrometheusObserver)(nil)

func (o *PrometheusObserver) CartCreated(_ context.Context, _ *domain.Cart) {
	o.metrics.CartsCreatedTotal.Inc()
}

func (o *PrometheusObserver) CartsExpired(_ context.Context, count int) {
	o.metrics.CartsAbandonedTotal.Add(float64(count))
}

func (o *PrometheusObserver) OrderCreated(_ context.Context, order *domain.Order) {
	o.metrics.OrdersCreatedTotal.WithLabelValues(string(order.Status)).Inc()
	value, _ := order.Total.Float64()
	o.metrics.OrderValueTotal.WithLabelValues(order.Currency).Add(value)
}

func (o *PrometheusObserver) OrderStatusChanged(_ context.Context, order *domain.Order, _ domain.OrderStatus) {
	switch order.Status {
	case domain.OrderStatusCompleted:
		o.metrics.OrdersCompletedTotal.Inc()
	case domain.OrderStatusCancelled:
		o.metrics.OrdersCancelledTotal.Inc()
	}
}

func (o *PrometheusObserver) OutboxDelivered(_ context.Context, _ *domain.OutboxEvent) {
	o.metrics.OutboxDeliveredTotal.Inc()
}

func (o *PrometheusObserver) OutboxDeliveryFailed(_ context.Context, _ *domain.OutboxEvent) {
	o.metrics.OutboxFailedTotal.Inc()
}

func (o *PrometheusObserver) OutboxAbandoned(_ context.Context, _ *domain.OutboxEvent) {
	o.metrics.OutboxFailedTotal.Inc()
	o.metrics.OutboxAbandonedTotal.Inc()
}

func (o *PrometheusObserver) OutboxPending(_ context.Context, count int64) {
	o.metrics.OutboxPendingGauge.Set(float64(count))
}
