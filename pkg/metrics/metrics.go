// Package metrics 提供 Prometheus helper，包含常用 counter/gauge/histogram 模板
package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wyfcoding/shopmetrics/pkg/logger"
)

// Metrics 指标集合
type Metrics struct {
	// HTTP 请求计数
	HTTPRequestsTotal *prometheus.CounterVec
	// HTTP 请求耗时
	HTTPRequestDuration *prometheus.HistogramVec

	// 数据库查询耗时
	DBQueryDuration prometheus.Histogram
	// 数据库连接数
	DBConnections prometheus.Gauge

	// 业务指标
	CartsCreatedTotal       prometheus.Counter
	CartsAbandonedTotal     prometheus.Counter
	OrdersCreatedTotal      *prometheus.CounterVec
	OrdersCompletedTotal    prometheus.Counter
	OrdersCancelledTotal    prometheus.Counter
	OrderValueTotal         *prometheus.CounterVec
	OrderProcessingDuration prometheus.Histogram

	// Outbox 投递指标
	OutboxDeliveredTotal prometheus.Counter
	OutboxFailedTotal    prometheus.Counter
	OutboxAbandonedTotal prometheus.Counter
	OutboxPendingGauge   prometheus.Gauge
}

// New 创建指标实例
func New(serviceName string) *Metrics {
	return &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shop",
			Subsystem: serviceName,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "shop",
			Subsystem: serviceName,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),

		DBQueryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "shop",
			Subsystem: serviceName,
			Name:      "db_query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		DBConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "shop",
			Subsystem: serviceName,
			Name:      "db_connections",
			Help:      "Number of database connections",
		}),

		CartsCreatedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shop",
			Subsystem: serviceName,
			Name:      "cart_created_total",
			Help:      "Total carts created",
		}),
		CartsAbandonedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shop",
			Subsystem: serviceName,
			Name:      "cart_abandoned_total",
			Help:      "Total carts abandoned",
		}),
		OrdersCreatedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shop",
			Subsystem: serviceName,
			Name:      "orders_created_total",
			Help:      "Total orders created",
		}, []string{"status"}),
		OrdersCompletedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shop",
			Subsystem: serviceName,
			Name:      "orders_completed_total",
			Help:      "Total orders completed",
		}),
		OrdersCancelledTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shop",
			Subsystem: serviceName,
			Name:      "orders_cancelled_total",
			Help:      "Total orders cancelled",
		}),
		OrderValueTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shop",
			Subsystem: serviceName,
			Name:      "order_value_total",
			Help:      "Total order value",
		}, []string{"currency"}),
		OrderProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "shop",
			Subsystem: serviceName,
			Name:      "order_processing_duration_seconds",
			Help:      "Order processing duration",
			Buckets:   prometheus.DefBuckets,
		}),

		OutboxDeliveredTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shop",
			Subsystem: serviceName,
			Name:      "outbox_delivered_total",
			Help:      "Total outbox events delivered",
		}),
		OutboxFailedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shop",
			Subsystem: serviceName,
			Name:      "outbox_delivery_failures_total",
			Help:      "Total outbox delivery failures",
		}),
		OutboxAbandonedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shop",
			Subsystem: serviceName,
			Name:      "outbox_abandoned_total",
			Help:      "Total outbox events abandoned after max attempts",
		}),
		OutboxPendingGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "shop",
			Subsystem: serviceName,
			Name:      "outbox_pending",
			Help:      "Number of pending outbox events",
		}),
	}
}

// Register 注册所有指标
func (m *Metrics) Register() error {
	collectors := []prometheus.Collector{
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.DBQueryDuration,
		m.DBConnections,
		m.CartsCreatedTotal,
		m.CartsAbandonedTotal,
		m.OrdersCreatedTotal,
		m.OrdersCompletedTotal,
		m.OrdersCancelledTotal,
		m.OrderValueTotal,
		m.OrderProcessingDuration,
		m.OutboxDeliveredTotal,
		m.OutboxFailedTotal,
		m.OutboxAbandonedTotal,
		m.OutboxPendingGauge,
	}

	for _, c := range collectors {
		if err := prometheus.DefaultRegisterer.Register(c); err != nil {
			logger.Error(context.Background(), "Failed to register metric", "error", err)
			return err
		}
	}

	logger.Info(context.Background(), "Metrics registered successfully")
	return nil
}

// StartHTTPServer 启动 Prometheus HTTP 服务器
func StartHTTPServer(port int, path string) error {
	if path == "" {
		path = "/metrics"
	}

	http.Handle(path, promhttp.Handler())

	addr := fmt.Sprintf(":%d", port)
	logger.Info(context.Background(), "Starting Prometheus HTTP server", "addr", addr, "path", path)

	go func() {
		if err := http.ListenAndServe(addr, nil); err != nil {
			logger.Error(context.Background(), "Failed to start Prometheus HTTP server", "error", err)
		}
	}()

	return nil
}
