// OutboxRelay 主程序
// 功能：轮询订单 Outbox 表，把待投递事件按提交顺序写入 Kafka
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wyfcoding/shopmetrics/internal/order/infrastructure/messaging"
	"github.com/wyfcoding/shopmetrics/internal/order/infrastructure/observability"
	"github.com/wyfcoding/shopmetrics/internal/order/infrastructure/persistence/mysql"
	"github.com/wyfcoding/shopmetrics/pkg/config"
	"github.com/wyfcoding/shopmetrics/pkg/db"
	"github.com/wyfcoding/shopmetrics/pkg/logger"
	"github.com/wyfcoding/shopmetrics/pkg/metrics"
	"github.com/wyfcoding/shopmetrics/pkg/mq"
	"github.com/wyfcoding/shopmetrics/pkg/trace"
)

func main() {
	configPath := flag.String("config", "configs/outbox-relay/config.toml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		Output:     cfg.Logger.Output,
		FilePath:   cfg.Logger.FilePath,
		MaxSize:    cfg.Logger.MaxSize,
		MaxBackups: cfg.Logger.MaxBackups,
		MaxAge:     cfg.Logger.MaxAge,
		Compress:   cfg.Logger.Compress,
		WithCaller: cfg.Logger.WithCaller,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	logger.Info(ctx, "Starting OutboxRelay",
		"service", cfg.ServiceName,
		"version", cfg.Version,
		"environment", cfg.Environment,
	)

	if cfg.Tracing.Enabled {
		shutdown, err := trace.InitTracer(cfg.ServiceName, cfg.Tracing.CollectorEndpoint, cfg.Tracing.SamplingRate)
		if err != nil {
			logger.Error(ctx, "Failed to initialize tracer", "error", err)
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error(ctx, "Failed to shutdown tracer", "error", err)
				}
			}()
		}
	}

	database, err := db.Init(db.Config{
		Driver:             cfg.Database.Driver,
		DSN:                cfg.Database.DSN,
		MaxOpenConns:       cfg.Database.MaxOpenConns,
		MaxIdleConns:       cfg.Database.MaxIdleConns,
		ConnMaxLifetime:    cfg.Database.ConnMaxLifetime,
		LogEnabled:         cfg.Database.LogEnabled,
		SlowQueryThreshold: cfg.Database.SlowQueryThreshold,
	})
	if err != nil {
		logger.Fatal(ctx, "Failed to initialize database", "error", err)
	}
	defer database.Close()

	producer, err := mq.NewProducer(mq.KafkaConfig{
		Brokers:      cfg.Kafka.Brokers,
		MaxRetries:   cfg.Kafka.MaxRetries,
		RetryBackoff: cfg.Kafka.RetryBackoff,
	})
	if err != nil {
		logger.Fatal(ctx, "Failed to initialize Kafka producer", "error", err)
	}
	defer producer.Close()

	metricsInstance := metrics.New("outbox_relay")
	if err := metricsInstance.Register(); err != nil {
		logger.Fatal(ctx, "Failed to register metrics", "error", err)
	}
	if cfg.Metrics.Enabled {
		if err := metrics.StartHTTPServer(cfg.Metrics.Port, cfg.Metrics.Path); err != nil {
			logger.Fatal(ctx, "Failed to start metrics HTTP server", "error", err)
		}
	}

	relay := messaging.NewOutboxRelay(
		mysql.NewOutboxRepository(database.DB),
		messaging.NewKafkaEventSink(producer, cfg.Kafka.OrderTopic),
		observability.NewPrometheusObserver(metricsInstance),
		messaging.RelayConfig{
			PollInterval:  time.Duration(cfg.Outbox.PollIntervalMillis) * time.Millisecond,
			BatchSize:     cfg.Outbox.BatchSize,
			MaxAttempts:   cfg.Outbox.MaxAttempts,
			RetryBackoff:  time.Duration(cfg.Outbox.RetryBackoffMillis) * time.Millisecond,
			PurgeInterval: time.Duration(cfg.Outbox.PurgeIntervalMinutes) * time.Minute,
			Retention:     time.Duration(cfg.Outbox.RetentionHours) * time.Hour,
		},
	)

	runCtx, stop := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		relay.Run(runCtx)
		close(done)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info(ctx, "Shutting down OutboxRelay")
	stop()
	<-done
	logger.Info(ctx, "OutboxRelay stopped")
}
