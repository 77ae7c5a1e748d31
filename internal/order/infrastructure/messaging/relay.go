package messaging

import (
	"context"
	"time"

	"github.com/wyfcoding/shopmetrics/internal/order/domain"
	"github.com/wyfcoding/shopmetrics/pkg/logger"
)

// RelayConfig 投递循环配置
type RelayConfig struct {
	PollInterval  time.Duration
	BatchSize     int
	MaxAttempts   int
	RetryBackoff  time.Duration
	PurgeInterval time.Duration
	Retention     time.Duration
}

// OutboxRelay 轮询 Outbox 表并把到期事件投递到事件通道。
// 语义为至少一次：先投递后标记，标记失败会导致同一事件再次投递，
// 下游必须按幂等键去重。
type OutboxRelay struct {
	outbox domain.OutboxRepository
	sink   domain.EventSink
	obs    domain.Observer
	cfg    RelayConfig
}

// NewOutboxRelay 构造投递循环
func NewOutboxRelay(outbox domain.OutboxRepository, sink domain.EventSink, obs domain.Observer, cfg RelayConfig) *OutboxRelay {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 8
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 500 * time.Millisecond
	}
	if cfg.PurgeInterval <= 0 {
		cfg.PurgeInterval = time.Hour
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 24 * time.Hour
	}
	return &OutboxRelay{outbox: outbox, sink: sink, obs: obs, cfg: cfg}
}

// Run 阻塞运行投递循环，ctx 取消后退出
func (r *OutboxRelay) Run(ctx context.Context) {
	logger.Info(ctx, "outbox relay started",
		"poll_interval", r.cfg.PollInterval.String(),
		"batch_size", r.cfg.BatchSize,
		"max_attempts", r.cfg.MaxAttempts,
	)
	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()
	purgeTicker := time.NewTicker(r.cfg.PurgeInterval)
	defer purgeTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "outbox relay stopped")
			return
		case <-ticker.C:
			if _, err := r.DrainOnce(ctx); err != nil {
				logger.Error(ctx, "outbox drain failed", "error", err)
			}
			r.reportPending(ctx)
		case <-purgeTicker.C:
			r.purgeDelivered(ctx)
		}
	}
}

// DrainOnce 取出并处理一批到期事件，返回成功投递数量。
// 同一订单内一旦出现失败，本批中该订单的后续事件全部跳过，
// 保证每个订单的事件严格按提交顺序到达下游。
func (r *OutboxRelay) DrainOnce(ctx context.Context) (int, error) {
	now := time.Now()
	events, err := r.outbox.FetchDue(ctx, now, r.cfg.BatchSize)
	if err != nil {
		return 0, err
	}
	if len(events) == 0 {
		return 0, nil
	}

	delivered := 0
	blocked := make(map[string]bool)
	for _, event := range events {
		if blocked[event.OrderID] {
			continue
		}
		if err := r.sink.Send(ctx, event); err != nil {
			blocked[event.OrderID] = true
			r.handleFailure(ctx, event, err)
			continue
		}
		if err := r.outbox.MarkDelivered(ctx, event.ID); err != nil {
			// 标记失败时事件会被重新投递，由下游去重兜底
			blocked[event.OrderID] = true
			logger.Error(ctx, "mark delivered failed, event will be redelivered",
				"event_id", event.EventID, "error", err)
			continue
		}
		delivered++
		r.obs.OutboxDelivered(ctx, event)
	}

	if delivered > 0 {
		logger.Info(ctx, "outbox batch drained", "fetched", len(events), "delivered", delivered)
	}
	return delivered, nil
}

func (r *OutboxRelay) handleFailure(ctx context.Context, event *domain.OutboxEvent, cause error) {
	abandoned := event.RecordFailure(time.Now(), r.cfg.RetryBackoff, r.cfg.MaxAttempts)
	if err := r.outbox.Reschedule(ctx, event); err != nil {
		logger.Error(ctx, "reschedule outbox event failed",
			"event_id", event.EventID, "error", err)
		return
	}
	if abandoned {
		// failed 状态的行永久保留，等待人工排查后重置
		logger.Error(ctx, "outbox event abandoned after max attempts",
			"event_id", event.EventID,
			"order_id", event.OrderID,
			"event_type", event.EventType,
			"attempts", event.Attempts,
			"cause", cause,
		)
		r.obs.OutboxAbandoned(ctx, event)
		return
	}
	logger.Warn(ctx, "outbox delivery failed, scheduled retry",
		"event_id", event.EventID,
		"order_id", event.OrderID,
		"attempts", event.Attempts,
		"next_retry_at", event.NextRetryAt,
		"cause", cause,
	)
	r.obs.OutboxDeliveryFailed(ctx, event)
}

func (r *OutboxRelay) purgeDelivered(ctx context.Context) {
	before := time.Now().Add(-r.cfg.Retention)
	if err := r.outbox.PurgeDelivered(ctx, before); err != nil {
		logger.Warn(ctx, "purge delivered outbox events failed", "error", err)
	}
}

func (r *OutboxRelay) reportPending(ctx context.Context) {
	count, err := r.outbox.CountPending(ctx)
	if err != nil {
		logger.Warn(ctx, "count pending outbox events failed", "error", err)
		return
	}
	r.obs.OutboxPending(ctx, count)
}
