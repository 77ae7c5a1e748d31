package domain

import (
	"context"
	"time"
)

// CartRepository 购物车仓储接口
type CartRepository interface {
	// 保存购物车及其明细
	Create(ctx context.Context, cart *Cart) error
	// 获取购物车（含明细），不存在时返回 (nil, nil)
	Get(ctx context.Context, cartID string) (*Cart, error)
	// 条件占用：仅当状态为 active 且未过期时迁移到 claimed
	// 竞争失败（已占用/已过期/不存在）返回 ErrCartUnavailable
	Claim(ctx context.Context, cartID string, now time.Time) error
	// 删除购物车行及其明细（订单物化之后调用，保证购物车不会复活）
	Purge(ctx context.Context, cartID string) error
	// 将所有已超期的 active 购物车迁移到 expired 并清除其明细，返回受影响的购物车 ID
	ExpireDue(ctx context.Context, now time.Time) ([]string, error)
}

// OrderRepository 订单仓储接口
type OrderRepository interface {
	// 保存订单及其明细
	Create(ctx context.Context, order *Order) error
	// 获取订单（含明细），不存在时返回 (nil, nil)
	Get(ctx context.Context, orderID string) (*Order, error)
	// 获取订单并持有行锁（仅在事务内使用）
	GetForUpdate(ctx context.Context, orderID string) (*Order, error)
	// 获取用户订单列表，按创建时间倒序
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*Order, int64, error)
	// 更新订单状态与迁移序号
	UpdateStatus(ctx context.Context, orderID string, status OrderStatus, eventSeq int) error
}

// OutboxRepository Outbox 仓储接口
type OutboxRepository interface {
	// 追加事件行（与业务变更同一事务）
	Append(ctx context.Context, event *OutboxEvent) error
	// 按提交顺序取出到期待投递的事件
	FetchDue(ctx context.Context, now time.Time, limit int) ([]*OutboxEvent, error)
	// 标记事件已投递
	MarkDelivered(ctx context.Context, id uint) error
	// 持久化失败重试信息（attempts/status/next_retry_at）
	Reschedule(ctx context.Context, event *OutboxEvent) error
	// 统计待投递事件数
	CountPending(ctx context.Context) (int64, error)
	// 归档清理给定时间之前已投递的事件
	PurgeDelivered(ctx context.Context, before time.Time) error
}

// Repositories 一次事务内可用的仓储集合
type Repositories struct {
	Carts  CartRepository
	Orders OrderRepository
	Outbox OutboxRepository
}

// UnitOfWork 在单个存储事务中执行 fn，fn 返回错误时整体回滚
type UnitOfWork interface {
	Do(ctx context.Context, fn func(repos Repositories) error) error
}

// ProductInfo 商品目录中的展示信息
type ProductInfo struct {
	ProductID string
	Name      string
	ImageURL  string
}

// ProductCatalog 商品目录，用于校验商品引用可解析并充实读取视图
type ProductCatalog interface {
	// 返回给定 ID 中不存在的商品
	Missing(ctx context.Context, productIDs []string) ([]string, error)
	// 按商品 ID 返回展示信息，未知 ID 不在结果中
	Describe(ctx context.Context, productIDs []string) (map[string]ProductInfo, error)
}

// EventSink 事件投递通道（至少一次语义，下游按幂等键去重）
type EventSink interface {
	Send(ctx context.Context, event *OutboxEvent) error
}
