package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wyfcoding/shopmetrics/internal/order/domain"
	"github.com/wyfcoding/shopmetrics/pkg/logger"
	"github.com/wyfcoding/shopmetrics/pkg/utils"
)

const maxListLimit = 100

// OrderService 订单应用服务
// 写路径（转换、状态变更）全部走单事务的 UnitOfWork，
// 业务变更与对应的 Outbox 事件行在同一次提交中落库。
type OrderService struct {
	uow    domain.UnitOfWork
	orders domain.OrderRepository
	cache  EntityCache
	obs    domain.Observer
	idGen  *utils.SnowflakeID
}

// NewOrderService 构造函数
func NewOrderService(
	uow domain.UnitOfWork,
	orders domain.OrderRepository,
	cache EntityCache,
	obs domain.Observer,
	idGen *utils.SnowflakeID,
) *OrderService {
	return &OrderService{
		uow:    uow,
		orders: orders,
		cache:  cache,
		obs:    obs,
		idGen:  idGen,
	}
}

// CreateOrder 将购物车转换为订单
// 占用购物车、物化订单、追加 OrderCreated 事件、删除购物车四步在同一事务内完成；
// 任何一步失败整体回滚，购物车保持 active 可被重试。
// 占用走条件更新，并发转换最多只有一个请求成功，其余得到 ErrCartUnavailable。
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*OrderDTO, error) {
	if req.CartID == "" {
		return nil, fmt.Errorf("%w: cart_id is required", domain.ErrValidation)
	}

	orderID := fmt.Sprintf("ORD-%d", s.idGen.Generate())
	now := time.Now()

	var order *domain.Order
	err := s.uow.Do(ctx, func(repos domain.Repositories) error {
		if err := repos.Carts.Claim(ctx, req.CartID, now); err != nil {
			return err
		}
		cart, err := repos.Carts.Get(ctx, req.CartID)
		if err != nil {
			return err
		}
		if cart == nil {
			return fmt.Errorf("%w: cart %s", domain.ErrCartUnavailable, req.CartID)
		}
		if len(cart.Items) == 0 {
			return fmt.Errorf("%w: cart %s", domain.ErrEmptyCart, req.CartID)
		}

		order, err = domain.NewOrderFromCart(orderID, cart, req.ShippingAddressID, req.BillingAddressID, req.PaymentMethodID)
		if err != nil {
			return err
		}
		if err := repos.Orders.Create(ctx, order); err != nil {
			return err
		}

		event, err := newOutboxEvent(domain.EventTypeOrderCreated, order, domain.CreationIdempotencyKey(orderID), now)
		if err != nil {
			return err
		}
		if err := repos.Outbox.Append(ctx, event); err != nil {
			return err
		}
		return repos.Carts.Purge(ctx, req.CartID)
	})
	if err != nil {
		return nil, classify("create order", err)
	}

	s.cache.InvalidateCart(ctx, req.CartID)
	s.cache.SetOrder(ctx, order)
	s.obs.OrderCreated(ctx, order)

	logger.Info(ctx, "order created from cart",
		"order_id", order.OrderID,
		"cart_id", req.CartID,
		"user_id", order.UserID,
		"total", order.Total.String(),
	)
	return toOrderDTO(order), nil
}

// GetOrder 查询订单详情，旁路缓存读取
func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*OrderDTO, error) {
	if orderID == "" {
		return nil, fmt.Errorf("%w: order_id is required", domain.ErrValidation)
	}
	if order, ok := s.cache.GetOrder(ctx, orderID); ok {
		return toOrderDTO(order), nil
	}
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("%w: get order: %v", domain.ErrInfrastructure, err)
	}
	if order == nil {
		return nil, fmt.Errorf("%w: order %s", domain.ErrNotFound, orderID)
	}
	s.cache.SetOrder(ctx, order)
	return toOrderDTO(order), nil
}

// ListOrdersForUser 查询用户订单列表，按创建时间倒序分页
func (s *OrderService) ListOrdersForUser(ctx context.Context, userID string, limit, offset int) (*OrderListDTO, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", domain.ErrValidation)
	}
	if limit <= 0 || limit > maxListLimit {
		return nil, fmt.Errorf("%w: limit must be between 1 and %d", domain.ErrValidation, maxListLimit)
	}
	if offset < 0 {
		return nil, fmt.Errorf("%w: offset must not be negative", domain.ErrValidation)
	}

	orders, total, err := s.orders.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: list orders: %v", domain.ErrInfrastructure, err)
	}
	dtos := make([]*OrderDTO, 0, len(orders))
	for _, o := range orders {
		dtos = append(dtos, toOrderDTO(o))
	}
	return &OrderListDTO{Orders: dtos, Total: total, Limit: limit, Offset: offset}, nil
}

// UpdateStatus 变更订单状态
// 行锁下校验状态机后更新，并在同一事务内追加对应的迁移事件；
// 幂等键由订单 ID、事件类型与迁移序号组成，重复投递可被下游去重。
func (s *OrderService) UpdateStatus(ctx context.Context, orderID string, req UpdateOrderStatusRequest) (*OrderDTO, error) {
	if orderID == "" {
		return nil, fmt.Errorf("%w: order_id is required", domain.ErrValidation)
	}
	if !domain.ValidOrderStatus(req.Status) {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrValidation, req.Status)
	}
	next := domain.OrderStatus(req.Status)
	now := time.Now()

	var (
		order    *domain.Order
		previous domain.OrderStatus
	)
	err := s.uow.Do(ctx, func(repos domain.Repositories) error {
		o, err := repos.Orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if o == nil {
			return fmt.Errorf("%w: order %s", domain.ErrNotFound, orderID)
		}
		previous = o.Status
		if err := o.TransitionTo(next); err != nil {
			return err
		}
		if err := repos.Orders.UpdateStatus(ctx, orderID, o.Status, o.EventSeq); err != nil {
			return err
		}

		eventType := eventTypeForStatus(o.Status)
		event, err := newOutboxEvent(eventType, o, domain.TransitionIdempotencyKey(orderID, eventType, o.EventSeq), now)
		if err != nil {
			return err
		}
		if err := repos.Outbox.Append(ctx, event); err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, classify("update order status", err)
	}

	s.cache.InvalidateOrder(ctx, orderID)
	s.obs.OrderStatusChanged(ctx, order, previous)

	logger.Info(ctx, "order status changed",
		"order_id", orderID,
		"from", string(previous),
		"to", string(order.Status),
		"event_seq", order.EventSeq,
	)
	return toOrderDTO(order), nil
}

func newOutboxEvent(eventType string, order *domain.Order, idempotencyKey string, now time.Time) (*domain.OutboxEvent, error) {
	payload, err := json.Marshal(domain.NewOrderEventPayload(eventType, order))
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return &domain.OutboxEvent{
		EventID:        uuid.NewString(),
		OrderID:        order.OrderID,
		EventType:      eventType,
		Payload:        string(payload),
		IdempotencyKey: idempotencyKey,
		Status:         domain.OutboxStatusPending,
		NextRetryAt:    now,
	}, nil
}

func eventTypeForStatus(status domain.OrderStatus) string {
	switch status {
	case domain.OrderStatusCompleted:
		return domain.EventTypeOrderCompleted
	case domain.OrderStatusCancelled:
		return domain.EventTypeOrderCancelled
	default:
		return domain.EventTypeOrderCreated
	}
}

// classify 保留领域错误原样上抛，其余视为基础设施故障
func classify(op string, err error) error {
	for _, sentinel := range []error{
		domain.ErrValidation,
		domain.ErrNotFound,
		domain.ErrCartUnavailable,
		domain.ErrEmptyCart,
		domain.ErrInvalidTransition,
	} {
		if errors.Is(err, sentinel) {
			return err
		}
	}
	return fmt.Errorf("%w: %s: %v", domain.ErrInfrastructure, op, err)
}
