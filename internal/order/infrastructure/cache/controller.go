// Package cache 基于 Redis 的实体缓存
package cache

import (
	"context"
	"time"

	"github.com/wyfcoding/shopmetrics/internal/order/application"
	"github.com/wyfcoding/shopmetrics/internal/order/domain"
	"github.com/wyfcoding/shopmetrics/pkg/cache"
	"github.com/wyfcoding/shopmetrics/pkg/logger"
)

const (
	cartKeyPrefix  = "cart:"
	orderKeyPrefix = "order:"
)

// Controller 旁路缓存实现
// 每次缓存操作带独立超时；任何失败只记日志并按未命中降级，
// 存储才是事实来源，缓存故障不允许影响请求结果。
type Controller struct {
	redis     *cache.RedisCache
	ttl       time.Duration
	opTimeout time.Duration
}

// NewController 构造缓存控制器
func NewController(redis *cache.RedisCache, ttl, opTimeout time.Duration) *Controller {
	return &Controller{redis: redis, ttl: ttl, opTimeout: opTimeout}
}

var _ application.EntityCache = (*Controller)(nil)

func (c *Controller) GetCart(ctx context.Context, cartID string) (*domain.Cart, bool) {
	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()
	var cart domain.Cart
	hit, err := c.redis.GetJSON(ctx, cartKeyPrefix+cartID, &cart)
	if err != nil {
		logger.Warn(ctx, "cache get degraded", "key", cartKeyPrefix+cartID, "error", err)
		return nil, false
	}
	if !hit {
		return nil, false
	}
	return &cart, true
}

func (c *Controller) SetCart(ctx context.Context, cart *domain.Cart) {
	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()
	if err := c.redis.SetJSON(ctx, cartKeyPrefix+cart.CartID, cart, c.ttl); err != nil {
		logger.Warn(ctx, "cache set degraded", "key", cartKeyPrefix+cart.CartID, "error", err)
	}
}

func (c *Controller) InvalidateCart(ctx context.Context, cartID string) {
	c.invalidate(ctx, cartKeyPrefix+cartID)
}

func (c *Controller) GetOrder(ctx context.Context, orderID string) (*domain.Order, bool) {
	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()
	var order domain.Order
	hit, err := c.redis.GetJSON(ctx, orderKeyPrefix+orderID, &order)
	if err != nil {
		logger.Warn(ctx, "cache get degraded", "key", orderKeyPrefix+orderID, "error", err)
		return nil, false
	}
	if !hit {
		return nil, false
	}
	return &order, true
}

func (c *Controller) SetOrder(ctx context.Context, order *domain.Order) {
	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()
	if err := c.redis.SetJSON(ctx, orderKeyPrefix+order.OrderID, order, c.ttl); err != nil {
		logger.Warn(ctx, "cache set degraded", "key", orderKeyPrefix+order.OrderID, "error", err)
	}
}

func (c *Controller) InvalidateOrder(ctx context.Context, orderID string) {
	c.invalidate(ctx, orderKeyPrefix+orderID)
}

func (c *Controller) invalidate(ctx context.Context, key string) {
	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()
	if err := c.redis.Delete(ctx, key); err != nil {
		// 失效失败最多造成一个 TTL 窗口内的陈旧读
		logger.Warn(ctx, "cache invalidate degraded", "key", key, "error", err)
	}
}
