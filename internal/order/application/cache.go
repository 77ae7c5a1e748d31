package application

import (
	"context"

	"github.com/wyfcoding/shopmetrics/internal/order/domain"
)

// EntityCache 实体缓存
// 缓存只是加速层：任何一个方法失败时实现方应自行降级（记日志并当作未命中），
// 不允许把缓存故障上抛成请求失败。
type EntityCache interface {
	GetCart(ctx context.Context, cartID string) (*domain.Cart, bool)
	SetCart(ctx context.Context, cart *domain.Cart)
	InvalidateCart(ctx context.Context, cartID string)
	GetOrder(ctx context.Context, orderID string) (*domain.Order, bool)
	SetOrder(ctx context.Context, order *domain.Order)
	InvalidateOrder(ctx context.Context, orderID string)
}

// NopCache 关闭缓存时的空实现
type NopCache struct{}

func (NopCache) GetCart(context.Context, string) (*domain.Cart, bool)   { return nil, false }
func (NopCache) SetCart(context.Context, *domain.Cart)                  {}
func (NopCache) InvalidateCart(context.Context, string)                 {}
func (NopCache) GetOrder(context.Context, string) (*domain.Order, bool) { return nil, false }
func (NopCache) SetOrder(context.Context, *domain.Order)                {}
func (NopCache) InvalidateOrder(context.Context, string)                {}
