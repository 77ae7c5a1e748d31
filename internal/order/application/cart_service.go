package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/shopmetrics/internal/order/domain"
	"github.com/wyfcoding/shopmetrics/pkg/logger"
	"github.com/wyfcoding/shopmetrics/pkg/utils"
)

// CartService 购物车应用服务
type CartService struct {
	carts   domain.CartRepository
	catalog domain.ProductCatalog
	cache   EntityCache
	obs     domain.Observer
	idGen   *utils.SnowflakeID
	ttl     time.Duration
}

// NewCartService 构造函数
func NewCartService(
	carts domain.CartRepository,
	catalog domain.ProductCatalog,
	cache EntityCache,
	obs domain.Observer,
	idGen *utils.SnowflakeID,
	ttl time.Duration,
) *CartService {
	if ttl <= 0 {
		ttl = domain.DefaultCartTTL
	}
	return &CartService{
		carts:   carts,
		catalog: catalog,
		cache:   cache,
		obs:     obs,
		idGen:   idGen,
		ttl:     ttl,
	}
}

// CreateCart 创建购物车
// 校验商品行并确认所有商品在目录中可解析，价格快照在此刻固定
func (s *CartService) CreateCart(ctx context.Context, req CreateCartRequest) (*CartDTO, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return nil, fmt.Errorf("%w: user_id is required", domain.ErrValidation)
	}
	items, productIDs, err := parseCartItems(req.Items)
	if err != nil {
		return nil, err
	}
	if len(productIDs) > 0 {
		missing, err := s.catalog.Missing(ctx, productIDs)
		if err != nil {
			return nil, fmt.Errorf("%w: product catalog lookup: %v", domain.ErrInfrastructure, err)
		}
		if len(missing) > 0 {
			return nil, fmt.Errorf("%w: unknown products %s", domain.ErrValidation, strings.Join(missing, ","))
		}
	}

	cartID := fmt.Sprintf("CRT-%d", s.idGen.Generate())
	cart := domain.NewCart(cartID, req.UserID, items, s.ttl)
	if err := s.carts.Create(ctx, cart); err != nil {
		return nil, fmt.Errorf("%w: create cart: %v", domain.ErrInfrastructure, err)
	}
	// 写路径不预热缓存，首次读取时再回填
	s.obs.CartCreated(ctx, cart)

	logger.Info(ctx, "cart created",
		"cart_id", cart.CartID,
		"user_id", cart.UserID,
		"items", len(cart.Items),
	)
	return toCartDTO(cart, nil), nil
}

// GetCart 查询购物车
// 旁路缓存读取；claimed/expired 以及超过有效期的购物车对调用方不可见。
// 商品行附带目录中的名称与图片，目录不可用时降级为仅快照字段。
func (s *CartService) GetCart(ctx context.Context, cartID string) (*CartDTO, error) {
	if cartID == "" {
		return nil, fmt.Errorf("%w: cart_id is required", domain.ErrValidation)
	}
	if cart, ok := s.cache.GetCart(ctx, cartID); ok {
		if visible(cart, time.Now()) {
			return toCartDTO(cart, s.describeItems(ctx, cart)), nil
		}
		return nil, fmt.Errorf("%w: cart %s", domain.ErrNotFound, cartID)
	}

	cart, err := s.carts.Get(ctx, cartID)
	if err != nil {
		return nil, fmt.Errorf("%w: get cart: %v", domain.ErrInfrastructure, err)
	}
	if cart == nil || !visible(cart, time.Now()) {
		return nil, fmt.Errorf("%w: cart %s", domain.ErrNotFound, cartID)
	}
	s.cache.SetCart(ctx, cart)
	return toCartDTO(cart, s.describeItems(ctx, cart)), nil
}

func (s *CartService) describeItems(ctx context.Context, cart *domain.Cart) map[string]domain.ProductInfo {
	if len(cart.Items) == 0 {
		return nil
	}
	ids := make([]string, 0, len(cart.Items))
	for _, it := range cart.Items {
		ids = append(ids, it.ProductID)
	}
	infos, err := s.catalog.Describe(ctx, ids)
	if err != nil {
		logger.Warn(ctx, "product catalog lookup failed, serving cart without product info",
			"cart_id", cart.CartID, "error", err)
		return nil
	}
	return infos
}

// SweepExpiredCarts 清扫超期购物车，返回本次清扫数量
// 清扫与转换竞争同一条件更新，同一购物车只会被其中一方赢得
func (s *CartService) SweepExpiredCarts(ctx context.Context) (int, error) {
	expired, err := s.carts.ExpireDue(ctx, time.Now())
	if err != nil {
		return 0, fmt.Errorf("%w: expire carts: %v", domain.ErrInfrastructure, err)
	}
	for _, cartID := range expired {
		s.cache.InvalidateCart(ctx, cartID)
	}
	if len(expired) > 0 {
		s.obs.CartsExpired(ctx, len(expired))
		logger.Info(ctx, "expired carts swept", "count", len(expired))
	}
	return len(expired), nil
}

func visible(cart *domain.Cart, now time.Time) bool {
	return cart.IsActive() && !cart.IsExpiredAt(now)
}

func parseCartItems(inputs []CartItemInput) ([]domain.CartItem, []string, error) {
	items := make([]domain.CartItem, 0, len(inputs))
	productIDs := make([]string, 0, len(inputs))
	for i, in := range inputs {
		if strings.TrimSpace(in.ProductID) == "" {
			return nil, nil, fmt.Errorf("%w: items[%d].product_id is required", domain.ErrValidation, i)
		}
		if in.Quantity <= 0 {
			return nil, nil, fmt.Errorf("%w: items[%d].quantity must be positive", domain.ErrValidation, i)
		}
		price, err := decimal.NewFromString(in.Price)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: items[%d].price %q is not a decimal", domain.ErrValidation, i, in.Price)
		}
		if price.IsNegative() {
			return nil, nil, fmt.Errorf("%w: items[%d].price must not be negative", domain.ErrValidation, i)
		}
		items = append(items, domain.CartItem{
			ProductID: in.ProductID,
			Quantity:  in.Quantity,
			Price:     price,
		})
		productIDs = append(productIDs, in.ProductID)
	}
	return items, productIDs, nil
}
