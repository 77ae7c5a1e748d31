package application

import (
	"time"

	"github.com/wyfcoding/shopmetrics/internal/order/domain"
)

// CartItemInput 创建购物车时的单个商品行
type CartItemInput struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Price     string `json:"price"`
}

// CreateCartRequest 创建购物车请求
type CreateCartRequest struct {
	UserID string          `json:"user_id"`
	Items  []CartItemInput `json:"items"`
}

// CartDTO 购物车视图
type CartDTO struct {
	CartID    string        `json:"cart_id"`
	UserID    string        `json:"user_id"`
	Status    string        `json:"status"`
	Total     string        `json:"total"`
	ExpiresAt time.Time     `json:"expires_at"`
	Items     []CartItemDTO `json:"items"`
}

// CartItemDTO 购物车商品行视图
type CartItemDTO struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name,omitempty"`
	ImageURL  string `json:"image_url,omitempty"`
	Quantity  int    `json:"quantity"`
	Price     string `json:"price"`
}

// CreateOrderRequest 购物车转订单请求
type CreateOrderRequest struct {
	CartID            string `json:"cart_id"`
	ShippingAddressID string `json:"shipping_address_id"`
	BillingAddressID  string `json:"billing_address_id"`
	PaymentMethodID   string `json:"payment_method_id"`
}

// UpdateOrderStatusRequest 订单状态变更请求
type UpdateOrderStatusRequest struct {
	Status string `json:"status"`
}

// OrderDTO 订单视图
type OrderDTO struct {
	OrderID           string         `json:"order_id"`
	UserID            string         `json:"user_id"`
	Status            string         `json:"status"`
	Total             string         `json:"total"`
	Currency          string         `json:"currency"`
	ShippingAddressID string         `json:"shipping_address_id,omitempty"`
	BillingAddressID  string         `json:"billing_address_id,omitempty"`
	PaymentMethodID   string         `json:"payment_method_id,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	Items             []OrderItemDTO `json:"items"`
}

// OrderItemDTO 订单商品行视图
type OrderItemDTO struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Price     string `json:"price"`
}

// OrderListDTO 用户订单列表视图
type OrderListDTO struct {
	Orders []*OrderDTO `json:"orders"`
	Total  int64       `json:"total"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}

// products 为 nil 时商品行只带快照字段
func toCartDTO(cart *domain.Cart, products map[string]domain.ProductInfo) *CartDTO {
	items := make([]CartItemDTO, 0, len(cart.Items))
	for _, it := range cart.Items {
		info := products[it.ProductID]
		items = append(items, CartItemDTO{
			ProductID: it.ProductID,
			Name:      info.Name,
			ImageURL:  info.ImageURL,
			Quantity:  it.Quantity,
			Price:     it.Price.String(),
		})
	}
	return &CartDTO{
		CartID:    cart.CartID,
		UserID:    cart.UserID,
		Status:    string(cart.Status),
		Total:     cart.Total().String(),
		ExpiresAt: cart.ExpiresAt,
		Items:     items,
	}
}

func toOrderDTO(order *domain.Order) *OrderDTO {
	items := make([]OrderItemDTO, 0, len(order.Items))
	for _, it := range order.Items {
		items = append(items, OrderItemDTO{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     it.Price.String(),
		})
	}
	return &OrderDTO{
		OrderID:           order.OrderID,
		UserID:            order.UserID,
		Status:            string(order.Status),
		Total:             order.Total.String(),
		Currency:          order.Currency,
		ShippingAddressID: order.ShippingAddressID,
		BillingAddressID:  order.BillingAddressID,
		PaymentMethodID:   order.PaymentMethodID,
		CreatedAt:         order.CreatedAt,
		UpdatedAt:         order.UpdatedAt,
		Items:             items,
	}
}
