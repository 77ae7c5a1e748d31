package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderStatus 订单状态
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// DefaultCurrency 订单默认币种
const DefaultCurrency = "USD"

// maxOrderTotal 单笔订单金额上限，超出视为不可表示
var maxOrderTotal = decimal.New(1, 14)

// orderTransitions 允许的状态迁移集合，completed/cancelled 为终态
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending: {OrderStatusCompleted, OrderStatusCancelled},
}

// ValidOrderStatus 判断字符串是否为已知订单状态
func ValidOrderStatus(s string) bool {
	switch OrderStatus(s) {
	case OrderStatusPending, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// Order 订单实体
// 由购物车转换而来，除 status 与 updated_at 外不可变，永不删除
type Order struct {
	gorm.Model
	// 订单业务 ID
	OrderID string `gorm:"column:order_id;type:varchar(32);uniqueIndex;not null" json:"order_id"`
	// 所属用户 ID
	UserID string `gorm:"column:user_id;type:varchar(36);index;not null" json:"user_id"`
	// 订单状态
	Status OrderStatus `gorm:"column:status;type:varchar(20);index;not null" json:"status"`
	// 合计金额
	Total decimal.Decimal `gorm:"column:total;type:decimal(20,2);not null" json:"total"`
	// 币种
	Currency string `gorm:"column:currency;type:varchar(3);not null" json:"currency"`
	// 状态迁移序号，用于生成唯一幂等键
	EventSeq int `gorm:"column:event_seq;not null;default:0" json:"event_seq"`
	// 收货地址引用
	ShippingAddressID string `gorm:"column:shipping_address_id;type:varchar(36)" json:"shipping_address_id"`
	// 账单地址引用
	BillingAddressID string `gorm:"column:billing_address_id;type:varchar(36)" json:"billing_address_id"`
	// 支付方式引用
	PaymentMethodID string `gorm:"column:payment_method_id;type:varchar(36)" json:"payment_method_id"`
	// 商品明细
	Items []OrderItem `gorm:"foreignKey:OrderID;references:OrderID" json:"items"`
}

// TableName 指定表名
func (Order) TableName() string { return "orders" }

// OrderItem 订单商品明细，单价为转换时从购物车复制的快照，绝不按当前目录价重算
type OrderItem struct {
	gorm.Model
	OrderID   string          `gorm:"column:order_id;type:varchar(32);index;not null" json:"order_id"`
	ProductID string          `gorm:"column:product_id;type:varchar(36);not null" json:"product_id"`
	Quantity  int             `gorm:"column:quantity;not null" json:"quantity"`
	Price     decimal.Decimal `gorm:"column:price;type:decimal(20,2);not null" json:"price"`
}

// TableName 指定表名
func (OrderItem) TableName() string { return "order_items" }

// NewOrderFromCart 由已占用的购物车物化订单
// 合计 = Σ(数量 × 单价快照)；金额为负或超出上限时返回 ErrValidation
func NewOrderFromCart(orderID string, cart *Cart, shippingAddrID, billingAddrID, paymentMethodID string) (*Order, error) {
	total := decimal.Zero
	items := make([]OrderItem, 0, len(cart.Items))
	for _, ci := range cart.Items {
		line := ci.Price.Mul(decimal.NewFromInt(int64(ci.Quantity)))
		if line.IsNegative() {
			return nil, fmt.Errorf("%w: negative line total for product %s", ErrValidation, ci.ProductID)
		}
		total = total.Add(line)
		items = append(items, OrderItem{
			OrderID:   orderID,
			ProductID: ci.ProductID,
			Quantity:  ci.Quantity,
			Price:     ci.Price,
		})
	}
	if total.Cmp(maxOrderTotal) >= 0 {
		return nil, fmt.Errorf("%w: order total %s is not representable", ErrValidation, total)
	}

	return &Order{
		OrderID:           orderID,
		UserID:            cart.UserID,
		Status:            OrderStatusPending,
		Total:             total,
		Currency:          DefaultCurrency,
		ShippingAddressID: shippingAddrID,
		BillingAddressID:  billingAddrID,
		PaymentMethodID:   paymentMethodID,
		Items:             items,
	}, nil
}

// CanTransitionTo 判断状态迁移是否被允许
func (o *Order) CanTransitionTo(next OrderStatus) bool {
	for _, s := range orderTransitions[o.Status] {
		if s == next {
			return true
		}
	}
	return false
}

// TransitionTo 执行状态迁移并递增迁移序号
// 终态订单或非法迁移返回 ErrInvalidTransition
func (o *Order) TransitionTo(next OrderStatus) error {
	if !o.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, next)
	}
	o.Status = next
	o.EventSeq++
	return nil
}
