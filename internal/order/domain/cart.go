// Package domain 包含订单核心的领域模型：购物车、订单、Outbox 事件与状态机
package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CartStatus 购物车生命周期状态
type CartStatus string

const (
	// CartStatusActive 可变更，可被转换为订单
	CartStatusActive CartStatus = "active"
	// CartStatusClaimed 已被订单转换占用，不可再变更
	CartStatusClaimed CartStatus = "claimed"
	// CartStatusExpired 超过有效期被清扫，不可再变更
	CartStatusExpired CartStatus = "expired"
)

// DefaultCartTTL 购物车默认有效期
const DefaultCartTTL = 24 * time.Hour

// Cart 购物车实体
// claimed/expired 状态的购物车是不可变的，绝不允许再次转换
type Cart struct {
	gorm.Model
	// 购物车业务 ID
	CartID string `gorm:"column:cart_id;type:varchar(32);uniqueIndex;not null" json:"cart_id"`
	// 所属用户 ID
	UserID string `gorm:"column:user_id;type:varchar(36);index;not null" json:"user_id"`
	// 生命周期状态
	Status CartStatus `gorm:"column:status;type:varchar(10);index;not null" json:"status"`
	// 过期时间（创建时间 + 固定 TTL）
	ExpiresAt time.Time `gorm:"column:expires_at;index;not null" json:"expires_at"`
	// 商品明细
	Items []CartItem `gorm:"foreignKey:CartID;references:CartID" json:"items"`
}

// TableName 指定表名
func (Cart) TableName() string { return "carts" }

// CartItem 购物车商品明细，价格为加入时的快照
type CartItem struct {
	gorm.Model
	CartID    string          `gorm:"column:cart_id;type:varchar(32);index;not null" json:"cart_id"`
	ProductID string          `gorm:"column:product_id;type:varchar(36);not null" json:"product_id"`
	Quantity  int             `gorm:"column:quantity;not null" json:"quantity"`
	Price     decimal.Decimal `gorm:"column:price;type:decimal(20,2);not null" json:"price"`
}

// TableName 指定表名
func (CartItem) TableName() string { return "cart_items" }

// NewCart 创建处于 active 状态的购物车
func NewCart(cartID, userID string, items []CartItem, ttl time.Duration) *Cart {
	now := time.Now()
	for i := range items {
		items[i].CartID = cartID
	}
	return &Cart{
		CartID:    cartID,
		UserID:    userID,
		Status:    CartStatusActive,
		ExpiresAt: now.Add(ttl),
		Items:     items,
	}
}

// IsActive 是否仍可变更/转换
func (c *Cart) IsActive() bool {
	return c.Status == CartStatusActive
}

// IsExpiredAt 截至给定时间是否已超过有效期
func (c *Cart) IsExpiredAt(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// Total 计算购物车合计金额（数量 × 单价快照）
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}
