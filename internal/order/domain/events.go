package domain

import "time"

// OrderEventPayload 投递给下游的订单摘要
// 金额以定点十进制字符串传输，不使用二进制浮点
type OrderEventPayload struct {
	Event           string           `json:"event"`
	OrderID         string           `json:"order_id"`
	UserID          string           `json:"user_id"`
	Status          string           `json:"status"`
	Total           string           `json:"total"`
	Currency        string           `json:"currency"`
	Items           []OrderEventItem `json:"items"`
	PaymentMethodID string           `json:"payment_method_id,omitempty"`
	OccurredOn      time.Time        `json:"occurred_on"`
}

// OrderEventItem 事件中的商品明细
type OrderEventItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Price     string `json:"price"`
}

// NewOrderEventPayload 由订单构造事件摘要
func NewOrderEventPayload(eventType string, order *Order) OrderEventPayload {
	items := make([]OrderEventItem, 0, len(order.Items))
	for _, it := range order.Items {
		items = append(items, OrderEventItem{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     it.Price.String(),
		})
	}
	return OrderEventPayload{
		Event:           eventType,
		OrderID:         order.OrderID,
		UserID:          order.UserID,
		Status:          string(order.Status),
		Total:           order.Total.String(),
		Currency:        order.Currency,
		Items:           items,
		PaymentMethodID: order.PaymentMethodID,
		OccurredOn:      time.Now(),
	}
}
