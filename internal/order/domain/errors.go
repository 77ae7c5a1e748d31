package domain

import "errors"

// 订单核心的错误分类。调用方通过 errors.Is 判定处理策略：
// 校验与状态类错误直接返回给调用方，基础设施错误可安全重试。
var (
	// ErrValidation 输入不合法（数量非正、商品不存在、分页越界、金额不可表示）
	ErrValidation = errors.New("validation failed")
	// ErrNotFound 实体不存在或对调用方不可见
	ErrNotFound = errors.New("entity not found")
	// ErrCartUnavailable 购物车已被占用、已过期或不存在，转换竞争失败
	ErrCartUnavailable = errors.New("cart unavailable")
	// ErrEmptyCart 购物车没有商品，无法转换为订单
	ErrEmptyCart = errors.New("cart is empty")
	// ErrInvalidTransition 订单状态迁移不被状态机允许
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrInfrastructure 存储/消息通道瞬时故障，调用方可重试
	ErrInfrastructure = errors.New("transient infrastructure failure")
)
