package mysql

import (
	"context"

	"github.com/wyfcoding/shopmetrics/internal/order/domain"
	"github.com/wyfcoding/shopmetrics/pkg/db"
	"gorm.io/gorm"
)

type unitOfWork struct{ db *db.DB }

// NewUnitOfWork 构造基于单库事务的工作单元
// fn 内通过事务作用域的仓储操作数据，fn 返回错误时整体回滚
func NewUnitOfWork(database *db.DB) domain.UnitOfWork {
	return &unitOfWork{db: database}
}

func (u *unitOfWork) Do(ctx context.Context, fn func(repos domain.Repositories) error) error {
	return u.db.WithTx(ctx, func(tx *gorm.DB) error {
		return fn(domain.Repositories{
			Carts:  NewCartRepository(tx),
			Orders: NewOrderRepository(tx),
			Outbox: NewOutboxRepository(tx),
		})
	})
}
