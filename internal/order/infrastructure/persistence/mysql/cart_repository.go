// Package mysql 基于 GORM 的仓储实现
package mysql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wyfcoding/shopmetrics/internal/order/domain"
	"gorm.io/gorm"
)

type cartRepository struct{ db *gorm.DB }

// NewCartRepository 构造购物车仓储
func NewCartRepository(db *gorm.DB) domain.CartRepository {
	return &cartRepository{db: db}
}

func (r *cartRepository) Create(ctx context.Context, cart *domain.Cart) error {
	return r.db.WithContext(ctx).Create(cart).Error
}

func (r *cartRepository) Get(ctx context.Context, cartID string) (*domain.Cart, error) {
	var cart domain.Cart
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("cart_id = ?", cartID).
		First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// Claim 条件更新是并发转换的唯一仲裁点：
// 只有状态仍为 active 且未过期的行才会被迁移到 claimed，
// 没有命中任何行即判定竞争失败。
func (r *cartRepository) Claim(ctx context.Context, cartID string, now time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&domain.Cart{}).
		Where("cart_id = ? AND status = ? AND expires_at > ?", cartID, domain.CartStatusActive, now).
		Update("status", domain.CartStatusClaimed)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: cart %s", domain.ErrCartUnavailable, cartID)
	}
	return nil
}

func (r *cartRepository) Purge(ctx context.Context, cartID string) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Unscoped().Where("cart_id = ?", cartID).Delete(&domain.CartItem{}).Error; err != nil {
		return err
	}
	return tx.Unscoped().Where("cart_id = ?", cartID).Delete(&domain.Cart{}).Error
}

// ExpireDue 将已超期的 active 购物车迁移到 expired 并清除其明细。
// 迁移同样走条件更新，与转换竞争同一购物车时以先提交者为准。
func (r *cartRepository) ExpireDue(ctx context.Context, now time.Time) ([]string, error) {
	var expired []string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var candidates []string
		if err := tx.Model(&domain.Cart{}).
			Where("status = ? AND expires_at <= ?", domain.CartStatusActive, now).
			Pluck("cart_id", &candidates).Error; err != nil {
			return err
		}
		if len(candidates) == 0 {
			return nil
		}
		if err := tx.Model(&domain.Cart{}).
			Where("cart_id IN ? AND status = ? AND expires_at <= ?", candidates, domain.CartStatusActive, now).
			Update("status", domain.CartStatusExpired).Error; err != nil {
			return err
		}
		// 只回收真正迁移成功的那部分，竞争中被转换赢走的不算
		if err := tx.Model(&domain.Cart{}).
			Where("cart_id IN ? AND status = ?", candidates, domain.CartStatusExpired).
			Pluck("cart_id", &expired).Error; err != nil {
			return err
		}
		if len(expired) == 0 {
			return nil
		}
		return tx.Unscoped().Where("cart_id IN ?", expired).Delete(&domain.CartItem{}).Error
	})
	if err != nil {
		return nil, err
	}
	return expired, nil
}
