package cache

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/shopmetrics/internal/order/domain"
	pkgcache "github.com/wyfcoding/shopmetrics/pkg/cache"
)

func setupController(t *testing.T) (*Controller, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)
	redisCache, err := pkgcache.New(pkgcache.Config{
		Host:        mr.Host(),
		Port:        port,
		MaxPoolSize: 2,
		ReadTimeout: 1,
	})
	require.NoError(t, err)
	t.Cleanup(func() { redisCache.Close() })

	return NewController(redisCache, 5*time.Minute, 200*time.Millisecond), mr
}

func testCart() *domain.Cart {
	return domain.NewCart("CRT-1", "user-1", nil, domain.DefaultCartTTL)
}

func TestCartRoundTrip(t *testing.T) {
	ctrl, _ := setupController(t)
	ctx := context.Background()

	_, hit := ctrl.GetCart(ctx, "CRT-1")
	assert.False(t, hit)

	ctrl.SetCart(ctx, testCart())

	got, hit := ctrl.GetCart(ctx, "CRT-1")
	require.True(t, hit)
	assert.Equal(t, "CRT-1", got.CartID)
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, domain.CartStatusActive, got.Status)
}

func TestInvalidate(t *testing.T) {
	ctrl, _ := setupController(t)
	ctx := context.Background()

	ctrl.SetCart(ctx, testCart())
	ctrl.InvalidateCart(ctx, "CRT-1")
	_, hit := ctrl.GetCart(ctx, "CRT-1")
	assert.False(t, hit)

	order := &domain.Order{OrderID: "ORD-1", UserID: "user-1", Status: domain.OrderStatusPending}
	ctrl.SetOrder(ctx, order)
	got, hit := ctrl.GetOrder(ctx, "ORD-1")
	require.True(t, hit)
	assert.Equal(t, "ORD-1", got.OrderID)

	ctrl.InvalidateOrder(ctx, "ORD-1")
	_, hit = ctrl.GetOrder(ctx, "ORD-1")
	assert.False(t, hit)
}

func TestEntriesExpire(t *testing.T) {
	ctrl, mr := setupController(t)
	ctx := context.Background()

	ctrl.SetCart(ctx, testCart())
	mr.FastForward(5*time.Minute + time.Second)

	_, hit := ctrl.GetCart(ctx, "CRT-1")
	assert.False(t, hit)
}

func TestDegradesWhenRedisDown(t *testing.T) {
	ctrl, mr := setupController(t)
	ctx := context.Background()

	ctrl.SetCart(ctx, testCart())
	mr.Close()

	// 缓存故障降级为未命中，绝不上抛错误
	_, hit := ctrl.GetCart(ctx, "CRT-1")
	assert.False(t, hit)
	_, hit = ctrl.GetOrder(ctx, "ORD-1")
	assert.False(t, hit)

	// 写入与失效同样静默降级
	ctrl.SetCart(ctx, testCart())
	ctrl.InvalidateCart(ctx, "CRT-1")
}
