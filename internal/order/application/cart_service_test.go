package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/shopmetrics/internal/order/domain"
	"github.com/wyfcoding/shopmetrics/pkg/utils"
)

func newCartService(store *memStore, catalog domain.ProductCatalog, obs domain.Observer) *CartService {
	if catalog == nil {
		catalog = stubCatalog{}
	}
	if obs == nil {
		obs = domain.NopObserver{}
	}
	return NewCartService(lockedCartRepo{s: store}, catalog, NopCache{}, obs, utils.NewSnowflakeID(1), domain.DefaultCartTTL)
}

func validCartRequest() CreateCartRequest {
	return CreateCartRequest{
		UserID: "user-1",
		Items: []CartItemInput{
			{ProductID: "p1", Quantity: 2, Price: "10.00"},
			{ProductID: "p2", Quantity: 1, Price: "5.50"},
		},
	}
}

func TestCreateCart(t *testing.T) {
	store := newMemStore()
	obs := &recordingObserver{}
	svc := newCartService(store, nil, obs)

	cart, err := svc.CreateCart(context.Background(), validCartRequest())
	require.NoError(t, err)

	assert.NotEmpty(t, cart.CartID)
	assert.Equal(t, "user-1", cart.UserID)
	assert.Equal(t, "active", cart.Status)
	assert.Equal(t, "25.5", cart.Total)
	assert.Len(t, cart.Items, 2)
	assert.True(t, cart.ExpiresAt.After(time.Now()))
	assert.Equal(t, 1, obs.cartsCreated)

	stored := store.carts[cart.CartID]
	require.NotNil(t, stored)
	assert.Equal(t, domain.CartStatusActive, stored.Status)
}

func TestCreateCartValidation(t *testing.T) {
	svc := newCartService(newMemStore(), nil, nil)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*CreateCartRequest)
	}{
		{"missing user", func(r *CreateCartRequest) { r.UserID = "" }},
		{"missing product id", func(r *CreateCartRequest) { r.Items[0].ProductID = "" }},
		{"zero quantity", func(r *CreateCartRequest) { r.Items[0].Quantity = 0 }},
		{"negative quantity", func(r *CreateCartRequest) { r.Items[0].Quantity = -1 }},
		{"bad price", func(r *CreateCartRequest) { r.Items[0].Price = "abc" }},
		{"negative price", func(r *CreateCartRequest) { r.Items[0].Price = "-1.00" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validCartRequest()
			tt.mutate(&req)
			_, err := svc.CreateCart(ctx, req)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestCreateCartUnknownProduct(t *testing.T) {
	svc := newCartService(newMemStore(), stubCatalog{missing: []string{"p2"}}, nil)

	_, err := svc.CreateCart(context.Background(), validCartRequest())
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Contains(t, err.Error(), "p2")
}

func TestCreateCartEmptyIsAllowed(t *testing.T) {
	svc := newCartService(newMemStore(), nil, nil)

	cart, err := svc.CreateCart(context.Background(), CreateCartRequest{UserID: "user-1"})
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.Equal(t, "0", cart.Total)
}

func TestGetCart(t *testing.T) {
	store := newMemStore()
	svc := newCartService(store, nil, nil)
	ctx := context.Background()

	created, err := svc.CreateCart(ctx, validCartRequest())
	require.NoError(t, err)

	got, err := svc.GetCart(ctx, created.CartID)
	require.NoError(t, err)
	assert.Equal(t, created.CartID, got.CartID)
	assert.Equal(t, "25.5", got.Total)

	_, err = svc.GetCart(ctx, "CRT-missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetCartEnrichesProductInfo(t *testing.T) {
	store := newMemStore()
	catalog := stubCatalog{products: map[string]domain.ProductInfo{
		"p1": {ProductID: "p1", Name: "Keyboard", ImageURL: "https://img.example.com/p1.png"},
	}}
	svc := newCartService(store, catalog, nil)
	ctx := context.Background()

	created, err := svc.CreateCart(ctx, validCartRequest())
	require.NoError(t, err)

	got, err := svc.GetCart(ctx, created.CartID)
	require.NoError(t, err)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "Keyboard", got.Items[0].Name)
	assert.Equal(t, "https://img.example.com/p1.png", got.Items[0].ImageURL)
	// 目录中没有的商品只保留快照字段
	assert.Empty(t, got.Items[1].Name)
	assert.Empty(t, got.Items[1].ImageURL)
}

func TestGetCartDegradesWhenCatalogDown(t *testing.T) {
	store := newMemStore()
	svc := newCartService(store, stubCatalog{err: errors.New("catalog down")}, nil)
	ctx := context.Background()

	cart := domain.NewCart("CRT-1", "user-1", []domain.CartItem{
		{ProductID: "p1", Quantity: 1, Price: mustPrice(t, "10.00")},
	}, domain.DefaultCartTTL)
	require.NoError(t, lockedCartRepo{s: store}.Create(ctx, cart))

	// 目录不可用时读取仍然成功，只是缺少展示信息
	got, err := svc.GetCart(ctx, "CRT-1")
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Empty(t, got.Items[0].Name)
	assert.Equal(t, "10", got.Items[0].Price)
}

func TestCreateCartDoesNotPopulateCache(t *testing.T) {
	store := newMemStore()
	cache := newRecordingCache()
	svc := NewCartService(lockedCartRepo{s: store}, stubCatalog{}, cache, domain.NopObserver{}, utils.NewSnowflakeID(1), domain.DefaultCartTTL)
	ctx := context.Background()

	created, err := svc.CreateCart(ctx, validCartRequest())
	require.NoError(t, err)
	// 写路径不触碰缓存
	assert.Equal(t, 0, cache.totalCalls())

	// 首次读取才回填
	_, err = svc.GetCart(ctx, created.CartID)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.cartSet[created.CartID])
}

func TestGetCartHidesNonActive(t *testing.T) {
	store := newMemStore()
	svc := newCartService(store, nil, nil)
	ctx := context.Background()

	created, err := svc.CreateCart(ctx, validCartRequest())
	require.NoError(t, err)

	store.carts[created.CartID].Status = domain.CartStatusClaimed
	_, err = svc.GetCart(ctx, created.CartID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// 状态仍是 active 但已过保质期的购物车同样不可见
	store.carts[created.CartID].Status = domain.CartStatusActive
	store.carts[created.CartID].ExpiresAt = time.Now().Add(-time.Minute)
	_, err = svc.GetCart(ctx, created.CartID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSweepExpiredCarts(t *testing.T) {
	store := newMemStore()
	obs := &recordingObserver{}
	svc := newCartService(store, nil, obs)
	ctx := context.Background()

	fresh, err := svc.CreateCart(ctx, validCartRequest())
	require.NoError(t, err)
	stale, err := svc.CreateCart(ctx, validCartRequest())
	require.NoError(t, err)
	store.carts[stale.CartID].ExpiresAt = time.Now().Add(-time.Minute)

	count, err := svc.SweepExpiredCarts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, 1, obs.cartsExpired)

	assert.Equal(t, domain.CartStatusExpired, store.carts[stale.CartID].Status)
	assert.Empty(t, store.carts[stale.CartID].Items)
	assert.Equal(t, domain.CartStatusActive, store.carts[fresh.CartID].Status)

	// 再次清扫没有新的目标
	count, err = svc.SweepExpiredCarts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
