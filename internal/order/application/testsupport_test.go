package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/shopmetrics/internal/order/domain"
)

func mustPrice(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

// memStore 内存存储，三个仓储共享同一份数据
type memStore struct {
	mu     sync.Mutex
	carts  map[string]*domain.Cart
	orders map[string]*domain.Order
	outbox []*domain.OutboxEvent
	nextID uint
}

func newMemStore() *memStore {
	return &memStore{
		carts:  make(map[string]*domain.Cart),
		orders: make(map[string]*domain.Order),
	}
}

type storeSnapshot struct {
	carts  map[string]*domain.Cart
	orders map[string]*domain.Order
	outbox []*domain.OutboxEvent
	nextID uint
}

func cloneCart(c *domain.Cart) *domain.Cart {
	cp := *c
	cp.Items = append([]domain.CartItem(nil), c.Items...)
	return &cp
}

func cloneOrder(o *domain.Order) *domain.Order {
	cp := *o
	cp.Items = append([]domain.OrderItem(nil), o.Items...)
	return &cp
}

func cloneEvent(e *domain.OutboxEvent) *domain.OutboxEvent {
	cp := *e
	return &cp
}

func (s *memStore) snapshot() storeSnapshot {
	snap := storeSnapshot{
		carts:  make(map[string]*domain.Cart, len(s.carts)),
		orders: make(map[string]*domain.Order, len(s.orders)),
		nextID: s.nextID,
	}
	for k, v := range s.carts {
		snap.carts[k] = cloneCart(v)
	}
	for k, v := range s.orders {
		snap.orders[k] = cloneOrder(v)
	}
	for _, e := range s.outbox {
		snap.outbox = append(snap.outbox, cloneEvent(e))
	}
	return snap
}

func (s *memStore) restore(snap storeSnapshot) {
	s.carts = snap.carts
	s.orders = snap.orders
	s.outbox = snap.outbox
	s.nextID = snap.nextID
}

// memCartRepo 不加锁的仓储实现，事务内复用
type memCartRepo struct{ s *memStore }

func (r memCartRepo) Create(_ context.Context, cart *domain.Cart) error {
	r.s.carts[cart.CartID] = cloneCart(cart)
	return nil
}

func (r memCartRepo) Get(_ context.Context, cartID string) (*domain.Cart, error) {
	cart, ok := r.s.carts[cartID]
	if !ok {
		return nil, nil
	}
	return cloneCart(cart), nil
}

func (r memCartRepo) Claim(_ context.Context, cartID string, now time.Time) error {
	cart, ok := r.s.carts[cartID]
	if !ok || cart.Status != domain.CartStatusActive || !now.Before(cart.ExpiresAt) {
		return domain.ErrCartUnavailable
	}
	cart.Status = domain.CartStatusClaimed
	return nil
}

func (r memCartRepo) Purge(_ context.Context, cartID string) error {
	delete(r.s.carts, cartID)
	return nil
}

func (r memCartRepo) ExpireDue(_ context.Context, now time.Time) ([]string, error) {
	var expired []string
	for id, cart := range r.s.carts {
		if cart.Status == domain.CartStatusActive && !now.Before(cart.ExpiresAt) {
			cart.Status = domain.CartStatusExpired
			cart.Items = nil
			expired = append(expired, id)
		}
	}
	return expired, nil
}

type memOrderRepo struct{ s *memStore }

func (r memOrderRepo) Create(_ context.Context, order *domain.Order) error {
	r.s.orders[order.OrderID] = cloneOrder(order)
	return nil
}

func (r memOrderRepo) Get(_ context.Context, orderID string) (*domain.Order, error) {
	order, ok := r.s.orders[orderID]
	if !ok {
		return nil, nil
	}
	return cloneOrder(order), nil
}

func (r memOrderRepo) GetForUpdate(ctx context.Context, orderID string) (*domain.Order, error) {
	return r.Get(ctx, orderID)
}

func (r memOrderRepo) ListByUser(_ context.Context, userID string, limit, offset int) ([]*domain.Order, int64, error) {
	var all []*domain.Order
	for _, o := range r.s.orders {
		if o.UserID == userID {
			all = append(all, cloneOrder(o))
		}
	}
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (r memOrderRepo) UpdateStatus(_ context.Context, orderID string, status domain.OrderStatus, eventSeq int) error {
	order, ok := r.s.orders[orderID]
	if !ok {
		return domain.ErrNotFound
	}
	order.Status = status
	order.EventSeq = eventSeq
	return nil
}

type memOutboxRepo struct{ s *memStore }

func (r memOutboxRepo) Append(_ context.Context, event *domain.OutboxEvent) error {
	r.s.nextID++
	cp := cloneEvent(event)
	cp.ID = r.s.nextID
	r.s.outbox = append(r.s.outbox, cp)
	return nil
}

func (r memOutboxRepo) FetchDue(_ context.Context, now time.Time, limit int) ([]*domain.OutboxEvent, error) {
	var due []*domain.OutboxEvent
	held := make(map[string]bool)
	for _, e := range r.s.outbox {
		if e.Status != domain.OutboxStatusDelivered && !e.Deliverable(now) {
			held[e.OrderID] = true
		}
		if e.Deliverable(now) && !held[e.OrderID] {
			due = append(due, cloneEvent(e))
		}
		if len(due) == limit {
			break
		}
	}
	return due, nil
}

func (r memOutboxRepo) MarkDelivered(_ context.Context, id uint) error {
	for _, e := range r.s.outbox {
		if e.ID == id {
			e.Status = domain.OutboxStatusDelivered
		}
	}
	return nil
}

func (r memOutboxRepo) Reschedule(_ context.Context, event *domain.OutboxEvent) error {
	for _, e := range r.s.outbox {
		if e.ID == event.ID {
			e.Status = event.Status
			e.Attempts = event.Attempts
			e.NextRetryAt = event.NextRetryAt
		}
	}
	return nil
}

func (r memOutboxRepo) CountPending(_ context.Context) (int64, error) {
	var count int64
	for _, e := range r.s.outbox {
		if e.Status == domain.OutboxStatusPending {
			count++
		}
	}
	return count, nil
}

func (r memOutboxRepo) PurgeDelivered(_ context.Context, before time.Time) error {
	kept := r.s.outbox[:0]
	for _, e := range r.s.outbox {
		if e.Status != domain.OutboxStatusDelivered || !e.UpdatedAt.Before(before) {
			kept = append(kept, e)
		}
	}
	r.s.outbox = kept
	return nil
}

// memUnitOfWork 串行化事务：整个 fn 持锁执行，出错时回滚到快照
type memUnitOfWork struct{ s *memStore }

func (u memUnitOfWork) Do(_ context.Context, fn func(domain.Repositories) error) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	snap := u.s.snapshot()
	err := fn(domain.Repositories{
		Carts:  memCartRepo{s: u.s},
		Orders: memOrderRepo{s: u.s},
		Outbox: memOutboxRepo{s: u.s},
	})
	if err != nil {
		u.s.restore(snap)
	}
	return err
}

// lockedCartRepo 事务外直连仓储，每次调用独立加锁
type lockedCartRepo struct{ s *memStore }

func (r lockedCartRepo) Create(ctx context.Context, cart *domain.Cart) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return memCartRepo{s: r.s}.Create(ctx, cart)
}

func (r lockedCartRepo) Get(ctx context.Context, cartID string) (*domain.Cart, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return memCartRepo{s: r.s}.Get(ctx, cartID)
}

func (r lockedCartRepo) Claim(ctx context.Context, cartID string, now time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return memCartRepo{s: r.s}.Claim(ctx, cartID, now)
}

func (r lockedCartRepo) Purge(ctx context.Context, cartID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return memCartRepo{s: r.s}.Purge(ctx, cartID)
}

func (r lockedCartRepo) ExpireDue(ctx context.Context, now time.Time) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return memCartRepo{s: r.s}.ExpireDue(ctx, now)
}

type lockedOrderRepo struct{ s *memStore }

func (r lockedOrderRepo) Create(ctx context.Context, order *domain.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return memOrderRepo{s: r.s}.Create(ctx, order)
}

func (r lockedOrderRepo) Get(ctx context.Context, orderID string) (*domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return memOrderRepo{s: r.s}.Get(ctx, orderID)
}

func (r lockedOrderRepo) GetForUpdate(ctx context.Context, orderID string) (*domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return memOrderRepo{s: r.s}.GetForUpdate(ctx, orderID)
}

func (r lockedOrderRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Order, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return memOrderRepo{s: r.s}.ListByUser(ctx, userID, limit, offset)
}

func (r lockedOrderRepo) UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus, eventSeq int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return memOrderRepo{s: r.s}.UpdateStatus(ctx, orderID, status, eventSeq)
}

// stubCatalog 可配置的商品目录
type stubCatalog struct {
	missing  []string
	products map[string]domain.ProductInfo
	err      error
}

func (c stubCatalog) Missing(context.Context, []string) ([]string, error) {
	return c.missing, c.err
}

func (c stubCatalog) Describe(_ context.Context, productIDs []string) (map[string]domain.ProductInfo, error) {
	if c.err != nil {
		return nil, c.err
	}
	infos := make(map[string]domain.ProductInfo, len(productIDs))
	for _, id := range productIDs {
		if info, ok := c.products[id]; ok {
			infos[id] = info
		}
	}
	return infos, nil
}

// recordingObserver 记录收到的业务事件通知
type recordingObserver struct {
	domain.NopObserver
	mu            sync.Mutex
	cartsCreated  int
	cartsExpired  int
	ordersCreated int
	transitions   int
}

func (o *recordingObserver) CartCreated(context.Context, *domain.Cart) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cartsCreated++
}

func (o *recordingObserver) CartsExpired(_ context.Context, count int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cartsExpired += count
}

func (o *recordingObserver) OrderCreated(context.Context, *domain.Order) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ordersCreated++
}

func (o *recordingObserver) OrderStatusChanged(context.Context, *domain.Order, domain.OrderStatus) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.transitions++
}

// recordingCache 记录缓存失效与写入的调用次数
type recordingCache struct {
	NopCache
	mu               sync.Mutex
	cartSet          map[string]int
	cartInvalidated  map[string]int
	orderSet         map[string]int
	orderInvalidated map[string]int
}

func newRecordingCache() *recordingCache {
	return &recordingCache{
		cartSet:          make(map[string]int),
		cartInvalidated:  make(map[string]int),
		orderSet:         make(map[string]int),
		orderInvalidated: make(map[string]int),
	}
}

func (c *recordingCache) SetCart(_ context.Context, cart *domain.Cart) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cartSet[cart.CartID]++
}

func (c *recordingCache) InvalidateCart(_ context.Context, cartID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cartInvalidated[cartID]++
}

func (c *recordingCache) SetOrder(_ context.Context, order *domain.Order) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.orderSet[order.OrderID]++
}

func (c *recordingCache) InvalidateOrder(_ context.Context, orderID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.orderInvalidated[orderID]++
}

func (c *recordingCache) cartInvalidations(cartID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cartInvalidated[cartID]
}

func (c *recordingCache) totalCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0
	for _, n := range c.cartSet {
		total += n
	}
	for _, n := range c.cartInvalidated {
		total += n
	}
	for _, n := range c.orderSet {
		total += n
	}
	for _, n := range c.orderInvalidated {
		total += n
	}
	return total
}
