package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/marketplace-management/internal/model"
	"github.com/mmeshcher/marketplace-management/internal/repository"
	"github.com/mmeshcher/marketplace-management/internal/repository/memory"
)

const (
	buyer = "11111111-1111-1111-1111-111111111111"
	other = "22222222-2222-2222-2222-222222222222"
)

type fixture struct {
	store   *memory.Store
	svc     *Service
	shop    model.Store
	address model.Address
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	st := memory.New()
	shop := st.PutStore(model.Store{Name: "Loja A"})
	addr := st.PutAddress(model.Address{
		UserID: buyer,
		Street: "Rua das Flores",
		Number: "10",
		City:   "São Paulo",
		State:  "SP",
	})

	return &fixture{
		store:   st,
		svc:     NewService(st, nil, opts...),
		shop:    shop,
		address: addr,
	}
}

func (f *fixture) product(t *testing.T, priceCents int64, stock int) model.Product {
	t.Helper()
	return f.store.PutProduct(model.Product{
		Name:       "Produto",
		PriceCents: priceCents,
		Stock:      stock,
		StoreID:    f.shop.ID,
		Active:     true,
	})
}

func TestLinePoints(t *testing.T) {
	tests := []struct {
		name     string
		subtotal int64
		want     int64
	}{
		{name: "whole", subtotal: 5000, want: 100},
		{name: "half rounds away from zero", subtotal: 1025, want: 21},
		{name: "below half", subtotal: 1012, want: 20},
		{name: "zero", subtotal: 0, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LinePoints(tt.subtotal))
		})
	}
}

func TestGetCart_CreatesSingleActiveCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.GetCart(ctx, buyer)
	require.NoError(t, err)

	second, err := f.svc.GetCart(ctx, buyer)
	require.NoError(t, err)

	assert.Equal(t, first.CartID, second.CartID)
	assert.Empty(t, second.Lines)
	assert.Zero(t, second.Summary.ShippingCents)
	assert.Zero(t, second.Summary.TotalCents)
	assert.Len(t, f.store.Carts(buyer), 1)
}

func TestGetCart_ConcurrentResolveKeepsOneCart(t *testing.T) {
	f := newFixture(t)

	var wg sync.WaitGroup
	ids := make([]string, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cart, err := f.svc.ResolveActiveCart(context.Background(), buyer)
			if err == nil {
				ids[i] = cart.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	assert.Len(t, f.store.Carts(buyer), 1)
}

func TestAddToCart_Totals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, 2500, 10)

	view, err := f.svc.AddToCart(ctx, buyer, p.ID, 2)
	require.NoError(t, err)

	require.Len(t, view.Lines, 1)
	assert.Equal(t, int64(5000), view.Summary.SubtotalCents)
	assert.Equal(t, ShippingCents, view.Summary.ShippingCents)
	assert.Equal(t, int64(6590), view.Summary.TotalCents)
	assert.Equal(t, int64(100), view.Summary.TotalPoints)
	assert.Equal(t, 2, view.Summary.ItemCount)
	require.Len(t, view.Stores, 1)
	assert.Equal(t, f.shop.ID, view.Stores[0].ID)
}

func TestAddToCart_MergesExistingLine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, 1000, 10)

	_, err := f.svc.AddToCart(ctx, buyer, p.ID, 2)
	require.NoError(t, err)

	view, err := f.svc.AddToCart(ctx, buyer, p.ID, 3)
	require.NoError(t, err)

	require.Len(t, view.Lines, 1)
	assert.Equal(t, 5, view.Lines[0].Item.Quantity)
}

func TestAddToCart_KeepsPriceAtAdd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, 1000, 10)

	_, err := f.svc.AddToCart(ctx, buyer, p.ID, 1)
	require.NoError(t, err)

	p.PriceCents = 9999
	f.store.PutProduct(p)

	view, err := f.svc.GetCart(ctx, buyer)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), view.Summary.SubtotalCents)
}

func TestAddToCart_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, 1000, 3)

	_, err := f.svc.AddToCart(ctx, buyer, p.ID, 5)
	assert.ErrorIs(t, err, ErrOutOfStock)

	_, err = f.svc.AddToCart(ctx, buyer, p.ID, 0)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.AddToCart(ctx, buyer, "missing", 1)
	assert.ErrorIs(t, err, ErrProductNotFound)

	_, err = f.svc.AddToCart(ctx, buyer, p.ID, 2)
	require.NoError(t, err)
	_, err = f.svc.AddToCart(ctx, buyer, p.ID, 2)
	assert.ErrorIs(t, err, ErrOutOfStock, "merged quantity must respect stock")

	view, err := f.svc.GetCart(ctx, buyer)
	require.NoError(t, err)
	require.Len(t, view.Lines, 1)
	assert.Equal(t, 2, view.Lines[0].Item.Quantity)
}

func TestUpdateQuantity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, 1000, 4)

	view, err := f.svc.AddToCart(ctx, buyer, p.ID, 1)
	require.NoError(t, err)
	itemID := view.Lines[0].Item.ID

	view, err = f.svc.UpdateQuantity(ctx, buyer, itemID, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, view.Lines[0].Item.Quantity)
	assert.Equal(t, int64(4000), view.Summary.SubtotalCents)

	_, err = f.svc.UpdateQuantity(ctx, buyer, itemID, 5)
	assert.ErrorIs(t, err, ErrOutOfStock)

	_, err = f.svc.UpdateQuantity(ctx, buyer, itemID, 0)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.UpdateQuantity(ctx, other, itemID, 1)
	assert.ErrorIs(t, err, ErrForbidden)

	view, err = f.svc.GetCart(ctx, buyer)
	require.NoError(t, err)
	assert.Equal(t, 4, view.Lines[0].Item.Quantity)
	assert.Empty(t, f.store.Carts(other))

	_, err = f.svc.UpdateQuantity(ctx, buyer, "missing", 1)
	assert.ErrorIs(t, err, ErrCartItemNotFound)
}

func TestRemoveFromCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, 1000, 4)
	q := f.product(t, 500, 4)

	_, err := f.svc.AddToCart(ctx, buyer, p.ID, 1)
	require.NoError(t, err)
	view, err := f.svc.AddToCart(ctx, buyer, q.ID, 1)
	require.NoError(t, err)
	require.Len(t, view.Lines, 2)

	_, err = f.svc.RemoveFromCart(ctx, other, view.Lines[0].Item.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	view, err = f.svc.GetCart(ctx, buyer)
	require.NoError(t, err)
	require.Len(t, view.Lines, 2)
	assert.Equal(t, 1, view.Lines[0].Item.Quantity)
	assert.Empty(t, f.store.Carts(other))

	view, err = f.svc.RemoveFromCart(ctx, buyer, view.Lines[0].Item.ID)
	require.NoError(t, err)
	require.Len(t, view.Lines, 1)
	assert.Equal(t, q.ID, view.Lines[0].Item.ProductID)
}

func TestClearCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, 1000, 4)

	err := f.svc.ClearCart(ctx, buyer)
	assert.ErrorIs(t, err, ErrCartNotFound)

	_, err = f.svc.AddToCart(ctx, buyer, p.ID, 2)
	require.NoError(t, err)
	require.NoError(t, f.svc.ClearCart(ctx, buyer))

	view, err := f.svc.GetCart(ctx, buyer)
	require.NoError(t, err)
	assert.Empty(t, view.Lines)
}

func TestCheckout_Success(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, 2500, 10)

	before, err := f.svc.AddToCart(ctx, buyer, p.ID, 2)
	require.NoError(t, err)

	res, err := f.svc.Checkout(ctx, buyer, f.address.ID, "pix")
	require.NoError(t, err)
	assert.NotEmpty(t, res.OrderID)
	assert.Equal(t, int64(100), res.PointsEarned)

	orders := f.store.Orders(buyer)
	require.Len(t, orders, 1)
	assert.Equal(t, int64(6590), orders[0].TotalCents)
	assert.Equal(t, model.OrderStatusProcessing, orders[0].Status)
	assert.Equal(t, "pix", orders[0].PaymentMethod)
	items, err := f.store.GetOrderItems(ctx, res.OrderID)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	prod, err := f.store.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, prod.Stock)

	assert.Equal(t, int64(100), f.store.Balance(buyer))
	ledger := f.store.Ledger(buyer)
	require.Len(t, ledger, 1)
	assert.Equal(t, res.OrderID, ledger[0].ReferenceID)
	assert.Equal(t, model.PointsTypeEarned, ledger[0].Type)

	after, err := f.svc.GetCart(ctx, buyer)
	require.NoError(t, err)
	assert.NotEqual(t, before.CartID, after.CartID)
	assert.Empty(t, after.Lines)
}

func TestCheckout_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, 1000, 10)

	_, err := f.svc.Checkout(ctx, buyer, f.address.ID, "pix")
	assert.ErrorIs(t, err, ErrCartNotFound)

	_, err = f.svc.GetCart(ctx, buyer)
	require.NoError(t, err)
	_, err = f.svc.Checkout(ctx, buyer, f.address.ID, "pix")
	assert.ErrorIs(t, err, ErrEmptyCart)

	_, err = f.svc.AddToCart(ctx, buyer, p.ID, 1)
	require.NoError(t, err)

	_, err = f.svc.Checkout(ctx, buyer, "", "pix")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.Checkout(ctx, buyer, f.address.ID, " ")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.Checkout(ctx, buyer, "missing", "pix")
	assert.ErrorIs(t, err, ErrAddressNotFound)

	foreign := f.store.PutAddress(model.Address{UserID: other, Street: "Rua B", City: "Rio", State: "RJ"})
	_, err = f.svc.Checkout(ctx, buyer, foreign.ID, "pix")
	assert.ErrorIs(t, err, ErrAddressNotFound)

	assert.Empty(t, f.store.Orders(buyer))
}

func TestCheckout_OutOfStockReleasesReserved(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, 1000, 5)
	q := f.product(t, 1000, 5)

	_, err := f.svc.AddToCart(ctx, buyer, p.ID, 2)
	require.NoError(t, err)
	_, err = f.svc.AddToCart(ctx, buyer, q.ID, 3)
	require.NoError(t, err)

	q.Stock = 1
	f.store.PutProduct(q)

	_, err = f.svc.Checkout(ctx, buyer, f.address.ID, "pix")
	assert.ErrorIs(t, err, ErrOutOfStock)

	prod, err := f.store.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, prod.Stock)
	assert.Empty(t, f.store.Orders(buyer))
}

func TestCheckout_NothingToCompensateOnFirstReservation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, 1000, 5)

	rec := &countingRecorder{}
	svc := NewService(f.store, nil, WithRecorder(rec))

	_, err := svc.AddToCart(ctx, buyer, p.ID, 3)
	require.NoError(t, err)

	p.Stock = 1
	f.store.PutProduct(p)

	_, err = svc.Checkout(ctx, buyer, f.address.ID, "pix")
	assert.ErrorIs(t, err, ErrOutOfStock)
	assert.Zero(t, rec.compensated)

	prod, err := f.store.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, prod.Stock)
}

type failingItems struct {
	*memory.Store
}

func (failingItems) InsertOrderItems(context.Context, []model.OrderItem) error {
	return errors.New("connection reset")
}

type failingLedger struct {
	*memory.Store
}

func (failingLedger) InsertPointsTransaction(context.Context, model.PointsTransaction) (bool, error) {
	return false, errors.New("ledger unavailable")
}

type failingCartStatus struct {
	*memory.Store
}

func (failingCartStatus) SetCartStatus(context.Context, string, model.CartStatus) error {
	return errors.New("timeout")
}

type countingRecorder struct {
	failedSteps []string
	compensated int
	reconciled  int
}

func (r *countingRecorder) CheckoutStepFailed(step string) { r.failedSteps = append(r.failedSteps, step) }
func (r *countingRecorder) CheckoutCompensated()           { r.compensated++ }
func (r *countingRecorder) PointsReconciled(n int)         { r.reconciled += n }

func TestCheckout_CompensatesWhenOrderItemsFail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, 1000, 5)

	rec := &countingRecorder{}
	svc := NewService(failingItems{f.store}, nil, WithRecorder(rec))

	view, err := svc.AddToCart(ctx, buyer, p.ID, 2)
	require.NoError(t, err)

	_, err = svc.Checkout(ctx, buyer, f.address.ID, "pix")
	require.Error(t, err)

	prod, err := f.store.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, prod.Stock)
	assert.Empty(t, f.store.Orders(buyer))
	assert.Equal(t, 1, rec.compensated)

	after, err := svc.GetCart(ctx, buyer)
	require.NoError(t, err)
	assert.Equal(t, view.CartID, after.CartID)
	assert.Len(t, after.Lines, 1)
}

func TestCheckout_LedgerFailureIsReconciled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, 2500, 5)

	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	f.store.SetClock(func() time.Time { return start })

	rec := &countingRecorder{}
	svc := NewService(failingLedger{f.store}, nil, WithRecorder(rec))

	_, err := svc.AddToCart(ctx, buyer, p.ID, 2)
	require.NoError(t, err)

	res, err := svc.Checkout(ctx, buyer, f.address.ID, "pix")
	require.NoError(t, err)
	assert.Contains(t, rec.failedSteps, stepPointsLedger)
	assert.Zero(t, f.store.Balance(buyer))

	f.svc.now = func() time.Time { return start.Add(30 * time.Second) }
	assert.Zero(t, f.svc.reconcileBatch(ctx), "orders inside the grace window are skipped")

	f.svc.now = func() time.Time { return start.Add(2 * time.Minute) }
	assert.Equal(t, 1, f.svc.reconcileBatch(ctx))
	assert.Equal(t, int64(100), f.store.Balance(buyer))
	require.Len(t, f.store.Ledger(buyer), 1)
	assert.Equal(t, res.OrderID, f.store.Ledger(buyer)[0].ReferenceID)

	assert.Zero(t, f.svc.reconcileBatch(ctx))
	assert.Equal(t, int64(100), f.store.Balance(buyer))
}

func TestCheckout_CartConversionFailureIsReconciled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, 1000, 5)

	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	f.store.SetClock(func() time.Time { return start })

	svc := NewService(failingCartStatus{f.store}, nil)

	view, err := svc.AddToCart(ctx, buyer, p.ID, 1)
	require.NoError(t, err)

	_, err = svc.Checkout(ctx, buyer, f.address.ID, "pix")
	require.NoError(t, err)

	cart, err := f.store.GetCart(ctx, view.CartID)
	require.NoError(t, err)
	assert.Equal(t, model.CartStatusActive, cart.Status)

	f.svc.now = func() time.Time { return start.Add(2 * time.Minute) }
	assert.Equal(t, 1, f.svc.reconcileBatch(ctx))

	cart, err = f.store.GetCart(ctx, view.CartID)
	require.NoError(t, err)
	assert.Equal(t, model.CartStatusConverted, cart.Status)
}

func TestReconcile_CarriesItemsAddedAfterCheckout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, 1000, 5)
	q := f.product(t, 700, 5)

	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	f.store.SetClock(func() time.Time { return start })

	rec := &countingRecorder{}
	f.svc.metrics = rec
	svc := NewService(failingCartStatus{f.store}, nil)

	view, err := svc.AddToCart(ctx, buyer, p.ID, 1)
	require.NoError(t, err)
	_, err = svc.Checkout(ctx, buyer, f.address.ID, "pix")
	require.NoError(t, err)

	// Корзина осталась активной, покупки в ней продолжаются.
	view, err = f.svc.UpdateQuantity(ctx, buyer, view.Lines[0].Item.ID, 3)
	require.NoError(t, err)
	view, err = f.svc.AddToCart(ctx, buyer, q.ID, 2)
	require.NoError(t, err)
	oldCartID := view.CartID

	f.svc.now = func() time.Time { return start.Add(2 * time.Minute) }
	assert.Equal(t, 1, f.svc.reconcileBatch(ctx))
	assert.Equal(t, 1, rec.reconciled)

	old, err := f.store.GetCart(ctx, oldCartID)
	require.NoError(t, err)
	assert.Equal(t, model.CartStatusConverted, old.Status)

	after, err := f.svc.GetCart(ctx, buyer)
	require.NoError(t, err)
	assert.NotEqual(t, oldCartID, after.CartID)
	require.Len(t, after.Lines, 2)

	qty := map[string]int{}
	for _, line := range after.Lines {
		qty[line.Item.ProductID] = line.Item.Quantity
	}
	assert.Equal(t, map[string]int{p.ID: 2, q.ID: 2}, qty)
	assert.Len(t, f.store.Orders(buyer), 1)

	assert.Zero(t, f.svc.reconcileBatch(ctx))
}

func TestUnorderedItems(t *testing.T) {
	ordered := []model.OrderItem{{ProductID: "p", Quantity: 2}}

	assert.Empty(t, unorderedItems([]model.CartItem{{ProductID: "p", Quantity: 2}}, ordered))
	assert.Empty(t, unorderedItems([]model.CartItem{{ProductID: "p", Quantity: 1}}, ordered))

	left := unorderedItems([]model.CartItem{
		{ProductID: "p", Quantity: 5, PriceAtAddCents: 100},
		{ProductID: "q", Quantity: 1, PriceAtAddCents: 300},
	}, ordered)
	require.Len(t, left, 2)
	assert.Equal(t, 3, left[0].Quantity)
	assert.Equal(t, int64(100), left[0].PriceAtAddCents)
	assert.Equal(t, "q", left[1].ProductID)
}

type recordingPublisher struct {
	orders []model.Order
	err    error
}

func (p *recordingPublisher) PublishOrderPlaced(_ context.Context, order model.Order, _ []model.OrderItem) error {
	p.orders = append(p.orders, order)
	return p.err
}

func TestCheckout_PublishFailureDoesNotFailOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, 1000, 5)

	pub := &recordingPublisher{err: errors.New("broker down")}
	svc := NewService(f.store, nil, WithPublisher(pub))

	_, err := svc.AddToCart(ctx, buyer, p.ID, 1)
	require.NoError(t, err)

	res, err := svc.Checkout(ctx, buyer, f.address.ID, "pix")
	require.NoError(t, err)
	require.Len(t, pub.orders, 1)
	assert.Equal(t, res.OrderID, pub.orders[0].ID)
}

func TestRunReconciler_StopsOnCancel(t *testing.T) {
	f := newFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.svc.RunReconciler(ctx, 10*time.Millisecond)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reconciler did not stop")
	}
}

type mapCache struct {
	data map[string][]model.Product
	sets int
}

func (c *mapCache) GetProducts(_ context.Context, key string) ([]model.Product, bool) {
	p, ok := c.data[key]
	return p, ok
}

func (c *mapCache) SetProducts(_ context.Context, key string, products []model.Product) {
	c.data[key] = products
	c.sets++
}

func (c *mapCache) Invalidate(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

func TestCatalogLists(t *testing.T) {
	cache := &mapCache{data: map[string][]model.Product{}}
	f := newFixture(t, WithCache(cache))
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 12; i++ {
		f.store.PutProduct(model.Product{
			Name:      "p",
			Active:    true,
			Rating:    float64(i % 5),
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		})
	}
	f.store.PutProduct(model.Product{Name: "hidden", Active: false, Rating: 5, CreatedAt: base.Add(48 * time.Hour)})

	recent, err := f.svc.GetRecentProducts(ctx)
	require.NoError(t, err)
	require.Len(t, recent, CatalogListLimit)
	assert.Equal(t, base.Add(11*time.Hour), recent[0].CreatedAt)
	for _, p := range recent {
		assert.True(t, p.Active)
	}

	popular, err := f.svc.GetPopularProducts(ctx)
	require.NoError(t, err)
	require.Len(t, popular, CatalogListLimit)
	assert.Equal(t, float64(4), popular[0].Rating)

	assert.Equal(t, 2, cache.sets)

	f.store.PutProduct(model.Product{Name: "new", Active: true, CreatedAt: base.Add(72 * time.Hour)})
	cached, err := f.svc.GetRecentProducts(ctx)
	require.NoError(t, err)
	assert.Equal(t, recent, cached)
	assert.Equal(t, 2, cache.sets)
}

func TestCheckout_InvalidatesCatalogCache(t *testing.T) {
	cache := &mapCache{data: map[string][]model.Product{}}
	f := newFixture(t, WithCache(cache))
	ctx := context.Background()
	p := f.product(t, 1000, 5)

	recent, err := f.svc.GetRecentProducts(ctx)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, 5, recent[0].Stock)

	_, err = f.svc.AddToCart(ctx, buyer, p.ID, 2)
	require.NoError(t, err)
	_, err = f.svc.Checkout(ctx, buyer, f.address.ID, "pix")
	require.NoError(t, err)

	assert.NotContains(t, cache.data, CacheKeyRecent)
	recent, err = f.svc.GetRecentProducts(ctx)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, 3, recent[0].Stock)
}

func TestGetProductDetails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, 1000, 1)

	product, store, err := f.svc.GetProductDetails(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, product.ID)
	require.NotNil(t, store)
	assert.Equal(t, f.shop.Name, store.Name)

	orphan := f.store.PutProduct(model.Product{Name: "orphan", StoreID: "gone", Active: true})
	product, store, err = f.svc.GetProductDetails(ctx, orphan.ID)
	require.NoError(t, err)
	assert.Equal(t, orphan.ID, product.ID)
	assert.Nil(t, store)

	_, _, err = f.svc.GetProductDetails(ctx, "missing")
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestFavorites(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, 1000, 1)

	added, err := f.svc.AddToFavorites(ctx, buyer, p.ID)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = f.svc.AddToFavorites(ctx, buyer, p.ID)
	require.NoError(t, err)
	assert.False(t, added)
	assert.True(t, f.store.IsFavorite(buyer, p.ID))

	require.NoError(t, f.svc.RemoveFromFavorites(ctx, buyer, p.ID))
	assert.False(t, f.store.IsFavorite(buyer, p.ID))

	require.NoError(t, f.svc.RemoveFromFavorites(ctx, buyer, p.ID))

	_, err = f.svc.AddToFavorites(ctx, buyer, "missing")
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestValidationErrorMatchesSentinel(t *testing.T) {
	err := invalid("quantity must be at least 1")
	assert.True(t, errors.Is(err, ErrValidation))
	assert.False(t, errors.Is(err, repository.ErrNotFound))
	assert.Equal(t, "quantity must be at least 1", err.Error())
}
