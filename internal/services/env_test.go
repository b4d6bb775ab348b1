package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"campus_store/internal/models"
	"campus_store/internal/repository"
	"campus_store/internal/repository/memory"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu       sync.Mutex
	topics   []string
	payloads []any
	err      error
}

func (p *recordingPublisher) Publish(ctx context.Context, topic string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.payloads = append(p.payloads, payload)
	return p.err
}

func (p *recordingPublisher) count(topic string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, t := range p.topics {
		if t == topic {
			n++
		}
	}
	return n
}

type fakeReceipts struct {
	mu   sync.Mutex
	sent []Receipt
	err  error
}

func (f *fakeReceipts) SendReceipt(ctx context.Context, r Receipt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, r)
	return f.err
}

type testEnv struct {
	repos         repository.Repositories
	ledger        StockLedger
	resolver      ItemResolver
	carts         CartService
	checkout      CheckoutService
	orders        OrderService
	autoConfirm   AutoConfirmService
	products      ProductService
	notifications NotificationService
	publisher     *recordingPublisher
	receipts      *fakeReceipts

	mu  sync.Mutex
	now time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		publisher: &recordingPublisher{},
		receipts:  &fakeReceipts{},
		now:       time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
	}
	env.repos = memory.New(memory.WithClock(env.clock)).Repositories()

	var err error
	env.ledger, err = NewStockLedger(StockLedgerDeps{
		UnitOfWork: env.repos.UnitOfWork,
		Stock:      env.repos.Stock,
		Products:   env.repos.Products,
	})
	require.NoError(t, err)

	env.notifications, err = NewNotificationService(env.repos.Notifications, env.publisher, nil)
	require.NoError(t, err)

	env.resolver, err = NewItemResolver(env.repos.Products, env.repos.Carts, nil)
	require.NoError(t, err)

	env.carts, err = NewCartService(env.repos.Carts, env.resolver)
	require.NoError(t, err)

	numbers, err := NewOrderNumberGenerator(env.repos.Counters, env.clock, time.UTC)
	require.NoError(t, err)

	env.checkout, err = NewCheckoutService(CheckoutServiceDeps{
		UnitOfWork:    env.repos.UnitOfWork,
		Orders:        env.repos.Orders,
		OrderItems:    env.repos.OrderItems,
		Carts:         env.repos.Carts,
		Resolver:      env.resolver,
		Ledger:        env.ledger,
		Numbers:       numbers,
		Notifications: env.notifications,
		Publisher:     env.publisher,
		Clock:         env.clock,
		EffectTimeout: time.Second,
	})
	require.NoError(t, err)

	env.orders, err = NewOrderService(OrderServiceDeps{
		UnitOfWork:    env.repos.UnitOfWork,
		Orders:        env.repos.Orders,
		Financial:     env.repos.Financial,
		Users:         env.repos.Users,
		Products:      env.repos.Products,
		Ledger:        env.ledger,
		Notifications: env.notifications,
		Publisher:     env.publisher,
		Receipts:      env.receipts,
		Clock:         env.clock,
		EffectTimeout: time.Second,
	})
	require.NoError(t, err)

	env.autoConfirm, err = NewAutoConfirmService(env.repos.Orders, env.orders, DefaultAutoConfirmAfter, env.clock, nil)
	require.NoError(t, err)

	env.products, err = NewProductService(env.repos.UnitOfWork, env.repos.Products, env.ledger, nil)
	require.NoError(t, err)
	return env
}

func (e *testEnv) clock() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.now
}

func (e *testEnv) advance(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = e.now.Add(d)
}

func (e *testEnv) product(t *testing.T, name, price string, stock int) *models.Product {
	t.Helper()
	p, err := e.products.Create(context.Background(), ProductInput{
		Name:      name,
		Price:     decimal.RequireFromString(price),
		CostPrice: decimal.RequireFromString(price).Div(decimal.NewFromInt(2)),
		Stock:     stock,
	}, nil)
	require.NoError(t, err)
	return p
}

func (e *testEnv) sizedProduct(t *testing.T, name, price string, sizes ...VariantInput) *models.Product {
	t.Helper()
	p, err := e.products.Create(context.Background(), ProductInput{
		Name:      name,
		Price:     decimal.RequireFromString(price),
		CostPrice: decimal.RequireFromString(price).Div(decimal.NewFromInt(2)),
		Variants:  sizes,
	}, nil)
	require.NoError(t, err)
	return p
}

func (e *testEnv) user(t *testing.T, email string) *models.User {
	t.Helper()
	u := &models.User{FullName: "Juan Dela Cruz", Email: email, Role: models.RoleStudent, PasswordHash: "x", IsActive: true}
	require.NoError(t, e.repos.Users.Create(context.Background(), u))
	return u
}

func (e *testEnv) stock(t *testing.T, productID uint, variantID *uint) int {
	t.Helper()
	n, err := e.repos.Stock.Current(context.Background(), repository.StockTarget{ProductID: productID, VariantID: variantID})
	require.NoError(t, err)
	return n
}

func (e *testEnv) buy(t *testing.T, userID uint, lines ...LineInput) models.Order {
	t.Helper()
	res, err := e.checkout.Checkout(context.Background(), CheckoutCommand{
		UserID:        userID,
		PaymentMethod: "cash",
		Selection:     Selection{Products: lines},
	})
	require.NoError(t, err)
	return res.Order
}

func (e *testEnv) setStatus(t *testing.T, orderID uint, status models.OrderStatus) StatusResult {
	t.Helper()
	res, err := e.orders.UpdateStatus(context.Background(), StatusCommand{OrderID: orderID, Status: string(status)})
	require.NoError(t, err)
	return res
}

func sizeID(p *models.Product, size string) *uint {
	for _, v := range p.Variants {
		if v.Size == size {
			id := v.ID
			return &id
		}
	}
	return nil
}
