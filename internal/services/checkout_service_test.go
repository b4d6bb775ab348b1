package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"campus_store/internal/events"
	"campus_store/internal/models"
	"campus_store/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckoutSellsOutVariantThenRejects(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	buyer := env.user(t, "buyer@campus.edu")
	shirt := env.sizedProduct(t, "PE Shirt", "350", VariantInput{Size: "S", Stock: 5})
	small := sizeID(shirt, "S")

	order := env.buy(t, buyer.ID, LineInput{ProductID: shirt.ID, SizeID: small, Quantity: 5})

	assert.Equal(t, 0, env.stock(t, shirt.ID, small))
	assert.True(t, decimal.RequireFromString("1750").Equal(order.TotalAmount))
	assert.Equal(t, "ORD202603140001", order.OrderNumber)
	assert.Equal(t, models.OrderPending, order.Status)
	assert.Equal(t, models.PaymentPending, order.PaymentStatus)

	movementsBefore, err := env.ledger.Movements(ctx, repository.MovementFilter{ProductID: shirt.ID})
	require.NoError(t, err)

	_, err = env.checkout.Checkout(ctx, CheckoutCommand{
		UserID:        buyer.ID,
		PaymentMethod: "cash",
		Selection:     Selection{Products: []LineInput{{ProductID: shirt.ID, SizeID: small, Quantity: 1}}},
	})
	require.ErrorIs(t, err, ErrInsufficientStock)
	var stockErr *InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, "PE Shirt (S)", stockErr.ProductName)
	assert.Equal(t, 0, stockErr.Available)

	orders, err := env.repos.Orders.List(ctx, repository.OrderFilter{})
	require.NoError(t, err)
	assert.Len(t, orders, 1)

	movementsAfter, err := env.ledger.Movements(ctx, repository.MovementFilter{ProductID: shirt.ID})
	require.NoError(t, err)
	assert.Len(t, movementsAfter, len(movementsBefore))
}

func TestCheckoutTotalMatchesLinesAndFreezesPrices(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	buyer := env.user(t, "buyer@campus.edu")
	xl := decimal.RequireFromString("380")
	shirt := env.sizedProduct(t, "PE Shirt", "350",
		VariantInput{Size: "M", Stock: 10},
		VariantInput{Size: "XL", Stock: 10, PriceOverride: &xl},
	)
	lace := env.product(t, "ID Lace", "75", 20)

	order := env.buy(t, buyer.ID,
		LineInput{ProductID: shirt.ID, SizeID: sizeID(shirt, "M"), Quantity: 2},
		LineInput{ProductID: shirt.ID, SizeID: sizeID(shirt, "XL"), Quantity: 1},
		LineInput{ProductID: lace.ID, Quantity: 3},
	)

	sum := decimal.Zero
	for _, item := range order.Items {
		assert.True(t, item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))).Equal(item.LineTotal))
		sum = sum.Add(item.LineTotal)
	}
	assert.True(t, sum.Equal(order.TotalAmount))
	assert.True(t, decimal.RequireFromString("1305").Equal(order.TotalAmount))

	newPrice := decimal.RequireFromString("99")
	_, err := env.products.Update(ctx, lace.ID, ProductUpdate{Price: &newPrice})
	require.NoError(t, err)

	stored, err := env.orders.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, stored.TotalAmount.Equal(order.TotalAmount))
	assert.True(t, decimal.RequireFromString("75").Equal(stored.Items[2].UnitPrice))
	assert.Equal(t, "XL", stored.Items[1].Size)
}

func TestCheckoutRemovesOnlySelectedCartItems(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	buyer := env.user(t, "buyer@campus.edu")
	lace := env.product(t, "ID Lace", "75", 10)
	notebook := env.product(t, "Notebook", "45", 10)

	first, err := env.carts.Add(ctx, buyer.ID, LineInput{ProductID: lace.ID, Quantity: 2})
	require.NoError(t, err)
	second, err := env.carts.Add(ctx, buyer.ID, LineInput{ProductID: notebook.ID, Quantity: 1})
	require.NoError(t, err)

	res, err := env.checkout.Checkout(ctx, CheckoutCommand{
		UserID:        buyer.ID,
		PaymentMethod: "gcash",
		Selection:     Selection{CartItemIDs: []uint{first.ID}},
	})
	require.NoError(t, err)
	assert.Equal(t, SourceCartItems, res.Source)
	assert.Len(t, res.Order.Items, 1)

	left, err := env.carts.List(ctx, buyer.ID)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, second.ID, left[0].ID)
}

func TestCheckoutWholeCartClearsCart(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	buyer := env.user(t, "buyer@campus.edu")
	lace := env.product(t, "ID Lace", "75", 10)
	notebook := env.product(t, "Notebook", "45", 10)

	_, err := env.carts.Add(ctx, buyer.ID, LineInput{ProductID: lace.ID, Quantity: 2})
	require.NoError(t, err)
	_, err = env.carts.Add(ctx, buyer.ID, LineInput{ProductID: notebook.ID, Quantity: 1})
	require.NoError(t, err)

	res, err := env.checkout.Checkout(ctx, CheckoutCommand{UserID: buyer.ID, PaymentMethod: "cash"})
	require.NoError(t, err)
	assert.Equal(t, SourceWholeCart, res.Source)
	assert.Len(t, res.Order.Items, 2)

	left, err := env.carts.List(ctx, buyer.ID)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestCheckoutRejectsEmptyCartAndMissingPaymentMethod(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	buyer := env.user(t, "buyer@campus.edu")

	_, err := env.checkout.Checkout(ctx, CheckoutCommand{UserID: buyer.ID, PaymentMethod: "cash"})
	assert.ErrorIs(t, err, ErrEmptyCart)

	_, err = env.checkout.Checkout(ctx, CheckoutCommand{UserID: buyer.ID, PaymentMethod: "  "})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCheckoutRollsBackWhenLaterLineFails(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	buyer := env.user(t, "buyer@campus.edu")
	lace := env.product(t, "ID Lace", "75", 10)
	notebook := env.product(t, "Notebook", "45", 1)

	// Drain the notebook between the resolver's check and the ledger write.
	resolver := &drainingResolver{ItemResolver: env.resolver, drain: func() {
		_, err := env.ledger.Decrement(ctx, StockCommand{ProductID: notebook.ID, Quantity: 1, Reason: "damaged"})
		require.NoError(t, err)
	}}
	checkout, err := NewCheckoutService(CheckoutServiceDeps{
		UnitOfWork: env.repos.UnitOfWork,
		Orders:     env.repos.Orders,
		OrderItems: env.repos.OrderItems,
		Carts:      env.repos.Carts,
		Resolver:   resolver,
		Ledger:     env.ledger,
		Numbers:    mustNumbers(t, env),
		Publisher:  env.publisher,
		Clock:      env.clock,
	})
	require.NoError(t, err)

	_, err = checkout.Checkout(ctx, CheckoutCommand{
		UserID:        buyer.ID,
		PaymentMethod: "cash",
		Selection: Selection{Products: []LineInput{
			{ProductID: lace.ID, Quantity: 2},
			{ProductID: notebook.ID, Quantity: 1},
		}},
	})
	require.ErrorIs(t, err, ErrInsufficientStock)

	assert.Equal(t, 10, env.stock(t, lace.ID, nil))
	orders, err := env.repos.Orders.List(ctx, repository.OrderFilter{})
	require.NoError(t, err)
	assert.Empty(t, orders)
	movements, err := env.ledger.Movements(ctx, repository.MovementFilter{ProductID: lace.ID, MovementType: models.MovementStockOut})
	require.NoError(t, err)
	assert.Empty(t, movements)

	// The failed checkout released its order number.
	order := env.buy(t, buyer.ID, LineInput{ProductID: lace.ID, Quantity: 1})
	assert.Equal(t, "ORD202603140001", order.OrderNumber)
}

func TestConcurrentCheckoutsForLastUnit(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	shirt := env.sizedProduct(t, "PE Shirt", "350", VariantInput{Size: "M", Stock: 1})
	medium := sizeID(shirt, "M")
	buyers := []*models.User{env.user(t, "a@campus.edu"), env.user(t, "b@campus.edu")}

	var wg sync.WaitGroup
	errs := make([]error, len(buyers))
	for i, buyer := range buyers {
		wg.Add(1)
		go func(i int, userID uint) {
			defer wg.Done()
			_, errs[i] = env.checkout.Checkout(ctx, CheckoutCommand{
				UserID:        userID,
				PaymentMethod: "cash",
				Selection:     Selection{Products: []LineInput{{ProductID: shirt.ID, SizeID: medium, Quantity: 1}}},
			})
		}(i, buyer.ID)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrInsufficientStock)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 0, env.stock(t, shirt.ID, medium))
}

func TestCheckoutSucceedsWhenPublishingFails(t *testing.T) {
	env := newTestEnv(t)
	env.publisher.err = errors.New("redis down")
	buyer := env.user(t, "buyer@campus.edu")
	lace := env.product(t, "ID Lace", "75", 10)

	res, err := env.checkout.Checkout(context.Background(), CheckoutCommand{
		UserID:        buyer.ID,
		PaymentMethod: "cash",
		Selection:     Selection{Products: []LineInput{{ProductID: lace.ID, Quantity: 1}}},
	})
	require.NoError(t, err)
	assert.NotZero(t, res.Order.ID)
	assert.False(t, res.Effects.OK())
	assert.Equal(t, 9, env.stock(t, lace.ID, nil))

	failed := map[string]bool{}
	for _, r := range res.Effects.Failed() {
		failed[r.Effect] = true
	}
	assert.True(t, failed["publish:"+events.TopicNewOrder])
	assert.True(t, failed["publish:"+events.TopicInventoryUpdated])
}

func TestCheckoutEmitsEventsAndNotifications(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	buyer := env.user(t, "buyer@campus.edu")
	lace := env.product(t, "ID Lace", "75", 10)

	env.buy(t, buyer.ID, LineInput{ProductID: lace.ID, Quantity: 2})

	assert.Equal(t, 1, env.publisher.count(events.TopicNewOrder))
	assert.Equal(t, 1, env.publisher.count(events.TopicInventoryUpdated))
	assert.Equal(t, 2, env.publisher.count(events.TopicNewNotification))

	mine, err := env.notifications.ListForUser(ctx, buyer.ID, 0)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Contains(t, mine[0].Message, "2x ID Lace")

	admin, err := env.notifications.ListForAdmins(ctx, 0)
	require.NoError(t, err)
	require.Len(t, admin, 1)
	assert.Equal(t, models.NotificationNewOrder, admin[0].Type)
}

type drainingResolver struct {
	ItemResolver
	drain func()
}

func (r *drainingResolver) Resolve(ctx context.Context, userID uint, sel Selection) (Resolution, error) {
	res, err := r.ItemResolver.Resolve(ctx, userID, sel)
	if err == nil {
		r.drain()
	}
	return res, err
}

func mustNumbers(t *testing.T, env *testEnv) OrderNumberGenerator {
	t.Helper()
	numbers, err := NewOrderNumberGenerator(env.repos.Counters, env.clock, nil)
	require.NoError(t, err)
	return numbers
}
