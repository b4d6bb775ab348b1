package memory

import (
	"context"
	"errors"
	"testing"

	"campus_store/internal/models"
	"campus_store/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunInTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := New()
	repos := store.Repositories()

	product := &models.Product{Name: "Lanyard", Price: decimal.NewFromInt(50), Stock: 3, IsActive: true}
	require.NoError(t, repos.Products.Create(ctx, product))

	boom := errors.New("boom")
	err := repos.UnitOfWork.RunInTx(ctx, func(ctx context.Context) error {
		_, err := repos.Stock.Decrement(ctx, repository.StockTarget{ProductID: product.ID}, 2)
		require.NoError(t, err)
		require.NoError(t, repos.Stock.AppendMovement(ctx, &models.StockMovement{ProductID: product.ID, MovementType: models.MovementStockOut, Quantity: 2, Reason: "test"}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	stock, err := repos.Stock.Current(ctx, repository.StockTarget{ProductID: product.ID})
	require.NoError(t, err)
	assert.Equal(t, 3, stock)

	movements, err := repos.Stock.ListMovements(ctx, repository.MovementFilter{ProductID: product.ID})
	require.NoError(t, err)
	assert.Empty(t, movements)
}

func TestOutsideReadersSeeOnlyCommittedState(t *testing.T) {
	ctx := context.Background()
	repos := New().Repositories()

	product := &models.Product{Name: "Lanyard", Price: decimal.NewFromInt(50), Stock: 3, IsActive: true}
	require.NoError(t, repos.Products.Create(ctx, product))
	target := repository.StockTarget{ProductID: product.ID}

	for _, commit := range []bool{false, true} {
		decremented := make(chan struct{})
		release := make(chan struct{})
		done := make(chan error, 1)
		go func() {
			done <- repos.UnitOfWork.RunInTx(ctx, func(ctx context.Context) error {
				if _, err := repos.Stock.Decrement(ctx, target, 3); err != nil {
					return err
				}
				inside, err := repos.Stock.Current(ctx, target)
				if err != nil {
					return err
				}
				if inside != 0 {
					return errors.New("transaction does not see its own write")
				}
				close(decremented)
				<-release
				if !commit {
					return errors.New("abort")
				}
				return nil
			})
		}()

		select {
		case <-decremented:
		case err := <-done:
			t.Fatalf("transaction ended early: %v", err)
		}
		stock, err := repos.Stock.Current(ctx, target)
		require.NoError(t, err)
		assert.Equal(t, 3, stock)
		got, err := repos.Products.GetByID(ctx, product.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, got.Stock)
		close(release)

		err = <-done
		stock, currentErr := repos.Stock.Current(ctx, target)
		require.NoError(t, currentErr)
		if commit {
			require.NoError(t, err)
			assert.Equal(t, 0, stock)
		} else {
			require.EqualError(t, err, "abort")
			assert.Equal(t, 3, stock)
		}
	}
}

func TestDecrementReportsAvailableStock(t *testing.T) {
	ctx := context.Background()
	repos := New().Repositories()

	product := &models.Product{
		Name:     "PE Shirt",
		Price:    decimal.NewFromInt(350),
		IsActive: true,
		Variants: []models.ProductVariant{{Size: "M", Stock: 1, IsActive: true}},
	}
	require.NoError(t, repos.Products.Create(ctx, product))
	target := repository.StockTarget{ProductID: product.ID, VariantID: &product.Variants[0].ID}

	_, err := repos.Stock.Decrement(ctx, target, 2)
	var stockErr *repository.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.ErrorIs(t, err, repository.ErrInsufficientStock)
	assert.Equal(t, 1, stockErr.Available)

	change, err := repos.Stock.Decrement(ctx, target, 1)
	require.NoError(t, err)
	assert.Equal(t, repository.StockChange{Previous: 1, Current: 0}, change)
}

func TestVariantTargetMustBelongToProduct(t *testing.T) {
	ctx := context.Background()
	repos := New().Repositories()

	shirt := &models.Product{Name: "Shirt", Price: decimal.NewFromInt(1), Variants: []models.ProductVariant{{Size: "S", Stock: 5}}}
	hat := &models.Product{Name: "Cap", Price: decimal.NewFromInt(1), Stock: 5}
	require.NoError(t, repos.Products.Create(ctx, shirt))
	require.NoError(t, repos.Products.Create(ctx, hat))

	_, err := repos.Stock.Increment(ctx, repository.StockTarget{ProductID: hat.ID, VariantID: &shirt.Variants[0].ID}, 1)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestChangeStatusIsCompareAndSet(t *testing.T) {
	ctx := context.Background()
	repos := New().Repositories()

	order := &models.Order{OrderNumber: "ORD202601010001", UserID: 1, TotalAmount: decimal.NewFromInt(10), PaymentMethod: "cash", Status: models.OrderPending, PaymentStatus: models.PaymentPending}
	require.NoError(t, repos.Orders.Create(ctx, order))

	change := repository.StatusChange{OrderID: order.ID, From: models.OrderPending, To: models.OrderCancelled}
	require.NoError(t, repos.Orders.ChangeStatus(ctx, change))
	assert.ErrorIs(t, repos.Orders.ChangeStatus(ctx, change), repository.ErrStaleStatus)

	dup := &models.Order{OrderNumber: order.OrderNumber, UserID: 2}
	assert.ErrorIs(t, repos.Orders.Create(ctx, dup), repository.ErrDuplicate)
}
