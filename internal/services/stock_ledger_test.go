package services

import (
	"context"
	"errors"
	"testing"

	"campus_store/internal/models"
	"campus_store/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerRecordsEveryMovement(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	lace := env.product(t, "ID Lace", "75", 10)

	out, err := env.ledger.Record(ctx, models.MovementStockOut, StockCommand{ProductID: lace.ID, Quantity: 3, Reason: "damaged"})
	require.NoError(t, err)
	assert.Equal(t, 10, out.Previous)
	assert.Equal(t, 7, out.Current)

	in, err := env.ledger.Record(ctx, models.MovementStockIn, StockCommand{ProductID: lace.ID, Quantity: 5, Reason: "delivery", Supplier: "Acme Prints"})
	require.NoError(t, err)
	assert.Equal(t, 12, in.Current)

	adj, err := env.ledger.Record(ctx, models.MovementAdjustment, StockCommand{ProductID: lace.ID, Quantity: 9, Reason: "count"})
	require.NoError(t, err)
	assert.Equal(t, 12, adj.Previous)
	assert.Equal(t, 9, adj.Current)
	assert.Equal(t, 3, adj.Movement.Quantity)

	movements, err := env.ledger.Movements(ctx, repository.MovementFilter{ProductID: lace.ID})
	require.NoError(t, err)
	// opening stock plus the three above
	require.Len(t, movements, 4)
	for _, m := range movements {
		assert.NotEmpty(t, m.Reason)
	}
	assert.Equal(t, 9, env.stock(t, lace.ID, nil))
}

func TestLedgerNeverGoesNegative(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	shirt := env.sizedProduct(t, "PE Shirt", "350", VariantInput{Size: "M", Stock: 2})
	medium := sizeID(shirt, "M")

	_, err := env.ledger.Decrement(ctx, StockCommand{ProductID: shirt.ID, VariantID: medium, Quantity: 3, Reason: "order"})
	require.ErrorIs(t, err, ErrInsufficientStock)
	var stockErr *InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, "PE Shirt (M)", stockErr.ProductName)
	assert.Equal(t, 3, stockErr.Requested)
	assert.Equal(t, 2, stockErr.Available)
	assert.Equal(t, 2, env.stock(t, shirt.ID, medium))

	_, err = env.ledger.Adjust(ctx, StockCommand{ProductID: shirt.ID, VariantID: medium, Quantity: -1, Reason: "count"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestLedgerValidatesCommands(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	shirt := env.sizedProduct(t, "PE Shirt", "350", VariantInput{Size: "M", Stock: 2})
	lace := env.product(t, "ID Lace", "75", 10)

	_, err := env.ledger.Increment(ctx, StockCommand{ProductID: lace.ID, Quantity: 1, Reason: "   "})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = env.ledger.Decrement(ctx, StockCommand{ProductID: lace.ID, Quantity: 0, Reason: "x"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = env.ledger.Record(ctx, models.MovementStockIn, StockCommand{ProductID: shirt.ID, Quantity: 1, Reason: "delivery"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = env.ledger.Record(ctx, models.MovementStockIn, StockCommand{ProductID: lace.ID, VariantID: sizeID(shirt, "M"), Quantity: 1, Reason: "delivery"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = env.ledger.Record(ctx, models.MovementStockIn, StockCommand{ProductID: 404, Quantity: 1, Reason: "delivery"})
	assert.ErrorIs(t, err, ErrNotFound)
}
