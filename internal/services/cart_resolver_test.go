package services

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePrecedence(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	buyer := env.user(t, "buyer@campus.edu")
	lace := env.product(t, "ID Lace", "75", 10)
	notebook := env.product(t, "Notebook", "45", 10)

	inCart, err := env.carts.Add(ctx, buyer.ID, LineInput{ProductID: lace.ID, Quantity: 1})
	require.NoError(t, err)
	_, err = env.carts.Add(ctx, buyer.ID, LineInput{ProductID: notebook.ID, Quantity: 2})
	require.NoError(t, err)

	res, err := env.resolver.Resolve(ctx, buyer.ID, Selection{
		CartItemIDs: []uint{inCart.ID},
		Products:    []LineInput{{ProductID: notebook.ID, Quantity: 4}},
	})
	require.NoError(t, err)
	assert.Equal(t, SourceBuyNow, res.Source)
	require.Len(t, res.Lines, 1)
	assert.Equal(t, 4, res.Lines[0].Quantity)
	assert.Empty(t, res.ConsumedCartItemIDs)

	res, err = env.resolver.Resolve(ctx, buyer.ID, Selection{CartItemIDs: []uint{inCart.ID, inCart.ID}})
	require.NoError(t, err)
	assert.Equal(t, SourceCartItems, res.Source)
	assert.Equal(t, []uint{inCart.ID}, res.ConsumedCartItemIDs)

	res, err = env.resolver.Resolve(ctx, buyer.ID, Selection{})
	require.NoError(t, err)
	assert.Equal(t, SourceWholeCart, res.Source)
	assert.Len(t, res.Lines, 2)
}

func TestResolveRejectsForeignOrMissingCartItems(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	buyer := env.user(t, "buyer@campus.edu")
	other := env.user(t, "other@campus.edu")
	lace := env.product(t, "ID Lace", "75", 10)

	theirs, err := env.carts.Add(ctx, other.ID, LineInput{ProductID: lace.ID, Quantity: 1})
	require.NoError(t, err)

	_, err = env.resolver.Resolve(ctx, buyer.ID, Selection{CartItemIDs: []uint{theirs.ID}})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveAggregatesQuantityPerTarget(t *testing.T) {
	env := newTestEnv(t)
	buyer := env.user(t, "buyer@campus.edu")
	lace := env.product(t, "ID Lace", "75", 5)

	_, err := env.resolver.Resolve(context.Background(), buyer.ID, Selection{Products: []LineInput{
		{ProductID: lace.ID, Quantity: 3},
		{ProductID: lace.ID, Quantity: 3},
	}})
	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 6, stockErr.Requested)
	assert.Equal(t, 5, stockErr.Available)
}

func TestResolveLineRules(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	override := decimal.RequireFromString("380")
	shirt := env.sizedProduct(t, "PE Shirt", "350",
		VariantInput{Size: "M", Stock: 3},
		VariantInput{Size: "XL", Stock: 3, PriceOverride: &override},
	)
	lace := env.product(t, "ID Lace", "75", 10)

	_, err := env.resolver.ResolveLine(ctx, LineInput{ProductID: shirt.ID, Quantity: 1})
	assert.ErrorIs(t, err, ErrInvalidInput, "sized product needs a size")

	line, err := env.resolver.ResolveLine(ctx, LineInput{ProductID: shirt.ID, SizeID: sizeID(shirt, "XL"), Quantity: 2})
	require.NoError(t, err)
	assert.True(t, override.Equal(line.UnitPrice))
	assert.True(t, decimal.RequireFromString("760").Equal(line.LineTotal()))
	assert.Equal(t, "PE Shirt (XL)", line.DisplayName())

	// A size id sent with the wrong product id resolves to the size's own product.
	line, err = env.resolver.ResolveLine(ctx, LineInput{ProductID: lace.ID, SizeID: sizeID(shirt, "M"), Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, shirt.ID, line.Product.ID)

	_, err = env.resolver.ResolveLine(ctx, LineInput{ProductID: lace.ID, Quantity: -1})
	assert.ErrorIs(t, err, ErrInvalidInput)

	inactive := false
	_, err = env.products.Update(ctx, lace.ID, ProductUpdate{IsActive: &inactive})
	require.NoError(t, err)
	_, err = env.resolver.ResolveLine(ctx, LineInput{ProductID: lace.ID, Quantity: 1})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = env.resolver.ResolveLine(ctx, LineInput{ProductID: 404, Quantity: 1})
	assert.ErrorIs(t, err, ErrNotFound)
}
