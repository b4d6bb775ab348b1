package services

import (
	"context"
	"errors"
	"fmt"

	"campus_store/internal/models"
	"campus_store/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// LineInput is one requested product, optionally in a size.
type LineInput struct {
	ProductID uint  `json:"product_id"`
	SizeID    *uint `json:"size_id,omitempty"`
	Quantity  int   `json:"quantity"`
}

// Selection picks what to check out: explicit buy-now lines win over cart item ids,
// and an empty selection falls back to the whole cart.
type Selection struct {
	CartItemIDs []uint
	Products    []LineInput
}

type SelectionSource string

const (
	SourceBuyNow    SelectionSource = "buy_now"
	SourceCartItems SelectionSource = "cart_items"
	SourceWholeCart SelectionSource = "whole_cart"
)

type ResolvedLine struct {
	Product    models.Product
	Variant    *models.ProductVariant
	Quantity   int
	UnitPrice  decimal.Decimal
	UnitCost   decimal.Decimal
	Available  int
	CartItemID *uint
}

func (l ResolvedLine) Target() repository.StockTarget {
	t := repository.StockTarget{ProductID: l.Product.ID}
	if l.Variant != nil {
		t.VariantID = &l.Variant.ID
	}
	return t
}

func (l ResolvedLine) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

func (l ResolvedLine) Size() string {
	if l.Variant == nil {
		return ""
	}
	return l.Variant.Size
}

func (l ResolvedLine) DisplayName() string {
	if l.Variant == nil {
		return l.Product.Name
	}
	return l.Product.Name + " (" + l.Variant.Size + ")"
}

type Resolution struct {
	Source SelectionSource
	Lines  []ResolvedLine
	// ConsumedCartItemIDs are removed from the cart when the order commits.
	ConsumedCartItemIDs []uint
}

type ItemResolver interface {
	Resolve(ctx context.Context, userID uint, sel Selection) (Resolution, error)
	ResolveLine(ctx context.Context, in LineInput) (ResolvedLine, error)
}

type itemResolver struct {
	products repository.ProductRepository
	carts    repository.CartRepository
	logger   *zap.Logger
}

func NewItemResolver(products repository.ProductRepository, carts repository.CartRepository, logger *zap.Logger) (ItemResolver, error) {
	if products == nil || carts == nil {
		return nil, errors.New("item resolver: product and cart repositories are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &itemResolver{products: products, carts: carts, logger: logger.Named("resolver")}, nil
}

func (r *itemResolver) Resolve(ctx context.Context, userID uint, sel Selection) (Resolution, error) {
	var (
		res    Resolution
		inputs []LineInput
		refs   []*uint
	)

	switch {
	case len(sel.Products) > 0:
		res.Source = SourceBuyNow
		inputs = sel.Products
		refs = make([]*uint, len(inputs))
	case len(sel.CartItemIDs) > 0:
		res.Source = SourceCartItems
		ids := uniqueIDs(sel.CartItemIDs)
		items, err := r.carts.ListByIDs(ctx, userID, ids)
		if err != nil {
			return Resolution{}, fromRepository(err)
		}
		if missing := missingIDs(ids, items); len(missing) > 0 {
			return Resolution{}, fmt.Errorf("%w: cart items %v", ErrNotFound, missing)
		}
		inputs, refs = cartInputs(items)
	default:
		res.Source = SourceWholeCart
		items, err := r.carts.ListByUser(ctx, userID)
		if err != nil {
			return Resolution{}, fromRepository(err)
		}
		inputs, refs = cartInputs(items)
	}

	requested := map[string]int{}
	for i, in := range inputs {
		line, err := r.ResolveLine(ctx, in)
		if err != nil {
			return Resolution{}, err
		}
		line.CartItemID = refs[i]

		target := line.Target()
		key := target.String()
		requested[key] += line.Quantity
		if requested[key] > line.Available {
			return Resolution{}, &InsufficientStockError{
				ProductID:   line.Product.ID,
				VariantID:   target.VariantID,
				ProductName: line.DisplayName(),
				Requested:   requested[key],
				Available:   line.Available,
			}
		}

		res.Lines = append(res.Lines, line)
		if line.CartItemID != nil {
			res.ConsumedCartItemIDs = append(res.ConsumedCartItemIDs, *line.CartItemID)
		}
	}
	return res, nil
}

// ResolveLine prices one line against current product data.
func (r *itemResolver) ResolveLine(ctx context.Context, in LineInput) (ResolvedLine, error) {
	if in.Quantity <= 0 {
		return ResolvedLine{}, invalidInput("quantity must be positive")
	}

	productID := in.ProductID
	var variant *models.ProductVariant
	if in.SizeID != nil {
		v, err := r.products.GetVariant(ctx, *in.SizeID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ResolvedLine{}, notFound("size", *in.SizeID)
			}
			return ResolvedLine{}, fromRepository(err)
		}
		if productID != v.ProductID {
			if productID != 0 {
				r.logger.Debug("size belongs to another product, using its product",
					zap.Uint("requested_product_id", productID),
					zap.Uint("size_id", v.ID),
					zap.Uint("product_id", v.ProductID))
			}
			productID = v.ProductID
		}
		variant = v
	}
	if productID == 0 {
		return ResolvedLine{}, invalidInput("product_id is required")
	}

	product, err := r.products.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ResolvedLine{}, notFound("product", productID)
		}
		return ResolvedLine{}, fromRepository(err)
	}
	if !product.IsActive {
		return ResolvedLine{}, invalidInput("%s is not available", product.Name)
	}
	if product.HasVariants() && variant == nil {
		return ResolvedLine{}, invalidInput("select a size for %s", product.Name)
	}
	if variant != nil && !variant.IsActive {
		return ResolvedLine{}, invalidInput("%s size %s is not available", product.Name, variant.Size)
	}

	price := variant.EffectivePrice(product.Price)
	if !price.IsPositive() {
		return ResolvedLine{}, fmt.Errorf("%w: %s has price %s", ErrInvalidPrice, product.Name, price.String())
	}

	available := product.Stock
	if variant != nil {
		available = variant.Stock
	}
	line := ResolvedLine{
		Product:   *product,
		Variant:   variant,
		Quantity:  in.Quantity,
		UnitPrice: price,
		UnitCost:  product.CostPrice,
		Available: available,
	}
	line.Product.Variants = nil
	return line, nil
}

func cartInputs(items []models.CartItem) ([]LineInput, []*uint) {
	inputs := make([]LineInput, 0, len(items))
	refs := make([]*uint, 0, len(items))
	for _, item := range items {
		id := item.ID
		inputs = append(inputs, LineInput{ProductID: item.ProductID, SizeID: item.VariantID, Quantity: item.Quantity})
		refs = append(refs, &id)
	}
	return inputs, refs
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func missingIDs(ids []uint, items []models.CartItem) []uint {
	found := make(map[uint]bool, len(items))
	for _, item := range items {
		found[item.ID] = true
	}
	var missing []uint
	for _, id := range ids {
		if !found[id] {
			missing = append(missing, id)
		}
	}
	return missing
}
