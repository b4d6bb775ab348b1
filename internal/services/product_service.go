package services

import (
	"context"
	"errors"
	"strings"

	"campus_store/internal/models"
	"campus_store/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type VariantInput struct {
	Size          string           `json:"size"`
	Stock         int              `json:"stock"`
	PriceOverride *decimal.Decimal `json:"price_override,omitempty"`
}

type ProductInput struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	CostPrice   decimal.Decimal `json:"cost_price"`
	Stock       int             `json:"stock"`
	Variants    []VariantInput  `json:"variants"`
}

// ProductUpdate changes catalog fields only. Stock moves through the ledger.
type ProductUpdate struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Category    *string          `json:"category"`
	Price       *decimal.Decimal `json:"price"`
	CostPrice   *decimal.Decimal `json:"cost_price"`
	IsActive    *bool            `json:"is_active"`
}

type ProductService interface {
	Create(ctx context.Context, in ProductInput, actorID *uint) (*models.Product, error)
	Get(ctx context.Context, id uint) (*models.Product, error)
	List(ctx context.Context, filter repository.ProductFilter) ([]models.Product, error)
	Update(ctx context.Context, id uint, in ProductUpdate) (*models.Product, error)
	Delete(ctx context.Context, id uint) error
	AddVariant(ctx context.Context, productID uint, in VariantInput, actorID *uint) (*models.ProductVariant, error)
}

type productService struct {
	uow      repository.UnitOfWork
	products repository.ProductRepository
	ledger   StockLedger
	logger   *zap.Logger
}

func NewProductService(uow repository.UnitOfWork, products repository.ProductRepository, ledger StockLedger, logger *zap.Logger) (ProductService, error) {
	if uow == nil || products == nil || ledger == nil {
		return nil, errors.New("product service: unit of work, product repository and ledger are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &productService{uow: uow, products: products, ledger: ledger, logger: logger.Named("catalog")}, nil
}

// Create stores the product with zero stock and books any opening stock as stock_in movements.
func (s *productService) Create(ctx context.Context, in ProductInput, actorID *uint) (*models.Product, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalidInput("name is required")
	}
	if !in.Price.IsPositive() {
		return nil, invalidInput("price must be greater than zero")
	}
	if in.CostPrice.IsNegative() {
		return nil, invalidInput("cost_price cannot be negative")
	}
	if in.Stock < 0 {
		return nil, invalidInput("stock cannot be negative")
	}
	if len(in.Variants) > 0 && in.Stock > 0 {
		return nil, invalidInput("products with sizes keep stock per size")
	}

	product := &models.Product{
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		Category:    strings.TrimSpace(in.Category),
		Price:       in.Price,
		CostPrice:   in.CostPrice,
		IsActive:    true,
	}
	seen := map[string]bool{}
	for _, v := range in.Variants {
		if err := validateVariant(v); err != nil {
			return nil, err
		}
		size := strings.TrimSpace(v.Size)
		if seen[strings.ToLower(size)] {
			return nil, invalidInput("duplicate size %q", size)
		}
		seen[strings.ToLower(size)] = true
		product.Variants = append(product.Variants, models.ProductVariant{
			Size:          size,
			PriceOverride: v.PriceOverride,
			IsActive:      true,
		})
	}

	err := s.uow.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.products.Create(ctx, product); err != nil {
			return fromRepository(err)
		}
		if in.Stock > 0 {
			res, err := s.ledger.Increment(ctx, StockCommand{
				ProductID: product.ID,
				Quantity:  in.Stock,
				Reason:    "opening stock",
				ActorID:   actorID,
			})
			if err != nil {
				return err
			}
			product.Stock = res.Current
		}
		for i, v := range in.Variants {
			if v.Stock == 0 {
				continue
			}
			variantID := product.Variants[i].ID
			res, err := s.ledger.Increment(ctx, StockCommand{
				ProductID: product.ID,
				VariantID: &variantID,
				Quantity:  v.Stock,
				Reason:    "opening stock",
				ActorID:   actorID,
			})
			if err != nil {
				return err
			}
			product.Variants[i].Stock = res.Current
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("product created", zap.Uint("product_id", product.ID), zap.String("name", product.Name))
	return product, nil
}

func (s *productService) Get(ctx context.Context, id uint) (*models.Product, error) {
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("product", id)
		}
		return nil, err
	}
	return product, nil
}

func (s *productService) List(ctx context.Context, filter repository.ProductFilter) ([]models.Product, error) {
	products, err := s.products.List(ctx, filter)
	return products, fromRepository(err)
}

func (s *productService) Update(ctx context.Context, id uint, in ProductUpdate) (*models.Product, error) {
	product, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, invalidInput("name cannot be empty")
		}
		product.Name = name
	}
	if in.Description != nil {
		product.Description = strings.TrimSpace(*in.Description)
	}
	if in.Category != nil {
		product.Category = strings.TrimSpace(*in.Category)
	}
	if in.Price != nil {
		if !in.Price.IsPositive() {
			return nil, invalidInput("price must be greater than zero")
		}
		product.Price = *in.Price
	}
	if in.CostPrice != nil {
		if in.CostPrice.IsNegative() {
			return nil, invalidInput("cost_price cannot be negative")
		}
		product.CostPrice = *in.CostPrice
	}
	if in.IsActive != nil {
		product.IsActive = *in.IsActive
	}
	if err := s.products.Update(ctx, product); err != nil {
		return nil, fromRepository(err)
	}
	return product, nil
}

func (s *productService) Delete(ctx context.Context, id uint) error {
	if err := s.products.SoftDelete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound("product", id)
		}
		return err
	}
	s.logger.Info("product deleted", zap.Uint("product_id", id))
	return nil
}

func (s *productService) AddVariant(ctx context.Context, productID uint, in VariantInput, actorID *uint) (*models.ProductVariant, error) {
	if err := validateVariant(in); err != nil {
		return nil, err
	}
	product, err := s.Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	size := strings.TrimSpace(in.Size)
	for _, v := range product.Variants {
		if strings.EqualFold(v.Size, size) {
			return nil, invalidInput("%s already has size %q", product.Name, size)
		}
	}
	if !product.HasVariants() && product.Stock > 0 {
		return nil, invalidInput("%s still holds %d units without a size", product.Name, product.Stock)
	}

	variant := &models.ProductVariant{
		ProductID:     product.ID,
		Size:          size,
		PriceOverride: in.PriceOverride,
		IsActive:      true,
	}
	err = s.uow.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.products.CreateVariant(ctx, variant); err != nil {
			return fromRepository(err)
		}
		if in.Stock == 0 {
			return nil
		}
		res, err := s.ledger.Increment(ctx, StockCommand{
			ProductID: product.ID,
			VariantID: &variant.ID,
			Quantity:  in.Stock,
			Reason:    "opening stock",
			ActorID:   actorID,
		})
		if err != nil {
			return err
		}
		variant.Stock = res.Current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return variant, nil
}

func validateVariant(v VariantInput) error {
	if strings.TrimSpace(v.Size) == "" {
		return invalidInput("size is required")
	}
	if v.Stock < 0 {
		return invalidInput("stock cannot be negative")
	}
	if v.PriceOverride != nil && !v.PriceOverride.IsPositive() {
		return invalidInput("price_override must be greater than zero")
	}
	return nil
}
