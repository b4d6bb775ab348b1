package services

import (
	"context"
	"errors"

	"campus_store/internal/models"
	"campus_store/internal/repository"
)

type CartService interface {
	Add(ctx context.Context, userID uint, in LineInput) (*models.CartItem, error)
	UpdateQuantity(ctx context.Context, userID, itemID uint, quantity int) error
	Remove(ctx context.Context, userID, itemID uint) error
	List(ctx context.Context, userID uint) ([]models.CartItem, error)
}

type cartService struct {
	carts    repository.CartRepository
	resolver ItemResolver
}

func NewCartService(carts repository.CartRepository, resolver ItemResolver) (CartService, error) {
	if carts == nil || resolver == nil {
		return nil, errors.New("cart service: cart repository and resolver are required")
	}
	return &cartService{carts: carts, resolver: resolver}, nil
}

func (s *cartService) Add(ctx context.Context, userID uint, in LineInput) (*models.CartItem, error) {
	line, err := s.resolver.ResolveLine(ctx, in)
	if err != nil {
		return nil, err
	}
	if line.Quantity > line.Available {
		return nil, &InsufficientStockError{
			ProductID:   line.Product.ID,
			VariantID:   line.Target().VariantID,
			ProductName: line.DisplayName(),
			Requested:   line.Quantity,
			Available:   line.Available,
		}
	}

	item := &models.CartItem{
		UserID:    userID,
		ProductID: line.Product.ID,
		VariantID: line.Target().VariantID,
		Quantity:  line.Quantity,
	}
	if err := s.carts.Add(ctx, item); err != nil {
		return nil, fromRepository(err)
	}
	return item, nil
}

func (s *cartService) UpdateQuantity(ctx context.Context, userID, itemID uint, quantity int) error {
	if quantity <= 0 {
		return s.Remove(ctx, userID, itemID)
	}
	item, err := s.carts.GetByID(ctx, userID, itemID)
	if err != nil {
		return fromRepository(err)
	}
	line, err := s.resolver.ResolveLine(ctx, LineInput{ProductID: item.ProductID, SizeID: item.VariantID, Quantity: quantity})
	if err != nil {
		return err
	}
	if quantity > line.Available {
		return &InsufficientStockError{
			ProductID:   line.Product.ID,
			VariantID:   item.VariantID,
			ProductName: line.DisplayName(),
			Requested:   quantity,
			Available:   line.Available,
		}
	}
	return fromRepository(s.carts.UpdateQuantity(ctx, userID, itemID, quantity))
}

func (s *cartService) Remove(ctx context.Context, userID, itemID uint) error {
	n, err := s.carts.Delete(ctx, userID, []uint{itemID})
	if err != nil {
		return fromRepository(err)
	}
	if n == 0 {
		return notFound("cart item", itemID)
	}
	return nil
}

func (s *cartService) List(ctx context.Context, userID uint) ([]models.CartItem, error) {
	items, err := s.carts.ListByUser(ctx, userID)
	return items, fromRepository(err)
}
