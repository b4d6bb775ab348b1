package repository

import (
	"context"
	"errors"

	"campus_store/internal/models"

	"gorm.io/gorm"
)

type CartRepository interface {
	// Add inserts the line, or raises the quantity of an existing line for the same product and size.
	Add(ctx context.Context, item *models.CartItem) error
	GetByID(ctx context.Context, userID, id uint) (*models.CartItem, error)
	ListByUser(ctx context.Context, userID uint) ([]models.CartItem, error)
	ListByIDs(ctx context.Context, userID uint, ids []uint) ([]models.CartItem, error)
	UpdateQuantity(ctx context.Context, userID, id uint, quantity int) error
	Delete(ctx context.Context, userID uint, ids []uint) (int64, error)
	DeleteAllByUser(ctx context.Context, userID uint) (int64, error)
}

type cartRepository struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) CartRepository {
	return &cartRepository{db: db}
}

func (r *cartRepository) Add(ctx context.Context, item *models.CartItem) error {
	db := conn(ctx, r.db)
	var existing models.CartItem
	q := db.Where("user_id = ? AND product_id = ?", item.UserID, item.ProductID)
	if item.VariantID != nil {
		q = q.Where("variant_id = ?", *item.VariantID)
	} else {
		q = q.Where("variant_id IS NULL")
	}
	err := q.Take(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return translate(db.Create(item).Error)
	}
	if err != nil {
		return translate(err)
	}

	existing.Quantity += item.Quantity
	if err := db.Model(&existing).Update("quantity", existing.Quantity).Error; err != nil {
		return translate(err)
	}
	*item = existing
	return nil
}

func (r *cartRepository) GetByID(ctx context.Context, userID, id uint) (*models.CartItem, error) {
	var item models.CartItem
	err := conn(ctx, r.db).Preload("Product").Preload("Variant").
		Where("id = ? AND user_id = ?", id, userID).
		Take(&item).Error
	if err != nil {
		return nil, translate(err)
	}
	return &item, nil
}

func (r *cartRepository) ListByUser(ctx context.Context, userID uint) ([]models.CartItem, error) {
	var items []models.CartItem
	err := conn(ctx, r.db).Preload("Product").Preload("Variant").
		Where("user_id = ?", userID).
		Order("id").
		Find(&items).Error
	return items, translate(err)
}

func (r *cartRepository) ListByIDs(ctx context.Context, userID uint, ids []uint) ([]models.CartItem, error) {
	var items []models.CartItem
	if len(ids) == 0 {
		return items, nil
	}
	err := conn(ctx, r.db).Preload("Product").Preload("Variant").
		Where("user_id = ? AND id IN ?", userID, ids).
		Order("id").
		Find(&items).Error
	return items, translate(err)
}

func (r *cartRepository) UpdateQuantity(ctx context.Context, userID, id uint, quantity int) error {
	res := conn(ctx, r.db).Model(&models.CartItem{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("quantity", quantity)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *cartRepository) Delete(ctx context.Context, userID uint, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := conn(ctx, r.db).Where("user_id = ? AND id IN ?", userID, ids).Delete(&models.CartItem{})
	return res.RowsAffected, translate(res.Error)
}

func (r *cartRepository) DeleteAllByUser(ctx context.Context, userID uint) (int64, error) {
	res := conn(ctx, r.db).Where("user_id = ?", userID).Delete(&models.CartItem{})
	return res.RowsAffected, translate(res.Error)
}
