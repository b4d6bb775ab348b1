package repository

import (
	"context"

	"campus_store/internal/models"

	"gorm.io/gorm"
)

// OrderItemRepository stores checkout line snapshots. Items are never updated after insert.
type OrderItemRepository interface {
	Create(ctx context.Context, item *models.OrderItem) error
	ListByOrder(ctx context.Context, orderID uint) ([]models.OrderItem, error)
}

type orderItemRepository struct {
	db *gorm.DB
}

func NewOrderItemRepository(db *gorm.DB) OrderItemRepository {
	return &orderItemRepository{db: db}
}

func (r *orderItemRepository) Create(ctx context.Context, item *models.OrderItem) error {
	return translate(conn(ctx, r.db).Create(item).Error)
}

func (r *orderItemRepository) ListByOrder(ctx context.Context, orderID uint) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := conn(ctx, r.db).Where("order_id = ?", orderID).Order("id").Find(&items).Error
	return items, translate(err)
}
