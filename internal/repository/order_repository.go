package repository

import (
	"context"
	"time"

	"campus_store/internal/models"

	"gorm.io/gorm"
)

type OrderFilter struct {
	UserID *uint
	Status models.OrderStatus
	Limit  int
	Offset int
}

// StatusChange is a compare-and-set on the order status. PaymentStatus is written alongside when set.
type StatusChange struct {
	OrderID       uint
	From          models.OrderStatus
	To            models.OrderStatus
	PaymentStatus *models.PaymentStatus
	At            time.Time
}

type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id uint) (*models.Order, error)
	List(ctx context.Context, filter OrderFilter) ([]models.Order, error)
	// ChangeStatus returns ErrStaleStatus when the order is no longer in From.
	ChangeStatus(ctx context.Context, change StatusChange) error
	// ListStale returns orders in status whose updated_at is at or before cutoff.
	ListStale(ctx context.Context, status models.OrderStatus, cutoff time.Time) ([]models.Order, error)
	AppendStatusLog(ctx context.Context, log *models.OrderStatusLog) error
	ListStatusLogs(ctx context.Context, orderID uint) ([]models.OrderStatusLog, error)
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(ctx context.Context, order *models.Order) error {
	return translate(conn(ctx, r.db).Omit("Items").Create(order).Error)
}

func (r *orderRepository) GetByID(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	err := conn(ctx, r.db).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		First(&order, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &order, nil
}

func (r *orderRepository) List(ctx context.Context, filter OrderFilter) ([]models.Order, error) {
	q := conn(ctx, r.db).Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") })
	if filter.UserID != nil {
		q = q.Where("user_id = ?", *filter.UserID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}
	var orders []models.Order
	err := q.Order("created_at DESC, id DESC").Find(&orders).Error
	return orders, translate(err)
}

func (r *orderRepository) ChangeStatus(ctx context.Context, change StatusChange) error {
	updates := map[string]interface{}{
		"status":     change.To,
		"updated_at": change.At,
	}
	if change.PaymentStatus != nil {
		updates["payment_status"] = *change.PaymentStatus
	}
	res := conn(ctx, r.db).Model(&models.Order{}).
		Where("id = ? AND status = ?", change.OrderID, change.From).
		UpdateColumns(updates)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrStaleStatus
	}
	return nil
}

func (r *orderRepository) ListStale(ctx context.Context, status models.OrderStatus, cutoff time.Time) ([]models.Order, error) {
	var orders []models.Order
	err := conn(ctx, r.db).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Where("status = ? AND updated_at <= ?", status, cutoff).
		Order("updated_at, id").
		Find(&orders).Error
	return orders, translate(err)
}

func (r *orderRepository) AppendStatusLog(ctx context.Context, log *models.OrderStatusLog) error {
	return translate(conn(ctx, r.db).Create(log).Error)
}

func (r *orderRepository) ListStatusLogs(ctx context.Context, orderID uint) ([]models.OrderStatusLog, error) {
	var logs []models.OrderStatusLog
	err := conn(ctx, r.db).Where("order_id = ?", orderID).Order("created_at, id").Find(&logs).Error
	return logs, translate(err)
}
