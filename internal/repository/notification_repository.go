package repository

import (
	"context"

	"campus_store/internal/models"

	"gorm.io/gorm"
)

type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	ListForUser(ctx context.Context, userID uint, limit int) ([]models.Notification, error)
	ListForAdmins(ctx context.Context, limit int) ([]models.Notification, error)
	// MarkRead flags a notification read. A nil userID addresses the admin feed.
	MarkRead(ctx context.Context, id uint, userID *uint) error
}

type notificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *models.Notification) error {
	return translate(conn(ctx, r.db).Create(n).Error)
}

func (r *notificationRepository) ListForUser(ctx context.Context, userID uint, limit int) ([]models.Notification, error) {
	var out []models.Notification
	q := conn(ctx, r.db).Where("audience = ? AND user_id = ?", models.AudienceUser, userID).Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, translate(err)
}

func (r *notificationRepository) ListForAdmins(ctx context.Context, limit int) ([]models.Notification, error) {
	var out []models.Notification
	q := conn(ctx, r.db).Where("audience = ?", models.AudienceAdmin).Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, translate(err)
}

func (r *notificationRepository) MarkRead(ctx context.Context, id uint, userID *uint) error {
	q := conn(ctx, r.db).Model(&models.Notification{}).Where("id = ?", id)
	if userID != nil {
		q = q.Where("audience = ? AND user_id = ?", models.AudienceUser, *userID)
	} else {
		q = q.Where("audience = ?", models.AudienceAdmin)
	}
	res := q.Update("is_read", true)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
