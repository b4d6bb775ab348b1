package models

import "time"

type NotificationAudience string

const (
	AudienceUser  NotificationAudience = "user"
	AudienceAdmin NotificationAudience = "admin"
)

type Notification struct {
	ID        uint                 `json:"id" gorm:"primaryKey"`
	Audience  NotificationAudience `json:"audience" gorm:"not null;index"`
	UserID    *uint                `json:"user_id,omitempty" gorm:"index"`
	Type      string               `json:"type" gorm:"not null"`
	Title     string               `json:"title" gorm:"not null"`
	Message   string               `json:"message" gorm:"type:text"`
	OrderID   *uint                `json:"order_id,omitempty"`
	IsRead    bool                 `json:"is_read" gorm:"not null;default:false"`
	CreatedAt time.Time            `json:"created_at"`
}

const (
	NotificationOrderPlaced        = "order_placed"
	NotificationNewOrder           = "new_order"
	NotificationStatusChanged      = "order_status_changed"
	NotificationDeliveryConfirm    = "delivery_confirmation_needed"
	NotificationOrderAutoConfirmed = "order_auto_confirmed"
	NotificationOrderCompleted     = "order_completed"
)
