package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Order struct {
	ID            uint            `json:"id" gorm:"primaryKey"`
	OrderNumber   string          `json:"order_number" gorm:"uniqueIndex;not null"`
	UserID        uint            `json:"user_id" gorm:"not null;index"`
	TotalAmount   decimal.Decimal `json:"total_amount" gorm:"type:numeric(12,2);not null"`
	PaymentMethod string          `json:"payment_method" gorm:"not null"`
	PaymentStatus PaymentStatus   `json:"payment_status" gorm:"not null;default:'pending'"`
	Status        OrderStatus     `json:"status" gorm:"not null;default:'pending';index:idx_orders_status_updated,priority:1"`
	PayAtCounter  bool            `json:"pay_at_counter" gorm:"not null;default:false"`
	Items         []OrderItem     `json:"items,omitempty" gorm:"foreignKey:OrderID"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" gorm:"index:idx_orders_status_updated,priority:2"`
}

type OrderStatus string

const (
	OrderPending        OrderStatus = "pending"
	OrderProcessing     OrderStatus = "processing"
	OrderReadyForPickup OrderStatus = "ready_for_pickup"
	OrderDelivered      OrderStatus = "delivered"
	OrderClaimed        OrderStatus = "claimed"
	OrderCompleted      OrderStatus = "completed"
	OrderCancelled      OrderStatus = "cancelled"
	OrderRefunded       OrderStatus = "refunded"
)

// OrderStatuses lists every recognized status in fulfilment order.
var OrderStatuses = []OrderStatus{
	OrderPending,
	OrderProcessing,
	OrderReadyForPickup,
	OrderDelivered,
	OrderClaimed,
	OrderCompleted,
	OrderCancelled,
	OrderRefunded,
}

func ParseOrderStatus(value string) (OrderStatus, bool) {
	for _, s := range OrderStatuses {
		if string(s) == value {
			return s, true
		}
	}
	return "", false
}

func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderCompleted, OrderCancelled, OrderRefunded:
		return true
	}
	return false
}

// IsFulfilled reports whether goods have left the store for this status.
func (s OrderStatus) IsFulfilled() bool {
	switch s {
	case OrderDelivered, OrderClaimed, OrderCompleted:
		return true
	}
	return false
}

// IsReversal reports whether entering this status returns goods to stock.
func (s OrderStatus) IsReversal() bool {
	return s == OrderCancelled || s == OrderRefunded
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentPaid      PaymentStatus = "paid"
	PaymentCancelled PaymentStatus = "cancelled"
)

type OrderStatusLog struct {
	ID        uint        `json:"id" gorm:"primaryKey"`
	OrderID   uint        `json:"order_id" gorm:"not null;index"`
	OldStatus OrderStatus `json:"old_status" gorm:"not null"`
	NewStatus OrderStatus `json:"new_status" gorm:"not null"`
	Notes     string      `json:"notes" gorm:"type:text"`
	ChangedBy *uint       `json:"changed_by,omitempty"`
	Source    string      `json:"source" gorm:"not null;default:'admin'"`
	CreatedAt time.Time   `json:"created_at"`
}

// OrderCounter holds the last issued order sequence for one calendar day.
type OrderCounter struct {
	Day       string    `gorm:"primaryKey;size:8"`
	Value     int64     `gorm:"not null"`
	UpdatedAt time.Time `json:"updated_at"`
}
