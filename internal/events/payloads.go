package events

import (
	"github.com/shopspring/decimal"
)

type NewOrderPayload struct {
	OrderID       uint            `json:"order_id"`
	OrderNumber   string          `json:"order_number"`
	UserID        uint            `json:"user_id"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	PaymentMethod string          `json:"payment_method"`
	ItemCount     int             `json:"item_count"`
}

type OrderStatusPayload struct {
	OrderID        uint   `json:"order_id"`
	OrderNumber    string `json:"order_number"`
	UserID         uint   `json:"user_id"`
	PreviousStatus string `json:"previous_status"`
	Status         string `json:"status"`
	PaymentStatus  string `json:"payment_status"`
	Source         string `json:"source"`
}

type StockLevel struct {
	ProductID uint  `json:"product_id"`
	VariantID *uint `json:"size_id,omitempty"`
	Stock     int   `json:"stock"`
}

type InventoryPayload struct {
	Reason  string       `json:"reason"`
	OrderID *uint        `json:"order_id,omitempty"`
	Levels  []StockLevel `json:"levels"`
}

type NotificationPayload struct {
	NotificationID uint   `json:"notification_id"`
	Audience       string `json:"audience"`
	UserID         *uint  `json:"user_id,omitempty"`
	Type           string `json:"type"`
	Title          string `json:"title"`
	Message        string `json:"message"`
	OrderID        *uint  `json:"order_id,omitempty"`
}
