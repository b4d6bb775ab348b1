package models

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// OrderItem freezes the product name, size, price and cost at checkout time.
type OrderItem struct {
	ID          uint            `json:"id" gorm:"primaryKey"`
	OrderID     uint            `json:"order_id" gorm:"not null;index"`
	ProductID   uint            `json:"product_id" gorm:"not null;index"`
	VariantID   *uint           `json:"size_id,omitempty"`
	ProductName string          `json:"product_name" gorm:"not null"`
	Size        string          `json:"size,omitempty"`
	Quantity    int             `json:"quantity" gorm:"not null"`
	UnitPrice   decimal.Decimal `json:"unit_price" gorm:"type:numeric(12,2);not null"`
	UnitCost    decimal.Decimal `json:"unit_cost" gorm:"type:numeric(12,2);not null"`
	LineTotal   decimal.Decimal `json:"line_total" gorm:"type:numeric(12,2);not null"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Label renders the item the way receipts and notifications show it, e.g. "2x PE Shirt (M)".
func (i OrderItem) Label() string {
	name := i.ProductName
	if i.Size != "" {
		name += " (" + i.Size + ")"
	}
	return strconv.Itoa(i.Quantity) + "x " + name
}
