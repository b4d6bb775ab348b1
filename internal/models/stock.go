package models

import "time"

type MovementType string

const (
	MovementStockIn    MovementType = "stock_in"
	MovementStockOut   MovementType = "stock_out"
	MovementAdjustment MovementType = "stock_adjustment"
)

func ParseMovementType(value string) (MovementType, bool) {
	switch t := MovementType(value); t {
	case MovementStockIn, MovementStockOut, MovementAdjustment:
		return t, true
	}
	return "", false
}

// StockMovement is an append-only audit row written with every stock mutation.
type StockMovement struct {
	ID            uint         `json:"id" gorm:"primaryKey"`
	ProductID     uint         `json:"product_id" gorm:"not null;index"`
	VariantID     *uint        `json:"size_id,omitempty" gorm:"index"`
	MovementType  MovementType `json:"movement_type" gorm:"not null"`
	Quantity      int          `json:"quantity" gorm:"not null"`
	PreviousStock int          `json:"previous_stock" gorm:"not null"`
	NewStock      int          `json:"new_stock" gorm:"not null"`
	Reason        string       `json:"reason" gorm:"not null"`
	Supplier      string       `json:"supplier,omitempty"`
	Notes         string       `json:"notes,omitempty" gorm:"type:text"`
	OrderID       *uint        `json:"order_id,omitempty" gorm:"index"`
	ActorID       *uint        `json:"actor_id,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
}

func (StockMovement) TableName() string {
	return "stock_movements"
}
