package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Product struct {
	ID          uint             `json:"id" gorm:"primaryKey"`
	Name        string           `json:"name" gorm:"not null"`
	Description string           `json:"description" gorm:"type:text"`
	Category    string           `json:"category" gorm:"index"`
	Price       decimal.Decimal  `json:"price" gorm:"type:numeric(12,2);not null"`
	CostPrice   decimal.Decimal  `json:"cost_price" gorm:"type:numeric(12,2);not null;default:0"`
	Stock       int              `json:"stock" gorm:"not null;default:0;check:chk_products_stock_non_negative,stock >= 0"`
	IsActive    bool             `json:"is_active" gorm:"not null;default:true"`
	Variants    []ProductVariant `json:"variants,omitempty" gorm:"foreignKey:ProductID"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	DeletedAt   gorm.DeletedAt   `json:"-" gorm:"index"`
}

// HasVariants reports whether stock is tracked per size rather than on the product row.
func (p *Product) HasVariants() bool {
	return len(p.Variants) > 0
}

// ProductVariant is a size of a product with its own stock and an optional price override.
type ProductVariant struct {
	ID            uint             `json:"id" gorm:"primaryKey"`
	ProductID     uint             `json:"product_id" gorm:"not null;index"`
	Size          string           `json:"size" gorm:"not null"`
	Stock         int              `json:"stock" gorm:"not null;default:0;check:chk_product_variants_stock_non_negative,stock >= 0"`
	PriceOverride *decimal.Decimal `json:"price_override,omitempty" gorm:"type:numeric(12,2)"`
	IsActive      bool             `json:"is_active" gorm:"not null;default:true"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// EffectivePrice returns the variant override when set, otherwise the product price.
func (v *ProductVariant) EffectivePrice(base decimal.Decimal) decimal.Decimal {
	if v != nil && v.PriceOverride != nil {
		return *v.PriceOverride
	}
	return base
}
