package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	ErrNotFound          = errors.New("repository: record not found")
	ErrDuplicate         = errors.New("repository: duplicate record")
	ErrStaleStatus       = errors.New("repository: status changed concurrently")
	ErrInsufficientStock = errors.New("repository: insufficient stock")
	ErrNegativeStock     = errors.New("repository: stock cannot be negative")
)

// StockTarget addresses the row holding stock: the variant when set, otherwise the product.
type StockTarget struct {
	ProductID uint
	VariantID *uint
}

func (t StockTarget) String() string {
	if t.VariantID != nil {
		return fmt.Sprintf("product %d size %d", t.ProductID, *t.VariantID)
	}
	return fmt.Sprintf("product %d", t.ProductID)
}

// InsufficientStockError reports the stock observed when a conditional decrement matched no row.
type InsufficientStockError struct {
	Target    StockTarget
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("repository: insufficient stock for %s: requested %d, available %d", e.Target, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// translate maps gorm errors onto repository sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}
