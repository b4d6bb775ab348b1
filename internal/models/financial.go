package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type LedgerEntryType string

const (
	LedgerSale     LedgerEntryType = "sale"
	LedgerReversal LedgerEntryType = "reversal"
)

// SalesLedgerEntry records revenue recognition for an order. Reversals carry a negative amount.
type SalesLedgerEntry struct {
	ID        uint            `json:"id" gorm:"primaryKey"`
	OrderID   uint            `json:"order_id" gorm:"not null;index"`
	EntryType LedgerEntryType `json:"entry_type" gorm:"not null"`
	Amount    decimal.Decimal `json:"amount" gorm:"type:numeric(12,2);not null"`
	Cost      decimal.Decimal `json:"cost" gorm:"type:numeric(12,2);not null;default:0"`
	Notes     string          `json:"notes"`
	CreatedAt time.Time       `json:"created_at"`
}

func (SalesLedgerEntry) TableName() string {
	return "sales_ledger"
}

type PaymentTransaction struct {
	ID        uint            `json:"id" gorm:"primaryKey"`
	OrderID   uint            `json:"order_id" gorm:"not null;index"`
	Reference string          `json:"reference" gorm:"uniqueIndex;not null"`
	Method    string          `json:"method" gorm:"not null"`
	Amount    decimal.Decimal `json:"amount" gorm:"type:numeric(12,2);not null"`
	Status    string          `json:"status" gorm:"not null"`
	Source    string          `json:"source" gorm:"not null"`
	CreatedAt time.Time       `json:"created_at"`
}

const (
	PaymentTransactionCompleted = "completed"
	PaymentSourceStatusChange   = "status_transition"
)
