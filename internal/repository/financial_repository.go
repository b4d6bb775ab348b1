package repository

import (
	"context"

	"campus_store/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type FinancialRepository interface {
	AppendLedgerEntry(ctx context.Context, entry *models.SalesLedgerEntry) error
	ListLedgerEntries(ctx context.Context, orderID uint) ([]models.SalesLedgerEntry, error)
	// NetSales sums every ledger entry recorded for the order.
	NetSales(ctx context.Context, orderID uint) (decimal.Decimal, error)
	CreatePaymentTransaction(ctx context.Context, tx *models.PaymentTransaction) error
	ListPaymentTransactions(ctx context.Context, orderID uint) ([]models.PaymentTransaction, error)
}

type financialRepository struct {
	db *gorm.DB
}

func NewFinancialRepository(db *gorm.DB) FinancialRepository {
	return &financialRepository{db: db}
}

func (r *financialRepository) AppendLedgerEntry(ctx context.Context, entry *models.SalesLedgerEntry) error {
	return translate(conn(ctx, r.db).Create(entry).Error)
}

func (r *financialRepository) ListLedgerEntries(ctx context.Context, orderID uint) ([]models.SalesLedgerEntry, error) {
	var entries []models.SalesLedgerEntry
	err := conn(ctx, r.db).Where("order_id = ?", orderID).Order("id").Find(&entries).Error
	return entries, translate(err)
}

func (r *financialRepository) NetSales(ctx context.Context, orderID uint) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	err := conn(ctx, r.db).Model(&models.SalesLedgerEntry{}).
		Select("SUM(amount)").
		Where("order_id = ?", orderID).
		Row().
		Scan(&total)
	if err != nil {
		return decimal.Zero, translate(err)
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}

func (r *financialRepository) CreatePaymentTransaction(ctx context.Context, tx *models.PaymentTransaction) error {
	return translate(conn(ctx, r.db).Create(tx).Error)
}

func (r *financialRepository) ListPaymentTransactions(ctx context.Context, orderID uint) ([]models.PaymentTransaction, error) {
	var txs []models.PaymentTransaction
	err := conn(ctx, r.db).Where("order_id = ?", orderID).Order("id").Find(&txs).Error
	return txs, translate(err)
}
