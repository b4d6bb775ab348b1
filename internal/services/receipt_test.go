package services

import (
	"testing"
	"time"

	"campus_store/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRenderReceipt(t *testing.T) {
	manila := time.FixedZone("PHT", 8*3600)
	items := []models.OrderItem{
		{ProductName: "PE Shirt", Size: "M", Quantity: 2, LineTotal: decimal.NewFromInt(700)},
		{ProductName: "ID Lace", Quantity: 1, LineTotal: decimal.NewFromInt(75)},
	}
	r := Receipt{
		OrderNumber:   "ORD202603140001",
		Items:         items,
		Total:         decimal.NewFromInt(775),
		PaymentMethod: "cash",
		CompletedAt:   time.Date(2026, 3, 14, 17, 0, 0, 0, time.UTC),
		AutoConfirmed: true,
	}

	body := RenderReceipt(r, manila)

	assert.Contains(t, body, "Hi Customer,")
	assert.Contains(t, body, "automatically confirmed")
	assert.Contains(t, body, "2x PE Shirt (M)")
	assert.Contains(t, body, "775.00")
	assert.Contains(t, body, "Completed: 2026-03-15 01:00")
	assert.Equal(t, "2x PE Shirt (M), 1x ID Lace", summarizeItems(items))
}
