package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"campus_store/internal/models"
	"campus_store/pkg/mailer"

	"github.com/shopspring/decimal"
)

type Receipt struct {
	To            string
	CustomerName  string
	OrderNumber   string
	Items         []models.OrderItem
	Total         decimal.Decimal
	PaymentMethod string
	CompletedAt   time.Time
	AutoConfirmed bool
}

type ReceiptSender interface {
	SendReceipt(ctx context.Context, receipt Receipt) error
}

// MailReceiptSender delivers receipts through the mail relay.
type MailReceiptSender struct {
	client *mailer.Client
	loc    *time.Location
}

func NewMailReceiptSender(client *mailer.Client, loc *time.Location) *MailReceiptSender {
	if loc == nil {
		loc = time.UTC
	}
	return &MailReceiptSender{client: client, loc: loc}
}

func (s *MailReceiptSender) SendReceipt(ctx context.Context, receipt Receipt) error {
	subject := fmt.Sprintf("Receipt for order %s", receipt.OrderNumber)
	_, err := s.client.SendEmail(ctx, receipt.To, subject, RenderReceipt(receipt, s.loc))
	return err
}

// RenderReceipt formats the plain-text receipt body.
func RenderReceipt(r Receipt, loc *time.Location) string {
	var b strings.Builder
	name := r.CustomerName
	if name == "" {
		name = "Customer"
	}
	fmt.Fprintf(&b, "Hi %s,\n\n", name)
	if r.AutoConfirmed {
		fmt.Fprintf(&b, "Your order %s was automatically confirmed as received.\n\n", r.OrderNumber)
	} else {
		fmt.Fprintf(&b, "Thank you for confirming receipt of order %s.\n\n", r.OrderNumber)
	}
	for _, item := range r.Items {
		fmt.Fprintf(&b, "  %-40s %10s\n", item.Label(), item.LineTotal.StringFixed(2))
	}
	fmt.Fprintf(&b, "\n  %-40s %10s\n", "TOTAL", r.Total.StringFixed(2))
	fmt.Fprintf(&b, "  Payment: %s\n", r.PaymentMethod)
	fmt.Fprintf(&b, "  Completed: %s\n", r.CompletedAt.In(loc).Format("2006-01-02 15:04"))
	return b.String()
}

// summarizeItems renders "2x PE Shirt (M), 1x ID Lace" for notifications.
func summarizeItems(items []models.OrderItem) string {
	labels := make([]string, 0, len(items))
	for _, item := range items {
		labels = append(labels, item.Label())
	}
	return strings.Join(labels, ", ")
}
