package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"campus_store/internal/models"
	"campus_store/internal/repository"

	"go.uber.org/zap"
)

const DefaultAutoConfirmAfter = 72 * time.Hour

type AutoConfirmFailure struct {
	OrderID     uint   `json:"order_id"`
	OrderNumber string `json:"order_number"`
	Error       string `json:"error"`
}

type AutoConfirmResult struct {
	Cutoff    time.Time            `json:"cutoff"`
	Checked   int                  `json:"checked"`
	Confirmed []string             `json:"confirmed"`
	Failed    []AutoConfirmFailure `json:"failed"`
}

// AutoConfirmService completes claimed orders whose buyer never confirmed receipt.
type AutoConfirmService interface {
	Run(ctx context.Context) (AutoConfirmResult, error)
}

type autoConfirmService struct {
	orders       repository.OrderRepository
	orderService OrderService
	after        time.Duration
	clock        func() time.Time
	logger       *zap.Logger
}

func NewAutoConfirmService(orders repository.OrderRepository, orderService OrderService, after time.Duration, clock func() time.Time, logger *zap.Logger) (AutoConfirmService, error) {
	if orders == nil || orderService == nil {
		return nil, errors.New("auto-confirm: order repository and order service are required")
	}
	if after <= 0 {
		after = DefaultAutoConfirmAfter
	}
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &autoConfirmService{
		orders:       orders,
		orderService: orderService,
		after:        after,
		clock:        clock,
		logger:       logger.Named("auto_confirm"),
	}, nil
}

func (s *autoConfirmService) Run(ctx context.Context) (AutoConfirmResult, error) {
	result := AutoConfirmResult{
		Cutoff:    s.clock().Add(-s.after),
		Confirmed: []string{},
		Failed:    []AutoConfirmFailure{},
	}
	stale, err := s.orders.ListStale(ctx, models.OrderClaimed, result.Cutoff)
	if err != nil {
		return result, fmt.Errorf("list unconfirmed orders: %w", err)
	}
	result.Checked = len(stale)

	for _, order := range stale {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		_, err := s.orderService.UpdateStatus(ctx, StatusCommand{
			OrderID: order.ID,
			Status:  string(models.OrderCompleted),
			Notes:   fmt.Sprintf("auto-confirmed: no receipt confirmation within %s", s.after),
			Source:  SourceSystem,
		})
		if err != nil {
			s.logger.Warn("auto-confirm failed",
				zap.String("order_number", order.OrderNumber),
				zap.Error(err))
			result.Failed = append(result.Failed, AutoConfirmFailure{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				Error:       err.Error(),
			})
			continue
		}
		result.Confirmed = append(result.Confirmed, order.OrderNumber)
	}

	s.logger.Info("auto-confirm finished",
		zap.Time("cutoff", result.Cutoff),
		zap.Int("checked", result.Checked),
		zap.Int("confirmed", len(result.Confirmed)),
		zap.Int("failed", len(result.Failed)),
	)
	return result, nil
}

// AutoConfirmJob returns svc as a scheduler job.
func AutoConfirmJob(svc AutoConfirmService) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		_, err := svc.Run(ctx)
		return err
	}
}
