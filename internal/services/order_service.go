package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"campus_store/internal/events"
	"campus_store/internal/models"
	"campus_store/internal/repository"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type StatusSource string

const (
	SourceAdmin    StatusSource = "admin"
	SourceCustomer StatusSource = "customer"
	SourceSystem   StatusSource = "system"
)

// OrderTransitions lists the statuses reachable from each status. Terminal statuses have none.
var OrderTransitions = map[models.OrderStatus][]models.OrderStatus{
	models.OrderPending: {
		models.OrderProcessing, models.OrderReadyForPickup, models.OrderDelivered,
		models.OrderCancelled, models.OrderRefunded,
	},
	models.OrderProcessing: {
		models.OrderReadyForPickup, models.OrderDelivered, models.OrderCancelled, models.OrderRefunded,
	},
	models.OrderReadyForPickup: {
		models.OrderProcessing, models.OrderDelivered, models.OrderClaimed, models.OrderCompleted,
		models.OrderCancelled, models.OrderRefunded,
	},
	models.OrderDelivered: {
		models.OrderClaimed, models.OrderCompleted, models.OrderCancelled, models.OrderRefunded,
	},
	models.OrderClaimed: {
		models.OrderCompleted, models.OrderCancelled, models.OrderRefunded,
	},
}

func AllowedTransitions(from models.OrderStatus) []models.OrderStatus {
	return append([]models.OrderStatus(nil), OrderTransitions[from]...)
}

func CanTransition(from, to models.OrderStatus) bool {
	for _, s := range OrderTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

type StatusCommand struct {
	OrderID uint
	Status  string
	Notes   string
	ActorID *uint
	Source  StatusSource
	// OwnerID restricts the change to orders placed by this user.
	OwnerID *uint
}

type StatusResult struct {
	Order                models.Order
	PreviousStatus       models.OrderStatus
	NewStatus            models.OrderStatus
	InventoryUpdated     bool
	SalesLogged          bool
	PaymentStatusUpdated bool
	Effects              Outcome
}

type OrderService interface {
	Get(ctx context.Context, id uint) (*models.Order, error)
	// GetForUser hides orders placed by other users behind ErrNotFound.
	GetForUser(ctx context.Context, userID, id uint) (*models.Order, error)
	List(ctx context.Context, filter repository.OrderFilter) ([]models.Order, error)
	History(ctx context.Context, orderID uint) ([]models.OrderStatusLog, error)
	UpdateStatus(ctx context.Context, cmd StatusCommand) (StatusResult, error)
	ConfirmReceipt(ctx context.Context, userID, orderID uint, notes string) (StatusResult, error)
}

type OrderServiceDeps struct {
	UnitOfWork    repository.UnitOfWork
	Orders        repository.OrderRepository
	Financial     repository.FinancialRepository
	Users         repository.UserRepository
	// Products lets restock flag lines whose product changed shape after checkout.
	Products      repository.ProductRepository
	Ledger        StockLedger
	Notifications NotificationService
	Publisher     events.Publisher
	Receipts      ReceiptSender
	Clock         func() time.Time
	// PaymentRef generates payment transaction references. Defaults to PAY-<ulid>.
	PaymentRef    func() string
	EffectTimeout time.Duration
	Logger        *zap.Logger
}

type orderService struct {
	uow           repository.UnitOfWork
	orders        repository.OrderRepository
	financial     repository.FinancialRepository
	users         repository.UserRepository
	products      repository.ProductRepository
	ledger        StockLedger
	notifications NotificationService
	publisher     events.Publisher
	receipts      ReceiptSender
	clock         func() time.Time
	paymentRef    func() string
	effectTimeout time.Duration
	logger        *zap.Logger
}

func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.UnitOfWork == nil || deps.Orders == nil || deps.Financial == nil {
		return nil, errors.New("order service: unit of work, order and financial repositories are required")
	}
	if deps.Ledger == nil {
		return nil, errors.New("order service: stock ledger is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	publisher := deps.Publisher
	if publisher == nil {
		publisher = events.NewLogPublisher(logger)
	}
	paymentRef := deps.PaymentRef
	if paymentRef == nil {
		paymentRef = func() string { return "PAY-" + ulid.Make().String() }
	}
	return &orderService{
		uow:           deps.UnitOfWork,
		orders:        deps.Orders,
		financial:     deps.Financial,
		users:         deps.Users,
		products:      deps.Products,
		ledger:        deps.Ledger,
		notifications: deps.Notifications,
		publisher:     publisher,
		receipts:      deps.Receipts,
		clock:         clock,
		paymentRef:    paymentRef,
		effectTimeout: deps.EffectTimeout,
		logger:        logger.Named("orders"),
	}, nil
}

func (s *orderService) Get(ctx context.Context, id uint) (*models.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("order", id)
		}
		return nil, err
	}
	return order, nil
}

func (s *orderService) GetForUser(ctx context.Context, userID, id uint) (*models.Order, error) {
	order, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, notFound("order", id)
	}
	return order, nil
}

func (s *orderService) List(ctx context.Context, filter repository.OrderFilter) ([]models.Order, error) {
	if filter.Status != "" {
		if _, ok := models.ParseOrderStatus(string(filter.Status)); !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, filter.Status)
		}
	}
	filter.Limit = clampLimit(filter.Limit)
	orders, err := s.orders.List(ctx, filter)
	return orders, fromRepository(err)
}

func (s *orderService) History(ctx context.Context, orderID uint) ([]models.OrderStatusLog, error) {
	logs, err := s.orders.ListStatusLogs(ctx, orderID)
	return logs, fromRepository(err)
}

func (s *orderService) ConfirmReceipt(ctx context.Context, userID, orderID uint, notes string) (StatusResult, error) {
	if strings.TrimSpace(notes) == "" {
		notes = "receipt confirmed by customer"
	}
	return s.UpdateStatus(ctx, StatusCommand{
		OrderID: orderID,
		Status:  string(models.OrderCompleted),
		Notes:   notes,
		ActorID: &userID,
		Source:  SourceCustomer,
		OwnerID: &userID,
	})
}

func (s *orderService) UpdateStatus(ctx context.Context, cmd StatusCommand) (StatusResult, error) {
	target, ok := models.ParseOrderStatus(strings.TrimSpace(cmd.Status))
	if !ok {
		return StatusResult{}, fmt.Errorf("%w: %q", ErrInvalidStatus, cmd.Status)
	}
	if cmd.Source == "" {
		cmd.Source = SourceAdmin
	}

	var order *models.Order
	var err error
	if cmd.OwnerID != nil {
		order, err = s.GetForUser(ctx, *cmd.OwnerID, cmd.OrderID)
	} else {
		order, err = s.Get(ctx, cmd.OrderID)
	}
	if err != nil {
		return StatusResult{}, err
	}

	prev := order.Status
	if !CanTransition(prev, target) {
		return StatusResult{}, &TransitionError{From: prev, To: target, Allowed: AllowedTransitions(prev)}
	}

	result := StatusResult{PreviousStatus: prev, NewStatus: target}
	now := s.clock()

	var paymentStatus *models.PaymentStatus
	switch {
	case target.IsFulfilled() && order.PaymentStatus != models.PaymentPaid:
		ps := models.PaymentPaid
		paymentStatus = &ps
	case target.IsReversal() && order.PaymentStatus == models.PaymentPending:
		ps := models.PaymentCancelled
		paymentStatus = &ps
	}

	err = s.uow.RunInTx(ctx, func(ctx context.Context) error {
		err := s.orders.ChangeStatus(ctx, repository.StatusChange{
			OrderID:       order.ID,
			From:          prev,
			To:            target,
			PaymentStatus: paymentStatus,
			At:            now,
		})
		if err != nil {
			if errors.Is(err, repository.ErrStaleStatus) {
				return fmt.Errorf("%w: order %s changed status concurrently", ErrConflict, order.OrderNumber)
			}
			return fromRepository(err)
		}

		if err := s.orders.AppendStatusLog(ctx, &models.OrderStatusLog{
			OrderID:   order.ID,
			OldStatus: prev,
			NewStatus: target,
			Notes:     strings.TrimSpace(cmd.Notes),
			ChangedBy: cmd.ActorID,
			Source:    string(cmd.Source),
			CreatedAt: now,
		}); err != nil {
			return fmt.Errorf("append status log: %w", err)
		}

		logged, err := s.recordSales(ctx, order, target, paymentStatus)
		if err != nil {
			return err
		}
		result.SalesLogged = logged
		result.PaymentStatusUpdated = paymentStatus != nil
		return nil
	})
	if err != nil {
		return StatusResult{}, err
	}

	order.Status = target
	order.UpdatedAt = now
	if paymentStatus != nil {
		order.PaymentStatus = *paymentStatus
	}

	s.logger.Info("order status changed",
		zap.String("order_number", order.OrderNumber),
		zap.String("from", string(prev)),
		zap.String("to", string(target)),
		zap.String("source", string(cmd.Source)),
	)

	fx := newEffects(s.logger, s.effectTimeout)
	var levels []events.StockLevel
	if target.IsReversal() {
		levels = s.restock(ctx, fx, order, cmd.ActorID)
		result.InventoryUpdated = len(levels) > 0
	}
	s.announce(ctx, fx, order, prev, cmd.Source, levels)

	result.Order = *order
	result.Effects = fx.outcome()
	return result, nil
}

// recordSales keeps the ledger net at the order total while fulfilled and at zero after a reversal.
func (s *orderService) recordSales(ctx context.Context, order *models.Order, target models.OrderStatus, paymentStatus *models.PaymentStatus) (bool, error) {
	if !target.IsFulfilled() && !target.IsReversal() {
		return false, nil
	}
	net, err := s.financial.NetSales(ctx, order.ID)
	if err != nil {
		return false, fmt.Errorf("read sales ledger: %w", err)
	}
	cost := orderCost(order.Items)

	if target.IsReversal() {
		if !net.IsPositive() {
			return false, nil
		}
		err := s.financial.AppendLedgerEntry(ctx, &models.SalesLedgerEntry{
			OrderID:   order.ID,
			EntryType: models.LedgerReversal,
			Amount:    order.TotalAmount.Neg(),
			Cost:      cost.Neg(),
			Notes:     fmt.Sprintf("order %s %s", order.OrderNumber, target),
		})
		if err != nil {
			return false, fmt.Errorf("append reversal: %w", err)
		}
		return true, nil
	}

	logged := false
	if !net.IsPositive() {
		err := s.financial.AppendLedgerEntry(ctx, &models.SalesLedgerEntry{
			OrderID:   order.ID,
			EntryType: models.LedgerSale,
			Amount:    order.TotalAmount,
			Cost:      cost,
			Notes:     fmt.Sprintf("order %s %s", order.OrderNumber, target),
		})
		if err != nil {
			return false, fmt.Errorf("append sale: %w", err)
		}
		logged = true
	}
	if paymentStatus != nil && *paymentStatus == models.PaymentPaid {
		err := s.financial.CreatePaymentTransaction(ctx, &models.PaymentTransaction{
			OrderID:   order.ID,
			Reference: s.paymentRef(),
			Method:    order.PaymentMethod,
			Amount:    order.TotalAmount,
			Status:    models.PaymentTransactionCompleted,
			Source:    models.PaymentSourceStatusChange,
		})
		if err != nil {
			return false, fmt.Errorf("record payment: %w", fromRepository(err))
		}
	}
	return logged, nil
}

// restock returns every line to stock. A failed line is reported and the rest still run.
func (s *orderService) restock(ctx context.Context, fx *effects, order *models.Order, actorID *uint) []events.StockLevel {
	var levels []events.StockLevel
	orderID := order.ID
	for _, item := range order.Items {
		item := item
		fx.run(ctx, fmt.Sprintf("restock:item:%d", item.ID), func(ctx context.Context) error {
			fields := []zap.Field{
				zap.String("order_number", order.OrderNumber),
				zap.Uint("order_item_id", item.ID),
				zap.Uint("product_id", item.ProductID),
				zap.Int("quantity", item.Quantity),
			}
			if item.VariantID == nil && s.products != nil {
				product, err := s.products.GetByID(ctx, item.ProductID)
				if err == nil && product.HasVariants() {
					s.logger.Warn("restocking onto a product now sold by size; units are not sellable until moved to a size", fields...)
				}
			}

			res, err := s.ledger.Increment(ctx, StockCommand{
				ProductID: item.ProductID,
				VariantID: item.VariantID,
				Quantity:  item.Quantity,
				Reason:    fmt.Sprintf("order %s %s", order.OrderNumber, order.Status),
				OrderID:   &orderID,
				ActorID:   actorID,
			})
			if errors.Is(err, ErrNotFound) {
				s.logger.Warn("restock skipped: product or size no longer in catalog", fields...)
				return err
			}
			if err != nil {
				return err
			}
			levels = append(levels, events.StockLevel{ProductID: item.ProductID, VariantID: item.VariantID, Stock: res.Current})
			return nil
		})
	}
	return levels
}

func (s *orderService) announce(ctx context.Context, fx *effects, order *models.Order, prev models.OrderStatus, source StatusSource, levels []events.StockLevel) {
	orderID := order.ID
	fx.run(ctx, "publish:"+events.TopicOrderStatusUpdated, func(ctx context.Context) error {
		return s.publisher.Publish(ctx, events.TopicOrderStatusUpdated, events.OrderStatusPayload{
			OrderID:        order.ID,
			OrderNumber:    order.OrderNumber,
			UserID:         order.UserID,
			PreviousStatus: string(prev),
			Status:         string(order.Status),
			PaymentStatus:  string(order.PaymentStatus),
			Source:         string(source),
		})
	})
	if len(levels) > 0 {
		fx.run(ctx, "publish:"+events.TopicInventoryUpdated, func(ctx context.Context) error {
			return s.publisher.Publish(ctx, events.TopicInventoryUpdated, events.InventoryPayload{
				Reason:  "order_" + string(order.Status),
				OrderID: &orderID,
				Levels:  levels,
			})
		})
	}

	if s.notifications != nil {
		buyer := buyerNotification(order, source)
		fx.run(ctx, "notify:buyer", func(ctx context.Context) error {
			_, err := s.notifications.NotifyUser(ctx, order.UserID, buyer)
			return err
		})
		if admin, ok := adminNotification(order, source); ok {
			fx.run(ctx, "notify:admin", func(ctx context.Context) error {
				_, err := s.notifications.NotifyAdmins(ctx, admin)
				return err
			})
		}
	}

	if order.Status == models.OrderCompleted && s.receipts != nil && s.users != nil {
		fx.run(ctx, "email:receipt", func(ctx context.Context) error {
			user, err := s.users.GetByID(ctx, order.UserID)
			if err != nil {
				return fmt.Errorf("look up buyer %d: %w", order.UserID, err)
			}
			if user.Email == "" {
				return fmt.Errorf("buyer %d has no email address", order.UserID)
			}
			return s.receipts.SendReceipt(ctx, Receipt{
				To:            user.Email,
				CustomerName:  user.FullName,
				OrderNumber:   order.OrderNumber,
				Items:         order.Items,
				Total:         order.TotalAmount,
				PaymentMethod: order.PaymentMethod,
				CompletedAt:   order.UpdatedAt,
				AutoConfirmed: source == SourceSystem,
			})
		})
	}
}

func buyerNotification(order *models.Order, source StatusSource) NotificationInput {
	orderID := order.ID
	in := NotificationInput{
		Type:    models.NotificationStatusChanged,
		Title:   fmt.Sprintf("Order %s is now %s", order.OrderNumber, statusLabel(order.Status)),
		Message: fmt.Sprintf("Your order %s (%s) is now %s.", order.OrderNumber, summarizeItems(order.Items), statusLabel(order.Status)),
		OrderID: &orderID,
	}
	switch {
	case order.Status == models.OrderCompleted && source == SourceSystem:
		in.Type = models.NotificationOrderAutoConfirmed
		in.Title = fmt.Sprintf("Order %s automatically confirmed", order.OrderNumber)
		in.Message = fmt.Sprintf("We marked your order %s (%s) as received since it was not confirmed within the confirmation window.", order.OrderNumber, summarizeItems(order.Items))
	case order.Status == models.OrderCompleted:
		in.Type = models.NotificationOrderCompleted
		in.Title = fmt.Sprintf("Order %s completed", order.OrderNumber)
		in.Message = fmt.Sprintf("Thank you for confirming receipt of %s (%s).", order.OrderNumber, summarizeItems(order.Items))
	case order.Status == models.OrderDelivered || order.Status == models.OrderClaimed:
		in.Message += " Please confirm receipt once you have your items."
	}
	return in
}

func adminNotification(order *models.Order, source StatusSource) (NotificationInput, bool) {
	orderID := order.ID
	switch {
	case order.Status == models.OrderDelivered:
		return NotificationInput{
			Type:    models.NotificationDeliveryConfirm,
			Title:   fmt.Sprintf("Order %s delivered", order.OrderNumber),
			Message: fmt.Sprintf("Delivery confirmation needed for %s (%s).", order.OrderNumber, summarizeItems(order.Items)),
			OrderID: &orderID,
		}, true
	case order.Status == models.OrderCompleted && source == SourceSystem:
		return NotificationInput{
			Type:    models.NotificationOrderAutoConfirmed,
			Title:   fmt.Sprintf("Order %s auto-confirmed", order.OrderNumber),
			Message: fmt.Sprintf("%s (%s) was confirmed automatically.", order.OrderNumber, summarizeItems(order.Items)),
			OrderID: &orderID,
		}, true
	case order.Status == models.OrderCompleted && source == SourceCustomer:
		return NotificationInput{
			Type:    models.NotificationOrderCompleted,
			Title:   fmt.Sprintf("Order %s received", order.OrderNumber),
			Message: fmt.Sprintf("The customer confirmed receipt of %s.", order.OrderNumber),
			OrderID: &orderID,
		}, true
	}
	return NotificationInput{}, false
}

func statusLabel(s models.OrderStatus) string {
	return strings.ReplaceAll(string(s), "_", " ")
}

func orderCost(items []models.OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.UnitCost.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}
