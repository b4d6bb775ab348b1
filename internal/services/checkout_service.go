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

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type CheckoutCommand struct {
	UserID        uint
	PaymentMethod string
	PayAtCounter  bool
	Selection     Selection
}

type CheckoutResult struct {
	Order   models.Order
	Source  SelectionSource
	Effects Outcome
}

// CheckoutService turns a cart selection into an order. The order, its items, the stock
// decrements and the cart cleanup commit together or not at all.
type CheckoutService interface {
	Checkout(ctx context.Context, cmd CheckoutCommand) (CheckoutResult, error)
}

type CheckoutServiceDeps struct {
	UnitOfWork    repository.UnitOfWork
	Orders        repository.OrderRepository
	OrderItems    repository.OrderItemRepository
	Carts         repository.CartRepository
	Resolver      ItemResolver
	Ledger        StockLedger
	Numbers       OrderNumberGenerator
	Notifications NotificationService
	Publisher     events.Publisher
	Clock         func() time.Time
	EffectTimeout time.Duration
	Logger        *zap.Logger
}

type checkoutService struct {
	uow           repository.UnitOfWork
	orders        repository.OrderRepository
	items         repository.OrderItemRepository
	carts         repository.CartRepository
	resolver      ItemResolver
	ledger        StockLedger
	numbers       OrderNumberGenerator
	notifications NotificationService
	publisher     events.Publisher
	clock         func() time.Time
	effectTimeout time.Duration
	logger        *zap.Logger
}

func NewCheckoutService(deps CheckoutServiceDeps) (CheckoutService, error) {
	if deps.UnitOfWork == nil || deps.Orders == nil || deps.OrderItems == nil || deps.Carts == nil {
		return nil, errors.New("checkout service: repositories are required")
	}
	if deps.Resolver == nil || deps.Ledger == nil || deps.Numbers == nil {
		return nil, errors.New("checkout service: resolver, ledger and order numbers are required")
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
	return &checkoutService{
		uow:           deps.UnitOfWork,
		orders:        deps.Orders,
		items:         deps.OrderItems,
		carts:         deps.Carts,
		resolver:      deps.Resolver,
		ledger:        deps.Ledger,
		numbers:       deps.Numbers,
		notifications: deps.Notifications,
		publisher:     publisher,
		clock:         clock,
		effectTimeout: deps.EffectTimeout,
		logger:        logger.Named("checkout"),
	}, nil
}

func (s *checkoutService) Checkout(ctx context.Context, cmd CheckoutCommand) (CheckoutResult, error) {
	if cmd.UserID == 0 {
		return CheckoutResult{}, invalidInput("user id is required")
	}
	method := strings.ToLower(strings.TrimSpace(cmd.PaymentMethod))
	if method == "" {
		return CheckoutResult{}, invalidInput("payment_method is required")
	}

	resolution, err := s.resolver.Resolve(ctx, cmd.UserID, cmd.Selection)
	if err != nil {
		return CheckoutResult{}, err
	}
	if len(resolution.Lines) == 0 {
		return CheckoutResult{}, ErrEmptyCart
	}

	total := decimal.Zero
	for _, line := range resolution.Lines {
		total = total.Add(line.LineTotal())
	}
	if !total.IsPositive() {
		return CheckoutResult{}, fmt.Errorf("%w: total %s", ErrInvalidTotal, total.StringFixed(2))
	}

	now := s.clock()
	var (
		order  models.Order
		levels []events.StockLevel
	)
	err = s.uow.RunInTx(ctx, func(ctx context.Context) error {
		number, err := s.numbers.Next(ctx)
		if err != nil {
			return err
		}
		order = models.Order{
			OrderNumber:   number,
			UserID:        cmd.UserID,
			TotalAmount:   total,
			PaymentMethod: method,
			PaymentStatus: models.PaymentPending,
			Status:        models.OrderPending,
			PayAtCounter:  cmd.PayAtCounter,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := s.orders.Create(ctx, &order); err != nil {
			return fmt.Errorf("create order %s: %w", number, fromRepository(err))
		}

		for _, line := range resolution.Lines {
			target := line.Target()
			item := models.OrderItem{
				OrderID:     order.ID,
				ProductID:   line.Product.ID,
				VariantID:   target.VariantID,
				ProductName: line.Product.Name,
				Size:        line.Size(),
				Quantity:    line.Quantity,
				UnitPrice:   line.UnitPrice,
				UnitCost:    line.UnitCost,
				LineTotal:   line.LineTotal(),
				CreatedAt:   now,
			}
			if err := s.items.Create(ctx, &item); err != nil {
				return fmt.Errorf("create order item: %w", fromRepository(err))
			}

			res, err := s.ledger.Decrement(ctx, StockCommand{
				ProductID: line.Product.ID,
				VariantID: target.VariantID,
				Quantity:  line.Quantity,
				Reason:    "order " + number,
				OrderID:   &order.ID,
				ActorID:   &cmd.UserID,
			})
			if err != nil {
				return err
			}
			order.Items = append(order.Items, item)
			levels = append(levels, events.StockLevel{ProductID: line.Product.ID, VariantID: target.VariantID, Stock: res.Current})
		}

		if resolution.Source == SourceWholeCart {
			_, err = s.carts.DeleteAllByUser(ctx, cmd.UserID)
		} else {
			_, err = s.carts.Delete(ctx, cmd.UserID, resolution.ConsumedCartItemIDs)
		}
		if err != nil {
			return fmt.Errorf("clear cart: %w", fromRepository(err))
		}
		return nil
	})
	if err != nil {
		return CheckoutResult{}, err
	}

	s.logger.Info("order placed",
		zap.Uint("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.Uint("user_id", order.UserID),
		zap.String("total", order.TotalAmount.StringFixed(2)),
		zap.String("source", string(resolution.Source)),
	)

	return CheckoutResult{
		Order:   order,
		Source:  resolution.Source,
		Effects: s.afterCommit(ctx, order, levels),
	}, nil
}

func (s *checkoutService) afterCommit(ctx context.Context, order models.Order, levels []events.StockLevel) Outcome {
	fx := newEffects(s.logger, s.effectTimeout)
	orderID := order.ID

	fx.run(ctx, "publish:"+events.TopicInventoryUpdated, func(ctx context.Context) error {
		return s.publisher.Publish(ctx, events.TopicInventoryUpdated, events.InventoryPayload{
			Reason:  "order_placed",
			OrderID: &orderID,
			Levels:  levels,
		})
	})
	fx.run(ctx, "publish:"+events.TopicNewOrder, func(ctx context.Context) error {
		return s.publisher.Publish(ctx, events.TopicNewOrder, events.NewOrderPayload{
			OrderID:       order.ID,
			OrderNumber:   order.OrderNumber,
			UserID:        order.UserID,
			TotalAmount:   order.TotalAmount,
			PaymentMethod: order.PaymentMethod,
			ItemCount:     len(order.Items),
		})
	})

	if s.notifications != nil {
		summary := summarizeItems(order.Items)
		fx.run(ctx, "notify:buyer", func(ctx context.Context) error {
			_, err := s.notifications.NotifyUser(ctx, order.UserID, NotificationInput{
				Type:    models.NotificationOrderPlaced,
				Title:   "Order placed",
				Message: fmt.Sprintf("Your order %s (%s) totalling %s has been placed.", order.OrderNumber, summary, order.TotalAmount.StringFixed(2)),
				OrderID: &orderID,
			})
			return err
		})
		fx.run(ctx, "notify:admin", func(ctx context.Context) error {
			_, err := s.notifications.NotifyAdmins(ctx, NotificationInput{
				Type:    models.NotificationNewOrder,
				Title:   "New order " + order.OrderNumber,
				Message: fmt.Sprintf("%s, total %s, payment %s.", summary, order.TotalAmount.StringFixed(2), order.PaymentMethod),
				OrderID: &orderID,
			})
			return err
		})
	}
	return fx.outcome()
}
