package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"campus_store/internal/models"
	"campus_store/internal/repository"

	"go.uber.org/zap"
)

// StockCommand describes one stock mutation. For Adjust, Quantity is the absolute target level.
type StockCommand struct {
	ProductID uint
	VariantID *uint
	Quantity  int
	Reason    string
	Supplier  string
	Notes     string
	OrderID   *uint
	ActorID   *uint
}

func (c StockCommand) target() repository.StockTarget {
	return repository.StockTarget{ProductID: c.ProductID, VariantID: c.VariantID}
}

type StockResult struct {
	Movement models.StockMovement
	Previous int
	Current  int
}

// StockLedger is the only writer of stock levels. Each call updates the level and
// appends its StockMovement in one transaction, joining the caller's if there is one.
type StockLedger interface {
	Decrement(ctx context.Context, cmd StockCommand) (StockResult, error)
	Increment(ctx context.Context, cmd StockCommand) (StockResult, error)
	Adjust(ctx context.Context, cmd StockCommand) (StockResult, error)
	// Record is the admin entry point: it dispatches on the movement type and
	// requires a size for products that track stock per size.
	Record(ctx context.Context, movementType models.MovementType, cmd StockCommand) (StockResult, error)
	Movements(ctx context.Context, filter repository.MovementFilter) ([]models.StockMovement, error)
}

type StockLedgerDeps struct {
	UnitOfWork repository.UnitOfWork
	Stock      repository.StockRepository
	Products   repository.ProductRepository
	Logger     *zap.Logger
}

type stockLedger struct {
	uow      repository.UnitOfWork
	stock    repository.StockRepository
	products repository.ProductRepository
	logger   *zap.Logger
}

func NewStockLedger(deps StockLedgerDeps) (StockLedger, error) {
	if deps.UnitOfWork == nil || deps.Stock == nil || deps.Products == nil {
		return nil, errors.New("stock ledger: unit of work, stock and product repositories are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &stockLedger{
		uow:      deps.UnitOfWork,
		stock:    deps.Stock,
		products: deps.Products,
		logger:   logger.Named("stock"),
	}, nil
}

func (l *stockLedger) Decrement(ctx context.Context, cmd StockCommand) (StockResult, error) {
	if cmd.Quantity <= 0 {
		return StockResult{}, invalidInput("quantity must be positive")
	}
	return l.apply(ctx, models.MovementStockOut, cmd, func(ctx context.Context) (repository.StockChange, error) {
		return l.stock.Decrement(ctx, cmd.target(), cmd.Quantity)
	})
}

func (l *stockLedger) Increment(ctx context.Context, cmd StockCommand) (StockResult, error) {
	if cmd.Quantity <= 0 {
		return StockResult{}, invalidInput("quantity must be positive")
	}
	return l.apply(ctx, models.MovementStockIn, cmd, func(ctx context.Context) (repository.StockChange, error) {
		return l.stock.Increment(ctx, cmd.target(), cmd.Quantity)
	})
}

func (l *stockLedger) Adjust(ctx context.Context, cmd StockCommand) (StockResult, error) {
	if cmd.Quantity < 0 {
		return StockResult{}, invalidInput("stock cannot be set below zero")
	}
	return l.apply(ctx, models.MovementAdjustment, cmd, func(ctx context.Context) (repository.StockChange, error) {
		return l.stock.Set(ctx, cmd.target(), cmd.Quantity)
	})
}

func (l *stockLedger) Record(ctx context.Context, movementType models.MovementType, cmd StockCommand) (StockResult, error) {
	product, err := l.products.GetByID(ctx, cmd.ProductID)
	if err != nil {
		return StockResult{}, fromRepository(err)
	}
	if product.HasVariants() && cmd.VariantID == nil {
		return StockResult{}, invalidInput("size_id is required for %s", product.Name)
	}
	if !product.HasVariants() && cmd.VariantID != nil {
		return StockResult{}, invalidInput("%s has no sizes", product.Name)
	}

	switch movementType {
	case models.MovementStockIn:
		return l.Increment(ctx, cmd)
	case models.MovementStockOut:
		return l.Decrement(ctx, cmd)
	case models.MovementAdjustment:
		return l.Adjust(ctx, cmd)
	}
	return StockResult{}, invalidInput("unknown movement type %q", movementType)
}

func (l *stockLedger) Movements(ctx context.Context, filter repository.MovementFilter) ([]models.StockMovement, error) {
	movements, err := l.stock.ListMovements(ctx, filter)
	return movements, fromRepository(err)
}

func (l *stockLedger) apply(ctx context.Context, movementType models.MovementType, cmd StockCommand, mutate func(ctx context.Context) (repository.StockChange, error)) (StockResult, error) {
	reason := strings.TrimSpace(cmd.Reason)
	if reason == "" {
		return StockResult{}, invalidInput("reason is required")
	}

	var result StockResult
	err := l.uow.RunInTx(ctx, func(ctx context.Context) error {
		change, err := mutate(ctx)
		if err != nil {
			return l.translate(ctx, cmd, err)
		}

		movement := models.StockMovement{
			ProductID:     cmd.ProductID,
			VariantID:     cmd.VariantID,
			MovementType:  movementType,
			Quantity:      abs(change.Current - change.Previous),
			PreviousStock: change.Previous,
			NewStock:      change.Current,
			Reason:        reason,
			Supplier:      strings.TrimSpace(cmd.Supplier),
			Notes:         strings.TrimSpace(cmd.Notes),
			OrderID:       cmd.OrderID,
			ActorID:       cmd.ActorID,
		}
		if err := l.stock.AppendMovement(ctx, &movement); err != nil {
			return fmt.Errorf("append stock movement: %w", err)
		}
		result = StockResult{Movement: movement, Previous: change.Previous, Current: change.Current}
		return nil
	})
	if err != nil {
		return StockResult{}, err
	}

	l.logger.Debug("stock changed",
		zap.String("type", string(movementType)),
		zap.Uint("product_id", cmd.ProductID),
		zap.Int("previous", result.Previous),
		zap.Int("current", result.Current),
	)
	return result, nil
}

func (l *stockLedger) translate(ctx context.Context, cmd StockCommand, err error) error {
	var stockErr *repository.InsufficientStockError
	if errors.As(err, &stockErr) {
		name := fmt.Sprintf("product #%d", cmd.ProductID)
		if product, lookupErr := l.products.GetByID(ctx, cmd.ProductID); lookupErr == nil {
			name = product.Name
			if cmd.VariantID != nil {
				for _, v := range product.Variants {
					if v.ID == *cmd.VariantID {
						name += " (" + v.Size + ")"
					}
				}
			}
		}
		return &InsufficientStockError{
			ProductID:   cmd.ProductID,
			VariantID:   cmd.VariantID,
			ProductName: name,
			Requested:   stockErr.Requested,
			Available:   stockErr.Available,
		}
	}
	return fromRepository(err)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
