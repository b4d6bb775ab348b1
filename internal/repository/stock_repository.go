package repository

import (
	"context"

	"campus_store/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StockChange captures stock on either side of a single update statement.
type StockChange struct {
	Previous int
	Current  int
}

type MovementFilter struct {
	ProductID    uint
	VariantID    *uint
	OrderID      *uint
	MovementType models.MovementType
	Limit        int
}

// StockRepository owns every write to products.stock and product_variants.stock.
type StockRepository interface {
	// Decrement subtracts qty only when at least qty is on hand. A miss returns *InsufficientStockError.
	Decrement(ctx context.Context, target StockTarget, qty int) (StockChange, error)
	Increment(ctx context.Context, target StockTarget, qty int) (StockChange, error)
	// Set writes an absolute value under a row lock. Negative values return ErrNegativeStock.
	Set(ctx context.Context, target StockTarget, value int) (StockChange, error)
	Current(ctx context.Context, target StockTarget) (int, error)
	AppendMovement(ctx context.Context, movement *models.StockMovement) error
	ListMovements(ctx context.Context, filter MovementFilter) ([]models.StockMovement, error)
}

type stockRepository struct {
	db *gorm.DB
}

func NewStockRepository(db *gorm.DB) StockRepository {
	return &stockRepository{db: db}
}

var returningStock = clause.Returning{Columns: []clause.Column{{Name: "stock"}}}

func (r *stockRepository) Decrement(ctx context.Context, target StockTarget, qty int) (StockChange, error) {
	current, affected, err := r.applyDelta(ctx, target, gorm.Expr("stock - ?", qty), qty)
	if err != nil {
		return StockChange{}, err
	}
	if !affected {
		available, err := r.Current(ctx, target)
		if err != nil {
			return StockChange{}, err
		}
		return StockChange{}, &InsufficientStockError{Target: target, Requested: qty, Available: available}
	}
	return StockChange{Previous: current + qty, Current: current}, nil
}

func (r *stockRepository) Increment(ctx context.Context, target StockTarget, qty int) (StockChange, error) {
	current, affected, err := r.applyDelta(ctx, target, gorm.Expr("stock + ?", qty), 0)
	if err != nil {
		return StockChange{}, err
	}
	if !affected {
		return StockChange{}, ErrNotFound
	}
	return StockChange{Previous: current - qty, Current: current}, nil
}

// applyDelta runs one conditional UPDATE ... RETURNING stock against the target row.
func (r *stockRepository) applyDelta(ctx context.Context, target StockTarget, expr clause.Expr, atLeast int) (int, bool, error) {
	db := conn(ctx, r.db)
	if target.VariantID != nil {
		var rows []models.ProductVariant
		res := db.Model(&rows).Clauses(returningStock).
			Where("id = ? AND product_id = ? AND stock >= ?", *target.VariantID, target.ProductID, atLeast).
			Update("stock", expr)
		if res.Error != nil {
			return 0, false, translate(res.Error)
		}
		if res.RowsAffected == 0 || len(rows) == 0 {
			return 0, false, nil
		}
		return rows[0].Stock, true, nil
	}

	var rows []models.Product
	res := db.Model(&rows).Clauses(returningStock).
		Where("id = ? AND stock >= ?", target.ProductID, atLeast).
		Update("stock", expr)
	if res.Error != nil {
		return 0, false, translate(res.Error)
	}
	if res.RowsAffected == 0 || len(rows) == 0 {
		return 0, false, nil
	}
	return rows[0].Stock, true, nil
}

func (r *stockRepository) Set(ctx context.Context, target StockTarget, value int) (StockChange, error) {
	if value < 0 {
		return StockChange{}, ErrNegativeStock
	}
	db := conn(ctx, r.db)
	locking := clause.Locking{Strength: "UPDATE"}

	if target.VariantID != nil {
		var variant models.ProductVariant
		err := db.Clauses(locking).
			Where("id = ? AND product_id = ?", *target.VariantID, target.ProductID).
			Take(&variant).Error
		if err != nil {
			return StockChange{}, translate(err)
		}
		if err := db.Model(&variant).Update("stock", value).Error; err != nil {
			return StockChange{}, translate(err)
		}
		return StockChange{Previous: variant.Stock, Current: value}, nil
	}

	var product models.Product
	if err := db.Clauses(locking).Where("id = ?", target.ProductID).Take(&product).Error; err != nil {
		return StockChange{}, translate(err)
	}
	if err := db.Model(&product).Update("stock", value).Error; err != nil {
		return StockChange{}, translate(err)
	}
	return StockChange{Previous: product.Stock, Current: value}, nil
}

func (r *stockRepository) Current(ctx context.Context, target StockTarget) (int, error) {
	db := conn(ctx, r.db)
	var stock int
	var err error
	if target.VariantID != nil {
		err = db.Model(&models.ProductVariant{}).Select("stock").
			Where("id = ? AND product_id = ?", *target.VariantID, target.ProductID).
			Take(&stock).Error
	} else {
		err = db.Model(&models.Product{}).Select("stock").
			Where("id = ?", target.ProductID).
			Take(&stock).Error
	}
	if err != nil {
		return 0, translate(err)
	}
	return stock, nil
}

func (r *stockRepository) AppendMovement(ctx context.Context, movement *models.StockMovement) error {
	return translate(conn(ctx, r.db).Create(movement).Error)
}

func (r *stockRepository) ListMovements(ctx context.Context, filter MovementFilter) ([]models.StockMovement, error) {
	q := conn(ctx, r.db).Model(&models.StockMovement{})
	if filter.ProductID != 0 {
		q = q.Where("product_id = ?", filter.ProductID)
	}
	if filter.VariantID != nil {
		q = q.Where("variant_id = ?", *filter.VariantID)
	}
	if filter.OrderID != nil {
		q = q.Where("order_id = ?", *filter.OrderID)
	}
	if filter.MovementType != "" {
		q = q.Where("movement_type = ?", filter.MovementType)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	var movements []models.StockMovement
	err := q.Order("created_at DESC, id DESC").Find(&movements).Error
	return movements, translate(err)
}
