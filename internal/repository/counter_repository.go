package repository

import (
	"context"

	"campus_store/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CounterRepository issues monotonically increasing sequences per key.
type CounterRepository interface {
	Next(ctx context.Context, key string) (int64, error)
}

type counterRepository struct {
	db *gorm.DB
}

func NewCounterRepository(db *gorm.DB) CounterRepository {
	return &counterRepository{db: db}
}

// Next upserts the counter row and returns the incremented value in one statement.
func (r *counterRepository) Next(ctx context.Context, key string) (int64, error) {
	counter := models.OrderCounter{Day: key, Value: 1}
	err := conn(ctx, r.db).
		Clauses(
			clause.OnConflict{
				Columns: []clause.Column{{Name: "day"}},
				DoUpdates: clause.Assignments(map[string]interface{}{
					"value":      gorm.Expr("order_counters.value + 1"),
					"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
				}),
			},
			clause.Returning{Columns: []clause.Column{{Name: "value"}}},
		).
		Create(&counter).Error
	if err != nil {
		return 0, translate(err)
	}
	return counter.Value, nil
}
