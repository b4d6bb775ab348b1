package memory

import (
	"context"
	"sort"
	"time"

	"campus_store/internal/models"
	"campus_store/internal/repository"
)

type stockRepo struct {
	s *Store
}

func (r *stockRepo) Decrement(ctx context.Context, target repository.StockTarget, qty int) (repository.StockChange, error) {
	var change repository.StockChange
	err := r.s.write(ctx, func(st *state) error {
		current, err := st.stockOf(target)
		if err != nil {
			return err
		}
		if current < qty {
			return &repository.InsufficientStockError{Target: target, Requested: qty, Available: current}
		}
		change = repository.StockChange{Previous: current, Current: current - qty}
		st.setStock(target, change.Current, r.s.now())
		return nil
	})
	return change, err
}

func (r *stockRepo) Increment(ctx context.Context, target repository.StockTarget, qty int) (repository.StockChange, error) {
	var change repository.StockChange
	err := r.s.write(ctx, func(st *state) error {
		current, err := st.stockOf(target)
		if err != nil {
			return err
		}
		change = repository.StockChange{Previous: current, Current: current + qty}
		st.setStock(target, change.Current, r.s.now())
		return nil
	})
	return change, err
}

func (r *stockRepo) Set(ctx context.Context, target repository.StockTarget, value int) (repository.StockChange, error) {
	if value < 0 {
		return repository.StockChange{}, repository.ErrNegativeStock
	}
	var change repository.StockChange
	err := r.s.write(ctx, func(st *state) error {
		current, err := st.stockOf(target)
		if err != nil {
			return err
		}
		change = repository.StockChange{Previous: current, Current: value}
		st.setStock(target, value, r.s.now())
		return nil
	})
	return change, err
}

func (r *stockRepo) Current(ctx context.Context, target repository.StockTarget) (int, error) {
	var current int
	err := r.s.read(ctx, func(st *state) error {
		var err error
		current, err = st.stockOf(target)
		return err
	})
	return current, err
}

func (r *stockRepo) AppendMovement(ctx context.Context, movement *models.StockMovement) error {
	return r.s.write(ctx, func(st *state) error {
		movement.ID = st.nextID("stock_movements")
		r.s.stamp(&movement.CreatedAt)
		st.movements = append(st.movements, *movement)
		return nil
	})
}

func (r *stockRepo) ListMovements(ctx context.Context, filter repository.MovementFilter) ([]models.StockMovement, error) {
	var out []models.StockMovement
	err := r.s.read(ctx, func(st *state) error {
		for _, m := range st.movements {
			if filter.ProductID != 0 && m.ProductID != filter.ProductID {
				continue
			}
			if filter.VariantID != nil && (m.VariantID == nil || *m.VariantID != *filter.VariantID) {
				continue
			}
			if filter.OrderID != nil && (m.OrderID == nil || *m.OrderID != *filter.OrderID) {
				continue
			}
			if filter.MovementType != "" && m.MovementType != filter.MovementType {
				continue
			}
			out = append(out, m)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, err
}

func (st *state) stockOf(target repository.StockTarget) (int, error) {
	if target.VariantID != nil {
		v, ok := st.variants[*target.VariantID]
		if !ok || v.ProductID != target.ProductID {
			return 0, repository.ErrNotFound
		}
		return v.Stock, nil
	}
	p, ok := st.liveProduct(target.ProductID)
	if !ok {
		return 0, repository.ErrNotFound
	}
	return p.Stock, nil
}

func (st *state) setStock(target repository.StockTarget, value int, now time.Time) {
	if target.VariantID != nil {
		v := st.variants[*target.VariantID]
		v.Stock = value
		v.UpdatedAt = now
		st.variants[v.ID] = v
		return
	}
	p := st.products[target.ProductID]
	p.Stock = value
	p.UpdatedAt = now
	st.products[p.ID] = p
}
