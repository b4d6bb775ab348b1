package memory

import (
	"context"
	"sort"
	"time"

	"campus_store/internal/models"
	"campus_store/internal/repository"
)

type orderRepo struct {
	s *Store
}

func (r *orderRepo) Create(ctx context.Context, order *models.Order) error {
	return r.s.write(ctx, func(st *state) error {
		for _, o := range st.orders {
			if o.OrderNumber == order.OrderNumber {
				return repository.ErrDuplicate
			}
		}
		order.ID = st.nextID("orders")
		r.s.stamp(&order.CreatedAt)
		r.s.stamp(&order.UpdatedAt)
		stored := *order
		stored.Items = nil
		st.orders[order.ID] = stored
		return nil
	})
}

func (r *orderRepo) GetByID(ctx context.Context, id uint) (*models.Order, error) {
	var out *models.Order
	err := r.s.read(ctx, func(st *state) error {
		o, ok := st.orders[id]
		if !ok {
			return repository.ErrNotFound
		}
		o.Items = st.itemsOf(id)
		out = &o
		return nil
	})
	return out, err
}

func (r *orderRepo) List(ctx context.Context, filter repository.OrderFilter) ([]models.Order, error) {
	var out []models.Order
	err := r.s.read(ctx, func(st *state) error {
		for _, o := range st.orders {
			if filter.UserID != nil && o.UserID != *filter.UserID {
				continue
			}
			if filter.Status != "" && o.Status != filter.Status {
				continue
			}
			o.Items = st.itemsOf(o.ID)
			out = append(out, o)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, err
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, err
}

func (r *orderRepo) ChangeStatus(ctx context.Context, change repository.StatusChange) error {
	return r.s.write(ctx, func(st *state) error {
		o, ok := st.orders[change.OrderID]
		if !ok || o.Status != change.From {
			return repository.ErrStaleStatus
		}
		o.Status = change.To
		if change.PaymentStatus != nil {
			o.PaymentStatus = *change.PaymentStatus
		}
		o.UpdatedAt = change.At
		st.orders[o.ID] = o
		return nil
	})
}

func (r *orderRepo) ListStale(ctx context.Context, status models.OrderStatus, cutoff time.Time) ([]models.Order, error) {
	var out []models.Order
	err := r.s.read(ctx, func(st *state) error {
		for _, o := range st.orders {
			if o.Status == status && !o.UpdatedAt.After(cutoff) {
				o.Items = st.itemsOf(o.ID)
				out = append(out, o)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].UpdatedAt.Before(out[j].UpdatedAt)
	})
	return out, err
}

func (r *orderRepo) AppendStatusLog(ctx context.Context, log *models.OrderStatusLog) error {
	return r.s.write(ctx, func(st *state) error {
		log.ID = st.nextID("order_status_logs")
		r.s.stamp(&log.CreatedAt)
		st.statusLogs = append(st.statusLogs, *log)
		return nil
	})
}

func (r *orderRepo) ListStatusLogs(ctx context.Context, orderID uint) ([]models.OrderStatusLog, error) {
	var out []models.OrderStatusLog
	err := r.s.read(ctx, func(st *state) error {
		for _, l := range st.statusLogs {
			if l.OrderID == orderID {
				out = append(out, l)
			}
		}
		return nil
	})
	return out, err
}

func (st *state) itemsOf(orderID uint) []models.OrderItem {
	var out []models.OrderItem
	for _, item := range st.items {
		if item.OrderID == orderID {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type orderItemRepo struct {
	s *Store
}

func (r *orderItemRepo) Create(ctx context.Context, item *models.OrderItem) error {
	return r.s.write(ctx, func(st *state) error {
		if _, ok := st.orders[item.OrderID]; !ok {
			return repository.ErrNotFound
		}
		item.ID = st.nextID("order_items")
		r.s.stamp(&item.CreatedAt)
		st.items[item.ID] = *item
		return nil
	})
}

func (r *orderItemRepo) ListByOrder(ctx context.Context, orderID uint) ([]models.OrderItem, error) {
	var out []models.OrderItem
	err := r.s.read(ctx, func(st *state) error {
		out = st.itemsOf(orderID)
		return nil
	})
	return out, err
}

type counterRepo struct {
	s *Store
}

func (r *counterRepo) Next(ctx context.Context, key string) (int64, error) {
	var next int64
	err := r.s.write(ctx, func(st *state) error {
		st.counters[key]++
		next = st.counters[key]
		return nil
	})
	return next, err
}
