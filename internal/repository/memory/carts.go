package memory

import (
	"context"
	"sort"

	"campus_store/internal/models"
	"campus_store/internal/repository"
)

type cartRepo struct {
	s *Store
}

func (r *cartRepo) Add(ctx context.Context, item *models.CartItem) error {
	return r.s.write(ctx, func(st *state) error {
		for id, existing := range st.carts {
			if existing.UserID == item.UserID && existing.ProductID == item.ProductID && sameVariant(existing.VariantID, item.VariantID) {
				existing.Quantity += item.Quantity
				existing.UpdatedAt = r.s.now()
				st.carts[id] = existing
				*item = existing
				return nil
			}
		}
		item.ID = st.nextID("cart_items")
		r.s.stamp(&item.CreatedAt)
		r.s.stamp(&item.UpdatedAt)
		stored := *item
		stored.Product, stored.Variant = nil, nil
		st.carts[item.ID] = stored
		return nil
	})
}

func (r *cartRepo) GetByID(ctx context.Context, userID, id uint) (*models.CartItem, error) {
	var out *models.CartItem
	err := r.s.read(ctx, func(st *state) error {
		item, ok := st.carts[id]
		if !ok || item.UserID != userID {
			return repository.ErrNotFound
		}
		item = st.withRefs(item)
		out = &item
		return nil
	})
	return out, err
}

func (r *cartRepo) ListByUser(ctx context.Context, userID uint) ([]models.CartItem, error) {
	return r.list(ctx, func(item models.CartItem) bool { return item.UserID == userID })
}

func (r *cartRepo) ListByIDs(ctx context.Context, userID uint, ids []uint) ([]models.CartItem, error) {
	wanted := make(map[uint]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	return r.list(ctx, func(item models.CartItem) bool { return item.UserID == userID && wanted[item.ID] })
}

func (r *cartRepo) list(ctx context.Context, match func(models.CartItem) bool) ([]models.CartItem, error) {
	var out []models.CartItem
	err := r.s.read(ctx, func(st *state) error {
		for _, item := range st.carts {
			if match(item) {
				out = append(out, st.withRefs(item))
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

func (r *cartRepo) UpdateQuantity(ctx context.Context, userID, id uint, quantity int) error {
	return r.s.write(ctx, func(st *state) error {
		item, ok := st.carts[id]
		if !ok || item.UserID != userID {
			return repository.ErrNotFound
		}
		item.Quantity = quantity
		item.UpdatedAt = r.s.now()
		st.carts[id] = item
		return nil
	})
}

func (r *cartRepo) Delete(ctx context.Context, userID uint, ids []uint) (int64, error) {
	var n int64
	err := r.s.write(ctx, func(st *state) error {
		for _, id := range ids {
			if item, ok := st.carts[id]; ok && item.UserID == userID {
				delete(st.carts, id)
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r *cartRepo) DeleteAllByUser(ctx context.Context, userID uint) (int64, error) {
	var n int64
	err := r.s.write(ctx, func(st *state) error {
		for id, item := range st.carts {
			if item.UserID == userID {
				delete(st.carts, id)
				n++
			}
		}
		return nil
	})
	return n, err
}

// withRefs attaches product and variant the way the gorm preload does.
func (st *state) withRefs(item models.CartItem) models.CartItem {
	if p, ok := st.liveProduct(item.ProductID); ok {
		item.Product = &p
	}
	if item.VariantID != nil {
		if v, ok := st.variants[*item.VariantID]; ok {
			item.Variant = &v
		}
	}
	return item
}

func sameVariant(a, b *uint) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
