package memory

import (
	"context"
	"sort"

	"campus_store/internal/models"
	"campus_store/internal/repository"

	"gorm.io/gorm"
)

type productRepo struct {
	s *Store
}

func (r *productRepo) Create(ctx context.Context, product *models.Product) error {
	return r.s.write(ctx, func(st *state) error {
		product.ID = st.nextID("products")
		r.s.stamp(&product.CreatedAt)
		r.s.stamp(&product.UpdatedAt)
		variants := product.Variants
		stored := *product
		stored.Variants = nil
		st.products[product.ID] = stored
		for i := range variants {
			variants[i].ID = st.nextID("product_variants")
			variants[i].ProductID = product.ID
			r.s.stamp(&variants[i].CreatedAt)
			r.s.stamp(&variants[i].UpdatedAt)
			st.variants[variants[i].ID] = variants[i]
		}
		return nil
	})
}

func (r *productRepo) GetByID(ctx context.Context, id uint) (*models.Product, error) {
	var out *models.Product
	err := r.s.read(ctx, func(st *state) error {
		p, ok := st.products[id]
		if !ok || p.DeletedAt.Valid {
			return repository.ErrNotFound
		}
		p.Variants = st.variantsOf(id)
		out = &p
		return nil
	})
	return out, err
}

func (r *productRepo) List(ctx context.Context, filter repository.ProductFilter) ([]models.Product, error) {
	var out []models.Product
	err := r.s.read(ctx, func(st *state) error {
		for _, p := range st.products {
			if p.DeletedAt.Valid {
				continue
			}
			if filter.ActiveOnly && !p.IsActive {
				continue
			}
			if filter.Category != "" && p.Category != filter.Category {
				continue
			}
			p.Variants = st.variantsOf(p.ID)
			out = append(out, p)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	return out, err
}

func (r *productRepo) Update(ctx context.Context, product *models.Product) error {
	return r.s.write(ctx, func(st *state) error {
		p, ok := st.products[product.ID]
		if !ok || p.DeletedAt.Valid {
			return repository.ErrNotFound
		}
		p.Name = product.Name
		p.Description = product.Description
		p.Category = product.Category
		p.Price = product.Price
		p.CostPrice = product.CostPrice
		p.IsActive = product.IsActive
		p.UpdatedAt = r.s.now()
		st.products[p.ID] = p
		return nil
	})
}

func (r *productRepo) SoftDelete(ctx context.Context, id uint) error {
	return r.s.write(ctx, func(st *state) error {
		p, ok := st.products[id]
		if !ok || p.DeletedAt.Valid {
			return repository.ErrNotFound
		}
		p.DeletedAt = gorm.DeletedAt{Time: r.s.now(), Valid: true}
		st.products[id] = p
		return nil
	})
}

func (r *productRepo) CreateVariant(ctx context.Context, variant *models.ProductVariant) error {
	return r.s.write(ctx, func(st *state) error {
		if p, ok := st.products[variant.ProductID]; !ok || p.DeletedAt.Valid {
			return repository.ErrNotFound
		}
		variant.ID = st.nextID("product_variants")
		r.s.stamp(&variant.CreatedAt)
		r.s.stamp(&variant.UpdatedAt)
		st.variants[variant.ID] = *variant
		return nil
	})
}

func (r *productRepo) GetVariant(ctx context.Context, id uint) (*models.ProductVariant, error) {
	var out *models.ProductVariant
	err := r.s.read(ctx, func(st *state) error {
		v, ok := st.variants[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = &v
		return nil
	})
	return out, err
}

func (st *state) variantsOf(productID uint) []models.ProductVariant {
	var out []models.ProductVariant
	for _, v := range st.variants {
		if v.ProductID == productID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// liveProduct returns the product unless it is missing or soft deleted.
func (st *state) liveProduct(id uint) (models.Product, bool) {
	p, ok := st.products[id]
	if !ok || p.DeletedAt.Valid {
		return models.Product{}, false
	}
	return p, true
}
