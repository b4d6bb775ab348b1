package repository

import (
	"context"

	"campus_store/internal/models"

	"gorm.io/gorm"
)

type ProductFilter struct {
	ActiveOnly bool
	Category   string
}

type ProductRepository interface {
	Create(ctx context.Context, product *models.Product) error
	GetByID(ctx context.Context, id uint) (*models.Product, error)
	List(ctx context.Context, filter ProductFilter) ([]models.Product, error)
	// Update writes catalog fields only. Stock changes go through StockRepository.
	Update(ctx context.Context, product *models.Product) error
	SoftDelete(ctx context.Context, id uint) error
	CreateVariant(ctx context.Context, variant *models.ProductVariant) error
	GetVariant(ctx context.Context, id uint) (*models.ProductVariant, error)
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(ctx context.Context, product *models.Product) error {
	return translate(conn(ctx, r.db).Create(product).Error)
}

func (r *productRepository) GetByID(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	err := conn(ctx, r.db).
		Preload("Variants", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		First(&product, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &product, nil
}

func (r *productRepository) List(ctx context.Context, filter ProductFilter) ([]models.Product, error) {
	var products []models.Product
	q := conn(ctx, r.db).Preload("Variants", func(db *gorm.DB) *gorm.DB { return db.Order("id") })
	if filter.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	err := q.Order("name").Find(&products).Error
	return products, translate(err)
}

func (r *productRepository) Update(ctx context.Context, product *models.Product) error {
	res := conn(ctx, r.db).Model(&models.Product{}).
		Where("id = ?", product.ID).
		Select("name", "description", "category", "price", "cost_price", "is_active").
		Updates(map[string]interface{}{
			"name":        product.Name,
			"description": product.Description,
			"category":    product.Category,
			"price":       product.Price,
			"cost_price":  product.CostPrice,
			"is_active":   product.IsActive,
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *productRepository) SoftDelete(ctx context.Context, id uint) error {
	res := conn(ctx, r.db).Delete(&models.Product{}, id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *productRepository) CreateVariant(ctx context.Context, variant *models.ProductVariant) error {
	return translate(conn(ctx, r.db).Create(variant).Error)
}

func (r *productRepository) GetVariant(ctx context.Context, id uint) (*models.ProductVariant, error) {
	var variant models.ProductVariant
	if err := conn(ctx, r.db).First(&variant, id).Error; err != nil {
		return nil, translate(err)
	}
	return &variant, nil
}
