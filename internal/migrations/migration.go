package migrations

import (
	"context"
	"errors"
	"fmt"

	"campus_store/internal/models"
	"campus_store/internal/repository"
	"campus_store/internal/services"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Models lists every table owned by the store, in dependency order.
func Models() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Product{},
		&models.ProductVariant{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.OrderStatusLog{},
		&models.OrderCounter{},
		&models.StockMovement{},
		&models.SalesLedgerEntry{},
		&models.PaymentTransaction{},
		&models.Notification{},
	}
}

// RunMigrations creates or updates the schema. Existing data is kept.
func RunMigrations(db *gorm.DB, logger *zap.Logger) error {
	logger.Info("running database migrations")
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	logger.Info("database migrations completed")
	return nil
}

type SeedOptions struct {
	AdminEmail    string
	AdminPassword string
	Catalog       bool
}

type SeedDeps struct {
	UserRepo repository.UserRepository
	Users    services.UserService
	Products services.ProductService
	Logger   *zap.Logger
}

// Seed creates the default admin and sample catalog. Each part is skipped when its data already exists.
func Seed(ctx context.Context, deps SeedDeps, opts SeedOptions) error {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	if opts.AdminEmail != "" && opts.AdminPassword != "" {
		_, err := deps.UserRepo.GetByEmail(ctx, opts.AdminEmail)
		switch {
		case err == nil:
			logger.Info("admin user already exists", zap.String("email", opts.AdminEmail))
		case errors.Is(err, repository.ErrNotFound):
			admin, err := deps.Users.CreateAdmin(ctx, "Store Administrator", opts.AdminEmail, opts.AdminPassword)
			if err != nil {
				return fmt.Errorf("create admin: %w", err)
			}
			logger.Info("admin user created", zap.Uint("user_id", admin.ID), zap.String("email", admin.Email))
		default:
			return fmt.Errorf("look up admin: %w", err)
		}
	}

	if !opts.Catalog {
		return nil
	}
	existing, err := deps.Products.List(ctx, repository.ProductFilter{})
	if err != nil {
		return fmt.Errorf("list products: %w", err)
	}
	if len(existing) > 0 {
		logger.Info("catalog already seeded", zap.Int("products", len(existing)))
		return nil
	}
	for _, in := range sampleCatalog() {
		product, err := deps.Products.Create(ctx, in, nil)
		if err != nil {
			return fmt.Errorf("seed product %s: %w", in.Name, err)
		}
		logger.Info("seeded product", zap.Uint("product_id", product.ID), zap.String("name", product.Name))
	}
	return nil
}

func sampleCatalog() []services.ProductInput {
	xl := decimal.RequireFromString("380.00")
	return []services.ProductInput{
		{
			Name:      "PE Shirt",
			Category:  "uniform",
			Price:     decimal.RequireFromString("350.00"),
			CostPrice: decimal.RequireFromString("210.00"),
			Variants: []services.VariantInput{
				{Size: "S", Stock: 20},
				{Size: "M", Stock: 30},
				{Size: "L", Stock: 25},
				{Size: "XL", Stock: 10, PriceOverride: &xl},
			},
		},
		{
			Name:      "ID Lace",
			Category:  "accessories",
			Price:     decimal.RequireFromString("75.00"),
			CostPrice: decimal.RequireFromString("30.00"),
			Stock:     100,
		},
		{
			Name:      "Spiral Notebook",
			Category:  "school supplies",
			Price:     decimal.RequireFromString("45.00"),
			CostPrice: decimal.RequireFromString("22.50"),
			Stock:     200,
		},
	}
}
