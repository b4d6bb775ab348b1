package main

import (
	"context"
	"log"

	"campus_store/internal/config"
	"campus_store/internal/database"
	"campus_store/internal/logging"
	"campus_store/internal/migrations"
	"campus_store/internal/repository"
	"campus_store/internal/services"

	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	logger, err := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("Failed to build logger:", err)
	}
	defer func() { _ = logger.Sync() }()

	db, err := database.Initialize(cfg.DatabaseURL, database.Options{}, logger)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}

	if err := migrations.RunMigrations(db, logger); err != nil {
		logger.Fatal("failed to migrate database", zap.Error(err))
	}

	repos := repository.NewGormRepositories(db)
	users, err := services.NewUserService(repos.Users, logger)
	if err != nil {
		logger.Fatal("failed to build user service", zap.Error(err))
	}
	ledger, err := services.NewStockLedger(services.StockLedgerDeps{
		UnitOfWork: repos.UnitOfWork,
		Stock:      repos.Stock,
		Products:   repos.Products,
		Logger:     logger,
	})
	if err != nil {
		logger.Fatal("failed to build stock ledger", zap.Error(err))
	}
	products, err := services.NewProductService(repos.UnitOfWork, repos.Products, ledger, logger)
	if err != nil {
		logger.Fatal("failed to build product service", zap.Error(err))
	}

	err = migrations.Seed(context.Background(), migrations.SeedDeps{
		UserRepo: repos.Users,
		Users:    users,
		Products: products,
		Logger:   logger,
	}, migrations.SeedOptions{
		AdminEmail:    cfg.SeedAdminEmail,
		AdminPassword: cfg.SeedAdminPassword,
		Catalog:       true,
	})
	if err != nil {
		logger.Fatal("failed to seed database", zap.Error(err))
	}
	logger.Info("database initialization completed")
}
