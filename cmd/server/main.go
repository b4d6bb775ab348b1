package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"campus_store/internal/config"
	"campus_store/internal/database"
	"campus_store/internal/events"
	"campus_store/internal/handlers"
	"campus_store/internal/logging"
	"campus_store/internal/migrations"
	"campus_store/internal/redis"
	"campus_store/internal/repository"
	"campus_store/internal/repository/memory"
	"campus_store/internal/scheduler"
	"campus_store/internal/services"
	"campus_store/pkg/mailer"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	logger, err := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("Failed to build logger:", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loc := cfg.Location()
	checks := map[string]handlers.HealthCheck{}
	var closers []io.Closer

	// Store
	var repos repository.Repositories
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		logger.Warn("using in-memory store; data is lost on restart")
		repos = memory.New().Repositories()
	default:
		db, err := database.Initialize(cfg.DatabaseURL, database.Options{
			MaxOpenConns: cfg.DBMaxOpenConns,
			MaxIdleConns: cfg.DBMaxIdleConns,
		}, logger)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		if cfg.AutoMigrate {
			if err := migrations.RunMigrations(db, logger); err != nil {
				logger.Fatal("failed to migrate database", zap.Error(err))
			}
		}
		sqlDB, err := db.DB()
		if err != nil {
			logger.Fatal("failed to access connection pool", zap.Error(err))
		}
		checks["database"] = sqlDB.PingContext
		closers = append(closers, sqlDB)
		repos = repository.NewGormRepositories(db)
	}

	// Redis
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = redis.Initialize(cfg.RedisURL)
		if err != nil {
			logger.Fatal("failed to connect to Redis", zap.Error(err))
		}
		checks["redis"] = redisClient.Ping
		closers = append(closers, redisClient)
	}

	// Events
	var publisher events.Publisher
	switch cfg.EventTransport {
	case config.EventTransportKafka:
		writer, err := events.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		if err != nil {
			logger.Fatal("failed to configure kafka", zap.Error(err))
		}
		kafkaPublisher := events.NewKafkaPublisher(writer)
		closers = append(closers, kafkaPublisher)
		publisher = kafkaPublisher
	case config.EventTransportRedis:
		if redisClient == nil {
			logger.Warn("EVENT_TRANSPORT=redis without REDIS_URL; events are only logged")
			publisher = events.NewLogPublisher(logger)
			break
		}
		publisher = events.NewRedisPublisher(redisClient, cfg.EventChannelPrefix)
	default:
		publisher = events.NewLogPublisher(logger)
	}

	// Mail
	var receipts services.ReceiptSender
	if cfg.MailerAPIURL != "" {
		client := mailer.NewClient(cfg.MailerAPIURL, cfg.MailerUsername, cfg.MailerPassword, cfg.MailerSender)
		receipts = services.NewMailReceiptSender(client, loc)
	} else {
		logger.Warn("MAILER_API_URL not set; receipt emails are disabled")
	}

	// Services
	ledger, err := services.NewStockLedger(services.StockLedgerDeps{
		UnitOfWork: repos.UnitOfWork,
		Stock:      repos.Stock,
		Products:   repos.Products,
		Logger:     logger,
	})
	must(logger, "stock ledger", err)

	notificationService, err := services.NewNotificationService(repos.Notifications, publisher, logger)
	must(logger, "notification service", err)

	resolver, err := services.NewItemResolver(repos.Products, repos.Carts, logger)
	must(logger, "item resolver", err)

	cartService, err := services.NewCartService(repos.Carts, resolver)
	must(logger, "cart service", err)

	numbers, err := services.NewOrderNumberGenerator(repos.Counters, time.Now, loc)
	must(logger, "order numbers", err)

	checkoutService, err := services.NewCheckoutService(services.CheckoutServiceDeps{
		UnitOfWork:    repos.UnitOfWork,
		Orders:        repos.Orders,
		OrderItems:    repos.OrderItems,
		Carts:         repos.Carts,
		Resolver:      resolver,
		Ledger:        ledger,
		Numbers:       numbers,
		Notifications: notificationService,
		Publisher:     publisher,
		EffectTimeout: cfg.EffectTimeout,
		Logger:        logger,
	})
	must(logger, "checkout service", err)

	orderService, err := services.NewOrderService(services.OrderServiceDeps{
		UnitOfWork:    repos.UnitOfWork,
		Orders:        repos.Orders,
		Financial:     repos.Financial,
		Users:         repos.Users,
		Products:      repos.Products,
		Ledger:        ledger,
		Notifications: notificationService,
		Publisher:     publisher,
		Receipts:      receipts,
		EffectTimeout: cfg.EffectTimeout,
		Logger:        logger,
	})
	must(logger, "order service", err)

	autoConfirm, err := services.NewAutoConfirmService(repos.Orders, orderService, cfg.AutoConfirmAfter, time.Now, logger)
	must(logger, "auto-confirm service", err)

	productService, err := services.NewProductService(repos.UnitOfWork, repos.Products, ledger, logger)
	must(logger, "product service", err)

	userService, err := services.NewUserService(repos.Users, logger)
	must(logger, "user service", err)

	err = migrations.Seed(ctx, migrations.SeedDeps{
		UserRepo: repos.Users,
		Users:    userService,
		Products: productService,
		Logger:   logger,
	}, migrations.SeedOptions{
		AdminEmail:    cfg.SeedAdminEmail,
		AdminPassword: cfg.SeedAdminPassword,
		Catalog:       cfg.SeedCatalog,
	})
	if err != nil {
		logger.Error("failed to seed default data", zap.Error(err))
	}

	// Scheduler
	runnerOpts := []scheduler.Option{scheduler.WithLogger(logger.Named("scheduler"))}
	if redisClient != nil {
		runnerOpts = append(runnerOpts, scheduler.WithLocker(redisClient, 30*time.Minute))
	}
	runner := scheduler.New("auto-confirm",
		scheduler.DailySchedule{Hour: cfg.AutoConfirmHour, Minute: cfg.AutoConfirmMinute, Location: loc},
		services.AutoConfirmJob(autoConfirm),
		runnerOpts...,
	)

	var wg sync.WaitGroup
	if cfg.SchedulerEnabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runner.Start(ctx)
		}()
	}

	// HTTP
	gin.SetMode(cfg.GinMode)
	router := handlers.NewRouter(handlers.RouterDeps{
		Cart:          handlers.NewCartHandler(cartService),
		Orders:        handlers.NewOrderHandler(checkoutService, orderService),
		Catalog:       handlers.NewCatalogHandler(productService, ledger),
		Notifications: handlers.NewNotificationHandler(notificationService),
		Admin:         handlers.NewAdminHandler(userService, autoConfirm, runner),
		HealthChecks:  checks,
		Logger:        logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
	wg.Wait()

	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			logger.Warn("close failed", zap.Error(err))
		}
	}
	logger.Info("server stopped")
}

func must(logger *zap.Logger, what string, err error) {
	if err != nil {
		logger.Fatal("failed to build "+what, zap.Error(err))
	}
}
