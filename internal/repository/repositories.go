package repository

import "gorm.io/gorm"

// Repositories bundles every store the services depend on.
type Repositories struct {
	UnitOfWork    UnitOfWork
	Products      ProductRepository
	Stock         StockRepository
	Carts         CartRepository
	Orders        OrderRepository
	OrderItems    OrderItemRepository
	Counters      CounterRepository
	Financial     FinancialRepository
	Notifications NotificationRepository
	Users         UserRepository
}

func NewGormRepositories(db *gorm.DB) Repositories {
	return Repositories{
		UnitOfWork:    NewUnitOfWork(db),
		Products:      NewProductRepository(db),
		Stock:         NewStockRepository(db),
		Carts:         NewCartRepository(db),
		Orders:        NewOrderRepository(db),
		OrderItems:    NewOrderItemRepository(db),
		Counters:      NewCounterRepository(db),
		Financial:     NewFinancialRepository(db),
		Notifications: NewNotificationRepository(db),
		Users:         NewUserRepository(db),
	}
}
