package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HealthCheck reports the state of one dependency.
type HealthCheck func(ctx context.Context) error

type RouterDeps struct {
	Cart          *CartHandler
	Orders        *OrderHandler
	Catalog       *CatalogHandler
	Notifications *NotificationHandler
	Admin         *AdminHandler
	HealthChecks  map[string]HealthCheck
	Logger        *zap.Logger
}

func NewRouter(deps RouterDeps) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(logger.Named("http")))

	router.GET("/health", health(deps.HealthChecks))

	api := router.Group("/api")
	{
		api.GET("/products", deps.Catalog.ListProducts)
		api.GET("/products/:id", deps.Catalog.GetProduct)
	}

	user := api.Group("", RequireUser())
	{
		user.GET("/cart", deps.Cart.List)
		user.POST("/cart", deps.Cart.Add)
		user.PUT("/cart/:id", deps.Cart.Update)
		user.DELETE("/cart/:id", deps.Cart.Remove)

		user.POST("/orders/checkout", deps.Orders.Checkout)
		user.GET("/orders", deps.Orders.ListMine)
		user.GET("/orders/:id", deps.Orders.GetMine)
		user.GET("/orders/:id/history", deps.Orders.History)
		user.POST("/orders/:id/confirm-receipt", deps.Orders.ConfirmReceipt)

		user.GET("/notifications", deps.Notifications.ListMine)
		user.PUT("/notifications/:id/read", deps.Notifications.MarkMineRead)
	}

	admin := api.Group("/admin", RequireUser(), RequireAdmin())
	{
		admin.GET("/orders", deps.Orders.AdminList)
		admin.PUT("/orders/:id/status", deps.Orders.UpdateStatus)

		admin.POST("/products", deps.Catalog.CreateProduct)
		admin.PUT("/products/:id", deps.Catalog.UpdateProduct)
		admin.DELETE("/products/:id", deps.Catalog.DeleteProduct)
		admin.POST("/products/:id/variants", deps.Catalog.AddVariant)

		admin.POST("/inventory/movements", deps.Catalog.RecordMovement)
		admin.GET("/inventory/movements", deps.Catalog.ListMovements)

		admin.POST("/students", deps.Admin.CreateStudent)

		admin.GET("/notifications", deps.Notifications.ListAdmin)
		admin.PUT("/notifications/:id/read", deps.Notifications.MarkAdminRead)

		admin.POST("/jobs/auto-confirm", deps.Admin.RunAutoConfirm)
	}

	return router
}

func health(checks map[string]HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		results := gin.H{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				results[name] = err.Error()
				continue
			}
			results[name] = "ok"
		}
		state := "ok"
		if status != http.StatusOK {
			state = "degraded"
		}
		c.JSON(status, gin.H{"status": state, "checks": results})
	}
}
