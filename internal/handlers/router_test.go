package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"campus_store/internal/models"
	"campus_store/internal/repository/memory"
	"campus_store/internal/scheduler"
	"campus_store/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	router *gin.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	repos := memory.New().Repositories()

	ledger, err := services.NewStockLedger(services.StockLedgerDeps{UnitOfWork: repos.UnitOfWork, Stock: repos.Stock, Products: repos.Products})
	require.NoError(t, err)
	notifications, err := services.NewNotificationService(repos.Notifications, nil, nil)
	require.NoError(t, err)
	resolver, err := services.NewItemResolver(repos.Products, repos.Carts, nil)
	require.NoError(t, err)
	carts, err := services.NewCartService(repos.Carts, resolver)
	require.NoError(t, err)
	numbers, err := services.NewOrderNumberGenerator(repos.Counters, nil, nil)
	require.NoError(t, err)
	checkout, err := services.NewCheckoutService(services.CheckoutServiceDeps{
		UnitOfWork:    repos.UnitOfWork,
		Orders:        repos.Orders,
		OrderItems:    repos.OrderItems,
		Carts:         repos.Carts,
		Resolver:      resolver,
		Ledger:        ledger,
		Numbers:       numbers,
		Notifications: notifications,
	})
	require.NoError(t, err)
	orders, err := services.NewOrderService(services.OrderServiceDeps{
		UnitOfWork:    repos.UnitOfWork,
		Orders:        repos.Orders,
		Financial:     repos.Financial,
		Users:         repos.Users,
		Products:      repos.Products,
		Ledger:        ledger,
		Notifications: notifications,
	})
	require.NoError(t, err)
	autoConfirm, err := services.NewAutoConfirmService(repos.Orders, orders, 0, nil, nil)
	require.NoError(t, err)
	products, err := services.NewProductService(repos.UnitOfWork, repos.Products, ledger, nil)
	require.NoError(t, err)
	users, err := services.NewUserService(repos.Users, nil)
	require.NoError(t, err)

	runner := scheduler.New("auto-confirm", scheduler.DailySchedule{}, services.AutoConfirmJob(autoConfirm))

	router := NewRouter(RouterDeps{
		Cart:          NewCartHandler(carts),
		Orders:        NewOrderHandler(checkout, orders),
		Catalog:       NewCatalogHandler(products, ledger),
		Notifications: NewNotificationHandler(notifications),
		Admin:         NewAdminHandler(users, autoConfirm, runner),
		HealthChecks: map[string]HealthCheck{
			"store": func(ctx context.Context) error { return nil },
		},
	})
	return &testServer{router: router}
}

func (s *testServer) do(t *testing.T, method, path string, userID uint, role string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != 0 {
		req.Header.Set(HeaderUserID, strconv.FormatUint(uint64(userID), 10))
	}
	if role != "" {
		req.Header.Set(HeaderUserRole, role)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w, out
}

const (
	adminID   = 1
	studentID = 2
	otherID   = 3
)

func (s *testServer) createProduct(t *testing.T, body map[string]any) uint {
	t.Helper()
	w, out := s.do(t, http.MethodPost, "/api/admin/products", adminID, "admin", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return uint(out["id"].(float64))
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w, out := s.do(t, http.MethodGet, "/health", 0, "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", out["status"])
}

func TestIdentityIsRequired(t *testing.T) {
	s := newTestServer(t)

	w, out := s.do(t, http.MethodGet, "/api/cart", 0, "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "unauthorized", out["error"])

	w, _ = s.do(t, http.MethodGet, "/api/admin/orders", studentID, "student", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/products", 0, "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCheckoutAndStatusFlow(t *testing.T) {
	s := newTestServer(t)
	laceID := s.createProduct(t, map[string]any{"name": "ID Lace", "price": "75", "cost_price": "30", "stock": 3})

	w, out := s.do(t, http.MethodPost, "/api/cart", studentID, "student", map[string]any{"product_id": laceID, "quantity": 2})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	cartItemID := uint(out["id"].(float64))

	w, out = s.do(t, http.MethodPost, "/api/orders/checkout", studentID, "student", map[string]any{
		"payment_method": "cash",
		"cart_item_ids":  []uint{cartItemID},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, true, out["success"])
	assert.Equal(t, "150", out["total_amount"])
	assert.Equal(t, "pending", out["payment_status"])
	orderID := uint(out["orderId"].(float64))

	w, out = s.do(t, http.MethodPost, "/api/orders/checkout", studentID, "student", map[string]any{
		"payment_method": "cash",
		"products":       []map[string]any{{"product_id": laceID, "quantity": 2}},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "insufficient_stock", out["error"])
	details := out["details"].(map[string]any)
	assert.Equal(t, float64(1), details["available"])
	assert.Equal(t, "ID Lace", details["product_name"])

	orderPath := "/api/orders/" + strconv.FormatUint(uint64(orderID), 10)
	w, _ = s.do(t, http.MethodGet, orderPath, otherID, "student", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	statusPath := "/api/admin/orders/" + strconv.FormatUint(uint64(orderID), 10) + "/status"
	w, out = s.do(t, http.MethodPut, statusPath, adminID, "admin", map[string]any{"status": "shipped"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_status", out["error"])
	assert.Contains(t, out["allowed_statuses"], "ready_for_pickup")

	w, out = s.do(t, http.MethodPut, statusPath, adminID, "admin", map[string]any{"status": "delivered", "notes": "dropped at dorm"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "pending", out["previousStatus"])
	assert.Equal(t, "delivered", out["newStatus"])
	assert.Equal(t, true, out["paymentStatusUpdated"])
	assert.Equal(t, true, out["salesLogged"])

	w, out = s.do(t, http.MethodPut, statusPath, adminID, "admin", map[string]any{"status": "pending"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_transition", out["error"])
	assert.ElementsMatch(t, []any{"claimed", "completed", "cancelled", "refunded"}, out["allowed_statuses"])

	w, out = s.do(t, http.MethodPost, orderPath+"/confirm-receipt", studentID, "student", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "completed", out["newStatus"])

	w, out = s.do(t, http.MethodGet, orderPath+"/history", studentID, "student", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, out["history"], 2)

	w, out = s.do(t, http.MethodGet, "/api/notifications", studentID, "student", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, out["notifications"])
}

func TestInventoryMovements(t *testing.T) {
	s := newTestServer(t)
	shirtID := s.createProduct(t, map[string]any{
		"name":     "PE Shirt",
		"price":    "350",
		"variants": []map[string]any{{"size": "M", "stock": 2}},
	})

	w, out := s.do(t, http.MethodPost, "/api/admin/inventory/movements", adminID, "admin", map[string]any{
		"product_id": shirtID, "movement_type": "stock_in", "quantity": 5, "reason": "delivery",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, out["message"], "size_id")

	w, out = s.do(t, http.MethodPost, "/api/admin/inventory/movements", adminID, "admin", map[string]any{
		"product_id": shirtID, "movement_type": "restock", "quantity": 5, "reason": "delivery",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation_error", out["error"])

	path := "/api/admin/inventory/movements?product_id=" + strconv.FormatUint(uint64(shirtID), 10)
	w, out = s.do(t, http.MethodGet, path, adminID, "admin", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, out["movements"], 1)
}

func TestRunAutoConfirmEndpoint(t *testing.T) {
	s := newTestServer(t)
	w, out := s.do(t, http.MethodPost, "/api/admin/jobs/auto-confirm", adminID, "admin", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	result := out["result"].(map[string]any)
	assert.Equal(t, float64(0), result["checked"])
}

func TestRespondErrorHidesInternalErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	respondError(c, errors.New("pq: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "connection refused")
	assert.Len(t, c.Errors, 1)
}

func TestRespondErrorMapsConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	respondError(c, services.ErrConflict)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	respondError(c, &services.TransitionError{From: models.OrderCompleted, To: models.OrderPending})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
