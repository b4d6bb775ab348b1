package handlers

import (
	"net/http"

	"campus_store/internal/models"
	"campus_store/internal/repository"
	"campus_store/internal/services"

	"github.com/gin-gonic/gin"
)

type OrderHandler struct {
	checkoutService services.CheckoutService
	orderService    services.OrderService
}

func NewOrderHandler(checkoutService services.CheckoutService, orderService services.OrderService) *OrderHandler {
	return &OrderHandler{checkoutService: checkoutService, orderService: orderService}
}

type checkoutRequest struct {
	PaymentMethod string               `json:"payment_method"`
	PayAtCounter  bool                 `json:"pay_at_counter"`
	CartItemIDs   []uint               `json:"cart_item_ids"`
	Products      []services.LineInput `json:"products"`
}

type statusRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

type confirmReceiptRequest struct {
	Notes string `json:"notes"`
}

func (h *OrderHandler) Checkout(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request format")
		return
	}
	userID, _ := currentUser(c)

	res, err := h.checkoutService.Checkout(c.Request.Context(), services.CheckoutCommand{
		UserID:        userID,
		PaymentMethod: req.PaymentMethod,
		PayAtCounter:  req.PayAtCounter,
		Selection:     services.Selection{CartItemIDs: req.CartItemIDs, Products: req.Products},
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":        true,
		"orderId":        res.Order.ID,
		"order_number":   res.Order.OrderNumber,
		"total_amount":   res.Order.TotalAmount,
		"payment_method": res.Order.PaymentMethod,
		"payment_status": res.Order.PaymentStatus,
		"items":          res.Order.Items,
		"effects":        res.Effects,
	})
}

func (h *OrderHandler) ListMine(c *gin.Context) {
	userID, _ := currentUser(c)
	orders, err := h.orderService.List(c.Request.Context(), repository.OrderFilter{
		UserID: &userID,
		Status: models.OrderStatus(c.Query("status")),
		Limit:  queryInt(c, "limit"),
		Offset: queryInt(c, "offset"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (h *OrderHandler) GetMine(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	userID, _ := currentUser(c)
	order, err := h.orderService.GetForUser(c.Request.Context(), userID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) History(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	userID, _ := currentUser(c)
	if _, err := h.orderService.GetForUser(c.Request.Context(), userID, id); err != nil {
		respondError(c, err)
		return
	}
	logs, err := h.orderService.History(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": logs})
}

func (h *OrderHandler) ConfirmReceipt(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req confirmReceiptRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request format")
			return
		}
	}
	userID, _ := currentUser(c)
	res, err := h.orderService.ConfirmReceipt(c.Request.Context(), userID, id, req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, statusResponse(res))
}

func (h *OrderHandler) AdminList(c *gin.Context) {
	userID, ok := queryUint(c, "user_id")
	if !ok {
		return
	}
	orders, err := h.orderService.List(c.Request.Context(), repository.OrderFilter{
		UserID: userID,
		Status: models.OrderStatus(c.Query("status")),
		Limit:  queryInt(c, "limit"),
		Offset: queryInt(c, "offset"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// UpdateStatus applies an admin status change. salesLogged reports a sale or reversal
// entry: cancelling or refunding an order that never reached delivered, claimed or
// completed has no recognized sale, so it restocks without writing a reversal.
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request format")
		return
	}
	actorID, _ := currentUser(c)
	res, err := h.orderService.UpdateStatus(c.Request.Context(), services.StatusCommand{
		OrderID: id,
		Status:  req.Status,
		Notes:   req.Notes,
		ActorID: &actorID,
		Source:  services.SourceAdmin,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, statusResponse(res))
}

func statusResponse(res services.StatusResult) gin.H {
	return gin.H{
		"success":              true,
		"order":                res.Order,
		"previousStatus":       res.PreviousStatus,
		"newStatus":            res.NewStatus,
		"inventoryUpdated":     res.InventoryUpdated,
		"salesLogged":          res.SalesLogged,
		"paymentStatusUpdated": res.PaymentStatusUpdated,
		"effects":              res.Effects,
	}
}
