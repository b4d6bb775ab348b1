package handlers

import (
	"net/http"
	"strings"

	"campus_store/internal/models"
	"campus_store/internal/repository"
	"campus_store/internal/services"

	"github.com/gin-gonic/gin"
)

type CatalogHandler struct {
	productService services.ProductService
	ledger         services.StockLedger
}

func NewCatalogHandler(productService services.ProductService, ledger services.StockLedger) *CatalogHandler {
	return &CatalogHandler{productService: productService, ledger: ledger}
}

type movementRequest struct {
	ProductID    uint   `json:"product_id"`
	SizeID       *uint  `json:"size_id"`
	MovementType string `json:"movement_type"`
	Quantity     int    `json:"quantity"`
	Reason       string `json:"reason"`
	Supplier     string `json:"supplier"`
	Notes        string `json:"notes"`
}

func (h *CatalogHandler) ListProducts(c *gin.Context) {
	products, err := h.productService.List(c.Request.Context(), repository.ProductFilter{
		ActiveOnly: true,
		Category:   c.Query("category"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (h *CatalogHandler) GetProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	product, err := h.productService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if !product.IsActive {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "product not found"})
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *CatalogHandler) CreateProduct(c *gin.Context) {
	var req services.ProductInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request format")
		return
	}
	actorID, _ := currentUser(c)
	product, err := h.productService.Create(c.Request.Context(), req, &actorID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (h *CatalogHandler) UpdateProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req services.ProductUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request format")
		return
	}
	product, err := h.productService.Update(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *CatalogHandler) DeleteProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.productService.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *CatalogHandler) AddVariant(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req services.VariantInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request format")
		return
	}
	actorID, _ := currentUser(c)
	variant, err := h.productService.AddVariant(c.Request.Context(), id, req, &actorID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, variant)
}

func (h *CatalogHandler) RecordMovement(c *gin.Context) {
	var req movementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request format")
		return
	}
	movementType, ok := models.ParseMovementType(strings.TrimSpace(req.MovementType))
	if !ok {
		badRequest(c, "movement_type must be one of stock_in, stock_out, stock_adjustment")
		return
	}
	if req.ProductID == 0 {
		badRequest(c, "product_id is required")
		return
	}
	actorID, _ := currentUser(c)
	res, err := h.ledger.Record(c.Request.Context(), movementType, services.StockCommand{
		ProductID: req.ProductID,
		VariantID: req.SizeID,
		Quantity:  req.Quantity,
		Reason:    req.Reason,
		Supplier:  req.Supplier,
		Notes:     req.Notes,
		ActorID:   &actorID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"movement":       res.Movement,
		"previous_stock": res.Previous,
		"new_stock":      res.Current,
	})
}

func (h *CatalogHandler) ListMovements(c *gin.Context) {
	productID, ok := queryUint(c, "product_id")
	if !ok {
		return
	}
	sizeID, ok := queryUint(c, "size_id")
	if !ok {
		return
	}
	orderID, ok := queryUint(c, "order_id")
	if !ok {
		return
	}
	filter := repository.MovementFilter{
		VariantID: sizeID,
		OrderID:   orderID,
		Limit:     queryInt(c, "limit"),
	}
	if productID != nil {
		filter.ProductID = *productID
	}
	if raw := c.Query("movement_type"); raw != "" {
		t, ok := models.ParseMovementType(raw)
		if !ok {
			badRequest(c, "invalid movement_type")
			return
		}
		filter.MovementType = t
	}
	movements, err := h.ledger.Movements(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"movements": movements})
}
