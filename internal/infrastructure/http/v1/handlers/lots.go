package handlers

import (
	"github.com/gin-gonic/gin"

	"lotline/internal/core/apperror"
	"lotline/internal/core/id"
	"lotline/internal/domain/lots"
	"lotline/internal/infrastructure/http/v1/dto"
)

// LotHandler handles HTTP requests for the lot registry.
type LotHandler struct {
	*BaseHandler
	service *lots.Service
}

// NewLotHandler creates a new lot handler.
func NewLotHandler(base *BaseHandler, service *lots.Service) *LotHandler {
	return &LotHandler{BaseHandler: base, service: service}
}

// Register creates a lot on first receipt.
func (h *LotHandler) Register(c *gin.Context) {
	var req dto.RegisterLotRequest
	if !h.BindJSON(c, &req) {
		return
	}

	lot, err := req.ToEntity()
	if err != nil {
		h.Error(c, err)
		return
	}

	if err := h.service.Register(c.Request.Context(), lot); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, lot)
}

// Get returns one lot.
func (h *LotHandler) Get(c *gin.Context) {
	lotID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	lot, err := h.service.Get(c.Request.Context(), lotID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, lot)
}

// Available returns lots with positive balance for one product/location.
func (h *LotHandler) Available(c *gin.Context) {
	productID, err := id.Parse(c.Query("productId"))
	if err != nil {
		h.Error(c, apperror.NewValidation("productId query parameter is required"))
		return
	}
	locationID, err := id.Parse(c.Query("locationId"))
	if err != nil {
		h.Error(c, apperror.NewValidation("locationId query parameter is required"))
		return
	}

	excludeExpired := c.Query("excludeExpired") == "true"
	asOf := h.ParseTimeQuery(c, "asOf")

	balances, err := h.service.AvailableLots(c.Request.Context(), productID, locationID, excludeExpired, asOf)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"items": balances})
}

// RegisterRoutes registers lot routes.
func (h *LotHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Register)
	rg.GET("/available", h.Available)
	rg.GET("/:id", h.Get)
}
