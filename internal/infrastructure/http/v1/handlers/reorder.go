package handlers

import (
	"github.com/gin-gonic/gin"

	"lotline/internal/core/apperror"
	"lotline/internal/core/id"
	"lotline/internal/domain/reorder"
	"lotline/internal/infrastructure/http/v1/dto"
)

// ReorderHandler handles HTTP requests for reorder configurations.
type ReorderHandler struct {
	*BaseHandler
	service *reorder.Service
}

// NewReorderHandler creates a new reorder handler.
func NewReorderHandler(base *BaseHandler, service *reorder.Service) *ReorderHandler {
	return &ReorderHandler{BaseHandler: base, service: service}
}

// Save creates or replaces the policy for one (product, location).
func (h *ReorderHandler) Save(c *gin.Context) {
	var req dto.SaveReorderRequest
	if !h.BindJSON(c, &req) {
		return
	}

	cfg, err := req.ToEntity()
	if err != nil {
		h.Error(c, err)
		return
	}

	if err := h.service.Save(c.Request.Context(), cfg); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, cfg)
}

// Get returns the policy for one (product, location).
func (h *ReorderHandler) Get(c *gin.Context) {
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

	cfg, err := h.service.Get(c.Request.Context(), productID, locationID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, cfg)
}

// List returns all policies for the calling tenant.
func (h *ReorderHandler) List(c *gin.Context) {
	configs, err := h.service.List(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"items": configs})
}

// Delete removes a policy.
func (h *ReorderHandler) Delete(c *gin.Context) {
	configID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	if err := h.service.Delete(c.Request.Context(), configID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// RegisterRoutes registers reorder routes.
func (h *ReorderHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.PUT("", h.Save)
	rg.GET("/config", h.Get)
	rg.DELETE("/:id", h.Delete)
}
