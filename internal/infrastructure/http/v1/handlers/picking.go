package handlers

import (
	"github.com/gin-gonic/gin"

	"lotline/internal/core/apperror"
	"lotline/internal/core/id"
	"lotline/internal/core/types"
	"lotline/internal/domain/allocation"
)

// PickingHandler serves FEFO pick recommendations.
type PickingHandler struct {
	*BaseHandler
	engine *allocation.Engine
}

// NewPickingHandler creates a new picking handler.
func NewPickingHandler(base *BaseHandler, engine *allocation.Engine) *PickingHandler {
	return &PickingHandler{BaseHandler: base, engine: engine}
}

// Recommend ranks available lots in FEFO order. quantityNeeded is
// optional; when present the response includes per-lot pick quantities.
func (h *PickingHandler) Recommend(c *gin.Context) {
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

	var quantityNeeded *types.Quantity
	if raw := c.Query("quantityNeeded"); raw != "" {
		parsed, err := types.ParseQuantity(raw)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid quantityNeeded").
				WithDetail("quantityNeeded", raw))
			return
		}
		quantityNeeded = &parsed
	}

	// Expired lots are excluded by default; excludeExpired=false keeps
	// them in the ranking flagged with status "expired".
	excludeExpired := c.DefaultQuery("excludeExpired", "true") == "true"
	asOf := h.ParseTimeQuery(c, "asOf")

	result, err := h.engine.Recommend(c.Request.Context(), productID, locationID, quantityNeeded, excludeExpired, asOf)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}

// RegisterRoutes registers picking routes.
func (h *PickingHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/recommendations", h.Recommend)
}
