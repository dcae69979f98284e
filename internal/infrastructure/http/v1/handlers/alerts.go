package handlers

import (
	"github.com/gin-gonic/gin"

	"lotline/internal/domain/alerts"
)

// AlertHandler serves on-demand alert sweeps.
type AlertHandler struct {
	*BaseHandler
	evaluator *alerts.Evaluator
}

// NewAlertHandler creates a new alert handler.
func NewAlertHandler(base *BaseHandler, evaluator *alerts.Evaluator) *AlertHandler {
	return &AlertHandler{BaseHandler: base, evaluator: evaluator}
}

// Expiry runs the expiry sweep for the calling tenant.
// The optional filter query parameter is a CEL expression over the
// candidate fields, e.g. `priority in ["critical", "high"]`.
func (h *AlertHandler) Expiry(c *gin.Context) {
	filter, ok := h.parseFilter(c)
	if !ok {
		return
	}
	asOf := h.ParseTimeQuery(c, "asOf")

	candidates, err := h.evaluator.SweepExpiry(c.Request.Context(), asOf, filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"items": candidates})
}

// LowStock runs the low-stock sweep for the calling tenant.
func (h *AlertHandler) LowStock(c *gin.Context) {
	filter, ok := h.parseFilter(c)
	if !ok {
		return
	}
	asOf := h.ParseTimeQuery(c, "asOf")

	candidates, err := h.evaluator.SweepLowStock(c.Request.Context(), asOf, filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"items": candidates})
}

func (h *AlertHandler) parseFilter(c *gin.Context) (*alerts.Filter, bool) {
	expr := c.Query("filter")
	if expr == "" {
		return nil, true
	}
	filter, err := alerts.NewFilter(expr)
	if err != nil {
		h.Error(c, err)
		return nil, false
	}
	return filter, true
}

// RegisterRoutes registers alert routes.
func (h *AlertHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/expiry", h.Expiry)
	rg.GET("/low-stock", h.LowStock)
}
