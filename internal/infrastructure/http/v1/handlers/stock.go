package handlers

import (
	"github.com/gin-gonic/gin"

	"lotline/internal/core/apperror"
	"lotline/internal/core/id"
	"lotline/internal/core/identity"
	"lotline/internal/domain/ledger"
)

// StockHandler serves balances and ledger history.
type StockHandler struct {
	*BaseHandler
	service *ledger.Service
}

// NewStockHandler creates a new stock handler.
func NewStockHandler(base *BaseHandler, service *ledger.Service) *StockHandler {
	return &StockHandler{BaseHandler: base, service: service}
}

// Balances lists materialized on-hand quantities.
func (h *StockHandler) Balances(c *gin.Context) {
	filter := ledger.BalanceFilter{
		Limit:   h.ParseIntQuery(c, "limit", 100),
		Offset:  h.ParseIntQuery(c, "offset", 0),
		LotOnly: c.Query("lotOnly") == "true",
	}
	if productID := c.Query("productId"); productID != "" {
		if parsed, err := id.Parse(productID); err == nil {
			filter.ProductID = &parsed
		}
	}
	if locationID := c.Query("locationId"); locationID != "" {
		if parsed, err := id.Parse(locationID); err == nil {
			filter.LocationID = &parsed
		}
	}

	balances, err := h.service.Balances(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"items": balances})
}

// Balance returns one balance, optionally at a historical point in time
// via the asOf query parameter.
func (h *StockHandler) Balance(c *gin.Context) {
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

	key := ledger.BalanceKey{
		TenantID:   identity.GetTenantID(c.Request.Context()),
		ProductID:  productID,
		LocationID: locationID,
	}
	if lotID := c.Query("lotId"); lotID != "" {
		parsed, err := id.Parse(lotID)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid lot id").WithDetail("lotId", lotID))
			return
		}
		key.LotID = &parsed
	}

	asOf := h.ParseTimeQuery(c, "asOf")

	quantity, err := h.service.BalanceAsOf(c.Request.Context(), key, asOf)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"quantity": quantity})
}

// Ledger lists movement history, newest first.
func (h *StockHandler) Ledger(c *gin.Context) {
	filter := ledger.EntryFilter{
		Limit:   h.ParseIntQuery(c, "limit", 100),
		Offset:  h.ParseIntQuery(c, "offset", 0),
		RefType: c.Query("refType"),
	}
	if productID := c.Query("productId"); productID != "" {
		if parsed, err := id.Parse(productID); err == nil {
			filter.ProductID = &parsed
		}
	}
	if locationID := c.Query("locationId"); locationID != "" {
		if parsed, err := id.Parse(locationID); err == nil {
			filter.LocationID = &parsed
		}
	}
	if lotID := c.Query("lotId"); lotID != "" {
		if parsed, err := id.Parse(lotID); err == nil {
			filter.LotID = &parsed
		}
	}
	if movementType := c.Query("movementType"); movementType != "" {
		mt := ledger.MovementType(movementType)
		filter.MovementType = &mt
	}
	if refID := c.Query("refId"); refID != "" {
		if parsed, err := id.Parse(refID); err == nil {
			filter.RefID = &parsed
		}
	}
	if from := h.ParseTimeQuery(c, "dateFrom"); !from.IsZero() {
		filter.From = &from
	}
	if to := h.ParseTimeQuery(c, "dateTo"); !to.IsZero() {
		filter.To = &to
	}

	entries, err := h.service.History(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"items": entries})
}

// RegisterRoutes registers stock routes.
func (h *StockHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/balances", h.Balances)
	rg.GET("/balance", h.Balance)
	rg.GET("/ledger", h.Ledger)
}
