package handlers

import (
	"github.com/gin-gonic/gin"

	"lotline/internal/core/apperror"
	"lotline/internal/core/id"
	"lotline/internal/domain/adjustments"
	"lotline/internal/infrastructure/http/v1/dto"
)

// AdjustmentHandler handles HTTP requests for adjustment documents.
type AdjustmentHandler struct {
	*BaseHandler
	service *adjustments.Service
}

// NewAdjustmentHandler creates a new adjustment handler.
func NewAdjustmentHandler(base *BaseHandler, service *adjustments.Service) *AdjustmentHandler {
	return &AdjustmentHandler{BaseHandler: base, service: service}
}

// Create creates a draft adjustment.
func (h *AdjustmentHandler) Create(c *gin.Context) {
	var req dto.CreateAdjustmentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	locationID, err := id.Parse(req.LocationID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid location id").
			WithDetail("locationId", req.LocationID))
		return
	}

	lines, err := req.ToLines()
	if err != nil {
		h.Error(c, err)
		return
	}

	adj, err := h.service.Create(c.Request.Context(), locationID,
		adjustments.Reason(req.Reason), req.Notes, lines)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, adj)
}

// Update replaces the notes and lines of a draft.
func (h *AdjustmentHandler) Update(c *gin.Context) {
	adjID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	var req dto.UpdateAdjustmentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	lines, err := req.ToLines()
	if err != nil {
		h.Error(c, err)
		return
	}

	adj, err := h.service.UpdateDraft(c.Request.Context(), adjID, req.Notes, lines)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, adj)
}

// Approve transitions a draft to approved.
func (h *AdjustmentHandler) Approve(c *gin.Context) {
	adjID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	adj, err := h.service.Approve(c.Request.Context(), adjID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, adj)
}

// Post transitions an approved document to posted and writes the ledger.
func (h *AdjustmentHandler) Post(c *gin.Context) {
	adjID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	adj, err := h.service.Post(c.Request.Context(), adjID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, adj)
}

// Get returns one adjustment with lines.
func (h *AdjustmentHandler) Get(c *gin.Context) {
	adjID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	adj, err := h.service.Get(c.Request.Context(), adjID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, adj)
}

// List returns adjustments matching the query filters.
func (h *AdjustmentHandler) List(c *gin.Context) {
	filter := adjustments.ListFilter{
		Limit:  h.ParseIntQuery(c, "limit", 50),
		Offset: h.ParseIntQuery(c, "offset", 0),
	}

	if status := c.Query("status"); status != "" {
		s := adjustments.Status(status)
		filter.Status = &s
	}
	if reason := c.Query("reason"); reason != "" {
		r := adjustments.Reason(reason)
		filter.Reason = &r
	}
	if locationID := c.Query("locationId"); locationID != "" {
		if parsed, err := id.Parse(locationID); err == nil {
			filter.LocationID = &parsed
		}
	}
	if from := h.ParseTimeQuery(c, "dateFrom"); !from.IsZero() {
		filter.From = &from
	}
	if to := h.ParseTimeQuery(c, "dateTo"); !to.IsZero() {
		filter.To = &to
	}

	docs, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Paginated(c, docs, total, filter.Limit, filter.Offset)
}

// RegisterRoutes registers adjustment routes.
func (h *AdjustmentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/:id", h.Get)
	rg.PUT("/:id", h.Update)
	rg.POST("/:id/approve", h.Approve)
	rg.POST("/:id/post", h.Post)
}
