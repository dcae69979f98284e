package handlers

import (
	"github.com/gin-gonic/gin"

	"lotline/internal/core/apperror"
	"lotline/internal/core/id"
	"lotline/internal/core/identity"
	"lotline/internal/infrastructure/storage/postgres"
)

// AuditHandler serves document audit trails.
type AuditHandler struct {
	*BaseHandler
	audit *postgres.AuditService
}

// NewAuditHandler creates a new audit handler.
func NewAuditHandler(base *BaseHandler, audit *postgres.AuditService) *AuditHandler {
	return &AuditHandler{BaseHandler: base, audit: audit}
}

// History returns the audit trail for one document, newest first.
func (h *AuditHandler) History(c *gin.Context) {
	docID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	tenantID := identity.GetTenantID(c.Request.Context())
	limit := h.ParseIntQuery(c, "limit", 50)

	entries, err := h.audit.History(c.Request.Context(), tenantID, docID, limit)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"items": entries})
}

// RegisterRoutes registers audit routes.
func (h *AuditHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/:id/audit", h.History)
}
