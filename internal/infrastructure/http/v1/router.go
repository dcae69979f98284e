// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"lotline/internal/domain/adjustments"
	"lotline/internal/domain/alerts"
	"lotline/internal/domain/allocation"
	"lotline/internal/domain/ledger"
	"lotline/internal/domain/lots"
	"lotline/internal/domain/reorder"
	"lotline/internal/infrastructure/http/v1/handlers"
	"lotline/internal/infrastructure/http/v1/middleware"
	"lotline/internal/infrastructure/storage/postgres"
	"lotline/pkg/logger"
)

// RouterConfig holds the wired services the router exposes.
type RouterConfig struct {
	Logger *logger.Logger

	Pool *postgres.Pool

	TokenValidator middleware.TokenValidator

	Adjustments *adjustments.Service
	Ledger      *ledger.Service
	Lots        *lots.Service
	Allocation  *allocation.Engine
	Alerts      *alerts.Evaluator
	Reorder     *reorder.Service
	Audit       *postgres.AuditService
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters).
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	base := handlers.NewBaseHandler()

	// Health endpoints, no auth required.
	health := handlers.NewHealthHandler(cfg.Pool)
	health.RegisterRoutes(router.Group(""))

	// All API routes require a tenant-scoped token.
	api := router.Group("/api/v1")
	api.Use(middleware.Auth(cfg.TokenValidator))

	adjustmentHandler := handlers.NewAdjustmentHandler(base, cfg.Adjustments)
	adjustmentGroup := api.Group("/adjustments")
	adjustmentHandler.RegisterRoutes(adjustmentGroup)
	if cfg.Audit != nil {
		handlers.NewAuditHandler(base, cfg.Audit).RegisterRoutes(adjustmentGroup)
	}

	handlers.NewLotHandler(base, cfg.Lots).RegisterRoutes(api.Group("/lots"))
	handlers.NewPickingHandler(base, cfg.Allocation).RegisterRoutes(api.Group("/picking"))
	handlers.NewStockHandler(base, cfg.Ledger).RegisterRoutes(api.Group("/stock"))
	handlers.NewAlertHandler(base, cfg.Alerts).RegisterRoutes(api.Group("/alerts"))
	handlers.NewReorderHandler(base, cfg.Reorder).RegisterRoutes(api.Group("/reorder"))

	return router
}
