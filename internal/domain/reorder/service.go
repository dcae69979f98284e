package reorder

import (
	"context"
	"time"

	"lotline/internal/core/apperror"
	"lotline/internal/core/id"
	"lotline/internal/core/identity"
	"lotline/pkg/logger"
)

// Service manages reorder configurations.
type Service struct {
	repo Repository
}

// NewService creates the reorder configuration service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Save validates and upserts a configuration.
func (s *Service) Save(ctx context.Context, cfg *Config) error {
	if cfg.TenantID == "" {
		cfg.TenantID = identity.GetTenantID(ctx)
	}
	if id.IsNil(cfg.ID) {
		cfg.ID = id.New()
		cfg.CreatedBy = identity.GetActorID(ctx)
		cfg.CreatedAt = time.Now().UTC()
	}
	cfg.UpdatedBy = identity.GetActorID(ctx)
	cfg.UpdatedAt = time.Now().UTC()

	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := s.repo.Upsert(ctx, cfg); err != nil {
		return err
	}

	logger.Info(ctx, "reorder config saved",
		"product_id", cfg.ProductID,
		"location_id", cfg.LocationID,
		"reorder_point", cfg.ReorderPoint.String(),
	)
	return nil
}

// Get returns the configuration for one (product, location).
func (s *Service) Get(ctx context.Context, productID, locationID id.ID) (*Config, error) {
	tenantID := identity.GetTenantID(ctx)
	if tenantID == "" {
		return nil, apperror.NewValidation("tenant is required")
	}
	return s.repo.GetByKey(ctx, tenantID, productID, locationID)
}

// List returns all configurations for the calling tenant.
func (s *Service) List(ctx context.Context) ([]*Config, error) {
	tenantID := identity.GetTenantID(ctx)
	if tenantID == "" {
		return nil, apperror.NewValidation("tenant is required")
	}
	return s.repo.ListByTenant(ctx, tenantID)
}

// Delete removes a configuration.
func (s *Service) Delete(ctx context.Context, configID id.ID) error {
	tenantID := identity.GetTenantID(ctx)
	if tenantID == "" {
		return apperror.NewValidation("tenant is required")
	}
	return s.repo.Delete(ctx, tenantID, configID)
}
