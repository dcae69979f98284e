package reorder

import (
	"context"

	"lotline/internal/core/id"
)

// Repository defines persistence operations for reorder configurations.
type Repository interface {
	// Upsert inserts or replaces the configuration for its
	// (tenant, product, location) key. On update the version column
	// guards against concurrent editors.
	Upsert(ctx context.Context, cfg *Config) error

	// GetByKey returns the configuration for one (product, location).
	GetByKey(ctx context.Context, tenantID string, productID, locationID id.ID) (*Config, error)

	// ListByTenant returns all configurations for a tenant.
	ListByTenant(ctx context.Context, tenantID string) ([]*Config, error)

	// Delete removes a configuration.
	Delete(ctx context.Context, tenantID string, configID id.ID) error

	// TenantIDs returns every tenant with at least one configuration.
	// The sweep worker iterates these.
	TenantIDs(ctx context.Context) ([]string, error)
}
