package lots

import (
	"context"

	"lotline/internal/core/id"
)

// Repository defines persistence operations for the lot registry.
type Repository interface {
	// Create inserts a new lot. Lot numbers are unique per
	// (tenant, product).
	Create(ctx context.Context, lot *Lot) error

	// GetByID returns a lot by id within the tenant.
	GetByID(ctx context.Context, tenantID string, lotID id.ID) (*Lot, error)

	// AvailableLots returns lots of a product at a location whose
	// derived balance is strictly positive, joined with that balance.
	AvailableLots(ctx context.Context, tenantID string, productID, locationID id.ID) ([]*LotBalance, error)

	// LotsWithStock returns every lot with non-null expiry and positive
	// balance for a tenant, across all products and locations. Used by
	// the expiry sweep.
	LotsWithStock(ctx context.Context, tenantID string) ([]*StockedLot, error)
}

// StockedLot is an expiry-sweep row: a lot with positive balance plus
// the product/location it sits at.
type StockedLot struct {
	LotBalance
	ProductID  id.ID `json:"productId" db:"product_id"`
	LocationID id.ID `json:"locationId" db:"location_id"`
}
