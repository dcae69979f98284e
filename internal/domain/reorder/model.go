// Package reorder holds per (product, location) replenishment policy.
// It is not a ledger concept: configurations are policy inputs consumed
// by the low-stock alert sweep.
package reorder

import (
	"time"

	"lotline/internal/core/apperror"
	"lotline/internal/core/id"
	"lotline/internal/core/types"
)

// Config is the replenishment policy for one (product, location).
type Config struct {
	ID         id.ID  `json:"id" db:"id"`
	TenantID   string `json:"tenantId" db:"tenant_id"`
	ProductID  id.ID  `json:"productId" db:"product_id"`
	LocationID id.ID  `json:"locationId" db:"location_id"`

	// ReorderPoint: stock below this level triggers a low-stock alert.
	ReorderPoint types.Quantity `json:"reorderPoint" db:"reorder_point"`

	// MaximumStock is the replenishment target; suggested order
	// quantity is MaximumStock minus current stock.
	MaximumStock types.Quantity `json:"maximumStock" db:"maximum_stock"`

	SafetyStock types.Quantity `json:"safetyStock" db:"safety_stock"`

	// SupplierLeadTimeDays is advisory and may be absent.
	SupplierLeadTimeDays *int `json:"supplierLeadTimeDays,omitempty" db:"supplier_lead_time_days"`

	Version   int       `json:"version" db:"version"`
	CreatedBy string    `json:"createdBy" db:"created_by"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedBy string    `json:"updatedBy" db:"updated_by"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// Validate checks structural correctness before persisting.
func (c *Config) Validate() error {
	if c.TenantID == "" {
		return apperror.NewValidation("reorder config tenant is required")
	}
	if id.IsNil(c.ProductID) {
		return apperror.NewValidation("reorder config product is required")
	}
	if id.IsNil(c.LocationID) {
		return apperror.NewValidation("reorder config location is required")
	}
	if c.ReorderPoint.IsNegative() {
		return apperror.NewValidation("reorder point must not be negative")
	}
	if c.MaximumStock < c.ReorderPoint {
		return apperror.NewValidation("maximum stock must be at or above the reorder point")
	}
	if c.SafetyStock.IsNegative() {
		return apperror.NewValidation("safety stock must not be negative")
	}
	if c.SupplierLeadTimeDays != nil && *c.SupplierLeadTimeDays < 0 {
		return apperror.NewValidation("supplier lead time must not be negative")
	}
	return nil
}
