package dto

import (
	"lotline/internal/core/apperror"
	"lotline/internal/core/id"
	"lotline/internal/core/types"
	"lotline/internal/domain/reorder"
)

// SaveReorderRequest creates or replaces the replenishment policy for
// one (product, location).
type SaveReorderRequest struct {
	ProductID            string         `json:"productId" binding:"required"`
	LocationID           string         `json:"locationId" binding:"required"`
	ReorderPoint         types.Quantity `json:"reorderPoint"`
	MaximumStock         types.Quantity `json:"maximumStock"`
	SafetyStock          types.Quantity `json:"safetyStock"`
	SupplierLeadTimeDays *int           `json:"supplierLeadTimeDays,omitempty"`

	// Version must match the stored row when updating; zero on create.
	Version int `json:"version"`
}

// ToEntity converts the request to a domain configuration.
func (r SaveReorderRequest) ToEntity() (*reorder.Config, error) {
	productID, err := id.Parse(r.ProductID)
	if err != nil {
		return nil, apperror.NewValidation("invalid product id").
			WithDetail("productId", r.ProductID)
	}
	locationID, err := id.Parse(r.LocationID)
	if err != nil {
		return nil, apperror.NewValidation("invalid location id").
			WithDetail("locationId", r.LocationID)
	}

	return &reorder.Config{
		ProductID:            productID,
		LocationID:           locationID,
		ReorderPoint:         r.ReorderPoint,
		MaximumStock:         r.MaximumStock,
		SafetyStock:          r.SafetyStock,
		SupplierLeadTimeDays: r.SupplierLeadTimeDays,
		Version:              r.Version,
	}, nil
}
