package dto

import (
	"time"

	"lotline/internal/core/apperror"
	"lotline/internal/core/id"
	"lotline/internal/core/types"
	"lotline/internal/domain/lots"
)

// RegisterLotRequest registers a lot on first receipt.
type RegisterLotRequest struct {
	ProductID       string      `json:"productId" binding:"required"`
	LocationID      string      `json:"locationId" binding:"required"`
	LotNumber       string      `json:"lotNumber" binding:"required"`
	ManufactureDate *time.Time  `json:"manufactureDate,omitempty"`
	ExpiryDate      *time.Time  `json:"expiryDate,omitempty"`
	UnitCost        types.Money `json:"unitCost"`
	ReceivedAt      *time.Time  `json:"receivedAt,omitempty"`
}

// ToEntity converts the request to a domain lot.
func (r RegisterLotRequest) ToEntity() (*lots.Lot, error) {
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

	lot := &lots.Lot{
		ProductID:       productID,
		LocationID:      locationID,
		LotNumber:       r.LotNumber,
		ManufactureDate: r.ManufactureDate,
		ExpiryDate:      r.ExpiryDate,
		UnitCost:        r.UnitCost,
	}
	if r.ReceivedAt != nil {
		lot.ReceivedAt = *r.ReceivedAt
	}
	return lot, nil
}
