// Package lots tracks receipt batches and their derived on-hand state.
//
// A lot's current quantity is never stored on the lot itself: it is the
// signed sum of ledger entries referencing the lot. Lots are created on
// first receipt and never deleted; once drained they stay dormant for
// audit and expiry-alert history.
package lots

import (
	"time"

	"lotline/internal/core/apperror"
	"lotline/internal/core/id"
	"lotline/internal/core/types"
)

// Lot is a traceable batch of a product sharing receipt date and expiry.
type Lot struct {
	ID        id.ID  `json:"id" db:"id"`
	TenantID  string `json:"tenantId" db:"tenant_id"`
	ProductID id.ID  `json:"productId" db:"product_id"`

	// LocationID is the originating location of the receipt.
	LocationID id.ID `json:"locationId" db:"location_id"`

	LotNumber       string     `json:"lotNumber" db:"lot_number"`
	ManufactureDate *time.Time `json:"manufactureDate,omitempty" db:"manufacture_date"`

	// ExpiryDate is nil for non-perishable lots.
	ExpiryDate *time.Time `json:"expiryDate,omitempty" db:"expiry_date"`

	UnitCost types.Money `json:"unitCost" db:"unit_cost"`

	// ReceivedAt orders lots within the same expiry date (FIFO tie-break).
	ReceivedAt time.Time `json:"receivedAt" db:"received_at"`

	CreatedBy string    `json:"createdBy" db:"created_by"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Validate checks structural correctness before persisting.
func (l *Lot) Validate() error {
	if l.TenantID == "" {
		return apperror.NewValidation("lot tenant is required")
	}
	if id.IsNil(l.ProductID) {
		return apperror.NewValidation("lot product is required")
	}
	if id.IsNil(l.LocationID) {
		return apperror.NewValidation("lot location is required")
	}
	if l.LotNumber == "" {
		return apperror.NewValidation("lot number is required")
	}
	if l.ExpiryDate != nil && l.ManufactureDate != nil && l.ExpiryDate.Before(*l.ManufactureDate) {
		return apperror.NewValidation("lot expiry date precedes manufacture date")
	}
	return nil
}

// IsExpired reports whether the lot's expiry is strictly before asOf.
// Lots without expiry never expire.
func (l *Lot) IsExpired(asOf time.Time) bool {
	return l.ExpiryDate != nil && l.ExpiryDate.Before(asOf)
}

// LotBalance is a lot together with its derived available quantity.
// Only lots with a strictly positive balance are reported as available.
type LotBalance struct {
	LotID             id.ID          `json:"lotId" db:"lot_id"`
	LotNumber         string         `json:"lotNumber" db:"lot_number"`
	ExpiryDate        *time.Time     `json:"expiryDate,omitempty" db:"expiry_date"`
	QuantityAvailable types.Quantity `json:"quantityAvailable" db:"quantity_available"`
	UnitCost          types.Money    `json:"unitCost" db:"unit_cost"`
	ReceivedAt        time.Time      `json:"receivedAt" db:"received_at"`
}

// IsExpired reports whether the balance's expiry is strictly before asOf.
func (b *LotBalance) IsExpired(asOf time.Time) bool {
	return b.ExpiryDate != nil && b.ExpiryDate.Before(asOf)
}
