// Package ledger implements the append-only inventory movement ledger.
//
// Entries are the atomic unit of truth: once written they are never
// updated or deleted, corrections are new offsetting entries. On-hand
// quantity for any (product, location[, lot]) key is the signed sum of
// its entries; a materialized balance cache is maintained alongside but
// the ledger remains the source of truth.
package ledger

import (
	"time"

	"lotline/internal/core/apperror"
	"lotline/internal/core/id"
	"lotline/internal/core/types"
)

// MovementType classifies a ledger entry by the business flow that produced it.
type MovementType string

const (
	MovementReceipt           MovementType = "receipt"
	MovementIssue             MovementType = "issue"
	MovementTransfer          MovementType = "transfer"
	MovementAdjustment        MovementType = "adjustment"
	MovementProductionConsume MovementType = "production_consume"
	MovementProductionOutput  MovementType = "production_output"
)

// IsValid reports whether the movement type is one of the known values.
func (m MovementType) IsValid() bool {
	switch m {
	case MovementReceipt, MovementIssue, MovementTransfer,
		MovementAdjustment, MovementProductionConsume, MovementProductionOutput:
		return true
	}
	return false
}

// Reference types for the document that caused an entry.
const (
	RefTypeAdjustment = "ADJ"
	RefTypeReceipt    = "GR"
	RefTypeIssue      = "GI"
	RefTypeTransfer   = "TR"
	RefTypeProduction = "PRD"
)

// Entry is an immutable, signed quantity movement record.
type Entry struct {
	ID         id.ID  `json:"id" db:"id"`
	TenantID   string `json:"tenantId" db:"tenant_id"`
	ProductID  id.ID  `json:"productId" db:"product_id"`
	LocationID id.ID  `json:"locationId" db:"location_id"`

	// LotID is nil for untracked lines.
	LotID *id.ID `json:"lotId,omitempty" db:"lot_id"`

	// TxnTime is the business timestamp of the movement. All entries
	// produced by one posting share the same TxnTime so balance-as-of
	// queries are unambiguous.
	TxnTime time.Time `json:"txnTime" db:"txn_time"`

	MovementType MovementType   `json:"movementType" db:"movement_type"`
	Quantity     types.Quantity `json:"quantity" db:"quantity"`
	UnitCost     types.Money    `json:"unitCost" db:"unit_cost"`

	RefType string `json:"refType" db:"ref_type"`
	RefID   id.ID  `json:"refId" db:"ref_id"`
	Note    string `json:"note,omitempty" db:"note"`

	// AllowNegative grants an explicit negative-stock override for this
	// entry. Without it, an append that would drive a lot-tracked
	// balance below zero is rejected.
	AllowNegative bool `json:"allowNegative,omitempty" db:"allow_negative"`

	CreatedBy string    `json:"createdBy" db:"created_by"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Validate checks structural correctness of a single entry.
func (e *Entry) Validate() error {
	if e.TenantID == "" {
		return apperror.NewValidation("entry tenant is required")
	}
	if id.IsNil(e.ProductID) {
		return apperror.NewValidation("entry product is required")
	}
	if id.IsNil(e.LocationID) {
		return apperror.NewValidation("entry location is required")
	}
	if !e.MovementType.IsValid() {
		return apperror.NewValidation("unknown movement type").
			WithDetail("movementType", string(e.MovementType))
	}
	if e.Quantity.IsZero() {
		return apperror.NewValidation("entry quantity delta must be non-zero")
	}
	if e.RefType == "" || id.IsNil(e.RefID) {
		return apperror.NewValidation("entry reference document is required")
	}
	if e.TxnTime.IsZero() {
		return apperror.NewValidation("entry transaction time is required")
	}
	return nil
}

// BalanceKey identifies a contended balance row.
// Lot-tracked keys carry a non-nil LotID.
type BalanceKey struct {
	TenantID   string
	ProductID  id.ID
	LocationID id.ID
	LotID      *id.ID
}

// Balance is a materialized on-hand quantity for a balance key.
type Balance struct {
	TenantID   string         `json:"tenantId" db:"tenant_id"`
	ProductID  id.ID          `json:"productId" db:"product_id"`
	LocationID id.ID          `json:"locationId" db:"location_id"`
	LotID      *id.ID         `json:"lotId,omitempty" db:"lot_id"`
	Quantity   types.Quantity `json:"quantity" db:"quantity"`
	UpdatedAt  time.Time      `json:"updatedAt" db:"updated_at"`
}

// EntryFilter narrows ledger history queries.
type EntryFilter struct {
	ProductID    *id.ID
	LocationID   *id.ID
	LotID        *id.ID
	MovementType *MovementType
	RefType      string
	RefID        *id.ID
	From         *time.Time
	To           *time.Time
	Limit        int
	Offset       int
}
