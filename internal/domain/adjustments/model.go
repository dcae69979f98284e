// Package adjustments provides the stock adjustment document and its
// approval/posting state machine.
//
// An adjustment groups signed quantity corrections for one location.
// States run draft → approved → posted, linearly and without cycles.
// Line items are mutable only while the document is draft; posting
// writes exactly one ledger entry per line, atomically with the status
// transition.
package adjustments

import (
	"time"

	"lotline/internal/core/apperror"
	"lotline/internal/core/id"
	"lotline/internal/core/types"
	"lotline/internal/domain/ledger"
)

// Status represents the workflow state of an adjustment.
type Status string

const (
	StatusDraft    Status = "draft"
	StatusApproved Status = "approved"
	StatusPosted   Status = "posted"
)

// IsValid reports whether the status is a known state.
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusApproved, StatusPosted:
		return true
	}
	return false
}

// Reason classifies why stock is being corrected.
type Reason string

const (
	ReasonDamage     Reason = "damage"
	ReasonExpiry     Reason = "expiry"
	ReasonTheft      Reason = "theft"
	ReasonFound      Reason = "found"
	ReasonCorrection Reason = "correction"
	ReasonWaste      Reason = "waste"
	ReasonSpoilage   Reason = "spoilage"
)

// IsValid reports whether the reason is one of the enumerated codes.
func (r Reason) IsValid() bool {
	switch r {
	case ReasonDamage, ReasonExpiry, ReasonTheft, ReasonFound,
		ReasonCorrection, ReasonWaste, ReasonSpoilage:
		return true
	}
	return false
}

// Adjustment is a stock correction document.
type Adjustment struct {
	ID       id.ID  `json:"id" db:"id"`
	TenantID string `json:"tenantId" db:"tenant_id"`

	// Number is the human-readable document number, assigned on create
	// and scoped per tenant per calendar year: ADJ-2025-00042.
	Number string `json:"number" db:"number"`

	LocationID id.ID  `json:"locationId" db:"location_id"`
	Status     Status `json:"status" db:"status"`
	Reason     Reason `json:"reason" db:"reason"`
	Notes      string `json:"notes,omitempty" db:"notes"`

	CreatedBy string    `json:"createdBy" db:"created_by"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	ApprovedBy *string    `json:"approvedBy,omitempty" db:"approved_by"`
	ApprovedAt *time.Time `json:"approvedAt,omitempty" db:"approved_at"`

	PostedBy *string    `json:"postedBy,omitempty" db:"posted_by"`
	PostedAt *time.Time `json:"postedAt,omitempty" db:"posted_at"`

	// Version guards concurrent status transitions (optimistic lock).
	Version int `json:"version" db:"version"`

	Lines []Line `json:"lines" db:"-"`
}

// Line is one quantity correction within an adjustment.
type Line struct {
	ID           id.ID `json:"id" db:"id"`
	AdjustmentID id.ID `json:"adjustmentId" db:"adjustment_id"`
	LineNo       int   `json:"lineNo" db:"line_no"`

	ProductID id.ID `json:"productId" db:"product_id"`

	// LotID is nil for untracked lines.
	LotID *id.ID `json:"lotId,omitempty" db:"lot_id"`

	UOM string `json:"uom" db:"uom"`

	// QuantityDelta is explicitly signed, exactly as entered. It is
	// never normalized: negative shrinks stock, positive grows it.
	QuantityDelta types.Quantity `json:"quantityDelta" db:"quantity_delta"`

	UnitCost types.Money `json:"unitCost" db:"unit_cost"`

	// ReasonOverride replaces the document reason for this line.
	ReasonOverride *Reason `json:"reasonOverride,omitempty" db:"reason_override"`

	// AllowNegative grants this line a negative-stock override.
	AllowNegative bool `json:"allowNegative,omitempty" db:"allow_negative"`
}

// New creates a draft adjustment.
func New(tenantID string, locationID id.ID, reason Reason, notes, createdBy string) *Adjustment {
	return &Adjustment{
		ID:         id.New(),
		TenantID:   tenantID,
		LocationID: locationID,
		Status:     StatusDraft,
		Reason:     reason,
		Notes:      notes,
		CreatedBy:  createdBy,
		CreatedAt:  time.Now().UTC(),
		Version:    1,
		Lines:      make([]Line, 0),
	}
}

// AddLine appends a line to a draft adjustment.
func (a *Adjustment) AddLine(line Line) error {
	if !a.CanModifyLines() {
		return apperror.NewBusinessRule(
			"LINES_IMMUTABLE",
			"Line items are only mutable while the adjustment is draft",
		).WithDetail("status", string(a.Status))
	}
	if id.IsNil(line.ID) {
		line.ID = id.New()
	}
	line.AdjustmentID = a.ID
	line.LineNo = len(a.Lines) + 1
	a.Lines = append(a.Lines, line)
	return nil
}

// CanModifyLines reports whether line items may still be edited.
func (a *Adjustment) CanModifyLines() bool {
	return a.Status == StatusDraft
}

// Validate checks structural correctness of the document and its lines.
func (a *Adjustment) Validate() error {
	if a.TenantID == "" {
		return apperror.NewValidation("adjustment tenant is required")
	}
	if id.IsNil(a.LocationID) {
		return apperror.NewValidation("location is required").
			WithDetail("field", "locationId")
	}
	if !a.Reason.IsValid() {
		return apperror.NewValidation("unknown reason code").
			WithDetail("reason", string(a.Reason))
	}
	if len(a.Lines) == 0 {
		return apperror.NewValidation("at least one line item is required")
	}

	for i, line := range a.Lines {
		if id.IsNil(line.ProductID) {
			return apperror.NewValidation("line product is required").
				WithDetail("lineNo", i+1)
		}
		if line.QuantityDelta.IsZero() {
			return apperror.NewValidation("line quantity delta must be non-zero").
				WithDetail("lineNo", i+1)
		}
		if line.UnitCost.IsNegative() {
			return apperror.NewValidation("line unit cost must not be negative").
				WithDetail("lineNo", i+1)
		}
		if line.ReasonOverride != nil && !line.ReasonOverride.IsValid() {
			return apperror.NewValidation("unknown line reason override").
				WithDetail("lineNo", i+1).
				WithDetail("reason", string(*line.ReasonOverride))
		}
	}
	return nil
}

// Approve transitions draft → approved. Transition validity is checked
// before anything else; no ledger effect.
func (a *Adjustment) Approve(actor string, at time.Time) error {
	if a.Status != StatusDraft {
		return apperror.NewInvalidTransition(string(a.Status), string(StatusApproved))
	}
	a.Status = StatusApproved
	a.ApprovedBy = &actor
	a.ApprovedAt = &at
	return nil
}

// markPosted transitions approved → posted. Callers must have already
// appended the ledger entries in the same transaction.
func (a *Adjustment) markPosted(actor string, at time.Time) error {
	if a.Status != StatusApproved {
		return apperror.NewInvalidTransition(string(a.Status), string(StatusPosted))
	}
	a.Status = StatusPosted
	a.PostedBy = &actor
	a.PostedAt = &at
	return nil
}

// GenerateEntries builds one ledger entry per line. All entries share
// txnTime so balance-as-of queries see the posting as one instant.
func (a *Adjustment) GenerateEntries(txnTime time.Time) []*ledger.Entry {
	entries := make([]*ledger.Entry, 0, len(a.Lines))
	for _, line := range a.Lines {
		note := a.Notes
		if line.ReasonOverride != nil {
			note = string(*line.ReasonOverride)
		}

		entries = append(entries, &ledger.Entry{
			TenantID:      a.TenantID,
			ProductID:     line.ProductID,
			LocationID:    a.LocationID,
			LotID:         line.LotID,
			TxnTime:       txnTime,
			MovementType:  ledger.MovementAdjustment,
			Quantity:      line.QuantityDelta,
			UnitCost:      line.UnitCost,
			RefType:       ledger.RefTypeAdjustment,
			RefID:         a.ID,
			Note:          note,
			AllowNegative: line.AllowNegative,
		})
	}
	return entries
}
