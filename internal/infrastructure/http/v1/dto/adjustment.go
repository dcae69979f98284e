package dto

import (
	"lotline/internal/core/apperror"
	"lotline/internal/core/id"
	"lotline/internal/core/types"
	"lotline/internal/domain/adjustments"
)

// AdjustmentLineRequest is one quantity correction line.
type AdjustmentLineRequest struct {
	ProductID string `json:"productId" binding:"required"`
	LotID     *string `json:"lotId,omitempty"`
	UOM       string `json:"uom"`

	// QuantityDelta is explicitly signed: negative shrinks stock.
	QuantityDelta types.Quantity `json:"quantityDelta" binding:"required"`

	UnitCost       types.Money `json:"unitCost"`
	ReasonOverride *string     `json:"reasonOverride,omitempty"`
	AllowNegative  bool        `json:"allowNegative,omitempty"`
}

// ToLine converts the request line to a domain line.
func (r AdjustmentLineRequest) ToLine() (adjustments.Line, error) {
	productID, err := id.Parse(r.ProductID)
	if err != nil {
		return adjustments.Line{}, apperror.NewValidation("invalid product id").
			WithDetail("productId", r.ProductID)
	}

	line := adjustments.Line{
		ProductID:     productID,
		UOM:           r.UOM,
		QuantityDelta: r.QuantityDelta,
		UnitCost:      r.UnitCost,
		AllowNegative: r.AllowNegative,
	}

	if r.LotID != nil {
		lotID, err := id.Parse(*r.LotID)
		if err != nil {
			return adjustments.Line{}, apperror.NewValidation("invalid lot id").
				WithDetail("lotId", *r.LotID)
		}
		line.LotID = &lotID
	}
	if r.ReasonOverride != nil {
		reason := adjustments.Reason(*r.ReasonOverride)
		line.ReasonOverride = &reason
	}
	return line, nil
}

// CreateAdjustmentRequest creates a draft adjustment.
type CreateAdjustmentRequest struct {
	LocationID string                  `json:"locationId" binding:"required"`
	Reason     string                  `json:"reason" binding:"required"`
	Notes      string                  `json:"notes,omitempty"`
	Lines      []AdjustmentLineRequest `json:"lines" binding:"required"`
}

// ToLines converts request lines to domain lines.
func (r CreateAdjustmentRequest) ToLines() ([]adjustments.Line, error) {
	return toLines(r.Lines)
}

// UpdateAdjustmentRequest replaces the notes and lines of a draft.
type UpdateAdjustmentRequest struct {
	Notes string                  `json:"notes,omitempty"`
	Lines []AdjustmentLineRequest `json:"lines" binding:"required"`
}

// ToLines converts request lines to domain lines.
func (r UpdateAdjustmentRequest) ToLines() ([]adjustments.Line, error) {
	return toLines(r.Lines)
}

func toLines(reqs []AdjustmentLineRequest) ([]adjustments.Line, error) {
	lines := make([]adjustments.Line, 0, len(reqs))
	for _, lr := range reqs {
		line, err := lr.ToLine()
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, nil
}
