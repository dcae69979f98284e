// Package allocation implements FEFO (First-Expiry-First-Out) lot
// picking recommendations.
//
// The engine is read-only and advisory: it ranks available lots and
// explains how a demand quantity would be satisfied, but never moves
// stock. Actual movement is recorded by a separate posting that uses
// the lot ids recommended here.
package allocation

import (
	"context"
	"sort"
	"time"

	"lotline/internal/core/apperror"
	"lotline/internal/core/id"
	"lotline/internal/core/types"
	"lotline/internal/domain/lots"
)

// ExpiryStatus classifies a lot's remaining shelf life.
type ExpiryStatus string

const (
	StatusExpired           ExpiryStatus = "expired"
	StatusExpiringSoon      ExpiryStatus = "expiring_soon"
	StatusApproachingExpiry ExpiryStatus = "approaching_expiry"
	StatusFresh             ExpiryStatus = "fresh"
)

// Recommendation is one ranked lot in a pick list.
type Recommendation struct {
	LotID      id.ID      `json:"lotId"`
	LotNumber  string     `json:"lotNumber"`
	ExpiryDate *time.Time `json:"expiryDate,omitempty"`

	// PickPriority is the 1-based FEFO rank.
	PickPriority int `json:"pickPriority"`

	ExpiryStatus ExpiryStatus `json:"expiryStatus"`

	// DaysToExpiry is nil for lots without expiry.
	DaysToExpiry *int `json:"daysToExpiry,omitempty"`

	QuantityAvailable types.Quantity `json:"quantityAvailable"`

	// QuantityToPick is the portion of this lot consumed by the demand;
	// zero when no demand quantity was supplied.
	QuantityToPick types.Quantity `json:"quantityToPick"`

	UnitCost types.Money `json:"unitCost"`
}

// Result is a full FEFO recommendation.
type Result struct {
	Recommendations []Recommendation `json:"recommendations"`

	// TotalAvailable is the sum of all available lot quantities.
	TotalAvailable types.Quantity `json:"totalAvailable"`

	// QuantityNeeded echoes the demand, when one was supplied.
	QuantityNeeded *types.Quantity `json:"quantityNeeded,omitempty"`

	// SufficientStock is true iff TotalAvailable >= QuantityNeeded.
	// Always false when nothing is available and a demand was given.
	SufficientStock bool `json:"sufficientStock"`

	// LotsRequired is the number of lots touched to satisfy the demand,
	// capped at the available lot count when stock is insufficient.
	LotsRequired int `json:"lotsRequired"`
}

// LotSource yields available lots for one product/location.
// *lots.Service satisfies it.
type LotSource interface {
	AvailableLots(ctx context.Context, productID, locationID id.ID, excludeExpired bool, asOf time.Time) ([]*lots.LotBalance, error)
}

// Engine produces FEFO pick recommendations.
type Engine struct {
	source LotSource
	cfg    Config
}

// NewEngine creates the allocation engine.
func NewEngine(source LotSource, cfg Config) *Engine {
	return &Engine{source: source, cfg: cfg.normalized()}
}

// Recommend ranks available lots of one product at one location in
// FEFO order. When quantityNeeded is non-nil, lots are greedily
// consumed in rank order; the last consumed lot may be partial.
// A nil quantityNeeded returns the pure advisory ranking.
func (e *Engine) Recommend(ctx context.Context, productID, locationID id.ID, quantityNeeded *types.Quantity, excludeExpired bool, asOf time.Time) (*Result, error) {
	if quantityNeeded != nil && !quantityNeeded.IsPositive() {
		return nil, apperror.NewValidation("quantity needed must be positive").
			WithDetail("quantityNeeded", quantityNeeded.String())
	}
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}

	available, err := e.source.AvailableLots(ctx, productID, locationID, excludeExpired, asOf)
	if err != nil {
		return nil, err
	}

	// FEFO order: earliest expiry first, null expiry last; within the
	// same expiry, earlier receipt first.
	sort.SliceStable(available, func(i, j int) bool {
		a, b := available[i], available[j]
		switch {
		case a.ExpiryDate == nil && b.ExpiryDate == nil:
			return a.ReceivedAt.Before(b.ReceivedAt)
		case a.ExpiryDate == nil:
			return false
		case b.ExpiryDate == nil:
			return true
		case !a.ExpiryDate.Equal(*b.ExpiryDate):
			return a.ExpiryDate.Before(*b.ExpiryDate)
		default:
			return a.ReceivedAt.Before(b.ReceivedAt)
		}
	})

	result := &Result{
		Recommendations: make([]Recommendation, 0, len(available)),
		QuantityNeeded:  quantityNeeded,
	}

	var remaining types.Quantity
	if quantityNeeded != nil {
		remaining = *quantityNeeded
	}

	for rank, lot := range available {
		rec := Recommendation{
			LotID:             lot.LotID,
			LotNumber:         lot.LotNumber,
			ExpiryDate:        lot.ExpiryDate,
			PickPriority:      rank + 1,
			QuantityAvailable: lot.QuantityAvailable,
			UnitCost:          lot.UnitCost,
		}
		rec.ExpiryStatus, rec.DaysToExpiry = e.classify(lot.ExpiryDate, asOf)

		if quantityNeeded != nil && remaining.IsPositive() {
			pick := lot.QuantityAvailable
			if pick > remaining {
				pick = remaining
			}
			rec.QuantityToPick = pick
			remaining -= pick
			result.LotsRequired++
		}

		result.TotalAvailable += lot.QuantityAvailable
		result.Recommendations = append(result.Recommendations, rec)
	}

	if quantityNeeded != nil {
		result.SufficientStock = result.TotalAvailable >= *quantityNeeded
	}

	return result, nil
}

// classify buckets an expiry date relative to asOf.
func (e *Engine) classify(expiry *time.Time, asOf time.Time) (ExpiryStatus, *int) {
	if expiry == nil {
		return StatusFresh, nil
	}

	days := int(expiry.Sub(asOf).Hours() / 24)
	if expiry.Before(asOf) {
		// Truncation rounds toward zero; force partial days negative.
		if days >= 0 {
			days = -1
		}
		return StatusExpired, &days
	}

	switch {
	case days < e.cfg.ExpiringSoonDays:
		return StatusExpiringSoon, &days
	case days < e.cfg.ApproachingExpiryDays:
		return StatusApproachingExpiry, &days
	default:
		return StatusFresh, &days
	}
}
