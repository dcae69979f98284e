package adjustments

import (
	"context"
	"time"

	"lotline/internal/core/apperror"
)

// PostingPolicy decides whether a posting with a given transaction date
// is allowed. Tenants on regulatory closed-period accounting use the
// strict policy; the open policy suits development.
type PostingPolicy interface {
	// CanPost checks if a document can be posted with the given date.
	CanPost(ctx context.Context, docDate time.Time) error

	// GetClosedPeriod returns the date until which the period is closed.
	GetClosedPeriod(ctx context.Context) time.Time
}

// StrictPolicy forbids postings dated inside the closed period.
type StrictPolicy struct {
	closedUntil time.Time
}

// NewStrictPolicy creates a policy that rejects dates before closedUntil.
func NewStrictPolicy(closedUntil time.Time) *StrictPolicy {
	return &StrictPolicy{closedUntil: closedUntil}
}

func (p *StrictPolicy) CanPost(ctx context.Context, docDate time.Time) error {
	if docDate.Before(p.closedUntil) {
		return apperror.NewPeriodClosed(p.closedUntil.Format("2006-01"))
	}
	return nil
}

func (p *StrictPolicy) GetClosedPeriod(ctx context.Context) time.Time {
	return p.closedUntil
}

// OpenPolicy allows all postings (development/testing).
type OpenPolicy struct{}

func (OpenPolicy) CanPost(ctx context.Context, docDate time.Time) error { return nil }
func (OpenPolicy) GetClosedPeriod(ctx context.Context) time.Time        { return time.Time{} }
