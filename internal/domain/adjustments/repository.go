package adjustments

import (
	"context"
	"time"

	"lotline/internal/core/id"
)

// Repository defines persistence operations for adjustments.
// Implementations must join the ambient transaction from context.
type Repository interface {
	// Create inserts the document header and its lines.
	Create(ctx context.Context, adj *Adjustment) error

	// GetByID returns the document with lines, or NotFound.
	GetByID(ctx context.Context, tenantID string, adjID id.ID) (*Adjustment, error)

	// GetForUpdate returns the document with lines and takes a row lock
	// on the header, serializing concurrent transitions.
	GetForUpdate(ctx context.Context, tenantID string, adjID id.ID) (*Adjustment, error)

	// UpdateStatus persists a status transition. It matches on the
	// document's current version and returns ConcurrencyConflict when
	// another writer got there first.
	UpdateStatus(ctx context.Context, adj *Adjustment) error

	// SaveLines replaces the lines of a draft document.
	SaveLines(ctx context.Context, adj *Adjustment) error

	// List returns documents for a tenant matching the filter, newest
	// first, plus the total count for pagination.
	List(ctx context.Context, tenantID string, filter ListFilter) ([]*Adjustment, int, error)
}

// ListFilter narrows adjustment listings.
type ListFilter struct {
	Status     *Status
	Reason     *Reason
	LocationID *id.ID
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
}
