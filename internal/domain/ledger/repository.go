package ledger

import (
	"context"
	"time"

	"lotline/internal/core/id"
	"lotline/internal/core/types"
)

// Repository defines persistence operations for the ledger.
// Implementations must join the ambient transaction from context so a
// whole append batch commits or rolls back as one unit.
type Repository interface {
	// CreateEntries inserts a batch of entries. Entries are append-only:
	// there is no update or delete counterpart.
	CreateEntries(ctx context.Context, entries []*Entry) error

	// ApplyBalanceDelta adds delta to the materialized balance row for
	// key, creating the row if absent, and returns the resulting
	// quantity. The upsert takes a row-level lock on the key, so two
	// concurrent appends touching the same key serialize here.
	ApplyBalanceDelta(ctx context.Context, key BalanceKey, delta types.Quantity) (types.Quantity, error)

	// GetBalance returns the current materialized balance for key
	// (zero if no row exists).
	GetBalance(ctx context.Context, key BalanceKey) (types.Quantity, error)

	// SumDeltasAsOf computes the balance for key at a point in ledger
	// time by summing entry deltas. Slower than GetBalance but exact
	// for historical queries.
	SumDeltasAsOf(ctx context.Context, key BalanceKey, asOf time.Time) (types.Quantity, error)

	// ListEntries returns entries for a tenant matching the filter,
	// newest first.
	ListEntries(ctx context.Context, tenantID string, filter EntryFilter) ([]*Entry, error)

	// ListBalances returns materialized balances for a tenant, optionally
	// narrowed to one product and/or location.
	ListBalances(ctx context.Context, tenantID string, filter BalanceFilter) ([]*Balance, error)

	// AverageDailyUsage computes mean daily consumption for a
	// (product, location) over the trailing window: the sum of negative
	// issue/consume deltas divided by windowDays. The second return is
	// false when no usage history exists in the window.
	AverageDailyUsage(ctx context.Context, tenantID string, productID, locationID id.ID, windowDays int, asOf time.Time) (types.Quantity, bool, error)
}

// BalanceFilter narrows balance listings.
type BalanceFilter struct {
	ProductID  *id.ID
	LocationID *id.ID
	LotOnly    bool
	Limit      int
	Offset     int
}
