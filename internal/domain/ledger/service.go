package ledger

import (
	"context"
	"sort"
	"time"

	"lotline/internal/core/apperror"
	"lotline/internal/core/id"
	"lotline/internal/core/identity"
	"lotline/internal/core/tx"
	"lotline/internal/core/types"
	"lotline/pkg/logger"
)

// Service enforces ledger invariants on top of the Repository.
type Service struct {
	repo Repository
	txm  tx.Manager
}

// NewService creates the ledger service.
func NewService(repo Repository, txm tx.Manager) *Service {
	return &Service{repo: repo, txm: txm}
}

// Append writes a batch of entries atomically. All-or-nothing: if any
// entry is invalid, or any lot-tracked balance would go negative
// without an override on every contributing entry, the whole batch is
// rejected and nothing is written.
//
// Callers that need the append to commit together with other writes
// (e.g. a document status transition) should invoke Append inside
// their own transaction; Append joins the ambient one.
func (s *Service) Append(ctx context.Context, entries []*Entry) error {
	if len(entries) == 0 {
		return apperror.NewValidation("at least one ledger entry is required")
	}

	tenantID := identity.GetTenantID(ctx)
	for _, e := range entries {
		if e.TenantID == "" {
			e.TenantID = tenantID
		}
		if id.IsNil(e.ID) {
			e.ID = id.New()
		}
		if e.CreatedBy == "" {
			e.CreatedBy = identity.GetActorID(ctx)
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = time.Now().UTC()
		}
		if err := e.Validate(); err != nil {
			return err
		}
		if e.TenantID != tenantID && tenantID != "" {
			return apperror.NewValidation("entry tenant mismatch")
		}
	}

	return s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.CreateEntries(ctx, entries); err != nil {
			return err
		}

		for _, agg := range aggregateDeltas(entries) {
			newBalance, err := s.repo.ApplyBalanceDelta(ctx, agg.key, agg.delta)
			if err != nil {
				return err
			}

			// Only lot-tracked keys enforce non-negativity; untracked
			// product/location totals may dip below zero (e.g. back-dated
			// receipts arriving after issues).
			if agg.key.LotID != nil && newBalance.IsNegative() && !agg.allowNegative {
				available := newBalance - agg.delta
				logger.Warn(ctx, "ledger append rejected: negative lot balance",
					"product_id", agg.key.ProductID,
					"lot_id", agg.key.LotID,
					"delta", agg.delta.String(),
					"available", available.String(),
				)
				return apperror.NewNegativeBalance(
					agg.key.ProductID.String(),
					agg.key.LotID.String(),
					agg.delta.Abs().String(),
					available.String(),
				)
			}
		}

		logger.Info(ctx, "ledger entries appended",
			"count", len(entries),
			"ref_type", entries[0].RefType,
			"ref_id", entries[0].RefID,
		)
		return nil
	})
}

// BalanceAsOf returns the on-hand quantity for a key at asOf.
// A zero asOf means "now", served from the materialized cache;
// historical queries sum entry deltas directly.
func (s *Service) BalanceAsOf(ctx context.Context, key BalanceKey, asOf time.Time) (types.Quantity, error) {
	if key.TenantID == "" {
		key.TenantID = identity.GetTenantID(ctx)
	}
	if asOf.IsZero() {
		return s.repo.GetBalance(ctx, key)
	}
	return s.repo.SumDeltasAsOf(ctx, key, asOf)
}

// History returns ledger entries for the calling tenant, newest first.
func (s *Service) History(ctx context.Context, filter EntryFilter) ([]*Entry, error) {
	tenantID := identity.GetTenantID(ctx)
	if tenantID == "" {
		return nil, apperror.NewValidation("tenant is required")
	}
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	return s.repo.ListEntries(ctx, tenantID, filter)
}

// AverageDailyUsage reports mean daily consumption for a
// (product, location) over the trailing window ending at asOf.
func (s *Service) AverageDailyUsage(ctx context.Context, productID, locationID id.ID, windowDays int, asOf time.Time) (types.Quantity, bool, error) {
	tenantID := identity.GetTenantID(ctx)
	if tenantID == "" {
		return 0, false, apperror.NewValidation("tenant is required")
	}
	if windowDays <= 0 {
		windowDays = 30
	}
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}
	return s.repo.AverageDailyUsage(ctx, tenantID, productID, locationID, windowDays, asOf)
}

// Balances returns materialized balances for the calling tenant.
func (s *Service) Balances(ctx context.Context, filter BalanceFilter) ([]*Balance, error) {
	tenantID := identity.GetTenantID(ctx)
	if tenantID == "" {
		return nil, apperror.NewValidation("tenant is required")
	}
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	return s.repo.ListBalances(ctx, tenantID, filter)
}

type aggregatedDelta struct {
	key           BalanceKey
	delta         types.Quantity
	allowNegative bool
}

// aggregateDeltas groups entry deltas per balance key. The group keeps
// its negative-stock override only if every contributing entry carries it.
// Keys are returned in a stable order so concurrent appends lock
// balance rows in the same sequence and cannot deadlock each other.
func aggregateDeltas(entries []*Entry) []aggregatedDelta {
	type groupKey struct {
		tenantID   string
		productID  id.ID
		locationID id.ID
		lotID      id.ID
		hasLot     bool
	}

	groups := make(map[groupKey]*aggregatedDelta)
	for _, e := range entries {
		gk := groupKey{
			tenantID:   e.TenantID,
			productID:  e.ProductID,
			locationID: e.LocationID,
		}
		if e.LotID != nil {
			gk.lotID = *e.LotID
			gk.hasLot = true
		}

		agg, ok := groups[gk]
		if !ok {
			agg = &aggregatedDelta{
				key: BalanceKey{
					TenantID:   e.TenantID,
					ProductID:  e.ProductID,
					LocationID: e.LocationID,
					LotID:      e.LotID,
				},
				allowNegative: true,
			}
			groups[gk] = agg
		}
		agg.delta += e.Quantity
		agg.allowNegative = agg.allowNegative && e.AllowNegative
	}

	result := make([]aggregatedDelta, 0, len(groups))
	for _, agg := range groups {
		result = append(result, *agg)
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i].key, result[j].key
		if a.ProductID != b.ProductID {
			return a.ProductID.String() < b.ProductID.String()
		}
		if a.LocationID != b.LocationID {
			return a.LocationID.String() < b.LocationID.String()
		}
		al, bl := "", ""
		if a.LotID != nil {
			al = a.LotID.String()
		}
		if b.LotID != nil {
			bl = b.LotID.String()
		}
		return al < bl
	})
	return result
}
