package alerts

import (
	"context"
	"fmt"
	"sort"
	"time"

	"lotline/internal/core/id"
	"lotline/internal/core/types"
	"lotline/internal/domain/ledger"
	"lotline/internal/domain/lots"
	"lotline/internal/domain/reorder"
	"lotline/pkg/logger"
)

// StockedLotSource yields lots with expiry and positive balance for the
// calling tenant. *lots.Service satisfies it.
type StockedLotSource interface {
	StockedLots(ctx context.Context) ([]*lots.StockedLot, error)
}

// BalanceSource yields on-hand quantities and usage history.
// *ledger.Service satisfies it.
type BalanceSource interface {
	BalanceAsOf(ctx context.Context, key ledger.BalanceKey, asOf time.Time) (types.Quantity, error)
	AverageDailyUsage(ctx context.Context, productID, locationID id.ID, windowDays int, asOf time.Time) (types.Quantity, bool, error)
}

// ConfigSource yields reorder configurations for the calling tenant.
// *reorder.Service satisfies it.
type ConfigSource interface {
	List(ctx context.Context) ([]*reorder.Config, error)
}

// Evaluator runs the expiry and low-stock sweeps.
type Evaluator struct {
	lots     StockedLotSource
	balances BalanceSource
	configs  ConfigSource
	cfg      Config
}

// NewEvaluator creates the alert evaluator.
func NewEvaluator(lotSource StockedLotSource, balances BalanceSource, configs ConfigSource, cfg Config) *Evaluator {
	return &Evaluator{
		lots:     lotSource,
		balances: balances,
		configs:  configs,
		cfg:      cfg.normalized(),
	}
}

// SweepExpiry emits a candidate for every lot with non-null expiry and
// positive balance whose days-to-expiry is at or below the emit
// threshold. Expired lots are always critical.
func (e *Evaluator) SweepExpiry(ctx context.Context, asOf time.Time, filter *Filter) ([]Candidate, error) {
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}

	stocked, err := e.lots.StockedLots(ctx)
	if err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0)
	for _, lot := range stocked {
		if lot.ExpiryDate == nil || !lot.QuantityAvailable.IsPositive() {
			continue
		}

		days := daysBetween(asOf, *lot.ExpiryDate)
		if days > e.cfg.ExpiryEmitDays {
			continue
		}

		candidates = append(candidates, Candidate{
			Type:        TypeExpiry,
			Priority:    e.expiryPriority(days),
			ReferenceID: lot.LotID,
			Message:     expiryMessage(lot, days),
			TriggeredAt: asOf,
			Details: map[string]any{
				"lot_number":     lot.LotNumber,
				"product_id":     lot.ProductID.String(),
				"location_id":    lot.LocationID.String(),
				"days_to_expiry": days,
				"quantity":       lot.QuantityAvailable.Float64(),
				"expiry_date":    lot.ExpiryDate.Format(time.RFC3339),
			},
		})
	}

	sortCandidates(candidates)
	logger.Info(ctx, "expiry sweep complete", "candidates", len(candidates))
	return filter.Apply(candidates)
}

// SweepLowStock emits a candidate for every (product, location) with a
// reorder configuration whose current on-hand is below the reorder
// point. Priority derives from estimated days of stock remaining;
// medium when no usage history exists.
func (e *Evaluator) SweepLowStock(ctx context.Context, asOf time.Time, filter *Filter) ([]Candidate, error) {
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}

	configs, err := e.configs.List(ctx)
	if err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0)
	for _, cfg := range configs {
		current, err := e.balances.BalanceAsOf(ctx, ledger.BalanceKey{
			TenantID:   cfg.TenantID,
			ProductID:  cfg.ProductID,
			LocationID: cfg.LocationID,
		}, time.Time{})
		if err != nil {
			return nil, err
		}

		if current >= cfg.ReorderPoint {
			continue
		}

		suggested := cfg.MaximumStock - current
		if suggested.IsNegative() {
			suggested = 0
		}

		priority, daysOfStock := e.lowStockPriority(ctx, cfg, current, asOf)

		details := map[string]any{
			"product_id":          cfg.ProductID.String(),
			"location_id":         cfg.LocationID.String(),
			"current_stock":       current.Float64(),
			"reorder_point":       cfg.ReorderPoint.Float64(),
			"suggested_order_qty": suggested.Float64(),
		}
		if daysOfStock != nil {
			details["days_of_stock"] = *daysOfStock
		}

		candidates = append(candidates, Candidate{
			Type:        TypeLowStock,
			Priority:    priority,
			ReferenceID: cfg.ID,
			Message: fmt.Sprintf("stock %s below reorder point %s, suggest ordering %s",
				current.String(), cfg.ReorderPoint.String(), suggested.String()),
			TriggeredAt: asOf,
			Details:     details,
		})
	}

	sortCandidates(candidates)
	logger.Info(ctx, "low-stock sweep complete", "candidates", len(candidates))
	return filter.Apply(candidates)
}

func (e *Evaluator) expiryPriority(daysToExpiry int) Priority {
	switch {
	case daysToExpiry < 0:
		return PriorityCritical
	case daysToExpiry < e.cfg.ExpiryHighDays:
		return PriorityHigh
	case daysToExpiry < e.cfg.ExpiryMediumDays:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

func (e *Evaluator) lowStockPriority(ctx context.Context, cfg *reorder.Config, current types.Quantity, asOf time.Time) (Priority, *float64) {
	usage, hasHistory, err := e.balances.AverageDailyUsage(ctx, cfg.ProductID, cfg.LocationID, e.cfg.UsageWindowDays, asOf)
	if err != nil {
		// Usage history is advisory; fall back to the no-history default
		// rather than failing the sweep.
		logger.Warn(ctx, "usage history lookup failed",
			"product_id", cfg.ProductID, "error", err)
		return PriorityMedium, nil
	}
	if !hasHistory || !usage.IsPositive() {
		return PriorityMedium, nil
	}

	daysOfStock := current.Float64() / usage.Float64()
	switch {
	case daysOfStock < float64(e.cfg.StockHighDays):
		return PriorityHigh, &daysOfStock
	case daysOfStock < float64(e.cfg.StockMediumDays):
		return PriorityMedium, &daysOfStock
	default:
		return PriorityLow, &daysOfStock
	}
}

// daysBetween returns whole days from `from` to `to`, negative when
// `to` is in the past.
func daysBetween(from, to time.Time) int {
	hours := to.Sub(from).Hours()
	days := int(hours / 24)
	if hours < 0 && days >= 0 {
		days = -1
	}
	return days
}

func expiryMessage(lot *lots.StockedLot, days int) string {
	switch {
	case days < 0:
		return fmt.Sprintf("lot %s expired %d day(s) ago with %s on hand",
			lot.LotNumber, -days, lot.QuantityAvailable.String())
	case days == 0:
		return fmt.Sprintf("lot %s expires today with %s on hand",
			lot.LotNumber, lot.QuantityAvailable.String())
	default:
		return fmt.Sprintf("lot %s expires in %d day(s) with %s on hand",
			lot.LotNumber, days, lot.QuantityAvailable.String())
	}
}

var priorityRank = map[Priority]int{
	PriorityCritical: 0,
	PriorityHigh:     1,
	PriorityMedium:   2,
	PriorityLow:      3,
}

// sortCandidates orders by priority, then reference id for stable,
// reproducible sweep output.
func sortCandidates(candidates []Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if priorityRank[candidates[i].Priority] != priorityRank[candidates[j].Priority] {
			return priorityRank[candidates[i].Priority] < priorityRank[candidates[j].Priority]
		}
		return candidates[i].ReferenceID.String() < candidates[j].ReferenceID.String()
	})
}
