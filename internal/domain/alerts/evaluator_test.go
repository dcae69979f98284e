package alerts

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lotline/internal/core/id"
	"lotline/internal/core/types"
	"lotline/internal/domain/ledger"
	"lotline/internal/domain/lots"
	"lotline/internal/domain/reorder"
)

var asOf = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type fakeSources struct {
	stocked  []*lots.StockedLot
	configs  []*reorder.Config
	balances map[string]types.Quantity
	usage    map[string]types.Quantity
}

func balanceKey(productID, locationID id.ID) string {
	return fmt.Sprintf("%s|%s", productID, locationID)
}

func (f *fakeSources) StockedLots(ctx context.Context) ([]*lots.StockedLot, error) {
	return f.stocked, nil
}

func (f *fakeSources) BalanceAsOf(ctx context.Context, key ledger.BalanceKey, at time.Time) (types.Quantity, error) {
	return f.balances[balanceKey(key.ProductID, key.LocationID)], nil
}

func (f *fakeSources) AverageDailyUsage(ctx context.Context, productID, locationID id.ID, windowDays int, at time.Time) (types.Quantity, bool, error) {
	u, ok := f.usage[balanceKey(productID, locationID)]
	return u, ok, nil
}

func (f *fakeSources) List(ctx context.Context) ([]*reorder.Config, error) {
	return f.configs, nil
}

func qty(s string) types.Quantity {
	q, err := types.ParseQuantity(s)
	if err != nil {
		panic(err)
	}
	return q
}

func stockedLot(number string, expiryDays int, quantity string) *lots.StockedLot {
	expiry := asOf.AddDate(0, 0, expiryDays)
	return &lots.StockedLot{
		LotBalance: lots.LotBalance{
			LotID:             id.New(),
			LotNumber:         number,
			ExpiryDate:        &expiry,
			QuantityAvailable: qty(quantity),
		},
		ProductID:  id.New(),
		LocationID: id.New(),
	}
}

func newEvaluator(f *fakeSources) *Evaluator {
	return NewEvaluator(f, f, f, DefaultConfig())
}

func TestSweepExpiry_Priorities(t *testing.T) {
	f := &fakeSources{stocked: []*lots.StockedLot{
		stockedLot("expired", -2, "5"),
		stockedLot("high", 2, "5"),
		stockedLot("medium", 5, "5"),
		stockedLot("low", 10, "5"),
		stockedLot("silent", 20, "5"), // beyond the 14-day emit window
	}}

	candidates, err := newEvaluator(f).SweepExpiry(context.Background(), asOf, nil)
	require.NoError(t, err)
	require.Len(t, candidates, 4)

	byLot := make(map[string]Candidate)
	for _, c := range candidates {
		byLot[c.Details["lot_number"].(string)] = c
	}
	assert.Equal(t, PriorityCritical, byLot["expired"].Priority)
	assert.Equal(t, PriorityHigh, byLot["high"].Priority)
	assert.Equal(t, PriorityMedium, byLot["medium"].Priority)
	assert.Equal(t, PriorityLow, byLot["low"].Priority)

	// Ordered by priority.
	assert.Equal(t, PriorityCritical, candidates[0].Priority)
	assert.Equal(t, -2, candidates[0].Details["days_to_expiry"])
}

func TestSweepExpiry_Idempotent(t *testing.T) {
	f := &fakeSources{stocked: []*lots.StockedLot{
		stockedLot("a", 1, "5"),
		stockedLot("b", 6, "3"),
	}}
	eval := newEvaluator(f)

	first, err := eval.SweepExpiry(context.Background(), asOf, nil)
	require.NoError(t, err)
	second, err := eval.SweepExpiry(context.Background(), asOf, nil)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestSweepLowStock_SuggestedOrderQty(t *testing.T) {
	productID, locationID := id.New(), id.New()
	f := &fakeSources{
		configs: []*reorder.Config{{
			ID:           id.New(),
			TenantID:     "t1",
			ProductID:    productID,
			LocationID:   locationID,
			ReorderPoint: qty("100"),
			MaximumStock: qty("500"),
		}},
		balances: map[string]types.Quantity{
			balanceKey(productID, locationID): qty("80"),
		},
	}

	candidates, err := newEvaluator(f).SweepLowStock(context.Background(), asOf, nil)
	require.NoError(t, err)
	require.Len(t, candidates, 1)

	c := candidates[0]
	assert.Equal(t, TypeLowStock, c.Type)
	assert.Equal(t, 420.0, c.Details["suggested_order_qty"])
	// No usage history: default medium.
	assert.Equal(t, PriorityMedium, c.Priority)
}

func TestSweepLowStock_PriorityFromDaysOfStock(t *testing.T) {
	mk := func(current, dailyUsage string) Candidate {
		productID, locationID := id.New(), id.New()
		f := &fakeSources{
			configs: []*reorder.Config{{
				ID:           id.New(),
				TenantID:     "t1",
				ProductID:    productID,
				LocationID:   locationID,
				ReorderPoint: qty("100"),
				MaximumStock: qty("200"),
			}},
			balances: map[string]types.Quantity{
				balanceKey(productID, locationID): qty(current),
			},
			usage: map[string]types.Quantity{
				balanceKey(productID, locationID): qty(dailyUsage),
			},
		}
		candidates, err := newEvaluator(f).SweepLowStock(context.Background(), asOf, nil)
		require.NoError(t, err)
		require.Len(t, candidates, 1)
		return candidates[0]
	}

	// 20 on hand / 10 per day = 2 days left.
	assert.Equal(t, PriorityHigh, mk("20", "10").Priority)
	// 50 / 10 = 5 days.
	assert.Equal(t, PriorityMedium, mk("50", "10").Priority)
	// 90 / 10 = 9 days.
	assert.Equal(t, PriorityLow, mk("90", "10").Priority)
}

func TestSweepLowStock_SkipsHealthyStock(t *testing.T) {
	productID, locationID := id.New(), id.New()
	f := &fakeSources{
		configs: []*reorder.Config{{
			ID:           id.New(),
			TenantID:     "t1",
			ProductID:    productID,
			LocationID:   locationID,
			ReorderPoint: qty("100"),
			MaximumStock: qty("500"),
		}},
		balances: map[string]types.Quantity{
			balanceKey(productID, locationID): qty("150"),
		},
	}

	candidates, err := newEvaluator(f).SweepLowStock(context.Background(), asOf, nil)
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestSweepLowStock_SuggestedNeverNegative(t *testing.T) {
	productID, locationID := id.New(), id.New()
	f := &fakeSources{
		configs: []*reorder.Config{{
			ID:           id.New(),
			TenantID:     "t1",
			ProductID:    productID,
			LocationID:   locationID,
			ReorderPoint: qty("100"),
			MaximumStock: qty("100"),
		}},
		balances: map[string]types.Quantity{
			// Overridden negative stock scenario.
			balanceKey(productID, locationID): qty("120").Neg(),
		},
	}

	candidates, err := newEvaluator(f).SweepLowStock(context.Background(), asOf, nil)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, 220.0, candidates[0].Details["suggested_order_qty"])
}

func TestSweeps_WithFilter(t *testing.T) {
	f := &fakeSources{stocked: []*lots.StockedLot{
		stockedLot("expired", -1, "5"),
		stockedLot("low", 10, "5"),
	}}

	filter, err := NewFilter(`priority in ["critical", "high"]`)
	require.NoError(t, err)

	candidates, err := newEvaluator(f).SweepExpiry(context.Background(), asOf, filter)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, PriorityCritical, candidates[0].Priority)
}
