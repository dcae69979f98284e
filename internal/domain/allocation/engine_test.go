package allocation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lotline/internal/core/apperror"
	"lotline/internal/core/id"
	"lotline/internal/core/types"
	"lotline/internal/domain/lots"
)

type staticSource struct {
	lots []*lots.LotBalance
}

func (s *staticSource) AvailableLots(ctx context.Context, productID, locationID id.ID, excludeExpired bool, asOf time.Time) ([]*lots.LotBalance, error) {
	if !excludeExpired {
		return s.lots, nil
	}
	var out []*lots.LotBalance
	for _, l := range s.lots {
		if !l.IsExpired(asOf) {
			out = append(out, l)
		}
	}
	return out, nil
}

func qty(s string) types.Quantity {
	q, err := types.ParseQuantity(s)
	if err != nil {
		panic(err)
	}
	return q
}

func qtyPtr(s string) *types.Quantity {
	q := qty(s)
	return &q
}

func datePtr(t time.Time) *time.Time { return &t }

var asOf = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func lot(number string, expiry *time.Time, received time.Time, quantity string) *lots.LotBalance {
	return &lots.LotBalance{
		LotID:             id.New(),
		LotNumber:         number,
		ExpiryDate:        expiry,
		QuantityAvailable: qty(quantity),
		ReceivedAt:        received,
	}
}

func TestRecommend_GreedyConsumption(t *testing.T) {
	// Lot A expires in 2 days with 10 on hand; lot B in 30 days with 20.
	// Demand of 15 takes all of A and 5 of B.
	source := &staticSource{lots: []*lots.LotBalance{
		lot("B", datePtr(asOf.AddDate(0, 0, 30)), asOf.AddDate(0, 0, -1), "20"),
		lot("A", datePtr(asOf.AddDate(0, 0, 2)), asOf.AddDate(0, 0, -10), "10"),
	}}
	engine := NewEngine(source, DefaultConfig())

	result, err := engine.Recommend(context.Background(), id.New(), id.New(), qtyPtr("15"), true, asOf)
	require.NoError(t, err)

	require.Len(t, result.Recommendations, 2)
	assert.Equal(t, "A", result.Recommendations[0].LotNumber)
	assert.Equal(t, 1, result.Recommendations[0].PickPriority)
	assert.Equal(t, "10.0000", result.Recommendations[0].QuantityToPick.String())
	assert.Equal(t, "B", result.Recommendations[1].LotNumber)
	assert.Equal(t, 2, result.Recommendations[1].PickPriority)
	assert.Equal(t, "5.0000", result.Recommendations[1].QuantityToPick.String())

	assert.Equal(t, 2, result.LotsRequired)
	assert.True(t, result.SufficientStock)
	assert.Equal(t, "30.0000", result.TotalAvailable.String())
}

func TestRecommend_FEFOOrdering(t *testing.T) {
	early := asOf.AddDate(0, 0, 5)
	late := asOf.AddDate(0, 0, 40)
	received1 := asOf.AddDate(0, 0, -20)
	received2 := asOf.AddDate(0, 0, -5)

	source := &staticSource{lots: []*lots.LotBalance{
		lot("no-expiry", nil, received1, "5"),
		lot("late", datePtr(late), received1, "5"),
		lot("early-second", datePtr(early), received2, "5"),
		lot("early-first", datePtr(early), received1, "5"),
	}}
	engine := NewEngine(source, DefaultConfig())

	result, err := engine.Recommend(context.Background(), id.New(), id.New(), nil, true, asOf)
	require.NoError(t, err)

	var order []string
	for _, rec := range result.Recommendations {
		order = append(order, rec.LotNumber)
	}
	// Earliest expiry first; same expiry breaks ties by receipt order;
	// null expiry sorts last.
	assert.Equal(t, []string{"early-first", "early-second", "late", "no-expiry"}, order)

	// Advisory call: no consumption semantics.
	assert.Equal(t, 0, result.LotsRequired)
	for _, rec := range result.Recommendations {
		assert.True(t, rec.QuantityToPick.IsZero())
	}
}

func TestRecommend_ExpiryClassification(t *testing.T) {
	source := &staticSource{lots: []*lots.LotBalance{
		lot("expired", datePtr(asOf.AddDate(0, 0, -1)), asOf.AddDate(0, 0, -30), "5"),
		lot("soon", datePtr(asOf.AddDate(0, 0, 3)), asOf.AddDate(0, 0, -30), "5"),
		lot("approaching", datePtr(asOf.AddDate(0, 0, 14)), asOf.AddDate(0, 0, -30), "5"),
		lot("fresh", datePtr(asOf.AddDate(0, 0, 60)), asOf.AddDate(0, 0, -30), "5"),
		lot("forever", nil, asOf.AddDate(0, 0, -30), "5"),
	}}
	engine := NewEngine(source, DefaultConfig())

	result, err := engine.Recommend(context.Background(), id.New(), id.New(), nil, false, asOf)
	require.NoError(t, err)

	statuses := make(map[string]ExpiryStatus)
	for _, rec := range result.Recommendations {
		statuses[rec.LotNumber] = rec.ExpiryStatus
	}
	assert.Equal(t, StatusExpired, statuses["expired"])
	assert.Equal(t, StatusExpiringSoon, statuses["soon"])
	assert.Equal(t, StatusApproachingExpiry, statuses["approaching"])
	assert.Equal(t, StatusFresh, statuses["fresh"])
	assert.Equal(t, StatusFresh, statuses["forever"])
}

func TestRecommend_ExcludeExpired(t *testing.T) {
	source := &staticSource{lots: []*lots.LotBalance{
		lot("expired", datePtr(asOf.AddDate(0, 0, -2)), asOf.AddDate(0, 0, -30), "10"),
		lot("good", datePtr(asOf.AddDate(0, 0, 10)), asOf.AddDate(0, 0, -5), "10"),
	}}
	engine := NewEngine(source, DefaultConfig())

	result, err := engine.Recommend(context.Background(), id.New(), id.New(), nil, true, asOf)
	require.NoError(t, err)

	require.Len(t, result.Recommendations, 1)
	assert.Equal(t, "good", result.Recommendations[0].LotNumber)
}

func TestRecommend_InsufficientStock(t *testing.T) {
	source := &staticSource{lots: []*lots.LotBalance{
		lot("only", datePtr(asOf.AddDate(0, 0, 10)), asOf.AddDate(0, 0, -5), "8"),
	}}
	engine := NewEngine(source, DefaultConfig())

	result, err := engine.Recommend(context.Background(), id.New(), id.New(), qtyPtr("20"), true, asOf)
	require.NoError(t, err)

	assert.False(t, result.SufficientStock)
	// LotsRequired is capped at the available lot count.
	assert.Equal(t, 1, result.LotsRequired)
	assert.Equal(t, "8.0000", result.Recommendations[0].QuantityToPick.String())
}

func TestRecommend_NoLots(t *testing.T) {
	engine := NewEngine(&staticSource{}, DefaultConfig())

	result, err := engine.Recommend(context.Background(), id.New(), id.New(), qtyPtr("5"), true, asOf)
	require.NoError(t, err)

	assert.Empty(t, result.Recommendations)
	assert.False(t, result.SufficientStock)
	assert.True(t, result.TotalAvailable.IsZero())
	assert.Equal(t, 0, result.LotsRequired)
}

func TestRecommend_RejectsNonPositiveDemand(t *testing.T) {
	engine := NewEngine(&staticSource{}, DefaultConfig())

	for _, demand := range []string{"0", "-3"} {
		_, err := engine.Recommend(context.Background(), id.New(), id.New(), qtyPtr(demand), true, asOf)
		require.Error(t, err)
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeValidation, appErr.Code)
	}
}
