package ledger

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lotline/internal/core/apperror"
	"lotline/internal/core/id"
	"lotline/internal/core/identity"
	"lotline/internal/core/types"
)

// passthroughTx runs fn directly; rollback is simulated by the fake
// repo snapshotting its state before fn and restoring on error.
type passthroughTx struct{}

func (passthroughTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeRepo struct {
	entries  []*Entry
	balances map[string]types.Quantity

	failCreate error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{balances: make(map[string]types.Quantity)}
}

func balKey(key BalanceKey) string {
	lot := "-"
	if key.LotID != nil {
		lot = key.LotID.String()
	}
	return fmt.Sprintf("%s|%s|%s|%s", key.TenantID, key.ProductID, key.LocationID, lot)
}

func (r *fakeRepo) CreateEntries(ctx context.Context, entries []*Entry) error {
	if r.failCreate != nil {
		return r.failCreate
	}
	r.entries = append(r.entries, entries...)
	return nil
}

func (r *fakeRepo) ApplyBalanceDelta(ctx context.Context, key BalanceKey, delta types.Quantity) (types.Quantity, error) {
	k := balKey(key)
	r.balances[k] += delta
	return r.balances[k], nil
}

func (r *fakeRepo) GetBalance(ctx context.Context, key BalanceKey) (types.Quantity, error) {
	return r.balances[balKey(key)], nil
}

func (r *fakeRepo) SumDeltasAsOf(ctx context.Context, key BalanceKey, asOf time.Time) (types.Quantity, error) {
	var sum types.Quantity
	for _, e := range r.entries {
		if e.TenantID != key.TenantID || e.ProductID != key.ProductID || e.LocationID != key.LocationID {
			continue
		}
		if key.LotID != nil && (e.LotID == nil || *e.LotID != *key.LotID) {
			continue
		}
		if e.TxnTime.After(asOf) {
			continue
		}
		sum += e.Quantity
	}
	return sum, nil
}

func (r *fakeRepo) ListEntries(ctx context.Context, tenantID string, filter EntryFilter) ([]*Entry, error) {
	var out []*Entry
	for _, e := range r.entries {
		if e.TenantID == tenantID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeRepo) ListBalances(ctx context.Context, tenantID string, filter BalanceFilter) ([]*Balance, error) {
	return nil, nil
}

func (r *fakeRepo) AverageDailyUsage(ctx context.Context, tenantID string, productID, locationID id.ID, windowDays int, asOf time.Time) (types.Quantity, bool, error) {
	return 0, false, nil
}

func testCtx() context.Context {
	return identity.WithIdentity(context.Background(), identity.Identity{
		TenantID: "t1",
		ActorID:  "u1",
	})
}

func makeEntry(productID, locationID id.ID, lotID *id.ID, qty string) *Entry {
	return &Entry{
		TenantID:     "t1",
		ProductID:    productID,
		LocationID:   locationID,
		LotID:        lotID,
		TxnTime:      time.Now().UTC(),
		MovementType: MovementAdjustment,
		Quantity:     mustQty(qty),
		RefType:      RefTypeAdjustment,
		RefID:        id.New(),
	}
}

func mustQty(s string) types.Quantity {
	q, err := types.ParseQuantity(s)
	if err != nil {
		panic(err)
	}
	return q
}

func TestAppend_EmptyBatch(t *testing.T) {
	svc := NewService(newFakeRepo(), passthroughTx{})

	err := svc.Append(testCtx(), nil)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}

func TestAppend_WritesEntriesAndBalances(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, passthroughTx{})

	productID, locationID := id.New(), id.New()
	lotID := id.New()

	err := svc.Append(testCtx(), []*Entry{
		makeEntry(productID, locationID, &lotID, "10"),
		makeEntry(productID, locationID, &lotID, "5.5"),
	})
	require.NoError(t, err)
	require.Len(t, repo.entries, 2)

	bal, err := svc.BalanceAsOf(testCtx(), BalanceKey{
		TenantID: "t1", ProductID: productID, LocationID: locationID, LotID: &lotID,
	}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, "15.5000", bal.String())

	// Entries got ids, actor, and created timestamps assigned.
	for _, e := range repo.entries {
		assert.False(t, id.IsNil(e.ID))
		assert.Equal(t, "u1", e.CreatedBy)
		assert.False(t, e.CreatedAt.IsZero())
	}
}

func TestAppend_RejectsNegativeLotBalance(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, passthroughTx{})

	productID, locationID := id.New(), id.New()
	lotID := id.New()

	// Seed the lot with 40 on hand.
	require.NoError(t, svc.Append(testCtx(), []*Entry{
		makeEntry(productID, locationID, &lotID, "40"),
	}))

	err := svc.Append(testCtx(), []*Entry{
		makeEntry(productID, locationID, &lotID, "-50"),
	})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInvariantViolation, appErr.Code)
	assert.Equal(t, "40.0000", appErr.Details["available"])
	assert.Equal(t, "50.0000", appErr.Details["requested"])
}

func TestAppend_OverrideAllowsNegative(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, passthroughTx{})

	productID, locationID := id.New(), id.New()
	lotID := id.New()

	e := makeEntry(productID, locationID, &lotID, "-3")
	e.AllowNegative = true

	require.NoError(t, svc.Append(testCtx(), []*Entry{e}))

	bal, err := svc.BalanceAsOf(testCtx(), BalanceKey{
		TenantID: "t1", ProductID: productID, LocationID: locationID, LotID: &lotID,
	}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, "-3.0000", bal.String())
}

func TestAppend_UntrackedKeyMayGoNegative(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, passthroughTx{})

	productID, locationID := id.New(), id.New()

	err := svc.Append(testCtx(), []*Entry{
		makeEntry(productID, locationID, nil, "-7"),
	})
	require.NoError(t, err)
}

func TestAppend_AggregatesDeltasPerKey(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, passthroughTx{})

	productID, locationID := id.New(), id.New()
	lotID := id.New()

	// +10 and -8 on the same lot in one batch: the net +2 passes even
	// though -8 alone would exceed a zero starting balance.
	err := svc.Append(testCtx(), []*Entry{
		makeEntry(productID, locationID, &lotID, "10"),
		makeEntry(productID, locationID, &lotID, "-8"),
	})
	require.NoError(t, err)

	bal, err := svc.BalanceAsOf(testCtx(), BalanceKey{
		TenantID: "t1", ProductID: productID, LocationID: locationID, LotID: &lotID,
	}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, "2.0000", bal.String())
}

func TestAppend_ValidationRejectsZeroDelta(t *testing.T) {
	svc := NewService(newFakeRepo(), passthroughTx{})

	productID, locationID := id.New(), id.New()
	err := svc.Append(testCtx(), []*Entry{
		makeEntry(productID, locationID, nil, "0"),
	})
	require.Error(t, err)
	appErr, _ := apperror.AsAppError(err)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}

func TestBalanceAsOf_Historical(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, passthroughTx{})

	productID, locationID := id.New(), id.New()
	lotID := id.New()

	early := makeEntry(productID, locationID, &lotID, "10")
	early.TxnTime = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	late := makeEntry(productID, locationID, &lotID, "5")
	late.TxnTime = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, svc.Append(testCtx(), []*Entry{early, late}))

	key := BalanceKey{TenantID: "t1", ProductID: productID, LocationID: locationID, LotID: &lotID}

	bal, err := svc.BalanceAsOf(testCtx(), key, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "10.0000", bal.String())

	bal, err = svc.BalanceAsOf(testCtx(), key, time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "15.0000", bal.String())
}
