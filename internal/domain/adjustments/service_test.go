package adjustments

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
	"lotline/internal/domain/ledger"
	"lotline/pkg/numerator"
)

type passthroughTx struct{}

func (passthroughTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeRepo struct {
	docs map[id.ID]*Adjustment
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{docs: make(map[id.ID]*Adjustment)}
}

func clone(adj *Adjustment) *Adjustment {
	cp := *adj
	cp.Lines = append([]Line(nil), adj.Lines...)
	return &cp
}

func (r *fakeRepo) Create(ctx context.Context, adj *Adjustment) error {
	r.docs[adj.ID] = clone(adj)
	return nil
}

func (r *fakeRepo) GetByID(ctx context.Context, tenantID string, adjID id.ID) (*Adjustment, error) {
	adj, ok := r.docs[adjID]
	if !ok || adj.TenantID != tenantID {
		return nil, apperror.NewNotFound("adjustment", adjID)
	}
	return clone(adj), nil
}

func (r *fakeRepo) GetForUpdate(ctx context.Context, tenantID string, adjID id.ID) (*Adjustment, error) {
	return r.GetByID(ctx, tenantID, adjID)
}

func (r *fakeRepo) UpdateStatus(ctx context.Context, adj *Adjustment) error {
	stored, ok := r.docs[adj.ID]
	if !ok {
		return apperror.NewNotFound("adjustment", adj.ID)
	}
	if stored.Version != adj.Version {
		return apperror.NewConcurrencyConflict("adjustment", adj.ID)
	}
	adj.Version++
	r.docs[adj.ID] = clone(adj)
	return nil
}

func (r *fakeRepo) SaveLines(ctx context.Context, adj *Adjustment) error {
	r.docs[adj.ID] = clone(adj)
	return nil
}

func (r *fakeRepo) List(ctx context.Context, tenantID string, filter ListFilter) ([]*Adjustment, int, error) {
	var out []*Adjustment
	for _, adj := range r.docs {
		if adj.TenantID == tenantID {
			out = append(out, clone(adj))
		}
	}
	return out, len(out), nil
}

// fakeLedger applies the same negative-balance invariant as the real
// ledger service, against an in-memory balance map.
type fakeLedger struct {
	entries  []*ledger.Entry
	balances map[string]types.Quantity
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{balances: make(map[string]types.Quantity)}
}

func (l *fakeLedger) seed(productID id.ID, lotID id.ID, quantity string) {
	l.balances[productID.String()+"|"+lotID.String()] += mustQty(quantity)
}

func (l *fakeLedger) Append(ctx context.Context, entries []*ledger.Entry) error {
	staged := make(map[string]types.Quantity)
	for k, v := range l.balances {
		staged[k] = v
	}
	for _, e := range entries {
		if e.LotID == nil {
			continue
		}
		key := e.ProductID.String() + "|" + e.LotID.String()
		staged[key] += e.Quantity
		if staged[key].IsNegative() && !e.AllowNegative {
			return apperror.NewNegativeBalance(
				e.ProductID.String(), e.LotID.String(),
				e.Quantity.Abs().String(), l.balances[key].String(),
			)
		}
	}
	l.balances = staged
	l.entries = append(l.entries, entries...)
	return nil
}

func (l *fakeLedger) entriesFor(adjID id.ID) int {
	n := 0
	for _, e := range l.entries {
		if e.RefID == adjID {
			n++
		}
	}
	return n
}

func mustQty(s string) types.Quantity {
	q, err := types.ParseQuantity(s)
	if err != nil {
		panic(err)
	}
	return q
}

func testCtx() context.Context {
	return identity.WithIdentity(context.Background(), identity.Identity{
		TenantID: "t1",
		ActorID:  "u1",
	})
}

func sequentialNumbers() *numerator.MockGenerator {
	seq := 0
	return &numerator.MockGenerator{
		GetNextNumberFunc: func(ctx context.Context, cfg numerator.Config, opts *numerator.Options, period time.Time) (string, error) {
			seq++
			return fmt.Sprintf("%s-%s-%05d", cfg.Prefix, period.Format("2006"), seq), nil
		},
	}
}

func newTestService(repo *fakeRepo, led *fakeLedger) *Service {
	return NewService(repo, led, sequentialNumbers(), OpenPolicy{}, passthroughTx{}, nil)
}

func TestCreate_AssignsNumberAndDraftStatus(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, newFakeLedger())

	adj, err := svc.Create(testCtx(), id.New(), ReasonCorrection, "count fix", []Line{
		{ProductID: id.New(), UOM: "kg", QuantityDelta: mustQty("5")},
	})
	require.NoError(t, err)

	assert.Equal(t, StatusDraft, adj.Status)
	assert.Regexp(t, `^ADJ-\d{4}-\d{5}$`, adj.Number)
	assert.Equal(t, "u1", adj.CreatedBy)
	assert.Len(t, adj.Lines, 1)
	assert.Equal(t, 1, adj.Lines[0].LineNo)

	// Two more creates get distinct sequential numbers.
	adj2, err := svc.Create(testCtx(), id.New(), ReasonDamage, "", []Line{
		{ProductID: id.New(), QuantityDelta: mustQty("1")},
	})
	require.NoError(t, err)
	assert.NotEqual(t, adj.Number, adj2.Number)
}

func TestCreate_RejectsEmptyLines(t *testing.T) {
	svc := newTestService(newFakeRepo(), newFakeLedger())

	_, err := svc.Create(testCtx(), id.New(), ReasonCorrection, "", nil)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}

func TestApproveThenPost_CorrectionFlow(t *testing.T) {
	repo := newFakeRepo()
	led := newFakeLedger()
	svc := newTestService(repo, led)

	lotID := id.New()
	led.seed(id.New(), lotID, "0") // unrelated lot

	adj, err := svc.Create(testCtx(), id.New(), ReasonCorrection, "found extra", []Line{
		{ProductID: id.New(), LotID: &lotID, UOM: "ea", QuantityDelta: mustQty("5")},
	})
	require.NoError(t, err)

	approved, err := svc.Approve(testCtx(), adj.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, approved.Status)

	posted, err := svc.Post(testCtx(), adj.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPosted, posted.Status)
	require.NotNil(t, posted.PostedBy)
	assert.Equal(t, "u1", *posted.PostedBy)

	// Exactly one ledger entry, adjustment-typed, delta +5.
	require.Equal(t, 1, led.entriesFor(adj.ID))
	entry := led.entries[0]
	assert.Equal(t, ledger.MovementAdjustment, entry.MovementType)
	assert.Equal(t, ledger.RefTypeAdjustment, entry.RefType)
	assert.Equal(t, "5.0000", entry.Quantity.String())
}

func TestPost_DraftFailsWithInvalidTransition(t *testing.T) {
	repo := newFakeRepo()
	led := newFakeLedger()
	svc := newTestService(repo, led)

	adj, err := svc.Create(testCtx(), id.New(), ReasonWaste, "", []Line{
		{ProductID: id.New(), QuantityDelta: mustQty("-1")},
	})
	require.NoError(t, err)

	_, err = svc.Post(testCtx(), adj.ID)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInvalidTransition, appErr.Code)

	// Zero ledger entries and state unchanged.
	assert.Equal(t, 0, led.entriesFor(adj.ID))
	stored, err := svc.Get(testCtx(), adj.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDraft, stored.Status)
}

func TestPost_InvariantViolationKeepsApproved(t *testing.T) {
	repo := newFakeRepo()
	led := newFakeLedger()
	svc := newTestService(repo, led)

	productID, lotID := id.New(), id.New()
	led.seed(productID, lotID, "40")

	adj, err := svc.Create(testCtx(), id.New(), ReasonSpoilage, "", []Line{
		{ProductID: productID, LotID: &lotID, UOM: "kg", QuantityDelta: mustQty("-50")},
	})
	require.NoError(t, err)
	_, err = svc.Approve(testCtx(), adj.ID)
	require.NoError(t, err)

	_, err = svc.Post(testCtx(), adj.ID)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInvariantViolation, appErr.Code)

	// Atomicity: document remains approved, zero entries written.
	stored, err := svc.Get(testCtx(), adj.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, stored.Status)
	assert.Equal(t, 0, led.entriesFor(adj.ID))
}

func TestPost_ClosedPeriodRejected(t *testing.T) {
	repo := newFakeRepo()
	led := newFakeLedger()
	svc := NewService(repo, led, sequentialNumbers(),
		NewStrictPolicy(time.Now().UTC().AddDate(1, 0, 0)), passthroughTx{}, nil)

	adj, err := svc.Create(testCtx(), id.New(), ReasonCorrection, "", []Line{
		{ProductID: id.New(), QuantityDelta: mustQty("1")},
	})
	require.NoError(t, err)
	_, err = svc.Approve(testCtx(), adj.ID)
	require.NoError(t, err)

	_, err = svc.Post(testCtx(), adj.ID)
	require.Error(t, err)
	appErr, _ := apperror.AsAppError(err)
	assert.Equal(t, apperror.CodePeriodClosed, appErr.Code)
	assert.Equal(t, 0, led.entriesFor(adj.ID))
}

func TestUpdateDraft_ReplacesLines(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, newFakeLedger())

	adj, err := svc.Create(testCtx(), id.New(), ReasonCorrection, "v1", []Line{
		{ProductID: id.New(), QuantityDelta: mustQty("1")},
	})
	require.NoError(t, err)

	updated, err := svc.UpdateDraft(testCtx(), adj.ID, "v2", []Line{
		{ProductID: id.New(), QuantityDelta: mustQty("2")},
		{ProductID: id.New(), QuantityDelta: mustQty("-3")},
	})
	require.NoError(t, err)
	assert.Equal(t, "v2", updated.Notes)
	require.Len(t, updated.Lines, 2)
	assert.Equal(t, 1, updated.Lines[0].LineNo)
	assert.Equal(t, 2, updated.Lines[1].LineNo)
}

func TestUpdateDraft_RejectedAfterApproval(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, newFakeLedger())

	adj, err := svc.Create(testCtx(), id.New(), ReasonCorrection, "", []Line{
		{ProductID: id.New(), QuantityDelta: mustQty("1")},
	})
	require.NoError(t, err)
	_, err = svc.Approve(testCtx(), adj.ID)
	require.NoError(t, err)

	_, err = svc.UpdateDraft(testCtx(), adj.ID, "", []Line{
		{ProductID: id.New(), QuantityDelta: mustQty("2")},
	})
	require.Error(t, err)
	appErr, _ := apperror.AsAppError(err)
	assert.Equal(t, "LINES_IMMUTABLE", appErr.Code)
}

func TestGet_WrongTenantIsNotFound(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, newFakeLedger())

	adj, err := svc.Create(testCtx(), id.New(), ReasonTheft, "", []Line{
		{ProductID: id.New(), QuantityDelta: mustQty("-1")},
	})
	require.NoError(t, err)

	otherCtx := identity.WithIdentity(context.Background(), identity.Identity{
		TenantID: "t2", ActorID: "u9",
	})
	_, err = svc.Get(otherCtx, adj.ID)
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}
