package adjustments

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lotline/internal/core/apperror"
	"lotline/internal/core/id"
	"lotline/internal/core/types"
	"lotline/internal/domain/ledger"
)

func qty(s string) types.Quantity {
	q, err := types.ParseQuantity(s)
	if err != nil {
		panic(err)
	}
	return q
}

func draftWithLine(delta string) *Adjustment {
	adj := New("t1", id.New(), ReasonCorrection, "count fix", "u1")
	_ = adj.AddLine(Line{
		ProductID:     id.New(),
		UOM:           "kg",
		QuantityDelta: qty(delta),
	})
	return adj
}

func TestApprove_OnlyFromDraft(t *testing.T) {
	adj := draftWithLine("5")

	require.NoError(t, adj.Approve("approver", time.Now().UTC()))
	assert.Equal(t, StatusApproved, adj.Status)
	require.NotNil(t, adj.ApprovedBy)
	assert.Equal(t, "approver", *adj.ApprovedBy)
	assert.NotNil(t, adj.ApprovedAt)

	// Re-approving an approved document is an invalid transition.
	err := adj.Approve("approver", time.Now().UTC())
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInvalidTransition, appErr.Code)
	assert.Equal(t, "approved", appErr.Details["from"])
}

func TestMarkPosted_OnlyFromApproved(t *testing.T) {
	adj := draftWithLine("5")

	// Posting a draft fails.
	err := adj.markPosted("poster", time.Now().UTC())
	require.Error(t, err)
	appErr, _ := apperror.AsAppError(err)
	assert.Equal(t, apperror.CodeInvalidTransition, appErr.Code)

	require.NoError(t, adj.Approve("approver", time.Now().UTC()))
	require.NoError(t, adj.markPosted("poster", time.Now().UTC()))
	assert.Equal(t, StatusPosted, adj.Status)

	// Posting twice fails.
	err = adj.markPosted("poster", time.Now().UTC())
	require.Error(t, err)
}

func TestAddLine_ImmutableAfterApproval(t *testing.T) {
	adj := draftWithLine("5")
	require.NoError(t, adj.Approve("approver", time.Now().UTC()))

	err := adj.AddLine(Line{ProductID: id.New(), QuantityDelta: qty("1")})
	require.Error(t, err)
	appErr, _ := apperror.AsAppError(err)
	assert.Equal(t, "LINES_IMMUTABLE", appErr.Code)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Adjustment)
		wantErr bool
	}{
		{"valid", func(a *Adjustment) {}, false},
		{"no lines", func(a *Adjustment) { a.Lines = nil }, true},
		{"missing location", func(a *Adjustment) { a.LocationID = id.Nil() }, true},
		{"bad reason", func(a *Adjustment) { a.Reason = "vanished" }, true},
		{"zero delta", func(a *Adjustment) { a.Lines[0].QuantityDelta = 0 }, true},
		{"negative cost", func(a *Adjustment) { a.Lines[0].UnitCost = types.NewMoney(-1) }, true},
		{"bad override", func(a *Adjustment) {
			bad := Reason("invented")
			a.Lines[0].ReasonOverride = &bad
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adj := draftWithLine("5")
			tt.mutate(adj)
			err := adj.Validate()
			if tt.wantErr {
				require.Error(t, err)
				appErr, ok := apperror.AsAppError(err)
				require.True(t, ok)
				assert.Equal(t, apperror.CodeValidation, appErr.Code)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestGenerateEntries(t *testing.T) {
	adj := New("t1", id.New(), ReasonDamage, "dropped pallet", "u1")
	lotID := id.New()
	override := ReasonSpoilage

	require.NoError(t, adj.AddLine(Line{
		ProductID:     id.New(),
		LotID:         &lotID,
		UOM:           "kg",
		QuantityDelta: qty("-2.5"),
		UnitCost:      types.MustMoney("4.20"),
	}))
	require.NoError(t, adj.AddLine(Line{
		ProductID:      id.New(),
		UOM:            "ea",
		QuantityDelta:  qty("3"),
		ReasonOverride: &override,
		AllowNegative:  true,
	}))

	txnTime := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	entries := adj.GenerateEntries(txnTime)
	require.Len(t, entries, 2)

	for _, e := range entries {
		assert.Equal(t, ledger.MovementAdjustment, e.MovementType)
		assert.Equal(t, ledger.RefTypeAdjustment, e.RefType)
		assert.Equal(t, adj.ID, e.RefID)
		// All entries of one posting share the transaction time.
		assert.Equal(t, txnTime, e.TxnTime)
	}

	// Deltas pass through signed, exactly as entered.
	assert.Equal(t, "-2.5000", entries[0].Quantity.String())
	assert.Equal(t, lotID, *entries[0].LotID)
	assert.Equal(t, "dropped pallet", entries[0].Note)
	assert.False(t, entries[0].AllowNegative)

	assert.Equal(t, "3.0000", entries[1].Quantity.String())
	assert.Nil(t, entries[1].LotID)
	assert.Equal(t, "spoilage", entries[1].Note)
	assert.True(t, entries[1].AllowNegative)
}
