// Package ledger_repo provides the PostgreSQL implementation of the
// ledger repository.
package ledger_repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"lotline/internal/core/id"
	"lotline/internal/core/types"
	"lotline/internal/domain/ledger"
	"lotline/internal/infrastructure/storage/postgres"
)

const (
	ledgerTable   = "inventory_ledger"
	balancesTable = "stock_balances"
)

// nilLotSentinel stands in for "no lot" in the balance unique key,
// since NULLs never conflict with each other in Postgres.
const nilLotSentinel = "00000000-0000-0000-0000-000000000000"

// LedgerRepo implements ledger.Repository.
type LedgerRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewLedgerRepo creates a new ledger repository.
func NewLedgerRepo(txm *postgres.TxManager) *LedgerRepo {
	return &LedgerRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var ledgerColumns = []string{
	"id", "tenant_id", "product_id", "location_id", "lot_id",
	"txn_time", "movement_type", "quantity", "unit_cost",
	"ref_type", "ref_id", "note", "allow_negative",
	"created_by", "created_at",
}

// CreateEntries batch-inserts entries. Uses the COPY protocol when
// inside a transaction, which appends always are.
func (r *LedgerRepo) CreateEntries(ctx context.Context, entries []*ledger.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	if tx := r.txm.GetTx(ctx); tx != nil {
		inserter := postgres.NewBatchInserter(r.txm)
		rows := make([][]any, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, []any{
				e.ID, e.TenantID, e.ProductID, e.LocationID, e.LotID,
				e.TxnTime, e.MovementType, e.Quantity, e.UnitCost,
				e.RefType, e.RefID, e.Note, e.AllowNegative,
				e.CreatedBy, e.CreatedAt,
			})
		}
		if _, err := inserter.CopyFromSlice(ctx, ledgerTable, ledgerColumns, rows); err != nil {
			return fmt.Errorf("copy ledger entries: %w", err)
		}
		return nil
	}

	q := r.builder.Insert(ledgerTable).Columns(ledgerColumns...)
	for _, e := range entries {
		q = q.Values(
			e.ID, e.TenantID, e.ProductID, e.LocationID, e.LotID,
			e.TxnTime, e.MovementType, e.Quantity, e.UnitCost,
			e.RefType, e.RefID, e.Note, e.AllowNegative,
			e.CreatedBy, e.CreatedAt,
		)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert ledger entries: %w", err)
	}
	return nil
}

// ApplyBalanceDelta upserts the materialized balance row and returns
// the resulting quantity. The UPDATE arm of the upsert row-locks the
// key, so concurrent appends on the same (product, location, lot)
// serialize here and the negative check upstream sees a consistent
// value.
func (r *LedgerRepo) ApplyBalanceDelta(ctx context.Context, key ledger.BalanceKey, delta types.Quantity) (types.Quantity, error) {
	sql := `
		INSERT INTO stock_balances (tenant_id, product_id, location_id, lot_id, quantity, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (tenant_id, product_id, location_id, COALESCE(lot_id, '` + nilLotSentinel + `'::uuid))
		DO UPDATE SET
			quantity = stock_balances.quantity + EXCLUDED.quantity,
			updated_at = now()
		RETURNING quantity
	`

	var result int64
	err := r.txm.GetQuerier(ctx).QueryRow(ctx, sql,
		key.TenantID, key.ProductID, key.LocationID, key.LotID, delta,
	).Scan(&result)
	if err != nil {
		return 0, fmt.Errorf("apply balance delta: %w", err)
	}
	return types.NewQuantityFromInt64Scaled(result), nil
}

// GetBalance returns the current materialized balance (zero if absent).
func (r *LedgerRepo) GetBalance(ctx context.Context, key ledger.BalanceKey) (types.Quantity, error) {
	q := r.builder.Select("quantity").From(balancesTable).
		Where(squirrel.Eq{
			"tenant_id":   key.TenantID,
			"product_id":  key.ProductID,
			"location_id": key.LocationID,
		})
	if key.LotID != nil {
		q = q.Where(squirrel.Eq{"lot_id": *key.LotID})
	} else {
		q = q.Where("lot_id IS NULL")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	var result int64
	err = r.txm.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&result)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("get balance: %w", err)
	}
	return types.NewQuantityFromInt64Scaled(result), nil
}

// SumDeltasAsOf computes the balance at a point in ledger time from
// the entries themselves.
func (r *LedgerRepo) SumDeltasAsOf(ctx context.Context, key ledger.BalanceKey, asOf time.Time) (types.Quantity, error) {
	q := r.builder.Select("COALESCE(SUM(quantity), 0)").From(ledgerTable).
		Where(squirrel.Eq{
			"tenant_id":   key.TenantID,
			"product_id":  key.ProductID,
			"location_id": key.LocationID,
		}).
		Where(squirrel.LtOrEq{"txn_time": asOf})
	if key.LotID != nil {
		q = q.Where(squirrel.Eq{"lot_id": *key.LotID})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	var result int64
	err = r.txm.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&result)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("sum deltas: %w", err)
	}
	return types.NewQuantityFromInt64Scaled(result), nil
}

// ListEntries returns entries matching the filter, newest first.
func (r *LedgerRepo) ListEntries(ctx context.Context, tenantID string, filter ledger.EntryFilter) ([]*ledger.Entry, error) {
	q := r.builder.Select(ledgerColumns...).From(ledgerTable).
		Where(squirrel.Eq{"tenant_id": tenantID})

	if filter.ProductID != nil {
		q = q.Where(squirrel.Eq{"product_id": *filter.ProductID})
	}
	if filter.LocationID != nil {
		q = q.Where(squirrel.Eq{"location_id": *filter.LocationID})
	}
	if filter.LotID != nil {
		q = q.Where(squirrel.Eq{"lot_id": *filter.LotID})
	}
	if filter.MovementType != nil {
		q = q.Where(squirrel.Eq{"movement_type": *filter.MovementType})
	}
	if filter.RefType != "" {
		q = q.Where(squirrel.Eq{"ref_type": filter.RefType})
	}
	if filter.RefID != nil {
		q = q.Where(squirrel.Eq{"ref_id": *filter.RefID})
	}
	if filter.From != nil {
		q = q.Where(squirrel.GtOrEq{"txn_time": *filter.From})
	}
	if filter.To != nil {
		q = q.Where(squirrel.LtOrEq{"txn_time": *filter.To})
	}

	q = q.OrderBy("txn_time DESC", "created_at DESC")
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var entries []*ledger.Entry
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &entries, sql, args...); err != nil {
		return nil, fmt.Errorf("select entries: %w", err)
	}
	return entries, nil
}

// ListBalances returns materialized balances matching the filter.
func (r *LedgerRepo) ListBalances(ctx context.Context, tenantID string, filter ledger.BalanceFilter) ([]*ledger.Balance, error) {
	q := r.builder.Select(
		"tenant_id", "product_id", "location_id", "lot_id", "quantity", "updated_at",
	).From(balancesTable).
		Where(squirrel.Eq{"tenant_id": tenantID}).
		Where(squirrel.NotEq{"quantity": int64(0)})

	if filter.ProductID != nil {
		q = q.Where(squirrel.Eq{"product_id": *filter.ProductID})
	}
	if filter.LocationID != nil {
		q = q.Where(squirrel.Eq{"location_id": *filter.LocationID})
	}
	if filter.LotOnly {
		q = q.Where("lot_id IS NOT NULL")
	}

	q = q.OrderBy("product_id", "location_id")
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var balances []*ledger.Balance
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &balances, sql, args...); err != nil {
		return nil, fmt.Errorf("select balances: %w", err)
	}
	return balances, nil
}

// AverageDailyUsage sums consumption (negative issue/consume deltas)
// over the trailing window and divides by windowDays.
func (r *LedgerRepo) AverageDailyUsage(ctx context.Context, tenantID string, productID, locationID id.ID, windowDays int, asOf time.Time) (types.Quantity, bool, error) {
	sql := `
		SELECT COALESCE(SUM(-quantity), 0), COUNT(*)
		FROM inventory_ledger
		WHERE tenant_id = $1
		  AND product_id = $2
		  AND location_id = $3
		  AND movement_type IN ('issue', 'production_consume')
		  AND quantity < 0
		  AND txn_time > $4
		  AND txn_time <= $5
	`

	from := asOf.AddDate(0, 0, -windowDays)
	var totalScaled, count int64
	err := r.txm.GetQuerier(ctx).QueryRow(ctx, sql,
		tenantID, productID, locationID, from, asOf,
	).Scan(&totalScaled, &count)
	if err != nil {
		return 0, false, fmt.Errorf("usage window: %w", err)
	}
	if count == 0 {
		return 0, false, nil
	}
	return types.NewQuantityFromInt64Scaled(totalScaled / int64(windowDays)), true, nil
}

// Ensure interface compliance.
var _ ledger.Repository = (*LedgerRepo)(nil)
