// Package lot_repo provides the PostgreSQL implementation of the lot
// registry repository.
package lot_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"lotline/internal/core/apperror"
	"lotline/internal/core/id"
	"lotline/internal/domain/lots"
	"lotline/internal/infrastructure/storage/postgres"
)

const lotsTable = "lots"

// LotRepo implements lots.Repository.
type LotRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewLotRepo creates a new lot repository.
func NewLotRepo(txm *postgres.TxManager) *LotRepo {
	return &LotRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var lotColumns = []string{
	"id", "tenant_id", "product_id", "location_id",
	"lot_number", "manufacture_date", "expiry_date",
	"unit_cost", "received_at", "created_by", "created_at",
}

// Create inserts a new lot.
func (r *LotRepo) Create(ctx context.Context, lot *lots.Lot) error {
	q := r.builder.Insert(lotsTable).
		Columns(lotColumns...).
		Values(
			lot.ID, lot.TenantID, lot.ProductID, lot.LocationID,
			lot.LotNumber, lot.ManufactureDate, lot.ExpiryDate,
			lot.UnitCost, lot.ReceivedAt, lot.CreatedBy, lot.CreatedAt,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return postgres.TranslateError(fmt.Errorf("insert lot: %w", err))
	}
	return nil
}

// GetByID returns a lot by id within the tenant.
func (r *LotRepo) GetByID(ctx context.Context, tenantID string, lotID id.ID) (*lots.Lot, error) {
	q := r.builder.Select(lotColumns...).From(lotsTable).
		Where(squirrel.Eq{"tenant_id": tenantID, "id": lotID})

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lot lots.Lot
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &lot, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("lot", lotID)
		}
		return nil, fmt.Errorf("get lot: %w", err)
	}
	return &lot, nil
}

// AvailableLots joins lots with their current materialized balances at
// one location, keeping only strictly positive quantities. Expiry
// filtering against a point in time happens in the service layer.
func (r *LotRepo) AvailableLots(ctx context.Context, tenantID string, productID, locationID id.ID) ([]*lots.LotBalance, error) {
	sql := `
		SELECT l.id AS lot_id,
		       l.lot_number,
		       l.expiry_date,
		       b.quantity AS quantity_available,
		       l.unit_cost,
		       l.received_at
		FROM lots l
		JOIN stock_balances b
		  ON b.lot_id = l.id
		 AND b.tenant_id = l.tenant_id
		WHERE l.tenant_id = $1
		  AND l.product_id = $2
		  AND b.location_id = $3
		  AND b.quantity > 0
		ORDER BY l.expiry_date ASC NULLS LAST, l.received_at ASC
	`

	var balances []*lots.LotBalance
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &balances, sql, tenantID, productID, locationID); err != nil {
		return nil, fmt.Errorf("select available lots: %w", err)
	}
	return balances, nil
}

// LotsWithStock returns every expiring lot with positive balance for
// the tenant, across products and locations.
func (r *LotRepo) LotsWithStock(ctx context.Context, tenantID string) ([]*lots.StockedLot, error) {
	sql := `
		SELECT l.id AS lot_id,
		       l.lot_number,
		       l.expiry_date,
		       b.quantity AS quantity_available,
		       l.unit_cost,
		       l.received_at,
		       l.product_id,
		       b.location_id
		FROM lots l
		JOIN stock_balances b
		  ON b.lot_id = l.id
		 AND b.tenant_id = l.tenant_id
		WHERE l.tenant_id = $1
		  AND l.expiry_date IS NOT NULL
		  AND b.quantity > 0
		ORDER BY l.expiry_date ASC
	`

	var stocked []*lots.StockedLot
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &stocked, sql, tenantID); err != nil {
		return nil, fmt.Errorf("select stocked lots: %w", err)
	}
	return stocked, nil
}

// Ensure interface compliance.
var _ lots.Repository = (*LotRepo)(nil)
