// Package reorder_repo provides the PostgreSQL implementation of the
// reorder configuration repository.
package reorder_repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"lotline/internal/core/apperror"
	"lotline/internal/core/id"
	"lotline/internal/domain/reorder"
	"lotline/internal/infrastructure/storage/postgres"
)

const configsTable = "reorder_configs"

// ReorderRepo implements reorder.Repository.
type ReorderRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewReorderRepo creates a new reorder configuration repository.
func NewReorderRepo(txm *postgres.TxManager) *ReorderRepo {
	return &ReorderRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var configColumns = []string{
	"id", "tenant_id", "product_id", "location_id",
	"reorder_point", "maximum_stock", "safety_stock", "supplier_lead_time_days",
	"version", "created_by", "created_at", "updated_by", "updated_at",
}

// Upsert inserts or replaces the configuration keyed by
// (tenant, product, location). The version check on the UPDATE arm
// rejects stale writes.
func (r *ReorderRepo) Upsert(ctx context.Context, cfg *reorder.Config) error {
	sql := `
		INSERT INTO reorder_configs (
			id, tenant_id, product_id, location_id,
			reorder_point, maximum_stock, safety_stock, supplier_lead_time_days,
			version, created_by, created_at, updated_by, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 1, $9, $10, $11, $12)
		ON CONFLICT (tenant_id, product_id, location_id)
		DO UPDATE SET
			reorder_point = EXCLUDED.reorder_point,
			maximum_stock = EXCLUDED.maximum_stock,
			safety_stock = EXCLUDED.safety_stock,
			supplier_lead_time_days = EXCLUDED.supplier_lead_time_days,
			version = reorder_configs.version + 1,
			updated_by = EXCLUDED.updated_by,
			updated_at = EXCLUDED.updated_at
		WHERE reorder_configs.version = $13
		RETURNING id, version
	`

	err := r.txm.GetQuerier(ctx).QueryRow(ctx, sql,
		cfg.ID, cfg.TenantID, cfg.ProductID, cfg.LocationID,
		cfg.ReorderPoint, cfg.MaximumStock, cfg.SafetyStock, cfg.SupplierLeadTimeDays,
		cfg.CreatedBy, cfg.CreatedAt, cfg.UpdatedBy, cfg.UpdatedAt,
		cfg.Version,
	).Scan(&cfg.ID, &cfg.Version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperror.NewConcurrencyConflict("reorder_config", cfg.ID).
				WithDetail("productId", cfg.ProductID).
				WithDetail("locationId", cfg.LocationID)
		}
		return postgres.TranslateError(fmt.Errorf("upsert reorder config: %w", err))
	}
	return nil
}

// GetByKey returns the configuration for one (product, location).
func (r *ReorderRepo) GetByKey(ctx context.Context, tenantID string, productID, locationID id.ID) (*reorder.Config, error) {
	q := r.builder.Select(configColumns...).From(configsTable).
		Where(squirrel.Eq{
			"tenant_id":   tenantID,
			"product_id":  productID,
			"location_id": locationID,
		})

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var cfg reorder.Config
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &cfg, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("reorder config", productID)
		}
		return nil, fmt.Errorf("get reorder config: %w", err)
	}
	return &cfg, nil
}

// ListByTenant returns all configurations for a tenant.
func (r *ReorderRepo) ListByTenant(ctx context.Context, tenantID string) ([]*reorder.Config, error) {
	q := r.builder.Select(configColumns...).From(configsTable).
		Where(squirrel.Eq{"tenant_id": tenantID}).
		OrderBy("product_id", "location_id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var configs []*reorder.Config
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &configs, sql, args...); err != nil {
		return nil, fmt.Errorf("select reorder configs: %w", err)
	}
	return configs, nil
}

// Delete removes a configuration.
func (r *ReorderRepo) Delete(ctx context.Context, tenantID string, configID id.ID) error {
	q := r.builder.Delete(configsTable).
		Where(squirrel.Eq{"tenant_id": tenantID, "id": configID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete reorder config: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("reorder config", configID)
	}
	return nil
}

// TenantIDs returns every tenant with at least one configuration.
func (r *ReorderRepo) TenantIDs(ctx context.Context) ([]string, error) {
	sql := `SELECT DISTINCT tenant_id FROM reorder_configs ORDER BY tenant_id`

	var ids []string
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &ids, sql); err != nil {
		return nil, fmt.Errorf("select tenant ids: %w", err)
	}
	return ids, nil
}

// Ensure interface compliance.
var _ reorder.Repository = (*ReorderRepo)(nil)
