// Package adjustment_repo provides the PostgreSQL implementation of the
// adjustment document repository.
package adjustment_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"lotline/internal/core/apperror"
	"lotline/internal/core/id"
	"lotline/internal/domain/adjustments"
	"lotline/internal/infrastructure/storage/postgres"
)

const (
	headersTable = "doc_adjustments"
	linesTable   = "doc_adjustment_lines"
)

// AdjustmentRepo implements adjustments.Repository.
type AdjustmentRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewAdjustmentRepo creates a new adjustment repository.
func NewAdjustmentRepo(txm *postgres.TxManager) *AdjustmentRepo {
	return &AdjustmentRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var headerColumns = []string{
	"id", "tenant_id", "number", "location_id", "status", "reason", "notes",
	"created_by", "created_at", "approved_by", "approved_at",
	"posted_by", "posted_at", "version",
}

var lineColumns = []string{
	"id", "adjustment_id", "line_no", "product_id", "lot_id", "uom",
	"quantity_delta", "unit_cost", "reason_override", "allow_negative",
}

// Create inserts the document header and its lines in one shot.
// Callers run this inside a transaction so number reservation, header
// and lines commit together.
func (r *AdjustmentRepo) Create(ctx context.Context, adj *adjustments.Adjustment) error {
	q := r.builder.Insert(headersTable).
		Columns(headerColumns...).
		Values(
			adj.ID, adj.TenantID, adj.Number, adj.LocationID, adj.Status,
			adj.Reason, adj.Notes, adj.CreatedBy, adj.CreatedAt,
			adj.ApprovedBy, adj.ApprovedAt, adj.PostedBy, adj.PostedAt,
			adj.Version,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build header insert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return postgres.TranslateError(fmt.Errorf("insert adjustment: %w", err))
	}

	return r.insertLines(ctx, adj)
}

// GetByID returns the document with lines, or NotFound.
func (r *AdjustmentRepo) GetByID(ctx context.Context, tenantID string, adjID id.ID) (*adjustments.Adjustment, error) {
	return r.get(ctx, tenantID, adjID, false)
}

// GetForUpdate locks the header row, serializing concurrent transitions
// on the same document.
func (r *AdjustmentRepo) GetForUpdate(ctx context.Context, tenantID string, adjID id.ID) (*adjustments.Adjustment, error) {
	return r.get(ctx, tenantID, adjID, true)
}

func (r *AdjustmentRepo) get(ctx context.Context, tenantID string, adjID id.ID, forUpdate bool) (*adjustments.Adjustment, error) {
	q := r.builder.Select(headerColumns...).From(headersTable).
		Where(squirrel.Eq{"tenant_id": tenantID, "id": adjID})
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build header query: %w", err)
	}

	var adj adjustments.Adjustment
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &adj, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("adjustment", adjID)
		}
		return nil, postgres.TranslateError(fmt.Errorf("get adjustment: %w", err))
	}

	if err := r.loadLines(ctx, &adj); err != nil {
		return nil, err
	}
	return &adj, nil
}

func (r *AdjustmentRepo) loadLines(ctx context.Context, adj *adjustments.Adjustment) error {
	q := r.builder.Select(lineColumns...).From(linesTable).
		Where(squirrel.Eq{"adjustment_id": adj.ID}).
		OrderBy("line_no ASC")

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build lines query: %w", err)
	}

	adj.Lines = make([]adjustments.Line, 0)
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &adj.Lines, sql, args...); err != nil {
		return fmt.Errorf("select lines: %w", err)
	}
	return nil
}

// UpdateStatus persists a transition with an optimistic version check.
// The version the caller read must still be current; the stored row
// gets version+1.
func (r *AdjustmentRepo) UpdateStatus(ctx context.Context, adj *adjustments.Adjustment) error {
	q := r.builder.Update(headersTable).
		Set("status", adj.Status).
		Set("approved_by", adj.ApprovedBy).
		Set("approved_at", adj.ApprovedAt).
		Set("posted_by", adj.PostedBy).
		Set("posted_at", adj.PostedAt).
		Set("version", adj.Version+1).
		Where(squirrel.Eq{
			"tenant_id": adj.TenantID,
			"id":        adj.ID,
			"version":   adj.Version,
		})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build status update: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return postgres.TranslateError(fmt.Errorf("update status: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewConcurrencyConflict("adjustment", adj.ID)
	}
	adj.Version++
	return nil
}

// SaveLines replaces the full line set of a draft document.
func (r *AdjustmentRepo) SaveLines(ctx context.Context, adj *adjustments.Adjustment) error {
	del := r.builder.Delete(linesTable).
		Where(squirrel.Eq{"adjustment_id": adj.ID})

	sql, args, err := del.ToSql()
	if err != nil {
		return fmt.Errorf("build lines delete: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("delete lines: %w", err)
	}

	return r.insertLines(ctx, adj)
}

func (r *AdjustmentRepo) insertLines(ctx context.Context, adj *adjustments.Adjustment) error {
	if len(adj.Lines) == 0 {
		return nil
	}

	q := r.builder.Insert(linesTable).Columns(lineColumns...)
	for _, line := range adj.Lines {
		q = q.Values(
			line.ID, line.AdjustmentID, line.LineNo, line.ProductID,
			line.LotID, line.UOM, line.QuantityDelta, line.UnitCost,
			line.ReasonOverride, line.AllowNegative,
		)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build lines insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return postgres.TranslateError(fmt.Errorf("insert lines: %w", err))
	}
	return nil
}

// List returns matching documents newest first, with the total count.
// Lines are loaded per document; listings are paginated so the extra
// queries stay bounded.
func (r *AdjustmentRepo) List(ctx context.Context, tenantID string, filter adjustments.ListFilter) ([]*adjustments.Adjustment, int, error) {
	base := r.builder.Select().From(headersTable).
		Where(squirrel.Eq{"tenant_id": tenantID})

	if filter.Status != nil {
		base = base.Where(squirrel.Eq{"status": *filter.Status})
	}
	if filter.Reason != nil {
		base = base.Where(squirrel.Eq{"reason": *filter.Reason})
	}
	if filter.LocationID != nil {
		base = base.Where(squirrel.Eq{"location_id": *filter.LocationID})
	}
	if filter.From != nil {
		base = base.Where(squirrel.GtOrEq{"created_at": *filter.From})
	}
	if filter.To != nil {
		base = base.Where(squirrel.LtOrEq{"created_at": *filter.To})
	}

	countSQL, countArgs, err := base.Columns("COUNT(*)").ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count query: %w", err)
	}

	var total int
	if err := r.txm.GetQuerier(ctx).QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count adjustments: %w", err)
	}

	q := base.Columns(headerColumns...).OrderBy("created_at DESC", "number DESC")
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list query: %w", err)
	}

	var docs []*adjustments.Adjustment
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &docs, sql, args...); err != nil {
		return nil, 0, fmt.Errorf("select adjustments: %w", err)
	}

	for _, adj := range docs {
		if err := r.loadLines(ctx, adj); err != nil {
			return nil, 0, err
		}
	}
	return docs, total, nil
}

// Ensure interface compliance.
var _ adjustments.Repository = (*AdjustmentRepo)(nil)
