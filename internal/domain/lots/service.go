package lots

import (
	"context"
	"time"

	"lotline/internal/core/apperror"
	"lotline/internal/core/id"
	"lotline/internal/core/identity"
	"lotline/pkg/logger"
)

// Service is the lot registry facade.
type Service struct {
	repo Repository
}

// NewService creates the lot registry service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Register creates a lot on first receipt.
func (s *Service) Register(ctx context.Context, lot *Lot) error {
	if lot.TenantID == "" {
		lot.TenantID = identity.GetTenantID(ctx)
	}
	if id.IsNil(lot.ID) {
		lot.ID = id.New()
	}
	if lot.ReceivedAt.IsZero() {
		lot.ReceivedAt = time.Now().UTC()
	}
	if lot.CreatedBy == "" {
		lot.CreatedBy = identity.GetActorID(ctx)
	}
	if lot.CreatedAt.IsZero() {
		lot.CreatedAt = time.Now().UTC()
	}

	if err := lot.Validate(); err != nil {
		return err
	}

	if err := s.repo.Create(ctx, lot); err != nil {
		return err
	}

	logger.Info(ctx, "lot registered",
		"lot_id", lot.ID,
		"lot_number", lot.LotNumber,
		"product_id", lot.ProductID,
	)
	return nil
}

// Get returns a lot by id within the calling tenant.
func (s *Service) Get(ctx context.Context, lotID id.ID) (*Lot, error) {
	tenantID := identity.GetTenantID(ctx)
	if tenantID == "" {
		return nil, apperror.NewValidation("tenant is required")
	}
	return s.repo.GetByID(ctx, tenantID, lotID)
}

// AvailableLots returns lots of a product at a location with positive
// derived balance. If excludeExpired is true, lots whose expiry is
// strictly before asOf are omitted entirely, not just deprioritized.
//
// asOf drives expiry classification only: quantities are always the
// current materialized balances. Historical quantity questions belong
// to ledger.Service.BalanceAsOf.
func (s *Service) AvailableLots(ctx context.Context, productID, locationID id.ID, excludeExpired bool, asOf time.Time) ([]*LotBalance, error) {
	tenantID := identity.GetTenantID(ctx)
	if tenantID == "" {
		return nil, apperror.NewValidation("tenant is required")
	}
	if id.IsNil(productID) || id.IsNil(locationID) {
		return nil, apperror.NewValidation("product and location are required")
	}
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}

	balances, err := s.repo.AvailableLots(ctx, tenantID, productID, locationID)
	if err != nil {
		return nil, err
	}

	if !excludeExpired {
		return balances, nil
	}

	filtered := balances[:0]
	for _, b := range balances {
		if !b.IsExpired(asOf) {
			filtered = append(filtered, b)
		}
	}
	return filtered, nil
}

// StockedLots returns every lot with expiry and positive balance for
// the calling tenant.
func (s *Service) StockedLots(ctx context.Context) ([]*StockedLot, error) {
	tenantID := identity.GetTenantID(ctx)
	if tenantID == "" {
		return nil, apperror.NewValidation("tenant is required")
	}
	return s.repo.LotsWithStock(ctx, tenantID)
}
