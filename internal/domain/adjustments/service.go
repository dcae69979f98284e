package adjustments

import (
	"context"
	"time"

	"lotline/internal/core/apperror"
	"lotline/internal/core/id"
	"lotline/internal/core/identity"
	"lotline/internal/core/tx"
	"lotline/internal/domain/ledger"
	"lotline/pkg/logger"
	"lotline/pkg/numerator"
)

// LedgerAppender writes entry batches atomically. *ledger.Service
// satisfies it.
type LedgerAppender interface {
	Append(ctx context.Context, entries []*ledger.Entry) error
}

// Auditor records document actions with their payload. Recording is
// best-effort: audit failures are logged, never surfaced to callers.
type Auditor interface {
	Record(ctx context.Context, action string, docID id.ID, payload any) error
}

// Service drives the adjustment workflow.
type Service struct {
	repo    Repository
	ledger  LedgerAppender
	numbers numerator.Generator
	policy  PostingPolicy
	txm     tx.Manager
	auditor Auditor
}

// NewService creates the adjustment workflow service.
// auditor may be nil.
func NewService(repo Repository, ledgerSvc LedgerAppender, numbers numerator.Generator, policy PostingPolicy, txm tx.Manager, auditor Auditor) *Service {
	if policy == nil {
		policy = OpenPolicy{}
	}
	return &Service{
		repo:    repo,
		ledger:  ledgerSvc,
		numbers: numbers,
		policy:  policy,
		txm:     txm,
		auditor: auditor,
	}
}

// Create validates and persists a new draft adjustment. The document
// number is reserved inside the same transaction as the insert, so
// concurrent creates for one tenant/year always produce distinct,
// contiguous numbers.
func (s *Service) Create(ctx context.Context, locationID id.ID, reason Reason, notes string, lines []Line) (*Adjustment, error) {
	tenantID := identity.GetTenantID(ctx)
	if tenantID == "" {
		return nil, apperror.NewValidation("tenant is required")
	}

	adj := New(tenantID, locationID, reason, notes, identity.GetActorID(ctx))
	for _, line := range lines {
		if err := adj.AddLine(line); err != nil {
			return nil, err
		}
	}
	if err := adj.Validate(); err != nil {
		return nil, err
	}

	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		number, err := s.numbers.GetNextNumber(ctx, numerator.DefaultConfig("ADJ"), nil, adj.CreatedAt)
		if err != nil {
			return err
		}
		adj.Number = number

		if err := s.repo.Create(ctx, adj); err != nil {
			return err
		}

		s.audit(ctx, "adjustment.created", adj)
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "adjustment created",
		"adjustment_id", adj.ID,
		"number", adj.Number,
		"lines", len(adj.Lines),
	)
	return adj, nil
}

// UpdateDraft replaces the notes and lines of a draft document.
func (s *Service) UpdateDraft(ctx context.Context, adjID id.ID, notes string, lines []Line) (*Adjustment, error) {
	tenantID := identity.GetTenantID(ctx)
	if tenantID == "" {
		return nil, apperror.NewValidation("tenant is required")
	}

	var adj *Adjustment
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		adj, err = s.repo.GetForUpdate(ctx, tenantID, adjID)
		if err != nil {
			return err
		}

		if !adj.CanModifyLines() {
			return apperror.NewBusinessRule(
				"LINES_IMMUTABLE",
				"Line items are only mutable while the adjustment is draft",
			).WithDetail("status", string(adj.Status))
		}

		adj.Notes = notes
		adj.Lines = adj.Lines[:0]
		for _, line := range lines {
			if err := adj.AddLine(line); err != nil {
				return err
			}
		}
		if err := adj.Validate(); err != nil {
			return err
		}

		return s.repo.SaveLines(ctx, adj)
	})
	if err != nil {
		return nil, err
	}
	return adj, nil
}

// Approve transitions a draft to approved. No ledger effect.
func (s *Service) Approve(ctx context.Context, adjID id.ID) (*Adjustment, error) {
	tenantID := identity.GetTenantID(ctx)
	if tenantID == "" {
		return nil, apperror.NewValidation("tenant is required")
	}
	actor := identity.GetActorID(ctx)

	var adj *Adjustment
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		adj, err = s.repo.GetForUpdate(ctx, tenantID, adjID)
		if err != nil {
			return err
		}

		if err := adj.Approve(actor, time.Now().UTC()); err != nil {
			return err
		}

		if err := s.repo.UpdateStatus(ctx, adj); err != nil {
			return err
		}

		s.audit(ctx, "adjustment.approved", adj)
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "adjustment approved",
		"adjustment_id", adj.ID,
		"number", adj.Number,
	)
	return adj, nil
}

// Post transitions an approved document to posted and appends one
// ledger entry per line, all in one transaction. Transition validity
// is checked before any side effects; if the ledger rejects the batch
// (negative lot balance without override) the whole operation rolls
// back and the document observably remains approved.
func (s *Service) Post(ctx context.Context, adjID id.ID) (*Adjustment, error) {
	tenantID := identity.GetTenantID(ctx)
	if tenantID == "" {
		return nil, apperror.NewValidation("tenant is required")
	}
	actor := identity.GetActorID(ctx)

	var adj *Adjustment
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		adj, err = s.repo.GetForUpdate(ctx, tenantID, adjID)
		if err != nil {
			return err
		}

		txnTime := time.Now().UTC()

		// Transition check comes first, before the policy and the
		// ledger write.
		if err := adj.markPosted(actor, txnTime); err != nil {
			return err
		}
		if err := s.policy.CanPost(ctx, txnTime); err != nil {
			return err
		}

		if err := s.ledger.Append(ctx, adj.GenerateEntries(txnTime)); err != nil {
			return err
		}

		if err := s.repo.UpdateStatus(ctx, adj); err != nil {
			return err
		}

		s.audit(ctx, "adjustment.posted", adj)
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "adjustment posted",
		"adjustment_id", adj.ID,
		"number", adj.Number,
		"lines", len(adj.Lines),
	)
	return adj, nil
}

// Get returns an adjustment by id within the calling tenant.
func (s *Service) Get(ctx context.Context, adjID id.ID) (*Adjustment, error) {
	tenantID := identity.GetTenantID(ctx)
	if tenantID == "" {
		return nil, apperror.NewValidation("tenant is required")
	}
	return s.repo.GetByID(ctx, tenantID, adjID)
}

// List returns adjustments matching the filter plus a total count.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Adjustment, int, error) {
	tenantID := identity.GetTenantID(ctx)
	if tenantID == "" {
		return nil, 0, apperror.NewValidation("tenant is required")
	}
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	return s.repo.List(ctx, tenantID, filter)
}

func (s *Service) audit(ctx context.Context, action string, adj *Adjustment) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Record(ctx, action, adj.ID, adj); err != nil {
		logger.Warn(ctx, "audit record failed",
			"action", action,
			"adjustment_id", adj.ID,
			"error", err,
		)
	}
}
