// Package main is the entry point for the lotline alert sweep worker.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lotline/internal/config"
	"lotline/internal/core/identity"
	"lotline/internal/domain/alerts"
	"lotline/internal/domain/ledger"
	"lotline/internal/domain/lots"
	"lotline/internal/domain/reorder"
	"lotline/internal/infrastructure/storage/postgres"
	"lotline/internal/infrastructure/storage/postgres/ledger_repo"
	"lotline/internal/infrastructure/storage/postgres/lot_repo"
	"lotline/internal/infrastructure/storage/postgres/reorder_repo"
	"lotline/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Info("starting lotline sweep worker")

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(cfg.Database.DSN()))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	txm := postgres.NewTxManager(pool)

	reorderRepo := reorder_repo.NewReorderRepo(txm)
	evaluator := alerts.NewEvaluator(
		lots.NewService(lot_repo.NewLotRepo(txm)),
		ledger.NewService(ledger_repo.NewLedgerRepo(txm), txm),
		reorder.NewService(reorderRepo),
		alerts.Config{
			ExpiryEmitDays:   cfg.Alerts.ExpiryEmitDays,
			ExpiryHighDays:   cfg.Alerts.ExpiryHighDays,
			ExpiryMediumDays: cfg.Alerts.ExpiryMediumDays,
			StockHighDays:    cfg.Alerts.StockHighDays,
			StockMediumDays:  cfg.Alerts.StockMediumDays,
			UsageWindowDays:  cfg.Alerts.UsageWindowDays,
		},
	)

	worker := &sweepWorker{
		reorders:  reorderRepo,
		evaluator: evaluator,
		pool:      pool,
		interval:  cfg.Worker.SweepInterval,
		log:       log.WithComponent("worker"),
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		worker.Run(ctx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	cancel()
	<-done
	log.Info("worker stopped")
}

// sweepWorker periodically runs both alert sweeps for every tenant that
// has at least one reorder configuration.
type sweepWorker struct {
	reorders  reorder.Repository
	evaluator *alerts.Evaluator
	pool      *postgres.Pool
	interval  time.Duration
	log       *logger.Logger
}

func (w *sweepWorker) Run(ctx context.Context) {
	if w.interval <= 0 {
		w.interval = time.Hour
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// First sweep right away, then on the ticker.
	w.sweepAll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweepAll(ctx)
			postgres.LogPoolStats(ctx, w.pool.Pool)
		}
	}
}

func (w *sweepWorker) sweepAll(ctx context.Context) {
	tenantIDs, err := w.reorders.TenantIDs(ctx)
	if err != nil {
		w.log.Errorw("failed to list tenants", "error", err)
		return
	}

	asOf := time.Now().UTC()
	for _, tenantID := range tenantIDs {
		if ctx.Err() != nil {
			return
		}
		w.sweepTenant(ctx, tenantID, asOf)
	}
}

func (w *sweepWorker) sweepTenant(ctx context.Context, tenantID string, asOf time.Time) {
	tenantCtx := identity.WithIdentity(ctx, identity.Identity{
		TenantID: tenantID,
		ActorID:  "system:sweep-worker",
	})

	expiry, err := w.evaluator.SweepExpiry(tenantCtx, asOf, nil)
	if err != nil {
		w.log.Errorw("expiry sweep failed", "tenant_id", tenantID, "error", err)
	}

	lowStock, err := w.evaluator.SweepLowStock(tenantCtx, asOf, nil)
	if err != nil {
		w.log.Errorw("low-stock sweep failed", "tenant_id", tenantID, "error", err)
	}

	for _, c := range append(expiry, lowStock...) {
		w.log.Infow("alert candidate",
			"tenant_id", tenantID,
			"type", c.Type,
			"priority", c.Priority,
			"reference_id", c.ReferenceID,
			"message", c.Message,
		)
	}
}
