// Package main is the entry point for the lotline API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lotline/internal/config"
	"lotline/internal/domain/adjustments"
	"lotline/internal/domain/alerts"
	"lotline/internal/domain/allocation"
	"lotline/internal/domain/auth"
	"lotline/internal/domain/ledger"
	"lotline/internal/domain/lots"
	"lotline/internal/domain/reorder"
	v1 "lotline/internal/infrastructure/http/v1"
	"lotline/internal/infrastructure/storage/postgres"
	"lotline/internal/infrastructure/storage/postgres/adjustment_repo"
	"lotline/internal/infrastructure/storage/postgres/ledger_repo"
	"lotline/internal/infrastructure/storage/postgres/lot_repo"
	"lotline/internal/infrastructure/storage/postgres/reorder_repo"
	"lotline/pkg/logger"
	"lotline/pkg/numerator"
)

func main() {
	cfg, err := config.LoadWithValidation()
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

	ctx := context.Background()
	log.Info("starting lotline server")

	// --- Database ---
	poolCfg := postgres.DefaultPoolConfig(cfg.Database.DSN())
	poolCfg.MaxConns = cfg.Database.MaxConns
	poolCfg.MinConns = cfg.Database.MinConns
	poolCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	txm := postgres.NewTxManager(pool)

	// --- Repositories ---
	ledgerRepo := ledger_repo.NewLedgerRepo(txm)
	lotRepo := lot_repo.NewLotRepo(txm)
	adjustmentRepo := adjustment_repo.NewAdjustmentRepo(txm)
	reorderRepo := reorder_repo.NewReorderRepo(txm)

	// --- Services ---
	ledgerService := ledger.NewService(ledgerRepo, txm)
	lotService := lots.NewService(lotRepo)
	reorderService := reorder.NewService(reorderRepo)

	auditService, err := postgres.NewAuditService(txm)
	if err != nil {
		log.Fatalw("failed to initialize audit service", "error", err)
	}

	// Number reservation joins the ambient transaction of the create.
	numbers := numerator.NewWithProvider(func(ctx context.Context) numerator.Querier {
		return txm.GetQuerier(ctx)
	})

	var policy adjustments.PostingPolicy = adjustments.OpenPolicy{}
	if !cfg.Posting.ClosedBefore.IsZero() {
		policy = adjustments.NewStrictPolicy(cfg.Posting.ClosedBefore)
	}

	adjustmentService := adjustments.NewService(
		adjustmentRepo, ledgerService, numbers, policy, txm, auditService,
	)

	allocationEngine := allocation.NewEngine(lotService, allocation.DefaultConfig())

	alertEvaluator := alerts.NewEvaluator(lotService, ledgerService, reorderService, alerts.Config{
		ExpiryEmitDays:   cfg.Alerts.ExpiryEmitDays,
		ExpiryHighDays:   cfg.Alerts.ExpiryHighDays,
		ExpiryMediumDays: cfg.Alerts.ExpiryMediumDays,
		StockHighDays:    cfg.Alerts.StockHighDays,
		StockMediumDays:  cfg.Alerts.StockMediumDays,
		UsageWindowDays:  cfg.Alerts.UsageWindowDays,
	})

	// --- JWT ---
	jwtService := auth.NewJWTService(auth.JWTConfig{
		Secret:         cfg.JWT.Secret,
		Issuer:         cfg.JWT.Issuer,
		AccessTokenTTL: 15 * time.Minute,
	})

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Logger:         log,
		Pool:           pool,
		TokenValidator: jwtService,
		Adjustments:    adjustmentService,
		Ledger:         ledgerService,
		Lots:           lotService,
		Allocation:     allocationEngine,
		Alerts:         alertEvaluator,
		Reorder:        reorderService,
		Audit:          auditService,
	})

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "addr", cfg.Server.Addr())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}
