// Package main seeds a demo tenant with lots, stock and reorder policy.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"lotline/internal/config"
	"lotline/internal/core/id"
	"lotline/internal/core/identity"
	"lotline/internal/core/types"
	"lotline/internal/domain/adjustments"
	"lotline/internal/domain/ledger"
	"lotline/internal/domain/lots"
	"lotline/internal/domain/reorder"
	"lotline/internal/infrastructure/storage/postgres"
	"lotline/internal/infrastructure/storage/postgres/adjustment_repo"
	"lotline/internal/infrastructure/storage/postgres/ledger_repo"
	"lotline/internal/infrastructure/storage/postgres/lot_repo"
	"lotline/internal/infrastructure/storage/postgres/reorder_repo"
	"lotline/pkg/logger"
	"lotline/pkg/numerator"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{Level: "info", Development: true})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := identity.WithIdentity(context.Background(), identity.Identity{
		TenantID: "demo",
		ActorID:  "seed",
		Email:    "seed@localhost",
		Roles:    []string{"admin"},
	})

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(cfg.Database.DSN()))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	txm := postgres.NewTxManager(pool)

	ledgerService := ledger.NewService(ledger_repo.NewLedgerRepo(txm), txm)
	lotService := lots.NewService(lot_repo.NewLotRepo(txm))
	reorderService := reorder.NewService(reorder_repo.NewReorderRepo(txm))
	numbers := numerator.NewWithProvider(func(ctx context.Context) numerator.Querier {
		return txm.GetQuerier(ctx)
	})
	adjustmentService := adjustments.NewService(
		adjustment_repo.NewAdjustmentRepo(txm),
		ledgerService, numbers, adjustments.OpenPolicy{}, txm, nil,
	)

	productID := id.New()
	locationID := id.New()
	now := time.Now().UTC()

	// Two lots of the same product: one expiring soon, one fresh.
	nearExpiry := now.AddDate(0, 0, 5)
	farExpiry := now.AddDate(0, 6, 0)

	lotA := &lots.Lot{
		ProductID:  productID,
		LocationID: locationID,
		LotNumber:  "DEMO-A-001",
		ExpiryDate: &nearExpiry,
		UnitCost:   types.MustMoney("12.50"),
	}
	lotB := &lots.Lot{
		ProductID:  productID,
		LocationID: locationID,
		LotNumber:  "DEMO-B-001",
		ExpiryDate: &farExpiry,
		UnitCost:   types.MustMoney("11.80"),
	}
	for _, lot := range []*lots.Lot{lotA, lotB} {
		if err := lotService.Register(ctx, lot); err != nil {
			log.Fatalw("failed to register lot", "lot_number", lot.LotNumber, "error", err)
		}
	}

	// Receipt entries give each lot its opening balance.
	receiptID := id.New()
	err = ledgerService.Append(ctx, []*ledger.Entry{
		{
			ProductID:    productID,
			LocationID:   locationID,
			LotID:        &lotA.ID,
			TxnTime:      now,
			MovementType: ledger.MovementReceipt,
			Quantity:     types.NewQuantityFromInt(10),
			UnitCost:     lotA.UnitCost,
			RefType:      ledger.RefTypeReceipt,
			RefID:        receiptID,
		},
		{
			ProductID:    productID,
			LocationID:   locationID,
			LotID:        &lotB.ID,
			TxnTime:      now,
			MovementType: ledger.MovementReceipt,
			Quantity:     types.NewQuantityFromInt(20),
			UnitCost:     lotB.UnitCost,
			RefType:      ledger.RefTypeReceipt,
			RefID:        receiptID,
		},
	})
	if err != nil {
		log.Fatalw("failed to append opening receipts", "error", err)
	}

	// Replenishment policy so the low-stock sweep has something to do.
	err = reorderService.Save(ctx, &reorder.Config{
		ProductID:    productID,
		LocationID:   locationID,
		ReorderPoint: types.NewQuantityFromInt(100),
		MaximumStock: types.NewQuantityFromInt(500),
		SafetyStock:  types.NewQuantityFromInt(20),
	})
	if err != nil {
		log.Fatalw("failed to save reorder config", "error", err)
	}

	// A posted correction shows the full workflow end to end.
	adj, err := adjustmentService.Create(ctx, locationID, adjustments.ReasonCorrection,
		"cycle count correction", []adjustments.Line{
			{
				ProductID:     productID,
				LotID:         &lotA.ID,
				UOM:           "pcs",
				QuantityDelta: types.NewQuantityFromInt(5),
				UnitCost:      lotA.UnitCost,
			},
		})
	if err != nil {
		log.Fatalw("failed to create adjustment", "error", err)
	}
	if _, err := adjustmentService.Approve(ctx, adj.ID); err != nil {
		log.Fatalw("failed to approve adjustment", "error", err)
	}
	if _, err := adjustmentService.Post(ctx, adj.ID); err != nil {
		log.Fatalw("failed to post adjustment", "error", err)
	}

	log.Infow("seed complete",
		"tenant", "demo",
		"product_id", productID,
		"location_id", locationID,
		"adjustment", adj.Number,
	)
}
