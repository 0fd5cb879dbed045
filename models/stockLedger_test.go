package models_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/bakeledger/prodcost_backend/models"
	"github.com/bakeledger/prodcost_backend/utils"
	"github.com/shopspring/decimal"
)

func adjustAt(t *testing.T, ctx context.Context, materialId int, supplierId *int, op models.StockOperation, qty decimal.Decimal, at time.Time) {
	t.Helper()
	_, err := models.ApplyStockAdjustment(ctx, &models.NewStockAdjustment{
		MaterialId: &materialId,
		SupplierId: supplierId,
		Operation:  op,
		Qty:        qty,
		EventTime:  &at,
	})
	if err != nil {
		t.Fatalf("ApplyStockAdjustment: %v", err)
	}
}

func TestStockReplaySetThenAdds(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	flour := mustMaterial(t, ctx, &models.NewMaterial{Name: "Flour", DefaultPrice: decimal.NewFromInt(2)})
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	adjustAt(t, ctx, flour.ID, nil, models.StockOperationSetAbsolute, decimal.NewFromInt(50), base)
	adjustAt(t, ctx, flour.ID, nil, models.StockOperationAdd, decimal.NewFromInt(10), base.Add(time.Hour))
	adjustAt(t, ctx, flour.ID, nil, models.StockOperationAdd, decimal.NewFromInt(-5), base.Add(2*time.Hour))

	stock, err := models.GetCurrentStock(ctx, flour.ID, nil)
	if err != nil {
		t.Fatalf("GetCurrentStock: %v", err)
	}
	assertDecimal(t, "replayed stock", stock, decimal.NewFromInt(55))

	// re-deriving from the same ledger is idempotent
	again, err := models.GetCurrentStock(ctx, flour.ID, nil)
	if err != nil {
		t.Fatalf("GetCurrentStock (second): %v", err)
	}
	assertDecimal(t, "re-replayed stock", again, stock)
}

func TestStockReplayTimestampTieUsesInsertionOrder(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	flour := mustMaterial(t, ctx, &models.NewMaterial{Name: "Flour", DefaultPrice: decimal.NewFromInt(2)})
	at := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	adjustAt(t, ctx, flour.ID, nil, models.StockOperationAdd, decimal.NewFromInt(10), at)
	adjustAt(t, ctx, flour.ID, nil, models.StockOperationSetAbsolute, decimal.NewFromInt(50), at)

	// the SetAbsolute was inserted second, so it wins the tie
	stock, err := models.GetCurrentStock(ctx, flour.ID, nil)
	if err != nil {
		t.Fatalf("GetCurrentStock: %v", err)
	}
	assertDecimal(t, "tie-broken stock", stock, decimal.NewFromInt(50))
}

func TestTotalStockSumsSupplierBucketsIndependently(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	flour := mustMaterial(t, ctx, &models.NewMaterial{Name: "Flour", DefaultPrice: decimal.NewFromInt(2)})
	a := mustSupplier(t, ctx, "A", decimal.Zero)
	b := mustSupplier(t, ctx, "B", decimal.Zero)

	mustSetStock(t, ctx, flour.ID, &a.ID, decimal.NewFromInt(100))
	mustSetStock(t, ctx, flour.ID, &b.ID, decimal.NewFromInt(50))
	_, err := models.ApplyStockAdjustment(ctx, &models.NewStockAdjustment{
		MaterialId: &flour.ID,
		Operation:  models.StockOperationAdd,
		Qty:        decimal.NewFromInt(5),
	})
	if err != nil {
		t.Fatalf("ApplyStockAdjustment: %v", err)
	}

	level, err := models.GetTotalStock(ctx, flour.ID)
	if err != nil {
		t.Fatalf("GetTotalStock: %v", err)
	}
	assertDecimal(t, "total stock", level.Qty, decimal.NewFromInt(155))

	// a stock-take for supplier A must not clobber B's bucket
	mustSetStock(t, ctx, flour.ID, &a.ID, decimal.NewFromInt(30))
	level, err = models.GetTotalStock(ctx, flour.ID)
	if err != nil {
		t.Fatalf("GetTotalStock (after recount): %v", err)
	}
	assertDecimal(t, "total stock after recount", level.Qty, decimal.NewFromInt(85))
}

func TestUnlimitedMaterialReportsUnlimited(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	water := mustMaterial(t, ctx, &models.NewMaterial{Name: "Water", IsUnlimited: utils.NewTrue()})

	level, err := models.GetTotalStock(ctx, water.ID)
	if err != nil {
		t.Fatalf("GetTotalStock: %v", err)
	}
	if !level.Unlimited {
		t.Fatal("expected unlimited stock level")
	}

	encoded, err := json.Marshal(level)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(encoded) != `"unlimited"` {
		t.Fatalf("marshalled level = %s, want \"unlimited\"", encoded)
	}
}

func TestStockAdjustmentValidation(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	flour := mustMaterial(t, ctx, &models.NewMaterial{Name: "Flour", DefaultPrice: decimal.NewFromInt(2)})
	passThrough := mustNode(t, ctx, &models.NewNode{
		Name: "Glaze", Kind: models.NodeKindPremake, BatchSize: decimal.NewFromInt(1),
	})

	_, err := models.ApplyStockAdjustment(ctx, &models.NewStockAdjustment{
		MaterialId: &flour.ID,
		NodeId:     &passThrough.ID,
		Operation:  models.StockOperationAdd,
		Qty:        decimal.NewFromInt(1),
	})
	if err == nil {
		t.Fatal("expected error when both material and node are set")
	}

	_, err = models.ApplyStockAdjustment(ctx, &models.NewStockAdjustment{
		Operation: models.StockOperationAdd,
		Qty:       decimal.NewFromInt(1),
	})
	if err == nil {
		t.Fatal("expected error when neither material nor node is set")
	}

	_, err = models.ApplyStockAdjustment(ctx, &models.NewStockAdjustment{
		NodeId:    &passThrough.ID,
		Operation: models.StockOperationAdd,
		Qty:       decimal.NewFromInt(1),
	})
	if err == nil {
		t.Fatal("expected error for adjustment on a non-stock-tracked node")
	}
}

func TestNodeStockLedger(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	premake := mustNode(t, ctx, &models.NewNode{
		Name: "Dough", Kind: models.NodeKindPremake,
		BatchSize: decimal.NewFromInt(10), IsStocked: utils.NewTrue(),
	})

	_, err := models.ApplyStockAdjustment(ctx, &models.NewStockAdjustment{
		NodeId:    &premake.ID,
		Operation: models.StockOperationSetAbsolute,
		Qty:       decimal.NewFromInt(40),
	})
	if err != nil {
		t.Fatalf("ApplyStockAdjustment: %v", err)
	}

	stock, err := models.GetNodeStock(ctx, premake.ID)
	if err != nil {
		t.Fatalf("GetNodeStock: %v", err)
	}
	assertDecimal(t, "premake stock", stock, decimal.NewFromInt(40))
}

func TestStockEventsListedInReplayOrder(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	flour := mustMaterial(t, ctx, &models.NewMaterial{Name: "Flour", DefaultPrice: decimal.NewFromInt(2)})
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	// inserted out of chronological order on purpose
	adjustAt(t, ctx, flour.ID, nil, models.StockOperationAdd, decimal.NewFromInt(10), base.Add(time.Hour))
	adjustAt(t, ctx, flour.ID, nil, models.StockOperationSetAbsolute, decimal.NewFromInt(50), base)

	events, err := models.GetStockEvents(ctx, flour.ID)
	if err != nil {
		t.Fatalf("GetStockEvents: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Operation != models.StockOperationSetAbsolute {
		t.Fatalf("expected the earlier SetAbsolute first, got %s", events[0].Operation)
	}

	stock, err := models.GetCurrentStock(ctx, flour.ID, nil)
	if err != nil {
		t.Fatalf("GetCurrentStock: %v", err)
	}
	assertDecimal(t, "backdated replay", stock, decimal.NewFromInt(60))
}
