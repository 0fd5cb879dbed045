package models_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/bakeledger/prodcost_backend/models"
	"github.com/bakeledger/prodcost_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

func buildWorkbook(t *testing.T, rows [][]interface{}) *bytes.Reader {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return bytes.NewReader(buf.Bytes())
}

func TestImportStockWorkbook(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	flour := mustMaterial(t, ctx, &models.NewMaterial{Name: "Flour", DefaultPrice: decimal.NewFromInt(2)})
	mustMaterial(t, ctx, &models.NewMaterial{Name: "Water", IsUnlimited: utils.NewTrue()})
	miller := mustSupplier(t, ctx, "Miller", decimal.Zero)
	mustOffer(t, ctx, flour.ID, miller.ID, decimal.NewFromInt(2), true)

	auditDate := time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)
	workbook := buildWorkbook(t, [][]interface{}{
		{"Material", "Qty", "Supplier"},
		{"Flour", 120, "Miller"},
		{"Flour", 30, ""},
		{"Water", 999, ""},
		{"Unobtainium", 5, ""},
		{"Flour", "not-a-number", ""},
		{"", 10, ""},
	})

	result, err := models.ImportStockWorkbook(ctx, workbook, auditDate)
	if err != nil {
		t.Fatalf("ImportStockWorkbook: %v", err)
	}
	if result.Applied != 2 {
		t.Fatalf("applied = %d, want 2", result.Applied)
	}
	if len(result.Skipped) != 4 {
		t.Fatalf("skipped = %d, want 4 (%v)", len(result.Skipped), result.Skipped)
	}

	for _, e := range result.Events {
		if e.ReferenceType != models.StockReferenceTypeImport {
			t.Fatalf("event reference type = %s, want import", e.ReferenceType)
		}
		if !e.EventTime.Equal(auditDate) {
			t.Fatalf("event time = %s, want audit date %s", e.EventTime, auditDate)
		}
		if e.Operation != models.StockOperationSetAbsolute {
			t.Fatalf("audit rows must be absolute counts, got %s", e.Operation)
		}
	}

	bucket, err := models.GetCurrentStock(ctx, flour.ID, &miller.ID)
	if err != nil {
		t.Fatalf("GetCurrentStock: %v", err)
	}
	assertDecimal(t, "miller bucket", bucket, decimal.NewFromInt(120))

	total, err := models.GetTotalStock(ctx, flour.ID)
	if err != nil {
		t.Fatalf("GetTotalStock: %v", err)
	}
	assertDecimal(t, "flour total", total.Qty, decimal.NewFromInt(150))
}

func TestImportStockWorkbookUnknownSupplierIsSkipped(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	flour := mustMaterial(t, ctx, &models.NewMaterial{Name: "Flour", DefaultPrice: decimal.NewFromInt(2)})

	workbook := buildWorkbook(t, [][]interface{}{
		{"Material", "Qty", "Supplier"},
		{"Flour", 10, "Nobody"},
	})

	result, err := models.ImportStockWorkbook(ctx, workbook, time.Now())
	if err != nil {
		t.Fatalf("ImportStockWorkbook: %v", err)
	}
	if result.Applied != 0 || len(result.Skipped) != 1 {
		t.Fatalf("applied=%d skipped=%d, want 0/1", result.Applied, len(result.Skipped))
	}

	total, err := models.GetTotalStock(ctx, flour.ID)
	if err != nil {
		t.Fatalf("GetTotalStock: %v", err)
	}
	assertDecimal(t, "flour total untouched", total.Qty, decimal.Zero)
}

func TestImportStockWorkbookMissingColumns(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	workbook := buildWorkbook(t, [][]interface{}{
		{"Something", "Else"},
		{"Flour", 10},
	})
	if _, err := models.ImportStockWorkbook(ctx, workbook, time.Now()); err == nil {
		t.Fatal("expected error for missing required columns")
	}
}
