package models_test

import (
	"context"
	"strings"
	"testing"

	"github.com/bakeledger/prodcost_backend/config"
	"github.com/bakeledger/prodcost_backend/models"
	"github.com/bakeledger/prodcost_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB points the global connection at a fresh in-memory sqlite
// database scoped to this test. Single connection so the shared-cache
// database survives for the whole test.
func setupTestDB(t *testing.T) {
	t.Helper()

	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&models.Material{},
		&models.Supplier{},
		&models.SupplierOffer{},
		&models.Node{},
		&models.Component{},
		&models.StockEvent{},
		&models.ProductionRecord{},
		&models.User{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}

	config.SetDB(db)
	t.Cleanup(func() {
		config.SetDB(nil)
		_ = sqlDB.Close()
	})
}

func mustMaterial(t *testing.T, ctx context.Context, input *models.NewMaterial) *models.Material {
	t.Helper()
	m, err := models.CreateMaterial(ctx, input)
	if err != nil {
		t.Fatalf("CreateMaterial(%q): %v", input.Name, err)
	}
	return m
}

func mustSupplier(t *testing.T, ctx context.Context, name string, discount decimal.Decimal) *models.Supplier {
	t.Helper()
	s, err := models.CreateSupplier(ctx, &models.NewSupplier{Name: name, DiscountPercentage: discount})
	if err != nil {
		t.Fatalf("CreateSupplier(%q): %v", name, err)
	}
	return s
}

func mustOffer(t *testing.T, ctx context.Context, materialId, supplierId int, price decimal.Decimal, primary bool) {
	t.Helper()
	var isPrimary *bool
	if primary {
		isPrimary = utils.NewTrue()
	}
	_, err := models.SetSupplierOffer(ctx, &models.NewSupplierOffer{
		MaterialId: materialId,
		SupplierId: supplierId,
		UnitPrice:  price,
		IsPrimary:  isPrimary,
	})
	if err != nil {
		t.Fatalf("SetSupplierOffer(material=%d supplier=%d): %v", materialId, supplierId, err)
	}
}

func mustNode(t *testing.T, ctx context.Context, input *models.NewNode) *models.Node {
	t.Helper()
	n, err := models.CreateNode(ctx, input)
	if err != nil {
		t.Fatalf("CreateNode(%q): %v", input.Name, err)
	}
	return n
}

func mustSetStock(t *testing.T, ctx context.Context, materialId int, supplierId *int, qty decimal.Decimal) {
	t.Helper()
	_, err := models.ApplyStockAdjustment(ctx, &models.NewStockAdjustment{
		MaterialId: &materialId,
		SupplierId: supplierId,
		Operation:  models.StockOperationSetAbsolute,
		Qty:        qty,
	})
	if err != nil {
		t.Fatalf("ApplyStockAdjustment(material=%d): %v", materialId, err)
	}
}

func assertDecimal(t *testing.T, label string, got, want decimal.Decimal) {
	t.Helper()
	if !got.Equal(want) {
		t.Fatalf("%s = %s, want %s", label, got, want)
	}
}
