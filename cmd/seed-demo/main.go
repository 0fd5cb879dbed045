// seed-demo loads a small demo dataset: an admin user, a handful of
// materials and suppliers with offers, a premake dough recipe, a final
// product built on it, and opening stock for the supplier buckets.
//
// Usage (from backend directory):
//
//	DB_DRIVER=sqlite DB_SQLITE_PATH=demo.db go run ./cmd/seed-demo
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/bakeledger/prodcost_backend/config"
	"github.com/bakeledger/prodcost_backend/models"
	"github.com/bakeledger/prodcost_backend/utils"
	"github.com/shopspring/decimal"
)

const (
	adminUsername = "prodcostAdmin"
	adminPassword = "Pr0dcost!"
)

func main() {
	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}
	models.MigrateTable()

	if _, err := models.CreateUser(ctx, &models.NewUser{
		Username: adminUsername,
		Password: adminPassword,
		Role:     "admin",
	}); err != nil {
		fmt.Fprintf(os.Stderr, "admin user: %v (already seeded?)\n", err)
	} else {
		fmt.Printf("Created admin user %q\n", adminUsername)
	}

	flour := mustMaterial(ctx, &models.NewMaterial{
		Name: "Wheat Flour", Category: "Dry", DefaultPrice: decimal.NewFromFloat(1.2),
	})
	yeast := mustMaterial(ctx, &models.NewMaterial{
		Name: "Dry Yeast", Category: "Dry", DefaultPrice: decimal.NewFromInt(8),
	})
	water := mustMaterial(ctx, &models.NewMaterial{
		Name: "Water", Category: "Liquid", IsUnlimited: utils.NewTrue(),
	})
	sesame := mustMaterial(ctx, &models.NewMaterial{
		Name: "Sesame Seeds", Category: "Topping",
		DefaultPrice:    decimal.NewFromInt(6),
		WastePercentage: decimal.NewFromInt(10),
	})
	box := mustMaterial(ctx, &models.NewMaterial{
		Name: "Bun Box", Kind: models.MaterialKindPackaging, Unit: "pc",
		DefaultPrice: decimal.NewFromFloat(0.15),
	})

	millerA := mustSupplier(ctx, &models.NewSupplier{Name: "Miller A"})
	millerB := mustSupplier(ctx, &models.NewSupplier{
		Name: "Miller B", DiscountPercentage: decimal.NewFromInt(5),
	})

	mustOffer(ctx, &models.NewSupplierOffer{
		MaterialId: flour.ID, SupplierId: millerA.ID,
		UnitPrice: decimal.NewFromFloat(1.1), IsPrimary: utils.NewTrue(),
	})
	mustOffer(ctx, &models.NewSupplierOffer{
		MaterialId: flour.ID, SupplierId: millerB.ID,
		UnitPrice: decimal.NewFromFloat(1.3),
	})
	mustOffer(ctx, &models.NewSupplierOffer{
		MaterialId: yeast.ID, SupplierId: millerB.ID,
		UnitPrice: decimal.NewFromFloat(7.5), IsPrimary: utils.NewTrue(),
	})

	dough, err := models.CreateNode(ctx, &models.NewNode{
		Name: "Basic Dough", Kind: models.NodeKindPremake,
		BatchSize: decimal.NewFromInt(10),
		IsStocked: utils.NewTrue(),
		Components: []models.NewComponent{
			{Kind: models.ComponentKindRawMaterial, MaterialId: &flour.ID, QuantityPerBatch: decimal.NewFromInt(6)},
			{Kind: models.ComponentKindRawMaterial, MaterialId: &water.ID, QuantityPerBatch: decimal.NewFromInt(4)},
			{Kind: models.ComponentKindRawMaterial, MaterialId: &yeast.ID, QuantityPerBatch: decimal.NewFromFloat(0.1)},
			{Kind: models.ComponentKindLoss, QuantityPerBatch: decimal.NewFromFloat(-0.2)},
		},
	})
	if err != nil {
		fatal("create dough node", err)
	}

	sellingPrice := decimal.NewFromFloat(2.5)
	bun, err := models.CreateNode(ctx, &models.NewNode{
		Name: "Sesame Bun", Kind: models.NodeKindFinalProduct,
		BatchSize: decimal.NewFromInt(40), Unit: "pc",
		SellingPricePerUnit: &sellingPrice,
		Components: []models.NewComponent{
			{Kind: models.ComponentKindNested, NodeRefId: &dough.ID, QuantityPerBatch: decimal.NewFromInt(8)},
			{Kind: models.ComponentKindRawMaterial, MaterialId: &sesame.ID, QuantityPerBatch: decimal.NewFromFloat(0.4)},
			{Kind: models.ComponentKindPackaging, MaterialId: &box.ID, QuantityPerBatch: decimal.NewFromInt(40)},
		},
	})
	if err != nil {
		fatal("create bun node", err)
	}

	mustAdjust(ctx, &models.NewStockAdjustment{
		MaterialId: &flour.ID, SupplierId: &millerA.ID,
		Operation: models.StockOperationSetAbsolute, Qty: decimal.NewFromInt(500),
		Note: "opening stock",
	})
	mustAdjust(ctx, &models.NewStockAdjustment{
		MaterialId: &flour.ID, SupplierId: &millerB.ID,
		Operation: models.StockOperationSetAbsolute, Qty: decimal.NewFromInt(200),
		Note: "opening stock",
	})
	mustAdjust(ctx, &models.NewStockAdjustment{
		MaterialId: &yeast.ID, SupplierId: &millerB.ID,
		Operation: models.StockOperationSetAbsolute, Qty: decimal.NewFromInt(20),
		Note: "opening stock",
	})
	mustAdjust(ctx, &models.NewStockAdjustment{
		MaterialId: &sesame.ID,
		Operation:  models.StockOperationSetAbsolute, Qty: decimal.NewFromInt(30),
		Note: "opening stock",
	})
	mustAdjust(ctx, &models.NewStockAdjustment{
		MaterialId: &box.ID,
		Operation:  models.StockOperationSetAbsolute, Qty: decimal.NewFromInt(1000),
		Note: "opening stock",
	})

	doughCost, err := models.GetUnitCost(ctx, dough.ID)
	if err != nil {
		fatal("dough unit cost", err)
	}
	bunCost, err := models.GetUnitCost(ctx, bun.ID)
	if err != nil {
		fatal("bun unit cost", err)
	}
	fmt.Printf("Seeded demo data: dough unit cost=%s, bun unit cost=%s\n",
		doughCost.StringFixed(4), bunCost.StringFixed(4))
}

func mustMaterial(ctx context.Context, input *models.NewMaterial) *models.Material {
	m, err := models.CreateMaterial(ctx, input)
	if err != nil {
		fatal("create material "+input.Name, err)
	}
	fmt.Printf("Created material %q (id=%d)\n", m.Name, m.ID)
	return m
}

func mustSupplier(ctx context.Context, input *models.NewSupplier) *models.Supplier {
	s, err := models.CreateSupplier(ctx, input)
	if err != nil {
		fatal("create supplier "+input.Name, err)
	}
	fmt.Printf("Created supplier %q (id=%d)\n", s.Name, s.ID)
	return s
}

func mustOffer(ctx context.Context, input *models.NewSupplierOffer) {
	if _, err := models.SetSupplierOffer(ctx, input); err != nil {
		fatal("set supplier offer", err)
	}
}

func mustAdjust(ctx context.Context, input *models.NewStockAdjustment) {
	if _, err := models.ApplyStockAdjustment(ctx, input); err != nil {
		fatal("stock adjustment", err)
	}
}

func fatal(step string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", step, err)
	os.Exit(1)
}
