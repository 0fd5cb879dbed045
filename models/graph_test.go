package models_test

import (
	"context"
	"errors"
	"testing"

	"github.com/bakeledger/prodcost_backend/config"
	"github.com/bakeledger/prodcost_backend/models"
	"github.com/bakeledger/prodcost_backend/utils"
	"github.com/shopspring/decimal"
)

// forceComponent appends a raw component row, bypassing CreateNode's cycle
// validation, so tests can manufacture a broken graph.
func forceComponent(t *testing.T, nodeId, nodeRefId int) {
	t.Helper()
	comp := models.Component{
		NodeId:    nodeId,
		Kind:      models.ComponentKindNested,
		NodeRefId: &nodeRefId,
	}
	if err := config.GetDB().Create(&comp).Error; err != nil {
		t.Fatalf("insert component: %v", err)
	}
}

func TestCostFailsOnCircularRecipe(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	a := mustNode(t, ctx, &models.NewNode{
		Name: "A", Kind: models.NodeKindPremake, BatchSize: decimal.NewFromInt(1),
	})
	b := mustNode(t, ctx, &models.NewNode{
		Name: "B", Kind: models.NodeKindPremake, BatchSize: decimal.NewFromInt(1),
		Components: []models.NewComponent{
			{Kind: models.ComponentKindNested, NodeRefId: &a.ID, QuantityPerBatch: decimal.NewFromInt(1)},
		},
	})
	// close the loop behind the validator's back
	forceComponent(t, a.ID, b.ID)

	_, err := models.GetUnitCost(ctx, a.ID)
	var circular *models.CircularReferenceError
	if !errors.As(err, &circular) {
		t.Fatalf("expected CircularReferenceError, got %v", err)
	}
	if len(circular.Path) < 3 {
		t.Fatalf("cycle path too short: %v", circular.Path)
	}
	if circular.Path[0] != circular.Path[len(circular.Path)-1] {
		t.Fatalf("cycle path not closed: %v", circular.Path)
	}
}

func TestProductionFailsOnCircularRecipeWithoutWriting(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	a := mustNode(t, ctx, &models.NewNode{
		Name: "A", Kind: models.NodeKindFinalProduct, BatchSize: decimal.NewFromInt(1),
	})
	b := mustNode(t, ctx, &models.NewNode{
		Name: "B", Kind: models.NodeKindPremake, BatchSize: decimal.NewFromInt(1),
		Components: []models.NewComponent{
			{Kind: models.ComponentKindNested, NodeRefId: &a.ID, QuantityPerBatch: decimal.NewFromInt(1)},
		},
	})
	forceComponent(t, a.ID, b.ID)

	_, err := models.PostProduction(ctx, &models.NewProduction{NodeId: a.ID, Batches: decimal.NewFromInt(1)})
	var circular *models.CircularReferenceError
	if !errors.As(err, &circular) {
		t.Fatalf("expected CircularReferenceError, got %v", err)
	}

	var records int64
	config.GetDB().Model(&models.ProductionRecord{}).Count(&records)
	if records != 0 {
		t.Fatalf("expected no production records, got %d", records)
	}
	var events int64
	config.GetDB().Model(&models.StockEvent{}).Count(&events)
	if events != 0 {
		t.Fatalf("expected no stock events, got %d", events)
	}
}

func TestCreateNodeRejectsSelfReference(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	missing := 424242
	_, err := models.CreateNode(ctx, &models.NewNode{
		Name: "Broken", Kind: models.NodeKindPremake, BatchSize: decimal.NewFromInt(1),
		Components: []models.NewComponent{
			{Kind: models.ComponentKindNested, NodeRefId: &missing, QuantityPerBatch: decimal.NewFromInt(1)},
		},
	})
	if err == nil {
		t.Fatal("expected error for unknown nested node reference")
	}
}

func TestCreateNodeValidation(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	_, err := models.CreateNode(ctx, &models.NewNode{Name: "ZeroBatch", BatchSize: decimal.Zero})
	if err == nil {
		t.Fatal("expected error for zero batch size")
	}

	flour := mustMaterial(t, ctx, &models.NewMaterial{Name: "Flour", DefaultPrice: decimal.NewFromInt(2)})
	_, err = models.CreateNode(ctx, &models.NewNode{
		Name: "BadLoss", BatchSize: decimal.NewFromInt(10),
		Components: []models.NewComponent{
			{Kind: models.ComponentKindLoss, QuantityPerBatch: decimal.NewFromInt(1)},
		},
	})
	if err == nil {
		t.Fatal("expected error for positive loss quantity")
	}

	_, err = models.CreateNode(ctx, &models.NewNode{
		Name: "NegQty", BatchSize: decimal.NewFromInt(10),
		Components: []models.NewComponent{
			{Kind: models.ComponentKindRawMaterial, MaterialId: &flour.ID, QuantityPerBatch: decimal.NewFromInt(-1)},
		},
	})
	if err == nil {
		t.Fatal("expected error for negative material quantity")
	}

	_, err = models.CreateNode(ctx, &models.NewNode{
		Name: "StockedProduct", Kind: models.NodeKindFinalProduct,
		BatchSize: decimal.NewFromInt(10), IsStocked: utils.NewTrue(),
	})
	if err == nil {
		t.Fatal("expected error: only premakes can be stock-tracked")
	}
}

func TestDeepChainCostTerminates(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	flour := mustMaterial(t, ctx, &models.NewMaterial{Name: "Flour", DefaultPrice: decimal.NewFromInt(1)})

	// base premake: 1 unit of flour per unit of output
	prev := mustNode(t, ctx, &models.NewNode{
		Name: "Level0", Kind: models.NodeKindPremake, BatchSize: decimal.NewFromInt(1),
		Components: []models.NewComponent{
			{Kind: models.ComponentKindRawMaterial, MaterialId: &flour.ID, QuantityPerBatch: decimal.NewFromInt(1)},
		},
	})
	for i := 1; i <= 6; i++ {
		prev = mustNode(t, ctx, &models.NewNode{
			Name: "Level" + string(rune('0'+i)), Kind: models.NodeKindPremake, BatchSize: decimal.NewFromInt(1),
			Components: []models.NewComponent{
				{Kind: models.ComponentKindNested, NodeRefId: &prev.ID, QuantityPerBatch: decimal.NewFromInt(2)},
			},
		})
	}

	// each level doubles the flour demand: 2^6 units at price 1
	cost, err := models.GetUnitCost(ctx, prev.ID)
	if err != nil {
		t.Fatalf("GetUnitCost: %v", err)
	}
	assertDecimal(t, "deep chain unit cost", cost, decimal.NewFromInt(64))
}
