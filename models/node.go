package models

import (
	"context"
	"errors"
	"time"

	"github.com/bakeledger/prodcost_backend/config"
	"github.com/bakeledger/prodcost_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Node is any entity in the recipe hierarchy: a final product, a premake
// (intermediate preparation, usable as a component of other nodes) or a
// preproduct. One recipe run yields BatchSize units.
//
// Premakes are either stocked (their own ledger entry is deducted when they
// appear as a component) or pass-through (production always recurses into
// their components).
type Node struct {
	ID                  int              `gorm:"primary_key" json:"id"`
	Name                string           `gorm:"size:100;not null" json:"name" binding:"required"`
	Kind                NodeKind         `gorm:"size:1;not null;default:F" json:"kind"`
	BatchSize           decimal.Decimal  `gorm:"type:decimal(20,4);not null" json:"batch_size"`
	Unit                string           `gorm:"size:20;not null;default:kg" json:"unit"`
	SellingPricePerUnit *decimal.Decimal `gorm:"type:decimal(20,4)" json:"selling_price_per_unit,omitempty"`
	IsStocked           *bool            `gorm:"not null;default:false" json:"is_stocked"`
	IsActive            *bool            `gorm:"not null;default:true" json:"is_active"`
	Components          []Component      `gorm:"foreignkey:NodeId" json:"components"`
	CreatedAt           time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

// Component is one recipe line. Exactly one of MaterialId / NodeRefId is set,
// depending on Kind. QuantityPerBatch is negative only for loss lines.
type Component struct {
	ID               int             `gorm:"primary_key" json:"id"`
	NodeId           int             `gorm:"index;not null" json:"node_id"`
	Kind             ComponentKind   `gorm:"size:1;not null" json:"kind"`
	MaterialId       *int            `gorm:"index" json:"material_id,omitempty"`
	NodeRefId        *int            `gorm:"index" json:"node_ref_id,omitempty"`
	QuantityPerBatch decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity_per_batch"`
	Position         int             `gorm:"not null;default:0" json:"position"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewNode struct {
	Name                string           `json:"name" binding:"required"`
	Kind                NodeKind         `json:"kind"`
	BatchSize           decimal.Decimal  `json:"batch_size"`
	Unit                string           `json:"unit"`
	SellingPricePerUnit *decimal.Decimal `json:"selling_price_per_unit"`
	IsStocked           *bool            `json:"is_stocked"`
	Components          []NewComponent   `json:"components"`
}

type NewComponent struct {
	Kind             ComponentKind   `json:"kind" binding:"required"`
	MaterialId       *int            `json:"material_id"`
	NodeRefId        *int            `json:"node_ref_id"`
	QuantityPerBatch decimal.Decimal `json:"quantity_per_batch"`
}

func (input *NewNode) validate(ctx context.Context) error {
	if input.Kind == "" {
		input.Kind = NodeKindFinalProduct
	}
	if !input.Kind.Valid() {
		return errors.New("invalid node kind")
	}
	if input.BatchSize.LessThanOrEqual(decimal.Zero) {
		return errors.New("batch size must be positive")
	}
	if input.SellingPricePerUnit != nil && input.Kind != NodeKindFinalProduct {
		return errors.New("selling price applies to final products only")
	}
	if input.IsStocked != nil && *input.IsStocked && input.Kind != NodeKindPremake {
		return errors.New("is_stocked applies to premakes only")
	}

	var materialIds []int
	var nodeRefIds []int
	for i := range input.Components {
		comp := &input.Components[i]
		if !comp.Kind.Valid() {
			return errors.New("invalid component kind")
		}
		switch comp.Kind {
		case ComponentKindRawMaterial, ComponentKindPackaging:
			if comp.MaterialId == nil {
				return errors.New("material component requires material_id")
			}
			materialIds = append(materialIds, *comp.MaterialId)
		case ComponentKindNested:
			if comp.NodeRefId == nil {
				return errors.New("nested component requires node_ref_id")
			}
			nodeRefIds = append(nodeRefIds, *comp.NodeRefId)
		}
		if comp.Kind == ComponentKindLoss {
			if !comp.QuantityPerBatch.IsNegative() {
				return errors.New("loss quantity must be negative")
			}
		} else if comp.QuantityPerBatch.IsNegative() {
			return errors.New("quantity must not be negative")
		}
	}

	if len(materialIds) > 0 {
		if err := utils.ValidateResourcesId[Material](ctx, materialIds); err != nil {
			return errors.New("material not found")
		}
	}
	if len(nodeRefIds) > 0 {
		if err := utils.ValidateResourcesId[Node](ctx, nodeRefIds); err != nil {
			return errors.New("referenced node not found")
		}
	}
	return nil
}

// CreateNode stores a node with its components. The nested-node graph is
// re-validated inside the transaction; a component list that would introduce
// a cycle is rejected and nothing is written.
func CreateNode(ctx context.Context, input *NewNode) (*Node, error) {
	if err := input.validate(ctx); err != nil {
		return nil, err
	}

	unit := input.Unit
	if unit == "" {
		unit = "kg"
	}
	isStocked := input.IsStocked
	if isStocked == nil {
		isStocked = utils.NewFalse()
	}

	node := Node{
		Name:                input.Name,
		Kind:                input.Kind,
		BatchSize:           input.BatchSize,
		Unit:                unit,
		SellingPricePerUnit: input.SellingPricePerUnit,
		IsStocked:           isStocked,
		IsActive:            utils.NewTrue(),
	}
	for i, comp := range input.Components {
		node.Components = append(node.Components, Component{
			Kind:             comp.Kind,
			MaterialId:       comp.MaterialId,
			NodeRefId:        comp.NodeRefId,
			QuantityPerBatch: comp.QuantityPerBatch,
			Position:         i,
		})
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()

	if err := tx.Create(&node).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	graph, err := loadComponentGraphTx(tx)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := graph.ValidateAcyclic(node.ID); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &node, nil
}

func GetNode(ctx context.Context, id int) (*Node, error) {
	var node Node
	db := config.GetDB()
	err := db.WithContext(ctx).
		Preload("Components", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		First(&node, id).Error
	if err != nil {
		return nil, err
	}
	return &node, nil
}

func GetNodes(ctx context.Context) ([]Node, error) {
	var nodes []Node
	db := config.GetDB()
	err := db.WithContext(ctx).
		Preload("Components", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Order("id").
		Find(&nodes).Error
	return nodes, err
}
