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

// stockLockKey serializes the read-resolve-append sequence of all postings.
// Two postings that interleave here could both "see" the same stock and
// overcommit it.
const stockLockKey = "stockLock"

// ProductionRecord is the immutable outcome of one posting. RealizedUnitCost
// is computed from the suppliers actually deducted, not from the generic
// estimate.
type ProductionRecord struct {
	ID                int             `gorm:"primary_key" json:"id"`
	NodeId            int             `gorm:"index;not null" json:"node_id"`
	Node              *Node           `gorm:"foreignkey:NodeId" json:"node,omitempty"`
	Batches           decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"batches"`
	RealizedUnitCost  decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"realized_unit_cost"`
	RealizedTotalCost decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"realized_total_cost"`
	ProducedAt        time.Time       `gorm:"index;not null" json:"produced_at"`
	CorrelationId     string          `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type NewProduction struct {
	NodeId     int             `json:"node_id" binding:"required"`
	Batches    decimal.Decimal `json:"batches"`
	ProducedAt *time.Time      `json:"produced_at"`
}

// requirement is one pooled demand gathered from the recipe expansion:
// either a material quantity or a stocked premake's own units.
type requirement struct {
	materialId *int
	nodeId     *int
	qty        decimal.Decimal
}

// requirementSet merges demands for the same pool so a material shared by
// several components is resolved once (no double counting), in a stable
// first-seen order.
type requirementSet struct {
	ordered    []*requirement
	byMaterial map[int]*requirement
	byNode     map[int]*requirement
}

func newRequirementSet() *requirementSet {
	return &requirementSet{
		byMaterial: make(map[int]*requirement),
		byNode:     make(map[int]*requirement),
	}
}

func (s *requirementSet) addMaterial(materialId int, qty decimal.Decimal) {
	if req, ok := s.byMaterial[materialId]; ok {
		req.qty = req.qty.Add(qty)
		return
	}
	id := materialId
	req := &requirement{materialId: &id, qty: qty}
	s.byMaterial[materialId] = req
	s.ordered = append(s.ordered, req)
}

func (s *requirementSet) addNode(nodeId int, qty decimal.Decimal) {
	if req, ok := s.byNode[nodeId]; ok {
		req.qty = req.qty.Add(qty)
		return
	}
	id := nodeId
	req := &requirement{nodeId: &id, qty: qty}
	s.byNode[nodeId] = req
	s.ordered = append(s.ordered, req)
}

// gatherRequirements expands a node's recipe into pooled demands.
// Pass-through premakes recurse into their own components; stocked premakes
// become a demand against their own ledger instead.
func gatherRequirements(g *ComponentGraph, node *Node, batches decimal.Decimal, reqs *requirementSet) error {
	for _, comp := range node.Components {
		switch comp.Kind {
		case ComponentKindLoss, ComponentKindLabor:
			continue
		case ComponentKindRawMaterial, ComponentKindPackaging:
			material := g.materials[*comp.MaterialId]
			if material == nil {
				return gorm.ErrRecordNotFound
			}
			qty := comp.QuantityPerBatch.Mul(batches).Mul(material.wasteMultiplier())
			reqs.addMaterial(material.ID, qty)
		case ComponentKindNested:
			child := g.nodes[*comp.NodeRefId]
			if child == nil {
				return gorm.ErrRecordNotFound
			}
			qtyUnits := comp.QuantityPerBatch.Mul(batches)
			if child.Kind == NodeKindPremake && child.IsStocked != nil && *child.IsStocked {
				reqs.addNode(child.ID, qtyUnits)
				continue
			}
			if err := gatherRequirements(g, child, qtyUnits.Div(child.BatchSize), reqs); err != nil {
				return err
			}
		}
	}
	return nil
}

// PostProduction posts one production event: plans supplier deductions for
// every required material, computes the realized cost from the suppliers
// actually chosen, and commits the deduction events plus the production
// record as one unit. Any resolution failure aborts with nothing written.
func PostProduction(ctx context.Context, input *NewProduction) (*ProductionRecord, error) {
	if input.Batches.LessThanOrEqual(decimal.Zero) {
		return nil, errors.New("batches must be positive")
	}

	release, err := utils.ObtainStockLock(ctx, stockLockKey, "production.go", "PostProduction")
	if err != nil {
		return nil, err
	}
	defer release()

	graph, err := LoadComponentGraph(ctx)
	if err != nil {
		return nil, err
	}
	node := graph.Node(input.NodeId)
	if node == nil {
		return nil, gorm.ErrRecordNotFound
	}
	if err := graph.ValidateAcyclic(node.ID); err != nil {
		return nil, err
	}

	reqs := newRequirementSet()
	if err := gatherRequirements(graph, node, input.Batches, reqs); err != nil {
		return nil, err
	}

	producedAt := time.Now()
	if input.ProducedAt != nil {
		producedAt = *input.ProducedAt
	}
	correlationId, _ := utils.GetCorrelationIdFromContext(ctx)

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()

	// stage: resolve everything against one ledger snapshot before any write
	pass := newCostPass(graph)
	totalCost := decimal.Zero
	var events []StockEvent

	for _, req := range reqs.ordered {
		if req.materialId != nil {
			material := graph.Material(*req.materialId)
			deductions, derr := resolveDeductionsTx(tx, material, req.qty, orderPrimaryFirst)
			if derr != nil {
				tx.Rollback()
				return nil, derr
			}
			for _, d := range deductions {
				totalCost = totalCost.Add(d.TotalCost)
				if d.Unlimited {
					// unlimited materials never hit the ledger
					continue
				}
				events = append(events, StockEvent{
					MaterialId:    req.materialId,
					SupplierId:    d.SupplierId,
					Operation:     StockOperationAdd,
					Qty:           d.Qty.Neg(),
					EventTime:     producedAt,
					ReferenceType: StockReferenceTypeProduction,
					CorrelationId: correlationId,
				})
			}
			continue
		}

		// stocked premake: deduct its own ledger, valued at its computed
		// unit cost
		available, serr := nodeStockTx(tx, *req.nodeId)
		if serr != nil {
			tx.Rollback()
			return nil, serr
		}
		if available.IsNegative() {
			available = decimal.Zero
		}
		if available.LessThan(req.qty) {
			tx.Rollback()
			premake := graph.Node(*req.nodeId)
			name := ""
			if premake != nil {
				name = premake.Name
			}
			return nil, &InsufficientStockError{
				NodeId:    req.nodeId,
				Name:      name,
				Shortfall: req.qty.Sub(available),
			}
		}
		unitCost, cerr := pass.unitCost(*req.nodeId)
		if cerr != nil {
			tx.Rollback()
			return nil, cerr
		}
		totalCost = totalCost.Add(req.qty.Mul(unitCost))
		events = append(events, StockEvent{
			NodeId:        req.nodeId,
			Operation:     StockOperationAdd,
			Qty:           req.qty.Neg(),
			EventTime:     producedAt,
			ReferenceType: StockReferenceTypeProduction,
			CorrelationId: correlationId,
		})
	}

	// commit: deduction events, the node's own output for stocked premakes,
	// and the record — all or nothing
	outputUnits := input.Batches.Mul(node.BatchSize)
	record := ProductionRecord{
		NodeId:            node.ID,
		Batches:           input.Batches,
		RealizedTotalCost: totalCost,
		RealizedUnitCost:  totalCost.Div(outputUnits),
		ProducedAt:        producedAt,
		CorrelationId:     correlationId,
	}
	if err := tx.Create(&record).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if node.Kind == NodeKindPremake && node.IsStocked != nil && *node.IsStocked {
		events = append(events, StockEvent{
			NodeId:        &node.ID,
			Operation:     StockOperationAdd,
			Qty:           outputUnits,
			EventTime:     producedAt,
			ReferenceType: StockReferenceTypeProduction,
			CorrelationId: correlationId,
		})
	}
	for i := range events {
		events[i].ReferenceId = record.ID
	}
	if len(events) > 0 {
		if err := tx.Create(&events).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func GetProductionRecords(ctx context.Context) ([]ProductionRecord, error) {
	var records []ProductionRecord
	db := config.GetDB()
	err := db.WithContext(ctx).
		Preload("Node").
		Order("produced_at DESC, id DESC").
		Find(&records).Error
	return records, err
}
