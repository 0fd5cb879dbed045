package models

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CostBreakdown is the loss-aware cost view used for "cost per 100 units"
// display. NetYield = batch size plus the (negative) loss quantities.
type CostBreakdown struct {
	UnitCost       decimal.Decimal `json:"unit_cost"`
	TotalBatchCost decimal.Decimal `json:"total_batch_cost"`
	NetYield       decimal.Decimal `json:"net_yield"`
	CostPer100     decimal.Decimal `json:"cost_per_100"`
}

// minYield guards the division when loss lines eat (almost) the whole batch.
var minYield = decimal.NewFromFloat(0.001)

// GetUnitCost computes the estimated cost of one output unit of the node from
// current prices. Deterministic for a fixed price set; recomputed from
// scratch on every call since prices change between calls.
func GetUnitCost(ctx context.Context, nodeId int) (decimal.Decimal, error) {
	graph, err := LoadComponentGraph(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return graph.UnitCost(nodeId)
}

func GetUnitCostBreakdown(ctx context.Context, nodeId int) (*CostBreakdown, error) {
	graph, err := LoadComponentGraph(ctx)
	if err != nil {
		return nil, err
	}
	return graph.UnitCostBreakdown(nodeId)
}

func (g *ComponentGraph) UnitCost(nodeId int) (decimal.Decimal, error) {
	breakdown, err := g.UnitCostBreakdown(nodeId)
	if err != nil {
		return decimal.Zero, err
	}
	return breakdown.UnitCost, nil
}

func (g *ComponentGraph) UnitCostBreakdown(nodeId int) (*CostBreakdown, error) {
	if err := g.ValidateAcyclic(nodeId); err != nil {
		return nil, err
	}

	node := g.nodes[nodeId]
	if node == nil {
		return nil, gorm.ErrRecordNotFound
	}

	pass := newCostPass(g)
	totalCost, lossQty, err := pass.batchCost(node)
	if err != nil {
		return nil, err
	}

	netYield := node.BatchSize.Add(lossQty)
	if netYield.LessThan(minYield) {
		netYield = minYield
	}

	return &CostBreakdown{
		UnitCost:       totalCost.Div(node.BatchSize),
		TotalBatchCost: totalCost,
		NetYield:       netYield,
		CostPer100:     totalCost.Div(netYield).Mul(oneHundred),
	}, nil
}

// costPass memoizes unit costs for the duration of one computation. A single
// request can revisit a shared sub-premake many times; across requests the
// memo is thrown away because prices may have changed.
type costPass struct {
	graph    *ComponentGraph
	memo     map[int]decimal.Decimal
	visiting map[int]bool
}

func newCostPass(g *ComponentGraph) *costPass {
	return &costPass{
		graph:    g,
		memo:     make(map[int]decimal.Decimal),
		visiting: make(map[int]bool),
	}
}

func (p *costPass) unitCost(nodeId int) (decimal.Decimal, error) {
	if cost, ok := p.memo[nodeId]; ok {
		return cost, nil
	}
	// Defensive: callers validate the graph first, but a cycle encountered
	// mid-recursion must still fail instead of recursing forever.
	if p.visiting[nodeId] {
		return decimal.Zero, &CircularReferenceError{Path: []int{nodeId, nodeId}}
	}

	node := p.graph.nodes[nodeId]
	if node == nil {
		return decimal.Zero, gorm.ErrRecordNotFound
	}

	p.visiting[nodeId] = true
	totalCost, _, err := p.batchCost(node)
	delete(p.visiting, nodeId)
	if err != nil {
		return decimal.Zero, err
	}

	cost := totalCost.Div(node.BatchSize)
	p.memo[nodeId] = cost
	return cost, nil
}

// batchCost sums component costs for one recipe run and collects the signed
// loss quantity. Aborts on the first failure; partial costs are meaningless.
func (p *costPass) batchCost(node *Node) (totalCost decimal.Decimal, lossQty decimal.Decimal, err error) {
	totalCost = decimal.Zero
	lossQty = decimal.Zero

	for _, comp := range node.Components {
		switch comp.Kind {
		case ComponentKindLoss:
			lossQty = lossQty.Add(comp.QuantityPerBatch)
		case ComponentKindLabor:
			// labor costing is disabled
		case ComponentKindRawMaterial, ComponentKindPackaging:
			material := p.graph.materials[*comp.MaterialId]
			if material == nil {
				return decimal.Zero, decimal.Zero, &MissingPriceError{MaterialId: *comp.MaterialId}
			}
			price, perr := material.effectivePrice(nil)
			if perr != nil {
				return decimal.Zero, decimal.Zero, perr
			}
			// waste raises the quantity drawn, not the price
			grossQty := comp.QuantityPerBatch.Mul(material.wasteMultiplier())
			totalCost = totalCost.Add(grossQty.Mul(price))
		case ComponentKindNested:
			nestedCost, nerr := p.unitCost(*comp.NodeRefId)
			if nerr != nil {
				return decimal.Zero, decimal.Zero, nerr
			}
			totalCost = totalCost.Add(comp.QuantityPerBatch.Mul(nestedCost))
		}
	}
	return totalCost, lossQty, nil
}
