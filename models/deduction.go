package models

import (
	"context"
	"sort"

	"github.com/bakeledger/prodcost_backend/config"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Deduction is one planned per-supplier allocation. Unlimited materials get
// a single synthetic allocation with no supplier, no price and no ledger
// effect.
type Deduction struct {
	MaterialId int             `json:"material_id"`
	SupplierId *int            `json:"supplier_id,omitempty"`
	Qty        decimal.Decimal `json:"qty"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	TotalCost  decimal.Decimal `json:"total_cost"`
	Unlimited  bool            `json:"unlimited,omitempty"`
}

type supplierCandidate struct {
	supplierId int
	price      decimal.Decimal
	isPrimary  bool
	available  decimal.Decimal
}

// ResolveDeductions plans which suppliers' stock covers a requirement,
// primary supplier first, then the rest by ascending discounted price (ties
// by supplier id). Planning only: the ledger is not touched. Fails with
// InsufficientStockError carrying the shortfall.
func ResolveDeductions(ctx context.Context, materialId int, required decimal.Decimal) ([]Deduction, error) {
	material, err := GetMaterial(ctx, materialId)
	if err != nil {
		return nil, err
	}
	return resolveDeductionsTx(config.GetDB().WithContext(ctx), material, required, orderPrimaryFirst)
}

// CheapestFirstPlan is the preview variant used by purchasing screens: same
// mechanics, ordered purely by ascending discounted price. Never used by
// production postings.
func CheapestFirstPlan(ctx context.Context, materialId int, required decimal.Decimal) ([]Deduction, error) {
	material, err := GetMaterial(ctx, materialId)
	if err != nil {
		return nil, err
	}
	return resolveDeductionsTx(config.GetDB().WithContext(ctx), material, required, orderCheapestFirst)
}

const (
	orderPrimaryFirst = iota
	orderCheapestFirst
)

func resolveDeductionsTx(tx *gorm.DB, material *Material, required decimal.Decimal, order int) ([]Deduction, error) {
	if material.IsUnlimited != nil && *material.IsUnlimited {
		return []Deduction{{
			MaterialId: material.ID,
			Qty:        required,
			UnitPrice:  decimal.Zero,
			TotalCost:  decimal.Zero,
			Unlimited:  true,
		}}, nil
	}

	candidates := make([]supplierCandidate, 0, len(material.Offers))
	for i := range material.Offers {
		offer := &material.Offers[i]
		supplierId := offer.SupplierId
		available, err := currentStockTx(tx, material.ID, &supplierId)
		if err != nil {
			return nil, err
		}
		if available.IsNegative() {
			available = decimal.Zero
		}
		candidates = append(candidates, supplierCandidate{
			supplierId: supplierId,
			price:      offer.discountedPrice(),
			isPrimary:  offer.IsPrimary != nil && *offer.IsPrimary,
			available:  available,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if order == orderPrimaryFirst && candidates[i].isPrimary != candidates[j].isPrimary {
			return candidates[i].isPrimary
		}
		if !candidates[i].price.Equal(candidates[j].price) {
			return candidates[i].price.LessThan(candidates[j].price)
		}
		return candidates[i].supplierId < candidates[j].supplierId
	})

	var deductions []Deduction
	remaining := required
	for i := range candidates {
		if remaining.LessThanOrEqual(decimal.Zero) {
			break
		}
		c := &candidates[i]
		if c.available.LessThanOrEqual(decimal.Zero) {
			continue
		}
		take := decimal.Min(remaining, c.available)
		supplierId := c.supplierId
		deductions = append(deductions, Deduction{
			MaterialId: material.ID,
			SupplierId: &supplierId,
			Qty:        take,
			UnitPrice:  c.price,
			TotalCost:  take.Mul(c.price),
		})
		remaining = remaining.Sub(take)
	}

	if remaining.GreaterThan(decimal.Zero) {
		materialId := material.ID
		return nil, &InsufficientStockError{
			MaterialId: &materialId,
			Name:       material.Name,
			Shortfall:  remaining,
		}
	}
	return deductions, nil
}
