package models

import (
	"context"

	"github.com/shopspring/decimal"
)

// EffectivePrice resolves the unit price used for costing a material.
//
// Unlimited materials are free. With a supplier id, only that supplier's
// offer counts (UnknownSupplierOfferError otherwise). Without one, the
// primary offer wins, falling back to the material's default price when no
// primary exists. Offer prices carry the supplier's discount.
func EffectivePrice(ctx context.Context, materialId int, supplierId *int) (decimal.Decimal, error) {
	material, err := GetMaterial(ctx, materialId)
	if err != nil {
		return decimal.Zero, err
	}
	return material.effectivePrice(supplierId)
}

func (m *Material) effectivePrice(supplierId *int) (decimal.Decimal, error) {
	if m.IsUnlimited != nil && *m.IsUnlimited {
		return decimal.Zero, nil
	}

	if supplierId != nil {
		for i := range m.Offers {
			if m.Offers[i].SupplierId == *supplierId {
				return m.Offers[i].discountedPrice(), nil
			}
		}
		return decimal.Zero, &UnknownSupplierOfferError{MaterialId: m.ID, SupplierId: *supplierId}
	}

	if offer := m.primaryOffer(); offer != nil {
		return offer.discountedPrice(), nil
	}
	if m.DefaultPrice.IsZero() {
		return decimal.Zero, &MissingPriceError{MaterialId: m.ID}
	}
	return m.DefaultPrice, nil
}

// discountedPrice applies the supplier's discount percentage to the offer
// price. Offers loaded without their supplier are treated as undiscounted.
func (o *SupplierOffer) discountedPrice() decimal.Decimal {
	if o.Supplier == nil || o.Supplier.DiscountPercentage.LessThanOrEqual(decimal.Zero) {
		return o.UnitPrice
	}
	factor := oneHundred.Sub(o.Supplier.DiscountPercentage).Div(oneHundred)
	return o.UnitPrice.Mul(factor)
}
