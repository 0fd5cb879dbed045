package models

import (
	"context"
	"errors"
	"time"

	"github.com/bakeledger/prodcost_backend/config"
	"github.com/bakeledger/prodcost_backend/utils"
	"github.com/shopspring/decimal"
)

// Material unifies raw materials and packaging items under one row with a
// kind tag. Unlimited materials (water, ice) cost 0 and are never
// stock-deducted.
type Material struct {
	ID              int             `gorm:"primary_key" json:"id"`
	Name            string          `gorm:"size:100;not null" json:"name" binding:"required"`
	Kind            MaterialKind    `gorm:"size:1;not null;default:R" json:"kind"`
	Category        string          `gorm:"size:100" json:"category"`
	Unit            string          `gorm:"size:20;not null;default:kg" json:"unit"`
	DefaultPrice    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"default_price"`
	IsUnlimited     *bool           `gorm:"not null;default:false" json:"is_unlimited"`
	WastePercentage decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"waste_percentage"`
	IsActive        *bool           `gorm:"not null;default:true" json:"is_active"`
	Offers          []SupplierOffer `gorm:"foreignkey:MaterialId" json:"offers"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type Supplier struct {
	ID                 int             `gorm:"primary_key" json:"id"`
	Name               string          `gorm:"size:100;not null" json:"name" binding:"required"`
	DiscountPercentage decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"discount_percentage"`
	IsActive           *bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt          time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// SupplierOffer binds a material to a supplier at a unit price. At most one
// offer per material may be primary; SetSupplierOffer enforces it.
type SupplierOffer struct {
	ID         int             `gorm:"primary_key" json:"id"`
	MaterialId int             `gorm:"uniqueIndex:idx_offer_material_supplier;not null" json:"material_id"`
	SupplierId int             `gorm:"uniqueIndex:idx_offer_material_supplier;not null" json:"supplier_id"`
	UnitPrice  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_price"`
	Sku        string          `gorm:"size:100" json:"sku"`
	IsPrimary  *bool           `gorm:"not null;default:false" json:"is_primary"`
	Supplier   *Supplier       `gorm:"foreignkey:SupplierId" json:"supplier,omitempty"`
	CreatedAt  time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewMaterial struct {
	Name            string          `json:"name" binding:"required"`
	Kind            MaterialKind    `json:"kind"`
	Category        string          `json:"category"`
	Unit            string          `json:"unit"`
	DefaultPrice    decimal.Decimal `json:"default_price"`
	IsUnlimited     *bool           `json:"is_unlimited"`
	WastePercentage decimal.Decimal `json:"waste_percentage"`
}

type NewSupplier struct {
	Name               string          `json:"name" binding:"required"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
}

type NewSupplierOffer struct {
	MaterialId int             `json:"material_id" binding:"required"`
	SupplierId int             `json:"supplier_id" binding:"required"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Sku        string          `json:"sku"`
	IsPrimary  *bool           `json:"is_primary"`
}

var oneHundred = decimal.NewFromInt(100)

// wasteMultiplier converts a recipe quantity to the gross quantity that must
// leave inventory. 0% waste -> 1; 50% waste -> 2 (need double the input).
func (m *Material) wasteMultiplier() decimal.Decimal {
	if m.WastePercentage.LessThanOrEqual(decimal.Zero) {
		return decimal.NewFromInt(1)
	}
	usable := oneHundred.Sub(m.WastePercentage)
	if usable.LessThanOrEqual(decimal.Zero) {
		return decimal.NewFromInt(1)
	}
	return oneHundred.Div(usable)
}

func (m *Material) primaryOffer() *SupplierOffer {
	for i := range m.Offers {
		if m.Offers[i].IsPrimary != nil && *m.Offers[i].IsPrimary {
			return &m.Offers[i]
		}
	}
	return nil
}

func (input *NewMaterial) validate(ctx context.Context) error {
	if input.Kind == "" {
		input.Kind = MaterialKindRaw
	}
	if !input.Kind.Valid() {
		return errors.New("invalid material kind")
	}
	if input.WastePercentage.IsNegative() || input.WastePercentage.GreaterThanOrEqual(oneHundred) {
		return errors.New("waste percentage must be in [0, 100)")
	}
	if input.IsUnlimited != nil && *input.IsUnlimited && !input.DefaultPrice.IsZero() {
		return errors.New("unlimited materials must have price 0")
	}
	return nil
}

func CreateMaterial(ctx context.Context, input *NewMaterial) (*Material, error) {
	if err := input.validate(ctx); err != nil {
		return nil, err
	}

	unit := input.Unit
	if unit == "" {
		unit = "kg"
	}
	isUnlimited := input.IsUnlimited
	if isUnlimited == nil {
		isUnlimited = utils.NewFalse()
	}

	material := Material{
		Name:            input.Name,
		Kind:            input.Kind,
		Category:        input.Category,
		Unit:            unit,
		DefaultPrice:    input.DefaultPrice,
		IsUnlimited:     isUnlimited,
		WastePercentage: input.WastePercentage,
		IsActive:        utils.NewTrue(),
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&material).Error; err != nil {
		return nil, err
	}
	return &material, nil
}

func GetMaterial(ctx context.Context, id int) (*Material, error) {
	var material Material
	db := config.GetDB()
	err := db.WithContext(ctx).
		Preload("Offers").Preload("Offers.Supplier").
		First(&material, id).Error
	if err != nil {
		return nil, err
	}
	return &material, nil
}

func GetMaterials(ctx context.Context) ([]Material, error) {
	var materials []Material
	db := config.GetDB()
	err := db.WithContext(ctx).
		Preload("Offers").Preload("Offers.Supplier").
		Order("id").
		Find(&materials).Error
	return materials, err
}

func CreateSupplier(ctx context.Context, input *NewSupplier) (*Supplier, error) {
	if input.DiscountPercentage.IsNegative() || input.DiscountPercentage.GreaterThanOrEqual(oneHundred) {
		return nil, errors.New("discount percentage must be in [0, 100)")
	}

	supplier := Supplier{
		Name:               input.Name,
		DiscountPercentage: input.DiscountPercentage,
		IsActive:           utils.NewTrue(),
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&supplier).Error; err != nil {
		return nil, err
	}
	return &supplier, nil
}

// SetSupplierOffer creates or updates the offer for (material, supplier).
// Marking an offer primary demotes the material's previous primary in the
// same transaction, keeping the one-primary-per-material invariant.
func SetSupplierOffer(ctx context.Context, input *NewSupplierOffer) (*SupplierOffer, error) {
	if err := utils.ValidateResourceId[Material](ctx, input.MaterialId); err != nil {
		return nil, errors.New("material not found")
	}
	if err := utils.ValidateResourceId[Supplier](ctx, input.SupplierId); err != nil {
		return nil, errors.New("supplier not found")
	}
	if input.UnitPrice.IsNegative() {
		return nil, errors.New("unit price must not be negative")
	}

	isPrimary := input.IsPrimary
	if isPrimary == nil {
		isPrimary = utils.NewFalse()
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()

	if *isPrimary {
		err := tx.Model(&SupplierOffer{}).
			Where("material_id = ? AND supplier_id != ?", input.MaterialId, input.SupplierId).
			Update("is_primary", false).Error
		if err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	var offer SupplierOffer
	err := tx.Where("material_id = ? AND supplier_id = ?", input.MaterialId, input.SupplierId).
		First(&offer).Error
	if err == nil {
		offer.UnitPrice = input.UnitPrice
		offer.Sku = input.Sku
		offer.IsPrimary = isPrimary
		if err := tx.Save(&offer).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	} else {
		offer = SupplierOffer{
			MaterialId: input.MaterialId,
			SupplierId: input.SupplierId,
			UnitPrice:  input.UnitPrice,
			Sku:        input.Sku,
			IsPrimary:  isPrimary,
		}
		if err := tx.Create(&offer).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &offer, nil
}
