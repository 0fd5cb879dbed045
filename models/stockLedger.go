package models

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/bakeledger/prodcost_backend/config"
	"github.com/bakeledger/prodcost_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// StockEvent is one append-only inventory ledger entry, keyed by a material
// (or a stocked premake's node) and optionally a supplier. Events are never
// updated or deleted; corrections are new events.
type StockEvent struct {
	ID            int                `gorm:"primary_key" json:"id"`
	MaterialId    *int               `gorm:"index" json:"material_id,omitempty"`
	NodeId        *int               `gorm:"index" json:"node_id,omitempty"`
	SupplierId    *int               `gorm:"index" json:"supplier_id,omitempty"`
	Operation     StockOperation     `gorm:"size:1;not null" json:"operation"`
	Qty           decimal.Decimal    `gorm:"type:decimal(20,4);not null" json:"qty"`
	EventTime     time.Time          `gorm:"index;not null" json:"event_time"`
	ReferenceType StockReferenceType `gorm:"size:3" json:"reference_type"`
	ReferenceId   int                `json:"reference_id"`
	Note          string             `gorm:"size:255" json:"note"`
	CorrelationId string             `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt     time.Time          `gorm:"autoCreateTime" json:"created_at"`
}

// StockLevel is a stock quantity that may be "unlimited".
type StockLevel struct {
	Qty       decimal.Decimal
	Unlimited bool
}

func (s StockLevel) MarshalJSON() ([]byte, error) {
	if s.Unlimited {
		return json.Marshal("unlimited")
	}
	return json.Marshal(s.Qty)
}

type NewStockAdjustment struct {
	MaterialId *int            `json:"material_id"`
	NodeId     *int            `json:"node_id"`
	SupplierId *int            `json:"supplier_id"`
	Operation  StockOperation  `json:"operation" binding:"required"`
	Qty        decimal.Decimal `json:"qty"`
	EventTime  *time.Time      `json:"event_time"`
	Note       string          `json:"note"`
}

// ApplyStockAdjustment appends a manual inventory event (stock updates,
// audits). Appends are never rejected for business reasons; sufficiency is
// only checked when production consumes stock.
func ApplyStockAdjustment(ctx context.Context, input *NewStockAdjustment) (*StockEvent, error) {
	if err := input.validate(ctx); err != nil {
		return nil, err
	}

	eventTime := time.Now()
	if input.EventTime != nil {
		eventTime = *input.EventTime
	}
	correlationId, _ := utils.GetCorrelationIdFromContext(ctx)

	event := StockEvent{
		MaterialId:    input.MaterialId,
		NodeId:        input.NodeId,
		SupplierId:    input.SupplierId,
		Operation:     input.Operation,
		Qty:           input.Qty,
		EventTime:     eventTime,
		ReferenceType: StockReferenceTypeAdjustment,
		Note:          input.Note,
		CorrelationId: correlationId,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&event).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

func (input *NewStockAdjustment) validate(ctx context.Context) error {
	if !input.Operation.Valid() {
		return errors.New("invalid stock operation")
	}
	if (input.MaterialId == nil) == (input.NodeId == nil) {
		return errors.New("exactly one of material_id and node_id is required")
	}
	if input.MaterialId != nil {
		if err := utils.ValidateResourceId[Material](ctx, *input.MaterialId); err != nil {
			return errors.New("material not found")
		}
	}
	if input.NodeId != nil {
		var node Node
		db := config.GetDB()
		if err := db.WithContext(ctx).First(&node, *input.NodeId).Error; err != nil {
			return errors.New("node not found")
		}
		if node.IsStocked == nil || !*node.IsStocked {
			return errors.New("node is not stock-tracked")
		}
	}
	if input.SupplierId != nil {
		if err := utils.ValidateResourceId[Supplier](ctx, *input.SupplierId); err != nil {
			return errors.New("supplier not found")
		}
	}
	return nil
}

// replayStock derives the on-hand quantity from events that are already
// ordered by (event_time, id). Sequential application is equivalent to
// "last SetAbsolute plus the Adds after it"; re-deriving from the same list
// always yields the same result.
func replayStock(events []StockEvent) decimal.Decimal {
	stock := decimal.Zero
	for _, e := range events {
		switch e.Operation {
		case StockOperationSetAbsolute:
			stock = e.Qty
		case StockOperationAdd:
			stock = stock.Add(e.Qty)
		}
	}
	return stock
}

// loadStockEvents fetches a ledger slice in replay order. Timestamp ties are
// broken by the autoincrement id (insertion sequence), never by value.
func loadStockEvents(tx *gorm.DB, scope func(*gorm.DB) *gorm.DB) ([]StockEvent, error) {
	var events []StockEvent
	err := scope(tx.Model(&StockEvent{})).
		Order("event_time, id").
		Find(&events).Error
	return events, err
}

// GetCurrentStock replays the ledger for one (material, supplier) pair.
// A nil supplier id addresses the "unspecified" bucket.
func GetCurrentStock(ctx context.Context, materialId int, supplierId *int) (decimal.Decimal, error) {
	return currentStockTx(config.GetDB().WithContext(ctx), materialId, supplierId)
}

func currentStockTx(tx *gorm.DB, materialId int, supplierId *int) (decimal.Decimal, error) {
	events, err := loadStockEvents(tx, func(db *gorm.DB) *gorm.DB {
		db = db.Where("material_id = ?", materialId)
		if supplierId == nil {
			return db.Where("supplier_id IS NULL")
		}
		return db.Where("supplier_id = ?", supplierId)
	})
	if err != nil {
		return decimal.Zero, err
	}
	return replayStock(events), nil
}

// GetTotalStock sums a material's stock across all suppliers, including the
// unspecified bucket. Unlimited materials report an unlimited level.
func GetTotalStock(ctx context.Context, materialId int) (StockLevel, error) {
	material, err := GetMaterial(ctx, materialId)
	if err != nil {
		return StockLevel{}, err
	}
	if material.IsUnlimited != nil && *material.IsUnlimited {
		return StockLevel{Unlimited: true}, nil
	}

	events, err := loadStockEvents(config.GetDB().WithContext(ctx), func(db *gorm.DB) *gorm.DB {
		return db.Where("material_id = ?", materialId)
	})
	if err != nil {
		return StockLevel{}, err
	}

	// per-supplier buckets replay independently: a SetAbsolute for supplier A
	// must not clobber supplier B's stock
	buckets := make(map[int][]StockEvent)
	for _, e := range events {
		key := 0
		if e.SupplierId != nil {
			key = *e.SupplierId
		}
		buckets[key] = append(buckets[key], e)
	}

	total := decimal.Zero
	for _, bucket := range buckets {
		total = total.Add(replayStock(bucket))
	}
	return StockLevel{Qty: total}, nil
}

// GetNodeStock replays the ledger of a stocked premake.
func GetNodeStock(ctx context.Context, nodeId int) (decimal.Decimal, error) {
	return nodeStockTx(config.GetDB().WithContext(ctx), nodeId)
}

func nodeStockTx(tx *gorm.DB, nodeId int) (decimal.Decimal, error) {
	events, err := loadStockEvents(tx, func(db *gorm.DB) *gorm.DB {
		return db.Where("node_id = ?", nodeId)
	})
	if err != nil {
		return decimal.Zero, err
	}
	return replayStock(events), nil
}

// GetStockEvents lists a material's ledger in replay order, for audit views.
func GetStockEvents(ctx context.Context, materialId int) ([]StockEvent, error) {
	return loadStockEvents(config.GetDB().WithContext(ctx), func(db *gorm.DB) *gorm.DB {
		return db.Where("material_id = ?", materialId)
	})
}
