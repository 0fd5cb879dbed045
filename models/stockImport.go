package models

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bakeledger/prodcost_backend/config"
	"github.com/bakeledger/prodcost_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Stock audit workbooks carry one row per counted material:
// name, counted quantity, optional supplier column. Each accepted row
// becomes a SetAbsolute ledger event dated to the audit.

type StockImportSkip struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

type StockImportResult struct {
	Applied int               `json:"applied"`
	Events  []StockEvent      `json:"events"`
	Skipped []StockImportSkip `json:"skipped"`
}

// ImportStockWorkbook parses an xlsx stock count and appends the resulting
// SetAbsolute events in one transaction. Unknown materials and unparsable
// quantities are reported per row, not fatal.
func ImportStockWorkbook(ctx context.Context, r io.Reader, auditDate time.Time) (*StockImportResult, error) {
	workbook, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("cannot open workbook: %w", err)
	}
	defer workbook.Close()

	sheets := workbook.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	rows, err := workbook.GetRows(sheets[0])
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, errors.New("workbook has no data rows")
	}

	nameCol, qtyCol, supplierCol := -1, -1, -1
	for i, header := range rows[0] {
		switch strings.ToLower(strings.TrimSpace(header)) {
		case "material", "name":
			nameCol = i
		case "qty", "quantity":
			qtyCol = i
		case "supplier":
			supplierCol = i
		}
	}
	if nameCol < 0 || qtyCol < 0 {
		return nil, errors.New("missing required columns: material, qty")
	}

	correlationId, _ := utils.GetCorrelationIdFromContext(ctx)
	result := &StockImportResult{}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()

	for i, row := range rows[1:] {
		rowNum := i + 2 // 1-indexed plus header

		name := cellAt(row, nameCol)
		if name == "" {
			result.Skipped = append(result.Skipped, StockImportSkip{Row: rowNum, Reason: "empty material name"})
			continue
		}
		qty, qerr := decimal.NewFromString(cellAt(row, qtyCol))
		if qerr != nil {
			result.Skipped = append(result.Skipped, StockImportSkip{Row: rowNum, Reason: "unparsable quantity"})
			continue
		}

		var material Material
		if err := tx.Where("name = ?", name).First(&material).Error; err != nil {
			result.Skipped = append(result.Skipped, StockImportSkip{Row: rowNum, Reason: "unknown material: " + name})
			continue
		}
		if material.IsUnlimited != nil && *material.IsUnlimited {
			result.Skipped = append(result.Skipped, StockImportSkip{Row: rowNum, Reason: "unlimited material: " + name})
			continue
		}

		var supplierId *int
		if supplierCol >= 0 {
			if supplierName := cellAt(row, supplierCol); supplierName != "" {
				var supplier Supplier
				if err := tx.Where("name = ?", supplierName).First(&supplier).Error; err != nil {
					result.Skipped = append(result.Skipped, StockImportSkip{Row: rowNum, Reason: "unknown supplier: " + supplierName})
					continue
				}
				supplierId = &supplier.ID
			}
		}

		event := StockEvent{
			MaterialId:    &material.ID,
			SupplierId:    supplierId,
			Operation:     StockOperationSetAbsolute,
			Qty:           qty,
			EventTime:     auditDate,
			ReferenceType: StockReferenceTypeImport,
			Note:          "stock audit import",
			CorrelationId: correlationId,
		}
		if err := tx.Create(&event).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		result.Events = append(result.Events, event)
		result.Applied++
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return result, nil
}

func cellAt(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}
