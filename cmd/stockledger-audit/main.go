// stockledger-audit replays the whole stock ledger and prints the on-hand
// balance per (material, supplier) bucket and per stocked premake, flagging
// any bucket whose balance is negative.
//
// Example:
//
//	go run ./cmd/stockledger-audit -material-id=7 -verbose
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/bakeledger/prodcost_backend/config"
	"github.com/bakeledger/prodcost_backend/models"
	"github.com/shopspring/decimal"
)

func main() {
	materialID := flag.Int("material-id", 0, "Restrict the audit to one material (0 = all)")
	verbose := flag.Bool("verbose", false, "Print every ledger event, not just balances")
	flag.Parse()

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}

	var events []models.StockEvent
	q := db.Model(&models.StockEvent{}).Order("event_time, id")
	if *materialID > 0 {
		q = q.Where("material_id = ?", *materialID)
	}
	if err := q.Find(&events).Error; err != nil {
		fmt.Fprintf(os.Stderr, "query failed: %v\n", err)
		os.Exit(1)
	}
	if len(events) == 0 {
		fmt.Println("no ledger events found")
		return
	}

	type bucket struct {
		materialID int
		nodeID     int
		supplierID int
	}
	balances := make(map[bucket]decimal.Decimal)
	order := []bucket{}

	for _, e := range events {
		var b bucket
		if e.MaterialId != nil {
			b.materialID = *e.MaterialId
		}
		if e.NodeId != nil {
			b.nodeID = *e.NodeId
		}
		if e.SupplierId != nil {
			b.supplierID = *e.SupplierId
		}
		if _, seen := balances[b]; !seen {
			order = append(order, b)
		}
		switch e.Operation {
		case models.StockOperationSetAbsolute:
			balances[b] = e.Qty
		case models.StockOperationAdd:
			balances[b] = balances[b].Add(e.Qty)
		}
		if *verbose {
			fmt.Printf("id=%d time=%s op=%s qty=%s material=%v node=%v supplier=%v ref=%s/%d note=%q\n",
				e.ID, e.EventTime.Format("2006-01-02T15:04:05"), string(e.Operation), e.Qty,
				intOrDash(e.MaterialId), intOrDash(e.NodeId), intOrDash(e.SupplierId),
				string(e.ReferenceType), e.ReferenceId, e.Note)
		}
	}

	fmt.Printf("events=%d buckets=%d\n", len(events), len(balances))
	negatives := 0
	for _, b := range order {
		qty := balances[b]
		label := ""
		switch {
		case b.nodeID > 0:
			label = fmt.Sprintf("node_id=%d", b.nodeID)
		case b.supplierID > 0:
			label = fmt.Sprintf("material_id=%d supplier_id=%d", b.materialID, b.supplierID)
		default:
			label = fmt.Sprintf("material_id=%d supplier_id=-", b.materialID)
		}
		flagStr := ""
		if qty.IsNegative() {
			flagStr = "  NEGATIVE"
			negatives++
		}
		fmt.Printf("%s balance=%s%s\n", label, qty, flagStr)
	}

	if negatives > 0 {
		fmt.Printf("FOUND %d negative bucket(s). Check production postings and imports around the flagged keys.\n", negatives)
		os.Exit(2)
	}
	fmt.Println("OK: no negative balances.")
}

func intOrDash(i *int) string {
	if i == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *i)
}
