package models

import (
	"log"

	"github.com/bakeledger/prodcost_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Material{}, &Supplier{}, &SupplierOffer{},
		&Node{}, &Component{},
		&StockEvent{},
		&ProductionRecord{},
		&User{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
