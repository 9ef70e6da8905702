package models

import (
	"log"

	"bitbucket.org/mmdatafocus/cashflow_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Business{},
		&IncomeSource{}, &DailyEntry{},
		&Supplier{}, &Invoice{}, &Payment{}, &PaymentSplit{},
		&SettlementOverride{},
		&DailySummary{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
