package models

import (
	"log"

	"github.com/lucidmetrics/adsync_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Contact{},
		&Order{}, &LedgerEntry{},
		&SourceConnection{}, &SyncRun{}, &SyncError{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
