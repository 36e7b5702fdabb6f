package database

import (
	"crypto-collector/model"
)

// RunDbMigrations ... creates the ledger tables from the models, used for local runs and tests
func (database *Database) RunDbMigrations() {
	database.DB.AutoMigrate(&model.DepositAddress{}, &model.DepositEntry{}, &model.DerivationSequence{}, &model.WatchedAddress{})
}
