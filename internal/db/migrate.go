package db

import (
	"tradingbot/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.TradingStrategy{},
		&models.Holding{},
		&models.Account{},
		&models.TradingRecord{},
	)
}
