package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Holding is an open position. At most one row exists per stock code; it is
// created on buy and deleted on sell, never updated in place.
type Holding struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	StockCode string `gorm:"type:varchar(20);not null;uniqueIndex"`
	StockName string `gorm:"type:varchar(100);not null"`

	Quantity   decimal.Decimal `gorm:"type:numeric(20,4);not null"`
	EntryPrice decimal.Decimal `gorm:"type:numeric(20,6);not null"`

	// AcquiredAt drives the same-day settlement restriction on T+1 exchanges.
	AcquiredAt time.Time `gorm:"type:timestamptz;not null"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (Holding) TableName() string {
	return "holdings"
}
