package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade sides recorded in the audit ledger.
const (
	TradeTypeBuy  = "B"
	TradeTypeSell = "S"
)

// TradingRecord is the append-only audit trail written alongside every
// executed buy and sell. Nothing in this service reads it back except the
// admin API.
type TradingRecord struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	AccountID uint64 `gorm:"not null;index"`
	StockCode string `gorm:"type:varchar(20);not null;index"`

	Price    decimal.Decimal `gorm:"type:numeric(20,6);not null"`
	Quantity decimal.Decimal `gorm:"type:numeric(20,4);not null"`
	Type     string          `gorm:"type:varchar(1);not null"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
}

func (TradingRecord) TableName() string {
	return "trading_records"
}
