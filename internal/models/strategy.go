package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Trading signals carried by a strategy. Strategies are produced upstream
// by the analysis service; this service only consumes them.
const (
	SignalBuy  = 1
	SignalSell = -1
)

// TradingStrategy is one watch rule for one stock: entry and exit thresholds
// plus the direction signal. A strategy is deleted once it resolves to a
// terminal action (sell, or a liquidation signal with nothing held).
type TradingStrategy struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	StockCode string `gorm:"type:varchar(20);not null;index"`
	StockName string `gorm:"type:varchar(100);not null"`
	Exchange  string `gorm:"type:varchar(10);not null;index"`

	// Patterns are the candlestick pattern tags that produced this strategy,
	// kept only for human context in notifications.
	Patterns datatypes.JSONSlice[string] `gorm:"type:jsonb"`

	BuyPrice  decimal.Decimal `gorm:"type:numeric(20,6);not null"`
	SellPrice decimal.Decimal `gorm:"type:numeric(20,6);not null"`
	StopLoss  decimal.Decimal `gorm:"type:numeric(20,6);not null"`
	Signal    int             `gorm:"not null"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (TradingStrategy) TableName() string {
	return "trading_strategies"
}
