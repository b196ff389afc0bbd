package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account holds the cash balance. This deployment manages exactly one row;
// every buy debits it and every sell credits it inside the same transaction
// that mutates the holding.
type Account struct {
	ID      uint64          `gorm:"primaryKey"`
	Balance decimal.Decimal `gorm:"type:numeric(30,6);not null;default:0"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Account) TableName() string {
	return "accounts"
}
