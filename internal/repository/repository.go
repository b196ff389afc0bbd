package repository

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"tradingbot/internal/models"
)

type ListTradingRecordsParams struct {
	StockCode *string
	Type      *string
	Limit     int
	Offset    int
}

type ListStrategiesParams struct {
	Exchange *string
	Limit    int
	Offset   int
}

// Repository is the single storage surface for strategies, holdings, the
// account and the trade audit trail. The *Tx variants run against a caller
// supplied transaction; the ledger composes them inside InTx so one decision
// mutates the books all-or-nothing.
type Repository interface {
	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error

	// Strategies.
	ListStrategiesByExchange(ctx context.Context, exchange string) ([]models.TradingStrategy, error)
	ListStrategies(ctx context.Context, params ListStrategiesParams) ([]models.TradingStrategy, error)
	GetStrategyByID(ctx context.Context, id uint64) (*models.TradingStrategy, error)
	CreateStrategy(ctx context.Context, item *models.TradingStrategy) error
	DeleteStrategy(ctx context.Context, id uint64) error

	// Holdings.
	GetHoldingByStockCode(ctx context.Context, stockCode string) (*models.Holding, error)
	ListHoldings(ctx context.Context) ([]models.Holding, error)
	GetHoldingForUpdateTx(ctx context.Context, tx *gorm.DB, stockCode string) (*models.Holding, error)
	CreateHoldingTx(ctx context.Context, tx *gorm.DB, item *models.Holding) error
	DeleteHoldingTx(ctx context.Context, tx *gorm.DB, id uint64) error

	// Account.
	GetAccount(ctx context.Context, id uint64) (*models.Account, error)
	EnsureAccount(ctx context.Context, id uint64, openingBalance decimal.Decimal) error
	GetAccountForUpdateTx(ctx context.Context, tx *gorm.DB, id uint64) (*models.Account, error)
	UpdateAccountBalanceTx(ctx context.Context, tx *gorm.DB, id uint64, balance decimal.Decimal) error

	// Trade audit trail.
	CreateTradingRecordTx(ctx context.Context, tx *gorm.DB, item *models.TradingRecord) error
	ListTradingRecords(ctx context.Context, params ListTradingRecordsParams) ([]models.TradingRecord, error)
}
