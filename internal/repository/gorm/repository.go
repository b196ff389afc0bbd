package gormrepository

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tradingbot/internal/models"
	"tradingbot/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

// --- Strategies -------------------------------------------------------------

func (s *Store) ListStrategiesByExchange(ctx context.Context, exchange string) ([]models.TradingStrategy, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.TradingStrategy
	err := s.db.WithContext(ctx).
		Where("exchange = ?", strings.TrimSpace(exchange)).
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListStrategies(ctx context.Context, params repository.ListStrategiesParams) ([]models.TradingStrategy, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.TradingStrategy{})
	if params.Exchange != nil && strings.TrimSpace(*params.Exchange) != "" {
		query = query.Where("exchange = ?", strings.TrimSpace(*params.Exchange))
	}
	limit := normalizeLimit(params.Limit, 200)
	offset := normalizeOffset(params.Offset)
	var items []models.TradingStrategy
	if err := query.Order("id ASC").Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) GetStrategyByID(ctx context.Context, id uint64) (*models.TradingStrategy, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.TradingStrategy
	err := s.db.WithContext(ctx).First(&item, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) CreateStrategy(ctx context.Context, item *models.TradingStrategy) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) DeleteStrategy(ctx context.Context, id uint64) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Delete(&models.TradingStrategy{}, id).Error
}

// --- Holdings ---------------------------------------------------------------

func (s *Store) GetHoldingByStockCode(ctx context.Context, stockCode string) (*models.Holding, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Holding
	err := s.db.WithContext(ctx).
		Where("stock_code = ?", strings.TrimSpace(stockCode)).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListHoldings(ctx context.Context) ([]models.Holding, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Holding
	if err := s.db.WithContext(ctx).Order("acquired_at ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) GetHoldingForUpdateTx(ctx context.Context, tx *gorm.DB, stockCode string) (*models.Holding, error) {
	if tx == nil {
		return nil, nil
	}
	var item models.Holding
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("stock_code = ?", strings.TrimSpace(stockCode)).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) CreateHoldingTx(ctx context.Context, tx *gorm.DB, item *models.Holding) error {
	if tx == nil || item == nil {
		return nil
	}
	return tx.WithContext(ctx).Create(item).Error
}

func (s *Store) DeleteHoldingTx(ctx context.Context, tx *gorm.DB, id uint64) error {
	if tx == nil {
		return nil
	}
	return tx.WithContext(ctx).Delete(&models.Holding{}, id).Error
}

// --- Account ----------------------------------------------------------------

func (s *Store) GetAccount(ctx context.Context, id uint64) (*models.Account, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Account
	err := s.db.WithContext(ctx).First(&item, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) EnsureAccount(ctx context.Context, id uint64, openingBalance decimal.Decimal) error {
	if s == nil || s.db == nil {
		return nil
	}
	item := models.Account{ID: id, Balance: openingBalance}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).Create(&item).Error
}

// GetAccountForUpdateTx takes a row lock so concurrent ledger transactions
// serialize on the shared account instead of losing updates.
func (s *Store) GetAccountForUpdateTx(ctx context.Context, tx *gorm.DB, id uint64) (*models.Account, error) {
	if tx == nil {
		return nil, nil
	}
	var item models.Account
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&item, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) UpdateAccountBalanceTx(ctx context.Context, tx *gorm.DB, id uint64, balance decimal.Decimal) error {
	if tx == nil {
		return nil
	}
	return tx.WithContext(ctx).
		Model(&models.Account{}).
		Where("id = ?", id).
		Update("balance", balance).Error
}

// --- Trade audit trail ------------------------------------------------------

func (s *Store) CreateTradingRecordTx(ctx context.Context, tx *gorm.DB, item *models.TradingRecord) error {
	if tx == nil || item == nil {
		return nil
	}
	return tx.WithContext(ctx).Create(item).Error
}

func (s *Store) ListTradingRecords(ctx context.Context, params repository.ListTradingRecordsParams) ([]models.TradingRecord, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.TradingRecord{})
	if params.StockCode != nil && strings.TrimSpace(*params.StockCode) != "" {
		query = query.Where("stock_code = ?", strings.TrimSpace(*params.StockCode))
	}
	if params.Type != nil && strings.TrimSpace(*params.Type) != "" {
		query = query.Where("type = ?", strings.TrimSpace(*params.Type))
	}
	limit := normalizeLimit(params.Limit, 200)
	offset := normalizeOffset(params.Offset)
	var items []models.TradingRecord
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 1000 {
		return 1000
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
