package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"tradingbot/internal/models"
	"tradingbot/internal/repository"
)

// ErrInsufficientFunds rejects a buy whose debit would push the account
// balance negative. It is a business rejection, not a system fault.
var ErrInsufficientFunds = errors.New("ledger: insufficient funds")

// ErrNoSuchPosition rejects a sell for a stock code with no open holding.
var ErrNoSuchPosition = errors.New("ledger: no such position")

// Trade reports the facts of an executed buy or sell back to the caller,
// mainly so notifications can be built without a second read.
type Trade struct {
	StockCode  string
	Type       string
	Price      decimal.Decimal
	Quantity   decimal.Decimal
	EntryPrice decimal.Decimal
	CashDelta  decimal.Decimal
	Balance    decimal.Decimal
}

// Ledger owns consistent mutation of holdings, the account balance and the
// trade audit trail. Buy and Sell each run as one database transaction with
// the account row locked, so the three writes land together or not at all.
type Ledger struct {
	Repo      repository.Repository
	Logger    *zap.Logger
	AccountID uint64
}

// Buy opens a position: creates the holding, debits price*quantity from the
// account and appends a buy record. Nothing is written when the balance
// would go negative.
func (l *Ledger) Buy(ctx context.Context, stockCode, stockName string, price, quantity decimal.Decimal) (*Trade, error) {
	if l == nil || l.Repo == nil {
		return nil, fmt.Errorf("ledger not initialized")
	}
	var trade *Trade
	err := l.Repo.InTx(ctx, func(tx *gorm.DB) error {
		account, err := l.Repo.GetAccountForUpdateTx(ctx, tx, l.AccountID)
		if err != nil {
			return err
		}
		if account == nil {
			return fmt.Errorf("account %d not found", l.AccountID)
		}
		cost := price.Mul(quantity)
		balance := account.Balance.Sub(cost)
		if balance.IsNegative() {
			return ErrInsufficientFunds
		}
		now := time.Now().UTC()
		holding := &models.Holding{
			StockCode:  stockCode,
			StockName:  stockName,
			Quantity:   quantity,
			EntryPrice: price,
			AcquiredAt: now,
		}
		if err := l.Repo.CreateHoldingTx(ctx, tx, holding); err != nil {
			return err
		}
		if err := l.Repo.UpdateAccountBalanceTx(ctx, tx, l.AccountID, balance); err != nil {
			return err
		}
		record := &models.TradingRecord{
			AccountID: l.AccountID,
			StockCode: stockCode,
			Price:     price,
			Quantity:  quantity,
			Type:      models.TradeTypeBuy,
		}
		if err := l.Repo.CreateTradingRecordTx(ctx, tx, record); err != nil {
			return err
		}
		trade = &Trade{
			StockCode:  stockCode,
			Type:       models.TradeTypeBuy,
			Price:      price,
			Quantity:   quantity,
			EntryPrice: price,
			CashDelta:  cost.Neg(),
			Balance:    balance,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if l.Logger != nil {
		l.Logger.Info("buy executed",
			zap.String("stock_code", trade.StockCode),
			zap.String("price", trade.Price.String()),
			zap.String("quantity", trade.Quantity.String()),
			zap.String("balance", trade.Balance.String()),
		)
	}
	return trade, nil
}

// Sell closes the position for stockCode at price: credits the proceeds,
// deletes the holding and appends a sell record.
func (l *Ledger) Sell(ctx context.Context, stockCode string, price decimal.Decimal) (*Trade, error) {
	if l == nil || l.Repo == nil {
		return nil, fmt.Errorf("ledger not initialized")
	}
	var trade *Trade
	err := l.Repo.InTx(ctx, func(tx *gorm.DB) error {
		holding, err := l.Repo.GetHoldingForUpdateTx(ctx, tx, stockCode)
		if err != nil {
			return err
		}
		if holding == nil {
			return ErrNoSuchPosition
		}
		account, err := l.Repo.GetAccountForUpdateTx(ctx, tx, l.AccountID)
		if err != nil {
			return err
		}
		if account == nil {
			return fmt.Errorf("account %d not found", l.AccountID)
		}
		proceeds := price.Mul(holding.Quantity)
		balance := account.Balance.Add(proceeds)
		if err := l.Repo.UpdateAccountBalanceTx(ctx, tx, l.AccountID, balance); err != nil {
			return err
		}
		if err := l.Repo.DeleteHoldingTx(ctx, tx, holding.ID); err != nil {
			return err
		}
		record := &models.TradingRecord{
			AccountID: l.AccountID,
			StockCode: stockCode,
			Price:     price,
			Quantity:  holding.Quantity,
			Type:      models.TradeTypeSell,
		}
		if err := l.Repo.CreateTradingRecordTx(ctx, tx, record); err != nil {
			return err
		}
		trade = &Trade{
			StockCode:  stockCode,
			Type:       models.TradeTypeSell,
			Price:      price,
			Quantity:   holding.Quantity,
			EntryPrice: holding.EntryPrice,
			CashDelta:  proceeds,
			Balance:    balance,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if l.Logger != nil {
		l.Logger.Info("sell executed",
			zap.String("stock_code", trade.StockCode),
			zap.String("price", trade.Price.String()),
			zap.String("quantity", trade.Quantity.String()),
			zap.String("balance", trade.Balance.String()),
		)
	}
	return trade, nil
}

// GetHolding returns the open position for stockCode, or nil when flat.
func (l *Ledger) GetHolding(ctx context.Context, stockCode string) (*models.Holding, error) {
	if l == nil || l.Repo == nil {
		return nil, fmt.Errorf("ledger not initialized")
	}
	return l.Repo.GetHoldingByStockCode(ctx, stockCode)
}
