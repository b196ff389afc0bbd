package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tradingbot/internal/client/quote"
	"tradingbot/internal/ledger"
	"tradingbot/internal/models"
	"tradingbot/internal/notify"
)

// QuoteClient answers price and market-status queries. Any non-nil error is
// treated as upstream unavailability: the event is dropped and the strategy
// is retried on the next producer tick.
type QuoteClient interface {
	GetPrice(ctx context.Context, stockCode string) (*quote.StockPrice, error)
	GetMarketStatus(ctx context.Context, exchange string) (string, error)
}

// PositionLedger exposes the atomic buy/sell operations and the holding
// lookup the decision logic gates on.
type PositionLedger interface {
	Buy(ctx context.Context, stockCode, stockName string, price, quantity decimal.Decimal) (*ledger.Trade, error)
	Sell(ctx context.Context, stockCode string, price decimal.Decimal) (*ledger.Trade, error)
	GetHolding(ctx context.Context, stockCode string) (*models.Holding, error)
}

// StrategyStore is the durable set of active strategies.
type StrategyStore interface {
	ListStrategiesByExchange(ctx context.Context, exchange string) ([]models.TradingStrategy, error)
	DeleteStrategy(ctx context.Context, id uint64) error
}

// Notifier delivers one titled message to a human, best effort.
type Notifier interface {
	Send(ctx context.Context, title, content string) error
}

const (
	reasonStopLoss   = "stop_loss"
	reasonTakeProfit = "take_profit"
	reasonSignal     = "sell_signal"
)

// Evaluator turns one dequeued strategy snapshot into zero or more ledger
// mutations and at most one notification. It runs inline on the queue's
// consumer goroutine; every failure is handled here and never leaks into the
// processing of another event.
type Evaluator struct {
	Quote      QuoteClient
	Ledger     PositionLedger
	Strategies StrategyStore
	Notifier   Notifier
	Logger     *zap.Logger

	// LotSize is the fixed buy quantity. Zero falls back to 100.
	LotSize decimal.Decimal

	// Restricted holds the exchanges where a position cannot be sold on the
	// calendar day it was acquired.
	Restricted map[string]struct{}

	// Location is the timezone of the settlement-day comparison. Nil means
	// the process-local zone.
	Location *time.Location

	// Now is a clock override for tests. Nil means time.Now.
	Now func() time.Time
}

// RestrictedSet builds the Restricted field from configuration.
func RestrictedSet(exchanges []string) map[string]struct{} {
	set := make(map[string]struct{}, len(exchanges))
	for _, e := range exchanges {
		set[e] = struct{}{}
	}
	return set
}

func (e *Evaluator) Evaluate(ctx context.Context, s models.TradingStrategy) error {
	price, err := e.Quote.GetPrice(ctx, s.StockCode)
	if err != nil {
		if e.Logger != nil {
			e.Logger.Warn("price fetch failed, strategy retried next tick",
				zap.String("stock_code", s.StockCode),
				zap.Error(err),
			)
		}
		return nil
	}
	last := price.Close
	if last.Sign() <= 0 {
		if e.Logger != nil {
			e.Logger.Warn("dropping event with non-positive price",
				zap.String("stock_code", s.StockCode),
				zap.String("price", last.String()),
			)
		}
		return nil
	}

	holding, err := e.Ledger.GetHolding(ctx, s.StockCode)
	if err != nil {
		return fmt.Errorf("holding lookup %s: %w", s.StockCode, err)
	}

	switch s.Signal {
	case models.SignalBuy:
		if holding == nil {
			return e.tryEnter(ctx, s, last)
		}
		return e.tryExit(ctx, s, holding, last)
	case models.SignalSell:
		return e.liquidate(ctx, s, holding, last)
	default:
		if e.Logger != nil {
			e.Logger.Warn("ignoring strategy with unknown signal",
				zap.Uint64("strategy_id", s.ID),
				zap.Int("signal", s.Signal),
			)
		}
		return nil
	}
}

// tryEnter buys the fixed lot when the price has pulled back under the entry
// threshold but is still above the stop. Comparisons are strict on both
// sides: no buy at the exact limit. The strategy stays active either way.
func (e *Evaluator) tryEnter(ctx context.Context, s models.TradingStrategy, last decimal.Decimal) error {
	if !last.LessThan(s.BuyPrice) || !last.GreaterThan(s.StopLoss) {
		return nil
	}
	trade, err := e.Ledger.Buy(ctx, s.StockCode, s.StockName, last, e.lotSize())
	if errors.Is(err, ledger.ErrInsufficientFunds) {
		if e.Logger != nil {
			e.Logger.Info("buy rejected, insufficient funds",
				zap.String("stock_code", s.StockCode),
				zap.String("price", last.String()),
			)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("buy %s: %w", s.StockCode, err)
	}
	e.send(ctx, notify.BuyTitle, notify.BuyMessage(s, last, trade.Quantity))
	return nil
}

// tryExit handles an open position under a +1 strategy: stop-loss below the
// stop, take-profit at or through the target. Both exits are terminal for
// the strategy.
func (e *Evaluator) tryExit(ctx context.Context, s models.TradingStrategy, holding *models.Holding, last decimal.Decimal) error {
	if e.sellRestricted(s.Exchange, holding.AcquiredAt) {
		if e.Logger != nil {
			e.Logger.Debug("sell blocked by same-day settlement restriction",
				zap.String("stock_code", s.StockCode),
				zap.String("exchange", s.Exchange),
			)
		}
		return nil
	}
	if last.LessThan(s.StopLoss) {
		return e.closeOut(ctx, s, last, reasonStopLoss)
	}
	if last.GreaterThanOrEqual(s.SellPrice) {
		return e.closeOut(ctx, s, last, reasonTakeProfit)
	}
	return nil
}

// liquidate handles a -1 signal: sell whatever is held, then retire the
// strategy. With nothing held the strategy is simply discarded.
func (e *Evaluator) liquidate(ctx context.Context, s models.TradingStrategy, holding *models.Holding, last decimal.Decimal) error {
	if holding == nil {
		if err := e.Strategies.DeleteStrategy(ctx, s.ID); err != nil {
			return fmt.Errorf("delete strategy %d: %w", s.ID, err)
		}
		if e.Logger != nil {
			e.Logger.Info("liquidation signal with no position, strategy discarded",
				zap.Uint64("strategy_id", s.ID),
				zap.String("stock_code", s.StockCode),
			)
		}
		return nil
	}
	if e.sellRestricted(s.Exchange, holding.AcquiredAt) {
		if e.Logger != nil {
			e.Logger.Debug("liquidation blocked by same-day settlement restriction",
				zap.String("stock_code", s.StockCode),
				zap.String("exchange", s.Exchange),
			)
		}
		return nil
	}
	return e.closeOut(ctx, s, last, reasonSignal)
}

// closeOut sells the position, retires the strategy and notifies. A missing
// position here means a guard upstream lied; it is surfaced loudly and the
// event is otherwise a no-op, so re-delivering an already-sold event cannot
// sell twice.
func (e *Evaluator) closeOut(ctx context.Context, s models.TradingStrategy, last decimal.Decimal, reason string) error {
	trade, err := e.Ledger.Sell(ctx, s.StockCode, last)
	if errors.Is(err, ledger.ErrNoSuchPosition) {
		if e.Logger != nil {
			e.Logger.Error("sell found no position despite holding guard",
				zap.String("stock_code", s.StockCode),
				zap.String("reason", reason),
			)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("sell %s: %w", s.StockCode, err)
	}
	if err := e.Strategies.DeleteStrategy(ctx, s.ID); err != nil && e.Logger != nil {
		// The sell is already committed; the stale strategy cannot re-fire a
		// buy at exit prices, so log and move on.
		e.Logger.Warn("strategy delete failed after sell",
			zap.Uint64("strategy_id", s.ID),
			zap.Error(err),
		)
	}

	var body string
	switch reason {
	case reasonStopLoss:
		body = notify.StopLossMessage(s, last, trade.EntryPrice, trade.Quantity)
	case reasonTakeProfit:
		body = notify.TakeProfitMessage(s, last, trade.EntryPrice, trade.Quantity)
	default:
		body = notify.LiquidationMessage(s, last, trade.EntryPrice, trade.Quantity)
	}
	e.send(ctx, notify.SellTitle, body)
	return nil
}

func (e *Evaluator) send(ctx context.Context, title, content string) {
	if e.Notifier == nil {
		return
	}
	if err := e.Notifier.Send(ctx, title, content); err != nil && e.Logger != nil {
		e.Logger.Warn("notification send failed",
			zap.String("title", title),
			zap.Error(err),
		)
	}
}

func (e *Evaluator) lotSize() decimal.Decimal {
	if e.LotSize.Sign() > 0 {
		return e.LotSize
	}
	return decimal.NewFromInt(100)
}

// sellRestricted reports whether selling is blocked because the position was
// acquired on the current calendar day on a T+1 exchange. The comparison is
// by local date, not elapsed time.
func (e *Evaluator) sellRestricted(exchange string, acquiredAt time.Time) bool {
	if _, ok := e.Restricted[exchange]; !ok {
		return false
	}
	loc := e.Location
	if loc == nil {
		loc = time.Local
	}
	now := time.Now()
	if e.Now != nil {
		now = e.Now()
	}
	ay, am, ad := acquiredAt.In(loc).Date()
	ny, nm, nd := now.In(loc).Date()
	return ay == ny && am == nm && ad == nd
}
