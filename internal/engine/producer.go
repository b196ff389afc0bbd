package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"tradingbot/internal/client/quote"
	"tradingbot/internal/models"
)

// Enqueuer is the submission side of the event queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, s models.TradingStrategy) error
}

// Producer runs on each exchange's trading-session timer: when the market
// is open it loads every active strategy for that exchange and submits one
// evaluation event per strategy, in store order.
type Producer struct {
	Quote      QuoteClient
	Strategies StrategyStore
	Queue      Enqueuer
	Logger     *zap.Logger
}

// Produce is one tick for one exchange. A failed market-status call or a
// closed market ends the tick; the next scheduled tick retries naturally.
func (p *Producer) Produce(ctx context.Context, exchange string) error {
	status, err := p.Quote.GetMarketStatus(ctx, exchange)
	if err != nil {
		return fmt.Errorf("market status %s: %w", exchange, err)
	}
	if status != quote.MarketOpen {
		if p.Logger != nil {
			p.Logger.Debug("market not open", zap.String("exchange", exchange), zap.String("status", status))
		}
		return nil
	}

	items, err := p.Strategies.ListStrategiesByExchange(ctx, exchange)
	if err != nil {
		return fmt.Errorf("list strategies %s: %w", exchange, err)
	}
	if len(items) == 0 {
		return nil
	}

	for _, s := range items {
		if err := p.Queue.Enqueue(ctx, s); err != nil {
			return fmt.Errorf("enqueue strategy %d: %w", s.ID, err)
		}
	}
	if p.Logger != nil {
		p.Logger.Info("strategies enqueued",
			zap.String("exchange", exchange),
			zap.Int("count", len(items)),
		)
	}
	return nil
}
