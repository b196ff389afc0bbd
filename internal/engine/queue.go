package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"tradingbot/internal/models"
)

// Event carries one strategy snapshot from a producer tick to the evaluator.
// The snapshot is taken at enqueue time and never re-fetched.
type Event struct {
	Strategy   models.TradingStrategy
	EnqueuedAt time.Time
}

// Queue is the bounded ordered buffer between the per-exchange producer
// ticks and the single evaluator goroutine. When full, Enqueue blocks the
// producer until space frees; events are never dropped.
type Queue struct {
	ch     chan Event
	logger *zap.Logger
}

func NewQueue(capacity int, logger *zap.Logger) *Queue {
	if capacity <= 0 {
		capacity = 65536
	}
	return &Queue{
		ch:     make(chan Event, capacity),
		logger: logger,
	}
}

// Enqueue submits one strategy snapshot, blocking on a saturated buffer
// until space frees or ctx is cancelled.
func (q *Queue) Enqueue(ctx context.Context, s models.TradingStrategy) error {
	select {
	case q.ch <- Event{Strategy: s, EnqueuedAt: time.Now()}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) Len() int {
	return len(q.ch)
}

// Run drains the queue on the calling goroutine until ctx is cancelled.
// Exactly one Run must be active per queue: handling happens inline here,
// which is what serializes ledger mutations for the same stock code. Do not
// dispatch handle onto a worker pool.
func (q *Queue) Run(ctx context.Context, handle func(context.Context, models.TradingStrategy) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-q.ch:
			if err := handle(ctx, ev.Strategy); err != nil && q.logger != nil {
				q.logger.Warn("strategy evaluation failed",
					zap.Uint64("strategy_id", ev.Strategy.ID),
					zap.String("stock_code", ev.Strategy.StockCode),
					zap.Error(err),
				)
			}
		}
	}
}
