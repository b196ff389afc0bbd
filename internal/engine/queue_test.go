package engine

import (
	"context"
	"testing"
	"time"

	"tradingbot/internal/models"
)

func TestQueuePreservesEnqueueOrder(t *testing.T) {
	q := NewQueue(128, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	const n = 50
	for i := 0; i < n; i++ {
		s := models.TradingStrategy{ID: uint64(i + 1), StockCode: "AAA"}
		if err := q.Enqueue(ctx, s); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}

	got := make(chan uint64, n)
	go func() {
		_ = q.Run(ctx, func(ctx context.Context, s models.TradingStrategy) error {
			got <- s.ID
			return nil
		})
	}()

	for i := 0; i < n; i++ {
		select {
		case id := <-got:
			if id != uint64(i+1) {
				t.Fatalf("event %d has id %d, want %d", i, id, i+1)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for event %d", i)
		}
	}
}

func TestQueueEnqueueAbortsOnCancel(t *testing.T) {
	q := NewQueue(1, nil)
	ctx, cancel := context.WithCancel(context.Background())

	if err := q.Enqueue(ctx, models.TradingStrategy{ID: 1}); err != nil {
		t.Fatalf("first enqueue: %v", err)
	}

	// Buffer is full and nothing is consuming; the second enqueue must block
	// until the context is cancelled, not drop the event.
	done := make(chan error, 1)
	go func() {
		done <- q.Enqueue(ctx, models.TradingStrategy{ID: 2})
	}()

	select {
	case err := <-done:
		t.Fatalf("enqueue returned %v before cancel, want blocking", err)
	case <-time.After(50 * time.Millisecond):
	}

	cancel()
	select {
	case err := <-done:
		if err == nil {
			t.Fatalf("enqueue after cancel returned nil, want context error")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("enqueue did not return after cancel")
	}

	if q.Len() != 1 {
		t.Fatalf("queue len=%d want=1", q.Len())
	}
}

func TestQueueRunStopsOnCancel(t *testing.T) {
	q := NewQueue(8, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- q.Run(ctx, func(ctx context.Context, s models.TradingStrategy) error {
			return nil
		})
	}()

	cancel()
	select {
	case err := <-done:
		if err == nil {
			t.Fatalf("run returned nil, want context error")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("run did not stop after cancel")
	}
}
