package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"tradingbot/internal/client/quote"
	"tradingbot/internal/ledger"
	"tradingbot/internal/models"
)

type fakeQuote struct {
	price decimal.Decimal
	err   error
}

func (f *fakeQuote) GetPrice(ctx context.Context, stockCode string) (*quote.StockPrice, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &quote.StockPrice{Code: stockCode, Close: f.price}, nil
}

func (f *fakeQuote) GetMarketStatus(ctx context.Context, exchange string) (string, error) {
	return quote.MarketOpen, nil
}

// fakeLedger mirrors the real ledger's arithmetic and guard conditions over
// in-memory state, so evaluator tests can assert balance effects directly.
type fakeLedger struct {
	balance  decimal.Decimal
	holdings map[string]*models.Holding

	// staleHolding, when set, is returned by GetHolding even though the
	// holdings map is empty. Simulates a guard that saw a position another
	// path already sold.
	staleHolding *models.Holding

	buys  int
	sells int
}

func newFakeLedger(balance decimal.Decimal) *fakeLedger {
	return &fakeLedger{
		balance:  balance,
		holdings: map[string]*models.Holding{},
	}
}

func (f *fakeLedger) Buy(ctx context.Context, stockCode, stockName string, price, quantity decimal.Decimal) (*ledger.Trade, error) {
	cost := price.Mul(quantity)
	balance := f.balance.Sub(cost)
	if balance.IsNegative() {
		return nil, ledger.ErrInsufficientFunds
	}
	f.balance = balance
	f.holdings[stockCode] = &models.Holding{
		StockCode:  stockCode,
		StockName:  stockName,
		Quantity:   quantity,
		EntryPrice: price,
		AcquiredAt: time.Now(),
	}
	f.buys++
	return &ledger.Trade{
		StockCode:  stockCode,
		Type:       models.TradeTypeBuy,
		Price:      price,
		Quantity:   quantity,
		EntryPrice: price,
		CashDelta:  cost.Neg(),
		Balance:    balance,
	}, nil
}

func (f *fakeLedger) Sell(ctx context.Context, stockCode string, price decimal.Decimal) (*ledger.Trade, error) {
	holding, ok := f.holdings[stockCode]
	if !ok {
		return nil, ledger.ErrNoSuchPosition
	}
	proceeds := price.Mul(holding.Quantity)
	f.balance = f.balance.Add(proceeds)
	delete(f.holdings, stockCode)
	f.sells++
	return &ledger.Trade{
		StockCode:  stockCode,
		Type:       models.TradeTypeSell,
		Price:      price,
		Quantity:   holding.Quantity,
		EntryPrice: holding.EntryPrice,
		CashDelta:  proceeds,
		Balance:    f.balance,
	}, nil
}

func (f *fakeLedger) GetHolding(ctx context.Context, stockCode string) (*models.Holding, error) {
	if f.staleHolding != nil {
		return f.staleHolding, nil
	}
	return f.holdings[stockCode], nil
}

type fakeStrategyStore struct {
	deleted []uint64
}

func (f *fakeStrategyStore) ListStrategiesByExchange(ctx context.Context, exchange string) ([]models.TradingStrategy, error) {
	return nil, nil
}

func (f *fakeStrategyStore) DeleteStrategy(ctx context.Context, id uint64) error {
	f.deleted = append(f.deleted, id)
	return nil
}

type sentMessage struct {
	title   string
	content string
}

type fakeNotifier struct {
	sent []sentMessage
}

func (f *fakeNotifier) Send(ctx context.Context, title, content string) error {
	f.sent = append(f.sent, sentMessage{title: title, content: content})
	return nil
}

func baseStrategy() models.TradingStrategy {
	return models.TradingStrategy{
		ID:        7,
		StockCode: "AAA",
		StockName: "Test Co",
		Exchange:  "NASDAQ",
		Patterns:  datatypes.NewJSONSlice([]string{"hammer", "morning-star"}),
		BuyPrice:  decimal.RequireFromString("10.00"),
		SellPrice: decimal.RequireFromString("12.00"),
		StopLoss:  decimal.RequireFromString("9.00"),
		Signal:    models.SignalBuy,
	}
}

func newTestEvaluator(q *fakeQuote, l *fakeLedger, st *fakeStrategyStore, n *fakeNotifier) *Evaluator {
	return &Evaluator{
		Quote:      q,
		Ledger:     l,
		Strategies: st,
		Notifier:   n,
		LotSize:    decimal.NewFromInt(100),
		Restricted: RestrictedSet([]string{"SSE", "SZSE"}),
		Location:   time.UTC,
	}
}

func TestEvaluateBuyWithinWindow(t *testing.T) {
	s := baseStrategy()
	led := newFakeLedger(decimal.NewFromInt(100000))
	store := &fakeStrategyStore{}
	notif := &fakeNotifier{}
	e := newTestEvaluator(&fakeQuote{price: decimal.RequireFromString("9.50")}, led, store, notif)

	if err := e.Evaluate(context.Background(), s); err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if led.buys != 1 {
		t.Fatalf("buys=%d want=1", led.buys)
	}
	want := decimal.NewFromInt(100000 - 950)
	if led.balance.Cmp(want) != 0 {
		t.Fatalf("balance=%s want=%s", led.balance.String(), want.String())
	}
	holding := led.holdings["AAA"]
	if holding == nil || holding.Quantity.Cmp(decimal.NewFromInt(100)) != 0 {
		t.Fatalf("holding=%+v want quantity 100", holding)
	}
	if len(store.deleted) != 0 {
		t.Fatalf("strategy deleted after buy, want retained")
	}
	if len(notif.sent) != 1 || !strings.Contains(notif.sent[0].content, "reward:risk 5.00") {
		t.Fatalf("notifications=%+v want one buy notice with reward:risk 5.00", notif.sent)
	}
}

func TestEvaluateNoBuyAtExactLimits(t *testing.T) {
	tests := []struct {
		name  string
		price string
	}{
		{"at buy threshold", "10.00"},
		{"above buy threshold", "10.50"},
		{"at stop loss", "9.00"},
		{"below stop loss", "8.50"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			led := newFakeLedger(decimal.NewFromInt(100000))
			store := &fakeStrategyStore{}
			e := newTestEvaluator(&fakeQuote{price: decimal.RequireFromString(tt.price)}, led, store, &fakeNotifier{})
			if err := e.Evaluate(context.Background(), baseStrategy()); err != nil {
				t.Fatalf("evaluate: %v", err)
			}
			if led.buys != 0 {
				t.Fatalf("buys=%d want=0 at price %s", led.buys, tt.price)
			}
			if len(store.deleted) != 0 {
				t.Fatalf("strategy deleted, want retained")
			}
		})
	}
}

func TestEvaluateTakeProfit(t *testing.T) {
	s := baseStrategy()
	led := newFakeLedger(decimal.NewFromInt(1000))
	led.holdings["AAA"] = &models.Holding{
		StockCode:  "AAA",
		Quantity:   decimal.NewFromInt(100),
		EntryPrice: decimal.RequireFromString("9.50"),
		AcquiredAt: time.Now().AddDate(0, 0, -3),
	}
	store := &fakeStrategyStore{}
	notif := &fakeNotifier{}
	e := newTestEvaluator(&fakeQuote{price: decimal.RequireFromString("12.50")}, led, store, notif)

	if err := e.Evaluate(context.Background(), s); err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if led.sells != 1 {
		t.Fatalf("sells=%d want=1", led.sells)
	}
	want := decimal.NewFromInt(1000 + 1250)
	if led.balance.Cmp(want) != 0 {
		t.Fatalf("balance=%s want=%s", led.balance.String(), want.String())
	}
	if len(store.deleted) != 1 || store.deleted[0] != s.ID {
		t.Fatalf("deleted=%v want=[%d]", store.deleted, s.ID)
	}
	if len(notif.sent) != 1 || !strings.Contains(notif.sent[0].content, "31.58%") {
		t.Fatalf("notifications=%+v want one take-profit notice with 31.58%%", notif.sent)
	}
}

func TestEvaluateStopLoss(t *testing.T) {
	s := baseStrategy()
	led := newFakeLedger(decimal.NewFromInt(1000))
	led.holdings["AAA"] = &models.Holding{
		StockCode:  "AAA",
		Quantity:   decimal.NewFromInt(100),
		EntryPrice: decimal.RequireFromString("9.50"),
		AcquiredAt: time.Now().AddDate(0, 0, -1),
	}
	store := &fakeStrategyStore{}
	notif := &fakeNotifier{}
	e := newTestEvaluator(&fakeQuote{price: decimal.RequireFromString("8.00")}, led, store, notif)

	if err := e.Evaluate(context.Background(), s); err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if led.sells != 1 {
		t.Fatalf("sells=%d want=1", led.sells)
	}
	if len(store.deleted) != 1 {
		t.Fatalf("deleted=%v want one entry", store.deleted)
	}
	if len(notif.sent) != 1 || !strings.Contains(notif.sent[0].content, "15.79%") {
		t.Fatalf("notifications=%+v want one stop-loss notice with 15.79%%", notif.sent)
	}
}

func TestEvaluateRestrictedSameDayBlocksSell(t *testing.T) {
	now := time.Date(2025, 6, 2, 14, 0, 0, 0, time.UTC)
	s := baseStrategy()
	s.Exchange = "SSE"
	led := newFakeLedger(decimal.NewFromInt(1000))
	led.holdings["AAA"] = &models.Holding{
		StockCode:  "AAA",
		Quantity:   decimal.NewFromInt(100),
		EntryPrice: decimal.RequireFromString("9.50"),
		AcquiredAt: time.Date(2025, 6, 2, 9, 35, 0, 0, time.UTC),
	}
	store := &fakeStrategyStore{}
	notif := &fakeNotifier{}
	e := newTestEvaluator(&fakeQuote{price: decimal.RequireFromString("8.00")}, led, store, notif)
	e.Now = func() time.Time { return now }

	if err := e.Evaluate(context.Background(), s); err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if led.sells != 0 {
		t.Fatalf("sells=%d want=0 under settlement restriction", led.sells)
	}
	if len(store.deleted) != 0 {
		t.Fatalf("strategy deleted, want retained")
	}
	if len(notif.sent) != 0 {
		t.Fatalf("notifications=%+v want none", notif.sent)
	}
}

func TestEvaluateRestrictedPreviousDaySells(t *testing.T) {
	now := time.Date(2025, 6, 3, 9, 35, 0, 0, time.UTC)
	s := baseStrategy()
	s.Exchange = "SSE"
	led := newFakeLedger(decimal.NewFromInt(1000))
	led.holdings["AAA"] = &models.Holding{
		StockCode:  "AAA",
		Quantity:   decimal.NewFromInt(100),
		EntryPrice: decimal.RequireFromString("9.50"),
		AcquiredAt: time.Date(2025, 6, 2, 14, 55, 0, 0, time.UTC),
	}
	store := &fakeStrategyStore{}
	e := newTestEvaluator(&fakeQuote{price: decimal.RequireFromString("8.00")}, led, store, &fakeNotifier{})
	e.Now = func() time.Time { return now }

	if err := e.Evaluate(context.Background(), s); err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if led.sells != 1 {
		t.Fatalf("sells=%d want=1 the day after acquisition", led.sells)
	}
}

func TestEvaluateLiquidateWithHolding(t *testing.T) {
	s := baseStrategy()
	s.Signal = models.SignalSell
	led := newFakeLedger(decimal.NewFromInt(1000))
	led.holdings["AAA"] = &models.Holding{
		StockCode:  "AAA",
		Quantity:   decimal.NewFromInt(100),
		EntryPrice: decimal.RequireFromString("9.50"),
		AcquiredAt: time.Now().AddDate(0, 0, -2),
	}
	store := &fakeStrategyStore{}
	notif := &fakeNotifier{}
	e := newTestEvaluator(&fakeQuote{price: decimal.RequireFromString("11.00")}, led, store, notif)

	if err := e.Evaluate(context.Background(), s); err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if led.sells != 1 {
		t.Fatalf("sells=%d want=1", led.sells)
	}
	if len(store.deleted) != 1 {
		t.Fatalf("deleted=%v want one entry", store.deleted)
	}
	if len(notif.sent) != 1 {
		t.Fatalf("notifications=%+v want one sell notice", notif.sent)
	}
}

func TestEvaluateLiquidateNoHolding(t *testing.T) {
	s := baseStrategy()
	s.Signal = models.SignalSell
	led := newFakeLedger(decimal.NewFromInt(1000))
	store := &fakeStrategyStore{}
	notif := &fakeNotifier{}
	e := newTestEvaluator(&fakeQuote{price: decimal.RequireFromString("11.00")}, led, store, notif)

	if err := e.Evaluate(context.Background(), s); err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if led.buys != 0 || led.sells != 0 {
		t.Fatalf("ledger mutated (buys=%d sells=%d), want untouched", led.buys, led.sells)
	}
	if len(store.deleted) != 1 || store.deleted[0] != s.ID {
		t.Fatalf("deleted=%v want=[%d]", store.deleted, s.ID)
	}
	if len(notif.sent) != 0 {
		t.Fatalf("notifications=%+v want none", notif.sent)
	}
}

func TestEvaluateInsufficientFundsKeepsStrategy(t *testing.T) {
	s := baseStrategy()
	led := newFakeLedger(decimal.NewFromInt(100))
	store := &fakeStrategyStore{}
	notif := &fakeNotifier{}
	e := newTestEvaluator(&fakeQuote{price: decimal.RequireFromString("9.50")}, led, store, notif)

	if err := e.Evaluate(context.Background(), s); err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if led.buys != 0 {
		t.Fatalf("buys=%d want=0", led.buys)
	}
	if led.balance.Cmp(decimal.NewFromInt(100)) != 0 {
		t.Fatalf("balance=%s want unchanged", led.balance.String())
	}
	if len(store.deleted) != 0 {
		t.Fatalf("strategy deleted, want retained for retry")
	}
	if len(notif.sent) != 0 {
		t.Fatalf("notifications=%+v want none", notif.sent)
	}
}

func TestEvaluatePriceFetchFailureDropsEvent(t *testing.T) {
	led := newFakeLedger(decimal.NewFromInt(1000))
	store := &fakeStrategyStore{}
	e := newTestEvaluator(&fakeQuote{err: errors.New("upstream down")}, led, store, &fakeNotifier{})

	if err := e.Evaluate(context.Background(), baseStrategy()); err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if led.buys != 0 || led.sells != 0 || len(store.deleted) != 0 {
		t.Fatalf("mutation on failed price fetch")
	}
}

func TestEvaluateNonPositivePriceDropsEvent(t *testing.T) {
	led := newFakeLedger(decimal.NewFromInt(1000))
	store := &fakeStrategyStore{}
	e := newTestEvaluator(&fakeQuote{price: decimal.Zero}, led, store, &fakeNotifier{})

	if err := e.Evaluate(context.Background(), baseStrategy()); err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if led.buys != 0 || led.sells != 0 || len(store.deleted) != 0 {
		t.Fatalf("mutation on non-positive price")
	}
}

func TestEvaluateRedeliveredExitEventIsNoOp(t *testing.T) {
	s := baseStrategy()
	led := newFakeLedger(decimal.NewFromInt(1000))
	led.holdings["AAA"] = &models.Holding{
		StockCode:  "AAA",
		Quantity:   decimal.NewFromInt(100),
		EntryPrice: decimal.RequireFromString("9.50"),
		AcquiredAt: time.Now().AddDate(0, 0, -1),
	}
	store := &fakeStrategyStore{}
	e := newTestEvaluator(&fakeQuote{price: decimal.RequireFromString("12.50")}, led, store, &fakeNotifier{})

	if err := e.Evaluate(context.Background(), s); err != nil {
		t.Fatalf("first evaluate: %v", err)
	}
	if err := e.Evaluate(context.Background(), s); err != nil {
		t.Fatalf("second evaluate: %v", err)
	}
	if led.sells != 1 {
		t.Fatalf("sells=%d want=1 after re-delivery", led.sells)
	}
	if led.buys != 0 {
		t.Fatalf("buys=%d want=0, exit price must not re-enter", led.buys)
	}
}

func TestEvaluateSellAgainstVanishedHolding(t *testing.T) {
	s := baseStrategy()
	led := newFakeLedger(decimal.NewFromInt(1000))
	led.staleHolding = &models.Holding{
		StockCode:  "AAA",
		Quantity:   decimal.NewFromInt(100),
		EntryPrice: decimal.RequireFromString("9.50"),
		AcquiredAt: time.Now().AddDate(0, 0, -1),
	}
	store := &fakeStrategyStore{}
	notif := &fakeNotifier{}
	e := newTestEvaluator(&fakeQuote{price: decimal.RequireFromString("12.50")}, led, store, notif)

	if err := e.Evaluate(context.Background(), s); err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if led.sells != 0 {
		t.Fatalf("sells=%d want=0", led.sells)
	}
	if led.balance.Cmp(decimal.NewFromInt(1000)) != 0 {
		t.Fatalf("balance=%s want unchanged", led.balance.String())
	}
	if len(notif.sent) != 0 {
		t.Fatalf("notifications=%+v want none", notif.sent)
	}
}
