package quote

import "github.com/shopspring/decimal"

// StockPrice is the current quote for one stock. Close carries the latest
// traded price; the evaluator only acts on it.
type StockPrice struct {
	Code  string          `json:"code"`
	Open  decimal.Decimal `json:"open"`
	Close decimal.Decimal `json:"close"`
	Low   decimal.Decimal `json:"low"`
	High  decimal.Decimal `json:"high"`
}

type priceEnvelope struct {
	Code int         `json:"code"`
	Data *StockPrice `json:"data"`
	Msg  string      `json:"msg"`
}

type marketStatusEnvelope struct {
	Code int    `json:"code"`
	Data string `json:"data"`
	Msg  string `json:"msg"`
}
