package notify

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"tradingbot/internal/models"
)

// Notification titles, one per trade direction.
const (
	BuyTitle  = "Stock buy notice"
	SellTitle = "Stock sell notice"
)

var hundred = decimal.NewFromInt(100)

// RewardRiskRatio is (sellPrice - price) / (price - stopLoss), the expected
// gain per unit of accepted risk at the actual fill price.
func RewardRiskRatio(sellPrice, price, stopLoss decimal.Decimal) decimal.Decimal {
	risk := price.Sub(stopLoss)
	if risk.Sign() <= 0 {
		return decimal.Zero
	}
	return sellPrice.Sub(price).Div(risk)
}

// GainPct is the signed percentage move from entry to exit.
func GainPct(entryPrice, price decimal.Decimal) decimal.Decimal {
	if entryPrice.Sign() <= 0 {
		return decimal.Zero
	}
	return price.Sub(entryPrice).Div(entryPrice).Mul(hundred)
}

func BuyMessage(s models.TradingStrategy, price, quantity decimal.Decimal) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s) bought %s @ %s\n", s.StockName, s.StockCode, quantity.String(), price.String())
	fmt.Fprintf(&b, "entry threshold %s, stop loss %s, take profit %s\n", s.BuyPrice.String(), s.StopLoss.String(), s.SellPrice.String())
	fmt.Fprintf(&b, "reward:risk %s", RewardRiskRatio(s.SellPrice, price, s.StopLoss).StringFixed(2))
	if len(s.Patterns) > 0 {
		fmt.Fprintf(&b, "\npatterns: %s", strings.Join(s.Patterns, ", "))
	}
	return b.String()
}

func StopLossMessage(s models.TradingStrategy, price, entryPrice, quantity decimal.Decimal) string {
	loss := GainPct(entryPrice, price).Neg()
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s) sold %s @ %s\n", s.StockName, s.StockCode, quantity.String(), price.String())
	fmt.Fprintf(&b, "price fell through stop loss %s, realized loss %s%%", s.StopLoss.String(), loss.StringFixed(2))
	return b.String()
}

func TakeProfitMessage(s models.TradingStrategy, price, entryPrice, quantity decimal.Decimal) string {
	gain := GainPct(entryPrice, price)
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s) sold %s @ %s\n", s.StockName, s.StockCode, quantity.String(), price.String())
	fmt.Fprintf(&b, "price reached take profit %s, realized gain %s%%", s.SellPrice.String(), gain.StringFixed(2))
	return b.String()
}

func LiquidationMessage(s models.TradingStrategy, price, entryPrice, quantity decimal.Decimal) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s) sold %s @ %s on sell signal\n", s.StockName, s.StockCode, quantity.String(), price.String())
	fmt.Fprintf(&b, "realized %s%%", GainPct(entryPrice, price).StringFixed(2))
	if len(s.Patterns) > 0 {
		fmt.Fprintf(&b, "\npatterns: %s", strings.Join(s.Patterns, ", "))
	}
	return b.String()
}
