package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TickerView is the read-only ticker snapshot handed to presentation layers.
type TickerView struct {
	ID            string
	Symbol        string
	Price         decimal.Decimal
	PrevPrice     decimal.Decimal
	History       []decimal.Decimal
	Regime        Regime
	IsDeathSpiral bool
	Sentiment     float64
	ChangePct     float64
	Watched       bool
}

// Indicator is the regime icon, or a skull once the ticker is in death spiral.
func (v TickerView) Indicator() string {
	if v.IsDeathSpiral {
		return "💀"
	}
	return v.Regime.Icon()
}

// ArchiveView is the read-only snapshot of a delisted ticker.
type ArchiveView struct {
	Symbol     string
	FinalPrice decimal.Decimal
	History    []decimal.Decimal
	DelistedAt time.Time
	Regime     Regime
}

// HoldingView is one line of the portfolio.
type HoldingView struct {
	Symbol    string
	Quantity  int64
	Price     decimal.Decimal
	Value     decimal.Decimal
	ChangePct float64
	// Delisted holdings are valued at the archived final price and cannot trade.
	Delisted bool
}

// PortfolioView is the read-only portfolio snapshot.
type PortfolioView struct {
	Cash       decimal.Decimal
	Holdings   []HoldingView
	TotalValue decimal.Decimal
	// ChangePct is relative to the mean of the trailing valuation ring.
	ChangePct float64
}

// Side is the direction of a trade.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// TradeReceipt describes a trade that was applied.
type TradeReceipt struct {
	ID         string
	Symbol     string
	Side       Side
	Quantity   int64
	Price      decimal.Decimal
	Amount     decimal.Decimal
	CashAfter  decimal.Decimal
	ExecutedAt time.Time
}
