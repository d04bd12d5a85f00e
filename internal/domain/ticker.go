package domain

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// PricePlaces is the fixed-point precision prices are rounded to after every
// mutation, so thousands of ticks never accumulate float drift.
const PricePlaces = 8

// Ticker is one live synthetic asset. The TickerLedger owns it exclusively.
type Ticker struct {
	// ID identifies this listing; a replacement gets a new one.
	ID        string
	Symbol    string
	Price     decimal.Decimal
	PrevPrice decimal.Decimal
	History   *PriceHistory
	Momentum  float64
	State     RegimeState
	ListedAt  time.Time
}

// NewTicker lists a ticker with a synthetic seed history of historyLen prices.
func NewTicker(id, symbol string, p Params, historyLen int, rnd Rand, now time.Time) *Ticker {
	seed := SeedHistory(p.Seed, historyLen, rnd)
	t := &Ticker{
		ID:       id,
		Symbol:   symbol,
		History:  NewPriceHistory(seed),
		State:    NewRegimeState(p, rnd),
		ListedAt: now,
	}
	t.Price = seed[len(seed)-1]
	t.PrevPrice = t.Price
	if len(seed) > 1 {
		t.PrevPrice = seed[len(seed)-2]
	}
	return t
}

// SeedHistory builds a bounded random walk with momentum, starting at a random
// initial price and clamped to [Floor, Ceiling] multiples of it.
func SeedHistory(p SeedParams, length int, rnd Rand) []decimal.Decimal {
	if length < 1 {
		length = 1
	}
	initial := p.InitialPrice.Sample(rnd)
	bounds := Range{Min: initial * p.Floor, Max: initial * p.Ceiling}

	out := make([]decimal.Decimal, 0, length)
	out = append(out, roundPrice(initial))

	price, momentum := initial, 0.0
	for i := 1; i < length; i++ {
		momentum = momentum*p.MomentumFactor + p.Step.Sample(rnd)
		price = bounds.Clamp(price * (1 + momentum))
		out = append(out, roundPrice(price))
	}
	return out
}

// PriceChange computes this tick's fractional price change and updates the
// momentum accumulator.
func (t *Ticker) PriceChange(p Params, rnd Rand) float64 {
	rp := p.Regimes[t.State.Regime]

	volatility := rp.Volatility.Sample(rnd)
	change := (2*rnd.Float64() - 1 + rp.DirectionalBias) * volatility
	change *= t.State.Sentiment

	t.Momentum = t.Momentum*p.MomentumDecay + change
	change += t.Momentum

	whaleProb := p.Whale.Probability
	if t.State.Regime == Viral {
		whaleProb *= p.Whale.ViralMultiplier
	}
	if rnd.Float64() < whaleProb {
		change += p.Whale.Impact.Sample(rnd)
	}

	if t.State.IsDeathSpiral {
		change = -math.Abs(change) - p.DeathSpiral.DecayRate
	}
	return change
}

// Advance runs one full tick: regime transition, price change, sentiment,
// death-spiral check, then the price and history update. The ticker is left
// untouched when the step produces a non-finite price.
func (t *Ticker) Advance(p Params, rnd Rand) error {
	next := *t
	current := t.Price.InexactFloat64()

	next.State.AdvanceRegime(p, current, rnd)
	change := next.PriceChange(p, rnd)
	next.State.UpdateSentiment(p.Sentiment, change)
	next.State.CheckDeathSpiral(p.DeathSpiral, rnd)
	next.State.LastChange = change

	raw := current * (1 + change)
	if math.IsNaN(raw) || math.IsInf(raw, 0) || math.IsNaN(next.Momentum) || math.IsInf(next.Momentum, 0) {
		return fmt.Errorf("domain.Ticker.Advance %s: change %v: %w", t.Symbol, change, ErrNonFinitePrice)
	}

	next.PrevPrice = t.Price
	next.Price = floorPrice(raw, p.PriceFloor)
	t.History.Push(next.Price)
	next.History = t.History
	*t = next
	return nil
}

// ChangePct returns the tick-over-tick change in percent.
func (t *Ticker) ChangePct() float64 {
	return pctChange(t.Price, t.PrevPrice)
}

// Archive snapshots the ticker at delisting time.
func (t *Ticker) Archive(at time.Time) ArchivedTicker {
	return ArchivedTicker{
		ID:         t.ID,
		Symbol:     t.Symbol,
		FinalPrice: t.Price,
		History:    t.History.Values(),
		DelistedAt: at,
		State:      t.State,
	}
}

// View returns the read model exposed to presentation layers.
func (t *Ticker) View(watched bool) TickerView {
	return TickerView{
		ID:            t.ID,
		Symbol:        t.Symbol,
		Price:         t.Price,
		PrevPrice:     t.PrevPrice,
		History:       t.History.Values(),
		Regime:        t.State.Regime,
		IsDeathSpiral: t.State.IsDeathSpiral,
		Sentiment:     t.State.Sentiment,
		ChangePct:     t.ChangePct(),
		Watched:       watched,
	}
}

// ArchivedTicker is a delisted ticker, kept for display only.
type ArchivedTicker struct {
	ID         string
	Symbol     string
	FinalPrice decimal.Decimal
	History    []decimal.Decimal
	DelistedAt time.Time
	State      RegimeState
}

// View returns the archive read model.
func (a ArchivedTicker) View() ArchiveView {
	history := make([]decimal.Decimal, len(a.History))
	copy(history, a.History)
	return ArchiveView{
		Symbol:     a.Symbol,
		FinalPrice: a.FinalPrice,
		History:    history,
		DelistedAt: a.DelistedAt,
		Regime:     a.State.Regime,
	}
}

// floorPrice rounds to PricePlaces and never returns less than the floor or
// the smallest representable positive price.
func floorPrice(v, floor float64) decimal.Decimal {
	if v < floor {
		v = floor
	}
	d := roundPrice(v)
	if !d.IsPositive() {
		return decimal.New(1, -PricePlaces)
	}
	return d
}

func roundPrice(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(PricePlaces)
}

func pctChange(now, before decimal.Decimal) float64 {
	if before.IsZero() {
		return 0
	}
	pct := now.Sub(before).Div(before).InexactFloat64() * 100
	if math.IsNaN(pct) || math.IsInf(pct, 0) {
		return 0
	}
	return pct
}
