package domain

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TrailingSlots is the size of the valuation ring used as the change baseline.
const TrailingSlots = 24

// ValuationPoint is a total portfolio value sampled at a bucket start.
type ValuationPoint struct {
	At    time.Time       `json:"at"`
	Value decimal.Decimal `json:"value"`
}

// ValuationRing holds the most recent samples, one per time bucket, oldest
// first. A sample in the bucket of the newest slot overwrites that slot; a
// sample in a later bucket opens a new slot and evicts the oldest when full.
type ValuationRing struct {
	slots    []ValuationPoint
	capacity int
}

// NewValuationRing returns an empty ring.
func NewValuationRing(capacity int) *ValuationRing {
	if capacity <= 0 {
		capacity = TrailingSlots
	}
	return &ValuationRing{slots: make([]ValuationPoint, 0, capacity), capacity: capacity}
}

// Record stores v under the bucket containing at.
func (r *ValuationRing) Record(at time.Time, bucket time.Duration, v decimal.Decimal) {
	key := bucketStart(at, bucket)
	if n := len(r.slots); n > 0 && r.slots[n-1].At.Equal(key) {
		r.slots[n-1].Value = v
		return
	}
	if len(r.slots) == r.capacity {
		copy(r.slots, r.slots[1:])
		r.slots = r.slots[:len(r.slots)-1]
	}
	r.slots = append(r.slots, ValuationPoint{At: key, Value: v})
}

// Mean returns the average slot value, or zero when empty.
func (r *ValuationRing) Mean() decimal.Decimal {
	if len(r.slots) == 0 {
		return decimal.Zero
	}
	sum := decimal.Zero
	for _, s := range r.slots {
		sum = sum.Add(s.Value)
	}
	return sum.Div(decimal.NewFromInt(int64(len(r.slots))))
}

// Points returns a copy of the slots, oldest first.
func (r *ValuationRing) Points() []ValuationPoint {
	out := make([]ValuationPoint, len(r.slots))
	copy(out, r.slots)
	return out
}

// Restore replaces the ring content, keeping the newest capacity points.
func (r *ValuationRing) Restore(points []ValuationPoint) {
	if len(points) > r.capacity {
		points = points[len(points)-r.capacity:]
	}
	r.slots = append(r.slots[:0], points...)
}

// Portfolio is the cash and holdings ledger.
type Portfolio struct {
	Cash     decimal.Decimal
	Holdings map[string]int64
	// History is append-only, one point per valuation bucket.
	History  []ValuationPoint
	Trailing *ValuationRing
}

// NewPortfolio opens a portfolio with the given cash and no holdings.
func NewPortfolio(cash decimal.Decimal) *Portfolio {
	return &Portfolio{
		Cash:     cash,
		Holdings: make(map[string]int64),
		Trailing: NewValuationRing(TrailingSlots),
	}
}

// Buy spends price*qty on symbol. State is unchanged on error.
func (p *Portfolio) Buy(symbol string, qty int64, price decimal.Decimal) (decimal.Decimal, error) {
	if qty <= 0 {
		return decimal.Zero, fmt.Errorf("%w: %d", ErrInvalidQuantity, qty)
	}
	cost := price.Mul(decimal.NewFromInt(qty))
	if cost.GreaterThan(p.Cash) {
		return decimal.Zero, fmt.Errorf("%w: cost %s exceeds cash %s", ErrInsufficientFunds, cost, p.Cash)
	}
	p.Cash = p.Cash.Sub(cost)
	p.Holdings[symbol] += qty
	return cost, nil
}

// Sell realizes price*qty from symbol. A position sold down to zero is removed.
func (p *Portfolio) Sell(symbol string, qty int64, price decimal.Decimal) (decimal.Decimal, error) {
	if qty <= 0 {
		return decimal.Zero, fmt.Errorf("%w: %d", ErrInvalidQuantity, qty)
	}
	held := p.Holdings[symbol]
	if qty > held {
		return decimal.Zero, fmt.Errorf("%w: selling %d of %s, holding %d", ErrInsufficientHoldings, qty, symbol, held)
	}
	proceeds := price.Mul(decimal.NewFromInt(qty))
	p.Cash = p.Cash.Add(proceeds)
	if held-qty == 0 {
		delete(p.Holdings, symbol)
	} else {
		p.Holdings[symbol] = held - qty
	}
	return proceeds, nil
}

// TotalValue is cash plus every holding marked at priceOf. Holdings without
// a known price contribute nothing.
func (p *Portfolio) TotalValue(priceOf func(symbol string) (decimal.Decimal, bool)) decimal.Decimal {
	total := p.Cash
	for symbol, qty := range p.Holdings {
		price, ok := priceOf(symbol)
		if !ok {
			continue
		}
		total = total.Add(price.Mul(decimal.NewFromInt(qty)))
	}
	return total
}

// Revalue records total into the trailing ring and the valuation history,
// overwriting the current bucket on repeated calls.
func (p *Portfolio) Revalue(at time.Time, bucket time.Duration, total decimal.Decimal) {
	p.Trailing.Record(at, bucket, total)

	key := bucketStart(at, bucket)
	if n := len(p.History); n > 0 && p.History[n-1].At.Equal(key) {
		p.History[n-1].Value = total
		return
	}
	p.History = append(p.History, ValuationPoint{At: key, Value: total})
}

// ChangePct compares total against the trailing mean. A zero baseline or a
// non-finite result reads as no change.
func (p *Portfolio) ChangePct(total decimal.Decimal) float64 {
	mean := p.Trailing.Mean()
	if mean.IsZero() {
		return 0
	}
	pct := total.Sub(mean).Div(mean).InexactFloat64() * 100
	if math.IsNaN(pct) || math.IsInf(pct, 0) {
		return 0
	}
	return pct
}

// Symbols returns held symbols in lexical order.
func (p *Portfolio) Symbols() []string {
	out := make([]string, 0, len(p.Holdings))
	for s := range p.Holdings {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// ParseQuantity parses user input as a strictly positive whole number.
func ParseQuantity(s string) (int64, error) {
	s = strings.TrimSpace(s)
	qty, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a whole number", ErrInvalidQuantity, s)
	}
	if qty <= 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidQuantity, qty)
	}
	return qty, nil
}

func bucketStart(at time.Time, bucket time.Duration) time.Time {
	if bucket <= 0 {
		return at.UTC()
	}
	return at.UTC().Truncate(bucket)
}
