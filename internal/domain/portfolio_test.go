package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestPortfolio_BuyExceedingCash(t *testing.T) {
	p := NewPortfolio(dec("100"))

	_, err := p.Buy("DOGE", 3, dec("50"))

	require.ErrorIs(t, err, ErrInsufficientFunds)
	assert.True(t, p.Cash.Equal(dec("100")))
	assert.Empty(t, p.Holdings)
}

func TestPortfolio_BuyExactCash(t *testing.T) {
	p := NewPortfolio(dec("100"))

	cost, err := p.Buy("DOGE", 2, dec("50"))

	require.NoError(t, err)
	assert.True(t, cost.Equal(dec("100")))
	assert.True(t, p.Cash.IsZero())
	assert.Equal(t, int64(2), p.Holdings["DOGE"])
}

func TestPortfolio_SellExceedingHoldings(t *testing.T) {
	p := NewPortfolio(dec("0"))
	p.Holdings["PEPE"] = 10

	_, err := p.Sell("PEPE", 11, dec("2"))

	require.ErrorIs(t, err, ErrInsufficientHoldings)
	assert.Equal(t, int64(10), p.Holdings["PEPE"])
	assert.True(t, p.Cash.IsZero())
}

func TestPortfolio_SellUnheldSymbol(t *testing.T) {
	p := NewPortfolio(dec("5"))
	_, err := p.Sell("NOPE", 1, dec("1"))
	require.ErrorIs(t, err, ErrInsufficientHoldings)
	_, held := p.Holdings["NOPE"]
	assert.False(t, held)
}

func TestPortfolio_SellToZeroRemovesEntry(t *testing.T) {
	p := NewPortfolio(dec("0"))
	p.Holdings["PEPE"] = 4

	proceeds, err := p.Sell("PEPE", 4, dec("2.5"))

	require.NoError(t, err)
	assert.True(t, proceeds.Equal(dec("10")))
	_, held := p.Holdings["PEPE"]
	assert.False(t, held)
}

func TestPortfolio_RejectsNonPositiveQuantity(t *testing.T) {
	p := NewPortfolio(dec("100"))
	p.Holdings["X"] = 1

	for _, q := range []int64{0, -1} {
		_, err := p.Buy("X", q, dec("1"))
		assert.ErrorIs(t, err, ErrInvalidQuantity)
		_, err = p.Sell("X", q, dec("1"))
		assert.ErrorIs(t, err, ErrInvalidQuantity)
	}
	assert.True(t, p.Cash.Equal(dec("100")))
	assert.Equal(t, int64(1), p.Holdings["X"])
}

func TestPortfolio_Property_BuySellRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cents := rapid.Int64Range(0, 10_000_000).Draw(t, "cash_cents")
		priceUnits := rapid.Int64Range(1, 1_000_000_000).Draw(t, "price_1e-8")
		qty := rapid.Int64Range(1, 10_000).Draw(t, "qty")

		cash := decimal.New(cents, -2)
		price := decimal.New(priceUnits, -PricePlaces)
		p := NewPortfolio(cash)

		if _, err := p.Buy("RND", qty, price); err != nil {
			if price.Mul(decimal.NewFromInt(qty)).LessThanOrEqual(cash) {
				t.Fatalf("affordable buy rejected: %v", err)
			}
			return
		}
		if _, err := p.Sell("RND", qty, price); err != nil {
			t.Fatalf("sell after buy: %v", err)
		}
		if !p.Cash.Equal(cash) {
			t.Fatalf("cash %s after round trip, want %s", p.Cash, cash)
		}
		if len(p.Holdings) != 0 {
			t.Fatalf("holdings left: %v", p.Holdings)
		}
	})
}

func TestPortfolio_TotalValue(t *testing.T) {
	p := NewPortfolio(dec("10"))
	p.Holdings["A"] = 2
	p.Holdings["B"] = 3
	p.Holdings["GONE"] = 100

	prices := map[string]decimal.Decimal{"A": dec("1.5"), "B": dec("0.25")}
	total := p.TotalValue(func(s string) (decimal.Decimal, bool) {
		v, ok := prices[s]
		return v, ok
	})

	assert.True(t, total.Equal(dec("13.75")), total.String())
}

func TestPortfolio_RevalueOverwritesWithinBucket(t *testing.T) {
	p := NewPortfolio(dec("0"))
	base := time.Date(2026, 3, 1, 10, 5, 0, 0, time.UTC)

	p.Revalue(base, time.Hour, dec("100"))
	p.Revalue(base.Add(35*time.Minute), time.Hour, dec("120"))

	points := p.Trailing.Points()
	require.Len(t, points, 1)
	assert.True(t, points[0].Value.Equal(dec("120")))
	assert.Equal(t, base.Truncate(time.Hour), points[0].At)
	require.Len(t, p.History, 1)
	assert.True(t, p.History[0].Value.Equal(dec("120")))

	p.Revalue(base.Add(time.Hour), time.Hour, dec("80"))
	assert.Len(t, p.Trailing.Points(), 2)
	assert.Len(t, p.History, 2)
	assert.True(t, p.Trailing.Mean().Equal(dec("100")))
}

func TestValuationRing_EvictsOldest(t *testing.T) {
	r := NewValuationRing(TrailingSlots)
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for h := 0; h < 30; h++ {
		r.Record(base.Add(time.Duration(h)*time.Hour), time.Hour, decimal.NewFromInt(int64(h)))
	}

	points := r.Points()
	require.Len(t, points, TrailingSlots)
	assert.True(t, points[0].Value.Equal(decimal.NewFromInt(6)))
	assert.True(t, points[TrailingSlots-1].Value.Equal(decimal.NewFromInt(29)))
}

func TestPortfolio_ChangePct(t *testing.T) {
	p := NewPortfolio(dec("0"))
	assert.Equal(t, 0.0, p.ChangePct(dec("50")), "empty baseline")

	p.Revalue(time.Unix(0, 0), time.Hour, dec("0"))
	assert.Equal(t, 0.0, p.ChangePct(dec("50")), "zero baseline")

	p.Revalue(time.Unix(0, 0), time.Hour, dec("100"))
	assert.InDelta(t, 10.0, p.ChangePct(dec("110")), 1e-9)
	assert.InDelta(t, -25.0, p.ChangePct(dec("75")), 1e-9)
}

func TestParseQuantity(t *testing.T) {
	q, err := ParseQuantity(" 12 ")
	require.NoError(t, err)
	assert.Equal(t, int64(12), q)

	for _, in := range []string{"0", "-3", "1.5", "ten", ""} {
		_, err := ParseQuantity(in)
		assert.ErrorIs(t, err, ErrInvalidQuantity, in)
	}
}
