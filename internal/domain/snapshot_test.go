package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSnapshot() Snapshot {
	return Snapshot{
		Version: SnapshotVersion,
		Tickers: []Pair[TickerRecord]{{
			Key: "MOON",
			Value: TickerRecord{
				ID:        "a",
				Price:     decimal.NewFromInt(2),
				PrevPrice: decimal.NewFromInt(1),
				History:   ints(1, 2),
				State:     RegimeState{Regime: Viral, Sentiment: 1},
			},
		}},
		Archive: []Pair[ArchiveRecord]{{
			Key:   "DEAD",
			Value: ArchiveRecord{FinalPrice: decimal.RequireFromString("0.00001"), DelistedAt: time.Unix(5, 0).UTC()},
		}},
		Watchlist: []string{"MOON"},
		Portfolio: PortfolioRecord{
			Cash:     decimal.NewFromInt(10),
			Holdings: []Pair[int64]{{Key: "MOON", Value: 3}},
		},
	}
}

func TestPair_EncodesAsTuple(t *testing.T) {
	b, err := json.Marshal(Pair[int64]{Key: "ABC", Value: 7})
	require.NoError(t, err)
	assert.JSONEq(t, `["ABC",7]`, string(b))

	var p Pair[int64]
	require.NoError(t, json.Unmarshal(b, &p))
	assert.Equal(t, "ABC", p.Key)
	assert.Equal(t, int64(7), p.Value)

	assert.Error(t, json.Unmarshal([]byte(`["ABC"]`), &p))
	assert.Error(t, json.Unmarshal([]byte(`{"k":1}`), &p))
}

func TestSnapshot_JSONRoundTrip(t *testing.T) {
	s := validSnapshot()

	b, err := json.Marshal(s)
	require.NoError(t, err)

	var got Snapshot
	require.NoError(t, json.Unmarshal(b, &got))
	require.NoError(t, got.Validate())
	assert.Equal(t, "MOON", got.Tickers[0].Key)
	assert.Equal(t, Viral, got.Tickers[0].Value.State.Regime)
	assert.True(t, got.Tickers[0].Value.Price.Equal(decimal.NewFromInt(2)))
	assert.Equal(t, int64(3), got.Portfolio.Holdings[0].Value)
}

func TestSnapshot_Validate(t *testing.T) {
	require.NoError(t, func() error { s := validSnapshot(); return s.Validate() }())

	cases := map[string]func(*Snapshot){
		"no tickers":          func(s *Snapshot) { s.Tickers = nil },
		"active and archived": func(s *Snapshot) { s.Archive[0].Key = "MOON" },
		"zero price":          func(s *Snapshot) { s.Tickers[0].Value.Price = decimal.Zero },
		"empty history":       func(s *Snapshot) { s.Tickers[0].Value.History = nil },
		"negative cash":       func(s *Snapshot) { s.Portfolio.Cash = decimal.NewFromInt(-1) },
		"zero holding":        func(s *Snapshot) { s.Portfolio.Holdings[0].Value = 0 },
		"duplicate ticker": func(s *Snapshot) {
			s.Tickers = append(s.Tickers, s.Tickers[0])
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			s := validSnapshot()
			mutate(&s)
			assert.Error(t, s.Validate())
		})
	}
}
