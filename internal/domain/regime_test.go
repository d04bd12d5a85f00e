package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// seqRand replays a fixed sequence of draws, cycling when exhausted.
type seqRand struct {
	vals []float64
	i    int
}

func (s *seqRand) Float64() float64 {
	v := s.vals[s.i%len(s.vals)]
	s.i++
	return v
}

type countingRand struct{ calls int }

func (c *countingRand) Float64() float64 {
	c.calls++
	return 0.5
}

func TestTransitionWeights_UnbiasedAtPriceOne(t *testing.T) {
	p := DefaultParams()
	w := p.TransitionWeights(Accumulation, 1)
	require.Len(t, w, 3)

	assert.Equal(t, Accumulation, w[0].Regime)
	assert.Equal(t, Viral, w[1].Regime)
	assert.Equal(t, Dump, w[2].Regime)
	assert.InDelta(t, 0.5, w[0].Weight, 1e-12)
	assert.InDelta(t, 0.4, w[1].Weight, 1e-12)
	assert.InDelta(t, 0.1, w[2].Weight, 1e-12)
}

func TestTransitionWeights_LowPriceClampsDumpAtZero(t *testing.T) {
	// 0.1 + 0.1*ln(1e-6) ≈ -1.28, clamped to 0 before renormalizing
	p := DefaultParams()
	w := p.TransitionWeights(Accumulation, 1e-6)
	require.Len(t, w, 3)

	assert.Equal(t, 0.0, w[2].Weight)
	assert.InDelta(t, 5.0/9.0, w[0].Weight, 1e-12)
	assert.InDelta(t, 4.0/9.0, w[1].Weight, 1e-12)
}

func TestTransitionWeights_HighPriceFavoursDump(t *testing.T) {
	p := DefaultParams()
	low := p.TransitionWeights(Viral, 1)
	high := p.TransitionWeights(Viral, 1000)
	assert.Greater(t, high[2].Weight, low[2].Weight)
}

func TestTransitionWeights_AllZeroReturnsNil(t *testing.T) {
	p := DefaultParams()
	p.Regimes[Accumulation].Transitions = weights(0, 0, 0)
	assert.Nil(t, p.TransitionWeights(Accumulation, 0.5))
}

func TestTransitionWeights_Property_NonNegativeAndNormalized(t *testing.T) {
	p := DefaultParams()
	rapid.Check(t, func(t *rapid.T) {
		from := Regime(rapid.IntRange(0, 2).Draw(t, "from"))
		price := rapid.Float64Range(1e-8, 1e9).Draw(t, "price")

		w := p.TransitionWeights(from, price)
		if w == nil {
			t.Fatalf("no weights for %s at %v", from, price)
		}
		sum := 0.0
		for _, rw := range w {
			if rw.Weight < 0 || math.IsNaN(rw.Weight) {
				t.Fatalf("bad weight %v for %s", rw.Weight, rw.Regime)
			}
			sum += rw.Weight
		}
		if math.Abs(sum-1) > 1e-9 {
			t.Fatalf("weights sum to %v", sum)
		}
	})
}

func TestSelectRegime_FirstMatchWinsOnTie(t *testing.T) {
	w := []RegimeWeight{{Accumulation, 0.5}, {Viral, 0.4}, {Dump, 0.1}}

	r, ok := SelectRegime(w, 0.5)
	require.True(t, ok)
	assert.Equal(t, Accumulation, r)

	r, _ = SelectRegime(w, 0.6)
	assert.Equal(t, Viral, r)

	r, _ = SelectRegime(w, 0.95)
	assert.Equal(t, Dump, r)
}

func TestSelectRegime_SkipsZeroWeights(t *testing.T) {
	w := []RegimeWeight{{Accumulation, 0}, {Viral, 1}, {Dump, 0}}
	r, ok := SelectRegime(w, 0)
	require.True(t, ok)
	assert.Equal(t, Viral, r)
}

func TestSelectRegime_RoundingFallsBackToLastPositive(t *testing.T) {
	w := []RegimeWeight{{Accumulation, 0.3}, {Viral, 0.6}, {Dump, 0}}
	r, ok := SelectRegime(w, 0.95)
	require.True(t, ok)
	assert.Equal(t, Viral, r)
}

func TestSelectRegime_Empty(t *testing.T) {
	_, ok := SelectRegime(nil, 0.5)
	assert.False(t, ok)
}

func TestAdvanceRegime_NoDrawBeforeTarget(t *testing.T) {
	s := RegimeState{Regime: Accumulation, Target: 5, Sentiment: 1}
	rnd := &countingRand{}

	s.AdvanceRegime(DefaultParams(), 1, rnd)

	assert.Equal(t, 1, s.Duration)
	assert.Equal(t, Accumulation, s.Regime)
	assert.Zero(t, rnd.calls)
}

func TestAdvanceRegime_TransitionResetsDurationAndRedrawsTarget(t *testing.T) {
	s := RegimeState{Regime: Accumulation, Target: 1, Sentiment: 1}
	// 0.95 selects Dump at price 1; 0.0 draws the shortest Dump duration.
	rnd := &seqRand{vals: []float64{0.95, 0.0}}

	s.AdvanceRegime(DefaultParams(), 1, rnd)

	assert.Equal(t, Dump, s.Regime)
	assert.Equal(t, 0, s.Duration)
	assert.Equal(t, 3, s.Target)
}

func TestAdvanceRegime_SameRegimeKeepsCounting(t *testing.T) {
	s := RegimeState{Regime: Accumulation, Duration: 4, Target: 5, Sentiment: 1}
	rnd := &seqRand{vals: []float64{0.1}}

	s.AdvanceRegime(DefaultParams(), 1, rnd)

	assert.Equal(t, Accumulation, s.Regime)
	assert.Equal(t, 5, s.Duration)
	assert.Equal(t, 5, s.Target)
}

func TestIntRange_SampleInclusive(t *testing.T) {
	r := IntRange{Min: 3, Max: 8}
	assert.Equal(t, 3, r.Sample(&seqRand{vals: []float64{0}}))
	assert.Equal(t, 8, r.Sample(&seqRand{vals: []float64{0.9999999}}))
}

func TestUpdateSentiment(t *testing.T) {
	p := DefaultParams().Sentiment

	up := RegimeState{Sentiment: 1}
	up.UpdateSentiment(p, 0.1)
	assert.InDelta(t, 1.018, up.Sentiment, 1e-12)

	down := RegimeState{Sentiment: 1}
	down.UpdateSentiment(p, -0.1)
	assert.InDelta(t, 0.991, down.Sentiment, 1e-12)

	capped := RegimeState{Sentiment: 3}
	capped.UpdateSentiment(p, 10)
	assert.Equal(t, 3.0, capped.Sentiment)

	floored := RegimeState{Sentiment: 0.5}
	floored.UpdateSentiment(p, -10)
	assert.Equal(t, 0.5, floored.Sentiment)
}

func TestCheckDeathSpiral_EntersAfterThreshold(t *testing.T) {
	p := DefaultParams().DeathSpiral
	s := RegimeState{Regime: Dump, ConsecutiveDumps: 4}

	got := s.CheckDeathSpiral(p, &seqRand{vals: []float64{0.0005}})

	assert.True(t, got)
	assert.True(t, s.IsDeathSpiral)
	assert.Equal(t, 5, s.ConsecutiveDumps)
}

func TestCheckDeathSpiral_NoDrawBelowThreshold(t *testing.T) {
	p := DefaultParams().DeathSpiral
	s := RegimeState{Regime: Dump, ConsecutiveDumps: 2}
	rnd := &countingRand{}

	assert.False(t, s.CheckDeathSpiral(p, rnd))
	assert.Zero(t, rnd.calls)
	assert.Equal(t, 3, s.ConsecutiveDumps)
}

func TestCheckDeathSpiral_ResetsOutsideDump(t *testing.T) {
	s := RegimeState{Regime: Viral, ConsecutiveDumps: 7}
	s.CheckDeathSpiral(DefaultParams().DeathSpiral, &countingRand{})
	assert.Equal(t, 0, s.ConsecutiveDumps)
}

func TestCheckDeathSpiral_IsAbsorbing(t *testing.T) {
	s := RegimeState{Regime: Accumulation, IsDeathSpiral: true, ConsecutiveDumps: 9}
	for i := 0; i < 100; i++ {
		assert.True(t, s.CheckDeathSpiral(DefaultParams().DeathSpiral, &countingRand{}))
	}
	assert.True(t, s.IsDeathSpiral)
	assert.Equal(t, 9, s.ConsecutiveDumps)
}

func TestRegime_TextRoundTrip(t *testing.T) {
	for _, r := range Regimes() {
		b, err := r.MarshalText()
		require.NoError(t, err)

		var got Regime
		require.NoError(t, got.UnmarshalText(b))
		assert.Equal(t, r, got)
	}

	var bad Regime
	assert.Error(t, bad.UnmarshalText([]byte("moon")))
	_, err := Regime(9).MarshalText()
	assert.Error(t, err)
}

func TestRegime_Icon(t *testing.T) {
	assert.Equal(t, "🔄", Accumulation.Icon())
	assert.Equal(t, "🚀", Viral.Icon())
	assert.Equal(t, "📉", Dump.Icon())
	assert.Equal(t, "?", Regime(99).Icon())
}
