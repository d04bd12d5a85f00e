package domain

import (
	"fmt"
	"math"
)

// Regime is the macro-behavior mode of a ticker.
type Regime int

// Declaration order is the enumeration order used by the transition walk.
const (
	Accumulation Regime = iota
	Viral
	Dump

	regimeCount = 3
)

// Regimes lists every regime in enumeration order.
func Regimes() []Regime {
	return []Regime{Accumulation, Viral, Dump}
}

func (r Regime) String() string {
	switch r {
	case Accumulation:
		return "accumulation"
	case Viral:
		return "viral"
	case Dump:
		return "dump"
	default:
		return fmt.Sprintf("regime(%d)", int(r))
	}
}

// Icon returns the console marker for the regime.
func (r Regime) Icon() string {
	switch r {
	case Accumulation:
		return "🔄"
	case Viral:
		return "🚀"
	case Dump:
		return "📉"
	default:
		return "?"
	}
}

// Valid reports whether r is one of the three known regimes.
func (r Regime) Valid() bool {
	return r >= Accumulation && r < regimeCount
}

// MarshalText encodes the regime by name so snapshots stay readable.
func (r Regime) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("domain.Regime: unknown regime %d", int(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText decodes a regime name.
func (r *Regime) UnmarshalText(b []byte) error {
	for _, candidate := range Regimes() {
		if candidate.String() == string(b) {
			*r = candidate
			return nil
		}
	}
	return fmt.Errorf("domain.Regime: unknown regime %q", string(b))
}

// RegimeState is the per-ticker stochastic state.
type RegimeState struct {
	Regime           Regime  `json:"regime"`
	Duration         int     `json:"regimeDuration"`
	Target           int     `json:"regimeTarget"`
	Sentiment        float64 `json:"sentiment"`
	IsDeathSpiral    bool    `json:"isDeathSpiral"`
	ConsecutiveDumps int     `json:"consecutiveDumps"`
	// DeathSpiralTicks counts ticks spent with IsDeathSpiral set.
	DeathSpiralTicks int     `json:"deathSpiralTicks"`
	LastChange       float64 `json:"lastChange"`
}

// NewRegimeState returns the state of a freshly listed ticker.
func NewRegimeState(p Params, rnd Rand) RegimeState {
	return RegimeState{
		Regime:    Accumulation,
		Target:    p.Regimes[Accumulation].Duration.Sample(rnd),
		Sentiment: 1.0,
	}
}

// RegimeWeight pairs a target regime with its transition probability.
type RegimeWeight struct {
	Regime Regime
	Weight float64
}

// TransitionWeights returns the renormalized transition probabilities out of
// from, in enumeration order. The Dump weight is biased by DumpPriceBias*ln(price)
// and clamped at zero before renormalizing. Returns nil when no weight is left.
func (p Params) TransitionWeights(from Regime, price float64) []RegimeWeight {
	raw := p.Regimes[from].Transitions
	raw[Dump] += p.DumpPriceBias * math.Log(price)

	total := 0.0
	for i := range raw {
		// !(x > 0) also catches NaN from ln of a non-positive price.
		if !(raw[i] > 0) || math.IsInf(raw[i], 1) {
			raw[i] = clampWeight(raw[i])
		}
		total += raw[i]
	}
	if !(total > 0) || math.IsInf(total, 0) {
		return nil
	}

	out := make([]RegimeWeight, 0, regimeCount)
	for _, r := range Regimes() {
		out = append(out, RegimeWeight{Regime: r, Weight: raw[r] / total})
	}
	return out
}

func clampWeight(w float64) float64 {
	if math.IsInf(w, 1) {
		return math.MaxFloat64 / regimeCount
	}
	return 0
}

// SelectRegime walks the weights accumulating a running sum and returns the
// first regime whose cumulative weight reaches draw. If rounding leaves the
// final sum just under draw, the last regime with positive weight wins.
func SelectRegime(weights []RegimeWeight, draw float64) (Regime, bool) {
	cum := 0.0
	last, found := Accumulation, false
	for _, w := range weights {
		if w.Weight <= 0 {
			continue
		}
		cum += w.Weight
		last, found = w.Regime, true
		if draw <= cum {
			return w.Regime, true
		}
	}
	return last, found
}

// AdvanceRegime runs one tick of the regime state machine.
func (s *RegimeState) AdvanceRegime(p Params, price float64, rnd Rand) {
	s.Duration++
	if s.Duration < s.Target {
		return
	}

	draw := rnd.Float64()
	next, ok := SelectRegime(p.TransitionWeights(s.Regime, price), draw)
	if !ok || next == s.Regime {
		return
	}
	s.Regime = next
	s.Duration = 0
	s.Target = p.Regimes[next].Duration.Sample(rnd)
}

// UpdateSentiment blends the last price change into sentiment, pulls it back
// toward 1 and clamps it to the configured bounds.
func (s *RegimeState) UpdateSentiment(p SentimentParams, change float64) {
	impact := math.Abs(change)
	if change <= 0 {
		impact *= -0.5
	}
	s.Sentiment = s.Sentiment*p.Memory + (1+impact)*(1-p.Memory)
	s.Sentiment += (1 - s.Sentiment) * p.ReversionRate
	s.Sentiment = p.Bounds.Clamp(s.Sentiment)
}

// CheckDeathSpiral updates the consecutive-dump counter and may flip the
// absorbing death-spiral flag. Once set the flag never clears.
func (s *RegimeState) CheckDeathSpiral(p DeathSpiralParams, rnd Rand) bool {
	if s.IsDeathSpiral {
		return true
	}

	if s.Regime == Dump {
		s.ConsecutiveDumps++
	} else {
		s.ConsecutiveDumps = 0
	}

	if s.ConsecutiveDumps >= p.DumpThreshold && rnd.Float64() < p.Probability {
		s.IsDeathSpiral = true
	}
	return s.IsDeathSpiral
}
