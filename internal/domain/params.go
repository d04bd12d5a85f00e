package domain

// Rand is a uniform source of floats in [0, 1).
type Rand interface {
	Float64() float64
}

// Range is a closed interval of reals.
type Range struct {
	Min float64
	Max float64
}

// Sample draws uniformly from the interval.
func (r Range) Sample(rnd Rand) float64 {
	return r.Min + rnd.Float64()*(r.Max-r.Min)
}

// Clamp limits v to the interval.
func (r Range) Clamp(v float64) float64 {
	if v < r.Min {
		return r.Min
	}
	if v > r.Max {
		return r.Max
	}
	return v
}

// IntRange is a closed interval of integers.
type IntRange struct {
	Min int
	Max int
}

// Sample draws uniformly from the inclusive interval.
func (r IntRange) Sample(rnd Rand) int {
	if r.Max <= r.Min {
		return r.Min
	}
	return r.Min + int(rnd.Float64()*float64(r.Max-r.Min+1))
}

// RegimeParams are the per-regime dynamics.
type RegimeParams struct {
	Volatility      Range
	DirectionalBias float64
	Duration        IntRange
	// Transitions holds one weight per target regime, indexed by Regime.
	Transitions [regimeCount]float64
}

// SentimentParams control the exponential blend and mean reversion.
type SentimentParams struct {
	Bounds        Range
	Memory        float64
	ReversionRate float64
}

// WhaleParams control the rare exogenous shocks.
type WhaleParams struct {
	Probability     float64
	Impact          Range
	ViralMultiplier float64
}

// DeathSpiralParams control entry into the absorbing death spiral.
type DeathSpiralParams struct {
	Probability   float64
	DecayRate     float64
	DumpThreshold int
}

// ReplacementParams decide when a ticker is delisted.
type ReplacementParams struct {
	MinPrice         float64
	MaxDeathDuration int
}

// SeedParams shape the synthetic history of a freshly listed ticker.
type SeedParams struct {
	InitialPrice   Range
	Step           Range
	MomentumFactor float64
	// Floor and Ceiling are multiples of the initial price.
	Floor   float64
	Ceiling float64
}

// Params is the full tunable model. None of it is structural.
type Params struct {
	Regimes       [regimeCount]RegimeParams
	Sentiment     SentimentParams
	Whale         WhaleParams
	DeathSpiral   DeathSpiralParams
	Replacement   ReplacementParams
	Seed          SeedParams
	MomentumDecay float64
	// DumpPriceBias scales ln(price) added to the Dump transition weight.
	DumpPriceBias float64
	// PriceFloor keeps prices strictly positive.
	PriceFloor float64
}

// DefaultParams returns the stock model.
func DefaultParams() Params {
	var p Params
	p.Regimes[Accumulation] = RegimeParams{
		Volatility:      Range{0.005, 0.01},
		DirectionalBias: 0.2,
		Duration:        IntRange{10, 30},
		Transitions:     weights(0.5, 0.4, 0.1),
	}
	p.Regimes[Viral] = RegimeParams{
		Volatility:      Range{0.05, 0.2},
		DirectionalBias: 0.8,
		Duration:        IntRange{3, 8},
		Transitions:     weights(0.2, 0.1, 0.7),
	}
	p.Regimes[Dump] = RegimeParams{
		Volatility:      Range{0.05, 0.15},
		DirectionalBias: -0.7,
		Duration:        IntRange{3, 8},
		Transitions:     weights(0.6, 0.1, 0.3),
	}
	p.Sentiment = SentimentParams{
		Bounds:        Range{0.5, 3.0},
		Memory:        0.8,
		ReversionRate: 0.1,
	}
	p.Whale = WhaleParams{
		Probability:     0.05,
		Impact:          Range{-0.3, 0.4},
		ViralMultiplier: 2.0,
	}
	p.DeathSpiral = DeathSpiralParams{
		Probability:   0.001,
		DecayRate:     0.05,
		DumpThreshold: 5,
	}
	p.Replacement = ReplacementParams{
		MinPrice:         0.00001,
		MaxDeathDuration: 50,
	}
	p.Seed = SeedParams{
		InitialPrice:   Range{0.01, 100.01},
		Step:           Range{-0.015, 0.015},
		MomentumFactor: 0.7,
		Floor:          0.5,
		Ceiling:        2,
	}
	p.MomentumDecay = 0.7
	p.DumpPriceBias = 0.1
	p.PriceFloor = 0.000001
	return p
}

func weights(accumulation, viral, dump float64) [regimeCount]float64 {
	var w [regimeCount]float64
	w[Accumulation] = accumulation
	w[Viral] = viral
	w[Dump] = dump
	return w
}
