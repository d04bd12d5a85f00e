package ports

import "time"

// Metrics receives engine telemetry.
type Metrics interface {
	ObserveTick(d time.Duration, replaced int)
	RecordTrade(side string, result string)
	RecordPersistenceError(op string)
	SetPortfolioValue(v float64)
	SetTickerPrice(symbol string, price float64)
	RemoveTicker(symbol string)
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) ObserveTick(time.Duration, int) {}
func (NopMetrics) RecordTrade(string, string) {}
func (NopMetrics) RecordPersistenceError(string) {}
func (NopMetrics) SetPortfolioValue(float64) {}
func (NopMetrics) SetTickerPrice(string, float64) {}
func (NopMetrics) RemoveTicker(string) {}
