package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// SnapshotVersion is written into every snapshot.
const SnapshotVersion = 1

// Pair is a [key, value] tuple; map-like snapshot fields are encoded as
// lists of pairs so their order survives a round trip.
type Pair[V any] struct {
	Key   string
	Value V
}

// MarshalJSON encodes the pair as a two-element array.
func (p Pair[V]) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{p.Key, p.Value})
}

// UnmarshalJSON decodes a two-element array.
func (p *Pair[V]) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if len(raw) != 2 {
		return fmt.Errorf("domain.Pair: want 2 elements, got %d", len(raw))
	}
	if err := json.Unmarshal(raw[0], &p.Key); err != nil {
		return fmt.Errorf("domain.Pair: key: %w", err)
	}
	if err := json.Unmarshal(raw[1], &p.Value); err != nil {
		return fmt.Errorf("domain.Pair %s: value: %w", p.Key, err)
	}
	return nil
}

// TickerRecord is the persisted form of a live ticker.
type TickerRecord struct {
	ID        string            `json:"id"`
	Price     decimal.Decimal   `json:"price"`
	PrevPrice decimal.Decimal   `json:"prevPrice"`
	History   []decimal.Decimal `json:"history"`
	State     RegimeState       `json:"state"`
	Momentum  float64           `json:"momentum"`
	ListedAt  time.Time         `json:"listedAt"`
}

// ArchiveRecord is the persisted form of a delisted ticker.
type ArchiveRecord struct {
	ID         string            `json:"id"`
	FinalPrice decimal.Decimal   `json:"finalPrice"`
	History    []decimal.Decimal `json:"history"`
	DelistedAt time.Time         `json:"delistedAt"`
	State      RegimeState       `json:"state"`
}

// PortfolioRecord is the persisted portfolio.
type PortfolioRecord struct {
	Cash         decimal.Decimal  `json:"cash"`
	Holdings     []Pair[int64]    `json:"holdings"`
	History      []ValuationPoint `json:"history"`
	HourlyPrices []ValuationPoint `json:"hourlyPrices"`
}

// Snapshot is the entire engine state, overwritten wholesale on every save.
type Snapshot struct {
	Version   int                   `json:"version"`
	SavedAt   time.Time             `json:"savedAt"`
	Tickers   []Pair[TickerRecord]  `json:"tickers"`
	Archive   []Pair[ArchiveRecord] `json:"archive"`
	Watchlist []string              `json:"watchlist"`
	Portfolio PortfolioRecord       `json:"portfolio"`
	// DeathSpiralCounters mirrors RegimeState.DeathSpiralTicks for readers of
	// older snapshots that kept the counter outside the ticker state.
	DeathSpiralCounters []Pair[int] `json:"deathSpiralCounters"`
}

// Validate rejects snapshots that would break engine invariants.
func (s *Snapshot) Validate() error {
	if len(s.Tickers) == 0 {
		return fmt.Errorf("snapshot has no tickers")
	}
	active := make(map[string]bool, len(s.Tickers))
	for _, e := range s.Tickers {
		if e.Key == "" {
			return fmt.Errorf("ticker with empty symbol")
		}
		if active[e.Key] {
			return fmt.Errorf("ticker %s listed twice", e.Key)
		}
		active[e.Key] = true
		if !e.Value.Price.IsPositive() || !e.Value.PrevPrice.IsPositive() {
			return fmt.Errorf("ticker %s has non-positive price", e.Key)
		}
		if len(e.Value.History) == 0 {
			return fmt.Errorf("ticker %s has empty history", e.Key)
		}
		if !e.Value.State.Regime.Valid() {
			return fmt.Errorf("ticker %s has invalid regime", e.Key)
		}
	}
	archived := make(map[string]bool, len(s.Archive))
	for _, e := range s.Archive {
		if active[e.Key] {
			return fmt.Errorf("symbol %s is both active and archived", e.Key)
		}
		if archived[e.Key] {
			return fmt.Errorf("symbol %s archived twice", e.Key)
		}
		archived[e.Key] = true
	}
	if s.Portfolio.Cash.IsNegative() {
		return fmt.Errorf("negative cash %s", s.Portfolio.Cash)
	}
	for _, h := range s.Portfolio.Holdings {
		if h.Value <= 0 {
			return fmt.Errorf("holding %s has non-positive quantity %d", h.Key, h.Value)
		}
	}
	return nil
}
